// Package identity は外部IdP発行のIDトークンの検証を提供する。
//
// 復号（codec）、鍵解決（keyring）、署名検証（verifier）、クレーム検証（claims）を
// Serviceが合成し、「外部トークンを端から端まで検証して正規化済みIDを返す」契約を実装する。
package identity

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// TokenHeader はIDトークンのヘッダー部を表す。
type TokenHeader struct {
	Alg string `json:"alg"`
	Kid string `json:"kid"`
}

// TokenClaims はIDトークンのペイロード部を表す。
type TokenClaims struct {
	Iss     string `json:"iss"`
	Aud     string `json:"aud"`
	Exp     int64  `json:"exp"`
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// DecodedToken は構文的に復号されたトークンを表す。
// この段階ではヘッダーにもペイロードにも一切の信頼を置かない。
type DecodedToken struct {
	Header    TokenHeader
	Claims    TokenClaims
	Signature []byte

	// SignedInput は署名対象バイト列。
	// 元のトークン文字列の先頭2セグメントをそのまま"."で連結したASCIIバイトであり、
	// パース済み構造体から再エンコードしてはならない（バイト単位の一致が崩れ検証が壊れる）。
	SignedInput []byte
}

// DecodeToken はcompact形式（header.payload.signature）のトークンを構文的に復号する。
// セグメント数が3以外、base64url不正、JSON不正はすべてErrMalformedTokenとなる。
func DecodeToken(raw string) (*DecodedToken, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformedToken, len(parts))
	}

	headerJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: header segment: %v", ErrMalformedToken, err)
	}

	payloadJSON, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: payload segment: %v", ErrMalformedToken, err)
	}

	signature, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: signature segment: %v", ErrMalformedToken, err)
	}

	dec := &DecodedToken{
		Signature:   signature,
		SignedInput: []byte(parts[0] + "." + parts[1]),
	}

	if err := json.Unmarshal(headerJSON, &dec.Header); err != nil {
		return nil, fmt.Errorf("%w: header JSON: %v", ErrMalformedToken, err)
	}
	if err := json.Unmarshal(payloadJSON, &dec.Claims); err != nil {
		return nil, fmt.Errorf("%w: payload JSON: %v", ErrMalformedToken, err)
	}

	return dec, nil
}
