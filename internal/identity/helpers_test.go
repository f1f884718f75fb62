package identity

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
)

// --- テストヘルパー ---

// genTestKey はテスト用RSA鍵ペアを生成する。
func genTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}
	return key
}

// encodeSegment はJSONオブジェクトをbase64url（パディングなし）セグメントにする。
func encodeSegment(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal segment: %v", err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// signToken はheaderとclaimsをRS256で署名したcompact形式トークンを生成する。
func signToken(t *testing.T, key *rsa.PrivateKey, header, claims map[string]any) string {
	t.Helper()
	signedInput := encodeSegment(t, header) + "." + encodeSegment(t, claims)
	sum := sha256.Sum256([]byte(signedInput))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, sum[:])
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signedInput + "." + base64.RawURLEncoding.EncodeToString(sig)
}

// jwksJSON は公開鍵をJWKセット形式のJSONにする。
func jwksJSON(t *testing.T, kids map[string]*rsa.PublicKey) []byte {
	t.Helper()
	type jwkEntry struct {
		Kty string `json:"kty"`
		Kid string `json:"kid"`
		Alg string `json:"alg"`
		N   string `json:"n"`
		E   string `json:"e"`
	}
	var set struct {
		Keys []jwkEntry `json:"keys"`
	}
	for kid, pub := range kids {
		set.Keys = append(set.Keys, jwkEntry{
			Kty: "RSA",
			Kid: kid,
			Alg: "RS256",
			N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		})
	}
	b, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("failed to marshal jwks: %v", err)
	}
	return b
}

// newJWKSServer はJWKセットを返すテストサーバーを起動する。
// fetchCountには取得回数が記録される。
func newJWKSServer(t *testing.T, kids map[string]*rsa.PublicKey, fetchCount *int) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fetchCount != nil {
			*fetchCount++
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(jwksJSON(t, kids))
	}))
	t.Cleanup(ts.Close)
	return ts
}

// newTestKeyRing はテストサーバーを指すKeyRingを生成する。
// テストサーバーはループバックで動くため、SSRF防止なしの素のクライアントを注入する。
func newTestKeyRing(ts *httptest.Server, cfg KeyRingConfig) *KeyRing {
	cfg.CertsURL = ts.URL
	cfg.Client = ts.Client()
	return NewKeyRing(cfg)
}
