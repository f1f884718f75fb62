package identity

import "errors"

// 検証パイプライン内部のエラー分類。
// HTTP応答では区別せず、サーバーサイドログにのみ詳細を残す。
var (
	// ErrMalformedToken はトークンが構文的に不正であることを示す。
	ErrMalformedToken = errors.New("malformed token")
	// ErrKeyNotFound は署名検証鍵が解決できなかったことを示す。
	// 鍵セット取得の失敗も（フェイルクローズのため）このエラーに正規化される。
	ErrKeyNotFound = errors.New("verification key not found")
	// ErrInvalidSignature は署名が公開鍵と一致しなかったことを示す。
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrUnsupportedAlgorithm はヘッダーのalgがRS256以外であることを示す。
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")
	// ErrInvalidIssuer はissクレームが既知の発行者と一致しないことを示す。
	ErrInvalidIssuer = errors.New("invalid issuer")
	// ErrInvalidAudience はaudクレームが期待するクライアントIDと一致しないことを示す。
	ErrInvalidAudience = errors.New("invalid audience")
	// ErrTokenExpired はexpクレームが現在時刻以前であることを示す。
	ErrTokenExpired = errors.New("token expired")

	// ErrVerificationFailed は検証パイプライン全体の失敗を表す単一の外向きエラー。
	// 失敗原因をクライアントに区別させないため、Serviceはすべての失敗をこれで包む。
	ErrVerificationFailed = errors.New("identity verification failed")
)
