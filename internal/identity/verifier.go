package identity

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
)

// VerifySignature は署名対象バイト列に対する署名をRSA PKCS#1 v1.5 / SHA-256で検証する。
// 通常の不一致ではfalseを返すだけで、エラーは発生させない。
func VerifySignature(key *rsa.PublicKey, signedInput, signature []byte) bool {
	if key == nil {
		return false
	}
	sum := sha256.Sum256(signedInput)
	return rsa.VerifyPKCS1v15(key, crypto.SHA256, sum[:], signature) == nil
}
