// Package password はファーストパーティ資格情報のハッシュ化と検証を提供する。
//
// 保存形式は saltHex:hashHex（PBKDF2-SHA512、100,000イテレーション）。
// ":"を含まない保存形式は旧方式（ソルトなしSHA-512ダイジェスト）として検証し、
// 検証成功時に呼び出し側が新形式へ書き換える（透過的マイグレーション）。
package password

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLength = 16
	iterations = 100000
	keyLength  = 64 // 512ビット出力
)

// Hash は平文パスワードから保存形式（saltHex:hashHex）を生成する。
func Hash(plain string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	derived := pbkdf2.Key([]byte(plain), salt, iterations, keyLength, sha512.New)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(derived), nil
}

// Verify は平文パスワードを保存形式と照合する。
//
// 戻り値legacyは保存形式が旧方式（ソルトなし）だったことを示す。
// legacy==true かつ ok==true の場合、呼び出し側は保存ハッシュを
// 新形式に書き換えること（成功ログインごとに最大1回）。
//
// 比較は一致プレフィックス長に比例した時間情報を漏らさないよう定数時間で行う。
func Verify(plain, stored string) (ok bool, legacy bool) {
	if stored == "" {
		return false, false
	}

	salt, wantHex, found := strings.Cut(stored, ":")
	if !found {
		return verifyLegacy(plain, stored), true
	}

	saltBytes, err := hex.DecodeString(salt)
	if err != nil {
		return false, false
	}
	want, err := hex.DecodeString(wantHex)
	if err != nil {
		return false, false
	}

	derived := pbkdf2.Key([]byte(plain), saltBytes, iterations, keyLength, sha512.New)
	return subtle.ConstantTimeCompare(derived, want) == 1, false
}

// verifyLegacy は旧方式（ソルトなしSHA-512 hexダイジェスト）との照合を行う。
func verifyLegacy(plain, stored string) bool {
	sum := sha512.Sum512([]byte(plain))
	want, err := hex.DecodeString(stored)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(sum[:], want) == 1
}

// LegacyHash は旧方式の保存形式を生成する。
// マイグレーションのテストおよび既存データ互換のためだけに存在し、
// 新規保存に使用してはならない。
func LegacyHash(plain string) string {
	sum := sha512.Sum512([]byte(plain))
	return hex.EncodeToString(sum[:])
}
