package identity

import (
	"fmt"
	"time"
)

// acceptedIssuers はGoogleの正規発行者文字列。
// トークンのバージョンによりURL形と裸ホスト形が混在するため両方を受理する。
var acceptedIssuers = []string{
	"accounts.google.com",
	"https://accounts.google.com",
}

// ValidateClaims はiss・aud・expを検証する。
// 発行者不一致が最も安価で最も多い攻撃シグナルのため、
// issuer → audience → expiry の順で最初の違反で即座に失敗する。
// expは現在時刻より厳密に未来でなければならない（現在時刻と等しい場合は期限切れ）。
func ValidateClaims(claims *TokenClaims, audience string, now time.Time) error {
	issuerOK := false
	for _, iss := range acceptedIssuers {
		if claims.Iss == iss {
			issuerOK = true
			break
		}
	}
	if !issuerOK {
		return fmt.Errorf("%w: %q", ErrInvalidIssuer, claims.Iss)
	}

	if claims.Aud != audience {
		return fmt.Errorf("%w: %q", ErrInvalidAudience, claims.Aud)
	}

	if claims.Exp <= now.Unix() {
		return fmt.Errorf("%w: exp=%d now=%d", ErrTokenExpired, claims.Exp, now.Unix())
	}

	return nil
}
