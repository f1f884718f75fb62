package password

import (
	"strings"
	"unicode"
)

// allowedSymbols はパスワードに要求する記号の集合。
const allowedSymbols = "!@#$%^&*()_+-=[]{}|;:'\",.<>/?`~\\"

// ValidatePolicy はパスワードの複雑性要件を検証し、
// 違反したルールすべてを返す（最初の1件で打ち切らない）。
// 違反がなければ空スライスを返す。
func ValidatePolicy(plain string) []string {
	var violations []string

	if len(plain) < 8 {
		violations = append(violations, "8文字以上であること")
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range plain {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(allowedSymbols, r):
			hasSymbol = true
		}
	}

	if !hasUpper {
		violations = append(violations, "大文字を1文字以上含むこと")
	}
	if !hasLower {
		violations = append(violations, "小文字を1文字以上含むこと")
	}
	if !hasDigit {
		violations = append(violations, "数字を1文字以上含むこと")
	}
	if !hasSymbol {
		violations = append(violations, "記号を1文字以上含むこと")
	}

	return violations
}
