package identity

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Identity は検証済みIDトークンから射影した正規化済みユーザーIDを表す。
type Identity struct {
	Email   string
	Name    string
	Picture string
}

// Service はIDトークン検証のオーケストレーション層。
// 復号 → 鍵解決 → 署名検証 → クレーム検証の順に合成し、
// いずれかの失敗で即座に打ち切る。
type Service struct {
	ring     *KeyRing
	audience string
}

// NewService はServiceを生成する。
// audienceには自アプリケーションのOAuthクライアントIDを渡す。
func NewService(ring *KeyRing, audience string) *Service {
	return &Service{
		ring:     ring,
		audience: audience,
	}
}

// VerifyToken は外部IdP発行のIDトークンを端から端まで検証する。
//
// すべての失敗はErrVerificationFailedに包んで返す。
// 失敗原因（署名不正・期限切れ・audience不一致等）をクライアントに
// 区別させると偽造の手掛かりになるため、詳細はサーバーサイドログにのみ残す。
func (s *Service) VerifyToken(ctx context.Context, raw string) (*Identity, error) {
	dec, err := DecodeToken(raw)
	if err != nil {
		return nil, s.fail("decode", err)
	}

	if dec.Header.Alg != "RS256" {
		return nil, s.fail("algorithm", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, dec.Header.Alg))
	}

	key, err := s.ring.ResolveKey(ctx, dec.Header.Kid)
	if err != nil {
		return nil, s.fail("key resolution", err)
	}

	if !VerifySignature(key, dec.SignedInput, dec.Signature) {
		return nil, s.fail("signature", ErrInvalidSignature)
	}

	if err := ValidateClaims(&dec.Claims, s.audience, time.Now()); err != nil {
		return nil, s.fail("claims", err)
	}

	return &Identity{
		Email:   dec.Claims.Email,
		Name:    dec.Claims.Name,
		Picture: dec.Claims.Picture,
	}, nil
}

// fail は失敗の詳細をログに残し、外向きの単一エラーに正規化する。
func (s *Service) fail(stage string, err error) error {
	slog.Warn("id token verification failed",
		slog.String("stage", stage),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("%w: %v", ErrVerificationFailed, err)
}
