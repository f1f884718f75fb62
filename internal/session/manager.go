// Package session はファーストパーティセッションのライフサイクル管理を提供する。
//
// セッションは全ログイン方式（パスワード、外部IdP）共通の唯一の発行経路であり、
// 状態機械は Active → Expired（読み取り時検出、非致命）/ → Revoked（行削除、終端）。
// フィンガープリント不一致はActiveから即座にRevokedへ遷移させる。
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/shopgate/internal/model"
	"github.com/hitoshi/shopgate/internal/repository"
)

// DefaultTTL はセッションの既定有効期間。
const DefaultTTL = 24 * time.Hour

// Manager はセッションの作成・検証・失効を担う。
type Manager struct {
	sessions repository.SessionRepository
	ttl      time.Duration
}

// NewManager はManagerを生成する。ttlが0以下の場合はDefaultTTLを使用する。
func NewManager(sessions repository.SessionRepository, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		sessions: sessions,
		ttl:      ttl,
	}
}

// TTL はセッションの有効期間を返す（Cookie Max-Age算出用）。
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Create は新しいセッションを発行する。
//
// 暗号的にランダムな一意トークンを生成し、クライアントIPとUser-Agentから
// フィンガープリントを導出して保存する。挿入前にこのユーザーの期限切れ
// セッションを掃除する（ベストエフォート: 掃除の失敗はログインを妨げない）。
func (m *Manager) Create(ctx context.Context, userID, clientIP, userAgent string) (*model.Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	if swept, err := m.sessions.DeleteExpiredByUserID(ctx, userID); err != nil {
		slog.Warn("failed to sweep expired sessions",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	} else if swept > 0 {
		slog.Info("swept expired sessions",
			slog.String("user_id", userID),
			slog.Int64("swept", swept),
		)
	}

	now := time.Now()
	session := &model.Session{
		ID:           uuid.New().String(),
		UserID:       userID,
		Token:        token,
		ExpiresAt:    now.Add(m.ttl),
		ClientIP:     clientIP,
		UserAgent:    userAgent,
		Fingerprint:  Fingerprint(clientIP, userAgent),
		LastActivity: now,
		CreatedAt:    now,
	}

	if err := m.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// Resolve はトークンからセッションを取得する。
// 存在しない場合と期限切れの場合はどちらも (nil, nil) を返す。
// ストア障害はエラーとして伝播し、未認証とは区別される。
func (m *Manager) Resolve(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, nil
	}

	session, err := m.sessions.FindByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	// 期限境界の再確認: expires_atが現在時刻と等しい場合も期限切れとして扱う
	if !session.ExpiresAt.After(time.Now()) {
		return nil, nil
	}

	return session, nil
}

// CheckFingerprint は現在のリクエストのクライアント文脈からフィンガープリントを
// 再計算し、保存値と照合する。不一致は単なる未認証ではなくセキュリティ違反であり、
// 呼び出し側はセッションを即座に削除して再認証を強制すること。
func (m *Manager) CheckFingerprint(session *model.Session, clientIP, userAgent string) bool {
	want := Fingerprint(clientIP, userAgent)
	return subtle.ConstantTimeCompare([]byte(want), []byte(session.Fingerprint)) == 1
}

// Touch はlast_activityを現在時刻に更新する。
// ベストエフォートであり、認可判定の正しさには影響しない。
func (m *Manager) Touch(ctx context.Context, token string) {
	if err := m.sessions.TouchByToken(ctx, token); err != nil {
		slog.Warn("failed to touch session", slog.String("error", err.Error()))
	}
}

// Revoke はセッション行を無条件に削除する。
// 冪等であり、存在しないトークンの失効はエラーにならない。
func (m *Manager) Revoke(ctx context.Context, token string) error {
	if err := m.sessions.DeleteByToken(ctx, token); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// Fingerprint はクライアントIPとUser-Agentからセッションの束縛値を導出する。
// 作成時と検証時で同一の導出規則を使うこと。
func Fingerprint(clientIP, userAgent string) string {
	sum := sha256.Sum256([]byte(clientIP + ":" + userAgent))
	return hex.EncodeToString(sum[:])
}

// generateToken は暗号的に安全な256ビットのセッショントークンを生成する。
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
