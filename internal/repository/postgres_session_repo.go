package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/shopgate/internal/model"
)

// PostgresSessionRepo はPostgreSQLを使用したセッションリポジトリ。
type PostgresSessionRepo struct {
	db *sql.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

// Create はセッション行を挿入する。
func (r *PostgresSessionRepo) Create(ctx context.Context, session *model.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_sessions
		   (id, user_id, token, expires_at, client_ip, user_agent, fingerprint, last_activity, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		session.ID, session.UserID, session.Token, session.ExpiresAt,
		session.ClientIP, session.UserAgent, session.Fingerprint,
		session.LastActivity, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByToken はトークン完全一致でセッションを取得する。
// 期限切れセッションはnilを返すが、行は削除しない（掃除は次回ログイン時か
// クリーンアップジョブに委ねる）。
func (r *PostgresSessionRepo) FindByToken(ctx context.Context, token string) (*model.Session, error) {
	session := &model.Session{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, token, expires_at, client_ip, user_agent, fingerprint, last_activity, created_at
		 FROM user_sessions
		 WHERE token = $1 AND expires_at > now()`,
		token,
	).Scan(
		&session.ID, &session.UserID, &session.Token, &session.ExpiresAt,
		&session.ClientIP, &session.UserAgent, &session.Fingerprint,
		&session.LastActivity, &session.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	return session, nil
}

// DeleteByToken はセッション行を無条件に削除する。冪等。
func (r *PostgresSessionRepo) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM user_sessions WHERE token = $1`,
		token,
	)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredByUserID は指定ユーザーの期限切れセッションを削除する。
func (r *PostgresSessionRepo) DeleteExpiredByUserID(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM user_sessions WHERE user_id = $1 AND expires_at <= now()`,
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired sessions: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get swept row count: %w", err)
	}
	return deleted, nil
}

// TouchByToken はlast_activityを現在時刻に更新する。
func (r *PostgresSessionRepo) TouchByToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE user_sessions SET last_activity = now() WHERE token = $1`,
		token,
	)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SessionRepository = (*PostgresSessionRepo)(nil)
