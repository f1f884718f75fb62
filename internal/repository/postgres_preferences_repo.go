package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/shopgate/internal/model"
)

// PostgresPreferencesRepo はPostgreSQLを使用したユーザー設定リポジトリ。
type PostgresPreferencesRepo struct {
	db *sql.DB
}

// NewPostgresPreferencesRepo はPostgresPreferencesRepoを生成する。
func NewPostgresPreferencesRepo(db *sql.DB) *PostgresPreferencesRepo {
	return &PostgresPreferencesRepo{db: db}
}

// FindByUserID は指定ユーザーの設定を取得する。未設定の場合はnilを返す。
func (r *PostgresPreferencesRepo) FindByUserID(ctx context.Context, userID string) (*model.UserPreferences, error) {
	prefs := &model.UserPreferences{}
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, currency, locale, newsletter, updated_at
		 FROM user_preferences WHERE user_id = $1`,
		userID,
	).Scan(&prefs.UserID, &prefs.Currency, &prefs.Locale, &prefs.Newsletter, &prefs.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find preferences: %w", err)
	}

	return prefs, nil
}

// Upsert は設定を作成または更新する（ユーザーと1対1）。
func (r *PostgresPreferencesRepo) Upsert(ctx context.Context, prefs *model.UserPreferences) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_preferences (user_id, currency, locale, newsletter, updated_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (user_id)
		 DO UPDATE SET currency = $2, locale = $3, newsletter = $4, updated_at = now()`,
		prefs.UserID, prefs.Currency, prefs.Locale, prefs.Newsletter,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert preferences: %w", err)
	}
	return nil
}

// compile-time interface check
var _ PreferencesRepository = (*PostgresPreferencesRepo)(nil)
