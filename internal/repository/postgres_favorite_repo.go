package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/shopgate/internal/model"
)

// PostgresFavoriteRepo はPostgreSQLを使用したお気に入りリポジトリ。
type PostgresFavoriteRepo struct {
	db *sql.DB
}

// NewPostgresFavoriteRepo はPostgresFavoriteRepoを生成する。
func NewPostgresFavoriteRepo(db *sql.DB) *PostgresFavoriteRepo {
	return &PostgresFavoriteRepo{db: db}
}

// ListByUserID は指定ユーザーのお気に入りを新しい順で返す。
func (r *PostgresFavoriteRepo) ListByUserID(ctx context.Context, userID string) ([]*model.UserFavorite, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, product_id, title, url, created_at
		 FROM user_favorites WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	defer rows.Close()

	var favs []*model.UserFavorite
	for rows.Next() {
		fav := &model.UserFavorite{}
		if err := rows.Scan(&fav.ID, &fav.UserID, &fav.ProductID, &fav.Title, &fav.URL, &fav.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		favs = append(favs, fav)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate favorites: %w", err)
	}

	return favs, nil
}

// Create はお気に入りを追加する。
// 同一ユーザー・同一商品の重複追加は既存行のタイトル/URL更新として扱う。
func (r *PostgresFavoriteRepo) Create(ctx context.Context, fav *model.UserFavorite) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_favorites (id, user_id, product_id, title, url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, product_id)
		 DO UPDATE SET title = $4, url = $5`,
		fav.ID, fav.UserID, fav.ProductID, fav.Title, fav.URL, fav.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create favorite: %w", err)
	}
	return nil
}

// Delete は指定ユーザーのお気に入りを削除する。
// user_idを条件に含め、他ユーザーの行を削除できないようにする。
func (r *PostgresFavoriteRepo) Delete(ctx context.Context, userID, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM user_favorites WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete favorite: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get deleted row count: %w", err)
	}
	return deleted > 0, nil
}

// compile-time interface check
var _ FavoriteRepository = (*PostgresFavoriteRepo)(nil)
