// Package repository はデータアクセス層のインターフェースとPostgreSQL実装を提供する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/shopgate/internal/model"
)

// ErrDuplicateEmail はメールアドレスのUNIQUE制約違反を表す。
// 事前の存在チェックをすり抜けた同時登録はストア側の制約で検出され、
// このエラーに正規化される。
var ErrDuplicateEmail = errors.New("email already registered")

// UserRepository はユーザーの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)
	// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
	// メールアドレスは保存時の大文字小文字のまま完全一致で照合する。
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// Create はユーザーを作成する。メールアドレス重複時はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error
	// UpdatePasswordHash は保存パスワードハッシュを書き換える（旧方式からの移行用）。
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
	// UpdateProfile は表示名とアイコンURLを更新する（外部IdPログイン時のプロフィール同期用）。
	UpdateProfile(ctx context.Context, id, name, picture string) error
}

// SessionRepository はセッションの永続化インターフェース。
type SessionRepository interface {
	// Create はセッション行を挿入する。
	Create(ctx context.Context, session *model.Session) error
	// FindByToken はトークン完全一致でセッションを取得する。
	// 存在しない、または期限切れの場合はnilを返す（期限切れ行は削除しない）。
	FindByToken(ctx context.Context, token string) (*model.Session, error)
	// DeleteByToken はセッション行を無条件に削除する。対象がなくてもエラーにしない。
	DeleteByToken(ctx context.Context, token string) error
	// DeleteExpiredByUserID は指定ユーザーの期限切れセッションを削除し、削除件数を返す。
	DeleteExpiredByUserID(ctx context.Context, userID string) (int64, error)
	// TouchByToken はlast_activityを現在時刻に更新する。
	TouchByToken(ctx context.Context, token string) error
}

// PreferencesRepository はユーザー設定の永続化インターフェース。
type PreferencesRepository interface {
	// FindByUserID は指定ユーザーの設定を取得する。未設定の場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.UserPreferences, error)
	// Upsert は設定を作成または更新する。
	Upsert(ctx context.Context, prefs *model.UserPreferences) error
}

// FavoriteRepository はお気に入りの永続化インターフェース。
type FavoriteRepository interface {
	// ListByUserID は指定ユーザーのお気に入りを新しい順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.UserFavorite, error)
	// Create はお気に入りを追加する。同一商品の重複追加は既存行の更新として扱う。
	Create(ctx context.Context, fav *model.UserFavorite) error
	// Delete は指定ユーザーのお気に入りを削除する。削除できたかどうかを返す。
	Delete(ctx context.Context, userID, id string) (bool, error)
}
