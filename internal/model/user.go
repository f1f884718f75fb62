// Package model はドメインモデルを定義する。
package model

import (
	"database/sql"
	"time"
)

// User はストアフロント利用ユーザーを表す。
// 外部IdP（Google）経由でのみ認証するユーザーはPasswordHashを持たない。
type User struct {
	ID           string
	Email        string
	Name         string
	Picture      string
	PasswordHash sql.NullString
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewEmailUser はパスワード登録によるユーザーを生成する。
func NewEmailUser(id, email, name, passwordHash string) *User {
	now := time.Now()
	return &User{
		ID:           id,
		Email:        email,
		Name:         name,
		PasswordHash: sql.NullString{String: passwordHash, Valid: true},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewFederatedUser は外部IdPログインによる自動登録ユーザーを生成する。
// パスワードを持たないため、パスワードログインは常に失敗する。
func NewFederatedUser(id, email, name, picture string) *User {
	now := time.Now()
	return &User{
		ID:        id,
		Email:     email,
		Name:      name,
		Picture:   picture,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Session はユーザーのログインセッションを表す。
// Fingerprintは作成時のクライアントIPとUser-Agentから導出され、
// 検証時に再計算して照合することでトークンをクライアント文脈に束縛する。
type Session struct {
	ID           string
	UserID       string
	Token        string
	ExpiresAt    time.Time
	ClientIP     string
	UserAgent    string
	Fingerprint  string
	LastActivity time.Time
	CreatedAt    time.Time
}

// UserPreferences はユーザーごとの表示設定を表す（Userと1対1）。
type UserPreferences struct {
	UserID     string
	Currency   string
	Locale     string
	Newsletter bool
	UpdatedAt  time.Time
}

// UserFavorite はユーザーがお気に入り登録した商品を表す（Userと1対多）。
type UserFavorite struct {
	ID        string
	UserID    string
	ProductID string
	Title     string
	URL       string
	CreatedAt time.Time
}
