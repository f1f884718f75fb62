// Package account は登録・ログイン・ユーザー情報取得のビジネスロジックを提供する。
//
// パスワードログインと外部IdPログインはどちらも同一のセッション発行経路に合流し、
// 後段のミドルウェアからは区別できない。
package account

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/hitoshi/shopgate/internal/identity"
	"github.com/hitoshi/shopgate/internal/model"
	"github.com/hitoshi/shopgate/internal/password"
	"github.com/hitoshi/shopgate/internal/repository"
	"github.com/hitoshi/shopgate/internal/security"
)

// TokenVerifier は外部IdP発行のIDトークンを検証するインターフェース。
type TokenVerifier interface {
	VerifyToken(ctx context.Context, raw string) (*identity.Identity, error)
}

// SessionIssuer はセッションの発行と失効を担うインターフェース。
type SessionIssuer interface {
	Create(ctx context.Context, userID, clientIP, userAgent string) (*model.Session, error)
	Revoke(ctx context.Context, token string) error
}

// Service はアカウントに関するビジネスロジックを提供する。
type Service struct {
	users     repository.UserRepository
	sessions  SessionIssuer
	verifier  TokenVerifier
	sanitizer security.ProfileSanitizerService
}

// NewService はServiceを生成する。
func NewService(
	users repository.UserRepository,
	sessions SessionIssuer,
	verifier TokenVerifier,
) *Service {
	return &Service{
		users:     users,
		sessions:  sessions,
		verifier:  verifier,
		sanitizer: security.NewProfileSanitizer(),
	}
}

// SignupEmail はメールアドレスとパスワードで新規ユーザーを登録し、セッションを発行する。
//
// メールアドレス重複は事前チェックと挿入時のUNIQUE制約の二段構えで検出し、
// 同時登録の競合でもどちらか一方しか成功しない。
func (s *Service) SignupEmail(ctx context.Context, email, name, plain, clientIP, userAgent string) (*model.User, *model.Session, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)

	if email == "" || !strings.Contains(email, "@") {
		return nil, nil, model.NewInvalidRequestError("メールアドレスが不正です")
	}
	if name == "" {
		return nil, nil, model.NewInvalidRequestError("名前は必須です")
	}

	if violations := password.ValidatePolicy(plain); len(violations) > 0 {
		return nil, nil, model.NewWeakPasswordError(violations)
	}

	// 表示名は後でそのままHTMLに埋め込まれるためタグを除去する
	name = s.sanitizer.Sanitize(name)

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, nil, model.NewDuplicateUserError()
	}

	hash, err := password.Hash(plain)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := model.NewEmailUser(uuid.New().String(), email, name, hash)
	if err := s.users.Create(ctx, user); err != nil {
		if err == repository.ErrDuplicateEmail {
			// 事前チェックをすり抜けた同時登録はここで検出される
			return nil, nil, model.NewDuplicateUserError()
		}
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new user registered",
		slog.String("user_id", user.ID),
		slog.String("method", "email"),
	)

	session, err := s.sessions.Create(ctx, user.ID, clientIP, userAgent)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	return user, session, nil
}

// LoginEmail はメールアドレスとパスワードでログインし、セッションを発行する。
//
// 未登録メール・パスワード保存なし・パスワード不一致はすべて同一の
// ログイン失敗エラーに正規化し、アカウントの存在を探られないようにする。
// ストア障害はログイン失敗と区別して伝播する。
func (s *Service) LoginEmail(ctx context.Context, email, plain, clientIP, userAgent string) (*model.User, *model.Session, error) {
	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !user.PasswordHash.Valid || user.PasswordHash.String == "" {
		return nil, nil, model.NewLoginFailedError()
	}

	ok, legacy := password.Verify(plain, user.PasswordHash.String)
	if !ok {
		slog.Info("login failed",
			slog.String("user_id", user.ID),
			slog.String("method", "email"),
		)
		return nil, nil, model.NewLoginFailedError()
	}

	if legacy {
		s.migratePasswordHash(ctx, user.ID, plain)
	}

	session, err := s.sessions.Create(ctx, user.ID, clientIP, userAgent)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("method", "email"),
	)

	return user, session, nil
}

// LoginGoogle はGoogle発行のIDトークンを検証してログインし、セッションを発行する。
// 未登録メールの場合はパスワードなしのユーザーを自動作成する。
// 登録済みの場合はIDトークンのプロフィール（名前・アイコン）を同期する。
func (s *Service) LoginGoogle(ctx context.Context, rawToken, clientIP, userAgent string) (*model.User, *model.Session, error) {
	ident, err := s.verifier.VerifyToken(ctx, rawToken)
	if err != nil {
		// 検証失敗の内訳はverifier側でログ済み。クライアントには一律のログイン失敗を返す。
		return nil, nil, model.NewLoginFailedError()
	}

	user, err := s.users.FindByEmail(ctx, ident.Email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}

	name := s.sanitizer.Sanitize(ident.Name)

	if user == nil {
		user = model.NewFederatedUser(uuid.New().String(), ident.Email, name, ident.Picture)
		if err := s.users.Create(ctx, user); err != nil {
			if err == repository.ErrDuplicateEmail {
				// 同時ログインの競合: もう一方が作成した行を読み直す
				user, err = s.users.FindByEmail(ctx, ident.Email)
				if err != nil || user == nil {
					return nil, nil, fmt.Errorf("failed to reload user after duplicate: %w", err)
				}
			} else {
				return nil, nil, fmt.Errorf("failed to create user: %w", err)
			}
		} else {
			slog.Info("new user registered",
				slog.String("user_id", user.ID),
				slog.String("method", "google"),
			)
		}
	} else if user.Name != name || user.Picture != ident.Picture {
		if err := s.users.UpdateProfile(ctx, user.ID, name, ident.Picture); err != nil {
			slog.Warn("failed to sync profile",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		} else {
			user.Name = name
			user.Picture = ident.Picture
		}
	}

	session, err := s.sessions.Create(ctx, user.ID, clientIP, userAgent)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("method", "google"),
	)

	return user, session, nil
}

// CurrentUser はユーザーIDからユーザー情報を取得する。
func (s *Service) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUnauthenticatedError()
	}
	return user, nil
}

// Logout はセッションを失効させる。冪等であり、常に成功として扱える。
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Revoke(ctx, token); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	slog.Info("user logged out")
	return nil
}

// migratePasswordHash は旧方式ハッシュを新方式に書き換える。
// ベストエフォートであり、失敗してもログインは成功する（次回ログインで再試行される）。
func (s *Service) migratePasswordHash(ctx context.Context, userID, plain string) {
	hash, err := password.Hash(plain)
	if err != nil {
		slog.Warn("failed to rehash legacy password",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		slog.Warn("failed to migrate legacy password hash",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return
	}
	slog.Info("legacy password hash migrated", slog.String("user_id", userID))
}
