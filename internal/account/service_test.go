package account

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/shopgate/internal/identity"
	"github.com/hitoshi/shopgate/internal/model"
	"github.com/hitoshi/shopgate/internal/password"
	"github.com/hitoshi/shopgate/internal/repository"
)

// mockUserRepo はテスト用のユーザーリポジトリモック
type mockUserRepo struct {
	findByIDFunc           func(ctx context.Context, id string) (*model.User, error)
	findByEmailFunc        func(ctx context.Context, email string) (*model.User, error)
	createFunc             func(ctx context.Context, user *model.User) error
	updatePasswordHashFunc func(ctx context.Context, id, passwordHash string) error
	updateProfileFunc      func(ctx context.Context, id, name, picture string) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFunc != nil {
		return m.findByEmailFunc(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	if m.updatePasswordHashFunc != nil {
		return m.updatePasswordHashFunc(ctx, id, passwordHash)
	}
	return nil
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, id, name, picture string) error {
	if m.updateProfileFunc != nil {
		return m.updateProfileFunc(ctx, id, name, picture)
	}
	return nil
}

var _ repository.UserRepository = (*mockUserRepo)(nil)

// mockSessionIssuer はテスト用のセッション発行モック
type mockSessionIssuer struct {
	createFunc func(ctx context.Context, userID, clientIP, userAgent string) (*model.Session, error)
	revokeFunc func(ctx context.Context, token string) error
}

func (m *mockSessionIssuer) Create(ctx context.Context, userID, clientIP, userAgent string) (*model.Session, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, userID, clientIP, userAgent)
	}
	return &model.Session{
		ID:        "session-1",
		UserID:    userID,
		Token:     "token-1",
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}, nil
}

func (m *mockSessionIssuer) Revoke(ctx context.Context, token string) error {
	if m.revokeFunc != nil {
		return m.revokeFunc(ctx, token)
	}
	return nil
}

var _ SessionIssuer = (*mockSessionIssuer)(nil)

// mockVerifier はテスト用のIDトークン検証モック
type mockVerifier struct {
	verifyFunc func(ctx context.Context, raw string) (*identity.Identity, error)
}

func (m *mockVerifier) VerifyToken(ctx context.Context, raw string) (*identity.Identity, error) {
	if m.verifyFunc != nil {
		return m.verifyFunc(ctx, raw)
	}
	return nil, errors.New("not configured")
}

var _ TokenVerifier = (*mockVerifier)(nil)

const strongPassword = "Str0ng#Pass"

func TestService_SignupEmail(t *testing.T) {
	var created *model.User
	users := &mockUserRepo{
		createFunc: func(_ context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	svc := NewService(users, &mockSessionIssuer{}, &mockVerifier{})

	user, session, err := svc.SignupEmail(context.Background(), "new@example.com", "花子", strongPassword, "ip", "ua")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created == nil {
		t.Fatal("expected user to be persisted")
	}
	if user.Email != "new@example.com" {
		t.Errorf("unexpected email: %s", user.Email)
	}
	if !user.PasswordHash.Valid || !strings.Contains(user.PasswordHash.String, ":") {
		t.Error("expected salted password hash to be stored")
	}
	if user.PasswordHash.String == strongPassword {
		t.Error("plaintext password must not be stored")
	}
	if session == nil || session.UserID != user.ID {
		t.Error("expected session bound to the new user")
	}
}

func TestService_SignupEmail_Validation(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockSessionIssuer{}, &mockVerifier{})

	tests := []struct {
		name     string
		email    string
		userName string
		plain    string
		wantCode string
	}{
		{"メールアドレスなし", "", "花子", strongPassword, model.ErrCodeInvalidRequest},
		{"メールアドレス形式不正", "not-an-email", "花子", strongPassword, model.ErrCodeInvalidRequest},
		{"名前なし", "a@example.com", "", strongPassword, model.ErrCodeInvalidRequest},
		{"弱いパスワード", "a@example.com", "花子", "short", model.ErrCodeWeakPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.SignupEmail(context.Background(), tt.email, tt.userName, tt.plain, "ip", "ua")
			apiErr := &model.APIError{}
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, apiErr.Code)
			}
		})
	}
}

// 弱いパスワードのエラーは違反ルールをすべて列挙する
func TestService_SignupEmail_WeakPasswordListsAllViolations(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockSessionIssuer{}, &mockVerifier{})

	_, _, err := svc.SignupEmail(context.Background(), "a@example.com", "花子", "short", "ip", "ua")
	apiErr := &model.APIError{}
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	// "short" は長さ・大文字・数字・記号の4ルールに違反する
	if n := strings.Count(apiErr.Message, "、") + 1; n != 4 {
		t.Errorf("expected 4 violations in message, got %d: %s", n, apiErr.Message)
	}
}

func TestService_SignupEmail_SanitizesName(t *testing.T) {
	var created *model.User
	users := &mockUserRepo{
		createFunc: func(_ context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	svc := NewService(users, &mockSessionIssuer{}, &mockVerifier{})

	_, _, err := svc.SignupEmail(context.Background(), "a@example.com", `<script>alert(1)</script>花子`, strongPassword, "ip", "ua")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(created.Name, "<script>") {
		t.Errorf("expected script tags to be stripped, got %q", created.Name)
	}
}

func TestService_SignupEmail_DuplicateEmail(t *testing.T) {
	users := &mockUserRepo{
		findByEmailFunc: func(_ context.Context, _ string) (*model.User, error) {
			return &model.User{ID: "existing"}, nil
		},
	}
	svc := NewService(users, &mockSessionIssuer{}, &mockVerifier{})

	_, _, err := svc.SignupEmail(context.Background(), "taken@example.com", "花子", strongPassword, "ip", "ua")
	apiErr := &model.APIError{}
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDuplicateUser {
		t.Fatalf("expected duplicate user error, got %v", err)
	}
}

// 事前チェック通過後のUNIQUE制約違反（同時登録の競合）も重複エラーに正規化される
func TestService_SignupEmail_DuplicateRace(t *testing.T) {
	users := &mockUserRepo{
		createFunc: func(_ context.Context, _ *model.User) error {
			return repository.ErrDuplicateEmail
		},
	}
	svc := NewService(users, &mockSessionIssuer{}, &mockVerifier{})

	_, _, err := svc.SignupEmail(context.Background(), "raced@example.com", "花子", strongPassword, "ip", "ua")
	apiErr := &model.APIError{}
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDuplicateUser {
		t.Fatalf("expected duplicate user error, got %v", err)
	}
}

func TestService_LoginEmail(t *testing.T) {
	hash, err := password.Hash(strongPassword)
	if err != nil {
		t.Fatal(err)
	}
	stored := model.NewEmailUser("user-1", "a@example.com", "花子", hash)
	users := &mockUserRepo{
		findByEmailFunc: func(_ context.Context, email string) (*model.User, error) {
			if email == "a@example.com" {
				return stored, nil
			}
			return nil, nil
		},
	}
	svc := NewService(users, &mockSessionIssuer{}, &mockVerifier{})

	user, session, err := svc.LoginEmail(context.Background(), "a@example.com", strongPassword, "ip", "ua")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("unexpected user: %s", user.ID)
	}
	if session == nil {
		t.Fatal("expected session")
	}
}

// 未登録メール・パスワード不保持・不一致はすべて同一エラー
func TestService_LoginEmail_FailuresAreIndistinguishable(t *testing.T) {
	hash, err := password.Hash(strongPassword)
	if err != nil {
		t.Fatal(err)
	}
	users := &mockUserRepo{
		findByEmailFunc: func(_ context.Context, email string) (*model.User, error) {
			switch email {
			case "haspass@example.com":
				return model.NewEmailUser("user-1", email, "花子", hash), nil
			case "federated@example.com":
				return model.NewFederatedUser("user-2", email, "太郎", ""), nil
			}
			return nil, nil
		},
	}
	svc := NewService(users, &mockSessionIssuer{}, &mockVerifier{})

	cases := []struct {
		name  string
		email string
		plain string
	}{
		{"未登録メール", "unknown@example.com", strongPassword},
		{"パスワード未設定ユーザー", "federated@example.com", strongPassword},
		{"パスワード不一致", "haspass@example.com", "Wr0ng#Pass!"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.LoginEmail(context.Background(), tt.email, tt.plain, "ip", "ua")
			apiErr := &model.APIError{}
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeLoginFailed {
				t.Fatalf("expected generic login failure, got %v", err)
			}
		})
	}
}

// 旧方式ハッシュでのログイン成功時に新方式へ書き換えられる
func TestService_LoginEmail_MigratesLegacyHash(t *testing.T) {
	legacy := password.LegacyHash(strongPassword)
	stored := model.NewEmailUser("user-1", "a@example.com", "花子", legacy)
	migrated := ""
	users := &mockUserRepo{
		findByEmailFunc: func(_ context.Context, _ string) (*model.User, error) {
			return stored, nil
		},
		updatePasswordHashFunc: func(_ context.Context, id, passwordHash string) error {
			if id != "user-1" {
				t.Errorf("unexpected user id: %s", id)
			}
			migrated = passwordHash
			return nil
		},
	}
	svc := NewService(users, &mockSessionIssuer{}, &mockVerifier{})

	_, _, err := svc.LoginEmail(context.Background(), "a@example.com", strongPassword, "ip", "ua")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if migrated == "" {
		t.Fatal("expected legacy hash to be migrated")
	}
	if !strings.Contains(migrated, ":") {
		t.Error("expected migrated hash in salted format")
	}
	if ok, legacyFlag := password.Verify(strongPassword, migrated); !ok || legacyFlag {
		t.Error("expected migrated hash to verify as salted format")
	}
}

// ハッシュ書き換えの失敗はログイン成功を妨げない
func TestService_LoginEmail_MigrationFailureIsNonFatal(t *testing.T) {
	stored := model.NewEmailUser("user-1", "a@example.com", "花子", password.LegacyHash(strongPassword))
	users := &mockUserRepo{
		findByEmailFunc: func(_ context.Context, _ string) (*model.User, error) {
			return stored, nil
		},
		updatePasswordHashFunc: func(_ context.Context, _, _ string) error {
			return errors.New("update failed")
		},
	}
	svc := NewService(users, &mockSessionIssuer{}, &mockVerifier{})

	_, session, err := svc.LoginEmail(context.Background(), "a@example.com", strongPassword, "ip", "ua")
	if err != nil {
		t.Fatalf("expected login to succeed despite migration failure, got: %v", err)
	}
	if session == nil {
		t.Fatal("expected session")
	}
}

// ストア障害はログイン失敗エラーに偽装されない
func TestService_LoginEmail_StoreError(t *testing.T) {
	users := &mockUserRepo{
		findByEmailFunc: func(_ context.Context, _ string) (*model.User, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := NewService(users, &mockSessionIssuer{}, &mockVerifier{})

	_, _, err := svc.LoginEmail(context.Background(), "a@example.com", strongPassword, "ip", "ua")
	if err == nil {
		t.Fatal("expected error")
	}
	apiErr := &model.APIError{}
	if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeLoginFailed {
		t.Error("store failure must not be reported as login failure")
	}
}

func TestService_LoginGoogle_NewUser(t *testing.T) {
	var created *model.User
	users := &mockUserRepo{
		createFunc: func(_ context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	verifier := &mockVerifier{
		verifyFunc: func(_ context.Context, raw string) (*identity.Identity, error) {
			return &identity.Identity{
				Email:   "g@example.com",
				Name:    "Google User",
				Picture: "https://example.com/p.png",
			}, nil
		},
	}
	svc := NewService(users, &mockSessionIssuer{}, verifier)

	user, session, err := svc.LoginGoogle(context.Background(), "raw-id-token", "ip", "ua")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created == nil {
		t.Fatal("expected user to be auto-created")
	}
	if created.PasswordHash.Valid {
		t.Error("federated user must not have a password hash")
	}
	if user.Email != "g@example.com" {
		t.Errorf("unexpected email: %s", user.Email)
	}
	if session == nil {
		t.Fatal("expected session")
	}
}

func TestService_LoginGoogle_ExistingUserProfileSync(t *testing.T) {
	stored := model.NewFederatedUser("user-1", "g@example.com", "Old Name", "old.png")
	synced := false
	users := &mockUserRepo{
		findByEmailFunc: func(_ context.Context, _ string) (*model.User, error) {
			return stored, nil
		},
		updateProfileFunc: func(_ context.Context, id, name, picture string) error {
			if name != "New Name" || picture != "new.png" {
				t.Errorf("unexpected sync values: %s %s", name, picture)
			}
			synced = true
			return nil
		},
	}
	verifier := &mockVerifier{
		verifyFunc: func(_ context.Context, _ string) (*identity.Identity, error) {
			return &identity.Identity{Email: "g@example.com", Name: "New Name", Picture: "new.png"}, nil
		},
	}
	svc := NewService(users, &mockSessionIssuer{}, verifier)

	user, _, err := svc.LoginGoogle(context.Background(), "raw-id-token", "ip", "ua")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !synced {
		t.Error("expected profile to be synced")
	}
	if user.Name != "New Name" {
		t.Errorf("expected in-memory user to reflect sync, got %s", user.Name)
	}
}

// トークン検証失敗は汎用のログイン失敗として返す
func TestService_LoginGoogle_VerificationFailure(t *testing.T) {
	verifier := &mockVerifier{
		verifyFunc: func(_ context.Context, _ string) (*identity.Identity, error) {
			return nil, identity.ErrVerificationFailed
		},
	}
	svc := NewService(&mockUserRepo{}, &mockSessionIssuer{}, verifier)

	_, _, err := svc.LoginGoogle(context.Background(), "bad-token", "ip", "ua")
	apiErr := &model.APIError{}
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeLoginFailed {
		t.Fatalf("expected generic login failure, got %v", err)
	}
}

// 同時初回ログインの競合ではもう一方が作成した行で続行する
func TestService_LoginGoogle_DuplicateRace(t *testing.T) {
	winner := model.NewFederatedUser("winner", "g@example.com", "Google User", "")
	firstLookup := true
	users := &mockUserRepo{
		findByEmailFunc: func(_ context.Context, _ string) (*model.User, error) {
			if firstLookup {
				firstLookup = false
				return nil, nil
			}
			return winner, nil
		},
		createFunc: func(_ context.Context, _ *model.User) error {
			return repository.ErrDuplicateEmail
		},
	}
	verifier := &mockVerifier{
		verifyFunc: func(_ context.Context, _ string) (*identity.Identity, error) {
			return &identity.Identity{Email: "g@example.com", Name: "Google User"}, nil
		},
	}
	svc := NewService(users, &mockSessionIssuer{}, verifier)

	user, _, err := svc.LoginGoogle(context.Background(), "raw-id-token", "ip", "ua")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != "winner" {
		t.Errorf("expected to continue with the winning row, got %s", user.ID)
	}
}

func TestService_CurrentUser(t *testing.T) {
	users := &mockUserRepo{
		findByIDFunc: func(_ context.Context, id string) (*model.User, error) {
			if id == "user-1" {
				return &model.User{ID: "user-1", Email: "a@example.com"}, nil
			}
			return nil, nil
		},
	}
	svc := NewService(users, &mockSessionIssuer{}, &mockVerifier{})

	user, err := svc.CurrentUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Email != "a@example.com" {
		t.Errorf("unexpected user: %+v", user)
	}

	_, err = svc.CurrentUser(context.Background(), "ghost")
	apiErr := &model.APIError{}
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUnauthenticated {
		t.Fatalf("expected unauthenticated error, got %v", err)
	}
}

func TestService_Logout(t *testing.T) {
	revoked := ""
	sessions := &mockSessionIssuer{
		revokeFunc: func(_ context.Context, token string) error {
			revoked = token
			return nil
		},
	}
	svc := NewService(&mockUserRepo{}, sessions, &mockVerifier{})

	if err := svc.Logout(context.Background(), "tok-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if revoked != "tok-1" {
		t.Errorf("expected tok-1 to be revoked, got %q", revoked)
	}

	// トークンなしのログアウトも成功として扱う
	revoked = ""
	if err := svc.Logout(context.Background(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if revoked != "" {
		t.Error("expected no revoke call for empty token")
	}
}
