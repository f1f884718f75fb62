// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/shopgate/internal/metrics"
	"github.com/hitoshi/shopgate/internal/middleware"
	"github.com/hitoshi/shopgate/internal/model"
)

// AccountServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AccountServiceInterface interface {
	SignupEmail(ctx context.Context, email, name, plain, clientIP, userAgent string) (*model.User, *model.Session, error)
	LoginEmail(ctx context.Context, email, plain, clientIP, userAgent string) (*model.User, *model.Session, error)
	LoginGoogle(ctx context.Context, rawToken, clientIP, userAgent string) (*model.User, *model.Session, error)
	CurrentUser(ctx context.Context, userID string) (*model.User, error)
	Logout(ctx context.Context, token string) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool // ローカル開発（非HTTPS）時のみfalseにする
	SessionMaxAge int  // セッションCookieの有効期間（秒）
}

// AuthHandler は登録・ログイン・セッション関連のHTTPハンドラー。
type AuthHandler struct {
	service   AccountServiceInterface
	config    AuthHandlerConfig
	collector metrics.MetricsCollector
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AccountServiceInterface, config AuthHandlerConfig, collector metrics.MetricsCollector) *AuthHandler {
	return &AuthHandler{
		service:   service,
		config:    config,
		collector: collector,
	}
}

// userResponse はユーザーの公開プロフィールのレスポンス表現。
type userResponse struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

func newUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:      user.ID,
		Email:   user.Email,
		Name:    user.Name,
		Picture: user.Picture,
	}
}

// SignupEmail はメールアドレスとパスワードで新規ユーザーを登録する。
// POST /api/signup/email
func (h *AuthHandler) SignupEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("JSONの解析に失敗しました"))
		return
	}

	user, session, err := h.service.SignupEmail(r.Context(),
		req.Email, req.Name, req.Password,
		middleware.ClientIP(r), r.UserAgent(),
	)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.collector.RecordLoginSuccess("email")
	h.collector.RecordSessionCreated()
	h.setSessionCookie(w, session.Token, h.config.SessionMaxAge)
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":  newUserResponse(user),
		"token": session.Token,
	})
}

// LoginEmail はメールアドレスとパスワードでログインする。
// POST /api/login/email
func (h *AuthHandler) LoginEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("JSONの解析に失敗しました"))
		return
	}
	if req.Email == "" || req.Password == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("emailとpasswordは必須です"))
		return
	}

	user, session, err := h.service.LoginEmail(r.Context(),
		req.Email, req.Password,
		middleware.ClientIP(r), r.UserAgent(),
	)
	if err != nil {
		h.collector.RecordLoginFailure("email")
		writeServiceError(w, err)
		return
	}

	h.collector.RecordLoginSuccess("email")
	h.collector.RecordSessionCreated()
	h.setSessionCookie(w, session.Token, h.config.SessionMaxAge)
	writeJSON(w, http.StatusOK, map[string]any{
		"user":  newUserResponse(user),
		"token": session.Token,
	})
}

// LoginGoogle はGoogle発行のIDトークンでログインする。
// POST /api/login/google
func (h *AuthHandler) LoginGoogle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("JSONの解析に失敗しました"))
		return
	}
	if req.Token == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("tokenは必須です"))
		return
	}

	user, session, err := h.service.LoginGoogle(r.Context(),
		req.Token,
		middleware.ClientIP(r), r.UserAgent(),
	)
	if err != nil {
		h.collector.RecordLoginFailure("google")
		h.collector.RecordTokenVerificationFailure()
		writeServiceError(w, err)
		return
	}

	h.collector.RecordLoginSuccess("google")
	h.collector.RecordSessionCreated()
	h.setSessionCookie(w, session.Token, h.config.SessionMaxAge)
	writeJSON(w, http.StatusOK, map[string]any{
		"user":  newUserResponse(user),
		"token": session.Token,
	})
}

// Status は現在のログインユーザー情報を返す。
// GET /api/status （セッションミドルウェア通過後）
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	user, err := h.service.CurrentUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user": newUserResponse(user),
	})
}

// Token はCookieに保存されたセッショントークンを返す。
// GET /api/token （セッションミドルウェア通過後）
//
// Bearerヘッダーで認証したリクエストには返さない。フロントエンドが
// Cookieベースのセッションからヘッダー送信用のトークンを取り出すための
// エンドポイントであり、Cookieの実在が前提になる。
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"token": cookie.Value,
	})
}

// Logout はセッションを失効させ、Cookieをクリアする。
// POST /api/logout
//
// トークン不在・未知のトークンでも常に200を返す（冪等）。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.ExtractSessionToken(r)
	if token != "" {
		if err := h.service.Logout(r.Context(), token); err != nil {
			// 失効失敗でもCookieはクリアする
			slog.Error("failed to logout", slog.String("error", err.Error()))
		} else {
			h.collector.RecordSessionRevoked("logout")
		}
	}

	h.setSessionCookie(w, "", -1)
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "logged_out",
	})
}

// setSessionCookie はセッションCookieを設定する。maxAgeに負値を渡すと削除になる。
// SameSite=Noneはクロスサイトのストアフロントからのcredentials送信に必要で、
// Secureとの併用がブラウザ側で強制される。CookieSecure=falseは
// 非HTTPSのローカル開発向けで、本番設定のデフォルトはtrue。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteNoneMode,
	})
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeServiceError はサービス層のエラーをHTTPステータスに対応付けて書き込む。
// APIError以外のエラーはストア障害として扱い、詳細はログにのみ残す。
func writeServiceError(w http.ResponseWriter, err error) {
	apiErr := &model.APIError{}
	if !errors.As(err, &apiErr) {
		slog.Error("internal error", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	status := http.StatusInternalServerError
	switch apiErr.Code {
	case model.ErrCodeInvalidRequest, model.ErrCodeWeakPassword:
		status = http.StatusBadRequest
	case model.ErrCodeLoginFailed, model.ErrCodeUnauthenticated, model.ErrCodeSessionViolation:
		status = http.StatusUnauthorized
	case model.ErrCodeFavoriteNotFound:
		status = http.StatusNotFound
	case model.ErrCodeDuplicateUser:
		status = http.StatusConflict
	case model.ErrCodeRateLimited:
		status = http.StatusTooManyRequests
	}
	middleware.WriteErrorResponse(w, status, apiErr)
}
