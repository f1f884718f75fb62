// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/hitoshi/shopgate/internal/metrics"
	"github.com/hitoshi/shopgate/internal/model"
)

// SessionCookieName はセッショントークンを保持するCookieの名前。
const SessionCookieName = "session_token"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	userIDContextKey       = contextKey("user_id")
	sessionTokenContextKey = contextKey("session_token")
)

// SessionValidator はセッションの検証に必要なインターフェース。
// session.Managerの部分集合として定義する。
type SessionValidator interface {
	Resolve(ctx context.Context, token string) (*model.Session, error)
	CheckFingerprint(session *model.Session, clientIP, userAgent string) bool
	Touch(ctx context.Context, token string)
	Revoke(ctx context.Context, token string) error
}

// NewSessionMiddleware はリクエストからセッショントークンを抽出して検証する
// ミドルウェアを返す。
//
// トークンはAuthorization: Bearerヘッダーを優先し、なければsession_token
// Cookieから読む。検証済みユーザーIDとトークンをリクエストコンテキストに注入する。
//
// トークン不在・未知・期限切れは401。フィンガープリント不一致はセッションを
// 強制失効させたうえで401。ストア障害は認証失敗に偽装せず500を返す。
func NewSessionMiddleware(sessions SessionValidator, collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractSessionToken(r)
			if token == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			session, err := sessions.Resolve(r.Context(), token)
			if err != nil {
				slog.Error("failed to resolve session",
					slog.String("error", err.Error()),
				)
				WriteErrorResponse(w, http.StatusInternalServerError, model.NewStoreUnavailableError())
				return
			}
			if session == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			clientIP := ClientIP(r)
			userAgent := r.UserAgent()
			if !sessions.CheckFingerprint(session, clientIP, userAgent) {
				slog.Warn("session fingerprint mismatch",
					slog.String("user_id", session.UserID),
					slog.String("client_ip", clientIP),
				)
				collector.RecordFingerprintMismatch()
				if err := sessions.Revoke(r.Context(), token); err != nil {
					slog.Error("failed to revoke hijack-suspected session",
						slog.String("error", err.Error()),
					)
				} else {
					collector.RecordSessionRevoked("fingerprint_mismatch")
				}
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewSessionViolationError())
				return
			}

			sessions.Touch(r.Context(), token)

			ctx := context.WithValue(r.Context(), userIDContextKey, session.UserID)
			ctx = context.WithValue(ctx, sessionTokenContextKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExtractSessionToken はリクエストからセッショントークンを抽出する。
// Authorization: Bearerヘッダーを優先し、なければCookieから読む。
func ExtractSessionToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, found := strings.CutPrefix(auth, "Bearer "); found && token != "" {
			return token
		}
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// ClientIP はリクエスト元のIPアドレスを返す。
// chiのRealIPミドルウェアを通過済みであればRemoteAddrは実クライアントIPを指す。
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// SessionTokenFromContext はリクエストコンテキストからセッショントークンを取得する。
func SessionTokenFromContext(ctx context.Context) (string, error) {
	token, ok := ctx.Value(sessionTokenContextKey).(string)
	if !ok || token == "" {
		return "", fmt.Errorf("session token not found in context")
	}
	return token, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// ContextWithSessionToken はコンテキストにセッショントークンを注入する。
func ContextWithSessionToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, sessionTokenContextKey, token)
}
