package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/shopgate/internal/middleware"
	"github.com/hitoshi/shopgate/internal/model"
)

// PreferencesServiceInterface は設定ハンドラーが必要とするサービスインターフェース。
type PreferencesServiceInterface interface {
	GetPreferences(ctx context.Context, userID string) (*model.UserPreferences, error)
	UpdatePreferences(ctx context.Context, userID, currency, locale string, newsletter bool) (*model.UserPreferences, error)
}

// PreferencesHandler はユーザー設定のHTTPハンドラー。
type PreferencesHandler struct {
	service PreferencesServiceInterface
}

// NewPreferencesHandler はPreferencesHandlerを生成する。
func NewPreferencesHandler(service PreferencesServiceInterface) *PreferencesHandler {
	return &PreferencesHandler{service: service}
}

// preferencesResponse はユーザー設定のレスポンス表現。
type preferencesResponse struct {
	Currency   string `json:"currency"`
	Locale     string `json:"locale"`
	Newsletter bool   `json:"newsletter"`
}

// Get は現在のユーザーの設定を返す。
// GET /api/preferences
func (h *PreferencesHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	prefs, err := h.service.GetPreferences(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, preferencesResponse{
		Currency:   prefs.Currency,
		Locale:     prefs.Locale,
		Newsletter: prefs.Newsletter,
	})
}

// Update は現在のユーザーの設定を保存する。
// PUT /api/preferences
func (h *PreferencesHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req struct {
		Currency   string `json:"currency"`
		Locale     string `json:"locale"`
		Newsletter bool   `json:"newsletter"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("JSONの解析に失敗しました"))
		return
	}

	prefs, err := h.service.UpdatePreferences(r.Context(), userID, req.Currency, req.Locale, req.Newsletter)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, preferencesResponse{
		Currency:   prefs.Currency,
		Locale:     prefs.Locale,
		Newsletter: prefs.Newsletter,
	})
}
