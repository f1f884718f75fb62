package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/shopgate/internal/middleware"
	"github.com/hitoshi/shopgate/internal/model"
)

// FavoritesServiceInterface はお気に入りハンドラーが必要とするサービスインターフェース。
type FavoritesServiceInterface interface {
	ListFavorites(ctx context.Context, userID string) ([]*model.UserFavorite, error)
	AddFavorite(ctx context.Context, userID, productID, title, url string) (*model.UserFavorite, error)
	RemoveFavorite(ctx context.Context, userID, id string) error
}

// FavoritesHandler はお気に入りのHTTPハンドラー。
type FavoritesHandler struct {
	service FavoritesServiceInterface
}

// NewFavoritesHandler はFavoritesHandlerを生成する。
func NewFavoritesHandler(service FavoritesServiceInterface) *FavoritesHandler {
	return &FavoritesHandler{service: service}
}

// favoriteResponse はお気に入りのレスポンス表現。
type favoriteResponse struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Title     string    `json:"title"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func newFavoriteResponse(fav *model.UserFavorite) favoriteResponse {
	return favoriteResponse{
		ID:        fav.ID,
		ProductID: fav.ProductID,
		Title:     fav.Title,
		URL:       fav.URL,
		CreatedAt: fav.CreatedAt,
	}
}

// List は現在のユーザーのお気に入り一覧を返す。
// GET /api/favorites
func (h *FavoritesHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	favs, err := h.service.ListFavorites(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	items := make([]favoriteResponse, 0, len(favs))
	for _, fav := range favs {
		items = append(items, newFavoriteResponse(fav))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"favorites": items,
	})
}

// Add は商品をお気に入りに追加する。
// POST /api/favorites
func (h *FavoritesHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req struct {
		ProductID string `json:"product_id"`
		Title     string `json:"title"`
		URL       string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("JSONの解析に失敗しました"))
		return
	}

	fav, err := h.service.AddFavorite(r.Context(), userID, req.ProductID, req.Title, req.URL)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newFavoriteResponse(fav))
}

// Remove はお気に入りを削除する。
// DELETE /api/favorites/{id}
func (h *FavoritesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.RemoveFavorite(r.Context(), userID, id); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
