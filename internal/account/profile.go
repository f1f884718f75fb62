package account

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/shopgate/internal/model"
	"github.com/hitoshi/shopgate/internal/repository"
	"github.com/hitoshi/shopgate/internal/security"
)

// 設定が未保存のユーザーに返す既定値
const (
	DefaultCurrency = "JPY"
	DefaultLocale   = "ja"
)

// サポートする通貨と表示言語
var (
	supportedCurrencies = map[string]bool{"JPY": true, "USD": true, "EUR": true}
	supportedLocales    = map[string]bool{"ja": true, "en": true}
)

// ProfileService はユーザー設定とお気に入りのビジネスロジックを提供する。
type ProfileService struct {
	prefs     repository.PreferencesRepository
	favorites repository.FavoriteRepository
	sanitizer security.ProfileSanitizerService
}

// NewProfileService はProfileServiceを生成する。
func NewProfileService(prefs repository.PreferencesRepository, favorites repository.FavoriteRepository) *ProfileService {
	return &ProfileService{
		prefs:     prefs,
		favorites: favorites,
		sanitizer: security.NewProfileSanitizer(),
	}
}

// GetPreferences は指定ユーザーの設定を取得する。未保存の場合は既定値を返す。
func (s *ProfileService) GetPreferences(ctx context.Context, userID string) (*model.UserPreferences, error) {
	prefs, err := s.prefs.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}
	if prefs == nil {
		return &model.UserPreferences{
			UserID:   userID,
			Currency: DefaultCurrency,
			Locale:   DefaultLocale,
		}, nil
	}
	return prefs, nil
}

// UpdatePreferences は指定ユーザーの設定を保存する。
func (s *ProfileService) UpdatePreferences(ctx context.Context, userID, currency, locale string, newsletter bool) (*model.UserPreferences, error) {
	if !supportedCurrencies[currency] {
		return nil, model.NewInvalidRequestError(fmt.Sprintf("未対応の通貨です: %s", currency))
	}
	if !supportedLocales[locale] {
		return nil, model.NewInvalidRequestError(fmt.Sprintf("未対応の言語です: %s", locale))
	}

	prefs := &model.UserPreferences{
		UserID:     userID,
		Currency:   currency,
		Locale:     locale,
		Newsletter: newsletter,
		UpdatedAt:  time.Now(),
	}
	if err := s.prefs.Upsert(ctx, prefs); err != nil {
		return nil, fmt.Errorf("failed to save preferences: %w", err)
	}
	return prefs, nil
}

// ListFavorites は指定ユーザーのお気に入りを新しい順で返す。
func (s *ProfileService) ListFavorites(ctx context.Context, userID string) ([]*model.UserFavorite, error) {
	favs, err := s.favorites.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	return favs, nil
}

// AddFavorite は商品をお気に入りに追加する。
// 同一商品の重複追加はタイトル/URLの更新として成功する。
func (s *ProfileService) AddFavorite(ctx context.Context, userID, productID, title, url string) (*model.UserFavorite, error) {
	if productID == "" {
		return nil, model.NewInvalidRequestError("商品IDは必須です")
	}
	if title == "" {
		return nil, model.NewInvalidRequestError("商品タイトルは必須です")
	}

	fav := &model.UserFavorite{
		ID:        uuid.New().String(),
		UserID:    userID,
		ProductID: productID,
		Title:     s.sanitizer.Sanitize(title),
		URL:       url,
		CreatedAt: time.Now(),
	}
	if err := s.favorites.Create(ctx, fav); err != nil {
		return nil, fmt.Errorf("failed to add favorite: %w", err)
	}
	return fav, nil
}

// RemoveFavorite はお気に入りを削除する。
// 他ユーザーの行は削除対象にならず、未検出として扱われる。
func (s *ProfileService) RemoveFavorite(ctx context.Context, userID, id string) error {
	deleted, err := s.favorites.Delete(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	if !deleted {
		return model.NewFavoriteNotFoundError(id)
	}
	return nil
}
