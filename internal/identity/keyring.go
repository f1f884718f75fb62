package identity

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"time"
)

const (
	defaultCertsURL      = "https://www.googleapis.com/oauth2/v3/certs"
	defaultCacheTTL      = 1 * time.Hour
	defaultFetchTimeout  = 5 * time.Second
	maxCertsResponseSize = 1 << 20 // 1MiB
)

// KeyRingConfig はKeyRingの設定。
type KeyRingConfig struct {
	// CertsURL は公開鍵セット取得エンドポイント。テスト用にオーバーライド可能。
	CertsURL string
	// TTL はキャッシュ全体の有効期間。経過後は鍵セットを丸ごと取り直す。
	TTL time.Duration
	// FetchTimeout は鍵取得の打ち切り時間。タイムアウトは鍵未検出として扱い、
	// リクエストを無期限に待たせない。
	FetchTimeout time.Duration
	// Client は鍵取得に使用するHTTPクライアント。
	// 未指定の場合はhttp.DefaultClientを使用する。本番ではSSRF防止付き
	// クライアントを渡す。テスト用にオーバーライド可能。
	Client *http.Client
}

// KeyRing はIdPの公開署名鍵をkidで引けるプロセス全域キャッシュ。
//
// キャッシュはエントリ単位ではなくTTL経過時に丸ごとクリアして再取得する。
// これによりIdP側の鍵ローテーションに追従できる。
// 水平スケール時は各インスタンスが独立したキャッシュを持ち、
// インスタンス間の一貫性保証はない（ベストエフォート）。
type KeyRing struct {
	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	lastFetch time.Time

	certsURL     string
	ttl          time.Duration
	fetchTimeout time.Duration
	client       *http.Client
}

// NewKeyRing はKeyRingを生成する。ゼロ値のフィールドにはデフォルトが適用される。
func NewKeyRing(cfg KeyRingConfig) *KeyRing {
	if cfg.CertsURL == "" {
		cfg.CertsURL = defaultCertsURL
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultCacheTTL
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	return &KeyRing{
		certsURL:     cfg.CertsURL,
		ttl:          cfg.TTL,
		fetchTimeout: cfg.FetchTimeout,
		client:       cfg.Client,
	}
}

// SetClient は鍵取得に使用するHTTPクライアントを設定する。
// NewKeyRing後・初回ResolveKey前に呼ぶこと。
func (kr *KeyRing) SetClient(client *http.Client) {
	kr.mu.Lock()
	defer kr.mu.Unlock()
	kr.client = client
}

// ResolveKey はkidに対応する検証鍵を返す。
//
// キャッシュミスまたはTTL経過時は鍵セットを丸ごと再取得する。
// 再取得後もkidが見つからない場合、および取得自体の失敗は
// ErrKeyNotFoundとして返す（フェイルクローズ、同一呼び出し内での再試行はしない）。
func (kr *KeyRing) ResolveKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if kid == "" {
		return nil, fmt.Errorf("%w: empty kid", ErrKeyNotFound)
	}

	kr.mu.Lock()
	defer kr.mu.Unlock()

	refreshed := false
	if kr.keys == nil || time.Since(kr.lastFetch) >= kr.ttl {
		if err := kr.refreshLocked(ctx); err != nil {
			slog.Error("failed to refresh key ring",
				slog.String("certs_url", kr.certsURL),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("%w: refresh failed", ErrKeyNotFound)
		}
		refreshed = true
	}

	if key, ok := kr.keys[kid]; ok {
		return key, nil
	}

	// TTL内のミス: 鍵ローテーション直後の可能性があるため1回だけ再取得する
	if !refreshed {
		if err := kr.refreshLocked(ctx); err != nil {
			slog.Error("failed to refresh key ring",
				slog.String("certs_url", kr.certsURL),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("%w: refresh failed", ErrKeyNotFound)
		}
		if key, ok := kr.keys[kid]; ok {
			return key, nil
		}
	}

	return nil, fmt.Errorf("%w: kid=%q", ErrKeyNotFound, kid)
}

// jwk はIdPの鍵セットエンドポイントが返す公開鍵オブジェクト。
type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// jwkSet は鍵セットエンドポイントのレスポンス。
type jwkSet struct {
	Keys []jwk `json:"keys"`
}

// refreshLocked はキャッシュを丸ごとクリアして鍵セットを再取得する。
// 呼び出し側がkr.muを保持していること。
func (kr *KeyRing) refreshLocked(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, kr.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, kr.certsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create certs request: %w", err)
	}

	client := kr.client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("certs request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCertsResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read certs response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("certs fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var set jwkSet
	if err := json.Unmarshal(body, &set); err != nil {
		return fmt.Errorf("failed to parse certs response: %w", err)
	}
	if len(set.Keys) == 0 {
		return fmt.Errorf("empty key set in certs response")
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		pub, err := importRSAKey(k)
		if err != nil {
			slog.Warn("skipping unparsable key in certs response",
				slog.String("kid", k.Kid),
				slog.String("error", err.Error()),
			)
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return fmt.Errorf("no importable RSA keys in certs response")
	}

	// 丸ごと差し替え（古いエントリを個別に残さない）
	kr.keys = keys
	kr.lastFetch = time.Now()

	slog.Info("key ring refreshed",
		slog.Int("key_count", len(keys)),
	)
	return nil
}

// importRSAKey はJWKのn/e（base64url、ビッグエンディアン）からRSA公開鍵を構築する。
func importRSAKey(k jwk) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("invalid modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent: %w", err)
	}
	if len(nBytes) == 0 || len(eBytes) == 0 {
		return nil, fmt.Errorf("empty modulus or exponent")
	}

	e := new(big.Int).SetBytes(eBytes)
	if !e.IsInt64() || e.Int64() <= 1 {
		return nil, fmt.Errorf("invalid exponent value")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(e.Int64()),
	}, nil
}
