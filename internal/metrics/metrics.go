// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェアやサービス層から利用する。
type MetricsCollector interface {
	RecordLoginSuccess(method string)
	RecordLoginFailure(method string)
	RecordTokenVerificationFailure()
	RecordFingerprintMismatch()
	RecordRateLimitRejection(endpoint string)
	RecordSessionCreated()
	RecordSessionRevoked(reason string)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loginSuccess        *prometheus.CounterVec
	loginFail           *prometheus.CounterVec
	tokenVerifyFail     prometheus.Counter
	fingerprintMismatch prometheus.Counter
	rateLimitRejection  *prometheus.CounterVec
	sessionsCreated     prometheus.Counter
	sessionsRevoked     *prometheus.CounterVec
	httpStatus          *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shopgate_login_success_total",
			Help: "ログイン成功の合計数（認証方式別）",
		}, []string{"method"}),
		loginFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shopgate_login_fail_total",
			Help: "ログイン失敗の合計数（認証方式別）",
		}, []string{"method"}),
		tokenVerifyFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shopgate_token_verification_fail_total",
			Help: "IDトークン検証失敗の合計数",
		}),
		fingerprintMismatch: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shopgate_session_fingerprint_mismatch_total",
			Help: "セッションフィンガープリント不一致の合計数",
		}),
		rateLimitRejection: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shopgate_rate_limit_rejection_total",
			Help: "レート制限による拒否の合計数（エンドポイント別）",
		}, []string{"endpoint"}),
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shopgate_sessions_created_total",
			Help: "発行されたセッションの合計数",
		}),
		sessionsRevoked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shopgate_sessions_revoked_total",
			Help: "失効されたセッションの合計数（理由別）",
		}, []string{"reason"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shopgate_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.loginSuccess,
		c.loginFail,
		c.tokenVerifyFail,
		c.fingerprintMismatch,
		c.rateLimitRejection,
		c.sessionsCreated,
		c.sessionsRevoked,
		c.httpStatus,
	)

	return c
}

// RecordLoginSuccess はログイン成功を記録する。methodは"email"または"google"。
func (c *Collector) RecordLoginSuccess(method string) {
	c.loginSuccess.WithLabelValues(method).Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure(method string) {
	c.loginFail.WithLabelValues(method).Inc()
}

// RecordTokenVerificationFailure はIDトークン検証失敗を記録する。
func (c *Collector) RecordTokenVerificationFailure() {
	c.tokenVerifyFail.Inc()
}

// RecordFingerprintMismatch はフィンガープリント不一致を記録する。
func (c *Collector) RecordFingerprintMismatch() {
	c.fingerprintMismatch.Inc()
}

// RecordRateLimitRejection はレート制限による拒否を記録する。
func (c *Collector) RecordRateLimitRejection(endpoint string) {
	c.rateLimitRejection.WithLabelValues(endpoint).Inc()
}

// RecordSessionCreated はセッション発行を記録する。
func (c *Collector) RecordSessionCreated() {
	c.sessionsCreated.Inc()
}

// RecordSessionRevoked はセッション失効を記録する。reasonは"logout"または"fingerprint_mismatch"。
func (c *Collector) RecordSessionRevoked(reason string) {
	c.sessionsRevoked.WithLabelValues(reason).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// NopCollector は何も記録しないMetricsCollector実装。テスト用。
type NopCollector struct{}

func (NopCollector) RecordLoginSuccess(string)       {}
func (NopCollector) RecordLoginFailure(string)       {}
func (NopCollector) RecordTokenVerificationFailure() {}
func (NopCollector) RecordFingerprintMismatch()      {}
func (NopCollector) RecordRateLimitRejection(string) {}
func (NopCollector) RecordSessionCreated()           {}
func (NopCollector) RecordSessionRevoked(string)     {}
func (NopCollector) RecordHTTPStatus(int)            {}

var _ MetricsCollector = (*Collector)(nil)
var _ MetricsCollector = NopCollector{}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
