// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ログイン結果のラベル値。
const (
	LoginSuccess     = "success"
	LoginUnavailable = "unavailable"
	LoginRejected    = "rejected"
	LoginFailed      = "failed"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェア、ハンドラー、ワーカーから利用する。
type MetricsCollector interface {
	RecordLogin(outcome string)
	RecordLoginLatency(duration time.Duration)
	RecordAuthzDenied(reason string)
	RecordHTTPStatus(statusCode int)
	RecordSessionsSwept(count int)
	SetOIDCReady(ready bool)
}

var _ MetricsCollector = (*Collector)(nil)

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	login         *prometheus.CounterVec
	loginLatency  prometheus.Histogram
	authzDenied   *prometheus.CounterVec
	httpStatus    *prometheus.CounterVec
	sessionsSwept prometheus.Counter
	oidcReady     prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		login: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labpractice_login_total",
			Help: "ログインコールバックの結果別件数",
		}, []string{"outcome"}),
		loginLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "labpractice_login_callback_seconds",
			Help:    "ログインコールバック処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		authzDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labpractice_authz_denied_total",
			Help: "認可拒否の理由別件数",
		}, []string{"reason"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labpractice_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		sessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "labpractice_sessions_swept_total",
			Help: "期限切れで削除されたセッションの合計数",
		}),
		oidcReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "labpractice_oidc_ready",
			Help: "IdPのディスカバリーが完了していれば1",
		}),
	}

	reg.MustRegister(
		c.login,
		c.loginLatency,
		c.authzDenied,
		c.httpStatus,
		c.sessionsSwept,
		c.oidcReady,
	)

	return c
}

// RecordLogin はログインコールバックの結果を記録する。
func (c *Collector) RecordLogin(outcome string) {
	c.login.WithLabelValues(outcome).Inc()
}

// RecordLoginLatency はログインコールバックのレイテンシを記録する。
func (c *Collector) RecordLoginLatency(duration time.Duration) {
	c.loginLatency.Observe(duration.Seconds())
}

// RecordAuthzDenied は認可拒否を記録する。
func (c *Collector) RecordAuthzDenied(reason string) {
	c.authzDenied.WithLabelValues(reason).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordSessionsSwept は掃除で削除されたセッション数を記録する。
func (c *Collector) RecordSessionsSwept(count int) {
	c.sessionsSwept.Add(float64(count))
}

// SetOIDCReady はIdPの準備状態を記録する。
func (c *Collector) SetOIDCReady(ready bool) {
	if ready {
		c.oidcReady.Set(1)
		return
	}
	c.oidcReady.Set(0)
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
