// Package monitor はリレーサーバーのPrometheusメトリクスを提供する。
package monitor

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 証明検証の結果ラベル。
const (
	VerificationVerified = "verified"
	VerificationRejected = "rejected"
	VerificationError    = "error"
)

// routeUnmatched はどのルートにも一致しなかったリクエストのrouteラベル。
const routeUnmatched = "unmatched"

// Metrics はサーバー単位のメトリクス。
// グローバルレジストリを使わないため、同一プロセスで複数生成できる。
type Metrics struct {
	registry      *prometheus.Registry
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	verifications *prometheus.CounterVec
}

// New はserverNameをconstラベルに持つメトリクスを生成し、専用のレジストリに登録する。
func New(serverName string) *Metrics {
	if serverName == "" {
		panic("server name must be provided")
	}
	labels := prometheus.Labels{"server": serverName}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "relay_http_requests_total",
			Help:        "Total number of HTTP requests handled by the relay",
			ConstLabels: labels,
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "relay_http_request_duration_seconds",
			Help:        "Latency of HTTP requests handled by the relay, including upstream calls",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "route"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "relay_proof_verifications_total",
			Help:        "Total number of WorldID proof verifications by result",
			ConstLabels: labels,
		}, []string{"result"}),
	}

	m.registry.MustRegister(m.requests, m.duration, m.verifications)
	return m
}

// TrackMetrics はリクエスト数とレイテンシを記録するGinミドルウェアを返す。
func (m *Metrics) TrackMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = routeUnmatched
		}
		method := c.Request.Method
		m.requests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// ObserveVerification は証明検証の結果を記録する。
func (m *Metrics) ObserveVerification(result string) {
	m.verifications.WithLabelValues(result).Inc()
}

// Handler は/metrics用のHTTPハンドラを返す。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
