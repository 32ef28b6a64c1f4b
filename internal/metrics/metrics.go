// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とミドルウェアから利用する。
type MetricsCollector interface {
	RecordArticleCreated()
	RecordArticleUpdated()
	RecordArticleDeleted()
	RecordTagCreated()
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	articlesCreated prometheus.Counter
	articlesUpdated prometheus.Counter
	articlesDeleted prometheus.Counter
	tagsCreated     prometheus.Counter
	httpStatus      *prometheus.CounterVec
	requestLatency  prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		articlesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blogman_articles_created_total",
			Help: "作成された記事の合計数",
		}),
		articlesUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blogman_articles_updated_total",
			Help: "更新された記事の合計数",
		}),
		articlesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blogman_articles_deleted_total",
			Help: "削除された記事の合計数",
		}),
		tagsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blogman_tags_created_total",
			Help: "新規作成されたタグの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blogman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "blogman_request_latency_seconds",
			Help:    "HTTPリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.articlesCreated,
		c.articlesUpdated,
		c.articlesDeleted,
		c.tagsCreated,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordArticleCreated は記事の作成を記録する。
func (c *Collector) RecordArticleCreated() {
	c.articlesCreated.Inc()
}

// RecordArticleUpdated は記事の更新を記録する。
func (c *Collector) RecordArticleUpdated() {
	c.articlesUpdated.Inc()
}

// RecordArticleDeleted は記事の削除を記録する。
func (c *Collector) RecordArticleDeleted() {
	c.articlesDeleted.Inc()
}

// RecordTagCreated はタグの新規作成を記録する。
func (c *Collector) RecordTagCreated() {
	c.tagsCreated.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
