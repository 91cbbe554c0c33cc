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
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordTransition(transition string, outcome string)
	RecordImport(outcome string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordEntrySubmitted()
	RecordCleanup(target string, count int)
}

// Collector はPrometheusメトリクスを収集する実装。
// article.TransitionRecorderとimporter.Recorderの両方を満たす。
type Collector struct {
	transitions    *prometheus.CounterVec
	imports        *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
	entries        prometheus.Counter
	cleanups       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "midori_workflow_transitions_total",
			Help: "ワークフロー遷移の試行数（遷移種別・結果別）",
		}, []string{"transition", "outcome"}),
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "midori_import_items_total",
			Help: "RSS取り込みアイテムの処理数（結果別）",
		}, []string{"outcome"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "midori_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "midori_request_latency_seconds",
			Help:    "HTTPリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		entries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "midori_competition_entries_total",
			Help: "コンペ応募の合計数",
		}),
		cleanups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "midori_cleanup_removed_total",
			Help: "クリーンアップワーカーが除去した項目数（対象別）",
		}, []string{"target"}),
	}

	reg.MustRegister(
		c.transitions,
		c.imports,
		c.httpStatus,
		c.requestLatency,
		c.entries,
		c.cleanups,
	)

	return c
}

// RecordTransition はワークフロー遷移の試行を記録する。
// outcomeはsuccess, denied, conflict, not_foundのいずれか。
func (c *Collector) RecordTransition(transition string, outcome string) {
	c.transitions.WithLabelValues(transition, outcome).Inc()
}

// RecordImport はRSS取り込みアイテムの処理結果を記録する。
// outcomeはimported, skipped, fetch_failed, parse_failedのいずれか。
func (c *Collector) RecordImport(outcome string) {
	c.imports.WithLabelValues(outcome).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordEntrySubmitted はコンペ応募の受付を記録する。
func (c *Collector) RecordEntrySubmitted() {
	c.entries.Inc()
}

// RecordCleanup はクリーンアップワーカーの除去数を記録する。
// targetはsessions, edit_requests, imagesのいずれか。
func (c *Collector) RecordCleanup(target string, count int) {
	c.cleanups.WithLabelValues(target).Add(float64(count))
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

// NewHTTPMetricsMiddleware はHTTPステータスとレイテンシを記録するミドルウェアを返す。
func NewHTTPMetricsMiddleware(collector MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rec, r)

			collector.RecordHTTPStatus(rec.statusCode)
			collector.RecordRequestLatency(time.Since(start))
		})
	}
}

// statusRecorder はhttp.ResponseWriterをラップし、ステータスコードを記録する。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}
