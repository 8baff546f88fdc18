// Package metrics 维护排班服务的 Prometheus 指标。
// 使用独立的 registry，避免默认 registry 携带的 Go 运行时指标。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/domain"
)

var registry = prometheus.NewRegistry()

var (
	auto = promauto.With(registry)

	runsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shift_optimizer",
		Subsystem: "engine",
		Name:      "runs_total",
		Help:      "按终态统计的排班运行次数",
	}, []string{"state", "strategy"})

	runDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "shift_optimizer",
		Subsystem: "engine",
		Name:      "run_duration_milliseconds",
		Help:      "排班运行从建模到终态的耗时（毫秒）",
		Buckets:   []float64{100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000, 120000},
	})

	runIterations = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "shift_optimizer",
		Subsystem: "engine",
		Name:      "run_iterations_total",
		Help:      "排班运行消耗的总迭代数（各并行重启之和）",
		Buckets:   []float64{100, 500, 1000, 5000, 10000, 20000, 50000, 100000},
	})

	runGini = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "shift_optimizer",
		Subsystem: "engine",
		Name:      "run_gini",
		Help:      "排班运行最终工时分布的基尼系数",
		Buckets:   []float64{0.05, 0.1, 0.15, 0.2, 0.25, 0.3, 0.4, 0.5},
	})

	httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shift_optimizer",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "按路由、方法和状态码统计的 HTTP 请求数",
	}, []string{"path", "method", "status"})

	httpDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "shift_optimizer",
		Subsystem: "http",
		Name:      "request_duration_milliseconds",
		Help:      "HTTP 请求耗时（毫秒）",
		Buckets:   prometheus.DefBuckets,
	}, []string{"path", "method"})

	notificationsPublished = auto.NewCounter(prometheus.CounterOpts{
		Namespace: "shift_optimizer",
		Subsystem: "notify",
		Name:      "published_total",
		Help:      "已发布到消息队列的运行结果通知数",
	})
)

// RecordRunFinished 在排班运行进入终态时记录一次
func RecordRunFinished(result *domain.ScheduleRunResult) {
	runsTotal.WithLabelValues(string(result.Metadata.State), string(result.Metadata.Strategy)).Inc()
	runDuration.Observe(float64(result.Metadata.ElapsedMS))
	runIterations.Observe(float64(result.Metadata.Iterations))
	if result.Fairness != nil {
		runGini.Observe(result.Fairness.OverallGini)
	}
}

func RecordHTTPRequest(path, method string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(path, method).Observe(float64(elapsed.Milliseconds()))
}

func RecordNotificationPublished() {
	notificationsPublished.Inc()
}

// Handler 返回暴露指标的 HTTP handler，挂在 /metrics 路由上
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
