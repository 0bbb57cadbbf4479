package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	registerOnce           sync.Once
	clickIngestTotal       *prometheus.CounterVec
	aggregationDuration    *prometheus.HistogramVec
	aggregationFailures    *prometheus.CounterVec
	defaultDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
)

const (
	namespaceMetrics = "paperportal"
)

// 点击写入结果标签。
const (
	ClickResultCreated   = "created"
	ClickResultDuplicate = "duplicate"
	ClickResultRejected  = "rejected"
	ClickResultError     = "error"
)

// MustRegister 初始化 Prometheus 指标并注册 Go 运行时采样器，需在应用启动阶段调用一次。
func MustRegister() {
	registerOnce.Do(func() {
		clickIngestTotal = registerCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespaceMetrics,
					Subsystem: "clicks",
					Name:      "ingest_total",
					Help:      "点击写入请求数，按 created/duplicate/rejected/error 统计。",
				},
				[]string{"result"},
			),
		)
		aggregationDuration = registerHistogramVec(
			prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: namespaceMetrics,
					Subsystem: "stats",
					Name:      "aggregation_duration_seconds",
					Help:      "排行与分布统计的耗时，按操作区分。",
					Buckets:   defaultDurationBuckets,
				},
				[]string{"operation"},
			),
		)
		aggregationFailures = registerCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespaceMetrics,
					Subsystem: "stats",
					Name:      "aggregation_failures_total",
					Help:      "统计失败次数，按操作区分。",
				},
				[]string{"operation"},
			),
		)

		registerRuntimeCollectors()
	})
}

// RecordClickIngest 记录一次点击写入的结果。
func RecordClickIngest(result string) {
	if clickIngestTotal == nil {
		return
	}
	clickIngestTotal.WithLabelValues(normalizeLabel(result, "unknown")).Inc()
}

// ObserveAggregation 记录统计操作耗时，err 非空时同时累计失败次数。
func ObserveAggregation(operation string, duration time.Duration, err error) {
	label := normalizeLabel(operation, "unspecified")
	if aggregationDuration != nil {
		aggregationDuration.WithLabelValues(label).Observe(duration.Seconds())
	}
	if err != nil && aggregationFailures != nil {
		aggregationFailures.WithLabelValues(label).Inc()
	}
}

func normalizeLabel(value string, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func registerCounterVec(vec *prometheus.CounterVec) *prometheus.CounterVec {
	if err := prometheus.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
		panic(err)
	}
	return vec
}

func registerHistogramVec(vec *prometheus.HistogramVec) *prometheus.HistogramVec {
	if err := prometheus.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing
			}
		}
		panic(err)
	}
	return vec
}

func registerRuntimeCollectors() {
	for _, collector := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := prometheus.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				panic(err)
			}
		}
	}
}
