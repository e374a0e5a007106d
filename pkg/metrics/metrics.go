// Package metrics 提供 Prometheus helper，包含本服务的 HTTP 与业务指标
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/risevoices/risevoices/pkg/logger"
)

// Metrics 指标集合
type Metrics struct {
	// HTTP 请求计数
	HTTPRequestsTotal prometheus.Counter
	// HTTP 请求耗时
	HTTPRequestDuration prometheus.Histogram

	// 业务指标
	// 成功落库的提交数
	SubmissionsTotal prometheus.Counter
	// 蜜罐拦截数
	HoneypotRejectionsTotal prometheus.Counter
	// 限流拦截数
	RateLimitRejectionsTotal prometheus.Counter
	// 校验失败数
	ValidationFailuresTotal prometheus.Counter
	// 命中风险规则的提交数
	FlaggedSubmissionsTotal prometheus.Counter
	// 地理编码失败数（提交仍然落库）
	GeocodeFailuresTotal prometheus.Counter
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "advocacy",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}),
		HTTPRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "advocacy",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		SubmissionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "advocacy",
			Subsystem: serviceName,
			Name:      "submissions_total",
			Help:      "Total submissions persisted",
		}),
		HoneypotRejectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "advocacy",
			Subsystem: serviceName,
			Name:      "honeypot_rejections_total",
			Help:      "Submissions rejected by the honeypot check",
		}),
		RateLimitRejectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "advocacy",
			Subsystem: serviceName,
			Name:      "ratelimit_rejections_total",
			Help:      "Submissions rejected by the rate limiter",
		}),
		ValidationFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "advocacy",
			Subsystem: serviceName,
			Name:      "validation_failures_total",
			Help:      "Submissions rejected by field validation",
		}),
		FlaggedSubmissionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "advocacy",
			Subsystem: serviceName,
			Name:      "flagged_submissions_total",
			Help:      "Submissions annotated with at least one risk flag",
		}),
		GeocodeFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "advocacy",
			Subsystem: serviceName,
			Name:      "geocode_failures_total",
			Help:      "Geocoding lookups that returned no coordinates",
		}),
	}
}

// Register 注册所有指标
func (m *Metrics) Register() error {
	collectors := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SubmissionsTotal,
		m.HoneypotRejectionsTotal,
		m.RateLimitRejectionsTotal,
		m.ValidationFailuresTotal,
		m.FlaggedSubmissionsTotal,
		m.GeocodeFailuresTotal,
	}

	for _, c := range collectors {
		if err := prometheus.DefaultRegisterer.Register(c); err != nil {
			logger.Error(context.Background(), "Failed to register metric", "error", err)
			return err
		}
	}

	logger.Info(context.Background(), "Metrics registered successfully")
	return nil
}

// StartHTTPServer 启动 Prometheus HTTP 服务器
func StartHTTPServer(port int, path string) error {
	if path == "" {
		path = "/metrics"
	}

	http.Handle(path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info(context.Background(), "Starting Prometheus HTTP server", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil {
			logger.Error(context.Background(), "Failed to start Prometheus HTTP server", "error", err)
		}
	}()

	return nil
}
