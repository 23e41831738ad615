// Package metrics holds the prometheus collectors for the HTTP surface and the
// background work queue.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry        *prometheus.Registry
	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	TaskCount       *prometheus.CounterVec
	TaskDuration    *prometheus.HistogramVec
}

func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		TaskCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accounts_queue_tasks_total",
				Help: "Background tasks run by the work queue.",
			},
			[]string{"task", "result"},
		),
		TaskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "accounts_queue_task_duration_seconds",
				Help:    "Background task duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"task"},
		),
	}

	registry.MustRegister(m.RequestCount, m.RequestDuration, m.TaskCount, m.TaskDuration)
	return m
}

// Middleware records request count and latency per route
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}

		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}

		labels := []string{c.Method(), path, strconv.Itoa(status)}
		m.RequestCount.WithLabelValues(labels...).Inc()
		m.RequestDuration.WithLabelValues(labels...).Observe(latency.Seconds())

		return err
	}
}

// ObserveTask matches accounts.TaskObserver
func (m *Metrics) ObserveTask(name string, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.TaskCount.WithLabelValues(name, result).Inc()
	m.TaskDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(m.HTTPHandler())
}
