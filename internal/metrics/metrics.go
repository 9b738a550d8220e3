// Package metrics экспортирует Prometheus-метрики хранилища карты.
package metrics

import (
	"errors"
	"net/http"

	"github.com/annel0/tilemap/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tilemap"

// Результаты операции для метки result
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultNotFound = "not_found"
)

// Metrics держит собственный регистр, чтобы несколько экземпляров
// (например, в тестах) не конфликтовали в глобальном.
// Методы допускают nil получатель.
type Metrics struct {
	registry  *prometheus.Registry
	ops       *prometheus.CounterVec
	blobBytes *prometheus.HistogramVec
	chunks    prometheus.Gauge
	cells     prometheus.Gauge
}

// New создаёт и регистрирует метрики
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_ops_total",
			Help:      "Число операций хранилища по типу и результату.",
		}, []string{"op", "result"}),
		blobBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "blob_bytes",
			Help:      "Размер записанных и прочитанных блобов в байтах.",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 10),
		}, []string{"op"}),
		chunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chunks",
			Help:      "Количество чанков в последней сохранённой или загруженной карте.",
		}),
		cells: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cells",
			Help:      "Количество непустых клеток в последней сохранённой или загруженной карте.",
		}),
	}
	m.registry.MustRegister(m.ops, m.blobBytes, m.chunks, m.cells)
	return m
}

// Registry возвращает регистр метрик
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Ops возвращает счётчик операций хранилища
func (m *Metrics) Ops() *prometheus.CounterVec { return m.ops }

// ObserveOp учитывает операцию op. Ошибки, для которых notFound(err)
// истинно, считаются отдельно.
func (m *Metrics) ObserveOp(op string, err error, notFound error) {
	if m == nil {
		return
	}
	result := ResultOK
	switch {
	case err == nil:
	case notFound != nil && errors.Is(err, notFound):
		result = ResultNotFound
	default:
		result = ResultError
	}
	m.ops.WithLabelValues(op, result).Inc()
}

// ObserveBlob учитывает размер блоба
func (m *Metrics) ObserveBlob(op string, size int) {
	if m == nil {
		return
	}
	m.blobBytes.WithLabelValues(op).Observe(float64(size))
}

// SetMapStats обновляет размеры карты
func (m *Metrics) SetMapStats(chunks int, cells int64) {
	if m == nil {
		return
	}
	m.chunks.Set(float64(chunks))
	m.cells.Set(float64(cells))
}

// Handler возвращает HTTP-обработчик /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartHTTP запускает HTTP-эндпоинт Prometheus на указанном адресе (например, ":2112").
// Метод неблокирующий, сервер останавливается через Shutdown возвращённого значения.
func (m *Metrics) StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logging.Info("Prometheus /metrics доступен по адресу %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Ошибка Prometheus HTTP сервера: %v", err)
		}
	}()
	return srv
}
