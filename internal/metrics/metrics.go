package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Claim Workflow Metrics
	ClaimsIssuedTotal    *prometheus.CounterVec
	ClaimRedemptionTotal *prometheus.CounterVec

	// Device Metrics
	DevicesProvisionedTotal prometheus.Counter
	DeviceHeartbeatsTotal   prometheus.Counter

	// Transmit Queue Metrics
	TransmitEnqueuedTotal prometheus.Counter
	TransmitResultTotal   *prometheus.CounterVec
	QueueItemsPending     prometheus.Gauge

	// HTTP Request Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Database Query Metrics
	DatabaseQueryErrorsTotal *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init initializes metrics based on enabled flag
// If enabled=true, returns Prometheus-based Metrics
// If enabled=false, returns NoopMetrics (zero overhead)
// Uses sync.Once to ensure Prometheus metrics are only registered once
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

// initMetrics creates and registers all Prometheus metrics
func initMetrics() *Metrics {
	return &Metrics{
		ClaimsIssuedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsr_claims_issued_total",
				Help: "Total number of device claim codes issued",
			},
			[]string{"result"}, // success, error
		),
		ClaimRedemptionTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsr_claim_redemption_total",
				Help: "Total number of claim redemption attempts",
			},
			[]string{"result"}, // consumed, not_found, expired, error
		),
		DevicesProvisionedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "pulsr_devices_provisioned_total",
				Help: "Total number of devices provisioned through claim redemption",
			},
		),
		DeviceHeartbeatsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "pulsr_device_heartbeats_total",
				Help: "Total number of hardware heartbeats received",
			},
		),
		TransmitEnqueuedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "pulsr_transmit_enqueued_total",
				Help: "Total number of IR transmissions enqueued",
			},
		),
		TransmitResultTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsr_transmit_result_total",
				Help: "Total number of transmit outcomes reported by hardware",
			},
			[]string{"status"}, // completed, failed
		),
		QueueItemsPending: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "pulsr_queue_items_pending",
				Help: "Current number of pending transmit queue items",
			},
		),
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsr_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pulsr_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "pulsr_http_requests_in_flight",
				Help: "Current number of HTTP requests being served",
			},
		),
		DatabaseQueryErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsr_database_query_errors_total",
				Help: "Total number of database query errors",
			},
			[]string{"operation"},
		),
	}
}

// Claim workflow

func (m *Metrics) RecordClaimIssued(success bool) {
	result := resultSuccess
	if !success {
		result = resultError
	}
	m.ClaimsIssuedTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordClaimRedemption(result string) {
	m.ClaimRedemptionTotal.WithLabelValues(result).Inc()
}

// Devices

func (m *Metrics) RecordDeviceProvisioned() {
	m.DevicesProvisionedTotal.Inc()
}

func (m *Metrics) RecordDeviceHeartbeat() {
	m.DeviceHeartbeatsTotal.Inc()
}

// Transmit queue

func (m *Metrics) RecordTransmitEnqueued() {
	m.TransmitEnqueuedTotal.Inc()
}

func (m *Metrics) RecordTransmitResult(status string) {
	m.TransmitResultTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) SetPendingQueueDepth(count int) {
	m.QueueItemsPending.Set(float64(count))
}

// Database

func (m *Metrics) RecordDatabaseQueryError(operation string) {
	m.DatabaseQueryErrorsTotal.WithLabelValues(operation).Inc()
}
