package metrics

// Redemption result labels shared by the recorder implementations.
const (
	RedemptionConsumed = "consumed"
	RedemptionNotFound = "not_found"
	RedemptionExpired  = "expired"
	RedemptionError    = "error"
)

// Recorder defines the interface for recording application metrics.
// Implementations include Metrics (Prometheus-based) and NoopMetrics (no-op).
type Recorder interface {
	// Claim workflow
	RecordClaimIssued(success bool)
	RecordClaimRedemption(result string)

	// Devices
	RecordDeviceProvisioned()
	RecordDeviceHeartbeat()

	// Transmit queue
	RecordTransmitEnqueued()
	RecordTransmitResult(status string)
	SetPendingQueueDepth(count int)

	// Database Operations
	RecordDatabaseQueryError(operation string)
}
