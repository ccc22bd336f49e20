package metrics

// NoopMetrics is a no-operation implementation of Recorder.
// All methods are empty and do nothing, providing zero overhead when metrics are disabled
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

// Claim workflow - noop implementations
func (n *NoopMetrics) RecordClaimIssued(success bool)        {}
func (n *NoopMetrics) RecordClaimRedemption(result string)   {}

// Devices - noop implementations
func (n *NoopMetrics) RecordDeviceProvisioned()              {}
func (n *NoopMetrics) RecordDeviceHeartbeat()                {}

// Transmit queue - noop implementations
func (n *NoopMetrics) RecordTransmitEnqueued()               {}
func (n *NoopMetrics) RecordTransmitResult(status string)    {}
func (n *NoopMetrics) SetPendingQueueDepth(count int)        {}

// Database - noop implementations
func (n *NoopMetrics) RecordDatabaseQueryError(operation string) {}
