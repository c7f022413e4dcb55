package domain

// Anomaly is a transfer whose value sits far from its local rolling baseline.
type Anomaly struct {
	Transfer    Transfer
	RollingMean float64 // trailing window mean at this transfer
	RollingStd  float64 // trailing window sample standard deviation
	ZScore      float64 // |value - mean| / std
}
