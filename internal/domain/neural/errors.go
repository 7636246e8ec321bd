package neural

import "errors"

var (
	// ErrInvalidRates is returned when a timescale rate table is out of range or not decreasing.
	ErrInvalidRates = errors.New("invalid timescale rates")

	// ErrInvalidConfig is returned for unusable model or training hyperparameters.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidBatch is returned when a batch does not match the model's window or vocabulary.
	ErrInvalidBatch = errors.New("invalid batch")

	// ErrNumericalDivergence is returned when a loss becomes NaN or infinite.
	ErrNumericalDivergence = errors.New("numerical divergence")

	ErrRetentionFrozen  = errors.New("retention matrix is frozen")
	ErrIncompleteMatrix = errors.New("retention matrix is incomplete")

	// ErrCheckpointMismatch is returned when a checkpoint does not fit the model restoring it.
	ErrCheckpointMismatch = errors.New("checkpoint does not match model")
)
