package neural

// EWCConfig configures online elastic weight consolidation (EWC++).
type EWCConfig struct {
	// Lambda is the regularization strength. Zero disables consolidation.
	Lambda float64 `json:"lambda"`

	// Gamma is the decay factor for online Fisher updates.
	// F_new = gamma * F_old + (1-gamma) * F_current
	Gamma float64 `json:"gamma"`

	// ClipImportance clips importance values to this maximum.
	ClipImportance float64 `json:"clipImportance"`

	// MinImportance is the minimum importance value.
	MinImportance float64 `json:"minImportance"`
}

// DefaultEWCConfig returns the default EWC++ configuration.
func DefaultEWCConfig() EWCConfig {
	return EWCConfig{
		Lambda:         100.0,
		Gamma:          0.9,
		ClipImportance: 100.0,
		MinImportance:  0,
	}
}

// Enabled reports whether consolidation is active.
func (c EWCConfig) Enabled() bool {
	return c.Lambda > 0
}

// EWCStats summarizes the consolidated importance after a task.
type EWCStats struct {
	// TaskCount is the number of tasks consolidated.
	TaskCount int `json:"taskCount"`

	// Parameters is the number of scalar parameters tracked.
	Parameters int `json:"parameters"`

	MeanImportance float64 `json:"meanImportance"`
	MaxImportance  float64 `json:"maxImportance"`

	// Penalty is (lambda/2) * sum_i(F_i * (theta_i - theta_old_i)^2) at consolidation time.
	Penalty float64 `json:"penalty"`

	// Samples, TaskMeanImportance and TaskSparsity describe the Fisher estimate of
	// the task just consolidated, before it is blended into the running importance.
	Samples            int64   `json:"samples"`
	TaskMeanImportance float64 `json:"taskMeanImportance"`
	TaskSparsity       float64 `json:"taskSparsity"`
}
