package neural

import "math"

// FisherConfig configures Fisher information estimation.
type FisherConfig struct {
	// Dimension is the number of scalar parameters.
	Dimension int `json:"dimension"`

	// ClipValue clips Fisher values to this maximum. Zero disables clipping.
	ClipValue float64 `json:"clipValue"`

	// MinValue is the minimum Fisher value.
	MinValue float64 `json:"minValue"`
}

// FisherStats contains Fisher estimation statistics.
type FisherStats struct {
	SampleCount int64   `json:"sampleCount"`
	AvgValue    float64 `json:"avgValue"`
	MaxValue    float64 `json:"maxValue"`
	Sparsity    float64 `json:"sparsity"`
}

// FisherMatrix accumulates a diagonal Fisher approximation from gradients.
type FisherMatrix struct {
	config      FisherConfig
	diagonal    []float64
	sampleCount int64
}

// NewFisherMatrix creates an empty Fisher diagonal.
func NewFisherMatrix(config FisherConfig) *FisherMatrix {
	return &FisherMatrix{
		config:   config,
		diagonal: make([]float64, config.Dimension),
	}
}

// Update folds one gradient sample into the running average.
// F_i = (1/N) * sum(grad_i^2)
func (f *FisherMatrix) Update(gradients []float64) {
	f.sampleCount++
	n := float64(f.sampleCount)

	for i := 0; i < len(gradients) && i < len(f.diagonal); i++ {
		g2 := gradients[i] * gradients[i]
		f.diagonal[i] = ((n-1)/n)*f.diagonal[i] + (1/n)*g2
		f.diagonal[i] = clipImportance(f.diagonal[i], f.config.MinValue, f.config.ClipValue)
	}
}

// GetDiagonal returns a copy of the diagonal.
func (f *FisherMatrix) GetDiagonal() []float64 {
	return append([]float64(nil), f.diagonal...)
}

// SampleCount returns the number of gradient samples folded in.
func (f *FisherMatrix) SampleCount() int64 {
	return f.sampleCount
}

// Stats summarizes the diagonal.
func (f *FisherMatrix) Stats() FisherStats {
	stats := FisherStats{SampleCount: f.sampleCount}
	if len(f.diagonal) == 0 {
		return stats
	}
	zeros := 0
	for _, v := range f.diagonal {
		stats.AvgValue += v
		stats.MaxValue = math.Max(stats.MaxValue, v)
		if v == 0 {
			zeros++
		}
	}
	stats.AvgValue /= float64(len(f.diagonal))
	stats.Sparsity = float64(zeros) / float64(len(f.diagonal))
	return stats
}

func clipImportance(v, min, max float64) float64 {
	if max > 0 && v > max {
		v = max
	}
	if v < min {
		v = min
	}
	return v
}
