package attention

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// SinusoidalEncoding generates the sinusoidal encoding of a single position.
func SinusoidalEncoding(position int, dim int) []float64 {
	encoding := make([]float64, dim)
	for i := 0; i < dim; i++ {
		denominator := math.Pow(10000.0, float64(2*(i/2))/float64(dim))
		if i%2 == 0 {
			encoding[i] = math.Sin(float64(position) / denominator)
		} else {
			encoding[i] = math.Cos(float64(position) / denominator)
		}
	}
	return encoding
}

// PositionTable returns a (batch*seqLen) x dim matrix holding the encoding of
// every position, repeated for each sequence in the batch.
func PositionTable(batch, seqLen, dim int) *mat.Dense {
	out := mat.NewDense(batch*seqLen, dim, nil)
	for t := 0; t < seqLen; t++ {
		enc := SinusoidalEncoding(t, dim)
		for b := 0; b < batch; b++ {
			out.SetRow(b*seqLen+t, enc)
		}
	}
	return out
}

// Clamp clamps a value between min and max.
func Clamp(x, min, max float64) float64 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
