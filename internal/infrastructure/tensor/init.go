package tensor

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// GlorotUniform samples a fanIn x fanOut matrix from U(-l, l), l = sqrt(6/(fanIn+fanOut)).
func GlorotUniform(fanIn, fanOut int, rng *rand.Rand) *mat.Dense {
	limit := math.Sqrt(6.0 / float64(fanIn+fanOut))
	return Uniform(fanIn, fanOut, -limit, limit, rng)
}

// Uniform samples a rows x cols matrix from U(lo, hi).
func Uniform(rows, cols int, lo, hi float64, rng *rand.Rand) *mat.Dense {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = lo + (hi-lo)*rng.Float64()
	}
	return mat.NewDense(rows, cols, data)
}

// Filled returns a rows x cols matrix where every entry equals v.
func Filled(rows, cols int, v float64) *mat.Dense {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = v
	}
	return mat.NewDense(rows, cols, data)
}
