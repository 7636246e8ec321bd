// Package neural provides the differentiable building blocks and the two sequence
// model backends.
package neural

import (
	"math/rand"

	"github.com/tiny-nested-learning/hope-go/internal/infrastructure/tensor"
)

// Dense is a fully connected layer y = xW + b.
type Dense struct {
	W *tensor.Tensor
	B *tensor.Tensor
}

// NewDense creates a Dense layer with a Glorot-uniform kernel and zero bias.
func NewDense(in, out int, rng *rand.Rand) *Dense {
	return &Dense{
		W: tensor.Param(tensor.GlorotUniform(in, out, rng)),
		B: tensor.Param(tensor.Filled(1, out, 0)),
	}
}

// Forward applies the layer to every row of x.
func (d *Dense) Forward(x *tensor.Tensor) *tensor.Tensor {
	return tensor.AddRow(tensor.MatMul(x, d.W), d.B)
}

// Params returns the kernel and bias.
func (d *Dense) Params() []*tensor.Tensor {
	return []*tensor.Tensor{d.W, d.B}
}

// Embedding maps token ids to learned rows.
type Embedding struct {
	Table *tensor.Tensor
}

// NewEmbedding creates a vocab x dim table drawn from U(-0.05, 0.05).
func NewEmbedding(vocab, dim int, rng *rand.Rand) *Embedding {
	return &Embedding{Table: tensor.Param(tensor.Uniform(vocab, dim, -0.05, 0.05, rng))}
}

// Forward returns one row per id.
func (e *Embedding) Forward(ids []int) *tensor.Tensor {
	return tensor.Gather(e.Table, ids)
}

// Params returns the table.
func (e *Embedding) Params() []*tensor.Tensor {
	return []*tensor.Tensor{e.Table}
}

// LayerNorm normalizes each row and applies a learned scale and shift.
type LayerNorm struct {
	Gamma *tensor.Tensor
	Beta  *tensor.Tensor
	Eps   float64
}

// NewLayerNorm creates a LayerNorm with gamma=1 and beta=0.
func NewLayerNorm(dim int, eps float64) *LayerNorm {
	return &LayerNorm{
		Gamma: tensor.Param(tensor.Filled(1, dim, 1)),
		Beta:  tensor.Param(tensor.Filled(1, dim, 0)),
		Eps:   eps,
	}
}

// Forward normalizes x.
func (l *LayerNorm) Forward(x *tensor.Tensor) *tensor.Tensor {
	return tensor.LayerNorm(x, l.Gamma, l.Beta, l.Eps)
}

// Params returns gamma and beta.
func (l *LayerNorm) Params() []*tensor.Tensor {
	return []*tensor.Tensor{l.Gamma, l.Beta}
}
