// Package attention provides attention mechanisms for sequence models.
package attention

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/tiny-nested-learning/hope-go/internal/infrastructure/tensor"
)

// MultiHeadConfig configures multi-head self-attention.
type MultiHeadConfig struct {
	// ModelDim is the width of the input and output rows.
	ModelDim int `json:"modelDim"`

	// NumHeads is the number of parallel attention heads.
	NumHeads int `json:"numHeads"`

	// KeyDim is the per-head query/key/value width.
	KeyDim int `json:"keyDim"`
}

// DefaultMultiHeadConfig returns two heads whose key width equals the model width.
func DefaultMultiHeadConfig(modelDim int) MultiHeadConfig {
	return MultiHeadConfig{
		ModelDim: modelDim,
		NumHeads: 2,
		KeyDim:   modelDim,
	}
}

// MultiHeadAttention is unmasked scaled dot-product self-attention over fixed windows.
// Every position attends to every position of its own sequence.
type MultiHeadAttention struct {
	config MultiHeadConfig

	wq, bq *tensor.Tensor
	wk, bk *tensor.Tensor
	wv, bv *tensor.Tensor
	wo, bo *tensor.Tensor
}

// NewMultiHeadAttention creates a MultiHeadAttention layer with Glorot-initialized projections.
func NewMultiHeadAttention(config MultiHeadConfig, rng *rand.Rand) (*MultiHeadAttention, error) {
	if config.ModelDim <= 0 || config.NumHeads <= 0 || config.KeyDim <= 0 {
		return nil, fmt.Errorf("invalid attention config: %+v", config)
	}

	inner := config.NumHeads * config.KeyDim
	proj := func(in, out int) (*tensor.Tensor, *tensor.Tensor) {
		return tensor.Param(tensor.GlorotUniform(in, out, rng)), tensor.Param(tensor.Filled(1, out, 0))
	}

	mha := &MultiHeadAttention{config: config}
	mha.wq, mha.bq = proj(config.ModelDim, inner)
	mha.wk, mha.bk = proj(config.ModelDim, inner)
	mha.wv, mha.bv = proj(config.ModelDim, inner)
	mha.wo, mha.bo = proj(inner, config.ModelDim)
	return mha, nil
}

// Forward applies self-attention to x, whose rows hold batch sequences of seqLen
// positions laid out sequence after sequence.
func (mha *MultiHeadAttention) Forward(x *tensor.Tensor, seqLen int) *tensor.Tensor {
	rows := x.Rows()
	if seqLen <= 0 || rows%seqLen != 0 {
		panic(fmt.Sprintf("attention: %d rows are not a multiple of sequence length %d", rows, seqLen))
	}

	q := tensor.AddRow(tensor.MatMul(x, mha.wq), mha.bq)
	k := tensor.AddRow(tensor.MatMul(x, mha.wk), mha.bk)
	v := tensor.AddRow(tensor.MatMul(x, mha.wv), mha.bv)

	kd := mha.config.KeyDim
	scale := 1.0 / math.Sqrt(float64(kd))

	// Split heads once on the full batch, then attend within each sequence.
	qh := make([]*tensor.Tensor, mha.config.NumHeads)
	kh := make([]*tensor.Tensor, mha.config.NumHeads)
	vh := make([]*tensor.Tensor, mha.config.NumHeads)
	for h := range qh {
		qh[h] = tensor.ColSlice(q, h*kd, (h+1)*kd)
		kh[h] = tensor.ColSlice(k, h*kd, (h+1)*kd)
		vh[h] = tensor.ColSlice(v, h*kd, (h+1)*kd)
	}

	batch := rows / seqLen
	sequences := make([]*tensor.Tensor, batch)
	heads := make([]*tensor.Tensor, mha.config.NumHeads)
	for b := 0; b < batch; b++ {
		from, to := b*seqLen, (b+1)*seqLen
		for h := range heads {
			qs := tensor.RowSlice(qh[h], from, to)
			ks := tensor.RowSlice(kh[h], from, to)
			vs := tensor.RowSlice(vh[h], from, to)

			weights := tensor.SoftmaxRows(tensor.Scale(tensor.MatMul(qs, tensor.Transpose(ks)), scale))
			heads[h] = tensor.MatMul(weights, vs)
		}
		sequences[b] = tensor.HStack(heads...)
	}

	return tensor.AddRow(tensor.MatMul(tensor.VStack(sequences...), mha.wo), mha.bo)
}

// Params returns the trainable tensors in a stable order.
func (mha *MultiHeadAttention) Params() []*tensor.Tensor {
	return []*tensor.Tensor{mha.wq, mha.bq, mha.wk, mha.bk, mha.wv, mha.bv, mha.wo, mha.bo}
}
