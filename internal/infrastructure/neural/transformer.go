package neural

import (
	"math/rand"

	domainNeural "github.com/tiny-nested-learning/hope-go/internal/domain/neural"
	"github.com/tiny-nested-learning/hope-go/internal/infrastructure/attention"
	"github.com/tiny-nested-learning/hope-go/internal/infrastructure/tensor"
)

// TransformerModelName is the display name of the self-attention baseline.
const TransformerModelName = "Transformer"

// encoderBlock is self-attention and a position-wise feed-forward network, each
// wrapped in dropout, a residual add and LayerNorm.
type encoderBlock struct {
	attention *attention.MultiHeadAttention
	attnNorm  *LayerNorm
	ff1       *Dense
	ff2       *Dense
	ffNorm    *LayerNorm
}

func (b *encoderBlock) params() []*tensor.Tensor {
	var params []*tensor.Tensor
	params = append(params, b.attention.Params()...)
	params = append(params, b.attnNorm.Params()...)
	params = append(params, b.ff1.Params()...)
	params = append(params, b.ff2.Params()...)
	params = append(params, b.ffNorm.Params()...)
	return params
}

// TransformerModel is an encoder-only Transformer predicting the next token at every position.
type TransformerModel struct {
	*sequenceModel

	config    domainNeural.TransformerConfig
	embedding *Embedding
	blocks    []*encoderBlock
	head      *Dense
	rng       *rand.Rand
}

// NewTransformerModel builds the baseline from its configuration.
func NewTransformerModel(config domainNeural.TransformerConfig) (*TransformerModel, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(config.Seed))
	m := &TransformerModel{
		config:    config,
		embedding: NewEmbedding(config.VocabSize, config.ModelDim, rng),
		rng:       rng,
	}
	params := m.embedding.Params()

	attnConfig := attention.DefaultMultiHeadConfig(config.ModelDim)
	attnConfig.NumHeads = config.NumHeads
	attnConfig.KeyDim = config.KeyDim

	for i := 0; i < config.NumLayers; i++ {
		mha, err := attention.NewMultiHeadAttention(attnConfig, rng)
		if err != nil {
			return nil, err
		}
		block := &encoderBlock{
			attention: mha,
			attnNorm:  NewLayerNorm(config.ModelDim, 1e-6),
			ff1:       NewDense(config.ModelDim, config.FFDim, rng),
			ff2:       NewDense(config.FFDim, config.ModelDim, rng),
			ffNorm:    NewLayerNorm(config.ModelDim, 1e-6),
		}
		m.blocks = append(m.blocks, block)
		params = append(params, block.params()...)
	}

	m.head = NewDense(config.ModelDim, config.VocabSize, rng)
	params = append(params, m.head.Params()...)

	adam := DefaultAdamConfig(config.LearningRate)
	adam.ClipNorm = config.ClipNorm
	m.sequenceModel = newSequenceModel(TransformerModelName, config.VocabSize, config.SeqLen, config.MaskPadding, params, adam, m.forward)
	return m, nil
}

// Config returns the model configuration.
func (m *TransformerModel) Config() domainNeural.TransformerConfig {
	return m.config
}

func (m *TransformerModel) forward(inputs [][]int, train bool) *tensor.Tensor {
	x := m.embedding.Forward(flatIDs(inputs))
	if m.config.PositionalEncoding {
		x = tensor.Add(x, tensor.Constant(attention.PositionTable(len(inputs), m.seqLen, m.config.ModelDim)))
	}

	dropout := func(t *tensor.Tensor) *tensor.Tensor {
		if !train {
			return t
		}
		return tensor.Dropout(t, m.config.Dropout, m.rng)
	}

	for _, b := range m.blocks {
		attn := dropout(b.attention.Forward(x, m.seqLen))
		x = b.attnNorm.Forward(tensor.Add(x, attn))

		ff := b.ff2.Forward(tensor.ReLU(b.ff1.Forward(x)))
		x = b.ffNorm.Forward(tensor.Add(x, dropout(ff)))
	}
	return m.head.Forward(x)
}
