package neural

import (
	"math/rand"

	domainNeural "github.com/tiny-nested-learning/hope-go/internal/domain/neural"
	"github.com/tiny-nested-learning/hope-go/internal/infrastructure/tensor"
)

// HopeModelName is the display name of the multi-timescale memory model.
const HopeModelName = "HOPE"

// HopeModel is Embedding -> memory cell over time -> LayerNorm -> Dense(vocab).
type HopeModel struct {
	*sequenceModel

	config    domainNeural.HopeConfig
	embedding *Embedding
	cell      *Cell
	norm      *LayerNorm
	head      *Dense
	rng       *rand.Rand
}

// NewHopeModel builds a HOPE model from its configuration.
func NewHopeModel(config domainNeural.HopeConfig) (*HopeModel, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(config.Seed))
	m := &HopeModel{
		config:    config,
		embedding: NewEmbedding(config.VocabSize, config.Units, rng),
		rng:       rng,
	}

	cell, err := NewCell(config.Units, config.Units, config.Rates, config.RateMargin, rng)
	if err != nil {
		return nil, err
	}
	m.cell = cell
	m.norm = NewLayerNorm(config.Units, 1e-6)
	m.head = NewDense(config.Units, config.VocabSize, rng)

	var params []*tensor.Tensor
	params = append(params, m.embedding.Params()...)
	params = append(params, m.cell.Params()...)
	params = append(params, m.norm.Params()...)
	params = append(params, m.head.Params()...)

	adam := DefaultAdamConfig(config.LearningRate)
	adam.ClipNorm = config.ClipNorm
	m.sequenceModel = newSequenceModel(HopeModelName, config.VocabSize, config.SeqLen, config.MaskPadding, params, adam, m.forward)
	return m, nil
}

// Config returns the model configuration.
func (m *HopeModel) Config() domainNeural.HopeConfig {
	return m.config
}

// Cell returns the memory cell.
func (m *HopeModel) Cell() *Cell {
	return m.cell
}

func (m *HopeModel) forward(inputs [][]int, train bool) *tensor.Tensor {
	batch, seqLen := len(inputs), m.seqLen

	steps := make([]*tensor.Tensor, seqLen)
	ids := make([]int, batch)
	for t := 0; t < seqLen; t++ {
		for b := range inputs {
			ids[b] = inputs[b][t]
		}
		steps[t] = m.embedding.Forward(ids)
	}

	outputs, _ := m.cell.Unroll(steps, m.cell.InitialState(batch))

	// Outputs are stacked position-major; reorder rows to sequence-major.
	order := make([]int, batch*seqLen)
	for b := 0; b < batch; b++ {
		for t := 0; t < seqLen; t++ {
			order[b*seqLen+t] = t*batch + b
		}
	}
	x := tensor.Gather(tensor.VStack(outputs...), order)

	if train {
		x = tensor.Dropout(x, m.config.Dropout, m.rng)
	}
	return m.head.Forward(m.norm.Forward(x))
}
