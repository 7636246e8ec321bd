package neural

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/tiny-nested-learning/hope-go/internal/domain/curriculum"
	domainNeural "github.com/tiny-nested-learning/hope-go/internal/domain/neural"
	"github.com/tiny-nested-learning/hope-go/internal/infrastructure/tensor"
)

// forwardFunc maps a batch of id rows to (batch*seqLen) x vocab logits, one row per
// position, sequence after sequence.
type forwardFunc func(inputs [][]int, train bool) *tensor.Tensor

// sequenceModel implements the training, evaluation, consolidation and checkpoint
// plumbing shared by every backend. Backends supply the forward pass.
type sequenceModel struct {
	name        string
	vocabSize   int
	seqLen      int
	maskPadding bool

	params    []*tensor.Tensor
	optimizer *Adam
	forward   forwardFunc
	ewc       *EWCEngine
}

func newSequenceModel(name string, vocabSize, seqLen int, maskPadding bool, params []*tensor.Tensor, adam AdamConfig, forward forwardFunc) *sequenceModel {
	return &sequenceModel{
		name:        name,
		vocabSize:   vocabSize,
		seqLen:      seqLen,
		maskPadding: maskPadding,
		params:      params,
		optimizer:   NewAdam(params, adam),
		forward:     forward,
	}
}

// Name returns the model's display name.
func (m *sequenceModel) Name() string {
	return m.name
}

// VocabSize returns the number of output classes.
func (m *sequenceModel) VocabSize() int {
	return m.vocabSize
}

// SeqLen returns the window length the model accepts.
func (m *sequenceModel) SeqLen() int {
	return m.seqLen
}

// Steps returns the number of optimizer updates applied so far.
func (m *sequenceModel) Steps() int {
	return m.optimizer.Steps()
}

// Predict returns batch x position x vocabulary logits.
func (m *sequenceModel) Predict(inputs [][]int) ([][][]float64, error) {
	if err := m.validate(inputs, nil); err != nil {
		return nil, err
	}

	logits := m.forward(inputs, false)
	out := make([][][]float64, len(inputs))
	for b := range inputs {
		out[b] = make([][]float64, m.seqLen)
		for t := 0; t < m.seqLen; t++ {
			out[b][t] = logits.Row(b*m.seqLen + t)
		}
	}
	return out, nil
}

// TrainBatch runs one optimizer step and reports the metrics measured before it.
func (m *sequenceModel) TrainBatch(inputs, targets [][]int) (domainNeural.BatchMetrics, error) {
	if err := m.validate(inputs, targets); err != nil {
		return domainNeural.BatchMetrics{}, err
	}

	tensor.ZeroGrads(m.params)
	ce := m.loss(m.forward(inputs, true), targets)
	metrics, err := m.metrics(ce)
	if err != nil {
		return metrics, err
	}

	tensor.Backward(ce.Loss)
	if m.ewc != nil {
		m.ewc.ApplyGradient(m.params)
	}
	m.optimizer.Step()
	return metrics, nil
}

// EvaluateBatch reports metrics without dropout and without touching parameters.
func (m *sequenceModel) EvaluateBatch(inputs, targets [][]int) (domainNeural.BatchMetrics, error) {
	if err := m.validate(inputs, targets); err != nil {
		return domainNeural.BatchMetrics{}, err
	}
	return m.metrics(m.loss(m.forward(inputs, false), targets))
}

// Consolidate estimates the diagonal Fisher information over batches and anchors
// the current parameters. Later training steps are pulled back toward the anchor.
func (m *sequenceModel) Consolidate(batches []domainNeural.Batch, config domainNeural.EWCConfig) (domainNeural.EWCStats, error) {
	if !config.Enabled() {
		return domainNeural.EWCStats{}, nil
	}
	if len(batches) == 0 {
		return domainNeural.EWCStats{}, fmt.Errorf("%w: no batches to consolidate", domainNeural.ErrInvalidBatch)
	}

	fisher := NewFisherMatrix(FisherConfig{
		Dimension: countParams(m.params),
		ClipValue: config.ClipImportance,
		MinValue:  config.MinImportance,
	})
	for _, batch := range batches {
		if err := m.validate(batch.Inputs, batch.Targets); err != nil {
			return domainNeural.EWCStats{}, err
		}
		tensor.ZeroGrads(m.params)
		ce := m.loss(m.forward(batch.Inputs, false), batch.Targets)
		if _, err := m.metrics(ce); err != nil {
			return domainNeural.EWCStats{}, err
		}
		tensor.Backward(ce.Loss)
		fisher.Update(flattenGrads(m.params))
	}
	tensor.ZeroGrads(m.params)

	if m.ewc == nil {
		m.ewc = NewEWCEngine(config)
	}
	m.ewc.Consolidate(flattenValues(m.params), fisher.GetDiagonal())

	stats := m.ewc.Stats(flattenValues(m.params))
	taskStats := fisher.Stats()
	stats.Samples = taskStats.SampleCount
	stats.TaskMeanImportance = taskStats.AvgValue
	stats.TaskSparsity = taskStats.Sparsity
	return stats, nil
}

// Checkpoint snapshots every parameter.
func (m *sequenceModel) Checkpoint() domainNeural.ModelCheckpoint {
	snaps := make([]domainNeural.ParamSnapshot, len(m.params))
	for i, p := range m.params {
		snaps[i] = domainNeural.ParamSnapshot{
			Rows: p.Rows(),
			Cols: p.Cols(),
			Data: append([]float64(nil), p.Data()...),
		}
	}
	return domainNeural.ModelCheckpoint{
		ID:        uuid.New().String(),
		Model:     m.name,
		CreatedAt: time.Now(),
		Params:    snaps,
	}
}

// Restore overwrites every parameter from a checkpoint of the same model shape.
func (m *sequenceModel) Restore(checkpoint domainNeural.ModelCheckpoint) error {
	if checkpoint.Model != m.name {
		return fmt.Errorf("%w: checkpoint of %q restored into %q", domainNeural.ErrCheckpointMismatch, checkpoint.Model, m.name)
	}
	if len(checkpoint.Params) != len(m.params) {
		return fmt.Errorf("%w: %d parameters, model has %d", domainNeural.ErrCheckpointMismatch, len(checkpoint.Params), len(m.params))
	}
	for i, snap := range checkpoint.Params {
		p := m.params[i]
		if snap.Rows != p.Rows() || snap.Cols != p.Cols() || len(snap.Data) != snap.Rows*snap.Cols {
			return fmt.Errorf("%w: parameter %d is %dx%d, model has %dx%d",
				domainNeural.ErrCheckpointMismatch, i, snap.Rows, snap.Cols, p.Rows(), p.Cols())
		}
	}
	for i, snap := range checkpoint.Params {
		copy(m.params[i].Data(), snap.Data)
	}
	return nil
}

func (m *sequenceModel) validate(inputs, targets [][]int) error {
	if len(inputs) == 0 {
		return fmt.Errorf("%w: empty batch", domainNeural.ErrInvalidBatch)
	}
	if targets != nil && len(targets) != len(inputs) {
		return fmt.Errorf("%w: %d input rows with %d target rows", domainNeural.ErrInvalidBatch, len(inputs), len(targets))
	}

	check := func(kind string, rows [][]int) error {
		for i, row := range rows {
			if len(row) != m.seqLen {
				return fmt.Errorf("%w: %s row %d has length %d, want %d", domainNeural.ErrInvalidBatch, kind, i, len(row), m.seqLen)
			}
			for _, id := range row {
				if id < 0 || id >= m.vocabSize {
					return fmt.Errorf("%w: %s row %d has id %d outside vocabulary of %d", domainNeural.ErrInvalidBatch, kind, i, id, m.vocabSize)
				}
			}
		}
		return nil
	}
	if err := check("input", inputs); err != nil {
		return err
	}
	if targets != nil {
		return check("target", targets)
	}
	return nil
}

func (m *sequenceModel) loss(logits *tensor.Tensor, targets [][]int) tensor.CrossEntropy {
	flat := flatIDs(targets)

	var weights []float64
	if m.maskPadding {
		weights = make([]float64, len(flat))
		for i, t := range flat {
			if t != curriculum.PadID {
				weights[i] = 1
			}
		}
	}
	return tensor.SoftmaxCrossEntropy(logits, flat, weights)
}

func (m *sequenceModel) metrics(ce tensor.CrossEntropy) (domainNeural.BatchMetrics, error) {
	loss := ce.Loss.Item()
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		return domainNeural.BatchMetrics{}, fmt.Errorf("%w: %s loss is %v", domainNeural.ErrNumericalDivergence, m.name, loss)
	}

	metrics := domainNeural.BatchMetrics{
		Loss:    loss,
		Correct: ce.Correct,
		Count:   ce.Weight,
	}
	if ce.Weight > 0 {
		metrics.Accuracy = ce.Correct / ce.Weight
	}
	return metrics, nil
}

// flatIDs returns the row-major concatenation of a batch of id rows.
func flatIDs(rows [][]int) []int {
	out := make([]int, 0, len(rows)*len(rows[0]))
	for _, row := range rows {
		out = append(out, row...)
	}
	return out
}

func countParams(params []*tensor.Tensor) int {
	n := 0
	for _, p := range params {
		n += len(p.Data())
	}
	return n
}

func flattenValues(params []*tensor.Tensor) []float64 {
	out := make([]float64, 0, countParams(params))
	for _, p := range params {
		out = append(out, p.Data()...)
	}
	return out
}

func flattenGrads(params []*tensor.Tensor) []float64 {
	out := make([]float64, 0, countParams(params))
	for _, p := range params {
		if p.Grad == nil {
			out = append(out, make([]float64, len(p.Data()))...)
			continue
		}
		out = append(out, p.Grad.RawMatrix().Data...)
	}
	return out
}
