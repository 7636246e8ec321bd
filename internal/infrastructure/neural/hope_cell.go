package neural

import (
	"fmt"
	"math/rand"

	domainNeural "github.com/tiny-nested-learning/hope-go/internal/domain/neural"
	"github.com/tiny-nested-learning/hope-go/internal/infrastructure/attention"
	"github.com/tiny-nested-learning/hope-go/internal/infrastructure/tensor"
)

// State holds one batch x units memory per timescale, fastest first.
type State []*tensor.Tensor

// StepResult is the outcome of one cell step.
type StepResult struct {
	// Output is the mean of the updated memories.
	Output *tensor.Tensor

	// State is the updated memory, one entry per timescale.
	State State

	// Rates are the effective batch x 1 update rates applied per timescale.
	Rates []*tensor.Tensor
}

// Cell is a multi-timescale memory cell. A shared controller proposes new content
// and every memory moves toward it at its own rate. The slowest memory always
// moves at exactly its base rate.
type Cell struct {
	inputDim int
	units    int
	rates    []float64
	margin   float64

	controller  *Dense
	rateAdapter *Dense
}

// NewCell creates a cell reading inputDim-wide rows.
func NewCell(inputDim, units int, rates []float64, margin float64, rng *rand.Rand) (*Cell, error) {
	if err := domainNeural.ValidateRates(rates); err != nil {
		return nil, err
	}
	if inputDim <= 0 || units <= 0 || margin < 0 {
		return nil, fmt.Errorf("%w: cell input=%d units=%d margin=%v", domainNeural.ErrInvalidConfig, inputDim, units, margin)
	}

	concat := inputDim + len(rates)*units
	return &Cell{
		inputDim:    inputDim,
		units:       units,
		rates:       append([]float64(nil), rates...),
		margin:      margin,
		controller:  NewDense(concat, units, rng),
		rateAdapter: NewDense(concat, len(rates), rng),
	}, nil
}

// Units returns the width of each memory.
func (c *Cell) Units() int {
	return c.units
}

// Rates returns the base update rates.
func (c *Cell) Rates() []float64 {
	return append([]float64(nil), c.rates...)
}

// SlowIndex returns the index of the protected timescale.
func (c *Cell) SlowIndex() int {
	return len(c.rates) - 1
}

// InitialState returns zero memories for a batch.
func (c *Cell) InitialState(batch int) State {
	state := make(State, len(c.rates))
	for i := range state {
		state[i] = tensor.Zeros(batch, c.units)
	}
	return state
}

// Step advances the memories by one position given batch x inputDim input x.
func (c *Cell) Step(x *tensor.Tensor, prev State) StepResult {
	concat := tensor.HStack(append([]*tensor.Tensor{x}, prev...)...)

	proposal := tensor.Tanh(c.controller.Forward(concat))
	adjust := tensor.Sigmoid(c.rateAdapter.Forward(concat))

	batch := x.Rows()
	next := make(State, len(prev))
	rates := make([]*tensor.Tensor, len(prev))
	for i, s := range prev {
		base := c.rates[i]
		var d *tensor.Tensor
		if i == c.SlowIndex() {
			d = tensor.Full(batch, 1, base)
		} else {
			r := tensor.ColSlice(adjust, i, i+1)
			d = tensor.Clip(tensor.AddScalar(tensor.Scale(r, 1-base), base), 0, base+c.margin)
		}
		rates[i] = d
		next[i] = tensor.Lerp(s, proposal, d)
	}

	return StepResult{
		Output: tensor.Mean(next...),
		State:  next,
		Rates:  rates,
	}
}

// Unroll folds Step over a sequence of inputs, returning every output and the final state.
func (c *Cell) Unroll(inputs []*tensor.Tensor, initial State) ([]*tensor.Tensor, State) {
	outputs := make([]*tensor.Tensor, len(inputs))
	state := initial
	for t, x := range inputs {
		step := c.Step(x, state)
		outputs[t] = step.Output
		state = step.State
	}
	return outputs, state
}

// Params returns the controller and rate adapter parameters.
func (c *Cell) Params() []*tensor.Tensor {
	return append(c.controller.Params(), c.rateAdapter.Params()...)
}

// DynamicRate is the scalar rate rule applied per row by Step. The slow timescale
// keeps its base rate; every other rate is pulled toward 1 by adjust and clamped to
// [0, base+margin].
func DynamicRate(base, adjust float64, slow bool, margin float64) float64 {
	if slow {
		return base
	}
	return attention.Clamp(base+(1-base)*adjust, 0, base+margin)
}
