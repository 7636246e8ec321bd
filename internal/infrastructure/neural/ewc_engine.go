package neural

import (
	"math"

	"gonum.org/v1/gonum/mat"

	domainNeural "github.com/tiny-nested-learning/hope-go/internal/domain/neural"
	"github.com/tiny-nested-learning/hope-go/internal/infrastructure/tensor"
)

// EWCEngine implements EWC++ regularization over a flat parameter vector.
type EWCEngine struct {
	config    domainNeural.EWCConfig
	diagonal  []float64
	anchor    []float64
	taskCount int
}

// NewEWCEngine creates an engine with nothing consolidated.
func NewEWCEngine(config domainNeural.EWCConfig) *EWCEngine {
	return &EWCEngine{config: config}
}

// Consolidate folds a task's Fisher diagonal into the running importance and
// anchors the given parameters.
// F_new = gamma * F_old + (1-gamma) * F_task
func (e *EWCEngine) Consolidate(parameters, taskFisher []float64) {
	if e.taskCount == 0 || len(e.diagonal) != len(taskFisher) {
		e.diagonal = append([]float64(nil), taskFisher...)
	} else {
		gamma := e.config.Gamma
		for i := range e.diagonal {
			e.diagonal[i] = clipImportance(gamma*e.diagonal[i]+(1-gamma)*taskFisher[i],
				e.config.MinImportance, e.config.ClipImportance)
		}
	}
	e.anchor = append([]float64(nil), parameters...)
	e.taskCount++
}

// TaskCount returns the number of consolidated tasks.
func (e *EWCEngine) TaskCount() int {
	return e.taskCount
}

// ApplyGradient adds the regularization gradient to every parameter's gradient.
// d L_ewc / d theta_i = lambda * F_i * (theta_i - theta_old_i)
func (e *EWCEngine) ApplyGradient(params []*tensor.Tensor) {
	if e.taskCount == 0 {
		return
	}
	offset := 0
	for _, p := range params {
		w := p.Data()
		if offset+len(w) > len(e.anchor) {
			return
		}
		if p.Grad == nil {
			p.Grad = mat.NewDense(p.Rows(), p.Cols(), nil)
		}
		g := p.Grad.RawMatrix().Data
		for j := range w {
			k := offset + j
			g[j] += e.config.Lambda * e.diagonal[k] * (w[j] - e.anchor[k])
		}
		offset += len(w)
	}
}

// Penalty computes the regularization loss.
// L_ewc = (lambda/2) * sum_i(F_i * (theta_i - theta_old_i)^2)
func (e *EWCEngine) Penalty(parameters []float64) float64 {
	if e.taskCount == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < len(parameters) && i < len(e.anchor); i++ {
		d := parameters[i] - e.anchor[i]
		sum += e.diagonal[i] * d * d
	}
	return e.config.Lambda / 2 * sum
}

// Stats summarizes the consolidated importance.
func (e *EWCEngine) Stats(parameters []float64) domainNeural.EWCStats {
	stats := domainNeural.EWCStats{
		TaskCount:  e.taskCount,
		Parameters: len(e.diagonal),
		Penalty:    e.Penalty(parameters),
	}
	for _, v := range e.diagonal {
		stats.MeanImportance += v
		stats.MaxImportance = math.Max(stats.MaxImportance, v)
	}
	if len(e.diagonal) > 0 {
		stats.MeanImportance /= float64(len(e.diagonal))
	}
	return stats
}
