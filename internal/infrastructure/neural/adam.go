package neural

import (
	"math"

	"github.com/tiny-nested-learning/hope-go/internal/infrastructure/tensor"
)

// AdamConfig configures the Adam optimizer.
type AdamConfig struct {
	LearningRate float64 `json:"learningRate"`
	Beta1        float64 `json:"beta1"`
	Beta2        float64 `json:"beta2"`
	Epsilon      float64 `json:"epsilon"`

	// ClipNorm rescales gradients whose global norm exceeds it. Zero disables clipping.
	ClipNorm float64 `json:"clipNorm"`
}

// DefaultAdamConfig returns Adam with the usual moment decays.
func DefaultAdamConfig(learningRate float64) AdamConfig {
	return AdamConfig{
		LearningRate: learningRate,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-7,
	}
}

// Adam keeps first and second moment estimates for a fixed parameter list.
type Adam struct {
	config AdamConfig
	params []*tensor.Tensor
	m      [][]float64
	v      [][]float64
	step   int
}

// NewAdam creates an optimizer over params.
func NewAdam(params []*tensor.Tensor, config AdamConfig) *Adam {
	a := &Adam{
		config: config,
		params: params,
		m:      make([][]float64, len(params)),
		v:      make([][]float64, len(params)),
	}
	for i, p := range params {
		n := len(p.Data())
		a.m[i] = make([]float64, n)
		a.v[i] = make([]float64, n)
	}
	return a
}

// Step applies one bias-corrected update from the accumulated gradients.
// Parameters that received no gradient are left untouched.
func (a *Adam) Step() {
	a.step++
	scale := a.clipScale()

	b1, b2 := a.config.Beta1, a.config.Beta2
	c1 := 1 - math.Pow(b1, float64(a.step))
	c2 := 1 - math.Pow(b2, float64(a.step))

	for i, p := range a.params {
		if p.Grad == nil {
			continue
		}
		w := p.Data()
		g := p.Grad.RawMatrix().Data
		m, v := a.m[i], a.v[i]
		for j := range w {
			gj := g[j] * scale
			m[j] = b1*m[j] + (1-b1)*gj
			v[j] = b2*v[j] + (1-b2)*gj*gj
			mHat := m[j] / c1
			vHat := v[j] / c2
			w[j] -= a.config.LearningRate * mHat / (math.Sqrt(vHat) + a.config.Epsilon)
		}
	}
}

// Steps returns the number of updates applied.
func (a *Adam) Steps() int {
	return a.step
}

func (a *Adam) clipScale() float64 {
	if a.config.ClipNorm <= 0 {
		return 1
	}
	norm := GradNorm(a.params)
	if norm <= a.config.ClipNorm || norm == 0 {
		return 1
	}
	return a.config.ClipNorm / norm
}

// GradNorm returns the global L2 norm of the accumulated gradients.
func GradNorm(params []*tensor.Tensor) float64 {
	sum := 0.0
	for _, p := range params {
		if p.Grad == nil {
			continue
		}
		for _, g := range p.Grad.RawMatrix().Data {
			sum += g * g
		}
	}
	return math.Sqrt(sum)
}
