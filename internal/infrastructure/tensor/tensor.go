// Package tensor provides a small reverse-mode autodiff engine over gonum matrices.
//
// Every operation returns a new Tensor that remembers its parents and a closure that
// pushes its gradient back to them. Backward walks the graph in reverse topological
// order. Only nodes reachable from a parameter carry gradients; constants are free.
package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Tensor is a differentiable 2-D matrix.
type Tensor struct {
	Value *mat.Dense
	Grad  *mat.Dense

	requiresGrad bool
	parents      []*Tensor
	backward     func()
}

// New creates a constant tensor from row-major data. The data is copied.
func New(rows, cols int, data []float64) *Tensor {
	if data == nil {
		data = make([]float64, rows*cols)
	} else {
		cp := make([]float64, len(data))
		copy(cp, data)
		data = cp
	}
	return &Tensor{Value: mat.NewDense(rows, cols, data)}
}

// Zeros creates a constant tensor of zeros.
func Zeros(rows, cols int) *Tensor {
	return New(rows, cols, nil)
}

// Full creates a constant tensor where every entry equals v.
func Full(rows, cols int, v float64) *Tensor {
	return &Tensor{Value: Filled(rows, cols, v)}
}

// Constant wraps a matrix as a tensor that never receives gradients.
func Constant(m *mat.Dense) *Tensor {
	return &Tensor{Value: m}
}

// Param wraps a matrix as a trainable leaf.
func Param(m *mat.Dense) *Tensor {
	return &Tensor{Value: m, requiresGrad: true}
}

// Rows returns the number of rows.
func (t *Tensor) Rows() int {
	r, _ := t.Value.Dims()
	return r
}

// Cols returns the number of columns.
func (t *Tensor) Cols() int {
	_, c := t.Value.Dims()
	return c
}

// RequiresGrad reports whether gradients flow into this tensor.
func (t *Tensor) RequiresGrad() bool {
	return t.requiresGrad
}

// Item returns the single value of a 1x1 tensor.
func (t *Tensor) Item() float64 {
	return t.Value.At(0, 0)
}

// Data returns the row-major backing slice of the value.
func (t *Tensor) Data() []float64 {
	return raw(t.Value)
}

// Row returns a copy of row i.
func (t *Tensor) Row(i int) []float64 {
	c := t.Cols()
	out := make([]float64, c)
	copy(out, raw(t.Value)[i*c:(i+1)*c])
	return out
}

// ZeroGrad clears the accumulated gradient.
func (t *Tensor) ZeroGrad() {
	t.Grad = nil
}

// gradient returns the gradient matrix, allocating it on first use.
func (t *Tensor) gradient() *mat.Dense {
	if t.Grad == nil {
		r, c := t.Value.Dims()
		t.Grad = mat.NewDense(r, c, nil)
	}
	return t.Grad
}

func (t *Tensor) String() string {
	r, c := t.Value.Dims()
	return fmt.Sprintf("Tensor(%dx%d, grad=%t)", r, c, t.requiresGrad)
}

// Backward propagates gradients from root to every reachable parameter.
// The root gradient is seeded with ones.
func Backward(root *Tensor) {
	if !root.requiresGrad {
		return
	}

	topo := make([]*Tensor, 0, 64)
	visited := make(map[*Tensor]bool)

	var build func(n *Tensor)
	build = func(n *Tensor) {
		if visited[n] {
			return
		}
		visited[n] = true
		for _, p := range n.parents {
			build(p)
		}
		topo = append(topo, n)
	}
	build(root)

	g := raw(root.gradient())
	for i := range g {
		g[i] = 1.0
	}

	for i := len(topo) - 1; i >= 0; i-- {
		n := topo[i]
		if n.backward != nil && n.Grad != nil {
			n.backward()
		}
	}
}

// ZeroGrads clears gradients on every tensor.
func ZeroGrads(params []*Tensor) {
	for _, p := range params {
		p.ZeroGrad()
	}
}

// result builds an op output. When no parent needs gradients the graph is not retained.
func result(value *mat.Dense, parents []*Tensor, backward func(out *Tensor)) *Tensor {
	out := &Tensor{Value: value}
	for _, p := range parents {
		if p.requiresGrad {
			out.requiresGrad = true
			break
		}
	}
	if out.requiresGrad {
		out.parents = parents
		out.backward = func() { backward(out) }
	}
	return out
}

func raw(m *mat.Dense) []float64 {
	return m.RawMatrix().Data
}

func newDense(rows, cols int) *mat.Dense {
	return mat.NewDense(rows, cols, nil)
}

func mustSameShape(op string, a, b *Tensor) {
	ar, ac := a.Value.Dims()
	br, bc := b.Value.Dims()
	if ar != br || ac != bc {
		panic(fmt.Sprintf("tensor: %s shape mismatch %dx%d vs %dx%d", op, ar, ac, br, bc))
	}
}
