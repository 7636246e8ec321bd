package tensor

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// MatMul returns a·b.
func MatMul(a, b *Tensor) *Tensor {
	var v mat.Dense
	v.Mul(a.Value, b.Value)
	return result(&v, []*Tensor{a, b}, func(out *Tensor) {
		if a.requiresGrad {
			var da mat.Dense
			da.Mul(out.Grad, b.Value.T())
			ga := a.gradient()
			ga.Add(ga, &da)
		}
		if b.requiresGrad {
			var db mat.Dense
			db.Mul(a.Value.T(), out.Grad)
			gb := b.gradient()
			gb.Add(gb, &db)
		}
	})
}

// Add returns a+b for equally shaped tensors.
func Add(a, b *Tensor) *Tensor {
	mustSameShape("Add", a, b)
	var v mat.Dense
	v.Add(a.Value, b.Value)
	return result(&v, []*Tensor{a, b}, func(out *Tensor) {
		if a.requiresGrad {
			ga := a.gradient()
			ga.Add(ga, out.Grad)
		}
		if b.requiresGrad {
			gb := b.gradient()
			gb.Add(gb, out.Grad)
		}
	})
}

// AddRow adds a 1xC row vector to every row of a.
func AddRow(a, row *Tensor) *Tensor {
	r, c := a.Value.Dims()
	if row.Rows() != 1 || row.Cols() != c {
		panic(fmt.Sprintf("tensor: AddRow expects 1x%d, got %dx%d", c, row.Rows(), row.Cols()))
	}
	v := newDense(r, c)
	vd, ad, rd := raw(v), raw(a.Value), raw(row.Value)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			vd[i*c+j] = ad[i*c+j] + rd[j]
		}
	}
	return result(v, []*Tensor{a, row}, func(out *Tensor) {
		g := raw(out.Grad)
		if a.requiresGrad {
			ga := a.gradient()
			ga.Add(ga, out.Grad)
		}
		if row.requiresGrad {
			gr := raw(row.gradient())
			for i := 0; i < r; i++ {
				for j := 0; j < c; j++ {
					gr[j] += g[i*c+j]
				}
			}
		}
	})
}

// Mul returns the element-wise product of a and b.
func Mul(a, b *Tensor) *Tensor {
	mustSameShape("Mul", a, b)
	var v mat.Dense
	v.MulElem(a.Value, b.Value)
	return result(&v, []*Tensor{a, b}, func(out *Tensor) {
		g := raw(out.Grad)
		if a.requiresGrad {
			ga, bd := raw(a.gradient()), raw(b.Value)
			for i := range g {
				ga[i] += g[i] * bd[i]
			}
		}
		if b.requiresGrad {
			gb, ad := raw(b.gradient()), raw(a.Value)
			for i := range g {
				gb[i] += g[i] * ad[i]
			}
		}
	})
}

// Scale returns a*s.
func Scale(a *Tensor, s float64) *Tensor {
	var v mat.Dense
	v.Scale(s, a.Value)
	return result(&v, []*Tensor{a}, func(out *Tensor) {
		ga, g := raw(a.gradient()), raw(out.Grad)
		for i := range g {
			ga[i] += s * g[i]
		}
	})
}

// AddScalar returns a+s.
func AddScalar(a *Tensor, s float64) *Tensor {
	r, c := a.Value.Dims()
	v := newDense(r, c)
	vd, ad := raw(v), raw(a.Value)
	for i := range ad {
		vd[i] = ad[i] + s
	}
	return result(v, []*Tensor{a}, func(out *Tensor) {
		ga := a.gradient()
		ga.Add(ga, out.Grad)
	})
}

// Lerp blends two equally shaped tensors row by row: (1-d)*s + d*p, where d is an Rx1
// column of per-row rates.
func Lerp(s, p, d *Tensor) *Tensor {
	mustSameShape("Lerp", s, p)
	r, c := s.Value.Dims()
	if d.Rows() != r || d.Cols() != 1 {
		panic(fmt.Sprintf("tensor: Lerp expects %dx1 rates, got %dx%d", r, d.Rows(), d.Cols()))
	}
	v := newDense(r, c)
	vd, sd, pd, dd := raw(v), raw(s.Value), raw(p.Value), raw(d.Value)
	for i := 0; i < r; i++ {
		rate := dd[i]
		for j := 0; j < c; j++ {
			k := i*c + j
			vd[k] = (1-rate)*sd[k] + rate*pd[k]
		}
	}
	return result(v, []*Tensor{s, p, d}, func(out *Tensor) {
		g := raw(out.Grad)
		var gs, gp, gd []float64
		if s.requiresGrad {
			gs = raw(s.gradient())
		}
		if p.requiresGrad {
			gp = raw(p.gradient())
		}
		if d.requiresGrad {
			gd = raw(d.gradient())
		}
		for i := 0; i < r; i++ {
			rate := dd[i]
			for j := 0; j < c; j++ {
				k := i*c + j
				if gs != nil {
					gs[k] += g[k] * (1 - rate)
				}
				if gp != nil {
					gp[k] += g[k] * rate
				}
				if gd != nil {
					gd[i] += g[k] * (pd[k] - sd[k])
				}
			}
		}
	})
}

// Mean returns the element-wise average of equally shaped tensors.
func Mean(ts ...*Tensor) *Tensor {
	if len(ts) == 0 {
		panic("tensor: Mean of nothing")
	}
	r, c := ts[0].Value.Dims()
	v := newDense(r, c)
	for _, t := range ts {
		mustSameShape("Mean", ts[0], t)
		v.Add(v, t.Value)
	}
	inv := 1.0 / float64(len(ts))
	v.Scale(inv, v)
	return result(v, ts, func(out *Tensor) {
		g := raw(out.Grad)
		for _, t := range ts {
			if !t.requiresGrad {
				continue
			}
			gt := raw(t.gradient())
			for i := range g {
				gt[i] += g[i] * inv
			}
		}
	})
}

// Transpose returns aᵀ.
func Transpose(a *Tensor) *Tensor {
	v := mat.DenseCopyOf(a.Value.T())
	return result(v, []*Tensor{a}, func(out *Tensor) {
		ga := a.gradient()
		ga.Add(ga, out.Grad.T())
	})
}

// HStack concatenates tensors with equal row counts side by side.
func HStack(ts ...*Tensor) *Tensor {
	r := ts[0].Rows()
	total := 0
	for _, t := range ts {
		if t.Rows() != r {
			panic(fmt.Sprintf("tensor: HStack row mismatch %d vs %d", t.Rows(), r))
		}
		total += t.Cols()
	}
	v := newDense(r, total)
	vd := raw(v)
	offset := 0
	for _, t := range ts {
		c := t.Cols()
		td := raw(t.Value)
		for i := 0; i < r; i++ {
			copy(vd[i*total+offset:i*total+offset+c], td[i*c:(i+1)*c])
		}
		offset += c
	}
	return result(v, ts, func(out *Tensor) {
		g := raw(out.Grad)
		offset := 0
		for _, t := range ts {
			c := t.Cols()
			if t.requiresGrad {
				gt := raw(t.gradient())
				for i := 0; i < r; i++ {
					for j := 0; j < c; j++ {
						gt[i*c+j] += g[i*total+offset+j]
					}
				}
			}
			offset += c
		}
	})
}

// VStack concatenates tensors with equal column counts top to bottom.
func VStack(ts ...*Tensor) *Tensor {
	c := ts[0].Cols()
	total := 0
	for _, t := range ts {
		if t.Cols() != c {
			panic(fmt.Sprintf("tensor: VStack column mismatch %d vs %d", t.Cols(), c))
		}
		total += t.Rows()
	}
	v := newDense(total, c)
	vd := raw(v)
	offset := 0
	for _, t := range ts {
		n := len(raw(t.Value))
		copy(vd[offset:offset+n], raw(t.Value))
		offset += n
	}
	return result(v, ts, func(out *Tensor) {
		g := raw(out.Grad)
		offset := 0
		for _, t := range ts {
			n := t.Rows() * c
			if t.requiresGrad {
				gt := raw(t.gradient())
				for i := 0; i < n; i++ {
					gt[i] += g[offset+i]
				}
			}
			offset += n
		}
	})
}

// ColSlice returns columns [from, to).
func ColSlice(a *Tensor, from, to int) *Tensor {
	r, c := a.Value.Dims()
	if from < 0 || to > c || from >= to {
		panic(fmt.Sprintf("tensor: ColSlice [%d,%d) out of range for %d columns", from, to, c))
	}
	w := to - from
	v := newDense(r, w)
	vd, ad := raw(v), raw(a.Value)
	for i := 0; i < r; i++ {
		copy(vd[i*w:(i+1)*w], ad[i*c+from:i*c+to])
	}
	return result(v, []*Tensor{a}, func(out *Tensor) {
		g, ga := raw(out.Grad), raw(a.gradient())
		for i := 0; i < r; i++ {
			for j := 0; j < w; j++ {
				ga[i*c+from+j] += g[i*w+j]
			}
		}
	})
}

// RowSlice returns rows [from, to).
func RowSlice(a *Tensor, from, to int) *Tensor {
	r, c := a.Value.Dims()
	if from < 0 || to > r || from >= to {
		panic(fmt.Sprintf("tensor: RowSlice [%d,%d) out of range for %d rows", from, to, r))
	}
	v := newDense(to-from, c)
	copy(raw(v), raw(a.Value)[from*c:to*c])
	return result(v, []*Tensor{a}, func(out *Tensor) {
		g, ga := raw(out.Grad), raw(a.gradient())
		base := from * c
		for i := range g {
			ga[base+i] += g[i]
		}
	})
}

// Gather selects rows of a by index. Indices may repeat; gradients accumulate.
// With a as an embedding table this is the lookup.
func Gather(a *Tensor, indices []int) *Tensor {
	r, c := a.Value.Dims()
	v := newDense(len(indices), c)
	vd, ad := raw(v), raw(a.Value)
	for i, idx := range indices {
		if idx < 0 || idx >= r {
			panic(fmt.Sprintf("tensor: Gather index %d out of range for %d rows", idx, r))
		}
		copy(vd[i*c:(i+1)*c], ad[idx*c:(idx+1)*c])
	}
	return result(v, []*Tensor{a}, func(out *Tensor) {
		g, ga := raw(out.Grad), raw(a.gradient())
		for i, idx := range indices {
			for j := 0; j < c; j++ {
				ga[idx*c+j] += g[i*c+j]
			}
		}
	})
}

// Clip bounds every entry to [lo, hi]. Gradients pass only where the input was in range.
func Clip(a *Tensor, lo, hi float64) *Tensor {
	r, c := a.Value.Dims()
	v := newDense(r, c)
	vd, ad := raw(v), raw(a.Value)
	for i, x := range ad {
		vd[i] = math.Min(math.Max(x, lo), hi)
	}
	return result(v, []*Tensor{a}, func(out *Tensor) {
		g, ga := raw(out.Grad), raw(a.gradient())
		for i, x := range ad {
			if x >= lo && x <= hi {
				ga[i] += g[i]
			}
		}
	})
}

// Tanh applies tanh element-wise.
func Tanh(a *Tensor) *Tensor {
	return unary(a, math.Tanh, func(_, y float64) float64 { return 1 - y*y })
}

// Sigmoid applies the logistic function element-wise.
func Sigmoid(a *Tensor) *Tensor {
	return unary(a, sigmoid, func(_, y float64) float64 { return y * (1 - y) })
}

// ReLU applies max(0, x) element-wise.
func ReLU(a *Tensor) *Tensor {
	return unary(a, func(x float64) float64 {
		if x > 0 {
			return x
		}
		return 0
	}, func(x, _ float64) float64 {
		if x > 0 {
			return 1
		}
		return 0
	})
}

// unary applies f element-wise; df receives the input and output and returns dy/dx.
func unary(a *Tensor, f func(float64) float64, df func(x, y float64) float64) *Tensor {
	r, c := a.Value.Dims()
	v := newDense(r, c)
	vd, ad := raw(v), raw(a.Value)
	for i, x := range ad {
		vd[i] = f(x)
	}
	return result(v, []*Tensor{a}, func(out *Tensor) {
		g, ga := raw(out.Grad), raw(a.gradient())
		for i := range g {
			ga[i] += g[i] * df(ad[i], vd[i])
		}
	})
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// Sum returns the sum of every entry as a 1x1 tensor.
func Sum(a *Tensor) *Tensor {
	v := newDense(1, 1)
	v.Set(0, 0, mat.Sum(a.Value))
	return result(v, []*Tensor{a}, func(out *Tensor) {
		g, ga := out.Grad.At(0, 0), raw(a.gradient())
		for i := range ga {
			ga[i] += g
		}
	})
}
