package tensor

import (
	"fmt"
	"math"
	"math/rand"
)

// SoftmaxRows applies a numerically stable softmax to every row.
func SoftmaxRows(a *Tensor) *Tensor {
	r, c := a.Value.Dims()
	v := newDense(r, c)
	vd, ad := raw(v), raw(a.Value)
	for i := 0; i < r; i++ {
		row := ad[i*c : (i+1)*c]
		out := vd[i*c : (i+1)*c]
		maxVal := row[0]
		for _, x := range row[1:] {
			if x > maxVal {
				maxVal = x
			}
		}
		sum := 0.0
		for j, x := range row {
			out[j] = math.Exp(x - maxVal)
			sum += out[j]
		}
		for j := range out {
			out[j] /= sum
		}
	}
	return result(v, []*Tensor{a}, func(o *Tensor) {
		g, ga := raw(o.Grad), raw(a.gradient())
		for i := 0; i < r; i++ {
			y := vd[i*c : (i+1)*c]
			gy := g[i*c : (i+1)*c]
			dot := 0.0
			for j := range y {
				dot += gy[j] * y[j]
			}
			for j := range y {
				ga[i*c+j] += y[j] * (gy[j] - dot)
			}
		}
	})
}

// LayerNorm normalizes every row to zero mean and unit variance, then applies the 1xC
// gain and bias.
func LayerNorm(x, gamma, beta *Tensor, eps float64) *Tensor {
	r, c := x.Value.Dims()
	if gamma.Cols() != c || beta.Cols() != c || gamma.Rows() != 1 || beta.Rows() != 1 {
		panic(fmt.Sprintf("tensor: LayerNorm expects 1x%d gain and bias", c))
	}

	v := newDense(r, c)
	vd, xd := raw(v), raw(x.Value)
	gd, bd := raw(gamma.Value), raw(beta.Value)
	xhat := make([]float64, r*c)
	invStd := make([]float64, r)
	n := float64(c)

	for i := 0; i < r; i++ {
		row := xd[i*c : (i+1)*c]
		mean := 0.0
		for _, val := range row {
			mean += val
		}
		mean /= n
		variance := 0.0
		for _, val := range row {
			d := val - mean
			variance += d * d
		}
		variance /= n
		inv := 1.0 / math.Sqrt(variance+eps)
		invStd[i] = inv
		for j, val := range row {
			h := (val - mean) * inv
			xhat[i*c+j] = h
			vd[i*c+j] = gd[j]*h + bd[j]
		}
	}

	return result(v, []*Tensor{x, gamma, beta}, func(out *Tensor) {
		g := raw(out.Grad)
		if gamma.requiresGrad {
			gg := raw(gamma.gradient())
			for i := 0; i < r; i++ {
				for j := 0; j < c; j++ {
					gg[j] += g[i*c+j] * xhat[i*c+j]
				}
			}
		}
		if beta.requiresGrad {
			gb := raw(beta.gradient())
			for i := 0; i < r; i++ {
				for j := 0; j < c; j++ {
					gb[j] += g[i*c+j]
				}
			}
		}
		if x.requiresGrad {
			gx := raw(x.gradient())
			dxhat := make([]float64, c)
			for i := 0; i < r; i++ {
				m1, m2 := 0.0, 0.0
				for j := 0; j < c; j++ {
					dxhat[j] = g[i*c+j] * gd[j]
					m1 += dxhat[j]
					m2 += dxhat[j] * xhat[i*c+j]
				}
				m1 /= n
				m2 /= n
				for j := 0; j < c; j++ {
					gx[i*c+j] += invStd[i] * (dxhat[j] - m1 - xhat[i*c+j]*m2)
				}
			}
		}
	})
}

// Dropout zeroes entries with probability rate and rescales the survivors.
// A rate of zero returns a unchanged.
func Dropout(a *Tensor, rate float64, rng *rand.Rand) *Tensor {
	if rate <= 0 {
		return a
	}
	keep := 1 - rate
	r, c := a.Value.Dims()
	v := newDense(r, c)
	vd, ad := raw(v), raw(a.Value)
	mask := make([]float64, len(ad))
	for i := range ad {
		if rng.Float64() < keep {
			mask[i] = 1 / keep
		}
		vd[i] = ad[i] * mask[i]
	}
	return result(v, []*Tensor{a}, func(out *Tensor) {
		g, ga := raw(out.Grad), raw(a.gradient())
		for i := range g {
			ga[i] += g[i] * mask[i]
		}
	})
}

// CrossEntropy is the outcome of a softmax cross-entropy evaluation.
type CrossEntropy struct {
	// Loss is the weighted mean loss as a 1x1 tensor.
	Loss *Tensor

	// Correct is the weighted number of rows whose argmax equals the target.
	Correct float64

	// Weight is the total row weight.
	Weight float64
}

// SoftmaxCrossEntropy computes the weighted mean of -log softmax(logits)[target] over rows.
// weights may be nil, meaning every row counts once.
func SoftmaxCrossEntropy(logits *Tensor, targets []int, weights []float64) CrossEntropy {
	r, c := logits.Value.Dims()
	if len(targets) != r {
		panic(fmt.Sprintf("tensor: %d targets for %d rows", len(targets), r))
	}
	if weights != nil && len(weights) != r {
		panic(fmt.Sprintf("tensor: %d weights for %d rows", len(weights), r))
	}

	ld := raw(logits.Value)
	probs := make([]float64, r*c)
	total, correct, loss := 0.0, 0.0, 0.0

	for i := 0; i < r; i++ {
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		row := ld[i*c : (i+1)*c]
		maxVal, argmax := row[0], 0
		for j, x := range row[1:] {
			if x > maxVal {
				maxVal, argmax = x, j+1
			}
		}
		sum := 0.0
		for j, x := range row {
			probs[i*c+j] = math.Exp(x - maxVal)
			sum += probs[i*c+j]
		}
		for j := 0; j < c; j++ {
			probs[i*c+j] /= sum
		}

		t := targets[i]
		loss += w * (math.Log(sum) + maxVal - row[t])
		if argmax == t {
			correct += w
		}
		total += w
	}

	meanLoss := 0.0
	if total > 0 {
		meanLoss = loss / total
	}

	v := newDense(1, 1)
	v.Set(0, 0, meanLoss)
	out := result(v, []*Tensor{logits}, func(out *Tensor) {
		if total == 0 {
			return
		}
		g := out.Grad.At(0, 0) / total
		gl := raw(logits.gradient())
		for i := 0; i < r; i++ {
			w := 1.0
			if weights != nil {
				w = weights[i]
			}
			for j := 0; j < c; j++ {
				ind := 0.0
				if j == targets[i] {
					ind = 1.0
				}
				gl[i*c+j] += g * w * (probs[i*c+j] - ind)
			}
		}
	})

	return CrossEntropy{Loss: out, Correct: correct, Weight: total}
}
