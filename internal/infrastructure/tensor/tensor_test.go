package tensor

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// checkGradients compares analytic gradients of loss with central finite differences.
func checkGradients(t *testing.T, params []*Tensor, loss func() *Tensor) {
	t.Helper()

	ZeroGrads(params)
	Backward(loss())

	analytic := make([][]float64, len(params))
	for i, p := range params {
		require.NotNil(t, p.Grad, "param %d received no gradient", i)
		analytic[i] = append([]float64(nil), raw(p.Grad)...)
	}

	const h = 1e-5
	for i, p := range params {
		data := raw(p.Value)
		for j := range data {
			orig := data[j]
			data[j] = orig + h
			plus := loss().Item()
			data[j] = orig - h
			minus := loss().Item()
			data[j] = orig

			numeric := (plus - minus) / (2 * h)
			tol := 1e-6 + 1e-4*math.Abs(numeric)
			assert.InDelta(t, numeric, analytic[i][j], tol, "param %d entry %d", i, j)
		}
	}
}

func randomParam(rows, cols int, rng *rand.Rand) *Tensor {
	return Param(Uniform(rows, cols, -1, 1, rng))
}

func TestDenseTanhGradients(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	x := randomParam(3, 4, rng)
	w := randomParam(4, 2, rng)
	b := randomParam(1, 2, rng)
	c := Constant(Uniform(3, 2, -1, 1, rng))

	checkGradients(t, []*Tensor{x, w, b}, func() *Tensor {
		return Sum(Mul(Tanh(AddRow(MatMul(x, w), b)), c))
	})
}

func TestLerpSigmoidStackGradients(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	s := randomParam(3, 2, rng)
	p := randomParam(3, 2, rng)
	z := randomParam(3, 3, rng)

	checkGradients(t, []*Tensor{s, p, z}, func() *Tensor {
		r := Sigmoid(z)
		a := Lerp(s, p, ColSlice(r, 0, 1))
		b := Lerp(s, p, ColSlice(r, 2, 3))
		m := Mean(a, b, s)
		return Sum(Mul(HStack(m, a), HStack(b, p)))
	})
}

func TestLayerNormCrossEntropyGradients(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	x := randomParam(4, 5, rng)
	gamma := randomParam(1, 5, rng)
	beta := randomParam(1, 5, rng)
	targets := []int{0, 3, 4, 1}
	weights := []float64{1, 0, 1, 1}

	checkGradients(t, []*Tensor{x, gamma, beta}, func() *Tensor {
		return SoftmaxCrossEntropy(LayerNorm(x, gamma, beta, 1e-6), targets, weights).Loss
	})
}

func TestAttentionShapedGradients(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	table := randomParam(5, 3, rng)
	c := Constant(Uniform(4, 3, -1, 1, rng))

	checkGradients(t, []*Tensor{table}, func() *Tensor {
		x := Gather(table, []int{1, 3, 1, 0})
		scores := SoftmaxRows(Scale(MatMul(x, Transpose(x)), 0.5))
		mixed := MatMul(scores, x)
		top, bottom := RowSlice(mixed, 0, 2), RowSlice(mixed, 2, 4)
		return Sum(Mul(VStack(bottom, top), c))
	})
}

func TestClipReLUDropoutGradients(t *testing.T) {
	a := Param(mat.NewDense(2, 3, []float64{-0.9, -0.3, 0.2, 0.7, 1.4, -1.2}))
	c := Constant(mat.NewDense(2, 3, []float64{0.5, -1, 2, 1, -0.5, 0.25}))

	checkGradients(t, []*Tensor{a}, func() *Tensor {
		rng := rand.New(rand.NewSource(5))
		y := Add(Clip(a, -0.5, 0.5), ReLU(a))
		y = Dropout(AddScalar(Scale(y, 3), 0.1), 0.4, rng)
		return Sum(Mul(y, c))
	})
}

func TestClipValuesAndGradientMask(t *testing.T) {
	a := Param(mat.NewDense(1, 3, []float64{-1, 0.25, 2}))
	out := Clip(a, 0, 0.5)
	assert.Equal(t, []float64{0, 0.25, 0.5}, out.Data())

	Backward(Sum(out))
	assert.Equal(t, []float64{0, 1, 0}, raw(a.Grad))
}

func TestBackwardAccumulatesSharedNodes(t *testing.T) {
	a := Param(mat.NewDense(1, 2, []float64{1, 2}))
	Backward(Sum(Add(a, a)))
	assert.Equal(t, []float64{2, 2}, raw(a.Grad))
}

func TestConstantsDoNotBuildGraph(t *testing.T) {
	a := New(2, 2, []float64{1, 2, 3, 4})
	out := Tanh(MatMul(a, a))
	assert.False(t, out.RequiresGrad())
	assert.Nil(t, out.parents)
}

func TestSoftmaxCrossEntropyAccuracy(t *testing.T) {
	logits := New(3, 3, []float64{
		5, 0, 0,
		0, 5, 0,
		0, 0, 5,
	})

	ce := SoftmaxCrossEntropy(logits, []int{0, 1, 0}, nil)
	assert.Equal(t, 2.0, ce.Correct)
	assert.Equal(t, 3.0, ce.Weight)
	assert.Greater(t, ce.Loss.Item(), 0.0)

	masked := SoftmaxCrossEntropy(logits, []int{0, 1, 0}, []float64{1, 1, 0})
	assert.Equal(t, 2.0, masked.Correct)
	assert.Equal(t, 2.0, masked.Weight)
	assert.Less(t, masked.Loss.Item(), ce.Loss.Item())
}

func TestSoftmaxRowsSumToOne(t *testing.T) {
	out := SoftmaxRows(New(2, 3, []float64{1, 2, 3, -100, 0, 100}))
	for i := 0; i < 2; i++ {
		assert.InDelta(t, 1.0, floatsSum(out.Row(i)), 1e-12)
	}
}

func TestGlorotUniformBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	m := GlorotUniform(10, 30, rng)
	limit := math.Sqrt(6.0 / 40.0)
	for _, v := range raw(m) {
		assert.LessOrEqual(t, math.Abs(v), limit)
	}
}

func floatsSum(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s
}
