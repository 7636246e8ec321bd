package attention

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiny-nested-learning/hope-go/internal/infrastructure/tensor"
)

func newTestAttention(t *testing.T, dim int) *MultiHeadAttention {
	t.Helper()
	mha, err := NewMultiHeadAttention(DefaultMultiHeadConfig(dim), rand.New(rand.NewSource(11)))
	require.NoError(t, err)
	return mha
}

func TestNewMultiHeadAttentionRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config MultiHeadConfig
	}{
		{"zero model dim", MultiHeadConfig{ModelDim: 0, NumHeads: 2, KeyDim: 4}},
		{"zero heads", MultiHeadConfig{ModelDim: 4, NumHeads: 0, KeyDim: 4}},
		{"negative key dim", MultiHeadConfig{ModelDim: 4, NumHeads: 2, KeyDim: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMultiHeadAttention(tt.config, rand.New(rand.NewSource(1)))
			assert.Error(t, err)
		})
	}
}

func TestForwardShapeAndParams(t *testing.T) {
	mha := newTestAttention(t, 4)
	x := tensor.Constant(tensor.Uniform(6, 4, -1, 1, rand.New(rand.NewSource(2))))

	out := mha.Forward(x, 3)
	assert.Equal(t, 6, out.Rows())
	assert.Equal(t, 4, out.Cols())
	assert.Len(t, mha.Params(), 8)
	// Two heads of width 4 project q, k and v to 8 columns.
	assert.Equal(t, 8, mha.Params()[0].Cols())
}

func TestForwardKeepsSequencesIndependent(t *testing.T) {
	mha := newTestAttention(t, 4)
	rng := rand.New(rand.NewSource(3))
	first := tensor.Uniform(3, 4, -1, 1, rng)
	second := tensor.Uniform(3, 4, -1, 1, rng)
	other := tensor.Uniform(3, 4, -1, 1, rng)

	a := mha.Forward(tensor.VStack(tensor.Constant(first), tensor.Constant(second)), 3)
	b := mha.Forward(tensor.VStack(tensor.Constant(first), tensor.Constant(other)), 3)

	for i := 0; i < 3; i++ {
		assert.InDeltaSlice(t, a.Row(i), b.Row(i), 1e-12)
	}
}

func TestForwardPanicsOnRaggedBatch(t *testing.T) {
	mha := newTestAttention(t, 4)
	x := tensor.Zeros(5, 4)
	assert.Panics(t, func() { mha.Forward(x, 3) })
}

func TestUtils(t *testing.T) {
	assert.Equal(t, 0.5, Clamp(2, 0, 0.5))
	assert.Equal(t, 0.0, Clamp(-1, 0, 0.5))
	assert.Equal(t, 0.25, Clamp(0.25, 0, 0.5))

	table := PositionTable(2, 3, 4)
	r, c := table.Dims()
	assert.Equal(t, 6, r)
	assert.Equal(t, 4, c)
	assert.Equal(t, table.RawRowView(1), table.RawRowView(4))
	assert.Equal(t, []float64{0, 1, 0, 1}, SinusoidalEncoding(0, 4))
}
