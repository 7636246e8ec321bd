package curriculum

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/tiny-nested-learning/hope-go/internal/domain/curriculum"
)

func TestBuildVocabularySize(t *testing.T) {
	def := domain.DefaultDefinition()
	vocab := BuildVocabulary(def)

	distinct := map[string]bool{}
	for _, task := range def {
		for _, s := range task.Sentences {
			for _, w := range strings.Fields(s) {
				distinct[w] = true
			}
		}
	}

	assert.Equal(t, len(distinct)+2, vocab.Size())
	assert.True(t, vocab.Frozen())

	id, err := vocab.Lookup("i")
	require.NoError(t, err)
	assert.Equal(t, 2, id, "first word of the curriculum gets the first free id")
}

func TestEncodeSentenceAlwaysFixedLength(t *testing.T) {
	def := domain.DefaultDefinition()
	vocab := BuildVocabulary(def)

	for _, task := range def {
		for _, sentence := range task.Sentences {
			for seqLen := 1; seqLen <= 14; seqLen++ {
				x, y, err := EncodeSentence(sentence, vocab, seqLen)
				require.NoError(t, err)
				assert.Len(t, x, seqLen, "inputs for %q at L=%d", sentence, seqLen)
				assert.Len(t, y, seqLen, "targets for %q at L=%d", sentence, seqLen)
			}
		}
	}
}

func TestEncodeSentenceShiftAndPadding(t *testing.T) {
	vocab := BuildVocabulary(domain.Definition{{Name: "A", Sentences: []string{"a b c"}}})
	a, _ := vocab.Lookup("a")
	b, _ := vocab.Lookup("b")
	c, _ := vocab.Lookup("c")

	tests := []struct {
		name        string
		seqLen      int
		wantInputs  []int
		wantTargets []int
	}{
		{name: "padded", seqLen: 6, wantInputs: []int{a, b, c, domain.EOSID, 0, 0}, wantTargets: []int{b, c, domain.EOSID, 0, 0, 0}},
		{name: "exact", seqLen: 4, wantInputs: []int{a, b, c, domain.EOSID}, wantTargets: []int{b, c, domain.EOSID, 0}},
		{name: "eos dropped", seqLen: 3, wantInputs: []int{a, b, c}, wantTargets: []int{b, c, 0}},
		{name: "truncated", seqLen: 2, wantInputs: []int{a, b}, wantTargets: []int{b, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, err := EncodeSentence("a b c", vocab, tt.seqLen)
			require.NoError(t, err)
			assert.Equal(t, tt.wantInputs, x)
			assert.Equal(t, tt.wantTargets, y)
		})
	}
}

func TestEncodeSentenceUnknownToken(t *testing.T) {
	vocab := BuildVocabulary(domain.Definition{{Name: "A", Sentences: []string{"a b"}}})

	_, _, err := EncodeSentence("a zebra", vocab, 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnknownToken))
}

func TestMakeTaskReplicates(t *testing.T) {
	vocab := BuildVocabulary(domain.DefaultDefinition())

	task, err := MakeTask("T", []string{"i pack my small bag for the train", "i take a cab to the busy airport"}, vocab, 10, 3)
	require.NoError(t, err)
	assert.Equal(t, 6, task.Len())
	assert.Equal(t, task.Inputs[0], task.Inputs[2])
	assert.NotEqual(t, task.Inputs[0], task.Inputs[3])
}

func TestBuildDefaultCurriculum(t *testing.T) {
	opts := DefaultEncoderOptions()
	opts.RepeatsPerSentence = 2

	cur, err := Build(domain.DefaultDefinition(), opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"Task_0", "Task_1"}, cur.TaskNames())
	assert.Equal(t, 10, cur.SeqLen, "longest sentence has nine words plus <eos>")
	for _, task := range cur.Tasks {
		assert.Equal(t, 8, task.Len())
		assert.Equal(t, cur.SeqLen, task.SeqLen)
	}

	decoded := Decode(cur.Tasks[0].Inputs[0], cur.Vocabulary)
	assert.True(t, strings.HasPrefix(decoded, "i pack my small bag for the train <eos>"), decoded)
}

func TestBuildRejectsInvalidDefinition(t *testing.T) {
	_, err := Build(domain.Definition{}, DefaultEncoderOptions())
	assert.True(t, errors.Is(err, domain.ErrInvalidCurriculum))
}
