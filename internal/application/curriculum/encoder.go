// Package curriculum encodes raw curriculum sentences into fixed-length token id tasks.
package curriculum

import (
	"fmt"
	"strings"

	domain "github.com/tiny-nested-learning/hope-go/internal/domain/curriculum"
)

// EncoderOptions configures curriculum encoding.
type EncoderOptions struct {
	// SeqLen forces the sequence length. Zero derives it from the longest sentence plus <eos>.
	SeqLen int `json:"seqLen"`

	// RepeatsPerSentence replicates every sentence to reduce variance on tiny corpora.
	RepeatsPerSentence int `json:"repeatsPerSentence"`
}

// DefaultEncoderOptions returns the default encoder options.
func DefaultEncoderOptions() EncoderOptions {
	return EncoderOptions{
		SeqLen:             0,
		RepeatsPerSentence: 128,
	}
}

// BuildVocabulary collects every whitespace-separated word of the definition in
// first-seen order. The returned vocabulary is frozen.
func BuildVocabulary(def domain.Definition) *domain.Vocabulary {
	vocab := domain.NewVocabulary()
	for _, task := range def {
		for _, sentence := range task.Sentences {
			for _, word := range strings.Fields(sentence) {
				// Cannot fail: the vocabulary is not frozen yet.
				_, _ = vocab.Add(word)
			}
		}
	}
	vocab.Freeze()
	return vocab
}

// Tokenize splits a sentence on whitespace and appends <eos>.
func Tokenize(sentence string) []string {
	return append(strings.Fields(sentence), domain.EOSToken)
}

// EncodeSentence converts a sentence into an input row and its next-token target row,
// both exactly seqLen long. Tokens past seqLen are dropped, <eos> included.
func EncodeSentence(sentence string, vocab *domain.Vocabulary, seqLen int) (inputs, targets []int, err error) {
	if seqLen <= 0 {
		return nil, nil, fmt.Errorf("%w: sequence length %d", domain.ErrMalformedTask, seqLen)
	}

	tokens := Tokenize(sentence)
	if len(tokens) > seqLen {
		tokens = tokens[:seqLen]
	}
	for len(tokens) < seqLen {
		tokens = append(tokens, domain.PadToken)
	}

	inputs = make([]int, seqLen)
	for i, tok := range tokens {
		id, err := vocab.Lookup(tok)
		if err != nil {
			return nil, nil, err
		}
		inputs[i] = id
	}

	targets = make([]int, seqLen)
	copy(targets, inputs[1:])
	targets[seqLen-1] = domain.PadID

	return inputs, targets, nil
}

// Decode renders ids as a space-separated token string.
func Decode(ids []int, vocab *domain.Vocabulary) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		tok, ok := vocab.Token(id)
		if !ok {
			tok = fmt.Sprintf("<%d?>", id)
		}
		parts[i] = tok
	}
	return strings.Join(parts, " ")
}

// MakeTask encodes sentences into a task, replicating each sentence repeats times.
func MakeTask(name string, sentences []string, vocab *domain.Vocabulary, seqLen, repeats int) (*domain.Task, error) {
	if repeats <= 0 {
		repeats = 1
	}

	inputs := make([][]int, 0, len(sentences)*repeats)
	targets := make([][]int, 0, len(sentences)*repeats)
	for _, sentence := range sentences {
		x, y, err := EncodeSentence(sentence, vocab, seqLen)
		if err != nil {
			return nil, fmt.Errorf("failed to encode task %s: %w", name, err)
		}
		for r := 0; r < repeats; r++ {
			inputs = append(inputs, x)
			targets = append(targets, y)
		}
	}

	return domain.NewTask(name, inputs, targets, seqLen)
}

// MaxTokens returns the longest sentence length in words plus one for <eos>.
func MaxTokens(def domain.Definition) int {
	longest := 0
	for _, task := range def {
		for _, s := range task.Sentences {
			if n := len(strings.Fields(s)); n > longest {
				longest = n
			}
		}
	}
	return longest + 1
}

// Build validates the definition, builds the shared vocabulary from the whole curriculum
// and encodes every task in order.
func Build(def domain.Definition, opts EncoderOptions) (*domain.Curriculum, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	vocab := BuildVocabulary(def)
	seqLen := opts.SeqLen
	if seqLen <= 0 {
		seqLen = MaxTokens(def)
	}

	tasks := make([]*domain.Task, 0, len(def))
	for _, ts := range def {
		task, err := MakeTask(ts.Name, ts.Sentences, vocab, seqLen, opts.RepeatsPerSentence)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return &domain.Curriculum{
		Tasks:      tasks,
		Vocabulary: vocab,
		SeqLen:     seqLen,
	}, nil
}
