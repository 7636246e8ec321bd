// Package curriculum provides the domain types for continual-learning curricula:
// vocabularies, encoded tasks and ordered task definitions.
package curriculum

import "fmt"

// Reserved tokens. Their ids are fixed for every vocabulary.
const (
	PadToken = "<pad>"
	EOSToken = "<eos>"

	PadID = 0
	EOSID = 1
)

// Vocabulary maps tokens to dense non-negative ids.
// It grows only while a curriculum is being built and is immutable once frozen.
type Vocabulary struct {
	tokenToID map[string]int
	idToToken []string
	frozen    bool
}

// NewVocabulary creates a vocabulary holding only the reserved tokens.
func NewVocabulary() *Vocabulary {
	return &Vocabulary{
		tokenToID: map[string]int{PadToken: PadID, EOSToken: EOSID},
		idToToken: []string{PadToken, EOSToken},
	}
}

// Add inserts a token if it is not present and returns its id.
func (v *Vocabulary) Add(token string) (int, error) {
	if id, ok := v.tokenToID[token]; ok {
		return id, nil
	}
	if v.frozen {
		return 0, fmt.Errorf("%w: cannot add %q", ErrVocabularyFrozen, token)
	}

	id := len(v.idToToken)
	v.tokenToID[token] = id
	v.idToToken = append(v.idToToken, token)
	return id, nil
}

// Lookup returns the id of a token.
func (v *Vocabulary) Lookup(token string) (int, error) {
	id, ok := v.tokenToID[token]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownToken, token)
	}
	return id, nil
}

// Token returns the token for an id.
func (v *Vocabulary) Token(id int) (string, bool) {
	if id < 0 || id >= len(v.idToToken) {
		return "", false
	}
	return v.idToToken[id], true
}

// Size returns the number of tokens, reserved ones included.
func (v *Vocabulary) Size() int {
	return len(v.idToToken)
}

// Freeze makes the vocabulary immutable.
func (v *Vocabulary) Freeze() {
	v.frozen = true
}

// Frozen reports whether the vocabulary is immutable.
func (v *Vocabulary) Frozen() bool {
	return v.frozen
}

// Tokens returns the tokens ordered by id.
func (v *Vocabulary) Tokens() []string {
	out := make([]string, len(v.idToToken))
	copy(out, v.idToToken)
	return out
}
