package curriculum

import "errors"

var (
	// ErrUnknownToken is returned when a token is absent from the vocabulary.
	ErrUnknownToken = errors.New("unknown token")

	// ErrMalformedTask is returned when task inputs and targets disagree in shape.
	ErrMalformedTask = errors.New("malformed task")

	// ErrInvalidCurriculum is returned for empty, unnamed or duplicated curriculum entries.
	ErrInvalidCurriculum = errors.New("invalid curriculum")

	// ErrVocabularyFrozen is returned when adding to a frozen vocabulary.
	ErrVocabularyFrozen = errors.New("vocabulary is frozen")
)
