package neural

import (
	"encoding/json"
	"time"
)

// RunRecord is one model's finished continual-learning run.
type RunRecord struct {
	ID        string           `json:"id"`
	Model     string           `json:"model"`
	Seed      int64            `json:"seed"`
	SeqLen    int              `json:"seqLen"`
	VocabSize int              `json:"vocabSize"`
	Config    json.RawMessage  `json:"config,omitempty"`
	Retention *RetentionMatrix `json:"retention"`
	CreatedAt time.Time        `json:"createdAt"`
}

// RunSummary is the listing form of a RunRecord.
type RunSummary struct {
	ID        string    `json:"id"`
	Model     string    `json:"model"`
	Seed      int64     `json:"seed"`
	Stages    int       `json:"stages"`
	CreatedAt time.Time `json:"createdAt"`
}
