// Package neural provides the domain types shared by the sequence models and the
// continual-learning harness.
package neural

import "fmt"

// Backend names a sequence model family.
type Backend string

const (
	BackendHope        Backend = "hope"
	BackendTransformer Backend = "transformer"
)

// HopeConfig holds hyperparameters for the multi-timescale memory model.
type HopeConfig struct {
	VocabSize int `json:"vocabSize"`
	SeqLen    int `json:"seqLen"`

	// Units is the width of the embedding and of every memory state.
	Units int `json:"units"`

	// Rates are the base update rates, fastest first. The last one is the slow
	// timescale and is never modulated.
	Rates []float64 `json:"rates"`

	// RateMargin bounds how far a modulated rate may exceed its base.
	RateMargin float64 `json:"rateMargin"`

	Dropout      float64 `json:"dropout"`
	LearningRate float64 `json:"learningRate"`

	// ClipNorm clips the global gradient norm when positive.
	ClipNorm float64 `json:"clipNorm"`

	// MaskPadding excludes padding targets from loss and accuracy.
	MaskPadding bool `json:"maskPadding"`

	Seed int64 `json:"seed"`
}

// DefaultHopeConfig returns the reference configuration for a vocabulary and window.
func DefaultHopeConfig(vocabSize, seqLen int) HopeConfig {
	return HopeConfig{
		VocabSize:    vocabSize,
		SeqLen:       seqLen,
		Units:        96,
		Rates:        []float64{0.6, 0.3, 0.02},
		RateMargin:   0.05,
		Dropout:      0,
		LearningRate: 7e-4,
		Seed:         7,
	}
}

// Validate checks the configuration.
func (c HopeConfig) Validate() error {
	if c.VocabSize <= 2 || c.SeqLen <= 0 || c.Units <= 0 {
		return fmt.Errorf("%w: hope vocab=%d seqLen=%d units=%d", ErrInvalidConfig, c.VocabSize, c.SeqLen, c.Units)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("%w: hope learning rate %v", ErrInvalidConfig, c.LearningRate)
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return fmt.Errorf("%w: hope dropout %v", ErrInvalidConfig, c.Dropout)
	}
	if c.RateMargin < 0 {
		return fmt.Errorf("%w: negative rate margin %v", ErrInvalidConfig, c.RateMargin)
	}
	return ValidateRates(c.Rates)
}

// ValidateRates checks that every rate lies in [0,1] and that rates strictly decrease.
func ValidateRates(rates []float64) error {
	if len(rates) == 0 {
		return fmt.Errorf("%w: no timescales", ErrInvalidRates)
	}
	for i, r := range rates {
		if r < 0 || r > 1 {
			return fmt.Errorf("%w: rate %d is %v", ErrInvalidRates, i, r)
		}
		if i > 0 && r >= rates[i-1] {
			return fmt.Errorf("%w: rate %d (%v) does not decrease from %v", ErrInvalidRates, i, r, rates[i-1])
		}
	}
	return nil
}

// TransformerConfig holds hyperparameters for the self-attention baseline.
type TransformerConfig struct {
	VocabSize int `json:"vocabSize"`
	SeqLen    int `json:"seqLen"`

	ModelDim  int `json:"modelDim"`
	NumHeads  int `json:"numHeads"`
	KeyDim    int `json:"keyDim"`
	FFDim     int `json:"ffDim"`
	NumLayers int `json:"numLayers"`

	Dropout float64 `json:"dropout"`

	// PositionalEncoding adds sinusoidal positions to the embeddings.
	PositionalEncoding bool `json:"positionalEncoding"`

	LearningRate float64 `json:"learningRate"`
	ClipNorm     float64 `json:"clipNorm"`
	MaskPadding  bool    `json:"maskPadding"`
	Seed         int64   `json:"seed"`
}

// DefaultTransformerConfig returns the reference configuration for a vocabulary and window.
func DefaultTransformerConfig(vocabSize, seqLen int) TransformerConfig {
	return TransformerConfig{
		VocabSize:    vocabSize,
		SeqLen:       seqLen,
		ModelDim:     64,
		NumHeads:     2,
		KeyDim:       64,
		FFDim:        128,
		NumLayers:    2,
		Dropout:      0.1,
		LearningRate: 2e-3,
		Seed:         7,
	}
}

// Validate checks the configuration.
func (c TransformerConfig) Validate() error {
	if c.VocabSize <= 2 || c.SeqLen <= 0 {
		return fmt.Errorf("%w: transformer vocab=%d seqLen=%d", ErrInvalidConfig, c.VocabSize, c.SeqLen)
	}
	if c.ModelDim <= 0 || c.NumHeads <= 0 || c.KeyDim <= 0 || c.FFDim <= 0 || c.NumLayers <= 0 {
		return fmt.Errorf("%w: transformer dims %+v", ErrInvalidConfig, c)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("%w: transformer learning rate %v", ErrInvalidConfig, c.LearningRate)
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return fmt.Errorf("%w: transformer dropout %v", ErrInvalidConfig, c.Dropout)
	}
	return nil
}

// TrainingConfig holds the continual-training schedule.
type TrainingConfig struct {
	Epochs    int   `json:"epochs"`
	BatchSize int   `json:"batchSize"`
	Seed      int64 `json:"seed"`

	// EWCLambda enables consolidation between tasks when positive.
	EWCLambda float64 `json:"ewcLambda"`
	EWCGamma  float64 `json:"ewcGamma"`

	// CheckpointDir receives a checkpoint file after every task when set.
	CheckpointDir string `json:"checkpointDir,omitempty"`
}

// DefaultTrainingConfig returns the reference schedule.
func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		Epochs:    5,
		BatchSize: 64,
		Seed:      7,
		EWCGamma:  0.9,
	}
}

// Validate checks the schedule.
func (c TrainingConfig) Validate() error {
	if c.Epochs <= 0 || c.BatchSize <= 0 {
		return fmt.Errorf("%w: epochs=%d batchSize=%d", ErrInvalidConfig, c.Epochs, c.BatchSize)
	}
	if c.EWCLambda < 0 || c.EWCGamma < 0 || c.EWCGamma > 1 {
		return fmt.Errorf("%w: ewc lambda=%v gamma=%v", ErrInvalidConfig, c.EWCLambda, c.EWCGamma)
	}
	return nil
}

// EWC returns the consolidation settings derived from the schedule.
func (c TrainingConfig) EWC() EWCConfig {
	cfg := DefaultEWCConfig()
	cfg.Lambda = c.EWCLambda
	cfg.Gamma = c.EWCGamma
	return cfg
}
