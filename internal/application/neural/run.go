package neural

import (
	"encoding/json"
	"fmt"

	curriculumApp "github.com/tiny-nested-learning/hope-go/internal/application/curriculum"
	"github.com/tiny-nested-learning/hope-go/internal/domain/curriculum"
	domainNeural "github.com/tiny-nested-learning/hope-go/internal/domain/neural"
	"github.com/tiny-nested-learning/hope-go/internal/infrastructure/logging"
	infraNeural "github.com/tiny-nested-learning/hope-go/internal/infrastructure/neural"
)

// RunOptions configures a benchmark run.
type RunOptions struct {
	Seed     int64
	Encoder  curriculumApp.EncoderOptions
	Training domainNeural.TrainingConfig

	// Backends selects which models to train, in order. Empty means Transformer then HOPE.
	Backends []domainNeural.Backend

	// MaskPadding excludes padding targets from every model's loss and accuracy.
	MaskPadding bool

	// ConfigureHope and ConfigureTransformer adjust the defaults derived from the
	// curriculum before the models are built.
	ConfigureHope        func(*domainNeural.HopeConfig)
	ConfigureTransformer func(*domainNeural.TransformerConfig)

	Logger logging.Logger
}

// DefaultRunOptions returns the reference benchmark settings.
func DefaultRunOptions(seed int64) RunOptions {
	training := domainNeural.DefaultTrainingConfig()
	training.Seed = seed
	return RunOptions{
		Seed:     seed,
		Encoder:  curriculumApp.DefaultEncoderOptions(),
		Training: training,
	}
}

// ModelRun is the outcome of training one model through the curriculum.
type ModelRun struct {
	Model     string                       `json:"model"`
	Backend   domainNeural.Backend         `json:"backend"`
	Retention *domainNeural.RetentionMatrix `json:"retention"`
	Stats     *ContinualStats              `json:"stats"`
	Config    json.RawMessage              `json:"config"`
}

// Result is the outcome of a benchmark run.
type Result struct {
	Seed       int64                  `json:"seed"`
	VocabSize  int                    `json:"vocabSize"`
	SeqLen     int                    `json:"seqLen"`
	Tasks      []string               `json:"tasks"`
	Vocabulary *curriculum.Vocabulary `json:"-"`

	Transformer *ModelRun `json:"transformer,omitempty"`
	Hope        *ModelRun `json:"hope,omitempty"`

	// Comparison is set when both models ran. A is the Transformer, B is HOPE.
	Comparison *Comparison `json:"comparison,omitempty"`
}

// Runs returns the model runs in training order.
func (r *Result) Runs() []*ModelRun {
	var runs []*ModelRun
	if r.Transformer != nil {
		runs = append(runs, r.Transformer)
	}
	if r.Hope != nil {
		runs = append(runs, r.Hope)
	}
	return runs
}

// Run builds the curriculum, trains the Transformer and then HOPE with reference
// settings, and compares their retention of the first task.
func Run(seed int64, def curriculum.Definition) (*Result, error) {
	return RunWithOptions(def, DefaultRunOptions(seed))
}

// RunWithOptions is Run with every knob exposed.
func RunWithOptions(def curriculum.Definition, opts RunOptions) (*Result, error) {
	cur, err := curriculumApp.Build(def, opts.Encoder)
	if err != nil {
		return nil, fmt.Errorf("failed to build curriculum: %w", err)
	}

	trainer, err := NewContinualTrainer(opts.Training, opts.Logger)
	if err != nil {
		return nil, err
	}

	backends := opts.Backends
	if len(backends) == 0 {
		backends = []domainNeural.Backend{domainNeural.BackendTransformer, domainNeural.BackendHope}
	}

	result := &Result{
		Seed:       opts.Seed,
		VocabSize:  cur.Vocabulary.Size(),
		SeqLen:     cur.SeqLen,
		Tasks:      cur.TaskNames(),
		Vocabulary: cur.Vocabulary,
	}

	for _, backend := range backends {
		model, config, err := buildModel(backend, cur, opts)
		if err != nil {
			return nil, err
		}

		matrix, stats, err := trainer.Train(model, cur.Tasks)
		if err != nil {
			return nil, err
		}

		run := &ModelRun{
			Model:     model.Name(),
			Backend:   backend,
			Retention: matrix,
			Stats:     stats,
			Config:    config,
		}
		switch backend {
		case domainNeural.BackendHope:
			result.Hope = run
		case domainNeural.BackendTransformer:
			result.Transformer = run
		}
	}

	if result.Transformer != nil && result.Hope != nil {
		cmp, err := Compare(result.Transformer.Retention, result.Hope.Retention)
		if err != nil {
			return nil, err
		}
		result.Comparison = cmp
	}
	return result, nil
}

func buildModel(backend domainNeural.Backend, cur *curriculum.Curriculum, opts RunOptions) (domainNeural.Model, json.RawMessage, error) {
	vocab, seqLen := cur.Vocabulary.Size(), cur.SeqLen

	switch backend {
	case domainNeural.BackendHope:
		cfg := domainNeural.DefaultHopeConfig(vocab, seqLen)
		cfg.Seed = opts.Seed
		cfg.MaskPadding = opts.MaskPadding
		if opts.ConfigureHope != nil {
			opts.ConfigureHope(&cfg)
		}
		model, err := infraNeural.NewHopeModel(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build HOPE model: %w", err)
		}
		raw, err := json.Marshal(cfg)
		return model, raw, err

	case domainNeural.BackendTransformer:
		cfg := domainNeural.DefaultTransformerConfig(vocab, seqLen)
		cfg.Seed = opts.Seed
		cfg.MaskPadding = opts.MaskPadding
		if opts.ConfigureTransformer != nil {
			opts.ConfigureTransformer(&cfg)
		}
		model, err := infraNeural.NewTransformerModel(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build Transformer model: %w", err)
		}
		raw, err := json.Marshal(cfg)
		return model, raw, err
	}
	return nil, nil, fmt.Errorf("%w: unknown backend %q", domainNeural.ErrInvalidConfig, backend)
}

// ParseBackends converts "all", "hope" or "transformer" into backends in training order.
func ParseBackends(name string) ([]domainNeural.Backend, error) {
	switch domainNeural.Backend(name) {
	case "", "all":
		return []domainNeural.Backend{domainNeural.BackendTransformer, domainNeural.BackendHope}, nil
	case domainNeural.BackendHope:
		return []domainNeural.Backend{domainNeural.BackendHope}, nil
	case domainNeural.BackendTransformer:
		return []domainNeural.Backend{domainNeural.BackendTransformer}, nil
	}
	return nil, fmt.Errorf("%w: unknown backend %q", domainNeural.ErrInvalidConfig, name)
}
