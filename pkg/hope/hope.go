// Package hope provides the public API for hope-go.
//
// This package runs the continual-learning benchmark: a multi-timescale memory
// model and a self-attention baseline are trained on a curriculum one task at a
// time, and their retention of earlier tasks is measured after every task.
//
// Example:
//
//	result, err := hope.Run(7, hope.DefaultCurriculum())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Comparison.Verdict)
package hope

import (
	appCurriculum "github.com/tiny-nested-learning/hope-go/internal/application/curriculum"
	appNeural "github.com/tiny-nested-learning/hope-go/internal/application/neural"
	"github.com/tiny-nested-learning/hope-go/internal/domain/curriculum"
	domainNeural "github.com/tiny-nested-learning/hope-go/internal/domain/neural"
	"github.com/tiny-nested-learning/hope-go/internal/infrastructure/logging"
	infraNeural "github.com/tiny-nested-learning/hope-go/internal/infrastructure/neural"
)

// Re-export types for public API
type (
	// Curriculum types
	Definition     = curriculum.Definition
	TaskSentences  = curriculum.TaskSentences
	Task           = curriculum.Task
	Curriculum     = curriculum.Curriculum
	Vocabulary     = curriculum.Vocabulary
	EncoderOptions = appCurriculum.EncoderOptions

	// Model types
	Model             = domainNeural.Model
	BatchMetrics      = domainNeural.BatchMetrics
	Backend           = domainNeural.Backend
	HopeConfig        = domainNeural.HopeConfig
	TransformerConfig = domainNeural.TransformerConfig
	TrainingConfig    = domainNeural.TrainingConfig
	HopeModel         = infraNeural.HopeModel
	TransformerModel  = infraNeural.TransformerModel

	// Harness types
	RetentionMatrix  = domainNeural.RetentionMatrix
	ContinualTrainer = appNeural.ContinualTrainer
	ContinualStats   = appNeural.ContinualStats
	Comparison       = appNeural.Comparison
	RunOptions       = appNeural.RunOptions
	Result           = appNeural.Result
	ModelRun         = appNeural.ModelRun

	// Logging
	Logger = logging.Logger
)

// Backends
const (
	BackendHope        = domainNeural.BackendHope
	BackendTransformer = domainNeural.BackendTransformer
)

// Errors
var (
	ErrInvalidCurriculum   = curriculum.ErrInvalidCurriculum
	ErrUnknownToken        = curriculum.ErrUnknownToken
	ErrMalformedTask       = curriculum.ErrMalformedTask
	ErrInvalidRates        = domainNeural.ErrInvalidRates
	ErrInvalidConfig       = domainNeural.ErrInvalidConfig
	ErrNumericalDivergence = domainNeural.ErrNumericalDivergence
)

// DefaultCurriculum returns the built-in two-task travel story.
func DefaultCurriculum() Definition {
	return curriculum.DefaultDefinition()
}

// ParseCurriculum decodes a JSON curriculum definition.
func ParseCurriculum(data []byte) (Definition, error) {
	return curriculum.ParseDefinition(data)
}

// BuildCurriculum encodes a definition into tasks over a shared vocabulary.
func BuildCurriculum(def Definition, opts EncoderOptions) (*Curriculum, error) {
	return appCurriculum.Build(def, opts)
}

// Run trains the Transformer and then HOPE on def with reference settings.
func Run(seed int64, def Definition) (*Result, error) {
	return appNeural.Run(seed, def)
}

// RunWithOptions is Run with every knob exposed.
func RunWithOptions(def Definition, opts RunOptions) (*Result, error) {
	return appNeural.RunWithOptions(def, opts)
}

// DefaultRunOptions returns the reference benchmark settings for seed.
func DefaultRunOptions(seed int64) RunOptions {
	return appNeural.DefaultRunOptions(seed)
}

// NewHopeModel creates a HOPE model.
func NewHopeModel(config HopeConfig) (*HopeModel, error) {
	return infraNeural.NewHopeModel(config)
}

// NewTransformerModel creates the self-attention baseline.
func NewTransformerModel(config TransformerConfig) (*TransformerModel, error) {
	return infraNeural.NewTransformerModel(config)
}

// NewContinualTrainer creates the task-by-task harness. A nil logger discards output.
func NewContinualTrainer(config TrainingConfig, logger Logger) (*ContinualTrainer, error) {
	return appNeural.NewContinualTrainer(config, logger)
}

// Forgetting returns first-task accuracy after the last stage minus after the first.
func Forgetting(m *RetentionMatrix) (float64, error) {
	return appNeural.FirstTaskForgetting(m)
}
