// Package commands provides CLI command implementations.
package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	appNeural "github.com/tiny-nested-learning/hope-go/internal/application/neural"
	"github.com/tiny-nested-learning/hope-go/internal/domain/curriculum"
	domainNeural "github.com/tiny-nested-learning/hope-go/internal/domain/neural"
	"github.com/tiny-nested-learning/hope-go/internal/infrastructure/console"
	"github.com/tiny-nested-learning/hope-go/internal/infrastructure/logging"
	infraNeural "github.com/tiny-nested-learning/hope-go/internal/infrastructure/neural"
)

// Flag variables for the run command
var (
	runSeed          int64
	runEpochs        int
	runBatchSize     int
	runRepeats       int
	runSeqLen        int
	runBackend       string
	runCurriculum    string
	runReverse       bool
	runDB            string
	runCheckpointDir string
	runMaskPadding   bool
	runEWCLambda     float64
	runEWCGamma      float64
	runLogLevel      string
	runLogFormat     string
	runNoColor       bool
	runJSON          bool
)

// RunCmd trains the models through the curriculum and prints the retention report.
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the continual learning benchmark",
	Long: `Train the Transformer baseline and then the HOPE model on every task of the
curriculum in order. After each task every task is evaluated, and the
resulting retention matrices are printed together with a comparison of how
well each model remembers the first task.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := loadDefinition(runCurriculum)
		if err != nil {
			return err
		}
		if runReverse {
			def = def.Reversed()
		}

		backends, err := appNeural.ParseBackends(runBackend)
		if err != nil {
			return err
		}

		logger, err := newLogger(runLogLevel, runLogFormat)
		if err != nil {
			return err
		}

		opts := appNeural.DefaultRunOptions(runSeed)
		opts.Encoder.SeqLen = runSeqLen
		opts.Encoder.RepeatsPerSentence = runRepeats
		opts.Training.Epochs = runEpochs
		opts.Training.BatchSize = runBatchSize
		opts.Training.EWCLambda = runEWCLambda
		opts.Training.EWCGamma = runEWCGamma
		opts.Training.CheckpointDir = runCheckpointDir
		opts.Backends = backends
		opts.MaskPadding = runMaskPadding
		opts.Logger = logger

		result, err := appNeural.RunWithOptions(def, opts)
		if err != nil {
			return err
		}

		var saved []string
		if runDB != "" {
			saved, err = saveResult(runDB, result)
			if err != nil {
				return err
			}
		}

		if runJSON {
			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode result: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		palette := console.ForFile(os.Stdout, runNoColor)
		fmt.Printf("Vocabulary size: %d\n", result.VocabSize)
		fmt.Printf("Sequence length: %d\n", result.SeqLen)
		fmt.Printf("Tasks: %s\n", strings.Join(result.Tasks, ", "))

		for _, run := range result.Runs() {
			if err := appNeural.WriteTable(os.Stdout, run.Model, run.Retention, palette); err != nil {
				return err
			}
		}
		if result.Comparison != nil {
			if err := appNeural.WriteSummary(os.Stdout, result.Comparison, palette); err != nil {
				return err
			}
		}
		for _, id := range saved {
			fmt.Printf("Saved run %s to %s\n", id, runDB)
		}
		return nil
	},
}

func saveResult(path string, result *appNeural.Result) ([]string, error) {
	config := infraNeural.DefaultRunStoreConfig()
	config.DBPath = path
	store, err := infraNeural.NewRunStore(config)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	var ids []string
	for _, run := range result.Runs() {
		id, err := store.SaveRun(&domainNeural.RunRecord{
			Model:     run.Model,
			Seed:      result.Seed,
			SeqLen:    result.SeqLen,
			VocabSize: result.VocabSize,
			Config:    run.Config,
			Retention: run.Retention,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to save %s run: %w", run.Model, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// loadDefinition reads a JSON curriculum file, or returns the built-in story when path is empty.
func loadDefinition(path string) (curriculum.Definition, error) {
	if path == "" {
		return curriculum.DefaultDefinition(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curriculum: %w", err)
	}
	def, err := curriculum.ParseDefinition(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

func newLogger(level, format string) (logging.Logger, error) {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := logging.DefaultLoggerConfig()
	cfg.Level = lvl
	cfg.Format = format
	cfg.Output = os.Stderr
	cfg.Component = "hope"
	return logging.NewLogger(cfg), nil
}

func init() {
	training := domainNeural.DefaultTrainingConfig()

	RunCmd.Flags().Int64VarP(&runSeed, "seed", "s", training.Seed, "Random seed for weights, shuffling and dropout")
	RunCmd.Flags().IntVarP(&runEpochs, "epochs", "e", training.Epochs, "Training epochs per task")
	RunCmd.Flags().IntVarP(&runBatchSize, "batch-size", "b", training.BatchSize, "Batch size")
	RunCmd.Flags().IntVarP(&runRepeats, "repeats", "r", 128, "Copies of every sentence per task")
	RunCmd.Flags().IntVar(&runSeqLen, "seq-len", 0, "Force the sequence length (0 derives it from the curriculum)")
	RunCmd.Flags().StringVar(&runBackend, "backend", "all", "Models to train (all|hope|transformer)")
	RunCmd.Flags().StringVarP(&runCurriculum, "curriculum", "c", "", "Curriculum JSON file (default: built-in story)")
	RunCmd.Flags().BoolVar(&runReverse, "reverse", false, "Present the tasks in reverse order")
	RunCmd.Flags().StringVar(&runDB, "db", "", "SQLite file to record the run in")
	RunCmd.Flags().StringVar(&runCheckpointDir, "checkpoint-dir", "", "Directory for per-task checkpoints")
	RunCmd.Flags().BoolVar(&runMaskPadding, "mask-padding", false, "Exclude padding targets from loss and accuracy")
	RunCmd.Flags().Float64Var(&runEWCLambda, "ewc-lambda", training.EWCLambda, "EWC penalty strength (0 disables consolidation)")
	RunCmd.Flags().Float64Var(&runEWCGamma, "ewc-gamma", training.EWCGamma, "EWC Fisher decay across tasks")
	RunCmd.Flags().StringVar(&runLogLevel, "log-level", "warn", "Log level (debug|info|warn|error)")
	RunCmd.Flags().StringVar(&runLogFormat, "log-format", "text", "Log format (text|json)")
	RunCmd.Flags().BoolVar(&runNoColor, "no-color", false, "Disable colored output")
	RunCmd.Flags().BoolVar(&runJSON, "json", false, "Print the result as JSON")
}
