// Package neural provides the continual-learning application services: the
// task-by-task training harness, the retention reporter and the benchmark run.
package neural

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/tiny-nested-learning/hope-go/internal/domain/curriculum"
	domainNeural "github.com/tiny-nested-learning/hope-go/internal/domain/neural"
	"github.com/tiny-nested-learning/hope-go/internal/infrastructure/logging"
	infraNeural "github.com/tiny-nested-learning/hope-go/internal/infrastructure/neural"
)

// StageStats describes one training stage.
type StageStats struct {
	Stage     int           `json:"stage"`
	Task      string        `json:"task"`
	Steps     int           `json:"steps"`
	FinalLoss float64       `json:"finalLoss"`
	EpochLoss []float64     `json:"epochLoss"`
	Duration  time.Duration `json:"duration"`

	// Checkpoint is the checkpoint file written after the stage, if any.
	Checkpoint string `json:"checkpoint,omitempty"`

	// EWC is set when the model was consolidated after the stage.
	EWC *domainNeural.EWCStats `json:"ewc,omitempty"`
}

// ContinualStats contains statistics for one model's continual run.
type ContinualStats struct {
	Model      string        `json:"model"`
	TotalSteps int           `json:"totalSteps"`
	Stages     []StageStats  `json:"stages"`
	Duration   time.Duration `json:"duration"`
}

// ContinualTrainer trains a model on tasks one after another and measures how
// well every task is retained after each stage.
type ContinualTrainer struct {
	config domainNeural.TrainingConfig
	logger logging.Logger
}

// NewContinualTrainer creates a trainer. A nil logger discards output.
func NewContinualTrainer(config domainNeural.TrainingConfig, logger logging.Logger) (*ContinualTrainer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &ContinualTrainer{
		config: config,
		logger: logging.OrNoOp(logger),
	}, nil
}

// Config returns the training schedule.
func (t *ContinualTrainer) Config() domainNeural.TrainingConfig {
	return t.config
}

// Train runs the continual schedule: for each task in order, train it for the
// configured epochs, then evaluate every task. The returned matrix is frozen.
func (t *ContinualTrainer) Train(model domainNeural.Model, tasks []*curriculum.Task) (*domainNeural.RetentionMatrix, *ContinualStats, error) {
	if len(tasks) == 0 {
		return nil, nil, fmt.Errorf("%w: no tasks to train", curriculum.ErrInvalidCurriculum)
	}

	names := make([]string, len(tasks))
	for i, task := range tasks {
		names[i] = task.Name
	}

	start := time.Now()
	rng := rand.New(rand.NewSource(t.config.Seed))
	matrix := domainNeural.NewRetentionMatrix(model.Name(), names)
	stats := &ContinualStats{Model: model.Name()}

	for stage, task := range tasks {
		t.logger.Info("training stage started", "model", model.Name(), "stage", stage, "task", task.Name, "examples", task.Len())

		stageStats, err := t.trainTask(model, task, rng)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to train %s on %s: %w", model.Name(), task.Name, err)
		}
		stageStats.Stage = stage

		scores := make([]float64, len(tasks))
		for e, evalTask := range tasks {
			metrics, err := Evaluate(model, evalTask, t.config.BatchSize)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to evaluate %s on %s: %w", model.Name(), evalTask.Name, err)
			}
			scores[e] = metrics.Accuracy
			t.logger.Debug("task evaluated", "model", model.Name(), "after", task.Name, "task", evalTask.Name, "accuracy", metrics.Accuracy, "loss", metrics.Loss)
		}
		if err := matrix.Record(task.Name, scores); err != nil {
			return nil, nil, err
		}

		if err := t.afterStage(model, task, stage, &stageStats); err != nil {
			return nil, nil, err
		}

		stats.TotalSteps += stageStats.Steps
		stats.Stages = append(stats.Stages, stageStats)
		t.logger.Info("training stage completed", "model", model.Name(), "stage", stage, "task", task.Name,
			"loss", stageStats.FinalLoss, "steps", stageStats.Steps, "duration", stageStats.Duration)
	}

	matrix.Freeze()
	stats.Duration = time.Since(start)
	return matrix, stats, nil
}

func (t *ContinualTrainer) trainTask(model domainNeural.Model, task *curriculum.Task, rng *rand.Rand) (StageStats, error) {
	start := time.Now()
	stats := StageStats{Task: task.Name}

	for epoch := 0; epoch < t.config.Epochs; epoch++ {
		order := rng.Perm(task.Len())
		lossSum, count := 0.0, 0.0
		for from := 0; from < len(order); from += t.config.BatchSize {
			to := min(from+t.config.BatchSize, len(order))
			inputs, targets := task.Batch(order[from:to])

			metrics, err := model.TrainBatch(inputs, targets)
			if err != nil {
				return stats, fmt.Errorf("epoch %d: %w", epoch, err)
			}
			stats.Steps++
			lossSum += metrics.Loss * float64(to-from)
			count += float64(to - from)
		}

		epochLoss := lossSum / count
		stats.EpochLoss = append(stats.EpochLoss, epochLoss)
		stats.FinalLoss = epochLoss
		t.logger.Debug("epoch completed", "model", model.Name(), "task", task.Name, "epoch", epoch+1, "loss", epochLoss)
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

// afterStage runs the optional consolidation and checkpoint steps.
func (t *ContinualTrainer) afterStage(model domainNeural.Model, task *curriculum.Task, stage int, stats *StageStats) error {
	ewc := t.config.EWC()
	if consolidator, ok := model.(domainNeural.Consolidator); ok && ewc.Enabled() {
		ewcStats, err := consolidator.Consolidate(Batches(task, t.config.BatchSize), ewc)
		if err != nil {
			return fmt.Errorf("failed to consolidate %s after %s: %w", model.Name(), task.Name, err)
		}
		stats.EWC = &ewcStats
		t.logger.Info("model consolidated", "model", model.Name(), "task", task.Name,
			"tasks", ewcStats.TaskCount, "meanImportance", ewcStats.MeanImportance)
	}

	if checkpointer, ok := model.(domainNeural.Checkpointer); ok && t.config.CheckpointDir != "" {
		checkpoint := checkpointer.Checkpoint()
		checkpoint.Stage = stage
		checkpoint.Task = task.Name
		path, err := infraNeural.SaveCheckpoint(t.config.CheckpointDir, checkpoint)
		if err != nil {
			return fmt.Errorf("failed to checkpoint %s after %s: %w", model.Name(), task.Name, err)
		}
		stats.Checkpoint = path
		t.logger.Info("checkpoint saved", "model", model.Name(), "task", task.Name, "path", path)
	}
	return nil
}

// Batches splits a task into consecutive batches in example order.
func Batches(task *curriculum.Task, batchSize int) []domainNeural.Batch {
	var batches []domainNeural.Batch
	indices := make([]int, 0, batchSize)
	for from := 0; from < task.Len(); from += batchSize {
		to := min(from+batchSize, task.Len())
		indices = indices[:0]
		for i := from; i < to; i++ {
			indices = append(indices, i)
		}
		inputs, targets := task.Batch(indices)
		batches = append(batches, domainNeural.Batch{Inputs: inputs, Targets: targets})
	}
	return batches
}

// Evaluate measures a model on a whole task in order, without training.
// Accuracy and loss are weighted by the positions each batch contributes.
func Evaluate(model domainNeural.Model, task *curriculum.Task, batchSize int) (domainNeural.BatchMetrics, error) {
	var total domainNeural.BatchMetrics
	lossSum := 0.0
	for _, batch := range Batches(task, batchSize) {
		metrics, err := model.EvaluateBatch(batch.Inputs, batch.Targets)
		if err != nil {
			return domainNeural.BatchMetrics{}, err
		}
		total.Correct += metrics.Correct
		total.Count += metrics.Count
		lossSum += metrics.Loss * metrics.Count
	}
	if total.Count > 0 {
		total.Accuracy = total.Correct / total.Count
		total.Loss = lossSum / total.Count
	}
	return total, nil
}
