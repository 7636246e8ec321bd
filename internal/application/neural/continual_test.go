package neural

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiny-nested-learning/hope-go/internal/domain/curriculum"
	domainNeural "github.com/tiny-nested-learning/hope-go/internal/domain/neural"
	"github.com/tiny-nested-learning/hope-go/internal/infrastructure/console"
)

// scriptedModel reports accuracies from a fixed table indexed by the number of
// completed training stages and the evaluated task. Tasks are told apart by the
// first input id of each row: task i uses id i+2.
type scriptedModel struct {
	scores [][]float64
	calls  []string
	stage  int
	last   int
}

func (m *scriptedModel) Name() string { return "Scripted" }

func (m *scriptedModel) Predict(inputs [][]int) ([][][]float64, error) { return nil, nil }

func (m *scriptedModel) TrainBatch(inputs, targets [][]int) (domainNeural.BatchMetrics, error) {
	task := inputs[0][0] - 2
	if task != m.last {
		m.stage++
		m.last = task
	}
	m.record("train", task)
	return domainNeural.BatchMetrics{Loss: 1, Count: float64(len(inputs))}, nil
}

func (m *scriptedModel) EvaluateBatch(inputs, targets [][]int) (domainNeural.BatchMetrics, error) {
	task := inputs[0][0] - 2
	m.record("eval", task)
	count := float64(len(inputs) * len(inputs[0]))
	acc := m.scores[m.stage-1][task]
	return domainNeural.BatchMetrics{Loss: 1 - acc, Accuracy: acc, Correct: acc * count, Count: count}, nil
}

func (m *scriptedModel) record(kind string, task int) {
	call := kind + ":" + string(rune('0'+task))
	if n := len(m.calls); n == 0 || m.calls[n-1] != call {
		m.calls = append(m.calls, call)
	}
}

func scriptedTasks(t *testing.T, names ...string) []*curriculum.Task {
	t.Helper()
	tasks := make([]*curriculum.Task, len(names))
	for i, name := range names {
		inputs := make([][]int, 5)
		targets := make([][]int, 5)
		for r := range inputs {
			inputs[r] = []int{i + 2, 1, 0}
			targets[r] = []int{1, 0, 0}
		}
		task, err := curriculum.NewTask(name, inputs, targets, 3)
		require.NoError(t, err)
		tasks[i] = task
	}
	return tasks
}

func testTrainingConfig() domainNeural.TrainingConfig {
	cfg := domainNeural.DefaultTrainingConfig()
	cfg.Epochs = 2
	cfg.BatchSize = 2
	return cfg
}

func TestTrainScheduleOrder(t *testing.T) {
	model := &scriptedModel{
		last:   -1,
		scores: [][]float64{{0.9, 0.1, 0.1}, {0.5, 0.8, 0.2}, {0.3, 0.4, 0.7}},
	}
	trainer, err := NewContinualTrainer(testTrainingConfig(), nil)
	require.NoError(t, err)

	matrix, stats, err := trainer.Train(model, scriptedTasks(t, "Task_0", "Task_1", "Task_2"))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"train:0", "eval:0", "eval:1", "eval:2",
		"train:1", "eval:0", "eval:1", "eval:2",
		"train:2", "eval:0", "eval:1", "eval:2",
	}, model.calls)

	assert.True(t, matrix.Frozen())
	assert.True(t, matrix.Complete())
	assert.Equal(t, 3, matrix.NumStages())
	assert.InDelta(t, 0.4, matrix.At(2, 1), 1e-12)
	acc, ok := matrix.Accuracy("Task_1", "Task_0")
	assert.True(t, ok)
	assert.InDelta(t, 0.5, acc, 1e-12)

	require.Len(t, stats.Stages, 3)
	// 5 examples in batches of 2 for 2 epochs.
	assert.Equal(t, 6, stats.Stages[0].Steps)
	assert.Equal(t, 18, stats.TotalSteps)
	assert.Len(t, stats.Stages[1].EpochLoss, 2)
	assert.Nil(t, stats.Stages[0].EWC)
}

func TestTrainSwappedOrderSwapsLabels(t *testing.T) {
	model := &scriptedModel{last: -1, scores: [][]float64{{0.9, 0.1}, {0.2, 0.8}}}
	tasks := scriptedTasks(t, "Task_0", "Task_1")
	trainer, err := NewContinualTrainer(testTrainingConfig(), nil)
	require.NoError(t, err)

	matrix, _, err := trainer.Train(model, []*curriculum.Task{tasks[1], tasks[0]})
	require.NoError(t, err)
	assert.Equal(t, []string{"Task_1", "Task_0"}, matrix.Stages())
	assert.Equal(t, []string{"Task_1", "Task_0"}, matrix.Tasks())
}

func TestTrainRejectsEmptyCurriculum(t *testing.T) {
	trainer, err := NewContinualTrainer(testTrainingConfig(), nil)
	require.NoError(t, err)
	_, _, err = trainer.Train(&scriptedModel{}, nil)
	assert.ErrorIs(t, err, curriculum.ErrInvalidCurriculum)
}

func TestNewContinualTrainerValidates(t *testing.T) {
	cfg := testTrainingConfig()
	cfg.BatchSize = 0
	_, err := NewContinualTrainer(cfg, nil)
	assert.ErrorIs(t, err, domainNeural.ErrInvalidConfig)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	model := &scriptedModel{last: -1, scores: [][]float64{{0.75}}}
	task := scriptedTasks(t, "Task_0")[0]
	_, err := model.TrainBatch(task.Batch([]int{0}))
	require.NoError(t, err)

	first, err := Evaluate(model, task, 2)
	require.NoError(t, err)
	second, err := Evaluate(model, task, 2)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 15.0, first.Count)
	assert.InDelta(t, 0.75, first.Accuracy, 1e-12)
}

func TestBatchesCoverTaskInOrder(t *testing.T) {
	task := scriptedTasks(t, "Task_0")[0]
	batches := Batches(task, 2)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0].Inputs, 2)
	assert.Len(t, batches[2].Inputs, 1)
}

func retention(t *testing.T, model string, rows ...[]float64) *domainNeural.RetentionMatrix {
	t.Helper()
	names := []string{"Task_0", "Task_1"}
	m := domainNeural.NewRetentionMatrix(model, names)
	for i, row := range rows {
		require.NoError(t, m.Record(names[i], row))
	}
	m.Freeze()
	return m
}

func TestForgetting(t *testing.T) {
	m := retention(t, "HOPE", []float64{0.9, 0.1}, []float64{0.9, 0.8})
	forgetting, err := Forgetting(m)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0.7}, forgetting, 1e-12)

	first, err := FirstTaskForgetting(m)
	require.NoError(t, err)
	assert.Equal(t, 0.0, first)

	_, err = Forgetting(domainNeural.NewRetentionMatrix("empty", []string{"Task_0"}))
	assert.ErrorIs(t, err, domainNeural.ErrIncompleteMatrix)
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name    string
		hope    []float64
		verdict string
	}{
		{"hope wins", []float64{0.7, 0.9}, "HOPE"},
		{"transformer wins", []float64{0.2, 0.9}, "Transformer"},
		{"tie", []float64{0.4, 0.9}, VerdictEqual},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := retention(t, "Transformer", []float64{0.9, 0.1}, []float64{0.4, 0.9})
			b := retention(t, "HOPE", []float64{0.9, 0.1}, tt.hope)
			cmp, err := Compare(a, b)
			require.NoError(t, err)
			assert.Equal(t, tt.verdict, cmp.Verdict)
			assert.Equal(t, "Task_0", cmp.FirstTask)
			assert.Equal(t, "Task_1", cmp.FinalStage)
			assert.InDelta(t, -0.5, cmp.A.Forgetting, 1e-12)
		})
	}
}

func TestCompareRejectsDifferentTasks(t *testing.T) {
	a := retention(t, "Transformer", []float64{0.9, 0.1}, []float64{0.4, 0.9})
	b := domainNeural.NewRetentionMatrix("HOPE", []string{"Task_1", "Task_0"})
	require.NoError(t, b.Record("Task_1", []float64{0.9, 0.1}))
	require.NoError(t, b.Record("Task_0", []float64{0.4, 0.9}))
	require.True(t, b.Complete())
	_, err := Compare(a, b)
	assert.ErrorIs(t, err, domainNeural.ErrIncompleteMatrix)
}

func TestCompareRejectsIncompleteMatrix(t *testing.T) {
	complete := retention(t, "Transformer", []float64{0.9, 0.1}, []float64{0.4, 0.9})
	partial := retention(t, "HOPE", []float64{0.9, 0.1})

	_, err := Compare(complete, partial)
	assert.ErrorIs(t, err, domainNeural.ErrIncompleteMatrix)
	_, err = Compare(partial, complete)
	assert.ErrorIs(t, err, domainNeural.ErrIncompleteMatrix)
	_, err = Compare(complete, nil)
	assert.ErrorIs(t, err, domainNeural.ErrIncompleteMatrix)
}

func TestWriteTableAndSummary(t *testing.T) {
	a := retention(t, "Transformer", []float64{0.9, 0.1}, []float64{0.4, 0.9})
	b := retention(t, "HOPE", []float64{0.9, 0.1}, []float64{0.4, 0.9})

	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, "HOPE", b, console.PlainPalette()))
	out := buf.String()
	assert.Contains(t, out, "HOPE Retention")
	assert.Contains(t, out, "Evaluation Task | After Task_0 | After Task_1 | Forgetting")
	assert.Contains(t, out, "Task_0         |      0.900 |      0.400 |   -0.500")
	assert.NotContains(t, out, "\x1b[")

	cmp, err := Compare(a, b)
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, WriteSummary(&buf, cmp, console.PlainPalette()))
	assert.Contains(t, buf.String(), "Both models retained memory equally.")

	buf.Reset()
	require.NoError(t, WriteSummary(&buf, cmp, console.ANSIPalette()))
	assert.Contains(t, buf.String(), "\x1b[")
}

func TestRunEndToEnd(t *testing.T) {
	def := curriculum.Definition{
		{Name: "Task_0", Sentences: []string{"i ride the train", "the train is blue"}},
		{Name: "Task_1", Sentences: []string{"i ride the bus", "the bus is red"}},
	}

	opts := DefaultRunOptions(3)
	opts.Encoder.RepeatsPerSentence = 2
	opts.Training.Epochs = 1
	opts.Training.BatchSize = 4
	opts.Training.EWCLambda = 10
	opts.Training.CheckpointDir = t.TempDir()
	opts.ConfigureHope = func(cfg *domainNeural.HopeConfig) { cfg.Units = 8 }
	opts.ConfigureTransformer = func(cfg *domainNeural.TransformerConfig) {
		cfg.ModelDim, cfg.KeyDim, cfg.FFDim, cfg.NumLayers = 8, 8, 16, 1
	}

	result, err := RunWithOptions(def, opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"Task_0", "Task_1"}, result.Tasks)
	assert.Equal(t, result.Vocabulary.Size(), result.VocabSize)
	require.Len(t, result.Runs(), 2)
	assert.Equal(t, "Transformer", result.Runs()[0].Model)
	assert.Equal(t, "HOPE", result.Runs()[1].Model)

	for _, run := range result.Runs() {
		m := run.Retention
		require.True(t, m.Complete())
		for s := 0; s < m.NumStages(); s++ {
			for _, v := range m.Row(s) {
				assert.GreaterOrEqual(t, v, 0.0)
				assert.LessOrEqual(t, v, 1.0)
			}
		}
		require.Len(t, run.Stats.Stages, 2)
		assert.NotNil(t, run.Stats.Stages[1].EWC)
		assert.FileExists(t, run.Stats.Stages[1].Checkpoint)
		assert.NotEmpty(t, run.Config)
	}

	files, err := os.ReadDir(opts.Training.CheckpointDir)
	require.NoError(t, err)
	assert.Len(t, files, 4)
	for _, f := range files {
		assert.True(t, strings.HasSuffix(f.Name(), ".json.zst"), f.Name())
	}
	assert.FileExists(t, filepath.Join(opts.Training.CheckpointDir, "hope-1-Task_1.json.zst"))

	require.NotNil(t, result.Comparison)
	assert.Equal(t, "Task_0", result.Comparison.FirstTask)
}

func TestRunSingleBackend(t *testing.T) {
	def := curriculum.Definition{
		{Name: "A", Sentences: []string{"x y"}},
		{Name: "B", Sentences: []string{"y x"}},
	}
	backends, err := ParseBackends("hope")
	require.NoError(t, err)

	opts := DefaultRunOptions(1)
	opts.Encoder.RepeatsPerSentence = 1
	opts.Training.Epochs = 1
	opts.Backends = backends
	opts.ConfigureHope = func(cfg *domainNeural.HopeConfig) { cfg.Units = 4 }

	result, err := RunWithOptions(def, opts)
	require.NoError(t, err)
	assert.Nil(t, result.Transformer)
	assert.NotNil(t, result.Hope)
	assert.Nil(t, result.Comparison)

	_, err = ParseBackends("lstm")
	assert.ErrorIs(t, err, domainNeural.ErrInvalidConfig)
}

func TestRunRejectsInvalidCurriculum(t *testing.T) {
	_, err := Run(1, curriculum.Definition{})
	assert.ErrorIs(t, err, curriculum.ErrInvalidCurriculum)
}
