package neural

import (
	"encoding/json"
	"fmt"
)

// RetentionMatrix records accuracy on every evaluated task after each training stage.
// Stages are appended in training order; row s holds the scores after training
// through Stages()[s], column e the score on Tasks()[e].
type RetentionMatrix struct {
	model  string
	tasks  []string
	stages []string
	scores [][]float64
	frozen bool
}

// NewRetentionMatrix creates an empty matrix over the evaluated tasks, in order.
func NewRetentionMatrix(model string, tasks []string) *RetentionMatrix {
	return &RetentionMatrix{
		model: model,
		tasks: append([]string(nil), tasks...),
	}
}

// Record appends the scores measured after training through the named task.
func (m *RetentionMatrix) Record(trained string, scores []float64) error {
	if m.frozen {
		return ErrRetentionFrozen
	}
	if len(scores) != len(m.tasks) {
		return fmt.Errorf("stage %q has %d scores for %d tasks", trained, len(scores), len(m.tasks))
	}
	for i, s := range scores {
		if s < 0 || s > 1 {
			return fmt.Errorf("stage %q task %q: accuracy %v outside [0,1]", trained, m.tasks[i], s)
		}
	}
	m.stages = append(m.stages, trained)
	m.scores = append(m.scores, append([]float64(nil), scores...))
	return nil
}

// Freeze makes the matrix read-only.
func (m *RetentionMatrix) Freeze() {
	m.frozen = true
}

// Frozen reports whether the matrix is read-only.
func (m *RetentionMatrix) Frozen() bool {
	return m.frozen
}

// Model returns the name of the model the matrix belongs to.
func (m *RetentionMatrix) Model() string {
	return m.model
}

// Tasks returns the evaluated task names.
func (m *RetentionMatrix) Tasks() []string {
	return append([]string(nil), m.tasks...)
}

// Stages returns the trained-through task name of every recorded stage.
func (m *RetentionMatrix) Stages() []string {
	return append([]string(nil), m.stages...)
}

// NumStages returns the number of recorded stages.
func (m *RetentionMatrix) NumStages() int {
	return len(m.stages)
}

// At returns the score of evaluated task e after stage s.
func (m *RetentionMatrix) At(s, e int) float64 {
	return m.scores[s][e]
}

// Row returns a copy of the scores after stage s.
func (m *RetentionMatrix) Row(s int) []float64 {
	return append([]float64(nil), m.scores[s]...)
}

// Accuracy looks a score up by stage and evaluated task name.
func (m *RetentionMatrix) Accuracy(trained, evaluated string) (float64, bool) {
	e := indexOf(m.tasks, evaluated)
	if e < 0 {
		return 0, false
	}
	for s, name := range m.stages {
		if name == trained {
			return m.scores[s][e], true
		}
	}
	return 0, false
}

// Complete reports whether every task has been trained through.
func (m *RetentionMatrix) Complete() bool {
	return len(m.tasks) > 0 && len(m.stages) == len(m.tasks)
}

type retentionJSON struct {
	Model  string      `json:"model"`
	Tasks  []string    `json:"tasks"`
	Stages []string    `json:"stages"`
	Scores [][]float64 `json:"scores"`
	Frozen bool        `json:"frozen"`
}

// MarshalJSON implements json.Marshaler.
func (m *RetentionMatrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(retentionJSON{
		Model:  m.model,
		Tasks:  m.tasks,
		Stages: m.stages,
		Scores: m.scores,
		Frozen: m.frozen,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *RetentionMatrix) UnmarshalJSON(data []byte) error {
	var raw retentionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.Stages) != len(raw.Scores) {
		return fmt.Errorf("%w: %d stages with %d score rows", ErrIncompleteMatrix, len(raw.Stages), len(raw.Scores))
	}
	for i, row := range raw.Scores {
		if len(row) != len(raw.Tasks) {
			return fmt.Errorf("%w: stage %d has %d scores for %d tasks", ErrIncompleteMatrix, i, len(row), len(raw.Tasks))
		}
	}
	*m = RetentionMatrix{
		model:  raw.Model,
		tasks:  raw.Tasks,
		stages: raw.Stages,
		scores: raw.Scores,
		frozen: raw.Frozen,
	}
	return nil
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
