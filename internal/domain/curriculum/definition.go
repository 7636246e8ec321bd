package curriculum

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TaskSentences is the raw, unencoded description of one task.
type TaskSentences struct {
	Name      string   `json:"name"`
	Sentences []string `json:"sentences"`
}

// Definition is an ordered curriculum of raw sentences.
type Definition []TaskSentences

// Validate checks that the definition is usable.
func (d Definition) Validate() error {
	if len(d) == 0 {
		return fmt.Errorf("%w: no tasks", ErrInvalidCurriculum)
	}

	seen := make(map[string]bool, len(d))
	for i, task := range d {
		if strings.TrimSpace(task.Name) == "" {
			return fmt.Errorf("%w: task %d has no name", ErrInvalidCurriculum, i)
		}
		if seen[task.Name] {
			return fmt.Errorf("%w: duplicate task %s", ErrInvalidCurriculum, task.Name)
		}
		seen[task.Name] = true

		if len(task.Sentences) == 0 {
			return fmt.Errorf("%w: task %s has no sentences", ErrInvalidCurriculum, task.Name)
		}
		for j, s := range task.Sentences {
			if len(strings.Fields(s)) == 0 {
				return fmt.Errorf("%w: task %s sentence %d is empty", ErrInvalidCurriculum, task.Name, j)
			}
		}
	}
	return nil
}

// Reversed returns a copy with the task order reversed.
func (d Definition) Reversed() Definition {
	out := make(Definition, len(d))
	for i, task := range d {
		out[len(d)-1-i] = task
	}
	return out
}

// ParseDefinition decodes a JSON array of {"name", "sentences"} objects.
func ParseDefinition(data []byte) (Definition, error) {
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse curriculum: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// DefaultDefinition returns the two-task travel story curriculum.
// Both tasks share a sentence skeleton and differ in the vehicle, which is what makes
// the second task interfere with the first.
func DefaultDefinition() Definition {
	return Definition{
		{
			Name: "Task_0",
			Sentences: []string{
				"i pack my small bag for the train",
				"i walk to the station with my ticket",
				"i wait on the platform for the blue train",
				"i find my seat and watch trees go by",
			},
		},
		{
			Name: "Task_1",
			Sentences: []string{
				"i pack my small bag for the flight",
				"i take a cab to the busy airport",
				"i wait in a long line at the gate",
				"i find my seat and watch clouds go by",
			},
		},
	}
}
