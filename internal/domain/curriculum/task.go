package curriculum

import "fmt"

// Task is a named unit of next-token-prediction training data.
type Task struct {
	Name    string
	Inputs  [][]int
	Targets [][]int
	SeqLen  int
}

// NewTask validates the shape of inputs and targets and builds a task.
// Every row of both slices must have exactly seqLen ids.
func NewTask(name string, inputs, targets [][]int, seqLen int) (*Task, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty task name", ErrMalformedTask)
	}
	if seqLen <= 0 {
		return nil, fmt.Errorf("%w: task %s: sequence length %d", ErrMalformedTask, name, seqLen)
	}
	if len(inputs) != len(targets) {
		return nil, fmt.Errorf("%w: task %s: %d inputs vs %d targets", ErrMalformedTask, name, len(inputs), len(targets))
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: task %s: no examples", ErrMalformedTask, name)
	}
	for i := range inputs {
		if len(inputs[i]) != seqLen || len(targets[i]) != seqLen {
			return nil, fmt.Errorf("%w: task %s: row %d has lengths %d/%d, expected %d",
				ErrMalformedTask, name, i, len(inputs[i]), len(targets[i]), seqLen)
		}
	}

	return &Task{
		Name:    name,
		Inputs:  inputs,
		Targets: targets,
		SeqLen:  seqLen,
	}, nil
}

// Len returns the number of examples.
func (t *Task) Len() int {
	return len(t.Inputs)
}

// Batch returns the examples selected by indices.
func (t *Task) Batch(indices []int) (inputs, targets [][]int) {
	inputs = make([][]int, len(indices))
	targets = make([][]int, len(indices))
	for i, idx := range indices {
		inputs[i] = t.Inputs[idx]
		targets[i] = t.Targets[idx]
	}
	return inputs, targets
}

// Curriculum is an ordered list of encoded tasks sharing one vocabulary.
// Order defines the continual-learning presentation order.
type Curriculum struct {
	Tasks      []*Task
	Vocabulary *Vocabulary
	SeqLen     int
}

// TaskNames returns task names in curriculum order.
func (c *Curriculum) TaskNames() []string {
	names := make([]string, len(c.Tasks))
	for i, t := range c.Tasks {
		names[i] = t.Name
	}
	return names
}
