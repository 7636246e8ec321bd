package neural

import (
	"fmt"
	"io"
	"strings"

	domainNeural "github.com/tiny-nested-learning/hope-go/internal/domain/neural"
	"github.com/tiny-nested-learning/hope-go/internal/infrastructure/console"
)

// VerdictEqual is the verdict when both models end with the same first-task accuracy.
const VerdictEqual = "equal"

// Forgetting returns, per evaluated task, the accuracy after the last stage minus
// the accuracy after the first stage. Negative values mean the task was forgotten.
func Forgetting(m *domainNeural.RetentionMatrix) ([]float64, error) {
	if m == nil || m.NumStages() == 0 {
		return nil, fmt.Errorf("%w: no stages recorded", domainNeural.ErrIncompleteMatrix)
	}
	last := m.NumStages() - 1
	out := make([]float64, len(m.Tasks()))
	for e := range out {
		out[e] = m.At(last, e) - m.At(0, e)
	}
	return out, nil
}

// FirstTaskForgetting returns the change in first-task accuracy between the stage
// that trained it and the final stage.
func FirstTaskForgetting(m *domainNeural.RetentionMatrix) (float64, error) {
	if m == nil || m.NumStages() == 0 || len(m.Tasks()) == 0 {
		return 0, fmt.Errorf("%w: no stages recorded", domainNeural.ErrIncompleteMatrix)
	}
	return m.At(m.NumStages()-1, 0) - m.At(0, 0), nil
}

// ModelRetention is one model's first-task retention.
type ModelRetention struct {
	Model      string  `json:"model"`
	Start      float64 `json:"start"`
	Final      float64 `json:"final"`
	Forgetting float64 `json:"forgetting"`
}

// Comparison contrasts the first-task retention of two models.
type Comparison struct {
	FirstTask  string         `json:"firstTask"`
	FinalStage string         `json:"finalStage"`
	A          ModelRetention `json:"a"`
	B          ModelRetention `json:"b"`

	// Verdict names the model with the higher final first-task accuracy, or VerdictEqual.
	Verdict string `json:"verdict"`
}

// Compare contrasts two complete matrices produced over the same curriculum.
func Compare(a, b *domainNeural.RetentionMatrix) (*Comparison, error) {
	if a == nil || b == nil || !a.Complete() || !b.Complete() {
		return nil, fmt.Errorf("%w: both matrices must cover every stage", domainNeural.ErrIncompleteMatrix)
	}
	ra, err := firstTaskRetention(a)
	if err != nil {
		return nil, err
	}
	rb, err := firstTaskRetention(b)
	if err != nil {
		return nil, err
	}
	if strings.Join(a.Tasks(), "\x00") != strings.Join(b.Tasks(), "\x00") {
		return nil, fmt.Errorf("%w: matrices cover different tasks", domainNeural.ErrIncompleteMatrix)
	}

	stages := a.Stages()
	cmp := &Comparison{
		FirstTask:  a.Tasks()[0],
		FinalStage: stages[len(stages)-1],
		A:          ra,
		B:          rb,
		Verdict:    VerdictEqual,
	}
	switch {
	case ra.Final > rb.Final:
		cmp.Verdict = ra.Model
	case rb.Final > ra.Final:
		cmp.Verdict = rb.Model
	}
	return cmp, nil
}

func firstTaskRetention(m *domainNeural.RetentionMatrix) (ModelRetention, error) {
	forgetting, err := FirstTaskForgetting(m)
	if err != nil {
		return ModelRetention{}, err
	}
	return ModelRetention{
		Model:      m.Model(),
		Start:      m.At(0, 0),
		Final:      m.At(m.NumStages()-1, 0),
		Forgetting: forgetting,
	}, nil
}

const tableWidth = 70

// WriteTable renders a retention matrix: one row per evaluated task, one column
// per stage and a final forgetting column.
func WriteTable(w io.Writer, name string, m *domainNeural.RetentionMatrix, p console.Palette) error {
	forgetting, err := Forgetting(m)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s==================== %s Retention ====================%s\n", p.Bold+p.Blue, name, p.Reset)

	header := []string{"Evaluation Task"}
	for _, stage := range m.Stages() {
		header = append(header, "After "+stage)
	}
	header = append(header, "Forgetting")
	b.WriteString(p.Paint(p.Cyan, strings.Join(header, " | ")) + "\n")
	b.WriteString(p.Paint(p.Yellow, console.Rule("-", tableWidth)) + "\n")

	for e, task := range m.Tasks() {
		scores := make([]string, m.NumStages())
		for s := range scores {
			scores[s] = fmt.Sprintf("%10.3f", m.At(s, e))
		}
		fmt.Fprintf(&b, "%s| %s | %s\n",
			p.Paint(p.Bold, console.PadRight(task, 15)),
			strings.Join(scores, " | "),
			p.Paint(p.Signed(forgetting[e]), fmt.Sprintf("%8.3f", forgetting[e])),
		)
	}
	b.WriteString(p.Paint(p.Blue, console.Rule("=", tableWidth)) + "\n")

	_, err = io.WriteString(w, b.String())
	return err
}

// WriteSummary renders the first-task comparison and its verdict.
func WriteSummary(w io.Writer, cmp *Comparison, p console.Palette) error {
	width := max(console.Width(cmp.A.Model), console.Width(cmp.B.Model))

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s📊 Continual Learning Summary%s\n", p.Bold+p.Header, p.Reset)
	b.WriteString(p.Paint(p.Yellow, console.Rule("-", 45)) + "\n")
	for _, r := range []ModelRetention{cmp.A, cmp.B} {
		fmt.Fprintf(&b, "- %s : %s  (forgot %s)\n",
			console.PadRight(r.Model, width),
			p.Paint(p.Cyan, fmt.Sprintf("%.3f", r.Final)),
			p.Paint(p.Signed(r.Forgetting), fmt.Sprintf("%.3f", r.Forgetting)),
		)
	}

	b.WriteString("\n" + p.Paint(p.Yellow, "👉 Interpretation:") + "\n")
	if cmp.Verdict == VerdictEqual {
		b.WriteString(p.Paint(p.Cyan, "Both models retained memory equally.") + "\n")
	} else {
		b.WriteString(p.Paint(p.Green, cmp.Verdict+" retained more memory for this curriculum.") + "\n")
	}
	b.WriteString(p.Paint(p.Yellow, console.Rule("-", 45)) + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}
