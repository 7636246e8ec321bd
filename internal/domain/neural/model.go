package neural

import "time"

// BatchMetrics holds loss and accuracy over one batch.
type BatchMetrics struct {
	Loss     float64 `json:"loss"`
	Accuracy float64 `json:"accuracy"`

	// Correct and Count are the weighted position counts behind Accuracy.
	Correct float64 `json:"correct"`
	Count   float64 `json:"count"`
}

// Model is a next-token sequence model trained on fixed-length windows.
type Model interface {
	Name() string

	// Predict returns batch x position x vocabulary logits.
	Predict(inputs [][]int) ([][][]float64, error)

	// TrainBatch runs one optimizer step and reports the pre-step metrics.
	TrainBatch(inputs, targets [][]int) (BatchMetrics, error)

	// EvaluateBatch reports metrics without changing any parameter.
	EvaluateBatch(inputs, targets [][]int) (BatchMetrics, error)
}

// Batch is a pair of input and target rows.
type Batch struct {
	Inputs  [][]int
	Targets [][]int
}

// Consolidator is implemented by models that can protect what they learned with EWC.
type Consolidator interface {
	// Consolidate estimates parameter importance over batches and anchors the
	// current parameters for later training.
	Consolidate(batches []Batch, config EWCConfig) (EWCStats, error)
}

// Checkpointer is implemented by models whose parameters can be snapshotted.
type Checkpointer interface {
	Checkpoint() ModelCheckpoint
	Restore(checkpoint ModelCheckpoint) error
}

// ParamSnapshot is a copy of one parameter matrix.
type ParamSnapshot struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

// ModelCheckpoint is a parameter snapshot taken after a training stage.
type ModelCheckpoint struct {
	ID        string          `json:"id"`
	Model     string          `json:"model"`
	Stage     int             `json:"stage"`
	Task      string          `json:"task"`
	CreatedAt time.Time       `json:"createdAt"`
	Params    []ParamSnapshot `json:"params"`
}
