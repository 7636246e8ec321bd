package neural

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	domainNeural "github.com/tiny-nested-learning/hope-go/internal/domain/neural"
)

// CheckpointFileName returns the file name used for a checkpoint.
func CheckpointFileName(checkpoint domainNeural.ModelCheckpoint) string {
	model := strings.ToLower(strings.ReplaceAll(checkpoint.Model, " ", "_"))
	task := strings.ReplaceAll(checkpoint.Task, string(os.PathSeparator), "_")
	return fmt.Sprintf("%s-%d-%s.json.zst", model, checkpoint.Stage, task)
}

// SaveCheckpoint writes a zstd-compressed JSON checkpoint into dir and returns its path.
func SaveCheckpoint(dir string, checkpoint domainNeural.ModelCheckpoint) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	path := filepath.Join(dir, CheckpointFileName(checkpoint))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create checkpoint file: %w", err)
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f)
	if err != nil {
		return "", fmt.Errorf("failed to create zstd writer: %w", err)
	}
	if err := json.NewEncoder(enc).Encode(checkpoint); err != nil {
		enc.Close()
		return "", fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to flush checkpoint: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close checkpoint file: %w", err)
	}
	return path, nil
}

// LoadCheckpoint reads a checkpoint written by SaveCheckpoint.
func LoadCheckpoint(path string) (domainNeural.ModelCheckpoint, error) {
	var checkpoint domainNeural.ModelCheckpoint

	f, err := os.Open(path)
	if err != nil {
		return checkpoint, fmt.Errorf("failed to open checkpoint: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return checkpoint, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer dec.Close()

	if err := json.NewDecoder(dec).Decode(&checkpoint); err != nil {
		return checkpoint, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	return checkpoint, nil
}
