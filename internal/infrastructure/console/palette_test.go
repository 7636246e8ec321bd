package console

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaint(t *testing.T) {
	ansi := ANSIPalette()
	assert.Equal(t, "\033[92mok\033[0m", ansi.Paint(ansi.Green, "ok"))

	plain := PlainPalette()
	assert.Equal(t, "ok", plain.Paint(plain.Green, "ok"))
}

func TestSigned(t *testing.T) {
	p := ANSIPalette()
	assert.Equal(t, p.Green, p.Signed(0))
	assert.Equal(t, p.Green, p.Signed(0.1))
	assert.Equal(t, p.Red, p.Signed(-0.1))
}

func TestPadding(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
		right string
		left  string
	}{
		{"ascii", "Task_0", 8, "Task_0  ", "  Task_0"},
		{"wide runes", "日本", 6, "日本  ", "  日本"},
		{"already wide", "Evaluation", 4, "Evaluation", "Evaluation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.right, PadRight(tt.in, tt.width))
			assert.Equal(t, tt.left, PadLeft(tt.in, tt.width))
		})
	}
	assert.Equal(t, 4, Width("日本"))
	assert.Equal(t, "---", Rule("-", 3))
}

func TestForFileNoColor(t *testing.T) {
	assert.Equal(t, PlainPalette(), ForFile(os.Stdout, true))

	f, err := os.CreateTemp(t.TempDir(), "out")
	assert.NoError(t, err)
	defer f.Close()
	assert.Equal(t, PlainPalette(), ForFile(f, false))
}
