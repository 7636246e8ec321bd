package commands

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvName(t *testing.T) {
	assert.Equal(t, "HOPE_BATCH_SIZE", EnvName("batch-size"))
	assert.Equal(t, "HOPE_SEED", EnvName("seed"))
}

func TestApplyEnvPrecedence(t *testing.T) {
	t.Setenv("HOPE_EPOCHS", "3")
	t.Setenv("HOPE_SEED", "11")

	var epochs int
	var seed int64
	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().IntVar(&epochs, "epochs", 5, "")
	cmd.Flags().Int64Var(&seed, "seed", 7, "")
	require.NoError(t, cmd.Flags().Parse([]string{"--seed", "42"}))

	require.NoError(t, ApplyEnv(cmd))
	assert.Equal(t, 3, epochs, "env overrides the default")
	assert.Equal(t, int64(42), seed, "flag overrides env")
}

func TestApplyEnvRejectsBadValue(t *testing.T) {
	t.Setenv("HOPE_EPOCHS", "many")

	var epochs int
	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().IntVar(&epochs, "epochs", 5, "")

	err := ApplyEnv(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HOPE_EPOCHS")
}

func TestLoadDefinitionDefault(t *testing.T) {
	def, err := loadDefinition("")
	require.NoError(t, err)
	assert.NoError(t, def.Validate())

	_, err = loadDefinition("does-not-exist.json")
	assert.Error(t, err)
}
