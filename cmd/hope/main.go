// Package main provides the CLI entry point for hope.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tiny-nested-learning/hope-go/cmd/hope/commands"
)

var (
	version = "0.1.0"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hope",
	Short: "HOPE - continual learning benchmark for multi-timescale memory",
	Long: `hope trains a multi-timescale recurrent memory model and a self-attention
baseline on a curriculum of tasks, one task after another, and reports how
much of each earlier task every model retains.

Flags may also be set through HOPE_* environment variables or a .env file,
for example HOPE_SEED, HOPE_EPOCHS, HOPE_BATCH_SIZE, HOPE_DB or HOPE_LOG_LEVEL.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return commands.ApplyEnv(cmd)
	},
}

func init() {
	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.EncodeCmd)
	rootCmd.AddCommand(commands.HistoryCmd)
}
