package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	appNeural "github.com/tiny-nested-learning/hope-go/internal/application/neural"
	"github.com/tiny-nested-learning/hope-go/internal/infrastructure/console"
	infraNeural "github.com/tiny-nested-learning/hope-go/internal/infrastructure/neural"
)

var (
	historyDB      string
	historyLimit   int
	historyJSON    bool
	historyNoColor bool
)

// HistoryCmd is the parent command for recorded runs.
var HistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect runs recorded with run --db",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.ListRuns(historyLimit)
		if err != nil {
			return err
		}

		if historyJSON {
			data, err := json.MarshalIndent(runs, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tMODEL\tSEED\tSTAGES\tCREATED")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", r.ID, r.Model, r.Seed, r.Stages, r.CreatedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the retention matrix of a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := store.GetRun(args[0])
		if err != nil {
			return err
		}
		if run == nil {
			return fmt.Errorf("run %s not found", args[0])
		}

		if historyJSON {
			data, err := json.MarshalIndent(run, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("Run:      %s\n", run.ID)
		fmt.Printf("Model:    %s\n", run.Model)
		fmt.Printf("Seed:     %d\n", run.Seed)
		fmt.Printf("Vocab:    %d\n", run.VocabSize)
		fmt.Printf("Seq len:  %d\n", run.SeqLen)
		fmt.Printf("Created:  %s\n", run.CreatedAt.Format(time.RFC3339))
		return appNeural.WriteTable(os.Stdout, run.Model, run.Retention, console.ForFile(os.Stdout, historyNoColor))
	},
}

func openStore() (*infraNeural.RunStore, error) {
	if historyDB == "" {
		return nil, fmt.Errorf("--db is required")
	}
	if _, err := os.Stat(historyDB); err != nil {
		return nil, fmt.Errorf("failed to open run history: %w", err)
	}
	config := infraNeural.DefaultRunStoreConfig()
	config.DBPath = historyDB
	return infraNeural.NewRunStore(config)
}

func init() {
	HistoryCmd.PersistentFlags().StringVar(&historyDB, "db", "", "SQLite file written by run --db")
	HistoryCmd.PersistentFlags().BoolVar(&historyJSON, "json", false, "Print as JSON")
	HistoryCmd.PersistentFlags().BoolVar(&historyNoColor, "no-color", false, "Disable colored output")
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "l", infraNeural.DefaultRunStoreConfig().DefaultLimit, "Max runs to list")

	HistoryCmd.AddCommand(historyListCmd)
	HistoryCmd.AddCommand(historyShowCmd)
}
