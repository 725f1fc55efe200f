package main

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Kone-AI/Kone-sub000/pkg/cli"
	"github.com/Kone-AI/Kone-sub000/pkg/healthstore"
)

var historyFlags struct {
	limit  int
	latest bool
}

var historyCmd = &cobra.Command{
	Use:   "history [provider/model]",
	Short: "Show persisted health check results",
	Long: `Read health check results from the configured store, newest first.

Without a model the history of every model is listed. With --latest only the
most recent result of each model is shown.

Examples:
  # Last 20 checks of one model
  kone history groq/llama-3.3-70b-versatile --limit 20

  # Latest status of every model as CSV
  kone history --latest -o csv`,
	Args: cobra.MaximumNArgs(1),
	RunE: showHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyFlags.limit, "limit", "n", 50, "maximum number of entries")
	historyCmd.Flags().BoolVar(&historyFlags.latest, "latest", false, "show only the latest result of each model")
}

func showHistory(cmd *cobra.Command, args []string) error {
	out, err := formatter()
	if err != nil {
		return err
	}
	if historyFlags.limit < 1 {
		return cli.NewConfigError("limit", "must be at least 1")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return cli.NewCommandError("history", err)
	}
	if store == nil {
		return cli.NewConfigError("storage.enabled", "health history needs storage enabled")
	}
	defer store.Close()

	ctx := cmd.Context()
	if historyFlags.latest {
		records, err := store.LoadLatest(ctx)
		if err != nil {
			return cli.NewCommandError("history", err)
		}
		if isFormat(cli.FormatJSON) {
			return out.FormatTo(cmd.OutOrStdout(), records)
		}
		return out.FormatTo(cmd.OutOrStdout(), recordsTable(records))
	}

	var modelID string
	if len(args) == 1 {
		modelID = args[0]
	}
	entries, err := store.History(ctx, modelID, historyFlags.limit)
	if err != nil {
		return cli.NewCommandError("history", err)
	}
	if isFormat(cli.FormatJSON) {
		return out.FormatTo(cmd.OutOrStdout(), entries)
	}
	return out.FormatTo(cmd.OutOrStdout(), historyTable(entries))
}

func historyTable(entries []healthstore.HistoryEntry) cli.Table {
	t := cli.Table{Columns: []string{"CHECKED", "MODEL", "STATUS", "LATENCY", "ATTEMPTS", "ERROR"}}
	for _, e := range entries {
		latency := "-"
		if e.Record.LatencyMs != nil {
			latency = e.Record.Latency().String()
		}
		t.Data = append(t.Data, []string{
			e.Record.LastCheckedAt.UTC().Format(time.RFC3339),
			e.Record.ModelID,
			string(e.Record.Status),
			latency,
			strconv.Itoa(e.Record.Attempts),
			truncate(e.Record.LastError, 60),
		})
	}
	return t
}
