package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Kone-AI/Kone-sub000/pkg/cli"
	"github.com/Kone-AI/Kone-sub000/pkg/healthstore"
	"github.com/Kone-AI/Kone-sub000/pkg/modelhealth"
)

// exitUnhealthy is the exit code of kone check --fail-on-error when a
// model is not operational.
const exitUnhealthy = 2

var checkFlags struct {
	failOnError bool
	persist     bool
	modelDelay  time.Duration
	noProgress  bool
}

var checkCmd = &cobra.Command{
	Use:   "check [provider/model...]",
	Short: "Probe models once and print their health",
	Long: `Run one health check cycle over every available model, or over the given
models, and print the result of each.

Each model gets a short prompt; a reply with enough words is operational.
Rate limits report as limited and timeouts as unknown.

Examples:
  # Check every model
  kone check

  # Check two models without the pause between them
  kone check groq/llama-3.3-70b-versatile anthropic/claude-3-5-haiku-latest --model-delay 0

  # Fail the build when a model is down, and keep the results
  kone check --fail-on-error --persist`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolVar(&checkFlags.failOnError, "fail-on-error", false, "exit with status 2 when a model is not operational")
	checkCmd.Flags().BoolVar(&checkFlags.persist, "persist", false, "save results to the configured health store")
	checkCmd.Flags().DurationVar(&checkFlags.modelDelay, "model-delay", 0, "pause between models (config value when unset)")
	checkCmd.Flags().BoolVar(&checkFlags.noProgress, "no-progress", false, "do not print a progress bar")
}

func runCheck(cmd *cobra.Command, args []string) error {
	out, err := formatter()
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}

	manager, err := newManager(cfg, logger, nil)
	if err != nil {
		return cli.NewCommandError("check", err)
	}
	defer manager.Close()

	hcfg := cfg.HealthCheckerConfig()
	if cmd.Flags().Changed("model-delay") {
		// zero would be replaced by the default
		hcfg.ModelDelay = checkFlags.modelDelay
		if hcfg.ModelDelay == 0 {
			hcfg.ModelDelay = -1
		}
	}
	checker := modelhealth.NewChecker(manager, hcfg, modelhealth.WithLogger(logger))

	var persist modelhealth.Callback
	if checkFlags.persist {
		store, err := openStore(cfg)
		if err != nil {
			return cli.NewCommandError("check", err)
		}
		if store == nil {
			return cli.NewConfigError("storage.enabled", "--persist needs storage enabled")
		}
		defer store.Close()
		persist = healthstore.Persist(store, logger)
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	total := len(args)
	if total == 0 {
		total = len(manager.ListAvailableModels(ctx))
	}
	var progress cli.ProgressReporter
	if !checkFlags.noProgress {
		progress = cli.NewUnitProgressReporter(cmd.ErrOrStderr(), "models")
		progress.Start(int64(total))
	}

	records := checkModels(ctx, checker, args, func(done int, modelID string, rec modelhealth.Record) {
		if persist != nil {
			persist(modelID, rec)
		}
		if progress != nil {
			progress.Update(int64(done))
		}
	})
	if progress != nil {
		if err := ctx.Err(); err != nil {
			progress.Error(err)
		} else {
			progress.Finish()
		}
	}

	if isFormat(cli.FormatJSON) {
		if err := out.FormatTo(cmd.OutOrStdout(), records); err != nil {
			return err
		}
	} else if err := out.FormatTo(cmd.OutOrStdout(), recordsTable(records)); err != nil {
		return err
	}

	if ctx.Err() != nil {
		return cli.NewCommandError("check", ctx.Err())
	}
	return checkOutcome(records, checkFlags.failOnError)
}

// checkModels tests the given models in order, or runs one full cycle when
// none are given. onDone is called after every model with the running count.
func checkModels(ctx context.Context, checker *modelhealth.Checker, modelIDs []string, onDone func(done int, modelID string, rec modelhealth.Record)) []modelhealth.Record {
	done := 0
	if len(modelIDs) == 0 {
		checker.CheckAllModels(ctx, func(modelID string, rec modelhealth.Record) {
			done++
			onDone(done, modelID, rec)
		})
		return checker.GetStatus()
	}

	records := make([]modelhealth.Record, 0, len(modelIDs))
	for _, id := range modelIDs {
		if ctx.Err() != nil {
			break
		}
		rec := checker.TestModel(ctx, id)
		records = append(records, rec)
		done++
		onDone(done, id, rec)
	}
	return records
}

// checkOutcome summarizes records into an exit status.
func checkOutcome(records []modelhealth.Record, failOnError bool) error {
	if !failOnError {
		return nil
	}
	counts := statusCounts(records)
	failing := len(records) - counts[modelhealth.StatusOperational]
	if failing == 0 {
		return nil
	}
	return &cli.ExitError{
		Code: exitUnhealthy,
		Err:  fmt.Errorf("%d of %d models not operational", failing, len(records)),
	}
}

func statusCounts(records []modelhealth.Record) map[modelhealth.Status]int {
	counts := make(map[modelhealth.Status]int)
	for _, r := range records {
		counts[r.Status]++
	}
	return counts
}

func recordsTable(records []modelhealth.Record) cli.Table {
	sorted := append([]modelhealth.Record(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ModelID < sorted[j].ModelID })

	t := cli.Table{Columns: []string{"MODEL", "STATUS", "LATENCY", "ATTEMPTS", "CHECKED", "ERROR"}}
	for _, r := range sorted {
		latency := "-"
		if r.LatencyMs != nil {
			latency = r.Latency().String()
		}
		checked := "-"
		if !r.LastCheckedAt.IsZero() {
			checked = r.LastCheckedAt.UTC().Format(time.RFC3339)
		}
		t.Data = append(t.Data, []string{
			r.ModelID,
			string(r.Status),
			latency,
			strconv.Itoa(r.Attempts),
			checked,
			truncate(r.LastError, 60),
		})
	}
	return t
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
