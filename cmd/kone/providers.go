package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Kone-AI/Kone-sub000/pkg/cli"
	"github.com/Kone-AI/Kone-sub000/pkg/providerfactory"
	"github.com/Kone-AI/Kone-sub000/pkg/providers"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Show provider availability and key state",
	Long: `Build every enabled provider, fetch its model catalog and print its
routing state: cooldown, last error, model count and API key health.

Examples:
  # Table of providers
  kone providers

  # Full status as JSON (secrets are never printed)
  kone providers -o json`,
	Args: cobra.NoArgs,
	RunE: showProviders,
}

func init() {
	rootCmd.AddCommand(providersCmd)
}

func showProviders(cmd *cobra.Command, args []string) error {
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
		return cli.NewCommandError("providers", err)
	}
	defer manager.Close()

	status := manager.Status(cmd.Context())
	if isFormat(cli.FormatJSON) {
		return out.FormatTo(cmd.OutOrStdout(), status)
	}
	return out.FormatTo(cmd.OutOrStdout(), providersTable(status, time.Now()))
}

func providersTable(status []providerfactory.ProviderStatus, now time.Time) cli.Table {
	t := cli.Table{Columns: []string{"PROVIDER", "STATE", "MODELS", "KEYS", "LAST ERROR"}}
	for _, s := range status {
		state := "available"
		if now.Before(s.DisabledUntil) {
			state = "cooldown " + s.DisabledUntil.Sub(now).Round(time.Second).String()
		}
		t.Data = append(t.Data, []string{
			s.Name,
			state,
			strconv.Itoa(s.Models),
			keySummary(s.Keys),
			truncate(s.LastError, 60),
		})
	}
	return t
}

// keySummary renders key health as "2/3 ok (1 rate_limit)".
func keySummary(keys []providers.KeyState) string {
	if len(keys) == 0 {
		return "-"
	}
	ok := 0
	failed := map[providers.KeyErrorKind]int{}
	var kinds []providers.KeyErrorKind
	for _, k := range keys {
		if k.ErrorKind == "" || k.ErrorKind == providers.KeyErrorNone {
			ok++
			continue
		}
		if failed[k.ErrorKind] == 0 {
			kinds = append(kinds, k.ErrorKind)
		}
		failed[k.ErrorKind]++
	}

	s := strconv.Itoa(ok) + "/" + strconv.Itoa(len(keys)) + " ok"
	if len(kinds) == 0 {
		return s
	}
	parts := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		parts = append(parts, strconv.Itoa(failed[kind])+" "+string(kind))
	}
	return s + " (" + strings.Join(parts, ", ") + ")"
}
