package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Kone-AI/Kone-sub000/pkg/cli"
	"github.com/Kone-AI/Kone-sub000/pkg/providerfactory"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Load the configuration with environment overrides, validate it and show
which providers would be built.

A provider is skipped when it is disabled or when its endpoint needs an API
key and none is configured. No network calls are made.

Examples:
  # Validate the default config.yaml
  kone validate

  # Validate another file
  kone validate -c /etc/kone/config.yaml`,
	Args: cobra.NoArgs,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	out, err := formatter()
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	specs := cfg.ProviderSpecs()
	table := specsTable(specs)
	if err := out.FormatTo(cmd.OutOrStdout(), table); err != nil {
		return err
	}

	enabled := 0
	for _, spec := range specs {
		if providerfactory.Enabled(spec) {
			enabled++
		}
	}
	if enabled == 0 {
		return cli.NewCommandError("validate", errNoProviders)
	}
	if isFormat(cli.FormatText) {
		fmt.Fprintf(cmd.OutOrStdout(), "\n%s is valid: %d of %d providers enabled\n", cfgFile, enabled, len(specs))
	}
	return nil
}

func specsTable(specs []providerfactory.Spec) cli.Table {
	t := cli.Table{Columns: []string{"PROVIDER", "TYPE", "ENDPOINT", "KEYS", "STATE"}}
	for _, spec := range specs {
		resolved := providerfactory.Resolve(spec.ProviderConfig)
		t.Data = append(t.Data, []string{
			resolved.Name,
			resolved.Type,
			resolved.BaseURL,
			strconv.Itoa(len(resolved.APIKeys)),
			specState(spec),
		})
	}
	return t
}

func specState(spec providerfactory.Spec) string {
	switch {
	case !spec.Enabled:
		return "disabled"
	case !providerfactory.Enabled(spec):
		return "skipped: missing API key"
	default:
		return "enabled"
	}
}
