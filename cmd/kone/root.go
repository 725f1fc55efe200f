package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Kone-AI/Kone-sub000/pkg/cli"
)

var (
	// Global flags
	cfgFile      string
	verbose      bool
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "kone",
	Short: "Kone - multi-provider LLM gateway",
	Long: `Kone routes chat requests across many LLM providers behind one model
namespace ("<provider>/<model>").

It provides:
  - OpenAI-compatible and Anthropic adapters with API key rotation
  - Cross-provider failover with per-provider cooldowns
  - Scheduled model health checks with persisted history
  - An ops server with probes, Prometheus metrics and live status`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err != nil {
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) || exitErr.Err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	return cli.ExitCode(err)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format: text, json, csv")
}

// formatter returns the formatter selected by --output.
func formatter() (cli.Formatter, error) {
	format, err := cli.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return cli.NewFormatter(format), nil
}

// isFormat reports whether --output selects format.
func isFormat(format cli.OutputFormat) bool {
	parsed, err := cli.ParseFormat(outputFormat)
	return err == nil && parsed == format
}
