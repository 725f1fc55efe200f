package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Kone-AI/Kone-sub000/pkg/cli"
	"github.com/Kone-AI/Kone-sub000/pkg/providers"
)

var modelsFlags struct {
	provider string
	freeOnly bool
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List available models",
	Long: `List the models every enabled provider serves, as routed by the gateway.

Examples:
  # All models
  kone models

  # Models of one provider as JSON
  kone models --provider groq -o json

  # Only zero-cost models
  kone models --free`,
	RunE: listModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)

	modelsCmd.Flags().StringVarP(&modelsFlags.provider, "provider", "p", "", "only list models of this provider")
	modelsCmd.Flags().BoolVar(&modelsFlags.freeOnly, "free", false, "only list zero-cost models")
}

func listModels(cmd *cobra.Command, args []string) error {
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
		return cli.NewCommandError("models", err)
	}
	defer manager.Close()

	models := filterModels(manager.ListAvailableModels(cmd.Context()), modelsFlags.provider, modelsFlags.freeOnly)
	if isFormat(cli.FormatJSON) {
		return out.FormatTo(cmd.OutOrStdout(), models)
	}
	if len(models) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No models available.")
		return nil
	}
	return out.FormatTo(cmd.OutOrStdout(), modelsTable(models))
}

// filterModels keeps models of provider (any when empty), optionally only
// free ones.
func filterModels(models []providers.ModelDescriptor, provider string, freeOnly bool) []providers.ModelDescriptor {
	out := make([]providers.ModelDescriptor, 0, len(models))
	for _, m := range models {
		if provider != "" && !strings.HasPrefix(m.ID, provider+"/") {
			continue
		}
		if freeOnly && !m.IsFree() {
			continue
		}
		out = append(out, m)
	}
	return out
}

func modelsTable(models []providers.ModelDescriptor) cli.Table {
	t := cli.Table{Columns: []string{"MODEL", "CONTEXT", "CAPABILITIES", "PROMPT/1K", "COMPLETION/1K"}}
	for _, m := range models {
		ctxLen := "-"
		if m.ContextLength > 0 {
			ctxLen = strconv.Itoa(m.ContextLength)
		}
		t.Data = append(t.Data, []string{
			m.ID,
			ctxLen,
			capabilities(m.Capabilities),
			formatCost(m.Pricing.PromptCostPer1K),
			formatCost(m.Pricing.CompletionCostPer1K),
		})
	}
	return t
}

func capabilities(c providers.Capabilities) string {
	var caps []string
	if c.Text {
		caps = append(caps, "text")
	}
	if c.Images {
		caps = append(caps, "images")
	}
	if c.Audio {
		caps = append(caps, "audio")
	}
	if c.Video {
		caps = append(caps, "video")
	}
	if len(caps) == 0 {
		return "-"
	}
	return strings.Join(caps, ",")
}

func formatCost(v float64) string {
	if v == 0 {
		return "free"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
