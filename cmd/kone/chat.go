package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Kone-AI/Kone-sub000/pkg/cli"
	"github.com/Kone-AI/Kone-sub000/pkg/providers"
)

var chatFlags struct {
	system      string
	temperature float64
	maxTokens   int
	stream      bool
}

var chatCmd = &cobra.Command{
	Use:   "chat <provider/model> <prompt...>",
	Short: "Send one chat request through the router",
	Long: `Send a single user prompt to a model through the provider manager, with the
same key rotation and failover the gateway uses.

Examples:
  kone chat groq/llama-3.3-70b-versatile "What is the capital of France?"
  kone chat anthropic/claude-3-5-haiku-latest --stream "Write a haiku"
  echo "Summarize this" | kone chat openrouter/mistral-7b -`,
	Args: cobra.MinimumNArgs(2),
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVar(&chatFlags.system, "system", "", "system prompt")
	chatCmd.Flags().Float64Var(&chatFlags.temperature, "temperature", -1, "sampling temperature (upstream default when negative)")
	chatCmd.Flags().IntVar(&chatFlags.maxTokens, "max-tokens", 0, "maximum tokens to generate (upstream default when 0)")
	chatCmd.Flags().BoolVar(&chatFlags.stream, "stream", false, "stream the reply")
}

func runChat(cmd *cobra.Command, args []string) error {
	prompt := strings.Join(args[1:], " ")
	if prompt == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read prompt from stdin: %w", err)
		}
		prompt = string(data)
	}
	if strings.TrimSpace(prompt) == "" {
		return errors.New("prompt must not be empty")
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
		return cli.NewCommandError("chat", err)
	}
	defer manager.Close()

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	messages, opts := chatRequest(args[0], prompt)
	w := cmd.OutOrStdout()

	if !chatFlags.stream {
		resp, err := manager.Chat(ctx, messages, opts)
		if err != nil {
			return cli.NewCommandError("chat", err)
		}
		fmt.Fprintln(w, resp.Content())
		logger.Debug("chat completed",
			"model", resp.Model,
			"prompt_tokens", resp.Usage.PromptTokens,
			"completion_tokens", resp.Usage.CompletionTokens,
		)
		return nil
	}

	stream, err := manager.ChatStream(ctx, messages, opts)
	if err != nil {
		return cli.NewCommandError("chat", err)
	}
	defer stream.Close()

	for {
		chunk, err := stream.Read(ctx)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(w)
			return nil
		}
		if err != nil {
			fmt.Fprintln(w)
			return cli.NewCommandError("chat", err)
		}
		fmt.Fprint(w, chunk.Delta.Content)
	}
}

// chatRequest builds the messages and options of a chat call from flags.
func chatRequest(model, prompt string) ([]providers.Message, providers.ChatOptions) {
	var messages []providers.Message
	if chatFlags.system != "" {
		messages = append(messages, providers.Message{Role: "system", Content: chatFlags.system})
	}
	messages = append(messages, providers.Message{Role: "user", Content: prompt})

	opts := providers.ChatOptions{Model: model, MaxTokens: chatFlags.maxTokens}
	if chatFlags.temperature >= 0 {
		opts.Temperature = providers.Float64(chatFlags.temperature)
	}
	return messages, opts
}
