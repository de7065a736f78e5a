package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/vesselinfo/internal/llm"
	"github.com/ppiankov/vesselinfo/internal/tool"
)

var (
	askProvider string
	askModel    string
	askBaseURL  string
	askMaxTurns int
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question with an LLM that calls the vessel lookup tool",
	Long: `Ask sends the question to an OpenAI-compatible chat model together with the
vessel lookup tool definition. Tool calls the model makes are executed
in-process against the loaded AIS data and their results are fed back
until the model answers.

The API key is read from VESSELINFO_LLM_API_KEY or OPENAI_API_KEY. Ollama
needs no key.

Example:
  vesselinfo ask "Where is the SEA STAR right now?"
  vesselinfo ask --provider openai --model gpt-4o-mini "Which tankers were anchored off Long Beach on 2024-01-01?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	addStoreFlags(askCmd)
	askCmd.Flags().StringVar(&askProvider, "provider", "", "LLM provider: openai or ollama (default from config)")
	askCmd.Flags().StringVar(&askModel, "model", "", "model name (default from config)")
	askCmd.Flags().StringVar(&askBaseURL, "base-url", "", "OpenAI-compatible endpoint (default from config)")
	askCmd.Flags().IntVar(&askMaxTurns, "max-turns", 0, "maximum model round trips (default from config)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	applyStoreFlags(cfg)

	lc := llm.ConfigFromModel(cfg.LLM)
	if askProvider != "" {
		lc.Provider = askProvider
	}
	if askModel != "" {
		lc.Model = askModel
	}
	if askBaseURL != "" {
		lc.BaseURL = askBaseURL
	}
	if askMaxTurns > 0 {
		lc.MaxTurns = askMaxTurns
	}

	provider, err := llm.NewProvider(lc)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	h, err := buildHandler(ctx, cfg)
	if err != nil {
		return err
	}

	agent := llm.NewAgent(provider, []llm.Tool{lookupTool(h)}, lc.MaxTurns, logger.Named("llm"))
	answer, err := agent.Ask(ctx, strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("ask %s: %w", provider.Name(), err)
	}

	logger.Debug("answered",
		zap.String("provider", provider.Name()),
		zap.Int("turns", answer.Turns),
		zap.Int("tool_calls", answer.ToolCalls),
		zap.Int("tokens", answer.TokensUsed))

	fmt.Println(answer.Text)
	return nil
}

// lookupTool exposes the handler to the agent with the same definition MCP
// clients see.
func lookupTool(h *tool.Handler) llm.Tool {
	def := h.Tool()
	return llm.Tool{
		Name:        def.Name,
		Description: def.Description,
		Parameters:  tool.InputSchema(),
		Call: func(ctx context.Context, args map[string]any) (any, bool) {
			return h.Respond(ctx, args)
		},
	}
}
