package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	queryKind   string
	queryParams string
	queryPretty bool
)

// errCallFailed makes the process exit non-zero after the response was printed.
var errCallFailed = errors.New("tool call failed")

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run one tool call and print the response",
	Long: `Query builds the tool arguments from --kind and --params, runs them through
the same validation, intent extraction and resolution as an MCP call and
prints the response JSON an MCP client would receive.

Kinds: lookupByIdentifier, lookupByName, lookupByArea, lookupByTime, compoundFilter

Example:
  vesselinfo query --kind lookupByIdentifier --params '{"mmsi":366123456}'
  vesselinfo query --kind lookupByName --params '{"name":"SEA STAR"}'
  vesselinfo query --kind compoundFilter --params '{"vesselType":"tanker","status":["at anchor"]}'`,
	Args: cobra.NoArgs,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	addStoreFlags(queryCmd)
	queryCmd.Flags().StringVar(&queryKind, "kind", "", "intent kind")
	queryCmd.Flags().StringVar(&queryParams, "params", "{}", "intent parameters as a JSON object")
	queryCmd.Flags().BoolVar(&queryPretty, "pretty", false, "indent the JSON output")
	_ = queryCmd.MarkFlagRequired("kind")
}

func runQuery(cmd *cobra.Command, args []string) error {
	applyStoreFlags(cfg)

	var params any
	if err := json.Unmarshal([]byte(queryParams), &params); err != nil {
		return fmt.Errorf("--params is not valid JSON: %w", err)
	}

	ctx := context.Background()
	h, err := buildHandler(ctx, cfg)
	if err != nil {
		return err
	}

	resp, failed := h.Respond(ctx, map[string]any{"kind": queryKind, "parameters": params})

	enc := json.NewEncoder(os.Stdout)
	if queryPretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	if failed {
		return errCallFailed
	}
	return nil
}
