package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"niblet/internal/analysis/intent"
	"niblet/internal/config"
)

var (
	classifyRemote bool
	classifyToken  string
)

var classifyCmd = &cobra.Command{
	Use:   "classify <text...>",
	Short: "Classify an utterance and extract its quantity",
	Long: `Run the chat intent rules over the given text and print the result as
JSON. With --remote the text is sent to the running API's meal analyzer
at API_URL instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	classifyCmd.Flags().BoolVar(&classifyRemote, "remote", false, "Send the text to the API at API_URL")
	classifyCmd.Flags().StringVar(&classifyToken, "token", "", "Bearer token for --remote")
}

func runClassify(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if !classifyRemote {
		return printJSON(cmd.OutOrStdout(), intent.Analyze(text))
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	out, err := analyzeRemote(ctx, http.DefaultClient, cfg.Assistant.APIURL, classifyToken, text)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func analyzeRemote(ctx context.Context, client *http.Client, baseURL, token, text string) (map[string]any, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, err
	}
	url := strings.TrimRight(baseURL, "/") + "/api/meals/analyze-text"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analyze request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analyze failed with status %d: %v", resp.StatusCode, out["error"])
	}
	return out, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
