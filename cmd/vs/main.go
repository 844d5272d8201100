// Command vs is the viralscope command-line client.
//
// Usage:
//
//	vs analyze --niche food      Analyze trending posts in a niche
//	vs posts --niche travel      List posts without analyzing them
//	vs providers                 Show configured AI providers
//	vs history <post-id>         Past analyses of a post
//	vs events                    JSONL event log viewer
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abelbrown/viralscope/internal/logging"
)

var (
	serverURL string
	jsonOut   bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vs",
		Short:         "viralscope client: viral post analysis from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// file logging is best effort; the logger is nil-safe
			_ = logging.Init()
			logging.Debug("vs command", "cmd", cmd.CommandPath(), "server", serverURL)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Close()
		},
	}

	root.PersistentFlags().StringVar(&serverURL, "server", envOrDefault("VIRALSCOPE_URL", "http://localhost:8080"), "viralscope server base URL")
	root.PersistentFlags().BoolVar(&jsonOut, "json", false, "print raw JSON instead of formatted output")

	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newPostsCmd())
	root.AddCommand(newProvidersCmd())
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newEventsCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

// envOrDefault returns the environment variable value or a fallback.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
