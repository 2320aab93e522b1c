package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ccg",
	Short: "CCG Gateway - local multiplexer for CLI AI assistants",
	Long: `CCG Gateway is a local HTTP gateway that multiplexes requests from
CLI AI assistants (Claude Code, Codex, Gemini) across configurable pools
of upstream API providers.

It provides:
  - Provider pools per assistant with priority ordering
  - Automatic blacklisting of failing providers with timed recovery
  - Model-identifier mapping with wildcard rules
  - Streaming (SSE) passthrough with layered timeouts
  - Per-request logs, daily usage aggregates, and prometheus metrics`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
}
