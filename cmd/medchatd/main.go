package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "medchatd",
	Short: "Personalized health chat over a locally hosted LLM",
	Long: `medchatd answers health questions over server-sent events using a single
in-process LLM. The model is loaded on first use, evicted when idle or under
memory pressure, and reloaded transparently on the next request.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (.yaml, .yml, .json or .toml)")
	bindOverrideFlags(rootCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(preflightCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
