// ticketctl runs ticket analyses and knowledge-base maintenance from the shell.
//
// Usage:
//
//	ticketctl analyze --ticket TKT-001
//	ticketctl analyze --subject "VPN down" --description "..."
//	ticketctl samples
//	ticketctl seed
//	ticketctl hash-secret <secret>
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "ticketctl",
	Short: "Analyze IT support tickets with the ReAct advisor",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(samplesCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(hashSecretCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
