// Command sajuctl is the operator CLI for the saju gateway: run the
// webhook server, trigger a one-off daily push job, or run the
// maintenance sweeps (pending-action expiry, interest decay) outside
// their normal schedule. Structured the way the pack's Cobra CLIs
// split each subcommand into its own file under one root command.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "sajuctl",
	Short:         "sajuctl — operate the saju conversational gateway",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
