package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for listingscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listingscan",
		Short: "Extract business listings from Earth911 and BestBuy",
		Long: `listingscan collects business listings from public directory sites.

Earth911 recycling centers are gathered by walking the paginated search
results over HTTP and reading every center's detail page. BestBuy stores
are gathered by driving a headless Chrome through the store locator.

Results are written as CSV and JSON files and recorded in a local history
database that the history command can display.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-file", "",
		"Also write logs to this file (rotated at 10 MB)")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
