// Package cli implements the pobal command-line interface using Cobra.
// Each subcommand maps to one coordinator operation or query.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagAs    string
	flagBlock uint64
	flagAPI   string
)

var rootCmd = &cobra.Command{
	Use:   "pobal",
	Short: "pobal: era-based task selection and reward disbursement",
	Long: `pobal coordinates a registry of members and funded tasks.

Every era it selects four members and one task. When the owner marks the
task complete, its balance is split evenly between the selected members.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagAs, "as", "", "Act as this principal instead of the operator key")
	pf.Uint64Var(&flagBlock, "block", 0, "Pin the block height instead of using the wall clock")
	pf.StringVar(&flagAPI, "api", os.Getenv("POBAL_API"), "Send operations to a running server (e.g. http://127.0.0.1:9944)")
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
