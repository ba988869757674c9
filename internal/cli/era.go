package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pobal-network/pobal/internal/domain"
)

func init() {
	rootCmd.AddCommand(setIntervalCmd, startEraCmd, submitProofCmd, completeCmd)
}

var setIntervalCmd = &cobra.Command{
	Use:   "set-interval BLOCKS",
	Short: "Set the blocks between eras (owner only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("interval %q: %w", args[0], err)
		}
		return withOperator(cmd, func(op operator) error {
			if err := op.SetSelectionInterval(domain.BlockHeight(n)); err != nil {
				return err
			}
			fmt.Printf("Selection interval set to %d blocks\n", n)
			return nil
		})
	},
}

var startEraCmd = &cobra.Command{
	Use:   "start-era",
	Short: "Select four members and a task for a new era",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOperator(cmd, func(op operator) error {
			return op.StartNewEra()
		})
	},
	PostRunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("New era started. Run 'pobal status' to see the selection.")
		return nil
	},
}

var submitProofCmd = &cobra.Command{
	Use:   "submit-proof HASH",
	Short: "Record a proof hash for the active task (active participants only)",
	Long: `Record a 32-byte hex proof hash for the active task.

Use 'pobal proof hash FILE' to derive one from a file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := domain.ParseHash(args[0])
		if err != nil {
			return err
		}
		return withOperator(cmd, func(op operator) error {
			if err := op.SubmitProof(h); err != nil {
				return err
			}
			fmt.Printf("Proof %s recorded\n", h)
			return nil
		})
	},
}

var completeCmd = &cobra.Command{
	Use:   "complete",
	Short: "Mark the active task complete and pay its participants (owner only)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOperator(cmd, func(op operator) error {
			payout, err := op.CompleteTask()
			if err != nil {
				return err
			}
			if payout == nil {
				fmt.Println("No active task.")
				return nil
			}
			fmt.Printf("Disbursed %d: %d each to %d participants, %d parked\n",
				payout.Amount, payout.Share, len(payout.Paid), payout.Parked)
			if len(payout.Failed) > 0 {
				names := make([]string, len(payout.Failed))
				for i, p := range payout.Failed {
					names[i] = p.Short()
				}
				fmt.Printf("  Rejected: %s\n", strings.Join(names, ", "))
			}
			return nil
		})
	},
}
