package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(registerCmd, deregisterCmd, clearMembersCmd)
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register the caller as a member",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOperator(cmd, func(op operator) error {
			if err := op.Register(); err != nil {
				return err
			}
			fmt.Printf("Registered %s\n", op.Caller())
			return nil
		})
	},
}

var deregisterCmd = &cobra.Command{
	Use:   "deregister",
	Short: "Remove the caller from the member registry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOperator(cmd, func(op operator) error {
			if err := op.Deregister(); err != nil {
				return err
			}
			fmt.Printf("Deregistered %s\n", op.Caller())
			return nil
		})
	},
}

var clearMembersCmd = &cobra.Command{
	Use:   "clear-members",
	Short: "Remove every member (owner only)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOperator(cmd, func(op operator) error {
			if err := op.ClearMembers(); err != nil {
				return err
			}
			fmt.Println("Cleared all members")
			return nil
		})
	},
}
