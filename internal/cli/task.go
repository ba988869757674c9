package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	taskCmd.AddCommand(taskAddCmd, taskRmCmd, taskClearCmd, taskFundCmd)
	rootCmd.AddCommand(taskCmd)
}

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage the task registry",
}

var taskAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Add a task (members only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOperator(cmd, func(op operator) error {
			if err := op.AddTask(args[0]); err != nil {
				return err
			}
			fmt.Printf("Added task %s\n", args[0])
			return nil
		})
	},
}

var taskRmCmd = &cobra.Command{
	Use:   "rm NAME",
	Short: "Remove a task; its balance becomes unclaimed (owner only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOperator(cmd, func(op operator) error {
			if err := op.RemoveTask(args[0]); err != nil {
				return err
			}
			fmt.Printf("Removed task %s\n", args[0])
			return nil
		})
	},
}

var taskClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every task (owner only)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOperator(cmd, func(op operator) error {
			if err := op.ClearTasks(); err != nil {
				return err
			}
			fmt.Println("Cleared all tasks")
			return nil
		})
	},
}

var taskFundCmd = &cobra.Command{
	Use:   "fund NAME AMOUNT",
	Short: "Deposit AMOUNT from the caller into a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseBalance(args[1])
		if err != nil {
			return err
		}
		return withOperator(cmd, func(op operator) error {
			if err := op.FundTask(args[0], amount); err != nil {
				return err
			}
			fmt.Printf("Funded %s with %d\n", args[0], amount)
			return nil
		})
	},
}
