package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pobal-network/pobal/internal/daemon"
	"github.com/pobal-network/pobal/internal/domain"
)

func init() {
	initCmd.Flags().StringVar(&initOwner, "owner", "", "Owner principal (default: config node.owner, then the operator key)")
	initCmd.Flags().Uint64Var(&initInterval, "interval", 0, "Blocks per era (default: config chain.initial_interval)")
	initCmd.Flags().BoolVar(&initWriteConfig, "write-config", false, "Write the effective config to $POBAL_HOME/config.toml")
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(whoamiCmd)
}

var (
	initOwner       string
	initInterval    uint64
	initWriteConfig bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the coordinator state",
	Long: `Create the coordinator state under $POBAL_HOME.

The current block becomes the start block and the last selection, so the
first era can start once --interval blocks have passed.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return err
	}
	interval := cfg.Chain.InitialInterval
	if cmd.Flags().Changed("interval") {
		interval = initInterval
	}

	var owner domain.Principal
	if initOwner != "" {
		if owner, err = domain.ParsePrincipal(initOwner); err != nil {
			return err
		}
	}

	d, err := daemon.Initialize(cfg, nodeOptions(cmd), owner, domain.BlockHeight(interval))
	if err != nil {
		return err
	}
	defer d.Close()

	if initWriteConfig {
		if err := daemon.SaveConfig(cfg); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
	}

	snap := d.Engine.Snapshot()
	fmt.Printf("Initialized coordinator in %s\n", d.Home)
	fmt.Printf("  Owner:    %s\n", snap.Owner)
	fmt.Printf("  Block:    %d\n", snap.StartBlock)
	fmt.Printf("  Interval: %d blocks\n", snap.NextSelection)
	return nil
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Print the operator principal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOperator(cmd, func(op operator) error {
			fmt.Println(op.Caller())
			return nil
		})
	},
}
