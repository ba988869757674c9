package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pobal-network/pobal/internal/api"
	"github.com/pobal-network/pobal/internal/daemon"
	"github.com/pobal-network/pobal/internal/domain"
	"github.com/pobal-network/pobal/internal/security"
)

func init() {
	walletCmd.AddCommand(walletBalanceCmd, walletCreditCmd)
	rootCmd.AddCommand(walletCmd)
}

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Inspect and top up treasury accounts",
}

var walletBalanceCmd = &cobra.Command{
	Use:   "balance [PRINCIPAL]",
	Short: "Show an account balance (default: the caller)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagAPI != "" {
			kp, err := security.LoadOrCreateKeypair(daemon.PobalHome())
			if err != nil {
				return err
			}
			p, err := walletTarget(args, kp.Principal())
			if err != nil {
				return err
			}
			bal, err := api.NewClient(flagAPI, kp, "").Balance(cmd.Context(), p)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d\n", p, bal)
			return nil
		}

		d, err := openNode(cmd)
		if err != nil {
			return err
		}
		defer d.Close()
		p, err := walletTarget(args, d.Keypair.Principal())
		if err != nil {
			return err
		}
		bal, err := d.DB.BalanceOf(p)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d\n", p, bal)
		return nil
	},
}

// walletTarget picks the account to show. The system pool may be read.
func walletTarget(args []string, operator domain.Principal) (domain.Principal, error) {
	if len(args) == 0 {
		return callerOr(operator)
	}
	if domain.Principal(args[0]) == domain.SystemPool {
		return domain.SystemPool, nil
	}
	return domain.ParsePrincipal(args[0])
}

var walletCreditCmd = &cobra.Command{
	Use:   "credit AMOUNT",
	Short: "Credit the caller from the faucet (local networks only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseBalance(args[0])
		if err != nil {
			return err
		}

		if flagAPI != "" {
			kp, err := security.LoadOrCreateKeypair(daemon.PobalHome())
			if err != nil {
				return err
			}
			caller, err := callerOr(kp.Principal())
			if err != nil {
				return err
			}
			if err := api.NewClient(flagAPI, kp, caller).Faucet(cmd.Context(), amount); err != nil {
				return err
			}
			fmt.Printf("Credited %d to %s\n", amount, caller)
			return nil
		}

		d, err := openNode(cmd)
		if err != nil {
			return err
		}
		defer d.Close()
		if !d.Config.Treasury.Faucet {
			return fmt.Errorf("%w: set treasury.faucet = true in %s", domain.ErrFaucetDisabled, daemon.ConfigPath())
		}
		caller, err := callerOr(d.Keypair.Principal())
		if err != nil {
			return err
		}
		if err := d.DB.Mint(caller, amount, "faucet"); err != nil {
			return err
		}
		fmt.Printf("Credited %d to %s\n", amount, caller)
		return nil
	},
}
