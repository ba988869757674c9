package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pobal-network/pobal/internal/api"
	"github.com/pobal-network/pobal/internal/daemon"
	"github.com/pobal-network/pobal/internal/security"
)

func init() {
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "text", "Output format: text, json or yaml")
	rootCmd.AddCommand(statusCmd)
}

var statusOutput string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the era, registries and treasury",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	view, err := loadStatus(cmd)
	if err != nil {
		return err
	}

	switch statusOutput {
	case "json":
		return printJSON(os.Stdout, view)
	case "yaml":
		return printYAML(os.Stdout, view)
	case "text":
	default:
		return fmt.Errorf("unknown output format %q", statusOutput)
	}

	s := view.State
	fmt.Printf("Block:        %d\n", view.Height)
	fmt.Printf("Phase:        %s\n", view.Phase)
	fmt.Printf("Owner:        %s\n", s.Owner)
	fmt.Printf("Interval:     %d blocks (last selection %d, next era at %d)\n",
		s.NextSelection, s.LastSelection, view.NextEraBlock)
	fmt.Printf("Pool:         %d (unclaimed %d)\n", view.Pool, s.Unclaimed)
	fmt.Printf("Members:      %d\n", len(s.Members))
	for _, m := range s.Members {
		fmt.Printf("  %s\n", m)
	}
	fmt.Printf("Tasks:        %d\n", len(s.Tasks))
	for _, name := range s.Tasks {
		info := s.TaskInfo[name]
		state := "open"
		if info.Complete {
			state = "complete"
		}
		proof := ""
		if h, ok := s.Proofs[name]; ok {
			proof = "  proof " + h.String()[:16]
		}
		fmt.Printf("  %-24s %-8s %d%s\n", name, state, info.Balance, proof)
	}
	if s.ActiveTask != nil {
		fmt.Printf("Active task:  %s\n", s.ActiveTask.Name)
	}
	if len(s.ActiveParticipants) > 0 {
		names := make([]string, len(s.ActiveParticipants))
		for i, p := range s.ActiveParticipants {
			names[i] = p.Short()
		}
		fmt.Printf("Participants: %s\n", strings.Join(names, ", "))
	}
	return nil
}

// loadStatus reads the status locally, or from the server when --api is set.
func loadStatus(cmd *cobra.Command) (*api.StatusView, error) {
	if flagAPI != "" {
		kp, err := security.LoadOrCreateKeypair(daemon.PobalHome())
		if err != nil {
			return nil, err
		}
		return api.NewClient(flagAPI, kp, "").Status(cmd.Context())
	}

	d, err := openNode(cmd)
	if err != nil {
		return nil, err
	}
	defer d.Close()

	snap := d.Engine.Snapshot()
	pool, err := d.DB.PoolBalance()
	if err != nil {
		return nil, err
	}
	return &api.StatusView{
		Height:       d.Engine.Height(),
		Phase:        snap.Phase(),
		NextEraBlock: snap.NextEraBlock(),
		Pool:         pool,
		State:        snap,
	}, nil
}
