package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pobal-network/pobal/internal/api"
	"github.com/pobal-network/pobal/internal/daemon"
	"github.com/pobal-network/pobal/internal/domain"
	"github.com/pobal-network/pobal/internal/security"
)

func init() {
	eventsCmd.Flags().Int64Var(&eventsAfter, "after", 0, "Only show events with a sequence number above this")
	eventsCmd.Flags().StringVar(&eventsKind, "kind", "", "Only show one event kind, e.g. NewEraStarted")
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 50, "Maximum events to show")
	eventsCmd.Flags().BoolVar(&eventsJSON, "json", false, "Print events as JSON")
	rootCmd.AddCommand(eventsCmd)
}

var (
	eventsAfter int64
	eventsKind  string
	eventsLimit int
	eventsJSON  bool
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List committed coordinator events",
	Args:  cobra.NoArgs,
	RunE:  runEvents,
}

func runEvents(cmd *cobra.Command, args []string) error {
	kind := domain.EventKind(eventsKind)

	var events []domain.Event
	if flagAPI != "" {
		kp, err := security.LoadOrCreateKeypair(daemon.PobalHome())
		if err != nil {
			return err
		}
		events, err = api.NewClient(flagAPI, kp, "").Events(cmd.Context(), eventsAfter, kind, eventsLimit)
		if err != nil {
			return err
		}
	} else {
		d, err := openNode(cmd)
		if err != nil {
			return err
		}
		defer d.Close()
		if events, err = d.DB.ListEvents(eventsAfter, kind, eventsLimit); err != nil {
			return err
		}
	}

	if eventsJSON {
		return printJSON(os.Stdout, events)
	}
	if len(events) == 0 {
		fmt.Println("No events.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "SEQ\tBLOCK\tKIND\tCALLER\tDETAILS")
	for _, e := range events {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\n", e.Seq, e.Block, e.Kind, e.Caller.Short(), eventSummary(e))
	}
	return w.Flush()
}

// eventSummary renders the kind-specific fields of an event.
func eventSummary(e domain.Event) string {
	var parts []string
	if e.Member != "" {
		parts = append(parts, "member="+e.Member.Short())
	}
	if e.Task != "" {
		parts = append(parts, "task="+e.Task)
	}
	if e.Donor != "" {
		parts = append(parts, "donor="+e.Donor.Short())
	}
	if e.Amount > 0 {
		parts = append(parts, fmt.Sprintf("amount=%d", e.Amount))
	}
	if e.Interval > 0 {
		parts = append(parts, fmt.Sprintf("interval=%d", e.Interval))
	}
	if len(e.Participants) > 0 {
		parts = append(parts, fmt.Sprintf("participants=%d", len(e.Participants)))
	}
	if e.Proof != "" {
		proof := e.Proof
		if len(proof) > 16 {
			proof = proof[:16]
		}
		parts = append(parts, "proof="+proof)
	}
	if e.Share > 0 {
		parts = append(parts, fmt.Sprintf("share=%d", e.Share))
	}
	if e.Remainder > 0 {
		parts = append(parts, fmt.Sprintf("remainder=%d", e.Remainder))
	}
	if len(e.Failed) > 0 {
		parts = append(parts, fmt.Sprintf("failed=%d", len(e.Failed)))
	}
	return strings.Join(parts, " ")
}
