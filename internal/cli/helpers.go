package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pobal-network/pobal/internal/api"
	"github.com/pobal-network/pobal/internal/app/ledger"
	"github.com/pobal-network/pobal/internal/daemon"
	"github.com/pobal-network/pobal/internal/domain"
	"github.com/pobal-network/pobal/internal/infra/chain"
	"github.com/pobal-network/pobal/internal/security"
)

// nodeOptions turns the persistent flags into daemon options.
func nodeOptions(cmd *cobra.Command) daemon.Options {
	var opts daemon.Options
	if cmd.Flags().Changed("block") {
		opts.Clock = chain.NewManualClock(domain.BlockHeight(flagBlock))
	}
	return opts
}

// openNode opens the local node for a command.
func openNode(cmd *cobra.Command) (*daemon.Daemon, error) {
	return daemon.New(nodeOptions(cmd))
}

// callerOr returns --as when set, else the operator principal.
func callerOr(operator domain.Principal) (domain.Principal, error) {
	if flagAs == "" {
		return operator, nil
	}
	return domain.ParsePrincipal(flagAs)
}

// ─── Operators ──────────────────────────────────────────────────────────────
// An operator runs coordinator operations either against the local store or
// through a server (--api). Local writes are safe next to a running server;
// both sides serialise on the store's write lock.

type operator interface {
	Caller() domain.Principal
	Register() error
	Deregister() error
	ClearMembers() error
	AddTask(name string) error
	RemoveTask(name string) error
	ClearTasks() error
	FundTask(name string, amount domain.Balance) error
	SetSelectionInterval(interval domain.BlockHeight) error
	StartNewEra() error
	SubmitProof(proof domain.Hash) error
	CompleteTask() (*ledger.Payout, error)
	Close()
}

func openOperator(cmd *cobra.Command) (operator, error) {
	if flagAPI != "" {
		kp, err := security.LoadOrCreateKeypair(daemon.PobalHome())
		if err != nil {
			return nil, err
		}
		caller, err := callerOr(kp.Principal())
		if err != nil {
			return nil, err
		}
		return &remoteOperator{client: api.NewClient(flagAPI, kp, caller), caller: caller, ctx: cmd.Context()}, nil
	}

	d, err := openNode(cmd)
	if err != nil {
		return nil, err
	}
	caller, err := callerOr(d.Keypair.Principal())
	if err != nil {
		d.Close()
		return nil, err
	}
	return &localOperator{d: d, caller: caller}, nil
}

type localOperator struct {
	d      *daemon.Daemon
	caller domain.Principal
}

func (o *localOperator) Caller() domain.Principal { return o.caller }
func (o *localOperator) Register() error          { return o.d.Engine.Register(o.caller) }
func (o *localOperator) Deregister() error        { return o.d.Engine.Deregister(o.caller) }
func (o *localOperator) ClearMembers() error      { return o.d.Engine.ClearMembers(o.caller) }
func (o *localOperator) AddTask(name string) error {
	return o.d.Engine.AddTask(o.caller, name)
}
func (o *localOperator) RemoveTask(name string) error {
	return o.d.Engine.RemoveTask(o.caller, name)
}
func (o *localOperator) ClearTasks() error { return o.d.Engine.ClearTasks(o.caller) }
func (o *localOperator) FundTask(name string, amount domain.Balance) error {
	return o.d.Engine.FundTask(o.caller, name, amount)
}
func (o *localOperator) SetSelectionInterval(interval domain.BlockHeight) error {
	return o.d.Engine.SetSelectionInterval(o.caller, interval)
}
func (o *localOperator) StartNewEra() error { return o.d.Engine.StartNewEra(o.caller) }
func (o *localOperator) SubmitProof(proof domain.Hash) error {
	return o.d.Engine.SubmitProof(o.caller, proof)
}
func (o *localOperator) CompleteTask() (*ledger.Payout, error) {
	return o.d.Engine.CompleteTask(o.caller)
}
func (o *localOperator) Close() { o.d.Close() }

type remoteOperator struct {
	client *api.Client
	caller domain.Principal
	ctx    context.Context
}

func (o *remoteOperator) Caller() domain.Principal { return o.caller }
func (o *remoteOperator) Register() error          { return o.client.Register(o.ctx) }
func (o *remoteOperator) Deregister() error        { return o.client.Deregister(o.ctx) }
func (o *remoteOperator) ClearMembers() error      { return o.client.ClearMembers(o.ctx) }
func (o *remoteOperator) AddTask(name string) error {
	return o.client.AddTask(o.ctx, name)
}
func (o *remoteOperator) RemoveTask(name string) error {
	return o.client.RemoveTask(o.ctx, name)
}
func (o *remoteOperator) ClearTasks() error { return o.client.ClearTasks(o.ctx) }
func (o *remoteOperator) FundTask(name string, amount domain.Balance) error {
	return o.client.FundTask(o.ctx, name, amount)
}
func (o *remoteOperator) SetSelectionInterval(interval domain.BlockHeight) error {
	return o.client.SetSelectionInterval(o.ctx, interval)
}
func (o *remoteOperator) StartNewEra() error { return o.client.StartNewEra(o.ctx) }
func (o *remoteOperator) SubmitProof(proof domain.Hash) error {
	return o.client.SubmitProof(o.ctx, proof)
}
func (o *remoteOperator) CompleteTask() (*ledger.Payout, error) {
	return o.client.CompleteTask(o.ctx)
}
func (o *remoteOperator) Close() {}

// withOperator opens an operator, runs fn and closes it.
func withOperator(cmd *cobra.Command, fn func(op operator) error) error {
	op, err := openOperator(cmd)
	if err != nil {
		return err
	}
	defer op.Close()
	return fn(op)
}

// ─── Output ─────────────────────────────────────────────────────────────────

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(v)
}

func parseBalance(s string) (domain.Balance, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", s, err)
	}
	return domain.Balance(v), nil
}
