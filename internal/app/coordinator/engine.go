// Package coordinator implements the era-based selection and reward
// disbursement state machine over the member and task registries.
//
// Every public operation runs under one writer lock against the state read
// through its own backend unit of work. An error discards both, so an aborted
// call leaves registries, ledgers and era fields exactly as they were. Other
// processes may write the same backend; each operation starts from whatever
// they committed.
package coordinator

import (
	"errors"
	"fmt"
	"time"

	"github.com/algorand/go-deadlock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pobal-network/pobal/internal/app/ledger"
	"github.com/pobal-network/pobal/internal/app/selection"
	"github.com/pobal-network/pobal/internal/domain"
)

// ErrAlreadyInitialized is returned by Init on a backend that already holds state.
var ErrAlreadyInitialized = errors.New("coordinator already initialized")

// Env is the ambient, read-only input to every operation.
type Env struct {
	Caller domain.Principal
	Block  domain.BlockHeight
}

// Engine owns the coordinator state.
type Engine struct {
	mu deadlock.Mutex

	backend   domain.Backend
	clock     domain.Clock
	strategy  selection.Strategy
	sinks     []domain.EventSink
	observers []func(domain.Snapshot)
	log       *logrus.Entry

	state *State

	// now is injectable for testing.
	now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithStrategy replaces the placeholder block-modulo selection.
func WithStrategy(s selection.Strategy) Option {
	return func(e *Engine) { e.strategy = s }
}

// WithSink registers a receiver for committed events.
func WithSink(s domain.EventSink) Option {
	return func(e *Engine) { e.sinks = append(e.sinks, s) }
}

// WithObserver registers a callback that sees the state after each commit.
func WithObserver(fn func(domain.Snapshot)) Option {
	return func(e *Engine) { e.observers = append(e.observers, fn) }
}

// WithLogger sets the component logger.
func WithLogger(l *logrus.Entry) Option {
	return func(e *Engine) { e.log = l }
}

// WithNow overrides the wall clock used to stamp events.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func newEngine(backend domain.Backend, clock domain.Clock, opts []Option) *Engine {
	e := &Engine{
		backend:  backend,
		clock:    clock,
		strategy: selection.BlockModulo{},
		log:      logrus.NewEntry(logrus.StandardLogger()).WithField("component", "coordinator"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Open loads committed state from the backend.
func Open(backend domain.Backend, clock domain.Clock, opts ...Option) (*Engine, error) {
	e := newEngine(backend, clock, opts)
	snap, err := backend.LoadState()
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if snap == nil {
		return nil, domain.ErrNotInitialized
	}
	e.state = stateFromSnapshot(snap)
	e.log.WithFields(logrus.Fields{
		"owner":   e.state.owner,
		"members": e.state.members.Len(),
		"tasks":   e.state.tasks.Len(),
	}).Debug("state loaded")
	e.notifyObservers()
	return e, nil
}

// Init creates fresh state owned by owner. The current block becomes both
// the start block and the last selection; interval is blocks per era.
func Init(backend domain.Backend, clock domain.Clock, owner domain.Principal, interval domain.BlockHeight, opts ...Option) (*Engine, error) {
	owner, err := domain.ParsePrincipal(string(owner))
	if err != nil {
		return nil, err
	}
	e := newEngine(backend, clock, opts)

	existing, err := backend.LoadState()
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyInitialized
	}

	st := newState(owner, clock.Height(), interval)
	uow, err := backend.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	if err := uow.SaveState(st.snapshot()); err != nil {
		uow.Rollback()
		return nil, fmt.Errorf("save state: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	e.state = st
	e.log.WithFields(logrus.Fields{
		"owner":    owner,
		"block":    st.startBlock,
		"interval": interval,
	}).Info("coordinator initialized")
	e.notifyObservers()
	return e, nil
}

// ─── Transaction Plumbing ───────────────────────────────────────────────────

// txn is the working context of one operation.
type txn struct {
	env      Env
	state    *State
	uow      domain.UnitOfWork
	strategy selection.Strategy
	events   []domain.Event
}

func (tx *txn) emit(ev domain.Event) {
	tx.events = append(tx.events, ev)
}

// execute runs fn against the state loaded inside a fresh unit of work and
// commits both atomically.
func (e *Engine) execute(op string, caller domain.Principal, fn func(tx *txn) error) error {
	caller, err := domain.ParsePrincipal(string(caller))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == nil {
		return domain.ErrNotInitialized
	}

	uow, err := e.backend.Begin()
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	snap, err := uow.LoadState()
	if err != nil {
		uow.Rollback()
		return fmt.Errorf("%s: load state: %w", op, err)
	}
	if snap == nil {
		uow.Rollback()
		return domain.ErrNotInitialized
	}

	tx := &txn{
		env:      Env{Caller: caller, Block: e.clock.Height()},
		state:    stateFromSnapshot(snap),
		uow:      uow,
		strategy: e.strategy,
	}
	log := e.log.WithFields(logrus.Fields{"op": op, "caller": caller.Short(), "block": tx.env.Block})

	if err := fn(tx); err != nil {
		uow.Rollback()
		log.WithError(err).Debug("operation aborted")
		return fmt.Errorf("%s: %w", op, err)
	}

	now := e.now()
	for i := range tx.events {
		ev := &tx.events[i]
		ev.ID = uuid.New().String()
		ev.Block = tx.env.Block
		ev.Caller = caller
		ev.At = now
	}

	if err := uow.SaveState(tx.state.snapshot()); err != nil {
		uow.Rollback()
		return fmt.Errorf("%s: save state: %w", op, err)
	}
	if len(tx.events) > 0 {
		if err := uow.AppendEvents(tx.events); err != nil {
			uow.Rollback()
			return fmt.Errorf("%s: append events: %w", op, err)
		}
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}

	e.state = tx.state
	log.WithField("events", len(tx.events)).Debug("operation committed")

	for _, ev := range tx.events {
		for _, s := range e.sinks {
			s.Publish(ev)
		}
	}
	e.notifyObservers()
	return nil
}

func (e *Engine) notifyObservers() {
	if len(e.observers) == 0 {
		return
	}
	snap := e.state.snapshot()
	for _, fn := range e.observers {
		fn(snap)
	}
}

// ─── Read Side ──────────────────────────────────────────────────────────────

// current reloads the committed state so reads see writes made by other
// processes. Falls back to the last state this engine saw if the backend
// cannot be read.
func (e *Engine) current() *State {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap, err := e.backend.LoadState()
	if err != nil {
		e.log.WithError(err).Warn("reload state")
		return e.state
	}
	if snap != nil {
		e.state = stateFromSnapshot(snap)
	}
	return e.state
}

// Snapshot returns a deep copy of the committed state.
func (e *Engine) Snapshot() domain.Snapshot {
	return e.current().snapshot()
}

// Height returns the current block height of the engine's clock.
func (e *Engine) Height() domain.BlockHeight {
	return e.clock.Height()
}

// IsMember reports whether p is registered.
func (e *Engine) IsMember(p domain.Principal) bool {
	return e.current().members.Contains(p)
}

// Task returns a task's info row.
func (e *Engine) Task(name string) (domain.TaskInfo, error) {
	info, ok := e.current().taskInfo[name]
	if !ok {
		return domain.TaskInfo{}, domain.ErrTaskNotFound
	}
	return info, nil
}

// Proof returns the latest proof uploaded for a task.
func (e *Engine) Proof(task string) (domain.Hash, bool) {
	h, ok := e.current().proofs[task]
	return h, ok
}

// Phase returns the state machine phase.
func (e *Engine) Phase() domain.EraPhase {
	snap := domain.Snapshot{ActiveTask: e.current().activeTask}
	return snap.Phase()
}

// CheckConsistency reports whether the registries' list and set views agree.
func (e *Engine) CheckConsistency() error {
	if !e.current().consistent() {
		return errors.New("registry views out of sync")
	}
	return nil
}

// Liabilities returns the value the pool owes: unclaimed plus every task balance.
func (e *Engine) Liabilities() (domain.Balance, error) {
	st := e.current()
	total := st.unclaimed.Total()
	for _, info := range st.taskInfo {
		var err error
		if total, err = ledger.Add(total, info.Balance); err != nil {
			return 0, err
		}
	}
	return total, nil
}
