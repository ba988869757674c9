// Package memstore is an in-memory coordinator backend used by the
// coordinator tests. Nothing survives the process.
package memstore

import (
	"errors"
	"fmt"

	"github.com/algorand/go-deadlock"

	"github.com/pobal-network/pobal/internal/app/ledger"
	"github.com/pobal-network/pobal/internal/domain"
)

var errTxDone = errors.New("memstore: unit of work already finished")

// Store implements domain.Backend.
type Store struct {
	// writer is held by a unit of work from Begin until Commit or Rollback.
	writer deadlock.Mutex

	mu deadlock.Mutex

	state    *domain.Snapshot
	pool     domain.Balance
	balances map[domain.Principal]domain.Balance
	blocked  map[domain.Principal]bool
	events   []domain.Event
}

// New creates an empty store.
func New() *Store {
	return &Store{
		balances: make(map[domain.Principal]domain.Balance),
		blocked:  make(map[domain.Principal]bool),
	}
}

// Mint credits a principal's wallet outside any unit of work.
func (s *Store) Mint(p domain.Principal, amount domain.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bal, err := ledger.Add(s.balances[p], amount)
	if err != nil {
		return err
	}
	s.balances[p] = bal
	return nil
}

// SetPool overrides the pool balance. Test helper for insufficient-funds paths.
func (s *Store) SetPool(amount domain.Balance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pool = amount
}

// Block makes every transfer to p fail with ErrTransferRejected.
func (s *Store) Block(p domain.Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocked[p] = true
}

// Pool returns the committed pool balance.
func (s *Store) Pool() domain.Balance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool
}

// Balance returns a principal's committed balance.
func (s *Store) Balance(p domain.Principal) domain.Balance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[p]
}

// Events returns all committed events in order.
func (s *Store) Events() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Event(nil), s.events...)
}

// LoadState implements domain.Backend.
func (s *Store) LoadState() (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(), nil
}

func (s *Store) loadLocked() *domain.Snapshot {
	if s.state == nil {
		return nil
	}
	c := *s.state
	return &c
}

// Begin implements domain.Backend. Units of work run one at a time.
func (s *Store) Begin() (domain.UnitOfWork, error) {
	s.writer.Lock()
	return &unit{
		store:   s,
		credits: make(map[domain.Principal]domain.Balance),
		debits:  make(map[domain.Principal]domain.Balance),
	}, nil
}

func (s *Store) balanceLocked(p domain.Principal) domain.Balance {
	if p == domain.SystemPool {
		return s.pool
	}
	return s.balances[p]
}

func (s *Store) setBalanceLocked(p domain.Principal, b domain.Balance) {
	if p == domain.SystemPool {
		s.pool = b
		return
	}
	s.balances[p] = b
}

// unit stages per-account credits and debits and applies them on Commit,
// so wallet changes made outside the unit (Mint) are kept.
type unit struct {
	store *Store
	done  bool

	credits map[domain.Principal]domain.Balance
	debits  map[domain.Principal]domain.Balance
	state   *domain.Snapshot
	events  []domain.Event
}

// view is the committed balance of p with this unit's moves applied.
func (u *unit) view(p domain.Principal) (domain.Balance, error) {
	u.store.mu.Lock()
	base := u.store.balanceLocked(p)
	u.store.mu.Unlock()
	return applyDelta(p, base, u.credits[p], u.debits[p])
}

func applyDelta(p domain.Principal, base, credit, debit domain.Balance) (domain.Balance, error) {
	v, err := ledger.Add(base, credit)
	if err != nil {
		return 0, err
	}
	if v < debit {
		return 0, fmt.Errorf("%w: %s has %d, needs %d", domain.ErrInsufficientFunds, p, v, debit)
	}
	return v - debit, nil
}

// move stages amount from one account to another.
func (u *unit) move(from, to domain.Principal, amount domain.Balance) error {
	debit, err := ledger.Add(u.debits[from], amount)
	if err != nil {
		return err
	}
	credit, err := ledger.Add(u.credits[to], amount)
	if err != nil {
		return err
	}
	u.debits[from] = debit
	u.credits[to] = credit
	return nil
}

func (u *unit) PoolBalance() (domain.Balance, error) {
	return u.view(domain.SystemPool)
}

func (u *unit) BalanceOf(p domain.Principal) (domain.Balance, error) {
	return u.view(p)
}

func (u *unit) Deposit(from domain.Principal, amount domain.Balance, memo string) error {
	have, err := u.view(from)
	if err != nil {
		return err
	}
	if have < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", domain.ErrInsufficientFunds, from, have, amount)
	}
	pool, err := u.view(domain.SystemPool)
	if err != nil {
		return err
	}
	if _, err := ledger.Add(pool, amount); err != nil {
		return err
	}
	return u.move(from, domain.SystemPool, amount)
}

func (u *unit) Transfer(to domain.Principal, amount domain.Balance, memo string) error {
	if u.store.isBlocked(to) {
		return fmt.Errorf("%w: %s is blocked", domain.ErrTransferRejected, to)
	}
	pool, err := u.view(domain.SystemPool)
	if err != nil {
		return err
	}
	if pool < amount {
		return fmt.Errorf("%w: pool has %d, needs %d", domain.ErrInsufficientFunds, pool, amount)
	}
	bal, err := u.view(to)
	if err != nil {
		return err
	}
	if _, err := ledger.Add(bal, amount); err != nil {
		return fmt.Errorf("%w: recipient %v", domain.ErrTransferRejected, err)
	}
	return u.move(domain.SystemPool, to, amount)
}

func (u *unit) LoadState() (*domain.Snapshot, error) {
	return u.store.LoadState()
}

func (u *unit) SaveState(snap domain.Snapshot) error {
	u.state = &snap
	return nil
}

func (u *unit) AppendEvents(events []domain.Event) error {
	u.events = append(u.events, events...)
	return nil
}

func (u *unit) Commit() error {
	if u.done {
		return errTxDone
	}
	u.done = true
	defer u.store.writer.Unlock()

	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[domain.Principal]domain.Balance, len(u.credits)+len(u.debits))
	for _, m := range []map[domain.Principal]domain.Balance{u.credits, u.debits} {
		for p := range m {
			if _, ok := next[p]; ok {
				continue
			}
			v, err := applyDelta(p, s.balanceLocked(p), u.credits[p], u.debits[p])
			if err != nil {
				return fmt.Errorf("memstore: commit: %w", err)
			}
			next[p] = v
		}
	}
	for p, v := range next {
		s.setBalanceLocked(p, v)
	}
	if u.state != nil {
		s.state = u.state
	}
	for _, ev := range u.events {
		ev.Seq = int64(len(s.events) + 1)
		s.events = append(s.events, ev)
	}
	return nil
}

func (u *unit) Rollback() error {
	if u.done {
		return nil
	}
	u.done = true
	u.store.writer.Unlock()
	return nil
}

func (s *Store) isBlocked(p domain.Principal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocked[p]
}
