package domain

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; the coordinator depends on them.

// Clock supplies the current block height.
type Clock interface {
	Height() BlockHeight
}

// Treasury moves value between the system pool and principals.
type Treasury interface {
	// PoolBalance returns the value currently held by the system pool.
	PoolBalance() (Balance, error)

	// BalanceOf returns a principal's spendable balance.
	BalanceOf(p Principal) (Balance, error)

	// Deposit moves amount from a principal into the system pool.
	Deposit(from Principal, amount Balance, memo string) error

	// Transfer moves amount from the system pool to a principal.
	// Returns ErrTransferRejected when the recipient side refuses it.
	Transfer(to Principal, amount Balance, memo string) error
}

// UnitOfWork is one all-or-nothing operation against the backend.
// Nothing staged through it is visible until Commit, and no other unit of
// work may commit between its LoadState and its Commit.
type UnitOfWork interface {
	Treasury

	// LoadState returns the committed state as seen by this unit of work,
	// or nil if never initialized.
	LoadState() (*Snapshot, error)
	SaveState(s Snapshot) error
	AppendEvents(events []Event) error

	Commit() error
	Rollback() error
}

// Backend abstracts persistent coordinator storage.
type Backend interface {
	// LoadState returns the committed state, or nil if never initialized.
	LoadState() (*Snapshot, error)

	// Begin opens a unit of work.
	Begin() (UnitOfWork, error)
}

// EventSink receives events after their operation has committed.
type EventSink interface {
	Publish(e Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(e Event)

// Publish calls f(e).
func (f EventSinkFunc) Publish(e Event) { f(e) }
