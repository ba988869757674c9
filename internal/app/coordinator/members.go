package coordinator

import "github.com/pobal-network/pobal/internal/domain"

// ─── Authorization ──────────────────────────────────────────────────────────

func (tx *txn) ensureOwner() error {
	if tx.env.Caller != tx.state.owner {
		return domain.ErrNotOwner
	}
	return nil
}

func (tx *txn) ensureMember() error {
	if !tx.state.members.Contains(tx.env.Caller) {
		return domain.ErrNotMember
	}
	return nil
}

// ─── Membership Registry ────────────────────────────────────────────────────

// Register adds the caller to the member registry.
func (e *Engine) Register(caller domain.Principal) error {
	return e.execute("register", caller, func(tx *txn) error {
		if !tx.state.members.Insert(tx.env.Caller) {
			return domain.ErrAlreadyMember
		}
		tx.emit(domain.Event{Kind: domain.EventMemberRegistered, Member: tx.env.Caller})
		return nil
	})
}

// Deregister removes the caller from the member registry. The last member
// takes the freed slot, which changes future selections.
func (e *Engine) Deregister(caller domain.Principal) error {
	return e.execute("deregister", caller, func(tx *txn) error {
		if err := tx.ensureMember(); err != nil {
			return err
		}
		tx.state.members.Remove(tx.env.Caller)
		tx.emit(domain.Event{Kind: domain.EventMemberDeregistered, Member: tx.env.Caller})
		return nil
	})
}

// ClearMembers empties the member registry. Owner only.
func (e *Engine) ClearMembers(caller domain.Principal) error {
	return e.execute("clear members", caller, func(tx *txn) error {
		if err := tx.ensureOwner(); err != nil {
			return err
		}
		tx.state.members.Clear()
		tx.emit(domain.Event{Kind: domain.EventMembersCleared})
		return nil
	})
}
