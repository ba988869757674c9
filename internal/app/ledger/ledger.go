// Package ledger implements the funds-accounting rules: checked arithmetic,
// the unclaimed-funds pool, and the disbursement split.
//
// Every addition is checked. An overflow is an error that aborts the
// enclosing operation; nothing is ever saturated or wrapped.
package ledger

import (
	"fmt"

	"golang.org/x/exp/constraints"

	"github.com/pobal-network/pobal/internal/domain"
)

// OAdd adds 2 values with overflow detection.
func OAdd[T constraints.Unsigned](a, b T) (res T, overflowed bool) {
	res = a + b
	overflowed = res < a
	return
}

// Add returns a+b or ErrBalanceOverflow.
func Add(a, b domain.Balance) (domain.Balance, error) {
	sum, overflowed := OAdd(a, b)
	if overflowed {
		return 0, fmt.Errorf("%w: %d + %d", domain.ErrBalanceOverflow, a, b)
	}
	return sum, nil
}

// Unclaimed accumulates value that could not be attributed or delivered:
// balances of removed tasks, disbursement remainders and failed transfers.
// It only grows; there is no withdrawal.
type Unclaimed struct {
	total domain.Balance
}

// NewUnclaimed resumes a pool at a previously persisted total.
func NewUnclaimed(total domain.Balance) *Unclaimed {
	return &Unclaimed{total: total}
}

// Park adds amount to the pool.
func (u *Unclaimed) Park(amount domain.Balance) error {
	sum, err := Add(u.total, amount)
	if err != nil {
		return fmt.Errorf("park unclaimed funds: %w", err)
	}
	u.total = sum
	return nil
}

// Total returns the accumulated balance.
func (u *Unclaimed) Total() domain.Balance {
	return u.total
}
