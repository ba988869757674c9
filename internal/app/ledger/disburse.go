package ledger

import (
	"errors"
	"fmt"

	"github.com/pobal-network/pobal/internal/domain"
)

// Payout reports how a disbursement was split.
type Payout struct {
	Amount    domain.Balance     `json:"amount"`
	Share     domain.Balance     `json:"share"`
	Remainder domain.Balance     `json:"remainder"`
	Paid      []domain.Principal `json:"paid"`
	Failed    []domain.Principal `json:"failed,omitempty"`
	Parked    domain.Balance     `json:"parked"` // failed shares + remainder
}

// Split divides amount between n beneficiaries with truncating division.
func Split(amount domain.Balance, n int) (share, remainder domain.Balance) {
	if n <= 0 {
		return 0, amount
	}
	d := domain.Balance(n)
	return amount / d, amount % d
}

// Disburse pays amount out of the treasury pool to beneficiaries in order.
//
// The pool must hold at least amount or nothing is attempted. A transfer the
// recipient side rejects does not stop the others: that share is parked in
// unclaimed instead. The remainder is always parked, even when zero. Any
// other treasury error aborts and the caller must discard the unit of work.
//
// Disburse does not zero the source balance; callers own that step.
func Disburse(t domain.Treasury, unclaimed *Unclaimed, beneficiaries []domain.Principal, amount domain.Balance, memo string) (Payout, error) {
	if len(beneficiaries) == 0 {
		return Payout{}, fmt.Errorf("disburse %q: %w", memo, domain.ErrNoMembers)
	}

	pool, err := t.PoolBalance()
	if err != nil {
		return Payout{}, fmt.Errorf("get pool balance: %w", err)
	}
	if pool < amount {
		return Payout{}, fmt.Errorf("%w: pool has %d, need %d", domain.ErrInsufficientFunds, pool, amount)
	}

	share, remainder := Split(amount, len(beneficiaries))
	p := Payout{Amount: amount, Share: share, Remainder: remainder}

	for _, b := range beneficiaries {
		if share == 0 {
			p.Paid = append(p.Paid, b)
			continue
		}
		err := t.Transfer(b, share, memo)
		switch {
		case err == nil:
			p.Paid = append(p.Paid, b)
		case errors.Is(err, domain.ErrTransferRejected):
			if err := unclaimed.Park(share); err != nil {
				return Payout{}, err
			}
			p.Failed = append(p.Failed, b)
			p.Parked += share
		default:
			return Payout{}, fmt.Errorf("transfer to %s: %w", b, err)
		}
	}

	if err := unclaimed.Park(remainder); err != nil {
		return Payout{}, err
	}
	p.Parked += remainder
	return p, nil
}
