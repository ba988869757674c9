package coordinator

import (
	"github.com/pobal-network/pobal/internal/app/ledger"
	"github.com/pobal-network/pobal/internal/domain"
)

// ─── Era Selection State Machine ────────────────────────────────────────────
//
//	NO_ACTIVE_TASK ──StartNewEra──▶ TASK_IN_FLIGHT ──CompleteTask──▶ TASK_COMPLETE
//	                                       ▲                               │
//	                                       └──────────StartNewEra──────────┘
//
// StartNewEra is additionally gated on block height.

// SetSelectionInterval replaces the era length in blocks. Owner only.
// No lower bound is enforced; zero lets an era start every block.
func (e *Engine) SetSelectionInterval(caller domain.Principal, interval domain.BlockHeight) error {
	return e.execute("set selection interval", caller, func(tx *txn) error {
		if err := tx.ensureOwner(); err != nil {
			return err
		}
		tx.state.nextSelection = interval
		tx.emit(domain.Event{Kind: domain.EventSelectionIntervalChanged, Interval: interval})
		return nil
	})
}

func (tx *txn) ensureEraReached() error {
	block, last := tx.env.Block, tx.state.lastSelection
	if block < last || block-last < tx.state.nextSelection {
		return domain.ErrEraNotReached
	}
	return nil
}

func (tx *txn) ensureActiveTaskComplete() error {
	if at := tx.state.activeTask; at != nil && !at.Complete {
		return domain.ErrTaskIncomplete
	}
	return nil
}

// StartNewEra selects participants and a task for the next era. Anyone may
// call it once the interval has elapsed and the previous task is complete.
func (e *Engine) StartNewEra(caller domain.Principal) error {
	return e.execute("start new era", caller, func(tx *txn) error {
		if err := tx.ensureEraReached(); err != nil {
			return err
		}
		if err := tx.ensureActiveTaskComplete(); err != nil {
			return err
		}
		if tx.state.members.Len() == 0 {
			return domain.ErrNoMembers
		}
		if tx.state.tasks.Len() == 0 {
			return domain.ErrNoTasks
		}

		block := tx.env.Block
		participants := tx.strategy.Participants(tx.state.members.Items(), block, domain.ParticipantsPerEra)
		task := tx.strategy.Task(tx.state.tasks.Items(), block)

		tx.state.lastSelection = block
		tx.state.activeParticipants = participants
		tx.state.activeTask = &domain.ActiveTask{Name: task}

		tx.emit(domain.Event{
			Kind:         domain.EventNewEraStarted,
			Era:          block,
			Participants: append([]domain.Principal(nil), participants...),
			Task:         task,
		})
		return nil
	})
}

// ─── Proof Submission ───────────────────────────────────────────────────────

// SubmitProof stores a completion proof for the active task, replacing any
// earlier upload. Active participants only. Does not complete the task.
func (e *Engine) SubmitProof(caller domain.Principal, proof domain.Hash) error {
	return e.execute("submit proof", caller, func(tx *txn) error {
		at := tx.state.activeTask
		if at == nil || !tx.state.isActiveParticipant(tx.env.Caller) {
			return domain.ErrNotActiveParticipant
		}
		tx.state.proofs[at.Name] = proof
		tx.emit(domain.Event{Kind: domain.EventProofSubmitted, Task: at.Name, Proof: proof.String()})
		return nil
	})
}

// ─── Completion & Disbursement ──────────────────────────────────────────────

// CompleteTask marks the active task complete and pays its balance to the
// active participants. Owner only. Returns a nil payout and no error when
// there is no active task.
//
// If the active task was removed after selection, its funds were already
// swept to unclaimed; completion then pays out zero and only clears the gate.
func (e *Engine) CompleteTask(caller domain.Principal) (*ledger.Payout, error) {
	var payout *ledger.Payout
	err := e.execute("complete task", caller, func(tx *txn) error {
		if err := tx.ensureOwner(); err != nil {
			return err
		}
		at := tx.state.activeTask
		if at == nil {
			return nil
		}

		at.Complete = true
		info, exists := tx.state.taskInfo[at.Name]
		amount := info.Balance

		p, err := ledger.Disburse(tx.uow, tx.state.unclaimed, tx.state.activeParticipants, amount, at.Name)
		if err != nil {
			return err
		}
		if exists {
			tx.state.taskInfo[at.Name] = domain.TaskInfo{Complete: true, Balance: 0}
		}

		payout = &p
		tx.emit(domain.Event{
			Kind:         domain.EventTaskCompleted,
			Task:         at.Name,
			Amount:       p.Amount,
			Share:        p.Share,
			Remainder:    p.Remainder,
			Participants: append([]domain.Principal(nil), tx.state.activeParticipants...),
			Failed:       p.Failed,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payout, nil
}
