package coordinator

import (
	"github.com/pobal-network/pobal/internal/app/ledger"
	"github.com/pobal-network/pobal/internal/domain"
)

// ─── Task Registry & Funding Ledger ─────────────────────────────────────────

// AddTask opens a new, unfunded task. Members only.
func (e *Engine) AddTask(caller domain.Principal, name string) error {
	return e.execute("add task", caller, func(tx *txn) error {
		if err := tx.ensureMember(); err != nil {
			return err
		}
		if err := domain.ValidateTaskName(name); err != nil {
			return err
		}
		if _, ok := tx.state.taskInfo[name]; ok {
			return domain.ErrTaskExists
		}
		tx.state.taskInfo[name] = domain.TaskInfo{}
		tx.state.tasks.Insert(name)
		tx.emit(domain.Event{Kind: domain.EventTaskAdded, Task: name})
		return nil
	})
}

// RemoveTask deletes a task and sweeps its balance into unclaimed funds.
// Owner only.
func (e *Engine) RemoveTask(caller domain.Principal, name string) error {
	return e.execute("remove task", caller, func(tx *txn) error {
		if err := tx.ensureOwner(); err != nil {
			return err
		}
		if err := tx.removeTask(name); err != nil {
			return err
		}
		tx.emit(domain.Event{Kind: domain.EventTaskRemoved, Task: name})
		return nil
	})
}

// ClearTasks removes every task, sweeping every balance. Owner only.
func (e *Engine) ClearTasks(caller domain.Principal) error {
	return e.execute("clear tasks", caller, func(tx *txn) error {
		if err := tx.ensureOwner(); err != nil {
			return err
		}
		for _, name := range tx.state.tasks.Items() {
			if err := tx.removeTask(name); err != nil {
				return err
			}
		}
		tx.emit(domain.Event{Kind: domain.EventTasksCleared})
		return nil
	})
}

func (tx *txn) removeTask(name string) error {
	info, ok := tx.state.taskInfo[name]
	if !ok {
		return domain.ErrTaskNotFound
	}
	if err := tx.state.unclaimed.Park(info.Balance); err != nil {
		return err
	}
	delete(tx.state.taskInfo, name)
	tx.state.tasks.Remove(name)
	return nil
}

// FundTask adds amount to a task's balance, moving it from the donor into
// the system pool. Anyone may fund an incomplete task.
func (e *Engine) FundTask(caller domain.Principal, name string, amount domain.Balance) error {
	return e.execute("fund task", caller, func(tx *txn) error {
		info, ok := tx.state.taskInfo[name]
		if !ok {
			return domain.ErrTaskNotFound
		}
		if info.Complete {
			return domain.ErrTaskAlreadyComplete
		}
		bal, err := ledger.Add(info.Balance, amount)
		if err != nil {
			return err
		}
		if err := tx.uow.Deposit(tx.env.Caller, amount, name); err != nil {
			return err
		}
		info.Balance = bal
		tx.state.taskInfo[name] = info
		tx.emit(domain.Event{
			Kind:   domain.EventTaskFunded,
			Task:   name,
			Donor:  tx.env.Caller,
			Amount: amount,
		})
		return nil
	})
}
