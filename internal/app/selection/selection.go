// Package selection chooses an era's participants and task.
//
// The state machine only talks to Strategy. BlockModulo is a deterministic
// placeholder keyed on block height; a VRF or oracle backed strategy can
// replace it without touching the coordinator.
package selection

import "github.com/pobal-network/pobal/internal/domain"

// Strategy picks participants and a task for an era. Callers guarantee
// members and tasks are non-empty.
type Strategy interface {
	Participants(members []domain.Principal, block domain.BlockHeight, n int) []domain.Principal
	Task(tasks []string, block domain.BlockHeight) string
}

// BlockModulo selects members[(block+i) mod len] and tasks[block mod len].
//
// The result depends on registry order, which deregistration reshuffles.
// With fewer members than n the same member is picked more than once.
type BlockModulo struct{}

// Participants returns exactly n members, duplicates allowed.
func (BlockModulo) Participants(members []domain.Principal, block domain.BlockHeight, n int) []domain.Principal {
	out := make([]domain.Principal, 0, n)
	size := uint64(len(members))
	base := uint64(block) % size
	for i := 0; i < n; i++ {
		out = append(out, members[(base+uint64(i))%size])
	}
	return out
}

// Task returns tasks[block mod len].
func (BlockModulo) Task(tasks []string, block domain.BlockHeight) string {
	return tasks[uint64(block)%uint64(len(tasks))]
}
