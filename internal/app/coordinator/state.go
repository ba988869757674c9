package coordinator

import (
	"github.com/pobal-network/pobal/internal/app/ledger"
	"github.com/pobal-network/pobal/internal/app/registry"
	"github.com/pobal-network/pobal/internal/domain"
)

// State is the in-memory form of a snapshot. Operations mutate a copy
// loaded inside their unit of work; the engine keeps the last committed one
// for reads.
type State struct {
	owner domain.Principal

	members  *registry.OrderedSet[domain.Principal]
	tasks    *registry.OrderedSet[string]
	taskInfo map[string]domain.TaskInfo
	proofs   map[string]domain.Hash

	unclaimed *ledger.Unclaimed

	startBlock    domain.BlockHeight
	lastSelection domain.BlockHeight
	nextSelection domain.BlockHeight

	activeParticipants []domain.Principal
	activeTask         *domain.ActiveTask
}

func newState(owner domain.Principal, block, interval domain.BlockHeight) *State {
	return &State{
		owner:         owner,
		members:       registry.NewOrderedSet[domain.Principal](),
		tasks:         registry.NewOrderedSet[string](),
		taskInfo:      make(map[string]domain.TaskInfo),
		proofs:        make(map[string]domain.Hash),
		unclaimed:     ledger.NewUnclaimed(0),
		startBlock:    block,
		lastSelection: block,
		nextSelection: interval,
	}
}

// stateFromSnapshot rebuilds the set views from persisted sequences.
// Task names without an info row get a zero row so the registry invariant
// holds even on a hand-edited store.
func stateFromSnapshot(snap *domain.Snapshot) *State {
	s := &State{
		owner:              snap.Owner,
		members:            registry.NewOrderedSet(snap.Members...),
		tasks:              registry.NewOrderedSet(snap.Tasks...),
		taskInfo:           make(map[string]domain.TaskInfo, len(snap.TaskInfo)),
		proofs:             make(map[string]domain.Hash, len(snap.Proofs)),
		unclaimed:          ledger.NewUnclaimed(snap.Unclaimed),
		startBlock:         snap.StartBlock,
		lastSelection:      snap.LastSelection,
		nextSelection:      snap.NextSelection,
		activeParticipants: append([]domain.Principal(nil), snap.ActiveParticipants...),
	}
	for _, name := range s.tasks.Items() {
		s.taskInfo[name] = snap.TaskInfo[name]
	}
	for k, v := range snap.Proofs {
		s.proofs[k] = v
	}
	if snap.ActiveTask != nil {
		at := *snap.ActiveTask
		s.activeTask = &at
	}
	return s
}

func (s *State) snapshot() domain.Snapshot {
	snap := domain.Snapshot{
		Owner:              s.owner,
		Members:            s.members.Items(),
		Tasks:              s.tasks.Items(),
		TaskInfo:           make(map[string]domain.TaskInfo, len(s.taskInfo)),
		Proofs:             make(map[string]domain.Hash, len(s.proofs)),
		Unclaimed:          s.unclaimed.Total(),
		StartBlock:         s.startBlock,
		LastSelection:      s.lastSelection,
		NextSelection:      s.nextSelection,
		ActiveParticipants: append([]domain.Principal{}, s.activeParticipants...),
	}
	for k, v := range s.taskInfo {
		snap.TaskInfo[k] = v
	}
	for k, v := range s.proofs {
		snap.Proofs[k] = v
	}
	if s.activeTask != nil {
		at := *s.activeTask
		snap.ActiveTask = &at
	}
	return snap
}

func (s *State) isActiveParticipant(p domain.Principal) bool {
	for _, ap := range s.activeParticipants {
		if ap == p {
			return true
		}
	}
	return false
}

// consistent checks the dual-representation invariants.
func (s *State) consistent() bool {
	if !s.members.Consistent() || !s.tasks.Consistent() {
		return false
	}
	if s.tasks.Len() != len(s.taskInfo) {
		return false
	}
	for name := range s.taskInfo {
		if !s.tasks.Contains(name) {
			return false
		}
	}
	return true
}
