package domain

// Snapshot is the persisted coordinator state. The ordered slices are the
// authoritative order; set views are rebuilt from them on load.
type Snapshot struct {
	Owner Principal `json:"owner" yaml:"owner"`

	Members  []Principal         `json:"members" yaml:"members"`
	Tasks    []string            `json:"tasks" yaml:"tasks"`
	TaskInfo map[string]TaskInfo `json:"task_info" yaml:"task_info"`
	Proofs   map[string]Hash     `json:"proofs" yaml:"proofs"`

	Unclaimed Balance `json:"unclaimed" yaml:"unclaimed"`

	StartBlock    BlockHeight `json:"start_block" yaml:"start_block"`
	LastSelection BlockHeight `json:"last_selection" yaml:"last_selection"`
	NextSelection BlockHeight `json:"next_selection" yaml:"next_selection"`

	ActiveParticipants []Principal `json:"active_participants" yaml:"active_participants"`
	ActiveTask         *ActiveTask `json:"active_task" yaml:"active_task"`
}

// Phase derives the state machine phase from the active task.
func (s *Snapshot) Phase() EraPhase {
	switch {
	case s.ActiveTask == nil:
		return PhaseNoActiveTask
	case s.ActiveTask.Complete:
		return PhaseTaskComplete
	default:
		return PhaseTaskInFlight
	}
}

// NextEraBlock is the first block at which a new era may start.
// Saturates instead of wrapping.
func (s *Snapshot) NextEraBlock() BlockHeight {
	next := s.LastSelection + s.NextSelection
	if next < s.LastSelection {
		return ^BlockHeight(0)
	}
	return next
}
