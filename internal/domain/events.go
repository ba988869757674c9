package domain

import "time"

// EventKind names an observable state transition.
type EventKind string

const (
	EventMemberRegistered         EventKind = "MemberRegistered"
	EventMemberDeregistered       EventKind = "MemberDeregistered"
	EventMembersCleared           EventKind = "MembersCleared"
	EventTaskAdded                EventKind = "TaskAdded"
	EventTaskRemoved              EventKind = "TaskRemoved"
	EventTasksCleared             EventKind = "TasksCleared"
	EventTaskFunded               EventKind = "TaskFunded"
	EventSelectionIntervalChanged EventKind = "SelectionIntervalChanged"
	EventNewEraStarted            EventKind = "NewEraStarted"
	EventProofSubmitted           EventKind = "ProofSubmitted"
	EventTaskCompleted            EventKind = "TaskCompleted"
)

// Event is a committed state transition. Only the fields relevant to
// Kind are populated.
type Event struct {
	ID     string      `json:"id"`
	Seq    int64       `json:"seq,omitempty"`
	Kind   EventKind   `json:"kind"`
	Block  BlockHeight `json:"block"`
	Caller Principal   `json:"caller"`
	At     time.Time   `json:"at"`

	Member       Principal   `json:"member,omitempty"`
	Task         string      `json:"task,omitempty"`
	Donor        Principal   `json:"donor,omitempty"`
	Amount       Balance     `json:"amount,omitempty"`
	Interval     BlockHeight `json:"interval,omitempty"`
	Era          BlockHeight `json:"era,omitempty"`
	Participants []Principal `json:"participants,omitempty"`
	Proof        string      `json:"proof,omitempty"`
	Share        Balance     `json:"share,omitempty"`
	Remainder    Balance     `json:"remainder,omitempty"`
	Failed       []Principal `json:"failed,omitempty"`
}
