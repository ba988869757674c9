// Package domain holds the coordinator's types, sentinel errors and the
// interfaces infrastructure implements.
//
// A Task is a named, funded work item. Each era one task is assigned to
// four selected members; completing it pays its balance out to them.
package domain

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Balance is an amount of value. All additions go through checked helpers.
type Balance uint64

// BlockHeight is the ambient clock the era gate is measured against.
type BlockHeight uint64

// TaskInfo is the per-task row of the funding ledger.
type TaskInfo struct {
	Complete bool    `json:"complete" yaml:"complete"`
	Balance  Balance `json:"balance" yaml:"balance"`
}

// ActiveTask is the task assigned for the current era.
type ActiveTask struct {
	Name     string `json:"name" yaml:"name"`
	Complete bool   `json:"complete" yaml:"complete"`
}

// EraPhase is the observable phase of the selection state machine.
type EraPhase string

const (
	PhaseNoActiveTask EraPhase = "NO_ACTIVE_TASK"
	PhaseTaskInFlight EraPhase = "TASK_IN_FLIGHT"
	PhaseTaskComplete EraPhase = "TASK_COMPLETE"
)

// ParticipantsPerEra is how many members are selected each era.
const ParticipantsPerEra = 4

// ValidateTaskName rejects names that cannot be used as ledger keys.
func ValidateTaskName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTaskName)
	}
	return nil
}

// HashSize is the byte length of a completion proof.
const HashSize = 32

// Hash is a completion proof content hash.
type Hash [HashSize]byte

// String returns the hex encoding.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether no proof bytes are set.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// ParseHash decodes a 64-char hex string (optionally 0x-prefixed).
func ParseHash(s string) (Hash, error) {
	var h Hash
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	if len(b) != HashSize {
		return h, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidProof, HashSize, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// MarshalText encodes the hash as hex for JSON and YAML.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText decodes a hex hash.
func (h *Hash) UnmarshalText(b []byte) error {
	parsed, err := ParseHash(string(b))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
