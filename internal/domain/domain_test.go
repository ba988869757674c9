package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// ─── Principal ──────────────────────────────────────────────────────────────

func TestParsePrincipal(t *testing.T) {
	if p, err := ParsePrincipal("  alice "); err != nil || p != "alice" {
		t.Errorf("ParsePrincipal() = %q, %v; want alice", p, err)
	}
	for _, bad := range []string{"", "   ", "two words", string(SystemPool)} {
		if _, err := ParsePrincipal(bad); !errors.Is(err, ErrInvalidPrincipal) {
			t.Errorf("ParsePrincipal(%q) error = %v, want ErrInvalidPrincipal", bad, err)
		}
	}
}

func TestPrincipal_Short(t *testing.T) {
	if got := Principal("bob").Short(); got != "bob" {
		t.Errorf("Short() = %q, want bob", got)
	}
	long := Principal(strings.Repeat("a", 64))
	if got := long.Short(); !strings.HasPrefix(got, strings.Repeat("a", 12)) || len([]rune(got)) != 13 {
		t.Errorf("Short() = %q, want 12 chars plus ellipsis", got)
	}
}

// ─── Tasks and Proofs ───────────────────────────────────────────────────────

func TestValidateTaskName(t *testing.T) {
	if err := ValidateTaskName("docs/site"); err != nil {
		t.Errorf("ValidateTaskName() error: %v", err)
	}
	if err := ValidateTaskName(" \t"); !errors.Is(err, ErrInvalidTaskName) {
		t.Errorf("ValidateTaskName(blank) error = %v, want ErrInvalidTaskName", err)
	}
}

func TestParseHash(t *testing.T) {
	hexStr := strings.Repeat("ab", HashSize)
	h, err := ParseHash("0x" + hexStr)
	if err != nil {
		t.Fatalf("ParseHash() error: %v", err)
	}
	if h.String() != hexStr {
		t.Errorf("String() = %s, want %s", h, hexStr)
	}
	if h.IsZero() {
		t.Error("parsed hash should not be zero")
	}

	for _, bad := range []string{"zz", "abcd", strings.Repeat("ab", HashSize+1)} {
		if _, err := ParseHash(bad); !errors.Is(err, ErrInvalidProof) {
			t.Errorf("ParseHash(%q) error = %v, want ErrInvalidProof", bad, err)
		}
	}
}

func TestHash_JSON(t *testing.T) {
	var h Hash
	h[0], h[31] = 0x01, 0xff
	b, err := json.Marshal(map[string]Hash{"t1": h})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	var got map[string]Hash
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if got["t1"] != h {
		t.Errorf("decoded %s, want %s", got["t1"], h)
	}
}

// ─── Snapshot ───────────────────────────────────────────────────────────────

func TestSnapshot_Phase(t *testing.T) {
	var s Snapshot
	if s.Phase() != PhaseNoActiveTask {
		t.Errorf("Phase() = %s, want %s", s.Phase(), PhaseNoActiveTask)
	}
	s.ActiveTask = &ActiveTask{Name: "build"}
	if s.Phase() != PhaseTaskInFlight {
		t.Errorf("Phase() = %s, want %s", s.Phase(), PhaseTaskInFlight)
	}
	s.ActiveTask.Complete = true
	if s.Phase() != PhaseTaskComplete {
		t.Errorf("Phase() = %s, want %s", s.Phase(), PhaseTaskComplete)
	}
}

func TestSnapshot_NextEraBlock(t *testing.T) {
	s := Snapshot{LastSelection: 20, NextSelection: 10}
	if got := s.NextEraBlock(); got != 30 {
		t.Errorf("NextEraBlock() = %d, want 30", got)
	}
	s = Snapshot{LastSelection: ^BlockHeight(0) - 1, NextSelection: 10}
	if got := s.NextEraBlock(); got != ^BlockHeight(0) {
		t.Errorf("NextEraBlock() = %d, want saturation", got)
	}
}
