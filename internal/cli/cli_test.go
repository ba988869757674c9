package cli

import (
	"strings"
	"testing"

	"golang.org/x/crypto/blake2b"

	"github.com/pobal-network/pobal/internal/domain"
)

func TestHashProof_MatchesSum256(t *testing.T) {
	data := "release artifact v1\n"
	got, err := hashProof(strings.NewReader(data))
	if err != nil {
		t.Fatalf("hashProof() error: %v", err)
	}
	want := domain.Hash(blake2b.Sum256([]byte(data)))
	if got != want {
		t.Errorf("hashProof() = %s, want %s", got, want)
	}

	parsed, err := domain.ParseHash(got.String())
	if err != nil {
		t.Fatalf("ParseHash() error: %v", err)
	}
	if parsed != got {
		t.Error("hash should survive a hex round trip")
	}
}

func TestParseBalance(t *testing.T) {
	if v, err := parseBalance("18446744073709551615"); err != nil || v != domain.Balance(^uint64(0)) {
		t.Errorf("parseBalance(max) = %d, %v", v, err)
	}
	for _, bad := range []string{"", "-1", "1.5", "18446744073709551616"} {
		if _, err := parseBalance(bad); err == nil {
			t.Errorf("parseBalance(%q) should fail", bad)
		}
	}
}

func TestWalletTarget(t *testing.T) {
	flagAs = ""
	if p, err := walletTarget(nil, "alice"); err != nil || p != "alice" {
		t.Errorf("walletTarget(nil) = %q, %v", p, err)
	}
	if p, err := walletTarget([]string{"system_pool"}, "alice"); err != nil || p != domain.SystemPool {
		t.Errorf("walletTarget(system_pool) = %q, %v", p, err)
	}
	if _, err := walletTarget([]string{"two words"}, "alice"); err == nil {
		t.Error("walletTarget() should reject an invalid principal")
	}

	flagAs = "bob"
	defer func() { flagAs = "" }()
	if p, _ := walletTarget(nil, "alice"); p != "bob" {
		t.Errorf("walletTarget(nil) with --as = %q, want bob", p)
	}
}

func TestEventSummary(t *testing.T) {
	e := domain.Event{
		Kind:         domain.EventTaskCompleted,
		Task:         "build",
		Amount:       75,
		Participants: []domain.Principal{"a", "b", "c", "d"},
		Share:        18,
		Remainder:    3,
	}
	want := "task=build amount=75 participants=4 share=18 remainder=3"
	if got := eventSummary(e); got != want {
		t.Errorf("eventSummary() = %q, want %q", got, want)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"init", "whoami", "serve", "register", "deregister", "clear-members",
		"task", "set-interval", "start-era", "submit-proof", "complete",
		"status", "events", "wallet", "proof"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd == rootCmd {
			t.Errorf("command %q not registered", name)
		}
	}
}
