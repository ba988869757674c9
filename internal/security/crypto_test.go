package security

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pobal-network/pobal/internal/domain"
)

// ─── Operator Identity ──────────────────────────────────────────────────────

func TestOperatorPrincipal_IsValidCaller(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error: %v", err)
	}
	p := kp.Principal()
	if len(p) != 64 {
		t.Errorf("principal len = %d, want 64 hex chars", len(p))
	}
	parsed, err := domain.ParsePrincipal(string(p))
	if err != nil {
		t.Fatalf("ParsePrincipal() error: %v", err)
	}
	if parsed != p {
		t.Errorf("ParsePrincipal() = %s, want %s", parsed, p)
	}
}

func TestOperatorPrincipal_Distinct(t *testing.T) {
	seen := make(map[domain.Principal]bool)
	for i := 0; i < 8; i++ {
		kp, _ := GenerateKeypair()
		if seen[kp.Principal()] {
			t.Fatalf("operator principal %s repeated", kp.Principal().Short())
		}
		seen[kp.Principal()] = true
	}
}

func TestPublicKeyOf_VerifiesOperatorSignature(t *testing.T) {
	kp, _ := GenerateKeypair()
	pub, err := PublicKeyOf(kp.Principal())
	if err != nil {
		t.Fatalf("PublicKeyOf() error: %v", err)
	}

	msg := []byte("POST\n/v1/era")
	sig := kp.Sign(msg)
	if !Verify(msg, sig, pub) {
		t.Error("signature should verify against the principal's key")
	}

	other, _ := GenerateKeypair()
	otherPub, _ := PublicKeyOf(other.Principal())
	if Verify(msg, sig, otherPub) {
		t.Error("signature should not verify against another operator")
	}
}

func TestPublicKeyOf_RejectsNamedPrincipals(t *testing.T) {
	tests := []domain.Principal{
		"alice",
		"",
		domain.SystemPool,
		domain.Principal(strings.Repeat("ab", 31)), // one byte short
		domain.Principal(strings.Repeat("zz", 32)), // right length, not hex
	}
	for _, p := range tests {
		if _, err := PublicKeyOf(p); !errors.Is(err, domain.ErrInvalidPrincipal) {
			t.Errorf("PublicKeyOf(%q) error = %v, want ErrInvalidPrincipal", p, err)
		}
	}
}

// ─── Key Files ──────────────────────────────────────────────────────────────

func TestLoadOrCreateKeypair_StableOperator(t *testing.T) {
	home := t.TempDir()
	first, err := LoadOrCreateKeypair(home)
	if err != nil {
		t.Fatalf("LoadOrCreateKeypair() error: %v", err)
	}
	second, err := LoadOrCreateKeypair(home)
	if err != nil {
		t.Fatalf("LoadOrCreateKeypair() reload error: %v", err)
	}
	if first.Principal() != second.Principal() {
		t.Errorf("operator changed across reloads: %s != %s", first.Principal().Short(), second.Principal().Short())
	}

	info, err := os.Stat(filepath.Join(home, "keys", "operator.key"))
	if err != nil {
		t.Fatalf("stat operator.key: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("operator.key mode = %o, want 600", perm)
	}
}

func TestLoadOrCreateKeypair_PublicFileIsPrincipal(t *testing.T) {
	home := t.TempDir()
	kp, _ := LoadOrCreateKeypair(home)

	raw, err := os.ReadFile(filepath.Join(home, "keys", "operator.pub"))
	if err != nil {
		t.Fatalf("read operator.pub: %v", err)
	}
	if domain.Principal(raw) != kp.Principal() {
		t.Errorf("operator.pub = %s, want the principal %s", raw, kp.Principal())
	}
}

func TestLoadOrCreateKeypair_TruncatedKey(t *testing.T) {
	home := t.TempDir()
	kp, _ := LoadOrCreateKeypair(home)

	pubPath := filepath.Join(home, "keys", "operator.pub")
	if err := os.WriteFile(pubPath, []byte(kp.PublicKeyHex()[:40]), 0644); err != nil {
		t.Fatalf("write operator.pub: %v", err)
	}
	if _, err := LoadOrCreateKeypair(home); err == nil {
		t.Error("LoadOrCreateKeypair() should reject a truncated public key")
	}
}

func TestLoadOrCreateKeypair_CorruptHex(t *testing.T) {
	home := t.TempDir()
	LoadOrCreateKeypair(home)

	privPath := filepath.Join(home, "keys", "operator.key")
	if err := os.WriteFile(privPath, []byte("not hex"), 0600); err != nil {
		t.Fatalf("write operator.key: %v", err)
	}
	if _, err := LoadOrCreateKeypair(home); err == nil {
		t.Error("LoadOrCreateKeypair() should reject a corrupt private key")
	}
}
