package daemon

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pobal-network/pobal/internal/app/coordinator"
	"github.com/pobal-network/pobal/internal/domain"
	"github.com/pobal-network/pobal/internal/infra/chain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 9944 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 9944)
	}
	if cfg.Chain.InitialInterval != 100 {
		t.Errorf("Chain.InitialInterval = %d, want 100", cfg.Chain.InitialInterval)
	}
	if cfg.Treasury.Faucet {
		t.Error("faucet should be disabled by default")
	}
}

func TestLoadConfig_NoFile(t *testing.T) {
	t.Setenv("POBAL_HOME", t.TempDir())
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.API.Port != 9944 {
		t.Errorf("API.Port = %d, want default", cfg.API.Port)
	}
}

func TestSaveLoadConfig_RoundTrip(t *testing.T) {
	t.Setenv("POBAL_HOME", t.TempDir())
	cfg := DefaultConfig()
	cfg.Node.Owner = "alice"
	cfg.API.Port = 8080
	cfg.Treasury.Blocked = []string{"mallory"}
	cfg.Treasury.Faucet = true

	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() error: %v", err)
	}
	got, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if got.Node.Owner != "alice" || got.API.Port != 8080 || !got.Treasury.Faucet {
		t.Errorf("LoadConfig() = %+v", got)
	}
	if len(got.Treasury.Blocked) != 1 || got.Treasury.Blocked[0] != "mallory" {
		t.Errorf("Blocked = %v", got.Treasury.Blocked)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	home := t.TempDir()
	t.Setenv("POBAL_HOME", home)
	os.WriteFile(filepath.Join(home, "config.toml"), []byte("[api\nport = "), 0600)
	if _, err := LoadConfig(); err == nil {
		t.Error("LoadConfig() should fail on malformed TOML")
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"12s", 12 * time.Second},
		{"", 6 * time.Second},
		{"soon", 6 * time.Second},
		{"-1s", 6 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseDuration(tt.input, 6*time.Second); got != tt.want {
				t.Errorf("parseDuration(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// ─── Lifecycle ──────────────────────────────────────────────────────────────

func testConfig(t *testing.T) Config {
	t.Helper()
	t.Setenv("POBAL_HOME", t.TempDir())
	cfg := DefaultConfig()
	cfg.Logging.File = ""
	cfg.Logging.Level = "error"
	return cfg
}

func TestNewWithConfig_NotInitialized(t *testing.T) {
	cfg := testConfig(t)
	if _, err := NewWithConfig(cfg, Options{}); !errors.Is(err, domain.ErrNotInitialized) {
		t.Fatalf("NewWithConfig() error = %v, want ErrNotInitialized", err)
	}
}

func TestInitialize_ThenOpen(t *testing.T) {
	cfg := testConfig(t)
	clock := chain.NewManualClock(5)

	d, err := Initialize(cfg, Options{Clock: clock}, "", 20)
	if err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	operator := d.Keypair.Principal()
	snap := d.Engine.Snapshot()
	if snap.Owner != operator {
		t.Errorf("owner = %s, want operator %s", snap.Owner, operator)
	}
	if snap.LastSelection != 5 || snap.NextSelection != 20 {
		t.Errorf("era fields = %d/%d, want 5/20", snap.LastSelection, snap.NextSelection)
	}
	d.Close()

	if _, err := Initialize(cfg, Options{Clock: clock}, "bob", 20); !errors.Is(err, coordinator.ErrAlreadyInitialized) {
		t.Fatalf("second Initialize() error = %v, want ErrAlreadyInitialized", err)
	}

	d2, err := NewWithConfig(cfg, Options{Clock: clock})
	if err != nil {
		t.Fatalf("NewWithConfig() error: %v", err)
	}
	defer d2.Close()
	if d2.Engine.Snapshot().Owner != operator {
		t.Error("reopened node should keep its owner")
	}
	if d2.Server == nil || d2.Health == nil {
		t.Error("services should be wired")
	}
}

func TestInitialize_OwnerFromConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Node.Owner = "carol"
	d, err := Initialize(cfg, Options{Clock: chain.NewManualClock(0)}, "", 10)
	if err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	defer d.Close()
	if d.Engine.Snapshot().Owner != "carol" {
		t.Errorf("owner = %s, want carol", d.Engine.Snapshot().Owner)
	}
}

func TestWallClock_GenesisPersisted(t *testing.T) {
	cfg := testConfig(t)
	d, err := Initialize(cfg, Options{}, "alice", 10)
	if err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	first, _ := d.DB.GetNodeInfo(genesisKey)
	d.Close()

	d2, err := NewWithConfig(cfg, Options{})
	if err != nil {
		t.Fatalf("NewWithConfig() error: %v", err)
	}
	defer d2.Close()
	second, _ := d2.DB.GetNodeInfo(genesisKey)
	if first == "" || first != second {
		t.Errorf("genesis = %q then %q, want stable", first, second)
	}
}
