package sqlite

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pobal-network/pobal/internal/app/coordinator"
	"github.com/pobal-network/pobal/internal/domain"
	"github.com/pobal-network/pobal/internal/infra/chain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// ─── Database Lifecycle ─────────────────────────────────────────────────────

func TestOpen_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Join(dir, "state.db")); os.IsNotExist(err) {
		t.Error("state.db should exist")
	}
}

func TestOpen_Ping(t *testing.T) {
	db := newTestDB(t)
	if err := db.Ping(); err != nil {
		t.Fatalf("Ping() error: %v", err)
	}
}

func TestOpen_MigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		db, err := Open(dir)
		if err != nil {
			t.Fatalf("Open() #%d error: %v", i, err)
		}
		db.Close()
	}
}

func TestNodeInfo(t *testing.T) {
	db := newTestDB(t)
	if v, err := db.GetNodeInfo("genesis"); err != nil || v != "" {
		t.Fatalf("GetNodeInfo(missing) = %q, %v", v, err)
	}
	if err := db.SetNodeInfo("genesis", "123"); err != nil {
		t.Fatalf("SetNodeInfo() error: %v", err)
	}
	if err := db.SetNodeInfo("genesis", "456"); err != nil {
		t.Fatalf("SetNodeInfo() overwrite error: %v", err)
	}
	if v, _ := db.GetNodeInfo("genesis"); v != "456" {
		t.Errorf("GetNodeInfo() = %q, want 456", v)
	}
}

// ─── State Repository ───────────────────────────────────────────────────────

func TestLoadState_Empty(t *testing.T) {
	db := newTestDB(t)
	snap, err := db.LoadState()
	if err != nil {
		t.Fatalf("LoadState() error: %v", err)
	}
	if snap != nil {
		t.Errorf("LoadState() = %+v, want nil", snap)
	}
}

func TestSaveLoadState_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	want := domain.Snapshot{
		Owner:    "alice",
		Members:  []domain.Principal{"alice", "bob", "carol"},
		Tasks:    []string{"t2", "t1"},
		TaskInfo: map[string]domain.TaskInfo{"t1": {Balance: math.MaxUint64}, "t2": {Complete: true}},
		Proofs:   map[string]domain.Hash{"t2": {0xab, 0xcd}},

		Unclaimed:     77,
		StartBlock:    5,
		LastSelection: 25,
		NextSelection: 10,

		ActiveParticipants: []domain.Principal{"bob", "bob", "alice", "carol"},
		ActiveTask:         &domain.ActiveTask{Name: "t2", Complete: true},
	}

	uow, err := db.Begin()
	if err != nil {
		t.Fatalf("Begin() error: %v", err)
	}
	if err := uow.SaveState(want); err != nil {
		t.Fatalf("SaveState() error: %v", err)
	}
	if err := uow.Commit(); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}

	got, err := db.LoadState()
	if err != nil {
		t.Fatalf("LoadState() error: %v", err)
	}
	if diff := cmp.Diff(&want, got); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveState_RollbackDiscards(t *testing.T) {
	db := newTestDB(t)
	uow, _ := db.Begin()
	uow.SaveState(domain.Snapshot{Owner: "alice"})
	uow.Rollback()

	if snap, _ := db.LoadState(); snap != nil {
		t.Errorf("rolled back state visible: %+v", snap)
	}
}

// ─── Treasury ───────────────────────────────────────────────────────────────

func TestTreasury_DepositAndTransfer(t *testing.T) {
	db := newTestDB(t)
	if err := db.Mint("eve", 100, "faucet"); err != nil {
		t.Fatalf("Mint() error: %v", err)
	}

	uow, _ := db.Begin()
	if err := uow.Deposit("eve", 60, "t1"); err != nil {
		t.Fatalf("Deposit() error: %v", err)
	}
	if err := uow.Transfer("bob", 25, "t1"); err != nil {
		t.Fatalf("Transfer() error: %v", err)
	}
	if err := uow.Commit(); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}

	checks := map[domain.Principal]domain.Balance{"eve": 40, "bob": 25, domain.SystemPool: 35}
	for p, want := range checks {
		got, err := db.BalanceOf(p)
		if err != nil {
			t.Fatalf("BalanceOf(%s) error: %v", p, err)
		}
		if got != want {
			t.Errorf("BalanceOf(%s) = %d, want %d", p, got, want)
		}
	}

	entries, err := db.LedgerEntries(domain.SystemPool, 10)
	if err != nil {
		t.Fatalf("LedgerEntries() error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("pool entries = %d, want 2", len(entries))
	}
	if entries[0].Type != domain.TxPayout || entries[0].EntryType != domain.EntryDebit || entries[0].Balance != 35 {
		t.Errorf("latest pool entry = %+v, want payout debit leaving 35", entries[0])
	}
}

func TestTreasury_DepositInsufficient(t *testing.T) {
	db := newTestDB(t)
	db.Mint("eve", 5, "")
	uow, _ := db.Begin()
	defer uow.Rollback()

	err := uow.Deposit("eve", 6, "t1")
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("Deposit() error = %v, want ErrInsufficientFunds", err)
	}
}

func TestTreasury_BlockedTransfer(t *testing.T) {
	db := newTestDB(t)
	db.Mint("eve", 10, "")
	db.SetBlocked([]domain.Principal{"mallory"})

	uow, _ := db.Begin()
	defer uow.Rollback()
	uow.Deposit("eve", 10, "t1")

	err := uow.Transfer("mallory", 5, "t1")
	if !errors.Is(err, domain.ErrTransferRejected) {
		t.Fatalf("Transfer() error = %v, want ErrTransferRejected", err)
	}
}

func TestTreasury_RecipientOverflowRejected(t *testing.T) {
	db := newTestDB(t)
	db.Mint("whale", math.MaxUint64, "")
	db.Mint("eve", 10, "")

	uow, _ := db.Begin()
	defer uow.Rollback()
	uow.Deposit("eve", 10, "t1")

	err := uow.Transfer("whale", 1, "t1")
	if !errors.Is(err, domain.ErrTransferRejected) {
		t.Fatalf("Transfer() error = %v, want ErrTransferRejected", err)
	}
}

// ─── Coordinator over SQLite ────────────────────────────────────────────────

func TestCoordinator_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	clock := chain.NewManualClock(10)

	e, err := coordinator.Init(db, clock, "alice", 10)
	if err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	for _, p := range []domain.Principal{"alice", "bob", "carol", "dave"} {
		if err := e.Register(p); err != nil {
			t.Fatalf("Register(%s) error: %v", p, err)
		}
	}
	if err := e.AddTask("bob", "build"); err != nil {
		t.Fatalf("AddTask() error: %v", err)
	}
	db.Mint("eve", 75, "faucet")
	if err := e.FundTask("eve", "build", 75); err != nil {
		t.Fatalf("FundTask() error: %v", err)
	}
	clock.Advance(10)
	if err := e.StartNewEra("eve"); err != nil {
		t.Fatalf("StartNewEra() error: %v", err)
	}
	if _, err := e.CompleteTask("alice"); err != nil {
		t.Fatalf("CompleteTask() error: %v", err)
	}
	want := e.Snapshot()
	db.Close()

	db2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer db2.Close()
	e2, err := coordinator.Open(db2, clock)
	if err != nil {
		t.Fatalf("coordinator.Open() error: %v", err)
	}
	if diff := cmp.Diff(want, e2.Snapshot()); diff != "" {
		t.Errorf("state mismatch after reopen (-want +got):\n%s", diff)
	}

	for _, p := range []domain.Principal{"alice", "bob", "carol", "dave"} {
		if bal, _ := db2.BalanceOf(p); bal != 18 {
			t.Errorf("BalanceOf(%s) = %d, want 18", p, bal)
		}
	}
	if pool, _ := db2.PoolBalance(); pool != 3 {
		t.Errorf("pool = %d, want 3", pool)
	}

	events, err := db2.ListEvents(0, "", 100)
	if err != nil {
		t.Fatalf("ListEvents() error: %v", err)
	}
	if len(events) != 8 {
		t.Fatalf("events = %d, want 8", len(events))
	}
	if events[6].Kind != domain.EventNewEraStarted || len(events[6].Participants) != 4 {
		t.Errorf("event 6 = %+v, want NewEraStarted with 4 participants", events[6])
	}
	completed, _ := db2.ListEvents(0, domain.EventTaskCompleted, 10)
	if len(completed) != 1 || completed[0].Share != 18 || completed[0].Remainder != 3 {
		t.Errorf("completed events = %+v", completed)
	}
}

func TestCoordinator_AbortLeavesStoreUntouched(t *testing.T) {
	db := newTestDB(t)
	clock := chain.NewManualClock(0)
	e, err := coordinator.Init(db, clock, "alice", 10)
	if err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	e.Register("alice")
	e.AddTask("alice", "build")

	before, _ := db.LoadState()
	if err := e.FundTask("eve", "build", 5); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("FundTask() error = %v, want ErrInsufficientFunds", err)
	}
	after, _ := db.LoadState()
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("store changed after abort (-want +got):\n%s", diff)
	}
	if n, _ := db.EventCount(); n != 2 {
		t.Errorf("events = %d, want 2", n)
	}
}

func TestCoordinator_TwoEnginesShareStore(t *testing.T) {
	dir := t.TempDir()
	serverDB, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer serverDB.Close()
	clock := chain.NewManualClock(0)

	server, err := coordinator.Init(serverDB, clock, "alice", 10)
	if err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	if err := server.Register("alice"); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if err := server.AddTask("alice", "build"); err != nil {
		t.Fatalf("AddTask() error: %v", err)
	}

	// A second handle, as the CLI opens while the server runs.
	cliDB, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() second handle error: %v", err)
	}
	defer cliDB.Close()
	cli, err := coordinator.Open(cliDB, clock)
	if err != nil {
		t.Fatalf("coordinator.Open() error: %v", err)
	}
	cliDB.Mint("eve", 100, "faucet")
	if err := cli.FundTask("eve", "build", 100); err != nil {
		t.Fatalf("FundTask() error: %v", err)
	}

	// The server's cached state predates the funding.
	if err := server.Register("bob"); err != nil {
		t.Fatalf("Register(bob) error: %v", err)
	}

	snap, err := serverDB.LoadState()
	if err != nil {
		t.Fatalf("LoadState() error: %v", err)
	}
	if got := snap.TaskInfo["build"].Balance; got != 100 {
		t.Errorf("task balance = %d, want 100", got)
	}
	if diff := cmp.Diff([]domain.Principal{"alice", "bob"}, snap.Members); diff != "" {
		t.Errorf("members mismatch (-want +got):\n%s", diff)
	}
	if pool, _ := serverDB.PoolBalance(); pool != 100 {
		t.Errorf("pool = %d, want 100", pool)
	}
	liab, err := server.Liabilities()
	if err != nil {
		t.Fatalf("Liabilities() error: %v", err)
	}
	if liab != 100 {
		t.Errorf("Liabilities() = %d, want 100", liab)
	}
	if info, err := server.Task("build"); err != nil || info.Balance != 100 {
		t.Errorf("server Task(build) = %+v, %v; want balance 100", info, err)
	}
}
