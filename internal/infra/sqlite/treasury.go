package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pobal-network/pobal/internal/app/ledger"
	"github.com/pobal-network/pobal/internal/domain"
)

// ─── Treasury ───────────────────────────────────────────────────────────────
// Double-entry bookkeeping: every movement creates matched DEBIT/CREDIT
// entries, so SUM(debits) == SUM(credits) per type.

// SetBlocked replaces the set of principals whose incoming transfers fail.
func (d *DB) SetBlocked(ps []domain.Principal) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.blocked = make(map[domain.Principal]bool, len(ps))
	for _, p := range ps {
		d.blocked[p] = true
	}
}

func (d *DB) isBlocked(p domain.Principal) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.blocked[p]
}

// PoolBalance returns the committed system pool balance.
func (d *DB) PoolBalance() (domain.Balance, error) {
	return accountBalance(d.db, domain.SystemPool)
}

// BalanceOf returns a principal's committed balance.
func (d *DB) BalanceOf(p domain.Principal) (domain.Balance, error) {
	return accountBalance(d.db, p)
}

// Mint credits a principal outside the coordinator. Used by the faucet.
func (d *DB) Mint(p domain.Principal, amount domain.Balance, memo string) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	bal, err := accountBalance(tx, p)
	if err != nil {
		return err
	}
	next, err := ledger.Add(bal, amount)
	if err != nil {
		return err
	}
	if err := setAccountBalance(tx, p, next); err != nil {
		return err
	}
	now := time.Now()
	if err := insertEntry(tx, domain.LedgerEntry{
		Timestamp: now, Type: domain.TxMint, EntryType: domain.EntryCredit,
		Account: p, Amount: amount, Memo: memo, Balance: next,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// LedgerEntries returns recent treasury entries for an account.
func (d *DB) LedgerEntries(account domain.Principal, limit int) ([]domain.LedgerEntry, error) {
	rows, err := d.db.Query(
		`SELECT id, timestamp, type, entry_type, account, amount, memo, balance
		 FROM treasury_ledger WHERE account = ? ORDER BY id DESC LIMIT ?`,
		string(account), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var (
			e           domain.LedgerEntry
			ts          int64
			amt, bal    string
			memo        sql.NullString
			typ, entry  string
			accountName string
		)
		if err := rows.Scan(&e.ID, &ts, &typ, &entry, &accountName, &amt, &memo, &bal); err != nil {
			return nil, err
		}
		e.Timestamp = time.Unix(ts, 0)
		e.Type = domain.TxType(typ)
		e.EntryType = domain.EntryType(entry)
		e.Account = domain.Principal(accountName)
		if e.Amount, err = parseBalance(amt); err != nil {
			return nil, err
		}
		if e.Balance, err = parseBalance(bal); err != nil {
			return nil, err
		}
		if memo.Valid {
			e.Memo = memo.String
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func accountBalance(q execer, p domain.Principal) (domain.Balance, error) {
	var s string
	err := q.QueryRow(`SELECT balance FROM accounts WHERE principal = ?`, string(p)).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return parseBalance(s)
}

func setAccountBalance(q execer, p domain.Principal, b domain.Balance) error {
	_, err := q.Exec(
		`INSERT INTO accounts (principal, balance) VALUES (?, ?)
		 ON CONFLICT(principal) DO UPDATE SET balance=excluded.balance`,
		string(p), formatBalance(b),
	)
	return err
}

func insertEntry(q execer, e domain.LedgerEntry) error {
	_, err := q.Exec(
		`INSERT INTO treasury_ledger (timestamp, type, entry_type, account, amount, memo, balance)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Timestamp.Unix(), string(e.Type), string(e.EntryType), string(e.Account),
		formatBalance(e.Amount), nullStr(e.Memo), formatBalance(e.Balance),
	)
	return err
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// move debits from and credits to within tx.
func move(tx *sql.Tx, typ domain.TxType, from, to domain.Principal, amount domain.Balance, memo string) error {
	fromBal, err := accountBalance(tx, from)
	if err != nil {
		return fmt.Errorf("get %s balance: %w", from, err)
	}
	if fromBal < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", domain.ErrInsufficientFunds, from, fromBal, amount)
	}
	toBal, err := accountBalance(tx, to)
	if err != nil {
		return fmt.Errorf("get %s balance: %w", to, err)
	}
	toNext, err := ledger.Add(toBal, amount)
	if err != nil {
		if typ == domain.TxPayout {
			return fmt.Errorf("%w: %v", domain.ErrTransferRejected, err)
		}
		return err
	}

	now := time.Now()
	if err := setAccountBalance(tx, from, fromBal-amount); err != nil {
		return err
	}
	if err := setAccountBalance(tx, to, toNext); err != nil {
		return err
	}
	if err := insertEntry(tx, domain.LedgerEntry{
		Timestamp: now, Type: typ, EntryType: domain.EntryDebit,
		Account: from, Amount: amount, Memo: memo, Balance: fromBal - amount,
	}); err != nil {
		return fmt.Errorf("debit %s: %w", from, err)
	}
	if err := insertEntry(tx, domain.LedgerEntry{
		Timestamp: now, Type: typ, EntryType: domain.EntryCredit,
		Account: to, Amount: amount, Memo: memo, Balance: toNext,
	}); err != nil {
		return fmt.Errorf("credit %s: %w", to, err)
	}
	return nil
}

// ─── Unit of Work ───────────────────────────────────────────────────────────

// Begin implements domain.Backend.
func (d *DB) Begin() (domain.UnitOfWork, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, err
	}
	return &unit{db: d, tx: tx}, nil
}

// unit runs every staged write inside one SQL transaction.
type unit struct {
	db *DB
	tx *sql.Tx
}

func (u *unit) PoolBalance() (domain.Balance, error) {
	return accountBalance(u.tx, domain.SystemPool)
}

func (u *unit) BalanceOf(p domain.Principal) (domain.Balance, error) {
	return accountBalance(u.tx, p)
}

func (u *unit) Deposit(from domain.Principal, amount domain.Balance, memo string) error {
	return move(u.tx, domain.TxDeposit, from, domain.SystemPool, amount, memo)
}

func (u *unit) Transfer(to domain.Principal, amount domain.Balance, memo string) error {
	if u.db.isBlocked(to) {
		return fmt.Errorf("%w: %s is blocked", domain.ErrTransferRejected, to)
	}
	return move(u.tx, domain.TxPayout, domain.SystemPool, to, amount, memo)
}

func (u *unit) LoadState() (*domain.Snapshot, error) {
	return loadState(u.tx)
}

func (u *unit) SaveState(snap domain.Snapshot) error {
	return saveState(u.tx, snap)
}

func (u *unit) AppendEvents(events []domain.Event) error {
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", ev.Kind, err)
		}
		if _, err := u.tx.Exec(
			`INSERT INTO events (id, kind, block, caller, at, payload) VALUES (?, ?, ?, ?, ?, ?)`,
			ev.ID, string(ev.Kind), formatHeight(ev.Block), string(ev.Caller), ev.At.Unix(), string(payload),
		); err != nil {
			return fmt.Errorf("insert event %s: %w", ev.Kind, err)
		}
	}
	return nil
}

func (u *unit) Commit() error   { return u.tx.Commit() }
func (u *unit) Rollback() error { return u.tx.Rollback() }
