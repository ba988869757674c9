package sqlite

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/pobal-network/pobal/internal/domain"
)

// ─── Coordinator State Repository ───────────────────────────────────────────

const (
	keyOwner          = "owner"
	keyStartBlock     = "start_block"
	keyLastSelection  = "last_selection"
	keyNextSelection  = "next_selection"
	keyUnclaimed      = "unclaimed"
	keyActiveTask     = "active_task"
	keyActiveComplete = "active_task_complete"
)

// LoadState implements domain.Backend. Returns nil when no owner is stored.
func (d *DB) LoadState() (*domain.Snapshot, error) {
	return loadState(d.db)
}

func loadState(q execer) (*domain.Snapshot, error) {
	kv, err := loadScalars(q)
	if err != nil {
		return nil, fmt.Errorf("load scalars: %w", err)
	}
	owner, ok := kv[keyOwner]
	if !ok {
		return nil, nil
	}

	snap := &domain.Snapshot{
		Owner:    domain.Principal(owner),
		TaskInfo: make(map[string]domain.TaskInfo),
		Proofs:   make(map[string]domain.Hash),
	}
	for key, dst := range map[string]*domain.BlockHeight{
		keyStartBlock:    &snap.StartBlock,
		keyLastSelection: &snap.LastSelection,
		keyNextSelection: &snap.NextSelection,
	} {
		if *dst, err = parseHeight(kv[key]); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
	}
	if snap.Unclaimed, err = parseBalance(kv[keyUnclaimed]); err != nil {
		return nil, fmt.Errorf("%s: %w", keyUnclaimed, err)
	}
	if name, ok := kv[keyActiveTask]; ok {
		complete, _ := strconv.ParseBool(kv[keyActiveComplete])
		snap.ActiveTask = &domain.ActiveTask{Name: name, Complete: complete}
	}

	if snap.Members, err = loadPrincipals(q, `SELECT principal FROM members ORDER BY pos`); err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	if snap.ActiveParticipants, err = loadPrincipals(q, `SELECT principal FROM active_participants ORDER BY pos`); err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}
	if snap.Tasks, err = loadTaskNames(q); err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	if err := loadTaskInfo(q, snap.TaskInfo); err != nil {
		return nil, fmt.Errorf("load task info: %w", err)
	}
	if err := loadProofs(q, snap.Proofs); err != nil {
		return nil, fmt.Errorf("load proofs: %w", err)
	}
	return snap, nil
}

func loadScalars(q execer) (map[string]string, error) {
	rows, err := q.Query(`SELECT key, value FROM coordinator`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	kv := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		kv[k] = v
	}
	return kv, rows.Err()
}

func loadPrincipals(q execer, query string) ([]domain.Principal, error) {
	rows, err := q.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Principal{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, domain.Principal(p))
	}
	return out, rows.Err()
}

func loadTaskNames(q execer) ([]string, error) {
	rows, err := q.Query(`SELECT name FROM tasks ORDER BY pos`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func loadTaskInfo(q execer, dst map[string]domain.TaskInfo) error {
	rows, err := q.Query(`SELECT name, complete, balance FROM task_info`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name, bal string
			info      domain.TaskInfo
		)
		if err := rows.Scan(&name, &info.Complete, &bal); err != nil {
			return err
		}
		if info.Balance, err = parseBalance(bal); err != nil {
			return err
		}
		dst[name] = info
	}
	return rows.Err()
}

func loadProofs(q execer, dst map[string]domain.Hash) error {
	rows, err := q.Query(`SELECT task, hash FROM proofs`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var task, hash string
		if err := rows.Scan(&task, &hash); err != nil {
			return err
		}
		h, err := domain.ParseHash(hash)
		if err != nil {
			return err
		}
		dst[task] = h
	}
	return rows.Err()
}

// saveState replaces every coordinator table with snap.
func saveState(tx *sql.Tx, snap domain.Snapshot) error {
	for _, table := range []string{"coordinator", "members", "tasks", "task_info", "proofs", "active_participants"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	scalars := map[string]string{
		keyOwner:         string(snap.Owner),
		keyStartBlock:    formatHeight(snap.StartBlock),
		keyLastSelection: formatHeight(snap.LastSelection),
		keyNextSelection: formatHeight(snap.NextSelection),
		keyUnclaimed:     formatBalance(snap.Unclaimed),
	}
	if snap.ActiveTask != nil {
		scalars[keyActiveTask] = snap.ActiveTask.Name
		scalars[keyActiveComplete] = strconv.FormatBool(snap.ActiveTask.Complete)
	}
	for k, v := range scalars {
		if _, err := tx.Exec(`INSERT INTO coordinator (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("save %s: %w", k, err)
		}
	}

	for i, p := range snap.Members {
		if _, err := tx.Exec(`INSERT INTO members (pos, principal) VALUES (?, ?)`, i, string(p)); err != nil {
			return fmt.Errorf("save member %s: %w", p, err)
		}
	}
	for i, p := range snap.ActiveParticipants {
		if _, err := tx.Exec(`INSERT INTO active_participants (pos, principal) VALUES (?, ?)`, i, string(p)); err != nil {
			return fmt.Errorf("save participant %s: %w", p, err)
		}
	}
	for i, name := range snap.Tasks {
		if _, err := tx.Exec(`INSERT INTO tasks (pos, name) VALUES (?, ?)`, i, name); err != nil {
			return fmt.Errorf("save task %s: %w", name, err)
		}
	}
	for name, info := range snap.TaskInfo {
		if _, err := tx.Exec(`INSERT INTO task_info (name, complete, balance) VALUES (?, ?, ?)`,
			name, info.Complete, formatBalance(info.Balance)); err != nil {
			return fmt.Errorf("save task info %s: %w", name, err)
		}
	}
	for task, h := range snap.Proofs {
		if _, err := tx.Exec(`INSERT INTO proofs (task, hash) VALUES (?, ?)`, task, h.String()); err != nil {
			return fmt.Errorf("save proof %s: %w", task, err)
		}
	}
	return nil
}
