package sqlite

import (
	"encoding/json"
	"fmt"

	"github.com/pobal-network/pobal/internal/domain"
)

// ─── Event Log ──────────────────────────────────────────────────────────────

// ListEvents returns committed events with seq > after, oldest first.
// An empty kind matches every event.
func (d *DB) ListEvents(after int64, kind domain.EventKind, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT seq, payload FROM events WHERE seq > ?`
	args := []any{after}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY seq ASC LIMIT ?`
	args = append(args, limit)

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var (
			seq     int64
			payload string
		)
		if err := rows.Scan(&seq, &payload); err != nil {
			return nil, err
		}
		var ev domain.Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, fmt.Errorf("decode event %d: %w", seq, err)
		}
		ev.Seq = seq
		events = append(events, ev)
	}
	return events, rows.Err()
}

// EventCount returns the number of committed events.
func (d *DB) EventCount() (int64, error) {
	var n int64
	err := d.db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&n)
	return n, err
}
