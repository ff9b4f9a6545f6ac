package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/expert/pkg/expert/internalerr"
	"github.com/cognicore/expert/pkg/expert/store"
)

// sqliteStore implements store.Store with named snapshots in SQLite.
type sqliteStore struct {
	db *sql.DB
}

// Open opens (or creates) a snapshot database with WAL mode enabled.
func Open(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS snapshots (
	name TEXT PRIMARY KEY,
	saved_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshot_facts (
	snapshot TEXT NOT NULL,
	pos INTEGER NOT NULL,
	attr TEXT NOT NULL,
	value TEXT NOT NULL,
	status TEXT NOT NULL,
	PRIMARY KEY(snapshot, pos),
	FOREIGN KEY(snapshot) REFERENCES snapshots(name) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS snapshot_rules (
	snapshot TEXT NOT NULL,
	pos INTEGER NOT NULL,
	rule_id INTEGER NOT NULL,
	text TEXT NOT NULL DEFAULT '',
	concl_attr TEXT NOT NULL,
	concl_value TEXT NOT NULL,
	PRIMARY KEY(snapshot, pos),
	FOREIGN KEY(snapshot) REFERENCES snapshots(name) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS snapshot_conditions (
	snapshot TEXT NOT NULL,
	rule_pos INTEGER NOT NULL,
	pos INTEGER NOT NULL,
	attr TEXT NOT NULL,
	op TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY(snapshot, rule_pos, pos),
	FOREIGN KEY(snapshot) REFERENCES snapshots(name) ON DELETE CASCADE
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// SaveSnapshot stores a snapshot under a name, replacing any previous one.
func (s *sqliteStore) SaveSnapshot(ctx context.Context, name string, snap store.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE name = ?`, name); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (name, saved_at) VALUES (?, ?)`,
		name, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}

	for i, f := range snap.Facts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO snapshot_facts (snapshot, pos, attr, value, status) VALUES (?, ?, ?, ?, ?)`,
			name, i, f.Attr, f.Value, f.Status); err != nil {
			return err
		}
	}
	for i, r := range snap.Rules {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO snapshot_rules (snapshot, pos, rule_id, text, concl_attr, concl_value)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			name, i, r.ID, r.Text, r.Conclusion.Attr, r.Conclusion.Value); err != nil {
			return err
		}
		for j, c := range r.Conditions {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO snapshot_conditions (snapshot, rule_pos, pos, attr, op, value)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				name, i, j, c.Attr, c.Op, c.Value); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// LoadSnapshot reads a named snapshot back in stored order.
func (s *sqliteStore) LoadSnapshot(ctx context.Context, name string) (store.Snapshot, error) {
	var savedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT saved_at FROM snapshots WHERE name = ?`, name).Scan(&savedAt)
	if err == sql.ErrNoRows {
		return store.Snapshot{}, fmt.Errorf("snapshot %q: %w", name, internalerr.ErrNotFound)
	}
	if err != nil {
		return store.Snapshot{}, err
	}

	var snap store.Snapshot

	rows, err := s.db.QueryContext(ctx,
		`SELECT attr, value, status FROM snapshot_facts WHERE snapshot = ? ORDER BY pos`, name)
	if err != nil {
		return store.Snapshot{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var f store.FactRecord
		if err := rows.Scan(&f.Attr, &f.Value, &f.Status); err != nil {
			return store.Snapshot{}, err
		}
		snap.Facts = append(snap.Facts, f)
	}
	if err := rows.Err(); err != nil {
		return store.Snapshot{}, err
	}

	ruleRows, err := s.db.QueryContext(ctx,
		`SELECT pos, rule_id, text, concl_attr, concl_value
		 FROM snapshot_rules WHERE snapshot = ? ORDER BY pos`, name)
	if err != nil {
		return store.Snapshot{}, err
	}
	defer ruleRows.Close()

	var rulePos []int
	for ruleRows.Next() {
		var pos int
		var r store.RuleRecord
		if err := ruleRows.Scan(&pos, &r.ID, &r.Text, &r.Conclusion.Attr, &r.Conclusion.Value); err != nil {
			return store.Snapshot{}, err
		}
		snap.Rules = append(snap.Rules, r)
		rulePos = append(rulePos, pos)
	}
	if err := ruleRows.Err(); err != nil {
		return store.Snapshot{}, err
	}

	for i, pos := range rulePos {
		condRows, err := s.db.QueryContext(ctx,
			`SELECT attr, op, value FROM snapshot_conditions
			 WHERE snapshot = ? AND rule_pos = ? ORDER BY pos`, name, pos)
		if err != nil {
			return store.Snapshot{}, err
		}
		for condRows.Next() {
			var c store.ConditionRecord
			if err := condRows.Scan(&c.Attr, &c.Op, &c.Value); err != nil {
				condRows.Close()
				return store.Snapshot{}, err
			}
			snap.Rules[i].Conditions = append(snap.Rules[i].Conditions, c)
		}
		if err := condRows.Err(); err != nil {
			condRows.Close()
			return store.Snapshot{}, err
		}
		condRows.Close()
	}

	return snap, nil
}

// ListSnapshots returns stored snapshots, most recent first.
func (s *sqliteStore) ListSnapshots(ctx context.Context) ([]store.Info, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.name, s.saved_at,
		       (SELECT COUNT(*) FROM snapshot_facts f WHERE f.snapshot = s.name),
		       (SELECT COUNT(*) FROM snapshot_rules r WHERE r.snapshot = s.name)
		FROM snapshots s ORDER BY s.saved_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Info
	for rows.Next() {
		var info store.Info
		var savedAt string
		if err := rows.Scan(&info.Name, &savedAt, &info.Facts, &info.Rules); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, savedAt); err == nil {
			info.SavedAt = t
		}
		out = append(out, info)
	}
	return out, rows.Err()
}
