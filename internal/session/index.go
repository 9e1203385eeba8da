package session

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Index mirrors the canonical sessions.json document into a flat SQLite
// table, giving the operator CLI and metrics fast find/list-by-status
// queries without walking every project's tree. The JSON document stays
// authoritative; Index is a cache rebuilt from it by Rebuild/Sync, never
// the other way around. Queries read the index as last rebuilt and do not
// check it against the document.
type Index struct {
	db *sql.DB
}

// NewIndex opens (creating if needed) the index database at path,
// migrating its schema.
func NewIndex(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening index database: %w", err)
	}

	idx := &Index{db: db}
	if err := idx.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating index database: %w", err)
	}
	return idx, nil
}

func (idx *Index) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		session_name TEXT NOT NULL,
		source_path TEXT NOT NULL,
		agent_type TEXT NOT NULL,
		state TEXT NOT NULL,
		parent_session_name TEXT,
		paired INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_source ON sessions(source_path);
	CREATE INDEX IF NOT EXISTS idx_sessions_state ON sessions(state);
	`
	_, err := idx.db.Exec(schema)
	return err
}

// Close closes the underlying database handle.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// Rebuild replaces the index's contents with a flattened row per session
// across every tree in trees, inside one transaction so a reader never
// observes a half-rebuilt index.
func (idx *Index) Rebuild(trees []*Tree) error {
	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("starting index rebuild transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM sessions"); err != nil {
		return fmt.Errorf("clearing index: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO sessions
		(session_id, session_name, source_path, agent_type, state, parent_session_name, paired)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing index insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range trees {
		for _, root := range t.Roots {
			root.walk(func(s *Session) bool {
				if _, execErr := stmt.Exec(s.SessionID, s.SessionName, s.SourcePath, s.AgentType, string(s.State), s.ParentSessionName, s.Paired); execErr != nil {
					err = execErr
					return false
				}
				return true
			})
			if err != nil {
				return fmt.Errorf("indexing session: %w", err)
			}
		}
	}

	return tx.Commit()
}

// Row is one indexed session, enough for list/find display without
// loading the full tree it belongs to.
type Row struct {
	SessionID         string
	SessionName       string
	SourcePath        string
	AgentType         string
	State             string
	ParentSessionName string
	Paired            bool
}

// FindByID returns the indexed row for id, if present.
func (idx *Index) FindByID(id string) (*Row, bool, error) {
	row := idx.db.QueryRow(`SELECT session_id, session_name, source_path, agent_type, state, parent_session_name, paired
		FROM sessions WHERE session_id = ?`, id)

	var r Row
	if err := row.Scan(&r.SessionID, &r.SessionName, &r.SourcePath, &r.AgentType, &r.State, &r.ParentSessionName, &r.Paired); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("querying index: %w", err)
	}
	return &r, true, nil
}

// ListByState returns every indexed row whose state equals state.
func (idx *Index) ListByState(state State) ([]Row, error) {
	rows, err := idx.db.Query(`SELECT session_id, session_name, source_path, agent_type, state, parent_session_name, paired
		FROM sessions WHERE state = ? ORDER BY source_path, session_name`, string(state))
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.SessionID, &r.SessionName, &r.SourcePath, &r.AgentType, &r.State, &r.ParentSessionName, &r.Paired); err != nil {
			return nil, fmt.Errorf("scanning index row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListBySource returns every indexed row for sourcePath, ordered by
// session name.
func (idx *Index) ListBySource(sourcePath string) ([]Row, error) {
	rows, err := idx.db.Query(`SELECT session_id, session_name, source_path, agent_type, state, parent_session_name, paired
		FROM sessions WHERE source_path = ? ORDER BY session_name`, sourcePath)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.SessionID, &r.SessionName, &r.SourcePath, &r.AgentType, &r.State, &r.ParentSessionName, &r.Paired); err != nil {
			return nil, fmt.Errorf("scanning index row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Sync reloads every project tree from store and rebuilds the index from
// it — the "document is truth, index is a cache" reconciliation path, run
// periodically by the supervisor.
func (idx *Index) Sync(store *Store) error {
	trees, err := store.LoadAll()
	if err != nil {
		return fmt.Errorf("loading trees to sync index: %w", err)
	}
	return idx.Rebuild(trees)
}
