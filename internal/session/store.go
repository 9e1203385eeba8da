package session

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/HyphaGroup/orchestra/internal/agent"
	"github.com/HyphaGroup/orchestra/internal/config"
)

// Tree is one project's agent forest: in practice a single root (the
// designer) per the tree-shape invariant, kept as a slice to match the
// store's on-disk document shape exactly.
type Tree struct {
	SourcePath string
	Roots      []*Session
	registry   *agent.Registry
}

// Find does a pre-order search across every root for name.
func (t *Tree) Find(name string) *Session {
	for _, root := range t.Roots {
		if s := root.findByName(name); s != nil {
			return s
		}
	}
	return nil
}

// FindByID does a pre-order search across every root for a session whose
// SessionID equals id — used by the hook monitor, which only knows the
// session_id (the worktree's git branch name), not the display name.
func (t *Tree) FindByID(id string) *Session {
	for _, root := range t.Roots {
		if s := root.findByID(id); s != nil {
			return s
		}
	}
	return nil
}

// adopt walks every session in the tree and binds it back to t, so
// Session.Descriptor() can resolve against t's registry after a JSON load.
func (t *Tree) adopt() {
	for _, root := range t.Roots {
		root.walk(func(s *Session) bool {
			s.tree = t
			return true
		})
	}
}

// Store is the process-wide session document: a single JSON file at
// {orchestra_home}/sessions.json, keyed by absolute project source path.
// Every mutation is persisted with a full-document atomic rewrite
// (write-temp-then-rename); readers tolerate a missing or empty file.
type Store struct {
	home     *config.Home
	registry *agent.Registry
	locks    *LockMap
}

// NewStore builds a Store bound to home's sessions.json, resolving agent
// descriptors through registry.
func NewStore(home *config.Home, registry *agent.Registry) *Store {
	return &Store{home: home, registry: registry, locks: NewLockMap()}
}

// Locks exposes the store's per-session lock map for callers (session
// operations, MCP handlers) that need to serialize around a single
// session_id across the load-mutate-save cycle.
func (st *Store) Locks() *LockMap { return st.locks }

func (st *Store) readDocument() (map[string][]*Session, error) {
	doc := map[string][]*Session{}
	data, err := os.ReadFile(st.home.SessionsJSON())
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return doc, fmt.Errorf("reading %s: %w", st.home.SessionsJSON(), err)
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		// Corrupt persistence: treat as empty rather than aborting, per
		// the "readers tolerate missing/empty files" contract.
		return map[string][]*Session{}, nil
	}
	return doc, nil
}

func (st *Store) writeDocument(doc map[string][]*Session) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session store: %w", err)
	}

	path := st.home.SessionsJSON()
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", tmpPath, path, err)
	}
	return nil
}

// Load returns the Tree for sourcePath, an empty Tree if the project has
// no sessions yet.
func (st *Store) Load(sourcePath string) (*Tree, error) {
	doc, err := st.readDocument()
	if err != nil {
		return nil, err
	}
	t := &Tree{SourcePath: sourcePath, Roots: doc[sourcePath], registry: st.registry}
	t.adopt()
	return t, nil
}

// Save rewrites the whole document with t's roots replacing whatever was
// previously stored under t.SourcePath. Other projects' entries are
// preserved untouched.
func (st *Store) Save(t *Tree) error {
	doc, err := st.readDocument()
	if err != nil {
		return err
	}
	if len(t.Roots) == 0 {
		delete(doc, t.SourcePath)
	} else {
		doc[t.SourcePath] = t.Roots
	}
	return st.writeDocument(doc)
}

// LoadAll returns every project's Tree currently on record — used by the
// periodic sweep, which has no single source_path to scope to, and by the
// monitor's cross-project session_id lookup.
func (st *Store) LoadAll() ([]*Tree, error) {
	doc, err := st.readDocument()
	if err != nil {
		return nil, err
	}
	trees := make([]*Tree, 0, len(doc))
	for sourcePath, roots := range doc {
		t := &Tree{SourcePath: sourcePath, Roots: roots, registry: st.registry}
		t.adopt()
		trees = append(trees, t)
	}
	return trees, nil
}

// FindByID searches every project for a session whose SessionID equals id,
// returning its owning Tree alongside it so the caller can persist changes
// back with Save.
func (st *Store) FindByID(id string) (*Session, *Tree, error) {
	trees, err := st.LoadAll()
	if err != nil {
		return nil, nil, err
	}
	for _, t := range trees {
		if s := t.FindByID(id); s != nil {
			return s, t, nil
		}
	}
	return nil, nil, nil
}

// Find loads sourcePath's tree and searches it for sessionName.
func (st *Store) Find(sourcePath, sessionName string) (*Session, *Tree, error) {
	t, err := st.Load(sourcePath)
	if err != nil {
		return nil, nil, err
	}
	return t.Find(sessionName), t, nil
}

// AnyPaired reports whether some session in t already has Paired set —
// used to enforce "only one session per project may be paired at a time".
func (t *Tree) AnyPaired() bool {
	found := false
	for _, root := range t.Roots {
		root.walk(func(s *Session) bool {
			if s.Paired {
				found = true
				return false
			}
			return true
		})
		if found {
			break
		}
	}
	return found
}
