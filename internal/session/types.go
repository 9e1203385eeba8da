// Package session implements the agent tree: a recursive Session node per
// project, its lifecycle operations (prepare/start/spawn_child/
// toggle_pairing/delete/send_message), and a process-wide JSON store
// keyed by project source path.
package session

import (
	"github.com/HyphaGroup/orchestra/internal/agent"
)

// State is one of a session's observable lifecycle states.
type State string

const (
	StateNascent  State = "nascent"
	StatePrepared State = "prepared"
	StateRunning  State = "running"
	StateStopped  State = "stopped"
	StateRemoved  State = "removed"
)

// Session is one node in a project's agent tree.
type Session struct {
	SessionName       string     `json:"session_name"`
	SessionID         string     `json:"session_id"`
	AgentType         string     `json:"agent_type"`
	SourcePath        string     `json:"source_path"`
	WorkPath          string     `json:"work_path"`
	ParentSessionName string     `json:"parent_session_name,omitempty"`
	Paired            bool       `json:"paired"`
	UseDocker         bool       `json:"use_docker"`
	State             State      `json:"state"`
	Children          []*Session `json:"children"`

	// descriptor is resolved lazily (not persisted) from AgentType via the
	// registry held by the Tree this session belongs to.
	descriptor agent.Descriptor
	tree       *Tree
}

// IsRoot reports whether s has no parent.
func (s *Session) IsRoot() bool {
	return s.ParentSessionName == ""
}

// Descriptor returns the resolved agent descriptor for this session,
// resolving it from the owning tree's registry on first access.
func (s *Session) Descriptor() agent.Descriptor {
	if s.descriptor.Name == "" && s.tree != nil {
		s.descriptor = s.tree.registry.Resolve(s.AgentType)
	}
	return s.descriptor
}

// Walk calls fn for s and every descendant in pre-order, for callers
// outside this package (the supervisor's sweeps) that need to inspect a
// whole tree without reimplementing the traversal.
func (s *Session) Walk(fn func(*Session) bool) bool {
	return s.walk(fn)
}

// walk calls fn for s and every descendant in pre-order (s first, then
// children left-to-right, recursively). fn returning false stops the walk.
func (s *Session) walk(fn func(*Session) bool) bool {
	if !fn(s) {
		return false
	}
	for _, c := range s.Children {
		if !c.walk(fn) {
			return false
		}
	}
	return true
}

// findByName searches s and its descendants in pre-order for the first
// session named name (first match wins on duplicates, though spawn_child
// prevents duplicates among direct siblings).
func (s *Session) findByName(name string) *Session {
	var found *Session
	s.walk(func(n *Session) bool {
		if n.SessionName == name {
			found = n
			return false
		}
		return true
	})
	return found
}

// findByID searches s and its descendants in pre-order for the first
// session whose SessionID equals id.
func (s *Session) findByID(id string) *Session {
	var found *Session
	s.walk(func(n *Session) bool {
		if n.SessionID == id {
			found = n
			return false
		}
		return true
	})
	return found
}
