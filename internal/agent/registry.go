package agent

import (
	"fmt"

	"github.com/HyphaGroup/orchestra/internal/config"
)

// Registry resolves an agent type name to its Descriptor: Orchestra's two
// built-ins (designer, executor) plus whatever custom entries
// {orchestra_home}/config/agents.yaml defines, loaded once at startup.
type Registry struct {
	descriptors map[string]Descriptor
}

// NewRegistry builds the built-in descriptors and overlays custom
// descriptors parsed from home's agents.yaml, if present. A custom entry
// with an unrecognized work_path_kind becomes a Stale descriptor rather
// than failing the whole load, so one bad entry doesn't take down agents
// the file didn't touch.
func NewRegistry(home *config.Home) (*Registry, error) {
	r := &Registry{descriptors: map[string]Descriptor{}}
	r.register(Designer())
	r.register(Executor())

	defs, err := config.LoadAgentsYAML(home.AgentsYAMLPath())
	if err != nil {
		return nil, fmt.Errorf("loading agents.yaml: %w", err)
	}
	for _, def := range defs {
		r.register(fromDefinition(def))
	}
	return r, nil
}

func (r *Registry) register(d Descriptor) {
	r.descriptors[d.Name] = d
}

// Resolve returns the descriptor for name, or a Stale descriptor if name
// was never registered — callers see a clear error at Setup time rather
// than a nil-pointer panic.
func (r *Registry) Resolve(name string) Descriptor {
	if d, ok := r.descriptors[name]; ok {
		return d
	}
	return Stale(name, "no agent descriptor registered under this name")
}

// Names returns every registered agent type name.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.descriptors))
	for name := range r.descriptors {
		names = append(names, name)
	}
	return names
}

func fromDefinition(def config.AgentDefinition) Descriptor {
	d := Descriptor{
		Name:         def.Name,
		Prompt:       def.Prompt,
		UseDocker:    def.UseDocker,
		AllowedTools: def.AllowedTools,
		MCPServers:   def.MCPServers,
	}

	switch WorkPathKind(def.WorkPathKind) {
	case WorkPathSource:
		d.WorkPathKind = WorkPathSource
		d.Setup = setupDesigner
	case "", WorkPathWorktree:
		d.WorkPathKind = WorkPathWorktree
		d.Setup = setupExecutor
	case WorkPathSubagent:
		d.WorkPathKind = WorkPathSubagent
		d.Setup = subagentSetup
	default:
		return Stale(def.Name, fmt.Sprintf("unrecognized work_path_kind %q", def.WorkPathKind))
	}
	return d
}
