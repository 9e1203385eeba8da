package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AgentDefinition is one entry of config/agents.yaml: a custom agent type
// layered on top of the built-in designer/executor descriptors.
type AgentDefinition struct {
	Name         string                     `yaml:"name"`
	Prompt       string                     `yaml:"prompt"`
	UseDocker    bool                       `yaml:"use_docker"`
	WorkPathKind string                     `yaml:"work_path_kind"` // "source", "worktree", or "subagent"
	AllowedTools []string                   `yaml:"allowed_tools"`
	MCPServers   map[string]MCPServerConfig `yaml:"mcp_servers"`
}

// AgentsFile is the top-level shape of config/agents.yaml.
type AgentsFile struct {
	Agents []AgentDefinition `yaml:"agents"`
}

// LoadAgentsYAML reads config/agents.yaml if present, returning an empty
// slice (not an error) when the file does not exist — custom agent
// definitions are optional.
func LoadAgentsYAML(path string) ([]AgentDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var file AgentsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return file.Agents, nil
}
