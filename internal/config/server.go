package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ServerConfig holds the ambient settings the supervisor and MCP/monitor
// services need at boot: listen ports, the container runtime preference,
// the Docker default, and the monitor mode. Loaded from
// {orchestra_home}/config/orchestra.jsonc; every field has a sane default
// so the file is optional.
type ServerConfig struct {
	MCPPort          int    `json:"mcp_port"`
	MonitorPort      int    `json:"monitor_port"`
	ContainerRuntime string `json:"container_runtime"` // "docker", "apple", or "auto"
	UseDocker        bool   `json:"use_docker"`
	MonitorMode      string `json:"monitor_mode"` // "session" or "independent"
}

// DefaultServerConfig mirrors the defaults documented in the external
// interfaces: MCP on 8765, monitor on 8081.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		MCPPort:          8765,
		MonitorPort:      8081,
		ContainerRuntime: "auto",
		UseDocker:        false,
		MonitorMode:      "session",
	}
}

// LoadServerConfig reads orchestra.jsonc from the home's config directory,
// stripping JSONC comments, and overlays it onto the defaults. A missing
// file is not an error.
func LoadServerConfig(h *Home) (ServerConfig, error) {
	cfg := DefaultServerConfig()

	path := filepath.Join(h.ConfigDir(), "orchestra.jsonc")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := json.Unmarshal(StripJSONComments(data), &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}
