package validation

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// sessionNameRegex matches a human-chosen session label: letters, digits,
// dash and underscore. Siblings under the same parent must be unique by
// this value.
var sessionNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,128}$`)

// safePathRegex matches safe path components (alphanumeric, dash, underscore, dot)
var safePathRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// ValidateSessionName checks that a session name is non-empty and contains
// only characters safe to embed in a session_id, a branch name, and a
// filesystem path component.
func ValidateSessionName(name string) error {
	if name == "" {
		return fmt.Errorf("session name cannot be empty")
	}
	if !sessionNameRegex.MatchString(name) {
		return fmt.Errorf("invalid session name %q: must match %s", name, sessionNameRegex.String())
	}
	return nil
}

// ValidateSessionID checks a derived session_id of the form
// "{project_basename}-{session_name}".
func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("session ID cannot be empty")
	}
	if strings.ContainsAny(id, "/\\ \t\n") {
		return fmt.Errorf("invalid session ID %q: contains whitespace or path separators", id)
	}
	return nil
}

// ValidateSourcePath checks that a project source path is an absolute,
// traversal-free filesystem path.
func ValidateSourcePath(path string) error {
	if path == "" {
		return fmt.Errorf("source path cannot be empty")
	}
	if !filepath.IsAbs(path) {
		return fmt.Errorf("source path %q must be absolute", path)
	}
	if strings.Contains(path, "..") {
		return fmt.Errorf("source path %q contains a traversal segment", path)
	}
	return nil
}

// SanitizePath removes path traversal attempts and validates path components.
// Used for the relative portion of worktree/subagent paths derived from
// a project basename and a session name.
func SanitizePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	if strings.Contains(path, "..") {
		return "", fmt.Errorf("path traversal detected: %s", path)
	}

	if strings.HasPrefix(path, "/") {
		return "", fmt.Errorf("absolute paths not allowed: %s", path)
	}

	parts := strings.Split(path, "/")
	for _, part := range parts {
		if part == "" {
			continue // Allow trailing/leading slashes
		}
		if !safePathRegex.MatchString(part) {
			return "", fmt.Errorf("unsafe path component: %s", part)
		}
	}

	return path, nil
}

// ValidateContainerID validates a container ID (hex string)
func ValidateContainerID(id string) error {
	if id == "" {
		return fmt.Errorf("container ID cannot be empty")
	}

	if len(id) < 12 || len(id) > 64 {
		return fmt.Errorf("invalid container ID length: %s", id)
	}

	for _, c := range id {
		isDigit := c >= '0' && c <= '9'
		isLowerHex := c >= 'a' && c <= 'f'
		isUpperHex := c >= 'A' && c <= 'F'
		if !isDigit && !isLowerHex && !isUpperHex {
			return fmt.Errorf("invalid container ID format: %s", id)
		}
	}

	return nil
}
