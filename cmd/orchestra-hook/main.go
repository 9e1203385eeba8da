// Command orchestra-hook reads a Claude Code hook event from stdin and
// forwards it to the monitor server. It is the command wired into
// .claude/settings.json's hooks block for every monitored session.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/codes"

	"github.com/HyphaGroup/orchestra/internal/tracing"
	"github.com/HyphaGroup/orchestra/internal/workspace"
)

func main() {
	os.Exit(run())
}

func run() int {
	// settings.go's BuildSettings wires this binary in as
	// "orchestra-hook {session_id} {source_path}" for every monitored
	// session; the hook event body itself carries the event name under
	// hook_event_name, not argv.
	sessionID := "unknown"
	if len(os.Args) > 1 {
		sessionID = os.Args[1]
	}
	sourcePath := ""
	if len(os.Args) > 2 {
		sourcePath = os.Args[2]
	}

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "orchestra-hook: reading stdin: %v\n", err)
		return 1
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		fmt.Fprintf(os.Stderr, "orchestra-hook: invalid stdin JSON: %v\n", err)
		return 1
	}

	if len(os.Args) <= 1 {
		sessionID = detectSessionID(payload)
	}
	if sourcePath == "" {
		if cwd, ok := payload["cwd"].(string); ok {
			sourcePath = cwd
		}
	}

	eventName, _ := payload["hook_event_name"].(string)
	if eventName == "" {
		eventName = "UnknownEvent"
	}

	base := os.Getenv("CLAUDE_MONITOR_BASE")
	if base == "" {
		base = "http://127.0.0.1:8081"
	}

	envelope := map[string]any{
		"event":       eventName,
		"received_at": time.Now().UTC().Format(time.RFC3339),
		"source_path": sourcePath,
		"payload":     payload,
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		fmt.Fprintf(os.Stderr, "orchestra-hook: marshaling envelope: %v\n", err)
		return 0
	}

	target := fmt.Sprintf("%s/hook/%s", trimTrailingSlash(base), url.PathEscape(sessionID))

	shutdown, err := tracing.Setup(context.Background(), "orchestra-hook")
	if err == nil {
		defer func() { _ = shutdown(context.Background()) }()
	}

	ctx, span := tracing.StartSpan(context.Background(), "hook_forward")
	defer span.End()

	client := &http.Client{
		Timeout:   2 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "orchestra-hook: building request: %v\n", err)
		return 0
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		fmt.Fprintf(os.Stderr, "orchestra-hook: POST to %s failed: %v\n", target, err)
		return 0
	}
	defer resp.Body.Close()

	return 0
}

// detectSessionID resolves the hook's session_id following explicit
// field, environment override, then the current git branch of the
// payload's working directory — falling back to "unknown" only if none of
// those resolve.
func detectSessionID(payload map[string]any) string {
	if id, ok := payload["session_id"].(string); ok && id != "" {
		return id
	}
	if id := os.Getenv("CLAUDE_SESSION_ID"); id != "" {
		return id
	}
	if cwd, ok := payload["cwd"].(string); ok && cwd != "" {
		if branch := workspace.CurrentBranch(cwd); branch != "" {
			return branch
		}
	}
	return "unknown"
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
