// Package messagequeue implements the designer inbox: an append-only
// JSONL file at {orchestra_home}/messages.jsonl, guarded by advisory file
// locks so concurrent writers never interleave a line and readers never
// see a torn write.
package messagequeue

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// Message is one JSONL line: a message queued for a designer-kind session.
type Message struct {
	ID         string `json:"id"`
	Timestamp  string `json:"timestamp"`
	Sender     string `json:"sender"`
	Target     string `json:"target"`
	Message    string `json:"message"`
	SourcePath string `json:"source_path"`
}

// Queue appends to and scans a single JSONL file.
type Queue struct {
	path string
}

// New returns a Queue backed by path (typically home.MessagesJSONL()).
func New(path string) *Queue {
	return &Queue{path: path}
}

// Append writes one message line under an exclusive advisory lock and
// returns its generated id.
func (q *Queue) Append(target, sender, message, sourcePath string) (string, error) {
	f, err := os.OpenFile(q.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", q.path, err)
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		return "", fmt.Errorf("locking %s: %w", q.path, err)
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	msg := Message{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Sender:     sender,
		Target:     target,
		Message:    message,
		SourcePath: sourcePath,
	}

	line, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshaling message: %w", err)
	}
	line = append(line, '\n')

	if _, err := f.Write(line); err != nil {
		return "", fmt.Errorf("writing %s: %w", q.path, err)
	}
	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("syncing %s: %w", q.path, err)
	}

	return msg.ID, nil
}

// Pending scans the whole file under a shared advisory lock and returns
// every message whose Target equals sessionName, in insertion order.
// Malformed lines are skipped silently; a missing file yields no
// messages, not an error.
func (q *Queue) Pending(sessionName string) ([]Message, error) {
	f, err := os.Open(q.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening %s: %w", q.path, err)
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_SH); err != nil {
		return nil, fmt.Errorf("locking %s: %w", q.path, err)
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	var out []Message
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			continue
		}
		if msg.Target == sessionName {
			out = append(out, msg)
		}
	}
	return out, scanner.Err()
}
