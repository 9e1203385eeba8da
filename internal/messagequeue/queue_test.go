package messagequeue

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAppendAndPendingFiltersByTarget(t *testing.T) {
	q := New(filepath.Join(t.TempDir(), "messages.jsonl"))

	if _, err := q.Append("designer", "child-a", "first", "/p"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := q.Append("other", "child-b", "ignored", "/p"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	id, err := q.Append("designer", "child-a", "second", "/p")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	msgs, err := q.Pending("designer")
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages for designer, got %d: %+v", len(msgs), msgs)
	}
	if msgs[0].Message != "first" || msgs[1].Message != "second" {
		t.Fatalf("expected insertion order preserved, got %+v", msgs)
	}
	if msgs[1].ID != id {
		t.Fatalf("expected second message id %q, got %q", id, msgs[1].ID)
	}
}

func TestPendingOnMissingFileIsEmpty(t *testing.T) {
	q := New(filepath.Join(t.TempDir(), "does-not-exist.jsonl"))
	msgs, err := q.Pending("anyone")
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected no messages, got %+v", msgs)
	}
}

func TestPendingSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.jsonl")
	q := New(path)
	if _, err := q.Append("designer", "child", "ok", "/p"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := appendRaw(path, "not json\n"); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Append("designer", "child", "ok2", "/p"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	msgs, err := q.Pending("designer")
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected malformed line to be skipped, got %d messages", len(msgs))
	}
}

func appendRaw(path, content string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(content)
	return err
}
