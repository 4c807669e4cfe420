package store

import (
	"context"
	"testing"

	"github.com/aaltonen/chanflow/internal/storage/memory"
)

func TestTailChannel_IncrementalCursor(t *testing.T) {
	ctx := context.Background()
	s := newTestStore("a", "b")

	if _, err := s.AppendMessage(ctx, "a", "one", AppendOptions{}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := s.AppendMessage(ctx, "a", "two", AppendOptions{}); err != nil {
		t.Fatalf("append: %v", err)
	}

	first, err := s.TailChannel(ctx, 0)
	if err != nil {
		t.Fatalf("TailChannel: %v", err)
	}
	if len(first.Entries) != 2 || first.Cursor != 2 {
		t.Fatalf("first tail = %d entries cursor %d, want 2/2", len(first.Entries), first.Cursor)
	}

	// Nothing new: same cursor, no entries.
	again, err := s.TailChannel(ctx, first.Cursor)
	if err != nil {
		t.Fatalf("TailChannel: %v", err)
	}
	if len(again.Entries) != 0 || again.Cursor != 2 {
		t.Fatalf("tail at end = %d entries cursor %d, want 0/2", len(again.Entries), again.Cursor)
	}

	if _, err := s.AppendMessage(ctx, "b", "three", AppendOptions{}); err != nil {
		t.Fatalf("append: %v", err)
	}
	next, err := s.TailChannel(ctx, again.Cursor)
	if err != nil {
		t.Fatalf("TailChannel: %v", err)
	}
	if len(next.Entries) != 1 || next.Entries[0].Content != "three" {
		t.Fatalf("incremental tail = %+v, want just the new entry", next.Entries)
	}
}

func TestSyncChannel_SkipsMalformedLines(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	s := New(backend, nil, []string{"a"})

	if _, err := s.AppendMessage(ctx, "a", "good one", AppendOptions{}); err != nil {
		t.Fatalf("append: %v", err)
	}
	// Corrupt records and blank lines interleaved with a valid one.
	if err := backend.Append(ctx, "channel.jsonl", []byte("{not json\n\n")); err != nil {
		t.Fatalf("raw append: %v", err)
	}
	if _, err := s.AppendMessage(ctx, "a", "good two", AppendOptions{}); err != nil {
		t.Fatalf("append: %v", err)
	}

	entries, err := s.ReadChannel(ctx, ReadOptions{})
	if err != nil {
		t.Fatalf("ReadChannel: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2 (malformed line skipped, not fatal)", len(entries))
	}
	if s.ParseErrors() != 1 {
		t.Fatalf("ParseErrors = %d, want 1", s.ParseErrors())
	}
}

func TestReadChannel_SinceAndLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore("a")

	m1, _ := s.AppendMessage(ctx, "a", "first", AppendOptions{})
	s.AppendMessage(ctx, "a", "second", AppendOptions{})
	s.AppendMessage(ctx, "a", "third", AppendOptions{})

	since, err := s.ReadChannel(ctx, ReadOptions{Since: m1.Timestamp})
	if err != nil {
		t.Fatalf("ReadChannel: %v", err)
	}
	for _, m := range since {
		if m.Timestamp <= m1.Timestamp {
			t.Fatalf("since filter returned entry at %s, not after %s", m.Timestamp, m1.Timestamp)
		}
	}

	limited, err := s.ReadChannel(ctx, ReadOptions{Limit: 2})
	if err != nil {
		t.Fatalf("ReadChannel: %v", err)
	}
	if len(limited) != 2 || limited[0].Content != "second" || limited[1].Content != "third" {
		t.Fatalf("limit filter = %+v, want the last two entries", limited)
	}
}
