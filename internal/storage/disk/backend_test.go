package disk

import (
	"context"
	"testing"
	"time"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

func TestBackend_WriteReadRoundTrip(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	if err := b.Write(ctx, "a/b.txt", []byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := b.Read(ctx, "a/b.txt")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("Read = %q, want %q", got, "hello")
	}
}

func TestBackend_ReadMissingKeyReturnsNilNoError(t *testing.T) {
	b := newTestBackend(t)
	got, err := b.Read(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Read missing: %v", err)
	}
	if got != nil {
		t.Fatalf("Read missing = %v, want nil", got)
	}
}

func TestBackend_AppendIsAtomicAcrossConcurrentWriters(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	const n = 50
	done := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		go func() {
			_ = b.Append(ctx, "log", []byte("line\n"))
			done <- struct{}{}
		}()
	}
	for i := 0; i < n; i++ {
		<-done
	}

	got, _ := b.Read(ctx, "log")
	want := ""
	for i := 0; i < n; i++ {
		want += "line\n"
	}
	if string(got) != want {
		t.Fatalf("Append result len = %d, want %d (no interleaving)", len(got), len(want))
	}
}

func TestBackend_ReadFromOffsetSemantics(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	_ = b.Write(ctx, "log", []byte("0123456789"))

	res, err := b.ReadFrom(ctx, "log", 3)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if string(res.Content) != "3456789" || res.NewOffset != 10 {
		t.Fatalf("ReadFrom(3) = %q, offset %d", res.Content, res.NewOffset)
	}

	res, err = b.ReadFrom(ctx, "missing", 0)
	if err != nil {
		t.Fatalf("ReadFrom missing: %v", err)
	}
	if len(res.Content) != 0 || res.NewOffset != 0 {
		t.Fatalf("ReadFrom missing = %q, offset %d", res.Content, res.NewOffset)
	}
}

func TestBackend_DeleteIsIdempotent(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	_ = b.Write(ctx, "k", []byte("v"))
	if err := b.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := b.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete again: %v", err)
	}
	ok, _ := b.Exists(ctx, "k")
	if ok {
		t.Fatalf("Exists after delete = true")
	}
}

func TestBackend_WatchSignalsOnChange(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	_ = b.Write(ctx, "documents/seed.md", []byte("seed"))

	ch, cancel, err := b.Watch("documents")
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer cancel()

	if err := b.Write(ctx, "documents/new.md", []byte("content")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for watch signal")
	}
}
