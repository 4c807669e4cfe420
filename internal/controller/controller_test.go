package controller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aaltonen/chanflow/internal/backend"
	"github.com/aaltonen/chanflow/internal/domain"
	"github.com/aaltonen/chanflow/internal/eventlog"
	"github.com/aaltonen/chanflow/internal/storage/memory"
	"github.com/aaltonen/chanflow/internal/store"
)

func newTestController(t *testing.T, decl Declaration) (*Controller, *store.Store) {
	t.Helper()
	st := store.New(memory.New(), nil, []string{"alice", "bob"})
	ev := eventlog.New(st, nil)
	decl.Name = "bob"
	c := New(decl, st, ev, nil)
	return c, st
}

func TestController_EmptyInboxIsANoOp(t *testing.T) {
	ctx := context.Background()
	mock := &backend.Mock{}
	c, _ := newTestController(t, Declaration{Backend: mock, PollInterval: 10 * time.Millisecond})

	ran, terminal := c.runIteration(ctx)
	if ran || terminal {
		t.Fatalf("runIteration on empty inbox = ran=%v terminal=%v, want false/false", ran, terminal)
	}
	if len(mock.Calls) != 0 {
		t.Fatalf("backend called %d times on an empty inbox, want 0", len(mock.Calls))
	}
}

func TestController_RetryThenSucceed(t *testing.T) {
	ctx := context.Background()

	var calls int32
	mock := &backend.Mock{
		Handler: func(ctx context.Context, message string, opts backend.SendOptions) (backend.Result, error) {
			n := atomic.AddInt32(&calls, 1)
			if n < 3 {
				return backend.Result{}, errors.New("transient failure")
			}
			return backend.Result{Content: "@alice done"}, nil
		},
	}
	c, st := newTestController(t, Declaration{
		Backend:      mock,
		PollInterval: 10 * time.Millisecond,
		MaxAttempts:  5,
		BackoffBase:  1 * time.Millisecond,
		BackoffMax:   4 * time.Millisecond,
	})

	trigger, err := st.AppendMessage(ctx, "alice", "@bob please run", store.AppendOptions{})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	c.runUntilQuiet(ctx)

	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("backend invoked %d times, want exactly 3", got)
	}
	if c.State() != domain.StateIdle {
		t.Fatalf("final state = %s, want idle", c.State())
	}
	if c.RetryAttempt() != 0 {
		t.Fatalf("retryAttempt after success = %d, want 0", c.RetryAttempt())
	}

	inbox, err := st.GetInbox(ctx, "bob")
	if err != nil {
		t.Fatalf("GetInbox: %v", err)
	}
	if len(inbox) != 0 {
		t.Fatalf("inbox after success = %d entries, want 0 (acked to %s)", len(inbox), trigger.ID)
	}

	all, err := st.ReadChannel(ctx, store.ReadOptions{})
	if err != nil {
		t.Fatalf("ReadChannel: %v", err)
	}
	outbound := 0
	for _, m := range all {
		if m.From == "bob" {
			outbound++
		}
	}
	if outbound != 1 {
		t.Fatalf("bob's outbound channel entries = %d, want exactly 1 (no duplicate sends)", outbound)
	}
}

func TestController_PermanentFailurePostsSystemMessage(t *testing.T) {
	ctx := context.Background()
	mock := &backend.Mock{
		Handler: func(ctx context.Context, message string, opts backend.SendOptions) (backend.Result, error) {
			return backend.Result{}, errors.New("always fails")
		},
	}
	c, st := newTestController(t, Declaration{
		Backend:      mock,
		PollInterval: 10 * time.Millisecond,
		MaxAttempts:  2,
		BackoffBase:  1 * time.Millisecond,
		BackoffMax:   2 * time.Millisecond,
	})

	if _, err := st.AppendMessage(ctx, "alice", "@bob go", store.AppendOptions{}); err != nil {
		t.Fatalf("append: %v", err)
	}

	c.runUntilQuiet(ctx)

	if c.State() != domain.StateFailed {
		t.Fatalf("state = %s, want failed", c.State())
	}

	all, err := st.ReadChannel(ctx, store.ReadOptions{})
	if err != nil {
		t.Fatalf("ReadChannel: %v", err)
	}
	found := false
	for _, m := range all {
		if m.Kind == domain.KindSystem {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a system message announcing the permanent failure")
	}
}

func TestController_WakeCoalescesConcurrentSignals(t *testing.T) {
	ctx := context.Background()
	_ = ctx
	mock := &backend.Mock{}
	c, _ := newTestController(t, Declaration{Backend: mock, PollInterval: time.Hour})

	c.mu.Lock()
	c.state = domain.StateRunning
	c.mu.Unlock()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Wake()
		}()
	}
	wg.Wait()

	c.mu.Lock()
	pending := c.pendingWake
	c.mu.Unlock()
	if !pending {
		t.Fatal("expected a pending wake after concurrent Wake() calls while running")
	}
}
