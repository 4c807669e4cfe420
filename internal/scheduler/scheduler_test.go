package scheduler

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aaltonen/chanflow/internal/backend"
	"github.com/aaltonen/chanflow/internal/controller"
	"github.com/aaltonen/chanflow/internal/domain"
	"github.com/aaltonen/chanflow/internal/store"
	"github.com/aaltonen/chanflow/internal/workflow"
)

// channelSend emulates what the channel_send MCP tool does for an
// in-process mock backend: post via the store, then fan mentions out to
// the mentioned controllers.
func channelSend(ctx context.Context, sch *Scheduler, from, content string) {
	res, err := sch.store.SmartSend(ctx, from, content, "")
	if err != nil {
		return
	}
	for _, target := range res.Message.Mentions {
		sch.onMention(from, target, res.Message)
	}
}

// inboxSection cuts a prompt down to its "## Inbox" block so handlers
// react to newly delivered messages, not to echoes of earlier traffic
// in the Recent Activity window.
func inboxSection(prompt string) string {
	i := strings.Index(prompt, "## Inbox")
	j := strings.Index(prompt, "## Recent Activity")
	if i < 0 || j < i {
		return prompt
	}
	return prompt[i:j]
}

// TestKickoffToQuiescence drives a whole conversational turn: the
// kickoff mentions alice, alice asks bob, bob answers, and the workflow
// reaches debounced global idle on its own.
func TestKickoffToQuiescence(t *testing.T) {
	cfg := workflow.DefaultConfig()
	cfg.Name = "kickoff-e2e"
	cfg.Kickoff = "@alice ask @bob about X"
	cfg.Scheduler.ExitOnIdle = true
	cfg.Agents = []workflow.AgentConfig{
		{Name: "alice", Backend: "mock", PollIntervalMs: 10},
		{Name: "bob", Backend: "mock", PollIntervalMs: 10},
	}

	sch, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	backends := map[string]*backend.Mock{
		"alice": {Handler: func(ctx context.Context, message string, _ backend.SendOptions) (backend.Result, error) {
			if strings.Contains(inboxSection(message), "ask @bob about X") {
				channelSend(ctx, sch, "alice", "@bob what is X?")
			}
			return backend.Result{}, nil
		}},
		"bob": {Handler: func(ctx context.Context, message string, _ backend.SendOptions) (backend.Result, error) {
			if strings.Contains(inboxSection(message), "what is X?") {
				channelSend(ctx, sch, "bob", "@alice X is Y")
			}
			return backend.Result{}, nil
		}},
	}
	for _, a := range cfg.Agents {
		c := controller.New(controller.Declaration{
			Name:         a.Name,
			Backend:      backends[a.Name],
			PollInterval: 10 * time.Millisecond,
			WorkflowName: cfg.Name,
		}, sch.store, sch.events, nil)
		sch.controllers[a.Name] = c
		go c.Run(ctx)
	}
	defer sch.stopControllers()

	if err := sch.kickoff(ctx); err != nil {
		t.Fatalf("kickoff: %v", err)
	}
	if err := sch.watchUntilDone(ctx); err != nil {
		t.Fatalf("watchUntilDone: %v", err)
	}

	all, err := sch.store.ReadChannel(ctx, store.ReadOptions{})
	if err != nil {
		t.Fatalf("ReadChannel: %v", err)
	}
	var conv []domain.Message
	for _, m := range all {
		if m.Kind == domain.KindMessage {
			conv = append(conv, m)
		}
	}
	if len(conv) != 3 {
		t.Fatalf("conversational messages = %d (%+v), want 3", len(conv), conv)
	}
	if conv[0].From != "system" {
		t.Fatalf("conv[0].From = %s, want system", conv[0].From)
	}
	if conv[1].From != "alice" || len(conv[1].Mentions) != 1 || conv[1].Mentions[0] != "bob" {
		t.Fatalf("conv[1] = %+v, want alice mentioning bob", conv[1])
	}
	if conv[2].From != "bob" || len(conv[2].Mentions) != 1 || conv[2].Mentions[0] != "alice" {
		t.Fatalf("conv[2] = %+v, want bob mentioning alice", conv[2])
	}

	for _, agent := range []string{"alice", "bob"} {
		inbox, err := sch.store.GetInbox(ctx, agent)
		if err != nil {
			t.Fatalf("GetInbox(%s): %v", agent, err)
		}
		if len(inbox) != 0 {
			t.Fatalf("%s's inbox after quiescence = %d entries, want 0", agent, len(inbox))
		}
	}
}

// TestAllFailedShutsDown pins the scheduler-level failure policy: when
// every controller reaches the terminal failed state, the watch loop
// exits rather than waiting for an idle that can never be disturbed.
func TestAllFailedShutsDown(t *testing.T) {
	cfg := workflow.DefaultConfig()
	cfg.Name = "all-failed"
	cfg.Agents = []workflow.AgentConfig{{Name: "solo", Backend: "mock", PollIntervalMs: 10}}

	sch, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	failing := &backend.Mock{Handler: func(context.Context, string, backend.SendOptions) (backend.Result, error) {
		return backend.Result{}, context.DeadlineExceeded
	}}
	c := controller.New(controller.Declaration{
		Name:         "solo",
		Backend:      failing,
		PollInterval: 10 * time.Millisecond,
		MaxAttempts:  2,
		BackoffBase:  time.Millisecond,
		BackoffMax:   2 * time.Millisecond,
	}, sch.store, sch.events, nil)
	sch.controllers["solo"] = c
	go c.Run(ctx)

	if _, err := sch.store.AppendMessage(ctx, "system", "@solo go", store.AppendOptions{}); err != nil {
		t.Fatalf("append: %v", err)
	}
	c.Wake()

	if err := sch.watchUntilDone(ctx); err != nil {
		t.Fatalf("watchUntilDone: %v", err)
	}
	if c.State() != domain.StateFailed {
		t.Fatalf("controller state = %s, want failed", c.State())
	}
}
