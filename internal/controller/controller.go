// Package controller implements the per-agent controller state machine:
// poll inbox → build prompt → invoke backend → handle result → ack
// inbox → retry/backoff.
package controller

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/aaltonen/chanflow/internal/backend"
	"github.com/aaltonen/chanflow/internal/domain"
	"github.com/aaltonen/chanflow/internal/eventlog"
	"github.com/aaltonen/chanflow/internal/store"
)

// Declaration is the static configuration for one agent controller.
type Declaration struct {
	Name         string
	Backend      backend.Backend
	SystemPrompt string
	WorkspaceDir string
	ProjectDir   string
	MCPURL       string

	PollInterval      time.Duration
	MaxAttempts       int
	BackoffBase       time.Duration
	BackoffMultiplier float64
	BackoffMax        time.Duration
	RecentActivityN   int
	WorkflowName      string
}

func (d *Declaration) setDefaults() {
	if d.PollInterval <= 0 {
		d.PollInterval = 500 * time.Millisecond
	}
	if d.MaxAttempts <= 0 {
		d.MaxAttempts = 3
	}
	if d.BackoffBase <= 0 {
		d.BackoffBase = time.Second
	}
	if d.BackoffMultiplier <= 0 {
		d.BackoffMultiplier = 2
	}
	if d.BackoffMax <= 0 {
		d.BackoffMax = 30 * time.Second
	}
	if d.RecentActivityN <= 0 {
		d.RecentActivityN = 20
	}
}

// channelStore is the subset of *store.Store the controller needs.
type channelStore interface {
	GetInbox(ctx context.Context, agent string) ([]domain.InboxEntry, error)
	AckInbox(ctx context.Context, agent, id string) error
	ReadChannel(ctx context.Context, opts store.ReadOptions) ([]domain.Message, error)
}

// Controller drives one agent through the starting/idle/running/failed
// state machine.
type Controller struct {
	decl  Declaration
	store channelStore
	ev    *eventlog.Log
	log   *log.Logger

	mu           sync.Mutex
	state        domain.ControllerRunState
	pendingWake  bool
	retryAttempt int

	wakeCh chan struct{}
	stopCh chan struct{}
	doneCh chan struct{}
}

// New constructs a Controller in the "starting" state. Call Run to start
// its loop in a goroutine.
func New(decl Declaration, st channelStore, ev *eventlog.Log, logger *log.Logger) *Controller {
	decl.setDefaults()
	return &Controller{
		decl:   decl,
		store:  st,
		ev:     ev,
		log:    logger,
		state:  domain.StateStarting,
		wakeCh: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Name returns the controller's agent name.
func (c *Controller) Name() string { return c.decl.Name }

// State returns the controller's current state.
func (c *Controller) State() domain.ControllerRunState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RetryAttempt returns the current retry counter (0 outside a backoff
// window), useful for status reporting.
func (c *Controller) RetryAttempt() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retryAttempt
}

// Wake is edge-triggered: if the controller is idle, it runs one
// iteration on the next tick; if already running, the wake is remembered
// and causes exactly one more iteration after the current one completes.
// Wakes during stopping are discarded.
func (c *Controller) Wake() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == domain.StateStopping || c.state == domain.StateStopped || c.state == domain.StateFailed {
		return
	}
	c.pendingWake = true
	select {
	case c.wakeCh <- struct{}{}:
	default:
	}
}

// Stop requests the controller abandon its current iteration (if any)
// and transition to stopped. It returns once the run loop has exited;
// calling it again just waits for that same exit.
func (c *Controller) Stop() {
	c.mu.Lock()
	switch c.state {
	case domain.StateStopped:
		c.mu.Unlock()
		return
	case domain.StateStopping:
		c.mu.Unlock()
		<-c.doneCh
		return
	}
	c.state = domain.StateStopping
	c.mu.Unlock()

	close(c.stopCh)
	<-c.doneCh
}

// Run is the controller's main loop: it polls on decl.PollInterval and
// otherwise reacts to Wake(), running one iteration at a time until
// Stop() is called or the controller reaches the terminal failed state.
func (c *Controller) Run(ctx context.Context) {
	defer close(c.doneCh)

	c.mu.Lock()
	c.state = domain.StateIdle
	c.mu.Unlock()

	if s, ok := c.decl.Backend.(backend.Streamer); ok && c.ev != nil {
		s.Stream(func(chunk string) { c.ev.Output(ctx, c.decl.Name, chunk) })
	}

	ticker := time.NewTicker(c.decl.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			c.mu.Lock()
			c.state = domain.StateStopped
			c.mu.Unlock()
			return
		case <-ctx.Done():
			c.mu.Lock()
			c.state = domain.StateStopped
			c.mu.Unlock()
			return
		case <-c.wakeCh:
		case <-ticker.C:
		}

		if c.State() == domain.StateFailed {
			return
		}
		c.runUntilQuiet(ctx)
	}
}

// runUntilQuiet runs iterations back to back as long as a wake is
// pending when the previous one completes, coalescing a burst of
// mentions produced during one run into a single extra pass.
func (c *Controller) runUntilQuiet(ctx context.Context) {
	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		ran, terminal := c.runIteration(ctx)
		if terminal {
			return
		}
		if !ran {
			return
		}

		c.mu.Lock()
		again := c.pendingWake
		c.pendingWake = false
		c.mu.Unlock()
		if !again {
			return
		}
	}
}

// runIteration runs exactly one idle→running→idle|failed cycle. It
// returns ran=false if the inbox was empty and no wake was pending (a
// no-op), and terminal=true if the controller just transitioned to
// failed.
func (c *Controller) runIteration(ctx context.Context) (ran bool, terminal bool) {
	inbox, err := c.store.GetInbox(ctx, c.decl.Name)
	if err != nil {
		if c.log != nil {
			c.log.Printf("controller %s: get inbox: %v", c.decl.Name, err)
		}
		return false, false
	}

	c.mu.Lock()
	pending := c.pendingWake
	c.mu.Unlock()

	if len(inbox) == 0 && !pending {
		return false, false
	}

	c.mu.Lock()
	c.pendingWake = false
	c.state = domain.StateRunning
	attempt := c.retryAttempt
	c.mu.Unlock()

	var tentativeAckID string
	if len(inbox) > 0 {
		tentativeAckID = inbox[len(inbox)-1].ID
	}

	recent, err := c.store.ReadChannel(ctx, store.ReadOptions{Agent: c.decl.Name, Limit: c.decl.RecentActivityN})
	if err != nil && c.log != nil {
		c.log.Printf("controller %s: read recent activity: %v", c.decl.Name, err)
	}

	prompt := buildPrompt(promptInputs{
		agent:        c.decl.Name,
		workflow:     c.decl.WorkflowName,
		inbox:        inbox,
		recent:       recent,
		projectDir:   c.decl.ProjectDir,
		retryAttempt: attempt,
		maxAttempts:  c.decl.MaxAttempts,
	})

	result, sendErr := c.decl.Backend.Send(ctx, prompt, backend.SendOptions{System: c.decl.SystemPrompt})
	if sendErr == nil {
		if tentativeAckID != "" {
			if err := c.store.AckInbox(ctx, c.decl.Name, tentativeAckID); err != nil && c.log != nil {
				c.log.Printf("controller %s: ack inbox: %v", c.decl.Name, err)
			}
		}
		if result.Content != "" && c.ev != nil {
			c.ev.Output(ctx, c.decl.Name, result.Content)
		}
		c.mu.Lock()
		c.retryAttempt = 0
		c.state = domain.StateIdle
		c.mu.Unlock()
		return true, false
	}

	return c.handleFailure(ctx, attempt, sendErr)
}

func (c *Controller) handleFailure(ctx context.Context, attempt int, sendErr error) (ran bool, terminal bool) {
	attempt++
	if attempt < c.decl.MaxAttempts {
		c.mu.Lock()
		c.retryAttempt = attempt
		c.state = domain.StateIdle
		c.mu.Unlock()

		delay := backoffDelay(c.decl.BackoffBase, c.decl.BackoffMultiplier, c.decl.BackoffMax, attempt)
		select {
		case <-time.After(delay):
		case <-c.stopCh:
			return true, false
		case <-ctx.Done():
			return true, false
		}
		c.mu.Lock()
		c.pendingWake = true
		c.mu.Unlock()
		return true, false
	}

	c.mu.Lock()
	c.state = domain.StateFailed
	c.mu.Unlock()
	if c.ev != nil {
		c.ev.System(ctx, c.decl.Name, fmt.Sprintf("agent %s failed permanently after %d attempts: %v", c.decl.Name, attempt, sendErr))
	}
	return true, true
}
