package scheduler

import (
	"context"
	"time"

	"github.com/aaltonen/chanflow/internal/domain"
)

// basePollInterval is the shortest configured agent poll interval, used
// to size the debounce window.
func (sch *Scheduler) basePollInterval() time.Duration {
	best := 500 * time.Millisecond
	for i, a := range sch.cfg.Agents {
		d := durationOrDefault(a.PollIntervalMs, 500*time.Millisecond)
		if i == 0 || d < best {
			best = d
		}
	}
	return best
}

// watchUntilDone blocks until the workflow reaches shutdown: every
// agent permanently failed, or a debounced global-idle window elapses
// with exitOnIdle set.
func (sch *Scheduler) watchUntilDone(ctx context.Context) error {
	pollInterval := sch.basePollInterval()
	debounce := time.Duration(sch.cfg.Scheduler.DebounceMultiplier) * pollInterval
	if debounce <= 0 {
		debounce = 3 * pollInterval
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var idleSince time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if sch.allFailed() {
			sch.events.System(ctx, "scheduler", "all agents failed, shutting down")
			return sch.shutdown(ctx)
		}

		quiet, err := sch.allQuiet(ctx)
		if err != nil {
			sch.logger.Printf("scheduler: idle check: %v", err)
			continue
		}
		if !quiet {
			idleSince = time.Time{}
			continue
		}
		if idleSince.IsZero() {
			idleSince = time.Now()
			continue
		}
		if time.Since(idleSince) >= debounce {
			if sch.cfg.Scheduler.ExitOnIdle {
				sch.events.System(ctx, "scheduler", "global idle detected, shutting down")
				return sch.shutdown(ctx)
			}
		}
	}
}

func (sch *Scheduler) allFailed() bool {
	sch.controllersMu.RLock()
	defer sch.controllersMu.RUnlock()
	if len(sch.controllers) == 0 {
		return false
	}
	for _, c := range sch.controllers {
		if c.State() != domain.StateFailed {
			return false
		}
	}
	return true
}

func (sch *Scheduler) allQuiet(ctx context.Context) (bool, error) {
	sch.controllersMu.RLock()
	names := make([]string, 0, len(sch.controllers))
	for name, c := range sch.controllers {
		if c.State() != domain.StateIdle && c.State() != domain.StateFailed {
			sch.controllersMu.RUnlock()
			return false, nil
		}
		names = append(names, name)
	}
	sch.controllersMu.RUnlock()

	for _, name := range names {
		inbox, err := sch.store.GetInbox(ctx, name)
		if err != nil {
			return false, err
		}
		if len(inbox) > 0 {
			return false, nil
		}
	}
	return true, nil
}

// shutdown implements the store-destruction rule: Destroy is a no-op
// for persistent (bind) contexts and wipes inbox state for ephemeral
// ones.
func (sch *Scheduler) shutdown(ctx context.Context) error {
	if err := sch.store.Destroy(ctx); err != nil {
		sch.logger.Printf("scheduler: destroy store: %v", err)
	}
	return nil
}
