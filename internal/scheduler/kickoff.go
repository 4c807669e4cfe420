package scheduler

import (
	"context"

	"github.com/aaltonen/chanflow/internal/store"
	"github.com/aaltonen/chanflow/internal/workflow"
)

// kickoff interpolates the configured kickoff template with variables
// captured from setup tasks, appends it as a system message, marks the
// run epoch, and wakes every agent it mentions.
func (sch *Scheduler) kickoff(ctx context.Context) error {
	if err := sch.store.MarkRunStart(ctx); err != nil {
		return err
	}
	if sch.cfg.Kickoff == "" {
		return nil
	}

	text := workflow.Interpolate(sch.cfg.Kickoff, sch.setupVars)
	msg, err := sch.store.AppendMessage(ctx, "system", text, store.AppendOptions{})
	if err != nil {
		return err
	}

	sch.controllersMu.RLock()
	defer sch.controllersMu.RUnlock()
	for _, target := range msg.Mentions {
		if c, ok := sch.controllers[target]; ok {
			c.Wake()
		}
	}
	return nil
}
