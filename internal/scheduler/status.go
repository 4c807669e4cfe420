package scheduler

import (
	"context"
	"time"

	"github.com/aaltonen/chanflow/internal/statusapi"
	"github.com/aaltonen/chanflow/internal/store"
)

// Snapshot implements statusapi.Source: it reports every controller's
// run state plus its last self-reported status, and the channel's
// latest channelTail entries with no visibility filter applied — the
// status page is an operator view, not a participant's.
func (sch *Scheduler) Snapshot(ctx context.Context, channelTail int) (statusapi.Snapshot, error) {
	snap := statusapi.Snapshot{
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Workflow:  sch.cfg.Name,
		Ephemeral: sch.ephemeral,
	}

	sch.controllersMu.RLock()
	for name, c := range sch.controllers {
		cs := statusapi.ControllerSnapshot{
			Name:         name,
			State:        string(c.State()),
			RetryAttempt: c.RetryAttempt(),
		}
		if st, ok := sch.statuses.Get(name); ok {
			cs.Task = st.Task
			cs.StatusState = st.State
		}
		snap.Controllers = append(snap.Controllers, cs)
	}
	sch.controllersMu.RUnlock()

	messages, err := sch.store.ReadChannel(ctx, store.ReadOptions{Limit: channelTail})
	if err != nil {
		return snap, err
	}
	for _, m := range messages {
		snap.Channel = append(snap.Channel, statusapi.MessageSnapshot{
			ID:        m.ID,
			From:      m.From,
			To:        m.To,
			Content:   m.Content,
			Timestamp: m.Timestamp,
			Kind:      string(m.Kind),
			Mentions:  m.Mentions,
		})
	}
	return snap, nil
}
