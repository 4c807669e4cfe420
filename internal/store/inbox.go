package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aaltonen/chanflow/internal/domain"
)

func (s *Store) loadInboxState(ctx context.Context) (*domain.InboxState, error) {
	raw, err := s.backend.Read(ctx, inboxKey)
	if err != nil {
		return nil, fmt.Errorf("store: load inbox state: %w", err)
	}
	if len(raw) == 0 {
		return domain.NewInboxState(), nil
	}
	var st domain.InboxState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("store: parse inbox state: %w", err)
	}
	if st.ReadCursors == nil {
		st.ReadCursors = make(map[string]string)
	}
	if st.SeenCursors == nil {
		st.SeenCursors = make(map[string]string)
	}
	return &st, nil
}

func (s *Store) saveInboxState(ctx context.Context, st *domain.InboxState) error {
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal inbox state: %w", err)
	}
	if err := s.backend.Write(ctx, inboxKey, raw); err != nil {
		return fmt.Errorf("store: write inbox state: %w", err)
	}
	return nil
}

// GetInbox returns agent's inbox: entries since its read cursor (or the
// run-epoch floor) that mention it or are addressed to it, excluding its
// own messages and non-conversational kinds.
func (s *Store) GetInbox(ctx context.Context, agent string) ([]domain.InboxEntry, error) {
	entries, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	st, err := s.loadInboxState(ctx)
	if err != nil {
		return nil, err
	}

	s.runMu.Lock()
	runStart := s.runStartIndex
	s.runMu.Unlock()

	startIdx := runStart
	if cursor, ok := st.ReadCursors[agent]; ok && cursor != "" {
		if idx := indexOfID(entries, cursor); idx >= 0 {
			if idx+1 > startIdx {
				startIdx = idx + 1
			}
		}
		// A stale cursor (id not found, e.g. truncated log) falls back
		// to showing everything from the run-epoch floor — the "show
		// all" policy chosen here over surfacing a warning.
	}

	seenIdx := -1
	if cursor, ok := st.SeenCursors[agent]; ok && cursor != "" {
		seenIdx = indexOfID(entries, cursor)
	}

	var out []domain.InboxEntry
	for i := startIdx; i < len(entries); i++ {
		m := entries[i]
		switch m.Kind {
		case domain.KindSystem, domain.KindDebug, domain.KindToolCall, domain.KindOutput:
			continue
		}
		if m.From == agent {
			continue
		}
		mentioned := containsString(m.Mentions, agent)
		if !mentioned && m.To != agent {
			continue
		}

		priority := "mention"
		switch {
		case m.To == agent:
			priority = "dm"
		case m.From == "system" && mentioned:
			priority = "system-mention"
		}

		out = append(out, domain.InboxEntry{
			Message:  m,
			Priority: priority,
			Seen:     seenIdx >= 0 && i <= seenIdx,
		})
	}
	return out, nil
}

// AckInbox writes readCursors[agent] = id. Ack is monotonic: an id
// whose index is behind the current cursor is a no-op.
func (s *Store) AckInbox(ctx context.Context, agent, id string) error {
	s.inboxMu.Lock()
	defer s.inboxMu.Unlock()

	st, err := s.loadInboxState(ctx)
	if err != nil {
		return err
	}

	entries, err := s.snapshot(ctx)
	if err != nil {
		return err
	}
	newIdx := indexOfID(entries, id)
	if cur, ok := st.ReadCursors[agent]; ok && cur != "" {
		curIdx := indexOfID(entries, cur)
		if newIdx >= 0 && curIdx >= 0 && newIdx < curIdx {
			return nil
		}
	}

	st.ReadCursors[agent] = id
	return s.saveInboxState(ctx, st)
}

// MarkInboxSeen writes seenCursors[agent] = id analogously to AckInbox.
func (s *Store) MarkInboxSeen(ctx context.Context, agent, id string) error {
	s.inboxMu.Lock()
	defer s.inboxMu.Unlock()

	st, err := s.loadInboxState(ctx)
	if err != nil {
		return err
	}
	st.SeenCursors[agent] = id
	return s.saveInboxState(ctx, st)
}

// MarkRunStart records runStartIndex = |entries|. Inbox queries ignore every entry before this floor.
func (s *Store) MarkRunStart(ctx context.Context) error {
	entries, err := s.snapshot(ctx)
	if err != nil {
		return err
	}
	s.runMu.Lock()
	s.runStartIndex = len(entries)
	s.runMu.Unlock()
	return nil
}

// Destroy deletes inbox state for ephemeral contexts; for persistent
// (bind) contexts it is a no-op, leaving state for the next run.
func (s *Store) Destroy(ctx context.Context) error {
	if !s.ephemeral {
		return nil
	}
	if err := s.backend.Delete(ctx, inboxKey); err != nil {
		return fmt.Errorf("store: destroy: %w", err)
	}
	return nil
}

func indexOfID(entries []domain.Message, id string) int {
	for i, m := range entries {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func containsString(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}
