package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aaltonen/chanflow/internal/domain"
)

// AppendOptions configures a raw channel append.
type AppendOptions struct {
	To   string
	Kind domain.MessageKind
	Tool *domain.ToolCall
}

// AppendMessage assigns id/timestamp, computes mentions, serializes the
// entry, and calls backend.Append. It returns the complete message
// exactly as written.
func (s *Store) AppendMessage(ctx context.Context, from, content string, opts AppendOptions) (domain.Message, error) {
	s.agentsMu.RLock()
	agents := s.validAgents
	s.agentsMu.RUnlock()

	m := domain.Message{
		ID:        s.ids.nextMessageID(),
		Timestamp: nowISOMillis(),
		From:      from,
		Content:   content,
		Mentions:  extractMentions(content, agents),
		To:        opts.To,
		Kind:      opts.Kind,
		ToolCall:  opts.Tool,
	}
	if err := s.rawAppend(ctx, m); err != nil {
		return domain.Message{}, err
	}
	return m, nil
}

func (s *Store) rawAppend(ctx context.Context, m domain.Message) error {
	line, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("store: marshal message: %w", err)
	}
	line = append(line, '\n')
	if err := s.backend.Append(ctx, channelKey, line); err != nil {
		return fmt.Errorf("store: append message: %w", err)
	}
	return nil
}

// SmartSendResult is returned by SmartSend.
type SmartSendResult struct {
	Message  domain.Message
	Resource *domain.Resource // non-nil iff the content was extracted
}

// SmartSend implements the "Smart send" behavior: content longer than
// the configured threshold is extracted into a resource, a debug entry
// carrying the full content is recorded for operators, and a short
// agent-visible message replaces it, preserving the original mentions.
func (s *Store) SmartSend(ctx context.Context, from, content string, to string) (SmartSendResult, error) {
	if len(content) <= s.messageThreshold {
		m, err := s.AppendMessage(ctx, from, content, AppendOptions{To: to})
		return SmartSendResult{Message: m}, err
	}

	s.agentsMu.RLock()
	agents := s.validAgents
	s.agentsMu.RUnlock()
	mentions := extractMentions(content, agents)

	resType := "text"
	ext := "txt"
	if containsFencedCodeBlock(content) {
		resType = "markdown"
		ext = "md"
	}
	res, err := s.createResourceRaw(ctx, resType, ext, content)
	if err != nil {
		return SmartSendResult{}, fmt.Errorf("store: smart send resource: %w", err)
	}

	debugMsg := domain.Message{
		ID:        s.ids.nextMessageID(),
		Timestamp: nowISOMillis(),
		From:      from,
		Content:   content,
		Mentions:  mentions,
		To:        to,
		Kind:      domain.KindDebug,
	}
	if err := s.rawAppend(ctx, debugMsg); err != nil {
		return SmartSendResult{}, fmt.Errorf("store: smart send debug entry: %w", err)
	}

	var mentionPrefix string
	for _, mn := range mentions {
		mentionPrefix += "@" + mn + " "
	}
	short := fmt.Sprintf("%s[Long content stored as resource]\n\nRead the full content: resource_read(\"%s\")\n\nReference: %s",
		mentionPrefix, res.ID, res.Ref())

	visible := domain.Message{
		ID:        s.ids.nextMessageID(),
		Timestamp: nowISOMillis(),
		From:      from,
		Content:   short,
		Mentions:  mentions,
		To:        to,
	}
	if err := s.rawAppend(ctx, visible); err != nil {
		return SmartSendResult{}, fmt.Errorf("store: smart send visible entry: %w", err)
	}

	return SmartSendResult{Message: visible, Resource: &res}, nil
}

// ReadOptions filters a ReadChannel call.
type ReadOptions struct {
	Since string // ISO timestamp; keep entries strictly after
	Limit int
	Agent string // if set, apply the visibility filter for this agent
}

// ReadChannel returns the filtered, ordered view of the channel,
// applying the per-agent visibility filter when Agent is set.
func (s *Store) ReadChannel(ctx context.Context, opts ReadOptions) ([]domain.Message, error) {
	entries, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	out := entries[:0:0]
	for _, m := range entries {
		if opts.Agent != "" && !visibleTo(m, opts.Agent) {
			continue
		}
		if opts.Since != "" && m.Timestamp <= opts.Since {
			continue
		}
		out = append(out, m)
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[len(out)-opts.Limit:]
	}
	return out, nil
}

// visibleTo implements the per-agent visibility filter: system/debug/tool_call/output kinds and DMs the
// agent is not party to are hidden; public entries (no To) are visible
// to everyone.
func visibleTo(m domain.Message, agent string) bool {
	switch m.Kind {
	case domain.KindSystem, domain.KindDebug, domain.KindToolCall, domain.KindOutput:
		return false
	}
	if m.To != "" && m.To != agent && m.From != agent {
		return false
	}
	return true
}

// TailResult is returned by TailChannel.
type TailResult struct {
	Entries []domain.Message
	Cursor  int
}

// TailChannel returns every entry from cursor (an entry count, not an
// id) to the current end, plus the new cursor. The primary path for
// display watchers and, optionally, controllers.
func (s *Store) TailChannel(ctx context.Context, cursor int) (TailResult, error) {
	entries, err := s.snapshot(ctx)
	if err != nil {
		return TailResult{}, err
	}
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(entries) {
		cursor = len(entries)
	}
	tail := append([]domain.Message(nil), entries[cursor:]...)
	return TailResult{Entries: tail, Cursor: len(entries)}, nil
}

func nowISOMillis() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}
