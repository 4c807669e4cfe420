// Package eventlog is a thin, fire-and-forget facade over the channel
// store's append path that sets Kind uniformly. Logging
// must never block agent execution or fail a tool call, so every method
// swallows its own errors into the logger.
package eventlog

import (
	"context"
	"log"

	"github.com/aaltonen/chanflow/internal/domain"
	"github.com/aaltonen/chanflow/internal/store"
)

// appender is the subset of *store.Store the event log needs.
type appender interface {
	AppendMessage(ctx context.Context, from, content string, opts store.AppendOptions) (domain.Message, error)
}

// Log records tool calls, system notices, backend output, and debug
// traces into the channel as non-conversational entries.
type Log struct {
	appender appender
	logger   *log.Logger
}

// New returns a Log writing through appender.
func New(appender appender, logger *log.Logger) *Log {
	return &Log{appender: appender, logger: logger}
}

// ToolCall records an agent's MCP tool invocation.
func (l *Log) ToolCall(ctx context.Context, agent, name string, args map[string]any, source string) {
	_, err := l.appender.AppendMessage(ctx, agent, name, store.AppendOptions{
		Kind: domain.KindToolCall,
		Tool: &domain.ToolCall{Name: name, Args: args, Source: source},
	})
	l.swallow("tool_call", err)
}

// System records an operator/scheduler-facing system notice.
func (l *Log) System(ctx context.Context, from, msg string) {
	_, err := l.appender.AppendMessage(ctx, from, msg, store.AppendOptions{Kind: domain.KindSystem})
	l.swallow("system", err)
}

// Output records backend output streamed during a run.
func (l *Log) Output(ctx context.Context, agent, text string) {
	_, err := l.appender.AppendMessage(ctx, agent, text, store.AppendOptions{Kind: domain.KindOutput})
	l.swallow("output", err)
}

// Debug records an operator-only trace entry, invisible to agents.
func (l *Log) Debug(ctx context.Context, from, msg string) {
	_, err := l.appender.AppendMessage(ctx, from, msg, store.AppendOptions{Kind: domain.KindDebug})
	l.swallow("debug", err)
}

func (l *Log) swallow(kind string, err error) {
	if err != nil && l.logger != nil {
		l.logger.Printf("eventlog: %s append failed (ignored): %v", kind, err)
	}
}
