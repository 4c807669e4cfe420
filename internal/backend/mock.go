package backend

import "context"

// Mock is an in-process test Backend driven by a handler function (a nil
// Handler returns an empty Result), used by controller/scheduler tests in
// place of a real subprocess. Every message it receives is kept in Calls.
type Mock struct {
	Handler func(ctx context.Context, message string, opts SendOptions) (Result, error)
	Calls   []string
}

func (m *Mock) Type() string { return "mock" }

func (m *Mock) Send(ctx context.Context, message string, opts SendOptions) (Result, error) {
	m.Calls = append(m.Calls, message)
	if m.Handler == nil {
		return Result{}, nil
	}
	return m.Handler(ctx, message, opts)
}
