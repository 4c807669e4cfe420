package transport

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type agentQueryKey struct{}

// sessionStore holds live ClientSession handles for server-pushed
// notifications.
type sessionStore struct {
	mu   sync.RWMutex
	data map[string]server.ClientSession
}

func newSessionStore() *sessionStore {
	return &sessionStore{data: make(map[string]server.ClientSession)}
}

func (ss *sessionStore) set(id string, s server.ClientSession) {
	ss.mu.Lock()
	ss.data[id] = s
	ss.mu.Unlock()
}

func (ss *sessionStore) get(id string) server.ClientSession {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.data[id]
}

func (ss *sessionStore) remove(id string) {
	ss.mu.Lock()
	delete(ss.data, id)
	ss.mu.Unlock()
}

// Server wraps mcp-go's streamable HTTP server with a single /mcp
// endpoint and one MCP session per agent, plus session<->agent binding.
//
// Session ids are generated internally by mark3labs/mcp-go and the
// format isn't exposed for override, so the declared identity is
// captured from the `agent` query parameter at initialize time (an
// AddBeforeInitialize hook reads it via request context) and bound to
// the library's session id in a SessionRegistry. Every tool handler
// then recovers identity with Registry.Agent(session.SessionID()). The
// query parameter is the trusted identity because the server listens on
// loopback only; each tool call resolves to exactly one agent through
// its session.
type Server struct {
	MCPServer *server.MCPServer
	Registry  *SessionRegistry

	logger   *log.Logger
	sessions *sessionStore
	mux      *http.ServeMux
}

// New builds a Server around an already-configured *server.MCPServer
// (tools registered by the caller before or after calling New).
func New(mcpServer *server.MCPServer, logger *log.Logger, hooks *server.Hooks) *Server {
	registry := NewSessionRegistry()
	sessions := newSessionStore()

	hooks.AddBeforeInitialize(func(ctx context.Context, id any, message *mcp.InitializeRequest) {
		agent, _ := ctx.Value(agentQueryKey{}).(string)
		session := server.ClientSessionFromContext(ctx)
		if session == nil {
			return
		}
		sessions.set(session.SessionID(), session)
		if agent != "" {
			token := registry.Bind(session.SessionID(), agent)
			logger.Printf("session %s bound to agent %s (token %s)", session.SessionID(), agent, token)
		} else {
			logger.Printf("session %s initialized with no agent query parameter", session.SessionID())
		}
	})

	hooks.AddOnUnregisterSession(func(ctx context.Context, session server.ClientSession) {
		agent := registry.Agent(session.SessionID())
		registry.Remove(session.SessionID())
		sessions.remove(session.SessionID())
		if agent != "" {
			logger.Printf("session %s (agent=%s) closed", session.SessionID(), agent)
		} else {
			logger.Printf("session %s closed", session.SessionID())
		}
	})

	return &Server{
		MCPServer: mcpServer,
		Registry:  registry,
		logger:    logger,
		sessions:  sessions,
	}
}

// Handler builds the HTTP mux: /mcp (streamable HTTP, required) and /sse
// (optional, server-pushed notifications only).
func (s *Server) Handler(withSSE bool) http.Handler {
	streamSrv := server.NewStreamableHTTPServer(s.MCPServer,
		server.WithHTTPContextFunc(s.contextFunc),
	)

	mux := http.NewServeMux()
	mux.Handle("/mcp", streamSrv)
	if withSSE {
		sseSrv := server.NewSSEServer(s.MCPServer, server.WithSSEContextFunc(s.contextFunc))
		mux.Handle("/sse", sseSrv)
		mux.Handle("/sse/", sseSrv)
		mux.Handle("/message", sseSrv)
	}
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","agents":%d}`, len(s.Registry.ConnectedAgents()))
	})
	s.mux = mux
	return mux
}

// contextFunc stashes the ?agent= query parameter into the request
// context so AddBeforeInitialize can read it once the session object
// exists.
func (s *Server) contextFunc(ctx context.Context, r *http.Request) context.Context {
	agent := r.URL.Query().Get("agent")
	if agent == "" {
		return ctx
	}
	return context.WithValue(ctx, agentQueryKey{}, agent)
}

// Push sends a server notification to agent's session, if connected.
// Best effort: a full notification channel drops the push.
func (s *Server) Push(agent, method string, params any) error {
	sid := s.Registry.SessionFor(agent)
	if sid == "" {
		return nil
	}
	session := s.sessions.get(sid)
	if session == nil || !session.Initialized() {
		return nil
	}
	notification := mcp.JSONRPCNotification{
		JSONRPC: "2.0",
		Notification: mcp.Notification{
			Method: method,
			Params: mcp.NotificationParams{AdditionalFields: map[string]any{"params": params}},
		},
	}
	select {
	case session.NotificationChannel() <- notification:
	default:
		s.logger.Printf("push to %s dropped (channel full)", agent)
	}
	return nil
}

// AgentFromContext recovers the calling agent's identity for a tool
// handler, given the ctx an MCP tool handler receives.
func AgentFromContext(ctx context.Context, registry *SessionRegistry) string {
	session := server.ClientSessionFromContext(ctx)
	if session == nil {
		return ""
	}
	return registry.Agent(session.SessionID())
}
