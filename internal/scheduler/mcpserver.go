package scheduler

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aaltonen/chanflow/internal/domain"
	"github.com/aaltonen/chanflow/internal/mcptools"
	"github.com/aaltonen/chanflow/internal/mockauth"
	"github.com/aaltonen/chanflow/internal/statusapi"
	"github.com/aaltonen/chanflow/internal/transport"
)

// startMCPServer builds the *server.MCPServer, registers every tool,
// and serves it over HTTP on cfg.Scheduler.HTTPHost:Port
// (0 = OS-assigned ephemeral port).
func (sch *Scheduler) startMCPServer() error {
	hooks := &server.Hooks{}
	hooks.AddAfterCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest, result *mcp.CallToolResult) {
		if req != nil {
			sch.logger.Printf("tool call: %s", req.Params.Name)
		}
	})

	mcpServer := server.NewMCPServer(
		"chanflow",
		"1.0.0",
		server.WithHooks(hooks),
		server.WithResourceCapabilities(false, true),
	)
	sch.mcpServer = mcpServer

	tsp := transport.New(mcpServer, sch.logger, hooks)
	sch.transport = tsp

	mcptools.Register(mcpServer, mcptools.Deps{
		Store:    sch.store,
		Proposal: sch.prop,
		Events:   sch.events,
		Registry: tsp.Registry,
		Status:   sch.statuses,
		Logger:   sch.logger,
		Mention:  sch.onMention,
		Skills:   sch.skills,
	})

	host := sch.cfg.Scheduler.HTTPHost
	if host == "" {
		host = "127.0.0.1"
	}
	addr := fmt.Sprintf("%s:%d", host, sch.cfg.Scheduler.HTTPPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	sch.listener = listener

	handler := tsp.Handler(false)
	if sch.cfg.Scheduler.MockOAuth {
		handler = sch.withMockOAuth(handler)
	}

	outer := http.NewServeMux()
	statusapi.NewHandler(sch).RegisterRoutes(outer)
	outer.Handle("/", handler)
	sch.httpSrv = &http.Server{Handler: outer}

	go func() {
		if err := sch.httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			sch.logger.Printf("scheduler: mcp http server error: %v", err)
		}
	}()

	sch.logger.Printf("scheduler: mcp server listening on %s (%s/mcp)", listener.Addr(), "http://"+listener.Addr().String())
	return nil
}

// mcpBaseURL returns the base http://host:port the MCP server is
// reachable on, for building each controller's MCP_SERVER_URL.
func (sch *Scheduler) mcpBaseURL() string {
	if sch.listener == nil {
		return ""
	}
	return "http://" + sch.listener.Addr().String()
}

func (sch *Scheduler) stopMCPServer(ctx context.Context) {
	if sch.httpSrv != nil {
		_ = sch.httpSrv.Shutdown(ctx)
	}
	if sch.skills != nil {
		_ = sch.skills.Close()
	}
}

// withMockOAuth layers the mock OAuth discovery/token endpoints for
// clients (like Claude Code) that insist on an OAuth handshake even
// against a loopback server.
func (sch *Scheduler) withMockOAuth(next http.Handler) http.Handler {
	mux := http.NewServeMux()
	mock := mockauth.New(sch.mcpBaseURL(), sch.logger)
	mock.RegisterRoutes(mux)
	mux.Handle("/", next)
	return mux
}

// onMention is the mcptools.OnMention callback wired into every tool
// Deps: a newly mentioned agent's controller is woken.
func (sch *Scheduler) onMention(from, target string, msg domain.Message) {
	sch.controllersMu.RLock()
	defer sch.controllersMu.RUnlock()
	if target == "all" {
		for name, c := range sch.controllers {
			if name != from {
				c.Wake()
			}
		}
		return
	}
	if c, ok := sch.controllers[target]; ok {
		c.Wake()
	}
}
