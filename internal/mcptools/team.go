package mcptools

import (
	"context"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func registerMyStatusSet(s *server.MCPServer, d Deps) {
	s.AddTool(
		mcp.NewTool("my_status_set",
			mcp.WithDescription("Publish your current task and state for teammates to see via team_members."),
			mcp.WithString("task", mcp.Description("A short description of what you're working on")),
			mcp.WithString("state", mcp.Description("Your current state: idle or running")),
			mcp.WithObject("metadata", mcp.Description("Optional free-form key/value details")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			caller := callerAgent(ctx, d)
			if caller == "" {
				return errResult("unknown calling agent (no session binding)"), nil
			}
			args := req.GetArguments()
			task, _ := args["task"].(string)
			state, _ := args["state"].(string)
			if state != "" && state != "idle" && state != "running" {
				return errResult("state must be idle or running"), nil
			}
			metadata, _ := args["metadata"].(map[string]any)

			d.logToolCall(ctx, caller, "my_status_set", args)

			d.Status.Set(caller, AgentStatus{Task: task, State: state, Metadata: metadata})
			return mcp.NewToolResultText(toJSON(map[string]any{
				"status":   "updated",
				"task":     task,
				"state":    state,
				"metadata": metadata,
			})), nil
		},
	)
}

func registerTeamMembers(s *server.MCPServer, d Deps) {
	s.AddTool(
		mcp.NewTool("team_members",
			mcp.WithDescription("List the agents in this workflow, with an indicator for which one is you."),
			mcp.WithBoolean("includeStatus", mcp.Description("Include each agent's last-reported status (default: false)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			caller := callerAgent(ctx, d)
			args := req.GetArguments()
			includeStatus, _ := args["includeStatus"].(bool)

			d.logToolCall(ctx, caller, "team_members", args)

			names := append([]string(nil), d.Store.ValidAgents()...)
			sort.Strings(names)

			type member struct {
				Name   string       `json:"name"`
				Self   bool         `json:"self"`
				Status *AgentStatus `json:"status,omitempty"`
			}
			members := make([]member, 0, len(names))
			for _, name := range names {
				m := member{Name: name, Self: name == caller}
				if includeStatus {
					if st, ok := d.Status.Get(name); ok {
						m.Status = &st
					}
				}
				members = append(members, m)
			}

			resp := map[string]any{"agents": members, "count": len(members)}
			return mcp.NewToolResultText(toJSON(resp)), nil
		},
	)
}
