package mcptools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type inboxItem struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	Priority  string `json:"priority"`
}

func registerMyInbox(s *server.MCPServer, d Deps) {
	s.AddTool(
		mcp.NewTool("my_inbox",
			mcp.WithDescription("List messages addressed to or mentioning you that you haven't acknowledged yet."),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			caller := callerAgent(ctx, d)
			if caller == "" {
				return errResult("unknown calling agent (no session binding)"), nil
			}

			d.logToolCall(ctx, caller, "my_inbox", nil)

			entries, err := d.Store.GetInbox(ctx, caller)
			if err != nil {
				return errResult(err.Error()), nil
			}
			items := make([]inboxItem, 0, len(entries))
			for _, e := range entries {
				items = append(items, inboxItem{
					ID:        e.ID,
					From:      e.From,
					Content:   e.Content,
					Timestamp: e.Timestamp,
					Priority:  e.Priority,
				})
			}
			return mcp.NewToolResultText(toJSON(map[string]any{
				"messages": items,
				"count":    len(items),
			})), nil
		},
	)
}

func registerMyInboxAck(s *server.MCPServer, d Deps) {
	s.AddTool(
		mcp.NewTool("my_inbox_ack",
			mcp.WithDescription("Acknowledge your inbox up through a given message id, so it won't be shown again."),
			mcp.WithString("until", mcp.Required(), mcp.Description("The message id to acknowledge through")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			caller := callerAgent(ctx, d)
			if caller == "" {
				return errResult("unknown calling agent (no session binding)"), nil
			}
			args := req.GetArguments()
			until, _ := args["until"].(string)
			if until == "" {
				return errResult("until is required"), nil
			}

			d.logToolCall(ctx, caller, "my_inbox_ack", args)

			if err := d.Store.AckInbox(ctx, caller, until); err != nil {
				return errResult(err.Error()), nil
			}
			return mcp.NewToolResultText(fmt.Sprintf(`{"status":"acknowledged","until":%q}`, until)), nil
		},
	)
}
