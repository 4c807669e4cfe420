package mcptools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func registerChannelSend(s *server.MCPServer, d Deps) {
	s.AddTool(
		mcp.NewTool("channel_send",
			mcp.WithDescription("Post a message to the shared channel. Mention another agent with @name to get their attention; they will be woken to process your message."),
			mcp.WithString("message", mcp.Required(), mcp.Description("The message content to post")),
			mcp.WithString("to", mcp.Description("Optional direct-message recipient agent name")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			caller := callerAgent(ctx, d)
			if caller == "" {
				return errResult("unknown calling agent (no session binding)"), nil
			}
			args := req.GetArguments()
			message, _ := args["message"].(string)
			to, _ := args["to"].(string)
			if message == "" {
				return errResult("message is required"), nil
			}
			if to != "" && !validTarget(d, to) {
				return errResult(fmt.Sprintf("%q is not a known agent", to)), nil
			}

			d.logToolCall(ctx, caller, "channel_send", args)

			res, err := d.Store.SmartSend(ctx, caller, message, to)
			if err != nil {
				return errResult(err.Error()), nil
			}

			woken := make(map[string]bool)
			if d.Mention != nil {
				for _, target := range res.Message.Mentions {
					if woken[target] {
						continue
					}
					woken[target] = true
					d.Mention(caller, target, res.Message)
				}
				if to != "" && !woken[to] {
					d.Mention(caller, to, res.Message)
				}
			}

			return mcp.NewToolResultText(toJSON(map[string]any{
				"status":    "sent",
				"timestamp": res.Message.Timestamp,
				"mentions":  res.Message.Mentions,
				"to":        to,
			})), nil
		},
	)
}

func registerChannelRead(s *server.MCPServer, d Deps) {
	s.AddTool(
		mcp.NewTool("channel_read",
			mcp.WithDescription("Read the shared channel's message history, filtered to what you're allowed to see."),
			mcp.WithString("since", mcp.Description("ISO timestamp; only return entries strictly after this time")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of entries to return")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			caller := callerAgent(ctx, d)
			args := req.GetArguments()
			since, _ := args["since"].(string)
			limit := 0
			if v, ok := args["limit"].(float64); ok {
				limit = int(v)
			}

			d.logToolCall(ctx, caller, "channel_read", args)

			msgs, err := d.Store.ReadChannel(ctx, storeReadOptions(since, limit, caller))
			if err != nil {
				return errResult(err.Error()), nil
			}
			return mcp.NewToolResultText(toJSON(msgs)), nil
		},
	)
}

func validTarget(d Deps, name string) bool {
	for _, a := range d.Store.ValidAgents() {
		if a == name {
			return true
		}
	}
	return name == "all"
}
