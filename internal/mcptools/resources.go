package mcptools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func registerResourceCreate(s *server.MCPServer, d Deps) {
	s.AddTool(
		mcp.NewTool("resource_create",
			mcp.WithDescription("Store content as a resource, returning an id you can reference in channel messages (resource:<id>)."),
			mcp.WithString("content", mcp.Required(), mcp.Description("The content to store")),
			mcp.WithString("type", mcp.Description("Content type hint: text, markdown, json, or diff")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			caller := callerAgent(ctx, d)
			args := req.GetArguments()
			content, _ := args["content"].(string)
			typ, _ := args["type"].(string)
			if content == "" {
				return errResult("content is required"), nil
			}
			if typ == "" {
				typ = "text"
			}

			d.logToolCall(ctx, caller, "resource_create", args)

			res, err := d.Store.CreateResource(ctx, content, typ)
			if err != nil {
				return errResult(err.Error()), nil
			}
			return mcp.NewToolResultText(fmt.Sprintf(
				`{"id":%q,"ref":%q,"hint":"resource_read(%q)"}`, res.ID, res.Ref(), res.ID,
			)), nil
		},
	)
}

func registerResourceRead(s *server.MCPServer, d Deps) {
	s.AddTool(
		mcp.NewTool("resource_read",
			mcp.WithDescription("Read a previously stored resource by id."),
			mcp.WithString("id", mcp.Required(), mcp.Description("The resource id (from a resource:<id> reference)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			caller := callerAgent(ctx, d)
			args := req.GetArguments()
			id, _ := args["id"].(string)
			if id == "" {
				return errResult("id is required"), nil
			}

			d.logToolCall(ctx, caller, "resource_read", args)

			res, ok, err := d.Store.ReadResource(ctx, id)
			if err != nil {
				return errResult(err.Error()), nil
			}
			if !ok {
				return errResult(fmt.Sprintf("resource %s not found", id)), nil
			}
			return mcp.NewToolResultText(res.Content), nil
		},
	)
}
