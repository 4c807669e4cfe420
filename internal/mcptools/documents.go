package mcptools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// checkOwner enforces document ownership: writes from an agent other
// than a document's declared owner are refused at the tool-surface
// layer.
func checkOwner(ctx context.Context, d Deps, caller, path string) error {
	owner, err := d.Store.DocumentOwner(ctx, path)
	if err != nil {
		return err
	}
	if owner != "" && owner != caller {
		return fmt.Errorf("document %s is owned by %s", path, owner)
	}
	return nil
}

func registerTeamDocRead(s *server.MCPServer, d Deps) {
	s.AddTool(
		mcp.NewTool("team_doc_read",
			mcp.WithDescription("Read a shared team document."),
			mcp.WithString("file", mcp.Required(), mcp.Description("Document path, e.g. 'plan.md'")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			caller := callerAgent(ctx, d)
			args := req.GetArguments()
			file, _ := args["file"].(string)
			if file == "" {
				return errResult("file is required"), nil
			}

			d.logToolCall(ctx, caller, "team_doc_read", args)

			content, ok, err := d.Store.ReadDocument(ctx, file)
			if err != nil {
				return errResult(err.Error()), nil
			}
			if !ok {
				return errResult(fmt.Sprintf("document %s not found", file)), nil
			}
			return mcp.NewToolResultText(content), nil
		},
	)
}

func registerTeamDocWrite(s *server.MCPServer, d Deps) {
	s.AddTool(
		mcp.NewTool("team_doc_write",
			mcp.WithDescription("Overwrite a shared team document's content."),
			mcp.WithString("file", mcp.Required(), mcp.Description("Document path, e.g. 'plan.md'")),
			mcp.WithString("content", mcp.Required(), mcp.Description("New document content")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			caller := callerAgent(ctx, d)
			args := req.GetArguments()
			file, _ := args["file"].(string)
			content, _ := args["content"].(string)
			if file == "" {
				return errResult("file is required"), nil
			}
			if err := checkOwner(ctx, d, caller, file); err != nil {
				return errResult(err.Error()), nil
			}

			d.logToolCall(ctx, caller, "team_doc_write", args)

			if err := d.Store.WriteDocument(ctx, file, content); err != nil {
				return errResult(err.Error()), nil
			}
			return mcp.NewToolResultText(fmt.Sprintf(`{"status":"written","file":%q}`, file)), nil
		},
	)
}

func registerTeamDocAppend(s *server.MCPServer, d Deps) {
	s.AddTool(
		mcp.NewTool("team_doc_append",
			mcp.WithDescription("Append content to a shared team document, creating it if absent."),
			mcp.WithString("file", mcp.Required(), mcp.Description("Document path, e.g. 'plan.md'")),
			mcp.WithString("content", mcp.Required(), mcp.Description("Content to append")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			caller := callerAgent(ctx, d)
			args := req.GetArguments()
			file, _ := args["file"].(string)
			content, _ := args["content"].(string)
			if file == "" {
				return errResult("file is required"), nil
			}
			if err := checkOwner(ctx, d, caller, file); err != nil {
				return errResult(err.Error()), nil
			}

			d.logToolCall(ctx, caller, "team_doc_append", args)

			if err := d.Store.AppendDocument(ctx, file, content); err != nil {
				return errResult(err.Error()), nil
			}
			return mcp.NewToolResultText(fmt.Sprintf(`{"status":"appended","file":%q}`, file)), nil
		},
	)
}

func registerTeamDocList(s *server.MCPServer, d Deps) {
	s.AddTool(
		mcp.NewTool("team_doc_list",
			mcp.WithDescription("List every shared team document path."),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			caller := callerAgent(ctx, d)
			d.logToolCall(ctx, caller, "team_doc_list", nil)

			paths, err := d.Store.ListDocuments(ctx)
			if err != nil {
				return errResult(err.Error()), nil
			}
			return mcp.NewToolResultText(toJSON(map[string]any{"files": paths, "count": len(paths)})), nil
		},
	)
}

func registerTeamDocCreate(s *server.MCPServer, d Deps) {
	s.AddTool(
		mcp.NewTool("team_doc_create",
			mcp.WithDescription("Create a new shared team document. Fails if one already exists at this path."),
			mcp.WithString("file", mcp.Required(), mcp.Description("Document path, e.g. 'plan.md'")),
			mcp.WithString("content", mcp.Description("Initial document content")),
			mcp.WithString("owner", mcp.Description("Restrict future writes to this agent")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			caller := callerAgent(ctx, d)
			args := req.GetArguments()
			file, _ := args["file"].(string)
			content, _ := args["content"].(string)
			owner, _ := args["owner"].(string)
			if file == "" {
				return errResult("file is required"), nil
			}

			d.logToolCall(ctx, caller, "team_doc_create", args)

			if err := d.Store.CreateDocument(ctx, file, content); err != nil {
				return errResult(err.Error()), nil
			}
			if owner != "" {
				if err := d.Store.SetDocumentOwner(ctx, file, owner); err != nil {
					return errResult(err.Error()), nil
				}
			}
			return mcp.NewToolResultText(fmt.Sprintf(`{"status":"created","file":%q}`, file)), nil
		},
	)
}
