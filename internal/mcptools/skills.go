package mcptools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// registerSkillList and registerSkillSearch implement the skill_*
// family, additive to the main tool table. Only registered when
// Deps.Skills is non-nil.

func registerSkillList(s *server.MCPServer, d Deps) {
	s.AddTool(
		mcp.NewTool("skill_list",
			mcp.WithDescription("List the skills declared for this workflow."),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			caller := callerAgent(ctx, d)
			d.logToolCall(ctx, caller, "skill_list", nil)

			skills := d.Skills.List()
			return mcp.NewToolResultText(toJSON(map[string]any{"skills": skills, "count": len(skills)})), nil
		},
	)
}

func registerSkillSearch(s *server.MCPServer, d Deps) {
	s.AddTool(
		mcp.NewTool("skill_search",
			mcp.WithDescription("Full-text search across declared skills, team documents, and stored resources."),
			mcp.WithString("query", mcp.Required(), mcp.Description("Search terms")),
			mcp.WithString("category", mcp.Description("Restrict to skill, document, or resource")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 10)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			caller := callerAgent(ctx, d)
			args := req.GetArguments()
			query := stringArg(args, "query")
			category := stringArg(args, "category")
			limit := intArg(args, "limit")
			if query == "" {
				return errResult("query is required"), nil
			}

			d.logToolCall(ctx, caller, "skill_search", args)

			results, err := d.Skills.Search(query, category, limit)
			if err != nil {
				return errResult(err.Error()), nil
			}
			return mcp.NewToolResultText(toJSON(map[string]any{"results": results, "count": len(results)})), nil
		},
	)
}
