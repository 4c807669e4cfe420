package mcptools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aaltonen/chanflow/internal/domain"
	"github.com/aaltonen/chanflow/internal/proposal"
	"github.com/aaltonen/chanflow/internal/store"
)

func registerTeamProposalCreate(s *server.MCPServer, d Deps) {
	s.AddTool(
		mcp.NewTool("team_proposal_create",
			mcp.WithDescription("Start a team vote: an election, decision, approval, or assignment among at least two named options."),
			mcp.WithString("type", mcp.Required(), mcp.Description("election, decision, approval, or assignment")),
			mcp.WithString("title", mcp.Required(), mcp.Description("What is being decided")),
			mcp.WithArray("options", mcp.Required(), mcp.Description("At least two option strings to choose between")),
			mcp.WithBoolean("binding", mcp.Description("Whether the result should be treated as authoritative (default: false)")),
			mcp.WithString("resolution", mcp.Description("plurality (default), majority, or unanimous")),
			mcp.WithNumber("quorum", mcp.Description("Minimum number of votes required before resolving")),
			mcp.WithString("tieBreaker", mcp.Description("first (default) or none")),
			mcp.WithNumber("ttlSeconds", mcp.Description("Optional expiry, in seconds from now")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			caller := callerAgent(ctx, d)
			args := req.GetArguments()
			options := toStringSlice(args["options"])

			quorum := intArg(args, "quorum")
			if quorum <= 0 {
				// Undeclared quorum defaults to the full team: a
				// proposal with a quorum of 0 never resolves by
				// votes at all, only by expiry or cancellation.
				quorum = len(d.Store.ValidAgents())
			}

			p, err := d.Proposal.Create(proposal.CreateParams{
				Type:       domain.ProposalType(stringArg(args, "type")),
				Title:      stringArg(args, "title"),
				Options:    options,
				Creator:    caller,
				Binding:    boolArg(args, "binding"),
				Resolution: domain.ProposalResolution(stringArg(args, "resolution")),
				Quorum:     quorum,
				TieBreaker: stringArg(args, "tieBreaker"),
				TTL:        time.Duration(intArg(args, "ttlSeconds")) * time.Second,
			})
			if err != nil {
				return errResult(err.Error()), nil
			}

			d.logToolCall(ctx, caller, "team_proposal_create", args)

			d.postProposalMessage(ctx, caller, fmt.Sprintf(
				"started proposal %s (%s): %q — options: %s", p.ID, p.Type, p.Title, strings.Join(p.Options, ", "),
			), "")

			return mcp.NewToolResultText(toJSON(p)), nil
		},
	)
}

func registerTeamProposalVote(s *server.MCPServer, d Deps) {
	s.AddTool(
		mcp.NewTool("team_proposal_vote",
			mcp.WithDescription("Cast your vote on an active proposal."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Proposal id")),
			mcp.WithString("choice", mcp.Required(), mcp.Description("One of the proposal's declared options")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			caller := callerAgent(ctx, d)
			args := req.GetArguments()
			id := stringArg(args, "id")
			choice := stringArg(args, "choice")
			if caller == "" {
				return errResult("unknown calling agent (no session binding)"), nil
			}

			p, resolved, err := d.Proposal.Vote(id, caller, choice)
			if err != nil {
				return errResult(err.Error()), nil
			}

			d.logToolCall(ctx, caller, "team_proposal_vote", args)

			if resolved && p.Result != nil {
				voters := make([]string, 0, len(p.Votes))
				for v := range p.Votes {
					voters = append(voters, v)
				}
				mention := ""
				for _, v := range voters {
					mention += "@" + v + " "
				}
				outcome := p.Result.Winner
				if outcome == "" {
					outcome = "no winner (tie)"
				}
				d.postProposalMessage(ctx, "system", fmt.Sprintf(
					"%sproposal %s (%q) resolved: %s", mention, p.ID, p.Title, outcome,
				), "")
			}

			return mcp.NewToolResultText(toJSON(p)), nil
		},
	)
}

func registerTeamProposalStatus(s *server.MCPServer, d Deps) {
	s.AddTool(
		mcp.NewTool("team_proposal_status",
			mcp.WithDescription("Get a proposal's current tally and status."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Proposal id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			caller := callerAgent(ctx, d)
			args := req.GetArguments()
			id := stringArg(args, "id")

			d.logToolCall(ctx, caller, "team_proposal_status", args)

			p, err := d.Proposal.Status(id)
			if err != nil {
				return errResult(err.Error()), nil
			}
			return mcp.NewToolResultText(toJSON(p)), nil
		},
	)
}

func registerTeamProposalCancel(s *server.MCPServer, d Deps) {
	s.AddTool(
		mcp.NewTool("team_proposal_cancel",
			mcp.WithDescription("Cancel a proposal you created."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Proposal id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			caller := callerAgent(ctx, d)
			args := req.GetArguments()
			id := stringArg(args, "id")

			p, err := d.Proposal.Cancel(id, caller)
			if err != nil {
				return errResult(err.Error()), nil
			}

			d.logToolCall(ctx, caller, "team_proposal_cancel", args)

			d.postProposalMessage(ctx, caller, fmt.Sprintf("cancelled proposal %s (%q)", p.ID, p.Title), "")
			return mcp.NewToolResultText(toJSON(p)), nil
		},
	)
}

// postProposalMessage records a proposal lifecycle event on the channel
// so every agent sees it without polling team_proposal_status.
func (d Deps) postProposalMessage(ctx context.Context, from, content, to string) {
	if _, err := d.Store.AppendMessage(ctx, from, content, store.AppendOptions{To: to}); err != nil && d.Logger != nil {
		d.Logger.Printf("mcptools: post proposal message: %v", err)
	}
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func boolArg(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}

func intArg(args map[string]any, key string) int {
	if v, ok := args[key].(float64); ok {
		return int(v)
	}
	return 0
}

func toStringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
