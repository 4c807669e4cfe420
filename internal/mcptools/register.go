// Package mcptools registers the MCP tool surface: channel_send,
// channel_read, resource_create/read, my_inbox, my_inbox_ack,
// my_status_set, team_members, team_doc_*, and team_proposal_* —
// delegating every tool body to internal/store and internal/proposal.
// One exported Register wires the fixed tool list into a
// *server.MCPServer; the skill_* pair is registered only when an index
// is configured.
package mcptools

import (
	"context"
	"log"

	"github.com/mark3labs/mcp-go/server"

	"github.com/aaltonen/chanflow/internal/domain"
	"github.com/aaltonen/chanflow/internal/eventlog"
	"github.com/aaltonen/chanflow/internal/proposal"
	"github.com/aaltonen/chanflow/internal/skill"
	"github.com/aaltonen/chanflow/internal/store"
	"github.com/aaltonen/chanflow/internal/transport"
)

// OnMention is invoked once per newly-mentioned target whenever
// channel_send posts a message, so the scheduler can wake the
// corresponding controller.
type OnMention func(from, target string, msg domain.Message)

// Deps bundles every collaborator a tool handler may need. All fields
// except Skills are required.
type Deps struct {
	Store    *store.Store
	Proposal *proposal.Manager
	Events   *eventlog.Log
	Registry *transport.SessionRegistry
	Status   *StatusRegistry
	Logger   *log.Logger
	Mention  OnMention
	Skills   *skill.Index // optional; nil disables skill_list/skill_search
}

// Register wires every MCP tool onto s.
func Register(s *server.MCPServer, d Deps) {
	registerChannelSend(s, d)
	registerChannelRead(s, d)
	registerResourceCreate(s, d)
	registerResourceRead(s, d)
	registerMyInbox(s, d)
	registerMyInboxAck(s, d)
	registerMyStatusSet(s, d)
	registerTeamMembers(s, d)

	registerTeamDocRead(s, d)
	registerTeamDocWrite(s, d)
	registerTeamDocAppend(s, d)
	registerTeamDocList(s, d)
	registerTeamDocCreate(s, d)

	registerTeamProposalCreate(s, d)
	registerTeamProposalVote(s, d)
	registerTeamProposalStatus(s, d)
	registerTeamProposalCancel(s, d)

	if d.Skills != nil {
		registerSkillList(s, d)
		registerSkillSearch(s, d)
	}
}

// callerAgent recovers the identity bound to ctx's MCP session.
func callerAgent(ctx context.Context, d Deps) string {
	return transport.AgentFromContext(ctx, d.Registry)
}

func (d Deps) logToolCall(ctx context.Context, agent, name string, args map[string]any) {
	if d.Events != nil {
		d.Events.ToolCall(ctx, agent, name, args, "mcp")
	}
}
