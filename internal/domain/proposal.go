package domain

import "time"

// ProposalType enumerates the kinds of proposal a workflow may create.
type ProposalType string

const (
	ProposalElection   ProposalType = "election"
	ProposalDecision   ProposalType = "decision"
	ProposalApproval   ProposalType = "approval"
	ProposalAssignment ProposalType = "assignment"
)

// ProposalResolution is the voting rule used to decide a winner.
type ProposalResolution string

const (
	ResolutionPlurality ProposalResolution = "plurality"
	ResolutionMajority  ProposalResolution = "majority"
	ResolutionUnanimous ProposalResolution = "unanimous"
)

// ProposalStatus is the lifecycle state of a Proposal.
type ProposalStatus string

const (
	ProposalActive    ProposalStatus = "active"
	ProposalResolved  ProposalStatus = "resolved"
	ProposalCancelled ProposalStatus = "cancelled"
	ProposalExpired   ProposalStatus = "expired"
)

// ProposalResult summarizes the outcome of a resolved proposal.
type ProposalResult struct {
	Winner string         `json:"winner,omitempty"`
	Counts map[string]int `json:"counts,omitempty"`
	Tied   bool           `json:"tied,omitempty"`
}

// Proposal is an ephemeral, in-memory voting record. It is
// never persisted to the channel log directly; only summary/result
// messages derived from it are.
type Proposal struct {
	ID         string             `json:"id"`
	Type       ProposalType       `json:"type"`
	Title      string             `json:"title"`
	Options    []string           `json:"options"`
	Creator    string             `json:"creator"`
	Binding    bool               `json:"binding"`
	Resolution ProposalResolution `json:"resolution"`
	Quorum     int                `json:"quorum,omitempty"`
	TieBreaker string             `json:"tieBreaker,omitempty"` // "first" or "none"
	ExpiresAt  time.Time          `json:"expiresAt,omitempty"`
	Status     ProposalStatus     `json:"status"`
	Votes      map[string]string  `json:"votes"`
	Result     *ProposalResult    `json:"result,omitempty"`
}
