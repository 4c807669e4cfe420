// Package proposal implements the ephemeral, in-memory voting state
// behind the team_proposal_* MCP tools.
package proposal

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aaltonen/chanflow/internal/domain"
)

// Manager holds every active and resolved proposal for one workflow run.
// All mutations are serialized by a single lock.
type Manager struct {
	mu        sync.Mutex
	proposals map[string]*domain.Proposal
}

// New returns an empty Manager.
func New() *Manager {
	return &Manager{proposals: make(map[string]*domain.Proposal)}
}

// CreateParams are the inputs to Create.
type CreateParams struct {
	Type       domain.ProposalType
	Title      string
	Options    []string
	Creator    string
	Binding    bool
	Resolution domain.ProposalResolution
	Quorum     int
	TieBreaker string
	TTL        time.Duration
}

// Create starts a new proposal and returns it.
func (m *Manager) Create(p CreateParams) (*domain.Proposal, error) {
	if p.Title == "" {
		return nil, fmt.Errorf("proposal: title is required")
	}
	if len(p.Options) < 2 {
		return nil, fmt.Errorf("proposal: at least two options are required")
	}
	if p.Resolution == "" {
		p.Resolution = domain.ResolutionPlurality
	}
	if p.TieBreaker == "" {
		p.TieBreaker = "first"
	}

	prop := &domain.Proposal{
		ID:         uuid.NewString(),
		Type:       p.Type,
		Title:      p.Title,
		Options:    p.Options,
		Creator:    p.Creator,
		Binding:    p.Binding,
		Resolution: p.Resolution,
		Quorum:     p.Quorum,
		TieBreaker: p.TieBreaker,
		Status:     domain.ProposalActive,
		Votes:      make(map[string]string),
	}
	if p.TTL > 0 {
		prop.ExpiresAt = time.Now().Add(p.TTL)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.proposals[prop.ID] = prop
	return clone(prop), nil
}

// Vote records voter's choice. If the vote completes quorum/unanimity it
// resolves the proposal and returns the updated proposal plus true if it
// just transitioned to resolved (so the caller can post the announcement
// message exactly once).
func (m *Manager) Vote(id, voter, choice string) (*domain.Proposal, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.proposals[id]
	if !ok {
		return nil, false, fmt.Errorf("proposal: %s not found", id)
	}
	m.expireLocked(p)
	if p.Status != domain.ProposalActive {
		return nil, false, fmt.Errorf("proposal: %s is not active (status=%s)", id, p.Status)
	}
	if !containsString(p.Options, choice) {
		return nil, false, fmt.Errorf("proposal: %q is not a valid option", choice)
	}

	p.Votes[voter] = choice

	resolved := m.maybeResolveLocked(p)
	return clone(p), resolved, nil
}

// Status returns a snapshot of a proposal.
func (m *Manager) Status(id string) (*domain.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proposals[id]
	if !ok {
		return nil, fmt.Errorf("proposal: %s not found", id)
	}
	m.expireLocked(p)
	return clone(p), nil
}

// Cancel cancels a proposal. Only its creator may cancel it.
func (m *Manager) Cancel(id, by string) (*domain.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proposals[id]
	if !ok {
		return nil, fmt.Errorf("proposal: %s not found", id)
	}
	if p.Creator != by {
		return nil, fmt.Errorf("proposal: only %s may cancel %s", p.Creator, id)
	}
	if p.Status != domain.ProposalActive {
		return nil, fmt.Errorf("proposal: %s is not active (status=%s)", id, p.Status)
	}
	p.Status = domain.ProposalCancelled
	return clone(p), nil
}

// expireLocked marks p expired if its TTL has elapsed. Caller holds m.mu.
func (m *Manager) expireLocked(p *domain.Proposal) {
	if p.Status == domain.ProposalActive && !p.ExpiresAt.IsZero() && time.Now().After(p.ExpiresAt) {
		p.Status = domain.ProposalExpired
	}
}

// maybeResolveLocked checks whether the current vote tally satisfies
// p.Resolution and, if so, transitions p to resolved and fills Result.
// Caller holds m.mu.
func (m *Manager) maybeResolveLocked(p *domain.Proposal) bool {
	counts := tally(p.Votes, p.Options)
	total := len(p.Votes)

	if p.Quorum <= 0 || total < p.Quorum {
		return false
	}

	satisfied := false
	switch p.Resolution {
	case domain.ResolutionUnanimous:
		satisfied = total > 0 && len(counts) == 1
	case domain.ResolutionMajority:
		satisfied = total > 0 && maxCount(counts) > total/2
	case domain.ResolutionPlurality:
		satisfied = true
	}
	if !satisfied {
		return false
	}

	winner, tied := pickWinner(counts, p.Options, p.TieBreaker)
	p.Status = domain.ProposalResolved
	p.Result = &domain.ProposalResult{Winner: winner, Counts: counts, Tied: tied}
	return true
}

func tally(votes map[string]string, options []string) map[string]int {
	counts := make(map[string]int, len(options))
	for _, v := range votes {
		counts[v]++
	}
	return counts
}

func maxCount(counts map[string]int) int {
	max := 0
	for _, c := range counts {
		if c > max {
			max = c
		}
	}
	return max
}

// pickWinner returns the option with the most votes, breaking ties by
// the declared tieBreaker. "first" picks the first tied option in
// Options order; "none" reports a tie with no winner.
func pickWinner(counts map[string]int, options []string, tieBreaker string) (string, bool) {
	best := -1
	var winners []string
	for _, opt := range options {
		c := counts[opt]
		if c > best {
			best = c
			winners = []string{opt}
		} else if c == best && c > 0 {
			winners = append(winners, opt)
		}
	}
	if len(winners) == 0 {
		return "", false
	}
	if len(winners) == 1 {
		return winners[0], false
	}
	if tieBreaker == "none" {
		return "", true
	}
	return winners[0], true
}

func clone(p *domain.Proposal) *domain.Proposal {
	cp := *p
	cp.Options = append([]string(nil), p.Options...)
	cp.Votes = make(map[string]string, len(p.Votes))
	for k, v := range p.Votes {
		cp.Votes[k] = v
	}
	if p.Result != nil {
		r := *p.Result
		r.Counts = make(map[string]int, len(p.Result.Counts))
		for k, v := range p.Result.Counts {
			r.Counts[k] = v
		}
		cp.Result = &r
	}
	return &cp
}

func containsString(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}
