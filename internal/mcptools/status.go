package mcptools

import (
	"sync"
	"time"
)

// AgentStatus is the self-reported status an agent publishes through
// my_status_set. It has no channel-log representation: purely an
// in-memory presence view for team_members and the status surface.
type AgentStatus struct {
	Task      string         `json:"task,omitempty"`
	State     string         `json:"state,omitempty"` // "idle" | "running"
	Metadata  map[string]any `json:"metadata,omitempty"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// StatusRegistry holds the last self-reported status per agent.
type StatusRegistry struct {
	mu     sync.RWMutex
	status map[string]AgentStatus
}

// NewStatusRegistry returns an empty registry.
func NewStatusRegistry() *StatusRegistry {
	return &StatusRegistry{status: make(map[string]AgentStatus)}
}

// Set records agent's latest status.
func (r *StatusRegistry) Set(agent string, s AgentStatus) {
	s.UpdatedAt = time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status[agent] = s
}

// Get returns agent's last reported status, or ok=false if none yet.
func (r *StatusRegistry) Get(agent string) (AgentStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.status[agent]
	return s, ok
}

// All returns a snapshot of every agent's last reported status.
func (r *StatusRegistry) All() map[string]AgentStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]AgentStatus, len(r.status))
	for k, v := range r.status {
		out[k] = v
	}
	return out
}
