// Package transport hosts the MCP server on a single HTTP endpoint and
// maps each MCP session to the agent identity that opened it.
package transport

import (
	"sync"
	"time"
)

// SessionRegistry tracks connected MCP sessions and the agent identity
// each one carries. Keyed by the transport library's own session id;
// Token additionally carries an "<agent>-<8hex>" label used
// for display and logging.
type SessionRegistry struct {
	mu           sync.RWMutex
	agentOf      map[string]string    // libSessionID -> agent
	tokenOf      map[string]string    // libSessionID -> "<agent>-<8hex>"
	sessionOf    map[string]string    // agent -> libSessionID (reverse)
	lastActivity map[string]time.Time // libSessionID -> last activity
}

// NewSessionRegistry returns an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		agentOf:      make(map[string]string),
		tokenOf:      make(map[string]string),
		sessionOf:    make(map[string]string),
		lastActivity: make(map[string]time.Time),
	}
}

// Bind associates libSessionID with agent, generating its display token.
// Any previous session for the same agent is evicted: one live session
// per agent.
func (r *SessionRegistry) Bind(libSessionID, agent string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.sessionOf[agent]; ok && old != libSessionID {
		delete(r.agentOf, old)
		delete(r.tokenOf, old)
		delete(r.lastActivity, old)
	}

	token := SessionToken(agent)
	r.agentOf[libSessionID] = agent
	r.tokenOf[libSessionID] = token
	r.sessionOf[agent] = libSessionID
	r.lastActivity[libSessionID] = time.Now()
	return token
}

// Agent returns the agent bound to libSessionID, or "" if unknown.
func (r *SessionRegistry) Agent(libSessionID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.agentOf[libSessionID]
}

// SessionFor returns the session id bound to agent, or "" if none.
func (r *SessionRegistry) SessionFor(agent string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessionOf[agent]
}

// HasSession reports whether agent currently has a connected session.
func (r *SessionRegistry) HasSession(agent string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessionOf[agent]
	return ok
}

// ConnectedAgents lists every agent with an active session.
func (r *SessionRegistry) ConnectedAgents() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sessionOf))
	for a := range r.sessionOf {
		out = append(out, a)
	}
	return out
}

// Touch records activity for libSessionID.
func (r *SessionRegistry) Touch(libSessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agentOf[libSessionID]; ok {
		r.lastActivity[libSessionID] = time.Now()
	}
}

// LastActivity returns the last recorded activity for agent's session.
func (r *SessionRegistry) LastActivity(agent string) time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sid, ok := r.sessionOf[agent]
	if !ok {
		return time.Time{}
	}
	return r.lastActivity[sid]
}

// Remove unregisters libSessionID, e.g. on DELETE /mcp or disconnect.
func (r *SessionRegistry) Remove(libSessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	agent, ok := r.agentOf[libSessionID]
	if ok {
		delete(r.sessionOf, agent)
	}
	delete(r.agentOf, libSessionID)
	delete(r.tokenOf, libSessionID)
	delete(r.lastActivity, libSessionID)
}
