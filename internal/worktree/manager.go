package worktree

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aaltonen/chanflow/internal/workflow"
)

// worktreeRoot is where per-agent checkouts live, relative to the
// shared workspace.
const worktreeRoot = ".chanflow/worktrees"

// WorktreeInfo describes one managed per-agent checkout.
type WorktreeInfo struct {
	AgentName  string    `json:"agent_name"`
	Path       string    `json:"path"`
	Branch     string    `json:"branch"`
	BaseBranch string    `json:"base_branch"`
	CreatedAt  time.Time `json:"created_at"`
}

// Manager hands each agent controller its own git checkout when the
// workflow sets workspace.isolate to "git", and tears the checkouts
// down again when the controllers stop.
type Manager struct {
	config *workflow.WorkspaceConfig
	logger *log.Logger

	mu     sync.Mutex
	active map[string]*WorktreeInfo // agent name -> checkout
}

// NewManager returns a Manager for config. A nil config disables
// isolation entirely.
func NewManager(config *workflow.WorkspaceConfig, logger *log.Logger) *Manager {
	return &Manager{
		config: config,
		logger: logger,
		active: make(map[string]*WorktreeInfo),
	}
}

// IsEnabled reports whether git worktree isolation is configured.
func (m *Manager) IsEnabled() bool {
	return m.config != nil && m.config.Isolate == "git"
}

// EnsureWorktree returns the path of agentName's checkout. The first
// call provisions it; later calls hand back the same path as long as
// the directory still exists. An error means "this workspace can't be
// isolated" and callers fall back to the shared directory.
func (m *Manager) EnsureWorktree(agentName, workspaceDir string) (string, error) {
	if !m.IsEnabled() {
		return "", fmt.Errorf("worktree isolation is not enabled")
	}
	if !isGitRepo(workspaceDir) {
		return "", fmt.Errorf("%s is not inside a git repository", workspaceDir)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if info, ok := m.active[agentName]; ok {
		if fileExists(info.Path) {
			return info.Path, nil
		}
		// Someone deleted the checkout behind our back; provision anew.
		delete(m.active, agentName)
	}

	info, err := m.provision(agentName, workspaceDir)
	if err != nil {
		return "", err
	}
	m.active[agentName] = info
	return info.Path, nil
}

// provision creates the branch, checkout directory, and dependency
// install for one agent. Caller holds m.mu.
func (m *Manager) provision(agentName, workspaceDir string) (*WorktreeInfo, error) {
	base, err := m.resolveBase(workspaceDir)
	if err != nil {
		return nil, err
	}

	branch := "agent/" + agentName
	path := filepath.Join(workspaceDir, filepath.FromSlash(worktreeRoot), agentName)

	// A crashed earlier run can leave the agent branch behind, which
	// would make worktree add refuse; clear it first.
	if branchExists(workspaceDir, branch) {
		_ = worktreePrune(workspaceDir)
		if err := branchDelete(workspaceDir, branch); err != nil {
			m.logger.Printf("worktree: stale branch %s would not delete: %v", branch, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("prepare %s: %w", filepath.Dir(path), err)
	}
	if err := worktreeAdd(workspaceDir, path, branch, base); err != nil {
		return nil, fmt.Errorf("checkout for %s: %w", agentName, err)
	}

	if cmds := detectSetupCommands(path); len(cmds) > 0 {
		m.logger.Printf("worktree: installing dependencies in %s: %v", path, cmds)
		for _, err := range runSetupCommands(path, cmds) {
			m.logger.Printf("worktree: install step failed (continuing): %v", err)
		}
	}

	m.logger.Printf("worktree: %s gets %s (branch %s from %s)", agentName, path, branch, base)
	return &WorktreeInfo{
		AgentName:  agentName,
		Path:       path,
		Branch:     branch,
		BaseBranch: base,
		CreatedAt:  time.Now(),
	}, nil
}

// resolveBase picks the branch new agent branches fork from: the
// configured base_branch, else whatever the workspace has checked out.
func (m *Manager) resolveBase(workspaceDir string) (string, error) {
	if m.config.BaseBranch != "" {
		return m.config.BaseBranch, nil
	}
	head, err := currentBranch(workspaceDir)
	if err != nil {
		return "", err
	}
	if head == "HEAD" {
		return "", fmt.Errorf("no usable base branch: workspace HEAD is detached (set workspace.base_branch)")
	}
	return head, nil
}

// CleanupWorktree removes agentName's checkout and branch, if managed.
func (m *Manager) CleanupWorktree(agentName, workspaceDir string) error {
	m.mu.Lock()
	info, ok := m.active[agentName]
	delete(m.active, agentName)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return m.teardown(info, workspaceDir)
}

// CleanupAll removes every managed checkout, attempting all of them and
// returning the first error encountered.
func (m *Manager) CleanupAll(workspaceDir string) error {
	m.mu.Lock()
	active := m.active
	m.active = make(map[string]*WorktreeInfo)
	m.mu.Unlock()

	var firstErr error
	for _, info := range active {
		if err := m.teardown(info, workspaceDir); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// WorktreePath returns agentName's checkout path, or "" if none is
// active.
func (m *Manager) WorktreePath(agentName string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if info, ok := m.active[agentName]; ok {
		return info.Path
	}
	return ""
}

// ListWorktrees snapshots every active checkout.
func (m *Manager) ListWorktrees() map[string]WorktreeInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]WorktreeInfo, len(m.active))
	for k, v := range m.active {
		out[k] = *v
	}
	return out
}

// teardown drops one checkout: the worktree first (git refuses to
// delete a branch that is still checked out somewhere), then its
// administrative record, then the branch.
func (m *Manager) teardown(info *WorktreeInfo, workspaceDir string) error {
	if err := worktreeRemove(workspaceDir, info.Path, true); err != nil {
		// git considers some stray state precious; a plain directory
		// removal plus prune gets the same end state.
		m.logger.Printf("worktree: git refused to remove %s, deleting directly: %v", info.Path, err)
		if rmErr := os.RemoveAll(info.Path); rmErr != nil {
			return fmt.Errorf("checkout %s would not delete: %w", info.Path, rmErr)
		}
	}
	_ = worktreePrune(workspaceDir)

	if branchExists(workspaceDir, info.Branch) {
		if err := branchDelete(workspaceDir, info.Branch); err != nil {
			m.logger.Printf("worktree: branch %s left behind: %v", info.Branch, err)
		}
	}
	m.logger.Printf("worktree: removed %s's checkout", info.AgentName)
	return nil
}
