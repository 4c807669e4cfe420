package scheduler

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aaltonen/chanflow/internal/backend"
	"github.com/aaltonen/chanflow/internal/controller"
	"github.com/aaltonen/chanflow/internal/workflow"
)

// bootControllers constructs one Controller per declared agent and
// fans their run loops out on an errgroup, so shutdown can join every
// loop before the scheduler returns. Worktree isolation, when
// configured, is set up before the backend is bound so the agent's
// first prompt already runs against its own checkout.
func (sch *Scheduler) bootControllers(ctx context.Context) {
	sch.controllersMu.Lock()
	defer sch.controllersMu.Unlock()

	sch.controllerGroup = new(errgroup.Group)

	for _, a := range sch.cfg.Agents {
		projectDir := a.ProjectDir
		if sch.worktrees.IsEnabled() && projectDir != "" {
			if wt, err := sch.worktrees.EnsureWorktree(a.Name, projectDir); err == nil {
				projectDir = wt
			} else {
				sch.logger.Printf("scheduler: worktree for %s unavailable, using shared workspace: %v", a.Name, err)
			}
		}

		b := sch.buildBackend(a)
		mcpURL := fmt.Sprintf("%s/mcp?agent=%s", sch.mcpBaseURL(), a.Name)
		if binder, ok := b.(backend.WorkspaceBinder); ok {
			if err := binder.SetWorkspace(projectDir, backend.MCPConfig{URL: mcpURL, Agent: a.Name}); err != nil {
				sch.logger.Printf("scheduler: set workspace for %s: %v", a.Name, err)
			}
		}

		decl := controller.Declaration{
			Name:              a.Name,
			Backend:           b,
			SystemPrompt:      a.SystemPrompt,
			WorkspaceDir:      projectDir,
			ProjectDir:        projectDir,
			MCPURL:            mcpURL,
			PollInterval:      durationOrDefault(a.PollIntervalMs, 500*time.Millisecond),
			MaxAttempts:       a.MaxAttempts,
			BackoffBase:       durationOrDefault(a.BackoffBaseMs, time.Second),
			BackoffMultiplier: a.BackoffMultiplier,
			BackoffMax:        durationOrDefault(a.BackoffMaxMs, 30*time.Second),
			WorkflowName:      sch.cfg.Name,
		}

		c := controller.New(decl, sch.store, sch.events, sch.logger)
		sch.controllers[a.Name] = c
		sch.controllerGroup.Go(func() error {
			c.Run(ctx)
			return nil
		})
	}
}

func (sch *Scheduler) buildBackend(a workflow.AgentConfig) backend.Backend {
	switch a.Backend {
	case "mock":
		return &backend.Mock{}
	default:
		timeout := durationOrDefault(a.TimeoutSeconds*1000, 5*time.Minute)
		env := make([]string, 0, len(a.Env))
		for k, v := range a.Env {
			env = append(env, k+"="+v)
		}
		return backend.NewSubprocess(a.Name, a.Command, env, timeout, sch.logger)
	}
}

func durationOrDefault(ms int, def time.Duration) time.Duration {
	if ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

// stopControllers stops every controller, joins their run-loop
// goroutines, and, if workspace isolation is enabled, tears down each
// worktree.
func (sch *Scheduler) stopControllers() {
	sch.controllersMu.RLock()
	controllers := make([]*controller.Controller, 0, len(sch.controllers))
	for _, c := range sch.controllers {
		controllers = append(controllers, c)
	}
	group := sch.controllerGroup
	sch.controllersMu.RUnlock()

	for _, c := range controllers {
		c.Stop()
	}
	if group != nil {
		_ = group.Wait()
	}

	if sch.worktrees.IsEnabled() {
		for _, a := range sch.cfg.Agents {
			if a.ProjectDir == "" {
				continue
			}
			if err := sch.worktrees.CleanupWorktree(a.Name, a.ProjectDir); err != nil {
				sch.logger.Printf("scheduler: cleanup worktree for %s: %v", a.Name, err)
			}
		}
	}
}
