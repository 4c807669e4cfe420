// Package scheduler implements the outer workflow loop: it resolves
// storage, runs setup tasks, posts the kickoff message, boots one
// controller per agent, wires mention fan-out, watches for global idle,
// and tears everything down.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	"github.com/aaltonen/chanflow/internal/controller"
	"github.com/aaltonen/chanflow/internal/eventlog"
	"github.com/aaltonen/chanflow/internal/mcptools"
	"github.com/aaltonen/chanflow/internal/proposal"
	"github.com/aaltonen/chanflow/internal/skill"
	"github.com/aaltonen/chanflow/internal/storage"
	"github.com/aaltonen/chanflow/internal/storage/disk"
	"github.com/aaltonen/chanflow/internal/storage/memory"
	"github.com/aaltonen/chanflow/internal/store"
	"github.com/aaltonen/chanflow/internal/transport"
	"github.com/aaltonen/chanflow/internal/workflow"
	"github.com/aaltonen/chanflow/internal/worktree"
)

// Scheduler runs one workflow end to end.
type Scheduler struct {
	cfg    *workflow.Config
	logger *log.Logger

	backend storage.Backend
	store   *store.Store
	prop    *proposal.Manager
	events  *eventlog.Log
	skills  *skill.Index

	mcpServer *server.MCPServer
	transport *transport.Server
	httpSrv   *http.Server
	listener  net.Listener

	worktrees *worktree.Manager

	controllersMu   sync.RWMutex
	controllers     map[string]*controller.Controller
	controllerGroup *errgroup.Group
	statuses        *mcptools.StatusRegistry

	setupVars map[string]string
	ephemeral bool
}

// New constructs a Scheduler for cfg. It does not start anything yet.
func New(cfg *workflow.Config, logger *log.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[chanflow] ", log.LstdFlags)
	}

	sch := &Scheduler{
		cfg:         cfg,
		logger:      logger,
		controllers: make(map[string]*controller.Controller),
		statuses:    mcptools.NewStatusRegistry(),
	}

	var backendImpl storage.Backend
	sch.ephemeral = cfg.ContextDir == ""
	if cfg.ContextDir != "" {
		diskBackend, err := disk.New(cfg.ContextDir)
		if err != nil {
			return nil, fmt.Errorf("scheduler: open context dir %s: %w", cfg.ContextDir, err)
		}
		backendImpl = diskBackend
	} else {
		backendImpl = memory.New()
	}
	sch.backend = backendImpl

	sch.store = store.New(backendImpl, logger, cfg.ValidAgentNames(), store.WithMessageThreshold(threshold(cfg)), store.WithEphemeral(sch.ephemeral))
	sch.prop = proposal.New()
	sch.events = eventlog.New(sch.store, logger)
	sch.worktrees = worktree.NewManager(&cfg.Workspace, logger)

	if len(cfg.Skills) > 0 {
		dbPath := filepath.Join(os.TempDir(), "chanflow-skills", safeName(cfg.Name)+".db")
		if cfg.ContextDir != "" {
			dbPath = filepath.Join(cfg.ContextDir, "_state", "skills.db")
		}
		idx, err := skill.Open(dbPath)
		if err != nil {
			logger.Printf("scheduler: skill index disabled: %v", err)
		} else {
			sch.skills = idx
		}
	}

	return sch, nil
}

func threshold(cfg *workflow.Config) int {
	if cfg.MessageThreshold > 0 {
		return cfg.MessageThreshold
	}
	return store.DefaultMessageThreshold
}

func safeName(name string) string {
	if name == "" {
		return "workflow"
	}
	return strings.ReplaceAll(name, "/", "_")
}

// Run executes the whole workflow lifecycle and blocks until the
// workflow reaches quiescence, every agent fails, or ctx is cancelled.
func (sch *Scheduler) Run(ctx context.Context) error {
	if err := sch.runSetupTasks(ctx); err != nil {
		return fmt.Errorf("scheduler: setup: %w", err)
	}

	if err := sch.startMCPServer(); err != nil {
		return fmt.Errorf("scheduler: start mcp server: %w", err)
	}
	defer sch.stopMCPServer(context.Background())

	if sch.skills != nil {
		indexer := skill.NewIndexer(sch.skills, sch.store, 10*time.Second, sch.logger)
		indexer.SeedSkills(sch.cfg.Skills)
		if w, ok := sch.backend.(storage.Watcher); ok {
			if trigger, cancel, err := w.Watch("documents"); err == nil {
				indexer.WithTrigger(trigger)
				defer cancel()
			} else {
				sch.logger.Printf("scheduler: skill index watch disabled: %v", err)
			}
		}
		go indexer.Run(ctx)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sch.bootControllers(runCtx)
	defer sch.stopControllers()

	if err := sch.kickoff(runCtx); err != nil {
		sch.logger.Printf("scheduler: kickoff: %v", err)
	}

	return sch.watchUntilDone(runCtx)
}

// runSetupTasks executes cfg.Setup sequentially,
// capturing each command's trimmed stdout as a variable available to
// later setup commands and to the kickoff template.
func (sch *Scheduler) runSetupTasks(ctx context.Context) error {
	vars := make(map[string]string)
	for i, raw := range sch.cfg.Setup {
		cmdline := workflow.Interpolate(raw, vars)
		sch.logger.Printf("scheduler: setup[%d]: %s", i, cmdline)

		cmd := exec.CommandContext(ctx, "sh", "-c", cmdline)
		cmd.Dir = sch.projectDir()
		out, err := cmd.CombinedOutput()
		trimmed := strings.TrimSpace(string(out))
		if err != nil {
			return fmt.Errorf("setup command %d (%s): %w: %s", i, cmdline, err, trimmed)
		}
		vars[fmt.Sprintf("setup%d", i)] = trimmed
		sch.events.System(ctx, "scheduler", fmt.Sprintf("setup[%d] ok: %s", i, cmdline))
	}
	sch.setupVars = vars
	return nil
}

func (sch *Scheduler) projectDir() string {
	for _, a := range sch.cfg.Agents {
		if a.ProjectDir != "" {
			return a.ProjectDir
		}
	}
	wd, _ := os.Getwd()
	return wd
}
