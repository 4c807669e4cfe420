// chanflow runs a declarative multi-agent workflow: it loads a YAML
// workflow definition, starts the MCP server every agent talks to, boots
// one controller per agent, and drives the workflow to completion.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/aaltonen/chanflow/internal/scheduler"
	"github.com/aaltonen/chanflow/internal/workflow"
)

func main() {
	configPath := flag.String("config", "", "path to the workflow YAML file")
	flag.Parse()

	if *configPath == "" {
		*configPath = os.Getenv("CHANFLOW_CONFIG")
	}

	tmpLogger := log.New(os.Stderr, "[chanflow] ", log.LstdFlags|log.Lshortfile)
	cfg, err := workflow.LoadConfig(*configPath)
	if err != nil {
		tmpLogger.Fatalf("load config: %v", err)
	}

	logger := setupLogger(logFilePath(cfg))
	logger.Printf("Starting chanflow workflow %q", cfg.Name)
	if cfg.ContextDir != "" {
		logger.Printf("Context dir: %s", cfg.ContextDir)
	} else {
		logger.Printf("Context: ephemeral (in-memory)")
	}
	logger.Printf("Agents: %d", len(cfg.Agents))

	sch, err := scheduler.New(cfg, logger)
	if err != nil {
		logger.Fatalf("construct scheduler: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ignore SIGHUP so the process keeps running when daemonized (nohup, launchd, etc.).
	signal.Ignore(syscall.SIGHUP)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	if err := sch.Run(ctx); err != nil {
		logger.Fatalf("workflow run: %v", err)
	}
	logger.Println("Workflow finished.")
}

// logFilePath derives the scheduler log's destination: an explicit
// scheduler.log_file setting wins, otherwise a bound (persistent)
// context logs under <context_dir>/_state/scheduler.log, and an
// ephemeral context logs to stderr only.
func logFilePath(cfg *workflow.Config) string {
	if cfg.Scheduler.LogFile != "" {
		return cfg.Scheduler.LogFile
	}
	if cfg.ContextDir == "" {
		return "none"
	}
	return filepath.Join(cfg.ContextDir, "_state", "scheduler.log")
}

// setupLogger routes log lines to the log file, and additionally to
// stderr when someone is actually watching it. Daemonized runs
// (nohup ... >>log 2>&1) therefore never see each line twice.
func setupLogger(logFilePath string) *log.Logger {
	file := openLogFile(logFilePath)
	var out io.Writer
	switch {
	case file == nil:
		out = os.Stderr
	case stderrIsTerminal():
		out = io.MultiWriter(file, os.Stderr)
	default:
		out = file
	}
	return log.New(out, "[chanflow] ", log.LstdFlags)
}

// openLogFile opens path for appending, creating its directory on the
// way. A path of "", "none", or "off" — or any open failure, reported
// to stderr — yields nil, meaning "log to stderr alone".
func openLogFile(path string) io.Writer {
	switch strings.ToLower(path) {
	case "", "none", "off":
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "[chanflow] warning: log directory %s unavailable: %v\n", filepath.Dir(path), err)
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[chanflow] warning: log file %s unavailable: %v\n", path, err)
		return nil
	}
	return f
}

func stderrIsTerminal() bool {
	info, err := os.Stderr.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
