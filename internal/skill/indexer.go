package skill

import (
	"context"
	"log"
	"time"

	"github.com/aaltonen/chanflow/internal/domain"
	"github.com/aaltonen/chanflow/internal/workflow"
)

// contentProvider is the subset of *store.Store the indexer needs.
type contentProvider interface {
	ListDocuments(ctx context.Context) ([]string, error)
	ReadDocument(ctx context.Context, path string) (string, bool, error)
	ListResources(ctx context.Context) ([]domain.Resource, error)
	ReadResource(ctx context.Context, id string) (domain.Resource, bool, error)
}

// Indexer keeps an Index current: it seeds declared skills once, then
// re-scans documents and resources for changes on an interval and,
// when the underlying storage.Backend is a storage.Watcher (the disk
// backend), immediately on every fsnotify event too. Documents and
// resources live behind storage.Backend rather than on a directory the
// indexer could walk, so every scan goes through contentProvider; the
// watcher only changes when a scan happens, never how.
type Indexer struct {
	index    *Index
	content  contentProvider
	interval time.Duration
	logger   *log.Logger
	trigger  <-chan struct{}
}

// NewIndexer constructs an Indexer. interval <= 0 defaults to 10s.
func NewIndexer(index *Index, content contentProvider, interval time.Duration, logger *log.Logger) *Indexer {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Indexer{index: index, content: content, interval: interval, logger: logger}
}

// WithTrigger arms an additional wakeup source (typically a
// storage.Watcher's change channel) that causes an immediate scan
// alongside the regular polling interval.
func (ix *Indexer) WithTrigger(trigger <-chan struct{}) *Indexer {
	ix.trigger = trigger
	return ix
}

// SeedSkills indexes the workflow's declared skills and publishes their
// catalogue summaries. Call once at startup.
func (ix *Indexer) SeedSkills(decls []workflow.SkillDeclaration) {
	skills := make([]Skill, 0, len(decls))
	for _, d := range decls {
		skills = append(skills, Skill{Name: d.Name, Title: d.Title})
		body := d.Body
		if d.Example != "" {
			body += "\n\n" + d.Example
		}
		if err := ix.index.Index(Entry{
			Path:     "skill:" + d.Name,
			Title:    d.Title,
			Content:  body,
			Category: CategorySkill,
		}); err != nil && ix.logger != nil {
			ix.logger.Printf("skill indexer: seed %s: %v", d.Name, err)
		}
	}
	ix.index.SetSkills(skills)
}

// Run performs an immediate scan, then rescans on interval until ctx is
// cancelled.
func (ix *Indexer) Run(ctx context.Context) {
	ix.scan(ctx)
	ticker := time.NewTicker(ix.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ix.scan(ctx)
		case <-ix.trigger:
			ix.scan(ctx)
		}
	}
}

func (ix *Indexer) scan(ctx context.Context) {
	if ix.content == nil {
		return
	}
	docs, err := ix.content.ListDocuments(ctx)
	if err != nil {
		if ix.logger != nil {
			ix.logger.Printf("skill indexer: list documents: %v", err)
		}
	}
	for _, path := range docs {
		content, ok, err := ix.content.ReadDocument(ctx, path)
		if err != nil || !ok {
			continue
		}
		changed, err := ix.index.IndexIfChanged(Entry{
			Path:     "documents/" + path,
			Title:    path,
			Content:  content,
			Category: CategoryDocument,
		})
		if err != nil && ix.logger != nil {
			ix.logger.Printf("skill indexer: index document %s: %v", path, err)
		}
		_ = changed
	}

	resources, err := ix.content.ListResources(ctx)
	if err != nil {
		if ix.logger != nil {
			ix.logger.Printf("skill indexer: list resources: %v", err)
		}
		return
	}
	for _, r := range resources {
		full, ok, err := ix.content.ReadResource(ctx, r.ID)
		if err != nil || !ok {
			continue
		}
		content := full.Content
		if _, err := ix.index.IndexIfChanged(Entry{
			Path:     "resources/" + r.ID,
			Title:    r.ID,
			Content:  content,
			Category: CategoryResource,
		}); err != nil && ix.logger != nil {
			ix.logger.Printf("skill indexer: index resource %s: %v", r.ID, err)
		}
	}
}
