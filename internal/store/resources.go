package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/aaltonen/chanflow/internal/domain"
)

// resourceExtensions is the probe order readers use when the exact
// extension isn't known.
var resourceExtensions = []string{"md", "json", "diff", "txt"}

func resourceKey(id, ext string) string {
	return fmt.Sprintf("resources/%s.%s", id, ext)
}

// CreateResource writes a new content-addressed blob and returns its id
// and resource: reference.
func (s *Store) CreateResource(ctx context.Context, content, typ string) (domain.Resource, error) {
	ext := "txt"
	switch typ {
	case "markdown":
		ext = "md"
	case "json":
		ext = "json"
	case "diff":
		ext = "diff"
	}
	return s.createResourceRaw(ctx, typ, ext, content)
}

func (s *Store) createResourceRaw(ctx context.Context, typ, ext, content string) (domain.Resource, error) {
	id := s.ids.nextResourceID()
	if err := s.backend.Write(ctx, resourceKey(id, ext), []byte(content)); err != nil {
		return domain.Resource{}, fmt.Errorf("store: create resource: %w", err)
	}
	return domain.Resource{ID: id, Type: typ, Ext: ext, Content: content}, nil
}

// ReadResource probes extensions in order and returns the first match,
// or ok=false if none exist.
func (s *Store) ReadResource(ctx context.Context, id string) (domain.Resource, bool, error) {
	for _, ext := range resourceExtensions {
		raw, err := s.backend.Read(ctx, resourceKey(id, ext))
		if err != nil {
			return domain.Resource{}, false, fmt.Errorf("store: read resource %s: %w", id, err)
		}
		if raw != nil {
			typ := "text"
			if ext == "md" {
				typ = "markdown"
			}
			return domain.Resource{ID: id, Type: typ, Ext: ext, Content: string(raw)}, true, nil
		}
	}
	return domain.Resource{}, false, nil
}

// ListResources returns every stored resource (id, type, ext; content
// omitted), used by the skill index to enumerate resources before it
// reads each one's content.
func (s *Store) ListResources(ctx context.Context) ([]domain.Resource, error) {
	keys, err := s.backend.List(ctx, "resources")
	if err != nil {
		return nil, fmt.Errorf("store: list resources: %w", err)
	}
	out := make([]domain.Resource, 0, len(keys))
	for _, k := range keys {
		dot := strings.LastIndexByte(k, '.')
		if dot < 0 {
			continue
		}
		id, ext := k[:dot], k[dot+1:]
		typ := "text"
		if ext == "md" {
			typ = "markdown"
		}
		out = append(out, domain.Resource{ID: id, Type: typ, Ext: ext})
	}
	return out, nil
}
