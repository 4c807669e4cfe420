package store

import (
	"context"
	"fmt"
	"strings"
)

func documentKey(path string) string {
	return "documents/" + strings.TrimPrefix(path, "/")
}

// ReadDocument returns a document's content, or ok=false if absent.
func (s *Store) ReadDocument(ctx context.Context, path string) (string, bool, error) {
	raw, err := s.backend.Read(ctx, documentKey(path))
	if err != nil {
		return "", false, fmt.Errorf("store: read document %s: %w", path, err)
	}
	if raw == nil {
		return "", false, nil
	}
	return string(raw), true, nil
}

// WriteDocument overwrites a document's content, creating it if absent.
func (s *Store) WriteDocument(ctx context.Context, path, content string) error {
	if err := s.backend.Write(ctx, documentKey(path), []byte(content)); err != nil {
		return fmt.Errorf("store: write document %s: %w", path, err)
	}
	return nil
}

// AppendDocument appends content to a document, creating it if absent.
func (s *Store) AppendDocument(ctx context.Context, path, content string) error {
	if err := s.backend.Append(ctx, documentKey(path), []byte(content)); err != nil {
		return fmt.Errorf("store: append document %s: %w", path, err)
	}
	return nil
}

// CreateDocument creates a new document, failing if one already exists
// at path.
func (s *Store) CreateDocument(ctx context.Context, path, content string) error {
	exists, err := s.backend.Exists(ctx, documentKey(path))
	if err != nil {
		return fmt.Errorf("store: create document %s: %w", path, err)
	}
	if exists {
		return fmt.Errorf("store: document %s already exists", path)
	}
	return s.WriteDocument(ctx, path, content)
}

// ListDocuments returns the relative paths of every .md document.
func (s *Store) ListDocuments(ctx context.Context) ([]string, error) {
	all, err := s.backend.List(ctx, "documents")
	if err != nil {
		return nil, fmt.Errorf("store: list documents: %w", err)
	}
	out := all[:0:0]
	for _, p := range all {
		if strings.HasSuffix(p, ".md") {
			out = append(out, p)
		}
	}
	return out, nil
}
