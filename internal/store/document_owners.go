package store

import (
	"context"
	"encoding/json"
	"fmt"
)

const documentOwnersKey = "_state/document_owners.json"

// loadOwners lazily loads the document-ownership map once per process;
// ownership only ever changes through SetDocumentOwner, which keeps the
// cache in sync, so no further reloads are needed.
func (s *Store) loadOwners(ctx context.Context) (map[string]string, error) {
	s.ownersOnce.Do(func() {
		s.owners = make(map[string]string)
		raw, err := s.backend.Read(ctx, documentOwnersKey)
		if err != nil || len(raw) == 0 {
			return
		}
		_ = json.Unmarshal(raw, &s.owners)
	})
	return s.owners, nil
}

// SetDocumentOwner records path's owning agent. An empty owner clears
// ownership.
func (s *Store) SetDocumentOwner(ctx context.Context, path, owner string) error {
	s.ownersMu.Lock()
	defer s.ownersMu.Unlock()

	owners, err := s.loadOwners(ctx)
	if err != nil {
		return err
	}
	if owner == "" {
		delete(owners, path)
	} else {
		owners[path] = owner
	}
	raw, err := json.MarshalIndent(owners, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal document owners: %w", err)
	}
	return s.backend.Write(ctx, documentOwnersKey, raw)
}

// DocumentOwner returns path's owning agent, or "" if unowned.
func (s *Store) DocumentOwner(ctx context.Context, path string) (string, error) {
	s.ownersMu.Lock()
	defer s.ownersMu.Unlock()
	owners, err := s.loadOwners(ctx)
	if err != nil {
		return "", err
	}
	return owners[path], nil
}
