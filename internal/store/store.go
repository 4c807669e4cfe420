// Package store implements the channel/context store: the single source
// of truth for all agent communication. It wraps a
// storage.Backend with a cached, incrementally tailable view of
// channel.jsonl plus resource, document, and inbox-cursor state.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/aaltonen/chanflow/internal/domain"
	"github.com/aaltonen/chanflow/internal/storage"
)

const (
	channelKey = "channel.jsonl"
	inboxKey   = "_state/inbox.json"

	// DefaultMessageThreshold is the content length above which a send
	// is extracted into a resource.
	DefaultMessageThreshold = 2000
)

// Store is the channel/context store. Safe for concurrent use.
type Store struct {
	backend storage.Backend
	logger  *log.Logger

	// cache invariant: parsedEntries is monotonic, syncedOffset is the
	// byte offset already folded into parsedEntries. Protected by mu.
	mu            sync.RWMutex
	parsedEntries []domain.Message
	syncedOffset  int64
	parseErrors   int

	sf singleflight.Group

	agentsMu    sync.RWMutex
	validAgents map[string]bool

	messageThreshold int

	runMu         sync.Mutex
	runStartIndex int
	ephemeral     bool

	inboxMu sync.Mutex

	ownersMu   sync.Mutex
	ownersOnce sync.Once
	owners     map[string]string

	ids *idGenerator
}

// Option configures a Store.
type Option func(*Store)

// WithMessageThreshold overrides DefaultMessageThreshold.
func WithMessageThreshold(n int) Option {
	return func(s *Store) { s.messageThreshold = n }
}

// WithEphemeral marks the context as ephemeral: Destroy deletes inbox
// state. Persistent (bind) contexts leave state intact across runs.
func WithEphemeral(ephemeral bool) Option {
	return func(s *Store) { s.ephemeral = ephemeral }
}

// New constructs a Store over backend. validAgents is the initial
// workflow-valid-agent set used for mention extraction; callers update it
// via SetValidAgents if agents are registered dynamically.
func New(backend storage.Backend, logger *log.Logger, validAgents []string, opts ...Option) *Store {
	s := &Store{
		backend:          backend,
		logger:           logger,
		validAgents:      make(map[string]bool, len(validAgents)),
		messageThreshold: DefaultMessageThreshold,
		ids:              newIDGenerator(),
	}
	for _, a := range validAgents {
		s.validAgents[a] = true
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetValidAgents replaces the mention-extraction valid-agent set.
func (s *Store) SetValidAgents(agents []string) {
	s.agentsMu.Lock()
	defer s.agentsMu.Unlock()
	s.validAgents = make(map[string]bool, len(agents))
	for _, a := range agents {
		s.validAgents[a] = true
	}
}

func (s *Store) isValidAgent(name string) bool {
	s.agentsMu.RLock()
	defer s.agentsMu.RUnlock()
	return s.validAgents[name]
}

// ValidAgents returns the current valid-agent set, sorted.
func (s *Store) ValidAgents() []string {
	s.agentsMu.RLock()
	defer s.agentsMu.RUnlock()
	out := make([]string, 0, len(s.validAgents))
	for a := range s.validAgents {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// syncChannel performs readFrom(channel.jsonl, syncedOffset), parses each
// newline-terminated JSON record, and appends to parsedEntries. At most
// one sync is in flight at a time; concurrent callers share the result
// via singleflight.
func (s *Store) syncChannel(ctx context.Context) error {
	_, err, _ := s.sf.Do("sync", func() (any, error) {
		s.mu.RLock()
		offset := s.syncedOffset
		s.mu.RUnlock()

		res, err := s.backend.ReadFrom(ctx, channelKey, offset)
		if err != nil {
			return nil, fmt.Errorf("store: sync channel: %w", err)
		}
		if len(res.Content) == 0 {
			s.mu.Lock()
			s.syncedOffset = res.NewOffset
			s.mu.Unlock()
			return nil, nil
		}

		var newEntries []domain.Message
		for _, line := range strings.Split(string(res.Content), "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			var m domain.Message
			if err := json.Unmarshal([]byte(line), &m); err != nil {
				s.mu.Lock()
				s.parseErrors++
				s.mu.Unlock()
				if s.logger != nil {
					s.logger.Printf("store: skipping malformed channel line: %v", err)
				}
				continue
			}
			newEntries = append(newEntries, m)
		}

		s.mu.Lock()
		s.parsedEntries = append(s.parsedEntries, newEntries...)
		s.syncedOffset = res.NewOffset
		s.mu.Unlock()
		return nil, nil
	})
	return err
}

// snapshot returns a copy of the cached entries after syncing. Callers
// must not mutate the returned slice's elements' mutable fields (there
// are none; Message is immutable post-append).
func (s *Store) snapshot(ctx context.Context) ([]domain.Message, error) {
	if err := s.syncChannel(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Message, len(s.parsedEntries))
	copy(out, s.parsedEntries)
	return out, nil
}

// ParseErrors returns the number of malformed channel.jsonl lines
// skipped so far.
func (s *Store) ParseErrors() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.parseErrors
}
