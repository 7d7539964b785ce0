// Package cache provides category-keyed TTL caching for market data
// payloads. A memory tier answers most lookups; an optional Badger
// tier carries entries across restarts using Badger's native TTL.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peritus/internal/interfaces"
	"github.com/ternarybob/peritus/internal/models"
)

// TTLSet holds the per-category retention periods.
type TTLSet struct {
	Quote      time.Duration
	News       time.Duration
	Historical time.Duration
	Profile    time.Duration
}

func (t TTLSet) For(category models.Category) time.Duration {
	switch category {
	case models.CategoryQuote:
		return t.Quote
	case models.CategoryNews:
		return t.News
	case models.CategoryHistorical:
		return t.Historical
	case models.CategoryProfile:
		return t.Profile
	default:
		return t.Quote
	}
}

type entry struct {
	payload   []byte
	expiresAt time.Time
}

// Service is a two-tier TTL cache.
type Service struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttls    TTLSet
	db      *badger.DB
	logger  arbor.ILogger
	now     func() time.Time
}

// ServiceOption configures the Service.
type ServiceOption func(*Service)

// WithBadger attaches a persistent tier. The DB's lifecycle belongs to
// the caller.
func WithBadger(db *badger.DB) ServiceOption {
	return func(s *Service) {
		s.db = db
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a cache service with the given retention periods.
func NewService(ttls TTLSet, opts ...ServiceOption) *Service {
	s := &Service{
		entries: make(map[string]entry),
		ttls:    ttls,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Key derives a cache key from its parts. Symbol casing is normalized
// so "aapl" and "AAPL" share an entry.
func Key(category models.Category, parts ...string) string {
	elems := make([]string, 0, len(parts)+1)
	elems = append(elems, string(category))
	for _, p := range parts {
		elems = append(elems, strings.ToUpper(strings.TrimSpace(p)))
	}
	return strings.Join(elems, ":")
}

// Get returns the payload for (category, key) if present and unexpired.
func (s *Service) Get(ctx context.Context, category models.Category, key string) ([]byte, bool) {
	now := s.now()

	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if ok {
		if now.Before(e.expiresAt) {
			return e.payload, true
		}
		// Expired entry, evict lazily.
		s.mu.Lock()
		if cur, still := s.entries[key]; still && cur.expiresAt.Equal(e.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
	}

	if s.db == nil {
		return nil, false
	}

	var payload []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if err != badger.ErrKeyNotFound && s.logger != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("Persistent cache read failed")
		}
		return nil, false
	}

	// Promote to the memory tier. Badger does not expose the entry's
	// remaining TTL, so the promotion gets a fresh full TTL.
	s.mu.Lock()
	s.entries[key] = entry{payload: payload, expiresAt: now.Add(s.ttls.For(category))}
	s.mu.Unlock()

	return payload, true
}

// Put stores payload under (category, key) with the category's TTL.
func (s *Service) Put(ctx context.Context, category models.Category, key string, payload []byte) {
	ttl := s.ttls.For(category)
	if ttl <= 0 {
		return
	}

	s.mu.Lock()
	s.entries[key] = entry{payload: payload, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), payload).WithTTL(ttl)
		return txn.SetEntry(e)
	})
	if err != nil && s.logger != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Persistent cache write failed")
	}
}

// Len reports the number of live entries in the memory tier.
func (s *Service) Len() int {
	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.entries {
		if now.Before(e.expiresAt) {
			count++
		}
	}
	return count
}

var _ interfaces.Cache = (*Service)(nil)
