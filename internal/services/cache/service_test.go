package cache

import (
	"context"
	"testing"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/peritus/internal/models"
)

func testTTLs() TTLSet {
	return TTLSet{
		Quote:      5 * time.Minute,
		News:       30 * time.Minute,
		Historical: time.Hour,
		Profile:    24 * time.Hour,
	}
}

func TestKeyNormalizesSymbolCase(t *testing.T) {
	assert.Equal(t, Key(models.CategoryQuote, "AAPL"), Key(models.CategoryQuote, " aapl "))
	assert.NotEqual(t, Key(models.CategoryQuote, "AAPL"), Key(models.CategoryNews, "AAPL"))
}

func TestGetMissThenHit(t *testing.T) {
	svc := NewService(testTTLs())
	ctx := context.Background()
	key := Key(models.CategoryQuote, "AAPL")

	_, ok := svc.Get(ctx, models.CategoryQuote, key)
	assert.False(t, ok)

	svc.Put(ctx, models.CategoryQuote, key, []byte(`{"c":189.5}`))

	payload, ok := svc.Get(ctx, models.CategoryQuote, key)
	require.True(t, ok)
	assert.Equal(t, []byte(`{"c":189.5}`), payload)
}

func TestExpiryByCategory(t *testing.T) {
	current := time.Now()
	svc := NewService(testTTLs(), WithClock(func() time.Time { return current }))
	ctx := context.Background()

	quoteKey := Key(models.CategoryQuote, "AAPL")
	newsKey := Key(models.CategoryNews, "AAPL")
	svc.Put(ctx, models.CategoryQuote, quoteKey, []byte("q"))
	svc.Put(ctx, models.CategoryNews, newsKey, []byte("n"))

	// Ten minutes on: the quote TTL has lapsed, the news TTL has not.
	current = current.Add(10 * time.Minute)

	_, ok := svc.Get(ctx, models.CategoryQuote, quoteKey)
	assert.False(t, ok)

	_, ok = svc.Get(ctx, models.CategoryNews, newsKey)
	assert.True(t, ok)
}

func TestExpiredEntryEvicted(t *testing.T) {
	current := time.Now()
	svc := NewService(testTTLs(), WithClock(func() time.Time { return current }))
	ctx := context.Background()
	key := Key(models.CategoryQuote, "AAPL")

	svc.Put(ctx, models.CategoryQuote, key, []byte("q"))
	assert.Equal(t, 1, svc.Len())

	current = current.Add(6 * time.Minute)
	_, ok := svc.Get(ctx, models.CategoryQuote, key)
	assert.False(t, ok)
	assert.Equal(t, 0, svc.Len())
}

func TestOverwriteResetsTTL(t *testing.T) {
	current := time.Now()
	svc := NewService(testTTLs(), WithClock(func() time.Time { return current }))
	ctx := context.Background()
	key := Key(models.CategoryQuote, "AAPL")

	svc.Put(ctx, models.CategoryQuote, key, []byte("old"))
	current = current.Add(4 * time.Minute)
	svc.Put(ctx, models.CategoryQuote, key, []byte("new"))
	current = current.Add(4 * time.Minute)

	payload, ok := svc.Get(ctx, models.CategoryQuote, key)
	require.True(t, ok)
	assert.Equal(t, []byte("new"), payload)
}

func TestBadgerTierSurvivesMemoryLoss(t *testing.T) {
	opts := badger.DefaultOptions(t.TempDir()).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	key := Key(models.CategoryProfile, "AAPL")

	first := NewService(testTTLs(), WithBadger(db))
	first.Put(ctx, models.CategoryProfile, key, []byte(`{"name":"Apple Inc"}`))

	// A new service over the same DB models a process restart.
	second := NewService(testTTLs(), WithBadger(db))
	payload, ok := second.Get(ctx, models.CategoryProfile, key)
	require.True(t, ok)
	assert.Equal(t, []byte(`{"name":"Apple Inc"}`), payload)

	// The hit was promoted into the memory tier.
	assert.Equal(t, 1, second.Len())
}
