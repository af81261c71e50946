package rates

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"fintrack/internal/cache"
)

// CachedSource remembers successful lookups for a while and collapses
// concurrent identical lookups into one upstream call. Failures are not cached.
type CachedSource struct {
	next  Source
	cache *cache.LRU[decimal.Decimal]
	group singleflight.Group
}

func NewCachedSource(next Source, size int, ttl time.Duration) *CachedSource {
	return &CachedSource{
		next:  next,
		cache: cache.NewLRU[decimal.Decimal](size, ttl),
	}
}

// Cache exposes the underlying cache so a janitor can sweep it.
func (s *CachedSource) Cache() *cache.LRU[decimal.Decimal] {
	return s.cache
}

func (s *CachedSource) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	key := from + ":" + to
	if rate, ok := s.cache.Get(key); ok {
		return rate, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		rate, err := s.next.Rate(ctx, from, to)
		if err != nil {
			return nil, err
		}
		s.cache.Set(key, rate)
		return rate, nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return v.(decimal.Decimal), nil
}
