package domain

import (
	"context"
	"time"
)

// ProductCache defines the interface for caching search results
type ProductCache interface {
	Get(ctx context.Context, key string) ([]Product, error)
	Set(ctx context.Context, key string, products []Product, ttl time.Duration) error
}

// MarketProvider searches a single retailer.
//
// Search never fails: every transport or parse fault is logged by the
// implementation and collapsed into an empty result, so one broken retailer
// cannot abort an aggregate search. Implementations must be safe for
// concurrent use.
type MarketProvider interface {
	Name() string
	Search(ctx context.Context, term string) []Product
}
