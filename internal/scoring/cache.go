package scoring

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pmehra7/loanbook/internal/features"
)

// Cache stores recent predictions in Redis so batch runs do not rescore
// unchanged applications. A nil *Cache is a no-op, which keeps Redis an
// optional dependency.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache wraps a Redis client. ttl bounds staleness: a cached prediction
// survives at most that long even if the underlying customer data changes.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// key derives a stable cache key from the customer and the exact loan terms.
// Any change to the terms produces a different key.
func (c *Cache) key(customerID string, req features.LoanRequest) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%.2f|%d|%.4f|%s",
		customerID, req.Amount, req.TenureMonths, req.InterestRate, req.Purpose)))
	return "loanbook:prediction:" + hex.EncodeToString(sum[:16])
}

// Get returns a cached prediction, or nil on miss. Redis errors are treated
// as misses: the cache must never fail a scoring run.
func (c *Cache) Get(ctx context.Context, customerID string, req features.LoanRequest) *Prediction {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := c.client.Get(ctx, c.key(customerID, req)).Bytes()
	if err != nil {
		return nil
	}
	var p Prediction
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil
	}
	return &p
}

// Put stores a prediction, best effort.
func (c *Cache) Put(ctx context.Context, customerID string, req features.LoanRequest, p *Prediction) {
	if c == nil || c.client == nil || p == nil {
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.key(customerID, req), raw, c.ttl)
}
