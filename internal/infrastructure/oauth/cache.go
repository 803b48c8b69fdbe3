package oauth

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

const (
	defaultRefreshSkew = 5 * time.Minute
	cacheSize          = 16
)

// CachingProvider reuses a token until shortly before it expires.
// Concurrent misses for the same identity share one exchange.
type CachingProvider struct {
	next  TokenSource
	skew  time.Duration
	now   func() time.Time
	cache *expirable.LRU[string, *Token]
	group singleflight.Group
}

func NewCachingProvider(next TokenSource) *CachingProvider {
	return &CachingProvider{
		next:  next,
		skew:  defaultRefreshSkew,
		now:   time.Now,
		cache: expirable.NewLRU[string, *Token](cacheSize, nil, assertionLifetime),
	}
}

func cacheKey(id SigningIdentity) string {
	return id.ClientEmail + "|" + id.Scope + "|" + id.TokenURI
}

func (c *CachingProvider) AccessToken(ctx context.Context, id SigningIdentity) (*Token, error) {
	key := cacheKey(id)
	if tok, ok := c.cache.Get(key); ok && tok.Valid(c.now(), c.skew) {
		return tok, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		tok, err := c.next.AccessToken(ctx, id)
		if err != nil {
			return nil, err
		}
		c.cache.Add(key, tok)
		return tok, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Token), nil
}

// Invalidate drops the cached token for id, e.g. after the provider rejects it.
func (c *CachingProvider) Invalidate(id SigningIdentity) {
	c.cache.Remove(cacheKey(id))
}
