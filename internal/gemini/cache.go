package gemini

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// CachedGenerator remembers generated templates per contract type and hint
// so asking twice in one session does not call the API again.
type CachedGenerator struct {
	next  Generator
	cache *cache.Cache
}

// NewCachedGenerator wraps next with an in-memory cache of the given TTL.
func NewCachedGenerator(next Generator, ttl time.Duration) *CachedGenerator {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedGenerator{
		next:  next,
		cache: cache.New(ttl, 10*time.Minute),
	}
}

// GenerateLetter returns a cached template or delegates to the wrapped
// generator. Errors are never cached.
func (g *CachedGenerator) GenerateLetter(ctx context.Context, contractType, hint string) (string, error) {
	key := contractType + "\x00" + hint
	if v, ok := g.cache.Get(key); ok {
		return v.(string), nil
	}

	text, err := g.next.GenerateLetter(ctx, contractType, hint)
	if err != nil {
		return "", err
	}
	g.cache.SetDefault(key, text)
	return text, nil
}

// Forget drops every cached template.
func (g *CachedGenerator) Forget() {
	g.cache.Flush()
}
