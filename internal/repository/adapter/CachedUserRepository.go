package adapter

import (
	"context"
	"encoding/json"
	"time"

	cacheport "github.com/aaryandewan/messaging-server/internal/infrastructure/cache/port"
	port "github.com/aaryandewan/messaging-server/internal/repository/port"
)

const userCacheTTL = 5 * time.Minute

// CachedUserRepository decorates a UserRepository with a read-through
// cache. Chat only needs id and name, both immutable enough for a short
// TTL; cache failures degrade to the inner repository.
type CachedUserRepository struct {
	inner port.UserRepository
	cache cacheport.Cache
}

func NewCachedUserRepository(inner port.UserRepository, cache cacheport.Cache) *CachedUserRepository {
	return &CachedUserRepository{inner: inner, cache: cache}
}

var _ port.UserRepository = (*CachedUserRepository)(nil)

func (r *CachedUserRepository) FindByID(ctx context.Context, id string) (*port.User, error) {
	key := "user:" + id

	// Misses and transport errors both fall through to the database.
	if raw, err := r.cache.Get(ctx, key); err == nil && raw != "" {
		var u port.User
		if err := json.Unmarshal([]byte(raw), &u); err == nil {
			return &u, nil
		}
	}

	u, err := r.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(u); err == nil {
		_ = r.cache.Set(ctx, key, string(raw), userCacheTTL)
	}
	return u, nil
}
