package repository

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"stackit/internal/common/cache"
	"stackit/internal/forum/model"
)

const (
	userInfoKeyPrefix  = "forum:user:id:"
	userEmailKeyPrefix = "forum:user:email:"

	defaultUserCacheTTL      = 30 * time.Minute
	defaultUserCacheEmptyTTL = 5 * time.Minute
)

// userCache fronts user lookups. Users never change after creation, so entries are
// only written on read and dropped when a registration makes a cached miss stale.
type userCache struct {
	cache    cache.Cache
	ttl      time.Duration
	emptyTTL time.Duration
}

func newUserCache(cacheClient cache.Cache) *userCache {
	return &userCache{cache: cacheClient, ttl: defaultUserCacheTTL, emptyTTL: defaultUserCacheEmptyTTL}
}

// cachedUser keeps the password hash, which model.User hides from JSON.
type cachedUser struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"password_hash"`
	Role         model.Role `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (c *userCache) getByID(ctx context.Context, id string, loader func(context.Context) (*model.User, error)) (*model.User, error) {
	return c.get(ctx, userInfoKeyPrefix+id, loader)
}

func (c *userCache) getByEmail(ctx context.Context, email string, loader func(context.Context) (*model.User, error)) (*model.User, error) {
	return c.get(ctx, userEmailKeyPrefix+normalizeEmail(email), loader)
}

func (c *userCache) get(ctx context.Context, key string, loader func(context.Context) (*model.User, error)) (*model.User, error) {
	user, err := cache.GetWithCached[*model.User](
		ctx,
		c.cache,
		key,
		c.ttl,
		c.emptyTTL,
		func(u *model.User) bool { return u == nil },
		marshalCachedUser,
		unmarshalCachedUser,
		loader,
	)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// forget drops entries that may hold a cached miss for a newly created user.
func (c *userCache) forget(ctx context.Context, user *model.User) {
	_ = c.cache.Del(ctx, userInfoKeyPrefix+user.ID, userEmailKeyPrefix+normalizeEmail(user.Email))
}

func marshalCachedUser(u *model.User) (string, error) {
	data, err := json.Marshal(cachedUser{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		CreatedAt:    u.CreatedAt,
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalCachedUser(data string) (*model.User, error) {
	var cu cachedUser
	if err := json.NewDecoder(strings.NewReader(data)).Decode(&cu); err != nil {
		return nil, err
	}
	return &model.User{
		ID:           cu.ID,
		Name:         cu.Name,
		Email:        cu.Email,
		PasswordHash: cu.PasswordHash,
		Role:         cu.Role,
		CreatedAt:    cu.CreatedAt,
	}, nil
}
