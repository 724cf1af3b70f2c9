package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/trezcool/pagebuilder/core"
	"github.com/trezcool/pagebuilder/core/page"
)

const keyPrefix = "pagebuilder:page:"

// Open connects to the redis server configured in conf.Redis.
func Open(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        conf.Redis.Address,
		Password:    conf.Redis.Password,
		DB:          conf.Redis.DB,
		DialTimeout: 5 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

// pageRepository is a read-through cache in front of another page.Repository.
// Reads fall back to the wrapped repository whenever redis misbehaves; writes always go
// to the wrapped repository first, then refresh or evict the cached copy.
// Misses only fill an absent key, so a slow read never replaces a copy saved after it.
type pageRepository struct {
	page.Repository

	client *redis.Client
	ttl    time.Duration
	logger core.Logger
	group  singleflight.Group
}

var (
	_ page.Repository  = (*pageRepository)(nil) // interface compliance check
	_ page.Invalidator = (*pageRepository)(nil)
)

func NewPageRepository(next page.Repository, client *redis.Client, ttl time.Duration, logger core.Logger) *pageRepository {
	return &pageRepository{
		Repository: next,
		client:     client,
		ttl:        ttl,
		logger:     logger,
	}
}

func key(name string) string {
	return keyPrefix + name
}

func (repo *pageRepository) GetPage(ctx context.Context, name string) (page.Page, error) {
	raw, err := repo.client.Get(ctx, key(name)).Bytes()
	switch {
	case err == nil:
		var p page.Page
		if err = json.Unmarshal(raw, &p); err == nil {
			return p, nil
		}
		repo.logger.Warn(fmt.Sprintf("dropping undecodable cache entry for page %q", name), err)
		repo.evict(ctx, name)
	case err != redis.Nil:
		repo.logger.Warn("page cache unavailable", err)
	}

	v, err, _ := repo.group.Do(name, func() (interface{}, error) {
		p, err := repo.Repository.GetPage(ctx, name)
		if err != nil {
			return page.Page{}, err
		}
		repo.store(ctx, p, true /* onlyIfAbsent */)
		return p, nil
	})
	if err != nil {
		return page.Page{}, err
	}
	return v.(page.Page), nil
}

func (repo *pageRepository) CreatePage(ctx context.Context, p page.Page) (page.Page, error) {
	p, err := repo.Repository.CreatePage(ctx, p)
	if err != nil {
		return page.Page{}, err
	}
	repo.evict(ctx, p.Name)
	return p, nil
}

func (repo *pageRepository) UpdatePage(ctx context.Context, p page.Page, expectedVersion int) (page.Page, error) {
	saved, err := repo.Repository.UpdatePage(ctx, p, expectedVersion)
	if err != nil {
		// a conflict means the cached copy may be stale too
		repo.evict(ctx, p.Name)
		return page.Page{}, err
	}
	repo.store(ctx, saved, false)
	return saved, nil
}

// InvalidatePage drops the cached copy of the named page.
func (repo *pageRepository) InvalidatePage(ctx context.Context, name string) {
	repo.evict(ctx, name)
}

func (repo *pageRepository) DeletePagesByName(ctx context.Context, names []string) (int, error) {
	n, err := repo.Repository.DeletePagesByName(ctx, names)
	repo.evict(ctx, names...)
	return n, err
}

func (repo *pageRepository) store(ctx context.Context, p page.Page, onlyIfAbsent bool) {
	raw, err := json.Marshal(p)
	if err != nil {
		repo.logger.Warn(fmt.Sprintf("encoding page %q for cache", p.Name), err)
		return
	}
	if onlyIfAbsent {
		err = repo.client.SetNX(ctx, key(p.Name), raw, repo.ttl).Err()
	} else {
		err = repo.client.Set(ctx, key(p.Name), raw, repo.ttl).Err()
	}
	if err != nil {
		repo.logger.Warn("page cache unavailable", err)
	}
}

func (repo *pageRepository) evict(ctx context.Context, names ...string) {
	if len(names) == 0 {
		return
	}
	keys := make([]string, 0, len(names))
	for _, name := range names {
		keys = append(keys, key(name))
	}
	if err := repo.client.Del(ctx, keys...).Err(); err != nil {
		repo.logger.Warn("page cache unavailable", err)
	}
}
