package rediscache

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/pagebuilder/core/layout"
	"github.com/trezcool/pagebuilder/core/page"
	logsvc "github.com/trezcool/pagebuilder/services/logger"
	inmemdb "github.com/trezcool/pagebuilder/storage/database/inmem"
	"github.com/trezcool/pagebuilder/tests"
)

// countingRepo counts the reads reaching the wrapped repository.
type countingRepo struct {
	page.Repository
	gets int
}

func (repo *countingRepo) GetPage(ctx context.Context, name string) (page.Page, error) {
	repo.gets++
	return repo.Repository.GetPage(ctx, name)
}

// racingRepo runs during once, right after the next read reached the wrapped repository.
type racingRepo struct {
	countingRepo
	during func()
}

func (repo *racingRepo) GetPage(ctx context.Context, name string) (page.Page, error) {
	p, err := repo.countingRepo.GetPage(ctx, name)
	if f := repo.during; f != nil {
		repo.during = nil
		f()
	}
	return p, err
}

// memRedis answers GET, SET (with NX) and DEL from a map instead of a server.
type memRedis struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemClient(t *testing.T) (*redis.Client, *memRedis) {
	t.Helper()
	mem := &memRedis{data: make(map[string]string)}
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	client.AddHook(mem)
	return client, mem
}

func (m *memRedis) DialHook(next redis.DialHook) redis.DialHook { return next }

func (m *memRedis) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (m *memRedis) ProcessHook(_ redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		m.mu.Lock()
		defer m.mu.Unlock()

		args := cmd.Args()
		switch strings.ToLower(cmd.Name()) {
		case "get":
			v, ok := m.data[fmt.Sprint(args[1])]
			if !ok {
				cmd.SetErr(redis.Nil)
				return redis.Nil
			}
			cmd.(*redis.StringCmd).SetVal(v)
		case "set", "setnx":
			k := fmt.Sprint(args[1])
			nx := cmd.Name() == "setnx"
			for _, a := range args[3:] {
				if opt, ok := a.(string); ok && strings.EqualFold(opt, "nx") {
					nx = true
				}
			}
			if _, exists := m.data[k]; nx && exists {
				cmd.(*redis.BoolCmd).SetVal(false)
				return nil
			}
			switch v := args[2].(type) {
			case []byte:
				m.data[k] = string(v)
			default:
				m.data[k] = fmt.Sprint(v)
			}
			switch c := cmd.(type) {
			case *redis.BoolCmd:
				c.SetVal(true)
			case *redis.StatusCmd:
				c.SetVal("OK")
			}
		case "del":
			var n int64
			for _, a := range args[1:] {
				if _, ok := m.data[fmt.Sprint(a)]; ok {
					delete(m.data, fmt.Sprint(a))
					n++
				}
			}
			cmd.(*redis.IntCmd).SetVal(n)
		default:
			err := fmt.Errorf("unsupported command %q", cmd.Name())
			cmd.SetErr(err)
			return err
		}
		return nil
	}
}

func newCache(t *testing.T, client *redis.Client) (*pageRepository, *countingRepo) {
	t.Helper()
	backend := &countingRepo{Repository: inmemdb.NewPageRepository(inmemdb.Open())}
	t.Cleanup(func() { _ = client.Close() })
	return NewPageRepository(backend, client, time.Minute, logsvc.NewDiscardLogger()), backend
}

func TestPageRepository_redisDown(t *testing.T) {
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	repo, backend := newCache(t, client)

	p := testutil.CreatePage(t, repo, "home", "Accueil", "hero")

	got, err := repo.GetPage(ctx, "home")
	require.NoError(t, err)
	assert.Equal(t, p, got)
	assert.Equal(t, 1, backend.gets)

	p.Layout, _ = layout.AddComponent(p.Layout, layout.SectionBody, "text")
	saved, err := repo.UpdatePage(ctx, p, p.Version)
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Version)

	_, err = repo.UpdatePage(ctx, p, p.Version)
	assert.Equal(t, page.ErrConflict, errors.Cause(err))

	n, err := repo.DeletePagesByName(ctx, []string{"home"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = repo.GetPage(ctx, "home")
	assert.Equal(t, page.ErrNotFound, err)
}

// TestPageRepository_redis runs against a live server, when REDIS_TEST_ADDR is set.
func TestPageRepository_redis(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	require.NoError(t, client.FlushDB(ctx).Err())
	repo, backend := newCache(t, client)

	p := testutil.CreatePage(t, repo, "home", "Accueil", "hero")

	for i := 0; i < 3; i++ {
		got, err := repo.GetPage(ctx, "home")
		require.NoError(t, err)
		assert.Equal(t, p.Layout, got.Layout)
	}
	assert.Equal(t, 1, backend.gets, "later reads must be served from the cache")

	p.Title = "Home"
	_, err := repo.UpdatePage(ctx, p, p.Version)
	require.NoError(t, err)

	got, err := repo.GetPage(ctx, "home")
	require.NoError(t, err)
	assert.Equal(t, "Home", got.Title)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, 1, backend.gets, "a write must refresh the cached copy")

	_, err = repo.DeletePagesByName(ctx, []string{"home"})
	require.NoError(t, err)
	_, err = repo.GetPage(ctx, "home")
	assert.Equal(t, page.ErrNotFound, err)
}

func TestPageRepository_writeThrough(t *testing.T) {
	ctx := context.Background()
	client, mem := newMemClient(t)
	repo, backend := newCache(t, client)

	p := testutil.CreatePage(t, repo, "home", "Accueil", "hero")
	assert.Empty(t, mem.data)

	for i := 0; i < 3; i++ {
		got, err := repo.GetPage(ctx, "home")
		require.NoError(t, err)
		assert.Equal(t, p.Version, got.Version)
	}
	assert.Equal(t, 1, backend.gets)

	p.Title = "Home"
	_, err := repo.UpdatePage(ctx, p, p.Version)
	require.NoError(t, err)
	got, err := repo.GetPage(ctx, "home")
	require.NoError(t, err)
	assert.Equal(t, "Home", got.Title)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, 1, backend.gets)

	_, err = repo.UpdatePage(ctx, p, p.Version)
	assert.Equal(t, page.ErrConflict, errors.Cause(err))
	assert.NotContains(t, mem.data, key("home"), "a conflict must evict the cached copy")

	_, err = repo.DeletePagesByName(ctx, []string{"home"})
	require.NoError(t, err)
	_, err = repo.GetPage(ctx, "home")
	assert.Equal(t, page.ErrNotFound, err)
}

func TestPageRepository_saveDuringMiss(t *testing.T) {
	ctx := context.Background()
	client, _ := newMemClient(t)
	t.Cleanup(func() { _ = client.Close() })

	backend := &racingRepo{countingRepo: countingRepo{Repository: inmemdb.NewPageRepository(inmemdb.Open())}}
	repo := NewPageRepository(backend, client, time.Minute, logsvc.NewDiscardLogger())
	svc := page.NewService(repo, logsvc.NewDiscardLogger(), nil)

	p := testutil.CreatePage(t, repo, "home", "Accueil", "hero")

	// an editor saves while the first read is filling the cache
	backend.during = func() {
		edited := p
		edited.Title = "Home"
		_, err := repo.UpdatePage(ctx, edited, p.Version)
		require.NoError(t, err)
	}
	got, err := repo.GetPage(ctx, "home")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)

	got, err = repo.GetPage(ctx, "home")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version, "the slow read must not replace the saved copy")
	assert.Equal(t, "Home", got.Title)

	saved, err := svc.SaveLayout(ctx, "home", page.SaveLayout{Layout: got.Layout, Version: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, saved.Version)
}

func TestPageRepository_staleEntry(t *testing.T) {
	ctx := context.Background()
	client, _ := newMemClient(t)
	repo, backend := newCache(t, client)
	svc := page.NewService(repo, logsvc.NewDiscardLogger(), nil)

	stale := testutil.CreatePage(t, repo, "home", "Accueil", "hero")
	fresh := stale
	fresh.Title = "Home"
	fresh, err := backend.Repository.UpdatePage(ctx, fresh, stale.Version)
	require.NoError(t, err)
	repo.store(ctx, stale, false)

	saved, err := svc.SaveLayout(ctx, "home", page.SaveLayout{Layout: fresh.Layout, Version: fresh.Version})
	require.NoError(t, err)
	assert.Equal(t, fresh.Version+1, saved.Version)
	assert.Equal(t, "Home", saved.Title)

	got, err := repo.GetPage(ctx, "home")
	require.NoError(t, err)
	assert.Equal(t, saved.Version, got.Version)
}
