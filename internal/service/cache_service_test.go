package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/progress-tracker-api/pkg/errors"
)

type memoryCacheRepo struct {
	data        map[string][]byte
	getErr      error
	invalidated []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{data: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.invalidated = append(m.invalidated, pattern)
	m.data = map[string][]byte{}
	return nil
}

func TestCacheServiceRoundTrip(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, NewMetricsService(), time.Minute, nil, true)
	ctx := context.Background()

	var out []string
	assert.False(t, svc.Get(ctx, "k", &out))

	svc.Set(ctx, "k", []string{"a"}, 0)
	require.True(t, svc.Get(ctx, "k", &out))
	assert.Equal(t, []string{"a"}, out)

	svc.Invalidate(ctx, "k*")
	assert.False(t, svc.Get(ctx, "k", &out))
	assert.Equal(t, []string{"k*"}, repo.invalidated)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, nil, false)
	svc.Set(context.Background(), "k", 1, 0)
	assert.Empty(t, repo.data)
}

func TestCacheServiceErrorIsMiss(t *testing.T) {
	repo := newMemoryCacheRepo()
	repo.getErr = errors.New("redis down")
	svc := NewCacheService(repo, nil, time.Minute, nil, true)

	var out int
	assert.False(t, svc.Get(context.Background(), "k", &out))
}

func TestCacheKeyIsStable(t *testing.T) {
	svc := NewCacheService(nil, nil, 0, nil, true)
	a := svc.Key("courses:list:", map[string]int{"page": 1})
	b := svc.Key("courses:list:", map[string]int{"page": 1})
	c := svc.Key("courses:list:", map[string]int{"page": 2})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "courses:list:")
}
