package cron

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lockStore struct {
	values map[string]string
}

func (s *lockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = fmt.Sprint(value)
	return true, nil
}

func (s *lockStore) Get(_ context.Context, key string) (string, error) {
	v, ok := s.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (s *lockStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

func TestRedisLockIsExclusiveAndOwnerScoped(t *testing.T) {
	store := &lockStore{values: map[string]string{}}
	first, err := NewRedisLock(store, "crb:lock:cron", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "crb:lock:cron", time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// A non-owner release leaves the lock in place.
	require.NoError(t, second.Release(ctx))
	assert.Contains(t, store.values, "crb:lock:cron")

	require.NoError(t, first.Release(ctx))
	assert.NotContains(t, store.values, "crb:lock:cron")
	require.NoError(t, first.Release(ctx))

	_, err = NewRedisLock(nil, "k", 0)
	assert.Error(t, err)
}
