package counter

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHash struct {
	mu     sync.Mutex
	fields map[string]map[string]int64
	raw    map[string]string
	err    error
}

func (f *fakeHash) HIncrBy(ctx context.Context, key, field string, incr int64) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewIntCmd(ctx, "hincrby", key, field, incr)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	if f.fields == nil {
		f.fields = map[string]map[string]int64{}
	}
	if f.fields[key] == nil {
		f.fields[key] = map[string]int64{}
	}
	f.fields[key][field] += incr
	cmd.SetVal(f.fields[key][field])
	return cmd
}

func (f *fakeHash) HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewMapStringStringCmd(ctx, "hgetall", key)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	out := map[string]string{}
	for field, n := range f.fields[key] {
		out[field] = strconv.FormatInt(n, 10)
	}
	for field, v := range f.raw {
		out[field] = v
	}
	cmd.SetVal(out)
	return cmd
}

func TestWebhookActions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	counters := NewWebhookActions(&fakeHash{})

	empty, err := counters.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, counters.Add(ctx, "activate_membership"))
	require.NoError(t, counters.Add(ctx, "activate_membership"))
	require.NoError(t, counters.Add(ctx, "ignore"))

	counts, err := counters.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"activate_membership": 2, "ignore": 1}, counts)
}

func TestWebhookActionsErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	down := NewWebhookActions(&fakeHash{err: errors.New("connection refused")})
	assert.Error(t, down.Add(ctx, "ignore"))
	_, err := down.Snapshot(ctx)
	assert.Error(t, err)

	corrupt := NewWebhookActions(&fakeHash{raw: map[string]string{"ignore": "many"}})
	_, err = corrupt.Snapshot(ctx)
	assert.Error(t, err)
}
