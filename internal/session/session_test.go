package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visionchat/internal/config"
	"visionchat/internal/models"
	"visionchat/internal/redis"
)

func TestHistoryKeepsInsertionOrder(t *testing.T) {
	h := &History{}
	for i := 0; i < 5; i++ {
		h.Append(models.UserTurn(fmt.Sprintf("q%d", i)), models.AssistantTurn(fmt.Sprintf("a%d", i)))
	}
	turns := h.All()
	require.Len(t, turns, 10)
	for i := 0; i < 5; i++ {
		assert.Equal(t, models.UserTurn(fmt.Sprintf("q%d", i)), turns[2*i])
		assert.Equal(t, models.AssistantTurn(fmt.Sprintf("a%d", i)), turns[2*i+1])
	}

	// All returns a copy.
	turns[0] = models.UserTurn("mutated")
	assert.Equal(t, "q0", h.All()[0].Text)
}

func TestHistoryConcurrentAppend(t *testing.T) {
	h := &History{}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Append(models.UserTurn("x"))
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, h.Len())
}

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10, time.Hour)

	sc := New("invoice")
	require.NotEmpty(t, sc.ID)
	assert.Equal(t, "invoice", sc.App)
	_, err := store.Load(ctx, sc.ID)
	assert.ErrorIs(t, err, ErrNotFound, "new sessions are not stored before the first save")
	assert.Equal(t, 0, store.Len())

	sc.History.Append(models.UserTurn("hi"))
	require.NoError(t, store.Save(ctx, sc))

	loaded, err := store.Load(ctx, sc.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Turn{models.UserTurn("hi")}, loaded.History.All())

	other := New("invoice")
	assert.NotEqual(t, sc.ID, other.ID)
	assert.Equal(t, 0, other.History.Len())

	require.NoError(t, store.Discard(ctx, sc.ID))
	_, err = store.Load(ctx, sc.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreExpiresIdleSessions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10, 50*time.Millisecond)
	sc := New("chat")
	require.NoError(t, store.Save(ctx, sc))

	time.Sleep(80 * time.Millisecond)
	_, err := store.Load(ctx, sc.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := redis.NewRedisClient(config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	store := NewRedisStore(client, time.Minute)

	sc := New("chat")
	_, err = store.Load(ctx, sc.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	sc.History.Append(models.UserTurn("hello"), models.AssistantTurn("hi there"))
	require.NoError(t, store.Save(ctx, sc))

	loaded, err := store.Load(ctx, sc.ID)
	require.NoError(t, err)
	assert.Equal(t, "chat", loaded.App)
	assert.Equal(t, sc.History.All(), loaded.History.All())

	ttl := mr.TTL(redisKeyPrefix + sc.ID)
	assert.Equal(t, time.Minute, ttl)

	mr.FastForward(2 * time.Minute)
	_, err = store.Load(ctx, sc.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	other := New("chat")
	require.NoError(t, store.Save(ctx, other))
	require.NoError(t, store.Discard(ctx, other.ID))
	_, err = store.Load(ctx, other.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
