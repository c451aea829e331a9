package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedLocker_SerializesSameKey(t *testing.T) {
	l := NewKeyedLocker()

	release, err := l.Acquire(context.Background(), "install:s1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "install:s1")
	assert.ErrorIs(t, err, ErrNotAcquired)

	other, err := l.Acquire(context.Background(), "install:s2")
	require.NoError(t, err)
	other()

	release()
	release()

	again, err := l.Acquire(context.Background(), "install:s1")
	require.NoError(t, err)
	again()

	l.mu.Lock()
	assert.Empty(t, l.slots)
	l.mu.Unlock()
}

func TestKeyedLocker_WaiterProceedsAfterRelease(t *testing.T) {
	l := NewKeyedLocker()
	release, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		r, err := l.Acquire(context.Background(), "k")
		if err == nil {
			r()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired the lock while it was held")
	case <-time.After(20 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the lock")
	}
}

func TestRedisLocker(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	l := NewRedisLocker(rdb, "attribution:", time.Minute, 30*time.Millisecond, zerolog.Nop())

	release, err := l.Acquire(context.Background(), "install:s1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("attribution:install:s1"))

	_, err = l.Acquire(context.Background(), "install:s1")
	assert.ErrorIs(t, err, ErrNotAcquired)

	release()
	assert.False(t, mr.Exists("attribution:install:s1"))

	release2, err := l.Acquire(context.Background(), "install:s1")
	require.NoError(t, err)
	release2()
}

func TestRedisLocker_ReleaseDoesNotDeleteForeignLock(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	l := NewRedisLocker(rdb, "", time.Second, 10*time.Millisecond, zerolog.Nop())
	release, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("lock:k", "someone-else"))

	release()
	v, err := mr.Get("lock:k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", v)
}
