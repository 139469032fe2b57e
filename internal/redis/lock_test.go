package redisclient

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T, ttl, retryDelay time.Duration) (Locker, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisDoctorLocker(client, ttl, retryDelay), client
}

func TestWithDoctorLockRunsCallback(t *testing.T) {
	locker, _ := newTestLocker(t, time.Second, 10*time.Millisecond)

	called := false
	err := locker.WithDoctorLock(context.Background(), uuid.New(), func(ctx context.Context) error {
		called = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, called)
}

func TestWithDoctorLockReleasesAfterCallback(t *testing.T) {
	locker, client := newTestLocker(t, time.Second, 10*time.Millisecond)
	doctorID := uuid.New()

	err := locker.WithDoctorLock(context.Background(), doctorID, func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)

	n, err := client.Exists(context.Background(), "lock:doctor:"+doctorID.String()).Result()
	require.NoError(t, err)
	assert.Zero(t, n, "lock key must be deleted after the critical section")
}

func TestWithDoctorLockMutualExclusion(t *testing.T) {
	locker, _ := newTestLocker(t, time.Second, 5*time.Millisecond)
	doctorID := uuid.New()

	inCritical := 0
	maxInCritical := 0
	var mu sync.Mutex

	var wg sync.WaitGroup
	var notAcquired int64

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithDoctorLock(context.Background(), doctorID, func(ctx context.Context) error {
				mu.Lock()
				inCritical++
				if inCritical > maxInCritical {
					maxInCritical = inCritical
				}
				mu.Unlock()

				time.Sleep(20 * time.Millisecond)

				mu.Lock()
				inCritical--
				mu.Unlock()
				return nil
			})
			if err != nil {
				require.ErrorIs(t, err, ErrLockNotAcquired)
				mu.Lock()
				notAcquired++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, 1, maxInCritical, "only one goroutine may hold the doctor lock")
}

func TestWithDoctorLockDifferentDoctorsDoNotContend(t *testing.T) {
	locker, _ := newTestLocker(t, time.Second, time.Millisecond)

	release := make(chan struct{})
	held := make(chan struct{})

	go func() {
		_ = locker.WithDoctorLock(context.Background(), uuid.New(), func(ctx context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()

	<-held
	defer close(release)

	// A different doctor's lock is acquired immediately.
	err := locker.WithDoctorLock(context.Background(), uuid.New(), func(ctx context.Context) error {
		return nil
	})
	assert.NoError(t, err)
}

func TestWithDoctorLockRetriesOnceThenFails(t *testing.T) {
	locker, client := newTestLocker(t, time.Second, 5*time.Millisecond)
	doctorID := uuid.New()

	// Hold the lock externally so acquisition can never succeed.
	require.NoError(t, client.Set(context.Background(), "lock:doctor:"+doctorID.String(), "held", time.Minute).Err())

	err := locker.WithDoctorLock(context.Background(), doctorID, func(ctx context.Context) error {
		t.Fatal("callback must not run without the lock")
		return nil
	})
	assert.ErrorIs(t, err, ErrLockNotAcquired)
}

func TestReleaseDoesNotDeleteForeignToken(t *testing.T) {
	locker, client := newTestLocker(t, 30*time.Millisecond, time.Millisecond)
	doctorID := uuid.New()
	key := "lock:doctor:" + doctorID.String()

	err := locker.WithDoctorLock(context.Background(), doctorID, func(ctx context.Context) error {
		// Simulate lock expiry plus takeover by another holder.
		require.NoError(t, client.Set(context.Background(), key, "other-token", time.Minute).Err())
		return nil
	})
	require.NoError(t, err)

	// The deferred release must have left the other holder's key alone.
	val, err := client.Get(context.Background(), key).Result()
	require.NoError(t, err)
	assert.Equal(t, "other-token", val)
}
