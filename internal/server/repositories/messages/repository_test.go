package messages

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/whisperbox/internal/server/objstore"
	"github.com/dmitrijs2005/whisperbox/internal/server/objstore/objstoretest"
	"github.com/dmitrijs2005/whisperbox/internal/timex"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// steppingClock advances by step on every call.
type steppingClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

var epoch = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func backends(opts ...Option) map[string]func() Repository {
	return map[string]func() Repository{
		"memory": func() Repository { return NewMemoryRepository(opts...) },
		"s3": func() Repository {
			return NewS3Repository(objstore.NewStore(objstoretest.New(), "bkt", "env"), opts...)
		},
	}
}

func TestRepository_ViewsAreSymmetric(t *testing.T) {
	for name, mk := range backends(WithClock(&steppingClock{now: epoch, step: time.Millisecond})) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			r := mk()

			m1, err := r.Append(ctx, "u1", "u2", "ct-1")
			require.NoError(t, err)
			m2, err := r.Append(ctx, "u2", "u1", "ct-2")
			require.NoError(t, err)

			a, err := r.GetThread(ctx, "u1", "u2")
			require.NoError(t, err)
			b, err := r.GetThread(ctx, "u2", "u1")
			require.NoError(t, err)

			require.Len(t, a, 2)
			assert.Equal(t, a, b)
			assert.Equal(t, m1.ID, a[0].ID)
			assert.Equal(t, m2.ID, a[1].ID)
			assert.Equal(t, "ct-1", a[0].Ciphertext)
			assert.True(t, a[0].Timestamp.Before(a[1].Timestamp))
		})
	}
}

func TestRepository_EmptyThreadIsEmptySlice(t *testing.T) {
	for name, mk := range backends() {
		t.Run(name, func(t *testing.T) {
			got, err := mk().GetThread(context.Background(), "u1", "nobody")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Empty(t, got)

			all, err := mk().GetAllThreads(context.Background(), "u1")
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestRepository_SelfSendIsFiledOnce(t *testing.T) {
	for name, mk := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			r := mk()

			_, err := r.Append(ctx, "u1", "u1", "note to self")
			require.NoError(t, err)

			got, err := r.GetThread(ctx, "u1", "u1")
			require.NoError(t, err)
			assert.Len(t, got, 1)
		})
	}
}

func TestRepository_TiesOrderedByID(t *testing.T) {
	ids := []uuid.UUID{
		uuid.MustParse("ffffffff-0000-4000-8000-000000000000"),
		uuid.MustParse("00000000-0000-4000-8000-000000000000"),
	}
	var next int
	var mu sync.Mutex
	gen := func() uuid.UUID {
		mu.Lock()
		defer mu.Unlock()
		id := ids[next%len(ids)]
		next++
		return id
	}
	fixed := timex.ClockFunc(func() time.Time { return epoch })

	for name, mk := range backends(WithClock(fixed), WithIDGenerator(gen)) {
		t.Run(name, func(t *testing.T) {
			mu.Lock()
			next = 0
			mu.Unlock()

			ctx := context.Background()
			r := mk()
			_, err := r.Append(ctx, "u1", "u2", "high")
			require.NoError(t, err)
			_, err = r.Append(ctx, "u1", "u2", "low")
			require.NoError(t, err)

			got, err := r.GetThread(ctx, "u2", "u1")
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "low", got[0].Ciphertext)
			assert.Equal(t, "high", got[1].Ciphertext)
		})
	}
}

func TestRepository_LatestAndAllThreads(t *testing.T) {
	for name, mk := range backends(WithClock(&steppingClock{now: epoch, step: time.Second})) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			r := mk()

			_, err := r.Append(ctx, "u1", "u2", "a")
			require.NoError(t, err)
			_, err = r.Append(ctx, "u3", "u1", "b")
			require.NoError(t, err)
			last, err := r.Append(ctx, "u2", "u1", "c")
			require.NoError(t, err)

			all, err := r.GetAllThreads(ctx, "u1")
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Len(t, all["u2"], 2)
			assert.Len(t, all["u3"], 1)

			latest, err := r.GetLatestPerPartner(ctx, "u1")
			require.NoError(t, err)
			require.Len(t, latest, 2)
			assert.Equal(t, last.ID, latest["u2"].ID)
			assert.Equal(t, "b", latest["u3"].Ciphertext)
		})
	}
}

func TestRepository_TimestampsAreUTCMicroseconds(t *testing.T) {
	local := time.FixedZone("local", 3*3600)
	clock := timex.ClockFunc(func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 123456789, local) })

	for name, mk := range backends(WithClock(clock)) {
		t.Run(name, func(t *testing.T) {
			m, err := mk().Append(context.Background(), "u1", "u2", "x")
			require.NoError(t, err)
			assert.Equal(t, time.UTC, m.Timestamp.Location())
			assert.Equal(t, 123456000, m.Timestamp.Nanosecond())
		})
	}
}

func TestMemoryRepository_WritesLog(t *testing.T) {
	r := NewMemoryRepository()
	_, err := r.Append(context.Background(), "u1", "u2", "x")
	require.NoError(t, err)
	assert.Equal(t, 1, r.LogLen())
}

func TestMemoryRepository_ConcurrentAppends(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Append(ctx, "u1", "u2", "x")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	a, err := r.GetThread(ctx, "u1", "u2")
	require.NoError(t, err)
	b, err := r.GetThread(ctx, "u2", "u1")
	require.NoError(t, err)
	assert.Len(t, a, 50)
	assert.Equal(t, a, b)
	assert.Equal(t, 50, r.LogLen())
}
