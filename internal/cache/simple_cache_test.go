package cache

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func TestSimpleCache_SetGet_NoTTL(t *testing.T) {
	c := NewSimpleCache[string, int](Options{})
	c.Set("a", 1, 0)

	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)
	require.Equal(t, 1, c.Len())
}

func TestSimpleCache_TTL_Expiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewSimpleCache[string, string](Options{Now: clock.Now})

	c.Set("k", "v", time.Second)
	_, ok := c.Get("k")
	require.True(t, ok, "expected hit before expiry")

	clock.Advance(2 * time.Second)
	_, ok = c.Get("k")
	require.False(t, ok, "expected miss after expiry")

	c.PurgeExpired()
	require.Equal(t, 0, c.Len())
}

func TestSimpleCache_DefaultTTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewSimpleCache[string, int](Options{DefaultTTL: time.Minute, Now: clock.Now})

	c.Set("k", 1, 0)
	clock.Advance(30 * time.Second)
	require.Equal(t, 1, c.Len())

	clock.Advance(time.Minute)
	require.Equal(t, 0, c.Len())
}

func TestSimpleCache_GetOrLoad(t *testing.T) {
	c := NewSimpleCache[string, int](Options{})
	calls := 0
	load := func() (int, error) {
		calls++
		return 42, nil
	}

	v, err := c.GetOrLoad("answer", load)
	require.NoError(t, err)
	require.Equal(t, 42, v)

	v, err = c.GetOrLoad("answer", load)
	require.NoError(t, err)
	require.Equal(t, 42, v)
	require.Equal(t, 1, calls)

	errBoom := errors.New("boom")
	_, err = c.GetOrLoad("missing", func() (int, error) { return 0, errBoom })
	require.ErrorIs(t, err, errBoom)
	_, ok := c.Get("missing")
	require.False(t, ok, "failed loads must not be cached")
}

func TestSimpleCache_Delete_Clear(t *testing.T) {
	c := NewSimpleCache[int, int](Options{})
	c.Set(1, 10, 0)
	c.Set(2, 20, 0)

	c.Delete(1)
	_, ok := c.Get(1)
	require.False(t, ok)
	require.Equal(t, 1, c.Len())

	c.Clear()
	require.Equal(t, 0, c.Len())
}

func TestSimpleCache_Concurrent(t *testing.T) {
	keys, rounds := 100, 200
	c := NewSimpleCache[int, int](Options{})

	var wg sync.WaitGroup
	for i := 0; i < keys; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				c.Set(i, r, 0)
				_, _ = c.Get(i)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < keys; i++ {
		v, ok := c.Get(i)
		require.True(t, ok)
		require.Equal(t, rounds-1, v)
	}
}
