package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestLRUCapacity(t *testing.T) {
	var evicted []string
	c := NewLRUCache[int](2, time.Minute, WithEvictHook(func(k string, _ int) {
		evicted = append(evicted, k)
	}))
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a") // a becomes most recent
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "least recently used entry evicted")
	assert.Equal(t, []string{"b"}, evicted)
	assert.Equal(t, []string{"c", "a"}, c.Keys())
	assert.Equal(t, 2, c.Size())
}

func TestLRUExpiry(t *testing.T) {
	clk := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](10, time.Minute, WithClock[string](clk.now))
	c.Set("x", "1")
	c.Set("y", "2")

	clk.advance(30 * time.Second)
	c.Set("y", "2") // refresh

	clk.advance(45 * time.Second)
	_, ok := c.Get("x")
	assert.False(t, ok)
	v, ok := c.Get("y")
	assert.True(t, ok)
	assert.Equal(t, "2", v)

	clk.advance(2 * time.Minute)
	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 0, c.Size())
}

func TestLRUDelete(t *testing.T) {
	c := NewLRUCache[int](0, time.Minute)
	c.Set("a", 1)
	c.Delete("a")
	c.Delete("missing")
	assert.Equal(t, 0, c.Size())
}

func TestManagerSweep(t *testing.T) {
	clk := &fakeClock{t: time.Now()}
	c := NewLRUCache[int](4, time.Second, WithClock[int](clk.now))
	c.Set("a", 1)
	c.Set("b", 2)

	m := NewManager(nil)
	m.Register("datasets", c)
	clk.advance(time.Hour)
	assert.Equal(t, 2, m.Sweep())

	m.StartCleanup(10 * time.Millisecond)
	m.Stop()
	m.Stop()
}
