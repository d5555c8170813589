package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext_SetAndClear(t *testing.T) {
	c := NewContext()

	_, ok := c.Current()
	assert.False(t, ok)
	assert.Empty(t, c.UserID())

	c.Set(Session{UserID: "alice"})
	s, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "alice", s.UserID)
	assert.False(t, s.SignedInAt.IsZero())
	assert.Equal(t, "alice", c.UserID())

	c.Clear()
	_, ok = c.Current()
	assert.False(t, ok)
}

func TestContext_Subscribe(t *testing.T) {
	c := NewContext()

	type change struct {
		userID string
		ok     bool
	}
	var got []change
	unsubscribe := c.Subscribe(func(s Session, ok bool) {
		got = append(got, change{s.UserID, ok})
	})

	c.Set(Session{UserID: "alice"})
	c.Clear()
	c.Clear() // already signed out: no notification
	c.Set(Session{UserID: "bob"})

	unsubscribe()
	unsubscribe()
	c.Clear()

	assert.Equal(t, []change{{"alice", true}, {"", false}, {"bob", true}}, got)
}

func TestContext_ListenerMaySubscribe(t *testing.T) {
	c := NewContext()

	calls := 0
	c.Subscribe(func(Session, bool) {
		calls++
		// Listeners run outside the lock.
		c.Subscribe(func(Session, bool) {})
		_, _ = c.Current()
	})

	c.Set(Session{UserID: "alice"})
	assert.Equal(t, 1, calls)
}

func TestContext_Concurrent(t *testing.T) {
	c := NewContext()
	var wg sync.WaitGroup

	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsub := c.Subscribe(func(Session, bool) {})
			if i%2 == 0 {
				c.Set(Session{UserID: "alice"})
			} else {
				c.Clear()
			}
			_ = c.UserID()
			unsub()
		}()
	}
	wg.Wait()
}
