// Package session holds the signed-in user for one running process.
//
// It replaces an ambient auth store: components receive a *Context and ask it
// for the current session, or subscribe to sign-in and sign-out.
package session

import (
	"sync"
	"time"
)

// Session identifies the signed-in user.
type Session struct {
	UserID     string    `json:"user_id"`
	SignedInAt time.Time `json:"signed_in_at"`
}

// Listener is called with the new session after every change.
// ok is false after a sign-out.
type Listener func(s Session, ok bool)

// Context is the process-wide session holder. Safe for concurrent use.
type Context struct {
	mu        sync.RWMutex
	current   Session
	present   bool
	nextID    int
	listeners map[int]Listener
}

// NewContext creates an empty Context (nobody signed in).
func NewContext() *Context {
	return &Context{listeners: make(map[int]Listener)}
}

// Current returns the active session, if any.
func (c *Context) Current() (Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current, c.present
}

// UserID returns the signed-in user's id, or "" when signed out.
func (c *Context) UserID() string {
	s, ok := c.Current()
	if !ok {
		return ""
	}
	return s.UserID
}

// Set signs a user in and notifies listeners.
// A zero SignedInAt is replaced with the current time.
func (c *Context) Set(s Session) {
	if s.SignedInAt.IsZero() {
		s.SignedInAt = time.Now()
	}

	c.mu.Lock()
	c.current = s
	c.present = true
	listeners := c.snapshot()
	c.mu.Unlock()

	for _, l := range listeners {
		l(s, true)
	}
}

// Clear signs out and notifies listeners. Clearing an empty Context is a no-op.
func (c *Context) Clear() {
	c.mu.Lock()
	if !c.present {
		c.mu.Unlock()
		return
	}
	c.current = Session{}
	c.present = false
	listeners := c.snapshot()
	c.mu.Unlock()

	for _, l := range listeners {
		l(Session{}, false)
	}
}

// Subscribe registers l for session changes and returns a func that removes it.
// The returned func is safe to call more than once.
func (c *Context) Subscribe(l Listener) (unsubscribe func()) {
	c.mu.Lock()
	key := c.nextID
	c.nextID++
	c.listeners[key] = l
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, key)
			c.mu.Unlock()
		})
	}
}

// snapshot copies the listeners in registration order. Caller holds mu.
func (c *Context) snapshot() []Listener {
	out := make([]Listener, 0, len(c.listeners))
	for key := range c.nextID {
		if l, ok := c.listeners[key]; ok {
			out = append(out, l)
		}
	}
	return out
}
