package agent

import (
	"fmt"
	"sync"

	"github.com/dgraph-io/ristretto"
)

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message of a parser conversation.
type Turn struct {
	Role string
	Text string
}

// SessionCache keeps a bounded per-user parser history.
// Least valuable sessions are evicted once maxSessions is reached.
type SessionCache struct {
	mu       sync.Mutex
	cache    *ristretto.Cache
	maxTurns int
}

// NewSessionCache creates a cache holding up to maxSessions users with at
// most historyLimit turns each.
func NewSessionCache(maxSessions int64, historyLimit int) (*SessionCache, error) {
	if maxSessions <= 0 {
		maxSessions = 1000
	}
	if historyLimit <= 0 {
		historyLimit = 10
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxSessions * 10,
		MaxCost:     maxSessions,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}

	return &SessionCache{cache: cache, maxTurns: historyLimit}, nil
}

// History returns a copy of the user's turns, oldest first.
func (c *SessionCache) History(userID string) []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Turn(nil), c.load(userID)...)
}

// Append adds turns to the user's history, dropping the oldest ones past
// the limit. History always starts with a user turn.
func (c *SessionCache) Append(userID string, turns ...Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	history := append(append([]Turn(nil), c.load(userID)...), turns...)
	if len(history) > c.maxTurns {
		history = history[len(history)-c.maxTurns:]
	}
	for len(history) > 0 && history[0].Role != RoleUser {
		history = history[1:]
	}

	c.cache.Set(userID, history, 1)
	c.cache.Wait()
}

// Reset forgets the user's history.
func (c *SessionCache) Reset(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Del(userID)
}

// Close releases the cache.
func (c *SessionCache) Close() {
	c.cache.Close()
}

func (c *SessionCache) load(userID string) []Turn {
	v, ok := c.cache.Get(userID)
	if !ok {
		return nil
	}
	turns, _ := v.([]Turn)
	return turns
}
