// Package cache provides the in-memory flash message store.
package cache

import (
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// Flash category names, matching the CSS classes of the index page.
const (
	CategoryError   = "error"
	CategoryWarning = "warning"
	CategoryInfo    = "info"
)

// Flash is a one-shot message shown on the next page render.
type Flash struct {
	Category string
	Message  string
}

// FlashStore keeps flash messages until they are read or expire.
type FlashStore struct {
	cache *gocache.Cache
}

// NewFlashStore creates a new FlashStore with the given TTL and cleanup interval.
func NewFlashStore(ttl, cleanupInterval time.Duration) *FlashStore {
	return &FlashStore{
		cache: gocache.New(ttl, cleanupInterval),
	}
}

// DefaultFlashStore creates a FlashStore with default settings.
// TTL: 5 minutes, Cleanup: 1 minute
func DefaultFlashStore() *FlashStore {
	return NewFlashStore(5*time.Minute, time.Minute)
}

// Push stores messages and returns the opaque id they can be read back with.
func (s *FlashStore) Push(messages ...Flash) string {
	id := uuid.NewString()
	s.cache.Set(id, messages, gocache.DefaultExpiration)
	return id
}

// Pop returns and removes the messages stored under id.
func (s *FlashStore) Pop(id string) []Flash {
	if id == "" {
		return nil
	}
	item, found := s.cache.Get(id)
	if !found {
		return nil
	}
	s.cache.Delete(id)
	messages, _ := item.([]Flash)
	return messages
}

// ItemCount returns the number of unread message sets.
func (s *FlashStore) ItemCount() int {
	return s.cache.ItemCount()
}
