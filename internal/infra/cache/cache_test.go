package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlashStorePopOnce(t *testing.T) {
	s := DefaultFlashStore()
	id := s.Push(Flash{Category: CategoryError, Message: "Error: No YouTube URL provided."})
	require.NotEmpty(t, id)

	got := s.Pop(id)
	require.Len(t, got, 1)
	assert.Equal(t, "Error: No YouTube URL provided.", got[0].Message)
	assert.Equal(t, CategoryError, got[0].Category)

	assert.Nil(t, s.Pop(id))
	assert.Zero(t, s.ItemCount())
}

func TestFlashStoreUnknownID(t *testing.T) {
	s := DefaultFlashStore()
	assert.Nil(t, s.Pop(""))
	assert.Nil(t, s.Pop("not-there"))
}

func TestFlashStoreExpiry(t *testing.T) {
	s := NewFlashStore(10*time.Millisecond, time.Hour)
	id := s.Push(Flash{Category: CategoryInfo, Message: "hello"})

	time.Sleep(30 * time.Millisecond)
	assert.Nil(t, s.Pop(id))
}

func TestFlashStoreDistinctIDs(t *testing.T) {
	s := DefaultFlashStore()
	a := s.Push(Flash{Message: "a"})
	b := s.Push(Flash{Message: "b"})

	assert.NotEqual(t, a, b)
	assert.Equal(t, "b", s.Pop(b)[0].Message)
	assert.Equal(t, "a", s.Pop(a)[0].Message)
}
