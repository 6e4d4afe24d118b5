package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusCache_GetMiss(t *testing.T) {
	cache := NewStatusCache(time.Minute)
	_, ok := cache.Get("example.com")
	assert.False(t, ok)
}

func TestStatusCache_SetThenGet(t *testing.T) {
	cache := NewStatusCache(time.Minute)
	cache.Set("example.com", `{"foo":"bar"}`)

	response, ok := cache.Get("example.com")
	assert.True(t, ok)
	assert.Equal(t, `{"foo":"bar"}`, response)
}

func TestStatusCache_ExpiredEntryIsMiss(t *testing.T) {
	cache := NewStatusCache(time.Millisecond)
	cache.Set("example.com", `{"foo":"bar"}`)

	time.Sleep(5 * time.Millisecond)

	_, ok := cache.Get("example.com")
	assert.False(t, ok)
}
