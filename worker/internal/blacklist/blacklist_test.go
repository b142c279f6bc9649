package blacklist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBlacklist_AddAndExpire(t *testing.T) {
	bl := New(2 * time.Minute)
	now := time.Now()
	bl.SetClock(func() time.Time { return now })

	assert.False(t, bl.Contains("w-1"))

	bl.Add("w-1")
	assert.True(t, bl.Contains("w-1"))
	assert.False(t, bl.Contains("w-2"))

	now = now.Add(3 * time.Minute)
	assert.False(t, bl.Contains("w-1"))
	assert.Equal(t, 0, bl.Len())
}

func TestBlacklist_ReAddExtendsExpiry(t *testing.T) {
	bl := New(2 * time.Minute)
	now := time.Now()
	bl.SetClock(func() time.Time { return now })

	bl.Add("w-1")
	now = now.Add(90 * time.Second)
	bl.Add("w-1")

	// The original expiry has passed, but the re-add extended it.
	now = now.Add(90 * time.Second)
	assert.True(t, bl.Contains("w-1"))
}
