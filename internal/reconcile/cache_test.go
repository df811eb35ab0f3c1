package reconcile

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studysync/internal/models"
)

func TestCache_AddContainsRemove(t *testing.T) {
	c := NewCache()
	sig := models.Signature{Key: "ana a", Level: "A1"}

	assert.False(t, c.Contains(sig))
	c.Add(sig)
	c.Add(sig)
	assert.True(t, c.Contains(sig))
	assert.Equal(t, 1, c.Len())
	assert.False(t, c.Contains(models.Signature{Key: "ana a", Level: "A2"}))

	c.Remove(sig)
	assert.False(t, c.Contains(sig))
	assert.Zero(t, c.Len())
}

func TestCache_ReplaceAndClear(t *testing.T) {
	c := NewCache()
	c.Add(models.Signature{Key: "old", Level: "A1"})

	c.Replace([]models.Signature{{Key: "a", Level: "A1"}, {Key: "b", Level: "B1"}, {Key: "a", Level: "A1"}})
	assert.Equal(t, 2, c.Len())
	assert.False(t, c.Contains(models.Signature{Key: "old", Level: "A1"}))
	assert.ElementsMatch(t, []models.Signature{{Key: "a", Level: "A1"}, {Key: "b", Level: "B1"}}, c.Snapshot())

	c.Clear()
	assert.Zero(t, c.Len())
	assert.Empty(t, c.Snapshot())
}

func TestCache_GuardSerializesSameKey(t *testing.T) {
	c := NewCache()
	release := c.Guard("ana a")

	acquired := make(chan struct{})
	go func() {
		r := c.Guard("ana a")
		close(acquired)
		r()
	}()

	select {
	case <-acquired:
		t.Fatal("second guard acquired while first was held")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second guard never acquired")
	}
}

func TestCache_GuardDifferentKeysIndependent(t *testing.T) {
	c := NewCache()
	release := c.Guard("a")
	defer release()

	done := make(chan struct{})
	go func() {
		c.Guard("b")()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("guard on a different key blocked")
	}
}

func TestCache_GuardEntriesAreReleased(t *testing.T) {
	c := NewCache()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := []string{"a", "b", "c"}[i%3]
			release := c.Guard(key)
			release()
			release() // idempotent
		}(i)
	}
	wg.Wait()
	require.Zero(t, c.guardCount())
}
