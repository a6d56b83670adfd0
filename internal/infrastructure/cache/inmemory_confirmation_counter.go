package cache

import (
	"context"
	"sync"
	"time"
)

// counterEntry is one click counter with its fixed expiry
type counterEntry struct {
	count     int
	expiresAt time.Time
}

// InMemoryConfirmationCounter implements ConfirmationCounter with a map.
// Suitable for single-instance deployments and testing.
type InMemoryConfirmationCounter struct {
	mu        sync.Mutex
	entries   map[string]counterEntry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryConfirmationCounter creates a counter and starts its cleanup loop
func NewInMemoryConfirmationCounter() *InMemoryConfirmationCounter {
	c := &InMemoryConfirmationCounter{
		entries:  make(map[string]counterEntry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	c.wg.Add(1)
	go c.cleanupLoop()

	return c
}

// Incr adds one click. An expired counter starts over at 1 with a new window.
func (c *InMemoryConfirmationCounter) Incr(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	e, exists := c.entries[key]
	if !exists || !now.Before(e.expiresAt) {
		e = counterEntry{expiresAt: now.Add(window)}
	}
	e.count++
	c.entries[key] = e

	return e.count, e.expiresAt.Sub(now), nil
}

// Reset clears the counter
func (c *InMemoryConfirmationCounter) Reset(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (c *InMemoryConfirmationCounter) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

func (c *InMemoryConfirmationCounter) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *InMemoryConfirmationCounter) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// Size returns the number of live counters (for testing/monitoring)
func (c *InMemoryConfirmationCounter) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
