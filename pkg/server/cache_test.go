package server

import (
	"context"
	"sync"
	"time"
)

type countCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newCountCache() *countCache { return &countCache{data: map[string][]byte{}} }

func (c *countCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.data[key]
	return data, ok, nil
}

func (c *countCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	return nil
}

func (c *countCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *countCache) Close() error { return nil }
