package predict

import (
	"sync"

	"github.com/rs/zerolog"
)

// ModelCache caches loaded DNN backends keyed by model path. It is created by
// the caller and passed into the detector builder; there is no process-wide
// cache. Get-or-load is serialized so a model is loaded at most once.
type ModelCache struct {
	mu       sync.Mutex
	backends map[string]*DNNBackend
}

// NewModelCache creates an empty cache.
func NewModelCache() *ModelCache {
	return &ModelCache{backends: make(map[string]*DNNBackend)}
}

// GetOrLoad returns the cached backend for path, loading it on first use.
// Load failures are not cached; a later call retries.
func (c *ModelCache) GetOrLoad(path string, logger zerolog.Logger) (*DNNBackend, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if b, ok := c.backends[path]; ok {
		return b, nil
	}
	b, err := LoadDNN(path, logger)
	if err != nil {
		return nil, err
	}
	c.backends[path] = b
	return b, nil
}

// Close releases every cached backend. The cache is unusable afterwards.
func (c *ModelCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for path, b := range c.backends {
		if err := b.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.backends, path)
	}
	return firstErr
}
