package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"go.uber.org/zap"
)

// CachedTextGenerator wraps a TextGenerator and caches raw responses in a
// JSON file, so recorded model output can be replayed without API calls.
type CachedTextGenerator struct {
	realGen       TextGenerator
	cache         map[string]ContentResponse
	cacheFilePath string
	logger        *zap.Logger
	mu            sync.Mutex
}

// NewCachedTextGenerator creates a new CachedTextGenerator, loading any
// existing cache from cacheFilePath.
func NewCachedTextGenerator(realGen TextGenerator, cacheFilePath string, logger *zap.Logger) (*CachedTextGenerator, error) {
	c := &CachedTextGenerator{
		realGen:       realGen,
		cache:         make(map[string]ContentResponse),
		cacheFilePath: cacheFilePath,
		logger:        logger,
	}

	cacheDir := filepath.Dir(cacheFilePath)
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", cacheDir, err)
	}

	data, err := os.ReadFile(cacheFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("cache file not found, starting with empty cache", zap.String("path", cacheFilePath))
			return c, nil
		}
		return nil, fmt.Errorf("failed to read cache file %s: %w", cacheFilePath, err)
	}

	if err := json.Unmarshal(data, &c.cache); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data from %s: %w", cacheFilePath, err)
	}

	logger.Info("loaded cached responses", zap.Int("count", len(c.cache)), zap.String("path", cacheFilePath))
	return c, nil
}

// GenerateContent returns the cached response for req, calling the real
// generator on a miss. Failed calls are not cached.
func (c *CachedTextGenerator) GenerateContent(ctx context.Context, req Request) (ContentResponse, error) {
	key := cacheKey(req)

	c.mu.Lock()
	defer c.mu.Unlock()

	if resp, ok := c.cache[key]; ok {
		c.logger.Debug("cache hit", zap.String("key", key[:12]))
		return resp, nil
	}

	resp, err := c.realGen.GenerateContent(ctx, req)
	if err != nil {
		return ContentResponse{}, err
	}

	c.cache[key] = resp
	return resp, nil
}

// SaveCache persists the current in-memory cache to the file system.
func (c *CachedTextGenerator) SaveCache() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.MarshalIndent(c.cache, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := os.WriteFile(c.cacheFilePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file %s: %w", c.cacheFilePath, err)
	}

	c.logger.Info("saved cached responses", zap.Int("count", len(c.cache)), zap.String("path", c.cacheFilePath))
	return nil
}

func cacheKey(req Request) string {
	h := sha256.New()
	h.Write([]byte(req.System))
	h.Write([]byte{0})
	h.Write([]byte(req.User))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatFloat(float64(req.Temperature), 'f', -1, 32)))
	return hex.EncodeToString(h.Sum(nil))
}
