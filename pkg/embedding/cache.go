package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/mesopotato/enrich-justice/internal/search"
	"github.com/mesopotato/enrich-justice/pkg/log"
)

// CachedClient memoizes embeddings in Redis, keyed by model and normalized text.
// Cache failures are logged and fall through to the wrapped client.
type CachedClient struct {
	next  Client
	rdb   *redis.Client
	model string
	ttl   time.Duration
}

// NewCachedClient wraps next. A zero ttl keeps entries until evicted.
func NewCachedClient(next Client, rdb *redis.Client, model string, ttl time.Duration) *CachedClient {
	return &CachedClient{next: next, rdb: rdb, model: model, ttl: ttl}
}

func (c *CachedClient) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)
	if blob, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		if v, err := search.DecodeVector(blob, 0); err == nil {
			return v, nil
		}
		log.Warnf("[EmbeddingCache] dropping corrupt entry %s", key)
		c.rdb.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		log.Warnf("[EmbeddingCache] get failed: %v", err)
	}

	v, err := c.next.CreateEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}
	if search.IsZero(v) {
		return v, nil
	}
	if err := c.rdb.Set(ctx, key, search.EncodeVector(v), c.ttl).Err(); err != nil {
		log.Warnf("[EmbeddingCache] set failed: %v", err)
	}
	return v, nil
}

func (c *CachedClient) key(text string) string {
	sum := sha256.Sum256([]byte(c.model + "\x00" + normalize(text)))
	return "embedding:" + hex.EncodeToString(sum[:])
}
