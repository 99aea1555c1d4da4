package records

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/professorSergio12/Stock-Broker/config"
	"github.com/professorSergio12/Stock-Broker/filters"
	"github.com/professorSergio12/Stock-Broker/models"
	"github.com/sirupsen/logrus"
)

// cacheKeySet tracks every key written so an import can drop them all.
const cacheKeySet = "records:keys"

// Cache keeps aggregate read results in redis. A nil *Cache is a no-op, as is
// a Cache used before redis is connected.
type Cache struct {
	ttl time.Duration
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl}
}

// Key builds a cache key from a view name, the table and the active filters.
func Key(view, table string, p filters.Params, extra ...string) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(p[k])
		b.WriteByte('&')
	}
	for _, e := range extra {
		b.WriteString(e)
		b.WriteByte('&')
	}
	sum := sha1.Sum([]byte(b.String()))
	return "records:" + view + ":" + table + ":" + hex.EncodeToString(sum[:8])
}

// Get loads key into dest and reports a hit. Redis errors count as a miss.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	if c == nil {
		return false
	}
	ok, err := config.GetRedisObject(ctx, key, dest)
	if err != nil {
		config.LogError(config.GetLogger(), "records", "Cache.Get", "read cache", key, err)
		return false
	}
	return ok
}

func (c *Cache) Set(ctx context.Context, key string, v any) {
	if c == nil {
		return
	}
	if err := config.SetRedisObject(ctx, key, v, c.ttl); err != nil {
		config.LogError(config.GetLogger(), "records", "Cache.Set", "write cache", key, err)
		return
	}
	if err := config.AddRedisSet(ctx, cacheKeySet, key); err != nil {
		config.LogError(config.GetLogger(), "records", "Cache.Set", "track key", key, err)
	}
}

// Invalidate drops every cached view.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c == nil {
		return nil
	}
	keys, err := config.GetRedisSetMembers(ctx, cacheKeySet)
	if err != nil {
		return err
	}
	return config.RemoveRedisKey(ctx, append(keys, cacheKeySet)...)
}

// InvalidateOnImport is an import finish hook: any import that wrote rows
// makes the cached aggregates stale.
func (c *Cache) InvalidateOnImport(ctx context.Context, job models.ImportJob) {
	if c == nil || job.Imported == 0 {
		return
	}
	if err := c.Invalidate(ctx); err != nil {
		config.LogError(config.GetLogger(), "records", "Cache.InvalidateOnImport", "invalidate", job.ID, err)
		return
	}
	config.GetLogger().WithFields(logrus.Fields{
		"module":   "records",
		"importId": job.ID,
	}).Debug("records cache invalidated")
}
