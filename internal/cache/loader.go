// Package cache loads the cleaned price matrix through an explicit Redis
// cache keyed by the store fingerprint. The key changes whenever ingestion
// adds rows, so a stale matrix can never be served across store updates;
// there is no implicit process-wide caching anywhere. Redis being down
// degrades to direct store reads.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"quantdash/internal/metrics"
	"quantdash/internal/model"
	"quantdash/internal/store/sqlite"

	goredis "github.com/go-redis/redis/v8"
)

const keyPrefix = "quantdash:matrix:"

// RedisConfig configures the cache connection.
type RedisConfig struct {
	Addr     string
	Password string
}

// NewRedis connects to Redis and pings the server.
func NewRedis(cfg RedisConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[cache] connected to redis at %s", cfg.Addr)
	return client, nil
}

// Loader reads the price matrix from SQLite through the Redis cache.
type Loader struct {
	reader *sqlite.Reader
	rdb    *goredis.Client // nil disables caching
	ttl    time.Duration

	// Metrics is optional; when set, cache hits/misses are counted.
	Metrics *metrics.Metrics
}

// NewLoader wraps a store reader with the matrix cache. rdb may be nil.
func NewLoader(reader *sqlite.Reader, rdb *goredis.Client, ttl time.Duration) *Loader {
	return &Loader{reader: reader, rdb: rdb, ttl: ttl}
}

// Fingerprint returns the current store fingerprint.
func (l *Loader) Fingerprint(ctx context.Context) (string, error) {
	return l.reader.Fingerprint(ctx)
}

// Reader exposes the underlying store for handlers needing ticker metadata.
func (l *Loader) Reader() *sqlite.Reader { return l.reader }

// Load returns the full cleaned price matrix and the fingerprint it was
// built from. An empty store surfaces sqlite.ErrEmptyStore so the caller
// can direct the user to run ingestion.
func (l *Loader) Load(ctx context.Context) (*model.PriceMatrix, string, error) {
	fp, err := l.reader.Fingerprint(ctx)
	if err != nil {
		return nil, "", err
	}
	if fp == "0-" {
		return nil, fp, sqlite.ErrEmptyStore
	}

	if l.rdb != nil {
		data, err := l.rdb.Get(ctx, keyPrefix+fp).Bytes()
		switch {
		case err == nil:
			var m model.PriceMatrix
			if err := json.Unmarshal(data, &m); err == nil {
				if l.Metrics != nil {
					l.Metrics.CacheHits.Inc()
				}
				return &m, fp, nil
			}
			log.Printf("[cache] corrupt cached matrix for %s, reloading: %v", fp, err)
		case err != goredis.Nil:
			log.Printf("[cache] redis get failed, reading store directly: %v", err)
		}
	}

	if l.Metrics != nil {
		l.Metrics.CacheMisses.Inc()
	}
	start := time.Now()
	points, err := l.reader.LoadClosePrices(ctx)
	if l.Metrics != nil {
		l.Metrics.SQLiteDur.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, fp, err
	}
	m := model.Pivot(points)

	if l.rdb != nil {
		if data, err := json.Marshal(m); err == nil {
			if err := l.rdb.Set(ctx, keyPrefix+fp, data, l.ttl).Err(); err != nil {
				log.Printf("[cache] redis set failed: %v", err)
			}
		}
	}
	return m, fp, nil
}

// Invalidate deletes every cached matrix, regardless of fingerprint.
func (l *Loader) Invalidate(ctx context.Context) error {
	if l.rdb == nil {
		return nil
	}
	iter := l.rdb.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := l.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache del: %w", err)
	}
	log.Printf("[cache] invalidated %d cached matrices", len(keys))
	return nil
}
