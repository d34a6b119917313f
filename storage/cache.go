// Package storage caches resolution service responses in NATS KV so
// repeated lookups (common when enriching CSV batches) skip the network.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/eKathleenCarter/RoboMCP-CodeBurst/resolve"
)

// Bucket names for each cached response kind.
const (
	BucketCURIECache = "ROBOMCP_CURIE_CACHE"
	BucketTypeCache  = "ROBOMCP_TYPE_CACHE"
)

// DefaultTTL bounds how long cached responses stay valid. Upstream
// vocabularies change rarely, so an hour is conservative.
const DefaultTTL = time.Hour

// Cache holds the KV buckets backing the resolution caches.
type Cache struct {
	curies jetstream.KeyValue
	types  jetstream.KeyValue
}

// NewCache creates the cache buckets if they don't exist. A zero ttl
// falls back to DefaultTTL.
func NewCache(ctx context.Context, js jetstream.JetStream, ttl time.Duration) (*Cache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	curies, err := getOrCreateBucket(ctx, js, BucketCURIECache, ttl)
	if err != nil {
		return nil, fmt.Errorf("create CURIE cache bucket: %w", err)
	}

	types, err := getOrCreateBucket(ctx, js, BucketTypeCache, ttl)
	if err != nil {
		return nil, fmt.Errorf("create type cache bucket: %w", err)
	}

	return &Cache{curies: curies, types: types}, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string, ttl time.Duration) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	// Bucket doesn't exist, create it
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: fmt.Sprintf("RoboMCP %s", strings.ToLower(strings.ReplaceAll(name, "_", " "))),
		TTL:         ttl,
	})
}

// getStrings loads a cached string list.
func getStrings(ctx context.Context, kv jetstream.KeyValue, key string) ([]string, error) {
	entry, err := kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	var values []string
	if err := json.Unmarshal(entry.Value(), &values); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return values, nil
}

// putStrings stores a string list under key.
func putStrings(ctx context.Context, kv jetstream.KeyValue, key string, values []string) error {
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if _, err := kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// CachedResolver wraps a CURIE resolver with KV caching. A nil cache
// passes every call straight through.
type CachedResolver struct {
	inner  resolve.CURIEResolver
	cache  *Cache
	logger *slog.Logger
}

// NewCachedResolver creates a caching layer over a CURIE resolver.
func NewCachedResolver(inner resolve.CURIEResolver, cache *Cache, logger *slog.Logger) *CachedResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedResolver{inner: inner, cache: cache, logger: logger}
}

// LookupCURIEs returns cached identifiers when the same lookup was
// answered recently, otherwise asks the wrapped resolver.
func (r *CachedResolver) LookupCURIEs(ctx context.Context, req resolve.LookupRequest) ([]string, error) {
	if r.cache == nil {
		return r.inner.LookupCURIEs(ctx, req)
	}

	key := lookupKey(req)
	if cached, err := getStrings(ctx, r.cache.curies, key); err == nil {
		r.logger.Debug("CURIE cache hit", "query", req.Query)
		return cached, nil
	} else if !errors.Is(err, ErrNotFound) {
		r.logger.Debug("CURIE cache read failed", "query", req.Query, "error", err)
	}

	curies, err := r.inner.LookupCURIEs(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := putStrings(ctx, r.cache.curies, key, curies); err != nil {
		r.logger.Warn("CURIE cache write failed", "query", req.Query, "error", err)
	}
	return curies, nil
}

// CachedNormalizer wraps a type resolver with KV caching. A nil cache
// passes every call straight through.
type CachedNormalizer struct {
	inner  resolve.TypeResolver
	cache  *Cache
	logger *slog.Logger
}

// NewCachedNormalizer creates a caching layer over a type resolver.
func NewCachedNormalizer(inner resolve.TypeResolver, cache *Cache, logger *slog.Logger) *CachedNormalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedNormalizer{inner: inner, cache: cache, logger: logger}
}

// TypesForCURIEs returns the cached type union for an identifier list,
// otherwise asks the wrapped resolver.
func (n *CachedNormalizer) TypesForCURIEs(ctx context.Context, curies []string) ([]string, error) {
	if n.cache == nil {
		return n.inner.TypesForCURIEs(ctx, curies)
	}

	key := typesKey(curies)
	if cached, err := getStrings(ctx, n.cache.types, key); err == nil {
		n.logger.Debug("Type cache hit", "curies", len(curies))
		return cached, nil
	} else if !errors.Is(err, ErrNotFound) {
		n.logger.Debug("Type cache read failed", "error", err)
	}

	types, err := n.inner.TypesForCURIEs(ctx, curies)
	if err != nil {
		return nil, err
	}

	if err := putStrings(ctx, n.cache.types, key, types); err != nil {
		n.logger.Warn("Type cache write failed", "error", err)
	}
	return types, nil
}

// lookupKey derives a KV key from every request field that affects the
// response.
func lookupKey(req resolve.LookupRequest) string {
	parts := []string{
		req.Query,
		strconv.Itoa(req.Limit),
		req.BiolinkType,
		strings.Join(req.OnlyPrefixes, ","),
	}
	return hashKey("lookup", parts...)
}

// typesKey derives a KV key from an ordered identifier list. Order
// matters: the type union preserves first-seen order.
func typesKey(curies []string) string {
	return hashKey("types", curies...)
}

// hashKey builds a NATS-safe KV key from arbitrary strings.
func hashKey(kind string, parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return kind + "." + hex.EncodeToString(h[:16])
}
