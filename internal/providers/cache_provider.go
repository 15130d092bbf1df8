package providers

import (
	"github.com/coocood/freecache"
	"spd/internal/structures"
	"unsafe"
)

const defaultCacheTTLSeconds = 3600

// freecache splits its memory into 256 segments and refuses entries larger
// than a quarter of one segment.
const freecacheEntryDivisor = 1024

type CacheProviderInterface interface {
	Get(key string) ([]byte, bool)
	// Set stores value under key. It fails when the cache refuses the
	// entry, for example because value exceeds MaxEntrySize.
	Set(key string, value []byte) error
}

type CacheProvider struct {
	cache *freecache.Cache
	ttl   int
}

func NewCacheProvider(conf *structures.Config, logger Logger) CacheProviderInterface {
	if !conf.Cache.Enabled || conf.Cache.Size <= 0 {
		logger.Infof(TypeApp, "Cache disabled")
		return &noopCache{}
	}

	sizeBytes := conf.Cache.Size * 1024 * 1024
	ttl := int(conf.Cache.TTL.Seconds())
	if ttl <= 0 {
		ttl = defaultCacheTTLSeconds
	}

	logger.Infof(TypeApp, "Cache initialized: %dMB, TTL=%ds, max entry %d bytes", conf.Cache.Size, ttl, MaxEntrySize(conf.Cache.Size))

	return &CacheProvider{
		cache: freecache.NewCache(sizeBytes),
		ttl:   ttl,
	}
}

// unsafeStringToBytes converts string to []byte without allocation.
// Safe when the result is only read (not modified), which is the case
// for freecache — it copies keys internally.
func unsafeStringToBytes(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

func (c *CacheProvider) Get(key string) ([]byte, bool) {
	val, err := c.cache.Get(unsafeStringToBytes(key))
	if err != nil {
		return nil, false
	}
	return val, true
}

func (c *CacheProvider) Set(key string, value []byte) error {
	return c.cache.Set(unsafeStringToBytes(key), value, c.ttl)
}

// MaxEntrySize is the approximate largest value a cache of sizeMB megabytes
// accepts.
func MaxEntrySize(sizeMB int) int {
	return sizeMB * 1024 * 1024 / freecacheEntryDivisor
}

type noopCache struct{}

func (n *noopCache) Get(_ string) ([]byte, bool)  { return nil, false }
func (n *noopCache) Set(_ string, _ []byte) error { return nil }
