package cache

import (
	"strconv"
	"time"
)

// Cache stores rendered response bodies with a TTL.
type Cache interface {
	// Get returns the value and true if found and not expired.
	Get(key string) ([]byte, bool)
	// Set stores value; a ttl of 0 uses the cache default.
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)
	Clear()
	Stats() Stats
}

// Stats represents cache statistics.
type Stats struct {
	Hits      uint64
	Misses    uint64
	KeysAdded uint64
	Evictions uint64
	Size      int64 // approximate bytes
	Items     int64
}

// VersionKey names a rendered view of one city version. A version bump
// makes every older key unreachable, so entries never need invalidating.
func VersionKey(view string, version uint64) string {
	return view + ":" + strconv.FormatUint(version, 10)
}
