package ledger

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cardano-ibc/gateway/metrics"
)

// DefaultDatumCacheSize bounds the number of decoded datums kept in memory.
const DefaultDatumCacheSize = 4096

// DatumCache memoises decoded datums by output reference. Outputs are
// immutable once created so entries never go stale.
type DatumCache struct {
	cache   *lru.Cache[string, any]
	metrics metrics.Proxy
}

func NewDatumCache(size int, m metrics.Proxy) (*DatumCache, error) {
	if size <= 0 {
		size = DefaultDatumCacheSize
	}
	c, err := lru.New[string, any](size)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = &metrics.NilMetrics{}
	}
	return &DatumCache{cache: c, metrics: m}, nil
}

func (c *DatumCache) Len() int { return c.cache.Len() }

// Decode returns the datum of u decoded by decode, caching the result under
// the output reference and schema.
func Decode[T any](c *DatumCache, u UTXO, schema string, decode func([]byte) (T, error)) (T, error) {
	key := u.Ref() + "/" + schema
	if c != nil {
		if v, ok := c.cache.Get(key); ok {
			if t, ok := v.(T); ok {
				c.metrics.IncrCounter(1, metrics.KeyCache, "hit")
				return t, nil
			}
		}
	}
	t, err := decode(u.Datum)
	if err != nil {
		return t, err
	}
	if c != nil {
		c.metrics.IncrCounter(1, metrics.KeyCache, "miss")
		c.cache.Add(key, t)
	}
	return t, nil
}
