package oracle

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ethereum-optimism/optimism/op-program/client/preimage"
)

// defaultCacheSize bounds the caching oracle's working set; preimages that
// fall out of the LRU are simply re-fetched from the host on next access.
const defaultCacheSize = 2048

// CachingOracle wraps the oracle pipe client with a bounded LRU, so that a
// key touched repeatedly during one program run (trie sibling reuse, block
// header reread) costs one round trip instead of one per touch (spec §4.4).
// It does not derive hints on its own: callers that know the shape of what
// they are about to fetch (client/l1, client/l2) issue the hint first, then
// call Get.
type CachingOracle struct {
	client *preimage.OracleClient
	hints  *preimage.HintWriter
	cache  *lru.Cache[preimage.Key, []byte]
}

// NewCachingOracle wraps an oracle pipe client and hint writer with a bounded cache.
func NewCachingOracle(client *preimage.OracleClient, hints *preimage.HintWriter) *CachingOracle {
	cache, err := lru.New[preimage.Key, []byte](defaultCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which defaultCacheSize never is.
		panic(err)
	}
	return &CachingOracle{client: client, hints: hints, cache: cache}
}

// Get resolves key, serving from the cache when possible.
func (o *CachingOracle) Get(key preimage.Key) ([]byte, error) {
	if data, ok := o.cache.Get(key); ok {
		return data, nil
	}
	data, err := o.client.Get(key)
	if err != nil {
		return nil, err
	}
	o.cache.Add(key, data)
	return data, nil
}

// GetExact resolves key into dest, serving from the cache when possible.
func (o *CachingOracle) GetExact(key preimage.Key, dest []byte) error {
	if data, ok := o.cache.Get(key); ok {
		if len(data) != len(dest) {
			return &exactLengthMismatch{want: len(dest), got: len(data)}
		}
		copy(dest, data)
		return nil
	}
	if err := o.client.GetExact(key, dest); err != nil {
		return err
	}
	o.cache.Add(key, append([]byte(nil), dest...))
	return nil
}

// Hint forwards hint to the host over the hint pipe and blocks for its ack.
func (o *CachingOracle) Hint(hint string) {
	// A hint is advisory: the worst a failed or stale hint can do is slow
	// the next Get down to the host's default lookup path, never corrupt
	// it (spec §4.2), so an error here is discarded, not fatal.
	_ = o.hints.Hint(hint)
}

type exactLengthMismatch struct {
	want, got int
}

func (e *exactLengthMismatch) Error() string {
	return "oracle: cached preimage length mismatch"
}
