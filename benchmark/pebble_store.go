package benchmark

import (
	"errors"

	"github.com/cockroachdb/pebble"
	"github.com/rs/zerolog/log"
)

// PebbleStore implements RecordStore on top of Pebble
type PebbleStore struct {
	db    *pebble.DB
	cache *pebble.Cache
}

// StoreStats is a small view of the Pebble internals logged after a run
type StoreStats struct {
	MemTableSize  uint64
	CompactionOps int64
	FlushOps      int64
	CacheSize     int64
	CacheHits     int64
	CacheMisses   int64
}

// NewPebbleStore opens (or creates) a Pebble database at cfg.Path
func NewPebbleStore(cfg StoreConfig) (*PebbleStore, error) {
	opts := &pebble.Options{Logger: pebbleLogger{}}

	if cfg.ReadOnly {
		opts.ReadOnly = true
	}

	var cache *pebble.Cache
	if cfg.BlockCacheSize >= 0 {
		cache = pebble.NewCache(cfg.BlockCacheSize)
		opts.Cache = cache

		log.Debug().
			Int64("block_cache_size", cfg.BlockCacheSize).
			Msg("Created Pebble with block cache")
	} else {
		log.Debug().Msg("Created Pebble with block cache disabled")
	}

	db, err := pebble.Open(cfg.Path, opts)
	if err != nil {
		if cache != nil {
			cache.Unref()
		}
		return nil, err
	}

	return &PebbleStore{
		db:    db,
		cache: cache,
	}, nil
}

// Put implements RecordStore.Put for Pebble
func (p *PebbleStore) Put(sessionID string, m Metrics) error {
	if p.db == nil {
		return ErrStoreClosed
	}
	if err := ValidateSessionID(sessionID); err != nil {
		return err
	}
	raw, err := encodeRecord(m)
	if err != nil {
		return err
	}
	return p.db.Set(recordKey(sessionID, m.MessageID), raw, pebble.NoSync)
}

// Get implements RecordStore.Get for Pebble
func (p *PebbleStore) Get(sessionID string, messageID uint32) (Metrics, error) {
	if p.db == nil {
		return Metrics{}, ErrStoreClosed
	}
	if err := ValidateSessionID(sessionID); err != nil {
		return Metrics{}, err
	}
	value, closer, err := p.db.Get(recordKey(sessionID, messageID))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return Metrics{}, ErrRecordNotFound
		}
		return Metrics{}, err
	}
	defer closer.Close()
	return decodeRecord(value)
}

// Records implements RecordStore.Records for Pebble
func (p *PebbleStore) Records(sessionID string) ([]Metrics, error) {
	if p.db == nil {
		return nil, ErrStoreClosed
	}
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	opts := &pebble.IterOptions{}
	if prefix := sessionPrefix(sessionID); prefix != nil {
		opts.LowerBound = prefix
		opts.UpperBound = prefixUpperBound(prefix)
	}

	iter, err := p.db.NewIter(opts)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []Metrics
	for iter.First(); iter.Valid(); iter.Next() {
		m, err := decodeRecord(iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, iter.Error()
}

// Flush implements RecordStore.Flush for Pebble
func (p *PebbleStore) Flush() error {
	if p.db == nil {
		return ErrStoreClosed
	}
	return p.db.Flush()
}

// Close implements RecordStore.Close for Pebble
func (p *PebbleStore) Close() error {
	var err error
	if p.db != nil {
		err = p.db.Close()
		p.db = nil
	}

	if p.cache != nil {
		p.cache.Unref()
		p.cache = nil
	}

	return err
}

// Stats returns a snapshot of Pebble's internal counters
func (p *PebbleStore) Stats() StoreStats {
	var stats StoreStats
	if p.db == nil {
		return stats
	}

	m := p.db.Metrics()
	stats.MemTableSize = m.MemTable.Size
	stats.CompactionOps = m.Compact.Count
	stats.FlushOps = m.Flush.Count

	if p.cache != nil {
		cm := p.cache.Metrics()
		stats.CacheSize = cm.Size
		stats.CacheHits = cm.Hits
		stats.CacheMisses = cm.Misses
	}
	return stats
}

// pebbleLogger routes Pebble's internal messages through zerolog
type pebbleLogger struct{}

func (pebbleLogger) Infof(format string, args ...interface{}) {
	log.Debug().Str("component", "pebble").Msgf(format, args...)
}

func (pebbleLogger) Fatalf(format string, args ...interface{}) {
	log.Fatal().Str("component", "pebble").Msgf(format, args...)
}

// prefixUpperBound returns the smallest key greater than every key with prefix
func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
