package fitness

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/whr0724/genprog-code/internal/rep"
)

// CachedEvaluator wraps an Evaluator with a persistent score cache keyed by
// the variant's history fingerprint, so identical edit histories skip
// recompilation across generations and runs.
type CachedEvaluator struct {
	inner Evaluator
	db    *badger.DB

	hits   atomic.Int64
	misses atomic.Int64
}

// OpenCachedEvaluator opens (or creates) the cache database at dir.
func OpenCachedEvaluator(inner Evaluator, dir string) (*CachedEvaluator, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open fitness cache %s: %w", dir, err)
	}

	return &CachedEvaluator{inner: inner, db: db}, nil
}

// Close releases the cache database.
func (c *CachedEvaluator) Close() error {
	return c.db.Close()
}

// MaxFitness delegates to the wrapped evaluator.
func (c *CachedEvaluator) MaxFitness() float64 {
	return c.inner.MaxFitness()
}

// Stats returns cache hit and miss counts for the session.
func (c *CachedEvaluator) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Evaluate returns the cached score when the fingerprint is known and
// otherwise delegates and stores the result.
func (c *CachedEvaluator) Evaluate(ctx context.Context, r rep.Representation) (float64, error) {
	key := []byte(r.Fingerprint())

	if score, ok := c.lookup(key); ok {
		c.hits.Add(1)
		return score, nil
	}

	c.misses.Add(1)

	score, err := c.inner.Evaluate(ctx, r)
	if err != nil {
		return score, err
	}

	if err := c.record(key, score); err != nil {
		slog.Warn("failed to record fitness in cache", "error", err)
	}

	return score, nil
}

func (c *CachedEvaluator) lookup(key []byte) (float64, bool) {
	var score float64

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("fitness cache entry has %d bytes", len(val))
			}

			score = math.Float64frombits(binary.BigEndian.Uint64(val))

			return nil
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			slog.Warn("fitness cache lookup failed", "error", err)
		}

		return 0, false
	}

	return score, true
}

func (c *CachedEvaluator) record(key []byte, score float64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(score))

	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, buf[:])
	})
}
