// Package seedstore persists per-chain seed endpoint lists.
//
// The store is a small bbolt database with one bucket per chain. Each bucket
// maps a monotonically increasing sequence number to an endpoint string, so
// listings come back in insertion order. Operators edit the lists through the
// CLI; the HTTP layer reads them to drive probe batches.
package seedstore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Store errors.
var (
	ErrSeedExists   = errors.New("seed endpoint already stored")
	ErrSeedNotFound = errors.New("seed endpoint not found")
)

// Store is a bbolt-backed seed endpoint directory.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the seed store at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open seed store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func seq(n uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], n)
	return b[:]
}

// Put appends endpoint to the chain's seed list. Duplicate endpoints within
// one chain are rejected.
func (s *Store) Put(chain, endpoint string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(chain))
		if err != nil {
			return err
		}
		var exists bool
		b.ForEach(func(_, v []byte) error {
			if bytes.Equal(v, []byte(endpoint)) {
				exists = true
			}
			return nil
		})
		if exists {
			return fmt.Errorf("%w: %s/%s", ErrSeedExists, chain, endpoint)
		}
		n, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(seq(n), []byte(endpoint))
	})
}

// Remove deletes endpoint from the chain's seed list.
func (s *Store) Remove(chain, endpoint string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(chain))
		if b == nil {
			return fmt.Errorf("%w: %s/%s", ErrSeedNotFound, chain, endpoint)
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if bytes.Equal(v, []byte(endpoint)) {
				return b.Delete(k)
			}
		}
		return fmt.Errorf("%w: %s/%s", ErrSeedNotFound, chain, endpoint)
	})
}

// Seeds returns the chain's endpoints in insertion order. An unknown chain
// yields an empty list, not an error.
func (s *Store) Seeds(chain string) ([]string, error) {
	var seeds []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(chain))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			seeds = append(seeds, string(v))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return seeds, nil
}

// Chains lists every chain with a stored seed list.
func (s *Store) Chains() ([]string, error) {
	var chains []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			chains = append(chains, string(name))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return chains, nil
}

// EnsureDefaults seeds every known chain whose bucket is still empty with
// its built-in endpoint list. Chains an operator already populated (or
// emptied) by hand are left alone only if they contain entries.
func (s *Store) EnsureDefaults() error {
	for _, chain := range DefaultChains() {
		existing, err := s.Seeds(chain)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			continue
		}
		for _, endpoint := range DefaultSeeds(chain) {
			if err := s.Put(chain, endpoint); err != nil {
				return err
			}
		}
	}
	return nil
}
