// Package rpccache memoizes RPC call outcomes within one logical operation.
//
// A dashboard request typically needs the same pieces of node state several
// times (is the node online, what does get_info say, ...). Each distinct
// (node, method, args) key triggers at most one real call per scope; every
// other request for the key gets the stored outcome, including stored
// failures, so a flapping node is not hammered with retries from within a
// single operation. Scopes are explicit: the caller clears a node's entries
// before starting a new operation. There is no time-based expiry.
package rpccache

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/zeebo/blake3"
)

// CallFunc performs the real underlying call on a cache miss.
type CallFunc func(ctx context.Context) (json.RawMessage, error)

// entry is one resolved-or-resolving cache slot. done is closed once result
// and err are final; they are never written again afterwards.
type entry struct {
	done   chan struct{}
	result json.RawMessage
	err    error
}

// Cache memoizes call outcomes per node scope.
type Cache struct {
	mu     sync.Mutex
	scopes map[string]map[[32]byte]*entry

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		scopes: make(map[string]map[[32]byte]*entry),
	}
}

// key derives a fixed-size digest for (node, method, args). Args are
// serialized to JSON; an ordered argument list has exactly one encoding, so
// equal argument tuples collapse onto the same key.
func key(nodeKey, method string, args []interface{}) ([32]byte, error) {
	encoded, err := json.Marshal(args)
	if err != nil {
		return [32]byte{}, err
	}

	h := blake3.New()
	h.Write([]byte(nodeKey))
	h.Write([]byte{0})
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write(encoded)

	var digest [32]byte
	h.Digest().Read(digest[:])
	return digest, nil
}

// Clear drops every cached entry for the given node, starting a fresh
// scope. In-flight calls from the previous scope finish against their old
// entries and are not observed by the new scope.
func (c *Cache) Clear(nodeKey string) {
	c.mu.Lock()
	delete(c.scopes, nodeKey)
	c.mu.Unlock()
}

// CallCached returns the cached outcome for (nodeKey, method, args),
// invoking call at most once per scope to resolve it. Concurrent requests
// for an unresolved key block until the single in-flight call completes, or
// until their own context is done.
func (c *Cache) CallCached(ctx context.Context, nodeKey, method string, args []interface{}, call CallFunc) (json.RawMessage, error) {
	k, err := key(nodeKey, method, args)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	scope, ok := c.scopes[nodeKey]
	if !ok {
		scope = make(map[[32]byte]*entry)
		c.scopes[nodeKey] = scope
	}
	if e, ok := scope[k]; ok {
		c.mu.Unlock()
		c.hits.Add(1)
		select {
		case <-e.done:
			return e.result, e.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	e := &entry{done: make(chan struct{})}
	scope[k] = e
	c.mu.Unlock()

	c.misses.Add(1)
	e.result, e.err = call(ctx)
	close(e.done)
	return e.result, e.err
}

// Stats reports cumulative hit/miss counts across all scopes.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
