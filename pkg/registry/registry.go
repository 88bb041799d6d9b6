package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Registry errors.
var (
	// ErrNodeNotFound is returned when no registered node matches a lookup.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoNodes is returned when constructing a registry without nodes.
	ErrNoNodes = errors.New("at least one node is required")

	// ErrDuplicateNode is returned when two nodes share an identity.
	ErrDuplicateNode = errors.New("duplicate node identity")
)

// Registry holds all known Nodes in insertion order, plus the current main
// node reference.
//
// The node collection is fixed after construction; only the main-node
// reference mutates. It is held in an atomic pointer so concurrent readers
// always observe either the old or the new node, never a torn update.
type Registry struct {
	nodes []*Node
	main  atomic.Pointer[Node]
}

// New creates a Registry over the given nodes. The first node becomes the
// initial main node. Node identities must be unique.
func New(nodes ...*Node) (*Registry, error) {
	if len(nodes) == 0 {
		return nil, ErrNoNodes
	}

	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if seen[n.Key()] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, n.Key())
		}
		seen[n.Key()] = true
	}

	r := &Registry{nodes: append([]*Node(nil), nodes...)}
	r.main.Store(nodes[0])
	return r, nil
}

// Nodes returns the registered nodes in insertion order. The returned slice
// must not be mutated.
func (r *Registry) Nodes() []*Node {
	return r.nodes
}

// MainNode returns the current main node.
func (r *Registry) MainNode() *Node {
	return r.main.Load()
}

// FindNode returns the node matching the chain type, "host:port" endpoint
// and name exactly, or ErrNodeNotFound.
func (r *Registry) FindNode(chain, hostPort, name string) (*Node, error) {
	for _, n := range r.nodes {
		if n.Chain == chain && n.HostPort() == hostPort && n.Name == name {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s/%s", ErrNodeNotFound, chain, hostPort, name)
}

// FindLocalNode returns the localhost node listening on the given RPC port,
// or ErrNodeNotFound.
func (r *Registry) FindLocalNode(port int) (*Node, error) {
	for _, n := range r.nodes {
		if n.Localhost && n.RPCPort == port {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%w: localhost:%d", ErrNodeNotFound, port)
}

// SetMainNode looks up the target via FindNode and atomically swaps the main
// node reference. On a failed lookup the previous main node is left
// untouched and ErrNodeNotFound is returned; callers decide whether the
// failure is user-visible.
func (r *Registry) SetMainNode(chain, hostPort, name string) error {
	node, err := r.FindNode(chain, hostPort, name)
	if err != nil {
		slog.Debug("ignoring switch to unknown node",
			"chain", chain, "host", hostPort, "name", name)
		return err
	}

	r.main.Store(node)
	slog.Debug("main node switched", "chain", chain, "host", hostPort, "name", name)
	return nil
}
