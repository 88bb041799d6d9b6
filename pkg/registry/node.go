// Package registry tracks the fleet of blockchain client nodes the gateway
// can target.
//
// A Node describes one addressable client endpoint: where its RPC interface
// listens, the credentials needed to reach it, and the capability methods it
// can answer locally without going through the client's RPC channel. Nodes
// are built once at startup from configuration and are immutable afterwards,
// except for the network-state view that backs the local capabilities.
//
// The Registry owns all Nodes and a swappable "main node" reference that
// unqualified operations target. Lookups are linear; fleets are small.
package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Capability method names a Node can answer locally. Calls to these methods
// never reach the underlying client's RPC channel.
const (
	MethodIsSigningKeyActive    = "is_signing_key_active"
	MethodNetworkGetInfo        = "network_get_info"
	MethodNetworkConnectedPeers = "network_get_connected_peers"
	MethodNetworkPotentialPeers = "network_get_potential_peers"
	MethodNetworkGetParameters  = "network_get_advanced_parameters"
	MethodNetworkSetParameters  = "network_set_advanced_parameters"
)

// LocalMethods lists every capability method, in a fixed order.
func LocalMethods() []string {
	return []string{
		MethodIsSigningKeyActive,
		MethodNetworkGetInfo,
		MethodNetworkConnectedPeers,
		MethodNetworkPotentialPeers,
		MethodNetworkGetParameters,
		MethodNetworkSetParameters,
	}
}

// Peer describes a currently connected network peer as reported by the
// monitoring side.
type Peer struct {
	Addr      string    `json:"addr"`
	Connected time.Time `json:"conntime"`
	Platform  string    `json:"platform,omitempty"`
	Version   string    `json:"version,omitempty"`
}

// PotentialPeer describes a known-but-not-connected peer candidate.
type PotentialPeer struct {
	Endpoint    string    `json:"endpoint"`
	LastSeen    time.Time `json:"last_seen_time"`
	LastAttempt time.Time `json:"last_connection_attempt_time"`
	Successes   int       `json:"number_of_successful_connection_attempts"`
	Failures    int       `json:"number_of_failed_connection_attempts"`
}

// NetworkInfo is the local answer to network_get_info.
type NetworkInfo struct {
	Connections    int    `json:"connection_count"`
	PotentialPeers int    `json:"potential_peer_count"`
	Listening      bool   `json:"listening"`
	NodeName       string `json:"node_name"`
}

// Node is one addressable blockchain client endpoint.
//
// Identity is the tuple (Chain, RPCHost, RPCPort, Name). Credentials and
// flags are fixed at construction; only the network-state view behind the
// local capability methods mutates, guarded by its own lock.
type Node struct {
	Chain       string
	Name        string
	RPCHost     string
	RPCPort     int
	RPCUser     string
	RPCPassword string

	Localhost     bool
	GrapheneBased bool
	Witness       bool

	// SigningKey is the block-signing public key this node is configured
	// with, in graphene base58 form. Empty for non-witness nodes.
	SigningKey string

	// Tunnel optionally routes RPC traffic through an SSH jump host.
	Tunnel *TunnelConfig

	netMu          sync.RWMutex
	params         map[string]interface{}
	connectedPeers []Peer
	potentialPeers []PotentialPeer
}

// TunnelConfig describes an SSH jump host used to reach a remote node.
type TunnelConfig struct {
	Host    string
	User    string
	KeyFile string
}

// NewNode constructs a Node with an empty network-state view.
func NewNode(chain, name, host string, port int) *Node {
	return &Node{
		Chain:   chain,
		Name:    name,
		RPCHost: host,
		RPCPort: port,
		params:  make(map[string]interface{}),
	}
}

// HostPort returns the node's RPC endpoint as "host:port".
func (n *Node) HostPort() string {
	return fmt.Sprintf("%s:%d", n.RPCHost, n.RPCPort)
}

// Key returns a stable identity string for cache scoping.
func (n *Node) Key() string {
	return fmt.Sprintf("%s/%s/%s", n.Chain, n.HostPort(), n.Name)
}

// IsSigningKeyActive reports whether the given graphene public key matches
// this node's configured signing key. The key must parse; a malformed key is
// an error, not a mismatch.
func (n *Node) IsSigningKeyActive(key string) (bool, error) {
	if _, err := ParsePublicKey(key); err != nil {
		return false, fmt.Errorf("signing key %q: %w", key, err)
	}
	return n.Witness && n.SigningKey == key, nil
}

// NetworkInfo returns the node's local view of its network state.
func (n *Node) NetworkInfo() NetworkInfo {
	n.netMu.RLock()
	defer n.netMu.RUnlock()
	return NetworkInfo{
		Connections:    len(n.connectedPeers),
		PotentialPeers: len(n.potentialPeers),
		Listening:      true,
		NodeName:       n.Name,
	}
}

// ConnectedPeers returns a copy of the currently tracked peer list.
func (n *Node) ConnectedPeers() []Peer {
	n.netMu.RLock()
	defer n.netMu.RUnlock()
	peers := make([]Peer, len(n.connectedPeers))
	copy(peers, n.connectedPeers)
	return peers
}

// SetConnectedPeers replaces the tracked peer list. Called by the monitoring
// side; the gateway only reads.
func (n *Node) SetConnectedPeers(peers []Peer) {
	n.netMu.Lock()
	defer n.netMu.Unlock()
	n.connectedPeers = append([]Peer(nil), peers...)
}

// PotentialPeers returns a copy of the known peer candidates.
func (n *Node) PotentialPeers() []PotentialPeer {
	n.netMu.RLock()
	defer n.netMu.RUnlock()
	peers := make([]PotentialPeer, len(n.potentialPeers))
	copy(peers, n.potentialPeers)
	return peers
}

// SetPotentialPeers replaces the known peer candidate list.
func (n *Node) SetPotentialPeers(peers []PotentialPeer) {
	n.netMu.Lock()
	defer n.netMu.Unlock()
	n.potentialPeers = append([]PotentialPeer(nil), peers...)
}

// AdvancedParameters returns a copy of the node's advanced network
// parameter map.
func (n *Node) AdvancedParameters() map[string]interface{} {
	n.netMu.RLock()
	defer n.netMu.RUnlock()
	params := make(map[string]interface{}, len(n.params))
	for k, v := range n.params {
		params[k] = v
	}
	return params
}

// SetAdvancedParameters merges the given values into the node's advanced
// network parameter map and returns the resulting map.
func (n *Node) SetAdvancedParameters(values map[string]interface{}) map[string]interface{} {
	n.netMu.Lock()
	if n.params == nil {
		n.params = make(map[string]interface{})
	}
	for k, v := range values {
		n.params[k] = v
	}
	n.netMu.Unlock()
	return n.AdvancedParameters()
}

// ParameterNames returns the advanced parameter names in sorted order.
// Useful for deterministic status output.
func (n *Node) ParameterNames() []string {
	n.netMu.RLock()
	defer n.netMu.RUnlock()
	names := make([]string, 0, len(n.params))
	for k := range n.params {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
