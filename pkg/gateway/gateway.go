// Package gateway is the node-aware RPC access point.
//
// It accepts generic RPC envelopes, resolves the target node through the
// registry, answers a fixed allow-list of methods locally, and forwards
// everything else to the underlying blockchain client through the scoped
// result cache. Every response carries the original request id; every
// failure is translated into a uniform error envelope at this boundary, so
// nothing upstream of the gateway ever sees a raw transport or RPC error.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/chainview-tools/chainview/pkg/registry"
	"github.com/chainview-tools/chainview/pkg/rpccache"
	"github.com/chainview-tools/chainview/pkg/rpcclient"
)

// Caller forwards one RPC call to a node using the node's own credentials.
// *rpcclient.NodeCaller is the production implementation.
type Caller interface {
	CallNode(ctx context.Context, node *registry.Node, method string, args []interface{}) (json.RawMessage, error)
}

// Envelope is one incoming RPC request.
//
// The id is opaque: whatever JSON value the caller sent is echoed back
// verbatim on every response path. Params may either be plain arguments for
// Method, or the graphene wallet triplet [wallet-id, method, args...] when
// Method is "call" or absent. ProxyUser and ProxyPassword are forwarding
// credentials for the gateway hop itself; they are stripped before the
// envelope is acted on and never reach the target node or the response.
type Envelope struct {
	ID            json.RawMessage `json:"id"`
	Method        string          `json:"method"`
	Params        []interface{}   `json:"params"`
	WalletPort    int             `json:"wallet_port"`
	ProxyUser     string          `json:"proxy_user,omitempty"`
	ProxyPassword string          `json:"proxy_password,omitempty"`
}

// resolveCall extracts the effective method and arguments, unwrapping the
// graphene wallet triplet when present.
func (e *Envelope) resolveCall() (string, []interface{}) {
	if len(e.Params) >= 2 && (e.Method == "" || e.Method == "call") {
		if method, ok := e.Params[1].(string); ok {
			return method, e.Params[2:]
		}
	}
	return e.Method, e.Params
}

// ErrorBody is the error member of a response envelope.
type ErrorBody struct {
	Message string `json:"message"`
}

// Response is the uniform reply envelope. Exactly one of Result and Error is
// set; the id always matches the request.
type Response struct {
	ID     json.RawMessage `json:"id"`
	Result interface{}     `json:"result,omitempty"`
	Error  *ErrorBody      `json:"error,omitempty"`
}

// interceptHandler answers one locally-intercepted method on a node.
type interceptHandler func(node *registry.Node, args []interface{}) (interface{}, error)

// invoker runs one resolved envelope against its node.
type invoker func(ctx context.Context, node *registry.Node, env *Envelope) (interface{}, error)

// middleware wraps an invoker.
type middleware func(invoker) invoker

// Gateway routes RPC envelopes to registered nodes.
type Gateway struct {
	registry *registry.Registry
	cache    *rpccache.Cache
	caller   Caller

	intercepts map[string]interceptHandler
	pipeline   invoker

	offline         atomic.Bool
	OnOfflineChange func(offline bool)

	logger  *slog.Logger
	metrics *gatewayMetrics
}

// New creates a Gateway over the given registry, cache and caller. The
// intercept dispatch table is built and checked here: every locally
// answerable method must have exactly one handler, so a missing or unknown
// entry is a construction error rather than a runtime lookup failure.
func New(reg *registry.Registry, cache *rpccache.Cache, caller Caller, logger *slog.Logger) (*Gateway, error) {
	if reg == nil {
		return nil, errors.New("gateway: registry is required")
	}
	if cache == nil {
		return nil, errors.New("gateway: cache is required")
	}
	if caller == nil {
		return nil, errors.New("gateway: caller is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	g := &Gateway{
		registry: reg,
		cache:    cache,
		caller:   caller,
		logger:   logger,
		metrics:  defaultGatewayMetrics(),
	}

	g.intercepts = map[string]interceptHandler{
		registry.MethodIsSigningKeyActive:    handleIsSigningKeyActive,
		registry.MethodNetworkGetInfo:        handleNetworkGetInfo,
		registry.MethodNetworkConnectedPeers: handleConnectedPeers,
		registry.MethodNetworkPotentialPeers: handlePotentialPeers,
		registry.MethodNetworkGetParameters:  handleGetParameters,
		registry.MethodNetworkSetParameters:  handleSetParameters,
	}
	if err := validateDispatchTable(g.intercepts); err != nil {
		return nil, err
	}

	g.pipeline = g.dispatch
	for _, mw := range []middleware{g.translateErrors, g.clearScope} {
		g.pipeline = mw(g.pipeline)
	}
	return g, nil
}

// validateDispatchTable checks the intercept table against the capability
// method list: one handler per method, no strays.
func validateDispatchTable(table map[string]interceptHandler) error {
	local := registry.LocalMethods()
	for _, method := range local {
		if table[method] == nil {
			return fmt.Errorf("gateway: no intercept handler for %q", method)
		}
	}
	if len(table) != len(local) {
		return fmt.Errorf("gateway: intercept table has %d entries, want %d", len(table), len(local))
	}
	return nil
}

// Offline reports whether the last forwarded call found the underlying
// client unreachable. The flag clears as soon as a forwarded call succeeds.
func (g *Gateway) Offline() bool {
	return g.offline.Load()
}

func (g *Gateway) setOffline(offline bool) {
	if g.offline.Swap(offline) != offline {
		g.logger.Warn("node reachability changed", "offline", offline)
		if g.OnOfflineChange != nil {
			g.OnOfflineChange(offline)
		}
	}
}

// CacheStats reports cumulative cache hit/miss counts.
func (g *Gateway) CacheStats() (hits, misses uint64) {
	return g.cache.Stats()
}

// Registry exposes the node registry for status reporting.
func (g *Gateway) Registry() *registry.Registry {
	return g.registry
}

// Handle processes one envelope end to end and always produces a response:
// resolution failures, local handler errors and upstream failures all come
// back as error envelopes carrying the original id.
func (g *Gateway) Handle(ctx context.Context, env Envelope) Response {
	id := env.ID
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	// Strip forwarding credentials before anything else looks at the
	// envelope; the node's stored credentials are used for the actual call.
	env.ProxyUser = ""
	env.ProxyPassword = ""

	node, err := g.registry.FindLocalNode(env.WalletPort)
	if err != nil {
		g.metrics.requests.WithLabelValues("node_not_found").Inc()
		return Response{ID: id, Error: &ErrorBody{
			Message: fmt.Sprintf("Could not find active node on port %d", env.WalletPort),
		}}
	}

	result, err := g.pipeline(ctx, node, &env)

	hits, misses := g.cache.Stats()
	g.metrics.cacheHits.Set(float64(hits))
	g.metrics.cacheMisses.Set(float64(misses))

	if err != nil {
		return Response{ID: id, Error: &ErrorBody{Message: err.Error()}}
	}
	return Response{ID: id, Result: result}
}

// clearScope starts a fresh cache scope for the node before dispatching, so
// every sub-call within this invocation is deduplicated against its peers
// but never served stale results from a previous invocation.
func (g *Gateway) clearScope(next invoker) invoker {
	return func(ctx context.Context, node *registry.Node, env *Envelope) (interface{}, error) {
		g.cache.Clear(node.Key())
		return next(ctx, node, env)
	}
}

// translateErrors converts the error taxonomy into user-facing messages and
// maintains the offline signal. Connection failures flip the node offline;
// any successfully forwarded call flips it back.
func (g *Gateway) translateErrors(next invoker) invoker {
	return func(ctx context.Context, node *registry.Node, env *Envelope) (interface{}, error) {
		result, err := next(ctx, node, env)
		switch {
		case err == nil:
			g.metrics.requests.WithLabelValues("ok").Inc()
			return result, nil
		case rpcclient.IsConnectionError(err):
			g.metrics.requests.WithLabelValues("connection_failure").Inc()
			g.setOffline(true)
			g.logger.Error("node unreachable", "node", node.Key(), "err", err)
			return nil, err
		case errors.Is(err, rpcclient.ErrUnauthorized):
			g.metrics.requests.WithLabelValues("unauthorized").Inc()
			g.logger.Error("rpc credentials rejected", "node", node.Key())
			return nil, err
		default:
			g.metrics.requests.WithLabelValues("rpc_error").Inc()
			g.logger.Debug("rpc call failed", "node", node.Key(), "err", err)
			return nil, err
		}
	}
}

// dispatch answers the envelope locally when its method is in the intercept
// table, and otherwise forwards it through the cache with the node's stored
// credentials.
func (g *Gateway) dispatch(ctx context.Context, node *registry.Node, env *Envelope) (interface{}, error) {
	method, args := env.resolveCall()

	if handler, ok := g.intercepts[method]; ok {
		g.metrics.intercepted.WithLabelValues(method).Inc()
		return handler(node, args)
	}

	raw, err := g.cache.CallCached(ctx, node.Key(), method, args, func(ctx context.Context) (json.RawMessage, error) {
		return g.caller.CallNode(ctx, node, method, args)
	})
	if err != nil {
		return nil, err
	}
	g.setOffline(false)
	return raw, nil
}

func handleIsSigningKeyActive(node *registry.Node, args []interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%s expects 1 argument, got %d", registry.MethodIsSigningKeyActive, len(args))
	}
	key, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("%s expects a public key string", registry.MethodIsSigningKeyActive)
	}
	return node.IsSigningKeyActive(key)
}

func handleNetworkGetInfo(node *registry.Node, args []interface{}) (interface{}, error) {
	return node.NetworkInfo(), nil
}

func handleConnectedPeers(node *registry.Node, args []interface{}) (interface{}, error) {
	return node.ConnectedPeers(), nil
}

func handlePotentialPeers(node *registry.Node, args []interface{}) (interface{}, error) {
	return node.PotentialPeers(), nil
}

func handleGetParameters(node *registry.Node, args []interface{}) (interface{}, error) {
	return node.AdvancedParameters(), nil
}

func handleSetParameters(node *registry.Node, args []interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%s expects 1 argument, got %d", registry.MethodNetworkSetParameters, len(args))
	}
	values, ok := args[0].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%s expects a parameter object", registry.MethodNetworkSetParameters)
	}
	return node.SetAdvancedParameters(values), nil
}
