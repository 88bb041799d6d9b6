// Package rpcclient implements the JSON-RPC client used to reach the
// underlying blockchain client processes (witness nodes and cli wallets).
//
// The wire protocol is JSON-RPC over HTTP with basic auth, posted to the
// client's /rpc endpoint. Transport failures, credential rejections and
// application-level errors are translated into the package's error taxonomy
// so callers never see raw transport errors.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/chainview-tools/chainview/pkg/registry"
)

// Default configuration values.
const (
	DefaultTimeout         = 10 * time.Second
	DefaultMaxResponseSize = 8 * 1024 * 1024 // 8MB
)

// DialContextFunc matches net.Dialer.DialContext; tunnels provide their own.
type DialContextFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Config holds RPC client configuration.
type Config struct {
	// Timeout bounds a single call end to end.
	Timeout time.Duration

	// MaxResponseSize caps how much of a response body is read.
	MaxResponseSize int64

	// DialContext overrides the TCP dialer, e.g. to route through an SSH
	// tunnel. Nil means a plain net.Dialer.
	DialContext DialContextFunc
}

// DefaultConfig returns a default client configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:         DefaultTimeout,
		MaxResponseSize: DefaultMaxResponseSize,
	}
}

// Client is a JSON-RPC client for one transport path. Create one per SSH
// tunnel; a single Client can serve any number of directly reachable nodes.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new RPC client.
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MaxResponseSize == 0 {
		config.MaxResponseSize = DefaultMaxResponseSize
	}

	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	if config.DialContext != nil {
		transport.DialContext = config.DialContext
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
	}
}

// request is a JSON-RPC request. Graphene clients ignore the jsonrpc field
// but sending it keeps strict 2.0 servers happy.
type request struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// response is a JSON-RPC response.
type response struct {
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *responseError  `json:"error,omitempty"`
}

// responseError is the error member of a JSON-RPC response.
type responseError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Call invokes method with args on the client listening at host:port,
// authenticating with user/password, and returns the raw result payload.
//
// Failures are translated: unreachable transport -> *ConnectionError,
// rejected credentials -> ErrUnauthorized, error response -> *RPCError.
func (c *Client) Call(ctx context.Context, host string, port int, user, password, method string, args ...interface{}) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("http://%s/rpc", net.JoinHostPort(host, fmt.Sprintf("%d", port)))

	if args == nil {
		args = []interface{}{}
	}
	body, err := json.Marshal(request{JSONRPC: "2.0", ID: 0, Method: method, Params: args})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if user != "" || password != "" {
		req.SetBasicAuth(user, password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ConnectionError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrUnauthorized
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxResponseSize))
	if err != nil {
		return nil, &ConnectionError{Endpoint: endpoint, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &RPCError{
			Message: fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(respBody)),
		}
	}

	var rpcResp response
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, &RPCError{Message: fmt.Sprintf("malformed response: %v", err)}
	}
	if rpcResp.Error != nil {
		return nil, &RPCError{Code: rpcResp.Error.Code, Message: rpcResp.Error.Message}
	}

	return rpcResp.Result, nil
}

// NodeCaller routes calls to the right Client per node, using each node's
// stored credentials. Nodes behind SSH tunnels get their own Client; every
// other node shares the default one.
type NodeCaller struct {
	def     *Client
	perNode map[string]*Client
}

// NewNodeCaller creates a NodeCaller around a default client.
func NewNodeCaller(def *Client) *NodeCaller {
	return &NodeCaller{
		def:     def,
		perNode: make(map[string]*Client),
	}
}

// Register assigns a dedicated client to the node with the given key.
// Not safe for concurrent use with CallNode; wire everything up at startup.
func (nc *NodeCaller) Register(nodeKey string, client *Client) {
	nc.perNode[nodeKey] = client
}

// CallNode invokes method on the given node with its stored credentials.
func (nc *NodeCaller) CallNode(ctx context.Context, node *registry.Node, method string, args []interface{}) (json.RawMessage, error) {
	client := nc.def
	if c, ok := nc.perNode[node.Key()]; ok {
		client = c
	}
	return client.Call(ctx, node.RPCHost, node.RPCPort, node.RPCUser, node.RPCPassword, method, args...)
}
