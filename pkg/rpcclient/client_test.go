package rpcclient

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/chainview-tools/chainview/pkg/registry"
)

// serverHostPort splits an httptest server URL into host and port.
func serverHostPort(t *testing.T, s *httptest.Server) (string, int) {
	t.Helper()
	u, err := url.Parse(s.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	return host, port
}

func TestCallSuccess(t *testing.T) {
	var gotMethod string
	var gotParams []interface{}
	var gotUser, gotPass string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rpc" {
			http.NotFound(w, r)
			return
		}
		gotUser, gotPass, _ = r.BasicAuth()

		var req struct {
			Method string        `json:"method"`
			Params []interface{} `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotMethod = req.Method
		gotParams = req.Params

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":0,"result":{"head_block_num":42}}`))
	}))
	defer server.Close()

	host, port := serverHostPort(t, server)
	client := NewClient(DefaultConfig())

	result, err := client.Call(context.Background(), host, port, "alice", "s3cret", "get_info")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var info struct {
		HeadBlockNum int `json:"head_block_num"`
	}
	if err := json.Unmarshal(result, &info); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if info.HeadBlockNum != 42 {
		t.Errorf("head_block_num = %d, want 42", info.HeadBlockNum)
	}
	if gotMethod != "get_info" {
		t.Errorf("method = %q, want get_info", gotMethod)
	}
	if len(gotParams) != 0 {
		t.Errorf("params = %v, want empty", gotParams)
	}
	if gotUser != "alice" || gotPass != "s3cret" {
		t.Errorf("basic auth = %q/%q, want alice/s3cret", gotUser, gotPass)
	}
}

func TestCallRPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":0,"error":{"code":-32000,"message":"wallet is locked"}}`))
	}))
	defer server.Close()

	host, port := serverHostPort(t, server)
	client := NewClient(DefaultConfig())

	_, err := client.Call(context.Background(), host, port, "", "", "get_info")
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected *RPCError, got %v", err)
	}
	if rpcErr.Message != "wallet is locked" {
		t.Errorf("message = %q, want upstream message preserved", rpcErr.Message)
	}
	if rpcErr.Code != -32000 {
		t.Errorf("code = %d, want -32000", rpcErr.Code)
	}
}

func TestCallUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	host, port := serverHostPort(t, server)
	client := NewClient(DefaultConfig())

	_, err := client.Call(context.Background(), host, port, "bob", "wrong", "get_info")
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestCallConnectionRefused(t *testing.T) {
	// Reserve a port, then close the listener so connections are refused.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	client := NewClient(Config{Timeout: 2 * time.Second})

	_, err = client.Call(context.Background(), "127.0.0.1", port, "", "", "get_info")
	if !IsConnectionError(err) {
		t.Errorf("expected ConnectionError, got %v", err)
	}
}

func TestNodeCallerRouting(t *testing.T) {
	var defCalls, tunCalls int

	defServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defCalls++
		w.Write([]byte(`{"id":0,"result":true}`))
	}))
	defer defServer.Close()

	tunServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tunCalls++
		w.Write([]byte(`{"id":0,"result":true}`))
	}))
	defer tunServer.Close()

	defHost, defPort := serverHostPort(t, defServer)
	tunHost, tunPort := serverHostPort(t, tunServer)

	direct := registry.NewNode("bts", "direct", defHost, defPort)
	tunneled := registry.NewNode("bts", "remote", tunHost, tunPort)

	caller := NewNodeCaller(NewClient(DefaultConfig()))
	caller.Register(tunneled.Key(), NewClient(DefaultConfig()))

	if _, err := caller.CallNode(context.Background(), direct, "get_info", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := caller.CallNode(context.Background(), tunneled, "get_info", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if defCalls != 1 || tunCalls != 1 {
		t.Errorf("calls = default %d / dedicated %d, want 1/1", defCalls, tunCalls)
	}
}
