package config

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/chainview-tools/chainview/pkg/registry"
)

func validSigningKey() string {
	data := make([]byte, 33)
	for i := range data {
		data[i] = byte(0x42)
	}
	return registry.PublicKey{Prefix: "BTS", Data: data}.String()
}

func validYAML() string {
	return fmt.Sprintf(`
log:
  level: debug
server:
  listen_addr: ":6000"
seed_db: /var/lib/chainview/seeds.db
rpc_timeout: 15s
probe:
  connect_timeout: 2s
  join_timeout: 4s
  max_concurrent: 16
nodes:
  - chain: bts
    name: wallet
    rpc_host: localhost
    rpc_port: 1234
    rpc_user: alice
    rpc_password: s3cret
    localhost: true
    graphene_based: true
    witness: true
    signing_key: %s
  - chain: steem
    name: remote
    rpc_host: 10.0.0.2
    rpc_port: 8090
    tunnel:
      host: jump.example.com
      user: ops
      key_file: /home/ops/.ssh/id_ed25519
`, validSigningKey())
}

func TestParseFullConfig(t *testing.T) {
	cfg, err := Parse([]byte(validYAML()))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
	if cfg.Server.ListenAddr != ":6000" {
		t.Errorf("listen_addr = %q", cfg.Server.ListenAddr)
	}
	if cfg.RPCTimeout.Std() != 15*time.Second {
		t.Errorf("rpc_timeout = %v", cfg.RPCTimeout.Std())
	}
	if cfg.Probe.ConnectTimeout.Std() != 2*time.Second {
		t.Errorf("probe connect_timeout = %v", cfg.Probe.ConnectTimeout.Std())
	}
	if cfg.Probe.MaxConcurrent != 16 {
		t.Errorf("probe max_concurrent = %d", cfg.Probe.MaxConcurrent)
	}
	if !cfg.CORSEnabled() || !cfg.CompressionEnabled() {
		t.Error("cors/compression should default on")
	}
	if len(cfg.Nodes) != 2 {
		t.Fatalf("got %d nodes", len(cfg.Nodes))
	}
	if cfg.Nodes[1].Tunnel == nil || cfg.Nodes[1].Tunnel.User != "ops" {
		t.Errorf("tunnel not parsed: %+v", cfg.Nodes[1].Tunnel)
	}
}

func TestBuildNodes(t *testing.T) {
	cfg, err := Parse([]byte(validYAML()))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	nodes := cfg.BuildNodes()
	if len(nodes) != 2 {
		t.Fatalf("got %d nodes", len(nodes))
	}

	local := nodes[0]
	if local.Key() != "bts/localhost:1234/wallet" {
		t.Errorf("key = %q", local.Key())
	}
	if !local.Localhost || !local.Witness || !local.GrapheneBased {
		t.Error("node flags lost in conversion")
	}
	if local.RPCUser != "alice" || local.RPCPassword != "s3cret" {
		t.Error("credentials lost in conversion")
	}
	if nodes[1].Tunnel == nil || nodes[1].Tunnel.Host != "jump.example.com" {
		t.Errorf("tunnel lost: %+v", nodes[1].Tunnel)
	}
}

func TestValidateFailures(t *testing.T) {
	key := validSigningKey()
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			"no nodes",
			"server:\n  listen_addr: \":5000\"\nseed_db: s.db\n",
			"at least one node",
		},
		{
			"missing chain",
			"nodes:\n  - name: x\n    rpc_host: localhost\n    rpc_port: 1\n",
			"chain is required",
		},
		{
			"bad port",
			"nodes:\n  - chain: bts\n    name: x\n    rpc_host: localhost\n    rpc_port: 99999\n",
			"out of range",
		},
		{
			"witness without key",
			"nodes:\n  - chain: bts\n    name: x\n    rpc_host: localhost\n    rpc_port: 1\n    witness: true\n",
			"signing_key",
		},
		{
			"malformed signing key",
			"nodes:\n  - chain: bts\n    name: x\n    rpc_host: localhost\n    rpc_port: 1\n    witness: true\n    signing_key: garbage\n",
			"",
		},
		{
			"incomplete tunnel",
			fmt.Sprintf("nodes:\n  - chain: bts\n    name: x\n    rpc_host: localhost\n    rpc_port: 1\n    witness: true\n    signing_key: %s\n    tunnel:\n      host: jump\n", key),
			"tunnel needs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if tt.want != "" && !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want substring %q", err, tt.want)
			}
		})
	}
}

func TestParseBadDuration(t *testing.T) {
	_, err := Parse([]byte("rpc_timeout: soon\nnodes:\n  - chain: bts\n    name: x\n    rpc_host: localhost\n    rpc_port: 1\n"))
	if err == nil || !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("error = %v, want invalid duration", err)
	}
}
