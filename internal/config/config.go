// Package config loads and validates the chainviewd YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chainview-tools/chainview/internal/logging"
	"github.com/chainview-tools/chainview/pkg/registry"
)

// Duration is a time.Duration that unmarshals from YAML strings like "3s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the plain time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// TunnelConfig describes an SSH jump host for one node.
type TunnelConfig struct {
	Host    string `yaml:"host"`
	User    string `yaml:"user"`
	KeyFile string `yaml:"key_file"`
}

// NodeConfig describes one blockchain client endpoint.
type NodeConfig struct {
	Chain       string `yaml:"chain"`
	Name        string `yaml:"name"`
	RPCHost     string `yaml:"rpc_host"`
	RPCPort     int    `yaml:"rpc_port"`
	RPCUser     string `yaml:"rpc_user"`
	RPCPassword string `yaml:"rpc_password"`

	Localhost     bool `yaml:"localhost"`
	GrapheneBased bool `yaml:"graphene_based"`
	Witness       bool `yaml:"witness"`

	SigningKey string `yaml:"signing_key"`

	Tunnel *TunnelConfig `yaml:"tunnel"`
}

// ProbeConfig holds seed prober settings.
type ProbeConfig struct {
	ConnectTimeout Duration `yaml:"connect_timeout"`
	ReadTimeout    Duration `yaml:"read_timeout"`
	JoinTimeout    Duration `yaml:"join_timeout"`
	MaxConcurrent  int      `yaml:"max_concurrent"`
}

// ServerConfig holds HTTP front-end settings.
type ServerConfig struct {
	ListenAddr     string   `yaml:"listen_addr"`
	EnableCORS     *bool    `yaml:"enable_cors"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	Compression    *bool    `yaml:"compression"`
}

// Config is the top-level chainviewd configuration.
type Config struct {
	Log logging.Config `yaml:"log"`

	Server ServerConfig `yaml:"server"`

	// SeedDB is the path of the bbolt seed store.
	SeedDB string `yaml:"seed_db"`

	// KnownHostsFile verifies SSH jump hosts. Empty disables verification.
	KnownHostsFile string `yaml:"known_hosts_file"`

	// RPCTimeout bounds one forwarded RPC call end to end.
	RPCTimeout Duration `yaml:"rpc_timeout"`

	Probe ProbeConfig `yaml:"probe"`

	Nodes []NodeConfig `yaml:"nodes"`
}

// Default returns the built-in configuration, valid except for the empty
// node list.
func Default() Config {
	return Config{
		Server: ServerConfig{ListenAddr: ":5000"},
		SeedDB: "chainview-seeds.db",
	}
}

// Load reads, parses and validates the YAML file at path, filling defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates raw YAML, filling defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for usable values.
func (c Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return errors.New("server.listen_addr is required")
	}
	if c.SeedDB == "" {
		return errors.New("seed_db is required")
	}
	if len(c.Nodes) == 0 {
		return errors.New("at least one node must be configured")
	}
	for i, n := range c.Nodes {
		if n.Chain == "" {
			return fmt.Errorf("nodes[%d]: chain is required", i)
		}
		if n.Name == "" {
			return fmt.Errorf("nodes[%d]: name is required", i)
		}
		if n.RPCHost == "" {
			return fmt.Errorf("nodes[%d]: rpc_host is required", i)
		}
		if n.RPCPort <= 0 || n.RPCPort > 65535 {
			return fmt.Errorf("nodes[%d]: rpc_port %d out of range", i, n.RPCPort)
		}
		if n.Witness && n.SigningKey == "" {
			return fmt.Errorf("nodes[%d]: witness node needs a signing_key", i)
		}
		if n.SigningKey != "" {
			if _, err := registry.ParsePublicKey(n.SigningKey); err != nil {
				return fmt.Errorf("nodes[%d]: %w", i, err)
			}
		}
		if t := n.Tunnel; t != nil {
			if t.Host == "" || t.User == "" || t.KeyFile == "" {
				return fmt.Errorf("nodes[%d]: tunnel needs host, user and key_file", i)
			}
		}
	}
	return nil
}

// BuildNodes converts the node configurations into registry nodes, in
// configuration order.
func (c Config) BuildNodes() []*registry.Node {
	nodes := make([]*registry.Node, 0, len(c.Nodes))
	for _, nc := range c.Nodes {
		n := registry.NewNode(nc.Chain, nc.Name, nc.RPCHost, nc.RPCPort)
		n.RPCUser = nc.RPCUser
		n.RPCPassword = nc.RPCPassword
		n.Localhost = nc.Localhost
		n.GrapheneBased = nc.GrapheneBased
		n.Witness = nc.Witness
		n.SigningKey = nc.SigningKey
		if t := nc.Tunnel; t != nil {
			n.Tunnel = &registry.TunnelConfig{Host: t.Host, User: t.User, KeyFile: t.KeyFile}
		}
		nodes = append(nodes, n)
	}
	return nodes
}

// CORSEnabled reports the effective CORS setting (default on).
func (c Config) CORSEnabled() bool {
	return c.Server.EnableCORS == nil || *c.Server.EnableCORS
}

// CompressionEnabled reports the effective compression setting (default on).
func (c Config) CompressionEnabled() bool {
	return c.Server.Compression == nil || *c.Server.Compression
}
