// Package config decodes vqn's TOML configuration file into typed
// structs, per spec section 6.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Defaults, per spec section 6.
const (
	DefaultPort    = 10086
	DefaultMTU     = 1434
	DefaultTunName = "tun0"
	DefaultFwmark  = 19988
	DefaultTable   = 19988
)

// Role discriminates a server node from a client node.
type Role string

const (
	RoleServer Role = "server"
	RoleClient Role = "client"
)

// TLS holds filesystem paths to PEM material. Relative paths resolve
// against the config file's directory.
type TLS struct {
	Key    string `toml:"key"`
	Cert   string `toml:"cert"`
	CACert string `toml:"ca_cert"`
}

// ClientPeer is one entry in a server's client list.
type ClientPeer struct {
	ClientCert string     `toml:"client_cert"`
	AllowedIPs AllowedIPs `toml:"allowed_ips"`
}

// ServerPeer is a client's configured upstream.
type ServerPeer struct {
	URL        string     `toml:"url"`
	ServerName string     `toml:"server_name"`
	AllowedIPs AllowedIPs `toml:"allowed_ips"`
}

// Network is the `[network]` table. Role discriminates which of
// Client/Server is populated; Config.Validate checks that.
type Network struct {
	Role    Role         `toml:"role"`
	Name    string       `toml:"name"`
	Address Cidr         `toml:"address"`
	MTU     int          `toml:"mtu"`
	Port    int          `toml:"port"`
	FWMark  *uint32      `toml:"fwmark"`
	DNS     string       `toml:"dns"`
	Client  []ClientPeer `toml:"client"`
	Server  ServerPeer   `toml:"server"`
}

// TunName returns the configured TUN interface name, or the default.
func (n Network) TunName() string {
	if n.Name == "" {
		return DefaultTunName
	}
	return n.Name
}

// MTUOrDefault returns the configured MTU, or the default.
func (n Network) MTUOrDefault() int {
	if n.MTU == 0 {
		return DefaultMTU
	}
	return n.MTU
}

// PortOrDefault returns the configured listen port, or the default.
func (n Network) PortOrDefault() int {
	if n.Port == 0 {
		return DefaultPort
	}
	return n.Port
}

// FwmarkOrDefault returns the configured fwmark, or the default.
func (n Network) FwmarkOrDefault() uint32 {
	if n.FWMark == nil {
		return DefaultFwmark
	}
	return *n.FWMark
}

// Config is the top-level decoded configuration file.
type Config struct {
	Network Network `toml:"network"`
	TLS     TLS     `toml:"tls"`
}

// Read loads and parses path, resolving relative TLS paths against the
// config file's directory.
func Read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var conf Config
	if _, err := toml.Decode(string(data), &conf); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	conf.resolveRelativePaths(path)
	return &conf, nil
}

// Validate checks that the role-discriminated fields are consistent.
func (c *Config) Validate() error {
	switch c.Network.Role {
	case RoleServer:
		if len(c.Network.Client) == 0 {
			return fmt.Errorf("config: server role requires at least one [[network.client]]")
		}
	case RoleClient:
		if c.Network.Server.URL == "" {
			return fmt.Errorf("config: client role requires [network.server].url")
		}
	default:
		return fmt.Errorf("config: network.role must be %q or %q, got %q", RoleServer, RoleClient, c.Network.Role)
	}
	if !c.Network.Address.Addr.IsValid() {
		return fmt.Errorf("config: network.address is required")
	}
	return nil
}

func (c *Config) resolveRelativePaths(configPath string) {
	dir := filepath.Dir(configPath)
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	c.TLS.Key = resolve(c.TLS.Key)
	c.TLS.Cert = resolve(c.TLS.Cert)
	c.TLS.CACert = resolve(c.TLS.CACert)
	for i := range c.Network.Client {
		c.Network.Client[i].ClientCert = resolve(c.Network.Client[i].ClientCert)
	}
}
