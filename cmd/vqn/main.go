// Command vqn runs one node of a point-to-multipoint QUIC VPN, either
// as the server hub or as a client spoke, per its TOML config file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.zx2c4.com/wireguard/tun"

	"github.com/vqn-io/vqn/internal/config"
	"github.com/vqn-io/vqn/internal/core"
	"github.com/vqn-io/vqn/internal/hostconfig"
	"github.com/vqn-io/vqn/internal/hostrt"
	"github.com/vqn-io/vqn/internal/tlsconf"
	"github.com/vqn-io/vqn/internal/vqnlog"
)

func main() {
	configPath := flag.String("config", "", "path to the vqn.toml configuration file")
	logLevel := flag.String("log-level", "info", "trace, debug, info, warn or error")
	netns := flag.String("netns", "", "network namespace to enter before creating the TUN device")
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "vqn: --config is required")
		os.Exit(1)
	}

	lvl, err := vqnlog.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vqn: %v\n", err)
		os.Exit(1)
	}
	vqnlog.SetLevel(lvl)

	conf, err := config.Read(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vqn: %v\n", err)
		os.Exit(1)
	}

	if err := run(conf, *configPath, *netns); err != nil {
		fmt.Fprintf(os.Stderr, "vqn: %v\n", err)
		os.Exit(1)
	}
}

func run(conf *config.Config, configPath, netns string) error {
	if netns != "" {
		if err := enterNetns(netns); err != nil {
			return err
		}
	}

	dev, err := tun.CreateTUN(conf.Network.TunName(), conf.Network.MTUOrDefault())
	if err != nil {
		return fmt.Errorf("create tun device: %w", err)
	}
	iface, err := core.NewIface(dev)
	if err != nil {
		return err
	}

	fwmark := conf.Network.FwmarkOrDefault()
	tunName := conf.Network.TunName()
	addr := netip.PrefixFrom(conf.Network.Address.Addr, conf.Network.Address.Prefix)

	statePath := filepath.Join(filepath.Dir(configPath), ".vqn-state.yaml")

	ctx := context.Background()
	if err := hostrt.AssignAddress(ctx, tunName, addr); err != nil {
		return err
	}

	var allowed config.AllowedIPs
	switch conf.Network.Role {
	case config.RoleServer:
		for _, c := range conf.Network.Client {
			allowed = append(allowed, c.AllowedIPs...)
		}
	case config.RoleClient:
		allowed = conf.Network.Server.AllowedIPs
	}

	prefixes := allowed.Prefixes()
	if err := hostrt.Up(ctx, tunName, fwmark, prefixes, conf.Network.DNS); err != nil {
		return err
	}
	routes := make([]string, len(prefixes))
	for i, p := range prefixes {
		routes[i] = p.String()
	}
	if err := hostconfig.Save(statePath, &hostconfig.State{
		TunName: tunName,
		FWMark:  fwmark,
		Applied: true,
		Routes:  routes,
	}); err != nil {
		vqnlog.Warnf("failed to persist host state: %v", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	go handleSignals(cancel, statePath)

	switch conf.Network.Role {
	case config.RoleServer:
		return runServer(runCtx, iface, conf)
	case config.RoleClient:
		return runClient(runCtx, iface, conf)
	default:
		return fmt.Errorf("unknown network role %q", conf.Network.Role)
	}
}

func runServer(ctx context.Context, iface *core.Iface, conf *config.Config) error {
	tlsConf, err := tlsconf.ServerConfig(conf.TLS)
	if err != nil {
		return err
	}

	fwmark := conf.Network.FwmarkOrDefault()
	listenAddr := fmt.Sprintf(":%d", conf.Network.PortOrDefault())
	ln, err := core.ServerEndpoint(listenAddr, &fwmark, tlsConf)
	if err != nil {
		return err
	}
	vqnlog.Infof("listening at %s", listenAddr)

	server := core.NewServer(iface)
	for _, c := range conf.Network.Client {
		chain, err := tlsconf.LoadCertChainDER(c.ClientCert)
		if err != nil {
			return err
		}
		id := core.IdentityFromChain(chain)
		vqnlog.Infof("adding client %s with allowed ips: %s", id, c.AllowedIPs)
		server.AddClient(id, c.AllowedIPs.Prefixes())
	}

	return server.Run(ctx, ln)
}

func runClient(ctx context.Context, iface *core.Iface, conf *config.Config) error {
	tlsConf, err := tlsconf.ClientConfig(conf.TLS)
	if err != nil {
		return err
	}

	fwmark := conf.Network.FwmarkOrDefault()
	tr, err := core.ClientEndpoint(&fwmark)
	if err != nil {
		return err
	}

	peer := conf.Network.Server
	u, err := url.Parse(peer.URL)
	if err != nil {
		return fmt.Errorf("parse server url %q: %w", peer.URL, err)
	}
	port := u.Port()
	if port == "" {
		port = "443"
	}
	serverName := peer.ServerName
	if serverName == "" {
		serverName = u.Hostname()
	}
	remote, err := net.ResolveUDPAddr("udp", net.JoinHostPort(u.Hostname(), port))
	if err != nil {
		return fmt.Errorf("resolve %s: %w", peer.URL, err)
	}

	client := core.NewClient(iface)

	for {
		vqnlog.Infof("connecting to %s at %s", serverName, remote)
		conn, err := core.Dial(ctx, tr, remote, serverName, tlsConf)
		if err != nil {
			return err
		}
		vqnlog.Infof("connected to %s at %s", serverName, remote)

		err = client.Run(ctx, conn)
		var connErr *core.ConnError
		if errors.As(err, &connErr) {
			vqnlog.Warnf("connection lost: %v, reconnecting", err)
			select {
			case <-ctx.Done():
				return nil
			default:
				continue
			}
		}
		return err
	}
}

func handleSignals(cancel context.CancelFunc, statePath string) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	sig := <-sigCh
	vqnlog.Infof("received %s, shutting down", sig)

	state, err := hostconfig.Load(statePath)
	if err != nil {
		vqnlog.Warnf("failed to load host state: %v", err)
		state = &hostconfig.State{}
	}
	if state.Applied {
		var routes []netip.Prefix
		for _, r := range state.Routes {
			p, err := netip.ParsePrefix(r)
			if err != nil {
				vqnlog.Warnf("skipping unparseable persisted route %q: %v", r, err)
				continue
			}
			routes = append(routes, p)
		}
		if err := hostrt.Down(context.Background(), state.TunName, state.FWMark, routes); err != nil {
			vqnlog.Warnf("failed to tear down host routing: %v", err)
		}
	}
	if err := hostconfig.Clear(statePath); err != nil {
		vqnlog.Warnf("failed to clear host state: %v", err)
	}
	cancel()
}
