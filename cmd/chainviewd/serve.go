package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chainview-tools/chainview/internal/config"
	"github.com/chainview-tools/chainview/internal/logging"
	"github.com/chainview-tools/chainview/pkg/gateway"
	"github.com/chainview-tools/chainview/pkg/registry"
	"github.com/chainview-tools/chainview/pkg/rpccache"
	"github.com/chainview-tools/chainview/pkg/rpcclient"
	"github.com/chainview-tools/chainview/pkg/seedprobe"
	"github.com/chainview-tools/chainview/pkg/seedstore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		if seedDB != "" {
			cfg.SeedDB = seedDB
		}

		logger := logging.Setup("chainviewd", cfg.Log)
		logger.Info("starting", "version", Version, "nodes", len(cfg.Nodes))

		reg, err := registry.New(cfg.BuildNodes()...)
		if err != nil {
			return fmt.Errorf("build registry: %w", err)
		}

		clientConfig := rpcclient.DefaultConfig()
		if cfg.RPCTimeout.Std() > 0 {
			clientConfig.Timeout = cfg.RPCTimeout.Std()
		}
		caller := rpcclient.NewNodeCaller(rpcclient.NewClient(clientConfig))

		// Nodes behind a jump host get a dedicated client that dials
		// through the tunnel.
		for _, node := range reg.Nodes() {
			if node.Tunnel == nil {
				continue
			}
			tun, err := rpcclient.OpenTunnel(*node.Tunnel, rpcclient.TunnelOptions{
				KnownHostsFile: cfg.KnownHostsFile,
			})
			if err != nil {
				return fmt.Errorf("tunnel for %s: %w", node.Key(), err)
			}
			defer tun.Close()

			tunneled := clientConfig
			tunneled.DialContext = tun.DialContext
			caller.Register(node.Key(), rpcclient.NewClient(tunneled))
			logger.Info("ssh tunnel established", "node", node.Key(), "jump", node.Tunnel.Host)
		}

		gw, err := gateway.New(reg, rpccache.New(), caller, logger)
		if err != nil {
			return err
		}

		store, err := seedstore.Open(cfg.SeedDB)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.EnsureDefaults(); err != nil {
			return fmt.Errorf("seed defaults: %w", err)
		}

		prober, err := seedprobe.New(seedprobe.Config{
			ConnectTimeout: cfg.Probe.ConnectTimeout.Std(),
			ReadTimeout:    cfg.Probe.ReadTimeout.Std(),
			JoinTimeout:    cfg.Probe.JoinTimeout.Std(),
			MaxConcurrent:  cfg.Probe.MaxConcurrent,
		})
		if err != nil {
			return err
		}

		serverConfig := gateway.DefaultServerConfig()
		serverConfig.Addr = cfg.Server.ListenAddr
		serverConfig.EnableCORS = cfg.CORSEnabled()
		serverConfig.AllowedOrigins = cfg.Server.AllowedOrigins
		serverConfig.EnableCompression = cfg.CompressionEnabled()

		srv, err := gateway.NewServer(serverConfig, gw, store, prober, logger)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigChan
			logger.Info("shutting down", "signal", sig.String())
			cancel()
		}()

		return srv.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
