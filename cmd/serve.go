package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/douyin-rboot/droidrun-portal/internal/bridge"
	"github.com/douyin-rboot/droidrun-portal/internal/command"
	"github.com/douyin-rboot/droidrun-portal/internal/device"
	"github.com/douyin-rboot/droidrun-portal/internal/device/sim"
	"github.com/douyin-rboot/droidrun-portal/internal/model"
	"github.com/douyin-rboot/droidrun-portal/internal/server"
	"github.com/douyin-rboot/droidrun-portal/internal/settings"
	"github.com/douyin-rboot/droidrun-portal/internal/snapshot"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the portal: socket server, overlay refresher, optional MCP bridge",
	Long: `Run the portal server. Agents connect over raw TCP and exchange one
request per connection; the overlay refresher keeps the on-screen element
index current; settings changes apply live and survive restarts.

Examples:
  droidrun-portal serve
  droidrun-portal serve --addr :9000 --workers 8
  droidrun-portal serve --bridge-port 8081`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", server.DefaultAddr, "TCP listen address")
	serveCmd.Flags().Int("workers", server.DefaultWorkers, "Connection pool size, accept loop included")
	serveCmd.Flags().Int("refresh", 250, "Overlay refresh interval in milliseconds (0 disables the refresher)")
	serveCmd.Flags().String("settings", "", "Settings file path (default: user config dir)")
	serveCmd.Flags().Bool("sim", true, "Back the portal with the simulated device")
	serveCmd.Flags().Int("bridge-port", 0, "Also serve the MCP bridge over streamable HTTP on this port (0 = off)")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	workers, _ := cmd.Flags().GetInt("workers")
	refreshMs, _ := cmd.Flags().GetInt("refresh")
	settingsPath, _ := cmd.Flags().GetString("settings")
	useSim, _ := cmd.Flags().GetBool("sim")
	bridgePort, _ := cmd.Flags().GetInt("bridge-port")

	if !useSim {
		return fmt.Errorf("no physical device backend on this platform; run with --sim")
	}
	provider, parts := sim.NewProvider(model.NewRect(0, 0, 720, 1280))
	sim.Demo(parts)

	if settingsPath == "" {
		settingsPath = defaultSettingsPath()
	}
	store, err := settings.Open(settingsPath, logger)
	if err != nil {
		return fmt.Errorf("open settings: %w", err)
	}

	// Restore persisted overlay state before anything renders.
	provider.Overlay.SetOffset(store.OverlayOffset())
	provider.Overlay.SetVisible(store.OverlayVisible())

	engine := snapshot.NewEngine(provider.Tree, logger)
	agg := snapshot.NewAggregator(engine, provider.Tree, logger)
	disp := command.New(command.Config{Provider: provider, Settings: store, Logger: logger})
	srv := server.New(server.Config{
		Addr:       addr,
		Workers:    workers,
		Aggregator: agg,
		Dispatcher: disp,
		Logger:     logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	changes, unsubscribe := store.Subscribe()
	defer unsubscribe()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case change := <-changes:
				applyOverlayChange(provider.Overlay, change)
			}
		}
	}()

	if refreshMs > 0 {
		refresher := snapshot.NewRefresher(engine, provider.Overlay, time.Duration(refreshMs)*time.Millisecond, logger)
		go refresher.Run(ctx)
	}

	if bridgePort > 0 {
		br := bridge.New(bridge.Config{Aggregator: agg, Dispatcher: disp, Logger: logger})
		go func() {
			if err := br.Serve("streamable-http", bridgePort); err != nil {
				logger.Error("bridge stopped", "error", err)
			}
		}()
	}

	if err := srv.Start(); err != nil {
		return err
	}
	logger.Info("portal ready", "addr", srv.Addr(), "settings", settingsPath)

	<-ctx.Done()
	logger.Info("shutting down")
	srv.Stop()
	return nil
}

func applyOverlayChange(overlay device.Overlay, change settings.Change) {
	if overlay == nil {
		return
	}
	switch change.Key {
	case settings.KeyOverlayOffset:
		if px, ok := change.Value.(int); ok {
			overlay.SetOffset(px)
		}
	case settings.KeyOverlayVisible:
		if on, ok := change.Value.(bool); ok {
			overlay.SetVisible(on)
		}
	}
}
