package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/douyin-rboot/droidrun-portal/internal/bridge"
	"github.com/douyin-rboot/droidrun-portal/internal/command"
	"github.com/douyin-rboot/droidrun-portal/internal/device/sim"
	"github.com/douyin-rboot/droidrun-portal/internal/model"
	"github.com/douyin-rboot/droidrun-portal/internal/settings"
	"github.com/douyin-rboot/droidrun-portal/internal/snapshot"
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Serve the MCP bridge on its own, without the socket server",
	Long: `Serve the portal's routes as MCP tools. Every tool answers with the same
JSON envelope text the socket would have written.

Supported transports:
  stdio             Standard I/O (default, for MCP clients)
  streamable-http   Streamable HTTP transport (for remote agents)

Examples:
  droidrun-portal bridge
  droidrun-portal bridge --transport streamable-http --port 8081`,
	RunE: runBridge,
}

func init() {
	rootCmd.AddCommand(bridgeCmd)
	bridgeCmd.Flags().String("transport", "stdio", "Transport: stdio, streamable-http")
	bridgeCmd.Flags().Int("port", 8081, "HTTP port for streamable-http transport")
	bridgeCmd.Flags().String("settings", "", "Settings file path (default: user config dir)")
}

func runBridge(cmd *cobra.Command, args []string) error {
	transport, _ := cmd.Flags().GetString("transport")
	port, _ := cmd.Flags().GetInt("port")
	settingsPath, _ := cmd.Flags().GetString("settings")

	provider, parts := sim.NewProvider(model.NewRect(0, 0, 720, 1280))
	sim.Demo(parts)

	if settingsPath == "" {
		settingsPath = defaultSettingsPath()
	}
	store, err := settings.Open(settingsPath, logger)
	if err != nil {
		return fmt.Errorf("open settings: %w", err)
	}
	provider.Overlay.SetOffset(store.OverlayOffset())
	provider.Overlay.SetVisible(store.OverlayVisible())

	engine := snapshot.NewEngine(provider.Tree, logger)
	agg := snapshot.NewAggregator(engine, provider.Tree, logger)
	disp := command.New(command.Config{Provider: provider, Settings: store, Logger: logger})

	br := bridge.New(bridge.Config{Aggregator: agg, Dispatcher: disp, Logger: logger})
	return br.Serve(transport, port)
}
