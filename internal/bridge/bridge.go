// Package bridge exposes every portal route as an MCP tool for callers that
// cannot open a raw socket. Each tool answers with the exact envelope text
// the socket server would have written, so the two surfaces stay
// behaviorally indistinguishable.
package bridge

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"pkt.systems/pslog"

	"github.com/douyin-rboot/droidrun-portal/internal/command"
	"github.com/douyin-rboot/droidrun-portal/internal/snapshot"
	"github.com/douyin-rboot/droidrun-portal/internal/version"
)

// Config wires a Bridge. Aggregator and Dispatcher are shared with the
// socket server when both surfaces run in one process.
type Config struct {
	Aggregator *snapshot.Aggregator
	Dispatcher *command.Dispatcher
	Logger     pslog.Logger
}

// Bridge owns the MCP server and its tool registrations.
type Bridge struct {
	agg  *snapshot.Aggregator
	disp *command.Dispatcher
	log  pslog.Logger
	mcp  *mcpserver.MCPServer
}

func New(cfg Config) *Bridge {
	logger := cfg.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	b := &Bridge{
		agg:  cfg.Aggregator,
		disp: cfg.Dispatcher,
		log:  logger.With("component", "bridge"),
	}
	b.mcp = mcpserver.NewMCPServer("droidrun-portal", version.Version)
	b.register()
	return b
}

// Serve runs the bridge on the chosen transport until the transport ends.
func (b *Bridge) Serve(transport string, port int) error {
	switch transport {
	case "stdio":
		b.log.Info("bridge serving", "transport", transport)
		return mcpserver.ServeStdio(b.mcp)
	case "streamable-http":
		addr := fmt.Sprintf(":%d", port)
		b.log.Info("bridge serving", "transport", transport, "addr", addr)
		return mcpserver.NewStreamableHTTPServer(b.mcp).Start(addr)
	default:
		return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", transport)
	}
}

func (b *Bridge) register() {
	b.mcp.AddTool(
		mcp.NewTool("ping",
			mcp.WithDescription("Health check; answers the literal pong envelope"),
		),
		b.handlePing,
	)

	b.mcp.AddTool(
		mcp.NewTool("a11y_tree",
			mcp.WithDescription("Snapshot the on-screen UI as an indexed element forest"),
		),
		b.handleTree,
	)

	b.mcp.AddTool(
		mcp.NewTool("phone_state",
			mcp.WithDescription("Read foreground app, keyboard visibility and the focused element"),
		),
		b.handlePhoneState,
	)

	b.mcp.AddTool(
		mcp.NewTool("state",
			mcp.WithDescription("Combined read: element forest plus device state in one payload"),
		),
		b.handleState,
	)

	b.mcp.AddTool(
		mcp.NewTool("screenshot",
			mcp.WithDescription("Capture the screen as base64 PNG, waiting at most the bounded timeout"),
			mcp.WithBoolean("hide_overlay", mcp.Description("Suppress the element overlay during capture (default true)")),
		),
		b.handleScreenshot,
	)

	b.mcp.AddTool(
		mcp.NewTool("keyboard_input",
			mcp.WithDescription("Type text through the portal keyboard"),
			mcp.WithString("base64_text", mcp.Description("Base64-encoded text payload; wins over text when both are set")),
			mcp.WithString("text", mcp.Description("Plain text payload")),
		),
		b.handleKeyboardInput,
	)

	b.mcp.AddTool(
		mcp.NewTool("keyboard_clear",
			mcp.WithDescription("Clear the focused input field"),
		),
		b.handleKeyboardClear,
	)

	b.mcp.AddTool(
		mcp.NewTool("keyboard_key",
			mcp.WithDescription("Send a single key event"),
			mcp.WithNumber("key_code", mcp.Description("Key code to send"), mcp.Required()),
		),
		b.handleKeyboardKey,
	)

	b.mcp.AddTool(
		mcp.NewTool("overlay_offset",
			mcp.WithDescription("Persist and apply the overlay's vertical offset"),
			mcp.WithNumber("offset", mcp.Description("Offset in screen pixels; negative moves up"), mcp.Required()),
		),
		b.handleOverlayOffset,
	)
}
