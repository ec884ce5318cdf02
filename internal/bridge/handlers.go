package bridge

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/douyin-rboot/droidrun-portal/internal/server"
)

// envelopeResult renders an envelope exactly as the socket server would and
// hands the bytes to the MCP client. Error envelopes become error results so
// tool callers see the failure flag without parsing the payload.
func envelopeResult(env server.Envelope) (*mcp.CallToolResult, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return mcp.NewToolResultError(`{"status":"error","message":"response encoding failed"}`), nil
	}
	if env.Status == server.StatusError {
		return mcp.NewToolResultError(string(body)), nil
	}
	return mcp.NewToolResultText(string(body)), nil
}

func (b *Bridge) handlePing(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return envelopeResult(server.Success("pong"))
}

func (b *Bridge) handleTree(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return envelopeResult(server.Success(b.agg.Tree()))
}

func (b *Bridge) handlePhoneState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return envelopeResult(server.Success(b.agg.DeviceState()))
}

func (b *Bridge) handleState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return envelopeResult(server.Success(b.agg.Combined()))
}

func (b *Bridge) handleScreenshot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hide := true
	if v, ok := request.GetArguments()["hide_overlay"].(bool); ok {
		hide = v
	}
	payload, errResult := b.disp.Screenshot(hide)
	if errResult != "" {
		return envelopeResult(server.Error(errResult))
	}
	return envelopeResult(server.Success(payload))
}

func (b *Bridge) handleKeyboardInput(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return envelopeResult(server.CommandEnvelope(b.disp.InputText(request.GetArguments())))
}

func (b *Bridge) handleKeyboardClear(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return envelopeResult(server.CommandEnvelope(b.disp.ClearText()))
}

func (b *Bridge) handleKeyboardKey(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return envelopeResult(server.CommandEnvelope(b.disp.SendKey(request.GetArguments())))
}

func (b *Bridge) handleOverlayOffset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return envelopeResult(server.CommandEnvelope(b.disp.SetOverlayOffset(request.GetArguments())))
}
