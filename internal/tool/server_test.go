package tool

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_InProcess(t *testing.T) {
	ctx := context.Background()
	srv := NewServer(testHandler(t), "test")

	c, err := client.NewInProcessClient(srv)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()
	require.NoError(t, c.Start(ctx))

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "vesselinfo-test", Version: "0.0.1"}
	_, err = c.Initialize(ctx, initReq)
	require.NoError(t, err)

	tools, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	require.NoError(t, err)
	require.Len(t, tools.Tools, 1)
	assert.Equal(t, DefaultName, tools.Tools[0].Name)

	call := mcp.CallToolRequest{}
	call.Params.Name = DefaultName
	call.Params.Arguments = map[string]any{
		"kind":       "lookupByIdentifier",
		"parameters": map[string]any{"mmsi": 366123456},
	}
	res, err := c.CallTool(ctx, call)
	require.NoError(t, err)
	assert.False(t, res.IsError)

	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(text.Text), &resp))
	assert.Equal(t, "ok", string(resp.Status))
	require.Len(t, resp.Records, 1)
	assert.Equal(t, 37.80513, resp.Records[0].Position.Lat)

	call.Params.Arguments = map[string]any{"kind": "lookupByName", "parameters": map[string]any{"name": "SEA STAR"}}
	res, err = c.CallTool(ctx, call)
	require.NoError(t, err)
	text = res.Content[0].(mcp.TextContent)
	require.NoError(t, json.Unmarshal([]byte(text.Text), &resp))
	assert.Equal(t, "ambiguous", string(resp.Status))

	call.Params.Arguments = map[string]any{"kind": "lookupByName", "parameters": map[string]any{"name": "SEA STAR", "mmsi": 1}}
	res, err = c.CallTool(ctx, call)
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestServe_UnknownTransport(t *testing.T) {
	err := Serve(context.Background(), NewServer(testHandler(t), "test"), ServeOptions{Transport: "carrier-pigeon"})
	assert.ErrorContains(t, err, "unknown transport")
}
