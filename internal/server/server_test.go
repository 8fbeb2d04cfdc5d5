package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/brizzai/imagefeed/internal/config"
	"github.com/brizzai/imagefeed/internal/feed"
	"github.com/brizzai/imagefeed/internal/profile"
	"github.com/brizzai/imagefeed/internal/server/tool"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticFeed struct {
	photos []feed.Photo
}

func (f *staticFeed) LoadNextPage(context.Context) error { return nil }
func (f *staticFeed) Photos() []feed.Photo              { return f.photos }
func (f *staticFeed) LastLoadedPage() int               { return 1 }
func (f *staticFeed) Like(context.Context, string, bool) error {
	return nil
}

func (f *staticFeed) Photo(id string) (feed.Photo, bool) {
	for _, p := range f.photos {
		if p.ID == id {
			return p, true
		}
	}
	return feed.Photo{}, false
}

type staticSession struct{}

func (staticSession) Restore(context.Context) (profile.Profile, error) {
	return profile.Profile{Username: "jdoe", LoginName: "@jdoe"}, nil
}

func freePort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err, "Failed to create listener")
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close(), "Failed to close listener")
	return port
}

func testConfig(port int, mode config.ServerMode) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:    "localhost",
			Port:    port,
			Mode:    mode,
			Name:    "imagefeed",
			Version: "test",
		},
	}
}

func waitForHealth(t *testing.T, port int) {
	t.Helper()
	url := fmt.Sprintf("http://localhost:%d/healthz", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond, "server did not come up")
}

func TestServer_SSEListAndCallTools(t *testing.T) {
	port := freePort(t)
	srv := newServer(testConfig(port, config.ServerModeSSE), tool.NewHandler(
		&staticFeed{photos: []feed.Photo{{ID: "p1", Liked: true}}},
		staticSession{},
	))

	serverCtx, stopServer := context.WithCancel(context.Background())
	defer stopServer()
	go func() {
		if err := srv.Start(serverCtx); err != nil {
			t.Logf("Server error: %v", err)
		}
	}()
	waitForHealth(t, port)

	clientCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sseClient, err := client.NewSSEMCPClient(fmt.Sprintf("http://localhost:%d/sse", port))
	require.NoError(t, err, "Failed to create SSE client")
	defer sseClient.Close()
	require.NoError(t, sseClient.Start(clientCtx), "Failed to start client")

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.Capabilities = mcp.ClientCapabilities{}
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}
	initResult, err := sseClient.Initialize(clientCtx, initReq)
	require.NoError(t, err, "Failed to initialize client")
	assert.Equal(t, "imagefeed", initResult.ServerInfo.Name)

	t.Run("List Available Tools", func(t *testing.T) {
		tools, err := sseClient.ListTools(clientCtx, mcp.ListToolsRequest{})
		require.NoError(t, err)

		var names []string
		for _, tl := range tools.Tools {
			names = append(names, tl.Name)
		}
		assert.ElementsMatch(t, []string{tool.FeedNextPage, tool.FeedList, tool.PhotoLike, tool.ProfileGet}, names)
	})

	t.Run("Call feed_list", func(t *testing.T) {
		request := mcp.CallToolRequest{}
		request.Params.Name = tool.FeedList
		request.Params.Arguments = map[string]interface{}{}

		result, err := sseClient.CallTool(clientCtx, request)
		require.NoError(t, err)
		assert.False(t, result.IsError)
		require.NotEmpty(t, result.Content)
		content, ok := result.Content[0].(mcp.TextContent)
		require.True(t, ok)
		assert.Contains(t, content.Text, `"id":"p1"`)
	})
}

func TestServer_ContextCancellation(t *testing.T) {
	for _, mode := range []config.ServerMode{config.ServerModeSSE, config.ServerModeHTTP} {
		t.Run(string(mode), func(t *testing.T) {
			port := freePort(t)
			srv := newServer(testConfig(port, mode), tool.NewHandler(&staticFeed{}, staticSession{}))

			ctx, cancel := context.WithCancel(context.Background())
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start(ctx) }()
			waitForHealth(t, port)

			cancel()
			select {
			case err := <-errCh:
				assert.NoError(t, err)
			case <-time.After(shutdownTimeout + time.Second):
				t.Fatal("server did not shut down")
			}
		})
	}
}

func TestServer_UnsupportedMode(t *testing.T) {
	srv := newServer(testConfig(0, "carrier-pigeon"), tool.NewHandler(&staticFeed{}, staticSession{}))
	err := srv.Start(context.Background())
	assert.ErrorContains(t, err, "unsupported server mode")
}
