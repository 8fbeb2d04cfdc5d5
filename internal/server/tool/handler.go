// Package tool implements the MCP tools backed by the feed and profile services.
package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/brizzai/imagefeed/internal/feed"
	"github.com/brizzai/imagefeed/internal/logger"
	"github.com/brizzai/imagefeed/internal/profile"
	"github.com/brizzai/imagefeed/internal/requester"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

const (
	FeedNextPage = "feed_next_page"
	FeedList     = "feed_list"
	PhotoLike    = "photo_like"
	ProfileGet   = "profile_get"
)

// Feed is the part of feed.Service the tools use
type Feed interface {
	LoadNextPage(ctx context.Context) error
	Photos() []feed.Photo
	Photo(id string) (feed.Photo, bool)
	LastLoadedPage() int
	Like(ctx context.Context, photoID string, isLike bool) error
}

// Session restores the signed-in user from the stored token
type Session interface {
	Restore(ctx context.Context) (profile.Profile, error)
}

// Handler executes tool calls
type Handler struct {
	feed    Feed
	session Session
}

// NewHandler creates a new tool handler.
func NewHandler(f Feed, s Session) *Handler {
	return &Handler{feed: f, session: s}
}

// Tool pairs a tool definition with its handler
type Tool struct {
	Tool    mcp.Tool
	Handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// Tools returns every tool the server registers
func (h *Handler) Tools() []Tool {
	return []Tool{
		{
			Tool: mcp.NewTool(FeedNextPage,
				mcp.WithDescription("Load the next page of the Unsplash feed and return the photos it added"),
			),
			Handler: h.wrap(FeedNextPage, h.nextPage),
		},
		{
			Tool: mcp.NewTool(FeedList,
				mcp.WithDescription("List the photos loaded so far, newest first"),
				mcp.WithNumber("limit",
					mcp.Description("Maximum number of photos to return, 0 for all"),
				),
			),
			Handler: h.wrap(FeedList, h.list),
		},
		{
			Tool: mcp.NewTool(PhotoLike,
				mcp.WithDescription("Like or unlike a photo. Without 'like' the current state of a loaded photo is flipped."),
				mcp.WithString("photo_id",
					mcp.Required(),
					mcp.Description("Unsplash photo id"),
				),
				mcp.WithBoolean("like",
					mcp.Description("true to like, false to unlike"),
				),
			),
			Handler: h.wrap(PhotoLike, h.like),
		},
		{
			Tool: mcp.NewTool(ProfileGet,
				mcp.WithDescription("Return the profile of the signed-in Unsplash user"),
			),
			Handler: h.wrap(ProfileGet, h.profile),
		},
	}
}

// wrap logs the call and turns service errors into tool errors
func (h *Handler) wrap(name string, fn func(context.Context, map[string]interface{}) (interface{}, error)) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logger.Debug("tool call", zap.String("tool", name))

		result, err := fn(ctx, request.GetArguments())
		if err != nil {
			logger.Warn("tool call failed", zap.String("tool", name), zap.Error(err))
			return mcp.NewToolResultError(errorMessage(err)), nil
		}

		body, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to encode result of tool %s: %w", name, err)
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}

func errorMessage(err error) string {
	var statusErr *requester.StatusError
	switch {
	case errors.Is(err, requester.ErrNoCredential):
		return "Not signed in: run `imagefeed login` first"
	case errors.As(err, &statusErr):
		return fmt.Sprintf("HTTP Error %d: %s", statusErr.Code, string(statusErr.Body))
	default:
		return err.Error()
	}
}

type pageResult struct {
	Page   int          `json:"page"`
	Added  int          `json:"added"`
	Total  int          `json:"total"`
	Photos []feed.Photo `json:"photos"`
}

func (h *Handler) nextPage(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	before := h.feed.Photos()
	if err := h.feed.LoadNextPage(ctx); err != nil {
		return nil, err
	}
	after := h.feed.Photos()

	known := make(map[string]int, len(before))
	for _, p := range before {
		known[p.ID]++
	}
	added := []feed.Photo{}
	for _, p := range after {
		if known[p.ID] > 0 {
			known[p.ID]--
			continue
		}
		added = append(added, p)
	}

	return pageResult{
		Page:   h.feed.LastLoadedPage(),
		Added:  len(added),
		Total:  len(after),
		Photos: added,
	}, nil
}

func (h *Handler) list(_ context.Context, args map[string]interface{}) (interface{}, error) {
	photos := h.feed.Photos()
	if limit, ok := args["limit"].(float64); ok && limit > 0 && int(limit) < len(photos) {
		photos = photos[:int(limit)]
	}
	return photos, nil
}

type likeResult struct {
	PhotoID string `json:"photo_id"`
	Liked   bool   `json:"liked"`
}

func (h *Handler) like(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	photoID, _ := args["photo_id"].(string)
	if photoID == "" {
		return nil, errors.New("photo_id is required")
	}

	isLike, ok := args["like"].(bool)
	if !ok {
		current, loaded := h.feed.Photo(photoID)
		if !loaded {
			return nil, fmt.Errorf("photo %s is not loaded, pass 'like' explicitly", photoID)
		}
		isLike = !current.Liked
	}

	if err := h.feed.Like(ctx, photoID, isLike); err != nil {
		return nil, err
	}
	return likeResult{PhotoID: photoID, Liked: isLike}, nil
}

func (h *Handler) profile(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	return h.session.Restore(ctx)
}
