package feed

import (
	"sort"
	"time"
)

type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Photo is one entry of the feed
type Photo struct {
	ID            string     `json:"id"`
	Size          Size       `json:"size"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	Description   string     `json:"description,omitempty"`
	ThumbImageURL string     `json:"thumb_image_url"`
	LargeImageURL string     `json:"large_image_url"`
	Liked         bool       `json:"liked"`
}

// Changed is published after a page was appended (PhotoID empty) or after
// the liked flag of PhotoID flipped
type Changed struct {
	PhotoID string
}

type urlsResult struct {
	Raw     *string `json:"raw"`
	Full    *string `json:"full"`
	Regular *string `json:"regular"`
	Small   *string `json:"small"`
	Thumb   *string `json:"thumb"`
}

// photoResult is one element of GET /photos
type photoResult struct {
	ID          string     `json:"id"`
	CreatedAt   *string    `json:"created_at"`
	Width       int        `json:"width"`
	Height      int        `json:"height"`
	Description *string    `json:"description"`
	URLs        urlsResult `json:"urls"`
	LikedByUser bool       `json:"liked_by_user"`
}

func (r photoResult) toPhoto() Photo {
	p := Photo{
		ID:            r.ID,
		Size:          Size{Width: r.Width, Height: r.Height},
		Description:   deref(r.Description),
		ThumbImageURL: deref(r.URLs.Thumb),
		LargeImageURL: deref(r.URLs.Full),
		Liked:         r.LikedByUser,
	}
	if r.CreatedAt != nil {
		if t, err := time.Parse(time.RFC3339, *r.CreatedAt); err == nil {
			p.CreatedAt = &t
		}
	}
	return p
}

// sortNewestFirst orders photos by CreatedAt, newest first; undated photos
// go last and keep their relative order
func sortNewestFirst(photos []Photo) {
	sort.SliceStable(photos, func(i, j int) bool {
		a, b := photos[i].CreatedAt, photos[j].CreatedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
