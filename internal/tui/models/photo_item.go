package models

import (
	"fmt"

	"github.com/brizzai/imagefeed/internal/feed"
	"github.com/charmbracelet/lipgloss"
)

var likedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f23a74"))

// PhotoItem wraps a feed.Photo for display in the list
// Implements list.Item
type PhotoItem struct {
	Photo feed.Photo
}

func (i PhotoItem) Title() string {
	title := i.Photo.Description
	if title == "" {
		title = i.Photo.ID
	}
	if i.Photo.Liked {
		return likedStyle.Render("♥") + " " + title
	}
	return "♡ " + title
}

func (i PhotoItem) Description() string {
	date := "undated"
	if i.Photo.CreatedAt != nil {
		date = i.Photo.CreatedAt.Format("02 January 2006")
	}
	return fmt.Sprintf("%s · %dx%d · %s", date, i.Photo.Size.Width, i.Photo.Size.Height, i.Photo.LargeImageURL)
}

func (i PhotoItem) FilterValue() string {
	return i.Photo.ID + " " + i.Photo.Description
}

// ToggledLike returns the item as it will look once the like flips
func (i PhotoItem) ToggledLike() PhotoItem {
	i.Photo.Liked = !i.Photo.Liked
	return i
}
