package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/brizzai/imagefeed/internal/feed"
	"github.com/brizzai/imagefeed/internal/profile"
	"github.com/brizzai/imagefeed/internal/tui/models"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFeed struct {
	photos  []feed.Photo
	page    int
	pages   [][]feed.Photo
	loadErr error
	likes   map[string]bool
}

func (f *fakeFeed) FetchPhotosNextPage(completion func(error)) bool {
	if f.loadErr != nil {
		completion(f.loadErr)
		return true
	}
	if f.page < len(f.pages) {
		f.photos = append(f.photos, f.pages[f.page]...)
	}
	f.page++
	completion(nil)
	return true
}

func (f *fakeFeed) ChangeLike(id string, isLike bool, completion func(error)) {
	if f.likes == nil {
		f.likes = map[string]bool{}
	}
	f.likes[id] = isLike
	completion(nil)
}

func (f *fakeFeed) Photos() []feed.Photo { return append([]feed.Photo{}, f.photos...) }
func (f *fakeFeed) LastLoadedPage() int  { return f.page }

// run executes cmd and every command batched into it
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, run(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func keyMsg(r string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(r)}
}

func newTestFeedModel(f Feed) FeedModel {
	m := NewFeedModel(f, nil)
	m.list.StatusMessageLifetime = time.Millisecond
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(FeedModel)
}

func find[T any](msgs []tea.Msg) (T, bool) {
	for _, msg := range msgs {
		if v, ok := msg.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func TestPhotoItem(t *testing.T) {
	created := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	item := models.PhotoItem{Photo: feed.Photo{
		ID:            "p1",
		Size:          feed.Size{Width: 400, Height: 300},
		CreatedAt:     &created,
		LargeImageURL: "https://images.unsplash.com/p1-full",
	}}

	assert.Equal(t, "♡ p1", item.Title())
	assert.Equal(t, "01 March 2024 · 400x300 · https://images.unsplash.com/p1-full", item.Description())
	assert.Contains(t, item.ToggledLike().Title(), "♥ p1")

	item.Photo.CreatedAt = nil
	item.Photo.Description = "A lake"
	assert.Equal(t, "♡ A lake", item.Title())
	assert.True(t, strings.HasPrefix(item.Description(), "undated"))
}

func TestFeedModel_InitLoadsFirstPage(t *testing.T) {
	f := &fakeFeed{pages: [][]feed.Photo{{{ID: "a"}}}}
	m := newTestFeedModel(f)

	msg, ok := find[pageLoadedMsg](run(m.Init()))
	require.True(t, ok)
	assert.Equal(t, pageLoadedMsg{page: 1}, msg)

	// page already loaded: nothing to fetch
	m = newTestFeedModel(f)
	_, ok = find[pageLoadedMsg](run(m.Init()))
	assert.False(t, ok)
}

func TestFeedModel_ChangedReloadsPhotos(t *testing.T) {
	f := &fakeFeed{}
	m := newTestFeedModel(f)
	assert.Empty(t, m.Photos())

	f.photos = []feed.Photo{{ID: "b"}, {ID: "a"}}
	updated, _ := m.Update(feedChangedMsg{})
	m = updated.(FeedModel)
	assert.Equal(t, []feed.Photo{{ID: "b"}, {ID: "a"}}, m.Photos())
}

func TestFeedModel_NextPageKey(t *testing.T) {
	f := &fakeFeed{page: 1, photos: []feed.Photo{{ID: "a"}, {ID: "b"}}}
	m := newTestFeedModel(f)

	updated, cmd := m.Update(keyMsg("n"))
	m = updated.(FeedModel)
	assert.True(t, m.loading)

	// a second press while loading does not start another fetch
	_, second := m.Update(keyMsg("n"))
	_, ok := find[pageLoadedMsg](run(second))
	assert.False(t, ok)

	msg, ok := find[pageLoadedMsg](run(cmd))
	require.True(t, ok)
	assert.Equal(t, 2, msg.page)

	updated, _ = m.Update(msg)
	assert.False(t, updated.(FeedModel).loading)
}

func TestFeedModel_LoadFailureShowsStatus(t *testing.T) {
	f := &fakeFeed{page: 1, loadErr: errors.New("boom")}
	m := newTestFeedModel(f)

	_, cmd := m.Update(keyMsg("n"))
	msg, ok := find[pageLoadedMsg](run(cmd))
	require.True(t, ok)
	require.Error(t, msg.err)

	updated, _ := m.Update(msg)
	assert.Contains(t, updated.(FeedModel).View(), "Failed to load photos")
}

func TestFeedModel_LikeKeyFlipsSelected(t *testing.T) {
	f := &fakeFeed{page: 1, photos: []feed.Photo{{ID: "a", Liked: true}, {ID: "b"}, {ID: "c"}}}
	m := newTestFeedModel(f)

	_, cmd := m.Update(keyMsg("l"))
	msg, ok := find[likeDoneMsg](run(cmd))
	require.True(t, ok)
	assert.NoError(t, msg.err)
	assert.Equal(t, map[string]bool{"a": false}, f.likes)
}

func TestFeedModel_QuitKey(t *testing.T) {
	m := newTestFeedModel(&fakeFeed{page: 1})

	_, cmd := m.Update(keyMsg("q"))
	_, ok := find[tea.QuitMsg](run(cmd))
	assert.True(t, ok)
}

func TestAppModel_Pages(t *testing.T) {
	p := profile.Profile{Username: "jdoe", Name: "Jane Doe", LoginName: "@jdoe", Bio: "Shooting film"}
	m := NewAppModel(p, &fakeFeed{page: 1, photos: []feed.Photo{{ID: "a"}}}, nil, nil)

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m = updated.(AppModel)
	view := m.View()
	assert.Contains(t, view, "Jane Doe")
	assert.Contains(t, view, "@jdoe")

	updated, _ = m.Update(avatarChangedMsg{profile.AvatarChanged{URL: "https://images.unsplash.com/jdoe-small"}})
	m = updated.(AppModel)
	assert.Contains(t, m.View(), "https://images.unsplash.com/jdoe-small")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(AppModel)
	msg, ok := find[OpenFeedMsg](run(cmd))
	require.True(t, ok)

	updated, _ = m.Update(msg)
	m = updated.(AppModel)
	assert.Equal(t, "feed", m.page)
	assert.Contains(t, m.View(), "Unsplash feed")

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, "main", updated.(AppModel).page)
}
