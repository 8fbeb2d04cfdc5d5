package tui

import (
	"fmt"

	"github.com/brizzai/imagefeed/internal/feed"
	"github.com/brizzai/imagefeed/internal/tui/models"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"

	tea "github.com/charmbracelet/bubbletea"
)

// Feed is what the browser needs from feed.Service
type Feed interface {
	FetchPhotosNextPage(completion func(error)) bool
	ChangeLike(photoID string, isLike bool, completion func(error))
	Photos() []feed.Photo
	LastLoadedPage() int
}

// listKeyMap holds key bindings for the list actions.
type listKeyMap struct {
	nextPage key.Binding
	quit     key.Binding
}

type (
	feedChangedMsg struct{ feed.Changed }
	pageLoadedMsg  struct {
		page    int
		err     error
		skipped bool
	}
	likeDoneMsg struct {
		photoID string
		err     error
	}
)

// newListKeyMap creates a new listKeyMap with default bindings.
func newListKeyMap() *listKeyMap {
	return &listKeyMap{
		nextPage: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "Next page"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "Quit"),
		),
	}
}

// FeedModel lists the loaded photos, newest first
type FeedModel struct {
	list    list.Model
	keys    *listKeyMap
	feed    Feed
	changes <-chan feed.Changed
	loading bool
}

// NewFeedModel creates the feed list. changes delivers feed notifications.
func NewFeedModel(f Feed, changes <-chan feed.Changed) FeedModel {
	listKeys := newListKeyMap()

	delegate := newItemDelegate(newDelegateKeyMap(), func(item models.PhotoItem) tea.Cmd {
		return changeLike(f, item.Photo.ID, !item.Photo.Liked)
	})

	l := list.New(photoItems(f.Photos()), delegate, 0, 0)
	l.Title = titleStyle.Render("Unsplash feed")
	l.SetShowFilter(true)
	// l belongs to the like binding
	l.KeyMap.NextPage.SetKeys("right", "pgdown", "f", "d")
	l.KeyMap.Quit.SetEnabled(false)

	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{
			listKeys.nextPage,
			listKeys.quit,
		}
	}
	return FeedModel{list: l, keys: listKeys, feed: f, changes: changes}
}

func photoItems(photos []feed.Photo) []list.Item {
	items := make([]list.Item, len(photos))
	for i, p := range photos {
		items[i] = models.PhotoItem{Photo: p}
	}
	return items
}

// Init starts listening for feed changes and loads the first page if needed
func (m FeedModel) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForFeedChange(m.changes)}
	if m.feed.LastLoadedPage() == 0 {
		cmds = append(cmds, loadNextPage(m.feed))
	}
	return tea.Batch(cmds...)
}

// Update handles feed messages and list navigation
func (m FeedModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case feedChangedMsg:
		cmd := m.list.SetItems(photoItems(m.feed.Photos()))
		return m, tea.Batch(cmd, waitForFeedChange(m.changes))

	case pageLoadedMsg:
		m.loading = false
		var cmd tea.Cmd
		switch {
		case msg.skipped:
		case msg.err != nil:
			cmd = m.list.NewStatusMessage(errorMessageStyle(fmt.Sprintf("Failed to load photos: %v", msg.err)))
		default:
			cmd = m.list.NewStatusMessage(statusMessageStyle(fmt.Sprintf("Loaded page %d", msg.page)))
		}
		return m, cmd

	case likeDoneMsg:
		var cmd tea.Cmd
		if msg.err != nil {
			cmd = m.list.NewStatusMessage(errorMessageStyle(fmt.Sprintf("Failed to change like of %s: %v", msg.photoID, msg.err)))
		}
		return m, cmd

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.nextPage):
			return m.startLoading()
		}

		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		cmds = append(cmds, cmd)

		// moving onto the last photo pulls in the next page
		if n := len(m.list.Items()); n > 0 && m.list.Index() == n-1 && m.list.FilterState() == list.Unfiltered && !m.loading {
			var load tea.Cmd
			m, load = m.startLoading()
			cmds = append(cmds, load)
		}
		return m, tea.Batch(cmds...)

	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m FeedModel) startLoading() (FeedModel, tea.Cmd) {
	if m.loading {
		cmd := m.list.NewStatusMessage(statusMessageStyle("Already loading"))
		return m, cmd
	}
	m.loading = true
	status := m.list.NewStatusMessage(statusMessageStyle(fmt.Sprintf("Loading page %d", m.feed.LastLoadedPage()+1)))
	return m, tea.Batch(status, loadNextPage(m.feed))
}

// View renders the list
func (m FeedModel) View() string {
	return docStyle.Render(m.list.View())
}

// Photos returns the photos currently shown
func (m FeedModel) Photos() []feed.Photo {
	items := m.list.Items()
	result := make([]feed.Photo, len(items))
	for i, item := range items {
		result[i] = item.(models.PhotoItem).Photo
	}
	return result
}

func waitForFeedChange(ch <-chan feed.Changed) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return feedChangedMsg{ev}
	}
}

func loadNextPage(f Feed) tea.Cmd {
	return func() tea.Msg {
		done := make(chan error, 1)
		if !f.FetchPhotosNextPage(func(err error) { done <- err }) {
			return pageLoadedMsg{skipped: true}
		}
		err := <-done
		return pageLoadedMsg{page: f.LastLoadedPage(), err: err}
	}
}

func changeLike(f Feed, photoID string, isLike bool) tea.Cmd {
	return func() tea.Msg {
		done := make(chan error, 1)
		f.ChangeLike(photoID, isLike, func(err error) { done <- err })
		return likeDoneMsg{photoID: photoID, err: <-done}
	}
}
