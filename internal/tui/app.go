// Package tui is the terminal feed browser.
package tui

import (
	"github.com/brizzai/imagefeed/internal/feed"
	"github.com/brizzai/imagefeed/internal/profile"
	tea "github.com/charmbracelet/bubbletea"
)

type avatarChangedMsg struct{ profile.AvatarChanged }

// AppModel switches between the profile page and the feed
type AppModel struct {
	mainPage MainPageModel
	feedView FeedModel
	avatars  <-chan profile.AvatarChanged
	page     string // "main" or "feed"
}

// NewAppModel creates the browser. feedChanges and avatars deliver the
// service notifications; either may be nil.
func NewAppModel(p profile.Profile, f Feed, feedChanges <-chan feed.Changed, avatars <-chan profile.AvatarChanged) AppModel {
	return AppModel{
		mainPage: NewMainPageModel(p),
		feedView: NewFeedModel(f, feedChanges),
		avatars:  avatars,
		page:     "main",
	}
}

// Init initializes the AppModel
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(
		m.mainPage.Init(),
		m.feedView.Init(),
		waitForAvatar(m.avatars),
	)
}

// Update handles app-level messages and delegates to the appropriate page model
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	var tempModel tea.Model

	switch msg := msg.(type) {
	case OpenFeedMsg:
		m.page = "feed"
		return m, nil

	case avatarChangedMsg:
		tempModel, cmd = m.mainPage.Update(msg)
		m.mainPage = tempModel.(MainPageModel)
		return m, tea.Batch(cmd, waitForAvatar(m.avatars))

	case feedChangedMsg, pageLoadedMsg, likeDoneMsg:
		// the feed keeps its state current even while the profile page shows
		tempModel, cmd = m.feedView.Update(msg)
		m.feedView = tempModel.(FeedModel)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "esc" && m.page == "feed" {
			m.page = "main"
			return m, nil
		}

	case tea.WindowSizeMsg:
		tempModel, cmd = m.mainPage.Update(msg)
		m.mainPage = tempModel.(MainPageModel)
		cmds = append(cmds, cmd)

		tempModel, cmd = m.feedView.Update(msg)
		m.feedView = tempModel.(FeedModel)
		cmds = append(cmds, cmd)

		return m, tea.Batch(cmds...)
	}

	switch m.page {
	case "main":
		tempModel, cmd = m.mainPage.Update(msg)
		m.mainPage = tempModel.(MainPageModel)
	case "feed":
		tempModel, cmd = m.feedView.Update(msg)
		m.feedView = tempModel.(FeedModel)
	}
	return m, cmd
}

// View renders the active page
func (m AppModel) View() string {
	if m.page == "main" {
		return m.mainPage.View()
	}
	return m.feedView.View()
}

func waitForAvatar(ch <-chan profile.AvatarChanged) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return avatarChangedMsg{ev}
	}
}

// Run shows the browser until the user quits. Subscriptions to the service
// notifications last for the lifetime of the program.
func Run(p profile.Profile, f *feed.Service, avatars *profile.ImageService) error {
	feedChanges, stopFeed := f.Changes().Chan(16)
	defer stopFeed()
	avatarChanges, stopAvatars := avatars.Changes().Chan(4)
	defer stopAvatars()

	_, err := tea.NewProgram(NewAppModel(p, f, feedChanges, avatarChanges), tea.WithAltScreen()).Run()
	return err
}
