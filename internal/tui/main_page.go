package tui

import (
	"strings"

	"github.com/brizzai/imagefeed/internal/profile"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// MainPageKeyMap holds key bindings for the main page actions
type MainPageKeyMap struct {
	open key.Binding
	quit key.Binding
}

func newMainPageKeyMap() *MainPageKeyMap {
	return &MainPageKeyMap{
		open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Open feed"),
		),
		quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("ctrl+c/q", "Quit"),
		),
	}
}

// MainPageModel shows the signed-in user
type MainPageModel struct {
	keys      *MainPageKeyMap
	width     int
	height    int
	profile   profile.Profile
	avatarURL string
}

// OpenFeedMsg is sent when the user chooses to open the feed
type OpenFeedMsg struct{}

// NewMainPageModel creates a new main page model
func NewMainPageModel(p profile.Profile) MainPageModel {
	return MainPageModel{
		keys:      newMainPageKeyMap(),
		profile:   p,
		avatarURL: p.AvatarURL,
	}
}

// Init initializes the model
func (m MainPageModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the main page
func (m MainPageModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.open):
			return m, func() tea.Msg {
				return OpenFeedMsg{}
			}
		}

	case avatarChangedMsg:
		m.avatarURL = msg.URL

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, nil
}

// View renders the main page
func (m MainPageModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render("Image Feed")

	centered := lipgloss.NewStyle().
		Padding(1, 0).
		Width(m.width - 4).
		Align(lipgloss.Center)

	var card strings.Builder
	card.WriteString(headerStyle.Render(m.profile.Name) + "\n")
	card.WriteString(m.profile.LoginName + "\n")
	if m.profile.Bio != "" {
		card.WriteString("\n" + m.profile.Bio + "\n")
	}
	if m.avatarURL != "" {
		card.WriteString("\navatar: " + m.avatarURL)
	}

	cardStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#f56a96")).
		Padding(1, 1).
		Width(m.width - 10).
		Align(lipgloss.Left)

	instruction := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#f56a96")).
		Width(m.width - 4).
		Align(lipgloss.Center).
		Render("Press ENTER to browse the feed")

	help := lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#626262", Dark: "#A49FA5"}).
		Width(m.width - 4).
		Align(lipgloss.Center).
		Render("Press q or Ctrl+C to quit")

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		"",
		title,
		centered.Render("Signed in to Unsplash"),
		cardStyle.Render(card.String()),
		"",
		instruction,
		"",
		help,
	)

	return docStyle.Render(content)
}
