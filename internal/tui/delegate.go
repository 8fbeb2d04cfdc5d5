package tui

import (
	"github.com/brizzai/imagefeed/internal/tui/models"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// newItemDelegate returns a list.DefaultDelegate that likes or unlikes the
// selected photo through like.
func newItemDelegate(keys *delegateKeyMap, like func(models.PhotoItem) tea.Cmd) list.DefaultDelegate {
	d := list.NewDefaultDelegate()

	d.UpdateFunc = func(msg tea.Msg, m *list.Model) tea.Cmd {
		item, ok := m.SelectedItem().(models.PhotoItem)
		if !ok {
			return nil
		}

		switch msg := msg.(type) {
		case tea.KeyMsg:
			switch {
			case key.Matches(msg, keys.like):
				verb := "Liking "
				if item.Photo.Liked {
					verb = "Unliking "
				}
				return tea.Batch(
					m.NewStatusMessage(statusMessageStyle(verb+item.Photo.ID)),
					like(item),
				)
			}
		}
		return nil
	}

	help := []key.Binding{keys.like}

	d.ShortHelpFunc = func() []key.Binding {
		return help
	}

	d.FullHelpFunc = func() [][]key.Binding {
		return [][]key.Binding{help}
	}

	return d
}

// delegateKeyMap holds key bindings for list item actions.
type delegateKeyMap struct {
	like key.Binding
}

// ShortHelp returns additional short help entries for the delegate.
func (d delegateKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		d.like,
	}
}

// FullHelp returns additional full help entries for the delegate.
func (d delegateKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{
			d.like,
		},
	}
}

// newDelegateKeyMap creates a new delegateKeyMap with default bindings.
func newDelegateKeyMap() *delegateKeyMap {
	return &delegateKeyMap{
		like: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "Like / unlike"),
		),
	}
}
