// Package picker is a terminal list for choosing one saved stimulus spec.
package picker

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Aborted is the index reported when the user leaves without choosing.
const Aborted = -1

// Item is one row in the picker.
type Item struct {
	ID      string
	Summary string
}

// entry adapts Item to list.Item and remembers its input position, which
// survives filtering.
type entry struct {
	Item
	index int
}

func (e entry) Title() string       { return e.ID }
func (e entry) Description() string { return e.Summary }
func (e entry) FilterValue() string { return e.ID + " " + e.Summary }

var docStyle = lipgloss.NewStyle().Margin(1, 2)

// Model is the bubbletea model behind Run.
type Model struct {
	list     list.Model
	selected int
	done     bool
}

// New builds a model listing items in the given order.
func New(title string, items []Item) Model {
	rows := make([]list.Item, len(items))
	for i, it := range items {
		rows[i] = entry{Item: it, index: i}
	}
	l := list.New(rows, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	return Model{list: l, selected: Aborted}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v)
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m.finish(Aborted)
		}
		// While filtering, keys edit the filter text.
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "enter":
			if sel, ok := m.list.SelectedItem().(entry); ok {
				return m.finish(sel.index)
			}
			return m, nil
		case "esc", "q":
			if m.list.FilterState() == list.FilterApplied && msg.String() == "esc" {
				break
			}
			return m.finish(Aborted)
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) finish(index int) (tea.Model, tea.Cmd) {
	m.selected = index
	m.done = true
	return m, tea.Quit
}

func (m Model) View() string {
	if m.done {
		return ""
	}
	return docStyle.Render(m.list.View())
}

// Selected returns the chosen input index, or Aborted.
func (m Model) Selected() int { return m.selected }

// Run shows items and blocks until the user picks one or leaves. It returns
// the index into items, or Aborted.
func Run(title string, items []Item, opts ...tea.ProgramOption) (int, error) {
	if len(items) == 0 {
		return Aborted, nil
	}
	final, err := tea.NewProgram(New(title, items), opts...).Run()
	if err != nil {
		return Aborted, fmt.Errorf("picker: %w", err)
	}
	m, ok := final.(Model)
	if !ok {
		return Aborted, fmt.Errorf("picker: unexpected model %T", final)
	}
	return m.Selected(), nil
}
