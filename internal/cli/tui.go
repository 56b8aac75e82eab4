package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/entitygraph/pkg/entity"
	"github.com/matzehuels/entitygraph/pkg/objectgraph"
)

// =============================================================================
// EntityListModel - Interactive entity selection
// =============================================================================

// EntityListModel is the bubbletea model for picking one node of an object
// graph.
type EntityListModel struct {
	Nodes    []objectgraph.Node
	Refs     map[string]int // outgoing references per node id
	Cursor   int
	Selected *objectgraph.Node
	Height   int
	Offset   int
}

// NewEntityListModel creates a list over the nodes of g.
func NewEntityListModel(g *objectgraph.Graph) EntityListModel {
	refs := make(map[string]int, len(g.Nodes))
	for _, e := range g.Edges {
		refs[e.From]++
	}
	return EntityListModel{Nodes: g.Nodes, Refs: refs, Height: 15}
}

func (m EntityListModel) Init() tea.Cmd {
	return nil
}

func (m EntityListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Nodes)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Nodes) == 0 {
				return m, nil
			}
			n := m.Nodes[m.Cursor]
			m.Selected = &n
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-6, 5)
	}
	return m, nil
}

func (m EntityListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Entity"))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Nodes))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		n := m.Nodes[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		name := n.Label
		if name == "" {
			name = "—"
		}
		rows = append(rows, []string{cursor, n.ID, name, loadedSummary(n.Instance), fmt.Sprint(m.Refs[n.ID])})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleBorder).
		Headers("", "Entity", "Name", "Loaded", "Refs").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			idx := m.Offset + row
			if idx >= len(m.Nodes) {
				return lipgloss.NewStyle()
			}
			if idx == m.Cursor {
				return lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
			}
			if m.Nodes[idx].New {
				return lipgloss.NewStyle().Foreground(colorDim)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	if len(m.Nodes) > 0 {
		b.WriteString(StyleDim.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Nodes))))
	} else {
		b.WriteString(StyleDim.Render("  no entities"))
	}

	return b.String()
}

// loadedSummary renders "loaded/declared" for an entity's attributes.
func loadedSummary(e entity.Entity) string {
	if e == nil {
		return "—"
	}
	props := e.MetaClass().Properties
	loaded := 0
	for _, p := range props {
		if _, ok := e.Value(p.Name); ok {
			loaded++
		}
	}
	return fmt.Sprintf("%d/%d", loaded, len(props))
}
