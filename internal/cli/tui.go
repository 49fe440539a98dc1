package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/jheling/blockwork/pkg/block"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// BlockListModel - Interactive block type selection
// =============================================================================

// BlockTypeEntry describes one block definition for the picker.
type BlockTypeEntry struct {
	Name       string
	Fields     int
	Values     int
	Statements int
	Connects   string
}

// inputSummary renders the input counts as a short cell value.
func (e BlockTypeEntry) inputSummary() string {
	var parts []string
	if e.Values > 0 {
		parts = append(parts, fmt.Sprintf("%dv", e.Values))
	}
	if e.Statements > 0 {
		parts = append(parts, fmt.Sprintf("%ds", e.Statements))
	}
	if len(parts) == 0 {
		return "—"
	}
	return strings.Join(parts, " ")
}

// blockTypeEntries builds picker entries for every definition in f, in
// name order. Each definition is instantiated once to read its shape.
func blockTypeEntries(f *block.BlockFactory) []BlockTypeEntry {
	var entries []BlockTypeEntry
	for _, name := range f.BlockNames() {
		b, err := f.MakeBlock(name)
		if err != nil {
			continue
		}
		e := BlockTypeEntry{Name: name}
		for _, in := range b.Inputs() {
			e.Fields += len(in.Fields())
			switch in.Type() {
			case block.InputTypeValue:
				e.Values++
			case block.InputTypeStatement:
				e.Statements++
			}
		}
		switch {
		case b.OutputConnection() != nil:
			e.Connects = "value"
		case b.PreviousConnection() != nil || b.NextConnection() != nil:
			e.Connects = "stack"
		default:
			e.Connects = "none"
		}
		entries = append(entries, e)
	}
	return entries
}

// BlockListModel is the bubbletea model for interactive block type selection.
type BlockListModel struct {
	Entries  []BlockTypeEntry
	Cursor   int
	Selected *BlockTypeEntry
	Height   int
	Offset   int
}

// NewBlockListModel creates a new block type list model.
func NewBlockListModel(entries []BlockTypeEntry) BlockListModel {
	return BlockListModel{
		Entries: entries,
		Cursor:  0,
		Height:  15,
		Offset:  0,
	}
}

func (m BlockListModel) Init() tea.Cmd {
	return nil
}

func (m BlockListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
			if m.Cursor < len(m.Entries)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Entries) == 0 {
				return m, tea.Quit
			}
			entry := m.Entries[m.Cursor]
			m.Selected = &entry
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m BlockListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Block Type"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Entries) {
		end = len(m.Entries)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		e := m.Entries[i]

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}

		fields := "—"
		if e.Fields > 0 {
			fields = fmt.Sprintf("%d", e.Fields)
		}

		rows = append(rows, []string{cursor, e.Name, fields, e.inputSummary(), e.Connects})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Block", "Fields", "Inputs", "Connects").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}

			actualIdx := m.Offset + row
			if actualIdx >= len(m.Entries) {
				return lipgloss.NewStyle()
			}
			if actualIdx == m.Cursor {
				if col <= 1 {
					return listSelectedStyle
				}
				return lipgloss.NewStyle().Bold(true).Foreground(colorGray)
			}
			if col <= 1 {
				return listNormalStyle
			}
			return listDimStyle
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Entries))))

	return b.String()
}
