package main

import (
	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
)

type tableStyles struct {
	header  lipgloss.Style
	oddRow  lipgloss.Style
	evenRow lipgloss.Style
	border  lipgloss.Style
}

func newTableStyles() tableStyles {
	purple := lipgloss.Color("99")
	gray := lipgloss.Color("245")
	lightGray := lipgloss.Color("241")

	return tableStyles{
		header: lipgloss.NewStyle().
			Foreground(purple).
			Bold(true).
			Align(lipgloss.Center).
			Padding(0, 1),
		oddRow: lipgloss.NewStyle().
			Foreground(gray).
			Padding(0, 1),
		evenRow: lipgloss.NewStyle().
			Foreground(lightGray).
			Padding(0, 1),
		border: lipgloss.NewStyle().
			Foreground(purple),
	}
}

func (s tableStyles) newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(s.border).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return s.header
			case row%2 == 0:
				return s.evenRow
			default:
				return s.oddRow
			}
		}).
		Headers(headers...)
}

func truncateString(str string, maxLen int) string {
	if len(str) <= maxLen {
		return str
	}
	return str[:maxLen-3] + "..."
}
