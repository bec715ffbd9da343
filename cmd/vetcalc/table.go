package main

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// renderTable lays rows out under headers once, without an interactive
// cursor. Columns are as wide as their widest cell.
func renderTable(headers []string, rows [][]string) string {
	cols := make([]table.Column, len(headers))
	for i, h := range headers {
		cols[i] = table.Column{Title: h, Width: lipgloss.Width(h)}
	}
	trows := make([]table.Row, len(rows))
	for i, r := range rows {
		for j, cell := range r {
			if w := lipgloss.Width(cell); j < len(cols) && w > cols[j].Width {
				cols[j].Width = w
			}
		}
		trows[i] = table.Row(r)
	}

	width := 0
	for _, c := range cols {
		// Cells are padded by one space on each side.
		width += c.Width + 2
	}

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		Bold(true)
	styles.Selected = lipgloss.NewStyle()

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(trows),
		table.WithFocused(false),
		table.WithStyles(styles),
		table.WithWidth(width),
		// Header and its border, then every row.
		table.WithHeight(len(rows)+2),
	)

	lines := strings.Split(t.View(), "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n") + "\n"
}
