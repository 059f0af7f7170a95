package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mmynk/warikan/internal/models"
)

var (
	accent = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7D79F6"}
	faint  = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}
	danger = lipgloss.AdaptiveColor{Light: "#D7263D", Dark: "#FF5F6D"}

	spinnerStyle     = lipgloss.NewStyle().Foreground(accent)
	activeTabStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent).Underline(true)
	inactiveTabStyle = lipgloss.NewStyle().Foreground(faint)
	cursorStyle      = lipgloss.NewStyle().Bold(true)
	faintStyle       = lipgloss.NewStyle().Foreground(faint)
	errorStyle       = lipgloss.NewStyle().Foreground(danger)
	paneStyle        = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(faint).
				Padding(0, 1)
	dialogStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1)
)

// View renders the model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.tabs())
	if m.busy() {
		b.WriteString("  " + m.spinner.View() + " " + faintStyle.Render(strings.Join(m.tracker.Operations(), ", ")))
	}
	b.WriteString("\n\n")

	list := m.list()
	balances := paneStyle.Render(m.balances())
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, list, "  ", balances))
	b.WriteString("\n")

	if m.view.EditDialogVisible() {
		b.WriteString("\n")
		b.WriteString(dialogStyle.Render("Note for " + m.view.EditTarget() + "\n" + m.note.View()))
		b.WriteString("\n")
	}

	switch {
	case m.err != nil:
		b.WriteString("\n" + errorStyle.Render("Error: "+m.err.Error()) + "\n")
	case m.status != "":
		b.WriteString("\n" + m.status + "\n")
	}

	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}

func (m Model) tabs() string {
	tabs := make([]string, len(models.Stages))
	for i, stage := range models.Stages {
		style := inactiveTabStyle
		if stage == m.view.Stage() {
			style = activeTabStyle
		}
		tabs[i] = style.Render(stage.String())
	}
	return strings.Join(tabs, "  ")
}

func (m Model) list() string {
	visible := m.visible()
	if len(visible) == 0 {
		return faintStyle.Render(fmt.Sprintf("No %s purchases", m.view.Stage()))
	}

	lines := make([]string, len(visible))
	for i, p := range visible {
		check := "[ ]"
		if m.view.IsSelected(p.ID) {
			check = "[x]"
		}
		pointer := "  "
		if i == m.cursor {
			pointer = "> "
		}
		line := fmt.Sprintf("%s%s %-10s %-20s %10s", pointer, check, p.Date, truncate(p.Name, 20), p.Total().StringFixed(2))
		if p.Note != "" {
			line += "  " + faintStyle.Render(truncate(p.Note, 30))
		}
		if i == m.cursor {
			line = cursorStyle.Render(line)
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

func (m Model) balances() string {
	balances := m.view.Balances(m.ledger.Purchases())
	if len(balances) == 0 {
		return faintStyle.Render("No people yet")
	}

	lines := []string{"Owes"}
	for _, b := range balances {
		lines = append(lines, fmt.Sprintf("%-12s %10s", truncate(b.Name, 12), b.NetOwed.StringFixed(2)))
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
