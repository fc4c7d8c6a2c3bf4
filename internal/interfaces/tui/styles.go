package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/garyjia/pm-status-review/internal/domain/event"
)

var (
	colorPrimary = lipgloss.Color("#7aa2f7")
	colorSuccess = lipgloss.Color("#9ece6a")
	colorWarning = lipgloss.Color("#e0af68")
	colorError   = lipgloss.Color("#f7768e")
	colorMuted   = lipgloss.Color("#565f89")
	colorFg      = lipgloss.Color("#c0caf5")
	colorFgDim   = lipgloss.Color("#a9b1d6")
)

var (
	titleStyle    = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	subtitleStyle = lipgloss.NewStyle().Foreground(colorFgDim)
	labelStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	valueStyle    = lipgloss.NewStyle().Foreground(colorFg)
	selectedStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	helpStyle     = lipgloss.NewStyle().Foreground(colorMuted)
	priorityStyle = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorMuted).Padding(0, 1)

	noticeStyles = map[event.Level]lipgloss.Style{
		event.LevelSuccess: lipgloss.NewStyle().Foreground(colorSuccess),
		event.LevelInfo:    lipgloss.NewStyle().Foreground(colorFgDim),
		event.LevelWarning: lipgloss.NewStyle().Foreground(colorWarning),
		event.LevelError:   lipgloss.NewStyle().Foreground(colorError).Bold(true),
	}
)

func renderHeader(title, focus string) string {
	label := "STATUS REVIEW | " + title
	if focus != "" {
		label += " | [" + focus + "]"
	}
	return titleStyle.Render(label)
}

func renderFooter(keys, status string) string {
	if strings.TrimSpace(status) == "" {
		status = "ready"
	}
	return helpStyle.Render("KEYS: " + keys + " | " + status)
}

func renderPanelTitle(title string, width int) string {
	line := strings.Repeat("─", max(0, width))
	return titleStyle.Render(title) + "\n" + labelStyle.Render(line)
}

func renderNotice(n *event.Event) string {
	if n == nil || n.Message == "" {
		return ""
	}
	style, ok := noticeStyles[n.Level]
	if !ok {
		style = noticeStyles[event.LevelInfo]
	}
	return style.Render(n.Message)
}

func renderRow(label, value string) string {
	if value == "" {
		value = "-"
	}
	return labelStyle.Render(padRight(label, 18)) + valueStyle.Render(value)
}

func padRight(s string, n int) string {
	if w := lipgloss.Width(s); w < n {
		return s + strings.Repeat(" ", n-w)
	}
	return s
}
