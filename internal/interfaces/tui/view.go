package tui

import (
	"fmt"
	"strings"

	"github.com/garyjia/pm-status-review/internal/domain/event"
	"github.com/garyjia/pm-status-review/internal/domain/workflow"
)

// View renders the current phase
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	switch m.view.Phase {
	case workflow.StateSelectingManager:
		m.renderManagers(&b)
	case workflow.StateSelectingMode:
		m.renderModes(&b)
	case workflow.StateReviewing, workflow.StateConfirmingDowngrade:
		m.renderReview(&b)
	case workflow.StateEmpty:
		m.renderEmpty(&b)
	case workflow.StateError:
		m.renderError(&b)
	}

	if n := renderNotice(m.view.Notice); n != "" {
		b.WriteString("\n" + n + "\n")
	}
	if m.view.Error != "" && m.view.Phase != workflow.StateError {
		b.WriteString("\n" + noticeStyles[event.LevelError].Render(m.view.Error) + "\n")
	}
	b.WriteString("\n" + renderFooter(m.keys(), m.footerStatus()))
	return b.String()
}

func (m Model) renderManagers(b *strings.Builder) {
	b.WriteString(renderHeader("Project Managers", "") + "\n\n")
	if m.busy || len(m.view.Managers) == 0 {
		b.WriteString(subtitleStyle.Render("Loading managers...") + "\n")
		return
	}
	for i, pm := range m.view.Managers {
		line := fmt.Sprintf("%s  %d of %d pending", padRight(pm.Name, 24), pm.Pending(), pm.TotalTasks)
		b.WriteString(m.listLine(i, line) + "\n")
	}
}

func (m Model) renderModes(b *strings.Builder) {
	b.WriteString(renderHeader("Choose Mode", m.managerName()) + "\n\n")
	for i, mode := range modes {
		b.WriteString(m.listLine(i, string(mode)) + "\n")
	}
}

func (m Model) renderReview(b *strings.Builder) {
	v := m.view
	focus := fmt.Sprintf("%s | %s | %s", m.managerName(), v.Mode, v.StatusFilter)
	b.WriteString(renderHeader("Review "+position(v), focus) + "\n\n")

	var info strings.Builder
	if cur := v.Current; cur != nil {
		title := cur.OpportunityName
		if v.IsPriority {
			title += " " + priorityStyle.Render("[priority]")
		}
		info.WriteString(renderPanelTitle(title, 40) + "\n")
	}
	status := v.ProjectStatusLabel
	if v.StatusChanged {
		status += " (changed)"
	}
	info.WriteString(renderRow("Project Status", status) + "\n")
	info.WriteString(renderRow("Last Review", formatDate(v.PreviousDayDate)) + "\n")
	info.WriteString(renderRow("Last Meeting", formatDateTime(v.LastMeetingDate)) + "\n")
	info.WriteString(renderRow("Previous Step", v.PreviousStep) + "\n")
	info.WriteString(renderRow("Previous Agenda", v.PreviousAgenda))
	b.WriteString(panelStyle.Render(info.String()) + "\n\n")

	for i, f := range m.fields() {
		row := renderRow(f.label, m.fieldValue(f))
		if i == m.cursor && m.editing == nil {
			row = selectedStyle.Render("> ") + row
		} else {
			row = "  " + row
		}
		b.WriteString(row + "\n")
	}

	if m.editing != nil {
		b.WriteString("\n" + labelStyle.Render(m.editing.label) + "\n" + m.input.View() + "\n")
	}
	if v.PendingConfirmation {
		b.WriteString("\n" + noticeStyles[event.LevelWarning].Render("Drop the support follow-up for this Go Live project? (y/n)") + "\n")
	}
}

func (m Model) renderEmpty(b *strings.Builder) {
	b.WriteString(renderHeader("No Tasks", m.managerName()) + "\n\n")
	b.WriteString(subtitleStyle.Render(fmt.Sprintf("Nothing to review under %q.", m.view.StatusFilter)) + "\n")
}

func (m Model) renderError(b *strings.Builder) {
	b.WriteString(renderHeader("Error", "") + "\n\n")
	msg := m.view.Error
	if msg == "" {
		msg = "The review session could not start."
	}
	b.WriteString(noticeStyles[event.LevelError].Render(msg) + "\n")
}

func (m Model) listLine(i int, text string) string {
	if i == m.cursor {
		return selectedStyle.Render("> " + text)
	}
	return "  " + valueStyle.Render(text)
}

func (m Model) managerName() string {
	if m.view.ManagerName != "" {
		return m.view.ManagerName
	}
	return m.view.ManagerID
}

func (m Model) keys() string {
	if m.editing != nil {
		return "enter save field, esc cancel"
	}
	switch m.view.Phase {
	case workflow.StateSelectingManager:
		return "↑/↓ move, enter pick, q quit"
	case workflow.StateSelectingMode:
		return "↑/↓ move, enter start, esc back, q quit"
	case workflow.StateReviewing:
		return "n/p task, ↑/↓ field, enter edit, s save, t status, f filter, r reload, c manager, x dismiss, q quit"
	case workflow.StateConfirmingDowngrade:
		return "y confirm, n decline"
	case workflow.StateEmpty:
		return "f filter, c manager, q quit"
	case workflow.StateError:
		return "r retry, q quit"
	}
	return "q quit"
}

func (m Model) footerStatus() string {
	if m.busy && m.status == "" {
		return "working..."
	}
	return m.status
}
