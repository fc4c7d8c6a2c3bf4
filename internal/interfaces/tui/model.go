// Package tui is a terminal front end driving a single review session.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/garyjia/pm-status-review/internal/application/review"
	"github.com/garyjia/pm-status-review/internal/domain/entity"
	"github.com/garyjia/pm-status-review/internal/domain/rules"
	"github.com/garyjia/pm-status-review/internal/domain/workflow"
	"github.com/garyjia/pm-status-review/pkg/utils"
)

// DefaultTimeout bounds one backend-bound action
const DefaultTimeout = 30 * time.Second

var modes = []entity.Mode{entity.ModeUpdate, entity.ModeView}

type fieldKind int

const (
	kindChoice fieldKind = iota
	kindDate
	kindDateTime
	kindText
)

type field struct {
	key     string
	label   string
	kind    fieldKind
	visible func(rules.Visibility) bool
	draft   func(rules.Draft) string
	record  func(*entity.Task) string
}

// draftFields are edited in the draft and written by save
var draftFields = []field{
	{
		key:     "next_meeting_scheduled",
		label:   "Next Meeting",
		kind:    kindChoice,
		visible: func(rules.Visibility) bool { return true },
		draft:   func(d rules.Draft) string { return d.NextMeetingScheduled },
	},
	{
		key:     "next_meeting_date",
		label:   "Meeting Date",
		kind:    kindDateTime,
		visible: func(v rules.Visibility) bool { return v.NextMeetingDate },
		draft:   func(d rules.Draft) string { return formatDateTime(d.NextMeetingDate) },
	},
	{
		key:     "next_steps",
		label:   "Next Steps",
		kind:    kindText,
		visible: func(v rules.Visibility) bool { return v.NextSteps },
		draft:   func(d rules.Draft) string { return d.NextSteps },
	},
	{
		key:     "agenda",
		label:   "Agenda",
		kind:    kindText,
		visible: func(v rules.Visibility) bool { return v.Agenda },
		draft:   func(d rules.Draft) string { return d.Agenda },
	},
	{
		key:     "risk_and_action",
		label:   "Risk & Action",
		kind:    kindText,
		visible: func(v rules.Visibility) bool { return v.RiskAndAction },
		draft:   func(d rules.Draft) string { return d.RiskAndAction },
	},
	{
		key:     "reason",
		label:   "Reason",
		kind:    kindText,
		visible: func(v rules.Visibility) bool { return v.Reason },
		draft:   func(d rules.Draft) string { return d.Reason },
	},
	{
		key:     "support_plan",
		label:   "Support Plan",
		kind:    kindText,
		visible: func(v rules.Visibility) bool { return v.SupportPlan },
		draft:   func(d rules.Draft) string { return d.SupportPlan },
	},
	{
		key:     "support_end_date",
		label:   "Support End",
		kind:    kindDate,
		visible: func(v rules.Visibility) bool { return v.SupportEndDate },
		draft:   func(d rules.Draft) string { return formatDate(d.SupportEndDate) },
	},
}

// recordFields are written straight to the stored record in view mode
var recordFields = []field{
	{key: "next_steps", label: "Next Steps", kind: kindText, record: func(t *entity.Task) string { return t.NextSteps }},
	{key: "agenda", label: "Agenda", kind: kindText, record: func(t *entity.Task) string { return t.NextAgenda }},
	{key: "risk_and_action", label: "Risk & Action", kind: kindText, record: func(t *entity.Task) string { return t.RiskAndAction }},
	{key: "reason", label: "Reason", kind: kindText, record: func(t *entity.Task) string { return t.Reason }},
	{key: "support_plan", label: "Support Plan", kind: kindText, record: func(t *entity.Task) string { return t.SupportPlan }},
}

// actionDoneMsg reports a finished session call
type actionDoneMsg struct {
	op     string
	result *review.SaveResult
	err    error
}

// Model is the bubbletea model of one review session
type Model struct {
	session *review.Session
	timeout time.Duration

	view   review.View
	cursor int
	busy   bool
	status string

	input   textinput.Model
	editing *field

	width    int
	quitting bool
}

// New creates a model over session. A zero timeout uses DefaultTimeout.
func New(session *review.Session, timeout time.Duration) Model {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	input := textinput.New()
	input.CharLimit = utils.MaxTextLength
	input.Width = 60
	input.Prompt = "> "

	return Model{
		session: session,
		timeout: timeout,
		view:    session.Snapshot(),
		input:   input,
	}
}

// Init loads the manager list unless the session was started before the
// program ran
func (m Model) Init() tea.Cmd {
	if len(m.view.Managers) > 0 {
		return nil
	}
	return m.run("start", m.session.Start)
}

// Update handles one message
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case actionDoneMsg:
		m.busy = false
		m.refresh()
		m.status = describe(msg)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		if m.editing != nil {
			return m.updateEditing(msg)
		}
		if m.busy {
			return m, nil
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "q" && m.view.Phase != workflow.StateConfirmingDowngrade {
		m.quitting = true
		return m, tea.Quit
	}

	switch m.view.Phase {
	case workflow.StateSelectingManager:
		return m.handleManagerKey(key)
	case workflow.StateSelectingMode:
		return m.handleModeKey(key)
	case workflow.StateReviewing:
		return m.handleReviewKey(key)
	case workflow.StateConfirmingDowngrade:
		switch key {
		case "y":
			return m.local(func(ctx context.Context) error { return m.session.ConfirmDowngrade(ctx) })
		case "n", "esc":
			return m.local(func(ctx context.Context) error { return m.session.DeclineDowngrade(ctx) })
		}
	case workflow.StateEmpty:
		switch key {
		case "f":
			return m.start("filter", m.nextFilter())
		case "c":
			return m.local(m.session.ChangeManager)
		}
	case workflow.StateError:
		if key == "r" {
			return m.start("retry", m.session.Retry)
		}
	}
	return m, nil
}

func (m Model) handleManagerKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "up", "k":
		m.moveCursor(-1, len(m.view.Managers))
	case "down", "j":
		m.moveCursor(1, len(m.view.Managers))
	case "enter":
		if len(m.view.Managers) == 0 {
			return m, nil
		}
		id := m.view.Managers[m.cursor].ID
		return m.local(func(ctx context.Context) error { return m.session.PickManager(ctx, id) })
	}
	return m, nil
}

func (m Model) handleModeKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "up", "k":
		m.moveCursor(-1, len(modes))
	case "down", "j":
		m.moveCursor(1, len(modes))
	case "enter":
		mode := modes[m.cursor]
		return m.start("select manager", func(ctx context.Context) error { return m.session.ChooseMode(ctx, mode) })
	case "esc":
		return m.local(m.session.ChangeManager)
	}
	return m, nil
}

func (m Model) handleReviewKey(key string) (tea.Model, tea.Cmd) {
	fields := m.fields()
	switch key {
	case "up", "k":
		m.moveCursor(-1, len(fields))
	case "down", "j":
		m.moveCursor(1, len(fields))
	case "n", "right":
		return m.start("next", m.session.GoNext)
	case "p", "left":
		return m.start("previous", m.session.GoPrevious)
	case "r":
		return m.start("reload", m.session.Advance)
	case "f":
		return m.start("filter", m.nextFilter())
	case "t":
		if status, ok := m.nextStatus(); ok {
			return m.local(func(ctx context.Context) error { return m.session.ChangeProjectStatus(ctx, status) })
		}
	case "c":
		return m.local(m.session.ChangeManager)
	case "x":
		m.session.DismissError()
		m.refresh()
		m.status = ""
	case "s":
		m.busy = true
		return m, m.save()
	case "enter":
		if len(fields) == 0 {
			return m, nil
		}
		f := fields[m.cursor]
		if f.kind == kindChoice {
			value := m.nextMeetingOption()
			return m.local(func(ctx context.Context) error {
				return m.session.UpdateDraft(ctx, review.DraftUpdate{NextMeetingScheduled: &value})
			})
		}
		return m.beginEdit(f)
	}
	return m, nil
}

func (m Model) beginEdit(f field) (tea.Model, tea.Cmd) {
	m.editing = &f
	m.input.SetValue(m.fieldValue(f))
	m.input.Placeholder = ""
	switch f.kind {
	case kindDate:
		m.input.Placeholder = review.DateLayout
	case kindDateTime:
		m.input.Placeholder = review.DateTimeLayout
	}
	m.input.CursorEnd()
	m.status = "editing " + strings.ToLower(f.label)
	return m, m.input.Focus()
}

func (m Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.editing = nil
		m.input.Blur()
		m.status = ""
		return m, nil
	case "enter":
		f := *m.editing
		value := strings.TrimSpace(m.input.Value())
		if err := checkValue(f, value); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.editing = nil
		m.input.Blur()

		if m.view.Mode == entity.ModeView {
			return m.start("update field", func(ctx context.Context) error {
				return m.session.UpdateField(ctx, f.key, value)
			})
		}
		return m.local(func(ctx context.Context) error {
			return m.session.UpdateDraft(ctx, draftUpdate(f.key, value))
		})
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// start runs a backend-bound call off the update loop
func (m Model) start(op string, fn func(context.Context) error) (tea.Model, tea.Cmd) {
	m.busy = true
	m.status = op + "..."
	return m, m.run(op, fn)
}

// local applies a call that never reaches the backend
func (m Model) local(fn func(context.Context) error) (tea.Model, tea.Cmd) {
	err := fn(context.Background())
	m.refresh()
	m.status = ""
	if err != nil {
		m.status = errorText(err)
	}
	return m, nil
}

func (m Model) run(op string, fn func(context.Context) error) tea.Cmd {
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return actionDoneMsg{op: op, err: fn(ctx)}
	}
}

func (m Model) save() tea.Cmd {
	session, timeout := m.session, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		result, err := session.ValidateAndSave(ctx)
		return actionDoneMsg{op: "save", result: result, err: err}
	}
}

// refresh re-reads the session, resetting the cursor on a phase change
func (m *Model) refresh() {
	prev := m.view.Phase
	m.view = m.session.Snapshot()
	if m.view.Phase != prev {
		m.cursor = 0
	}
	var n int
	switch m.view.Phase {
	case workflow.StateSelectingManager:
		n = len(m.view.Managers)
	case workflow.StateSelectingMode:
		n = len(modes)
	default:
		n = len(m.fields())
	}
	if m.cursor >= n {
		m.cursor = max(0, n-1)
	}
}

func (m *Model) moveCursor(delta, n int) {
	if n == 0 {
		return
	}
	m.cursor = (m.cursor + delta + n) % n
}

// fields lists the editable rows of the current task
func (m Model) fields() []field {
	if m.view.Mode == entity.ModeView {
		if m.view.Current == nil || m.view.Current.IsVirtual {
			return nil
		}
		return recordFields
	}
	var out []field
	for _, f := range draftFields {
		if f.visible(m.view.Visibility) {
			out = append(out, f)
		}
	}
	return out
}

func (m Model) fieldValue(f field) string {
	if f.record != nil {
		if m.view.Current == nil {
			return ""
		}
		return f.record(m.view.Current)
	}
	return f.draft(m.view.Draft)
}

func (m Model) nextFilter() func(context.Context) error {
	opts := m.view.FilterOptions
	next := m.view.StatusFilter
	for i, o := range opts {
		if o.Selected {
			next = opts[(i+1)%len(opts)].Value
			break
		}
	}
	return func(ctx context.Context) error { return m.session.ChangeStatusFilter(ctx, next) }
}

func (m Model) nextStatus() (string, bool) {
	opts := m.view.StatusOptions
	if len(opts) == 0 {
		return "", false
	}
	for i, o := range opts {
		if o.Value == m.view.ProjectStatus {
			return opts[(i+1)%len(opts)].Value, true
		}
	}
	return opts[0].Value, true
}

func (m Model) nextMeetingOption() string {
	opts := m.view.MeetingOpts
	if len(opts) == 0 {
		return ""
	}
	for i, o := range opts {
		if o.Value == m.view.Draft.NextMeetingScheduled {
			return opts[(i+1)%len(opts)].Value
		}
	}
	return opts[0].Value
}

func draftUpdate(key, value string) review.DraftUpdate {
	var u review.DraftUpdate
	switch key {
	case "next_meeting_date":
		u.NextMeetingDate = &value
	case "next_steps":
		u.NextSteps = &value
	case "agenda":
		u.Agenda = &value
	case "risk_and_action":
		u.RiskAndAction = &value
	case "reason":
		u.Reason = &value
	case "support_plan":
		u.SupportPlan = &value
	case "support_end_date":
		u.SupportEndDate = &value
	}
	return u
}

func checkValue(f field, value string) error {
	switch f.kind {
	case kindDate:
		return utils.ValidateDate(value)
	case kindDateTime:
		return utils.ValidateDateTime(value)
	}
	return utils.ValidateText(f.label, value)
}

func describe(msg actionDoneMsg) string {
	if msg.err != nil {
		return errorText(msg.err)
	}
	if r := msg.result; r != nil {
		switch {
		case r.Outcome == review.SaveOutcomeDuplicate:
			return "not saved: " + r.Warning
		case r.QueueExhausted:
			return "saved, queue finished"
		default:
			return "saved"
		}
	}
	return ""
}

func errorText(err error) string {
	var verr *rules.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	var rerr *review.RequestError
	if errors.As(err, &rerr) {
		return rerr.Message
	}
	return err.Error()
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(review.DateLayout)
}

// formatDateTime leaves out a midnight time
func formatDateTime(t *time.Time) string {
	if t == nil || rules.DateOnly(*t).Equal(*t) {
		return formatDate(t)
	}
	return t.Format(review.DateTimeLayout)
}

func position(v review.View) string {
	if len(v.Queue) == 0 {
		return ""
	}
	return fmt.Sprintf("%d of %d", v.Cursor+1, len(v.Queue))
}
