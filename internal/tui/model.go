package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/navid4x/ghesta/internal/connectivity"
	"github.com/navid4x/ghesta/internal/models"
	"github.com/navid4x/ghesta/internal/syncer"
)

type screenMode int

const (
	screenList screenMode = iota
	screenForm
	screenFailures
)

type installmentRow struct {
	id          string
	creditor    string
	description string
	totalAmount int64
	startJalali string
	recurrence  models.Recurrence
	count       int
	reminder    int
	notes       string
	paidCount   int
	nextDue     string
	deleted     bool
	deletedAt   *time.Time
	payments    []models.Payment
}

type loadInstallmentsMsg struct {
	sessionID int
	rows      []installmentRow
	fromCache bool
	err       error
}

type mutationDoneMsg struct {
	sessionID int
	feedback  string
	err       error
}

type queueStatusMsg struct {
	pending  int
	failures []models.SyncOperation
	err      error
}

type syncEventMsg struct {
	event syncer.Event
}

type refreshTickMsg struct {
	sessionID int
}

type clearFeedbackMsg struct {
	id int
}

type model struct {
	svc     *syncer.Service
	engine  *syncer.Engine
	monitor *connectivity.Monitor
	userID  string
	events  <-chan syncer.Event

	width  int
	height int

	screen      screenMode
	rows        []installmentRow
	cursor      int
	offset      int
	paneOpen    bool
	payCursor   int
	loading     bool
	fromCache   bool
	loadErr     string
	session     int
	spin        spinner.Model
	syncing     bool
	reachable   bool
	pendingOps  int
	failures    []models.SyncOperation
	failCursor  int
	feedback    string
	feedbackID  int
	form        formState
	quitting    bool
	lastRefresh time.Time
}

// New builds the dashboard. events carries engine drain events into the
// program; the channel is owned by the caller.
func New(svc *syncer.Service, engine *syncer.Engine, monitor *connectivity.Monitor, userID string, events <-chan syncer.Event) tea.Model {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#F47A60"))

	return model{
		svc:       svc,
		engine:    engine,
		monitor:   monitor,
		userID:    userID,
		events:    events,
		screen:    screenList,
		spin:      spin,
		reachable: monitor.Reachable(),
		form:      newFormState(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.loadInstallmentsCmd(m.session),
		m.queueStatusCmd(),
		m.waitForEventCmd(),
		m.refreshTickCmd(),
		m.spin.Tick,
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case loadInstallmentsMsg:
		if msg.sessionID != m.session {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.loadErr = msg.err.Error()
			return m, nil
		}
		m.loadErr = ""
		m.rows = msg.rows
		m.fromCache = msg.fromCache
		m.lastRefresh = time.Now()
		m.clampCursor()
		return m, nil

	case mutationDoneMsg:
		if msg.err != nil {
			next, cmd := m.withFeedback("error: " + msg.err.Error())
			return next, cmd
		}
		next, cmd := m.withFeedback(msg.feedback)
		return next, tea.Batch(cmd, m.loadInstallmentsCmd(m.session), m.queueStatusCmd())

	case queueStatusMsg:
		if msg.err == nil {
			m.pendingOps = msg.pending
			m.failures = msg.failures
			if m.failCursor >= len(m.failures) {
				m.failCursor = max(0, len(m.failures)-1)
			}
		}
		return m, nil

	case syncEventMsg:
		m.reachable = m.monitor.Reachable()
		switch msg.event.Type {
		case syncer.EventDrainStarted:
			m.syncing = true
		case syncer.EventDrainOK:
			m.syncing = false
			return m, tea.Batch(m.queueStatusCmd(), m.waitForEventCmd())
		case syncer.EventDrainFailed:
			m.syncing = false
			return m, tea.Batch(m.queueStatusCmd(), m.waitForEventCmd())
		}
		return m, m.waitForEventCmd()

	case refreshTickMsg:
		if msg.sessionID != m.session {
			return m, nil
		}
		m.reachable = m.monitor.Reachable()
		return m, tea.Batch(m.loadInstallmentsCmd(m.session), m.queueStatusCmd(), m.refreshTickCmd())

	case clearFeedbackMsg:
		if msg.id == m.feedbackID {
			m.feedback = ""
		}
		return m, nil
	}

	if m.screen == screenForm {
		var cmd tea.Cmd
		m.form, cmd = m.form.update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.quitting = true
		return m, tea.Quit
	}

	switch m.screen {
	case screenForm:
		return m.handleFormKey(msg)
	case screenFailures:
		return m.handleFailuresKey(msg)
	}
	return m.handleListKey(msg)
}

func (m model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.paneOpen {
			if m.payCursor > 0 {
				m.payCursor--
			}
			return m, nil
		}
		if m.cursor > 0 {
			m.cursor--
		}
		m.clampCursor()
		return m, nil

	case "down", "j":
		if m.paneOpen {
			if row, ok := m.currentRow(); ok && m.payCursor < len(row.payments)-1 {
				m.payCursor++
			}
			return m, nil
		}
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
		m.clampCursor()
		return m, nil

	case "enter":
		if len(m.rows) == 0 {
			return m, nil
		}
		m.paneOpen = !m.paneOpen
		m.payCursor = 0
		return m, nil

	case "esc":
		m.paneOpen = false
		return m, nil

	case " ":
		if !m.paneOpen {
			return m, nil
		}
		row, ok := m.currentRow()
		if !ok || m.payCursor >= len(row.payments) {
			return m, nil
		}
		return m, m.togglePaymentCmd(m.session, row.id, row.payments[m.payCursor].ID)

	case "n":
		m.screen = screenForm
		m.form = newFormState()
		return m, m.form.focusCmd()

	case "e":
		row, ok := m.currentRow()
		if !ok || row.deleted {
			return m, nil
		}
		m.screen = screenForm
		m.form = editFormState(row)
		return m, m.form.focusCmd()

	case "d":
		row, ok := m.currentRow()
		if !ok || row.deleted {
			return m, nil
		}
		return m, m.softDeleteCmd(m.session, row.id)

	case "u":
		row, ok := m.currentRow()
		if !ok || !row.deleted {
			return m, nil
		}
		return m, m.restoreCmd(m.session, row.id)

	case "s":
		m.engine.ManualRefresh()
		next, cmd := m.withFeedback("sync requested")
		return next, cmd

	case "r":
		m.loading = true
		return m, m.refreshInstallmentsCmd(m.session)

	case "f":
		if len(m.failures) == 0 {
			return m, nil
		}
		m.screen = screenFailures
		m.failCursor = 0
		return m, nil
	}
	return m, nil
}

func (m model) handleFailuresKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q", "f":
		m.screen = screenList
		return m, nil
	case "up", "k":
		if m.failCursor > 0 {
			m.failCursor--
		}
		return m, nil
	case "down", "j":
		if m.failCursor < len(m.failures)-1 {
			m.failCursor++
		}
		return m, nil
	case "enter":
		if m.failCursor >= len(m.failures) {
			return m, nil
		}
		return m, m.acknowledgeCmd(m.session, m.failures[m.failCursor].ID)
	}
	return m, nil
}

func (m model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.screen = screenList
		return m, nil
	case tea.KeyEnter:
		if !m.form.onLastField() {
			m.form.focusNext()
			return m, m.form.focusCmd()
		}
		params, err := m.form.params(m.userID)
		if err != nil {
			m.form.err = err.Error()
			return m, nil
		}
		m.screen = screenList
		if m.form.editID != "" {
			return m, m.updateCmd(m.session, m.form.editID, params)
		}
		return m, m.createCmd(m.session, params)
	case tea.KeyTab, tea.KeyDown:
		m.form.focusNext()
		return m, m.form.focusCmd()
	case tea.KeyShiftTab, tea.KeyUp:
		m.form.focusPrev()
		return m, m.form.focusCmd()
	}

	var cmd tea.Cmd
	m.form, cmd = m.form.update(msg)
	return m, cmd
}

func (m model) currentRow() (installmentRow, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return installmentRow{}, false
	}
	return m.rows[m.cursor], true
}

func (m *model) clampCursor() {
	if m.cursor >= len(m.rows) {
		m.cursor = max(0, len(m.rows)-1)
	}
	visible := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
}

func (m model) visibleRows() int {
	return 8
}

func (m model) withFeedback(text string) (model, tea.Cmd) {
	m.feedback = text
	m.feedbackID++
	id := m.feedbackID
	return m, tea.Tick(4*time.Second, func(time.Time) tea.Msg {
		return clearFeedbackMsg{id: id}
	})
}

func (m model) loadInstallmentsCmd(session int) tea.Cmd {
	return func() tea.Msg {
		installments, fromCache, err := m.svc.Load(context.Background(), m.userID)
		if err != nil {
			return loadInstallmentsMsg{sessionID: session, err: err}
		}
		rows := make([]installmentRow, 0, len(installments))
		for _, inst := range installments {
			if inst.Lifecycle() == models.LifecyclePurged {
				continue
			}
			rows = append(rows, toRow(inst))
		}
		return loadInstallmentsMsg{sessionID: session, rows: rows, fromCache: fromCache}
	}
}

// refreshInstallmentsCmd bypasses the cache freshness window; bound to the
// explicit reload key.
func (m model) refreshInstallmentsCmd(session int) tea.Cmd {
	return func() tea.Msg {
		installments, fromCache, err := m.svc.Refresh(context.Background(), m.userID)
		if err != nil {
			return loadInstallmentsMsg{sessionID: session, err: err}
		}
		rows := make([]installmentRow, 0, len(installments))
		for _, inst := range installments {
			if inst.Lifecycle() == models.LifecyclePurged {
				continue
			}
			rows = append(rows, toRow(inst))
		}
		return loadInstallmentsMsg{sessionID: session, rows: rows, fromCache: fromCache}
	}
}

func toRow(inst models.Installment) installmentRow {
	row := installmentRow{
		id:          inst.ID,
		creditor:    inst.Creditor,
		description: inst.Description,
		totalAmount: inst.TotalAmount,
		startJalali: inst.StartDateJalali,
		recurrence:  inst.Recurrence,
		count:       inst.InstallmentCount,
		reminder:    inst.ReminderDays,
		notes:       inst.Notes,
		deleted:     inst.Lifecycle() == models.LifecycleSoftDeleted,
		deletedAt:   inst.DeletedAt,
		payments:    inst.Payments,
	}
	for _, p := range inst.Payments {
		if p.IsPaid {
			row.paidCount++
			continue
		}
		if row.nextDue == "" {
			row.nextDue = p.DueDateJalali
		}
	}
	return row
}

func (m model) createCmd(session int, params syncer.CreateParams) tea.Cmd {
	return func() tea.Msg {
		if _, err := m.svc.Create(context.Background(), params); err != nil {
			return mutationDoneMsg{sessionID: session, err: err}
		}
		return mutationDoneMsg{sessionID: session, feedback: "installment created"}
	}
}

func (m model) updateCmd(session int, id string, params syncer.CreateParams) tea.Cmd {
	return func() tea.Msg {
		if _, err := m.svc.Update(context.Background(), id, params); err != nil {
			return mutationDoneMsg{sessionID: session, err: err}
		}
		return mutationDoneMsg{sessionID: session, feedback: "installment updated"}
	}
}

func (m model) togglePaymentCmd(session int, installmentID, paymentID string) tea.Cmd {
	return func() tea.Msg {
		payment, err := m.svc.TogglePayment(context.Background(), installmentID, paymentID)
		if err != nil {
			return mutationDoneMsg{sessionID: session, err: err}
		}
		state := "unpaid"
		if payment.IsPaid {
			state = "paid"
		}
		return mutationDoneMsg{sessionID: session, feedback: "payment marked " + state}
	}
}

func (m model) softDeleteCmd(session int, installmentID string) tea.Cmd {
	return func() tea.Msg {
		if err := m.svc.SoftDelete(context.Background(), installmentID); err != nil {
			return mutationDoneMsg{sessionID: session, err: err}
		}
		days := fmt.Sprintf("%d", syncer.RetentionDays)
		return mutationDoneMsg{sessionID: session, feedback: "deleted (restorable for " + days + " days)"}
	}
}

func (m model) restoreCmd(session int, installmentID string) tea.Cmd {
	return func() tea.Msg {
		if err := m.svc.Restore(context.Background(), installmentID); err != nil {
			return mutationDoneMsg{sessionID: session, err: err}
		}
		return mutationDoneMsg{sessionID: session, feedback: "installment restored"}
	}
}

func (m model) acknowledgeCmd(session int, opID string) tea.Cmd {
	return func() tea.Msg {
		if err := m.svc.Acknowledge(context.Background(), opID); err != nil {
			return mutationDoneMsg{sessionID: session, err: err}
		}
		return mutationDoneMsg{sessionID: session, feedback: "failed operation dismissed"}
	}
}

func (m model) queueStatusCmd() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		pending, err := m.svc.PendingCount(ctx)
		if err != nil {
			return queueStatusMsg{err: err}
		}
		failures, err := m.svc.PermanentFailures(ctx)
		if err != nil {
			return queueStatusMsg{err: err}
		}
		return queueStatusMsg{pending: pending, failures: failures}
	}
}

func (m model) waitForEventCmd() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-m.events
		if !ok {
			return nil
		}
		return syncEventMsg{event: event}
	}
}

func (m model) refreshTickCmd() tea.Cmd {
	session := m.session
	return tea.Tick(30*time.Second, func(time.Time) tea.Msg {
		return refreshTickMsg{sessionID: session}
	})
}
