// Package tui is an interactive view over one stage of the purchase ledger:
// select purchases, see the balances they add up to, and move them to
// another stage in bulk.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmynk/warikan/internal/ledger"
	"github.com/mmynk/warikan/internal/loading"
	"github.com/mmynk/warikan/internal/models"
	"github.com/mmynk/warikan/internal/selection"
)

// Ledger is the part of *ledger.Ledger the view drives.
type Ledger interface {
	FetchAll(ctx context.Context, stage models.Stage) error
	Purchases() []models.Purchase
	Purchase(id string) (models.Purchase, bool)
	Edit(ctx context.Context, id string, patch models.PurchasePatch) error
	SetStageBulk(ctx context.Context, ids []string, stage models.Stage) (*ledger.BulkResult, error)
	DeleteBulk(ctx context.Context, ids []string) (*ledger.BulkResult, error)
}

type loadedMsg struct{ err error }

type bulkDoneMsg struct {
	action string
	result *ledger.BulkResult
	err    error
}

type editDoneMsg struct {
	id  string
	err error
}

// Model is the bubbletea model of the purchase view.
type Model struct {
	ctx     context.Context
	ledger  Ledger
	tracker *loading.Tracker
	keys    KeyMap

	view   *selection.View
	cursor int

	spinner spinner.Model
	note    textinput.Model
	help    help.Model

	status string
	err    error
}

// New creates a view of stage over l. The tracker drives the busy spinner
// and may be nil.
func New(ctx context.Context, l Ledger, tracker *loading.Tracker, stage models.Stage) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	note := textinput.New()
	note.Placeholder = "note"
	note.CharLimit = 280

	return Model{
		ctx:     ctx,
		ledger:  l,
		tracker: tracker,
		keys:    DefaultKeyMap,
		view:    selection.New(stage),
		spinner: sp,
		note:    note,
		help:    help.New(),
	}
}

// Init loads the ledger.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load())
}

func (m Model) load() tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{err: m.ledger.FetchAll(m.ctx, "")}
	}
}

// Update handles a message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loadedMsg:
		m.err = msg.err
		m.clampCursor()
		return m, nil

	case bulkDoneMsg:
		return m.handleBulkDone(msg), nil

	case editDoneMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = "Saved note on " + msg.id
		}
		return m, nil

	case tea.KeyMsg:
		if m.view.EditDialogVisible() {
			return m.updateEditDialog(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	visible := m.visible()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(visible)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Toggle):
		if m.cursor < len(visible) {
			m.view.Toggle(visible[m.cursor].ID)
		}

	case key.Matches(msg, m.keys.ToggleAll):
		m.view.ToggleAll(m.ledger.Purchases())

	case key.Matches(msg, m.keys.Settle):
		return m.bulkStage("settle", models.StageSettled)

	case key.Matches(msg, m.keys.Repay):
		return m.bulkStage("repay", models.StageUnsettled)

	case key.Matches(msg, m.keys.Archive):
		return m.bulkStage("archive", models.StageArchived)

	case key.Matches(msg, m.keys.Delete):
		ids := m.view.Selected()
		if len(ids) == 0 {
			m.status = "Nothing selected"
			return m, nil
		}
		m.status, m.err = "", nil
		return m, func() tea.Msg {
			result, err := m.ledger.DeleteBulk(m.ctx, ids)
			return bulkDoneMsg{action: "delete", result: result, err: err}
		}

	case key.Matches(msg, m.keys.Edit):
		if m.cursor >= len(visible) {
			return m, nil
		}
		target := visible[m.cursor]
		m.view.ShowEditDialog(target.ID)
		m.note.SetValue(target.Note)
		m.note.CursorEnd()
		return m, m.note.Focus()

	case key.Matches(msg, m.keys.NextStage):
		m.view = selection.New(nextStage(m.view.Stage()))
		m.cursor = 0
		m.status = ""

	case key.Matches(msg, m.keys.Refresh):
		return m, m.load()
	}
	return m, nil
}

func (m Model) updateEditDialog(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.view.HideEditDialog()
		m.note.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Save):
		id := m.view.EditTarget()
		note := m.note.Value()
		m.view.HideEditDialog()
		m.note.Blur()
		return m, func() tea.Msg {
			err := m.ledger.Edit(m.ctx, id, models.PurchasePatch{Note: &note})
			return editDoneMsg{id: id, err: err}
		}
	}

	var cmd tea.Cmd
	m.note, cmd = m.note.Update(msg)
	return m, cmd
}

func (m Model) bulkStage(action string, target models.Stage) (tea.Model, tea.Cmd) {
	ids := m.view.Selected()
	if len(ids) == 0 {
		m.status = "Nothing selected"
		return m, nil
	}
	m.status, m.err = "", nil
	return m, func() tea.Msg {
		result, err := m.ledger.SetStageBulk(m.ctx, ids, target)
		return bulkDoneMsg{action: action, result: result, err: err}
	}
}

// handleBulkDone reports the outcome and drops applied purchases from the
// selection, since they have left this stage.
func (m Model) handleBulkDone(msg bulkDoneMsg) Model {
	if msg.err != nil {
		m.err = msg.err
		return m
	}
	applied := msg.result.Applied()
	for _, id := range applied {
		if m.view.IsSelected(id) {
			m.view.Toggle(id)
		}
	}
	m.status = fmt.Sprintf("%s: %d of %d applied", msg.action, len(applied), len(msg.result.Items))
	if rejected := msg.result.Rejected(); len(rejected) > 0 {
		m.status += fmt.Sprintf(", %d rejected", len(rejected))
	}
	m.clampCursor()
	return m
}

func (m Model) visible() []models.Purchase {
	return m.view.Visible(m.ledger.Purchases())
}

func (m *Model) clampCursor() {
	n := len(m.visible())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) busy() bool {
	return m.tracker != nil && m.tracker.IsLoading()
}

func nextStage(s models.Stage) models.Stage {
	for i, stage := range models.Stages {
		if stage == s {
			return models.Stages[(i+1)%len(models.Stages)]
		}
	}
	return models.StageUnsettled
}
