// Package ui is a terminal list that renders a results controller's
// notifications. It keeps its own copy of the rows and only ever changes it
// through the insert, delete, update and move messages it receives.
package ui

import (
	"fmt"
	"log"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"resultsync/internal/domain"
	"resultsync/internal/ui/commands"
	"resultsync/internal/ui/state"
	"resultsync/internal/ui/views"
)

// chrome is the number of lines around the row list: padding, title,
// status and help
const chrome = 9

// Options configures a Model
type Options struct {
	Title   string   // query description shown in the title line
	Columns []string // fields rendered next to each row

	// StaleAfter enables the opportunistic refresh: selecting a row cached
	// longer ago than this refetches it. Zero disables it.
	StaleAfter time.Duration
	// SearchOnStart issues one search as soon as the program runs
	SearchOnStart bool

	Commands *commands.CommandContext
	Pager    HistoryPager // defaults to ov once SetProgram is called
}

// Model represents the UI state
type Model struct {
	state    *state.AppState
	cmdExec  *commands.Executor
	renderer *views.Renderer
	keys     keyMap
	help     help.Model
	spinner  spinner.Model

	width  int
	height int

	title         string
	columns       []string
	staleAfter    time.Duration
	searchOnStart bool
	refreshing    map[domain.EntityID]bool
	pager         HistoryPager
	now           func() time.Time
}

// NewModel creates a new UI model
func NewModel(opts Options) *Model {
	appState := state.NewAppState()

	cmdCtx := opts.Commands
	if cmdCtx == nil {
		cmdCtx = &commands.CommandContext{}
	}
	cmdCtx.State = appState

	return &Model{
		state:         appState,
		cmdExec:       commands.NewExecutor(cmdCtx),
		renderer:      views.NewRenderer(),
		keys:          defaultKeyMap(),
		help:          help.New(),
		spinner:       spinner.New(spinner.WithSpinner(spinner.Dot)),
		title:         opts.Title,
		columns:       opts.Columns,
		staleAfter:    opts.StaleAfter,
		searchOnStart: opts.SearchOnStart,
		refreshing:    make(map[domain.EntityID]bool),
		pager:         opts.Pager,
		now:           time.Now,
	}
}

// SetProgram sets the program reference for terminal management
func (m *Model) SetProgram(p *tea.Program) {
	if m.pager == nil {
		m.pager = &ovPager{program: p}
	}
}

// State exposes the model's state for inspection
func (m *Model) State() *state.AppState {
	return m.state
}

// Init starts the spinner and the first search
func (m *Model) Init() tea.Cmd {
	if m.searchOnStart {
		return tea.Batch(m.spinner.Tick, func() tea.Msg { return startSearchMsg{} })
	}
	return m.spinner.Tick
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.state.ViewportHeight = max(msg.Height-chrome, 1)
		m.state.MoveSelection(0)

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case startSearchMsg:
		return m, m.cmdExec.ExecuteSearch()

	case BeginMsg:
		m.state.BeginBatch()

	case EndMsg:
		m.state.EndBatch()

	case ChangeMsg:
		if err := m.state.Apply(msg.Change); err != nil {
			// the rows no longer mirror the controller; nothing later can repair that
			log.Printf("ui: dropping change that does not fit the rows: %v", err)
			m.state.LastError = fmt.Errorf("out of sync: %w", err)
		}

	case SearchDoneMsg:
		m.state.Searching = false
		if msg.Err != nil {
			m.state.LastError = msg.Err
			m.state.Note(fmt.Sprintf("search failed: %v", msg.Err))
			break
		}
		m.state.Searches++
		m.state.LastError = nil
		m.state.StatusMessage = fmt.Sprintf("Search returned %d rows", len(m.state.Rows))
		m.state.Note(fmt.Sprintf("search ok, %d rows", len(m.state.Rows)))

	case ErrorMsg:
		m.state.LastError = msg.Err
		m.state.Note(fmt.Sprintf("error: %v", msg.Err))

	case commands.FetchDoneMsg:
		delete(m.refreshing, msg.ID)
		if msg.Err != nil {
			m.state.StatusMessage = fmt.Sprintf("Refresh of %s failed: %v", msg.ID, msg.Err)
		}

	case historyPagerMsg:
		if msg.err != nil {
			m.state.StatusMessage = fmt.Sprintf("Pager failed: %v", msg.err)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit

	case key.Matches(msg, m.keys.Up):
		m.state.MoveSelection(-1)
		return m.maybeRefreshSelected()

	case key.Matches(msg, m.keys.Down):
		m.state.MoveSelection(1)
		return m.maybeRefreshSelected()

	case key.Matches(msg, m.keys.Search):
		return m.cmdExec.ExecuteSearch()

	case key.Matches(msg, m.keys.Raise):
		if e, ok := m.state.Selected(); ok {
			return m.cmdExec.ExecuteBump(e.ID, 1)
		}

	case key.Matches(msg, m.keys.Lower):
		if e, ok := m.state.Selected(); ok {
			return m.cmdExec.ExecuteBump(e.ID, -1)
		}

	case key.Matches(msg, m.keys.Delete):
		if e, ok := m.state.Selected(); ok {
			return m.cmdExec.ExecuteDelete(e.ID)
		}

	case key.Matches(msg, m.keys.Refresh):
		if e, ok := m.state.Selected(); ok {
			return m.refresh(e.ID)
		}

	case key.Matches(msg, m.keys.History):
		return m.showHistory()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return nil
}

// maybeRefreshSelected refetches the selected row when it is stale
func (m *Model) maybeRefreshSelected() tea.Cmd {
	if m.staleAfter <= 0 {
		return nil
	}
	e, ok := m.state.Selected()
	if !ok || e.CachedAt.IsZero() || m.now().Sub(e.CachedAt) <= m.staleAfter {
		return nil
	}
	return m.refresh(e.ID)
}

func (m *Model) refresh(id domain.EntityID) tea.Cmd {
	if m.refreshing[id] {
		return nil
	}
	cmd := m.cmdExec.ExecuteFetch(id)
	if cmd != nil {
		m.refreshing[id] = true
	}
	return cmd
}

func (m *Model) showHistory() tea.Cmd {
	if m.pager == nil {
		m.state.StatusMessage = "Pager unavailable"
		return nil
	}
	pager, content := m.pager, historyContent(m.state.History)
	return func() tea.Msg {
		return historyPagerMsg{err: pager.Show(content)}
	}
}

// View renders the UI
func (m *Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	rows, first := m.state.VisibleRows()
	vs := views.ViewState{
		Width:         m.width,
		Height:        m.height,
		Title:         m.title,
		Columns:       m.columns,
		Rows:          rows,
		FirstRow:      first,
		TotalRows:     len(m.state.Rows),
		Selected:      m.state.SelectedIndex,
		Marks:         m.state.Marks,
		Searching:     m.state.Searching,
		Spinner:       m.spinner.View(),
		Searches:      m.state.Searches,
		LastBatch:     m.state.LastBatch,
		StatusMessage: m.state.StatusMessage,
		LastError:     m.state.LastError,
		StaleAfter:    m.staleAfter,
		HelpView:      m.help.View(m.keys),
	}
	if e, ok := m.state.Selected(); ok && !e.CachedAt.IsZero() {
		vs.SelectedAge = m.now().Sub(e.CachedAt)
	}
	return m.renderer.Render(vs)
}
