package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"resultsync/internal/domain"
)

// ViewState contains all the state needed for rendering
type ViewState struct {
	Width  int
	Height int

	Title     string // query description
	Columns   []string
	Rows      []domain.Entity // visible rows only
	FirstRow  int             // list index of Rows[0]
	TotalRows int
	Selected  int
	Marks     map[domain.EntityID]string

	Searching     bool
	Spinner       string
	Searches      int
	LastBatch     int
	StatusMessage string
	LastError     error
	SelectedAge   time.Duration // since the selected row was cached, 0 if unknown
	StaleAfter    time.Duration
	HelpView      string
}

// Renderer handles all view rendering
type Renderer struct {
	styles *Styles
	rows   *RowRenderer
}

// NewRenderer creates a new renderer
func NewRenderer() *Renderer {
	styles := NewStyles()
	return &Renderer{
		styles: styles,
		rows:   NewRowRenderer(styles),
	}
}

// Render produces the complete view
func (r *Renderer) Render(state ViewState) string {
	content := &strings.Builder{}

	logo := r.styles.Title.Render("resultsync")
	right := r.styles.Dim.Render(state.Title)
	if state.Searching {
		right = fmt.Sprintf("%s %s", state.Spinner, r.styles.StatusLoading.Render("Searching"))
	}
	content.WriteString(r.spread(logo, right, state.Width))
	content.WriteString("\n")

	if state.TotalRows == 0 {
		if state.Searching {
			content.WriteString(r.styles.Dim.Render("Waiting for results..."))
		} else {
			content.WriteString(r.styles.Dim.Render("No results. Press r to search."))
		}
	} else {
		content.WriteString(r.renderRows(state))
	}
	content.WriteString("\n")

	content.WriteString(r.renderStatus(state))
	content.WriteString("\n")
	if state.HelpView != "" {
		content.WriteString(state.HelpView)
	}

	return r.styles.Main.Render(content.String())
}

func (r *Renderer) renderRows(state ViewState) string {
	lines := make([]string, 0, len(state.Rows)+2)
	if state.FirstRow > 0 {
		lines = append(lines, r.styles.Scroll.Render(fmt.Sprintf("↑ %d more", state.FirstRow)))
	}
	for i, e := range state.Rows {
		idx := state.FirstRow + i
		lines = append(lines, r.rows.Render(e, state.Columns, state.Marks[e.ID], idx == state.Selected))
	}
	if rest := state.TotalRows - state.FirstRow - len(state.Rows); rest > 0 {
		lines = append(lines, r.styles.Scroll.Render(fmt.Sprintf("↓ %d more", rest)))
	}
	return strings.Join(lines, "\n")
}

func (r *Renderer) renderStatus(state ViewState) string {
	parts := []string{fmt.Sprintf("%d rows", state.TotalRows)}
	if state.Searches > 0 {
		parts = append(parts, fmt.Sprintf("%d searches", state.Searches))
	}
	parts = append(parts, fmt.Sprintf("last pass %d changes", state.LastBatch))

	if state.SelectedAge > 0 {
		age := fmt.Sprintf("cached %s ago", state.SelectedAge.Truncate(time.Second))
		if state.StaleAfter > 0 && state.SelectedAge > state.StaleAfter {
			age = r.styles.StatusStale.Render(age + " (stale)")
		}
		parts = append(parts, age)
	}

	line := r.styles.Status.Render(strings.Join(parts, " | "))
	switch {
	case state.LastError != nil:
		line += "\n" + r.styles.StatusError.Render(fmt.Sprintf("✗ %v (r to retry)", state.LastError))
	case state.StatusMessage != "":
		line += "\n" + r.styles.StatusSuccess.Render(state.StatusMessage)
	}
	return line
}

// spread places left and right on one line, right-aligned to width
func (r *Renderer) spread(left, right string, width int) string {
	if width <= 0 {
		width = 80
	}
	padding := width - 4 - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 2 {
		padding = 2
	}
	return left + strings.Repeat(" ", padding) + right
}
