package commands

import (
	tea "github.com/charmbracelet/bubbletea"

	"resultsync/internal/domain"
)

// Executor handles command execution
type Executor struct {
	ctx *CommandContext
}

// NewExecutor creates a new command executor
func NewExecutor(ctx *CommandContext) *Executor {
	return &Executor{ctx: ctx}
}

// ExecuteSearch creates and executes a search command
func (e *Executor) ExecuteSearch() tea.Cmd {
	return NewSearchCommand(e.ctx).Execute()
}

// ExecuteBump creates and executes a bump command
func (e *Executor) ExecuteBump(id domain.EntityID, delta int) tea.Cmd {
	return NewBumpCommand(e.ctx, id, delta).Execute()
}

// ExecuteDelete creates and executes a local delete command
func (e *Executor) ExecuteDelete(id domain.EntityID) tea.Cmd {
	return NewDeleteCommand(e.ctx, id).Execute()
}

// ExecuteFetch creates and executes a row refresh command
func (e *Executor) ExecuteFetch(id domain.EntityID) tea.Cmd {
	return NewFetchCommand(e.ctx, id).Execute()
}
