package commands

import (
	"context"
	"fmt"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"resultsync/internal/domain"
	"resultsync/internal/ui/state"
)

// Command represents an executable action
type Command interface {
	Execute() tea.Cmd
}

// Searcher starts a remote search; *results.Controller satisfies it
type Searcher interface {
	PerformSearch(ctx context.Context)
}

// LocalEditor mutates the local object cache; *cache.ObjectCache satisfies it
type LocalEditor interface {
	Update(id domain.EntityID, fn func(*domain.Entity)) bool
	Delete(id domain.EntityID) bool
}

// Fetcher refreshes one record from the remote
type Fetcher interface {
	Fetch(ctx context.Context, id domain.EntityID) (domain.Entity, error)
}

// CommandContext provides context for command execution
type CommandContext struct {
	Ctx       context.Context
	State     *state.AppState
	Searcher  Searcher
	Local     LocalEditor
	Fetcher   Fetcher
	BumpField string // numeric field changed by Bump
}

// FetchDoneMsg reports the end of a row refresh
type FetchDoneMsg struct {
	ID  domain.EntityID
	Err error
}

// SearchCommand starts a remote search. Its outcome arrives as a bridge message.
type SearchCommand struct {
	ctx *CommandContext
}

// NewSearchCommand creates a new search command
func NewSearchCommand(ctx *CommandContext) *SearchCommand {
	return &SearchCommand{ctx: ctx}
}

// Execute performs the search
func (c *SearchCommand) Execute() tea.Cmd {
	if c.ctx.Searcher == nil {
		return nil
	}
	c.ctx.State.Searching = true
	c.ctx.State.StatusMessage = ""
	c.ctx.Searcher.PerformSearch(c.ctx.Ctx)
	return nil
}

// BumpCommand adds delta to the bump field of one cached entity. The row
// moves once the local subscription reports the change.
type BumpCommand struct {
	ctx   *CommandContext
	id    domain.EntityID
	delta int
}

// NewBumpCommand creates a new bump command
func NewBumpCommand(ctx *CommandContext, id domain.EntityID, delta int) *BumpCommand {
	return &BumpCommand{ctx: ctx, id: id, delta: delta}
}

// Execute performs the local edit
func (c *BumpCommand) Execute() tea.Cmd {
	if c.ctx.Local == nil || c.ctx.BumpField == "" {
		c.ctx.State.StatusMessage = "Local edits are disabled"
		return nil
	}
	field := c.ctx.BumpField
	ok := c.ctx.Local.Update(c.id, func(e *domain.Entity) {
		if e.Fields == nil {
			e.Fields = make(map[string]any)
		}
		e.Fields[field] = Bump(e.Fields[field], c.delta)
	})
	if !ok {
		c.ctx.State.StatusMessage = fmt.Sprintf("%s is not in the local cache", c.id)
		return nil
	}
	c.ctx.State.StatusMessage = fmt.Sprintf("%s %s %+d", c.id, field, c.delta)
	return nil
}

// DeleteCommand removes one entity from the local cache
type DeleteCommand struct {
	ctx *CommandContext
	id  domain.EntityID
}

// NewDeleteCommand creates a new delete command
func NewDeleteCommand(ctx *CommandContext, id domain.EntityID) *DeleteCommand {
	return &DeleteCommand{ctx: ctx, id: id}
}

// Execute performs the local delete
func (c *DeleteCommand) Execute() tea.Cmd {
	if c.ctx.Local == nil {
		c.ctx.State.StatusMessage = "Local edits are disabled"
		return nil
	}
	if c.ctx.Local.Delete(c.id) {
		c.ctx.State.StatusMessage = fmt.Sprintf("Deleted %s locally", c.id)
	} else {
		c.ctx.State.StatusMessage = fmt.Sprintf("%s is not in the local cache", c.id)
	}
	return nil
}

// FetchCommand refetches one row from the remote. The fetcher writes the
// answer through to the local cache, which reports it as an update.
type FetchCommand struct {
	ctx *CommandContext
	id  domain.EntityID
}

// NewFetchCommand creates a new fetch command
func NewFetchCommand(ctx *CommandContext, id domain.EntityID) *FetchCommand {
	return &FetchCommand{ctx: ctx, id: id}
}

// Execute starts the fetch
func (c *FetchCommand) Execute() tea.Cmd {
	if c.ctx.Fetcher == nil {
		return nil
	}
	fetcher, ctx, id := c.ctx.Fetcher, c.ctx.Ctx, c.id
	return func() tea.Msg {
		_, err := fetcher.Fetch(ctx, id)
		if err != nil {
			log.Printf("ui: refresh of %s failed: %v", id, err)
		}
		return FetchDoneMsg{ID: id, Err: err}
	}
}

// Bump adds delta to a numeric value. Missing and non-numeric values start
// from zero.
func Bump(v any, delta int) any {
	switch n := v.(type) {
	case int:
		return n + delta
	case int64:
		return n + int64(delta)
	case int32:
		return n + int32(delta)
	case float64:
		return n + float64(delta)
	case float32:
		return n + float32(delta)
	case uint64:
		if delta < 0 && uint64(-delta) > n {
			return uint64(0)
		}
		return uint64(int64(n) + int64(delta))
	default:
		return int64(delta)
	}
}
