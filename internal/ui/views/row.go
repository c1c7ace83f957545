package views

import (
	"fmt"
	"strings"
	"time"

	"resultsync/internal/domain"
)

// RowRenderer renders one result row
type RowRenderer struct {
	styles *Styles
}

// NewRowRenderer creates a new row renderer
func NewRowRenderer(styles *Styles) *RowRenderer {
	return &RowRenderer{styles: styles}
}

// Render renders e as "mark #id title  col=value ..."
func (r *RowRenderer) Render(e domain.Entity, columns []string, mark string, selected bool) string {
	var parts []string

	if mark == "" {
		parts = append(parts, " ")
	} else {
		parts = append(parts, r.styles.MarkStyle(mark).Render(mark))
	}
	parts = append(parts, fmt.Sprintf("#%-4d", e.ID.ID))

	if title, ok := e.Field("title").(string); ok {
		parts = append(parts, truncate(title, 40))
	}
	for _, col := range columns {
		if col == "title" {
			continue
		}
		parts = append(parts, r.styles.Dim.Render(fmt.Sprintf("%s=%s", col, FormatValue(e.Field(col)))))
	}

	line := strings.Join(parts, " ")
	if selected {
		return r.styles.SelectionBg.Render(line)
	}
	return line
}

// FormatValue renders a field value for display
func FormatValue(v any) string {
	switch n := v.(type) {
	case nil:
		return "-"
	case time.Time:
		return n.Format("2006-01-02 15:04")
	case float32, float64:
		return fmt.Sprintf("%.2f", n)
	default:
		return fmt.Sprint(n)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
