package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/udj/internal/models"
	"github.com/desertthunder/udj/internal/shared"
	"github.com/desertthunder/udj/internal/tasks"
)

// Styles is the palette used by the CLI.
var Styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

// NewPalette builds a [Palette] from title, success, error, warning and help foreground colors.
func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

func (p *Palette) Title(s string) string { return p.title.Render(s) }
func (p *Palette) OK(s string) string    { return p.ok.Render(s) }
func (p *Palette) Err(s string) string   { return p.err.Render(s) }
func (p *Palette) Warn(s string) string  { return p.warn.Render(s) }
func (p *Palette) Help(s string) string  { return p.help.Render(s) }

// State colors a sync state: clean is ok, in-flight is a warning, anything pending is help text.
func (p *Palette) State(s models.SyncState) string {
	switch {
	case s == models.StateClean:
		return p.OK(string(s))
	case s.InFlight():
		return p.Warn(string(s))
	default:
		return p.Help(string(s))
	}
}

// Outcome renders a cycle outcome as a short multi-line report.
func (p *Palette) Outcome(o tasks.CycleOutcome) string {
	var b strings.Builder

	status := p.OK("ok")
	if !o.OK() {
		status = p.Err("failed (" + o.Kind.String() + ")")
	}
	fmt.Fprintf(&b, "%s %s: %s\n", p.Title("sync"), o.Account, status)
	fmt.Fprintf(&b, "  sent %d, received %d", o.Sent, o.Received)
	if o.LibraryReceived > 0 {
		fmt.Fprintf(&b, ", library %d", o.LibraryReceived)
	}
	if o.Recovered > 0 {
		fmt.Fprintf(&b, ", %s", p.Warn(fmt.Sprintf("recovered %d", o.Recovered)))
	}
	b.WriteString("\n")

	if o.Cursor != nil {
		fmt.Fprintf(&b, "  cursor %s UTC\n", shared.FormatServerTimestamp(*o.Cursor))
	} else {
		fmt.Fprintf(&b, "  cursor %s\n", p.Help("unset"))
	}
	if o.Err != nil {
		fmt.Fprintf(&b, "  %s\n", p.Err(o.Err.Error()))
	}
	fmt.Fprintf(&b, "  took %s\n", o.FinishedAt.Sub(o.StartedAt).Round(time.Millisecond))

	return b.String()
}

// Counts renders per-state entry counts in a fixed order.
func (p *Palette) Counts(counts map[models.SyncState]int) string {
	order := []models.SyncState{
		models.StateClean, models.StateNeedsInsert, models.StateNeedsUpVote, models.StateNeedsDownVote,
		models.StateInserting, models.StateUpdating,
	}

	parts := make([]string, 0, len(order))
	for _, state := range order {
		if n := counts[state]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", p.State(state), n))
		}
	}
	if len(parts) == 0 {
		return p.Help("empty")
	}
	return strings.Join(parts, ", ")
}
