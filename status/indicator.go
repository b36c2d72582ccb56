// Package status renders the "Buf" status indicator from the lifecycle
// context. It is a plain subscriber: every notification triggers a re-read of
// status, busy flag and tool, and a re-render.
package status

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pterm/pterm"

	"github.com/teranos/bufkit/lifecycle"
)

// Name is the indicator's display name.
const Name = "Buf"

// Snapshot is one rendering of the indicator. Installed is false when no
// buf was detected.
type Snapshot struct {
	Name      string                 `json:"name"`
	Text      string                 `json:"text"`
	Tooltip   string                 `json:"tooltip"`
	Status    lifecycle.ServerStatus `json:"-"`
	State     string                 `json:"status"`
	Busy      bool                   `json:"busy"`
	Tool      string                 `json:"tool"`
	Installed bool                   `json:"installed"`
}

// Indicator tracks the latest Snapshot.
type Indicator struct {
	lc *lifecycle.Context

	mu       sync.Mutex
	current  Snapshot
	renders  int
	onRender []func(Snapshot)

	unsubscribe func()
}

// Option configures an Indicator.
type Option func(*Indicator)

// OnRender registers fn to receive each new Snapshot, including the first.
func OnRender(fn func(Snapshot)) Option {
	return func(i *Indicator) {
		i.onRender = append(i.onRender, fn)
	}
}

// Activate subscribes an Indicator to lc and renders it once.
func Activate(lc *lifecycle.Context, opts ...Option) *Indicator {
	i := &Indicator{lc: lc}
	for _, opt := range opts {
		opt(i)
	}
	i.unsubscribe = lc.Subscribe(i.update)
	i.update()
	return i
}

func (i *Indicator) update() {
	snap := Compute(i.lc.Status(), i.lc.Busy(), i.lc.Tool())

	i.mu.Lock()
	i.current = snap
	i.renders++
	callbacks := i.onRender
	i.mu.Unlock()

	for _, fn := range callbacks {
		fn(snap)
	}
}

// Snapshot returns the latest rendering.
func (i *Indicator) Snapshot() Snapshot {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.current
}

// Renders counts how many times the indicator has been rendered.
func (i *Indicator) Renders() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.renders
}

// Close unsubscribes. Safe to call more than once.
func (i *Indicator) Close() {
	if i.unsubscribe != nil {
		i.unsubscribe()
	}
}

// Compute derives text and tooltip from the context state. Busy takes
// precedence over the server status; a missing tool over both.
func Compute(st lifecycle.ServerStatus, busy bool, tool *lifecycle.ToolDescriptor) Snapshot {
	snap := Snapshot{
		Name:      Name,
		Status:    st,
		State:     st.String(),
		Busy:      busy,
		Tool:      tool.String(),
		Installed: tool != nil,
	}

	var icon string
	switch {
	case tool == nil:
		icon = "⚠"
	case busy:
		icon = "⟳"
	default:
		icon = statusIcon(st)
	}
	snap.Text = icon + " " + Name

	var tip strings.Builder
	fmt.Fprintf(&tip, "Buf language server: %s", st)
	if busy {
		tip.WriteString(" (working)")
	}
	tip.WriteString("\n")
	if tool == nil {
		tip.WriteString("buf is not installed")
	} else {
		tip.WriteString(tool.String())
		if !tool.Satisfied() {
			fmt.Fprintf(&tip, " (requires %s)", tool.VersionRange())
		}
	}
	snap.Tooltip = tip.String()
	return snap
}

func statusIcon(st lifecycle.ServerStatus) string {
	switch st {
	case lifecycle.StatusRunning:
		return "✓"
	case lifecycle.StatusStarting:
		return "…"
	case lifecycle.StatusErrored:
		return "✗"
	case lifecycle.StatusDisabled:
		return "⊘"
	default:
		return "■"
	}
}

// Render writes snap as one coloured line.
func Render(w io.Writer, snap Snapshot) {
	var text string
	switch {
	case !snap.Installed:
		text = pterm.Yellow(snap.Text)
	case snap.Busy:
		text = pterm.LightCyan(snap.Text)
	case snap.Status == lifecycle.StatusRunning:
		text = pterm.Green(snap.Text)
	case snap.Status == lifecycle.StatusErrored:
		text = pterm.Red(snap.Text)
	default:
		text = pterm.Gray(snap.Text)
	}
	fmt.Fprintf(w, "%s  %s\n", text, pterm.Gray(strings.ReplaceAll(snap.Tooltip, "\n", " · ")))
}
