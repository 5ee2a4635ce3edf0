// Package console renders chat traffic to the terminal and reads operator input.
package console

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/omochice/agent-chatroom/pkg/protocol"
)

// Terminal colors (ANSI 16-color palette).
const (
	colorCyan   = lipgloss.Color("14")
	colorGreen  = lipgloss.Color("10")
	colorYellow = lipgloss.Color("11")
	colorRed    = lipgloss.Color("9")
)

// Options configures a Printer.
type Options struct {
	// Color enables ANSI styling when the output supports it.
	Color bool
	// Now supplies timestamps; defaults to time.Now.
	Now func() time.Time
}

type styles struct {
	text    lipgloss.Style
	notice  lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	bold    lipgloss.Style
}

// Printer writes rendered lines and prompts. All writes are serialized so a
// line and a prompt never interleave.
type Printer struct {
	out    io.Writer
	now    func() time.Time
	styles styles
	mu     sync.Mutex
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer, opts Options) *Printer {
	var outOpts []termenv.OutputOption
	if !opts.Color {
		outOpts = append(outOpts, termenv.WithProfile(termenv.Ascii))
	}
	r := lipgloss.NewRenderer(w, outOpts...)

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Printer{
		out: w,
		now: now,
		styles: styles{
			text:    r.NewStyle().Foreground(colorCyan),
			notice:  r.NewStyle().Foreground(colorYellow),
			success: r.NewStyle().Foreground(colorGreen),
			failure: r.NewStyle().Foreground(colorRed),
			bold:    r.NewStyle().Bold(true),
		},
	}
}

// Render prints one inbound envelope as a timestamped line.
func (p *Printer) Render(m protocol.Inbound) {
	style := p.styles.text
	sender := m.Sender
	switch m.Kind {
	case protocol.KindIgnore:
		return
	case protocol.KindJoin, protocol.KindQuit, protocol.KindSystem:
		style = p.styles.notice
	case protocol.KindError:
		style = p.styles.failure
		sender = "Error"
	}

	ts := p.now().Format("15:04:05")
	line := style.Render("["+ts+"] ") + style.Inherit(p.styles.bold).Render(sender+":") + " " + style.Render(m.Body)
	p.write("\r" + line + "\n")
}

// Prompt prints the input cue for agent without a trailing newline.
func (p *Printer) Prompt(agent string) {
	p.write(p.styles.bold.Render(agent+">") + " ")
}

// Info prints a highlighted status line.
func (p *Printer) Info(format string, args ...any) {
	p.line(p.styles.text, format, args...)
}

// Notice prints a yellow status line.
func (p *Printer) Notice(format string, args ...any) {
	p.line(p.styles.notice, format, args...)
}

// Success prints a green status line.
func (p *Printer) Success(format string, args ...any) {
	p.line(p.styles.success, format, args...)
}

// Failure prints a red status line.
func (p *Printer) Failure(format string, args ...any) {
	p.line(p.styles.failure, format, args...)
}

func (p *Printer) line(style lipgloss.Style, format string, args ...any) {
	p.write("\n" + style.Render(fmt.Sprintf(format, args...)) + "\n")
}

func (p *Printer) write(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	io.WriteString(p.out, s)
}
