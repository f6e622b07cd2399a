package server

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

const (
	checkmark = "✓"
	xmark     = "✗"
)

// Console prints messages prefixed with the server they concern, e.g.
// "[27713] Server up ✓".
type Console struct {
	out     io.Writer
	label   string
	quiet   bool
	noColor bool

	prefixStyle lipgloss.Style
	goodStyle   lipgloss.Style
	badStyle    lipgloss.Style
	warnStyle   lipgloss.Style
}

// NewConsole writes to out. quiet suppresses everything except errors.
func NewConsole(out io.Writer, label string, quiet, noColor bool) *Console {
	r := lipgloss.NewRenderer(out)
	return &Console{
		out:         out,
		label:       label,
		quiet:       quiet,
		noColor:     noColor,
		prefixStyle: r.NewStyle().Foreground(lipgloss.Color("4")),
		goodStyle:   r.NewStyle().Foreground(lipgloss.Color("2")),
		badStyle:    r.NewStyle().Foreground(lipgloss.Color("1")),
		warnStyle:   r.NewStyle().Foreground(lipgloss.Color("3")),
	}
}

func (c *Console) paint(style lipgloss.Style, s string) string {
	if c.noColor {
		return s
	}
	return style.Render(s)
}

func (c *Console) print(msg string) {
	fmt.Fprintf(c.out, "[%s] %s\n", c.paint(c.prefixStyle, c.label), msg)
}

// Msg prints msg unless the console is quiet.
func (c *Console) Msg(msg string) {
	if c.quiet {
		return
	}
	c.print(msg)
}

// Error prints msg even when quiet.
func (c *Console) Error(msg string) {
	c.print(c.paint(c.badStyle, "ERROR") + " " + msg)
}

// Warn prints a warning unless the console is quiet.
func (c *Console) Warn(msg string) {
	c.Msg(c.paint(c.warnStyle, "WARNING") + " " + msg)
}

// Blank prints an empty line unless the console is quiet.
func (c *Console) Blank() {
	if !c.quiet {
		fmt.Fprintln(c.out)
	}
}

func (c *Console) ok(what string) {
	c.Msg(what + " " + c.paint(c.goodStyle, checkmark))
}

func (c *Console) serverUp() { c.ok("Server up") }

func (c *Console) ready() { c.ok("Ready") }

// serverDown reports a stopped server; good is false when the server was
// expected to be up.
func (c *Console) serverDown(good bool) {
	if good {
		c.ok("Server down")
		return
	}
	c.Msg("Server down " + c.paint(c.badStyle, xmark))
}
