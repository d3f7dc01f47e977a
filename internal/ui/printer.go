package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"golang.org/x/term"
)

// Printer renders the coloured headings, usage text and summary of a run.
type Printer struct {
	out     io.Writer
	heading *color.Color
	section *color.Color
	faint   *color.Color
	good    *color.Color
	warn    *color.Color
	bad     *color.Color
}

// NewPrinter constructs a Printer with colour enabled only for terminal output.
func NewPrinter(out io.Writer) *Printer {
	if out == nil {
		out = os.Stdout
	}

	p := &Printer{
		out:     out,
		heading: color.New(color.FgYellow, color.Bold),
		section: color.New(color.FgCyan, color.Bold),
		faint:   color.New(color.FgHiBlack),
		good:    color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		bad:     color.New(color.FgRed, color.Bold),
	}

	if !supportsColor(out) {
		for _, c := range []*color.Color{p.heading, p.section, p.faint, p.good, p.warn, p.bad} {
			c.DisableColor()
		}
	}
	return p
}

// PrintUsage explains how to invoke the program.
func (p *Printer) PrintUsage(program, platforms string) {
	p.bad.Fprintln(p.out, "No platform(s) provided!")
	fmt.Fprintln(p.out)
	p.section.Fprintf(p.out, "Usage: %s %s [%s] ...\n", program, platforms, platforms)
	fmt.Fprintln(p.out)
	fmt.Fprintf(p.out, "%s %s linux mac\n", p.faint.Sprint("Example:"), program)
}

// PrintStart announces the platforms and destination of the run.
func (p *Printer) PrintStart(platforms []string, dest string) {
	p.heading.Fprintf(p.out, "Downloading Unity releases for %s to %s...\n", strings.Join(platforms, " and "), dest)
}

// PrintSeparator prints a repeated character separator.
func (p *Printer) PrintSeparator(char string, length int) {
	if length <= 0 {
		return
	}
	p.faint.Fprintln(p.out, strings.Repeat(char, length))
}

// PrintRelease introduces the downloads of one release.
func (p *Printer) PrintRelease(dirName string, size int64) {
	p.heading.Fprintf(p.out, "Downloading %s (%s)...\n", dirName, humanize.IBytes(uint64(size)))
}

// PrintModule introduces the download of one module.
func (p *Printer) PrintModule(id, name string) {
	p.heading.Fprintf(p.out, "Downloading module '%s' (%s)...\n", id, name)
}

// SummaryLine is one row of the end-of-run report.
type SummaryLine struct {
	Label string
	Count int
	Kind  LineKind
}

// LineKind selects the colour of a summary row.
type LineKind int

const (
	LinePlain LineKind = iota
	LineGood
	LineWarn
	LineBad
)

// PrintSummary renders the end-of-run report.
func (p *Printer) PrintSummary(lines []SummaryLine, transferred int64) {
	p.PrintSeparator("=", 53)
	p.section.Fprintln(p.out, "Summary")
	for _, l := range lines {
		c := p.colorFor(l.Kind, l.Count)
		fmt.Fprintf(p.out, "  %-18s %s\n", l.Label+":", c.Sprint(l.Count))
	}
	fmt.Fprintf(p.out, "  %-18s %s\n", "Transferred:", humanize.IBytes(uint64(transferred)))
}

func (p *Printer) colorFor(kind LineKind, count int) *color.Color {
	if count == 0 {
		return p.faint
	}
	switch kind {
	case LineGood:
		return p.good
	case LineWarn:
		return p.warn
	case LineBad:
		return p.bad
	default:
		return p.faint
	}
}

func supportsColor(w io.Writer) bool {
	if color.NoColor {
		return false
	}
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}
