// Package output renders CLI results for people (colour, icons, progress)
// or for scripts (indented JSON on stdout).
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

var (
	okMark   = color.GreenString("✓")
	failMark = color.RedString("✗")
	arrow    = color.CyanString("→")
	branch   = color.HiBlackString("└─")
)

// Printer writes human output to out, failures to errOut, and switches to
// JSON documents when json is set. Quiet drops everything but failures and
// JSON.
type Printer struct {
	out    io.Writer
	errOut io.Writer
	json   bool
	quiet  bool
}

type Option func(*Printer)

func WithJSON(on bool) Option { return func(p *Printer) { p.json = on } }
func WithQuiet(on bool) Option { return func(p *Printer) { p.quiet = on } }
func WithOutput(w io.Writer) Option { return func(p *Printer) { p.out = w } }
func WithErrOutput(w io.Writer) Option { return func(p *Printer) { p.errOut = w } }

// WithNoColor turns colour off process-wide; fatih/color keeps it global.
func WithNoColor(on bool) Option {
	return func(*Printer) {
		if on {
			color.NoColor = true
		}
	}
}

func New(opts ...Option) *Printer {
	p := &Printer{out: os.Stdout, errOut: os.Stderr}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Printer) IsJSON() bool { return p.json }
func (p *Printer) IsQuiet() bool { return p.quiet }
func (p *Printer) Out() io.Writer { return p.out }
func (p *Printer) human() bool { return !p.quiet && !p.json }

func (p *Printer) Printf(format string, args ...any) {
	if p.human() {
		fmt.Fprintf(p.out, format, args...)
	}
}

func (p *Printer) Println(args ...any) {
	if p.human() {
		fmt.Fprintln(p.out, args...)
	}
}

func (p *Printer) Success(format string, args ...any) {
	if p.human() {
		fmt.Fprintln(p.out, okMark, fmt.Sprintf(format, args...))
	}
}

func (p *Printer) Section(title string) {
	if p.human() {
		fmt.Fprintf(p.out, "\n%s\n", color.New(color.Bold, color.FgCyan).Sprint(title))
	}
}

func (p *Printer) KeyValue(key, value string) {
	if p.human() {
		fmt.Fprintf(p.out, "  %s: %s\n", color.HiBlackString(key), value)
	}
}

// JSON is written even in quiet mode so scripts can combine --json -q.
func (p *Printer) JSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FileWritten reports one converted image and where it went.
func (p *Printer) FileWritten(source, dest, detail string) {
	if !p.human() {
		return
	}
	fmt.Fprintln(p.out, okMark, source, arrow, dest)
	if detail != "" {
		fmt.Fprintln(p.out, " ", branch, detail)
	}
}

// FileFailed goes to errOut unless the run is producing JSON, where the
// failure is part of the document instead.
func (p *Printer) FileFailed(source string, err error) {
	if !p.json {
		fmt.Fprintf(p.errOut, "%s %s: %v\n", failMark, source, err)
	}
}

func (p *Printer) Summary(converted, failed int) {
	if !p.human() {
		return
	}
	total := converted + failed
	line := color.GreenString("%d/%d converted successfully", converted, total)
	if failed > 0 {
		line = color.YellowString("%d/%d converted (%d failed)", converted, total, failed)
	}
	fmt.Fprintf(p.out, "\n%s\n", line)
}
