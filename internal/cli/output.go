// Package cli provides formatted output rendering for the streamgate
// commands. Every renderer carries result metadata so JSON output stays
// machine-readable while text output stays terminal-friendly.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Format represents an output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat parses a format string, defaulting to text.
func ParseFormat(s string) Format {
	if s == "json" {
		return FormatJSON
	}
	return FormatText
}

// Meta describes a rendered result.
type Meta struct {
	Type      string    `json:"type"`
	Version   string    `json:"version,omitempty"`
	Generated time.Time `json:"generated"`
}

// NewMeta creates metadata with the given type and current timestamp.
func NewMeta(resultType string) Meta {
	return Meta{
		Type:      resultType,
		Version:   "v1",
		Generated: time.Now().UTC(),
	}
}

// Renderable can render itself in multiple formats.
type Renderable interface {
	Meta() Meta
	RenderText(w io.Writer) error
	RenderJSON() any
}

type styles struct {
	key    lipgloss.Style
	header lipgloss.Style
	err    lipgloss.Style
	faint  lipgloss.Style
}

func newStyles(colored bool) styles {
	if !colored {
		s := lipgloss.NewStyle()
		return styles{key: s, header: s, err: s, faint: s}
	}
	return styles{
		key:    lipgloss.NewStyle().Bold(true),
		header: lipgloss.NewStyle().Bold(true).Underline(true),
		err:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		faint:  lipgloss.NewStyle().Faint(true),
	}
}

// Output handles formatted rendering with an automatic JSON envelope.
type Output struct {
	format Format
	w      io.Writer
	styles styles
}

// NewOutput creates an output renderer for the given format. Color is
// applied only when writing to a terminal.
func NewOutput(format Format, w io.Writer) *Output {
	colored := false
	if f, ok := w.(*os.File); ok {
		colored = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Output{format: format, w: w, styles: newStyles(colored)}
}

// ViperGetter is the subset of viper.Viper we need.
type ViperGetter interface {
	GetString(key string) string
}

// NewOutputFromViper creates an output renderer from viper config,
// reading the "output" key for the format.
func NewOutputFromViper(v ViperGetter) *Output {
	return NewOutput(ParseFormat(v.GetString("output")), os.Stdout)
}

// Format returns the configured output format.
func (o *Output) Format() Format {
	return o.format
}

// KV creates a new key-value renderer attached to this output.
func (o *Output) KV(resultType string) *KV {
	return &KV{out: o, meta: NewMeta(resultType)}
}

// Table creates a new table renderer attached to this output.
func (o *Output) Table(resultType string, headers ...string) *Table {
	return &Table{out: o, meta: NewMeta(resultType), headers: headers}
}

// Result creates a new result renderer attached to this output.
func (o *Output) Result(resultType, message string) *Result {
	return &Result{
		out:     o,
		meta:    NewMeta(resultType),
		message: message,
		details: make(map[string]any),
	}
}

// Error creates a new error renderer attached to this output.
func (o *Output) Error(resultType string, err error) *Result {
	return &Result{
		out:     o,
		meta:    NewMeta(resultType + "-error"),
		message: err.Error(),
		isError: true,
		details: make(map[string]any),
	}
}

// Render outputs the renderable in the configured format.
func (o *Output) Render(r Renderable) error {
	if o.format == FormatJSON {
		return o.renderJSON(r)
	}
	return r.RenderText(o.w)
}

func (o *Output) renderJSON(r Renderable) error {
	envelope := struct {
		Meta Meta `json:"meta"`
		Data any  `json:"data"`
	}{
		Meta: r.Meta(),
		Data: r.RenderJSON(),
	}

	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	return enc.Encode(envelope)
}

func formatValue(v any) string {
	return fmt.Sprintf("%v", v)
}
