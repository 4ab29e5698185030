// Package render prints header maps for the command-line front end.
package render

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/scigolib/npzheader"
	"github.com/scigolib/npzheader/internal/npyformat"
)

var (
	colorAccent = lipgloss.Color("#89b4fa")
	colorBorder = lipgloss.Color("#585b70")
	colorMuted  = lipgloss.Color("#a6adc8")
	colorValue  = lipgloss.Color("#a6e3a1")
)

const ellipsis = "…"

// Options controls table rendering.
type Options struct {
	// Color enables terminal colors when the writer supports them.
	Color bool
	// MaxValueWidth truncates the value column; zero disables truncation.
	MaxValueWidth int
}

type styles struct {
	title  lipgloss.Style
	header lipgloss.Style
	cell   lipgloss.Style
	value  lipgloss.Style
	border lipgloss.Style
	empty  lipgloss.Style
}

func newStyles(w io.Writer, color bool) styles {
	r := lipgloss.NewRenderer(w)
	if !color {
		r.SetColorProfile(termenv.Ascii)
	}
	return styles{
		title:  r.NewStyle().Foreground(colorAccent).Bold(true),
		header: r.NewStyle().Foreground(colorAccent).Bold(true).Padding(0, 1),
		cell:   r.NewStyle().Padding(0, 1),
		value:  r.NewStyle().Foreground(colorValue).Padding(0, 1),
		border: r.NewStyle().Foreground(colorBorder),
		empty:  r.NewStyle().Foreground(colorMuted).Italic(true),
	}
}

// Rows returns the table cells for m: name, shape, dtype and value.
func Rows(m *npzheader.HeaderMap, maxValueWidth int) [][]string {
	rows := make([][]string, 0, m.Len())
	for name, info := range m.All() {
		value := ""
		if info.Value != nil {
			value = npzheader.FormatValue(info.Value)
			if maxValueWidth > 0 {
				value = ansi.Truncate(value, maxValueWidth, ellipsis)
			}
		}
		rows = append(rows, []string{name, npyformat.FormatShape(info.Shape), info.DType, value})
	}
	return rows
}

// Table writes path as a title followed by a bordered table of m.
func Table(w io.Writer, path string, m *npzheader.HeaderMap, opts Options) error {
	st := newStyles(w, opts.Color)

	if _, err := fmt.Fprintln(w, st.title.Render(path)); err != nil {
		return err
	}
	if m.Len() == 0 {
		_, err := fmt.Fprintln(w, st.empty.Render("no arrays"))
		return err
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(st.border).
		Headers("Name", "Shape", "DType", "Value").
		Rows(Rows(m, opts.MaxValueWidth)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return st.header
			case col == 3:
				return st.value
			default:
				return st.cell
			}
		})

	_, err := fmt.Fprintln(w, t.Render())
	return err
}

type document struct {
	File  string               `json:"file"`
	Items *npzheader.HeaderMap `json:"items"`
}

// JSON writes path and m as one indented JSON object.
func JSON(w io.Writer, path string, m *npzheader.HeaderMap) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(document{File: path, Items: m})
}
