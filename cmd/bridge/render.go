package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/translator-bridge/dictionary"
	"github.com/wippyai/translator-bridge/host"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	headStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#98FB98"))

	posStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
)

type printer struct {
	w     io.Writer
	color bool
}

func newPrinter(w io.Writer, color bool) *printer {
	return &printer{w: w, color: color}
}

func (p *printer) style(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

func (p *printer) line(s string) {
	fmt.Fprintln(p.w, s)
}

func (p *printer) notFound(word string) {
	p.line(p.style(errorStyle, fmt.Sprintf("%q not found", word)))
}

func (p *printer) word(w *host.Object) {
	fmt.Fprint(p.w, renderWord(w, p.style))
}

// renderWord formats a WordWithTaggedEntries object.
func renderWord(w *host.Object, st func(lipgloss.Style, string) string) string {
	var b strings.Builder
	b.WriteString(st(headStyle, w.Get("word").(string)))
	if sounds, ok := w.Get("sounds").(string); ok && sounds != "" {
		b.WriteString(" ")
		b.WriteString(st(dimStyle, sounds))
	}
	b.WriteString(" ")
	b.WriteString(st(dimStyle, "["+dictionary.Tag(w.Get("tag").(int32)).String()+"]"))
	b.WriteString("\n")

	if hy := stringList(w.Get("hyphenations")); len(hy) > 0 {
		b.WriteString(st(dimStyle, "  "+strings.Join(hy, "‧")))
		b.WriteString("\n")
	}

	n := 0
	for _, e := range w.Get("entries").([]any) {
		for _, s := range e.(*host.Object).Get("senses").([]any) {
			sense := s.(*host.Object)
			n++
			fmt.Fprintf(&b, "  %d. %s\n", n, st(posStyle, sense.Get("pos").(string)))
			for _, g := range sense.Get("glosses").([]any) {
				for i, line := range stringList(g.(*host.Object).Get("gloss-lines")) {
					prefix := "     - "
					if i > 0 {
						prefix = "       "
					}
					b.WriteString(prefix + line + "\n")
				}
			}
		}
	}
	if rd := stringList(w.Get("redirects")); len(rd) > 0 {
		b.WriteString(st(dimStyle, "  see also: "+strings.Join(rd, ", ")))
		b.WriteString("\n")
	}
	return b.String()
}

func stringList(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (p *printer) words(words []*host.Object) {
	p.line(p.style(titleStyle, fmt.Sprintf("%d words", len(words))))
	var b strings.Builder
	for _, w := range words {
		if w.Get("is-at-beginning-of-para").(bool) && b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(w.Get("text").(string))
		if w.Get("end-line").(bool) {
			b.WriteString("\n")
		} else {
			b.WriteString(" ")
		}
	}
	p.line(strings.TrimRight(b.String(), " \n"))
	p.line("")

	for _, w := range words {
		r := wordRect(w)
		fmt.Fprintf(p.w, "%-20s %s %s\n",
			w.Get("text").(string),
			p.style(dimStyle, fmt.Sprintf("[%d,%d %d,%d]", r.Min.X, r.Min.Y, r.Max.X, r.Max.Y)),
			p.style(posStyle, fmt.Sprintf("%.1f", w.Get("confidence").(float32))))
	}
}
