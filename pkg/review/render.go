package review

import (
	"regexp"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

var (
	highlightRe = regexp.MustCompile(`==(.+?)==`)
	imageRe     = regexp.MustCompile(`!\[(.*?)\]\((.*?)\)`)
)

// Prepare rewrites the note-editor markdown extensions into plain markdown:
// ==highlight== becomes bold and images become links, since a terminal
// cannot show either.
func Prepare(markdown string) string {
	out := imageRe.ReplaceAllString(markdown, "[image: $1]($2)")
	return highlightRe.ReplaceAllString(out, "**$1**")
}

// Renderer turns card backs into terminal output.
type Renderer struct {
	term *glamour.TermRenderer
}

// StyleAuto picks a dark or light glamour style from the terminal background.
const StyleAuto = "auto"

// Styles lists the accepted review styles: StyleAuto plus glamour's
// standard styles.
var Styles = []string{StyleAuto, "dark", "light", "notty", "ascii", "dracula", "tokyo-night", "pink"}

// ValidStyle reports whether name is "" (auto) or one of Styles.
func ValidStyle(name string) bool {
	return name == "" || slices.Contains(Styles, name)
}

// RenderOption configures a Renderer.
type RenderOption func(*renderOptions)

type renderOptions struct {
	style string
}

// WithStyle selects a glamour standard style by name; "" and StyleAuto
// follow the terminal background.
func WithStyle(name string) RenderOption {
	return func(o *renderOptions) { o.style = name }
}

// NewRenderer renders markdown with glamour, wrapped at width. With plain
// set (or when no style can be loaded) it falls back to prepared markdown text.
func NewRenderer(width int, plain bool, opts ...RenderOption) *Renderer {
	if width <= 0 {
		width = 80
	}
	if plain {
		return &Renderer{}
	}
	var o renderOptions
	for _, opt := range opts {
		opt(&o)
	}
	style := glamour.WithAutoStyle()
	if o.style != "" && o.style != StyleAuto {
		if !ValidStyle(o.style) {
			return &Renderer{}
		}
		style = glamour.WithStandardStyle(o.style)
	}
	term, err := glamour.NewTermRenderer(
		style,
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return &Renderer{}
	}
	return &Renderer{term: term}
}

// Render returns the terminal form of markdown.
func (r *Renderer) Render(markdown string) string {
	prepared := Prepare(markdown)
	if r.term == nil {
		return prepared
	}
	out, err := r.term.Render(prepared)
	if err != nil {
		return prepared
	}
	return strings.TrimRight(out, "\n")
}
