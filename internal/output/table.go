package output

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"
)

// Palette holds the colors used by styled output.
type Palette struct {
	Border  lipgloss.Color
	Header  lipgloss.Color
	Text    lipgloss.Color
	Subtext lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
}

// DefaultPalette is a dark-terminal palette.
var DefaultPalette = Palette{
	Border:  lipgloss.Color("#585b70"),
	Header:  lipgloss.Color("#89b4fa"),
	Text:    lipgloss.Color("#cdd6f4"),
	Subtext: lipgloss.Color("#a6adc8"),
	Success: lipgloss.Color("#a6e3a1"),
	Warning: lipgloss.Color("#f9e2af"),
	Error:   lipgloss.Color("#f38ba8"),
}

// TableStyle defines the visual style of a table
type TableStyle int

const (
	// TableStyleRounded uses rounded box-drawing corners
	TableStyleRounded TableStyle = iota
	// TableStyleSimple uses square corners
	TableStyleSimple
	// TableStylePlain has no borders, only column padding
	TableStylePlain
)

type borders struct {
	topLeft, topRight, bottomLeft, bottomRight string
	horizontal, vertical                       string
	leftT, rightT, topT, bottomT, cross        string
}

var tableBorders = map[TableStyle]borders{
	TableStyleRounded: {"╭", "╮", "╰", "╯", "─", "│", "├", "┤", "┬", "┴", "┼"},
	TableStyleSimple:  {"┌", "┐", "└", "┘", "─", "│", "├", "┤", "┬", "┴", "┼"},
}

// StyledTable renders terminal tables with box-drawing borders.
type StyledTable struct {
	headers   []string
	rows      [][]string
	widths    []int
	maxWidths map[int]int
	style     TableStyle
	title     string
	footer    string
	renderer  *lipgloss.Renderer
	palette   Palette
}

// NewStyledTable creates a new styled table with headers
func NewStyledTable(headers ...string) *StyledTable {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	return &StyledTable{
		headers:   headers,
		widths:    widths,
		maxWidths: make(map[int]int),
		style:     TableStyleRounded,
		renderer:  lipgloss.DefaultRenderer(),
		palette:   DefaultPalette,
	}
}

// WithTitle adds a title above the table
func (t *StyledTable) WithTitle(title string) *StyledTable {
	t.title = title
	return t
}

// WithFooter adds a footer below the table
func (t *StyledTable) WithFooter(footer string) *StyledTable {
	t.footer = footer
	return t
}

// WithStyle sets the border style
func (t *StyledTable) WithStyle(style TableStyle) *StyledTable {
	t.style = style
	return t
}

// WithRenderer binds the table to a renderer, usually from NewRenderer.
func (t *StyledTable) WithRenderer(r *lipgloss.Renderer) *StyledTable {
	if r != nil {
		t.renderer = r
	}
	return t
}

// WithMaxWidth caps column col at width cells; longer cells are truncated.
func (t *StyledTable) WithMaxWidth(col, width int) *StyledTable {
	if width > 0 {
		t.maxWidths[col] = width
		if col < len(t.widths) && t.widths[col] > width {
			t.widths[col] = width
		}
	}
	return t
}

// AddRow adds a row to the table
func (t *StyledTable) AddRow(cols ...string) {
	for i, c := range cols {
		if i >= len(t.widths) {
			break
		}
		w := runewidth.StringWidth(c)
		if limit, ok := t.maxWidths[i]; ok && w > limit {
			w = limit
		}
		if w > t.widths[i] {
			t.widths[i] = w
		}
	}
	t.rows = append(t.rows, cols)
}

// RowCount returns the number of rows
func (t *StyledTable) RowCount() int {
	return len(t.rows)
}

func (t *StyledTable) cell(col int, s string) string {
	if limit, ok := t.maxWidths[col]; ok && runewidth.StringWidth(s) > limit {
		s = truncate.StringWithTail(s, uint(limit), "…")
	}
	return runewidth.FillRight(s, t.widths[col])
}

// Render returns the table as a string.
func (t *StyledTable) Render() string {
	if len(t.headers) == 0 {
		return ""
	}

	r := t.renderer
	borderStyle := r.NewStyle().Foreground(t.palette.Border)
	headerStyle := r.NewStyle().Foreground(t.palette.Header).Bold(true)
	textStyle := r.NewStyle().Foreground(t.palette.Text)
	subtextStyle := r.NewStyle().Foreground(t.palette.Subtext)

	var sb strings.Builder
	if t.title != "" {
		sb.WriteString(headerStyle.Render(t.title))
		sb.WriteString("\n")
	}

	b, boxed := tableBorders[t.style]
	hline := func(left, mid, right string) {
		if !boxed {
			return
		}
		var line strings.Builder
		line.WriteString(left)
		for i, w := range t.widths {
			line.WriteString(strings.Repeat(b.horizontal, w+2))
			if i < len(t.widths)-1 {
				line.WriteString(mid)
			}
		}
		line.WriteString(right)
		sb.WriteString(borderStyle.Render(line.String()))
		sb.WriteString("\n")
	}
	row := func(cells []string, style lipgloss.Style) {
		sep := ""
		if boxed {
			sep = borderStyle.Render(b.vertical)
			sb.WriteString(sep)
		}
		for i := range t.headers {
			var c string
			if i < len(cells) {
				c = cells[i]
			}
			if boxed || i > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(style.Render(t.cell(i, c)))
			if boxed {
				sb.WriteString(" ")
				sb.WriteString(sep)
			}
		}
		sb.WriteString("\n")
	}

	hline(b.topLeft, b.topT, b.topRight)
	row(t.headers, headerStyle)
	hline(b.leftT, b.cross, b.rightT)
	for _, cells := range t.rows {
		row(cells, textStyle)
	}
	hline(b.bottomLeft, b.bottomT, b.bottomRight)

	if t.footer != "" {
		sb.WriteString(subtextStyle.Render(t.footer))
		sb.WriteString("\n")
	}
	return sb.String()
}

// String implements fmt.Stringer
func (t *StyledTable) String() string {
	return t.Render()
}

// Styles renders one-line status messages with a renderer's color profile.
type Styles struct {
	r *lipgloss.Renderer
	p Palette
}

// NewStyles returns Styles bound to r.
func NewStyles(r *lipgloss.Renderer) Styles {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	return Styles{r: r, p: DefaultPalette}
}

// Success renders a success message with icon
func (s Styles) Success(msg string) string {
	return s.r.NewStyle().Foreground(s.p.Success).Render("✓ " + msg)
}

// Warning renders a warning message with icon
func (s Styles) Warning(msg string) string {
	return s.r.NewStyle().Foreground(s.p.Warning).Render("⚠ " + msg)
}

// Error renders an error message with icon
func (s Styles) Error(msg string) string {
	return s.r.NewStyle().Foreground(s.p.Error).Render("✗ " + msg)
}

// KeyValue renders "key: value" with the key padded to keyWidth.
func (s Styles) KeyValue(key, value string, keyWidth int) string {
	k := runewidth.FillRight(key+":", keyWidth)
	return s.r.NewStyle().Foreground(s.p.Subtext).Render(k) + " " + s.r.NewStyle().Foreground(s.p.Text).Render(value)
}

// Section renders a section heading.
func (s Styles) Section(title string) string {
	return s.r.NewStyle().Foreground(s.p.Header).Bold(true).Render("┌─ " + title + " ─")
}
