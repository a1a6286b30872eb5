// Package export renders static snapshots of the board.
package export

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/cardtree/pkg/model"
	"github.com/vanderheijden86/cardtree/pkg/selection"
	"github.com/vanderheijden86/cardtree/pkg/tree"
	"github.com/vanderheijden86/cardtree/pkg/window"
)

// DefaultMaxRows caps the number of drawn rows; larger boards are clipped.
const DefaultMaxRows = 400

// SelectionView is the part of the selection engine a snapshot reads.
type SelectionView interface {
	IsSelected(id model.ID) bool
	CheckState(parentID model.ID) selection.CheckState
	Len() int
}

// SnapshotOptions controls board snapshot export.
type SnapshotOptions struct {
	Path        string // Output path; format inferred from extension when Format empty
	Format      string // "svg" or "png" (case-insensitive). If empty, inferred from Path.
	Title       string
	Items       []tree.FlatItem
	Lookup      tree.Lookup
	Window      window.Window
	Visible     window.VisibleSet
	Selection   SelectionView
	CardsPerRow int
	MaxRows     int
}

// SaveSnapshot renders the flat sequence as an SVG or PNG board. Rows inside
// the window are drawn as mounted cards, the rest as placeholders.
func SaveSnapshot(opts SnapshotOptions) error {
	if len(opts.Items) == 0 {
		return fmt.Errorf("no cards to export")
	}
	if opts.Lookup == nil {
		return fmt.Errorf("lookup is required for snapshot export")
	}

	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".svg":
			format = "svg"
		case ".png":
			format = "png"
		default:
			format = "svg"
			if opts.Path != "" && filepath.Ext(opts.Path) == "" {
				opts.Path = opts.Path + ".svg"
			}
		}
	}
	if format != "svg" && format != "png" {
		return fmt.Errorf("unsupported format %q (want svg or png)", format)
	}
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	layout := buildLayout(opts)

	switch format {
	case "svg":
		file, err := os.Create(opts.Path)
		if err != nil {
			return err
		}
		defer file.Close()
		return renderSVG(file, layout)
	default:
		return renderPNG(layout).SavePNG(opts.Path)
	}
}

// --- layout computation ----------------------------------------------------

type cardState int

const (
	stateUnmounted cardState = iota
	stateMounted
	stateSelected
)

type layoutCard struct {
	ID      string
	Title   string
	Parent  bool
	Check   selection.CheckState
	State   cardState
	Visible bool
	X, Y    float64
	W, H    float64
}

type layoutResult struct {
	Cards   []layoutCard
	Width   int
	Height  int
	Header  float64
	Clipped int
	Summary summaryInfo
}

type summaryInfo struct {
	Title    string
	Items    int
	Window   window.Window
	Visible  int
	Selected int
}

const (
	marginX      = 24.0
	indent       = 28.0
	cardW        = 150.0
	cardH        = 52.0
	parentH      = 30.0
	gap          = 10.0
	headerHeight = 130.0
)

func buildLayout(opts SnapshotOptions) layoutResult {
	perRow := opts.CardsPerRow
	if perRow <= 0 {
		perRow = window.DefaultConfig().CardsPerRow
	}
	maxRows := opts.MaxRows
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	res := layoutResult{
		Header: headerHeight,
		Summary: summaryInfo{
			Title:   opts.Title,
			Items:   len(opts.Items),
			Window:  opts.Window,
			Visible: len(opts.Visible),
		},
	}
	if res.Summary.Title == "" {
		res.Summary.Title = "cardtree board"
	}
	if opts.Selection != nil {
		res.Summary.Selected = opts.Selection.Len()
	}

	y := headerHeight + 10
	maxX := marginX + float64(perRow)*(cardW+gap) + 2*indent
	rows := 0
	col := 0
	var rowParent model.ID
	for i, it := range opts.Items {
		title := string(it.ID)
		if n, ok := opts.Lookup.Node(it.ID); ok && n.Name != "" {
			title = n.Name
		}
		c := layoutCard{
			ID:      string(it.ID),
			Title:   title,
			Parent:  it.IsParent(),
			Visible: opts.Visible[it.ID],
		}
		if opts.Window.Contains(i) {
			c.State = stateMounted
		}

		x := marginX + float64(it.Level)*indent
		if it.IsParent() {
			if col > 0 {
				y += cardH + gap
				col = 0
			}
			if rows >= maxRows {
				res.Clipped = len(opts.Items) - i
				break
			}
			if opts.Selection != nil {
				c.Check = opts.Selection.CheckState(it.ID)
			}
			c.X, c.Y, c.W, c.H = x, y, float64(perRow)*(cardW+gap)-gap, parentH
			y += parentH + gap
			rows++
		} else {
			if col == perRow || (col > 0 && it.ParentID != rowParent) {
				y += cardH + gap
				col = 0
			}
			if col == 0 {
				if rows >= maxRows {
					res.Clipped = len(opts.Items) - i
					break
				}
				rows++
				rowParent = it.ParentID
			}
			if opts.Selection != nil && opts.Selection.IsSelected(it.ID) {
				c.State = stateSelected
			}
			c.X, c.Y, c.W, c.H = x+float64(col)*(cardW+gap), y, cardW, cardH
			col++
		}
		maxX = max(maxX, c.X+c.W+marginX)
		res.Cards = append(res.Cards, c)
	}
	if col > 0 {
		y += cardH + gap
	}
	if res.Clipped > 0 {
		y += 24
	}

	res.Width = int(max(maxX, 640))
	res.Height = int(y + 20)
	return res
}

var (
	colorMounted     = color.RGBA{0xff, 0xff, 0xff, 0xff}
	colorUnmounted   = color.RGBA{0xe5, 0xe7, 0xeb, 0xff}
	colorSelected    = color.RGBA{0xc8, 0xe6, 0xc9, 0xff}
	colorParent      = color.RGBA{0xe3, 0xe8, 0xf8, 0xff}
	colorStroke      = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorVisible     = color.RGBA{0x6b, 0x80, 0xbf, 0xff}
	colorText        = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle      = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorBackdrop    = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG    = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	colorLegendBG    = color.RGBA{0xee, 0xee, 0xee, 0xff}
	colorCheckFilled = color.RGBA{0x2e, 0x7d, 0x32, 0xff}
)

func fillColor(c layoutCard) color.RGBA {
	switch {
	case c.Parent:
		return colorParent
	case c.State == stateSelected:
		return colorSelected
	case c.State == stateMounted:
		return colorMounted
	default:
		return colorUnmounted
	}
}

func strokeStyle(c layoutCard) (color.RGBA, float64) {
	if c.Visible {
		return colorVisible, 2.5
	}
	return colorStroke, 1.0
}

func checkGlyph(s selection.CheckState) string {
	switch s {
	case selection.Checked:
		return "[x]"
	case selection.Indeterminate:
		return "[-]"
	default:
		return "[ ]"
	}
}

func summaryLines(layout layoutResult) []string {
	s := layout.Summary
	return []string{
		fmt.Sprintf("items: %d  window: [%d,%d)", s.Items, s.Window.Start, s.Window.End),
		fmt.Sprintf("visible: %d  selected: %d", s.Visible, s.Selected),
	}
}

// --- PNG -------------------------------------------------------------------

func renderPNG(layout layoutResult) *gg.Context {
	dc := gg.NewContext(layout.Width, layout.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(layout.Width)-32, layout.Header-24, 10)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)

	dc.SetColor(colorText)
	dc.DrawStringAnchored(layout.Summary.Title, 32, 44, 0, 0.5)
	dc.SetColor(colorSubtle)
	for i, line := range summaryLines(layout) {
		dc.DrawStringAnchored(line, 32, 64+float64(i)*20, 0, 0.5)
	}
	drawLegend(dc, layout)

	for _, c := range layout.Cards {
		drawCard(dc, c)
	}
	if layout.Clipped > 0 {
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(fmt.Sprintf("... %d more items", layout.Clipped), marginX, float64(layout.Height)-32, 0, 0.5)
	}
	return dc
}

func drawCard(dc *gg.Context, c layoutCard) {
	dc.SetColor(fillColor(c))
	dc.DrawRoundedRectangle(c.X, c.Y, c.W, c.H, 6)
	dc.Fill()
	stroke, width := strokeStyle(c)
	dc.SetColor(stroke)
	dc.SetLineWidth(width)
	dc.DrawRoundedRectangle(c.X, c.Y, c.W, c.H, 6)
	dc.Stroke()

	if c.Parent {
		if c.Check == selection.Checked {
			dc.SetColor(colorCheckFilled)
		} else {
			dc.SetColor(colorText)
		}
		dc.DrawStringAnchored(checkGlyph(c.Check)+" "+truncate(c.Title, 60), c.X+10, c.Y+c.H/2, 0, 0.5)
		return
	}
	dc.SetColor(colorText)
	dc.DrawStringAnchored(c.ID, c.X+8, c.Y+16, 0, 0.5)
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(truncate(c.Title, 19), c.X+8, c.Y+36, 0, 0.5)
}

func drawLegend(dc *gg.Context, layout layoutResult) {
	boxW := 180.0
	boxH := 96.0
	x := float64(layout.Width) - boxW - 20
	y := 24.0
	dc.SetColor(colorLegendBG)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 10)
	dc.Fill()
	dc.SetColor(colorStroke)
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 10)
	dc.Stroke()

	dc.SetColor(colorText)
	dc.DrawStringAnchored("Legend", x+12, y+18, 0, 0.5)
	for i, row := range legendRows {
		ly := y + 36 + float64(i)*16
		dc.SetColor(row.fill)
		dc.DrawRoundedRectangle(x+12, ly-8, 14, 14, 3)
		dc.Fill()
		dc.SetColor(row.stroke)
		dc.DrawRoundedRectangle(x+12, ly-8, 14, 14, 3)
		dc.Stroke()
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(row.label, x+32, ly, 0, 0.5)
	}
}

var legendRows = []struct {
	fill, stroke color.RGBA
	label        string
}{
	{colorMounted, colorStroke, "Mounted"},
	{colorUnmounted, colorStroke, "Not mounted"},
	{colorSelected, colorStroke, "Selected"},
	{colorMounted, colorVisible, "In viewport"},
}

// --- SVG -------------------------------------------------------------------

func renderSVG(w io.Writer, layout layoutResult) error {
	canvas := svg.New(w)
	canvas.Start(layout.Width, layout.Height)
	canvas.Rect(0, 0, layout.Width, layout.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(16, 16, layout.Width-32, int(layout.Header-24), 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))

	canvas.Text(32, 44, layout.Summary.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	for i, line := range summaryLines(layout) {
		canvas.Text(32, 64+i*20, line, fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))
	}
	drawLegendSVG(canvas, layout)

	for _, c := range layout.Cards {
		stroke, width := strokeStyle(c)
		x, y := int(c.X), int(c.Y)
		canvas.Roundrect(x, y, int(c.W), int(c.H), 6, 6,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:%.1f", css(fillColor(c)), css(stroke), width))
		if c.Parent {
			canvas.Text(x+10, y+int(c.H)/2+5, checkGlyph(c.Check)+" "+truncate(c.Title, 60),
				fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;font-weight:bold", css(colorText)))
			continue
		}
		canvas.Text(x+8, y+20, c.ID, fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;font-weight:bold", css(colorText)))
		canvas.Text(x+8, y+40, truncate(c.Title, 19), fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
	}
	if layout.Clipped > 0 {
		canvas.Text(int(marginX), layout.Height-28, fmt.Sprintf("... %d more items", layout.Clipped),
			fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
	}

	canvas.End()
	return nil
}

func drawLegendSVG(canvas *svg.SVG, layout layoutResult) {
	boxW := 180
	boxH := 96
	x := layout.Width - boxW - 20
	y := 24
	canvas.Roundrect(x, y, boxW, boxH, 10, 10, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(colorLegendBG), css(colorStroke)))
	canvas.Text(x+12, y+18, "Legend", fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;font-weight:bold", css(colorText)))
	for i, row := range legendRows {
		ly := y + 36 + i*16
		canvas.Roundrect(x+12, ly-8, 14, 14, 3, 3, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(row.fill), css(row.stroke)))
		canvas.Text(x+32, ly+4, row.label, fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
	}
}

// --- helpers ---------------------------------------------------------------

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
