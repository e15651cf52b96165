// Package export writes the task tree as a static image.
//
// The image shows the linearized rows in order, indented by depth, with
// fold markers and a status color per row. SVG output uses ajstarks/svgo
// and PNG output uses gg with the basicfont face.
package export

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.sr.ht/~sbinet/gg"
	svg "github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/tasktree/pkg/model"
	"github.com/vanderheijden86/tasktree/pkg/rows"
)

// ErrNoRows is returned when there is nothing to draw.
var ErrNoRows = errors.New("no rows to export")

// Format is an image format.
type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// ParseFormat resolves the output format from an explicit name or, when
// name is empty, from the extension of path. Paths without an extension
// default to SVG.
func ParseFormat(name, path string) (Format, error) {
	f := strings.ToLower(strings.TrimPrefix(name, "."))
	if f == "" {
		f = strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
		if f == "" {
			return FormatSVG, nil
		}
	}
	switch Format(f) {
	case FormatSVG, FormatPNG:
		return Format(f), nil
	default:
		return "", fmt.Errorf("unsupported format %q (want svg or png)", f)
	}
}

// SnapshotOptions controls snapshot export.
type SnapshotOptions struct {
	Path      string // Output path
	Format    string // "svg" or "png"; inferred from Path when empty
	Title     string
	Rows      []rows.Row
	Tasks     *model.TaskSet
	Generated time.Time // printed in the header when set
}

// SaveSnapshot renders opts.Rows to opts.Path and returns the path
// written. A path without an extension gets one for the format.
func SaveSnapshot(opts SnapshotOptions) (string, error) {
	if opts.Path == "" {
		return "", fmt.Errorf("output path is required")
	}
	format, err := ParseFormat(opts.Format, opts.Path)
	if err != nil {
		return "", err
	}
	path := opts.Path
	if filepath.Ext(path) == "" {
		path += "." + string(format)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create parent dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := WriteSnapshot(f, format, opts); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	return path, f.Close()
}

// WriteSnapshot renders opts.Rows to w.
func WriteSnapshot(w io.Writer, format Format, opts SnapshotOptions) error {
	if len(opts.Rows) == 0 {
		return ErrNoRows
	}
	layout := buildLayout(opts)
	switch format {
	case FormatSVG:
		return renderSVG(w, layout)
	case FormatPNG:
		return renderPNG(w, layout)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// --- layout ------------------------------------------------------------------

const (
	margin      = 16
	lineHeight  = 22
	indentStep  = 18
	headerH     = 64
	charWidth   = 7 // basicfont.Face7x13
	minWidth    = 480
	maxTextRune = 90
)

type layoutRow struct {
	X, Y    int
	Fold    rows.FoldState
	Header  bool
	Text    string
	Urgency string
	Color   color.RGBA
}

type layoutResult struct {
	Width, Height int
	Title         string
	Summary       string
	Rows          []layoutRow
}

func buildLayout(opts SnapshotOptions) layoutResult {
	title := opts.Title
	if title == "" {
		title = "Task tree"
	}

	var tasks, headers, folded int
	out := make([]layoutRow, 0, len(opts.Rows))
	width := minWidth
	for i, r := range opts.Rows {
		lr := layoutRow{
			X:    margin + r.Depth*indentStep,
			Y:    headerH + margin + i*lineHeight,
			Fold: r.Fold,
		}
		if r.Fold == rows.Folded {
			folded++
		}
		if r.IsTask() {
			tasks++
			lr.Color = statusColor(r.Status)
			lr.Text = "(missing task)"
			if opts.Tasks != nil {
				if t, ok := opts.Tasks.Get(r.TaskID); ok {
					lr.Text = truncate(t.Description, maxTextRune)
					if t.Status == model.StatusPending && t.Urgency > 0 {
						lr.Urgency = fmt.Sprintf("%.1f", t.Urgency)
					}
				}
			}
		} else {
			headers++
			lr.Header = true
			lr.Color = colorHeader
			lr.Text = fmt.Sprintf("%s (%d)", r.Label, r.Size)
		}
		if w := lr.X + 28 + len([]rune(lr.Text))*charWidth + 60 + margin; w > width {
			width = w
		}
		out = append(out, lr)
	}

	summary := fmt.Sprintf("%d rows · %d tasks · %d groups · %d folded", len(opts.Rows), tasks, headers, folded)
	if !opts.Generated.IsZero() {
		summary += " · " + opts.Generated.UTC().Format("2006-01-02 15:04 UTC")
	}

	return layoutResult{
		Width:   width,
		Height:  headerH + 2*margin + len(opts.Rows)*lineHeight,
		Title:   title,
		Summary: summary,
		Rows:    out,
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// --- colors ------------------------------------------------------------------

var (
	colorPending   = color.RGBA{0x50, 0xa1, 0x4f, 0xff}
	colorBlocked   = color.RGBA{0xe4, 0x56, 0x49, 0xff}
	colorWaiting   = color.RGBA{0x00, 0x84, 0xbc, 0xff}
	colorRecurring = color.RGBA{0xa6, 0x26, 0xa4, 0xff}
	colorClosed    = color.RGBA{0x9c, 0xa3, 0xaf, 0xff}
	colorHeader    = color.RGBA{0xc1, 0x84, 0x01, 0xff}
	colorText      = color.RGBA{0x1f, 0x29, 0x37, 0xff}
	colorSubtle    = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorBackdrop  = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG  = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
)

func statusColor(s model.Status) color.RGBA {
	switch s {
	case model.StatusPending:
		return colorPending
	case model.StatusBlocked:
		return colorBlocked
	case model.StatusWaiting:
		return colorWaiting
	case model.StatusRecurring:
		return colorRecurring
	default:
		return colorClosed
	}
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// --- PNG ---------------------------------------------------------------------

func renderPNG(w io.Writer, layout layoutResult) error {
	dc := gg.NewContext(layout.Width, layout.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(margin, margin, float64(layout.Width-2*margin), headerH-margin, 10)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)
	dc.SetColor(colorText)
	dc.DrawString(layout.Title, margin+12, margin+20)
	dc.SetColor(colorSubtle)
	dc.DrawString(layout.Summary, margin+12, margin+38)

	for _, r := range layout.Rows {
		x, y := float64(r.X), float64(r.Y)
		mid := y + lineHeight/2

		switch r.Fold {
		case rows.Folded:
			dc.SetColor(colorHeader)
			dc.MoveTo(x, mid-5)
			dc.LineTo(x+8, mid)
			dc.LineTo(x, mid+5)
			dc.ClosePath()
			dc.Fill()
		case rows.Open:
			dc.SetColor(colorHeader)
			dc.MoveTo(x-1, mid-4)
			dc.LineTo(x+9, mid-4)
			dc.LineTo(x+4, mid+4)
			dc.ClosePath()
			dc.Fill()
		}

		dc.SetColor(r.Color)
		if r.Header {
			dc.DrawString(r.Text, x+14, mid+4)
			continue
		}
		dc.DrawCircle(x+18, mid, 4)
		dc.Fill()
		dc.SetColor(colorText)
		dc.DrawString(r.Text, x+28, mid+4)
		if r.Urgency != "" {
			dc.SetColor(colorSubtle)
			dc.DrawString(r.Urgency, float64(layout.Width-margin-40), mid+4)
		}
	}

	return dc.EncodePNG(w)
}

// --- SVG ---------------------------------------------------------------------

func renderSVG(w io.Writer, layout layoutResult) error {
	canvas := svg.New(w)
	canvas.Start(layout.Width, layout.Height)
	canvas.Rect(0, 0, layout.Width, layout.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(margin, margin, layout.Width-2*margin, headerH-margin, 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))
	canvas.Text(margin+12, margin+20, layout.Title,
		fmt.Sprintf("fill:%s;font-size:14px;font-family:monospace;font-weight:bold", css(colorText)))
	canvas.Text(margin+12, margin+38, layout.Summary,
		fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))

	for _, r := range layout.Rows {
		mid := r.Y + lineHeight/2
		canvas.Group(fmt.Sprintf(`class="row" data-fold="%s"`, r.Fold))

		switch r.Fold {
		case rows.Folded:
			canvas.Polygon([]int{r.X, r.X + 8, r.X}, []int{mid - 5, mid, mid + 5},
				fmt.Sprintf("fill:%s", css(colorHeader)))
		case rows.Open:
			canvas.Polygon([]int{r.X - 1, r.X + 9, r.X + 4}, []int{mid - 4, mid - 4, mid + 4},
				fmt.Sprintf("fill:%s", css(colorHeader)))
		}

		if r.Header {
			canvas.Text(r.X+14, mid+4, r.Text,
				fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;font-weight:bold", css(r.Color)))
			canvas.Gend()
			continue
		}
		canvas.Circle(r.X+18, mid, 4, fmt.Sprintf("fill:%s", css(r.Color)))
		canvas.Text(r.X+28, mid+4, r.Text,
			fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorText)))
		if r.Urgency != "" {
			canvas.Text(layout.Width-margin, mid+4, r.Urgency,
				fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace;text-anchor:end", css(colorSubtle)))
		}
		canvas.Gend()
	}

	canvas.End()
	return nil
}
