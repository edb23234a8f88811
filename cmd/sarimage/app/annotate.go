package app

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/joshuahellier/sarsolver/internal/storage"
)

const (
	fontSize       = 12.0
	fontDPI        = 96.0
	tickMarkLength = 5
	pixelsPerLabel = 110
)

// annotator draws scales and labels with a font face: a TTF loaded from
// the configured path, or the builtin fixed-size face when none is given.
type annotator struct {
	face font.Face
}

func newAnnotator(fontPath string) (*annotator, error) {
	if fontPath == "" {
		return &annotator{face: basicfont.Face7x13}, nil
	}

	raw, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("reading font: %w", err)
	}
	parsedFont, err := freetype.ParseFont(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	return &annotator{
		face: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    fontSize,
			DPI:     fontDPI,
			Hinting: font.HintingFull,
		}),
	}, nil
}

func (a *annotator) Close() error {
	return a.face.Close()
}

func (a *annotator) annotate(img *image.RGBA, area image.Rectangle, raster *Raster, bounds PowerBounds, meta *storage.Collection) {
	a.drawXScale(img, area, raster)
	a.drawYScale(img, area, raster)
	a.drawInfoBar(img, area, raster, bounds, meta)
}

// drawXScale marks range coordinates along the top border, negative to
// positive left to right.
func (a *annotator) drawXScale(img *image.RGBA, area image.Rectangle, raster *Raster) {
	half := raster.Spacing * float64(raster.Width-1) / 2
	step := niceMeterStep(2*half, raster.Width)
	if step <= 0 {
		return
	}

	metrics := a.face.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()
	textY := area.Min.Y - tickMarkLength - fontHeight/2

	for x := math.Ceil(-half/step) * step; x <= half; x += step {
		col := x/raster.Spacing + float64(raster.Width-1)/2
		px := area.Min.X + int(math.Round(col))

		// tick mark on the exact coordinate
		for y := area.Min.Y - tickMarkLength; y < area.Min.Y; y++ {
			img.Set(px, y, color.Black)
		}

		label := humanMeters(x)
		width := font.MeasureString(a.face, label)
		a.drawString(img, label, px-width.Round()/2, textY)
	}
}

// drawYScale marks cross-range coordinates along the left border,
// positive at the top.
func (a *annotator) drawYScale(img *image.RGBA, area image.Rectangle, raster *Raster) {
	half := raster.Spacing * float64(raster.Height-1) / 2
	step := niceMeterStep(2*half, raster.Height)
	if step <= 0 {
		return
	}

	metrics := a.face.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()

	for y := math.Ceil(-half/step) * step; y <= half; y += step {
		row := float64(raster.Height-1)/2 - y/raster.Spacing
		py := area.Min.Y + int(math.Round(row))

		for x := area.Min.X - tickMarkLength; x < area.Min.X; x++ {
			img.Set(x, py, color.Black)
		}

		// center the text vertically on the tick mark
		textY := py + fontHeight/2 - metrics.Descent.Round()
		a.drawString(img, humanMeters(y), 8, textY)
	}
}

func (a *annotator) drawInfoBar(img *image.RGBA, area image.Rectangle, raster *Raster, bounds PowerBounds, meta *storage.Collection) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Collection %d: %d pulses x %d samples", meta.ID, meta.NumSlowTimes, meta.NumFastTimes))
	sb.WriteString("; fc " + humanHz(meta.CentreFrequency))
	sb.WriteString(fmt.Sprintf("; 1px = %s", humanMeters(raster.Spacing)))
	sb.WriteString(fmt.Sprintf("; display %0.1f to %0.1f dB", bounds.Min, bounds.Max))

	// center the text vertically in the bottom border
	metrics := a.face.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()
	textY := img.Bounds().Max.Y - (bottomBorder-fontHeight)/2 - metrics.Descent.Round()

	a.drawString(img, sb.String(), area.Min.X, textY)
}

func (a *annotator) drawString(img *image.RGBA, s string, x, y int) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: a.face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// niceMeterStep picks a label interval giving roughly one label per
// pixelsPerLabel pixels, snapped to a round number of meters.
func niceMeterStep(extent float64, pixels int) float64 {
	steps := []float64{0.1, 0.2, 0.5, 1, 2, 5, 10, 20, 50, 100, 200, 500, 1000, 2000, 5000}

	desired := float64(pixels) / pixelsPerLabel
	target := extent / desired

	for _, step := range steps {
		if step >= target {
			if extent/step >= 2 {
				return step
			}
			break
		}
	}
	return extent / 2
}

func humanMeters(v float64) string {
	fract, suffix := humanize.ComputeSI(math.Abs(v))
	s := fmt.Sprintf("%0.1f %sm", fract, suffix)
	if v < 0 {
		s = "-" + s
	}
	return s
}

func humanHz(hz float64) string {
	fract, suffix := humanize.ComputeSI(hz)
	return fmt.Sprintf("%0.2f %sHz", fract, suffix)
}
