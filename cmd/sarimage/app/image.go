package app

import (
	"fmt"
	"image"
	"image/draw"
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/joshuahellier/sarsolver/internal/storage"
)

const (
	lowerQuantile = 0.05
	upperQuantile = 0.95

	// Fallback display span when a raster has no finite pixels.
	defaultSpanDB = 60.0

	// Border sizes in pixels around the annotated raster.
	topBorder    = 32
	leftBorder   = 80
	bottomBorder = 36
	rightBorder  = 24
)

// Raster holds the formed image as per-pixel power in dB, row-major with
// row 0 at the top edge. Rows run from positive to negative cross-range
// and columns from negative to positive range, so the raster displays
// with north up when the platform track is the y axis.
type Raster struct {
	Width   int
	Height  int
	Spacing float64 // meters per pixel
	DB      []float64
}

// newRaster converts complex pixel amplitudes to power in dB. Zero
// amplitudes map to minus infinity and render as the display floor.
func newRaster(amps []complex128, width, height int, spacing float64) *Raster {
	db := make([]float64, len(amps))
	for i, a := range amps {
		db[i] = 20 * math.Log10(cmplx.Abs(a))
	}
	return &Raster{
		Width:   width,
		Height:  height,
		Spacing: spacing,
		DB:      db,
	}
}

// PowerBounds is the displayed power range in dB. Pixels outside it clamp
// to the color table ends.
type PowerBounds struct {
	Min float64
	Max float64
}

// MeasureBounds derives display bounds from the raster. With a dynamic
// range given, the window hangs from the peak pixel; otherwise the 5th
// and 95th percentiles bound the bulk of the image and let isolated
// bright scatterers saturate.
func (r *Raster) MeasureBounds(dynamicRange *float64) PowerBounds {
	finite := make([]float64, 0, len(r.DB))
	for _, v := range r.DB {
		if !math.IsInf(v, 0) && !math.IsNaN(v) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return PowerBounds{Min: -defaultSpanDB, Max: 0}
	}
	sort.Float64s(finite)

	if dynamicRange != nil {
		peak := finite[len(finite)-1]
		return PowerBounds{Min: peak - *dynamicRange, Max: peak}
	}

	bounds := PowerBounds{
		Min: stat.Quantile(lowerQuantile, stat.Empirical, finite, nil),
		Max: stat.Quantile(upperQuantile, stat.Empirical, finite, nil),
	}
	if bounds.Max <= bounds.Min {
		bounds.Min--
		bounds.Max++
	}
	return bounds
}

type renderConfig struct {
	Theme         ColorTheme
	FontPath      string
	NoAnnotations bool
}

// Renderer draws a raster into an RGBA image through a color table, with
// optional axis scales and an info bar in a white border.
type Renderer struct {
	config renderConfig
	bounds PowerBounds
	mapper *ColorMapper
}

func NewRenderer(config renderConfig, bounds PowerBounds) *Renderer {
	return &Renderer{
		config: config,
		bounds: bounds,
		mapper: NewColorMapper(config.Theme, bounds),
	}
}

func (r *Renderer) Render(raster *Raster, meta *storage.Collection) (*image.RGBA, error) {
	if r.config.NoAnnotations {
		img := image.NewRGBA(image.Rect(0, 0, raster.Width, raster.Height))
		r.renderData(img, img.Bounds(), raster)
		return img, nil
	}

	fullWidth := raster.Width + leftBorder + rightBorder
	fullHeight := raster.Height + topBorder + bottomBorder
	img := image.NewRGBA(image.Rect(0, 0, fullWidth, fullHeight))

	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	area := image.Rect(leftBorder, topBorder, leftBorder+raster.Width, topBorder+raster.Height)

	ann, err := newAnnotator(r.config.FontPath)
	if err != nil {
		return nil, fmt.Errorf("creating annotator: %w", err)
	}
	defer ann.Close()

	ann.annotate(img, area, raster, r.bounds, meta)
	r.renderData(img, area, raster)
	return img, nil
}

func (r *Renderer) renderData(img *image.RGBA, area image.Rectangle, raster *Raster) {
	for row := 0; row < raster.Height; row++ {
		imgY := area.Min.Y + row
		for col := 0; col < raster.Width; col++ {
			img.Set(area.Min.X+col, imgY, r.mapper.Color(raster.DB[row*raster.Width+col]))
		}
	}
}
