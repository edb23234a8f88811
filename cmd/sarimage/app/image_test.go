package app

import (
	"image/color"
	"math"
	"path/filepath"
	"testing"

	"github.com/joshuahellier/sarsolver/internal/storage"
)

func TestNewRaster(t *testing.T) {
	r := newRaster([]complex128{1, 1i, -10, 0}, 2, 2, 0.5)

	if r.Width != 2 || r.Height != 2 || r.Spacing != 0.5 {
		t.Fatalf("raster is %dx%d at %g m, want 2x2 at 0.5 m", r.Width, r.Height, r.Spacing)
	}
	if r.DB[0] != 0 {
		t.Errorf("unit amplitude = %g dB, want 0", r.DB[0])
	}
	if r.DB[1] != 0 {
		t.Errorf("unit imaginary amplitude = %g dB, want 0", r.DB[1])
	}
	if math.Abs(r.DB[2]-20) > 1e-12 {
		t.Errorf("amplitude -10 = %g dB, want 20", r.DB[2])
	}
	if !math.IsInf(r.DB[3], -1) {
		t.Errorf("zero amplitude = %g dB, want -Inf", r.DB[3])
	}
}

func TestMeasureBoundsQuantiles(t *testing.T) {
	r := &Raster{Width: 100, Height: 1, Spacing: 1, DB: make([]float64, 100)}
	for i := range r.DB {
		r.DB[i] = float64(i)
	}

	b := r.MeasureBounds(nil)
	if b.Min < 4 || b.Min > 6 {
		t.Errorf("lower bound = %g, want near the 5th percentile", b.Min)
	}
	if b.Max < 93 || b.Max > 96 {
		t.Errorf("upper bound = %g, want near the 95th percentile", b.Max)
	}
}

func TestMeasureBoundsDynamicRange(t *testing.T) {
	r := &Raster{Width: 3, Height: 1, Spacing: 1, DB: []float64{-40, math.Inf(-1), -10}}

	dynamicRange := 30.0
	b := r.MeasureBounds(&dynamicRange)
	if b.Max != -10 {
		t.Errorf("upper bound = %g, want the peak -10", b.Max)
	}
	if b.Min != -40 {
		t.Errorf("lower bound = %g, want peak minus range -40", b.Min)
	}
}

func TestMeasureBoundsFlatRaster(t *testing.T) {
	r := &Raster{Width: 4, Height: 1, Spacing: 1, DB: []float64{-20, -20, -20, -20}}

	b := r.MeasureBounds(nil)
	if !(b.Min < -20 && -20 < b.Max) {
		t.Errorf("bounds %+v do not bracket a constant raster", b)
	}
}

func TestMeasureBoundsEmptyRaster(t *testing.T) {
	r := &Raster{Width: 2, Height: 1, Spacing: 1, DB: []float64{math.Inf(-1), math.Inf(-1)}}

	b := r.MeasureBounds(nil)
	if !(b.Min < b.Max) {
		t.Errorf("bounds %+v are not an ordered window", b)
	}
}

func testRaster(width, height int) *Raster {
	r := &Raster{Width: width, Height: height, Spacing: 0.5, DB: make([]float64, width*height)}
	for i := range r.DB {
		r.DB[i] = -60 + float64(i%61)
	}
	return r
}

func TestRenderBareImage(t *testing.T) {
	raster := testRaster(4, 3)
	r := NewRenderer(renderConfig{Theme: GrayscaleTheme, NoAnnotations: true}, PowerBounds{Min: -60, Max: 0})

	img, err := r.Render(raster, &storage.Collection{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 3 {
		t.Fatalf("image is %v, want bare 4x3", img.Bounds())
	}
	if got, want := img.At(0, 0), r.mapper.Color(raster.DB[0]); got != want {
		t.Errorf("pixel (0,0) = %v, want %v", got, want)
	}
	if got, want := img.At(3, 2), r.mapper.Color(raster.DB[11]); got != want {
		t.Errorf("pixel (3,2) = %v, want %v", got, want)
	}
}

func TestRenderAnnotatedImage(t *testing.T) {
	raster := testRaster(40, 30)
	r := NewRenderer(renderConfig{Theme: ClassicTheme}, PowerBounds{Min: -60, Max: 0})

	img, err := r.Render(raster, &storage.Collection{
		ID:              7,
		NumSlowTimes:    16,
		NumFastTimes:    32,
		CentreFrequency: 9.6e9,
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	wantW := 40 + leftBorder + rightBorder
	wantH := 30 + topBorder + bottomBorder
	if img.Bounds().Dx() != wantW || img.Bounds().Dy() != wantH {
		t.Fatalf("image is %v, want %dx%d with borders", img.Bounds(), wantW, wantH)
	}

	// the data area starts past the borders
	if got, want := img.At(leftBorder, topBorder), r.mapper.Color(raster.DB[0]); got != want {
		t.Errorf("data origin pixel = %v, want %v", got, want)
	}

	// the border corner stays background white
	if got := img.At(0, 0); got != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("border corner = %v, want white", got)
	}
}

func TestRenderMissingFont(t *testing.T) {
	raster := testRaster(8, 8)
	r := NewRenderer(renderConfig{
		Theme:    ClassicTheme,
		FontPath: filepath.Join(t.TempDir(), "missing.ttf"),
	}, PowerBounds{Min: -60, Max: 0})

	if _, err := r.Render(raster, &storage.Collection{}); err == nil {
		t.Fatal("expected an error for a missing font file")
	}
}
