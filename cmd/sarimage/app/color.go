package app

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// ColorTheme selects a color scheme for pixel power values:
// - ClassicTheme: traditional spectrum display (blue to red)
// - GrayscaleTheme: monochrome visualization
// - ThermalTheme: heat map (black to red to yellow to white)
type ColorTheme string

const (
	ClassicTheme   ColorTheme = "classic"
	GrayscaleTheme ColorTheme = "grayscale"
	ThermalTheme   ColorTheme = "thermal"

	colorMapSize = 256
)

var validColorThemes = map[ColorTheme]struct{}{
	ClassicTheme:   {},
	GrayscaleTheme: {},
	ThermalTheme:   {},
}

// ColorMapper maps pixel power in dB onto a pre-computed color table
// spanning the display bounds. Values outside the bounds clamp to the
// table ends.
type ColorMapper struct {
	colorMap   []color.Color
	size       int
	boundsMin  float64
	dbPerIndex float64
}

func NewColorMapper(theme ColorTheme, bounds PowerBounds) *ColorMapper {
	cm := &ColorMapper{
		colorMap:   make([]color.Color, colorMapSize),
		size:       colorMapSize,
		boundsMin:  bounds.Min,
		dbPerIndex: (bounds.Max - bounds.Min) / float64(colorMapSize-1),
	}

	paint := themePaint(theme)
	for i := range cm.colorMap {
		cm.colorMap[i] = paint(float64(i) / float64(colorMapSize-1))
	}
	return cm
}

// Color returns the table color for the given power value. NaN and
// anything at or below the lower bound take the lowest color, so empty
// pixels (minus infinity dB) render as the display floor.
func (cm *ColorMapper) Color(db float64) color.Color {
	if math.IsNaN(db) || db <= cm.boundsMin {
		return cm.colorMap[0]
	}

	// Clamp while still a float: converting an overflowing value
	// (infinite or huge dB) to int is implementation-dependent.
	pos := (db - cm.boundsMin) / cm.dbPerIndex
	if pos >= float64(cm.size-1) {
		return cm.colorMap[cm.size-1]
	}
	return cm.colorMap[int(pos)]
}

// Size returns the color table size.
func (cm *ColorMapper) Size() int {
	return cm.size
}

// themePaint returns the theme function mapping normalized power [0,1]
// to a color.
func themePaint(theme ColorTheme) func(float64) color.Color {
	switch theme {
	case GrayscaleTheme:
		return func(t float64) color.Color {
			v := math.Pow(t, 0.7)
			return rgba(colorful.Color{R: v, G: v, B: v})
		}

	case ThermalTheme:
		return func(t float64) color.Color {
			switch {
			case t < 1.0/3.0:
				return rgba(colorful.Hsv(0, 1, 3*t))
			case t < 2.0/3.0:
				return rgba(colorful.Hsv((3*t-1)*60, 1, 1))
			default:
				return rgba(colorful.Hsv(60, 1-(3*t-2), 1))
			}
		}

	default: // ClassicTheme
		return func(t float64) color.Color {
			return rgba(colorful.Hsv(240-(t*240), 0.9+(t*0.1), math.Pow(t, 0.7)))
		}
	}
}

func rgba(c colorful.Color) color.RGBA {
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}
