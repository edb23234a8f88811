// Package scene builds synthetic collection geometries, target layouts and
// waveform vectors for the simulator and image former.
package scene

import (
	"fmt"
	"math"

	"github.com/joshuahellier/sarsolver/internal/geom"
	"github.com/joshuahellier/sarsolver/internal/sar"
)

// ApertureConfig describes a straight-line collection. The platform flies
// parallel to the y axis at the given standoff and altitude; the
// stabilization reference point sits at the origin of the scene plane.
type ApertureConfig struct {
	NumSlowTimes int
	Standoff     float64 // meters from the reference point to the track, in x
	TrackLength  float64 // meters tip to tip along the track
	Altitude     float64 // meters above the scene plane
	Baseline     float64 // along-track receiver offset; zero is monostatic
}

// LinearAperture returns the per-pulse transmitter, receiver and
// stabilization reference positions of a straight quasi-monostatic
// collection centred on the reference point's broadside.
func LinearAperture(cfg ApertureConfig) (tx, rx, ref []geom.Vector, err error) {
	if cfg.NumSlowTimes < 1 {
		return nil, nil, nil, fmt.Errorf("aperture needs at least one pulse, got %d", cfg.NumSlowTimes)
	}
	if cfg.Standoff <= 0 {
		return nil, nil, nil, fmt.Errorf("aperture standoff must be positive, got %g m", cfg.Standoff)
	}
	if cfg.TrackLength < 0 {
		return nil, nil, nil, fmt.Errorf("aperture track length must not be negative, got %g m", cfg.TrackLength)
	}

	tx = make([]geom.Vector, cfg.NumSlowTimes)
	rx = make([]geom.Vector, cfg.NumSlowTimes)
	ref = make([]geom.Vector, cfg.NumSlowTimes)
	for s := range tx {
		along := 0.0
		if cfg.NumSlowTimes > 1 {
			along = (float64(s)/float64(cfg.NumSlowTimes-1) - 0.5) * cfg.TrackLength
		}
		tx[s] = geom.Vector{cfg.Standoff, along, cfg.Altitude}
		rx[s] = geom.Vector{cfg.Standoff, along + cfg.Baseline, cfg.Altitude}
		ref[s] = geom.Vector{}
	}
	return tx, rx, ref, nil
}

// PointTarget is one scatterer: a position on or near the scene plane and
// its complex reflectivity.
type PointTarget struct {
	Position  geom.Vector
	Amplitude complex128
}

// PointTargets is a target layout. Sparse scenes are written as literals;
// dense ones come from Grid.
type PointTargets []PointTarget

// Hypothesis converts the layout into an owning scatterer record.
func (pt PointTargets) Hypothesis() (*sar.Hypothesis, error) {
	hyp, err := sar.NewHypothesis(len(pt))
	if err != nil {
		return nil, err
	}
	for j, target := range pt {
		hyp.Positions[j] = target.Position
		hyp.Amplitudes[j] = target.Amplitude
	}
	return hyp, nil
}

// GridConfig describes a regular x/y grid of identical scatterers centred
// on the reference point.
type GridConfig struct {
	NumX, NumY int
	Spacing    float64 // meters between neighbours
	Amplitude  complex128
}

// Grid lays out cfg.NumX by cfg.NumY targets on the z = 0 plane, row-major
// with x varying fastest.
func Grid(cfg GridConfig) (PointTargets, error) {
	if cfg.NumX < 1 || cfg.NumY < 1 {
		return nil, fmt.Errorf("grid needs positive extents, got %dx%d", cfg.NumX, cfg.NumY)
	}
	if cfg.Spacing <= 0 {
		return nil, fmt.Errorf("grid spacing must be positive, got %g m", cfg.Spacing)
	}

	targets := make(PointTargets, 0, cfg.NumX*cfg.NumY)
	for iy := 0; iy < cfg.NumY; iy++ {
		y := (float64(iy) - float64(cfg.NumY-1)/2) * cfg.Spacing
		for ix := 0; ix < cfg.NumX; ix++ {
			x := (float64(ix) - float64(cfg.NumX-1)/2) * cfg.Spacing
			targets = append(targets, PointTarget{
				Position:  geom.Vector{x, y, 0},
				Amplitude: cfg.Amplitude,
			})
		}
	}
	return targets, nil
}

// FlatSpectrum returns an all-ones waveform spectrum of n fast-time bins.
func FlatSpectrum(n int) []complex128 {
	out := make([]complex128, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

// HannSpectrum returns a Hann-tapered waveform spectrum: unity at the band
// centre, rolling off towards the band edges. Bins follow the unshifted
// transform ordering, so the taper peaks at bin zero.
func HannSpectrum(n int) []complex128 {
	out := make([]complex128, n)
	for g := range out {
		m := g
		if g >= (n+1)/2 {
			m = g - n
		}
		out[g] = complex(0.5*(1+math.Cos(2*math.Pi*float64(m)/float64(n))), 0)
	}
	return out
}

// UniformWeighting returns an all-ones slow-time weighting of n pulses.
func UniformWeighting(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

// HannWeighting returns a Hann window across the n pulses of the aperture,
// zero at both ends.
func HannWeighting(n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = 1
		return out
	}
	for s := range out {
		out[s] = 0.5 * (1 - math.Cos(2*math.Pi*float64(s)/float64(n-1)))
	}
	return out
}

// RangeResolution returns the nominal range cell size c/(2B) for a
// propagation speed and sampled bandwidth, the default grid spacing for
// scenes matched to a collection.
func RangeResolution(cEff, sampleFrequency float64) float64 {
	return cEff / (2 * sampleFrequency)
}
