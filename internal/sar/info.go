package sar

import (
	"fmt"
	"unsafe"

	"github.com/joshuahellier/sarsolver/internal/geom"
)

// CalculationInfo is the flat transfer structure that crosses the
// computation boundary. It carries array dimensions, flat float64 arrays
// and the scalar model parameters, and owns no memory of its own: both
// sides of the boundary must honor the layout below.
//
// Complex arrays are interleaved re/im pairs; positions are x,y,z triples.
// Positions are meters, frequencies hertz, speeds meters per second.
type CalculationInfo struct {
	NumFastTimes  int
	NumSlowTimes  int
	NumScatterers int

	TransmitPosns []float64 // 3 per slow time
	ReceivePosns  []float64 // 3 per slow time
	StabRefPosns  []float64 // 3 per slow time
	ScatPosns     []float64 // 3 per scatterer

	PhaseHistory         []float64 // 2 per slow time x fast time
	ScatteringAmplitudes []float64 // 2 per scatterer
	WaveformFFT          []float64 // 2 per fast time
	SlowTimeWeighting    []float64 // 1 per slow time

	CentreFrequency float64
	SampleFrequency float64
	CEff            float64
	UpsampleRatio   float64
	SignMultiplier  float64
}

// NewCalculationInfo allocates a transfer structure with every array sized
// for the given dimensions. Callers crossing from foreign memory fill the
// struct themselves instead.
func NewCalculationInfo(slowTimes, fastTimes, scatterers int) *CalculationInfo {
	return &CalculationInfo{
		NumFastTimes:         fastTimes,
		NumSlowTimes:         slowTimes,
		NumScatterers:        scatterers,
		TransmitPosns:        make([]float64, 3*slowTimes),
		ReceivePosns:         make([]float64, 3*slowTimes),
		StabRefPosns:         make([]float64, 3*slowTimes),
		ScatPosns:            make([]float64, 3*scatterers),
		PhaseHistory:         make([]float64, 2*slowTimes*fastTimes),
		ScatteringAmplitudes: make([]float64, 2*scatterers),
		WaveformFFT:          make([]float64, 2*fastTimes),
		SlowTimeWeighting:    make([]float64, slowTimes),
	}
}

// Validate checks every array length against the declared dimensions.
// Inconsistent structures are rejected before any element is touched.
func (info *CalculationInfo) Validate() error {
	if info.NumSlowTimes <= 0 || info.NumFastTimes <= 0 {
		return fmt.Errorf("%w: %d slow times x %d fast times", ErrDimensionMismatch, info.NumSlowTimes, info.NumFastTimes)
	}
	if info.NumScatterers < 0 {
		return fmt.Errorf("%w: %d scatterers", ErrDimensionMismatch, info.NumScatterers)
	}

	checks := []struct {
		name string
		got  int
		want int
	}{
		{"transmit positions", len(info.TransmitPosns), 3 * info.NumSlowTimes},
		{"receive positions", len(info.ReceivePosns), 3 * info.NumSlowTimes},
		{"stabilization reference positions", len(info.StabRefPosns), 3 * info.NumSlowTimes},
		{"scatterer positions", len(info.ScatPosns), 3 * info.NumScatterers},
		{"phase history", len(info.PhaseHistory), 2 * info.NumSlowTimes * info.NumFastTimes},
		{"scattering amplitudes", len(info.ScatteringAmplitudes), 2 * info.NumScatterers},
		{"waveform spectrum", len(info.WaveformFFT), 2 * info.NumFastTimes},
		{"slow-time weighting", len(info.SlowTimeWeighting), info.NumSlowTimes},
	}
	for _, c := range checks {
		if c.got != c.want {
			return fmt.Errorf("%w: %s has %d values, want %d", ErrDimensionMismatch, c.name, c.got, c.want)
		}
	}
	return nil
}

// complexView reinterprets an interleaved re/im float64 array as n complex
// values in place. Lengths are validated before views are taken.
func complexView(raw []float64, n int) []complex128 {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*complex128)(unsafe.Pointer(&raw[0])), n)
}

// vectorView reinterprets a flat x,y,z coordinate array as n vectors in
// place.
func vectorView(raw []float64, n int) []geom.Vector {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*geom.Vector)(unsafe.Pointer(&raw[0])), n)
}

// sameBacking reports whether view was taken over raw, i.e. the two share
// their first element.
func sameBacking[T any](raw []float64, view []T) bool {
	if len(raw) == 0 || len(view) == 0 {
		return false
	}
	return unsafe.Pointer(&raw[0]) == unsafe.Pointer(&view[0])
}

// complexCopy returns a freshly allocated complex copy of an interleaved
// re/im array.
func complexCopy(raw []float64, n int) []complex128 {
	out := make([]complex128, n)
	copy(out, complexView(raw, n))
	return out
}

// vectorCopy returns a freshly allocated vector copy of a flat coordinate
// array.
func vectorCopy(raw []float64, n int) []geom.Vector {
	out := make([]geom.Vector, n)
	copy(out, vectorView(raw, n))
	return out
}

// copyComplexInto writes src into dst as interleaved re/im pairs.
func copyComplexInto(dst []float64, src []complex128) {
	for i, v := range src {
		dst[2*i] = real(v)
		dst[2*i+1] = imag(v)
	}
}

// copyVectorsInto writes src into dst as flat x,y,z triples.
func copyVectorsInto(dst []float64, src []geom.Vector) {
	for i, v := range src {
		dst[3*i] = v[0]
		dst[3*i+1] = v[1]
		dst[3*i+2] = v[2]
	}
}
