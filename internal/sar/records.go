package sar

import (
	"fmt"

	"github.com/joshuahellier/sarsolver/internal/geom"
)

// Mode selects how a record built from a transfer structure holds its
// arrays: Borrow views the caller's memory in place, Own copies it.
// Borrowed records never reallocate or resize, and writes through them
// land directly in the caller's arrays.
type Mode int

const (
	Borrow Mode = iota
	Own
)

// Measurements holds one collection: the per-pulse platform geometry and
// the complex phase-history matrix, together with the scalars fixing the
// waveform sampling.
type Measurements struct {
	NumSlowTimes int
	NumFastTimes int

	TransmitPos []geom.Vector
	ReceivePos  []geom.Vector
	StabRefPos  []geom.Vector

	// PhaseHistory is row-major: pulse s, fast-time bin g lives at
	// s*NumFastTimes + g.
	PhaseHistory []complex128

	CentreFrequency  float64
	SampleFrequency  float64
	PropagationSpeed float64

	owned bool
}

// NewMeasurements allocates an owning record with zeroed arrays. The
// propagation speed defaults to the speed of light; callers with a
// different effective medium overwrite the field.
func NewMeasurements(slowTimes, fastTimes int, centreFreq, sampleFreq float64) (*Measurements, error) {
	if slowTimes <= 0 || fastTimes <= 0 {
		return nil, fmt.Errorf("%w: %d slow times x %d fast times", ErrDimensionMismatch, slowTimes, fastTimes)
	}
	return &Measurements{
		NumSlowTimes:     slowTimes,
		NumFastTimes:     fastTimes,
		TransmitPos:      make([]geom.Vector, slowTimes),
		ReceivePos:       make([]geom.Vector, slowTimes),
		StabRefPos:       make([]geom.Vector, slowTimes),
		PhaseHistory:     make([]complex128, slowTimes*fastTimes),
		CentreFrequency:  centreFreq,
		SampleFrequency:  sampleFreq,
		PropagationSpeed: geom.SpeedOfLight,
		owned:            true,
	}, nil
}

// MeasurementsFromInfo builds a record from a transfer structure. In
// Borrow mode the record's arrays view the structure's memory in place; in
// Own mode they are independent copies. Scalars are taken verbatim, so a
// record round-tripped through CopyIntoInfo reproduces the structure
// exactly.
func MeasurementsFromInfo(info *CalculationInfo, mode Mode) (*Measurements, error) {
	if err := info.Validate(); err != nil {
		return nil, err
	}

	m := Measurements{
		NumSlowTimes:     info.NumSlowTimes,
		NumFastTimes:     info.NumFastTimes,
		CentreFrequency:  info.CentreFrequency,
		SampleFrequency:  info.SampleFrequency,
		PropagationSpeed: info.CEff,
		owned:            mode == Own,
	}
	switch mode {
	case Own:
		m.TransmitPos = vectorCopy(info.TransmitPosns, info.NumSlowTimes)
		m.ReceivePos = vectorCopy(info.ReceivePosns, info.NumSlowTimes)
		m.StabRefPos = vectorCopy(info.StabRefPosns, info.NumSlowTimes)
		m.PhaseHistory = complexCopy(info.PhaseHistory, info.NumSlowTimes*info.NumFastTimes)
	default:
		m.TransmitPos = vectorView(info.TransmitPosns, info.NumSlowTimes)
		m.ReceivePos = vectorView(info.ReceivePosns, info.NumSlowTimes)
		m.StabRefPos = vectorView(info.StabRefPosns, info.NumSlowTimes)
		m.PhaseHistory = complexView(info.PhaseHistory, info.NumSlowTimes*info.NumFastTimes)
	}
	return &m, nil
}

// Owns reports whether the record allocated its arrays. Borrowed records
// alias caller memory and must never be resized.
func (m *Measurements) Owns() bool { return m.owned }

// Validate checks the dimension invariants.
func (m *Measurements) Validate() error {
	if m.NumSlowTimes <= 0 || m.NumFastTimes <= 0 {
		return fmt.Errorf("%w: %d slow times x %d fast times", ErrDimensionMismatch, m.NumSlowTimes, m.NumFastTimes)
	}
	if len(m.TransmitPos) != m.NumSlowTimes || len(m.ReceivePos) != m.NumSlowTimes || len(m.StabRefPos) != m.NumSlowTimes {
		return fmt.Errorf("%w: position arrays have %d/%d/%d entries, want %d each",
			ErrDimensionMismatch, len(m.TransmitPos), len(m.ReceivePos), len(m.StabRefPos), m.NumSlowTimes)
	}
	if len(m.PhaseHistory) != m.NumSlowTimes*m.NumFastTimes {
		return fmt.Errorf("%w: phase history has %d samples, want %d",
			ErrDimensionMismatch, len(m.PhaseHistory), m.NumSlowTimes*m.NumFastTimes)
	}
	return nil
}

// CopyIntoInfo writes the record into a caller-supplied transfer
// structure, the exact inverse of MeasurementsFromInfo. Arrays the record
// borrows from this same structure are already in place and are skipped.
func (m *Measurements) CopyIntoInfo(info *CalculationInfo) error {
	if info.NumSlowTimes != m.NumSlowTimes || info.NumFastTimes != m.NumFastTimes {
		return fmt.Errorf("%w: destination is %dx%d, record is %dx%d",
			ErrDimensionMismatch, info.NumSlowTimes, info.NumFastTimes, m.NumSlowTimes, m.NumFastTimes)
	}
	if err := info.Validate(); err != nil {
		return err
	}

	if !sameBacking(info.TransmitPosns, m.TransmitPos) {
		copyVectorsInto(info.TransmitPosns, m.TransmitPos)
	}
	if !sameBacking(info.ReceivePosns, m.ReceivePos) {
		copyVectorsInto(info.ReceivePosns, m.ReceivePos)
	}
	if !sameBacking(info.StabRefPosns, m.StabRefPos) {
		copyVectorsInto(info.StabRefPosns, m.StabRefPos)
	}
	if !sameBacking(info.PhaseHistory, m.PhaseHistory) {
		copyComplexInto(info.PhaseHistory, m.PhaseHistory)
	}

	info.CentreFrequency = m.CentreFrequency
	info.SampleFrequency = m.SampleFrequency
	info.CEff = m.PropagationSpeed
	return nil
}

// Hypothesis holds the scene: scatterer positions paired with complex
// reflectivity amplitudes.
type Hypothesis struct {
	NumScatterers int

	Positions  []geom.Vector
	Amplitudes []complex128

	owned bool
}

// NewHypothesis allocates an owning record with zeroed amplitudes.
func NewHypothesis(scatterers int) (*Hypothesis, error) {
	if scatterers < 0 {
		return nil, fmt.Errorf("%w: %d scatterers", ErrDimensionMismatch, scatterers)
	}
	return &Hypothesis{
		NumScatterers: scatterers,
		Positions:     make([]geom.Vector, scatterers),
		Amplitudes:    make([]complex128, scatterers),
		owned:         true,
	}, nil
}

// HypothesisFromInfo builds a record from a transfer structure under the
// same Borrow/Own discipline as MeasurementsFromInfo.
func HypothesisFromInfo(info *CalculationInfo, mode Mode) (*Hypothesis, error) {
	if err := info.Validate(); err != nil {
		return nil, err
	}

	h := Hypothesis{
		NumScatterers: info.NumScatterers,
		owned:         mode == Own,
	}
	switch mode {
	case Own:
		h.Positions = vectorCopy(info.ScatPosns, info.NumScatterers)
		h.Amplitudes = complexCopy(info.ScatteringAmplitudes, info.NumScatterers)
	default:
		h.Positions = vectorView(info.ScatPosns, info.NumScatterers)
		h.Amplitudes = complexView(info.ScatteringAmplitudes, info.NumScatterers)
	}
	return &h, nil
}

// Owns reports whether the record allocated its arrays.
func (h *Hypothesis) Owns() bool { return h.owned }

// Validate checks the dimension invariants.
func (h *Hypothesis) Validate() error {
	if h.NumScatterers < 0 {
		return fmt.Errorf("%w: %d scatterers", ErrDimensionMismatch, h.NumScatterers)
	}
	if len(h.Positions) != h.NumScatterers || len(h.Amplitudes) != h.NumScatterers {
		return fmt.Errorf("%w: scatterer arrays have %d/%d entries, want %d each",
			ErrDimensionMismatch, len(h.Positions), len(h.Amplitudes), h.NumScatterers)
	}
	return nil
}

// CopyIntoInfo writes the record into a caller-supplied transfer
// structure. Arrays borrowed from this same structure are skipped.
func (h *Hypothesis) CopyIntoInfo(info *CalculationInfo) error {
	if info.NumScatterers != h.NumScatterers {
		return fmt.Errorf("%w: destination has %d scatterers, record has %d",
			ErrDimensionMismatch, info.NumScatterers, h.NumScatterers)
	}
	if err := info.Validate(); err != nil {
		return err
	}

	if !sameBacking(info.ScatPosns, h.Positions) {
		copyVectorsInto(info.ScatPosns, h.Positions)
	}
	if !sameBacking(info.ScatteringAmplitudes, h.Amplitudes) {
		copyComplexInto(info.ScatteringAmplitudes, h.Amplitudes)
	}
	return nil
}
