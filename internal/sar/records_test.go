package sar

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/joshuahellier/sarsolver/internal/geom"
)

func fillInfo(rng *rand.Rand, info *CalculationInfo) {
	for _, arr := range [][]float64{
		info.TransmitPosns, info.ReceivePosns, info.StabRefPosns, info.ScatPosns,
		info.PhaseHistory, info.ScatteringAmplitudes, info.WaveformFFT, info.SlowTimeWeighting,
	} {
		for i := range arr {
			arr[i] = rng.NormFloat64()
		}
	}
	info.CentreFrequency = 9.6e9
	info.SampleFrequency = 300e6
	info.CEff = 2.9e8
	info.UpsampleRatio = 1.5
	info.SignMultiplier = -1
}

func TestMeasurementsBorrowAliasesInfo(t *testing.T) {
	rng := rand.New(rand.NewSource(41))
	info := NewCalculationInfo(3, 4, 2)
	fillInfo(rng, info)

	meas, err := MeasurementsFromInfo(info, Borrow)
	if err != nil {
		t.Fatalf("MeasurementsFromInfo: %v", err)
	}
	if meas.Owns() {
		t.Error("borrowed record reports ownership")
	}
	if meas.PropagationSpeed != info.CEff {
		t.Errorf("propagation speed = %g, want the structure's %g", meas.PropagationSpeed, info.CEff)
	}

	meas.PhaseHistory[5] = 7 - 2i
	if info.PhaseHistory[10] != 7 || info.PhaseHistory[11] != -2 {
		t.Errorf("phase history write did not land in the structure: got %g, %g",
			info.PhaseHistory[10], info.PhaseHistory[11])
	}
	meas.TransmitPos[2] = geom.Vector{1, 2, 3}
	if info.TransmitPosns[6] != 1 || info.TransmitPosns[7] != 2 || info.TransmitPosns[8] != 3 {
		t.Errorf("position write did not land in the structure: got %v", info.TransmitPosns[6:9])
	}
}

func TestMeasurementsOwnIsIsolated(t *testing.T) {
	rng := rand.New(rand.NewSource(43))
	info := NewCalculationInfo(3, 4, 2)
	fillInfo(rng, info)

	meas, err := MeasurementsFromInfo(info, Own)
	if err != nil {
		t.Fatalf("MeasurementsFromInfo: %v", err)
	}
	if !meas.Owns() {
		t.Error("owning record reports borrowed arrays")
	}

	before := info.PhaseHistory[0]
	meas.PhaseHistory[0] += 1
	if info.PhaseHistory[0] != before {
		t.Error("write to an owning record reached the structure")
	}
	before = info.TransmitPosns[0]
	meas.TransmitPos[0][0] += 1
	if info.TransmitPosns[0] != before {
		t.Error("position write to an owning record reached the structure")
	}
}

func TestHypothesisModes(t *testing.T) {
	rng := rand.New(rand.NewSource(47))
	info := NewCalculationInfo(2, 3, 4)
	fillInfo(rng, info)

	borrowed, err := HypothesisFromInfo(info, Borrow)
	if err != nil {
		t.Fatalf("HypothesisFromInfo borrow: %v", err)
	}
	if borrowed.Owns() {
		t.Error("borrowed record reports ownership")
	}
	borrowed.Amplitudes[1] = 3 + 4i
	if info.ScatteringAmplitudes[2] != 3 || info.ScatteringAmplitudes[3] != 4 {
		t.Errorf("amplitude write did not land in the structure: got %v", info.ScatteringAmplitudes[2:4])
	}

	owned, err := HypothesisFromInfo(info, Own)
	if err != nil {
		t.Fatalf("HypothesisFromInfo own: %v", err)
	}
	if !owned.Owns() {
		t.Error("owning record reports borrowed arrays")
	}
	before := info.ScatPosns[0]
	owned.Positions[0][0] += 1
	if info.ScatPosns[0] != before {
		t.Error("position write to an owning record reached the structure")
	}
}

func TestRecordRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(53))
	info := NewCalculationInfo(4, 5, 3)
	fillInfo(rng, info)

	meas, err := MeasurementsFromInfo(info, Own)
	if err != nil {
		t.Fatalf("MeasurementsFromInfo: %v", err)
	}
	hyp, err := HypothesisFromInfo(info, Own)
	if err != nil {
		t.Fatalf("HypothesisFromInfo: %v", err)
	}

	out := NewCalculationInfo(4, 5, 3)
	if err := meas.CopyIntoInfo(out); err != nil {
		t.Fatalf("Measurements.CopyIntoInfo: %v", err)
	}
	if err := hyp.CopyIntoInfo(out); err != nil {
		t.Fatalf("Hypothesis.CopyIntoInfo: %v", err)
	}

	pairs := []struct {
		name     string
		got, src []float64
	}{
		{"transmit positions", out.TransmitPosns, info.TransmitPosns},
		{"receive positions", out.ReceivePosns, info.ReceivePosns},
		{"stabilization reference positions", out.StabRefPosns, info.StabRefPosns},
		{"scatterer positions", out.ScatPosns, info.ScatPosns},
		{"phase history", out.PhaseHistory, info.PhaseHistory},
		{"scattering amplitudes", out.ScatteringAmplitudes, info.ScatteringAmplitudes},
	}
	for _, p := range pairs {
		for i := range p.src {
			if p.got[i] != p.src[i] {
				t.Fatalf("%s value %d = %g, want %g", p.name, i, p.got[i], p.src[i])
			}
		}
	}
	if out.CentreFrequency != info.CentreFrequency || out.SampleFrequency != info.SampleFrequency || out.CEff != info.CEff {
		t.Errorf("scalars did not survive the round trip: %+v", out)
	}
}

func TestZeroScattererRecords(t *testing.T) {
	info := NewCalculationInfo(2, 3, 0)
	fillInfo(rand.New(rand.NewSource(59)), info)

	hyp, err := HypothesisFromInfo(info, Borrow)
	if err != nil {
		t.Fatalf("HypothesisFromInfo: %v", err)
	}
	if len(hyp.Positions) != 0 || len(hyp.Amplitudes) != 0 {
		t.Errorf("empty scene has %d positions and %d amplitudes", len(hyp.Positions), len(hyp.Amplitudes))
	}
	if err := hyp.CopyIntoInfo(info); err != nil {
		t.Errorf("CopyIntoInfo on empty scene: %v", err)
	}
}

func TestCalculationInfoValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CalculationInfo)
	}{
		{"zero slow times", func(info *CalculationInfo) { info.NumSlowTimes = 0 }},
		{"negative scatterers", func(info *CalculationInfo) { info.NumScatterers = -1 }},
		{"truncated transmit positions", func(info *CalculationInfo) { info.TransmitPosns = info.TransmitPosns[:1] }},
		{"truncated phase history", func(info *CalculationInfo) { info.PhaseHistory = info.PhaseHistory[:3] }},
		{"oversized waveform spectrum", func(info *CalculationInfo) { info.WaveformFFT = append(info.WaveformFFT, 0) }},
		{"missing weighting", func(info *CalculationInfo) { info.SlowTimeWeighting = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := NewCalculationInfo(3, 4, 2)
			tt.mutate(info)
			if err := info.Validate(); !errors.Is(err, ErrDimensionMismatch) {
				t.Errorf("Validate error = %v, want %v", err, ErrDimensionMismatch)
			}
			if _, err := MeasurementsFromInfo(info, Borrow); !errors.Is(err, ErrDimensionMismatch) {
				t.Errorf("MeasurementsFromInfo error = %v, want %v", err, ErrDimensionMismatch)
			}
		})
	}
}
