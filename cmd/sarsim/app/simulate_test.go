package app

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/joshuahellier/sarsolver/internal/geom"
	"github.com/joshuahellier/sarsolver/internal/sar"
	"github.com/joshuahellier/sarsolver/internal/scene"
)

// testSimulation builds a small collection and target layout for exercising
// the worker fan-out. Seven fast-time bins leave the trailing partition
// short whenever three workers split the axis.
func testSimulation(t *testing.T) (*sar.Measurements, *sar.Hypothesis, sar.OperatorParams) {
	t.Helper()

	const slowTimes, fastTimes = 5, 7
	tx, rx, ref, err := scene.LinearAperture(scene.ApertureConfig{
		NumSlowTimes: slowTimes,
		Standoff:     1800,
		TrackLength:  32,
		Altitude:     30,
		Baseline:     3,
	})
	if err != nil {
		t.Fatalf("LinearAperture: %v", err)
	}

	meas, err := sar.NewMeasurements(slowTimes, fastTimes, 9.6e9, 300e6)
	if err != nil {
		t.Fatalf("NewMeasurements: %v", err)
	}
	copy(meas.TransmitPos, tx)
	copy(meas.ReceivePos, rx)
	copy(meas.StabRefPos, ref)

	targets := scene.PointTargets{
		{Position: geom.Vector{0, 0, 0}, Amplitude: 1},
		{Position: geom.Vector{1.5, -2, 0}, Amplitude: 2 - 1i},
		{Position: geom.Vector{-2, 1, 0.5}, Amplitude: -0.5i},
	}
	hyp, err := targets.Hypothesis()
	if err != nil {
		t.Fatalf("Hypothesis: %v", err)
	}

	params := sar.OperatorParams{
		WaveformFFT:       scene.HannSpectrum(fastTimes),
		SlowTimeWeighting: scene.HannWeighting(slowTimes),
		UpsampleRatio:     1.5,
		SignMultiplier:    -1,
	}
	return meas, hyp, params
}

func TestSimulateMatchesWholeAxis(t *testing.T) {
	tests := []struct {
		name    string
		workers int
	}{
		{"single worker", 1},
		{"uneven split", 3},
		{"more workers than bins", 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meas, hyp, params := testSimulation(t)
			if err := simulate(context.Background(), meas, hyp, params, tt.workers); err != nil {
				t.Fatalf("simulate: %v", err)
			}

			ref, refHyp, refParams := testSimulation(t)
			w, err := sar.NewWorker(ref, refHyp, refParams)
			if err != nil {
				t.Fatalf("NewWorker: %v", err)
			}
			if err = w.SetupForwardEvaluate(); err != nil {
				t.Fatalf("SetupForwardEvaluate: %v", err)
			}
			if err = w.ExecuteForwardEvaluate(); err != nil {
				t.Fatalf("ExecuteForwardEvaluate: %v", err)
			}

			// Disjoint fast-time columns run through identical
			// arithmetic, so the fan-out reproduces a single whole-axis
			// worker exactly.
			for i := range ref.PhaseHistory {
				if meas.PhaseHistory[i] != ref.PhaseHistory[i] {
					t.Fatalf("sample %d: partitioned %v, whole axis %v", i, meas.PhaseHistory[i], ref.PhaseHistory[i])
				}
			}
		})
	}
}

func TestSimulateCancelledContext(t *testing.T) {
	meas, hyp, params := testSimulation(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := simulate(ctx, meas, hyp, params, 2); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestSimulateBadParams(t *testing.T) {
	meas, hyp, params := testSimulation(t)
	params.UpsampleRatio = 0.5

	if err := simulate(context.Background(), meas, hyp, params, 2); !errors.Is(err, sar.ErrBadUpsampleRatio) {
		t.Errorf("got %v, want ErrBadUpsampleRatio", err)
	}
}

func TestAddNoiseDeterministic(t *testing.T) {
	base := []complex128{1, 2 + 1i, -3i, 0}
	a := append([]complex128(nil), base...)
	b := append([]complex128(nil), base...)

	addNoise(rand.New(rand.NewSource(31)), a, 0.1)
	addNoise(rand.New(rand.NewSource(31)), b, 0.1)

	changed := false
	for i := range a {
		if a[i] != base[i] {
			changed = true
		}
		if a[i] != b[i] {
			t.Errorf("sample %d differs across identically seeded runs: %v vs %v", i, a[i], b[i])
		}
	}
	if !changed {
		t.Error("noise left every sample untouched")
	}
}
