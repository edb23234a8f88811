package sar

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/joshuahellier/sarsolver/internal/geom"
)

const (
	testSlowTimes  = 7
	testFastTimes  = 9 // deliberately odd so the transform length is not a power of two
	testScatterers = 5
)

// testProblem builds a small quasi-monostatic collection with random
// scatterers near the stabilization reference point.
func testProblem(rng *rand.Rand, sign float64) (*Measurements, *Hypothesis, OperatorParams) {
	meas, err := NewMeasurements(testSlowTimes, testFastTimes, 9.6e9, 300e6)
	if err != nil {
		panic(err)
	}
	for s := 0; s < testSlowTimes; s++ {
		along := (float64(s)/float64(testSlowTimes-1) - 0.5) * 60
		meas.TransmitPos[s] = geom.Vector{2000, along, 40}
		meas.ReceivePos[s] = geom.Vector{2000, along + 3, 38}
		meas.StabRefPos[s] = geom.Vector{}
	}

	hyp, err := NewHypothesis(testScatterers)
	if err != nil {
		panic(err)
	}
	for j := range hyp.Positions {
		hyp.Positions[j] = geom.Vector{6*rng.Float64() - 3, 6*rng.Float64() - 3, 0}
		hyp.Amplitudes[j] = complex(rng.NormFloat64(), rng.NormFloat64())
	}

	params := OperatorParams{
		WaveformFFT:       randomComplex(rng, testFastTimes),
		SlowTimeWeighting: make([]float64, testSlowTimes),
		UpsampleRatio:     2,
		SignMultiplier:    sign,
	}
	for s := range params.SlowTimeWeighting {
		params.SlowTimeWeighting[s] = 0.5 + rng.Float64()
	}
	return meas, hyp, params
}

func randomComplex(rng *rand.Rand, n int) []complex128 {
	out := make([]complex128, n)
	for i := range out {
		out[i] = complex(rng.NormFloat64(), rng.NormFloat64())
	}
	return out
}

// dot is the conjugate-linear inner product sum(conj(a_i) * b_i).
func dot(a, b []complex128) complex128 {
	var sum complex128
	for i := range a {
		sum += cmplx.Conj(a[i]) * b[i]
	}
	return sum
}

func runForward(t *testing.T, w *Worker) {
	t.Helper()
	if err := w.SetupForwardEvaluate(); err != nil {
		t.Fatalf("forward setup: %v", err)
	}
	if err := w.ExecuteForwardEvaluate(); err != nil {
		t.Fatalf("forward execute: %v", err)
	}
}

func runAdjoint(t *testing.T, w *Worker) {
	t.Helper()
	if err := w.SetupAdjointEvaluate(); err != nil {
		t.Fatalf("adjoint setup: %v", err)
	}
	if err := w.ExecuteAdjointEvaluate(); err != nil {
		t.Fatalf("adjoint execute: %v", err)
	}
}

func TestForwardAdjointDotProduct(t *testing.T) {
	for _, sign := range []float64{1, -1} {
		t.Run(fmt.Sprintf("sign=%+g", sign), func(t *testing.T) {
			rng := rand.New(rand.NewSource(7))
			meas, hyp, params := testProblem(rng, sign)

			x := append([]complex128(nil), hyp.Amplitudes...)
			y := randomComplex(rng, len(meas.PhaseHistory))

			w, err := NewWorker(meas, hyp, params)
			if err != nil {
				t.Fatalf("NewWorker: %v", err)
			}
			runForward(t, w)
			fx := append([]complex128(nil), meas.PhaseHistory...)

			// Reuse the collection for the reverse direction: phase
			// history becomes y, a fresh zero-amplitude hypothesis
			// receives the back-projection.
			copy(meas.PhaseHistory, y)
			back, err := NewHypothesis(testScatterers)
			if err != nil {
				t.Fatalf("NewHypothesis: %v", err)
			}
			copy(back.Positions, hyp.Positions)

			wBack, err := NewWorker(meas, back, params)
			if err != nil {
				t.Fatalf("NewWorker: %v", err)
			}
			runAdjoint(t, wBack)

			lhs := dot(fx, y)
			rhs := dot(x, back.Amplitudes)
			tol := 1e-9 * math.Max(1, cmplx.Abs(lhs))
			if cmplx.Abs(lhs-rhs) > tol {
				t.Errorf("<forward(x), y> = %v, <x, adjoint(y)> = %v, difference %g exceeds %g",
					lhs, rhs, cmplx.Abs(lhs-rhs), tol)
			}
		})
	}
}

func TestForwardLinearity(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	meas, hyp, params := testProblem(rng, 1)

	x1 := append([]complex128(nil), hyp.Amplitudes...)
	x2 := randomComplex(rng, testScatterers)
	const a = 0.75 - 1.5i

	forward := func(amps []complex128) []complex128 {
		clear(meas.PhaseHistory)
		copy(hyp.Amplitudes, amps)
		w, err := NewWorker(meas, hyp, params)
		if err != nil {
			t.Fatalf("NewWorker: %v", err)
		}
		runForward(t, w)
		return append([]complex128(nil), meas.PhaseHistory...)
	}

	f1 := forward(x1)
	f2 := forward(x2)

	combined := make([]complex128, testScatterers)
	for j := range combined {
		combined[j] = a*x1[j] + x2[j]
	}
	fc := forward(combined)

	for i := range fc {
		want := a*f1[i] + f2[i]
		if cmplx.Abs(fc[i]-want) > 1e-9*math.Max(1, cmplx.Abs(want)) {
			t.Fatalf("sample %d: forward(a*x1+x2) = %v, a*forward(x1)+forward(x2) = %v", i, fc[i], want)
		}
	}
}

func TestZeroInputIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	meas, hyp, params := testProblem(rng, 1)

	t.Run("forward of zero amplitudes", func(t *testing.T) {
		clear(hyp.Amplitudes)
		clear(meas.PhaseHistory)
		w, err := NewWorker(meas, hyp, params)
		if err != nil {
			t.Fatalf("NewWorker: %v", err)
		}
		runForward(t, w)
		for i, v := range meas.PhaseHistory {
			if v != 0 {
				t.Fatalf("phase history sample %d = %v, want 0", i, v)
			}
		}
	})

	t.Run("adjoint of zero phase history", func(t *testing.T) {
		clear(meas.PhaseHistory)
		clear(hyp.Amplitudes)
		w, err := NewWorker(meas, hyp, params)
		if err != nil {
			t.Fatalf("NewWorker: %v", err)
		}
		runAdjoint(t, w)
		for j, v := range hyp.Amplitudes {
			if v != 0 {
				t.Fatalf("amplitude %d = %v, want 0", j, v)
			}
		}
	})
}

func TestForwardPartitionedEquivalence(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	measFull, hyp, params := testProblem(rng, -1)

	wFull, err := NewWorker(measFull, hyp, params)
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}
	runForward(t, wFull)

	measSplit, _, _ := testProblem(rand.New(rand.NewSource(23)), -1)
	const width = 5 // splits the 9-bin axis into [0,5) and a clamped [5,9)
	for index := 0; index < 2; index++ {
		w, err := NewWorker(measSplit, hyp, params, WithPartition(index, width))
		if err != nil {
			t.Fatalf("NewWorker partition %d: %v", index, err)
		}
		if err := w.SetupForwardEvaluate(); err != nil {
			t.Fatalf("partition %d setup: %v", index, err)
		}
		lo, hi := w.Partition()
		if index == 1 && (lo != 5 || hi != 9) {
			t.Fatalf("partition 1 spans [%d, %d), want [5, 9)", lo, hi)
		}
		if err := w.ExecuteForwardEvaluate(); err != nil {
			t.Fatalf("partition %d execute: %v", index, err)
		}
	}

	// Disjoint columns run through identical arithmetic, so the split
	// result matches the whole-axis result exactly.
	for i := range measFull.PhaseHistory {
		if measSplit.PhaseHistory[i] != measFull.PhaseHistory[i] {
			t.Fatalf("sample %d: split %v, full %v", i, measSplit.PhaseHistory[i], measFull.PhaseHistory[i])
		}
	}
}

func TestAdjointPartitionedEquivalence(t *testing.T) {
	rng := rand.New(rand.NewSource(29))
	meas, hyp, params := testProblem(rng, 1)
	copy(meas.PhaseHistory, randomComplex(rng, len(meas.PhaseHistory)))

	full, err := NewHypothesis(testScatterers)
	if err != nil {
		t.Fatalf("NewHypothesis: %v", err)
	}
	copy(full.Positions, hyp.Positions)
	wFull, err := NewWorker(meas, full, params)
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}
	runAdjoint(t, wFull)

	sum := make([]complex128, testScatterers)
	const width = 5
	for index := 0; index < 2; index++ {
		part, err := NewHypothesis(testScatterers)
		if err != nil {
			t.Fatalf("NewHypothesis: %v", err)
		}
		copy(part.Positions, hyp.Positions)
		w, err := NewWorker(meas, part, params, WithPartition(index, width))
		if err != nil {
			t.Fatalf("NewWorker partition %d: %v", index, err)
		}
		runAdjoint(t, w)
		for j := range sum {
			sum[j] += part.Amplitudes[j]
		}
	}

	for j := range sum {
		if cmplx.Abs(sum[j]-full.Amplitudes[j]) > 1e-10*math.Max(1, cmplx.Abs(full.Amplitudes[j])) {
			t.Fatalf("scatterer %d: split sum %v, full %v", j, sum[j], full.Amplitudes[j])
		}
	}
}

func TestForwardReferencePointScatterer(t *testing.T) {
	// A unit scatterer sitting exactly on the stabilization reference
	// point has zero range offset, so with a flat waveform every sample
	// must equal the pulse weighting times the amplitude.
	meas, err := NewMeasurements(3, 4, 10e9, 300e6)
	if err != nil {
		t.Fatalf("NewMeasurements: %v", err)
	}
	for s := 0; s < 3; s++ {
		meas.TransmitPos[s] = geom.Vector{1500, float64(s) * 10, 0}
		meas.ReceivePos[s] = geom.Vector{1500, float64(s)*10 + 2, 0}
		meas.StabRefPos[s] = geom.Vector{}
	}
	hyp, err := NewHypothesis(1)
	if err != nil {
		t.Fatalf("NewHypothesis: %v", err)
	}
	hyp.Amplitudes[0] = 2 - 1i

	flat := make([]complex128, 4)
	for i := range flat {
		flat[i] = 1
	}
	params := OperatorParams{
		WaveformFFT:       flat,
		SlowTimeWeighting: []float64{1, 0.5, 2},
		UpsampleRatio:     1,
		SignMultiplier:    1,
	}

	w, err := NewWorker(meas, hyp, params)
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}
	runForward(t, w)

	for s := 0; s < 3; s++ {
		want := complex(params.SlowTimeWeighting[s], 0) * hyp.Amplitudes[0]
		for g := 0; g < 4; g++ {
			got := meas.PhaseHistory[s*4+g]
			if cmplx.Abs(got-want) > 1e-12 {
				t.Fatalf("pulse %d bin %d = %v, want %v", s, g, got, want)
			}
		}
	}
}

func TestAccumulationAcrossRuns(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	meas, hyp, params := testProblem(rng, 1)

	w, err := NewWorker(meas, hyp, params)
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}
	runForward(t, w)
	once := append([]complex128(nil), meas.PhaseHistory...)

	if err := w.ExecuteForwardEvaluate(); err != nil {
		t.Fatalf("second execute: %v", err)
	}
	for i := range once {
		want := 2 * once[i]
		if cmplx.Abs(meas.PhaseHistory[i]-want) > 1e-9*math.Max(1, cmplx.Abs(want)) {
			t.Fatalf("sample %d after two runs = %v, want %v", i, meas.PhaseHistory[i], want)
		}
	}
}

func TestWorkerSetupErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(5))

	tests := []struct {
		name   string
		mutate func(*Measurements, *OperatorParams, *[]func(*Worker))
		want   error
	}{
		{
			name: "upsample ratio below one",
			mutate: func(_ *Measurements, p *OperatorParams, _ *[]func(*Worker)) {
				p.UpsampleRatio = 0.5
			},
			want: ErrBadUpsampleRatio,
		},
		{
			name: "fractional sign multiplier",
			mutate: func(_ *Measurements, p *OperatorParams, _ *[]func(*Worker)) {
				p.SignMultiplier = 0.7
			},
			want: ErrBadSignMultiplier,
		},
		{
			name: "zero sign multiplier",
			mutate: func(_ *Measurements, p *OperatorParams, _ *[]func(*Worker)) {
				p.SignMultiplier = 0
			},
			want: ErrBadSignMultiplier,
		},
		{
			name: "partition beyond axis",
			mutate: func(_ *Measurements, _ *OperatorParams, opts *[]func(*Worker)) {
				*opts = append(*opts, WithPartition(3, 5))
			},
			want: ErrBadPartition,
		},
		{
			name: "non-positive partition width",
			mutate: func(_ *Measurements, _ *OperatorParams, opts *[]func(*Worker)) {
				*opts = append(*opts, WithPartition(0, 0))
			},
			want: ErrBadPartition,
		},
		{
			name: "zero centre frequency",
			mutate: func(m *Measurements, _ *OperatorParams, _ *[]func(*Worker)) {
				m.CentreFrequency = 0
			},
			want: ErrBadScalar,
		},
		{
			name: "negative propagation speed",
			mutate: func(m *Measurements, _ *OperatorParams, _ *[]func(*Worker)) {
				m.PropagationSpeed = -1
			},
			want: ErrBadScalar,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meas, hyp, params := testProblem(rng, 1)
			var opts []func(*Worker)
			tt.mutate(meas, &params, &opts)

			w, err := NewWorker(meas, hyp, params, opts...)
			if err != nil {
				t.Fatalf("NewWorker: %v", err)
			}
			if err = w.SetupForwardEvaluate(); !errors.Is(err, tt.want) {
				t.Errorf("SetupForwardEvaluate error = %v, want %v", err, tt.want)
			}
			if err = w.ExecuteForwardEvaluate(); !errors.Is(err, ErrNotSetUp) {
				t.Errorf("execute after failed setup = %v, want %v", err, ErrNotSetUp)
			}
		})
	}
}

func TestWorkerDimensionErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	meas, hyp, params := testProblem(rng, 1)

	short := params
	short.WaveformFFT = params.WaveformFFT[:testFastTimes-1]
	if _, err := NewWorker(meas, hyp, short); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("short waveform error = %v, want %v", err, ErrDimensionMismatch)
	}

	short = params
	short.SlowTimeWeighting = params.SlowTimeWeighting[:testSlowTimes-1]
	if _, err := NewWorker(meas, hyp, short); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("short weighting error = %v, want %v", err, ErrDimensionMismatch)
	}

	hyp.Positions = hyp.Positions[:testScatterers-1]
	if _, err := NewWorker(meas, hyp, params); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("truncated positions error = %v, want %v", err, ErrDimensionMismatch)
	}
}

func TestExecuteRequiresMatchingSetup(t *testing.T) {
	rng := rand.New(rand.NewSource(19))
	meas, hyp, params := testProblem(rng, 1)

	w, err := NewWorker(meas, hyp, params)
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}
	if err = w.ExecuteForwardEvaluate(); !errors.Is(err, ErrNotSetUp) {
		t.Errorf("forward without setup = %v, want %v", err, ErrNotSetUp)
	}
	if err = w.SetupForwardEvaluate(); err != nil {
		t.Fatalf("SetupForwardEvaluate: %v", err)
	}
	if err = w.ExecuteAdjointEvaluate(); !errors.Is(err, ErrNotSetUp) {
		t.Errorf("adjoint after forward setup = %v, want %v", err, ErrNotSetUp)
	}
}
