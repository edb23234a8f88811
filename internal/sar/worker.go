package sar

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/joshuahellier/sarsolver/internal/geom"
)

// OperatorParams carries the model inputs shared by both operator
// directions: the transmitted-waveform spectrum, the per-pulse weighting,
// and the two scalars fixing the transform geometry.
type OperatorParams struct {
	// WaveformFFT is the transmitted-waveform spectrum, one complex value
	// per fast-time bin. The forward operator multiplies by it, the
	// adjoint by its conjugate.
	WaveformFFT []complex128

	// SlowTimeWeighting is the real per-pulse weighting factor.
	SlowTimeWeighting []float64

	// UpsampleRatio scales the working transform length relative to the
	// fast-time axis; larger ratios quantize scatterer ranges onto a finer
	// grid. Must be at least 1.
	UpsampleRatio float64

	// SignMultiplier is +1 or -1 and selects the phase convention. Both
	// directions honor it, so either choice yields a mutually adjoint
	// pair.
	SignMultiplier float64
}

// WithPartition restricts a worker to fast-time columns
// [index*fastTimes, (index+1)*fastTimes) of the full axis, clamped at the
// axis end. Workers with disjoint partitions can run concurrently against
// a shared phase history.
func WithPartition(index, fastTimes int) func(*Worker) {
	return func(w *Worker) {
		w.workerIndex = index
		w.workingNumFastTimes = fastTimes
	}
}

type direction int

const (
	directionNone direction = iota
	directionForward
	directionAdjoint
)

// Worker evaluates the forward and adjoint operators for one fast-time
// partition. It holds its records by reference and owns its Fourier plan
// and scratch buffers; an instance must not be shared between goroutines.
type Worker struct {
	meas *Measurements
	hyp  *Hypothesis

	workerIndex         int
	workingNumFastTimes int

	waveformFFT       []complex128
	slowTimeWeighting []float64
	upsampleRatio     float64
	signMultiplier    float64

	// Derived by setup.
	workingLen        int     // transform length M
	centreWavenumber  float64 // 2*pi*f_c / c_eff, applied to the bistatic sum
	spatialSampleRate float64 // working bins per meter of bistatic range
	partitionLo       int
	partitionHi       int

	kModes       []complex128 // wavenumber-domain accumulation buffer, length M
	rangeProfile []complex128 // transformed profile buffer, length M
	fft          *fourier.CmplxFFT

	setupDone direction
}

// NewWorker builds a worker over the given records. The waveform spectrum
// and weighting are copied so later caller mutation cannot skew a running
// batch. The default partition is the whole fast-time axis; orchestrators
// splitting work across workers narrow it with WithPartition.
func NewWorker(meas *Measurements, hyp *Hypothesis, params OperatorParams, options ...func(*Worker)) (*Worker, error) {
	if err := meas.Validate(); err != nil {
		return nil, err
	}
	if err := hyp.Validate(); err != nil {
		return nil, err
	}
	if len(params.WaveformFFT) != meas.NumFastTimes {
		return nil, fmt.Errorf("%w: waveform spectrum has %d bins, want %d",
			ErrDimensionMismatch, len(params.WaveformFFT), meas.NumFastTimes)
	}
	if len(params.SlowTimeWeighting) != meas.NumSlowTimes {
		return nil, fmt.Errorf("%w: slow-time weighting has %d entries, want %d",
			ErrDimensionMismatch, len(params.SlowTimeWeighting), meas.NumSlowTimes)
	}

	w := Worker{
		meas:                meas,
		hyp:                 hyp,
		waveformFFT:         append([]complex128(nil), params.WaveformFFT...),
		slowTimeWeighting:   append([]float64(nil), params.SlowTimeWeighting...),
		upsampleRatio:       params.UpsampleRatio,
		signMultiplier:      params.SignMultiplier,
		workingNumFastTimes: meas.NumFastTimes,
	}
	for _, option := range options {
		option(&w)
	}
	return &w, nil
}

// NewWorkerFromInfo builds a whole-axis worker over records that view the
// transfer structure in place, so operator output lands directly in the
// caller's arrays.
func NewWorkerFromInfo(info *CalculationInfo) (*Worker, error) {
	meas, err := MeasurementsFromInfo(info, Borrow)
	if err != nil {
		return nil, err
	}
	hyp, err := HypothesisFromInfo(info, Borrow)
	if err != nil {
		return nil, err
	}
	return NewWorker(meas, hyp, OperatorParams{
		WaveformFFT:       complexView(info.WaveformFFT, info.NumFastTimes),
		SlowTimeWeighting: info.SlowTimeWeighting,
		UpsampleRatio:     info.UpsampleRatio,
		SignMultiplier:    info.SignMultiplier,
	})
}

// SetupForwardEvaluate validates the model parameters and prepares the
// Fourier plan and scratch buffers. It must succeed before
// ExecuteForwardEvaluate runs; a failure leaves the worker unable to
// evaluate.
func (w *Worker) SetupForwardEvaluate() error {
	if err := w.setup(); err != nil {
		return err
	}
	w.setupDone = directionForward
	return nil
}

// SetupAdjointEvaluate mirrors SetupForwardEvaluate for the adjoint
// direction.
func (w *Worker) SetupAdjointEvaluate() error {
	if err := w.setup(); err != nil {
		return err
	}
	w.setupDone = directionAdjoint
	return nil
}

func (w *Worker) setup() error {
	w.setupDone = directionNone

	if w.upsampleRatio < 1 || math.IsInf(w.upsampleRatio, 0) || math.IsNaN(w.upsampleRatio) {
		return fmt.Errorf("%w: got %g", ErrBadUpsampleRatio, w.upsampleRatio)
	}
	if w.signMultiplier != 1 && w.signMultiplier != -1 {
		return fmt.Errorf("%w: got %g", ErrBadSignMultiplier, w.signMultiplier)
	}
	if !positiveFinite(w.meas.CentreFrequency) {
		return fmt.Errorf("%w: centre frequency %g Hz", ErrBadScalar, w.meas.CentreFrequency)
	}
	if !positiveFinite(w.meas.SampleFrequency) {
		return fmt.Errorf("%w: sample frequency %g Hz", ErrBadScalar, w.meas.SampleFrequency)
	}
	if !positiveFinite(w.meas.PropagationSpeed) {
		return fmt.Errorf("%w: propagation speed %g m/s", ErrBadScalar, w.meas.PropagationSpeed)
	}

	n := w.meas.NumFastTimes
	if w.workerIndex < 0 || w.workingNumFastTimes <= 0 {
		return fmt.Errorf("%w: index %d, width %d", ErrBadPartition, w.workerIndex, w.workingNumFastTimes)
	}
	lo := w.workerIndex * w.workingNumFastTimes
	hi := lo + w.workingNumFastTimes
	if lo >= n {
		return fmt.Errorf("%w: columns [%d, %d) of %d", ErrBadPartition, lo, hi, n)
	}
	if hi > n {
		hi = n
	}
	w.partitionLo, w.partitionHi = lo, hi

	// The working length depends only on the full axis, never on the
	// partition, so split workers and a whole-axis worker share identical
	// transform geometry and their outputs sum exactly.
	m := int(math.Round(w.upsampleRatio * float64(n)))
	if w.fft == nil || w.workingLen != m {
		w.workingLen = m
		w.kModes = make([]complex128, m)
		w.rangeProfile = make([]complex128, m)
		w.fft = fourier.NewCmplxFFT(m)
	}

	w.centreWavenumber = 2 * math.Pi * w.meas.CentreFrequency / w.meas.PropagationSpeed
	w.spatialSampleRate = float64(m) * w.meas.SampleFrequency / (float64(n) * w.meas.PropagationSpeed)
	return nil
}

// ExecuteForwardEvaluate synthesizes phase history from the hypothesis,
// adding each pulse's contribution into the measurement record's columns
// of this worker's partition. Callers wanting a fresh result rather than
// an accumulation zero those columns first.
func (w *Worker) ExecuteForwardEvaluate() error {
	if w.setupDone != directionForward {
		return fmt.Errorf("%w: forward", ErrNotSetUp)
	}
	w.evaluate(directionForward)
	return nil
}

// ExecuteAdjointEvaluate back-projects the phase history of this worker's
// partition onto the scatterers, adding into the hypothesis amplitudes.
// It is the exact conjugate transpose of ExecuteForwardEvaluate.
func (w *Worker) ExecuteAdjointEvaluate() error {
	if w.setupDone != directionAdjoint {
		return fmt.Errorf("%w: adjoint", ErrNotSetUp)
	}
	w.evaluate(directionAdjoint)
	return nil
}

// evaluate runs the shared pipeline in one direction. Keeping a single
// body parameterized by direction is what guarantees the two operators
// stay mutually adjoint: every factor applied on the way out is conjugated
// on the way back, and the unnormalized transform pair Sequence and
// Coefficients are each other's conjugate transpose.
//
// Per pulse, forward: scatterers deposit amplitude times
// exp(i*sign*k_c*dR) at working bin round(dR*rho) of kModes, where dR is
// the bistatic range offset from the stabilization reference point; the
// inverse transform yields rangeProfile; partition bin g then accumulates
// weighting * waveform[g] * rangeProfile[q(g)], with q(g) the signed
// frequency index of g folded onto the working grid. The bin offset gives
// each fast-time bin the phase ramp of its own wavenumber, so a scatterer
// contributes range times wavenumber times sign across the band.
func (w *Worker) evaluate(dir direction) {
	n := w.meas.NumFastTimes
	m := w.workingLen
	sign := int(w.signMultiplier)

	for s := 0; s < w.meas.NumSlowTimes; s++ {
		tx := w.meas.TransmitPos[s]
		rx := w.meas.ReceivePos[s]
		refRange := geom.BistaticRange(tx, rx, w.meas.StabRefPos[s])
		weight := w.slowTimeWeighting[s]
		row := w.meas.PhaseHistory[s*n : (s+1)*n]

		switch dir {
		case directionForward:
			clear(w.kModes)
			for j, pos := range w.hyp.Positions {
				dr := geom.BistaticRange(tx, rx, pos) - refRange
				bin := geom.Modulo(int(math.Round(dr*w.spatialSampleRate)), m)
				phase := w.signMultiplier * w.centreWavenumber * dr
				w.kModes[bin] += w.hyp.Amplitudes[j] * complex(math.Cos(phase), math.Sin(phase))
			}
			w.fft.Sequence(w.rangeProfile, w.kModes)
			for g := w.partitionLo; g < w.partitionHi; g++ {
				bin := geom.Modulo(sign*signedFreqIndex(g, n), m)
				row[g] += complex(weight, 0) * w.waveformFFT[g] * w.rangeProfile[bin]
			}

		case directionAdjoint:
			clear(w.rangeProfile)
			for g := w.partitionLo; g < w.partitionHi; g++ {
				bin := geom.Modulo(sign*signedFreqIndex(g, n), m)
				w.rangeProfile[bin] = cmplx.Conj(w.waveformFFT[g]) * complex(weight, 0) * row[g]
			}
			w.fft.Coefficients(w.kModes, w.rangeProfile)
			for j, pos := range w.hyp.Positions {
				dr := geom.BistaticRange(tx, rx, pos) - refRange
				bin := geom.Modulo(int(math.Round(dr*w.spatialSampleRate)), m)
				phase := -w.signMultiplier * w.centreWavenumber * dr
				w.hyp.Amplitudes[j] += w.kModes[bin] * complex(math.Cos(phase), math.Sin(phase))
			}
		}
	}
}

// ZeroFFTBuffers clears the scratch buffers. Evaluation clears them per
// pulse on its own; this is for reusing a worker after an aborted pass.
func (w *Worker) ZeroFFTBuffers() {
	clear(w.kModes)
	clear(w.rangeProfile)
}

// Measurements returns the worker's measurement record.
func (w *Worker) Measurements() *Measurements { return w.meas }

// Hypothesis returns the worker's hypothesis record.
func (w *Worker) Hypothesis() *Hypothesis { return w.hyp }

// Partition returns the fast-time column range this worker evaluates.
// Valid after a successful setup.
func (w *Worker) Partition() (lo, hi int) { return w.partitionLo, w.partitionHi }

// WorkingLen returns the working transform length. Valid after a
// successful setup.
func (w *Worker) WorkingLen() int { return w.workingLen }

// CopyIntoInfo writes the worker's records and model parameters into a
// caller-supplied transfer structure.
func (w *Worker) CopyIntoInfo(info *CalculationInfo) error {
	if err := w.meas.CopyIntoInfo(info); err != nil {
		return err
	}
	if err := w.hyp.CopyIntoInfo(info); err != nil {
		return err
	}

	if len(info.WaveformFFT) != 2*len(w.waveformFFT) {
		return fmt.Errorf("%w: waveform spectrum destination has %d values, want %d",
			ErrDimensionMismatch, len(info.WaveformFFT), 2*len(w.waveformFFT))
	}
	if len(info.SlowTimeWeighting) != len(w.slowTimeWeighting) {
		return fmt.Errorf("%w: weighting destination has %d values, want %d",
			ErrDimensionMismatch, len(info.SlowTimeWeighting), len(w.slowTimeWeighting))
	}
	copyComplexInto(info.WaveformFFT, w.waveformFFT)
	copy(info.SlowTimeWeighting, w.slowTimeWeighting)
	info.UpsampleRatio = w.upsampleRatio
	info.SignMultiplier = w.signMultiplier
	return nil
}

// signedFreqIndex maps fast-time bin g of an n-point axis to its signed
// frequency index: 0, 1, ..., then negative indices for the upper half,
// the usual unshifted transform ordering.
func signedFreqIndex(g, n int) int {
	if g < (n+1)/2 {
		return g
	}
	return g - n
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}
