// Package sar implements the forward and adjoint linear operators of a
// bistatic synthetic-aperture-radar imaging model.
//
// The forward operator maps a hypothesis (point scatterers with complex
// reflectivities) to the phase history a radar would measure over a
// collection; the adjoint maps measured phase history back onto scatterer
// space. The two are exact conjugate transposes of each other, which is
// what the iterative reconstruction loops built on top of them require:
// for any hypothesis x and measurement y,
//
//	<forward(x), y> == <x, adjoint(y)>
//
// up to floating-point rounding. Neither direction normalizes; scaling
// belongs to the caller.
//
// All computation happens inside a Worker, which owns its Fourier plan and
// scratch buffers and evaluates one disjoint fast-time partition. The
// CalculationInfo transfer structure is the flat boundary contract for
// callers that marshal state in and out of the engine; ForwardEvaluate,
// AdjointEvaluate and the copy variants operate on it directly.
package sar

import "errors"

var (
	// ErrDimensionMismatch is returned when an array length is inconsistent
	// with the declared sizes it must match.
	ErrDimensionMismatch = errors.New("array length inconsistent with declared size")

	// ErrBadPartition is returned when a worker partition starts beyond the
	// fast-time axis or has a non-positive width.
	ErrBadPartition = errors.New("worker partition outside the fast-time axis")

	// ErrBadUpsampleRatio is returned when the upsample ratio is below 1;
	// the working buffer must be at least as long as the fast-time axis.
	ErrBadUpsampleRatio = errors.New("upsample ratio must be at least 1")

	// ErrBadSignMultiplier is returned when the sign multiplier is neither
	// +1 nor -1.
	ErrBadSignMultiplier = errors.New("sign multiplier must be +1 or -1")

	// ErrNotSetUp is returned when an evaluate call runs before the
	// matching setup call has succeeded.
	ErrNotSetUp = errors.New("evaluate called before matching setup")

	// ErrBadScalar is returned when a scalar model parameter (frequency,
	// propagation speed) is not a positive finite number.
	ErrBadScalar = errors.New("model scalar must be positive and finite")
)
