// Package geom provides the vector geometry used by the imaging model:
// Euclidean and bistatic ranges between platform and scene positions, and
// the cyclic index arithmetic for frequency-domain buffers.
package geom

import "math"

// SpeedOfLight is the vacuum propagation speed in meters per second, the
// default effective propagation speed of the imaging model.
const SpeedOfLight = 299792458.0

// Vector is a 3-D position or displacement in meters. It is a value type
// of three consecutive float64 components with no padding, so flat
// coordinate arrays can be viewed as []Vector without copying.
type Vector [3]float64

// Sub returns v - u.
func (v Vector) Sub(u Vector) Vector {
	return Vector{v[0] - u[0], v[1] - u[1], v[2] - u[2]}
}

// Dot returns the scalar product of v and u.
func (v Vector) Dot(u Vector) float64 {
	return v[0]*u[0] + v[1]*u[1] + v[2]*u[2]
}

// Norm returns the Euclidean length of v.
func (v Vector) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Distance returns the Euclidean distance between x and y.
func Distance(x, y Vector) float64 {
	return x.Sub(y).Norm()
}

// BistaticRange returns the total transmitter-to-point-to-receiver path
// length, Distance(p, tx) + Distance(p, rx). For a colocated transmitter
// and receiver this is twice the monostatic range.
func BistaticRange(tx, rx, p Vector) float64 {
	return Distance(p, tx) + Distance(p, rx)
}

// Modulo returns a mod b with the result always in [0, b), including for
// negative a. b must be positive.
func Modulo(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
