package storage

import (
	"fmt"
	"time"
)

// Session groups the collections produced by one simulator run.
type Session struct {
	ID        int64
	CreatedAt time.Time
	Label     string
	Config    *string
}

// Collection is one stored measurement set: dimensions, waveform scalars,
// per-pulse platform geometry and the recorded phase history. Array fields
// use the flat layouts of the computation boundary, so a loaded collection
// can be viewed as operator records without reshaping.
type Collection struct {
	ID        int64
	SessionID int64
	Label     string

	NumSlowTimes int
	NumFastTimes int

	CentreFrequency  float64
	SampleFrequency  float64
	PropagationSpeed float64
	UpsampleRatio    float64
	SignMultiplier   float64

	TransmitPos []float64 // 3 per slow time, x,y,z
	ReceivePos  []float64
	StabRefPos  []float64

	WaveformFFT       []float64 // 2 per fast time, re,im
	SlowTimeWeighting []float64 // 1 per slow time
	PhaseHistory      []float64 // 2 per slow time x fast time, re,im
}

// Validate checks every array length against the declared dimensions.
func (c *Collection) Validate() error {
	if c.NumSlowTimes <= 0 || c.NumFastTimes <= 0 {
		return fmt.Errorf("collection is %dx%d", c.NumSlowTimes, c.NumFastTimes)
	}

	checks := []struct {
		name string
		got  int
		want int
	}{
		{"transmit positions", len(c.TransmitPos), 3 * c.NumSlowTimes},
		{"receive positions", len(c.ReceivePos), 3 * c.NumSlowTimes},
		{"stabilization reference positions", len(c.StabRefPos), 3 * c.NumSlowTimes},
		{"waveform spectrum", len(c.WaveformFFT), 2 * c.NumFastTimes},
		{"slow-time weighting", len(c.SlowTimeWeighting), c.NumSlowTimes},
		{"phase history", len(c.PhaseHistory), 2 * c.NumSlowTimes * c.NumFastTimes},
	}
	for _, chk := range checks {
		if chk.got != chk.want {
			return fmt.Errorf("collection %s has %d values, want %d", chk.name, chk.got, chk.want)
		}
	}
	return nil
}

// Scene is the ground-truth scatterer layout a collection was simulated
// from, kept alongside the measurements for reconstruction comparisons.
type Scene struct {
	ID           int64
	CollectionID int64
	Label        string

	Positions  []float64 // 3 per scatterer, x,y,z
	Amplitudes []float64 // 2 per scatterer, re,im
}

// NumScatterers returns the number of targets in the scene.
func (s *Scene) NumScatterers() int { return len(s.Amplitudes) / 2 }

// Validate checks the position and amplitude arrays describe the same
// number of targets.
func (s *Scene) Validate() error {
	if len(s.Positions)%3 != 0 || len(s.Amplitudes)%2 != 0 {
		return fmt.Errorf("scene arrays have %d position and %d amplitude values",
			len(s.Positions), len(s.Amplitudes))
	}
	if len(s.Positions)/3 != len(s.Amplitudes)/2 {
		return fmt.Errorf("scene has %d positions for %d amplitudes",
			len(s.Positions)/3, len(s.Amplitudes)/2)
	}
	return nil
}
