package sar

import "fmt"

// The boundary functions are the engine's calling convention for hosts
// driving it through transfer structures. They validate, construct a
// whole-axis worker, run at most one operator and copy results back; every
// failure comes back as an error, never a panic.

// ForwardEvaluate runs the forward operator over a transfer structure.
// The structure's arrays are used in place: the synthesized contribution
// of its scatterers accumulates into its phase history.
func ForwardEvaluate(info *CalculationInfo) error {
	if err := evaluateInfo(info, directionForward); err != nil {
		return fmt.Errorf("forward evaluate: %w", err)
	}
	return nil
}

// AdjointEvaluate runs the adjoint operator over a transfer structure.
// The back-projection of its phase history accumulates into its
// scattering amplitudes.
func AdjointEvaluate(info *CalculationInfo) error {
	if err := evaluateInfo(info, directionAdjoint); err != nil {
		return fmt.Errorf("adjoint evaluate: %w", err)
	}
	return nil
}

func evaluateInfo(info *CalculationInfo, dir direction) error {
	w, err := NewWorkerFromInfo(info)
	if err != nil {
		return err
	}
	if err = w.run(dir); err != nil {
		return err
	}
	return w.CopyIntoInfo(info)
}

// DirectCopy marshals in through records and writes them into out with no
// computation, validating that the layout survives a crossing. Every
// value of out matches in exactly afterwards.
func DirectCopy(in, out *CalculationInfo) error {
	if err := recordCopy(in, out); err != nil {
		return fmt.Errorf("direct copy: %w", err)
	}
	return nil
}

// ForwardCopy marshals in into owning records, runs the forward operator
// over the whole axis, and unmarshals into out. in is left untouched.
func ForwardCopy(in, out *CalculationInfo) error {
	if err := operatorCopy(in, out, directionForward); err != nil {
		return fmt.Errorf("forward copy: %w", err)
	}
	return nil
}

// AdjointCopy is ForwardCopy for the adjoint operator.
func AdjointCopy(in, out *CalculationInfo) error {
	if err := operatorCopy(in, out, directionAdjoint); err != nil {
		return fmt.Errorf("adjoint copy: %w", err)
	}
	return nil
}

// RoundaboutCopy pushes in through two independent crossings: once into a
// freshly allocated intermediate structure, then from the intermediate
// into out. Ownership and layout conventions must survive both hops for
// out to reproduce in.
func RoundaboutCopy(in, out *CalculationInfo) error {
	if err := in.Validate(); err != nil {
		return fmt.Errorf("roundabout copy: %w", err)
	}
	mid := NewCalculationInfo(in.NumSlowTimes, in.NumFastTimes, in.NumScatterers)
	if err := recordCopy(in, mid); err != nil {
		return fmt.Errorf("roundabout copy: %w", err)
	}
	if err := recordCopy(mid, out); err != nil {
		return fmt.Errorf("roundabout copy: %w", err)
	}
	return nil
}

func recordCopy(in, out *CalculationInfo) error {
	w, err := NewWorkerFromInfo(in)
	if err != nil {
		return err
	}
	return w.CopyIntoInfo(out)
}

func operatorCopy(in, out *CalculationInfo, dir direction) error {
	meas, err := MeasurementsFromInfo(in, Own)
	if err != nil {
		return err
	}
	hyp, err := HypothesisFromInfo(in, Own)
	if err != nil {
		return err
	}
	w, err := NewWorker(meas, hyp, OperatorParams{
		WaveformFFT:       complexView(in.WaveformFFT, in.NumFastTimes),
		SlowTimeWeighting: in.SlowTimeWeighting,
		UpsampleRatio:     in.UpsampleRatio,
		SignMultiplier:    in.SignMultiplier,
	})
	if err != nil {
		return err
	}
	if err = w.run(dir); err != nil {
		return err
	}
	return w.CopyIntoInfo(out)
}

func (w *Worker) run(dir direction) error {
	switch dir {
	case directionForward:
		if err := w.SetupForwardEvaluate(); err != nil {
			return err
		}
		return w.ExecuteForwardEvaluate()
	default:
		if err := w.SetupAdjointEvaluate(); err != nil {
			return err
		}
		return w.ExecuteAdjointEvaluate()
	}
}
