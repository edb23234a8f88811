package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/joshuahellier/sarsolver/internal/sar"
)

// simulate runs the forward operator across worker goroutines. Each worker
// owns a disjoint fast-time partition, so they share the measurement record
// and write to it without coordination.
func simulate(ctx context.Context, meas *sar.Measurements, hyp *sar.Hypothesis, params sar.OperatorParams, workers int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n := meas.NumFastTimes
	if workers > n {
		workers = n
	}
	width := (n + workers - 1) / workers
	workers = (n + width - 1) / width

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		w, err := sar.NewWorker(meas, hyp, params, sar.WithPartition(i, width))
		if err != nil {
			return fmt.Errorf("creating worker %d: %w", i, err)
		}

		wg.Add(1)
		go func(i int, w *sar.Worker) {
			defer wg.Done()
			if err := w.SetupForwardEvaluate(); err != nil {
				errs[i] = fmt.Errorf("worker %d: %w", i, err)
				return
			}
			if err := w.ExecuteForwardEvaluate(); err != nil {
				errs[i] = fmt.Errorf("worker %d: %w", i, err)
			}
		}(i, w)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// addNoise perturbs the phase history with circular complex gaussian noise.
func addNoise(rng *rand.Rand, samples []complex128, sd float64) {
	for i := range samples {
		samples[i] += complex(rng.NormFloat64()*sd, rng.NormFloat64()*sd)
	}
}
