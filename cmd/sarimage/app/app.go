package app

import (
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/joshuahellier/sarsolver/internal/geom"
	"github.com/joshuahellier/sarsolver/internal/sar"
	"github.com/joshuahellier/sarsolver/internal/scene"
	"github.com/joshuahellier/sarsolver/internal/storage"
)

// Run loads a stored collection and back-projects its phase history onto
// a pixel grid on the z=0 plane about the stabilization reference point.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer store.Close()

	collection, err := store.Collection(ctx, config.CollectionID)
	if err != nil {
		return fmt.Errorf("loading collection %d: %w", config.CollectionID, err)
	}

	meas, params, err := recordsFromCollection(collection)
	if err != nil {
		return fmt.Errorf("decoding collection %d: %w", config.CollectionID, err)
	}

	spacing := scene.RangeResolution(collection.PropagationSpeed, collection.SampleFrequency)
	if config.Extent != nil {
		spacing = *config.Extent / float64(config.Width)
	}

	logger.Info("collection loaded",
		slog.Group("collection",
			slog.Int64("id", collection.ID),
			slog.String("label", collection.Label),
			slog.Int("pulses", collection.NumSlowTimes),
			slog.Int("fastTimes", collection.NumFastTimes),
			slog.String("centreFrequency", humanHz(collection.CentreFrequency)),
			slog.String("sampleFrequency", humanHz(collection.SampleFrequency))))

	logger.Info("forming image",
		slog.Group("image",
			slog.Int("width", config.Width),
			slog.Int("height", config.Height),
			slog.String("pixelSpacing", humanMeters(spacing)),
			slog.Int("workers", config.Workers)))

	start := time.Now()
	amps, err := formImage(ctx, meas, pixelGrid(config.Width, config.Height, spacing), params, config.Workers)
	if err != nil {
		return fmt.Errorf("forming image: %w", err)
	}
	logger.Info("image formed", slog.Duration("elapsed", time.Since(start)))

	raster := newRaster(amps, config.Width, config.Height, spacing)
	bounds := raster.MeasureBounds(config.DynamicRange)

	logger.Info("rendering image",
		slog.Group("display",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.String("theme", string(config.Theme)),
			slog.Float64("minDB", bounds.Min),
			slog.Float64("maxDB", bounds.Max)))

	renderer := NewRenderer(renderConfig{
		Theme:         config.Theme,
		FontPath:      config.FontPath,
		NoAnnotations: config.NoAnnotations,
	}, bounds)

	img, err := renderer.Render(raster, collection)
	if err != nil {
		return fmt.Errorf("rendering image: %w", err)
	}

	out, err := os.Create(config.OutputFile)
	if err != nil {
		return err
	}

	switch config.Format {
	case ImagePNG:
		err = png.Encode(out, img)
	case ImageJPEG:
		err = jpeg.Encode(out, img, &jpeg.Options{Quality: 98})
	}
	if err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// recordsFromCollection rebuilds a measurement record and the operator
// parameters over the stored arrays. The record borrows the collection's
// memory, so nothing is copied.
func recordsFromCollection(c *storage.Collection) (*sar.Measurements, sar.OperatorParams, error) {
	info := sar.CalculationInfo{
		NumSlowTimes:      c.NumSlowTimes,
		NumFastTimes:      c.NumFastTimes,
		TransmitPosns:     c.TransmitPos,
		ReceivePosns:      c.ReceivePos,
		StabRefPosns:      c.StabRefPos,
		PhaseHistory:      c.PhaseHistory,
		WaveformFFT:       c.WaveformFFT,
		SlowTimeWeighting: c.SlowTimeWeighting,
		CentreFrequency:   c.CentreFrequency,
		SampleFrequency:   c.SampleFrequency,
		CEff:              c.PropagationSpeed,
		UpsampleRatio:     c.UpsampleRatio,
		SignMultiplier:    c.SignMultiplier,
	}

	meas, err := sar.MeasurementsFromInfo(&info, sar.Borrow)
	if err != nil {
		return nil, sar.OperatorParams{}, err
	}
	return meas, sar.OperatorParams{
		WaveformFFT:       complexSamples(c.WaveformFFT),
		SlowTimeWeighting: c.SlowTimeWeighting,
		UpsampleRatio:     c.UpsampleRatio,
		SignMultiplier:    c.SignMultiplier,
	}, nil
}

// complexSamples decodes interleaved re,im pairs.
func complexSamples(raw []float64) []complex128 {
	out := make([]complex128, len(raw)/2)
	for i := range out {
		out[i] = complex(raw[2*i], raw[2*i+1])
	}
	return out
}

// pixelGrid lays out scene positions in image order: row 0 holds the
// largest cross-range coordinate, columns run from negative to positive
// range, and every pixel sits on the z=0 plane.
func pixelGrid(width, height int, spacing float64) []geom.Vector {
	grid := make([]geom.Vector, width*height)
	cx := float64(width-1) / 2
	cy := float64(height-1) / 2
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			grid[row*width+col] = geom.Vector{
				(float64(col) - cx) * spacing,
				(cy - float64(row)) * spacing,
				0,
			}
		}
	}
	return grid
}

// formImage runs the adjoint operator across worker goroutines. Adjoint
// workers accumulate into scatterer amplitudes, so each gets its own
// amplitude buffer over the shared grid and the partial images are summed
// after the join.
func formImage(ctx context.Context, meas *sar.Measurements, grid []geom.Vector, params sar.OperatorParams, workers int) ([]complex128, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := meas.NumFastTimes
	if workers > n {
		workers = n
	}
	width := (n + workers - 1) / workers
	workers = (n + width - 1) / width

	var wg sync.WaitGroup
	errs := make([]error, workers)
	partials := make([]*sar.Hypothesis, workers)
	for i := 0; i < workers; i++ {
		hyp := &sar.Hypothesis{
			NumScatterers: len(grid),
			Positions:     grid,
			Amplitudes:    make([]complex128, len(grid)),
		}
		w, err := sar.NewWorker(meas, hyp, params, sar.WithPartition(i, width))
		if err != nil {
			return nil, fmt.Errorf("creating worker %d: %w", i, err)
		}
		partials[i] = hyp

		wg.Add(1)
		go func(i int, w *sar.Worker) {
			defer wg.Done()
			if err := w.SetupAdjointEvaluate(); err != nil {
				errs[i] = fmt.Errorf("worker %d: %w", i, err)
				return
			}
			if err := w.ExecuteAdjointEvaluate(); err != nil {
				errs[i] = fmt.Errorf("worker %d: %w", i, err)
			}
		}(i, w)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	amps := partials[0].Amplitudes
	for _, partial := range partials[1:] {
		for j, a := range partial.Amplitudes {
			amps[j] += a
		}
	}
	return amps, nil
}
