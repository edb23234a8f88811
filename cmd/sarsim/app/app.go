package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/joshuahellier/sarsolver/internal/geom"
	"github.com/joshuahellier/sarsolver/internal/sar"
	"github.com/joshuahellier/sarsolver/internal/scene"
	"github.com/joshuahellier/sarsolver/internal/storage"
)

const (
	storageDir = "data"
)

// Run synthesizes one collection from the configured aperture and scene,
// then persists the session, collection and ground-truth scene.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	meas, err := buildMeasurements(config)
	if err != nil {
		return err
	}
	hyp, err := buildScene(config)
	if err != nil {
		return err
	}
	params := buildParams(config)

	logger.Info("synthesizing phase history",
		slog.Int("pulses", meas.NumSlowTimes),
		slog.Int("fastTimes", meas.NumFastTimes),
		slog.Int("targets", hyp.NumScatterers),
		slog.Int("workers", config.Settings.Workers))

	start := time.Now()
	if err = simulate(ctx, meas, hyp, params, config.Settings.Workers); err != nil {
		return fmt.Errorf("synthesizing phase history: %w", err)
	}
	logger.Info("synthesis complete", slog.Duration("elapsed", time.Since(start)))

	if config.Noise.Enabled {
		rng := rand.New(rand.NewSource(config.Settings.Seed))
		addNoise(rng, meas.PhaseHistory, config.Noise.StandardDeviation)
		logger.Debug("added measurement noise",
			slog.Float64("standardDeviation", config.Noise.StandardDeviation))
	}

	// One whole-axis worker flattens the records and model parameters into
	// a transfer structure, which maps directly onto the stored layout.
	w, err := sar.NewWorker(meas, hyp, params)
	if err != nil {
		return fmt.Errorf("flattening records: %w", err)
	}
	info := sar.NewCalculationInfo(meas.NumSlowTimes, meas.NumFastTimes, hyp.NumScatterers)
	if err = w.CopyIntoInfo(info); err != nil {
		return fmt.Errorf("flattening records: %w", err)
	}

	store, dbPath, err := createStorage(&config.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	defer store.Close()

	sessionID, collectionID, sceneID, err := persist(ctx, store, config, info)
	if err != nil {
		return err
	}

	logger.Info("collection stored",
		slog.String("path", dbPath),
		slog.Int64("session", sessionID),
		slog.Int64("collection", collectionID),
		slog.Int64("scene", sceneID))
	return nil
}

func buildMeasurements(config *Config) (*sar.Measurements, error) {
	tx, rx, ref, err := scene.LinearAperture(scene.ApertureConfig{
		NumSlowTimes: config.Aperture.Pulses,
		Standoff:     config.Aperture.Standoff,
		TrackLength:  config.Aperture.TrackLength,
		Altitude:     config.Aperture.Altitude,
		Baseline:     config.Aperture.Baseline,
	})
	if err != nil {
		return nil, fmt.Errorf("building aperture: %w", err)
	}

	meas, err := sar.NewMeasurements(config.Aperture.Pulses, config.Waveform.FastTimes,
		config.Waveform.CentreFrequency, config.Waveform.SampleFrequency)
	if err != nil {
		return nil, fmt.Errorf("allocating measurements: %w", err)
	}
	meas.PropagationSpeed = config.Waveform.PropagationSpeed
	copy(meas.TransmitPos, tx)
	copy(meas.ReceivePos, rx)
	copy(meas.StabRefPos, ref)
	return meas, nil
}

func buildScene(config *Config) (*sar.Hypothesis, error) {
	var targets scene.PointTargets
	if config.Scene.Grid != nil {
		grid, err := scene.Grid(scene.GridConfig{
			NumX:      config.Scene.Grid.NumX,
			NumY:      config.Scene.Grid.NumY,
			Spacing:   config.Scene.Grid.Spacing,
			Amplitude: complexFromPair(config.Scene.Grid.Amplitude),
		})
		if err != nil {
			return nil, fmt.Errorf("building grid: %w", err)
		}
		targets = append(targets, grid...)
	}
	for _, target := range config.Scene.Targets {
		targets = append(targets, scene.PointTarget{
			Position:  geom.Vector{target.Position[0], target.Position[1], target.Position[2]},
			Amplitude: complexFromPair(target.Amplitude),
		})
	}

	hyp, err := targets.Hypothesis()
	if err != nil {
		return nil, fmt.Errorf("building scene: %w", err)
	}
	return hyp, nil
}

func buildParams(config *Config) sar.OperatorParams {
	params := sar.OperatorParams{
		UpsampleRatio:  config.Operator.UpsampleRatio,
		SignMultiplier: config.Operator.SignMultiplier,
	}

	switch config.Waveform.Spectrum {
	case SpectrumHann:
		params.WaveformFFT = scene.HannSpectrum(config.Waveform.FastTimes)
	default:
		params.WaveformFFT = scene.FlatSpectrum(config.Waveform.FastTimes)
	}

	switch config.Waveform.Weighting {
	case WeightingHann:
		params.SlowTimeWeighting = scene.HannWeighting(config.Aperture.Pulses)
	default:
		params.SlowTimeWeighting = scene.UniformWeighting(config.Aperture.Pulses)
	}
	return params
}

func persist(ctx context.Context, store storage.Store, config *Config, info *sar.CalculationInfo) (sessionID, collectionID, sceneID int64, err error) {
	sessionID, err = store.CreateSession(ctx, config.Storage.SessionLabel, config)
	if err != nil {
		err = fmt.Errorf("creating session: %w", err)
		return
	}

	collectionID, err = store.StoreCollection(ctx, sessionID, &storage.Collection{
		Label:             config.Storage.CollectionLabel,
		NumSlowTimes:      info.NumSlowTimes,
		NumFastTimes:      info.NumFastTimes,
		CentreFrequency:   info.CentreFrequency,
		SampleFrequency:   info.SampleFrequency,
		PropagationSpeed:  info.CEff,
		UpsampleRatio:     info.UpsampleRatio,
		SignMultiplier:    info.SignMultiplier,
		TransmitPos:       info.TransmitPosns,
		ReceivePos:        info.ReceivePosns,
		StabRefPos:        info.StabRefPosns,
		WaveformFFT:       info.WaveformFFT,
		SlowTimeWeighting: info.SlowTimeWeighting,
		PhaseHistory:      info.PhaseHistory,
	})
	if err != nil {
		err = fmt.Errorf("storing collection: %w", err)
		return
	}

	sceneID, err = store.StoreScene(ctx, collectionID, &storage.Scene{
		Label:      "ground truth",
		Positions:  info.ScatPosns,
		Amplitudes: info.ScatteringAmplitudes,
	})
	if err != nil {
		err = fmt.Errorf("storing scene: %w", err)
	}
	return
}

func createStorage(config *StorageConfig) (*storage.SqliteStore, string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get current working directory: %w", err)
	}

	dir := config.DataDirectory
	if dir == "" {
		dir = storageDir
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(wd, dir)
	}

	stat, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("storage directory '%s' does not exist: %w", dir, err)
		}
		return nil, "", fmt.Errorf("checking storage directory: %w", err)
	}
	if !stat.IsDir() {
		return nil, "", fmt.Errorf("invalid storage directory '%s'", dir)
	}

	dbPath := filepath.Join(dir, fmt.Sprintf("sar_session_%s.sqlite", time.Now().UTC().Format("20060102_150405")))
	return storage.NewSqliteStore(dbPath), dbPath, nil
}
