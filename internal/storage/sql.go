package storage

import (
	_ "embed"
)

const (
	insertSessionSQL = `
INSERT INTO sessions (
                      created_at,
                      label,
                      config)
VALUES (CURRENT_TIMESTAMP, ?, ?)`

	selectSessionSQL = `
SELECT
    id,
    created_at,
    label,
    config
FROM sessions
WHERE
    id = ?`

	selectSessionsSQL = `
SELECT
    id,
    created_at,
    label,
    config
FROM sessions
ORDER BY created_at, id`

	insertCollectionSQL = `
INSERT INTO collections (session_id,
                         label,
                         num_slow_times,
                         num_fast_times,
                         centre_frequency,
                         sample_frequency,
                         propagation_speed,
                         upsample_ratio,
                         sign_multiplier,
                         transmit_pos,
                         receive_pos,
                         stab_ref_pos,
                         waveform_fft,
                         slow_time_weighting,
                         phase_history)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectCollectionSQL = `
SELECT
    id,
    session_id,
    label,
    num_slow_times,
    num_fast_times,
    centre_frequency,
    sample_frequency,
    propagation_speed,
    upsample_ratio,
    sign_multiplier,
    transmit_pos,
    receive_pos,
    stab_ref_pos,
    waveform_fft,
    slow_time_weighting,
    phase_history
FROM collections
WHERE
    id = ?`

	selectCollectionsSQL = `
SELECT
    id,
    session_id,
    label,
    num_slow_times,
    num_fast_times,
    centre_frequency,
    sample_frequency,
    propagation_speed,
    upsample_ratio,
    sign_multiplier,
    transmit_pos,
    receive_pos,
    stab_ref_pos,
    waveform_fft,
    slow_time_weighting,
    phase_history
FROM collections
WHERE
    session_id = ?
ORDER BY id`

	insertSceneSQL = `
INSERT INTO scenes (collection_id, label)
VALUES (?, ?)`

	selectSceneSQL = `
SELECT
    id,
    collection_id,
    label
FROM scenes
WHERE
    collection_id = ?
ORDER BY id
LIMIT 1`

	insertSceneTargetSQL = `
INSERT INTO scene_targets (scene_id,
                           x,
                           y,
                           z,
                           amp_re,
                           amp_im)
VALUES `

	selectSceneTargetsSQL = `
SELECT
    x,
    y,
    z,
    amp_re,
    amp_im
FROM scene_targets
WHERE
    scene_id = ?
ORDER BY id`

	initIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_collections_session ON collections (session_id);
CREATE INDEX IF NOT EXISTS idx_scenes_collection ON scenes (collection_id);
CREATE INDEX IF NOT EXISTS idx_scene_targets_scene ON scene_targets (scene_id)`
)

//go:embed schema.sql
var initSchemaSQL string
