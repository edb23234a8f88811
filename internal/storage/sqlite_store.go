package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// sceneBatchSize caps the number of targets per batch insert statement,
// keeping the placeholder count well inside SQLite's variable limit.
const sceneBatchSize = 500

// SqliteStore handles database operations
type SqliteStore struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore creates a new database connection and initializes the schema
// using the Sqlite database
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

func (s *SqliteStore) CreateSession(ctx context.Context, label string, config any) (sessionID int64, err error) {
	var configData sql.NullString

	if config != nil {
		switch config.(type) {
		case string:
			configData.Valid = true
			configData.String = config.(string)

		case []byte:
			configData.Valid = true
			configData.String = string(config.([]byte))

		default:
			var p []byte
			if p, err = json.Marshal(config); err != nil {
				err = fmt.Errorf("marshaling config: %w", err)
				return
			}

			configData.Valid = true
			configData.String = string(p)
		}
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, label, configData)
	if err != nil {
		err = fmt.Errorf("inserting session: %w", err)
		return
	}

	sessionID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting session ID: %w", err)
	}
	return
}

func (s *SqliteStore) Session(ctx context.Context, id int64) (session *Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	var sess Session
	var config sql.NullString
	if err = stmt.QueryRowContext(ctx, id).Scan(&sess.ID, &sess.CreatedAt, &sess.Label, &config); err != nil {
		err = fmt.Errorf("scanning session: %w", err)
		return
	}
	if config.Valid {
		sess.Config = &config.String
	}

	return &sess, nil
}

func (s *SqliteStore) Sessions(ctx context.Context) (sessions []*Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL)
	if err != nil {
		err = fmt.Errorf("querying sessions: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var sess Session
		var config sql.NullString
		if err = rows.Scan(&sess.ID, &sess.CreatedAt, &sess.Label, &config); err != nil {
			err = fmt.Errorf("scanning session: %w", err)
			return
		}
		if config.Valid {
			sess.Config = &config.String
		}
		sessions = append(sessions, &sess)
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("iterating sessions: %w", err)
	}
	return
}

func (s *SqliteStore) StoreCollection(ctx context.Context, sessionID int64, c *Collection) (collectionID int64, err error) {
	if err = c.Validate(); err != nil {
		return
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertCollectionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(
		ctx,
		sessionID,
		c.Label,
		c.NumSlowTimes,
		c.NumFastTimes,
		c.CentreFrequency,
		c.SampleFrequency,
		c.PropagationSpeed,
		c.UpsampleRatio,
		c.SignMultiplier,
		encodeFloats(c.TransmitPos),
		encodeFloats(c.ReceivePos),
		encodeFloats(c.StabRefPos),
		encodeFloats(c.WaveformFFT),
		encodeFloats(c.SlowTimeWeighting),
		encodeFloats(c.PhaseHistory),
	)
	if err != nil {
		err = fmt.Errorf("inserting collection: %w", err)
		return
	}

	collectionID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting collection ID: %w", err)
	}
	return
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCollection(row scanner) (*Collection, error) {
	var c Collection
	var transmit, receive, stabRef, waveform, weighting, phase []byte
	if err := row.Scan(
		&c.ID,
		&c.SessionID,
		&c.Label,
		&c.NumSlowTimes,
		&c.NumFastTimes,
		&c.CentreFrequency,
		&c.SampleFrequency,
		&c.PropagationSpeed,
		&c.UpsampleRatio,
		&c.SignMultiplier,
		&transmit,
		&receive,
		&stabRef,
		&waveform,
		&weighting,
		&phase,
	); err != nil {
		return nil, fmt.Errorf("scanning collection: %w", err)
	}

	blobs := []struct {
		name string
		raw  []byte
		dst  *[]float64
	}{
		{"transmit positions", transmit, &c.TransmitPos},
		{"receive positions", receive, &c.ReceivePos},
		{"stabilization reference positions", stabRef, &c.StabRefPos},
		{"waveform spectrum", waveform, &c.WaveformFFT},
		{"slow-time weighting", weighting, &c.SlowTimeWeighting},
		{"phase history", phase, &c.PhaseHistory},
	}
	for _, b := range blobs {
		v, err := decodeFloats(b.raw)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", b.name, err)
		}
		*b.dst = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("stored collection %d: %w", c.ID, err)
	}
	return &c, nil
}

func (s *SqliteStore) Collection(ctx context.Context, id int64) (collection *Collection, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectCollectionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	return scanCollection(stmt.QueryRowContext(ctx, id))
}

func (s *SqliteStore) Collections(ctx context.Context, sessionID int64) (collections []*Collection, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectCollectionsSQL, sessionID)
	if err != nil {
		err = fmt.Errorf("querying collections: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var c *Collection
		if c, err = scanCollection(rows); err != nil {
			return
		}
		collections = append(collections, c)
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("iterating collections: %w", err)
	}
	return
}

func (s *SqliteStore) StoreScene(ctx context.Context, collectionID int64, sc *Scene) (sceneID int64, err error) {
	if err = sc.Validate(); err != nil {
		return
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		err = fmt.Errorf("beginning transaction: %w", err)
		return
	}
	defer rollbackWithError(tx, &err)

	result, err := tx.ExecContext(ctx, insertSceneSQL, collectionID, sc.Label)
	if err != nil {
		err = fmt.Errorf("inserting scene: %w", err)
		return
	}
	if sceneID, err = result.LastInsertId(); err != nil {
		err = fmt.Errorf("getting scene ID: %w", err)
		return
	}

	n := sc.NumScatterers()
	for start := 0; start < n; start += sceneBatchSize {
		end := start + sceneBatchSize
		if end > n {
			end = n
		}

		values := make([]interface{}, 0, (end-start)*6)
		valuesPlaceholder := "(?, ?, ?, ?, ?, ?)"

		var sb strings.Builder
		sb.WriteString(insertSceneTargetSQL)

		for j := start; j < end; j++ {
			values = append(values,
				sceneID,
				sc.Positions[3*j],
				sc.Positions[3*j+1],
				sc.Positions[3*j+2],
				sc.Amplitudes[2*j],
				sc.Amplitudes[2*j+1],
			)

			if j > start {
				sb.WriteString(", ")
			}
			sb.WriteString(valuesPlaceholder)
		}

		if _, err = tx.ExecContext(ctx, sb.String(), values...); err != nil {
			err = fmt.Errorf("batch inserting targets: %w", err)
			return
		}
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("committing transaction: %w", err)
		return
	}

	return sceneID, nil
}

func (s *SqliteStore) Scene(ctx context.Context, collectionID int64) (scene *Scene, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectSceneSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	var sc Scene
	if err = stmt.QueryRowContext(ctx, collectionID).Scan(&sc.ID, &sc.CollectionID, &sc.Label); err != nil {
		err = fmt.Errorf("scanning scene: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectSceneTargetsSQL, sc.ID)
	if err != nil {
		err = fmt.Errorf("querying targets: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var x, y, z, re, im float64
		if err = rows.Scan(&x, &y, &z, &re, &im); err != nil {
			err = fmt.Errorf("scanning target: %w", err)
			return
		}
		sc.Positions = append(sc.Positions, x, y, z)
		sc.Amplitudes = append(sc.Amplitudes, re, im)
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("iterating targets: %w", err)
		return
	}
	return &sc, nil
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			_ = runSQLCommand(s.writeDB, initIndexesSQL)

			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		switch {
		case writeErr != nil && readErr != nil:
			s.closeErr = errors.Join(writeErr, readErr)
		case writeErr != nil:
			s.closeErr = writeErr
		case readErr != nil:
			s.closeErr = readErr
		}
	})

	return s.closeErr
}
