// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package recorder keeps a SQLite flight log of every bridge session.
package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/relabs-tech/hitl_bridge/internal/state"
)

// Sample is one recorded step.
type Sample struct {
	SimTime  float64
	WallTime time.Time
	Source   string
	Sensors  state.SimulatedSensors
	Vehicle  state.VehicleState
}

// Session describes one bridge run.
type Session struct {
	ID        uuid.UUID
	StartedAt time.Time
	Config    *string
}

// Store is the SQLite flight log.
type Store struct {
	path string

	db     *sql.DB
	dbOnce sync.Once
	dbErr  error
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) getDB() (*sql.DB, error) {
	s.dbOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.path, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.dbErr = fmt.Errorf("opening database: %w", err)
			return
		}
		if _, err = db.Exec(schemaSQL); err != nil {
			_ = db.Close()
			s.dbErr = fmt.Errorf("initializing schema: %w", err)
			return
		}
		s.db = db
	})
	return s.db, s.dbErr
}

// CreateSession registers a new run; config is stored as JSON.
func (s *Store) CreateSession(ctx context.Context, config any) (id uuid.UUID, err error) {
	var configData sql.NullString
	if config != nil {
		p, mErr := json.Marshal(config)
		if mErr != nil {
			return uuid.Nil, fmt.Errorf("marshaling config: %w", mErr)
		}
		configData = sql.NullString{String: string(p), Valid: true}
	}

	db, err := s.getDB()
	if err != nil {
		return uuid.Nil, err
	}

	id = uuid.New()
	if _, err = db.ExecContext(ctx, insertSessionSQL, id.String(), time.Now().UTC(), configData); err != nil {
		return uuid.Nil, fmt.Errorf("inserting session: %w", err)
	}
	return id, nil
}

// Sessions lists recorded runs, oldest first.
func (s *Store) Sessions(ctx context.Context) (sessions []Session, err error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var (
			sess   Session
			rawID  string
			config sql.NullString
		)
		if err = rows.Scan(&rawID, &sess.StartedAt, &config); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		if sess.ID, err = uuid.Parse(rawID); err != nil {
			return nil, fmt.Errorf("session id %q: %w", rawID, err)
		}
		if config.Valid {
			sess.Config = &config.String
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// InsertSamples writes a batch in one transaction.
func (s *Store) InsertSamples(ctx context.Context, sessionID uuid.UUID, samples []Sample) (err error) {
	if len(samples) == 0 {
		return nil
	}

	db, err := s.getDB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			rollbackWithError(tx, &err)
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertSampleSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	id := sessionID.String()
	for _, smp := range samples {
		se, v := smp.Sensors, smp.Vehicle
		if _, err = stmt.ExecContext(ctx, id, smp.SimTime, smp.WallTime.UTC(), smp.Source,
			se.Ax, se.Ay, se.Az, se.Gx, se.Gy, se.Gz, se.Mx, se.My, se.Mz,
			se.BaroASL, se.GPSLat, se.GPSLon,
			v.Roll, v.Pitch, v.Yaw, v.Lat, v.Lon, v.Alt,
			v.VNorth, v.VEast, v.VDown,
		); err != nil {
			return fmt.Errorf("inserting sample at %.3fs: %w", smp.SimTime, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing samples: %w", err)
	}
	return nil
}

// Samples returns every sample of a session in sim-time order.
func (s *Store) Samples(ctx context.Context, sessionID uuid.UUID) (samples []Sample, err error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, selectSamplesSQL, sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("querying samples: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var smp Sample
		se, v := &smp.Sensors, &smp.Vehicle
		if err = rows.Scan(&smp.SimTime, &smp.WallTime, &smp.Source,
			&se.Ax, &se.Ay, &se.Az, &se.Gx, &se.Gy, &se.Gz, &se.Mx, &se.My, &se.Mz,
			&se.BaroASL, &se.GPSLat, &se.GPSLon,
			&v.Roll, &v.Pitch, &v.Yaw, &v.Lat, &v.Lon, &v.Alt,
			&v.VNorth, &v.VEast, &v.VDown,
		); err != nil {
			return nil, fmt.Errorf("scanning sample: %w", err)
		}
		se.SimTime, v.SimTime = smp.SimTime, smp.SimTime
		samples = append(samples, smp)
	}
	return samples, rows.Err()
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if rErr := rb.Rollback(); rErr != nil {
		*err = fmt.Errorf("%w (rollback: %v)", *err, rErr)
	}
}
