package recorder

const (
	schemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    id         TEXT PRIMARY KEY,
    started_at TIMESTAMP NOT NULL,
    config     TEXT
);

CREATE TABLE IF NOT EXISTS samples (
    session_id TEXT    NOT NULL REFERENCES sessions (id),
    sim_time   REAL    NOT NULL,
    wall_time  TIMESTAMP NOT NULL,
    source     TEXT    NOT NULL,
    ax REAL, ay REAL, az REAL,
    gx REAL, gy REAL, gz REAL,
    mx REAL, my REAL, mz REAL,
    baro_asl   REAL,
    gps_lat    INTEGER,
    gps_lon    INTEGER,
    roll REAL, pitch REAL, yaw REAL,
    lat REAL, lon REAL, alt REAL,
    v_north REAL, v_east REAL, v_down REAL
);

CREATE INDEX IF NOT EXISTS samples_session_time ON samples (session_id, sim_time);`

	insertSessionSQL = `
INSERT INTO sessions (id, started_at, config)
VALUES (?, ?, ?)`

	selectSessionsSQL = `
SELECT id, started_at, config
FROM sessions
ORDER BY started_at`

	insertSampleSQL = `
INSERT INTO samples (session_id, sim_time, wall_time, source,
                     ax, ay, az, gx, gy, gz, mx, my, mz,
                     baro_asl, gps_lat, gps_lon,
                     roll, pitch, yaw, lat, lon, alt,
                     v_north, v_east, v_down)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectSamplesSQL = `
SELECT sim_time, wall_time, source,
       ax, ay, az, gx, gy, gz, mx, my, mz,
       baro_asl, gps_lat, gps_lon,
       roll, pitch, yaw, lat, lon, alt,
       v_north, v_east, v_down
FROM samples
WHERE session_id = ?
ORDER BY sim_time`
)
