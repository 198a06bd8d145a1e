package viz

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteSink records a session into a SQLite file for later replay. All
// messages of a session are written in one transaction committed by Close.
type SQLiteSink struct {
	db      *sql.DB
	tx      *sql.Tx
	insert  *sql.Stmt
	session string
	seq     int64
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS sessions (
	id             TEXT PRIMARY KEY,
	application_id TEXT NOT NULL,
	started_at     DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	session_id  TEXT    NOT NULL REFERENCES sessions(id),
	seq         INTEGER NOT NULL,
	type        TEXT    NOT NULL,
	entity_path TEXT,
	timeline    TEXT,
	time_value  INTEGER,
	payload     TEXT    NOT NULL,
	PRIMARY KEY (session_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_messages_entity_path ON messages(session_id, entity_path);
`

// OpenSQLite creates (or appends to) a recording database and starts a new session.
func OpenSQLite(ctx context.Context, path, applicationID string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "viz: sqlite open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "viz: sqlite exec %s", pragma)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteMigration); err != nil {
		db.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "viz: sqlite migrate")
	}

	s := &SQLiteSink{db: db, session: uuid.New().String()}
	if err := s.begin(ctx, applicationID); err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}

func (s *SQLiteSink) begin(ctx context.Context, applicationID string) error {
	// The session outlives ctx: a cancelled run still commits what it wrote.
	tx, err := s.db.BeginTx(context.WithoutCancel(ctx), nil)
	if err != nil {
		return eris.Wrap(err, "viz: sqlite begin")
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (id, application_id, started_at) VALUES (?, ?, ?)`,
		s.session, applicationID, time.Now().UTC(),
	); err != nil {
		tx.Rollback() //nolint:errcheck
		return eris.Wrap(err, "viz: sqlite insert session")
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO messages (session_id, seq, type, entity_path, timeline, time_value, payload) VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return eris.Wrap(err, "viz: sqlite prepare")
	}
	s.tx = tx
	s.insert = stmt
	return nil
}

// Session returns the recording session id.
func (s *SQLiteSink) Session() string {
	return s.session
}

func (s *SQLiteSink) SetTime(ctx context.Context, timeline Timeline, value int64) error {
	return s.write(ctx, setTimeMessage(s.session, timeline, value))
}

func (s *SQLiteSink) LogPoints(ctx context.Context, path string, points Points3D) error {
	return s.write(ctx, pointsMessage(s.session, path, points))
}

func (s *SQLiteSink) LogLineStrips(ctx context.Context, path string, strips LineStrips3D) error {
	return s.write(ctx, stripsMessage(s.session, path, strips))
}

// Close commits the session and closes the database.
func (s *SQLiteSink) Close() error {
	if s.tx != nil {
		s.insert.Close() //nolint:errcheck
		if err := s.tx.Commit(); err != nil {
			s.db.Close() //nolint:errcheck
			return eris.Wrap(err, "viz: sqlite commit")
		}
		s.tx = nil
	}
	return eris.Wrap(s.db.Close(), "viz: sqlite close")
}

func (s *SQLiteSink) write(ctx context.Context, msg Message) error {
	if s.tx == nil {
		return eris.New("viz: sqlite sink is closed")
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return eris.Wrap(err, "viz: marshal message")
	}

	var (
		timeline  sql.NullString
		timeValue sql.NullInt64
	)
	if msg.Timeline != nil {
		timeline = sql.NullString{String: msg.Timeline.Name, Valid: true}
	}
	if msg.Time != nil {
		timeValue = sql.NullInt64{Int64: *msg.Time, Valid: true}
	}

	if _, err := s.insert.ExecContext(ctx,
		s.session, s.seq, msg.Type, msg.EntityPath, timeline, timeValue, string(payload),
	); err != nil {
		return eris.Wrapf(err, "viz: sqlite insert %s", msg.Type)
	}
	s.seq++
	return nil
}

// ReadSession loads every message of a recorded session in order.
func ReadSession(ctx context.Context, path, session string) ([]Message, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "viz: sqlite open")
	}
	defer db.Close() //nolint:errcheck

	rows, err := db.QueryContext(ctx,
		`SELECT payload FROM messages WHERE session_id = ? ORDER BY seq`, session)
	if err != nil {
		return nil, eris.Wrap(err, "viz: sqlite query messages")
	}
	defer rows.Close() //nolint:errcheck

	var out []Message
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "viz: sqlite scan message")
		}
		var msg Message
		if err := json.Unmarshal([]byte(payload), &msg); err != nil {
			return nil, eris.Wrap(err, "viz: unmarshal message")
		}
		out = append(out, msg)
	}
	return out, eris.Wrap(rows.Err(), "viz: sqlite iterate messages")
}
