package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultPostgresTable is used when no table name is configured
const DefaultPostgresTable = "mavtrap_events"

// execer is the part of *pgxpool.Pool the sink needs
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// PostgresSink stores events in a PostgreSQL table, params as JSONB
type PostgresSink struct {
	db     execer
	insert string
}

// NewPostgresSink connects to dsn and creates the table if needed
func NewPostgresSink(ctx context.Context, dsn, table string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}

	s := newPostgresSink(pool, table)
	if _, err := pool.Exec(ctx, createTableSQL(table)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create events table: %w", err)
	}
	return s, nil
}

func newPostgresSink(db execer, table string) *PostgresSink {
	return &PostgresSink{db: db, insert: insertSQL(table)}
}

func tableIdent(table string) string {
	if table == "" {
		table = DefaultPostgresTable
	}
	return pgx.Identifier{table}.Sanitize()
}

func createTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id           BIGSERIAL PRIMARY KEY,
	time         TIMESTAMPTZ NOT NULL,
	type         TEXT NOT NULL,
	mode         TEXT,
	session_id   TEXT,
	peer_ip      TEXT,
	peer_port    INTEGER,
	message_id   BIGINT,
	message_name TEXT,
	msg_group    TEXT,
	command_id   INTEGER,
	command      TEXT,
	params       JSONB,
	payload_len  INTEGER
)`, tableIdent(table))
}

func insertSQL(table string) string {
	return fmt.Sprintf(`INSERT INTO %s
	(time, type, mode, session_id, peer_ip, peer_port, message_id, message_name, msg_group, command_id, command, params, payload_len)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`, tableIdent(table))
}

// Name implements Sink
func (s *PostgresSink) Name() string { return "postgres" }

// Write implements Sink
func (s *PostgresSink) Write(ctx context.Context, ev Event) error {
	rec := ToRecord(ev)

	var params *string
	if len(rec.Params) > 0 {
		data, err := json.Marshal(rec.Params)
		if err != nil {
			return fmt.Errorf("failed to encode params: %w", err)
		}
		str := string(data)
		params = &str
	}

	_, err := s.db.Exec(ctx, s.insert,
		rec.Time, rec.Type, rec.Mode, rec.SessionID, rec.PeerIP, rec.PeerPort,
		int64(rec.MessageID), rec.MessageName, rec.Group, int32(rec.CommandID), rec.Command,
		params, rec.PayloadLen)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// Close implements Closer
func (s *PostgresSink) Close() error {
	s.db.Close()
	return nil
}
