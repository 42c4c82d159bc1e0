package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"flight_surety/internal/models"

	"github.com/google/uuid"
)

type EventRepository interface {
	InsertBatch(events []models.Event) error
	Recent(limit int) ([]models.Event, error)
}

type eventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) EventRepository {
	return &eventRepository{db: db}
}

// InsertBatch appends events to the journal in a single transaction.
// Events already journaled are ignored.
func (r *eventRepository) InsertBatch(events []models.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO events (
		id, type, timestamp, actor, subject, flight_airline, flight_code,
		flight_timestamp, indexes, status, amount, detail
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, evt := range events {
		var airline, code sql.NullString
		var ts sql.NullInt64
		if evt.Flight != nil {
			airline = sql.NullString{String: string(evt.Flight.Airline), Valid: true}
			code = sql.NullString{String: evt.Flight.Code, Valid: true}
			ts = sql.NullInt64{Int64: evt.Flight.Timestamp, Valid: true}
		}
		if _, err := stmt.Exec(
			evt.ID.String(),
			string(evt.Type),
			evt.Timestamp.UTC().Format(time.RFC3339Nano),
			string(evt.Actor),
			string(evt.Subject),
			airline, code, ts,
			joinIndexes(evt.Indexes),
			int(evt.Status),
			evt.Amount,
			evt.Detail,
		); err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Recent returns up to limit events, newest first
func (r *eventRepository) Recent(limit int) ([]models.Event, error) {
	rows, err := r.db.Query(`SELECT id, type, timestamp, actor, subject, flight_airline,
		flight_code, flight_timestamp, indexes, status, amount, detail
		FROM events
		ORDER BY timestamp DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []models.Event
	for rows.Next() {
		var (
			evt                   models.Event
			id, typ, ts           string
			actor, subject        string
			airline, code         sql.NullString
			flightTS              sql.NullInt64
			indexes, amount, note string
			status                int
		)
		if err := rows.Scan(&id, &typ, &ts, &actor, &subject, &airline, &code, &flightTS,
			&indexes, &status, &amount, &note); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		if evt.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("failed to parse event id: %w", err)
		}
		if evt.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("failed to parse timestamp: %w", err)
		}
		if evt.Indexes, err = splitIndexes(indexes); err != nil {
			return nil, err
		}
		evt.Type = models.EventType(typ)
		evt.Actor = models.Address(actor)
		evt.Subject = models.Address(subject)
		evt.Status = models.FlightStatus(status)
		evt.Amount = amount
		evt.Detail = note
		if airline.Valid {
			evt.Flight = &models.FlightKey{
				Airline:   models.Address(airline.String),
				Code:      code.String,
				Timestamp: flightTS.Int64,
			}
		}
		out = append(out, evt)
	}

	return out, rows.Err()
}

func joinIndexes(idx []uint8) string {
	parts := make([]string, len(idx))
	for i, v := range idx {
		parts[i] = strconv.Itoa(int(v))
	}
	return strings.Join(parts, ",")
}

func splitIndexes(s string) ([]uint8, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]uint8, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("failed to parse index %q: %w", p, err)
		}
		out = append(out, uint8(v))
	}
	return out, nil
}
