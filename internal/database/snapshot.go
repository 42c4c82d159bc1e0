package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"flight_surety/internal/models"

	"github.com/shopspring/decimal"
)

type SnapshotRepository interface {
	Save(snap *models.Snapshot) error
	// Load returns the last saved snapshot; found is false when none was saved
	Load() (snap *models.Snapshot, found bool, err error)
}

type snapshotRepository struct {
	db *sql.DB
}

func NewSnapshotRepository(db *sql.DB) SnapshotRepository {
	return &snapshotRepository{db: db}
}

// Save replaces the stored state with snap in a single transaction
func (r *snapshotRepository) Save(snap *models.Snapshot) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"state_meta", "authorized_callers", "airlines", "flights", "oracles", "policies"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO state_meta (id, owner, operational, treasury, taken_at) VALUES (1, ?, ?, ?, ?)`,
		string(snap.Owner), snap.Operational, snap.Treasury.String(), formatTime(snap.TakenAt),
	); err != nil {
		return fmt.Errorf("failed to insert state: %w", err)
	}

	for _, a := range snap.Authorized {
		if _, err := tx.Exec(`INSERT INTO authorized_callers (address) VALUES (?)`, string(a)); err != nil {
			return fmt.Errorf("failed to insert authorized caller: %w", err)
		}
	}

	for _, a := range snap.Airlines {
		votes := make([]string, len(a.Votes))
		for i, v := range a.Votes {
			votes[i] = string(v)
		}
		if _, err := tx.Exec(`INSERT INTO airlines (address, name, state, funded, votes) VALUES (?, ?, ?, ?, ?)`,
			string(a.Address), a.Name, string(a.State), a.Funded, strings.Join(votes, ","),
		); err != nil {
			return fmt.Errorf("failed to insert airline: %w", err)
		}
	}

	for _, f := range snap.Flights {
		if _, err := tx.Exec(`INSERT INTO flights (airline, code, timestamp, status, registered_at, updated_at, seq)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			string(f.Key.Airline), f.Key.Code, f.Key.Timestamp, int(f.Status),
			formatTime(f.RegisteredAt), formatTime(f.UpdatedAt), int64(f.Seq),
		); err != nil {
			return fmt.Errorf("failed to insert flight: %w", err)
		}
	}

	for _, o := range snap.Oracles {
		if _, err := tx.Exec(`INSERT INTO oracles (address, idx0, idx1, idx2, registered_at) VALUES (?, ?, ?, ?, ?)`,
			string(o.Address), int(o.Indexes[0]), int(o.Indexes[1]), int(o.Indexes[2]), formatTime(o.RegisteredAt),
		); err != nil {
			return fmt.Errorf("failed to insert oracle: %w", err)
		}
	}

	for _, p := range snap.Policies {
		if _, err := tx.Exec(`INSERT INTO policies (passenger, airline, code, timestamp, paid, credit, credited, bought_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			string(p.Passenger), string(p.Flight.Airline), p.Flight.Code, p.Flight.Timestamp,
			p.Paid.String(), p.Credit.String(), p.Credited, formatTime(p.BoughtAt),
		); err != nil {
			return fmt.Errorf("failed to insert policy: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *snapshotRepository) Load() (*models.Snapshot, bool, error) {
	snap := &models.Snapshot{}

	var owner, treasury, takenAt string
	err := r.db.QueryRow(`SELECT owner, operational, treasury, taken_at FROM state_meta WHERE id = 1`).
		Scan(&owner, &snap.Operational, &treasury, &takenAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load state: %w", err)
	}
	snap.Owner = models.Address(owner)
	if snap.Treasury, err = decimal.NewFromString(treasury); err != nil {
		return nil, false, fmt.Errorf("failed to parse treasury: %w", err)
	}
	if snap.TakenAt, err = parseTime(takenAt); err != nil {
		return nil, false, err
	}

	loaders := []func(*models.Snapshot) error{
		r.loadAuthorized,
		r.loadAirlines,
		r.loadFlights,
		r.loadOracles,
		r.loadPolicies,
	}
	for _, load := range loaders {
		if err := load(snap); err != nil {
			return nil, false, err
		}
	}

	return snap, true, nil
}

func (r *snapshotRepository) loadAuthorized(snap *models.Snapshot) error {
	rows, err := r.db.Query(`SELECT address FROM authorized_callers ORDER BY address`)
	if err != nil {
		return fmt.Errorf("failed to query authorized callers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return fmt.Errorf("failed to scan authorized caller: %w", err)
		}
		snap.Authorized = append(snap.Authorized, models.Address(addr))
	}
	return rows.Err()
}

func (r *snapshotRepository) loadAirlines(snap *models.Snapshot) error {
	rows, err := r.db.Query(`SELECT address, name, state, funded, votes FROM airlines ORDER BY address`)
	if err != nil {
		return fmt.Errorf("failed to query airlines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a models.Airline
		var addr, state, votes string
		if err := rows.Scan(&addr, &a.Name, &state, &a.Funded, &votes); err != nil {
			return fmt.Errorf("failed to scan airline: %w", err)
		}
		a.Address = models.Address(addr)
		a.State = models.AirlineState(state)
		if votes != "" {
			for _, v := range strings.Split(votes, ",") {
				a.Votes = append(a.Votes, models.Address(v))
			}
		}
		snap.Airlines = append(snap.Airlines, a)
	}
	return rows.Err()
}

func (r *snapshotRepository) loadFlights(snap *models.Snapshot) error {
	rows, err := r.db.Query(`SELECT airline, code, timestamp, status, registered_at, updated_at, seq
		FROM flights ORDER BY seq`)
	if err != nil {
		return fmt.Errorf("failed to query flights: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f models.Flight
		var airline, registeredAt, updatedAt string
		var status int
		var seq int64
		if err := rows.Scan(&airline, &f.Key.Code, &f.Key.Timestamp, &status, &registeredAt, &updatedAt, &seq); err != nil {
			return fmt.Errorf("failed to scan flight: %w", err)
		}
		f.Key.Airline = models.Address(airline)
		if f.Status, err = models.ParseFlightStatus(status); err != nil {
			return err
		}
		if f.RegisteredAt, err = parseTime(registeredAt); err != nil {
			return err
		}
		if f.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return err
		}
		f.Seq = uint64(seq)
		snap.Flights = append(snap.Flights, f)
	}
	return rows.Err()
}

func (r *snapshotRepository) loadOracles(snap *models.Snapshot) error {
	rows, err := r.db.Query(`SELECT address, idx0, idx1, idx2, registered_at FROM oracles ORDER BY address`)
	if err != nil {
		return fmt.Errorf("failed to query oracles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var o models.Oracle
		var addr, registeredAt string
		if err := rows.Scan(&addr, &o.Indexes[0], &o.Indexes[1], &o.Indexes[2], &registeredAt); err != nil {
			return fmt.Errorf("failed to scan oracle: %w", err)
		}
		o.Address = models.Address(addr)
		if o.RegisteredAt, err = parseTime(registeredAt); err != nil {
			return err
		}
		snap.Oracles = append(snap.Oracles, o)
	}
	return rows.Err()
}

func (r *snapshotRepository) loadPolicies(snap *models.Snapshot) error {
	rows, err := r.db.Query(`SELECT passenger, airline, code, timestamp, paid, credit, credited, bought_at
		FROM policies ORDER BY passenger, airline, code, timestamp`)
	if err != nil {
		return fmt.Errorf("failed to query policies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Policy
		var passenger, airline, paid, credit, boughtAt string
		if err := rows.Scan(&passenger, &airline, &p.Flight.Code, &p.Flight.Timestamp, &paid, &credit, &p.Credited, &boughtAt); err != nil {
			return fmt.Errorf("failed to scan policy: %w", err)
		}
		p.Passenger = models.Address(passenger)
		p.Flight.Airline = models.Address(airline)
		if p.Paid, err = decimal.NewFromString(paid); err != nil {
			return fmt.Errorf("failed to parse paid amount: %w", err)
		}
		if p.Credit, err = decimal.NewFromString(credit); err != nil {
			return fmt.Errorf("failed to parse credit: %w", err)
		}
		if p.BoughtAt, err = parseTime(boughtAt); err != nil {
			return err
		}
		snap.Policies = append(snap.Policies, p)
	}
	return rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse time %q: %w", s, err)
	}
	return t, nil
}
