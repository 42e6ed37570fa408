package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL history repository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `id, start_lon, start_lat, end_lon, end_lat, modes, failed_modes,
		best_mode, best_eco_score, options_analyzed, environmental_status, created_at`

// Save stores a record.
func (r *PostgresRepository) Save(ctx context.Context, rec Record) error {
	modes, err := json.Marshal(nonNil(rec.Modes))
	if err != nil {
		return fmt.Errorf("marshal modes: %w", err)
	}
	failed, err := json.Marshal(nonNil(rec.FailedModes))
	if err != nil {
		return fmt.Errorf("marshal failed modes: %w", err)
	}

	query := `
		INSERT INTO plan_history (id, start_lon, start_lat, end_lon, end_lat, modes, failed_modes,
			best_mode, best_eco_score, options_analyzed, environmental_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`

	_, err = r.db.ExecContext(ctx, query,
		rec.ID,
		rec.StartLon,
		rec.StartLat,
		rec.EndLon,
		rec.EndLat,
		modes,
		failed,
		rec.BestMode,
		rec.BestEcoScore,
		rec.OptionsAnalyzed,
		rec.EnvironmentalStatus,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert plan record: %w", err)
	}
	return nil
}

// Get retrieves a record by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Record, error) {
	query := `SELECT ` + selectColumns + ` FROM plan_history WHERE id = $1`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return rec, nil
}

// List returns the most recent records, newest first.
func (r *PostgresRepository) List(ctx context.Context, limit int) ([]Record, error) {
	query := `SELECT ` + selectColumns + ` FROM plan_history ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query plan history: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var modes, failed []byte

	err := row.Scan(
		&rec.ID,
		&rec.StartLon,
		&rec.StartLat,
		&rec.EndLon,
		&rec.EndLat,
		&modes,
		&failed,
		&rec.BestMode,
		&rec.BestEcoScore,
		&rec.OptionsAnalyzed,
		&rec.EnvironmentalStatus,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(modes, &rec.Modes); err != nil {
		return nil, fmt.Errorf("decode modes: %w", err)
	}
	if err := json.Unmarshal(failed, &rec.FailedModes); err != nil {
		return nil, fmt.Errorf("decode failed modes: %w", err)
	}
	return &rec, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
