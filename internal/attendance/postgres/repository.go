// Package postgres provides the PostgreSQL implementation of the
// attendance repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/endrycofr/nginx-load-balancer/internal/attendance"
	"github.com/endrycofr/nginx-load-balancer/internal/domain"
)

// Repository implements attendance.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a record and fills in its generated id and timestamp.
func (r *Repository) Create(ctx context.Context, record *domain.Attendance) error {
	query := `
		INSERT INTO attendance (student_id, name)
		VALUES ($1, $2)
		RETURNING id, recorded_at
	`
	err := r.db.QueryRow(ctx, query, record.StudentID, record.Name).
		Scan(&record.ID, &record.RecordedAt)
	if err != nil {
		return fmt.Errorf("create attendance: %w", err)
	}
	return nil
}

// List returns all records, newest first.
func (r *Repository) List(ctx context.Context) ([]domain.Attendance, error) {
	query := `
		SELECT id, student_id, name, recorded_at
		FROM attendance
		ORDER BY recorded_at DESC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var records []domain.Attendance
	for rows.Next() {
		var rec domain.Attendance
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.Name, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}

// Get retrieves a record by id.
func (r *Repository) Get(ctx context.Context, id int64) (*domain.Attendance, error) {
	query := `
		SELECT id, student_id, name, recorded_at
		FROM attendance
		WHERE id = $1
	`
	var rec domain.Attendance
	err := r.db.QueryRow(ctx, query, id).
		Scan(&rec.ID, &rec.StudentID, &rec.Name, &rec.RecordedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, attendance.ErrNotFound
		}
		return nil, fmt.Errorf("get attendance: %w", err)
	}
	return &rec, nil
}

// Update overwrites a record's student id and name.
func (r *Repository) Update(ctx context.Context, record *domain.Attendance) error {
	query := `
		UPDATE attendance
		SET student_id = $1, name = $2
		WHERE id = $3
	`
	tag, err := r.db.Exec(ctx, query, record.StudentID, record.Name, record.ID)
	if err != nil {
		return fmt.Errorf("update attendance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrNotFound
	}
	return nil
}

// Delete removes a record by id.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM attendance WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrNotFound
	}
	return nil
}
