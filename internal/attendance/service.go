// Package attendance provides HTTP handlers and business logic for
// attendance records.
package attendance

import (
	"context"

	"github.com/endrycofr/nginx-load-balancer/internal/domain"
	"github.com/endrycofr/nginx-load-balancer/internal/pkg/metrics"
)

const tableName = "attendance"

// Service implements attendance operations over a Repository, timing every
// store call.
type Service struct {
	repo  Repository
	timer *metrics.OperationTimer
}

// NewService creates a new attendance service.
func NewService(repo Repository, timer *metrics.OperationTimer) *Service {
	return &Service{repo: repo, timer: timer}
}

// Create inserts a new attendance record.
func (s *Service) Create(ctx context.Context, record *domain.Attendance) error {
	return s.timer.Time(ctx, "create", tableName, func(ctx context.Context) error {
		return s.repo.Create(ctx, record)
	})
}

// List returns all attendance records, newest first.
func (s *Service) List(ctx context.Context) ([]domain.Attendance, error) {
	var records []domain.Attendance
	err := s.timer.Time(ctx, "list", tableName, func(ctx context.Context) error {
		var inner error
		records, inner = s.repo.List(ctx)
		return inner
	})
	return records, err
}

// Update applies a partial update to the record with the given id. Nil
// fields keep their stored value. The read-modify-write is timed as one
// update operation.
func (s *Service) Update(ctx context.Context, id int64, studentID, name *string) (*domain.Attendance, error) {
	var record *domain.Attendance
	err := s.timer.Time(ctx, "update", tableName, func(ctx context.Context) error {
		existing, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if studentID != nil {
			existing.StudentID = *studentID
		}
		if name != nil {
			existing.Name = *name
		}
		if err := s.repo.Update(ctx, existing); err != nil {
			return err
		}
		record = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Delete removes the record with the given id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.timer.Time(ctx, "delete", tableName, func(ctx context.Context) error {
		return s.repo.Delete(ctx, id)
	})
}
