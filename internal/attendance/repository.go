package attendance

import (
	"context"

	"github.com/endrycofr/nginx-load-balancer/internal/domain"
)

// Repository defines the interface for attendance data operations.
type Repository interface {
	Create(ctx context.Context, record *domain.Attendance) error
	List(ctx context.Context) ([]domain.Attendance, error)
	Get(ctx context.Context, id int64) (*domain.Attendance, error)
	Update(ctx context.Context, record *domain.Attendance) error
	Delete(ctx context.Context, id int64) error
}
