package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/web3nova/academy-payments/internal/domain"
)

type EnrollmentRepo struct {
	repo      *sqlx.DB
	tableName string
}

func NewEnrollmentRepo(db *sqlx.DB) *EnrollmentRepo {
	return &EnrollmentRepo{
		repo:      db,
		tableName: "enrollments",
	}
}

func (r *EnrollmentRepo) Insert(ctx context.Context, e *domain.Enrollment) error {
	q := fmt.Sprintf(`INSERT INTO %s (id, user_id, skill, scholarship_tier, base_price, final_price, created_at)
		VALUES (:id, :user_id, :skill, :scholarship_tier, :base_price, :final_price, :created_at)`, r.tableName)
	_, err := r.repo.NamedExecContext(ctx, q, e)
	return err
}

// GetByID returns nil when no enrollment exists; the caller decides whether
// that is a not-found error.
func (r *EnrollmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Enrollment, error) {
	e := &domain.Enrollment{}
	q := fmt.Sprintf("SELECT * FROM %s WHERE id = $1", r.tableName)
	err := r.repo.GetContext(ctx, e, q, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}
