package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/web3nova/academy-payments/internal/db/postgres"
	"github.com/web3nova/academy-payments/internal/domain"
	"github.com/web3nova/academy-payments/internal/pricing"
)

// EnrollmentService registers a student on a course and fixes the price basis
// all later stage payments are computed from.
type EnrollmentService struct {
	enrollments EnrollmentStore
}

func NewEnrollmentService(enrollments EnrollmentStore) *EnrollmentService {
	return &EnrollmentService{enrollments: enrollments}
}

type EnrollRequest struct {
	UserID          uuid.UUID
	Skill           string
	ScholarshipTier string
}

// Enroll prices the (skill, tier) pair and persists the enrollment. A user may
// hold at most one enrollment per skill.
func (s *EnrollmentService) Enroll(ctx context.Context, req *EnrollRequest) (*domain.Enrollment, error) {
	base, err := pricing.BasePrice(req.Skill)
	if err != nil {
		return nil, err
	}
	total, err := pricing.TotalAmount(req.Skill, req.ScholarshipTier)
	if err != nil {
		return nil, err
	}

	enrollment := domain.NewEnrollment(req.UserID, req.Skill, req.ScholarshipTier, base, total)
	if err := s.enrollments.Insert(ctx, enrollment); err != nil {
		if postgres.IsDuplicateKeyErr(err) {
			return nil, domain.NewValidationError("skill",
				fmt.Sprintf("user %s is already enrolled in %s", req.UserID, req.Skill))
		}
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"enrollmentId": enrollment.ID,
		"skill":        req.Skill,
		"tier":         req.ScholarshipTier,
		"finalPrice":   total,
	}).Info("enrollment created")

	return enrollment, nil
}
