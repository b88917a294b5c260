package projects

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/uplas/uplas-backend/internal/domain"
	"github.com/uplas/uplas-backend/internal/pkg/logger"
)

type AssessmentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, assessment *types.ProjectAssessment) (*types.ProjectAssessment, error)
	GetBySubmissionID(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID) (*types.ProjectAssessment, error)
	// DeleteBySubmissionID hard-deletes the prior assessment; used only by
	// the force re-assess path inside the replacing transaction.
	DeleteBySubmissionID(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID) error
	UpdateFields(ctx context.Context, tx *gorm.DB, assessmentID uuid.UUID, updates map[string]interface{}) error
}

type assessmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssessmentRepo(db *gorm.DB, baseLog *logger.Logger) AssessmentRepo {
	return &assessmentRepo{db: db, log: baseLog.With("repo", "AssessmentRepo")}
}

func (r *assessmentRepo) Create(ctx context.Context, tx *gorm.DB, assessment *types.ProjectAssessment) (*types.ProjectAssessment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if assessment == nil {
		return nil, nil
	}
	if assessment.AssessedAt.IsZero() {
		assessment.AssessedAt = time.Now()
	}
	if err := transaction.WithContext(ctx).Create(assessment).Error; err != nil {
		return nil, err
	}
	return assessment, nil
}

func (r *assessmentRepo) GetBySubmissionID(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID) (*types.ProjectAssessment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if submissionID == uuid.Nil {
		return nil, nil
	}
	var assessment types.ProjectAssessment
	err := transaction.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Limit(1).
		Find(&assessment).Error
	if err != nil {
		return nil, err
	}
	if assessment.ID == uuid.Nil {
		return nil, nil
	}
	return &assessment, nil
}

func (r *assessmentRepo) DeleteBySubmissionID(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if submissionID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Unscoped().
		Where("submission_id = ?", submissionID).
		Delete(&types.ProjectAssessment{}).Error
}

func (r *assessmentRepo) UpdateFields(ctx context.Context, tx *gorm.DB, assessmentID uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if assessmentID == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["updated_at"] = time.Now()
	return transaction.WithContext(ctx).
		Model(&types.ProjectAssessment{}).
		Where("id = ?", assessmentID).
		Updates(updates).Error
}
