package projects

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/uplas/uplas-backend/internal/domain"
	"github.com/uplas/uplas-backend/internal/pkg/logger"
)

type SubmissionRepo interface {
	// CreateVersioned assigns submission_version = max prior version + 1 for
	// (brief, submitter) inside one transaction and inserts the row.
	CreateVersioned(ctx context.Context, tx *gorm.DB, submission *types.ProjectSubmission) (*types.ProjectSubmission, error)
	GetByID(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID) (*types.ProjectSubmission, error)
	// GetByIDForUpdate takes a row lock on the submission; concurrent
	// assessments of the same submission serialize behind it.
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID) (*types.ProjectSubmission, error)
	GetByBriefAndSubmitter(ctx context.Context, tx *gorm.DB, briefID, submitterID uuid.UUID) ([]*types.ProjectSubmission, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID, status string) error
}

type submissionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubmissionRepo(db *gorm.DB, baseLog *logger.Logger) SubmissionRepo {
	return &submissionRepo{db: db, log: baseLog.With("repo", "SubmissionRepo")}
}

func (r *submissionRepo) CreateVersioned(ctx context.Context, tx *gorm.DB, submission *types.ProjectSubmission) (*types.ProjectSubmission, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		// Lock existing rows for this (brief, submitter) so the computed
		// version stays monotonic under concurrent submits. The unique index
		// on (brief_id, submitter_id, submission_version) is the backstop.
		var prior []types.ProjectSubmission
		if err := txx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("brief_id = ? AND submitter_id = ?", submission.BriefID, submission.SubmitterID).
			Find(&prior).Error; err != nil {
			return err
		}
		maxVersion := 0
		for _, p := range prior {
			if p.SubmissionVersion > maxVersion {
				maxVersion = p.SubmissionVersion
			}
		}
		submission.SubmissionVersion = maxVersion + 1
		if submission.Status == "" {
			submission.Status = types.SubmissionStatusSubmitted
		}
		if submission.SubmittedAt.IsZero() {
			submission.SubmittedAt = time.Now()
		}
		return txx.Create(submission).Error
	})
	if err != nil {
		return nil, err
	}
	return submission, nil
}

func (r *submissionRepo) GetByID(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID) (*types.ProjectSubmission, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if submissionID == uuid.Nil {
		return nil, nil
	}
	var sub types.ProjectSubmission
	err := transaction.WithContext(ctx).
		Where("id = ?", submissionID).
		Limit(1).
		Find(&sub).Error
	if err != nil {
		return nil, err
	}
	if sub.ID == uuid.Nil {
		return nil, nil
	}
	return &sub, nil
}

func (r *submissionRepo) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID) (*types.ProjectSubmission, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if submissionID == uuid.Nil {
		return nil, nil
	}
	var sub types.ProjectSubmission
	err := transaction.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", submissionID).
		Limit(1).
		Find(&sub).Error
	if err != nil {
		return nil, err
	}
	if sub.ID == uuid.Nil {
		return nil, nil
	}
	return &sub, nil
}

func (r *submissionRepo) GetByBriefAndSubmitter(ctx context.Context, tx *gorm.DB, briefID, submitterID uuid.UUID) ([]*types.ProjectSubmission, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ProjectSubmission
	if briefID == uuid.Nil || submitterID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("brief_id = ? AND submitter_id = ?", briefID, submitterID).
		Order("submission_version ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *submissionRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, submissionID uuid.UUID, status string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if submissionID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.ProjectSubmission{}).
		Where("id = ?", submissionID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
}
