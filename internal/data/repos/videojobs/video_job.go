package videojobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/uplas/uplas-backend/internal/domain"
	"github.com/uplas/uplas-backend/internal/pkg/logger"
)

type VideoJobRepo interface {
	Create(ctx context.Context, tx *gorm.DB, job *types.VideoJob) (*types.VideoJob, error)
	GetByID(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) (*types.VideoJob, error)
	GetRecentBySubmitter(ctx context.Context, tx *gorm.DB, submitterID uuid.UUID, limit int) ([]*types.VideoJob, error)
	CountInFlightBySubmitter(ctx context.Context, tx *gorm.DB, submitterID uuid.UUID) (int64, error)
	// ClaimNextRunnable picks one pending (or stale-running) job and marks it
	// running under FOR UPDATE SKIP LOCKED, so one worker owns a job at a time.
	ClaimNextRunnable(ctx context.Context, tx *gorm.DB, staleRunning time.Duration) (*types.VideoJob, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, jobID uuid.UUID, updates map[string]interface{}) error
	Heartbeat(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) error
	// MarkOrphansFailed fails every non-terminal job older than the cutoff.
	// Run at boot so jobs lost to a process restart terminate deterministically.
	MarkOrphansFailed(ctx context.Context, tx *gorm.DB, olderThan time.Duration) (int64, error)
}

type videoJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVideoJobRepo(db *gorm.DB, baseLog *logger.Logger) VideoJobRepo {
	return &videoJobRepo{db: db, log: baseLog.With("repo", "VideoJobRepo")}
}

func (r *videoJobRepo) Create(ctx context.Context, tx *gorm.DB, job *types.VideoJob) (*types.VideoJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if job == nil {
		return nil, nil
	}
	if job.Status == "" {
		job.Status = types.VideoJobStatusPending
	}
	if err := transaction.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (r *videoJobRepo) GetByID(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) (*types.VideoJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if jobID == uuid.Nil {
		return nil, nil
	}
	var job types.VideoJob
	err := transaction.WithContext(ctx).
		Where("id = ?", jobID).
		Limit(1).
		Find(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

func (r *videoJobRepo) GetRecentBySubmitter(ctx context.Context, tx *gorm.DB, submitterID uuid.UUID, limit int) ([]*types.VideoJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.VideoJob
	if submitterID == uuid.Nil {
		return results, nil
	}
	if limit <= 0 {
		limit = 20
	}
	if err := transaction.WithContext(ctx).
		Where("submitter_id = ?", submitterID).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *videoJobRepo) CountInFlightBySubmitter(ctx context.Context, tx *gorm.DB, submitterID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	err := transaction.WithContext(ctx).
		Model(&types.VideoJob{}).
		Where("submitter_id = ? AND status NOT IN ?", submitterID,
			[]string{types.VideoJobStatusCompleted, types.VideoJobStatusFailed}).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *videoJobRepo) ClaimNextRunnable(ctx context.Context, tx *gorm.DB, staleRunning time.Duration) (*types.VideoJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	staleCutoff := now.Add(-staleRunning)
	var claimed *types.VideoJob
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var job types.VideoJob
		q := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(`
        (
          status = ?
          OR (
            status NOT IN ?
            AND heartbeat_at IS NOT NULL
            AND heartbeat_at < ?
          )
        )
      `, types.VideoJobStatusPending,
				[]string{types.VideoJobStatusPending, types.VideoJobStatusCompleted, types.VideoJobStatusFailed},
				staleCutoff).
			Order("created_at ASC")
		qErr := q.First(&job).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uErr := txx.Model(&types.VideoJob{}).
			Where("id = ?", job.ID).
			Updates(map[string]interface{}{
				"attempts":     gorm.Expr("attempts + 1"),
				"locked_at":    now,
				"heartbeat_at": now,
				"updated_at":   now,
			}).Error
		if uErr != nil {
			return uErr
		}
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *videoJobRepo) UpdateFields(ctx context.Context, tx *gorm.DB, jobID uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if jobID == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["updated_at"] = time.Now()
	return transaction.WithContext(ctx).
		Model(&types.VideoJob{}).
		Where("id = ?", jobID).
		Updates(updates).Error
}

func (r *videoJobRepo) Heartbeat(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if jobID == uuid.Nil {
		return nil
	}
	now := time.Now()
	return transaction.WithContext(ctx).
		Model(&types.VideoJob{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error
}

func (r *videoJobRepo) MarkOrphansFailed(ctx context.Context, tx *gorm.DB, olderThan time.Duration) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	cutoff := time.Now().Add(-olderThan)
	res := transaction.WithContext(ctx).
		Model(&types.VideoJob{}).
		Where("status NOT IN ? AND created_at < ?",
			[]string{types.VideoJobStatusCompleted, types.VideoJobStatusFailed}, cutoff).
		Updates(map[string]interface{}{
			"status":        types.VideoJobStatusFailed,
			"error_message": "orphaned",
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
