package projects

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/uplas/uplas-backend/internal/domain"
	"github.com/uplas/uplas-backend/internal/pkg/logger"
)

type BriefRepo interface {
	Create(ctx context.Context, tx *gorm.DB, briefs []*types.ProjectBrief) ([]*types.ProjectBrief, error)
	GetByID(ctx context.Context, tx *gorm.DB, briefID uuid.UUID) (*types.ProjectBrief, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, briefIDs []uuid.UUID) ([]*types.ProjectBrief, error)
	SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, briefIDs []uuid.UUID) error
}

type briefRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBriefRepo(db *gorm.DB, baseLog *logger.Logger) BriefRepo {
	return &briefRepo{db: db, log: baseLog.With("repo", "BriefRepo")}
}

func (r *briefRepo) Create(ctx context.Context, tx *gorm.DB, briefs []*types.ProjectBrief) ([]*types.ProjectBrief, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(briefs) == 0 {
		return []*types.ProjectBrief{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&briefs).Error; err != nil {
		return nil, err
	}
	return briefs, nil
}

func (r *briefRepo) GetByID(ctx context.Context, tx *gorm.DB, briefID uuid.UUID) (*types.ProjectBrief, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if briefID == uuid.Nil {
		return nil, nil
	}
	var brief types.ProjectBrief
	err := transaction.WithContext(ctx).
		Where("id = ?", briefID).
		Limit(1).
		Find(&brief).Error
	if err != nil {
		return nil, err
	}
	if brief.ID == uuid.Nil {
		return nil, nil
	}
	return &brief, nil
}

func (r *briefRepo) GetByIDs(ctx context.Context, tx *gorm.DB, briefIDs []uuid.UUID) ([]*types.ProjectBrief, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ProjectBrief
	if len(briefIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", briefIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *briefRepo) SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, briefIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(briefIDs) == 0 {
		return nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", briefIDs).
		Delete(&types.ProjectBrief{}).Error; err != nil {
		return err
	}
	return nil
}
