package projects

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	projectrepos "github.com/uplas/uplas-backend/internal/data/repos/projects"
	types "github.com/uplas/uplas-backend/internal/domain"
	"github.com/uplas/uplas-backend/internal/pkg/apperr"
	"github.com/uplas/uplas-backend/internal/pkg/logger"
)

type SubmitInput struct {
	BriefID     uuid.UUID
	SubmitterID uuid.UUID
	Artifacts   []types.SubmissionArtifact
	Notes       string
}

type SubmissionService interface {
	// Submit records a new versioned delivery of artifacts against a brief.
	// Each call produces a fresh submission whose version is one past the
	// submitter's highest prior version for that brief.
	Submit(ctx context.Context, input SubmitInput) (*types.ProjectSubmission, error)
}

type submissionService struct {
	log         *logger.Logger
	briefs      projectrepos.BriefRepo
	submissions projectrepos.SubmissionRepo
}

func NewSubmissionService(baseLog *logger.Logger, briefs projectrepos.BriefRepo, submissions projectrepos.SubmissionRepo) SubmissionService {
	return &submissionService{
		log:         baseLog.With("service", "SubmissionService"),
		briefs:      briefs,
		submissions: submissions,
	}
}

func (s *submissionService) Submit(ctx context.Context, input SubmitInput) (*types.ProjectSubmission, error) {
	if input.BriefID == uuid.Nil {
		return nil, fmt.Errorf("%w: brief_id required", apperr.ErrInvalidArgument)
	}
	if input.SubmitterID == uuid.Nil {
		return nil, fmt.Errorf("%w: submitter required", apperr.ErrInvalidArgument)
	}
	if len(input.Artifacts) == 0 {
		return nil, fmt.Errorf("%w: at least one artifact required", apperr.ErrInvalidArgument)
	}
	for i, artifact := range input.Artifacts {
		if !types.ValidArtifactKind(artifact.Kind) {
			return nil, fmt.Errorf("%w: artifact %d has unknown kind %q", apperr.ErrInvalidArgument, i+1, artifact.Kind)
		}
		if artifact.Payload == "" {
			return nil, fmt.Errorf("%w: artifact %d has an empty payload", apperr.ErrInvalidArgument, i+1)
		}
	}

	brief, err := s.briefs.GetByID(ctx, nil, input.BriefID)
	if err != nil {
		return nil, err
	}
	if brief == nil {
		return nil, fmt.Errorf("%w: brief %s", apperr.ErrNotFound, input.BriefID)
	}

	raw, err := json.Marshal(input.Artifacts)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding artifacts: %v", apperr.ErrStorage, err)
	}
	stored, err := s.submissions.CreateVersioned(ctx, nil, &types.ProjectSubmission{
		ID:          uuid.New(),
		BriefID:     input.BriefID,
		SubmitterID: input.SubmitterID,
		Artifacts:   datatypes.JSON(raw),
		Notes:       input.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating submission: %v", apperr.ErrStorage, err)
	}

	s.log.Info("submission recorded",
		"submission_id", stored.ID.String(),
		"brief_id", input.BriefID.String(),
		"version", stored.SubmissionVersion,
	)
	return stored, nil
}
