package projects

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/uplas/uplas-backend/internal/data/repos/testutil"
	types "github.com/uplas/uplas-backend/internal/domain"
)

func TestAssessmentRepoUniquePerSubmission(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewAssessmentRepo(db, testutil.Logger(t))

	brief := testutil.SeedBrief(t, ctx, tx, "assessment brief")
	sub := testutil.SeedSubmission(t, ctx, tx, brief.ID, uuid.New(), 1)

	score := 0.85
	first := &types.ProjectAssessment{
		ID:                     uuid.New(),
		SubmissionID:           sub.ID,
		OverallCompetencyScore: &score,
		IsPassed:               true,
		FeedbackSummaryHTML:    "<p>solid</p>",
		DetailedFeedbackPoints: datatypes.JSON([]byte(`[]`)),
		LanguageCode:           "en-US",
		AssessedBy:             "project_assessment_agent",
	}
	if _, err := repo.Create(ctx, tx, first); err != nil {
		t.Fatalf("Create: %v", err)
	}

	dup := &types.ProjectAssessment{
		ID:           uuid.New(),
		SubmissionID: sub.ID,
		LanguageCode: "en-US",
		AssessedBy:   "project_assessment_agent",
	}
	if _, err := repo.Create(ctx, tx, dup); err == nil {
		t.Fatalf("expected unique violation for second assessment of one submission")
	}
}

func TestAssessmentRepoReplace(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewAssessmentRepo(db, testutil.Logger(t))

	brief := testutil.SeedBrief(t, ctx, tx, "replace brief")
	sub := testutil.SeedSubmission(t, ctx, tx, brief.ID, uuid.New(), 1)

	low := 0.4
	prior := &types.ProjectAssessment{
		ID:                     uuid.New(),
		SubmissionID:           sub.ID,
		OverallCompetencyScore: &low,
		LanguageCode:           "en-US",
		AssessedBy:             "project_assessment_agent",
	}
	if _, err := repo.Create(ctx, tx, prior); err != nil {
		t.Fatalf("Create prior: %v", err)
	}

	if err := repo.DeleteBySubmissionID(ctx, tx, sub.ID); err != nil {
		t.Fatalf("DeleteBySubmissionID: %v", err)
	}

	high := 0.9
	replacement := &types.ProjectAssessment{
		ID:                     uuid.New(),
		SubmissionID:           sub.ID,
		OverallCompetencyScore: &high,
		IsPassed:               true,
		LanguageCode:           "en-US",
		AssessedBy:             "project_assessment_agent",
	}
	if _, err := repo.Create(ctx, tx, replacement); err != nil {
		t.Fatalf("Create replacement: %v", err)
	}

	got, err := repo.GetBySubmissionID(ctx, tx, sub.ID)
	if err != nil {
		t.Fatalf("GetBySubmissionID: %v", err)
	}
	if got == nil || got.ID != replacement.ID || !got.IsPassed {
		t.Fatalf("replacement not visible: %+v", got)
	}

	if err := repo.UpdateFields(ctx, tx, got.ID, map[string]interface{}{"tutor_session_triggered": true}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	again, err := repo.GetBySubmissionID(ctx, tx, sub.ID)
	if err != nil || again == nil || !again.TutorSessionTriggered {
		t.Fatalf("tutor_session_triggered not persisted: %+v err=%v", again, err)
	}
}
