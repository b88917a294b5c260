package projects

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/uplas/uplas-backend/internal/clients/tutorapi"
	types "github.com/uplas/uplas-backend/internal/domain"
)

type fakeTutorClient struct {
	lastReq *tutorapi.AskRequest
	err     error
}

func (f *fakeTutorClient) Ask(_ context.Context, req tutorapi.AskRequest) (*types.TutorResponse, error) {
	f.lastReq = &req
	if f.err != nil {
		return nil, f.err
	}
	return &types.TutorResponse{MainAnswerText: "Let's go through it together."}, nil
}

func remediationFixtures() (*types.ProjectBrief, *types.ProjectAssessment) {
	brief := &types.ProjectBrief{ID: uuid.New(), Title: "Payment Reconciliation Service"}
	assessment := &types.ProjectAssessment{
		ID:                  uuid.New(),
		SubmissionID:        uuid.New(),
		FeedbackSummaryHTML: "<p>The matching logic misses partial refunds.</p>",
		CriticalAreasForImprovement: datatypes.JSON([]byte(
			`["<p>Handle partial refunds.</p>","<p>Add idempotency.</p>","<p>Test currency rounding.</p>","<p>Document the API.</p>"]`,
		)),
		LanguageCode: "en-US",
	}
	return brief, assessment
}

func TestRemediationQueryComposition(t *testing.T) {
	tutor := &fakeTutorClient{}
	trigger := NewRemediationTrigger(testLogger(t), tutor)
	brief, assessment := remediationFixtures()
	userID := uuid.New()

	ok := trigger.TriggerFromAssessment(context.Background(), userID, types.UserProfileSnapshot{Industry: "fintech"}, brief, assessment)
	if !ok {
		t.Fatalf("expected trigger to report success")
	}
	req := tutor.lastReq
	if req == nil {
		t.Fatalf("tutor was never called")
	}
	if req.UserID != userID {
		t.Errorf("wrong user id")
	}
	if !strings.Contains(req.Query, brief.Title) {
		t.Errorf("query missing project title:\n%s", req.Query)
	}
	if !strings.Contains(req.Query, "Handle partial refunds") {
		t.Errorf("query missing critical areas:\n%s", req.Query)
	}
	if strings.Contains(req.Query, "Document the API") {
		t.Errorf("query should carry at most three critical areas:\n%s", req.Query)
	}
	if req.Context == nil || req.Context.CurrentProjectTitle != brief.Title {
		t.Errorf("context missing project title: %+v", req.Context)
	}
	if req.Context.ProjectAssessmentFeedback == "" {
		t.Errorf("context missing assessment feedback")
	}
	if req.LanguageCode != "en-US" {
		t.Errorf("language not carried: %q", req.LanguageCode)
	}
}

func TestRemediationSwallowsTutorFailure(t *testing.T) {
	tutor := &fakeTutorClient{err: errors.New("tutor down")}
	trigger := NewRemediationTrigger(testLogger(t), tutor)
	brief, assessment := remediationFixtures()

	ok := trigger.TriggerFromAssessment(context.Background(), uuid.New(), types.UserProfileSnapshot{Industry: "fintech"}, brief, assessment)
	if ok {
		t.Fatalf("a failed hand-off must report false, not error")
	}
}
