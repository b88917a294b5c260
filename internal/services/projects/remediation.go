package projects

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/uplas/uplas-backend/internal/clients/tutorapi"
	types "github.com/uplas/uplas-backend/internal/domain"
	"github.com/uplas/uplas-backend/internal/pkg/logger"
)

// remediationDeadline caps how long a failed assessment may wait on the tutor
// hand-off before the response goes out without it.
const remediationDeadline = 10 * time.Second

// RemediationTrigger opens a tutor session for a learner whose submission did
// not pass. It never returns an error; a failed hand-off is logged and
// reported as false.
type RemediationTrigger interface {
	TriggerFromAssessment(ctx context.Context, userID uuid.UUID, profile types.UserProfileSnapshot, brief *types.ProjectBrief, assessment *types.ProjectAssessment) bool
}

type remediationTrigger struct {
	log   *logger.Logger
	tutor tutorapi.Client
}

func NewRemediationTrigger(baseLog *logger.Logger, tutor tutorapi.Client) RemediationTrigger {
	return &remediationTrigger{
		log:   baseLog.With("service", "RemediationTrigger"),
		tutor: tutor,
	}
}

func (t *remediationTrigger) TriggerFromAssessment(ctx context.Context, userID uuid.UUID, profile types.UserProfileSnapshot, brief *types.ProjectBrief, assessment *types.ProjectAssessment) bool {
	if t.tutor == nil || brief == nil || assessment == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, remediationDeadline)
	defer cancel()

	criticalAreas := decodeStringList(assessment.CriticalAreasForImprovement)
	if len(criticalAreas) > 3 {
		criticalAreas = criticalAreas[:3]
	}

	var query strings.Builder
	fmt.Fprintf(&query, "I did not pass my project %q and I want to understand why.\n", brief.Title)
	if assessment.FeedbackSummaryHTML != "" {
		fmt.Fprintf(&query, "The feedback I received was: %s\n", assessment.FeedbackSummaryHTML)
	}
	if len(criticalAreas) > 0 {
		query.WriteString("The most critical areas to work on were:\n")
		for i, area := range criticalAreas {
			fmt.Fprintf(&query, "%d. %s\n", i+1, area)
		}
	}
	query.WriteString("Please walk me through what went wrong and how I can improve before my next attempt.")

	feedbackForContext := assessment.FeedbackSummaryHTML
	if len(criticalAreas) > 0 {
		feedbackForContext += "\nCritical areas: " + strings.Join(criticalAreas, "; ")
	}

	_, err := t.tutor.Ask(ctx, tutorapi.AskRequest{
		UserID:      userID,
		Query:       query.String(),
		UserProfile: &profile,
		Context: &types.TutorContext{
			CurrentProjectTitle:       brief.Title,
			ProjectAssessmentFeedback: feedbackForContext,
		},
		LanguageCode: assessment.LanguageCode,
	})
	if err != nil {
		t.log.Warn("tutor remediation hand-off failed",
			"user_id", userID.String(),
			"assessment_id", assessment.ID.String(),
			"error", err.Error(),
		)
		return false
	}

	t.log.Info("tutor remediation session opened",
		"user_id", userID.String(),
		"assessment_id", assessment.ID.String(),
	)
	return true
}

func decodeStringList(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
