package projects

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/uplas/uplas-backend/internal/ai/prompts"
	"github.com/uplas/uplas-backend/internal/ai/structout"
	"github.com/uplas/uplas-backend/internal/clients/llm"
	projectrepos "github.com/uplas/uplas-backend/internal/data/repos/projects"
	types "github.com/uplas/uplas-backend/internal/domain"
	"github.com/uplas/uplas-backend/internal/pkg/apperr"
	"github.com/uplas/uplas-backend/internal/pkg/logger"
)

const (
	// DefaultPassThreshold is the competency score at or above which a
	// submission passes.
	DefaultPassThreshold = 0.75

	assessMaxOutputTokens = 3072

	// Apology copy for degraded assessments. The raw model reply follows the
	// prefix so a human reviewer can still read whatever came back.
	parseApologyPrefix  = "Apologies, we could not fully read the automated assessment this time. The reviewer's raw notes are included below so nothing is lost.\n\n"
	schemaApologyPrefix = "Apologies, the automated assessment came back incomplete and could not be scored. The reviewer's raw notes are included below.\n\n"
)

type AssessInput struct {
	SubmissionID uuid.UUID
	Profile      types.UserProfileSnapshot
	LanguageCode string
	// Force replaces an existing assessment instead of returning it.
	Force bool
}

type AssessResult struct {
	Assessment *types.ProjectAssessment
	// Created is false when an existing assessment was returned unchanged.
	Created bool
	Debug   GenerationDebug
}

type AssessorService interface {
	// Assess grades a submission against its brief's rubric. Re-assessing an
	// already assessed submission returns the stored assessment unless Force
	// is set. Concurrent calls for the same submission serialize on the
	// submission row; exactly one writes.
	Assess(ctx context.Context, input AssessInput) (AssessResult, error)
}

type assessorService struct {
	log           *logger.Logger
	db            *gorm.DB
	llm           llm.Client
	briefs        projectrepos.BriefRepo
	submissions   projectrepos.SubmissionRepo
	assessments   projectrepos.AssessmentRepo
	remediation   RemediationTrigger
	passThreshold float64
}

func NewAssessorService(
	db *gorm.DB,
	baseLog *logger.Logger,
	llmClient llm.Client,
	briefs projectrepos.BriefRepo,
	submissions projectrepos.SubmissionRepo,
	assessments projectrepos.AssessmentRepo,
	remediation RemediationTrigger,
	passThreshold float64,
) AssessorService {
	if passThreshold <= 0 || passThreshold > 1 {
		passThreshold = DefaultPassThreshold
	}
	return &assessorService{
		log:           baseLog.With("service", "AssessorService"),
		db:            db,
		llm:           llmClient,
		briefs:        briefs,
		submissions:   submissions,
		assessments:   assessments,
		remediation:   remediation,
		passThreshold: passThreshold,
	}
}

// assessmentPayload mirrors the assessment response schema.
type assessmentPayload struct {
	OverallCompetencyScore          float64               `json:"overall_competency_score"`
	FeedbackSummaryHTML             string                `json:"feedback_summary_html"`
	DetailedFeedbackPoints          []types.FeedbackPoint `json:"detailed_feedback_points"`
	SkillsDemonstrated              []string              `json:"skills_demonstrated"`
	CriticalAreasForImprovementHTML []string              `json:"critical_areas_for_improvement_html"`
	PositivePointsHighlightedHTML   []string              `json:"positive_points_highlighted_html"`
}

func (s *assessorService) Assess(ctx context.Context, input AssessInput) (AssessResult, error) {
	var result AssessResult
	if input.SubmissionID == uuid.Nil {
		return result, fmt.Errorf("%w: submission_id required", apperr.ErrInvalidArgument)
	}

	// First pass under the submission row lock: bail out early with the
	// stored assessment when one exists and Force is off, and load everything
	// the prompt needs.
	var (
		submission *types.ProjectSubmission
		brief      *types.ProjectBrief
		existing   *types.ProjectAssessment
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		submission, txErr = s.submissions.GetByIDForUpdate(ctx, tx, input.SubmissionID)
		if txErr != nil {
			return txErr
		}
		if submission == nil {
			return fmt.Errorf("%w: submission %s", apperr.ErrNotFound, input.SubmissionID)
		}
		existing, txErr = s.assessments.GetBySubmissionID(ctx, tx, input.SubmissionID)
		if txErr != nil {
			return txErr
		}
		brief, txErr = s.briefs.GetByID(ctx, tx, submission.BriefID)
		if txErr != nil {
			return txErr
		}
		if brief == nil {
			return fmt.Errorf("%w: brief %s for submission %s", apperr.ErrNotFound, submission.BriefID, input.SubmissionID)
		}
		return nil
	})
	if err != nil {
		return result, err
	}
	if existing != nil && !input.Force {
		result.Assessment = existing
		return result, nil
	}

	language := input.LanguageCode
	if language == "" {
		language = brief.LanguageCode
	}
	if language == "" {
		language = "en"
	}

	var artifacts []types.SubmissionArtifact
	if len(submission.Artifacts) > 0 {
		if uErr := json.Unmarshal(submission.Artifacts, &artifacts); uErr != nil {
			return result, fmt.Errorf("%w: stored artifacts unreadable: %v", apperr.ErrStorage, uErr)
		}
	}

	prompt := buildAssessmentPrompt(brief, submission, artifacts, input.Profile, language, s.passThreshold)
	result.Debug.Model = s.llm.ModelName()
	result.Debug.PromptFingerprint = prompt.Fingerprint()

	gen, err := s.llm.GenerateStructuredResponse(ctx, prompt.System, prompt.User, prompt.SchemaName, prompt.Schema, assessMaxOutputTokens, language)
	if err != nil {
		// The provider never answered. The submission keeps its current
		// status so a later attempt can grade it.
		return result, err
	}
	result.Debug.PromptTokens = gen.PromptTokens
	result.Debug.ResponseTokens = gen.ResponseTokens

	assessment := s.buildAssessment(submission.ID, gen.RawText, prompt, language)

	// Persist under a fresh submission row lock so concurrent assessments of
	// the same submission produce exactly one winner.
	var winner *types.ProjectAssessment
	created := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, txErr := s.submissions.GetByIDForUpdate(ctx, tx, submission.ID)
		if txErr != nil {
			return txErr
		}
		if locked == nil {
			return fmt.Errorf("%w: submission %s", apperr.ErrNotFound, submission.ID)
		}
		current, txErr := s.assessments.GetBySubmissionID(ctx, tx, submission.ID)
		if txErr != nil {
			return txErr
		}
		if current != nil {
			if !input.Force {
				winner = current
				return nil
			}
			if txErr = s.assessments.DeleteBySubmissionID(ctx, tx, submission.ID); txErr != nil {
				return txErr
			}
		}
		stored, txErr := s.assessments.Create(ctx, tx, assessment)
		if txErr != nil {
			return txErr
		}
		status := types.SubmissionStatusCompleted
		if !stored.IsPassed {
			status = types.SubmissionStatusFailed
		}
		if txErr = s.submissions.UpdateStatus(ctx, tx, submission.ID, status); txErr != nil {
			return txErr
		}
		winner = stored
		created = true
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("%w: persist assessment: %v", apperr.ErrStorage, err)
	}

	result.Assessment = winner
	result.Created = created
	if !created {
		// A concurrent call won the race; its assessment stands.
		return result, nil
	}

	if !winner.IsPassed && s.remediation != nil {
		triggered := s.remediation.TriggerFromAssessment(ctx, submission.SubmitterID, input.Profile, brief, winner)
		if triggered {
			if updErr := s.assessments.UpdateFields(ctx, nil, winner.ID, map[string]interface{}{
				"tutor_session_triggered": true,
			}); updErr != nil {
				s.log.Error("recording tutor_session_triggered", "assessment_id", winner.ID.String(), "error", updErr.Error())
			} else {
				winner.TutorSessionTriggered = true
			}
		}
	}

	s.log.Info("submission assessed",
		"submission_id", submission.ID.String(),
		"passed", winner.IsPassed,
		"degraded", winner.OverallCompetencyScore == nil,
		"model", result.Debug.Model,
		"fingerprint", result.Debug.PromptFingerprint,
	)
	return result, nil
}

// buildAssessment turns the raw model reply into a persistable row. Replies
// that cannot be parsed or fail schema validation become degraded assessments
// with a nil score rather than errors.
func (s *assessorService) buildAssessment(submissionID uuid.UUID, rawText string, prompt prompts.Prompt, language string) *types.ProjectAssessment {
	now := time.Now()
	base := &types.ProjectAssessment{
		SubmissionID: submissionID,
		LanguageCode: language,
		AssessedBy:   s.llm.ModelName(),
		AssessedAt:   now,
	}

	obj, err := structout.ParseObject(rawText)
	if err != nil {
		base.FeedbackSummaryHTML = parseApologyPrefix + rawText
		return base
	}
	if err := structout.Validate(prompt.SchemaName, prompt.Schema, obj); err != nil {
		base.FeedbackSummaryHTML = schemaApologyPrefix + rawText
		return base
	}
	var payload assessmentPayload
	if err := structout.Decode(obj, &payload); err != nil {
		base.FeedbackSummaryHTML = schemaApologyPrefix + rawText
		return base
	}

	score := payload.OverallCompetencyScore
	base.OverallCompetencyScore = &score
	base.IsPassed = score >= s.passThreshold
	base.FeedbackSummaryHTML = payload.FeedbackSummaryHTML
	base.DetailedFeedbackPoints = mustJSON(payload.DetailedFeedbackPoints)
	base.SkillsDemonstrated = mustJSON(payload.SkillsDemonstrated)
	base.CriticalAreasForImprovement = mustJSON(payload.CriticalAreasForImprovementHTML)
	base.PositivePoints = mustJSON(payload.PositivePointsHighlightedHTML)
	return base
}

func mustJSON(v any) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(raw)
}

func buildAssessmentPrompt(brief *types.ProjectBrief, submission *types.ProjectSubmission, artifacts []types.SubmissionArtifact, profile types.UserProfileSnapshot, language string, passThreshold float64) prompts.Prompt {
	var sys strings.Builder
	sys.WriteString("You are a rigorous but encouraging project assessor for an online learning platform. ")
	sys.WriteString("Grade the learner's submission strictly against the project's assessment rubric, weighting each criterion as specified. ")
	fmt.Fprintf(&sys, "Scores are on a 0.0 to 1.0 scale; a submission passes at %.2f or above. ", passThreshold)
	sys.WriteString("Feedback must be specific and actionable.")

	var user strings.Builder
	fmt.Fprintf(&user, "Project: %s\n", brief.Title)
	if brief.DescriptionHTML != "" {
		fmt.Fprintf(&user, "Project description:\n%s\n", brief.DescriptionHTML)
	}
	if len(brief.KeyTasks) > 0 {
		fmt.Fprintf(&user, "\nKey tasks:\n%s\n", string(brief.KeyTasks))
	}
	if len(brief.ExpectedDeliverables) > 0 {
		fmt.Fprintf(&user, "\nExpected deliverables:\n%s\n", string(brief.ExpectedDeliverables))
	}
	// The rubric goes in verbatim so the model weighs exactly what the brief
	// promised the learner.
	fmt.Fprintf(&user, "\nAssessment rubric (criterion weights sum to 100):\n%s\n", string(brief.AssessmentRubric))

	user.WriteString("\nLearner context:\n")
	fmt.Fprintf(&user, "  Industry: %s\n", profile.Industry)
	if profile.Profession != "" {
		fmt.Fprintf(&user, "  Profession: %s\n", profile.Profession)
	}
	for skill, level := range profile.CurrentKnowledgeLevel {
		fmt.Fprintf(&user, "  Knowledge of %s: %s\n", skill, level)
	}

	fmt.Fprintf(&user, "\nThis is submission version %d.\n", submission.SubmissionVersion)
	if submission.Notes != "" {
		fmt.Fprintf(&user, "Submitter notes: %s\n", submission.Notes)
	}
	user.WriteString("\n")
	user.WriteString(FormatArtifacts(artifacts))
	fmt.Fprintf(&user, "\n\nWrite all feedback in language %q.", language)

	return prompts.Prompt{
		Name:       "project_assessment",
		Version:    1,
		System:     sys.String(),
		User:       user.String(),
		SchemaName: prompts.SchemaNameAssessment,
		Schema:     prompts.AssessmentSchema(),
	}
}
