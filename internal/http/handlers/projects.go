package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/uplas/uplas-backend/internal/domain"
	"github.com/uplas/uplas-backend/internal/http/response"
	"github.com/uplas/uplas-backend/internal/pkg/ctxutil"
	"github.com/uplas/uplas-backend/internal/services/projects"
)

type ProjectHandler struct {
	generator   projects.GeneratorService
	assessor    projects.AssessorService
	submissions projects.SubmissionService
	languages   *Languages
}

func NewProjectHandler(generator projects.GeneratorService, assessor projects.AssessorService, submissions projects.SubmissionService, languages *Languages) *ProjectHandler {
	return &ProjectHandler{
		generator:   generator,
		assessor:    assessor,
		submissions: submissions,
		languages:   languages,
	}
}

type generateIdeasRequest struct {
	UserProfile          types.UserProfileSnapshot `json:"user_profile_snapshot" binding:"required"`
	CourseContextSummary string                    `json:"course_context_summary"`
	Preferences          projects.IdeaPreferences  `json:"preferences"`
	TopicKeywords        []string                  `json:"topic_keywords"`
	NumberOfIdeas        int                       `json:"number_of_ideas"`
	LanguageCode         string                    `json:"language_code"`
}

// POST /v1/generate-project-ideas
func (ph *ProjectHandler) GenerateIdeas(c *gin.Context) {
	var req generateIdeasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusUnprocessableEntity, "invalid_request", err)
		return
	}

	lang, err := ph.languages.Resolve(req.LanguageCode)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	req.LanguageCode = lang

	userID := ctxutil.UserID(c.Request.Context())
	input := projects.GenerateIdeasInput{
		Profile:              req.UserProfile,
		CourseContextSummary: req.CourseContextSummary,
		Preferences:          req.Preferences,
		TopicKeywords:        req.TopicKeywords,
		NumberOfIdeas:        req.NumberOfIdeas,
		LanguageCode:         req.LanguageCode,
	}
	if userID != uuid.Nil {
		input.RequestedBy = &userID
	}

	briefs, debug, err := ph.generator.GenerateIdeas(c.Request.Context(), input)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}

	response.RespondOK(c, gin.H{
		"generated_projects": briefs,
		"debug_info":         debug,
	})
}

type assessRequest struct {
	// Either an existing submission_id, or brief_id plus artifacts to record
	// a new versioned submission and assess it in one call.
	SubmissionID    uuid.UUID                  `json:"submission_id"`
	BriefID         uuid.UUID                  `json:"brief_id"`
	Artifacts       []types.SubmissionArtifact `json:"artifacts"`
	SubmissionNotes string                     `json:"submission_notes"`
	UserProfile     types.UserProfileSnapshot  `json:"user_profile_snapshot" binding:"required"`
	LanguageCode    string                     `json:"language_code"`
	Force           bool                       `json:"force"`
}

// POST /v1/assess-project-submission
func (ph *ProjectHandler) AssessSubmission(c *gin.Context) {
	var req assessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusUnprocessableEntity, "invalid_request", err)
		return
	}

	lang, err := ph.languages.Resolve(req.LanguageCode)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}

	submissionID := req.SubmissionID
	if submissionID == uuid.Nil {
		sub, err := ph.submissions.Submit(c.Request.Context(), projects.SubmitInput{
			BriefID:     req.BriefID,
			SubmitterID: ctxutil.UserID(c.Request.Context()),
			Artifacts:   req.Artifacts,
			Notes:       req.SubmissionNotes,
		})
		if err != nil {
			response.RespondAppError(c, err)
			return
		}
		submissionID = sub.ID
	}

	result, err := ph.assessor.Assess(c.Request.Context(), projects.AssessInput{
		SubmissionID: submissionID,
		Profile:      req.UserProfile,
		LanguageCode: lang,
		Force:        req.Force,
	})
	if err != nil {
		response.RespondAppError(c, err)
		return
	}

	// Identical whether freshly graded or replayed from storage.
	response.RespondOK(c, gin.H{
		"assessment_result": result.Assessment,
		"debug_info":        result.Debug,
	})
}
