package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	videorepos "github.com/uplas/uplas-backend/internal/data/repos/videojobs"
	types "github.com/uplas/uplas-backend/internal/domain"
	"github.com/uplas/uplas-backend/internal/http/response"
	"github.com/uplas/uplas-backend/internal/pkg/apperr"
	"github.com/uplas/uplas-backend/internal/pkg/ctxutil"
	"github.com/uplas/uplas-backend/internal/services/ttv"
)

const recentJobsLimit = 20

type VideoHandler struct {
	ttv       *ttv.Service
	jobs      videorepos.VideoJobRepo
	languages *Languages
}

func NewVideoHandler(ttvService *ttv.Service, jobs videorepos.VideoJobRepo, languages *Languages) *VideoHandler {
	return &VideoHandler{
		ttv:       ttvService,
		jobs:      jobs,
		languages: languages,
	}
}

// POST /v1/generate-video
func (vh *VideoHandler) SubmitJob(c *gin.Context) {
	var req types.VideoGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusUnprocessableEntity, "invalid_request", err)
		return
	}
	lang, err := vh.languages.Resolve(req.LanguageCode)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	req.LanguageCode = lang

	job, err := vh.ttv.Submit(c.Request.Context(), ctxutil.UserID(c.Request.Context()), req)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}

	response.RespondAccepted(c, gin.H{
		"job_id": job.ID,
		"status": job.Status,
	})
}

// GET /v1/video-status/:job_id
func (vh *VideoHandler) GetJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		response.RespondError(c, http.StatusUnprocessableEntity, "invalid_request", errors.New("invalid job id"))
		return
	}

	job, err := vh.jobs.GetByID(c.Request.Context(), nil, jobID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	// Jobs are visible to their submitter only; respond as if absent.
	if job == nil || job.SubmitterID != ctxutil.UserID(c.Request.Context()) {
		response.RespondAppError(c, apperr.ErrNotFound)
		return
	}

	response.RespondOK(c, job)
}

// GET /v1/video-jobs
func (vh *VideoHandler) ListJobs(c *gin.Context) {
	jobs, err := vh.jobs.GetRecentBySubmitter(c.Request.Context(), nil, ctxutil.UserID(c.Request.Context()), recentJobsLimit)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	if jobs == nil {
		jobs = []*types.VideoJob{}
	}

	response.RespondOK(c, gin.H{"jobs": jobs})
}
