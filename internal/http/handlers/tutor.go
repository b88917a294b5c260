package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	types "github.com/uplas/uplas-backend/internal/domain"
	"github.com/uplas/uplas-backend/internal/http/response"
	"github.com/uplas/uplas-backend/internal/pkg/ctxutil"
	"github.com/uplas/uplas-backend/internal/services/tutor"
)

type TutorHandler struct {
	tutor     tutor.Service
	languages *Languages
}

func NewTutorHandler(tutorService tutor.Service, languages *Languages) *TutorHandler {
	return &TutorHandler{tutor: tutorService, languages: languages}
}

type askTutorRequest struct {
	Query        string                    `json:"query_text" binding:"required"`
	UserProfile  types.UserProfileSnapshot `json:"user_profile_snapshot" binding:"required"`
	Context      *types.TutorContext       `json:"context,omitempty"`
	LanguageCode string                    `json:"language_code"`
}

type askTutorResponse struct {
	*types.TutorResponse
	DebugInfo tutor.Debug `json:"debug_info"`
}

// POST /v1/ask-tutor
func (th *TutorHandler) Ask(c *gin.Context) {
	var req askTutorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusUnprocessableEntity, "invalid_request", err)
		return
	}

	lang, err := th.languages.Resolve(req.LanguageCode)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}

	result, err := th.tutor.Ask(c.Request.Context(), tutor.AskInput{
		UserID:       ctxutil.UserID(c.Request.Context()),
		Query:        req.Query,
		Profile:      req.UserProfile,
		Context:      req.Context,
		LanguageCode: lang,
	})
	if err != nil {
		response.RespondAppError(c, err)
		return
	}

	response.RespondOK(c, askTutorResponse{
		TutorResponse: result.Response,
		DebugInfo:     result.Debug,
	})
}
