package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uplas/uplas-backend/internal/http/response"
	"github.com/uplas/uplas-backend/internal/services/tts"
)

type TTSHandler struct {
	tts       tts.Service
	languages *Languages
}

func NewTTSHandler(ttsService tts.Service, languages *Languages) *TTSHandler {
	return &TTSHandler{tts: ttsService, languages: languages}
}

type synthesizeRequest struct {
	Content string `json:"content" binding:"required"`
	// InputType is "text" (default) or "ssml".
	InputType      string `json:"input_type"`
	VoiceCharacter string `json:"voice_character_name"`
	LanguageCode   string `json:"language_code"`
	PreferPremium  bool   `json:"prefer_premium_quality"`
	AudioEncoding  string `json:"audio_encoding"`
}

// POST /v1/synthesize-speech
func (th *TTSHandler) Synthesize(c *gin.Context) {
	var req synthesizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusUnprocessableEntity, "invalid_request", err)
		return
	}
	if req.InputType != "" && req.InputType != "text" && req.InputType != "ssml" {
		response.RespondError(c, http.StatusUnprocessableEntity, "invalid_request",
			fmt.Errorf("unknown input_type %q", req.InputType))
		return
	}

	lang, err := th.languages.Resolve(req.LanguageCode)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}

	out, err := th.tts.Synthesize(c.Request.Context(), tts.SynthesizeInput{
		Content:        req.Content,
		SSML:           req.InputType == "ssml",
		VoiceCharacter: req.VoiceCharacter,
		LanguageCode:   lang,
		PreferPremium:  req.PreferPremium,
		Encoding:       req.AudioEncoding,
	})
	if err != nil {
		response.RespondAppError(c, err)
		return
	}

	response.RespondOK(c, out)
}
