package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/uplas/uplas-backend/internal/http/handlers"
	httpMW "github.com/uplas/uplas-backend/internal/http/middleware"
	"github.com/uplas/uplas-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	AuthMiddleware *httpMW.AuthMiddleware

	ProjectHandler *httpH.ProjectHandler
	TutorHandler   *httpH.TutorHandler
	TTSHandler     *httpH.TTSHandler
	VideoHandler   *httpH.VideoHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.AttachRequestContext())
	r.Use(httpMW.CORS())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/health", cfg.HealthHandler.HealthCheck)
	}

	v1 := r.Group("/v1")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			v1.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Project generation and assessment
		if cfg.ProjectHandler != nil {
			v1.POST("/generate-project-ideas", cfg.ProjectHandler.GenerateIdeas)
			v1.POST("/assess-project-submission", cfg.ProjectHandler.AssessSubmission)
		}

		// Personal tutor
		if cfg.TutorHandler != nil {
			v1.POST("/ask-tutor", cfg.TutorHandler.Ask)
		}

		// Speech synthesis
		if cfg.TTSHandler != nil {
			v1.POST("/synthesize-speech", cfg.TTSHandler.Synthesize)
		}

		// Text-to-video jobs
		if cfg.VideoHandler != nil {
			v1.POST("/generate-video", cfg.VideoHandler.SubmitJob)
			v1.GET("/video-status/:job_id", cfg.VideoHandler.GetJob)
			v1.GET("/video-jobs", cfg.VideoHandler.ListJobs)
		}
	}

	return r
}
