package app

import (
	"fmt"

	"github.com/gin-gonic/gin"

	uplashttp "github.com/uplas/uplas-backend/internal/http"
	"github.com/uplas/uplas-backend/internal/http/handlers"
	"github.com/uplas/uplas-backend/internal/http/middleware"
	"github.com/uplas/uplas-backend/internal/pkg/logger"
)

func wireRouter(log *logger.Logger, cfg Config, db handlers.Pinger, services Services, repos Repos) (*gin.Engine, error) {
	auth, err := middleware.NewAuthMiddleware(log, cfg.JWTSecretKey)
	if err != nil {
		return nil, fmt.Errorf("init auth middleware: %w", err)
	}

	languages := handlers.NewLanguages(cfg.DefaultLanguage, cfg.SupportedLanguages)

	return uplashttp.NewRouter(uplashttp.RouterConfig{
		Log:            log,
		AuthMiddleware: auth,
		ProjectHandler: handlers.NewProjectHandler(services.Generator, services.Assessor, services.Submissions, languages),
		TutorHandler:   handlers.NewTutorHandler(services.Tutor, languages),
		TTSHandler:     handlers.NewTTSHandler(services.TTS, languages),
		VideoHandler:   handlers.NewVideoHandler(services.TTV, repos.VideoJobs, languages),
		HealthHandler:  handlers.NewHealthHandler(db),
	}), nil
}
