package app

import (
	"github.com/uplas/uplas-backend/internal/jobs/worker"
	"github.com/uplas/uplas-backend/internal/pkg/logger"
	"github.com/uplas/uplas-backend/internal/services/ttv"
	"github.com/uplas/uplas-backend/internal/utils"
)

type Config struct {
	JWTSecretKey       string
	PassThreshold      float64
	DefaultLanguage    string
	SupportedLanguages []string
	TTV                ttv.Config
	Worker             worker.Config
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		JWTSecretKey:    utils.GetEnv("JWT_SECRET_KEY", "", log),
		PassThreshold:   utils.GetEnvAsFloat("COMPETENCY_THRESHOLD", 0.75, log),
		DefaultLanguage: utils.GetEnv("DEFAULT_LANGUAGE", "en-US", log),
		SupportedLanguages: utils.GetEnvAsCSV("SUPPORTED_LANGUAGES",
			[]string{"en-US", "en-GB", "fr-FR", "es-ES", "de-DE", "sw-KE"}, log),
		TTV:    ttv.ConfigFromEnv(log),
		Worker: worker.ConfigFromEnv(log),
	}
}
