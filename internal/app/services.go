package app

import (
	"gorm.io/gorm"

	"github.com/uplas/uplas-backend/internal/pkg/logger"
	"github.com/uplas/uplas-backend/internal/services/projects"
	"github.com/uplas/uplas-backend/internal/services/tts"
	"github.com/uplas/uplas-backend/internal/services/ttv"
	"github.com/uplas/uplas-backend/internal/services/tutor"
)

type Services struct {
	Generator   projects.GeneratorService
	Assessor    projects.AssessorService
	Submissions projects.SubmissionService
	Tutor       tutor.Service
	TTS         tts.Service
	TTV         *ttv.Service
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients) (Services, error) {
	tutorService := tutor.NewService(log, clients.LLM, clients.Content)
	ttsService := tts.NewService(log, clients.Speech, clients.Bucket)

	remediation := projects.NewRemediationTrigger(log, clients.Tutor)
	generator := projects.NewGeneratorService(log, clients.LLM, repos.Briefs)
	submissions := projects.NewSubmissionService(log, repos.Briefs, repos.Submissions)
	assessor := projects.NewAssessorService(
		db,
		log,
		clients.LLM,
		repos.Briefs,
		repos.Submissions,
		repos.Assessments,
		remediation,
		cfg.PassThreshold,
	)

	characters, err := ttv.NewCharacterManager(log)
	if err != nil {
		return Services{}, err
	}
	ttvService := ttv.NewService(log, cfg.TTV, repos.VideoJobs, tutorService, ttsService, clients.Avatar, characters)

	return Services{
		Generator:   generator,
		Assessor:    assessor,
		Submissions: submissions,
		Tutor:       tutorService,
		TTS:         ttsService,
		TTV:         ttvService,
	}, nil
}
