package app

import (
	"gorm.io/gorm"

	projectrepos "github.com/uplas/uplas-backend/internal/data/repos/projects"
	videorepos "github.com/uplas/uplas-backend/internal/data/repos/videojobs"
	"github.com/uplas/uplas-backend/internal/pkg/logger"
)

type Repos struct {
	Briefs      projectrepos.BriefRepo
	Submissions projectrepos.SubmissionRepo
	Assessments projectrepos.AssessmentRepo
	VideoJobs   videorepos.VideoJobRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Briefs:      projectrepos.NewBriefRepo(db, log),
		Submissions: projectrepos.NewSubmissionRepo(db, log),
		Assessments: projectrepos.NewAssessmentRepo(db, log),
		VideoJobs:   videorepos.NewVideoJobRepo(db, log),
	}
}
