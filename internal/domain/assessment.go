package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// FeedbackPoint is one per-aspect observation inside an assessment.
type FeedbackPoint struct {
	Aspect      string  `json:"aspect"`
	Score       float64 `json:"score"`
	Observation string  `json:"observation"`
	IsStrength  bool    `json:"is_strength"`
}

// ProjectAssessment is the scored evaluation of one submission. At most one
// per submission; replaced atomically when re-assessed with force.
// OverallCompetencyScore is nil when the model reply could not be parsed and
// the degraded apology path produced the record.
type ProjectAssessment struct {
	ID                          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SubmissionID                uuid.UUID      `gorm:"type:uuid;column:submission_id;not null;uniqueIndex" json:"submission_id"`
	OverallCompetencyScore      *float64       `gorm:"column:overall_competency_score" json:"overall_competency_score"`
	IsPassed                    bool           `gorm:"column:is_passed;not null;default:false" json:"is_passed"`
	FeedbackSummaryHTML         string         `gorm:"column:feedback_summary_html;type:text" json:"feedback_summary_html"`
	DetailedFeedbackPoints      datatypes.JSON `gorm:"type:jsonb" json:"detailed_feedback_points"`
	SkillsDemonstrated          datatypes.JSON `gorm:"type:jsonb" json:"skills_demonstrated"`
	CriticalAreasForImprovement datatypes.JSON `gorm:"type:jsonb" json:"critical_areas_for_improvement"`
	PositivePoints              datatypes.JSON `gorm:"type:jsonb" json:"positive_points"`
	LanguageCode                string         `gorm:"column:language_code;not null" json:"language_code"`
	TutorSessionTriggered       bool           `gorm:"column:tutor_session_triggered;not null;default:false" json:"tutor_session_triggered"`
	AssessedBy                  string         `gorm:"column:assessed_by;not null" json:"assessed_by"`
	AssessedAt                  time.Time      `gorm:"column:assessed_at;not null;default:now()" json:"assessed_at"`
	CreatedAt                   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt                   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (ProjectAssessment) TableName() string { return "project_assessment" }
