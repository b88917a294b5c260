package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

// RubricCriterion is one weighted row of a brief's assessment rubric.
// Weights across a brief's rubric sum to 100.
type RubricCriterion struct {
	Criterion string `json:"criterion"`
	Weight    int    `json:"weight"`
}

type KeyTask struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ProjectBrief is an AI-generated (or authored) project description with its
// grading rubric. Immutable after creation; submissions reference it.
type ProjectBrief struct {
	ID                       uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Title                    string         `gorm:"not null" json:"title"`
	Subtitle                 string         `json:"subtitle,omitempty"`
	DescriptionHTML          string         `gorm:"column:description_html;type:text" json:"description_html"`
	DifficultyLevel          string         `gorm:"column:difficulty_level;not null;index" json:"difficulty_level"`
	EstimatedDurationHours   int            `gorm:"column:estimated_duration_hours" json:"estimated_duration_hours"`
	LearningObjectives       datatypes.JSON `gorm:"type:jsonb" json:"learning_objectives"`
	ExpectedDeliverables     datatypes.JSON `gorm:"type:jsonb" json:"expected_deliverables"`
	KeyTasks                 datatypes.JSON `gorm:"type:jsonb" json:"key_tasks"`
	SuggestedTools           datatypes.JSON `gorm:"type:jsonb" json:"suggested_tools"`
	AssessmentRubric         datatypes.JSON `gorm:"type:jsonb" json:"assessment_rubric"`
	PersonalizationRationale string         `gorm:"type:text" json:"personalization_rationale,omitempty"`
	LanguageCode             string         `gorm:"column:language_code;not null" json:"language_code"`
	CreatedByID              *uuid.UUID     `gorm:"type:uuid;column:created_by_id;index" json:"created_by_id,omitempty"`
	CreatedAt                time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt                time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt                gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ProjectBrief) TableName() string { return "project_brief" }

func ValidDifficulty(level string) bool {
	switch level {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}
