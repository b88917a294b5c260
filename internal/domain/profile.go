package domain

import "github.com/google/uuid"

// Tutor persona names known to the prompt layer. Anything else falls back to
// PersonaDefault.
const (
	PersonaDefault     = "default"
	PersonaUncleTrevor = "uncle_trevor"
	PersonaSusan       = "susan"
)

func KnownPersona(name string) bool {
	switch name {
	case PersonaDefault, PersonaUncleTrevor, PersonaSusan:
		return true
	}
	return false
}

// UserProfileSnapshot is the per-request personalization context. It is never
// persisted by this service; the profile owner lives elsewhere.
type UserProfileSnapshot struct {
	Industry              string            `json:"industry" binding:"required"`
	Profession            string            `json:"profession,omitempty"`
	Country               string            `json:"country,omitempty"`
	City                  string            `json:"city,omitempty"`
	CareerInterest        string            `json:"career_interest,omitempty"`
	LearningGoals         string            `json:"learning_goals,omitempty"`
	PreferredTutorPersona string            `json:"preferred_tutor_persona,omitempty"`
	PreferredPace         string            `json:"learning_pace_preference,omitempty"`
	AreasOfInterest       []string          `json:"areas_of_interest,omitempty"`
	CurrentKnowledgeLevel map[string]string `json:"current_knowledge_level,omitempty"`
}

// Persona returns the requested persona if it is a known one.
func (p *UserProfileSnapshot) Persona() string {
	if p == nil || !KnownPersona(p.PreferredTutorPersona) {
		return PersonaDefault
	}
	return p.PreferredTutorPersona
}

// TutorContext scopes a tutor question to course material and, for
// remediation sessions, carries the failed assessment's feedback.
type TutorContext struct {
	ModuleID                  *uuid.UUID `json:"module_id,omitempty"`
	TopicID                   *uuid.UUID `json:"topic_id,omitempty"`
	CurrentProjectTitle       string     `json:"current_project_title,omitempty"`
	ProjectAssessmentFeedback string     `json:"project_assessment_feedback,omitempty"`
}

// TutorResponse is the tutor agent's structured answer. Degraded marks the
// apology fallback produced when the model reply could not be parsed; it is
// an ordinary value, not an error.
type TutorResponse struct {
	MainAnswerText        string   `json:"main_answer_text"`
	SuggestedFollowUps    []string `json:"suggested_follow_ups"`
	GeneratedAnalogies    []string `json:"generated_analogies_for_answer"`
	AnswerConfidenceScore float64  `json:"answer_confidence_score"`
	Degraded              bool     `json:"degraded,omitempty"`
}
