package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// VideoJob statuses. The background orchestrator is the only writer; a job is
// terminal in completed or failed.
const (
	VideoJobStatusPending         = "pending"
	VideoJobStatusScriptReady     = "script_ready"
	VideoJobStatusAudioReady      = "audio_ready"
	VideoJobStatusAvatarSubmitted = "avatar_submitted"
	VideoJobStatusPolling         = "polling"
	VideoJobStatusCompleted       = "completed"
	VideoJobStatusFailed          = "failed"
)

func VideoJobTerminal(status string) bool {
	return status == VideoJobStatusCompleted || status == VideoJobStatusFailed
}

// VisualCue is one <visual_aid_suggestion> extracted from a generated script.
// Cues are recorded as rendering hints and never reach speech synthesis.
type VisualCue struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// VideoContentSource selects where the script comes from: either raw text
// supplied by the caller or a tutor query over (module, topic).
type VideoContentSource struct {
	RawTextContent string     `json:"raw_text_content,omitempty"`
	Query          string     `json:"query,omitempty"`
	ModuleID       *uuid.UUID `json:"module_id,omitempty"`
	TopicID        *uuid.UUID `json:"topic_id,omitempty"`
}

// VideoGenerationRequest is the caller's request, frozen verbatim into the
// job row so the pipeline can be resumed from persisted state.
type VideoGenerationRequest struct {
	ContentSource             VideoContentSource   `json:"content_source"`
	InstructorCharacter       string               `json:"instructor_character"`
	VoiceCharacter            string               `json:"voice_character,omitempty"`
	PreferPremiumVoice        bool                 `json:"prefer_premium_voice,omitempty"`
	LanguageCode              string               `json:"language_code,omitempty"`
	LearningPacePreference    string               `json:"learning_pace_preference,omitempty"`
	BackgroundThemePreference string               `json:"background_theme_preference,omitempty"`
	AdditionalInstructions    string               `json:"additional_instructions,omitempty"`
	UserProfile               *UserProfileSnapshot `json:"user_profile_snapshot,omitempty"`
}

// VideoJob is the persisted record of one text-to-video generation from
// submit through callback.
type VideoJob struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"job_id"`
	SubmitterID     uuid.UUID      `gorm:"type:uuid;column:submitter_id;not null;index" json:"submitter_id"`
	Request         datatypes.JSON `gorm:"type:jsonb" json:"request"`
	Status          string         `gorm:"not null;index;default:pending" json:"status"`
	ProgressPercent int            `gorm:"column:progress_percent;not null;default:0" json:"progress_percent"`
	ScriptPreview   string         `gorm:"column:script_preview;type:text" json:"script_preview,omitempty"`
	AudioURL        string         `gorm:"column:audio_url" json:"audio_url,omitempty"`
	AvatarJobID     string         `gorm:"column:avatar_job_id;index" json:"avatar_job_id,omitempty"`
	VideoURL        string         `gorm:"column:video_url" json:"video_url,omitempty"`
	ThumbnailURL    string         `gorm:"column:thumbnail_url" json:"thumbnail_url,omitempty"`
	DurationSeconds float64        `gorm:"column:duration_seconds" json:"duration_seconds,omitempty"`
	VisualCues      datatypes.JSON `gorm:"type:jsonb" json:"visual_cues_identified"`
	ErrorMessage    string         `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
	Attempts        int            `gorm:"not null;default:0" json:"attempts"`
	LockedAt        *time.Time     `gorm:"column:locked_at;index" json:"locked_at,omitempty"`
	HeartbeatAt     *time.Time     `gorm:"column:heartbeat_at;index" json:"heartbeat_at,omitempty"`
	CreatedAt       time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (VideoJob) TableName() string { return "video_job" }
