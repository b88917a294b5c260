package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Artifact kinds. Inline kinds carry content in Payload; URL kinds carry a
// referenced location the assessor cannot fetch.
const (
	ArtifactTextReport       = "text_report"
	ArtifactCodeString       = "code_string"
	ArtifactMarkdownDocument = "markdown_document"
	ArtifactRepositoryURL    = "repository_url"
	ArtifactGCSURLPDF        = "gcs_url_pdf"
	ArtifactGCSURLZip        = "gcs_url_zip"
	ArtifactOtherURL         = "other_url"
)

// Submission lifecycle states. A submission starts as submitted; the
// assessor moves it to completed or failed in the same transaction that
// persists the assessment.
const (
	SubmissionStatusSubmitted = "submitted"
	SubmissionStatusCompleted = "completed"
	SubmissionStatusFailed    = "failed"
)

// SubmissionArtifact is one item of a submission, stored embedded in the
// submission row's JSONB artifact list.
type SubmissionArtifact struct {
	Kind     string `json:"kind"`
	Payload  string `json:"payload"`
	Filename string `json:"filename,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// IsInline reports whether the artifact payload is content to preview in
// prompts rather than a referenced location.
func (a SubmissionArtifact) IsInline() bool {
	switch a.Kind {
	case ArtifactTextReport, ArtifactCodeString, ArtifactMarkdownDocument:
		return true
	}
	return false
}

func ValidArtifactKind(kind string) bool {
	switch kind {
	case ArtifactTextReport, ArtifactCodeString, ArtifactMarkdownDocument,
		ArtifactRepositoryURL, ArtifactGCSURLPDF, ArtifactGCSURLZip, ArtifactOtherURL:
		return true
	}
	return false
}

// ProjectSubmission is one versioned delivery of artifacts against a brief.
// (brief, submitter, submission_version) is unique; the version is computed
// transactionally as max prior version + 1.
type ProjectSubmission struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BriefID           uuid.UUID      `gorm:"type:uuid;column:brief_id;not null;index;uniqueIndex:idx_submission_brief_submitter_version" json:"brief_id"`
	SubmitterID       uuid.UUID      `gorm:"type:uuid;column:submitter_id;not null;index;uniqueIndex:idx_submission_brief_submitter_version" json:"submitter_id"`
	Artifacts         datatypes.JSON `gorm:"type:jsonb" json:"artifacts"`
	Notes             string         `gorm:"type:text" json:"notes,omitempty"`
	SubmissionVersion int            `gorm:"column:submission_version;not null;uniqueIndex:idx_submission_brief_submitter_version" json:"submission_version"`
	Status            string         `gorm:"not null;index;default:submitted" json:"status"`
	SubmittedAt       time.Time      `gorm:"column:submitted_at;not null;default:now()" json:"submitted_at"`
	CreatedAt         time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (ProjectSubmission) TableName() string { return "project_submission" }
