package projects

import (
	"fmt"
	"strings"

	types "github.com/uplas/uplas-backend/internal/domain"
)

const (
	noSubmissionItems = "No submission items provided by the user."
	submissionHeader  = "--- User's Submission Details ---"

	// Inline artifact content is previewed, never included whole.
	contentPreviewLimit = 400
)

// FormatArtifacts renders a heterogeneous artifact list into one
// human-readable block for the assessment prompt. URL-referenced artifacts
// get a location line plus a hint that the assessor cannot fetch them.
func FormatArtifacts(artifacts []types.SubmissionArtifact) string {
	if len(artifacts) == 0 {
		return noSubmissionItems
	}

	var b strings.Builder
	b.WriteString(submissionHeader)
	b.WriteString("\n")
	for i, artifact := range artifacts {
		b.WriteString(fmt.Sprintf("\nItem %d:\n", i+1))
		b.WriteString(fmt.Sprintf("  Type: %s\n", artifact.Kind))
		if artifact.Filename != "" {
			b.WriteString(fmt.Sprintf("  Filename: %s\n", artifact.Filename))
		}
		if artifact.Notes != "" {
			b.WriteString(fmt.Sprintf("  User notes: %s\n", artifact.Notes))
		}
		if artifact.IsInline() {
			b.WriteString(fmt.Sprintf("  Content preview: %s\n", previewContent(artifact.Payload)))
		} else {
			b.WriteString(fmt.Sprintf("  Location: %s\n", artifact.Payload))
			b.WriteString("  (This referenced artifact cannot be fetched; evaluate it from its type, filename, and the user's notes.)\n")
		}
	}
	return b.String()
}

func previewContent(content string) string {
	runes := []rune(content)
	if len(runes) <= contentPreviewLimit {
		return content
	}
	return string(runes[:contentPreviewLimit]) + "..."
}
