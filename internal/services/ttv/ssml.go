package ttv

import (
	"fmt"
	"regexp"
	"strings"

	types "github.com/uplas/uplas-backend/internal/domain"
)

// Learning pace preferences. The pace stretches or tightens the pauses the
// script asks for; it never changes the words.
const (
	PaceSlow   = "slow"
	PaceNormal = "normal"
	PaceFast   = "fast"
)

// pauseBreakMS maps pace and pause strength to a <break> duration.
var pauseBreakMS = map[string]map[string]int{
	PaceSlow:   {"short": 250, "medium": 500, "long": 700},
	PaceNormal: {"short": 200, "medium": 400, "long": 500},
	PaceFast:   {"short": 150, "medium": 300, "long": 400},
}

var (
	// Both the self-closing form with a description attribute and the paired
	// form with inner text occur in generated scripts.
	visualCueRe = regexp.MustCompile(`(?s)<visual_aid_suggestion\s+type="([^"]*)"(?:\s+description="([^"]*)")?\s*(?:/>|>(.*?)</visual_aid_suggestion>)`)
	pauseRe     = regexp.MustCompile(`<pause\s+strength="([^"]*)"\s*/?>`)

	// Semantic tags whose inner text is spoken but whose markup is not SSML.
	// visual_aid_suggestion is listed as a backstop for malformed variants
	// that slip past visualCueRe.
	strippedTagRe = regexp.MustCompile(`</?(?:analogy|difficulty|example|interactive_question_opportunity|visual_aid_suggestion)(?:\s[^>]*)?/?>`)
)

// ExtractVisualCues pulls every <visual_aid_suggestion> out of a script. The
// cues become rendering hints on the job; the tags never reach synthesis.
func ExtractVisualCues(script string) []types.VisualCue {
	matches := visualCueRe.FindAllStringSubmatch(script, -1)
	if len(matches) == 0 {
		return nil
	}
	cues := make([]types.VisualCue, 0, len(matches))
	for _, m := range matches {
		description := strings.TrimSpace(m[2])
		if description == "" {
			description = strings.TrimSpace(m[3])
		}
		cues = append(cues, types.VisualCue{
			Type:        strings.TrimSpace(m[1]),
			Description: description,
		})
	}
	return cues
}

// BuildSSML converts a generated script into SSML for synthesis:
// visual aid suggestions are removed outright, <pause> markers become
// pace-scaled <break> elements, and the remaining semantic tags are stripped
// down to their spoken text. <emphasis> passes through as valid SSML.
func BuildSSML(script, pace string) string {
	breaks, ok := pauseBreakMS[pace]
	if !ok {
		breaks = pauseBreakMS[PaceNormal]
	}

	out := visualCueRe.ReplaceAllString(script, "")

	out = strings.ReplaceAll(out, "&", "&amp;")
	out = strings.ReplaceAll(out, "&amp;amp;", "&amp;")

	out = pauseRe.ReplaceAllStringFunc(out, func(tag string) string {
		strength := pauseRe.FindStringSubmatch(tag)[1]
		ms, ok := breaks[strength]
		if !ok {
			ms = breaks["medium"]
		}
		return fmt.Sprintf(`<break time="%dms"/>`, ms)
	})

	out = strippedTagRe.ReplaceAllString(out, "")
	out = strings.TrimSpace(out)
	return "<speak>" + out + "</speak>"
}

const scriptPreviewLimit = 300

// ScriptPreview is what gets persisted on the job; full scripts stay out of
// the database.
func ScriptPreview(script string) string {
	runes := []rune(script)
	if len(runes) <= scriptPreviewLimit {
		return script
	}
	return string(runes[:scriptPreviewLimit]) + "..."
}
