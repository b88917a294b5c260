package tutor

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/uplas/uplas-backend/internal/ai/prompts"
	"github.com/uplas/uplas-backend/internal/ai/structout"
	"github.com/uplas/uplas-backend/internal/clients/content"
	"github.com/uplas/uplas-backend/internal/clients/llm"
	types "github.com/uplas/uplas-backend/internal/domain"
	"github.com/uplas/uplas-backend/internal/pkg/apperr"
	"github.com/uplas/uplas-backend/internal/pkg/logger"
)

const (
	tutorMaxOutputTokens = 2048

	// degradedAnswerPrefix opens the fallback answer produced when the model
	// reply could not be parsed into the structured shape.
	degradedAnswerPrefix = "I'm sorry, I had trouble putting my full answer together. Here is what I can share:\n\n"

	noContentNote = "No processed course content is available for this question; answer from general knowledge and say so if the learner asks about specific course material."
)

type AskInput struct {
	UserID       uuid.UUID
	Query        string
	Profile      types.UserProfileSnapshot
	Context      *types.TutorContext
	LanguageCode string
}

type Debug struct {
	Model             string `json:"model"`
	PromptFingerprint string `json:"prompt_fingerprint"`
	PromptTokens      int    `json:"prompt_tokens"`
	ResponseTokens    int    `json:"response_tokens"`
}

type AskResult struct {
	Response *types.TutorResponse
	Debug    Debug
}

// Service answers learner questions in the configured persona, grounded on
// processed course content when the question is scoped to a module.
type Service interface {
	// Ask never fails on a malformed model reply; those come back as a
	// degraded response value. It does fail when the provider itself is
	// unreachable or refuses.
	Ask(ctx context.Context, input AskInput) (AskResult, error)
}

type service struct {
	log     *logger.Logger
	llm     llm.Client
	content content.Fetcher
}

func NewService(baseLog *logger.Logger, llmClient llm.Client, fetcher content.Fetcher) Service {
	return &service{
		log:     baseLog.With("service", "TutorService"),
		llm:     llmClient,
		content: fetcher,
	}
}

func (s *service) Ask(ctx context.Context, input AskInput) (AskResult, error) {
	var result AskResult
	if strings.TrimSpace(input.Query) == "" {
		return result, fmt.Errorf("%w: query required", apperr.ErrInvalidArgument)
	}
	language := input.LanguageCode
	if language == "" {
		language = "en"
	}

	contentBlock := s.loadContentBlock(ctx, input.Context)

	prompt := buildTutorPrompt(input, contentBlock, language)
	result.Debug.Model = s.llm.ModelName()
	result.Debug.PromptFingerprint = prompt.Fingerprint()

	gen, err := s.llm.GenerateStructuredResponse(ctx, prompt.System, prompt.User, prompt.SchemaName, prompt.Schema, tutorMaxOutputTokens, language)
	if err != nil {
		return result, err
	}
	result.Debug.PromptTokens = gen.PromptTokens
	result.Debug.ResponseTokens = gen.ResponseTokens

	result.Response = s.decodeResponse(gen.RawText, prompt)
	if result.Response.Degraded {
		s.log.Warn("tutor reply degraded to fallback",
			"user_id", input.UserID.String(),
			"fingerprint", result.Debug.PromptFingerprint,
		)
	}
	return result, nil
}

// loadContentBlock fetches and narrows course content. Fetch failures are not
// fatal; the tutor answers without grounding rather than not at all.
func (s *service) loadContentBlock(ctx context.Context, tc *types.TutorContext) string {
	if s.content == nil || tc == nil || tc.ModuleID == nil {
		return ""
	}
	module, err := s.content.FetchModule(ctx, *tc.ModuleID)
	if err != nil {
		s.log.Warn("course content unavailable", "module_id", tc.ModuleID.String(), "error", err.Error())
		return ""
	}
	if module == nil {
		return ""
	}
	if tc.TopicID != nil {
		if topic := module.TopicContent(*tc.TopicID); topic != "" {
			return topic
		}
		// Unknown topic inside a known module: fall back to the whole module.
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Module: %s\n", module.ModuleTitle)
	for _, lesson := range module.Lessons {
		fmt.Fprintf(&b, "\nLesson: %s\n", lesson.Title)
		for _, topic := range lesson.Topics {
			fmt.Fprintf(&b, "Topic: %s\n%s\n", topic.Title, topic.TaggedContent)
		}
	}
	return b.String()
}

func (s *service) decodeResponse(rawText string, prompt prompts.Prompt) *types.TutorResponse {
	degraded := &types.TutorResponse{
		MainAnswerText:        degradedAnswerPrefix + rawText,
		SuggestedFollowUps:    []string{},
		GeneratedAnalogies:    []string{},
		AnswerConfidenceScore: 0,
		Degraded:              true,
	}

	obj, err := structout.ParseObject(rawText)
	if err != nil {
		return degraded
	}
	if err := structout.Validate(prompt.SchemaName, prompt.Schema, obj); err != nil {
		return degraded
	}
	var out types.TutorResponse
	if err := structout.Decode(obj, &out); err != nil {
		return degraded
	}
	return &out
}

func buildTutorPrompt(input AskInput, contentBlock, language string) prompts.Prompt {
	var sys strings.Builder
	if input.Context != nil && input.Context.ProjectAssessmentFeedback != "" {
		sys.WriteString(empatheticDirective)
		sys.WriteString("\n\n")
	}
	sys.WriteString(personaDirective(input.Profile.Persona()))
	sys.WriteString("\n\n")
	sys.WriteString(tagInstructions)

	var user strings.Builder
	user.WriteString("Learner profile:\n")
	fmt.Fprintf(&user, "  Industry: %s\n", input.Profile.Industry)
	if input.Profile.Profession != "" {
		fmt.Fprintf(&user, "  Profession: %s\n", input.Profile.Profession)
	}
	if input.Profile.Country != "" {
		fmt.Fprintf(&user, "  Country: %s\n", input.Profile.Country)
	}
	if input.Profile.LearningGoals != "" {
		fmt.Fprintf(&user, "  Learning goals: %s\n", input.Profile.LearningGoals)
	}
	if len(input.Profile.AreasOfInterest) > 0 {
		fmt.Fprintf(&user, "  Areas of interest: %s\n", strings.Join(input.Profile.AreasOfInterest, ", "))
	}
	for skill, level := range input.Profile.CurrentKnowledgeLevel {
		fmt.Fprintf(&user, "  Knowledge of %s: %s\n", skill, level)
	}

	if input.Context != nil {
		if input.Context.CurrentProjectTitle != "" {
			fmt.Fprintf(&user, "\nCurrent project: %s\n", input.Context.CurrentProjectTitle)
		}
		if input.Context.ProjectAssessmentFeedback != "" {
			fmt.Fprintf(&user, "\nAssessment feedback the learner received:\n%s\n", input.Context.ProjectAssessmentFeedback)
		}
	}

	user.WriteString("\nCourse content:\n")
	if contentBlock != "" {
		user.WriteString(contentBlock)
		user.WriteString("\n")
	} else {
		user.WriteString(noContentNote)
		user.WriteString("\n")
	}

	fmt.Fprintf(&user, "\nLearner's question:\n%s\n", input.Query)
	fmt.Fprintf(&user, "\nAnswer in language %q.", language)

	return prompts.Prompt{
		Name:       "tutor_answer",
		Version:    1,
		System:     sys.String(),
		User:       user.String(),
		SchemaName: prompts.SchemaNameTutor,
		Schema:     prompts.TutorResponseSchema(),
	}
}
