package projects

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/uplas/uplas-backend/internal/ai/prompts"
	"github.com/uplas/uplas-backend/internal/ai/structout"
	"github.com/uplas/uplas-backend/internal/clients/llm"
	projectrepos "github.com/uplas/uplas-backend/internal/data/repos/projects"
	types "github.com/uplas/uplas-backend/internal/domain"
	"github.com/uplas/uplas-backend/internal/pkg/apperr"
	"github.com/uplas/uplas-backend/internal/pkg/logger"
)

const (
	defaultIdeaCount = 3
	maxIdeaCount     = 5

	ideaMaxOutputTokens = 4096

	correctiveReprompt = "Your previous reply was not valid JSON; return only the JSON object, with no surrounding text or code fences."
)

// IdeaPreferences are the caller's optional steering knobs for generation.
type IdeaPreferences struct {
	DifficultyLevel       string   `json:"difficulty_level,omitempty"`
	PreferredTechnologies []string `json:"preferred_technologies,omitempty"`
	DurationBand          string   `json:"duration_band,omitempty"`
}

type GenerateIdeasInput struct {
	Profile              types.UserProfileSnapshot
	CourseContextSummary string
	Preferences          IdeaPreferences
	TopicKeywords        []string
	NumberOfIdeas        int
	LanguageCode         string
	RequestedBy          *uuid.UUID
}

// GenerationDebug is returned alongside the briefs so callers can log which
// model and prompt revision produced them.
type GenerationDebug struct {
	Model             string `json:"model"`
	PromptFingerprint string `json:"prompt_fingerprint"`
	PromptTokens      int    `json:"prompt_tokens"`
	ResponseTokens    int    `json:"response_tokens"`
}

type GeneratorService interface {
	// GenerateIdeas asks the model for personalized project briefs, validates
	// them, persists them, and returns the stored rows.
	GenerateIdeas(ctx context.Context, input GenerateIdeasInput) ([]*types.ProjectBrief, GenerationDebug, error)
}

type generatorService struct {
	log    *logger.Logger
	llm    llm.Client
	briefs projectrepos.BriefRepo
}

func NewGeneratorService(baseLog *logger.Logger, llmClient llm.Client, briefs projectrepos.BriefRepo) GeneratorService {
	return &generatorService{
		log:    baseLog.With("service", "GeneratorService"),
		llm:    llmClient,
		briefs: briefs,
	}
}

// briefPayload mirrors one entry of the generated_projects schema.
type briefPayload struct {
	Title                    string                  `json:"title"`
	Subtitle                 string                  `json:"subtitle,omitempty"`
	DescriptionHTML          string                  `json:"description_html"`
	DifficultyLevel          string                  `json:"difficulty_level"`
	EstimatedDurationHours   int                     `json:"estimated_duration_hours"`
	LearningObjectives       []string                `json:"learning_objectives"`
	ExpectedDeliverables     []string                `json:"expected_deliverables"`
	KeyTasks                 []types.KeyTask         `json:"key_tasks"`
	SuggestedTools           []string                `json:"suggested_tools"`
	AssessmentRubric         []types.RubricCriterion `json:"assessment_rubric"`
	PersonalizationRationale string                  `json:"personalization_rationale"`
}

type ideasPayload struct {
	GeneratedProjects []briefPayload `json:"generated_projects"`
}

func (s *generatorService) GenerateIdeas(ctx context.Context, input GenerateIdeasInput) ([]*types.ProjectBrief, GenerationDebug, error) {
	var debug GenerationDebug

	count := input.NumberOfIdeas
	if count <= 0 {
		count = defaultIdeaCount
	}
	if count > maxIdeaCount {
		count = maxIdeaCount
	}
	language := input.LanguageCode
	if language == "" {
		language = "en"
	}
	if input.Preferences.DifficultyLevel != "" && !types.ValidDifficulty(input.Preferences.DifficultyLevel) {
		return nil, debug, fmt.Errorf("%w: unknown difficulty_level %q", apperr.ErrInvalidArgument, input.Preferences.DifficultyLevel)
	}

	prompt := buildIdeasPrompt(input, count, language)
	debug.Model = s.llm.ModelName()
	debug.PromptFingerprint = prompt.Fingerprint()

	result, err := s.llm.GenerateStructuredResponse(ctx, prompt.System, prompt.User, prompt.SchemaName, prompt.Schema, ideaMaxOutputTokens, language)
	if err != nil {
		return nil, debug, err
	}
	debug.PromptTokens = result.PromptTokens
	debug.ResponseTokens = result.ResponseTokens

	obj, err := structout.ParseObject(result.RawText)
	if err != nil {
		// One corrective reprompt before giving up on the structure.
		s.log.Warn("idea generation reply was not JSON, reprompting", "fingerprint", debug.PromptFingerprint)
		result, err = s.llm.GenerateStructuredResponse(ctx, prompt.System, prompt.User+"\n\n"+correctiveReprompt, prompt.SchemaName, prompt.Schema, ideaMaxOutputTokens, language)
		if err != nil {
			return nil, debug, err
		}
		debug.PromptTokens += result.PromptTokens
		debug.ResponseTokens += result.ResponseTokens
		obj, err = structout.ParseObject(result.RawText)
		if err != nil {
			return nil, debug, fmt.Errorf("%w: %v", apperr.ErrGeneration, err)
		}
	}

	if err := structout.Validate(prompt.SchemaName, prompt.Schema, obj); err != nil {
		return nil, debug, fmt.Errorf("%w: %v", apperr.ErrGeneration, err)
	}

	var payload ideasPayload
	if err := structout.Decode(obj, &payload); err != nil {
		return nil, debug, fmt.Errorf("%w: %v", apperr.ErrGeneration, err)
	}

	briefs := make([]*types.ProjectBrief, 0, count)
	for _, p := range payload.GeneratedProjects {
		brief, convErr := s.toBrief(p, language, input.RequestedBy)
		if convErr != nil {
			s.log.Warn("discarding generated brief", "title", p.Title, "error", convErr.Error())
			continue
		}
		briefs = append(briefs, brief)
		if len(briefs) == count {
			break
		}
	}
	if len(briefs) == 0 {
		return nil, debug, fmt.Errorf("%w: model returned no usable project ideas", apperr.ErrGeneration)
	}

	stored, err := s.briefs.Create(ctx, nil, briefs)
	if err != nil {
		return nil, debug, fmt.Errorf("%w: persist briefs: %v", apperr.ErrStorage, err)
	}

	s.log.Info("generated project ideas",
		"count", len(stored),
		"model", debug.Model,
		"fingerprint", debug.PromptFingerprint,
		"prompt_tokens", debug.PromptTokens,
		"response_tokens", debug.ResponseTokens,
	)
	return stored, debug, nil
}

// toBrief converts a validated payload into a persistable row. Rubric weights
// must sum to 100; briefs that break that are discarded rather than stored.
func (s *generatorService) toBrief(p briefPayload, language string, createdBy *uuid.UUID) (*types.ProjectBrief, error) {
	if strings.TrimSpace(p.Title) == "" {
		return nil, errors.New("empty title")
	}
	if !types.ValidDifficulty(p.DifficultyLevel) {
		return nil, fmt.Errorf("unknown difficulty %q", p.DifficultyLevel)
	}
	if len(p.AssessmentRubric) == 0 {
		return nil, errors.New("empty rubric")
	}
	weightSum := 0
	for _, c := range p.AssessmentRubric {
		weightSum += c.Weight
	}
	if weightSum != 100 {
		return nil, fmt.Errorf("rubric weights sum to %d, want 100", weightSum)
	}

	objectives, err := json.Marshal(p.LearningObjectives)
	if err != nil {
		return nil, err
	}
	deliverables, err := json.Marshal(p.ExpectedDeliverables)
	if err != nil {
		return nil, err
	}
	tasks, err := json.Marshal(p.KeyTasks)
	if err != nil {
		return nil, err
	}
	tools, err := json.Marshal(p.SuggestedTools)
	if err != nil {
		return nil, err
	}
	rubric, err := json.Marshal(p.AssessmentRubric)
	if err != nil {
		return nil, err
	}

	return &types.ProjectBrief{
		Title:                    p.Title,
		Subtitle:                 p.Subtitle,
		DescriptionHTML:          p.DescriptionHTML,
		DifficultyLevel:          p.DifficultyLevel,
		EstimatedDurationHours:   p.EstimatedDurationHours,
		LearningObjectives:       datatypes.JSON(objectives),
		ExpectedDeliverables:     datatypes.JSON(deliverables),
		KeyTasks:                 datatypes.JSON(tasks),
		SuggestedTools:           datatypes.JSON(tools),
		AssessmentRubric:         datatypes.JSON(rubric),
		PersonalizationRationale: p.PersonalizationRationale,
		LanguageCode:             language,
		CreatedByID:              createdBy,
	}, nil
}

func buildIdeasPrompt(input GenerateIdeasInput, count int, language string) prompts.Prompt {
	var sys strings.Builder
	sys.WriteString("You are an expert instructional designer for a hands-on online learning platform. ")
	sys.WriteString("You design realistic practice projects that a learner can complete independently and that map to their career context. ")
	sys.WriteString("Every project needs a weighted assessment rubric whose weights sum to exactly 100.")

	var user strings.Builder
	fmt.Fprintf(&user, "Generate %d distinct project ideas for this learner.\n\n", count)
	user.WriteString("Learner profile:\n")
	fmt.Fprintf(&user, "  Industry: %s\n", input.Profile.Industry)
	if input.Profile.Profession != "" {
		fmt.Fprintf(&user, "  Profession: %s\n", input.Profile.Profession)
	}
	if input.Profile.CareerInterest != "" {
		fmt.Fprintf(&user, "  Career interest: %s\n", input.Profile.CareerInterest)
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
	if input.CourseContextSummary != "" {
		fmt.Fprintf(&user, "\nCourse context:\n%s\n", input.CourseContextSummary)
	}
	if len(input.TopicKeywords) > 0 {
		fmt.Fprintf(&user, "\nTopic keywords: %s\n", strings.Join(input.TopicKeywords, ", "))
	}
	if input.Preferences.DifficultyLevel != "" {
		fmt.Fprintf(&user, "Required difficulty level: %s\n", input.Preferences.DifficultyLevel)
	}
	if len(input.Preferences.PreferredTechnologies) > 0 {
		fmt.Fprintf(&user, "Preferred technologies: %s\n", strings.Join(input.Preferences.PreferredTechnologies, ", "))
	}
	if input.Preferences.DurationBand != "" {
		fmt.Fprintf(&user, "Target duration: %s\n", input.Preferences.DurationBand)
	}
	fmt.Fprintf(&user, "\nWrite all user-facing text in language %q. Explain in personalization_rationale why each project fits this learner.", language)

	return prompts.Prompt{
		Name:       "project_ideas",
		Version:    1,
		System:     sys.String(),
		User:       user.String(),
		SchemaName: prompts.SchemaNameProjectIdeas,
		Schema:     prompts.ProjectIdeasSchema(),
	}
}
