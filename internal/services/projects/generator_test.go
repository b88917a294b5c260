package projects

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/uplas/uplas-backend/internal/clients/llm"
	types "github.com/uplas/uplas-backend/internal/domain"
	"github.com/uplas/uplas-backend/internal/pkg/apperr"
	"github.com/uplas/uplas-backend/internal/pkg/logger"
)

type llmCall struct {
	System    string
	UserQuery string
}

// fakeLLM replays canned replies (or errors) in order.
type fakeLLM struct {
	replies []string
	errs    []error
	calls   []llmCall
}

func (f *fakeLLM) GenerateStructuredResponse(_ context.Context, system, userQuery, _ string, _ map[string]any, _ int, _ string) (llm.GenerateResult, error) {
	i := len(f.calls)
	f.calls = append(f.calls, llmCall{System: system, UserQuery: userQuery})
	if i < len(f.errs) && f.errs[i] != nil {
		return llm.GenerateResult{}, f.errs[i]
	}
	if i >= len(f.replies) {
		return llm.GenerateResult{}, errors.New("fakeLLM: no reply configured")
	}
	return llm.GenerateResult{RawText: f.replies[i], PromptTokens: 100, ResponseTokens: 200}, nil
}

func (f *fakeLLM) ModelName() string { return "fake-model-1" }

// memBriefRepo stores briefs in memory.
type memBriefRepo struct {
	created []*types.ProjectBrief
}

func (m *memBriefRepo) Create(_ context.Context, _ *gorm.DB, briefs []*types.ProjectBrief) ([]*types.ProjectBrief, error) {
	for _, b := range briefs {
		if b.ID == uuid.Nil {
			b.ID = uuid.New()
		}
	}
	m.created = append(m.created, briefs...)
	return briefs, nil
}

func (m *memBriefRepo) GetByID(_ context.Context, _ *gorm.DB, briefID uuid.UUID) (*types.ProjectBrief, error) {
	for _, b := range m.created {
		if b.ID == briefID {
			return b, nil
		}
	}
	return nil, nil
}

func (m *memBriefRepo) GetByIDs(_ context.Context, _ *gorm.DB, briefIDs []uuid.UUID) ([]*types.ProjectBrief, error) {
	var out []*types.ProjectBrief
	for _, id := range briefIDs {
		if b, _ := m.GetByID(context.Background(), nil, id); b != nil {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memBriefRepo) SoftDeleteByIDs(_ context.Context, _ *gorm.DB, _ []uuid.UUID) error {
	return nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func briefJSON(title string, weightA, weightB int) string {
	return fmt.Sprintf(`{
		"title": %q,
		"subtitle": "a practice project",
		"description_html": "<p>Build it.</p>",
		"difficulty_level": "intermediate",
		"estimated_duration_hours": 10,
		"learning_objectives": ["learn things"],
		"expected_deliverables": ["a repo"],
		"key_tasks": [{"id": "t1", "title": "Start", "description": "Do the first part."}],
		"suggested_tools": ["Go"],
		"assessment_rubric": [
			{"criterion": "Design", "weight": %d},
			{"criterion": "Implementation", "weight": %d}
		],
		"personalization_rationale": "Fits the learner's fintech background."
	}`, title, weightA, weightB)
}

func ideasJSON(briefs ...string) string {
	return `{"generated_projects": [` + strings.Join(briefs, ",") + `]}`
}

func baseInput() GenerateIdeasInput {
	return GenerateIdeasInput{
		Profile: types.UserProfileSnapshot{
			Industry:        "fintech",
			Profession:      "backend engineer",
			LearningGoals:   "design resilient payment systems",
			AreasOfInterest: []string{"distributed systems"},
		},
		NumberOfIdeas: 2,
		LanguageCode:  "en-US",
	}
}

func TestGenerateIdeasSuccess(t *testing.T) {
	fake := &fakeLLM{replies: []string{ideasJSON(
		briefJSON("Payment Reconciliation Service", 60, 40),
		briefJSON("Fraud Signal Dashboard", 50, 50),
	)}}
	repo := &memBriefRepo{}
	svc := NewGeneratorService(testLogger(t), fake, repo)

	briefs, debug, err := svc.GenerateIdeas(context.Background(), baseInput())
	if err != nil {
		t.Fatalf("GenerateIdeas: %v", err)
	}
	if len(briefs) != 2 {
		t.Fatalf("got %d briefs, want 2", len(briefs))
	}
	if len(repo.created) != 2 {
		t.Fatalf("expected briefs persisted, got %d", len(repo.created))
	}
	if briefs[0].Title != "Payment Reconciliation Service" {
		t.Errorf("unexpected title %q", briefs[0].Title)
	}
	if briefs[0].LanguageCode != "en-US" {
		t.Errorf("language not carried onto brief: %q", briefs[0].LanguageCode)
	}
	if debug.Model != "fake-model-1" || debug.PromptFingerprint == "" {
		t.Errorf("debug info incomplete: %+v", debug)
	}
	if debug.PromptTokens != 100 || debug.ResponseTokens != 200 {
		t.Errorf("token counts not carried: %+v", debug)
	}
	if len(fake.calls) != 1 {
		t.Errorf("expected a single model call, got %d", len(fake.calls))
	}
	if !strings.Contains(fake.calls[0].UserQuery, "fintech") {
		t.Errorf("profile not rendered into the user prompt")
	}
}

func TestGenerateIdeasCorrectiveReprompt(t *testing.T) {
	fake := &fakeLLM{replies: []string{
		"Sure! Here are some ideas you might like.",
		ideasJSON(briefJSON("Inventory Forecaster", 70, 30)),
	}}
	repo := &memBriefRepo{}
	svc := NewGeneratorService(testLogger(t), fake, repo)

	briefs, _, err := svc.GenerateIdeas(context.Background(), baseInput())
	if err != nil {
		t.Fatalf("GenerateIdeas: %v", err)
	}
	if len(briefs) != 1 {
		t.Fatalf("got %d briefs, want 1", len(briefs))
	}
	if len(fake.calls) != 2 {
		t.Fatalf("expected corrective reprompt, got %d calls", len(fake.calls))
	}
	if !strings.Contains(fake.calls[1].UserQuery, correctiveReprompt) {
		t.Errorf("second call missing corrective instruction:\n%s", fake.calls[1].UserQuery)
	}
}

func TestGenerateIdeasUnrecoverableOutput(t *testing.T) {
	fake := &fakeLLM{replies: []string{"not json", "still not json"}}
	svc := NewGeneratorService(testLogger(t), fake, &memBriefRepo{})

	_, _, err := svc.GenerateIdeas(context.Background(), baseInput())
	if !errors.Is(err, apperr.ErrGeneration) {
		t.Fatalf("got %v, want ErrGeneration", err)
	}
	if len(fake.calls) != 2 {
		t.Errorf("expected exactly one corrective reprompt, got %d calls", len(fake.calls))
	}
}

func TestGenerateIdeasEmptyListFails(t *testing.T) {
	fake := &fakeLLM{replies: []string{ideasJSON()}}
	repo := &memBriefRepo{}
	svc := NewGeneratorService(testLogger(t), fake, repo)

	_, _, err := svc.GenerateIdeas(context.Background(), baseInput())
	if !errors.Is(err, apperr.ErrGeneration) {
		t.Fatalf("got %v, want ErrGeneration", err)
	}
	if len(repo.created) != 0 {
		t.Errorf("nothing should be persisted on generation failure")
	}
}

func TestGenerateIdeasDiscardsBadRubric(t *testing.T) {
	fake := &fakeLLM{replies: []string{ideasJSON(
		briefJSON("Good Project", 50, 50),
		briefJSON("Bad Rubric Project", 50, 30),
	)}}
	repo := &memBriefRepo{}
	svc := NewGeneratorService(testLogger(t), fake, repo)

	briefs, _, err := svc.GenerateIdeas(context.Background(), baseInput())
	if err != nil {
		t.Fatalf("GenerateIdeas: %v", err)
	}
	if len(briefs) != 1 || briefs[0].Title != "Good Project" {
		t.Fatalf("expected only the rubric-valid brief, got %d", len(briefs))
	}
}

func TestGenerateIdeasUpstreamErrorPassesThrough(t *testing.T) {
	fake := &fakeLLM{errs: []error{fmt.Errorf("%w: boom", apperr.ErrUpstreamUnavailable)}}
	svc := NewGeneratorService(testLogger(t), fake, &memBriefRepo{})

	_, _, err := svc.GenerateIdeas(context.Background(), baseInput())
	if !errors.Is(err, apperr.ErrUpstreamUnavailable) {
		t.Fatalf("got %v, want ErrUpstreamUnavailable", err)
	}
}

func TestGenerateIdeasRejectsUnknownDifficulty(t *testing.T) {
	input := baseInput()
	input.Preferences.DifficultyLevel = "impossible"
	svc := NewGeneratorService(testLogger(t), &fakeLLM{}, &memBriefRepo{})

	_, _, err := svc.GenerateIdeas(context.Background(), input)
	if !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("got %v, want ErrInvalidArgument", err)
	}
}
