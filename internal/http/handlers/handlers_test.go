package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	videorepos "github.com/uplas/uplas-backend/internal/data/repos/videojobs"
	types "github.com/uplas/uplas-backend/internal/domain"
	uplashttp "github.com/uplas/uplas-backend/internal/http"
	"github.com/uplas/uplas-backend/internal/http/handlers"
	"github.com/uplas/uplas-backend/internal/http/middleware"
	"github.com/uplas/uplas-backend/internal/pkg/apperr"
	"github.com/uplas/uplas-backend/internal/pkg/logger"
	"github.com/uplas/uplas-backend/internal/services/projects"
	"github.com/uplas/uplas-backend/internal/services/tts"
	"github.com/uplas/uplas-backend/internal/services/ttv"
	"github.com/uplas/uplas-backend/internal/services/tutor"
)

const testSecret = "handler-test-secret"

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

type fakeGenerator struct {
	lastInput projects.GenerateIdeasInput
	briefs    []*types.ProjectBrief
	err       error
}

func (f *fakeGenerator) GenerateIdeas(ctx context.Context, input projects.GenerateIdeasInput) ([]*types.ProjectBrief, projects.GenerationDebug, error) {
	f.lastInput = input
	if f.err != nil {
		return nil, projects.GenerationDebug{}, f.err
	}
	return f.briefs, projects.GenerationDebug{Model: "fake-model-1"}, nil
}

type fakeAssessor struct {
	lastInput projects.AssessInput
	result    projects.AssessResult
	err       error
}

func (f *fakeAssessor) Assess(ctx context.Context, input projects.AssessInput) (projects.AssessResult, error) {
	f.lastInput = input
	if f.err != nil {
		return projects.AssessResult{}, f.err
	}
	return f.result, nil
}

type fakeSubmissions struct {
	lastInput projects.SubmitInput
	sub       *types.ProjectSubmission
	err       error
}

func (f *fakeSubmissions) Submit(ctx context.Context, input projects.SubmitInput) (*types.ProjectSubmission, error) {
	f.lastInput = input
	if f.err != nil {
		return nil, f.err
	}
	return f.sub, nil
}

type fakeTutorService struct {
	lastInput tutor.AskInput
	result    tutor.AskResult
	err       error
}

func (f *fakeTutorService) Ask(ctx context.Context, input tutor.AskInput) (tutor.AskResult, error) {
	f.lastInput = input
	if f.err != nil {
		return tutor.AskResult{}, f.err
	}
	return f.result, nil
}

type fakeTTSService struct {
	lastInput tts.SynthesizeInput
	out       *tts.SynthesizeOutput
	err       error
}

func (f *fakeTTSService) Synthesize(ctx context.Context, input tts.SynthesizeInput) (*tts.SynthesizeOutput, error) {
	f.lastInput = input
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

type fakeJobRepo struct {
	jobs     map[uuid.UUID]*types.VideoJob
	inFlight int64
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: map[uuid.UUID]*types.VideoJob{}}
}

func (f *fakeJobRepo) Create(ctx context.Context, tx *gorm.DB, job *types.VideoJob) (*types.VideoJob, error) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	job.CreatedAt = time.Now()
	f.jobs[job.ID] = job
	return job, nil
}

func (f *fakeJobRepo) GetByID(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) (*types.VideoJob, error) {
	return f.jobs[jobID], nil
}

func (f *fakeJobRepo) GetRecentBySubmitter(ctx context.Context, tx *gorm.DB, submitterID uuid.UUID, limit int) ([]*types.VideoJob, error) {
	var out []*types.VideoJob
	for _, job := range f.jobs {
		if job.SubmitterID == submitterID {
			out = append(out, job)
		}
	}
	return out, nil
}

func (f *fakeJobRepo) CountInFlightBySubmitter(ctx context.Context, tx *gorm.DB, submitterID uuid.UUID) (int64, error) {
	return f.inFlight, nil
}

func (f *fakeJobRepo) ClaimNextRunnable(ctx context.Context, tx *gorm.DB, staleRunning time.Duration) (*types.VideoJob, error) {
	return nil, nil
}

func (f *fakeJobRepo) UpdateFields(ctx context.Context, tx *gorm.DB, jobID uuid.UUID, updates map[string]interface{}) error {
	return nil
}

func (f *fakeJobRepo) Heartbeat(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) error {
	return nil
}

func (f *fakeJobRepo) MarkOrphansFailed(ctx context.Context, tx *gorm.DB, olderThan time.Duration) (int64, error) {
	return 0, nil
}

var _ videorepos.VideoJobRepo = (*fakeJobRepo)(nil)

type fixture struct {
	engine      *gin.Engine
	generator   *fakeGenerator
	assessor    *fakeAssessor
	submissions *fakeSubmissions
	tutor       *fakeTutorService
	tts         *fakeTTSService
	jobs        *fakeJobRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := testLogger(t)

	auth, err := middleware.NewAuthMiddleware(log, testSecret)
	if err != nil {
		t.Fatalf("auth middleware: %v", err)
	}

	f := &fixture{
		generator:   &fakeGenerator{},
		assessor:    &fakeAssessor{},
		submissions: &fakeSubmissions{},
		tutor:       &fakeTutorService{},
		tts:         &fakeTTSService{},
		jobs:        newFakeJobRepo(),
	}

	characters, err := ttv.NewCharacterManager(log)
	if err != nil {
		t.Fatalf("character manager: %v", err)
	}
	ttvService := ttv.NewService(log, ttv.Config{InFlightLimit: 2}, f.jobs, nil, nil, nil, characters)
	languages := handlers.NewLanguages("en-US", []string{"en-US", "en-GB", "fr-FR"})

	f.engine = uplashttp.NewRouter(uplashttp.RouterConfig{
		Log:            log,
		AuthMiddleware: auth,
		ProjectHandler: handlers.NewProjectHandler(f.generator, f.assessor, f.submissions, languages),
		TutorHandler:   handlers.NewTutorHandler(f.tutor, languages),
		TTSHandler:     handlers.NewTTSHandler(f.tts, languages),
		VideoHandler:   handlers.NewVideoHandler(ttvService, f.jobs, languages),
		HealthHandler:  handlers.NewHealthHandler(nil),
	})
	return f
}

func signToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func (f *fixture) do(t *testing.T, method, path string, body any, userID uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != uuid.Nil {
		req.Header.Set("Authorization", "Bearer "+signToken(t, userID))
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func profileBody() map[string]any {
	return map[string]any{"industry": "Finance", "career_interest": "Data Engineering"}
}

func TestHealthCheckPublic(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health", nil, uuid.Nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"healthy"`) {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/v1/ask-tutor", map[string]any{"query_text": "hi"}, uuid.Nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestProtectedRoutesRejectBadSignature(t *testing.T) {
	f := newFixture(t)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": uuid.New().String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("some-other-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/v1/video-jobs", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestGenerateIdeas(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	f.generator.briefs = []*types.ProjectBrief{{ID: uuid.New(), Title: "Churn dashboard"}}

	rec := f.do(t, http.MethodPost, "/v1/generate-project-ideas", map[string]any{
		"user_profile_snapshot": profileBody(),
		"number_of_ideas":       2,
		"language_code":         "en-US",
	}, userID)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		GeneratedProjects []types.ProjectBrief `json:"generated_projects"`
		Debug             struct {
			Model string `json:"model"`
		} `json:"debug_info"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.GeneratedProjects) != 1 || payload.GeneratedProjects[0].Title != "Churn dashboard" {
		t.Fatalf("unexpected briefs: %+v", payload.GeneratedProjects)
	}
	if payload.Debug.Model != "fake-model-1" {
		t.Fatalf("debug model = %q", payload.Debug.Model)
	}
	if f.generator.lastInput.Profile.Industry != "Finance" {
		t.Fatalf("profile not forwarded: %+v", f.generator.lastInput.Profile)
	}
	if f.generator.lastInput.RequestedBy == nil || *f.generator.lastInput.RequestedBy != userID {
		t.Fatalf("requested_by not set from token subject")
	}
}

func TestGenerateIdeasRequiresProfile(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/v1/generate-project-ideas", map[string]any{
		"number_of_ideas": 2,
	}, uuid.New())
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestGenerateIdeasUpstreamFailure(t *testing.T) {
	f := newFixture(t)
	f.generator.err = fmt.Errorf("%w: provider down", apperr.ErrUpstreamUnavailable)

	rec := f.do(t, http.MethodPost, "/v1/generate-project-ideas", map[string]any{
		"user_profile_snapshot": profileBody(),
	}, uuid.New())
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "provider down") {
		t.Fatalf("5xx response leaked upstream detail: %s", rec.Body.String())
	}
}

func TestAssessSubmission(t *testing.T) {
	f := newFixture(t)
	score := 0.9
	f.assessor.result = projects.AssessResult{
		Assessment: &types.ProjectAssessment{ID: uuid.New(), OverallCompetencyScore: &score, IsPassed: true},
		Created:    true,
	}

	rec := f.do(t, http.MethodPost, "/v1/assess-project-submission", map[string]any{
		"submission_id":         uuid.New().String(),
		"user_profile_snapshot": profileBody(),
		"force":                 true,
	}, uuid.New())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !f.assessor.lastInput.Force {
		t.Fatalf("force flag not forwarded")
	}
	if !strings.Contains(rec.Body.String(), `"assessment_result"`) {
		t.Fatalf("assessment_result missing: %s", rec.Body.String())
	}
}

func TestAssessNewSubmissionWithArtifacts(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	briefID := uuid.New()
	submissionID := uuid.New()
	f.submissions.sub = &types.ProjectSubmission{ID: submissionID, BriefID: briefID, SubmitterID: userID, SubmissionVersion: 1}
	score := 0.9
	f.assessor.result = projects.AssessResult{
		Assessment: &types.ProjectAssessment{ID: uuid.New(), SubmissionID: submissionID, OverallCompetencyScore: &score, IsPassed: true},
		Created:    true,
	}

	rec := f.do(t, http.MethodPost, "/v1/assess-project-submission", map[string]any{
		"brief_id": briefID.String(),
		"artifacts": []map[string]any{
			{"kind": "text_report", "payload": "We built a reconciliation pipeline."},
			{"kind": "repository_url", "payload": "https://github.com/example/recon"},
		},
		"submission_notes":      "Second attempt after feedback.",
		"user_profile_snapshot": profileBody(),
	}, userID)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if f.submissions.lastInput.BriefID != briefID {
		t.Fatalf("brief_id not forwarded")
	}
	if f.submissions.lastInput.SubmitterID != userID {
		t.Fatalf("submitter must come from the token")
	}
	if len(f.submissions.lastInput.Artifacts) != 2 {
		t.Fatalf("artifacts = %d, want 2", len(f.submissions.lastInput.Artifacts))
	}
	if f.submissions.lastInput.Notes != "Second attempt after feedback." {
		t.Fatalf("notes not forwarded")
	}
	if f.assessor.lastInput.SubmissionID != submissionID {
		t.Fatalf("assessor must grade the freshly created submission")
	}
}

func TestAssessNewSubmissionRejectsUnknownArtifactKind(t *testing.T) {
	f := newFixture(t)
	f.submissions.err = fmt.Errorf("%w: artifact 1 has unknown kind %q", apperr.ErrInvalidArgument, "hologram")

	rec := f.do(t, http.MethodPost, "/v1/assess-project-submission", map[string]any{
		"brief_id":              uuid.New().String(),
		"artifacts":             []map[string]any{{"kind": "hologram", "payload": "x"}},
		"user_profile_snapshot": profileBody(),
	}, uuid.New())
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if f.assessor.lastInput.SubmissionID != uuid.Nil {
		t.Fatalf("assessor must not run when intake is rejected")
	}
}

func TestAssessSubmissionExistingReturnsOK(t *testing.T) {
	f := newFixture(t)
	f.assessor.result = projects.AssessResult{
		Assessment: &types.ProjectAssessment{ID: uuid.New()},
		Created:    false,
	}

	rec := f.do(t, http.MethodPost, "/v1/assess-project-submission", map[string]any{
		"submission_id":         uuid.New().String(),
		"user_profile_snapshot": profileBody(),
	}, uuid.New())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestAssessSubmissionNotFound(t *testing.T) {
	f := newFixture(t)
	f.assessor.err = fmt.Errorf("%w: submission", apperr.ErrNotFound)

	rec := f.do(t, http.MethodPost, "/v1/assess-project-submission", map[string]any{
		"submission_id":         uuid.New().String(),
		"user_profile_snapshot": profileBody(),
	}, uuid.New())
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestAskTutor(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	f.tutor.result = tutor.AskResult{
		Response: &types.TutorResponse{MainAnswerText: "A closure captures its scope."},
	}

	rec := f.do(t, http.MethodPost, "/v1/ask-tutor", map[string]any{
		"query_text":            "What is a closure?",
		"user_profile_snapshot": profileBody(),
		"language_code":         "en-US",
	}, userID)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if f.tutor.lastInput.UserID != userID {
		t.Fatalf("user id not taken from token subject")
	}
	if !strings.Contains(rec.Body.String(), "closure captures") {
		t.Fatalf("answer missing from body: %s", rec.Body.String())
	}
}

func TestAskTutorRejectsUnknownLanguage(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/v1/ask-tutor", map[string]any{
		"query_text":            "What is a closure?",
		"user_profile_snapshot": profileBody(),
		"language_code":         "xx-ZZ",
	}, uuid.New())
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestAskTutorDefaultsLanguage(t *testing.T) {
	f := newFixture(t)
	f.tutor.result = tutor.AskResult{Response: &types.TutorResponse{MainAnswerText: "ok"}}
	rec := f.do(t, http.MethodPost, "/v1/ask-tutor", map[string]any{
		"query_text":            "hi",
		"user_profile_snapshot": profileBody(),
	}, uuid.New())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if f.tutor.lastInput.LanguageCode != "en-US" {
		t.Fatalf("language = %q, want default en-US", f.tutor.lastInput.LanguageCode)
	}
}

func TestAskTutorRequiresQuery(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/v1/ask-tutor", map[string]any{
		"user_profile_snapshot": profileBody(),
	}, uuid.New())
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestSynthesize(t *testing.T) {
	f := newFixture(t)
	f.tts.out = &tts.SynthesizeOutput{
		AudioURL:       "https://cdn.example.com/tts_audio/abc.mp3",
		VoiceUsed:      tts.VoiceSelection{VoiceName: "en-US-Wavenet-F", LanguageCode: "en-US", QualityTierUsed: "wavenet"},
		CharacterCount: 11,
	}

	rec := f.do(t, http.MethodPost, "/v1/synthesize-speech", map[string]any{
		"content":                "<speak>Hello <emphasis level='strong'>Uplas</emphasis></speak>",
		"input_type":             "ssml",
		"voice_character_name":   "susan_us",
		"prefer_premium_quality": true,
		"audio_encoding":         "MP3",
	}, uuid.New())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !f.tts.lastInput.PreferPremium || f.tts.lastInput.VoiceCharacter != "susan_us" {
		t.Fatalf("input not forwarded: %+v", f.tts.lastInput)
	}
	if !f.tts.lastInput.SSML {
		t.Fatalf("input_type ssml not mapped to SSML flag")
	}
	if !strings.Contains(rec.Body.String(), "tts_audio/abc.mp3") {
		t.Fatalf("audio url missing: %s", rec.Body.String())
	}
}

func TestSynthesizeRejectsUnknownInputType(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/v1/synthesize-speech", map[string]any{
		"content":    "Hello",
		"input_type": "markdown",
	}, uuid.New())
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestSubmitVideoJob(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	rec := f.do(t, http.MethodPost, "/v1/generate-video", map[string]any{
		"content_source":       map[string]any{"raw_text_content": "Welcome to the course."},
		"instructor_character": "susan_us",
	}, userID)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		JobID  uuid.UUID `json:"job_id"`
		Status string    `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Status != types.VideoJobStatusPending {
		t.Fatalf("status = %q, want pending", payload.Status)
	}
	if f.jobs.jobs[payload.JobID] == nil {
		t.Fatalf("job not persisted")
	}
}

func TestSubmitVideoJobQueueFull(t *testing.T) {
	f := newFixture(t)
	f.jobs.inFlight = 2

	rec := f.do(t, http.MethodPost, "/v1/generate-video", map[string]any{
		"content_source":       map[string]any{"raw_text_content": "Welcome."},
		"instructor_character": "susan_us",
	}, uuid.New())
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
}

func TestGetVideoJobHidesOtherSubmitters(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	stranger := uuid.New()
	job, err := f.jobs.Create(context.Background(), nil, &types.VideoJob{SubmitterID: owner, Status: types.VideoJobStatusCompleted})
	if err != nil {
		t.Fatalf("seed job: %v", err)
	}

	rec := f.do(t, http.MethodGet, "/v1/video-status/"+job.ID.String(), nil, stranger)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("stranger status = %d, want 404", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/v1/video-status/"+job.ID.String(), nil, owner)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), job.ID.String()) {
		t.Fatalf("job snapshot missing id: %s", rec.Body.String())
	}
}

func TestListVideoJobs(t *testing.T) {
	f := newFixture(t)
	owner := uuid.New()
	if _, err := f.jobs.Create(context.Background(), nil, &types.VideoJob{SubmitterID: owner, Status: types.VideoJobStatusPending}); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	if _, err := f.jobs.Create(context.Background(), nil, &types.VideoJob{SubmitterID: uuid.New(), Status: types.VideoJobStatusPending}); err != nil {
		t.Fatalf("seed job: %v", err)
	}

	rec := f.do(t, http.MethodGet, "/v1/video-jobs", nil, owner)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload struct {
		Jobs []types.VideoJob `json:"jobs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Jobs) != 1 || payload.Jobs[0].SubmitterID != owner {
		t.Fatalf("unexpected jobs: %+v", payload.Jobs)
	}
}
