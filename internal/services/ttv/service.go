package ttv

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/uplas/uplas-backend/internal/clients/avatar"
	videorepos "github.com/uplas/uplas-backend/internal/data/repos/videojobs"
	types "github.com/uplas/uplas-backend/internal/domain"
	"github.com/uplas/uplas-backend/internal/pkg/apperr"
	"github.com/uplas/uplas-backend/internal/pkg/logger"
	ttssvc "github.com/uplas/uplas-backend/internal/services/tts"
	tutorsvc "github.com/uplas/uplas-backend/internal/services/tutor"
	"github.com/uplas/uplas-backend/internal/utils"
)

// Config bounds the pipeline. Defaults match production; tests tighten them.
type Config struct {
	PollInterval    time.Duration
	PollBackoffMax  time.Duration
	MaxDuration     time.Duration
	InFlightLimit   int
	CallbackURL     string
	CallbackRetries int
}

func ConfigFromEnv(log *logger.Logger) Config {
	return Config{
		PollInterval:    time.Duration(utils.GetEnvAsInt("TTV_POLL_INTERVAL_SECONDS", 10, log)) * time.Second,
		PollBackoffMax:  time.Duration(utils.GetEnvAsInt("TTV_POLL_BACKOFF_MAX_SECONDS", 60, log)) * time.Second,
		MaxDuration:     time.Duration(utils.GetEnvAsInt("TTV_MAX_DURATION_SECONDS", 1800, log)) * time.Second,
		InFlightLimit:   utils.GetEnvAsInt("TTV_MAX_INFLIGHT_PER_USER", 5, log),
		CallbackURL:     utils.GetEnv("TTV_CALLBACK_URL", "", log),
		CallbackRetries: utils.GetEnvAsInt("TTV_CALLBACK_RETRIES", 3, log),
	}
}

// Service owns the text-to-video pipeline: Submit persists a pending job and
// returns immediately; Run drives one claimed job through script, audio,
// avatar render, and callback.
type Service struct {
	log        *logger.Logger
	cfg        Config
	jobs       videorepos.VideoJobRepo
	tutor      tutorsvc.Service
	tts        ttssvc.Service
	avatar     avatar.Client
	characters *CharacterManager
	httpClient *http.Client
}

func NewService(
	baseLog *logger.Logger,
	cfg Config,
	jobs videorepos.VideoJobRepo,
	tutor tutorsvc.Service,
	tts ttssvc.Service,
	avatarClient avatar.Client,
	characters *CharacterManager,
) *Service {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.PollBackoffMax < cfg.PollInterval {
		cfg.PollBackoffMax = 60 * time.Second
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = 30 * time.Minute
	}
	if cfg.InFlightLimit <= 0 {
		cfg.InFlightLimit = 5
	}
	if cfg.CallbackRetries <= 0 {
		cfg.CallbackRetries = 3
	}
	return &Service{
		log:        baseLog.With("service", "TTVService"),
		cfg:        cfg,
		jobs:       jobs,
		tutor:      tutor,
		tts:        tts,
		avatar:     avatarClient,
		characters: characters,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Submit validates and enqueues a generation request. The pipeline itself
// runs in the background worker; callers poll the job status endpoint.
func (s *Service) Submit(ctx context.Context, submitterID uuid.UUID, req types.VideoGenerationRequest) (*types.VideoJob, error) {
	if submitterID == uuid.Nil {
		return nil, fmt.Errorf("%w: submitter required", apperr.ErrInvalidArgument)
	}
	if strings.TrimSpace(req.ContentSource.RawTextContent) == "" && strings.TrimSpace(req.ContentSource.Query) == "" {
		return nil, fmt.Errorf("%w: content_source needs raw_text_content or query", apperr.ErrInvalidArgument)
	}
	if req.InstructorCharacter == "" {
		return nil, fmt.Errorf("%w: instructor_character required", apperr.ErrInvalidArgument)
	}
	if !s.characters.Known(req.InstructorCharacter) {
		return nil, fmt.Errorf("%w: unknown instructor_character %q", apperr.ErrInvalidArgument, req.InstructorCharacter)
	}
	if req.LearningPacePreference != "" {
		if _, ok := pauseBreakMS[req.LearningPacePreference]; !ok {
			return nil, fmt.Errorf("%w: unknown learning_pace_preference %q", apperr.ErrInvalidArgument, req.LearningPacePreference)
		}
	}

	inFlight, err := s.jobs.CountInFlightBySubmitter(ctx, nil, submitterID)
	if err != nil {
		return nil, fmt.Errorf("%w: count in-flight jobs: %v", apperr.ErrStorage, err)
	}
	if inFlight >= int64(s.cfg.InFlightLimit) {
		return nil, fmt.Errorf("%w: video job queue full (%d in flight)", apperr.ErrQuotaExceeded, inFlight)
	}

	frozen, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", apperr.ErrInvalidArgument, err)
	}
	job, err := s.jobs.Create(ctx, nil, &types.VideoJob{
		SubmitterID: submitterID,
		Request:     frozen,
		Status:      types.VideoJobStatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create video job: %v", apperr.ErrStorage, err)
	}

	s.log.Info("video job submitted", "job_id", job.ID.String(), "submitter_id", submitterID.String())
	return job, nil
}

// Run executes the pipeline for one claimed job. It always leaves the job in
// a terminal state and fires the completion callback before returning.
func (s *Service) Run(ctx context.Context, job *types.VideoJob) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.MaxDuration)
	defer cancel()

	err := s.run(ctx, job)
	if err != nil {
		// Terminal bookkeeping must survive the pipeline context dying.
		failCtx, failCancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
		defer failCancel()
		if updErr := s.jobs.UpdateFields(failCtx, nil, job.ID, map[string]interface{}{
			"status":        types.VideoJobStatusFailed,
			"error_message": err.Error(),
		}); updErr != nil {
			s.log.Error("marking video job failed", "job_id", job.ID.String(), "error", updErr.Error())
		}
		s.log.Warn("video job failed", "job_id", job.ID.String(), "error", err.Error())
	}
	s.notifyCallback(job.ID)
	return err
}

func (s *Service) run(ctx context.Context, job *types.VideoJob) error {
	var req types.VideoGenerationRequest
	if err := json.Unmarshal(job.Request, &req); err != nil {
		return fmt.Errorf("stored request unreadable: %w", err)
	}

	script, err := s.resolveScript(ctx, job, req)
	if err != nil {
		return err
	}
	cues := ExtractVisualCues(script)
	cuesJSON, _ := json.Marshal(cues)
	if err := s.jobs.UpdateFields(ctx, nil, job.ID, map[string]interface{}{
		"status":           types.VideoJobStatusScriptReady,
		"script_preview":   ScriptPreview(script),
		"visual_cues":      cuesJSON,
		"progress_percent": 20,
	}); err != nil {
		return fmt.Errorf("persist script stage: %w", err)
	}
	_ = s.jobs.Heartbeat(ctx, nil, job.ID)

	pace := req.LearningPacePreference
	if pace == "" {
		pace = PaceNormal
	}
	ssml := BuildSSML(script, pace)

	voiceCharacter := req.VoiceCharacter
	if voiceCharacter == "" {
		voiceCharacter = req.InstructorCharacter
	}
	audio, err := s.tts.Synthesize(ctx, ttssvc.SynthesizeInput{
		Content:        ssml,
		SSML:           true,
		VoiceCharacter: voiceCharacter,
		LanguageCode:   req.LanguageCode,
		PreferPremium:  req.PreferPremiumVoice,
	})
	if err != nil {
		return fmt.Errorf("synthesize narration: %w", err)
	}
	if err := s.jobs.UpdateFields(ctx, nil, job.ID, map[string]interface{}{
		"status":           types.VideoJobStatusAudioReady,
		"audio_url":        audio.AudioURL,
		"progress_percent": 40,
	}); err != nil {
		return fmt.Errorf("persist audio stage: %w", err)
	}
	_ = s.jobs.Heartbeat(ctx, nil, job.ID)

	avatarID, attireID, err := s.characters.ResolveAvatar(req.InstructorCharacter, req.AdditionalInstructions, jobSeed(job.ID))
	if err != nil {
		return err
	}
	submitted, err := s.avatar.SubmitJob(ctx, avatar.SubmitRequest{
		AvatarID:   avatarID,
		AttireID:   attireID,
		Background: ResolveBackground(req.BackgroundThemePreference),
		AudioURL:   audio.AudioURL,
		ScriptText: script,
		Language:   req.LanguageCode,
	})
	if err != nil {
		return fmt.Errorf("submit avatar render: %w", err)
	}
	if err := s.jobs.UpdateFields(ctx, nil, job.ID, map[string]interface{}{
		"status":           types.VideoJobStatusAvatarSubmitted,
		"avatar_job_id":    submitted.JobID,
		"progress_percent": 50,
	}); err != nil {
		return fmt.Errorf("persist avatar stage: %w", err)
	}
	_ = s.jobs.Heartbeat(ctx, nil, job.ID)

	return s.pollUntilDone(ctx, job.ID, submitted.JobID)
}

// resolveScript either takes the caller's raw text or asks the tutor to write
// a narration for the (query, module, topic) triple.
func (s *Service) resolveScript(ctx context.Context, job *types.VideoJob, req types.VideoGenerationRequest) (string, error) {
	if raw := strings.TrimSpace(req.ContentSource.RawTextContent); raw != "" {
		return raw, nil
	}

	profile := types.UserProfileSnapshot{}
	if req.UserProfile != nil {
		profile = *req.UserProfile
	}
	res, err := s.tutor.Ask(ctx, tutorsvc.AskInput{
		UserID: job.SubmitterID,
		Query: "Write a spoken video narration script answering the following, in a natural teaching voice: " +
			req.ContentSource.Query,
		Profile: profile,
		Context: &types.TutorContext{
			ModuleID: req.ContentSource.ModuleID,
			TopicID:  req.ContentSource.TopicID,
		},
		LanguageCode: req.LanguageCode,
	})
	if err != nil {
		return "", fmt.Errorf("generate script: %w", err)
	}
	script := strings.TrimSpace(res.Response.MainAnswerText)
	if script == "" {
		return "", fmt.Errorf("%w: tutor produced an empty script", apperr.ErrGeneration)
	}
	return script, nil
}

// pollUntilDone watches the avatar render. Poll failures back off up to the
// cap without failing the job; only the pipeline deadline or a provider
// failure terminates it unfinished.
func (s *Service) pollUntilDone(ctx context.Context, jobID uuid.UUID, avatarJobID string) error {
	interval := s.cfg.PollInterval
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("render timed out after %s: %w", s.cfg.MaxDuration, ctx.Err())
		case <-time.After(interval):
		}

		status, err := s.avatar.GetJob(ctx, avatarJobID)
		if err != nil {
			interval *= 2
			if interval > s.cfg.PollBackoffMax {
				interval = s.cfg.PollBackoffMax
			}
			s.log.Warn("avatar poll failed, backing off",
				"job_id", jobID.String(),
				"avatar_job_id", avatarJobID,
				"next_poll", interval.String(),
				"error", err.Error(),
			)
			continue
		}
		interval = s.cfg.PollInterval
		_ = s.jobs.Heartbeat(ctx, nil, jobID)

		switch status.Status {
		case avatar.StatusCompleted:
			if err := s.jobs.UpdateFields(ctx, nil, jobID, map[string]interface{}{
				"status":           types.VideoJobStatusCompleted,
				"video_url":        status.VideoURL,
				"thumbnail_url":    status.ThumbnailURL,
				"duration_seconds": status.DurationSeconds,
				"progress_percent": 100,
			}); err != nil {
				return fmt.Errorf("persist completed job: %w", err)
			}
			s.log.Info("video job completed", "job_id", jobID.String(), "avatar_job_id", avatarJobID)
			return nil
		case avatar.StatusFailed:
			reason := status.Error
			if reason == "" {
				reason = "avatar render failed"
			}
			return fmt.Errorf("avatar render failed: %s", reason)
		default:
			// Provider progress spans the 50 to 90 band of the overall job.
			progress := 50 + status.ProgressPercent*40/100
			if err := s.jobs.UpdateFields(ctx, nil, jobID, map[string]interface{}{
				"status":           types.VideoJobStatusPolling,
				"progress_percent": progress,
			}); err != nil {
				return fmt.Errorf("persist polling progress: %w", err)
			}
		}
	}
}

// notifyCallback posts the terminal job snapshot to the configured callback
// URL. Delivery is best effort; failures are logged and never bubble up.
func (s *Service) notifyCallback(jobID uuid.UUID) {
	if s.cfg.CallbackURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.CallbackRetries)*15*time.Second)
	defer cancel()

	job, err := s.jobs.GetByID(ctx, nil, jobID)
	if err != nil || job == nil {
		s.log.Error("loading job for callback", "job_id", jobID.String())
		return
	}
	payload, err := json.Marshal(job)
	if err != nil {
		s.log.Error("encoding callback payload", "job_id", jobID.String(), "error", err.Error())
		return
	}

	backoff := 2 * time.Second
	for attempt := 1; attempt <= s.cfg.CallbackRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, "POST", s.cfg.CallbackURL, bytes.NewReader(payload))
		if err != nil {
			s.log.Error("building callback request", "job_id", jobID.String(), "error", err.Error())
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				s.log.Info("callback delivered", "job_id", jobID.String(), "attempt", attempt)
				return
			}
			err = fmt.Errorf("callback http %d", resp.StatusCode)
		}
		s.log.Warn("callback attempt failed",
			"job_id", jobID.String(),
			"attempt", attempt,
			"max_attempts", s.cfg.CallbackRetries,
			"error", err.Error(),
		)
		if attempt < s.cfg.CallbackRetries {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	s.log.Error("callback delivery abandoned", "job_id", jobID.String(), "attempts", s.cfg.CallbackRetries)
}

// jobSeed derives a stable seed from the job id so attire randomness is
// reproducible across retries of the same job.
func jobSeed(id uuid.UUID) int64 {
	return int64(binary.BigEndian.Uint64(id[:8]))
}
