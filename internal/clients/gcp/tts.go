package gcp

import (
	"context"
	"fmt"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"

	"github.com/uplas/uplas-backend/internal/pkg/apperr"
	"github.com/uplas/uplas-backend/internal/pkg/logger"
)

// SpeechSynthesizer wraps Google Cloud Text-to-Speech. Content is passed
// through as text or SSML; voice selection happens in the TTS service layer.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, req SynthesizeRequest) (*SynthesizeResult, error)
	Close() error
}

type SynthesizeRequest struct {
	Content      string
	SSML         bool
	LanguageCode string
	VoiceName    string
	// Encoding is "MP3" or "LINEAR16".
	Encoding string
}

type SynthesizeResult struct {
	AudioBytes []byte
}

type speechSynthesizer struct {
	log    *logger.Logger
	client *texttospeech.Client
}

func NewSpeechSynthesizer(log *logger.Logger) (SpeechSynthesizer, error) {
	serviceLog := log.With("service", "SpeechSynthesizer")

	ctx := context.Background()
	client, err := texttospeech.NewClient(ctx, ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create texttospeech client: %w", err)
	}
	return &speechSynthesizer{log: serviceLog, client: client}, nil
}

func (s *speechSynthesizer) Synthesize(ctx context.Context, req SynthesizeRequest) (*SynthesizeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	input := &texttospeechpb.SynthesisInput{}
	if req.SSML {
		input.InputSource = &texttospeechpb.SynthesisInput_Ssml{Ssml: req.Content}
	} else {
		input.InputSource = &texttospeechpb.SynthesisInput_Text{Text: req.Content}
	}

	encoding := texttospeechpb.AudioEncoding_MP3
	if req.Encoding == "LINEAR16" {
		encoding = texttospeechpb.AudioEncoding_LINEAR16
	}

	resp, err := s.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: input,
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: req.LanguageCode,
			Name:         req.VoiceName,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: encoding,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: synthesize speech: %v", apperr.ErrUpstreamUnavailable, err)
	}
	return &SynthesizeResult{AudioBytes: resp.GetAudioContent()}, nil
}

func (s *speechSynthesizer) Close() error { return s.client.Close() }
