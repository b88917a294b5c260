package tts

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/uplas/uplas-backend/internal/clients/gcp"
	"github.com/uplas/uplas-backend/internal/pkg/apperr"
	"github.com/uplas/uplas-backend/internal/pkg/logger"
)

const (
	EncodingMP3      = "MP3"
	EncodingLinear16 = "LINEAR16"

	audioKeyPrefix = "tts_audio/"
)

type SynthesizeInput struct {
	Content string
	// SSML marks Content as markup rather than plain text.
	SSML           bool
	VoiceCharacter string
	LanguageCode   string
	PreferPremium  bool
	Encoding       string
}

type SynthesizeOutput struct {
	AudioURL       string         `json:"audio_url"`
	VoiceUsed      VoiceSelection `json:"voice_used"`
	CharacterCount int            `json:"character_count"`
}

// Service synthesizes speech and stores the audio durably, returning a URL
// rather than bytes.
type Service interface {
	Synthesize(ctx context.Context, input SynthesizeInput) (*SynthesizeOutput, error)
}

type service struct {
	log    *logger.Logger
	speech gcp.SpeechSynthesizer
	bucket gcp.BucketService
}

func NewService(baseLog *logger.Logger, speech gcp.SpeechSynthesizer, bucket gcp.BucketService) Service {
	return &service{
		log:    baseLog.With("service", "TTSService"),
		speech: speech,
		bucket: bucket,
	}
}

func (s *service) Synthesize(ctx context.Context, input SynthesizeInput) (*SynthesizeOutput, error) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, fmt.Errorf("%w: content required", apperr.ErrInvalidArgument)
	}
	encoding := input.Encoding
	if encoding == "" {
		encoding = EncodingMP3
	}
	if encoding != EncodingMP3 && encoding != EncodingLinear16 {
		return nil, fmt.Errorf("%w: unsupported audio encoding %q", apperr.ErrInvalidArgument, encoding)
	}

	voice := ResolveVoice(input.VoiceCharacter, input.LanguageCode, input.PreferPremium)

	result, err := s.speech.Synthesize(ctx, gcp.SynthesizeRequest{
		Content:      input.Content,
		SSML:         input.SSML,
		LanguageCode: voice.LanguageCode,
		VoiceName:    voice.VoiceName,
		Encoding:     encoding,
	})
	if err != nil {
		return nil, err
	}

	key := audioKeyPrefix + uuid.New().String() + extensionFor(encoding)
	if err := s.bucket.UploadFile(ctx, key, bytes.NewReader(result.AudioBytes)); err != nil {
		return nil, fmt.Errorf("%w: upload audio: %v", apperr.ErrStorage, err)
	}

	// Content is never logged; character counts are enough for billing and
	// debugging.
	s.log.Info("speech synthesized",
		"voice", voice.VoiceName,
		"tier", voice.QualityTierUsed,
		"language", voice.LanguageCode,
		"characters", utf8.RuneCountInString(input.Content),
		"bytes", len(result.AudioBytes),
		"key", key,
	)

	return &SynthesizeOutput{
		AudioURL:       s.bucket.PublicURL(key),
		VoiceUsed:      voice,
		CharacterCount: utf8.RuneCountInString(input.Content),
	}, nil
}

func extensionFor(encoding string) string {
	if encoding == EncodingLinear16 {
		return ".wav"
	}
	return ".mp3"
}
