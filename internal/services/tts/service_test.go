package tts

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/uplas/uplas-backend/internal/clients/gcp"
	"github.com/uplas/uplas-backend/internal/pkg/apperr"
	"github.com/uplas/uplas-backend/internal/pkg/logger"
)

type fakeSynthesizer struct {
	lastReq gcp.SynthesizeRequest
	err     error
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, req gcp.SynthesizeRequest) (*gcp.SynthesizeResult, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &gcp.SynthesizeResult{AudioBytes: []byte("audio-bytes")}, nil
}

func (f *fakeSynthesizer) Close() error { return nil }

type fakeBucket struct {
	lastKey   string
	lastBytes []byte
	uploadErr error
}

func (f *fakeBucket) UploadFile(_ context.Context, key string, file io.Reader) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.lastKey = key
	f.lastBytes, _ = io.ReadAll(file)
	return nil
}

func (f *fakeBucket) DeleteFile(_ context.Context, _ string) error { return nil }

func (f *fakeBucket) DownloadFile(_ context.Context, _ string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeBucket) PublicURL(key string) string { return "https://cdn.example.com/" + key }

func newTTSService(t *testing.T, speech *fakeSynthesizer, bucket *fakeBucket) Service {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewService(log, speech, bucket)
}

func TestSynthesizeStoresAudioAndReturnsURL(t *testing.T) {
	speech := &fakeSynthesizer{}
	bucket := &fakeBucket{}
	svc := newTTSService(t, speech, bucket)

	out, err := svc.Synthesize(context.Background(), SynthesizeInput{
		Content:        "Hello there, learner.",
		VoiceCharacter: "susan_us",
		LanguageCode:   "en-US",
		PreferPremium:  true,
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !strings.HasPrefix(bucket.lastKey, audioKeyPrefix) || !strings.HasSuffix(bucket.lastKey, ".mp3") {
		t.Errorf("key = %q", bucket.lastKey)
	}
	if string(bucket.lastBytes) != "audio-bytes" {
		t.Errorf("uploaded bytes = %q", bucket.lastBytes)
	}
	if out.AudioURL != "https://cdn.example.com/"+bucket.lastKey {
		t.Errorf("url = %q", out.AudioURL)
	}
	if out.VoiceUsed.VoiceName != "en-US-Wavenet-F" {
		t.Errorf("voice = %+v", out.VoiceUsed)
	}
	if out.CharacterCount != len("Hello there, learner.") {
		t.Errorf("character count = %d", out.CharacterCount)
	}
	if speech.lastReq.SSML {
		t.Errorf("plain text request marked as SSML")
	}
}

func TestSynthesizeLinear16GetsWavKey(t *testing.T) {
	bucket := &fakeBucket{}
	svc := newTTSService(t, &fakeSynthesizer{}, bucket)

	_, err := svc.Synthesize(context.Background(), SynthesizeInput{
		Content:  "test",
		Encoding: EncodingLinear16,
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !strings.HasSuffix(bucket.lastKey, ".wav") {
		t.Errorf("key = %q, want .wav suffix", bucket.lastKey)
	}
}

func TestSynthesizeSSMLPassthrough(t *testing.T) {
	speech := &fakeSynthesizer{}
	svc := newTTSService(t, speech, &fakeBucket{})

	_, err := svc.Synthesize(context.Background(), SynthesizeInput{
		Content: `<speak>Hello<break time="200ms"/>there.</speak>`,
		SSML:    true,
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !speech.lastReq.SSML {
		t.Errorf("SSML flag not forwarded")
	}
}

func TestSynthesizeValidation(t *testing.T) {
	svc := newTTSService(t, &fakeSynthesizer{}, &fakeBucket{})

	if _, err := svc.Synthesize(context.Background(), SynthesizeInput{Content: "  "}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("empty content: got %v", err)
	}
	if _, err := svc.Synthesize(context.Background(), SynthesizeInput{Content: "hi", Encoding: "OGG_OPUS"}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("bad encoding: got %v", err)
	}
}

func TestSynthesizeUploadFailure(t *testing.T) {
	bucket := &fakeBucket{uploadErr: errors.New("bucket gone")}
	svc := newTTSService(t, &fakeSynthesizer{}, bucket)

	_, err := svc.Synthesize(context.Background(), SynthesizeInput{Content: "hi"})
	if !errors.Is(err, apperr.ErrStorage) {
		t.Fatalf("got %v, want ErrStorage", err)
	}
}

func TestSynthesizeProviderFailure(t *testing.T) {
	speech := &fakeSynthesizer{err: errors.New("provider down")}
	svc := newTTSService(t, speech, &fakeBucket{})

	_, err := svc.Synthesize(context.Background(), SynthesizeInput{Content: "hi"})
	if err == nil {
		t.Fatalf("expected error")
	}
}
