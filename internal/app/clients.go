package app

import (
	"fmt"

	"github.com/uplas/uplas-backend/internal/clients/avatar"
	"github.com/uplas/uplas-backend/internal/clients/content"
	"github.com/uplas/uplas-backend/internal/clients/gcp"
	"github.com/uplas/uplas-backend/internal/clients/llm"
	"github.com/uplas/uplas-backend/internal/clients/tutorapi"
	"github.com/uplas/uplas-backend/internal/pkg/logger"
)

type Clients struct {
	LLM     llm.Client
	Bucket  gcp.BucketService
	Speech  gcp.SpeechSynthesizer
	Avatar  avatar.Client
	Content content.Fetcher
	Tutor   tutorapi.Client
}

func wireClients(log *logger.Logger) (Clients, error) {
	llmClient, err := llm.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init llm client: %w", err)
	}
	bucket, err := gcp.NewBucketService(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init bucket service: %w", err)
	}
	speech, err := gcp.NewSpeechSynthesizer(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init speech synthesizer: %w", err)
	}
	avatarClient, err := avatar.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init avatar client: %w", err)
	}
	fetcher, err := content.NewFetcher(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init content fetcher: %w", err)
	}
	tutorClient, err := tutorapi.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init tutor api client: %w", err)
	}
	return Clients{
		LLM:     llmClient,
		Bucket:  bucket,
		Speech:  speech,
		Avatar:  avatarClient,
		Content: fetcher,
		Tutor:   tutorClient,
	}, nil
}
