package ports

import (
	"context"

	"go.trai.ch/tend/internal/core/domain"
)

// TranscriptFetcher retrieves the transcript of an external video.
//
// Implementations return errors matching domain.ErrRateLimited for throttling
// and domain.ErrResourceNotFound when the video or its transcript does not exist.
//
//go:generate mockgen -source=external.go -destination=mocks/mock_external.go -package=mocks
type TranscriptFetcher interface {
	Fetch(ctx context.Context, videoURL string) (*domain.Transcript, error)
}
