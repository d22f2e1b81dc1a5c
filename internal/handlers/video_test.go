package handlers_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/tend/internal/adapters/document"
	"go.trai.ch/tend/internal/core/domain"
	"go.trai.ch/tend/internal/core/ports"
	"go.trai.ch/tend/internal/core/ports/mocks"
	"go.trai.ch/tend/internal/handlers"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

const videoURL = "https://www.youtube.com/watch?v=abc123DEF45"

const approvedTalk = `---
title: Soil talk
video_url: ` + videoURL + `
ready_for_processing: yes
---
Watch later.
`

var soilTranscript = &domain.Transcript{
	VideoID:  "abc123DEF45",
	Title:    "Soil Science 101",
	Language: "en",
	Segments: []domain.TranscriptSegment{
		{Start: 0, Text: "Welcome"},
		{Start: 65 * time.Second, Text: "Roots hold the soil"},
	},
}

func newVideo(t *testing.T, root string, fetcher ports.TranscriptFetcher, retry domain.RetryConfig) *handlers.Video {
	t.Helper()
	deps := newDeps(t, root)
	deps.Retry = retry
	deps.NewFetcher = func(domain.HandlerConfig) ports.TranscriptFetcher { return fetcher }
	h, err := handlers.NewVideo("video", domain.HandlerConfig{Enabled: true}, deps)
	require.NoError(t, err)
	return h.(*handlers.Video)
}

func TestVideo_CanHandle(t *testing.T) {
	root := t.TempDir()
	h := newVideo(t, root, mocks.NewMockTranscriptFetcher(gomock.NewController(t)), domain.RetryConfig{})

	assert.True(t, h.CanHandle(event(root, "Talks/soil.md", domain.EventCreated)))
	assert.False(t, h.CanHandle(event(root, "Talks/soil.md", domain.EventDeleted)))
	assert.False(t, h.CanHandle(event(root, "Talks/soil.png", domain.EventCreated)))
	assert.False(t, h.CanHandle(event(root, "Transcripts/soil-transcript.md", domain.EventCreated)))
}

func TestVideo_WritesTranscript(t *testing.T) {
	root := t.TempDir()
	note := filepath.Join(root, "Talks", "soil.md")
	writeFile(t, note, approvedTalk)

	fetcher := mocks.NewMockTranscriptFetcher(gomock.NewController(t))
	fetcher.EXPECT().Fetch(gomock.Any(), videoURL).Return(soilTranscript, nil)

	h := newVideo(t, root, fetcher, domain.RetryConfig{})
	res, err := h.Process(context.Background(), event(root, "Talks/soil.md", domain.EventCreated))
	require.NoError(t, err)

	out := filepath.Join(root, "Transcripts", "soil-science-101-transcript.md")
	assert.Equal(t, "created", res.Action)
	assert.Equal(t, []string{out, note}, res.Outputs)

	store := document.NewStore()
	transcript, err := store.Read(out)
	require.NoError(t, err)
	assert.Equal(t, "transcript", transcript.String("type"))
	assert.Equal(t, "[[soil]]", transcript.String("source"))
	assert.Equal(t, "Soil Science 101", transcript.String("title"))
	assert.Equal(t, "2026-05-04T10:30:00Z", transcript.String("ingested_at"))
	assert.Equal(t, "# Soil Science 101\n\n> Welcome (00:00)\n\n> Roots hold the soil (01:05)\n\n", transcript.Body)

	marked, err := store.Read(note)
	require.NoError(t, err)
	assert.True(t, marked.Bool(handlers.TranscriptIngestedField))
	assert.Equal(t, "[[soil-science-101-transcript]]", marked.String(handlers.TranscriptLinkField))
	assert.Equal(t, "Watch later.\n", marked.Body)

	res, err = h.Process(context.Background(), event(root, "Talks/soil.md", domain.EventModified))
	require.NoError(t, err)
	assert.Equal(t, "transcript already ingested", res.Reason)
}

func TestVideo_Skips(t *testing.T) {
	tests := []struct {
		name   string
		note   string
		reason string
	}{
		{"no url", "---\nready_for_processing: true\n---\n", "video_url field missing"},
		{"not approved", "---\nvideo_url: " + videoURL + "\n---\n", "ready_for_processing field missing"},
		{"ingested", "---\nvideo_url: " + videoURL + "\ntranscript_ingested: true\nready_for_processing: true\n---\n", "transcript already ingested"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeFile(t, filepath.Join(root, "n.md"), tt.note)

			// No Fetch expectation: any call fails the test.
			h := newVideo(t, root, mocks.NewMockTranscriptFetcher(gomock.NewController(t)), domain.RetryConfig{})
			res, err := h.Process(context.Background(), event(root, "n.md", domain.EventCreated))
			require.NoError(t, err)
			assert.True(t, res.Skipped)
			assert.Equal(t, tt.reason, res.Reason)
		})
	}
}

func TestVideo_RetriesRateLimit(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "soil.md"), approvedTalk)

		throttled := zerr.With(zerr.Wrap(domain.ErrRateLimited, "transcript service answered 429"), "status", 429)
		fetcher := mocks.NewMockTranscriptFetcher(gomock.NewController(t))
		gomock.InOrder(
			fetcher.EXPECT().Fetch(gomock.Any(), videoURL).Return(nil, throttled).Times(2),
			fetcher.EXPECT().Fetch(gomock.Any(), videoURL).Return(soilTranscript, nil),
		)

		h := newVideo(t, root, fetcher, domain.RetryConfig{
			MaxRetries: 3,
			BaseDelay:  5 * time.Second,
			MaxDelay:   time.Minute,
			Multiplier: 2,
		})

		start := time.Now()
		res, err := h.Process(context.Background(), event(root, "soil.md", domain.EventCreated))
		require.NoError(t, err)
		assert.Equal(t, "created", res.Action)
		assert.Equal(t, 15*time.Second, time.Since(start))

		stats := h.RetryStats()
		require.Len(t, stats, 1)
		assert.Equal(t, domain.RetryStats{
			Operation:     "video.transcript",
			TotalAttempts: 3,
			RateLimited:   2,
			Succeeded:     1,
		}, stats[0])
	})
}

func TestVideo_PermanentErrorIsNotRetried(t *testing.T) {
	root := t.TempDir()
	note := filepath.Join(root, "soil.md")
	writeFile(t, note, approvedTalk)

	fetcher := mocks.NewMockTranscriptFetcher(gomock.NewController(t))
	fetcher.EXPECT().Fetch(gomock.Any(), videoURL).
		Return(nil, zerr.Wrap(domain.ErrResourceNotFound, "no transcript for video")).Times(1)

	h := newVideo(t, root, fetcher, domain.RetryConfig{MaxRetries: 3, BaseDelay: time.Hour})
	_, err := h.Process(context.Background(), event(root, "soil.md", domain.EventCreated))
	require.ErrorIs(t, err, domain.ErrResourceNotFound)
	assert.Equal(t, int64(1), h.RetryStats()[0].Permanent)

	_, statErr := os.Stat(filepath.Join(root, "Transcripts"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestQuotes(t *testing.T) {
	segs := make([]domain.TranscriptSegment, 10)
	for i := range segs {
		segs[i] = domain.TranscriptSegment{Start: time.Duration(i) * time.Second, Text: string(rune('a' + i))}
	}

	got := handlers.Quotes(segs, 3)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Text)
	assert.Equal(t, "d", got[1].Text)
	assert.Equal(t, "g", got[2].Text)

	assert.Len(t, handlers.Quotes(segs, 20), 10)
	assert.Empty(t, handlers.Quotes(segs, 0))
	assert.Empty(t, handlers.Quotes(nil, 3))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "soil-science-101", handlers.Slug("Soil Science: 101!"))
	assert.Equal(t, "abc123def45", handlers.Slug("abc123DEF45"))
	assert.Equal(t, "", handlers.Slug("  ?? "))
}

func TestVideo_KeepsEditsMadeDuringFetch(t *testing.T) {
	root := t.TempDir()
	note := filepath.Join(root, "Talks", "soil.md")
	writeFile(t, note, approvedTalk)

	fetcher := mocks.NewMockTranscriptFetcher(gomock.NewController(t))
	fetcher.EXPECT().Fetch(gomock.Any(), videoURL).DoAndReturn(
		func(context.Context, string) (*domain.Transcript, error) {
			edited := strings.Replace(approvedTalk, "title: Soil talk", "title: Soil talk (edited)", 1) +
				"User added this paragraph while waiting.\n"
			writeFile(t, note, edited)
			return soilTranscript, nil
		})

	h := newVideo(t, root, fetcher, domain.RetryConfig{})
	_, err := h.Process(context.Background(), event(root, "Talks/soil.md", domain.EventCreated))
	require.NoError(t, err)

	marked, err := document.NewStore().Read(note)
	require.NoError(t, err)
	assert.True(t, marked.Bool(handlers.TranscriptIngestedField))
	assert.Equal(t, "[[soil-science-101-transcript]]", marked.String(handlers.TranscriptLinkField))
	assert.Equal(t, "Soil talk (edited)", marked.String("title"))
	assert.Contains(t, marked.Body, "User added this paragraph while waiting.")
}

func TestVideo_UntitledTranscriptsGetDistinctNames(t *testing.T) {
	root := t.TempDir()
	other := "https://example.com/videos/42"
	writeFile(t, filepath.Join(root, "a.md"), approvedTalk)
	writeFile(t, filepath.Join(root, "b.md"), strings.Replace(approvedTalk, videoURL, other, 1))

	untitled := &domain.Transcript{Segments: soilTranscript.Segments}
	fetcher := mocks.NewMockTranscriptFetcher(gomock.NewController(t))
	fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(untitled, nil).Times(2)

	h := newVideo(t, root, fetcher, domain.RetryConfig{})
	first, err := h.Process(context.Background(), event(root, "a.md", domain.EventCreated))
	require.NoError(t, err)
	second, err := h.Process(context.Background(), event(root, "b.md", domain.EventCreated))
	require.NoError(t, err)

	require.NotEqual(t, first.Outputs[0], second.Outputs[0])
	assert.Regexp(t, `video-[0-9a-f]{16}-transcript\.md$`, first.Outputs[0])

	transcript, err := document.NewStore().Read(first.Outputs[0])
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(transcript.Body, "# "+videoURL+"\n"))
}
