// Package external implements clients for services outside the vault.
package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.trai.ch/tend/internal/core/domain"
	"go.trai.ch/tend/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.TranscriptFetcher = (*TranscriptClient)(nil)

const (
	// DefaultTimeout bounds a single transcript request.
	DefaultTimeout = 30 * time.Second

	// DefaultEndpoint is the transcript service used when a handler configures none.
	DefaultEndpoint = "http://127.0.0.1:8765"

	maxErrorBody = 512
)

// TranscriptClient fetches video transcripts from an HTTP transcript service.
//
// The service answers GET <endpoint>/v1/transcripts/<video id>?lang=<language> with JSON.
type TranscriptClient struct {
	endpoint string
	language string
	client   *http.Client
}

// Option configures a TranscriptClient.
type Option func(*TranscriptClient)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(t *TranscriptClient) { t.client = c }
}

// WithLanguage selects the preferred transcript language.
func WithLanguage(lang string) Option {
	return func(t *TranscriptClient) { t.language = lang }
}

// NewTranscriptClient creates a client for the service at endpoint.
func NewTranscriptClient(endpoint string, opts ...Option) *TranscriptClient {
	c := &TranscriptClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		language: "en",
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromConfig builds a client from a handler's endpoint, language and timeout parameters.
func FromConfig(hc domain.HandlerConfig) ports.TranscriptFetcher {
	return NewTranscriptClient(hc.String("endpoint", DefaultEndpoint),
		WithLanguage(hc.String("language", "en")),
		WithHTTPClient(&http.Client{Timeout: hc.Duration("timeout", DefaultTimeout)}),
	)
}

type transcriptResponse struct {
	VideoID  string `json:"video_id"`
	Title    string `json:"title"`
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Fetch retrieves the transcript of videoURL.
//
// Throttling answers (429, 503) match domain.ErrRateLimited. A missing video or transcript
// (404, 410) and URLs without a recognizable video id match domain.ErrResourceNotFound.
func (c *TranscriptClient) Fetch(ctx context.Context, videoURL string) (*domain.Transcript, error) {
	id, err := VideoID(videoURL)
	if err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/v1/transcripts/%s?lang=%s", c.endpoint, url.PathEscape(id), url.QueryEscape(c.language))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrExternalServiceFailed, err.Error()), "url", reqURL)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrExternalServiceFailed, err.Error()), "video_id", id)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort close in defer

	if err := classify(resp); err != nil {
		return nil, zerr.With(err, "video_id", id)
	}

	var body transcriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrExternalServiceFailed, "invalid transcript response: "+err.Error()), "video_id", id)
	}

	t := &domain.Transcript{
		VideoID:  id,
		Title:    body.Title,
		URL:      videoURL,
		Language: body.Language,
		Segments: make([]domain.TranscriptSegment, 0, len(body.Segments)),
	}
	for _, s := range body.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		t.Segments = append(t.Segments, domain.TranscriptSegment{
			Start: time.Duration(s.Start * float64(time.Second)),
			Text:  text,
		})
	}
	if len(t.Segments) == 0 {
		return nil, zerr.With(zerr.Wrap(domain.ErrResourceNotFound, "transcript is empty"), "video_id", id)
	}
	return t, nil
}

// classify maps a non-2xx response to the error taxonomy.
func classify(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := fmt.Sprintf("transcript service answered %d", resp.StatusCode)
	if s := strings.TrimSpace(string(snippet)); s != "" {
		msg += ": " + s
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		err := zerr.Wrap(domain.ErrRateLimited, msg)
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			err = zerr.With(err, "retry_after", ra)
		}
		return err
	case http.StatusNotFound, http.StatusGone:
		return zerr.Wrap(domain.ErrResourceNotFound, msg)
	default:
		return zerr.With(zerr.Wrap(domain.ErrExternalServiceFailed, msg), "status", resp.StatusCode)
	}
}

// VideoID extracts the video id from a watch, short or embed URL.
func VideoID(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", zerr.With(zerr.Wrap(domain.ErrResourceNotFound, "not a video url"), "url", raw)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	var id string
	switch host {
	case "youtu.be":
		id = segments[0]
	case "youtube.com", "music.youtube.com":
		switch {
		case u.Path == "/watch":
			id = u.Query().Get("v")
		case len(segments) == 2 && (segments[0] == "shorts" || segments[0] == "embed" || segments[0] == "live"):
			id = segments[1]
		}
	}

	if id == "" {
		return "", zerr.With(zerr.Wrap(domain.ErrResourceNotFound, "no video id in url"), "url", raw)
	}
	return id, nil
}
