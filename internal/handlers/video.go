package handlers

import (
	"cmp"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/tend/internal/core/domain"
	"go.trai.ch/tend/internal/core/ports"
	"go.trai.ch/tend/internal/engine/retry"
	"go.trai.ch/zerr"
)

// Front matter fields used by the video handler.
const (
	VideoURLField           = "video_url"
	TranscriptIngestedField = "transcript_ingested"
	TranscriptLinkField     = "transcript"
)

const defaultMaxQuotes = 10

// Video ingests transcripts of videos referenced by approved notes.
type Video struct {
	*Base

	root      string
	notesDir  string
	outputDir string
	urlField  string
	gate      string
	maxQuotes int
	docs      ports.DocumentStore
	fetcher   ports.TranscriptFetcher
	op        *retry.Operation
	now       func() time.Time
}

// NewVideo builds the external-video ingestion handler.
//
// Parameters: notes_dir (default: whole vault), output_dir (default "Transcripts"),
// url_field (video_url), approval_field (ready_for_processing), max_quotes (10),
// endpoint and language for the transcript service.
func NewVideo(name string, hc domain.HandlerConfig, deps Deps) (ports.Handler, error) {
	if deps.Documents == nil || deps.NewFetcher == nil || deps.Logger == nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrConfigInvalid, "video requires a document store, a transcript client and a logger"), "handler", name)
	}

	v := &Video{
		Base:      NewBase(name, TypeVideo, hc, deps.Logger),
		root:      deps.Root,
		notesDir:  cleanDir(hc.String("notes_dir", "")),
		outputDir: cleanDir(hc.String("output_dir", "Transcripts")),
		urlField:  hc.String("url_field", VideoURLField),
		gate:      hc.String("approval_field", domain.ApprovalField),
		maxQuotes: hc.Int("max_quotes", defaultMaxQuotes),
		docs:      deps.Documents,
		fetcher:   deps.NewFetcher(hc),
		now:       deps.now,
	}
	if v.maxQuotes < 1 {
		return nil, zerr.With(zerr.Wrap(domain.ErrConfigInvalid, "max_quotes must be at least 1"), "handler", name)
	}

	opts := []retry.Option{}
	if deps.Limiter != nil {
		opts = append(opts, retry.WithRateLimiter(deps.Limiter))
	}
	v.op = retry.NewOperation(name+".transcript", retry.PolicyFromConfig(deps.Retry), deps.Logger, opts...)

	return v, nil
}

// CanHandle accepts created or modified notes under the notes directory, except transcripts.
func (v *Video) CanHandle(ev domain.ChangeEvent) bool {
	if ev.Kind == domain.EventDeleted || ev.Ext() != ".md" || !ev.Under(v.notesDir) {
		return false
	}
	return v.outputDir == "" || !ev.Under(v.outputDir)
}

// Process fetches the transcript of the note's video and writes it next to the vault's
// other transcripts, then marks the note as ingested.
func (v *Video) Process(ctx context.Context, ev domain.ChangeEvent) (domain.Result, error) {
	doc, err := v.docs.Read(ev.Path)
	if err != nil {
		return domain.Result{}, err
	}

	videoURL := strings.TrimSpace(doc.String(v.urlField))
	if videoURL == "" {
		return domain.Skip(v.urlField + " field missing"), nil
	}
	if doc.Bool(TranscriptIngestedField) {
		return domain.Skip("transcript already ingested"), nil
	}
	if ok, reason := domain.CheckApproval(doc.Meta, v.gate); !ok {
		return domain.Skip(reason), nil
	}

	transcript, err := retry.Run(ctx, v.op, videoURL, func(ctx context.Context) (*domain.Transcript, error) {
		return v.fetcher.Fetch(ctx, videoURL)
	})
	if err != nil {
		return domain.Result{}, zerr.With(err, "url", videoURL)
	}

	outPath := filepath.Join(v.root, filepath.FromSlash(v.outputDir), transcriptSlug(transcript, videoURL)+"-transcript.md")

	out := domain.NewDocument(outPath)
	out.Set("type", "transcript")
	out.Set("source", noteLink(ev.Path))
	out.Set(v.urlField, videoURL)
	if transcript.Title != "" {
		out.Set("title", transcript.Title)
	}
	if transcript.Language != "" {
		out.Set("language", transcript.Language)
	}
	out.Set("ingested_at", v.now().UTC().Format(time.RFC3339))
	out.Body = renderQuotes(transcript, videoURL, v.maxQuotes)

	if err := v.docs.Write(out); err != nil {
		return domain.Result{}, err
	}

	// The fetch may have waited through backoff; mark the note as it is now.
	fresh, err := v.docs.Read(ev.Path)
	if err != nil {
		return domain.Result{}, err
	}
	fresh.Set(TranscriptIngestedField, true)
	fresh.Set(TranscriptLinkField, noteLink(outPath))
	if err := v.docs.Write(fresh); err != nil {
		return domain.Result{}, err
	}

	return domain.Result{Action: "created", Outputs: []string{outPath, ev.Path}}, nil
}

// RetryStats reports the transcript operation's counters.
func (v *Video) RetryStats() []domain.RetryStats {
	return []domain.RetryStats{v.op.Stats()}
}

// Quotes picks up to n segments spread evenly across the transcript.
func Quotes(segments []domain.TranscriptSegment, n int) []domain.TranscriptSegment {
	if n <= 0 || len(segments) == 0 {
		return nil
	}
	if len(segments) <= n {
		return segments
	}
	out := make([]domain.TranscriptSegment, 0, n)
	step := float64(len(segments)) / float64(n)
	for i := range n {
		out = append(out, segments[int(float64(i)*step)])
	}
	return out
}

func renderQuotes(t *domain.Transcript, videoURL string, n int) string {
	var b strings.Builder
	title := cmp.Or(t.Title, t.VideoID, videoURL)
	b.WriteString("# " + title + "\n\n")
	for _, q := range Quotes(t.Segments, n) {
		fmt.Fprintf(&b, "> %s (%s)\n\n", q.Text, timestamp(q.Start))
	}
	return b.String()
}

func timestamp(d time.Duration) string {
	total := int(d.Round(time.Second) / time.Second)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// transcriptSlug names the transcript note after the video title, then its id, then a
// hash of the URL.
func transcriptSlug(t *domain.Transcript, videoURL string) string {
	if slug := Slug(t.Title); slug != "" {
		return slug
	}
	if slug := Slug(t.VideoID); slug != "" {
		return slug
	}
	return fmt.Sprintf("video-%016x", xxhash.Sum64String(videoURL))
}

// Slug lowercases s and joins its letter and digit runs with dashes.
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}
