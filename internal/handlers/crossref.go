package handlers

import (
	"cmp"
	"context"
	"iter"
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"go.trai.ch/tend/internal/core/domain"
	"go.trai.ch/tend/internal/core/ports"
	"go.trai.ch/zerr"
	"gonum.org/v1/gonum/floats"
)

// SuggestedLinksField is the front matter field crossref writes.
const SuggestedLinksField = "suggested_links"

const (
	defaultSimilarityThreshold = 0.2
	defaultMaxResults          = 5
	minTermLength              = 3
)

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {}, "you": {}, "all": {},
	"any": {}, "can": {}, "had": {}, "her": {}, "was": {}, "one": {}, "our": {}, "out": {},
	"has": {}, "have": {}, "this": {}, "that": {}, "with": {}, "from": {}, "they": {}, "will": {},
	"would": {}, "there": {}, "their": {}, "what": {}, "about": {}, "which": {}, "when": {},
	"were": {}, "been": {}, "into": {}, "than": {}, "then": {}, "them": {}, "these": {}, "some": {},
	"also": {}, "just": {}, "more": {}, "only": {}, "very": {}, "such": {}, "its": {}, "how": {},
}

// Crossref suggests links between approved notes and the rest of the vault.
type Crossref struct {
	*Base

	root       string
	notesDir   string
	threshold  float64
	maxResults int
	gate       string
	docs       ports.DocumentStore
	files      func(dir string) iter.Seq[string]
	ledger     ports.Ledger
	logger     ports.Logger
}

// NewCrossref builds the cross-reference suggestion handler.
//
// Parameters: notes_dir (default: whole vault), similarity_threshold (0.2), max_results (5),
// approval_field (ready_for_processing).
func NewCrossref(name string, hc domain.HandlerConfig, deps Deps) (ports.Handler, error) {
	c := &Crossref{
		Base:       NewBase(name, TypeCrossref, hc, deps.Logger),
		root:       deps.Root,
		notesDir:   cleanDir(hc.String("notes_dir", "")),
		threshold:  hc.Float("similarity_threshold", defaultSimilarityThreshold),
		maxResults: hc.Int("max_results", defaultMaxResults),
		gate:       hc.String("approval_field", domain.ApprovalField),
		docs:       deps.Documents,
		files:      deps.Files,
		logger:     deps.Logger,
	}
	if deps.NewLedger != nil {
		c.ledger = deps.NewLedger()
	}

	switch {
	case c.docs == nil || c.files == nil:
		return nil, zerr.With(zerr.Wrap(domain.ErrConfigInvalid, "crossref requires a document store and a file walker"), "handler", name)
	case c.threshold < 0 || c.threshold > 1:
		return nil, zerr.With(zerr.Wrap(domain.ErrConfigInvalid, "similarity_threshold must be between 0 and 1"), "handler", name)
	case c.maxResults < 1:
		return nil, zerr.With(zerr.Wrap(domain.ErrConfigInvalid, "max_results must be at least 1"), "handler", name)
	}
	return c, nil
}

// CanHandle accepts created or modified notes under the notes directory.
func (c *Crossref) CanHandle(ev domain.ChangeEvent) bool {
	return ev.Kind != domain.EventDeleted && ev.Ext() == ".md" && ev.Under(c.notesDir)
}

// Suggestion is one ranked related note.
type Suggestion struct {
	Path  string
	Score float64
}

// Process ranks the vault against the note and records the best matches in its front matter.
func (c *Crossref) Process(ctx context.Context, ev domain.ChangeEvent) (domain.Result, error) {
	if c.ledger != nil {
		seen, err := c.ledger.Seen(ev.Path)
		if err != nil {
			return domain.Result{}, err
		}
		if seen {
			return domain.Skip("note was last written by crossref"), nil
		}
	}

	doc, err := c.docs.Read(ev.Path)
	if err != nil {
		return domain.Result{}, err
	}
	if ok, reason := domain.CheckApproval(doc.Meta, c.gate); !ok {
		return domain.Skip(reason), nil
	}

	suggestions, err := c.Rank(ctx, doc)
	if err != nil {
		return domain.Result{}, err
	}

	links := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		links = append(links, noteLink(s.Path))
	}
	if slices.Equal(links, existingLinks(doc.Meta[SuggestedLinksField])) {
		if c.ledger != nil {
			if err := c.ledger.Mark(ev.Path); err != nil && c.logger != nil {
				c.logger.Warn("failed to record unchanged note",
					"handler", c.Name(),
					"path", ev.Rel(),
					"error", err.Error(),
				)
			}
		}
		return domain.Skip("suggested links unchanged"), nil
	}

	doc.Set(SuggestedLinksField, links)
	if err := c.docs.Write(doc); err != nil {
		return domain.Result{}, err
	}
	if c.ledger != nil {
		if err := c.ledger.Mark(ev.Path); err != nil {
			return domain.Result{}, err
		}
	}

	return domain.Result{Action: "updated", Outputs: []string{ev.Path}}, nil
}

// Rank scores every other note under the notes directory by cosine similarity of term
// frequencies and returns those at or above the threshold, best first.
func (c *Crossref) Rank(ctx context.Context, doc *domain.Document) ([]Suggestion, error) {
	target := termFrequencies(doc.String("title") + "\n" + doc.Body)
	if len(target) == 0 {
		return nil, nil
	}

	dir := filepath.Join(c.root, filepath.FromSlash(c.notesDir))
	var out []Suggestion
	for p := range c.files(dir) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if p == doc.Path || !strings.EqualFold(filepath.Ext(p), ".md") {
			continue
		}

		other, err := c.docs.Read(p)
		if err != nil {
			// Unparseable neighbors are not the target's problem.
			continue
		}
		score := Cosine(target, termFrequencies(other.String("title")+"\n"+other.Body))
		if score >= c.threshold && score > 0 {
			out = append(out, Suggestion{Path: p, Score: score})
		}
	}

	slices.SortFunc(out, func(a, b Suggestion) int {
		if n := cmp.Compare(b.Score, a.Score); n != 0 {
			return n
		}
		return cmp.Compare(a.Path, b.Path)
	})
	if len(out) > c.maxResults {
		out = out[:c.maxResults]
	}
	return out, nil
}

// termFrequencies counts lowercase word tokens, ignoring stopwords and short words.
func termFrequencies(text string) map[string]float64 {
	tf := make(map[string]float64)
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len([]rune(tok)) < minTermLength {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		tf[tok]++
	}
	return tf
}

// Cosine returns the cosine similarity of two term-frequency vectors.
func Cosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	vocab := make(map[string]int, len(a)+len(b))
	for t := range a {
		vocab[t] = len(vocab)
	}
	for t := range b {
		if _, ok := vocab[t]; !ok {
			vocab[t] = len(vocab)
		}
	}

	va := make([]float64, len(vocab))
	vb := make([]float64, len(vocab))
	for t, n := range a {
		va[vocab[t]] = n
	}
	for t, n := range b {
		vb[vocab[t]] = n
	}

	na, nb := floats.Norm(va, 2), floats.Norm(vb, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(va, vb) / (na * nb)
}

// existingLinks reads a previously written suggested_links value.
func existingLinks(v any) []string {
	switch links := v.(type) {
	case []string:
		return links
	case []any:
		out := make([]string, 0, len(links))
		for _, l := range links {
			s, ok := l.(string)
			if !ok {
				return nil
			}
			out = append(out, s)
		}
		return out
	default:
		return nil
	}
}
