// Package classify evaluates link tokens against the ordered filter set and
// drives the authoring flow for links no filter covers.
package classify

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/jonp69/DL-Homework-Garden/internal/models"
	"github.com/jonp69/DL-Homework-Garden/internal/store"
	"github.com/jonp69/DL-Homework-Garden/internal/tokenize"
)

type linkStore interface {
	Filters() []models.Filter
	AddFilter(ctx context.Context, f models.Filter) (models.Filter, error)
	ApplyClassification(ctx context.Context, url string, c store.Classification) (models.Link, error)
	LinksByStatus(status models.LinkStatus) []models.Link
}

// AuthorRequest carries an unmatched link to the rule-authoring collaborator.
type AuthorRequest struct {
	URL    string
	Tokens []string
}

// AuthorResponse is the collaborator's answer: a new filter, or a cancel that
// halts the current batch.
type AuthorResponse struct {
	Filter models.Filter
	Cancel bool
}

// Author supplies new filters for links the filter set does not cover. The
// call blocks until the collaborator answers or ctx is done.
type Author interface {
	RequestNewFilter(ctx context.Context, req AuthorRequest) (AuthorResponse, error)
}

// Outcome says how a classification attempt ended.
type Outcome string

const (
	// OutcomeClassified means a filter matched and the link was stored.
	OutcomeClassified Outcome = "classified"
	// OutcomeHalted means authoring was canceled; the link was not stored
	// and the surrounding batch must stop.
	OutcomeHalted Outcome = "halted"
)

// Result reports one classification attempt.
type Result struct {
	Outcome   Outcome
	Link      models.Link
	Filter    *models.Filter
	Evaluated int
}

// Evaluate runs the first-match-wins scan over the ordered filter set and
// reports how many filters were consulted. Later filters are never evaluated
// once one matches.
func Evaluate(filters []models.Filter, tokens []string) (*models.Filter, int) {
	for i, f := range filters {
		if f.Matches(tokens) {
			matched := f.Clone()
			return &matched, i + 1
		}
	}
	return nil, len(filters)
}

// Config wires the classifier's collaborators.
type Config struct {
	Store       linkStore
	Author      Author
	TrimClosers bool
	Logger      *zap.Logger
}

// Classifier owns the classify loop: tokenize, match, and fall back to the
// authoring flow until the link is covered or the author cancels.
type Classifier struct {
	store       linkStore
	author      Author
	trimClosers bool
	logger      *zap.Logger
}

// New builds a classifier instance.
func New(cfg Config) *Classifier {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{
		store:       cfg.Store,
		author:      cfg.Author,
		trimClosers: cfg.TrimClosers,
		logger:      logger,
	}
}

// ClassifyURL classifies one raw URL. When no filter matches it requests a
// new filter and re-runs against the grown set; a cancel leaves the store
// untouched and tells the caller to halt the batch.
func (c *Classifier) ClassifyURL(ctx context.Context, rawURL string, source models.LinkSource, sourceFile string) (Result, error) {
	raw := strings.TrimSpace(rawURL)
	if c.trimClosers {
		raw = tokenize.TrimTrailingClosers(raw)
	}
	tokens := tokenize.Tokenize(raw)

	for {
		matched, evaluated := Evaluate(c.store.Filters(), tokens)
		if matched != nil {
			link, err := c.store.ApplyClassification(ctx, raw, store.Classification{
				Action:     matched.Action,
				FilterID:   &matched.NumericID,
				Source:     source,
				SourceFile: sourceFile,
				Tokens:     tokens,
			})
			if err != nil {
				return Result{}, err
			}
			return Result{Outcome: OutcomeClassified, Link: link, Filter: matched, Evaluated: evaluated}, nil
		}

		if c.author == nil {
			return Result{Outcome: OutcomeHalted, Evaluated: evaluated}, nil
		}
		resp, err := c.author.RequestNewFilter(ctx, AuthorRequest{URL: raw, Tokens: tokens})
		if err != nil {
			return Result{}, err
		}
		if resp.Cancel {
			c.logger.Sugar().Infow("filter authoring canceled", "url", raw)
			return Result{Outcome: OutcomeHalted, Evaluated: evaluated}, nil
		}
		if _, err := c.store.AddFilter(ctx, resp.Filter); err != nil {
			return Result{}, err
		}
	}
}

// ReprocessResult summarises one pass over the to_reprocess bucket.
type ReprocessResult struct {
	Applied   int  `json:"applied"`
	Remaining int  `json:"remaining"`
	Halted    bool `json:"halted"`
}

// Reprocess re-evaluates every to_reprocess link against the current filter
// set. In silent mode unmatched links simply stay in the bucket; interactive
// mode raises authoring requests and a cancel halts the rest of the pass.
func (c *Classifier) Reprocess(ctx context.Context, interactive bool) (ReprocessResult, error) {
	var res ReprocessResult
	links := c.store.LinksByStatus(models.StatusToReprocess)

	for i, link := range links {
		select {
		case <-ctx.Done():
			res.Remaining += len(links) - i
			return res, ctx.Err()
		default:
		}

		tokens := link.Tokens
		if len(tokens) == 0 {
			tokens = tokenize.Tokenize(link.URL)
		}

		for {
			matched, _ := Evaluate(c.store.Filters(), tokens)
			if matched != nil {
				if _, err := c.store.ApplyClassification(ctx, link.URL, store.Classification{
					Action:   matched.Action,
					FilterID: &matched.NumericID,
					Tokens:   tokens,
				}); err != nil {
					return res, err
				}
				res.Applied++
				break
			}
			if !interactive || c.author == nil {
				res.Remaining++
				break
			}
			resp, err := c.author.RequestNewFilter(ctx, AuthorRequest{URL: link.URL, Tokens: tokens})
			if err != nil {
				res.Remaining += len(links) - i
				return res, err
			}
			if resp.Cancel {
				res.Halted = true
				res.Remaining += len(links) - i
				return res, nil
			}
			if _, err := c.store.AddFilter(ctx, resp.Filter); err != nil {
				return res, err
			}
		}
	}
	return res, nil
}
