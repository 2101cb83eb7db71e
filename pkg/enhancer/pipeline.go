// Package enhancer turns recipe pages into ordered lists of cooking tips.
//
// A Pipeline is a pure function of a parsed page and a site identifier: it
// extracts fragments with the site's profile, falls back to generic
// extraction when that finds nothing, then normalizes, filters, suppresses
// near duplicates and ranks. It performs no I/O and holds no mutable state,
// so one Pipeline can serve any number of goroutines. Service adds fetching,
// optional external cleaning and per document deduplication of in-flight
// work on top of it.
package enhancer

import (
	"context"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/risterz/pantrypal-ai/internal/types"
	"github.com/risterz/pantrypal-ai/pkg/extractor"
	"github.com/risterz/pantrypal-ai/pkg/processor"
	"github.com/risterz/pantrypal-ai/pkg/sites"
	"github.com/rs/zerolog"
)

// ErrCleaner wraps every failure of the external cleaning service.
var ErrCleaner = errors.New("external cleaning failed")

type PipelineConfig struct {
	Processor      processor.ProcessorConfig
	Generic        extractor.GenericConfig
	ReviewKeywords []string
	// Cleaner is optional. Without it Refine returns points unchanged.
	Cleaner types.PointCleaner
	Logger  zerolog.Logger
}

type Pipeline struct {
	site      *extractor.SiteExtractor
	generic   *extractor.GenericExtractor
	processor processor.Processor
	cleaner   types.PointCleaner
	logger    zerolog.Logger
}

func NewWithConfig(config PipelineConfig) *Pipeline {
	return &Pipeline{
		site:      extractor.NewSiteExtractor(config.ReviewKeywords),
		generic:   extractor.NewGenericExtractor(config.Generic),
		processor: processor.NewWithConfig(config.Processor),
		cleaner:   config.Cleaner,
		logger:    config.Logger,
	}
}

func New() *Pipeline {
	return NewWithConfig(PipelineConfig{})
}

// HasCleaner reports whether Refine will call an external service.
func (p *Pipeline) HasCleaner() bool {
	return p.cleaner != nil
}

// Scrape extracts and normalizes fragments. The site is resolved once; an
// unknown site, or a known one whose sections yield nothing after
// normalizing, uses generic extraction.
func (p *Pipeline) Scrape(doc *goquery.Document, id sites.SiteID) []string {
	site := sites.Resolve(id)

	var fragments []string
	if site.Known() {
		fragments = p.processor.Normalize(p.site.Extract(doc, *site.Profile))
	}
	if len(fragments) == 0 {
		p.logger.Debug().Str("site", string(id)).Msg("no site specific fragments, using generic extraction")
		fragments = p.processor.Normalize(p.generic.Extract(doc))
	}

	return fragments
}

// Clean filters sentences, drops near duplicates and ranks.
func (p *Pipeline) Clean(fragments []string) []string {
	return p.processor.Clean(fragments)
}

// Run is Scrape followed by Clean. The result holds at most the configured
// maximum number of points, longest first, and is empty rather than an error
// when nothing qualifies.
func (p *Pipeline) Run(doc *goquery.Document, id sites.SiteID) []string {
	points := p.Clean(p.Scrape(doc, id))
	p.logger.Debug().Str("site", string(id)).Int("points", len(points)).Msg("pipeline finished")
	return points
}

// Result is the outcome of Refine. Err is set when the cleaner failed, in
// which case Points are the input points.
type Result struct {
	Points  []string
	Cleaned bool
	Err     error
}

// Refine hands points to the external cleaner. Its reply is held to the
// same bounds as Run output: short points and near duplicates are dropped,
// the rest ranked and capped. On failure, or when nothing in the reply
// survives, the original points are kept and the error is reported
// alongside them.
func (p *Pipeline) Refine(ctx context.Context, title string, points []string) Result {
	if p.cleaner == nil || len(points) == 0 {
		return Result{Points: points}
	}

	cleaned, err := p.cleaner.CleanPoints(ctx, title, points)
	if err != nil {
		p.logger.Warn().Err(err).Str("title", title).Msg("cleaning failed, keeping scraped points")
		return Result{Points: points, Err: fmt.Errorf("%w: %w", ErrCleaner, err)}
	}

	bounded := p.bound(cleaned)
	if len(bounded) == 0 {
		p.logger.Warn().Str("title", title).Int("reply", len(cleaned)).Msg("cleaner reply had no usable points, keeping scraped points")
		return Result{Points: points, Err: fmt.Errorf("%w: no usable points in reply", ErrCleaner)}
	}
	return Result{Points: bounded, Cleaned: true}
}

func (p *Pipeline) bound(points []string) []string {
	normalized := p.processor.Normalize(points)
	for i, point := range normalized {
		normalized[i] = processor.EnsureTerminal(point)
	}
	return p.processor.Rank(p.processor.Suppress(normalized))
}
