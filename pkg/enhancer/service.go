package enhancer

import (
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/risterz/pantrypal-ai/internal/types"
	"github.com/risterz/pantrypal-ai/pkg/sites"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Request asks for the tips on one recipe page.
type Request struct {
	URL      string
	RecipeID string
	Title    string
	// Site is detected from the URL when empty.
	Site sites.SiteID
	// Refine sends the points through the external cleaner when one is set.
	Refine bool
}

// Outcome is delivered once per Submit. Err is a fetch or parse failure and
// leaves Points empty; CleanErr is a cleaner failure, in which case Points
// are the uncleaned points.
type Outcome struct {
	Request  Request
	Site     sites.SiteID
	Points   []string
	Cleaned  bool
	Err      error
	CleanErr error
	Shared   bool
	Elapsed  time.Duration
}

type ServiceConfig struct {
	Fetcher  types.PageFetcher
	Pipeline *Pipeline
	// Timeout bounds one shared invocation of Submit, which outlives callers
	// that give up.
	Timeout time.Duration
	// Observe is called once per completed invocation, before the outcome is
	// delivered to callers.
	Observe func(Outcome)
	Logger  zerolog.Logger
}

// Service runs fetch, pipeline and optional cleaning on its own goroutine.
// Concurrent requests for the same document share one invocation, and
// requests for the same URL share one fetch.
type Service struct {
	config  ServiceConfig
	group   singleflight.Group
	fetches singleflight.Group
}

func NewService(config ServiceConfig) *Service {
	if config.Pipeline == nil {
		config.Pipeline = New()
	}
	if config.Timeout == 0 {
		config.Timeout = 2 * time.Minute
	}
	return &Service{config: config}
}

// Submit starts the work and returns a channel that receives exactly one
// Outcome and is then closed. A shared invocation runs detached from every
// caller's ctx; a caller whose ctx ends first gets ctx.Err() without
// affecting the others.
func (s *Service) Submit(ctx context.Context, req Request) <-chan Outcome {
	ch := make(chan Outcome, 1)

	go func() {
		defer close(ch)

		if req.Site == "" {
			req.Site = sites.Detect(req.URL)
		}

		results := s.group.DoChan(documentKey(req), func() (interface{}, error) {
			runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.Timeout)
			defer cancel()

			out := s.process(runCtx, req, s.sharedFetch)
			if s.config.Observe != nil {
				s.config.Observe(out)
			}
			return out, nil
		})

		select {
		case res := <-results:
			out := res.Val.(Outcome)
			out.Request = req
			out.Shared = res.Shared
			// Callers sharing an invocation must not alias one slice.
			out.Points = append([]string(nil), out.Points...)
			ch <- out
		case <-ctx.Done():
			ch <- Outcome{Request: req, Site: req.Site, Err: ctx.Err()}
		}
	}()

	return ch
}

// Process is the synchronous form of Submit without in-flight sharing. It
// runs under the caller's ctx.
func (s *Service) Process(ctx context.Context, req Request) Outcome {
	if req.Site == "" {
		req.Site = sites.Detect(req.URL)
	}
	out := s.process(ctx, req, s.fetch)
	if s.config.Observe != nil {
		s.config.Observe(out)
	}
	return out
}

type fetchFunc func(ctx context.Context, url string) (*goquery.Document, error)

func (s *Service) fetch(ctx context.Context, url string) (*goquery.Document, error) {
	return s.config.Fetcher.Fetch(ctx, url)
}

// sharedFetch collapses concurrent fetches of one URL. The document is only
// read by the pipeline, so invocations can share it.
func (s *Service) sharedFetch(ctx context.Context, url string) (*goquery.Document, error) {
	v, err, _ := s.fetches.Do(url, func() (interface{}, error) {
		return s.config.Fetcher.Fetch(ctx, url)
	})
	if err != nil {
		return nil, err
	}
	return v.(*goquery.Document), nil
}

func (s *Service) process(ctx context.Context, req Request, fetch fetchFunc) Outcome {
	start := time.Now()
	out := Outcome{Request: req, Site: req.Site}
	log := s.config.Logger.With().Str("url", req.URL).Str("site", string(req.Site)).Logger()

	if s.config.Fetcher == nil {
		out.Err = fmt.Errorf("no fetcher configured")
		return out
	}

	doc, err := fetch(ctx, req.URL)
	if err != nil {
		log.Warn().Err(err).Str("kind", string(Classify(err))).Msg("fetch failed")
		out.Err = err
		out.Elapsed = time.Since(start)
		return out
	}

	out.Points = s.config.Pipeline.Run(doc, req.Site)
	log.Info().Int("points", len(out.Points)).Msg("extracted enhancements")

	if req.Refine && s.config.Pipeline.HasCleaner() {
		result := s.config.Pipeline.Refine(ctx, req.Title, out.Points)
		out.Points = result.Points
		out.Cleaned = result.Cleaned
		out.CleanErr = result.Err
	}

	out.Elapsed = time.Since(start)
	return out
}

// documentKey identifies an outcome. Site and Refine change the outcome,
// so they are part of the key; the fetch underneath is shared by URL alone.
func documentKey(req Request) string {
	return fmt.Sprintf("%s|%s|%t", req.URL, req.Site, req.Refine)
}
