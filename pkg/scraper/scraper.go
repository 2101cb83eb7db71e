package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	DefaultAccept    = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
)

var (
	// ErrParse wraps failures to read or parse a fetched page.
	ErrParse = errors.New("failed to parse page")
	// ErrRobotsDisallowed is returned when robots.txt checks are on and the
	// site disallows the page.
	ErrRobotsDisallowed = errors.New("blocked by robots.txt")
)

// FetchError is a transport failure or a non-success status. Status is zero
// when no response was received.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("received status code %d for URL: %s", e.Status, e.URL)
	}
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type ScraperConfig struct {
	Timeout   time.Duration
	UserAgent string
	Accept    string
	RateLimit float64 // requests per second
	// RespectRobots checks robots.txt before each page. Unreachable or
	// unreadable robots files allow the fetch.
	RespectRobots bool
	OnProgress    func(url string)
	Logger        zerolog.Logger
}

// Scraper fetches recipe pages and parses them into documents.
type Scraper struct {
	config  ScraperConfig
	client  *http.Client
	limiter *rate.Limiter

	mu     sync.Mutex
	robots map[string]*robotstxt.RobotsData
}

func NewWithConfig(config ScraperConfig) *Scraper {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.Accept == "" {
		config.Accept = DefaultAccept
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2 // 2 requests per second by default
	}

	return &Scraper{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		robots:  make(map[string]*robotstxt.RobotsData),
	}
}

func New() *Scraper {
	return NewWithConfig(ScraperConfig{})
}

// Fetch downloads rawURL and parses it. Failures are *FetchError, ErrParse
// or ErrRobotsDisallowed; nothing is retried.
func (s *Scraper) Fetch(ctx context.Context, rawURL string) (*goquery.Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("invalid URL")}
	}

	if s.config.RespectRobots && !s.allowed(ctx, u) {
		return nil, fmt.Errorf("%w: %s", ErrRobotsDisallowed, rawURL)
	}

	if s.config.OnProgress != nil {
		s.config.OnProgress(rawURL)
	}

	// Apply rate limiting
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", s.config.UserAgent)
	req.Header.Set("Accept", s.config.Accept)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	s.config.Logger.Debug().
		Str("url", rawURL).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("fetched page")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{URL: rawURL, Status: resp.StatusCode}
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" && !isMarkup(ct) {
		return nil, fmt.Errorf("%w: unsupported content type %q", ErrParse, ct)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	return doc, nil
}

func isMarkup(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "text/") || strings.Contains(mediaType, "html") || strings.Contains(mediaType, "xml")
}

func (s *Scraper) allowed(ctx context.Context, u *url.URL) bool {
	data, err := s.robotsFor(ctx, u)
	if err != nil {
		s.config.Logger.Debug().Err(err).Str("host", u.Host).Msg("robots.txt unavailable, allowing fetch")
		return true
	}

	group := data.FindGroup(s.config.UserAgent)
	if group == nil {
		return true
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	return group.Test(path)
}

func (s *Scraper) robotsFor(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	s.mu.Lock()
	data, ok := s.robots[u.Host]
	s.mu.Unlock()
	if ok {
		return data, nil
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.config.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err = robotstxt.FromResponse(resp)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.robots[u.Host] = data
	s.mu.Unlock()
	return data, nil
}
