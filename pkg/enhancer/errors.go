package enhancer

import (
	"context"
	"errors"

	"github.com/risterz/pantrypal-ai/pkg/llm"
	"github.com/risterz/pantrypal-ai/pkg/scraper"
	"github.com/risterz/pantrypal-ai/pkg/store"
)

// ErrorKind groups failures for logs, metrics and exit messages.
type ErrorKind string

const (
	KindNone    ErrorKind = ""
	KindFetch   ErrorKind = "fetch"
	KindParse   ErrorKind = "parse"
	KindCleaner ErrorKind = "cleaner"
	KindStore   ErrorKind = "store"
	KindUnknown ErrorKind = "unknown"
)

// ErrStore wraps persistence failures raised while processing a document.
var ErrStore = errors.New("store failed")

func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	var fetchErr *scraper.FetchError
	switch {
	case errors.As(err, &fetchErr),
		errors.Is(err, scraper.ErrRobotsDisallowed),
		errors.Is(err, context.DeadlineExceeded):
		return KindFetch
	case errors.Is(err, scraper.ErrParse):
		return KindParse
	case errors.Is(err, ErrCleaner),
		errors.Is(err, llm.ErrEmptyResponse),
		errors.Is(err, llm.ErrNoAPIKey):
		return KindCleaner
	case errors.Is(err, ErrStore), errors.Is(err, store.ErrNotFound):
		return KindStore
	}
	return KindUnknown
}
