package crawler

import (
	"errors"
	"fmt"
)

// Sentinels matched with errors.Is against the typed errors below.
var (
	ErrInvalidURL = errors.New("invalid url")
	ErrNavigation = errors.New("navigation failed")
	ErrExtraction = errors.New("extraction failed")
	ErrSinkWrite  = errors.New("sink write failed")
)

// InvalidURLError is returned when a seed or discovered link cannot be
// resolved to a crawlable URL.
type InvalidURLError struct {
	URL string
	Err error
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("invalid url %q: %v", e.URL, e.Err)
}

func (e *InvalidURLError) Unwrap() error { return e.Err }

func (e *InvalidURLError) Is(target error) bool { return target == ErrInvalidURL }

// NavigationError records a page that could not be loaded. The engine logs it
// and ends the current chain; it is never returned from Crawl.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigate %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

func (e *NavigationError) Is(target error) bool { return target == ErrNavigation }

// ExtractionError means the page did not have the shape the extractor expects.
type ExtractionError struct {
	URL       string
	Extractor string
	Err       error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s (%s extractor): %v", e.URL, e.Extractor, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }

// SinkWriteError means a rendered page could not be persisted.
type SinkWriteError struct {
	URL string
	Err error
}

func (e *SinkWriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.URL, e.Err)
}

func (e *SinkWriteError) Unwrap() error { return e.Err }

func (e *SinkWriteError) Is(target error) bool { return target == ErrSinkWrite }
