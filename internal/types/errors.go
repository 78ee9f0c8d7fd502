package types

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure modes.
var (
	ErrInvalidReference = errors.New("invalid article reference")
	ErrNoFetcher        = errors.New("no fetcher available for request")
	ErrFieldNotParsed   = errors.New("field has not been parsed")
	ErrTagNotFound      = errors.New("tag not found in tag tree")
	ErrCrawlStopped     = errors.New("crawl has been stopped")
	ErrEmptyResponse    = errors.New("empty response body")
	ErrInvalidURL       = errors.New("invalid URL")
	ErrInvalidLanguage  = errors.New("invalid language")
)

// FetchError wraps errors that occur during fetching.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
	Retryable  bool
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) IsRetryable() bool { return e.Retryable }

// ParseError wraps errors that occur while extracting a field from a page.
type ParseError struct {
	URL      string
	Field    string
	Selector string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Selector != "" {
		return fmt.Sprintf("parse error for %s field %s (selector=%q): %v", e.URL, e.Field, e.Selector, e.Err)
	}
	return fmt.Sprintf("parse error for %s field %s: %v", e.URL, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur during storage/export.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// InitialError is returned when the identifying-initial heuristic meets a
// combination of candidates it has no rule for.
type InitialError struct {
	ID         string
	Title      string
	Candidates []string
}

func (e *InitialError) Error() string {
	return fmt.Sprintf("uncovered identifying initial case for article %s (title %q, candidates %s)",
		e.ID, e.Title, strings.Join(e.Candidates, ","))
}

// PipelineError wraps errors raised by a post-processing stage.
type PipelineError struct {
	Stage string
	ID    string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error at stage %s for article %s: %v", e.Stage, e.ID, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
