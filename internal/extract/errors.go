package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyContent marks a page that was fetched but yielded no usable
	// text. It is a soft failure: the orchestrator falls back to the next
	// extraction method instead of aborting.
	ErrEmptyContent = errors.New("extracted content was empty or too short")

	// ErrEmptyBatch is returned by the batch extractor when no URL in the
	// batch survived validation, so callers can distinguish "no URLs
	// supplied" from "all URLs produced unusable content".
	ErrEmptyBatch = errors.New("no document in the batch produced usable content")
)

// FetchError reports a network or HTTP level failure for one URL. It is
// always isolated to that URL and never aborts the rest of a batch.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("failed to fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
