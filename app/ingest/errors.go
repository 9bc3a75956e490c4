package ingest

import (
	"errors"
	"fmt"
)

var ErrRunInProgress = errors.New("a run is already in progress")

// FeedFetchError means a source's feed could not be downloaded or parsed.
// The source contributes nothing and keeps its previous watermark.
type FeedFetchError struct {
	Source string
	Err    error
}

func (e *FeedFetchError) Error() string {
	return fmt.Sprintf("failed to fetch feed '%s': %v", e.Source, e.Err)
}

func (e *FeedFetchError) Unwrap() error {
	return e.Err
}

// ExtractionError means a single item could not be turned into an entry.
type ExtractionError struct {
	Source string
	GUID   string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract item '%s' from '%s': %v", e.GUID, e.Source, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

type AssemblyError struct {
	Title string
	Err   error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("failed to assemble '%s': %v", e.Title, e.Err)
}

func (e *AssemblyError) Unwrap() error {
	return e.Err
}

type DeliveryError struct {
	Artifact string
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to deliver '%s': %v", e.Artifact, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
