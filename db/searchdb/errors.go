package searchdb

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexUnavailable means the index has never been built (or its
	// directory is missing). A first build fixes it.
	ErrIndexUnavailable = errors.New("search index not available")
	// ErrCorrupt means the on-disk index exists but fails to open. A
	// rebuild, not a first build, is needed.
	ErrCorrupt = errors.New("search index corrupt")
	// ErrDocumentNotFound means a doc id is not present in the index.
	ErrDocumentNotFound = errors.New("document not found")
)

type IndexUnavailableError struct {
	Path string
}

func (e *IndexUnavailableError) Error() string {
	return fmt.Sprintf("search index not available at %s: build it first", e.Path)
}

func (e *IndexUnavailableError) Is(target error) bool {
	return target == ErrIndexUnavailable
}

type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("search index at %s is corrupt: %s", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

func (e *CorruptError) Is(target error) bool {
	return target == ErrCorrupt
}

type DocumentNotFoundError struct {
	DocID int
}

func (e *DocumentNotFoundError) Error() string {
	return fmt.Sprintf("document not found: %d", e.DocID)
}

func (e *DocumentNotFoundError) Is(target error) bool {
	return target == ErrDocumentNotFound
}
