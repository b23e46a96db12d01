package cmd

import (
	"errors"
	"fmt"

	sharedErrors "github.com/khanhnv2901/privscan/internal/shared/errors"
)

const (
	exitFailure      = 1
	exitArchiveError = 2
)

// ArchiveError indicates the capture archive could not be opened.
type ArchiveError struct {
	Path string
	Err  error
}

func (e *ArchiveError) Error() string {
	switch {
	case errors.Is(e.Err, sharedErrors.ErrArchiveNotFound):
		return fmt.Sprintf("archive %s not found", e.Path)
	case errors.Is(e.Err, sharedErrors.ErrArchiveInvalid):
		return fmt.Sprintf("archive %s is not a readable zip file", e.Path)
	}
	return fmt.Sprintf("archive %s: %v", e.Path, e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }

// NoResultsError signals that no saved result document matched.
type NoResultsError struct {
	Folder string
	Dir    string
}

func (e *NoResultsError) Error() string {
	if e.Folder != "" {
		return fmt.Sprintf("no results for folder %s in %s", e.Folder, e.Dir)
	}
	return fmt.Sprintf("no results in %s", e.Dir)
}

func exitCode(err error) int {
	var archiveErr *ArchiveError
	if errors.As(err, &archiveErr) {
		return exitArchiveError
	}
	return exitFailure
}
