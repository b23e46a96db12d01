// Package sessionlog streams validated session log entries from a JSONL file
// and loads the optional network requests companion file.
package sessionlog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/khanhnv2901/privscan/internal/domain/session"
	"github.com/khanhnv2901/privscan/internal/shared/constants"
)

// Reader yields session entries lazily from a log file.
type Reader struct {
	path    string
	logger  *zap.SugaredLogger
	maxLine int
	skipped atomic.Int64
}

// Open checks that the log exists and returns a reader over it.
func Open(path string, logger *zap.SugaredLogger) (*Reader, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open session log: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("open session log: %s is a directory", path)
	}
	return &Reader{path: path, logger: logger, maxLine: constants.MaxLogLineBytes}, nil
}

// Path returns the log file path.
func (r *Reader) Path() string { return r.path }

// Skipped returns how many lines the most recent full pass rejected.
func (r *Reader) Skipped() int { return int(r.skipped.Load()) }

// All iterates over valid entries. Each call re-opens the file. Malformed or
// oversized lines are logged and skipped; only I/O errors are yielded.
func (r *Reader) All() iter.Seq2[session.Entry, error] {
	return func(yield func(session.Entry, error) bool) {
		f, err := os.Open(r.path)
		if err != nil {
			yield(session.Entry{}, fmt.Errorf("open session log: %w", err))
			return
		}
		defer f.Close()

		br := bufio.NewReaderSize(f, 64*1024)

		var skipped int64
		lineNo := 0
		for {
			raw, tooLong, err := readLine(br, r.maxLine)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				r.skipped.Store(skipped)
				yield(session.Entry{}, fmt.Errorf("read session log: %w", err))
				return
			}
			lineNo++
			if tooLong {
				skipped++
				r.logger.Warnw("skipping session log line", "file", r.path, "line", lineNo, "reason", fmt.Sprintf("exceeds %d bytes", r.maxLine))
				continue
			}

			line := bytes.TrimSpace(raw)
			if len(line) == 0 {
				continue
			}

			entry, err := session.NewEntry(line)
			if err != nil {
				skipped++
				r.logger.Warnw("skipping session log line", "file", r.path, "line", lineNo, "reason", err)
				continue
			}
			if !yield(entry, nil) {
				return
			}
		}
		r.skipped.Store(skipped)
	}
}

// readLine returns the next line without its terminator. A line longer than
// limit is consumed in full and reported with tooLong set and no content.
func readLine(br *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	for {
		chunk, isPrefix, readErr := br.ReadLine()
		if readErr != nil {
			return nil, false, readErr
		}
		if !tooLong {
			if len(line)+len(chunk) > limit {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if !isPrefix {
			return line, tooLong, nil
		}
	}
}

// Collect materializes every valid entry, in file order.
func Collect(r *Reader) ([]session.Entry, error) {
	var entries []session.Entry
	for entry, err := range r.All() {
		if err != nil {
			return entries, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
