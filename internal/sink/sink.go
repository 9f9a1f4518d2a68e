// Package sink accumulates rendered pages into numbered, size-bounded output
// files.
//
// Units are named "<n><ext>" (1.md, 2.md, ...) inside a single directory and are
// only ever appended to. A record is never split across two units.
package sink

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/doccrawl/internal/logger"
)

const (
	// DefaultThreshold is the advisory per-unit size limit (5 MiB).
	DefaultThreshold int64 = 5 * 1024 * 1024

	// DefaultExtension is appended to the unit number to form its file name.
	DefaultExtension = ".md"

	// HeaderPrefix starts the line identifying the source page of a record.
	HeaderPrefix = "Page URL: "
)

// Option configures a ChunkedSink.
type Option func(*ChunkedSink)

// WithThreshold sets the rollover threshold in bytes. Non-positive values are ignored.
func WithThreshold(n int64) Option {
	return func(s *ChunkedSink) {
		if n > 0 {
			s.threshold = n
		}
	}
}

// WithExtension sets the unit file extension (e.g. ".md", ".txt", or "" for bare numbers).
func WithExtension(ext string) Option {
	return func(s *ChunkedSink) {
		s.ext = ext
	}
}

// Chunk describes the unit a record was written to.
type Chunk struct {
	Index int
	Size  int64
	Path  string
}

// ChunkedSink appends page records to the current unit and rolls over to the
// next unit when a record would push it past the threshold.
// It is not safe for concurrent use.
type ChunkedSink struct {
	dir       string
	ext       string
	threshold int64

	index int
	size  int64 // last known size of the current unit
}

// Open prepares dir for output. If units already exist the sink continues
// appending to the highest-numbered one.
func Open(dir string, opts ...Option) (*ChunkedSink, error) {
	s := &ChunkedSink{
		dir:       dir,
		ext:       DefaultExtension,
		threshold: DefaultThreshold,
		index:     1,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	units, err := listUnits(dir, s.ext)
	if err != nil {
		return nil, err
	}
	if len(units) > 0 {
		s.index = units[len(units)-1]
	}

	size, err := s.statSize(s.index)
	if err != nil {
		return nil, err
	}
	s.size = size

	logger.Debug("sink opened",
		"dir", dir,
		"unit", s.index,
		"size", humanize.IBytes(uint64(s.size)),
		"threshold", humanize.IBytes(uint64(s.threshold)))

	return s, nil
}

// FormatRecord builds the exact bytes written for one page.
func FormatRecord(pageURL, rendered string) string {
	return "\n\n" + HeaderPrefix + pageURL + "\n\n" + rendered + "\n\n"
}

// Append writes one page record. The record lands whole in exactly one unit:
// if it does not fit in the current unit, the unit index is advanced first.
// A record larger than the threshold on its own is still written intact.
func (s *ChunkedSink) Append(pageURL, rendered string) (Chunk, error) {
	record := FormatRecord(pageURL, rendered)
	recordSize := int64(len(record)) // byte length of the UTF-8 encoding

	if s.size > 0 && s.size+recordSize > s.threshold {
		next := s.index + 1
		size, err := s.statSize(next)
		if err != nil {
			return Chunk{}, err
		}
		logger.Debug("sink rolling over",
			"from", s.index,
			"to", next,
			"current_size", s.size,
			"record_size", recordSize)
		s.index = next
		s.size = size
	}

	path := s.Path(s.index)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return Chunk{}, fmt.Errorf("failed to open unit %d: %w", s.index, err)
	}

	n, writeErr := f.WriteString(record)
	closeErr := f.Close()
	s.size += int64(n)

	if writeErr != nil {
		return Chunk{}, fmt.Errorf("failed to append to unit %d: %w", s.index, writeErr)
	}
	if closeErr != nil {
		return Chunk{}, fmt.Errorf("failed to close unit %d: %w", s.index, closeErr)
	}

	return Chunk{Index: s.index, Size: s.size, Path: path}, nil
}

// Index returns the current unit number.
func (s *ChunkedSink) Index() int {
	return s.index
}

// Size returns the tracked size of the current unit in bytes.
func (s *ChunkedSink) Size() int64 {
	return s.size
}

// Threshold returns the configured rollover threshold.
func (s *ChunkedSink) Threshold() int64 {
	return s.threshold
}

// Dir returns the output directory.
func (s *ChunkedSink) Dir() string {
	return s.dir
}

// Path returns the file path of the given unit.
func (s *ChunkedSink) Path(index int) string {
	return filepath.Join(s.dir, strconv.Itoa(index)+s.ext)
}

// statSize returns the on-disk size of a unit, or 0 if it does not exist yet.
func (s *ChunkedSink) statSize(index int) (int64, error) {
	info, err := os.Stat(s.Path(index))
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to stat unit %d: %w", index, err)
	}
	return info.Size(), nil
}

// listUnits returns the unit numbers present in dir, sorted ascending.
func listUnits(dir, ext string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	var units []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if ext != "" {
			if !strings.HasSuffix(name, ext) {
				continue
			}
			name = strings.TrimSuffix(name, ext)
		}
		n, err := strconv.Atoi(name)
		if err != nil || n < 1 {
			continue
		}
		units = append(units, n)
	}
	sort.Ints(units)
	return units, nil
}
