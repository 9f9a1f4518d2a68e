package sink

import (
	"fmt"
	"os"
	"strings"
)

// Record is one page as recovered from the output units.
type Record struct {
	Chunk int    `json:"chunk" yaml:"chunk"`
	URL   string `json:"url" yaml:"url"`
	Body  string `json:"body" yaml:"body"`
}

const marker = "\n\n" + HeaderPrefix

// SplitRecords splits the contents of one unit back into page records.
// Text before the first header marker is ignored.
func SplitRecords(chunk int, data string) []Record {
	var records []Record

	rest := data
	for {
		start := strings.Index(rest, marker)
		if start < 0 {
			return records
		}
		rest = rest[start+len(marker):]

		end := strings.Index(rest, marker)
		segment := rest
		if end >= 0 {
			segment = rest[:end]
		}

		pageURL, body, _ := strings.Cut(segment, "\n\n")
		body = strings.TrimSuffix(body, "\n\n")
		records = append(records, Record{Chunk: chunk, URL: pageURL, Body: body})

		if end < 0 {
			return records
		}
		rest = rest[end:]
	}
}

// ReadRecords reads every unit in dir in numeric order and returns the page
// records they contain.
func ReadRecords(dir, ext string) ([]Record, error) {
	units, err := listUnits(dir, ext)
	if err != nil {
		return nil, err
	}

	s := &ChunkedSink{dir: dir, ext: ext}
	var records []Record
	for _, n := range units {
		data, err := os.ReadFile(s.Path(n))
		if err != nil {
			return nil, fmt.Errorf("failed to read unit %d: %w", n, err)
		}
		records = append(records, SplitRecords(n, string(data))...)
	}
	return records, nil
}
