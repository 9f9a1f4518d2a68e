package output

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
)

// JSONWriter streams items as the elements of one JSON array.
type JSONWriter struct {
	w      *bufio.Writer
	indent string
	count  int
	closed bool
}

// NewJSONWriter creates a JSON array writer.
func NewJSONWriter(w io.Writer, indent string) *JSONWriter {
	return &JSONWriter{
		w:      bufio.NewWriter(w),
		indent: indent,
	}
}

// Write appends one array element.
func (w *JSONWriter) Write(item any) error {
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}

	sep := ","
	if w.count == 0 {
		sep = "["
	}
	if _, err := w.w.WriteString(sep); err != nil {
		return err
	}

	if w.indent != "" {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, w.indent, w.indent); err != nil {
			return err
		}
		data = append([]byte("\n"+w.indent), buf.Bytes()...)
	}
	if _, err := w.w.Write(data); err != nil {
		return err
	}

	w.count++
	return nil
}

// Close writes the closing bracket and flushes. An empty writer emits "[]".
func (w *JSONWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	end := "]\n"
	switch {
	case w.count == 0:
		end = "[]\n"
	case w.indent != "":
		end = "\n]\n"
	}
	if _, err := w.w.WriteString(end); err != nil {
		return err
	}
	return w.w.Flush()
}

// JSONLWriter writes newline-delimited JSON (JSONL).
type JSONLWriter struct {
	w   *bufio.Writer
	enc *json.Encoder
}

// NewJSONLWriter creates a JSONL writer.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	bw := bufio.NewWriter(w)
	return &JSONLWriter{w: bw, enc: json.NewEncoder(bw)}
}

// Write writes a single item as a JSON line and flushes it.
func (w *JSONLWriter) Write(item any) error {
	if err := w.enc.Encode(item); err != nil {
		return err
	}
	return w.w.Flush()
}

// Close flushes the writer.
func (w *JSONLWriter) Close() error {
	return w.w.Flush()
}
