package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func capture(t *testing.T, opts Options) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	opts.Output = buf
	Init(opts)
	t.Cleanup(func() { Init(Options{}) })
	return buf
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"json", FormatJSON, false},
		{"pretty", FormatPretty, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestInit_Levels(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want map[string]bool // message -> expected in output
	}{
		{
			name: "default",
			opts: Options{},
			want: map[string]bool{"page debug": false, "page info": true, "page warn": true, "page error": true},
		},
		{
			name: "debug",
			opts: Options{Debug: true},
			want: map[string]bool{"page debug": true, "page info": true, "page warn": true, "page error": true},
		},
		{
			name: "quiet",
			opts: Options{Quiet: true},
			want: map[string]bool{"page debug": false, "page info": false, "page warn": false, "page error": true},
		},
		{
			name: "quiet wins over debug",
			opts: Options{Quiet: true, Debug: true},
			want: map[string]bool{"page debug": false, "page info": false, "page warn": false, "page error": true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := capture(t, tt.opts)

			Debug("page debug")
			Info("page info")
			Warn("page warn")
			Error("page error")

			for msg, want := range tt.want {
				if got := strings.Contains(buf.String(), msg); got != want {
					t.Errorf("%q logged = %v, want %v", msg, got, want)
				}
			}
		})
	}
}

func TestInit_JSONFormat(t *testing.T) {
	buf := capture(t, Options{Format: FormatJSON})

	Info("page written", "url", "https://docs.example.com/intro", "chunk", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if entry["msg"] != "page written" || entry["url"] != "https://docs.example.com/intro" {
		t.Errorf("unexpected entry %v", entry)
	}
	if entry["chunk"] != float64(3) {
		t.Errorf("chunk = %v, want 3", entry["chunk"])
	}
}

func TestInit_TextFormat(t *testing.T) {
	buf := capture(t, Options{Format: FormatText})

	Warn("navigation failed", "url", "https://docs.example.com/gone")

	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, `msg="navigation failed"`) {
		t.Errorf("unexpected text output %q", out)
	}
}

func TestInit_PrettyFormat(t *testing.T) {
	buf := capture(t, Options{Format: FormatPretty, Debug: true})

	Debug("crawler starting", "seeds", 2)

	out := buf.String()
	if !strings.Contains(out, "crawler starting") || !strings.Contains(out, "seeds") {
		t.Errorf("unexpected pretty output %q", out)
	}
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Error("pretty output should not be JSON")
	}
}

func TestInit_CustomLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{
		Logger: slog.New(slog.NewJSONHandler(buf, nil)),
		Output: &bytes.Buffer{},
		Format: FormatText,
	})
	t.Cleanup(func() { Init(Options{}) })

	Info("custom")
	if !strings.Contains(buf.String(), `"msg":"custom"`) {
		t.Errorf("custom logger not used, got %q", buf.String())
	}
}

func TestCharmLevel(t *testing.T) {
	tests := []struct {
		in   slog.Level
		want string
	}{
		{slog.LevelDebug, "debug"},
		{slog.LevelInfo, "info"},
		{slog.LevelWarn, "warn"},
		{slog.LevelError, "error"},
	}

	for _, tt := range tests {
		if got := charmLevel(tt.in).String(); got != tt.want {
			t.Errorf("charmLevel(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
