package loader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newDocsServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/docs/intro", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><h1>Intro</h1><p>Hello</p></body></html>`))
	})
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs/intro", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_Modes(t *testing.T) {
	l, err := New(ModeStatic, Config{})
	if err != nil {
		t.Fatalf("New(static) error = %v", err)
	}
	if l.Type() != "static" {
		t.Errorf("expected static loader, got %s", l.Type())
	}

	if _, err := New("carrier-pigeon", Config{}); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.UserAgent == "" {
		t.Error("expected default user agent")
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("expected default timeout, got %v", cfg.Timeout)
	}

	custom := Config{UserAgent: "ua", Timeout: time.Second}.withDefaults()
	if custom.UserAgent != "ua" || custom.Timeout != time.Second {
		t.Errorf("explicit values overwritten: %+v", custom)
	}
}

func TestStaticLoader_Open(t *testing.T) {
	srv := newDocsServer(t)
	l := NewStatic(Config{Timeout: 5 * time.Second})
	defer l.Close()

	page, err := l.Open(context.Background(), srv.URL+"/docs/intro")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer page.Close()

	if page.URL() != srv.URL+"/docs/intro" {
		t.Errorf("unexpected URL %q", page.URL())
	}
	if !strings.Contains(page.HTML(), "<h1>Intro</h1>") {
		t.Errorf("HTML not captured: %q", page.HTML())
	}
}

func TestStaticLoader_FollowsRedirect(t *testing.T) {
	srv := newDocsServer(t)
	l := NewStatic(Config{})

	page, err := l.Open(context.Background(), srv.URL+"/old")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer page.Close()

	if page.URL() != srv.URL+"/docs/intro" {
		t.Errorf("expected final URL after redirect, got %q", page.URL())
	}
}

func TestStaticLoader_HTTPError(t *testing.T) {
	srv := newDocsServer(t)
	l := NewStatic(Config{})

	page, err := l.Open(context.Background(), srv.URL+"/missing")
	if err == nil {
		page.Close()
		t.Fatal("expected error for 404")
	}
	if !errors.Is(err, ErrHTTPStatus) {
		t.Errorf("expected ErrHTTPStatus, got %v", err)
	}
}

func TestStaticLoader_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	l := NewStatic(Config{Timeout: 2 * time.Second})
	if _, err := l.Open(context.Background(), addr+"/docs"); err == nil {
		t.Error("expected error for unreachable host")
	}
}

func TestStaticPage_EvaluateUnsupported(t *testing.T) {
	srv := newDocsServer(t)
	l := NewStatic(Config{})

	page, err := l.Open(context.Background(), srv.URL+"/docs/intro")
	if err != nil {
		t.Fatal(err)
	}
	defer page.Close()

	var out any
	if err := page.Evaluate(context.Background(), "1+1", &out); !errors.Is(err, ErrEvaluateUnsupported) {
		t.Errorf("expected ErrEvaluateUnsupported, got %v", err)
	}
	if err := page.Close(); err != nil {
		t.Errorf("Close() should be idempotent, got %v", err)
	}
}

func TestStaticLoader_SendsHeaders(t *testing.T) {
	var gotUA, gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		_, _ = w.Write([]byte(`<html><body><h1>Docs</h1></body></html>`))
	}))
	t.Cleanup(srv.Close)

	l := NewStatic(Config{UserAgent: "doccrawl-test", Headers: map[string]string{"Accept-Language": "en-GB"}})
	page, err := l.Open(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer page.Close()

	if gotUA != "doccrawl-test" || gotLang != "en-GB" {
		t.Errorf("headers not sent: user-agent=%q accept-language=%q", gotUA, gotLang)
	}
}
