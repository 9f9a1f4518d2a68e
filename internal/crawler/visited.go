// Package crawler walks a documentation site's linear next-page chain, writing
// every page it visits to a chunked sink.
package crawler

import (
	"errors"
	"net/url"
	"strings"
)

// VisitedSet records canonical URLs that have entered the Loading state.
// There is no removal. It is not safe for concurrent use; the engine mutates
// it from a single goroutine.
type VisitedSet struct {
	seen map[string]struct{}
}

// NewVisitedSet creates an empty visited set.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{seen: make(map[string]struct{})}
}

// Contains reports whether u has been added.
func (v *VisitedSet) Contains(u string) bool {
	_, ok := v.seen[u]
	return ok
}

// Add marks u as visited.
func (v *VisitedSet) Add(u string) {
	v.seen[u] = struct{}{}
}

// Len returns the number of visited URLs.
func (v *VisitedSet) Len() int {
	return len(v.seen)
}

// Normalize resolves raw against base and returns its canonical form. The
// fragment is always dropped; the query only when stripQuery is set, since
// some sites keep pagination state there. Only http and https URLs are
// accepted.
func Normalize(base *url.URL, raw string, stripQuery bool) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", &InvalidURLError{URL: raw, Err: errors.New("empty url")}
	}

	ref, err := url.Parse(trimmed)
	if err != nil {
		return "", &InvalidURLError{URL: raw, Err: err}
	}

	u := ref
	if base != nil {
		u = base.ResolveReference(ref)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", &InvalidURLError{URL: raw, Err: errors.New("scheme must be http or https")}
	}
	if u.Host == "" {
		return "", &InvalidURLError{URL: raw, Err: errors.New("missing host")}
	}

	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	if stripQuery {
		u.RawQuery = ""
		u.ForceQuery = false
	}
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String(), nil
}

// IsSameDomain checks if two URLs are on the same host.
func IsSameDomain(url1, url2 string) bool {
	parsed1, err := url.Parse(url1)
	if err != nil {
		return false
	}
	parsed2, err := url.Parse(url2)
	if err != nil {
		return false
	}
	return strings.EqualFold(parsed1.Host, parsed2.Host)
}
