// Package backend talks to the two supported site generations and normalizes
// their responses into the shared novel model.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"youshu-bot/model"
)

// ErrNotFound marks a detail fetch that answered HTTP 404. The random
// sampler treats it as "try another id"; everything else reports it.
var ErrNotFound = errors.New("detail page not found")

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"

// legacyHost identifies the legacy HTML generation of the site.
const legacyHost = "youshu.me"

// Backend is the unified contract over one site generation.
type Backend interface {
	// Search returns one page of results. A structurally empty result set is
	// a SearchPage with TotalPages 0, not an error.
	Search(ctx context.Context, keyword string, page int) (model.SearchPage, error)
	// LatestID returns the newest known novel id, used as the upper bound
	// for random sampling. Absence is a hard error, never a default.
	LatestID(ctx context.Context) (int64, error)
	// FetchDetail returns the raw detail response for an id. HTTP 404 is
	// reported as ErrNotFound, distinct from other transport failures.
	FetchDetail(ctx context.Context, id int64) (string, error)
	// ParseDetail extracts a NovelRecord from a raw detail response. Field
	// extractions are independent; a page that is not a valid detail page
	// yields a record with the sentinel name.
	ParseDetail(raw string, id int64) model.NovelRecord
	// PageSize is the fixed number of items per search page.
	PageSize() int
	Name() string
}

// Select chooses the adapter matching the configured site URL, together with
// its default header profile. Selection happens once; no other component
// inspects which generation is active.
func Select(baseURL, sessionCookie string, timeout time.Duration) Backend {
	client := &http.Client{Timeout: timeout}
	u, err := url.Parse(baseURL)
	if err == nil && strings.Contains(u.Host, legacyHost) {
		return newLegacyBackend(baseURL, sessionCookie, client)
	}
	return newAPIBackend(baseURL, client)
}

// get performs one GET with the adapter's header profile and returns the
// response body plus status code. Non-2xx statuses other than 404 are
// translated into errors here so adapters never leak raw HTTP handling.
func get(ctx context.Context, client *http.Client, rawURL string, headers map[string]string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("request %s: status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return string(body), nil
}

// resolveURL makes a possibly-relative upstream URL absolute against the
// backend base URL. Unresolvable input is passed through unchanged.
func resolveURL(baseURL, ref string) string {
	if ref == "" {
		return ""
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
