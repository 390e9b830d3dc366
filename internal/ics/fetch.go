package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	appLog "ical2org/internal/log"
)

// cacheEntry holds the HTTP validators for one fetched URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher resolves calendar sources. A source is a local path, "-" for
// stdin, or an http(s) URL. URL fetches go through a disk cache with
// conditional requests, so an unchanged feed costs one 304 and a feed
// behind a flaky network degrades to the last good body.
type Fetcher struct {
	client   *http.Client
	cacheDir string
	stdin    io.Reader
}

// NewFetcher creates a Fetcher caching URL bodies under cacheDir.
func NewFetcher(cacheDir string) *Fetcher {
	if cacheDir == "" {
		cacheDir = filepath.Join(".", "ical2org-cache")
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		cacheDir: cacheDir,
		stdin:    os.Stdin,
	}
}

// Open resolves one source to its calendar bytes.
func (f *Fetcher) Open(ctx context.Context, input string) ([]byte, error) {
	switch {
	case input == "":
		return nil, errors.New("source input is empty")
	case input == "-":
		return io.ReadAll(f.stdin)
	case strings.HasPrefix(input, "http://"), strings.HasPrefix(input, "https://"):
		return f.fetchURL(ctx, input)
	default:
		return os.ReadFile(input)
	}
}

// fetchURL fetches one URL, honoring ETag and Last-Modified from the disk
// cache. A 304 or a network failure falls back to the cached body; the
// fallback after a failure is logged as a warning since the feed may be
// stale.
func (f *Fetcher) fetchURL(ctx context.Context, rawURL string) ([]byte, error) {
	cachePath := f.cachePathForURL(rawURL)
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return nil, err
	}

	meta, _ := f.loadCacheMeta(cachePath)
	cachedBody, _ := f.loadCacheBody(cachePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	appLog.Debug("fetching calendar", "url", redactURL(rawURL))

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cachedBody) > 0 {
			appLog.Warn("fetch failed, using cached body", "url", redactURL(rawURL), "err", err)
			return cachedBody, nil
		}
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, readErr
		}
		newMeta := cacheEntry{
			URL:          rawURL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := f.saveCache(cachePath, newMeta, body); err != nil {
			// The fresh body is still good; only the next fetch loses the
			// conditional request.
			appLog.Warn("cache save failed", "url", redactURL(rawURL), "err", err)
		}
		return body, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return nil, errors.New("got 304 Not Modified but cache is empty")
		}
		appLog.Debug("calendar unchanged, using cache", "url", redactURL(rawURL))
		return cachedBody, nil

	default:
		if len(cachedBody) > 0 {
			appLog.Warn("fetch returned non-OK, using cached body",
				"url", redactURL(rawURL), "status", resp.StatusCode)
			return cachedBody, nil
		}
		return nil, fmt.Errorf("fetch %s: %s", redactURL(rawURL), resp.Status)
	}
}

// cachePathForURL keys the cache by a hash of the URL, so credentials and
// tokens never appear in directory names.
func (f *Fetcher) cachePathForURL(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func (f *Fetcher) loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func (f *Fetcher) loadCacheBody(cachePath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(cachePath, "body.ics"))
}

func (f *Fetcher) saveCache(cachePath string, meta cacheEntry, body []byte) error {
	// Body first, so meta never points at a missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body.ics"), body, 0o600); err != nil {
		return err
	}

	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}

// redactURL strips credentials and the query string from a URL before it
// reaches a log line. Private feed URLs routinely embed tokens.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "(unparsable url)"
	}
	u.User = nil
	if u.RawQuery != "" {
		u.RawQuery = "redacted"
	}
	return u.String()
}
