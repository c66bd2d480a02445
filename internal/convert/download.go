package convert

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	appLog "gatherbot/internal/log"
)

// Downloader fetches attachments with a size cap.
type Downloader struct {
	client   *http.Client
	maxBytes int64
}

func NewDownloader(maxBytes int64) *Downloader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Downloader{
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		maxBytes: maxBytes,
	}
}

// Fetch downloads rawURL into memory. Bodies larger than the cap fail with
// ErrTooLarge without being read in full.
func (d *Downloader) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	appLog.Debug("attachment download start", "url", redactURL(rawURL))

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(resp.Status)
	}
	if resp.ContentLength > d.maxBytes {
		return nil, ErrTooLarge
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > d.maxBytes {
		return nil, ErrTooLarge
	}

	appLog.Debug("attachment download done", "url", redactURL(rawURL), "bytes", len(body))
	return body, nil
}

// redactURL keeps only scheme and host; attachment URLs carry signed
// query strings.
func redactURL(u string) string {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return "(redacted)"
	}
	return parsed.Scheme + "://" + parsed.Host + "/...(redacted)"
}
