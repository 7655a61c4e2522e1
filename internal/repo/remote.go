package repo

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
)

// probeRelPath is a small file every CPAN-style site serves; fetching it
// proves the site is alive.
const probeRelPath = "authors/01mailrc.txt.gz"

var errNotFound = errors.New("not found")

// fetchURL retrieves url and returns the body bytes.  A 404 yields
// errNotFound; other non-200 statuses are plain errors.
func fetchURL(ctx context.Context, client *http.Client, u *url.URL) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, errors.Newf("status %d for %s", resp.StatusCode, u)
	}
	return io.ReadAll(resp.Body)
}

// SelectRemote probes the configured sites in order and returns the first
// one that serves the probe file.  Failure of one site degrades to the
// next; only when every site fails is an error returned.
func (r *Repo) SelectRemote(ctx context.Context) (*url.URL, error) {
	if len(r.config.Remote) == 0 {
		return nil, errors.Mark(errors.New("no remote sites configured"), ErrConfiguration)
	}

	client := &http.Client{
		Transport: http.DefaultTransport,
		Timeout:   0, // no timeout; timeout is controlled by context
	}

	var lastErr error
	for _, site := range r.config.Remote {
		target := site.ResolveReference(&url.URL{Path: probeRelPath})
		start := time.Now()
		_, err := fetchURL(ctx, client, target)
		if err != nil {
			lastErr = err
			slog.Warn("remote site unreachable", "site", site.String(), "error", err)
			continue
		}
		slog.Info("remote site reachable", "site", site.String(), "elapsed", time.Since(start))
		return site.URL, nil
	}
	return nil, errors.Wrap(lastErr, "no reachable remote site")
}
