package granule

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jacqryan/gridsif/internal/httputil"
	"github.com/jacqryan/gridsif/internal/metrics"
)

// HTTPSource fetches granules from an HTTP archive laid out as
// <base>/<dataset>/<yyyy>/<dataset>_<yymmdd>.json.gz, with a catalog.json
// per dataset describing its coverage. Transient failures (timeouts, 429,
// 5xx) are retried with exponential backoff; anything else fails fast.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  httputil.NewClient(),
	}
}

func (s *HTTPSource) Fetch(ctx context.Context, dataset string, d time.Time) (Handle, error) {
	url := fmt.Sprintf("%s/%s/%d/%s", s.baseURL, dataset, d.Year(), granuleName(dataset, d))

	start := time.Now()
	body, err := s.get(ctx, url)
	metrics.GranuleFetchLatency.WithLabelValues("http").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GranuleFetchesTotal.WithLabelValues("http", fetchStatus(err)).Inc()
		return nil, err
	}
	metrics.GranuleFetchesTotal.WithLabelValues("http", "ok").Inc()

	return decode(bytes.NewReader(body))
}

// get retrieves url with retry. 404 maps to ErrNotFound and is never retried.
func (s *HTTPSource) get(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", url, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(fmt.Errorf("%w: %s", ErrNotFound, url))
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("fetch %s: status %d: %s", url, resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return body, nil
}

type catalogDoc struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (s *HTTPSource) TimeRange(ctx context.Context, dataset string) (time.Time, time.Time, error) {
	body, err := s.get(ctx, fmt.Sprintf("%s/%s/catalog.json", s.baseURL, dataset))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("dataset catalog: %w", err)
	}

	var cat catalogDoc
	if err := json.Unmarshal(body, &cat); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse catalog: %w", err)
	}
	first, err := time.Parse("2006-01-02", cat.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("catalog start: %w", err)
	}
	last, err := time.Parse("2006-01-02", cat.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("catalog end: %w", err)
	}
	return first, last, nil
}

func fetchStatus(err error) string {
	if err == nil {
		return "ok"
	}
	if isNotFound(err) {
		return "not_found"
	}
	return "error"
}
