// Package catalogapi queries a remote raster catalog over HTTP.
package catalogapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/couchcryptid/snow-phenology/internal/domain"
)

const (
	dayLayout = "2006-01-02"

	contentTypeMsgPack = "application/x-msgpack"

	defaultAttempts = 3
	defaultBackoff  = 200 * time.Millisecond
	maxBackoff      = 2 * time.Second
)

// Client implements domain.Catalog against the catalog series endpoint.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	logger      *slog.Logger
	maxAttempts int
	backoff     time.Duration
}

// NewClient creates a catalog client for baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:     strings.TrimRight(baseURL, "/"),
		logger:      logger,
		maxAttempts: defaultAttempts,
		backoff:     defaultBackoff,
	}
}

// Query fetches the series of dataset band within [start, end). The server
// answers in MessagePack when it supports it and JSON otherwise. Transport
// failures and 5xx responses are retried with exponential backoff.
func (c *Client) Query(ctx context.Context, dataset, band string, start, end time.Time) (domain.Series, error) {
	params := url.Values{
		"dataset": {dataset},
		"band":    {band},
		"start":   {start.UTC().Format(dayLayout)},
		"end":     {end.UTC().Format(dayLayout)},
		"format":  {"msgpack"},
	}
	fullURL := c.baseURL + "/v1/series?" + params.Encode()

	backoff := c.backoff
	for attempt := 1; ; attempt++ {
		s, retryable, err := c.doRequest(ctx, fullURL, dataset, band, start, end)
		if err == nil || !retryable || attempt >= c.maxAttempts || ctx.Err() != nil {
			return s, err
		}
		c.logger.Warn("catalog request failed, retrying",
			"dataset", dataset, "band", band, "attempt", attempt, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return nil, ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}

func (c *Client) doRequest(ctx context.Context, fullURL, dataset, band string, start, end time.Time) (domain.Series, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("series request %s/%s: %w", dataset, band, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.logger.Debug("catalog has no series", "dataset", dataset, "band", band)
		return nil, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, resp.StatusCode >= 500, fmt.Errorf("catalog API error: status %d: %s", resp.StatusCode, body)
	}

	var sr seriesResponse
	if strings.HasPrefix(resp.Header.Get("Content-Type"), contentTypeMsgPack) {
		dec := msgpack.NewDecoder(resp.Body)
		dec.SetCustomStructTag("json")
		err = dec.Decode(&sr)
	} else {
		err = json.NewDecoder(resp.Body).Decode(&sr)
	}
	if err != nil {
		return nil, false, fmt.Errorf("decode response: %w", err)
	}

	s, err := sr.series(band, start, end)
	return s, false, err
}

// Catalog API response types.

type seriesResponse struct {
	Grid   domain.Grid `json:"grid"`
	Frames []frame     `json:"frames"`
}

type frame struct {
	Date   string    `json:"date"`
	Values []float64 `json:"values"`
	Valid  []bool    `json:"valid"`
}

// series converts the response, dropping frames outside [start, end) and
// masking product flags. Every frame must carry its validity mask.
func (sr seriesResponse) series(band string, start, end time.Time) (domain.Series, error) {
	frames := make([]domain.Frame, 0, len(sr.Frames))
	for _, f := range sr.Frames {
		day, err := time.Parse(dayLayout, f.Date)
		if err != nil {
			return nil, fmt.Errorf("frame date %q: %w", f.Date, err)
		}
		if day.Before(start) || !day.Before(end) {
			continue
		}
		if len(f.Valid) == 0 && len(f.Values) > 0 {
			return nil, fmt.Errorf("frame %s: no validity mask", f.Date)
		}
		r, err := domain.NewRaster(sr.Grid, band, f.Values, f.Valid)
		if err != nil {
			return nil, fmt.Errorf("frame %s: %w", f.Date, err)
		}
		frames = append(frames, domain.Frame{Time: day, Raster: domain.MaskFlags(r)})
	}
	return domain.NewSeries(frames...), nil
}
