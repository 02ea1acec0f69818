// Package valet is the client for the Bank of Canada Valet API. It is the
// fetch collaborator of the sync loop: it reports per-series
// inaccessibility as a tagged outcome rather than an error, and leaves
// retry policy to its own HTTP transport configuration.
package valet

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/subsets-io/valet-connector/internal/obstore"
)

// Outcome tags the result of a per-series fetch.
type Outcome int

const (
	// OutcomeOK means the fetch succeeded; the observation list may be empty.
	OutcomeOK Outcome = iota

	// OutcomeInaccessible means the upstream denied or lacked the series
	// (403/404). The series is skipped, not failed.
	OutcomeInaccessible
)

// FetchResult is the tagged result of fetching one series' observations.
type FetchResult struct {
	Outcome      Outcome
	Observations []obstore.Observation
}

// Config mirrors config.ValetConfig without importing it, so the client
// can be constructed directly in tests.
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Client talks to the Valet API. All requests go through a shared rate
// limiter as a politeness control toward the upstream.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Valet API client.
func NewClient(cfg Config) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// FetchObservations fetches observations for one series from startDate
// forward. startDate may be an ISO date or a quarter code; quarter codes
// are converted to the first day of the quarter for the API call.
func (c *Client) FetchObservations(ctx context.Context, seriesCode, startDate string) (FetchResult, error) {
	url := fmt.Sprintf("%s/observations/%s/csv?start_date=%s",
		c.baseURL, seriesCode, QuarterToISO(startDate))

	body, status, err := c.get(ctx, url)
	if err != nil {
		return FetchResult{}, err
	}
	// Some series are restricted or retired upstream; treat as skip.
	if status == http.StatusForbidden || status == http.StatusNotFound {
		return FetchResult{Outcome: OutcomeInaccessible}, nil
	}
	if status != http.StatusOK {
		return FetchResult{}, fmt.Errorf("fetch observations for %s: unexpected status %d", seriesCode, status)
	}

	obs, err := parseObservationsCSV(string(body), seriesCode)
	if err != nil {
		return FetchResult{}, fmt.Errorf("parse observations for %s: %w", seriesCode, err)
	}
	return FetchResult{Outcome: OutcomeOK, Observations: obs}, nil
}

// FetchSeriesList fetches the raw series list CSV.
func (c *Client) FetchSeriesList(ctx context.Context) (string, error) {
	return c.getText(ctx, c.baseURL+"/lists/series/csv")
}

// FetchGroupsList fetches the raw groups list CSV.
func (c *Client) FetchGroupsList(ctx context.Context) (string, error) {
	return c.getText(ctx, c.baseURL+"/lists/groups/csv")
}

// FetchGroupDetails fetches the JSON detail document for one group.
func (c *Client) FetchGroupDetails(ctx context.Context, groupName string) ([]byte, error) {
	url := fmt.Sprintf("%s/groups/%s/json", c.baseURL, groupName)
	body, status, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("fetch group %s: unexpected status %d", groupName, status)
	}
	return body, nil
}

func (c *Client) getText(ctx context.Context, url string) (string, error) {
	body, status, err := c.get(ctx, url)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("GET %s: unexpected status %d", url, status)
	}
	return string(body), nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request %s: %w", url, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response %s: %w", url, err)
	}
	return body, resp.StatusCode, nil
}

// QuarterToISO converts a quarter code like 2025Q3 to the first day of
// that quarter. ISO dates pass through unchanged.
func QuarterToISO(date string) string {
	i := strings.IndexByte(date, 'Q')
	if i < 0 {
		return date
	}
	year, quarter := date[:i], date[i+1:]
	month := map[string]string{"1": "01", "2": "04", "3": "07", "4": "10"}[quarter]
	if month == "" {
		month = "01"
	}
	return fmt.Sprintf("%s-%s-01", year, month)
}

// parseObservationsCSV extracts (date, value) rows from the vendor
// observations CSV. The payload has metadata sections before an
// "OBSERVATIONS" marker; a payload without the marker has no data.
func parseObservationsCSV(text, seriesCode string) ([]obstore.Observation, error) {
	lines := strings.Split(text, "\n")
	obsStart := -1
	for i, line := range lines {
		if strings.Contains(line, `"OBSERVATIONS"`) {
			obsStart = i + 1
			break
		}
	}
	if obsStart == -1 {
		return nil, nil
	}

	r := csv.NewReader(strings.NewReader(strings.Join(lines[obsStart:], "\n")))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read observations header: %w", err)
	}

	dateCol, valueCol := -1, -1
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case "date":
			dateCol = i
		case seriesCode:
			valueCol = i
		}
	}
	if dateCol == -1 || valueCol == -1 {
		return nil, nil
	}

	var obs []obstore.Observation
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read observations row: %w", err)
		}
		if dateCol >= len(row) || valueCol >= len(row) {
			continue
		}
		obs = append(obs, obstore.Observation{
			Date:       strings.TrimSpace(row[dateCol]),
			SeriesCode: seriesCode,
			Value:      strings.TrimSpace(row[valueCol]),
		})
	}
	return obs, nil
}
