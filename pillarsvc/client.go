// Package pillarsvc calls the external pillar calculation service that
// production traffic prefers over the local pillar.Compute
// implementation (it carries a more complete lunar-calendar table).
// Calls are wrapped in a circuit breaker, grounded on the teacher's use
// of sony/gobreaker around outbound provider calls, so a struggling
// upstream degrades to the local calculator rather than cascading
// failures into the orchestrator.
package pillarsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/sajuworks/saju-gateway/llmclient"
	"github.com/sajuworks/saju-gateway/pillar"
)

// Client calls the external pillar service, falling back to the local
// calculator when the breaker is open or all retries are exhausted.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	maxRetries int
}

// Config configures the pillar service client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// New builds a pillar service client backed by the shared connection pool.
func New(cfg Config, pool *llmclient.ConnectionPool) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}

	var httpClient *http.Client
	if pool != nil {
		httpClient = pool.GetClient("pillarsvc", cfg.Timeout)
	} else {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	settings := gobreaker.Settings{
		Name:        "pillarsvc",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
		breaker:    gobreaker.NewCircuitBreaker(settings),
		maxRetries: cfg.MaxRetries,
	}
}

type pillarResponse struct {
	Pillars struct {
		Year  string `json:"year"`
		Month string `json:"month"`
		Day   string `json:"day"`
		Hour  string `json:"hour"`
	} `json:"pillars"`
}

// Compute fetches the four-pillar chart from the external service. On
// breaker-open or exhausted retries it falls back to the local
// calculator so a caller always gets a usable chart.
func (c *Client) Compute(ctx context.Context, in pillar.BirthInput) (pillar.Pillars, bool, error) {
	if c.baseURL == "" {
		p, err := pillar.Compute(ctx, in)
		return p, false, err
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetchWithRetry(ctx, in)
	})
	if err != nil {
		p, localErr := pillar.Compute(ctx, in)
		if localErr != nil {
			return pillar.Pillars{}, false, fmt.Errorf("pillarsvc: upstream failed (%w) and local fallback failed: %v", err, localErr)
		}
		return p, true, nil
	}

	return result.(pillar.Pillars), false, nil
}

func (c *Client) fetchWithRetry(ctx context.Context, in pillar.BirthInput) (pillar.Pillars, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
			case <-ctx.Done():
				return pillar.Pillars{}, ctx.Err()
			}
		}

		p, err := c.fetchOnce(ctx, in)
		if err == nil {
			return p, nil
		}
		lastErr = err
	}
	return pillar.Pillars{}, lastErr
}

func (c *Client) fetchOnce(ctx context.Context, in pillar.BirthInput) (pillar.Pillars, error) {
	calendar := in.Calendar
	if calendar == "" {
		calendar = "solar"
	}

	q := url.Values{}
	q.Set("y", strconv.Itoa(in.Year))
	q.Set("m", strconv.Itoa(in.Month))
	q.Set("d", strconv.Itoa(in.Day))
	q.Set("hh", strconv.Itoa(in.Hour))
	q.Set("mm", strconv.Itoa(in.Minute))
	q.Set("calendar", calendar)
	q.Set("gender", in.Gender)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/saju?"+q.Encode(), nil)
	if err != nil {
		return pillar.Pillars{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pillar.Pillars{}, fmt.Errorf("pillarsvc: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return pillar.Pillars{}, fmt.Errorf("pillarsvc: unexpected status %d", resp.StatusCode)
	}

	var out pillarResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return pillar.Pillars{}, fmt.Errorf("pillarsvc: decode failed: %w", err)
	}

	return parsePillars(out)
}

func parsePillars(out pillarResponse) (pillar.Pillars, error) {
	year, err := parseGanzi(out.Pillars.Year)
	if err != nil {
		return pillar.Pillars{}, err
	}
	month, err := parseGanzi(out.Pillars.Month)
	if err != nil {
		return pillar.Pillars{}, err
	}
	day, err := parseGanzi(out.Pillars.Day)
	if err != nil {
		return pillar.Pillars{}, err
	}
	hour, err := parseGanzi(out.Pillars.Hour)
	if err != nil {
		return pillar.Pillars{}, err
	}
	return pillar.Pillars{Year: year, Month: month, Day: day, Hour: hour}, nil
}

func parseGanzi(s string) (pillar.Pillar, error) {
	runes := []rune(s)
	if len(runes) != 2 {
		return pillar.Pillar{}, fmt.Errorf("pillarsvc: malformed ganzi %q", s)
	}
	stemIdx, branchIdx := -1, -1
	for i, st := range pillar.Stems {
		if st == string(runes[0]) {
			stemIdx = i
		}
	}
	for i, br := range pillar.Branches {
		if br == string(runes[1]) {
			branchIdx = i
		}
	}
	if stemIdx == -1 || branchIdx == -1 {
		return pillar.Pillar{}, fmt.Errorf("pillarsvc: unrecognized ganzi %q", s)
	}
	return pillar.Pillar{StemIdx: stemIdx, BranchIdx: branchIdx}, nil
}
