// Package theoddsapi implements contracts.OddsClient against The Odds
// API's v4 HTTP JSON feed. Grounded on Mercury's own adapters/theoddsapi
// client: same doRequestWithRetry/doRequest/updateRateLimits shape and
// response structs, extended with a circuit breaker and a client-side
// rate limiter per SPEC_FULL.md's domain stack.
package theoddsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/fortuna-sports/arbiter/pkg/contracts"
	"github.com/fortuna-sports/arbiter/pkg/models"
	"github.com/fortuna-sports/arbiter/pkg/oddserr"
)

const (
	baseURL    = "https://api.the-odds-api.com"
	apiVersion = "v4"
	userAgent  = "arbiter/1.0 (Fortuna Odds Aggregator)"
	timeout    = 30 * time.Second // spec §5: every upstream HTTP call has a 30s timeout
	maxRetries = 3
	retryDelay = 1 * time.Second // doubled per retry: 1s, then 2s
	jitterFrac = 0.10
)

// Client implements contracts.OddsClient for The Odds API.
type Client struct {
	apiKey     string
	regions    string
	markets    string
	oddsFormat string
	baseURL    string

	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter

	mu         sync.RWMutex
	quota      models.QuotaSnapshot
}

var _ contracts.OddsClient = (*Client)(nil)

// NewClient builds a client for the given API key, regions/markets CSV,
// and display odds format.
func NewClient(apiKey, regions, marketsCSV, oddsFormat string) *Client {
	c := &Client{
		apiKey:     apiKey,
		regions:    regions,
		markets:    marketsCSV,
		oddsFormat: oddsFormat,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		// Self-throttle ahead of a 429: start permissive, tightened once a
		// QuotaSnapshot is observed (see updateRateLimits).
		limiter: rate.NewLimiter(rate.Limit(5), 5),
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "theoddsapi",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return c
}

// ListSports returns the upstream sport catalogue.
func (c *Client) ListSports(ctx context.Context) ([]models.Sport, error) {
	endpoint := fmt.Sprintf("%s/%s/sports", c.baseURL, apiVersion)
	params := url.Values{"apiKey": {c.apiKey}}
	fullURL := fmt.Sprintf("%s?%s", endpoint, params.Encode())

	body, err := c.doRequestWithRetry(ctx, fullURL)
	if err != nil {
		return nil, err
	}

	var resp []sportResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, oddserr.InvalidPayload("parse sports response", err)
	}

	sports := make([]models.Sport, 0, len(resp))
	for _, s := range resp {
		sports = append(sports, models.Sport{
			Key:         s.Key,
			Group:       s.Group,
			Title:       s.Title,
			Active:      s.Active,
			HasOutcomes: s.HasOutcomes,
		})
	}
	return sports, nil
}

// GetOdds issues one request for sportKey and returns its normalised
// events plus the quota snapshot observed from the response headers.
func (c *Client) GetOdds(ctx context.Context, sportKey string) ([]models.Event, models.QuotaSnapshot, error) {
	endpoint := fmt.Sprintf("%s/%s/sports/%s/odds", c.baseURL, apiVersion, sportKey)

	params := url.Values{}
	params.Set("apiKey", c.apiKey)
	params.Set("regions", c.regions)
	params.Set("markets", c.markets)
	params.Set("oddsFormat", "american")
	params.Set("dateFormat", "iso")

	fullURL := fmt.Sprintf("%s?%s", endpoint, params.Encode())

	body, err := c.doRequestWithRetry(ctx, fullURL)
	if err != nil {
		return nil, models.QuotaSnapshot{}, err
	}

	var resp []oddsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, models.QuotaSnapshot{}, oddserr.InvalidPayload("parse odds response", err)
	}

	events, err := parseOddsResponse(resp, sportKey)
	if err != nil {
		return nil, models.QuotaSnapshot{}, err
	}

	c.mu.RLock()
	quota := c.quota
	c.mu.RUnlock()

	return events, quota, nil
}

// doRequestWithRetry makes up to maxRetries attempts in total, retrying
// TransientErrors with exponential backoff and up to 10% random jitter.
// AuthError/BadRequest/QuotaExhausted are not retried — they propagate
// immediately.
func (c *Client) doRequestWithRetry(ctx context.Context, fullURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, oddserr.Cancelled("rate limiter wait cancelled")
	}

	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := retryDelay * time.Duration(1<<uint(attempt-1))
			backoff += time.Duration(rand.Float64() * jitterFrac * float64(backoff))
			select {
			case <-ctx.Done():
				return nil, oddserr.Cancelled("context cancelled during backoff")
			case <-time.After(backoff):
			}
		}

		body, err := c.doRequestViaBreaker(ctx, fullURL)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !oddserr.Is(err, oddserr.KindTransient) {
			return nil, err
		}
	}

	return nil, oddserr.Transient("max retries exceeded", lastErr)
}

func (c *Client) doRequestViaBreaker(ctx context.Context, fullURL string) ([]byte, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		return c.doRequest(ctx, fullURL)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, oddserr.Transient("circuit breaker open", err)
		}
		return nil, err
	}
	return result.([]byte), nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, oddserr.Transient("build request", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, oddserr.Transient("execute request", err)
	}
	defer resp.Body.Close()

	c.updateRateLimits(resp.Header)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, oddserr.Transient("read response body", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, oddserr.Auth(string(body))
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, oddserr.BadRequest(string(body))
	case resp.StatusCode == http.StatusTooManyRequests:
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			return nil, oddserr.QuotaExhaustedUntil(string(body), time.Now().UTC().Add(time.Duration(secs)*time.Second))
		}
		return nil, oddserr.QuotaExhausted(string(body))
	case resp.StatusCode >= 500:
		return nil, oddserr.Transient(fmt.Sprintf("upstream HTTP %d", resp.StatusCode), nil)
	default:
		return nil, oddserr.BadRequest(fmt.Sprintf("upstream HTTP %d: %s", resp.StatusCode, body))
	}
}

// updateRateLimits extracts rate limit info from response headers and
// retunes the client-side limiter toward the observed remaining quota.
func (c *Client) updateRateLimits(headers http.Header) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if remaining := headers.Get("x-requests-remaining"); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			c.quota.RequestsRemaining = val
			if val < 50 {
				c.limiter.SetLimit(rate.Limit(1))
			}
		}
	}
	if used := headers.Get("x-requests-used"); used != "" {
		if val, err := strconv.Atoi(used); err == nil {
			c.quota.RequestsUsed = val
		}
	}
	c.quota.ObservedAt = time.Now().UTC()
}

// sportResponse mirrors the upstream /v4/sports JSON shape.
type sportResponse struct {
	Key         string `json:"key"`
	Group       string `json:"group"`
	Title       string `json:"title"`
	Active      bool   `json:"active"`
	HasOutcomes bool   `json:"has_outcomes"`
}

// API response structures matching The Odds API JSON format.

type oddsResponse struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	CommenceTime string      `json:"commence_time"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Bookmakers   []bookmaker `json:"bookmakers"`
}

type bookmaker struct {
	Key        string   `json:"key"`
	Title      string   `json:"title"`
	LastUpdate string   `json:"last_update"`
	Markets    []market `json:"markets"`
}

type market struct {
	Key        string    `json:"key"`
	LastUpdate string    `json:"last_update"`
	Outcomes   []outcome `json:"outcomes"`
}

type outcome struct {
	Name  string   `json:"name"`
	Price float64  `json:"price"`
	Point *float64 `json:"point,omitempty"`
}
