package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/GoSim-25-26J-441/marketplace-core/internal/currency/domain"
)

// DefaultEndpoint is the ipapi.co JSON lookup
const DefaultEndpoint = "https://ipapi.co"

// Client looks up the country and currency of an IP address.
type Client struct {
	endpoint string
	http     *http.Client
	limiter  *rate.Limiter
}

// NewClient creates a Client. requestsPerSecond bounds outbound calls; the
// free tier of most lookup services throttles hard.
func NewClient(endpoint string, requestsPerSecond float64, burst int) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	if burst <= 0 {
		burst = 5
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

type lookupResponse struct {
	CountryCode string `json:"country_code"`
	Currency    string `json:"currency"`
	IP          string `json:"ip"`
	Error       bool   `json:"error"`
	Reason      string `json:"reason"`
}

// Locate resolves ip, or the caller's own address when ip is empty. The
// request is aborted when ctx ends.
func (c *Client) Locate(ctx context.Context, ip string) (*domain.GeolocationData, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("geolocation rate limit: %w", err)
	}

	url := c.endpoint + "/json/"
	if ip != "" {
		url = c.endpoint + "/" + ip + "/json/"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geolocation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("geolocation returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode geolocation response: %w", err)
	}
	if out.Error {
		return nil, fmt.Errorf("geolocation lookup failed: %s", out.Reason)
	}

	return &domain.GeolocationData{
		Country:  strings.ToUpper(out.CountryCode),
		Currency: strings.ToUpper(out.Currency),
		IP:       out.IP,
	}, nil
}
