// Package mlapi is the HTTP client for the marketplace data endpoints:
// categories, item search, users, and item reviews.
package mlapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/icaro1518/ml-discounts/models"
)

// TokenSource yields the current access token. auth.Store implements it.
type TokenSource interface {
	AccessToken() (string, error)
}

// Recorder receives request-level observations. All methods must tolerate
// concurrent use; harvest.Metrics implements it.
type Recorder interface {
	IncRequest(endpoint string)
	ObserveDuration(endpoint string, d time.Duration)
	IncError(label string)
}

// Client issues bearer-authenticated JSON GETs against the marketplace API.
type Client struct {
	baseURL  string
	http     *http.Client
	tokens   TokenSource
	limiter  *rate.Limiter
	recorder Recorder
}

// NewClient builds a client with an explicit timeout and a tuned transport.
// tokens may be nil for unauthenticated use (categories only).
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	return &Client{
		baseURL: baseURL,
		tokens:  tokens,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// SetRateLimit paces outgoing requests. Zero disables pacing.
func (c *Client) SetRateLimit(requestsPerSecond float64) {
	if requestsPerSecond <= 0 {
		c.limiter = nil
		return
	}
	burst := int(requestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// SetRecorder attaches a metrics recorder.
func (c *Client) SetRecorder(r Recorder) {
	c.recorder = r
}

// SetTransport swaps the underlying round tripper (test hook).
func (c *Client) SetTransport(rt http.RoundTripper) {
	c.http.Transport = rt
}

// Categories fetches the top-level category list for a country site. The
// endpoint requires no authentication and returns the upstream order.
func (c *Client) Categories(ctx context.Context, site string) ([]models.Category, error) {
	var cats []models.Category
	path := fmt.Sprintf("/sites/%s/categories", site)
	if err := c.getJSON(ctx, "categories", path, nil, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

type searchResponse struct {
	Results []map[string]any `json:"results"`
}

// SearchItems fetches one page of category search results. An empty page is
// a valid response and comes back as an empty slice.
func (c *Client) SearchItems(ctx context.Context, site, categoryID string, offset int) ([]map[string]any, error) {
	query := url.Values{
		"category": {categoryID},
		"offset":   {strconv.Itoa(offset)},
	}
	var resp searchResponse
	path := fmt.Sprintf("/sites/%s/search", site)
	if err := c.getJSON(ctx, "search", path, query, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// UserProfile is the subset of the user endpoint the seller harvester
// consumes.
type UserProfile struct {
	UserType         string         `json:"user_type"`
	SellerReputation map[string]any `json:"seller_reputation"`
}

// User fetches a seller profile. A body without seller_reputation counts as
// malformed.
func (c *Client) User(ctx context.Context, userID string) (*UserProfile, error) {
	var profile UserProfile
	path := "/users/" + userID
	if err := c.getJSON(ctx, "users", path, nil, &profile); err != nil {
		return nil, err
	}
	if profile.SellerReputation == nil {
		return nil, ErrUpstream{URL: c.baseURL + path, Err: errors.New("response missing seller_reputation")}
	}
	return &profile, nil
}

// Review is the rating histogram for one item.
type Review struct {
	RatingLevels  map[string]float64 `json:"rating_levels"`
	RatingAverage float64            `json:"rating_average"`
}

// Reviews fetches the rating-level histogram for an item. A body without
// rating_levels counts as malformed.
func (c *Client) Reviews(ctx context.Context, itemID string) (*Review, error) {
	var review Review
	path := "/reviews/item/" + itemID
	if err := c.getJSON(ctx, "reviews", path, nil, &review); err != nil {
		return nil, err
	}
	if review.RatingLevels == nil {
		return nil, ErrUpstream{URL: c.baseURL + path, Err: errors.New("response missing rating_levels")}
	}
	return &review, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		token, err := c.tokens.AccessToken()
		if err != nil {
			return fmt.Errorf("load access token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	if c.recorder != nil {
		c.recorder.IncRequest(endpoint)
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if c.recorder != nil {
		c.recorder.ObserveDuration(endpoint, time.Since(start))
	}
	if err != nil {
		if c.recorder != nil {
			c.recorder.IncError(errorTypeLabel(err, 0))
		}
		return ErrUpstream{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		if c.recorder != nil {
			c.recorder.IncError(errorTypeLabel(nil, resp.StatusCode))
		}
		return ErrUpstream{Status: resp.StatusCode, URL: target}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if c.recorder != nil {
			c.recorder.IncError("decode")
		}
		return ErrUpstream{Status: resp.StatusCode, URL: target, Err: fmt.Errorf("decode body: %w", err)}
	}
	return nil
}
