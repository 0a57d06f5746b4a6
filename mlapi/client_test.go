package mlapi

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
)

const testBaseURL = "https://api.example.test"

type staticTokens string

func (s staticTokens) AccessToken() (string, error) {
	return string(s), nil
}

func newTestClient(transport *httpmock.MockTransport, tokens TokenSource) *Client {
	c := NewClient(testBaseURL, 5*time.Second, tokens)
	c.SetTransport(transport)
	return c
}

func TestCategoriesDecodes(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", testBaseURL+"/sites/MCO/categories",
		httpmock.NewStringResponder(200, `[{"id":"MCO1747","name":"Accesorios"},{"id":"MCO1055","name":"Celulares"}]`))

	client := newTestClient(transport, nil)
	cats, err := client.Categories(context.Background(), "MCO")
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(cats) != 2 || cats[0].ID != "MCO1747" {
		t.Fatalf("categories = %+v, want upstream order preserved", cats)
	}
}

func TestSearchItemsSendsBearerAndQuery(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", testBaseURL+"/sites/MCO/search",
		func(req *http.Request) (*http.Response, error) {
			if got := req.Header.Get("Authorization"); got != "Bearer APP_USR-token" {
				t.Errorf("authorization = %q, want bearer token", got)
			}
			q := req.URL.Query()
			if q.Get("category") != "MCO1055" || q.Get("offset") != "50" {
				t.Errorf("query = %v, want category and offset", q)
			}
			return httpmock.NewStringResponse(200, `{"results":[{"id":"MCO123","price":100}]}`), nil
		})

	client := newTestClient(transport, staticTokens("APP_USR-token"))
	results, err := client.SearchItems(context.Background(), "MCO", "MCO1055", 50)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0]["id"] != "MCO123" {
		t.Fatalf("results = %v", results)
	}
}

func TestSearchItemsEmptyPage(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", testBaseURL+"/sites/MCO/search",
		httpmock.NewStringResponder(200, `{"results":[]}`))

	client := newTestClient(transport, staticTokens("tok"))
	results, err := client.SearchItems(context.Background(), "MCO", "MCO1055", 4000)
	if err != nil {
		t.Fatalf("empty page is not an error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("results = %v, want empty", results)
	}
}

func TestNon2xxReturnsErrUpstream(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", testBaseURL+"/sites/MCO/categories",
		httpmock.NewStringResponder(503, ``))

	client := newTestClient(transport, nil)
	_, err := client.Categories(context.Background(), "MCO")

	var upstream ErrUpstream
	if !errors.As(err, &upstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if upstream.Status != 503 {
		t.Fatalf("status = %d, want 503", upstream.Status)
	}
}

func TestMalformedBodyReturnsErrUpstream(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", testBaseURL+"/sites/MCO/categories",
		httpmock.NewStringResponder(200, `{"not":"an array"`))

	client := newTestClient(transport, nil)
	_, err := client.Categories(context.Background(), "MCO")

	var upstream ErrUpstream
	if !errors.As(err, &upstream) {
		t.Fatalf("expected ErrUpstream for malformed body, got %v", err)
	}
}

func TestUserMissingReputationIsMalformed(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", testBaseURL+"/users/12345",
		httpmock.NewStringResponder(200, `{"user_type":"normal"}`))

	client := newTestClient(transport, staticTokens("tok"))
	_, err := client.User(context.Background(), "12345")

	var upstream ErrUpstream
	if !errors.As(err, &upstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestReviewsDecodes(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", testBaseURL+"/reviews/item/MCO123",
		httpmock.NewStringResponder(200, `{"rating_levels":{"one_star":2,"five_star":10},"rating_average":4.5}`))

	client := newTestClient(transport, staticTokens("tok"))
	review, err := client.Reviews(context.Background(), "MCO123")
	if err != nil {
		t.Fatalf("reviews: %v", err)
	}
	if review.RatingAverage != 4.5 {
		t.Fatalf("rating_average = %v, want 4.5", review.RatingAverage)
	}
	if review.RatingLevels["five_star"] != 10 {
		t.Fatalf("rating_levels = %v", review.RatingLevels)
	}
}

func TestErrorTypeLabel(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		expected string
	}{
		{name: "forbidden", status: http.StatusForbidden, expected: "forbidden"},
		{name: "not found", status: http.StatusNotFound, expected: "not_found"},
		{name: "rate limited", status: http.StatusTooManyRequests, expected: "rate_limited"},
		{name: "server error", status: http.StatusBadGateway, expected: "upstream"},
		{name: "context timeout", err: context.DeadlineExceeded, expected: "timeout"},
		{name: "other", err: errors.New("boom"), expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorTypeLabel(tt.err, tt.status); got != tt.expected {
				t.Fatalf("errorTypeLabel(%v, %d) = %q, want %q", tt.err, tt.status, got, tt.expected)
			}
		})
	}
}
