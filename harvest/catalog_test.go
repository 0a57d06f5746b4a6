package harvest

import (
	"context"
	"errors"
	"testing"

	"github.com/jarcoal/httpmock"

	"github.com/icaro1518/ml-discounts/mlapi"
)

func TestCatalogFetchSortsByID(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", testBaseURL+"/sites/MCO/categories",
		httpmock.NewStringResponder(200,
			`[{"id":"MCO1747","name":"Accesorios"},{"id":"MCO1055","name":"Celulares"},{"id":"MCO1403","name":"Alimentos"}]`))

	s := newTestSession(t, transport)
	catalog, err := NewCatalog(s)
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}

	cats, err := catalog.Fetch(context.Background(), "MCO")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(cats) != 3 {
		t.Fatalf("categories = %d, want 3", len(cats))
	}
	for i := 1; i < len(cats); i++ {
		if cats[i-1].ID >= cats[i].ID {
			t.Fatalf("categories not sorted ascending: %v", cats)
		}
	}
}

func TestCatalogCachesPerSite(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", testBaseURL+"/sites/MCO/categories",
		httpmock.NewStringResponder(200, `[{"id":"MCO1055","name":"Celulares"}]`))

	s := newTestSession(t, transport)
	catalog, err := NewCatalog(s)
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := catalog.Fetch(context.Background(), "MCO"); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}

	calls := transport.GetCallCountInfo()
	if got := calls["GET "+testBaseURL+"/sites/MCO/categories"]; got != 1 {
		t.Fatalf("upstream calls = %d, want 1 (cached)", got)
	}
}

func TestCatalogUpstreamErrorPropagates(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", testBaseURL+"/sites/MCO/categories",
		httpmock.NewStringResponder(500, ``))

	s := newTestSession(t, transport)
	catalog, err := NewCatalog(s)
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}

	_, err = catalog.Fetch(context.Background(), "MCO")
	var upstream mlapi.ErrUpstream
	if !errors.As(err, &upstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}
