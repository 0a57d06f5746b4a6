package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
)

const testTokenURL = "https://api.example.test/oauth/token"

func newTestAuthority(t *testing.T, transport *httpmock.MockTransport) (*Authority, *Store) {
	t.Helper()
	store := NewStore(t.TempDir())
	authority := NewAuthority(testTokenURL, store, 5*time.Second)
	authority.client.Transport = transport
	return authority, store
}

func TestExchangeStoresBothTokens(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("POST", testTokenURL, func(req *http.Request) (*http.Response, error) {
		body, _ := io.ReadAll(req.Body)
		form := string(body)
		for _, want := range []string{"grant_type=authorization_code", "client_id=app1", "code=TG-code", "redirect_uri="} {
			if !strings.Contains(form, want) {
				t.Errorf("form body missing %q: %s", want, form)
			}
		}
		return httpmock.NewJsonResponse(200, map[string]any{
			"access_token":  "APP_USR-new",
			"refresh_token": "TG-new",
			"expires_in":    21600,
		})
	})

	authority, store := newTestAuthority(t, transport)

	creds, err := authority.Exchange(context.Background(), "secret", "app1", "TG-code", "https://cb.example.test")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if creds.AccessToken != "APP_USR-new" || creds.RefreshToken != "TG-new" {
		t.Fatalf("credentials = %+v, want response values", creds)
	}

	if stored, _ := store.AccessToken(); stored != "APP_USR-new" {
		t.Fatalf("stored access token = %q, want APP_USR-new", stored)
	}
	if stored, _ := store.RefreshToken(); stored != "TG-new" {
		t.Fatalf("stored refresh token = %q, want TG-new", stored)
	}
}

func TestExchangeMissingFieldPersistsNothing(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("POST", testTokenURL,
		httpmock.NewStringResponder(200, `{"access_token": "APP_USR-partial"}`))

	authority, store := newTestAuthority(t, transport)

	_, err := authority.Exchange(context.Background(), "secret", "app1", "TG-code", "https://cb.example.test")
	var authErr ErrAuth
	if !errors.As(err, &authErr) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}

	var notFound ErrTokenNotFound
	if _, err := store.AccessToken(); !errors.As(err, &notFound) {
		t.Fatalf("partial credentials must not be persisted, got %v", err)
	}
}

func TestExchangeDeniedReturnsErrAuth(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("POST", testTokenURL,
		httpmock.NewStringResponder(400, `{"error": "invalid_grant"}`))

	authority, store := newTestAuthority(t, transport)

	if _, err := authority.Exchange(context.Background(), "secret", "app1", "bad", "https://cb.example.test"); err == nil {
		t.Fatalf("expected error for denied exchange")
	}
	var notFound ErrTokenNotFound
	if _, err := store.AccessToken(); !errors.As(err, &notFound) {
		t.Fatalf("denied exchange must not persist state")
	}
}

func TestRefreshKeepsRefreshToken(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("POST", testTokenURL,
		httpmock.NewStringResponder(200, `{"access_token": "APP_USR-rotated"}`))

	authority, store := newTestAuthority(t, transport)
	if err := store.SaveAccessToken("APP_USR-stale"); err != nil {
		t.Fatalf("seed access token: %v", err)
	}
	if err := store.SaveRefreshToken("TG-longlived"); err != nil {
		t.Fatalf("seed refresh token: %v", err)
	}

	token, err := authority.Refresh(context.Background(), "secret", "app1", "TG-longlived")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if token != "APP_USR-rotated" {
		t.Fatalf("token = %q, want APP_USR-rotated", token)
	}

	if stored, _ := store.AccessToken(); stored != "APP_USR-rotated" {
		t.Fatalf("access slot = %q, want rotated value", stored)
	}
	if stored, _ := store.RefreshToken(); stored != "TG-longlived" {
		t.Fatalf("refresh slot = %q, must be unchanged", stored)
	}
}

func TestRefreshNon2xx(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("POST", testTokenURL,
		httpmock.NewStringResponder(401, ``))

	authority, _ := newTestAuthority(t, transport)

	_, err := authority.Refresh(context.Background(), "secret", "app1", "TG-expired")
	var authErr ErrAuth
	if !errors.As(err, &authErr) {
		t.Fatalf("expected ErrAuth for non-2xx, got %v", err)
	}
}
