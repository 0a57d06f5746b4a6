package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/icaro1518/ml-discounts/models"
)

// Authority exchanges authorization codes and refresh tokens for access
// tokens against the marketplace OAuth endpoint and writes the results into
// a Store. Both operations overwrite the stored access token
// unconditionally.
type Authority struct {
	tokenURL string
	client   *http.Client
	store    *Store
}

// NewAuthority builds an authority for the given token endpoint.
func NewAuthority(tokenURL string, store *Store, timeout time.Duration) *Authority {
	return &Authority{
		tokenURL: tokenURL,
		store:    store,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Exchange performs the one-time code-for-token exchange. On success both
// tokens are persisted and returned. A denied or malformed exchange returns
// ErrAuth and persists nothing.
func (a *Authority) Exchange(ctx context.Context, clientSecret, appID, code, redirectURI string) (models.Credentials, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {appID},
		"client_secret": {clientSecret},
		"code":          {code},
		"redirect_uri":  {redirectURI},
	}

	tokens, err := a.post(ctx, form)
	if err != nil {
		return models.Credentials{}, err
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		return models.Credentials{}, ErrAuth{Reason: "token response missing access_token or refresh_token"}
	}

	if err := a.store.SaveAccessToken(tokens.AccessToken); err != nil {
		return models.Credentials{}, fmt.Errorf("persist access token: %w", err)
	}
	if err := a.store.SaveRefreshToken(tokens.RefreshToken); err != nil {
		return models.Credentials{}, fmt.Errorf("persist refresh token: %w", err)
	}

	return models.Credentials{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

// Refresh exchanges a refresh token for a new access token. Only the access
// slot is rewritten; the refresh token is assumed unchanged.
func (a *Authority) Refresh(ctx context.Context, clientSecret, appID, refreshToken string) (string, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {appID},
		"client_secret": {clientSecret},
		"refresh_token": {refreshToken},
	}

	tokens, err := a.post(ctx, form)
	if err != nil {
		return "", err
	}
	if tokens.AccessToken == "" {
		return "", ErrAuth{Reason: "token response missing access_token"}
	}

	if err := a.store.SaveAccessToken(tokens.AccessToken); err != nil {
		return "", fmt.Errorf("persist access token: %w", err)
	}
	return tokens.AccessToken, nil
}

func (a *Authority) post(ctx context.Context, form url.Values) (tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return tokenResponse{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return tokenResponse{}, ErrAuth{Reason: "token request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return tokenResponse{}, ErrAuth{Reason: fmt.Sprintf("token endpoint returned %d", resp.StatusCode)}
	}

	var tokens tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return tokenResponse{}, ErrAuth{Reason: "malformed token response", Err: err}
	}
	return tokens, nil
}
