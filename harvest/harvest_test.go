package harvest

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/icaro1518/ml-discounts/config"
	"github.com/icaro1518/ml-discounts/mlapi"
)

const testBaseURL = "https://api.example.test"

type staticTokens string

func (s staticTokens) AccessToken() (string, error) {
	return string(s), nil
}

func newTestSession(t *testing.T, transport *httpmock.MockTransport) *Session {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.BaseURL = testBaseURL
	cfg.DataDir = t.TempDir()
	cfg.Workers = 3

	client := mlapi.NewClient(cfg.BaseURL, 5*time.Second, staticTokens("APP_USR-test"))
	client.SetTransport(transport)

	metrics := NewMetrics()
	client.SetRecorder(metrics)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSession(cfg, client, metrics, logger)
}
