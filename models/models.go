// Package models defines data structures shared across the harvesters.
package models

import "time"

// Category is one top-level marketplace category for a country site.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Credentials holds the token pair returned by the OAuth endpoint.
// The access token is short-lived and refreshed by the caller; the
// refresh token survives access-token refreshes.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// HarvestResult summarizes one harvesting run.
type HarvestResult struct {
	StartTime    time.Time
	EndTime      time.Time
	PagesFetched int
	PagesEmpty   int
	RowCount     int
	FilesWritten int
	FailedIDs    []string
}
