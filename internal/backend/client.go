// Package backend provides the client for the hosted data service.
// The sync engine applies queue entries through exactly two shapes per
// domain kind: create and update.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/farmtrack/backend/internal/models"
)

// DataService is the remote collaborator the sync engine drains against.
// Any error return is treated as a sync failure for that entry.
type DataService interface {
	// Create inserts a new record of the given kind. The payload must not
	// carry a client-side id; the service assigns the permanent one.
	Create(ctx context.Context, kind models.EntryKind, payload json.RawMessage) error

	// Update applies the payload to the existing record with the given id.
	Update(ctx context.Context, kind models.EntryKind, id string, payload json.RawMessage) error
}

// Config holds the hosted REST API connection settings.
type Config struct {
	// BaseURL of the hosted service, e.g. https://project.supabase.co
	BaseURL string

	// APIKey sent as both the apikey header and the bearer token.
	APIKey string

	// Timeout per request; zero selects a 30 second default.
	Timeout time.Duration
}

// RESTClient implements DataService against a PostgREST-style API:
// POST /rest/v1/<table> for create, PATCH /rest/v1/<table>?id=eq.<id>
// for update.
type RESTClient struct {
	config     Config
	httpClient *http.Client
}

// NewRESTClient creates a RESTClient.
func NewRESTClient(config Config) *RESTClient {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &RESTClient{
		config: config,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
	}
}

// tableFor maps an entry kind to its hosted table name.
func tableFor(kind models.EntryKind) (string, error) {
	switch kind {
	case models.KindFuelEntry:
		return "fuel_entries", nil
	case models.KindVehicle:
		return "vehicles", nil
	case models.KindDriver:
		return "drivers", nil
	case models.KindBowser:
		return "bowsers", nil
	case models.KindActivity:
		return "activities", nil
	case models.KindField:
		return "fields", nil
	case models.KindRefill:
		return "refill_records", nil
	default:
		return "", fmt.Errorf("no table mapping for entry kind %q", kind)
	}
}

// Create implements DataService.
func (c *RESTClient) Create(ctx context.Context, kind models.EntryKind, payload json.RawMessage) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.config.BaseURL, table)
	return c.send(ctx, http.MethodPost, endpoint, payload)
}

// Update implements DataService.
func (c *RESTClient) Update(ctx context.Context, kind models.EntryKind, id string, payload json.RawMessage) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/rest/v1/%s?id=eq.%s", c.config.BaseURL, table, url.QueryEscape(id))
	return c.send(ctx, http.MethodPatch, endpoint, payload)
}

// send executes one write request and maps non-2xx responses to errors.
func (c *RESTClient) send(ctx context.Context, method, endpoint string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.config.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Prefer", "return=minimal")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("backend rejected %s with status %d: %s",
			method, resp.StatusCode, readErrorBody(resp.Body))
	}

	return nil
}

// readErrorBody extracts a service error message from a response body.
// PostgREST errors arrive as {"message": "..."}; anything else is returned
// raw, truncated.
func readErrorBody(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return "no error detail"
	}

	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}
	return string(data)
}
