// Package client implements the Go client for the daemon's control API.
// The CLI goes through it exclusively, so the daemon stays the single
// writer for registry rows and patched files.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/GhostFramer/GhostFrame/internal/handlers"
	"github.com/GhostFramer/GhostFrame/internal/locator"
	"github.com/GhostFramer/GhostFrame/internal/models"
	"github.com/GhostFramer/GhostFrame/internal/services"
)

// APIError is a non-2xx daemon response, carrying the HTTP status and the
// error field from the JSON body.
type APIError struct {
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("daemon returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to a running daemon over its loopback HTTP API.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
}

// New creates a client for the daemon at baseURL, for example
// "http://127.0.0.1:48620", authenticating with token.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// BaseURL returns the daemon address this client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Version fetches daemon build info. The route is unauthenticated so it
// doubles as the "is a daemon listening at all" probe.
func (c *Client) Version(ctx context.Context) (map[string]string, error) {
	var info map[string]string
	if err := c.do(ctx, http.MethodGet, "/api/version", nil, &info); err != nil {
		return nil, err
	}
	return info, nil
}

// Apps returns every tracked application.
func (c *Client) Apps(ctx context.Context) ([]models.TrackedApp, error) {
	var apps []models.TrackedApp
	if err := c.do(ctx, http.MethodGet, "/api/apps", nil, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

// App returns a single tracked application by id.
func (c *Client) App(ctx context.Context, id string) (*models.TrackedApp, error) {
	var app models.TrackedApp
	if err := c.do(ctx, http.MethodGet, appPath(id, ""), nil, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// Discover returns installed applications eligible for tracking but not
// yet tracked.
func (c *Client) Discover(ctx context.Context) ([]locator.Candidate, error) {
	var candidates []locator.Candidate
	if err := c.do(ctx, http.MethodGet, "/api/apps/discover", nil, &candidates); err != nil {
		return nil, err
	}
	return candidates, nil
}

// Track starts tracking the application bundle at path.
func (c *Client) Track(ctx context.Context, path string) (*models.TrackedApp, error) {
	var app models.TrackedApp
	req := models.TrackAppRequest{Path: path}
	if err := c.do(ctx, http.MethodPost, "/api/apps", req, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// Untrack stops tracking an application. The returned warning is non-empty
// when the entry script could not be restored and may still be patched.
func (c *Client) Untrack(ctx context.Context, id string) (string, error) {
	var out struct {
		Message string `json:"message"`
		Warning string `json:"warning"`
	}
	if err := c.do(ctx, http.MethodDelete, appPath(id, ""), nil, &out); err != nil {
		return "", err
	}
	return out.Warning, nil
}

// SetProtection toggles the master protection flag.
func (c *Client) SetProtection(ctx context.Context, id string, enabled bool) (*models.TrackedApp, error) {
	var app models.TrackedApp
	req := models.SetProtectionRequest{Enabled: &enabled}
	if err := c.do(ctx, http.MethodPut, appPath(id, "protection"), req, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// SetFeature toggles a single stealth feature flag.
func (c *Client) SetFeature(ctx context.Context, id, feature string, enabled bool) (*models.TrackedApp, error) {
	var app models.TrackedApp
	req := models.SetFeatureRequest{Enabled: &enabled}
	path := appPath(id, "features/"+url.PathEscape(feature))
	if err := c.do(ctx, http.MethodPut, path, req, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// Repair restores an application flagged after drift or a failed toggle.
func (c *Client) Repair(ctx context.Context, id string) (*models.TrackedApp, error) {
	var app models.TrackedApp
	if err := c.do(ctx, http.MethodPost, appPath(id, "repair"), nil, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// Restart schedules a quit-and-relaunch of the application. Completion is
// reported on the event stream, not on this call.
func (c *Client) Restart(ctx context.Context, id string) (*models.TrackedApp, error) {
	var app models.TrackedApp
	if err := c.do(ctx, http.MethodPost, appPath(id, "restart"), nil, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// RunningState reports whether the application currently has live
// processes.
func (c *Client) RunningState(ctx context.Context, id string) (*services.RunningState, error) {
	var state services.RunningState
	if err := c.do(ctx, http.MethodGet, appPath(id, "state"), nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// AuditLogs returns audit entries, newest first. An empty appID selects
// all applications; a zero limit uses the server default.
func (c *Client) AuditLogs(ctx context.Context, appID string, limit, offset int) ([]services.AuditLogEntry, error) {
	query := url.Values{}
	if appID != "" {
		query.Set("app_id", appID)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		query.Set("offset", strconv.Itoa(offset))
	}

	path := "/api/audit"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var logs []services.AuditLogEntry
	if err := c.do(ctx, http.MethodGet, path, nil, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// Export downloads the tracked-application list as a portable backup.
func (c *Client) Export(ctx context.Context) (*models.ExportData, error) {
	var data models.ExportData
	if err := c.do(ctx, http.MethodGet, "/api/backup/export", nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Import restores tracked applications from an export. Returns how many
// entries were added and how many were skipped.
func (c *Client) Import(ctx context.Context, data *models.ExportData) (added, skipped int, err error) {
	var out struct {
		Added   int `json:"added"`
		Skipped int `json:"skipped"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/backup/import", data, &out); err != nil {
		return 0, 0, err
	}
	return out.Added, out.Skipped, nil
}

// SystemStatus returns the daemon's status snapshot.
func (c *Client) SystemStatus(ctx context.Context) (*handlers.SystemStatus, error) {
	var status handlers.SystemStatus
	if err := c.do(ctx, http.MethodGet, "/api/system/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Events opens the daemon's websocket event stream. The caller owns the
// returned connection and must close it.
func (c *Client) Events(ctx context.Context) (*websocket.Conn, error) {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/api/events"

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return nil, apiError(resp)
		}
		return nil, fmt.Errorf("contact daemon: %w", err)
	}
	return conn, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("contact daemon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func apiError(resp *http.Response) error {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    http.StatusText(resp.StatusCode),
	}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
	}
	return apiErr
}

func appPath(id, suffix string) string {
	path := "/api/apps/" + url.PathEscape(id)
	if suffix != "" {
		path += "/" + suffix
	}
	return path
}
