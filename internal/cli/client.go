package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tsa-volume-tracker/internal/database"
	"tsa-volume-tracker/internal/series"
)

// Client represents an HTTP client for the volume tracker API
type Client struct {
	baseURL    string
	adminToken string
	httpClient *http.Client
}

// NewClient creates a new API client with the default 30s timeout
func NewClient(baseURL string) *Client {
	return NewClientWithTimeout(baseURL, 30*time.Second)
}

// NewClientWithTimeout creates a new API client with a custom timeout
func NewClientWithTimeout(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetAdminToken attaches a bearer token to requests. The scheduler
// endpoints require it when the server runs with an admin token set.
func (c *Client) SetAdminToken(token string) {
	c.adminToken = token
}

// APIError represents an error from the API. Code 0 means the request
// never reached the server.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == 0 {
		return e.Message
	}
	return fmt.Sprintf("API error %d: %s", e.Code, e.Message)
}

// VolumeQuery filters a volume listing request. Zero values are omitted
// from the query string.
type VolumeQuery struct {
	Year  int
	Start string // YYYY-MM-DD
	End   string // YYYY-MM-DD
	Limit int
}

// LatestVolume is the newest observation plus its year-over-year block
// when a prior-year match exists.
type LatestVolume struct {
	database.DailyVolume
	YoY *YoY `json:"yoy,omitempty"`
}

// YoY describes the comparison against the same calendar slot one year
// earlier.
type YoY struct {
	PriorDate   time.Time `json:"prior_date"`
	PriorVolume int64     `json:"prior_volume"`
	Ratio       float64   `json:"ratio"`
	Pct         float64   `json:"pct"`
}

// RunResponse mirrors the server's report-run envelope. StatusCode
// mirrors the HTTP status the run finished with, so failed runs carry
// their own code.
type RunResponse struct {
	StatusCode     int        `json:"statusCode"`
	Success        bool       `json:"success"`
	Message        string     `json:"message"`
	LatestDataDate *time.Time `json:"latest_data_date,omitempty"`
	RowsScraped    int        `json:"rows_scraped"`
	ChartPath      string     `json:"chart_path,omitempty"`
	Emailed        bool       `json:"emailed"`
}

// SchedulerStatus mirrors the admin scheduler payload
type SchedulerStatus struct {
	Running  bool      `json:"running"`
	Paused   bool      `json:"paused"`
	Schedule string    `json:"schedule"`
	Timezone string    `json:"timezone"`
	NextRun  time.Time `json:"next_run"`
}

// SchedulerMessage is the pause/resume acknowledgement
type SchedulerMessage struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// doRequest performs an HTTP request and handles errors
func (c *Client) doRequest(method, path string) (*http.Response, error) {
	req, err := http.NewRequest(method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.adminToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.adminToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("Network error: %v", err)}
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()

		// The server writes some errors as JSON and some as plain text
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr APIError
		if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Message == "" {
			message := strings.TrimSpace(string(body))
			if message == "" {
				message = resp.Status
			}
			apiErr = APIError{Code: resp.StatusCode, Message: message}
		}
		if apiErr.Code == 0 {
			apiErr.Code = resp.StatusCode
		}
		return nil, &apiErr
	}

	return resp, nil
}

// getJSON performs a GET request and decodes the JSON response
func (c *Client) getJSON(path string, target interface{}) error {
	resp, err := c.doRequest("GET", path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// HealthCheck checks if the API server is healthy
func (c *Client) HealthCheck() error {
	resp, err := c.doRequest("GET", "/api/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

// GetVolumes returns stored daily volumes matching the query
func (c *Client) GetVolumes(query VolumeQuery) ([]database.DailyVolume, error) {
	params := url.Values{}
	if query.Year > 0 {
		params.Set("year", strconv.Itoa(query.Year))
	}
	if query.Start != "" {
		params.Set("start", query.Start)
	}
	if query.End != "" {
		params.Set("end", query.End)
	}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}

	path := "/api/volumes"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var volumes []database.DailyVolume
	if err := c.getJSON(path, &volumes); err != nil {
		return nil, err
	}
	return volumes, nil
}

// GetLatestVolume returns the newest observation with its YoY block
func (c *Client) GetLatestVolume() (*LatestVolume, error) {
	var latest LatestVolume
	if err := c.getJSON("/api/volumes/latest", &latest); err != nil {
		return nil, err
	}
	return &latest, nil
}

// GetStats returns the summary statistics over the stored series
func (c *Client) GetStats() (*series.Summary, error) {
	var stats series.Summary
	if err := c.getJSON("/api/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetReports returns recent report runs, newest first
func (c *Client) GetReports(limit int) ([]database.ReportRun, error) {
	path := "/api/reports"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var runs []database.ReportRun
	if err := c.getJSON(path, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// GetLatestReport returns the most recent report run
func (c *Client) GetLatestReport() (*database.ReportRun, error) {
	var run database.ReportRun
	if err := c.getJSON("/api/reports/latest", &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// TriggerRun starts a report run. The server responds with the run
// envelope on failures too (rate limited, scrape errors), so whenever a
// decodable envelope comes back it is returned with a nil error and the
// caller inspects Success.
func (c *Client) TriggerRun(force, dryRun bool) (*RunResponse, error) {
	params := url.Values{}
	if force {
		params.Set("force", "true")
	}
	if dryRun {
		params.Set("dry_run", "true")
	}

	path := "/api/reports/run"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	req, err := http.NewRequest("POST", c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("Network error: %v", err)}
	}
	defer resp.Body.Close()

	var result RunResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &APIError{Code: resp.StatusCode, Message: resp.Status}
	}
	return &result, nil
}

// GetSchedulerStatus returns the scheduler state
func (c *Client) GetSchedulerStatus() (*SchedulerStatus, error) {
	var status SchedulerStatus
	if err := c.getJSON("/api/admin/scheduler", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// PauseScheduler pauses scheduled report runs
func (c *Client) PauseScheduler() (*SchedulerMessage, error) {
	return c.postScheduler("/api/admin/scheduler/pause")
}

// ResumeScheduler resumes scheduled report runs
func (c *Client) ResumeScheduler() (*SchedulerMessage, error) {
	return c.postScheduler("/api/admin/scheduler/resume")
}

func (c *Client) postScheduler(path string) (*SchedulerMessage, error) {
	resp, err := c.doRequest("POST", path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var message SchedulerMessage
	if err := json.NewDecoder(resp.Body).Decode(&message); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &message, nil
}
