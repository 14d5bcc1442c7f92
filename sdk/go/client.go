package careerdesksdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// Client is a minimal CareerDesk HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// NewFromEnv builds a client from CAREERDESK_API_URL and CAREERDESK_API_KEY.
// Both settings are required.
func NewFromEnv() (*Client, error) {
	baseURL := os.Getenv("CAREERDESK_API_URL")
	apiKey := os.Getenv("CAREERDESK_API_KEY")
	if baseURL == "" || apiKey == "" {
		return nil, errors.New("CAREERDESK_API_URL and CAREERDESK_API_KEY must be set")
	}
	c := New(baseURL)
	c.APIKey = apiKey
	return c, nil
}

// JobPosting represents the API job posting model.
type JobPosting struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Department       string `json:"department"`
	Location         string `json:"location"`
	Experience       string `json:"experience"`
	Type             string `json:"type"`
	Salary           string `json:"salary,omitempty"`
	Description      string `json:"description"`
	Responsibilities string `json:"responsibilities"`
	Requirements     string `json:"requirements"`
	Deadline         string `json:"deadline"`
	Status           string `json:"status"`
	IsVisible        bool   `json:"is_visible"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
	ApplicantCount   int    `json:"applicant_count,omitempty"`
}

// Applicant represents the API applicant model.
type Applicant struct {
	ID          string  `json:"id"`
	JobID       string  `json:"job_id"`
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	Phone       *string `json:"phone,omitempty"`
	ResumeURL   string  `json:"resume_url"`
	CoverLetter *string `json:"cover_letter,omitempty"`
	Status      string  `json:"status"`
	Notes       *string `json:"notes,omitempty"`
	AppliedAt   string  `json:"applied_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// DashboardStats is the admin dashboard projection.
type DashboardStats struct {
	TotalJobs           int         `json:"total_jobs"`
	ActiveJobs          int         `json:"active_jobs"`
	TotalApplicants     int         `json:"total_applicants"`
	PendingApplications int         `json:"pending_applications"`
	RecentApplications  []Applicant `json:"recent_applications"`
}

// Event represents an audit log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// OpenPositions lists publicly visible active postings.
func (c *Client) OpenPositions(ctx context.Context, query, jobType, location string) ([]JobPosting, error) {
	var resp struct {
		Items []JobPosting `json:"items"`
	}
	endpoint := "v1/careers/jobs" + listQuery(query, jobType, location)
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

// OpenPosition fetches a single public posting.
func (c *Client) OpenPosition(ctx context.Context, jobID string) (JobPosting, error) {
	var resp JobPosting
	err := c.do(ctx, http.MethodGet, "v1/careers/jobs/"+url.PathEscape(jobID), nil, &resp)
	return resp, err
}

// Apply submits an application with a resume file.
func (c *Client) Apply(ctx context.Context, jobID, name, email, phone, coverLetter, resumeName string, resume io.Reader) (Applicant, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := map[string]string{
		"job_id":       jobID,
		"name":         name,
		"email":        email,
		"phone":        phone,
		"cover_letter": coverLetter,
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := mw.WriteField(k, v); err != nil {
			return Applicant{}, err
		}
	}
	fw, err := mw.CreateFormFile("resume", resumeName)
	if err != nil {
		return Applicant{}, err
	}
	if _, err := io.Copy(fw, resume); err != nil {
		return Applicant{}, err
	}
	if err := mw.Close(); err != nil {
		return Applicant{}, err
	}
	var resp Applicant
	err = c.doRaw(ctx, http.MethodPost, "v1/careers/apply", &buf, mw.FormDataContentType(), &resp)
	return resp, err
}

// Jobs lists all postings, hidden and drafts included. Admin credentials
// required.
func (c *Client) Jobs(ctx context.Context, query, jobType, location string) ([]JobPosting, error) {
	var resp struct {
		Items []JobPosting `json:"items"`
	}
	endpoint := "v1/admin/jobs" + listQuery(query, jobType, location)
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

// Job fetches a posting by id. Admin credentials required.
func (c *Client) Job(ctx context.Context, jobID string) (JobPosting, error) {
	var resp JobPosting
	err := c.do(ctx, http.MethodGet, "v1/admin/jobs/"+url.PathEscape(jobID), nil, &resp)
	return resp, err
}

// CreateJob creates a posting.
func (c *Client) CreateJob(ctx context.Context, body map[string]any) (JobPosting, error) {
	var resp JobPosting
	err := c.do(ctx, http.MethodPost, "v1/admin/jobs", body, &resp)
	return resp, err
}

// UpdateJob applies a partial update to a posting.
func (c *Client) UpdateJob(ctx context.Context, jobID string, patch map[string]any) (JobPosting, error) {
	var resp JobPosting
	err := c.do(ctx, http.MethodPatch, "v1/admin/jobs/"+url.PathEscape(jobID), patch, &resp)
	return resp, err
}

// DeleteJob removes a posting.
func (c *Client) DeleteJob(ctx context.Context, jobID string) error {
	return c.do(ctx, http.MethodDelete, "v1/admin/jobs/"+url.PathEscape(jobID), nil, nil)
}

// Applicants lists applicants, optionally narrowed to one posting.
func (c *Client) Applicants(ctx context.Context, jobID string) ([]Applicant, error) {
	var resp struct {
		Items []Applicant `json:"items"`
	}
	endpoint := "v1/admin/applicants"
	if jobID != "" {
		endpoint += "?job_id=" + url.QueryEscape(jobID)
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

// SetApplicantStatus moves an applicant through the triage progression.
func (c *Client) SetApplicantStatus(ctx context.Context, applicantID, status string, notes *string) (Applicant, error) {
	body := map[string]any{"status": status}
	if notes != nil {
		body["notes"] = *notes
	}
	var resp Applicant
	endpoint := fmt.Sprintf("v1/admin/applicants/%s/status", url.PathEscape(applicantID))
	err := c.do(ctx, http.MethodPatch, endpoint, body, &resp)
	return resp, err
}

// Stats returns the dashboard aggregate.
func (c *Client) Stats(ctx context.Context) (DashboardStats, error) {
	var resp DashboardStats
	err := c.do(ctx, http.MethodGet, "v1/admin/stats", nil, &resp)
	return resp, err
}

// Events returns recent audit log entries.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	var resp struct {
		Items []Event `json:"items"`
	}
	endpoint := "v1/admin/events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

func listQuery(query, jobType, location string) string {
	v := url.Values{}
	if query != "" {
		v.Set("q", query)
	}
	if jobType != "" {
		v.Set("type", jobType)
	}
	if location != "" {
		v.Set("location", location)
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	return c.doRaw(ctx, method, endpoint, &buf, "application/json", out)
}

func (c *Client) doRaw(ctx context.Context, method, endpoint string, body io.Reader, contentType string, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
