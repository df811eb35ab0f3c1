// Package source pulls weekly study activity from the Flexge partner API.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"studysync/internal/models"
)

// ErrUnavailable wraps every failure to reach or read the source.
var ErrUnavailable = errors.New("source unavailable")

const timeLayout = "2006-01-02T15:04:05Z"

// Student is one entry of the students listing.
type Student struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	WeekTime   StudiedTime `json:"weekTime"`
	Executions []Execution `json:"executions"`
}

// StudiedTime holds a study counter in seconds.
type StudiedTime struct {
	StudiedTime int64 `json:"studiedTime"`
}

// Execution is one study session reported for a student.
type Execution struct {
	StudiedTime int64 `json:"studiedTime"`
}

// Overview is the per-student detail used to resolve the level.
type Overview struct {
	ActiveCourses []Course `json:"activeCourses"`
}

// Course is an enrolled course.
type Course struct {
	Name string `json:"name"`
}

// CourseName returns the first active course name, or "" without one.
func (o Overview) CourseName() string {
	if len(o.ActiveCourses) == 0 {
		return ""
	}
	return o.ActiveCourses[0].Name
}

type listResponse struct {
	Docs []Student `json:"docs"`
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	APIKey     string
	UserAgent  string
	HTTPClient *http.Client
	Limiter    *rate.Limiter
}

// Client is a Flexge API client authenticated with a static key.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a Flexge client.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = "studysync/1.0"
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		apiKey:     opts.APIKey,
		userAgent:  userAgent,
		httpClient: httpClient,
		limiter:    limiter,
	}
}

// ListStudents returns one page (1-based) of students who studied within window.
func (c *Client) ListStudents(ctx context.Context, window models.Window, page int) ([]Student, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("isPlacementTestOnly", "false")
	q.Set("studiedTimeRange[from]", window.Start.UTC().Format(timeLayout))
	q.Set("studiedTimeRange[to]", window.End.UTC().Format(timeLayout))

	var resp listResponse
	if err := c.get(ctx, c.baseURL+"?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("list students page %d: %w", page, err)
	}
	return resp.Docs, nil
}

// Overview returns the course overview of one student.
func (c *Client) Overview(ctx context.Context, studentID string) (Overview, error) {
	var resp Overview
	if err := c.get(ctx, c.baseURL+"/"+url.PathEscape(studentID)+"/overview", &resp); err != nil {
		return Overview{}, fmt.Errorf("overview %s: %w", studentID, err)
	}
	return resp, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	// Read body with size limit (10MB)
	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: HTTP %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode: %w", ErrUnavailable, err)
	}
	return nil
}
