// Package notion is the store adapter: a small Notion API client scoped to one database.
package notion

import (
	"bytes"
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

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"studysync/internal/models"
)

// MaxPageSize is the largest page_size the query endpoint accepts.
const MaxPageSize = 100

// APIError is a non-2xx response from Notion.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("notion: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("notion: status=%d message=%s", e.StatusCode, e.Message)
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	APIKey     string
	DatabaseID string
	APIVersion string
	UserAgent  string
	Schema     Schema
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// Client reads and writes pages of a single Notion database.
type Client struct {
	baseURL    string
	databaseID string
	apiVersion string
	userAgent  string
	schema     Schema
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// NewClient creates a Notion client. The API key is attached as a bearer
// token by an oauth2 transport wrapped around opts.HTTPClient.
func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.notion.com"
	}
	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: 20 * time.Second}
	}
	httpClient := &http.Client{
		Timeout: base.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.APIKey}),
			Base:   base.Transport,
		},
	}
	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = "2022-06-28"
	}
	schema := opts.Schema
	if schema.Name == "" {
		schema = DefaultSchema()
	}
	limiter := opts.Limiter
	if limiter == nil {
		// Notion allows an average of three requests per second.
		limiter = rate.NewLimiter(rate.Limit(3), 3)
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 250 * time.Millisecond
	}
	maxDelay := opts.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		databaseID: strings.TrimSpace(opts.DatabaseID),
		apiVersion: apiVersion,
		userAgent:  strings.TrimSpace(opts.UserAgent),
		schema:     schema,
		httpClient: httpClient,
		limiter:    limiter,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		maxDelay:   maxDelay,
	}
}

type queryRequest struct {
	PageSize    int            `json:"page_size"`
	StartCursor string         `json:"start_cursor,omitempty"`
	Filter      map[string]any `json:"filter,omitempty"`
}

type queryResponse struct {
	Results    []rawPage `json:"results"`
	NextCursor *string   `json:"next_cursor"`
	HasMore    bool      `json:"has_more"`
}

// QueryPages returns one page of active database pages matching filter.
func (c *Client) QueryPages(ctx context.Context, filter models.PageFilter, pageSize int, cursor string) (models.PageList, error) {
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	body := queryRequest{
		PageSize:    pageSize,
		StartCursor: cursor,
		Filter:      c.schema.queryFilter(filter),
	}

	var resp queryResponse
	path := "/v1/databases/" + url.PathEscape(c.databaseID) + "/query"
	if err := c.do(ctx, http.MethodPost, path, body, &resp, true); err != nil {
		return models.PageList{}, err
	}

	list := models.PageList{Pages: make([]models.Page, 0, len(resp.Results))}
	for _, raw := range resp.Results {
		list.Pages = append(list.Pages, c.schema.decode(raw))
	}
	if resp.HasMore && resp.NextCursor != nil {
		list.NextCursor = *resp.NextCursor
	}
	return list, nil
}

type createRequest struct {
	Parent     map[string]string `json:"parent"`
	Properties map[string]any    `json:"properties"`
}

type pageResponse struct {
	ID string `json:"id"`
}

// CreatePage creates a page in the database and returns its id.
// Creates are not retried on server errors: a 5xx may hide a committed write.
func (c *Client) CreatePage(ctx context.Context, fields models.PageFields) (string, error) {
	body := createRequest{
		Parent:     map[string]string{"database_id": c.databaseID},
		Properties: c.schema.createProperties(fields),
	}
	var resp pageResponse
	if err := c.do(ctx, http.MethodPost, "/v1/pages", body, &resp, false); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// UpdatePage rewrites the value-bearing properties of an existing page.
func (c *Client) UpdatePage(ctx context.Context, id string, fields models.PageFields) error {
	body := map[string]any{"properties": c.schema.updateProperties(fields)}
	return c.do(ctx, http.MethodPatch, "/v1/pages/"+url.PathEscape(id), body, nil, true)
}

// ArchivePage flags a page as archived. Notion keeps archived pages, so
// history survives the weekly reset.
func (c *Client) ArchivePage(ctx context.Context, id string) error {
	body := map[string]any{"archived": true}
	return c.do(ctx, http.MethodPatch, "/v1/pages/"+url.PathEscape(id), body, nil, true)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any, idempotent bool) error {
	if c == nil {
		return errors.New("notion client is nil")
	}
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	endpoint := c.baseURL + path

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(bodyBytes))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Notion-Version", c.apiVersion)
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if idempotent && attempt < c.maxRetries {
				if waitErr := sleepContext(ctx, c.retryDelay(attempt+1, "")); waitErr != nil {
					return waitErr
				}
				continue
			}
			return err
		}

		respBody, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return readErr
		}
		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			if out == nil || len(respBody) == 0 {
				return nil
			}
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("notion: decode response: %w", err)
			}
			return nil
		}

		retryable := resp.StatusCode == http.StatusTooManyRequests ||
			(idempotent && resp.StatusCode >= 500 && resp.StatusCode <= 599)
		if retryable && attempt < c.maxRetries {
			if waitErr := sleepContext(ctx, c.retryDelay(attempt+1, resp.Header.Get("Retry-After"))); waitErr != nil {
				return waitErr
			}
			continue
		}

		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		var parsed struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(respBody, &parsed) == nil {
			apiErr.Code = parsed.Code
			if strings.TrimSpace(parsed.Message) != "" {
				apiErr.Message = parsed.Message
			}
		}
		return apiErr
	}
}

func (c *Client) retryDelay(attempt int, retryAfterHeader string) time.Duration {
	if retryAfter := parseRetryAfterSeconds(retryAfterHeader); retryAfter > 0 {
		if retryAfter > c.maxDelay {
			return c.maxDelay
		}
		return retryAfter
	}
	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.maxDelay {
			return c.maxDelay
		}
	}
	return delay
}

func parseRetryAfterSeconds(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
