// Package github fetches repository metadata and README documents from
// the GitHub REST API.
package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAPIURL     = "https://api.github.com"
	defaultHTMLURL    = "https://github.com"
	defaultMaxRetries = 3
	baseBackoff       = 2 * time.Second
	searchPageSize    = 100
)

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithBaseURL overrides the GitHub API base URL.
func WithBaseURL(u string) Option {
	return func(f *Fetcher) { f.baseURL = strings.TrimRight(u, "/") }
}

// WithHTMLBaseURL overrides the base URL used for the HTML fallback.
func WithHTMLBaseURL(u string) Option {
	return func(f *Fetcher) { f.htmlURL = strings.TrimRight(u, "/") }
}

// WithMaxRetries sets the maximum number of retry attempts for
// retryable errors.
func WithMaxRetries(n int) Option {
	return func(f *Fetcher) { f.maxRetries = n }
}

// WithMinStars sets the star floor used in repository searches.
func WithMinStars(n int) Option {
	return func(f *Fetcher) { f.minStars = n }
}

// Fetcher talks to the GitHub REST API. The token is optional;
// unauthenticated requests work with a much lower rate limit.
type Fetcher struct {
	token      string
	baseURL    string
	htmlURL    string
	client     *http.Client
	maxRetries int
	minStars   int
	backoff    time.Duration
}

// NewFetcher creates a GitHub fetcher.
func NewFetcher(token string, opts ...Option) *Fetcher {
	f := &Fetcher{
		token:      token,
		baseURL:    defaultAPIURL,
		htmlURL:    defaultHTMLURL,
		client:     &http.Client{Timeout: 30 * time.Second},
		maxRetries: defaultMaxRetries,
		minStars:   2,
		backoff:    baseBackoff,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Repo is the subset of repository metadata the pipeline consumes.
type Repo struct {
	FullName    string
	Description string
	Stars       int
	Language    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Document is a README lookup result. Found is false when the
// repository has no README anywhere we know to look.
type Document struct {
	Found bool
	Text  string
}

type searchResponse struct {
	TotalCount int          `json:"total_count"`
	Items      []searchItem `json:"items"`
}

type searchItem struct {
	FullName    string    `json:"full_name"`
	Description string    `json:"description"`
	Stars       int       `json:"stargazers_count"`
	Language    string    `json:"language"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type readmeResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// SearchNewRepos returns repositories created during the given UTC day
// with at least the configured star floor, most recently updated first.
// Pagination stops at limit, at the end of results, or at GitHub's
// search result cap, whichever comes first.
func (f *Fetcher) SearchNewRepos(ctx context.Context, day time.Time, limit int) ([]Repo, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24*time.Hour - time.Second)
	query := fmt.Sprintf("stars:>%d created:%s..%s",
		f.minStars,
		start.Format("2006-01-02T15:04:05Z"),
		end.Format("2006-01-02T15:04:05Z"))

	var repos []Repo
	for page := 1; len(repos) < limit; page++ {
		params := url.Values{
			"q":        {query},
			"sort":     {"updated"},
			"order":    {"desc"},
			"per_page": {strconv.Itoa(searchPageSize)},
			"page":     {strconv.Itoa(page)},
		}
		u := f.baseURL + "/search/repositories?" + params.Encode()

		status, body, err := f.get(ctx, u, "application/vnd.github+json")
		if err != nil {
			return nil, fmt.Errorf("searching repositories (page %d): %w", page, err)
		}
		// The search API answers 422 past the last reachable page.
		if status == http.StatusUnprocessableEntity {
			break
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("searching repositories (page %d): unexpected status %d", page, status)
		}

		var sr searchResponse
		if err := json.Unmarshal(body, &sr); err != nil {
			return nil, fmt.Errorf("decoding search response: %w", err)
		}
		for _, item := range sr.Items {
			repos = append(repos, Repo{
				FullName:    item.FullName,
				Description: item.Description,
				Stars:       item.Stars,
				Language:    item.Language,
				CreatedAt:   item.CreatedAt,
				UpdatedAt:   item.UpdatedAt,
			})
		}
		if len(sr.Items) < searchPageSize {
			break
		}
	}

	if len(repos) > limit {
		repos = repos[:limit]
	}
	return repos, nil
}

// FetchReadme returns the repository's README. It asks the contents API
// first and falls back to scraping the repository page when the API has
// no README to offer.
func (f *Fetcher) FetchReadme(ctx context.Context, owner, name string) (Document, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/readme", f.baseURL, owner, name)
	status, body, err := f.get(ctx, u, "application/vnd.github+json")
	if err != nil {
		return Document{}, fmt.Errorf("fetching readme for %s/%s: %w", owner, name, err)
	}

	switch status {
	case http.StatusOK:
		var rr readmeResponse
		if err := json.Unmarshal(body, &rr); err != nil {
			return Document{}, fmt.Errorf("decoding readme response for %s/%s: %w", owner, name, err)
		}
		text, err := decodeContent(rr)
		if err != nil {
			return Document{}, fmt.Errorf("decoding readme content for %s/%s: %w", owner, name, err)
		}
		return Document{Found: true, Text: text}, nil
	case http.StatusNotFound:
		return f.scrapeReadme(ctx, owner, name)
	default:
		return Document{}, fmt.Errorf("fetching readme for %s/%s: unexpected status %d", owner, name, status)
	}
}

func decodeContent(rr readmeResponse) (string, error) {
	if rr.Encoding != "" && rr.Encoding != "base64" {
		return "", fmt.Errorf("unsupported readme encoding %q", rr.Encoding)
	}
	// The contents API wraps base64 payloads at 60 columns.
	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(rr.Content, "\n", ""))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// get performs a GET with bounded retries on rate limits and server
// errors. A 404 or 422 is returned to the caller, not retried.
func (f *Fetcher) get(ctx context.Context, url, accept string) (int, []byte, error) {
	var (
		lastStatus int
		lastBody   []byte
		lastErr    error
	)
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := f.backoff * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-ctx.Done():
				return 0, nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		status, body, err := f.doGet(ctx, url, accept)
		if err != nil {
			lastStatus, lastBody, lastErr = 0, nil, err
			continue
		}
		if status == http.StatusTooManyRequests || status >= 500 {
			lastStatus, lastBody, lastErr = status, body, fmt.Errorf("status %d: %s", status, truncate(string(body), 200))
			continue
		}
		return status, body, nil
	}
	if lastErr != nil {
		return lastStatus, lastBody, fmt.Errorf("request failed after %d attempts: %w", f.maxRetries+1, lastErr)
	}
	return lastStatus, lastBody, nil
}

func (f *Fetcher) doGet(ctx context.Context, url, accept string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if f.token != "" {
		req.Header.Set("Authorization", "token "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("reading response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
