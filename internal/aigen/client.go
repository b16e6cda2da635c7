package aigen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrGeneration = errors.New("aigen: generation failed")
	ErrNoProgram  = errors.New("aigen: response carries no program")
)

// Client calls the generation service. Calls share one token bucket.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Options configures NewClient. A zero Rate means unlimited.
type Options struct {
	Timeout time.Duration
	Rate    float64 // requests per second
	Burst   int
}

func NewClient(baseURL, apiKey string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), max(opts.Burst, 1))
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    limiter,
	}
}

// Generate produces a full program. A response with Success false is returned as an error
// wrapping ErrGeneration.
func (c *Client) Generate(ctx context.Context, req Request) (*Response, error) {
	return c.generate(ctx, "/generate", req)
}

// Preview produces a shortened program for review before the full generation.
func (c *Client) Preview(ctx context.Context, req Request) (*Response, error) {
	return c.generate(ctx, "/preview", req)
}

// ValidateInterview checks a client's intake interview.
func (c *Client) ValidateInterview(ctx context.Context, clientID string) (*InterviewValidation, error) {
	var out InterviewValidation
	if err := c.do(ctx, http.MethodGet, "/interview/"+url.PathEscape(clientID)+"/validate", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// InterviewData loads a client's intake interview to prefill the questionnaire.
func (c *Client) InterviewData(ctx context.Context, clientID string) (*InterviewData, error) {
	var out InterviewData
	if err := c.do(ctx, http.MethodGet, "/interview/"+url.PathEscape(clientID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) generate(ctx context.Context, path string, req Request) (*Response, error) {
	var out Response
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		msg := out.Error
		if msg == "" {
			msg = "no error given"
		}
		return &out, fmt.Errorf("%w: %s", ErrGeneration, msg)
	}
	if out.Macrocycle == nil {
		return &out, ErrNoProgram
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d: %s", ErrGeneration, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
