// Package oneshot is a focused client for the 1Shot transaction API: escrow
// wallets, contract methods and executions.
package oneshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/m3rciful/tokenbot/core/logger"
	"github.com/m3rciful/tokenbot/core/telegram/netutil"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://api.1shotapi.com/v0"

const (
	maxErrorBody    = 4096
	maxResponseBody = 1 << 20
)

// ErrNotFound is returned when a lookup by id yields 404.
var ErrNotFound = errors.New("oneshot: not found")

// HTTPStatusError captures non-2xx upstream responses.
type HTTPStatusError struct {
	StatusCode int
	Method     string
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("oneshot: unexpected status %d from %s %s: %s", e.StatusCode, e.Method, e.URL, e.Body)
}

// HTTPStatusCode exposes the upstream status.
func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Credentials identify the API key pair and the business it acts for.
type Credentials struct {
	APIKey     string
	APISecret  string
	BusinessID string
}

// Client talks to the 1Shot API with an oauth2 client-credentials token.
type Client struct {
	baseURL    string
	businessID string
	base       *http.Client
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

// WithHTTPClient sets the transport used for both token and API calls.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.base = httpClient
	}
}

// NewClient builds a client. Tokens are fetched from <base>/token on first
// use and refreshed by the oauth2 token source when they expire.
func NewClient(creds Credentials, opts ...Option) (*Client, error) {
	if strings.TrimSpace(creds.APIKey) == "" || strings.TrimSpace(creds.APISecret) == "" {
		return nil, errors.New("oneshot: api key and secret are required")
	}
	if strings.TrimSpace(creds.BusinessID) == "" {
		return nil, errors.New("oneshot: business id is required")
	}
	c := &Client{
		baseURL:    DefaultBaseURL,
		businessID: creds.BusinessID,
		base:       &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}

	cc := &clientcredentials.Config{
		ClientID:     creds.APIKey,
		ClientSecret: creds.APISecret,
		TokenURL:     c.baseURL + "/token",
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, c.base)
	c.httpClient = oauth2.NewClient(tokenCtx, cc.TokenSource(tokenCtx))
	c.httpClient.Timeout = c.base.Timeout
	return c, nil
}

// BusinessID returns the business the client acts for.
func (c *Client) BusinessID() string {
	return c.businessID
}

// ListWallets returns the escrow wallets of the business on chainID.
func (c *Client) ListWallets(ctx context.Context, chainID string) ([]Wallet, error) {
	q := url.Values{}
	if chainID != "" {
		q.Set("chainId", chainID)
	}
	var out page[Wallet]
	if err := c.do(ctx, http.MethodGet, c.businessPath("wallets"), q, nil, &out); err != nil {
		return nil, fmt.Errorf("oneshot: list wallets: %w", err)
	}
	return out.Response, nil
}

// ListMethods returns contract methods matching f.
func (c *Client) ListMethods(ctx context.Context, f MethodFilter) ([]ContractMethod, error) {
	q := url.Values{}
	if f.ChainID != "" {
		q.Set("chainId", f.ChainID)
	}
	if f.Name != "" {
		q.Set("name", f.Name)
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(f.PageSize))
	}
	var out page[ContractMethod]
	if err := c.do(ctx, http.MethodGet, c.businessPath("methods"), q, nil, &out); err != nil {
		return nil, fmt.Errorf("oneshot: list methods: %w", err)
	}
	return out.Response, nil
}

// CreateMethod registers a new contract method.
func (c *Client) CreateMethod(ctx context.Context, req CreateMethodRequest) (ContractMethod, error) {
	var out ContractMethod
	if err := c.do(ctx, http.MethodPost, c.businessPath("methods"), nil, req, &out); err != nil {
		return ContractMethod{}, fmt.Errorf("oneshot: create method: %w", err)
	}
	return out, nil
}

// GetMethod fetches a contract method by id.
func (c *Client) GetMethod(ctx context.Context, methodID string) (ContractMethod, error) {
	if methodID == "" {
		return ContractMethod{}, errors.New("oneshot: method id is required")
	}
	var out ContractMethod
	if err := c.do(ctx, http.MethodGet, "/methods/"+url.PathEscape(methodID), nil, nil, &out); err != nil {
		return ContractMethod{}, fmt.Errorf("oneshot: get method: %w", err)
	}
	return out, nil
}

// Execute submits a contract method execution. It returns once the API has
// queued the transaction.
func (c *Client) Execute(ctx context.Context, methodID string, req ExecuteRequest) (Execution, error) {
	if methodID == "" {
		return Execution{}, errors.New("oneshot: method id is required")
	}
	var out Execution
	if err := c.do(ctx, http.MethodPost, "/methods/"+url.PathEscape(methodID)+"/execute", nil, req, &out); err != nil {
		return Execution{}, fmt.Errorf("oneshot: execute: %w", err)
	}
	return out, nil
}

func (c *Client) businessPath(resource string) string {
	return "/business/" + url.PathEscape(c.businessID) + "/" + resource
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		logCall(ctx, method, path, 0, start, err)
		return err
	}
	defer func() { _ = res.Body.Close() }()
	logCall(ctx, method, path, res.StatusCode, start, nil)

	if res.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return &HTTPStatusError{
			StatusCode: res.StatusCode,
			Method:     method,
			URL:        u,
			Body:       errorBody(buf),
		}
	}

	if out == nil {
		return nil
	}
	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func errorBody(buf []byte) string {
	var e apiError
	if err := json.Unmarshal(buf, &e); err == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	return strings.TrimSpace(string(buf))
}

func logCall(ctx context.Context, method, path string, code int, start time.Time, err error) {
	level := slog.LevelDebug
	attrs := []slog.Attr{
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("http_code", code),
		slog.Int64("duration_ms", logger.Took(start).Milliseconds()),
	}
	switch {
	case err != nil:
		level = slog.LevelWarn
		attrs = append(attrs,
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_kind", netutil.Kind(err)),
		)
	case code >= 400:
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("status", "fail"))
	default:
		attrs = append(attrs, slog.String("status", "ok"))
	}
	logger.LogEvent(ctx, logger.OneShot, level, "oneshot.call", attrs...)
}
