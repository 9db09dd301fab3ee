// Package marketplace is a thin GraphQL client for the upstream reseller
// marketplace: session handling, paged inventory reads and payout updates.
package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"github.com/angelmondragon/resellsync/pkg/config"
	pkgerrors "github.com/angelmondragon/resellsync/pkg/errors"
	"github.com/angelmondragon/resellsync/pkg/logger"
)

const (
	defaultPageSize             = 100
	defaultMaxRetries           = 3
	defaultRetryBackoff         = 500 * time.Millisecond
	defaultTimeout              = 30 * time.Second
	defaultPageConcurrency      = 4
	responseBodyReadLimit int64 = 1024
)

var errCredentialsRequired = errors.New("marketplace email and password are required")

// GraphQLError carries the messages of a GraphQL errors array.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	if len(e.Messages) == 0 {
		return "graphql error"
	}
	return strings.Join(e.Messages, "; ")
}

// Client talks to the marketplace GraphQL endpoint.
type Client struct {
	logg        *logger.Logger
	httpClient  *http.Client
	apiURL      string
	limiter     *rate.Limiter
	session     *Session
	pageSize    int
	maxRetries  int
	backoff     time.Duration
	concurrency int
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds a client and its session from configuration.
func NewClient(cfg config.MarketplaceConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if !cfg.Configured() {
		return nil, errCredentialsRequired
	}
	apiURL := strings.TrimSpace(cfg.APIURL)
	if apiURL == "" {
		return nil, fmt.Errorf("marketplace api url required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	c := &Client{
		logg:        logg,
		httpClient:  &http.Client{Timeout: timeout},
		apiURL:      apiURL,
		limiter:     rate.NewLimiter(limit, 1),
		pageSize:    cfg.PageSize,
		maxRetries:  cfg.MaxRetries,
		backoff:     cfg.RetryBackoff,
		concurrency: defaultPageConcurrency,
	}
	if c.pageSize <= 0 {
		c.pageSize = defaultPageSize
	}
	if c.maxRetries <= 0 {
		c.maxRetries = defaultMaxRetries
	}
	if c.backoff <= 0 {
		c.backoff = defaultRetryBackoff
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.session = newSession(c, cfg.Email, cfg.Password, cfg.RefreshBuffer)
	return c, nil
}

// Session exposes the client's authentication state.
func (c *Client) Session() *Session { return c.session }

type graphqlRequest struct {
	OperationName string         `json:"operationName"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// execute runs an authenticated operation and decodes data into out.
func (c *Client) execute(ctx context.Context, req graphqlRequest, out any) error {
	creds, err := c.session.EnsureValid(ctx)
	if err != nil {
		return err
	}
	return c.do(ctx, req, creds.AccessToken, out)
}

// do posts one GraphQL request. token may be empty for the auth mutations.
func (c *Client) do(ctx context.Context, req graphqlRequest, token string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal "+req.OperationName+" request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build "+req.OperationName+" request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute "+req.OperationName+" request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		code := pkgerrors.CodeDependency
		if resp.StatusCode == http.StatusUnauthorized {
			code = pkgerrors.CodeUnauthorized
		}
		return pkgerrors.Wrap(code, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), req.OperationName+" request failed")
	}

	var envelope graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+req.OperationName+" response")
	}
	if len(envelope.Errors) > 0 {
		gqlErr := &GraphQLError{}
		for _, e := range envelope.Errors {
			gqlErr.Messages = append(gqlErr.Messages, e.Message)
		}
		return gqlErr
	}
	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+req.OperationName+" data")
	}
	return nil
}

// withRetry runs fn up to attempts times, sleeping backoff*attempt between tries.
func withRetry(ctx context.Context, attempts int, backoff time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	return retry.Do(ctx, retry.WithMaxRetries(uint64(attempts-1), linearBackoff(backoff)), func(context.Context) error {
		return retry.RetryableError(fn())
	})
}

// linearBackoff waits base, 2*base, 3*base and so on.
func linearBackoff(base time.Duration) retry.Backoff {
	var attempt time.Duration
	return retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return base * attempt, false
	})
}
