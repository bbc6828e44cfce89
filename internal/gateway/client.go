package gateway

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

	"github.com/angelmondragon/storefront-sync/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-sync/pkg/errors"
)

const (
	defaultTimeout             = 10 * time.Second
	errorBodyExcerptLimit      = 1024
	readRetryBackoff           = 200 * time.Millisecond
	headerAuthorization        = "Authorization"
	headerContentType          = "Content-Type"
	headerAccept               = "Accept"
	contentTypeApplicationJSON = "application/json"
)

var errBaseURLRequired = errors.New("gateway base url is required")

// TokenSource supplies the bearer token for outbound calls. An empty token
// means the call goes out unauthenticated.
type TokenSource interface {
	Token() string
}

// Client performs the HTTP round trips against the storefront API. Reads are
// retried at most once; mutations are never retried.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
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

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewClient builds a gateway client for the given base URL.
func NewClient(baseURL string, tokens TokenSource, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}

	client := &Client{
		baseURL:    trimmed,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return client, nil
}

// NewClientFromConfig builds a client from the gateway config section.
func NewClientFromConfig(cfg config.GatewayConfig, tokens TokenSource, opts ...Option) (*Client, error) {
	merged := append([]Option{WithTimeout(cfg.Timeout)}, opts...)
	return NewClient(cfg.BaseURL, tokens, merged...)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "gateway client not configured")
	}

	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding request body")
		}
		payload = encoded
	}

	err := c.attempt(ctx, method, path, payload, out)
	if err != nil && method == http.MethodGet && retryable(err) {
		select {
		case <-ctx.Done():
			return pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "gateway request canceled")
		case <-time.After(readRetryBackoff):
		}
		err = c.attempt(ctx, method, path, payload, out)
	}
	return err
}

func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building gateway request")
	}
	req.Header.Set(headerAccept, contentTypeApplicationJSON)
	if payload != nil {
		req.Header.Set(headerContentType, contentTypeApplicationJSON)
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set(headerAuthorization, "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling storefront api")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Only error bodies are bounded; snapshots have no size ceiling.
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyExcerptLimit))
		return statusError(resp.StatusCode, excerpt)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			// Empty body on success, nothing to decode.
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding storefront response")
	}
	return nil
}

func statusError(status int, body []byte) error {
	excerpt := strings.TrimSpace(string(body))
	if len(excerpt) > errorBodyExcerptLimit {
		excerpt = excerpt[:errorBodyExcerptLimit]
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "storefront rejected credentials")
	case status == http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, "collection resource not found")
	case status >= 500:
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("storefront unavailable (status %d): %s", status, excerpt))
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("storefront rejected request (status %d): %s", status, excerpt))
	}
}

// retryable reports whether a failed read is worth a second attempt: transport
// errors and 5xx responses, never client errors.
func retryable(err error) bool {
	typed := pkgerrors.As(err)
	if typed == nil {
		return false
	}
	return pkgerrors.MetadataFor(typed.Code()).Retryable
}
