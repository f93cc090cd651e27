package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the production REST endpoint
const DefaultBaseURL = "https://api.coinex.com"

const defaultTimeout = 30 * time.Second

// Client represents the CoinEx API client
type Client struct {
	builder *Builder
	http    *resty.Client
	timeout time.Duration
	logger  logrus.FieldLogger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sends requests through hc instead of a fresh http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = resty.NewWithClient(hc)
	}
}

// WithTimeout overrides the per-request timeout. It applies to a client
// given through WithHTTPClient as well.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a new CoinEx API client. Credentials are validated here
// so that signing can never fail later.
func NewClient(baseURL, apiKey, secretKey string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	signer, err := NewSigner(secretKey)
	if err != nil {
		return nil, err
	}
	builder, err := NewBuilder(baseURL, apiKey, signer)
	if err != nil {
		return nil, err
	}

	discard := logrus.New()
	discard.SetOutput(io.Discard)

	c := &Client{
		builder: builder,
		http:    resty.New(),
		timeout: defaultTimeout,
		logger:  discard,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		c.http.SetTimeout(c.timeout)
	}
	c.http.SetRetryCount(0)
	c.http.SetHeader("User-Agent", "coinex-trading/1.0")

	return c, nil
}

// Do signs and sends req and returns the envelope's data payload
func (c *Client) Do(ctx context.Context, req Request) (json.RawMessage, error) {
	signed, err := c.builder.Build(req)
	if err != nil {
		return nil, err
	}

	r := c.http.R().SetContext(ctx)
	for k, v := range signed.Header {
		if len(v) > 0 {
			r.SetHeader(k, v[0])
		}
	}
	if len(signed.Body) > 0 {
		r.SetBody(signed.Body)
	}

	c.logger.WithFields(DebugRequest(signed)).Debug("sending request")

	start := time.Now()
	resp, err := r.Execute(signed.Method, signed.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to perform request %s %s", signed.Method, signed.PathAndQuery)
	}

	c.logger.WithFields(DebugResponse(resp.StatusCode(), resp.Body(), time.Since(start))).Debug("received response")

	return DecodeEnvelope(resp.StatusCode(), resp.Body())
}

// get performs a signed GET and decodes data into out
func (c *Client) get(ctx context.Context, path string, query Params, out interface{}) error {
	data, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
	if err != nil {
		return err
	}
	return decodeData(data, out)
}

// post performs a signed POST and decodes data into out
func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	data, err := c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
	if err != nil {
		return err
	}
	return decodeData(data, out)
}
