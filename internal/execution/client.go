package execution

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"github.com/studiowebux/dlts/internal/types"
)

// TLSConfig holds optional TLS and mTLS settings for the API connection
type TLSConfig struct {
	CertFile           string
	KeyFile            string
	CAFile             string
	InsecureSkipVerify bool
}

// Options configures a Client
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries uint64
	Backoff    time.Duration
	TLS        *TLSConfig
	Logger     logrus.FieldLogger
}

// Client talks to the execution service over HTTP/JSON
type Client struct {
	baseURL    *url.URL
	http       *http.Client
	maxRetries uint64
	backoff    time.Duration
	log        logrus.FieldLogger
}

var _ Service = (*Client)(nil)

// NewClient creates a client for the API rooted at opts.BaseURL
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("api url is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse api url: %w", err)
	}

	transport, err := buildTransport(opts.TLS)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	return &Client{
		baseURL:    base,
		http:       &http.Client{Transport: transport, Timeout: timeout},
		maxRetries: opts.MaxRetries,
		backoff:    backoff,
		log:        log,
	}, nil
}

// buildTransport creates a transport with optional TLS/mTLS configuration
func buildTransport(tlsConfig *TLSConfig) (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if tlsConfig == nil {
		return transport, nil
	}

	tlsCfg := &tls.Config{
		InsecureSkipVerify: tlsConfig.InsecureSkipVerify,
	}

	// Client certificate for mTLS
	if tlsConfig.CertFile != "" && tlsConfig.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(tlsConfig.CertFile, tlsConfig.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}

	if tlsConfig.CAFile != "" {
		caCert, err := os.ReadFile(tlsConfig.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}
		tlsCfg.RootCAs = caCertPool
	}

	transport.TLSClientConfig = tlsCfg
	return transport, nil
}

type submitResponse struct {
	TestID string `json:"testId"`
}

type listResponse struct {
	Items []types.TestRecord `json:"Items"`
}

// Submit creates or updates a test and starts it
func (c *Client) Submit(ctx context.Context, sub types.Submission) (string, error) {
	var resp submitResponse
	if err := c.do(ctx, "submit test", http.MethodPost, "/scenarios", sub, &resp); err != nil {
		return "", err
	}
	if resp.TestID == "" {
		return sub.TestID, nil
	}
	return resp.TestID, nil
}

// Cancel stops the running test
func (c *Client) Cancel(ctx context.Context, testID string) error {
	return c.do(ctx, "cancel test", http.MethodPost, "/scenarios/"+url.PathEscape(testID), nil, nil)
}

// Get returns one test with its results and history
func (c *Client) Get(ctx context.Context, testID string) (types.TestRecord, error) {
	var rec types.TestRecord
	err := c.do(ctx, "get test", http.MethodGet, "/scenarios/"+url.PathEscape(testID), nil, &rec)
	return rec, err
}

// List returns all tests
func (c *Client) List(ctx context.Context) ([]types.TestRecord, error) {
	var resp listResponse
	if err := c.do(ctx, "list tests", http.MethodGet, "/scenarios", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// Delete removes a test
func (c *Client) Delete(ctx context.Context, testID string) error {
	return c.do(ctx, "delete test", http.MethodDelete, "/scenarios/"+url.PathEscape(testID), nil, nil)
}

// Tasks returns the tasks currently present on the execution fleet
func (c *Client) Tasks(ctx context.Context) ([]types.Task, error) {
	var tasks []types.Task
	err := c.do(ctx, "list tasks", http.MethodGet, "/tasks", nil, &tasks)
	return tasks, err
}

// do sends one request, retrying network errors and 5xx responses.
// Every failure is returned as a *types.TransportError.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return &types.TransportError{Op: op, Err: fmt.Errorf("failed to encode request: %w", err)}
		}
	}

	target := c.baseURL.String() + path
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.backoff))
	attempt := 0

	var statusCode int
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		statusCode = 0

		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, body)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			c.log.WithFields(logrus.Fields{"op": op, "attempt": attempt}).WithError(err).Debug("request failed")
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("failed to read response body: %w", err))
		}

		statusCode = resp.StatusCode
		switch {
		case resp.StatusCode == http.StatusNotFound:
			return ErrNotFound
		case resp.StatusCode >= 500:
			c.log.WithFields(logrus.Fields{"op": op, "attempt": attempt, "status": resp.StatusCode}).Debug("server error")
			return retry.RetryableError(errors.New(responseMessage(resp.Status, data)))
		case resp.StatusCode >= 400:
			return errors.New(responseMessage(resp.Status, data))
		}

		if out == nil || len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	})
	if err != nil {
		return &types.TransportError{Op: op, StatusCode: statusCode, Err: err}
	}
	return nil
}

// responseMessage extracts a readable error from a failed response
func responseMessage(status string, body []byte) string {
	var msg struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &msg) == nil {
		if msg.Message != "" {
			return msg.Message
		}
		if msg.Error != "" {
			return msg.Error
		}
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return status
	}
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
