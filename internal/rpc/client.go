// Package rpc implements the action-addressed JSON transport used by the
// chat backend: every call is a POST of {action, payload} answered by a
// {success, data, errors} envelope.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/nhle/clinic-chat/internal/logging"
)

const (
	defaultTimeout    = 20 * time.Second
	defaultMaxRetries = 3
)

// Request is the body posted for every call.
type Request struct {
	Action  string `json:"action"`
	Payload any    `json:"payload"`
}

// Envelope is the decoded response wrapper.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Errors  []string        `json:"-"`
}

// Options configures a Client. Zero values select defaults.
type Options struct {
	// Token is sent as a Bearer token when non-empty.
	Token string

	// Timeout bounds a whole call, retries included.
	Timeout time.Duration

	// MaxRetries is the number of attempts made for rate-limited calls.
	MaxRetries int

	// HTTPClient overrides the underlying HTTP client.
	HTTPClient *http.Client

	// NewBackOff overrides the retry schedule. Used by tests.
	NewBackOff func() backoff.BackOff
}

// Client posts actions to a single RPC endpoint. It handles Bearer token
// authentication, envelope validation, and retry with exponential backoff
// on HTTP 429.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	timeout    time.Duration
	maxRetries uint
	newBackOff func() backoff.BackOff
}

// NewClient creates a client for the given endpoint URL.
func NewClient(endpoint string, opts Options) *Client {
	c := &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		token:      opts.Token,
		httpClient: opts.HTTPClient,
		timeout:    opts.Timeout,
		maxRetries: defaultMaxRetries,
		newBackOff: opts.NewBackOff,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if opts.MaxRetries > 0 {
		c.maxRetries = uint(opts.MaxRetries)
	}
	if c.newBackOff == nil {
		c.newBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		}
	}
	return c
}

// Endpoint returns the URL the client posts to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Timeout returns the per-call deadline.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Call posts action with payload and decodes the envelope's data into
// result. result may be nil when the caller only needs the acknowledgement.
func (c *Client) Call(ctx context.Context, action string, payload, result any) error {
	env, err := c.CallEnvelope(ctx, action, payload)
	if err != nil {
		return err
	}
	if !env.Success {
		msg := "operation failed (success=false)"
		if len(env.Errors) > 0 {
			msg = strings.Join(env.Errors, "\n")
		}
		return &ProtocolError{Action: action, Message: msg}
	}
	if result == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, result); err != nil {
		return &ProtocolError{Action: action, Message: fmt.Sprintf("decoding data: %v", err)}
	}
	return nil
}

// CallEnvelope posts action and returns the validated envelope without
// interpreting success.
func (c *Client) CallEnvelope(ctx context.Context, action string, payload any) (*Envelope, error) {
	name, err := NormalizeAction(action)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		payload = map[string]any{}
	}

	body, err := json.Marshal(Request{Action: name, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("marshaling request body: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	log := logging.Component("rpc")
	start := time.Now()

	raw, err := backoff.Retry(ctx, func() ([]byte, error) {
		return c.post(ctx, name, body)
	}, backoff.WithBackOff(c.newBackOff()), backoff.WithMaxTries(c.maxRetries))
	if err != nil {
		err = classify(name, err)
		log.Debug().Err(err).Str("action", name).Dur("elapsed", time.Since(start)).Msg("call failed")
		return nil, err
	}

	env, err := decodeEnvelope(name, raw)
	if err != nil {
		return nil, err
	}
	log.Trace().Str("action", name).Bool("success", env.Success).Dur("elapsed", time.Since(start)).Msg("call completed")
	return env, nil
}

// post performs a single attempt. Rate limiting is returned as a retryable
// error; every other failure is permanent.
func (c *Client) post(ctx context.Context, action string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, backoff.Permanent(&NetworkError{
			Action: action,
			Err:    fmt.Errorf("executing request %s: %w", action, err),
		})
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, backoff.Permanent(&NetworkError{
			Action: action,
			Err:    fmt.Errorf("reading response body: %w", err),
		})
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		if seconds, ok := retryAfterSeconds(resp); ok {
			return nil, backoff.RetryAfter(seconds)
		}
		return nil, &NetworkError{Action: action, StatusCode: resp.StatusCode}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, backoff.Permanent(&NetworkError{
			Action:     action,
			StatusCode: resp.StatusCode,
			Err:        errors.New(strings.TrimSpace(string(respBody))),
		})
	}
	return respBody, nil
}

// classify maps whatever the retry loop returned onto the error taxonomy.
func classify(action string, err error) error {
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}
	if IsNetworkError(err) || IsProtocolError(err) || IsValidationError(err) {
		return err
	}
	var retryAfter *backoff.RetryAfterError
	if errors.As(err, &retryAfter) {
		return &NetworkError{Action: action, StatusCode: http.StatusTooManyRequests, Err: err}
	}
	return &NetworkError{Action: action, Err: err}
}

func retryAfterSeconds(resp *http.Response) (int, bool) {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0, false
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return seconds, true
}

// decodeEnvelope requires the success, data and errors keys to be present.
// errors entries may be strings or objects carrying a message field.
func decodeEnvelope(action string, raw []byte) (*Envelope, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &ProtocolError{Action: action, Message: "response is not a JSON object"}
	}
	for _, key := range []string{"success", "data", "errors"} {
		if _, ok := fields[key]; !ok {
			return nil, &ProtocolError{Action: action, Message: fmt.Sprintf("envelope missing %q", key)}
		}
	}

	env := &Envelope{Data: fields["data"]}
	if err := json.Unmarshal(fields["success"], &env.Success); err != nil {
		return nil, &ProtocolError{Action: action, Message: "envelope success is not a boolean"}
	}

	var errs []json.RawMessage
	if json.Unmarshal(fields["errors"], &errs) == nil {
		for _, e := range errs {
			env.Errors = append(env.Errors, errorMessage(e))
		}
	}
	return env, nil
}

func errorMessage(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &obj) == nil && obj.Message != "" {
		return obj.Message
	}
	return string(raw)
}
