// Package transport implements the JSON-RPC 2.0 over HTTP client side of
// A2A: envelope construction, id correlation, auth injection, retries,
// and timeouts (§4.2).
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cyberelf/ranch/a2a"
)

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response envelope.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Transport is the contract the remote-agent client drives: given a
// method name and params, produce a deserialized result or a typed
// *a2a.Error (§4.2).
type Transport interface {
	Call(ctx context.Context, method string, params any, result any) error
}

// Config configures an HTTPTransport.
type Config struct {
	Endpoint   string
	Auth       AuthStrategy
	Timeout    time.Duration // default 30s
	Retry      RetryPolicy   // zero value disables retries
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// HTTPTransport is the concrete Transport implementation: JSON-RPC 2.0
// request/response over an HTTP POST, with id correlation, auth
// injection, and the retry policy of §4.2.
type HTTPTransport struct {
	endpoint string
	auth     AuthStrategy
	timeout  time.Duration
	retry    RetryPolicy
	client   *http.Client
	logger   *slog.Logger
	nextID   atomic.Int64
}

// NewHTTPTransport constructs an HTTPTransport from cfg, filling in
// defaults for an unset timeout and HTTP client.
func NewHTTPTransport(cfg Config) *HTTPTransport {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPTransport{
		endpoint: cfg.Endpoint,
		auth:     cfg.Auth,
		timeout:  timeout,
		retry:    cfg.Retry,
		client:   client,
		logger:   logger,
	}
}

// Timeout returns the transport's configured per-request deadline, used
// by the remote-agent client to derive its polling timeout (§4.3).
func (t *HTTPTransport) Timeout() time.Duration { return t.timeout }

// Call performs one JSON-RPC request, retrying per t.retry when the
// failure is classified as idempotency-safe and retryable (§4.2).
func (t *HTTPTransport) Call(ctx context.Context, method string, params any, result any) error {
	var lastErr error
	attempts := t.retry.MaxAttemptsOrDefault()
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := t.retry.Backoff(attempt)
			t.logger.Debug("retrying rpc call", "method", method, "attempt", attempt, "wait", wait)
			select {
			case <-ctx.Done():
				return a2a.WrapError(a2a.ErrTimeout, ctx.Err(), "context cancelled before retry")
			case <-time.After(wait):
			}
		}
		err := t.callOnce(ctx, method, params, result)
		if err == nil {
			return nil
		}
		lastErr = err
		if !shouldRetry(err) {
			return err
		}
	}
	return lastErr
}

func (t *HTTPTransport) callOnce(ctx context.Context, method string, params any, result any) error {
	reqCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	env := Request{JSONRPC: "2.0", ID: t.nextID.Add(1), Method: method, Params: params}
	body, err := json.Marshal(env)
	if err != nil {
		return a2a.WrapError(a2a.ErrValidation, err, "encoding request")
	}

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return a2a.WrapError(a2a.ErrInternal, err, "building request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if t.auth != nil {
		if err := t.auth.Apply(httpReq); err != nil {
			return a2a.WrapError(a2a.ErrAuthentication, err, "applying auth strategy")
		}
	}

	t.logger.Info("rpc call", "method", method, "endpoint", t.endpoint)

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		if reqCtx.Err() != nil {
			return a2a.WrapError(a2a.ErrTimeout, err, "request timed out")
		}
		return a2a.WrapError(a2a.ErrNetwork, err, "performing request")
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return a2a.WrapError(a2a.ErrNetwork, err, "reading response")
	}

	if httpResp.StatusCode >= 500 || httpResp.StatusCode == http.StatusTooManyRequests {
		return &httpStatusError{status: httpResp.StatusCode, err: a2a.NewError(a2a.ErrNetwork, "http %d", httpResp.StatusCode)}
	}
	if httpResp.StatusCode >= 400 {
		return a2a.NewError(a2a.ErrValidation, "http %d: %s", httpResp.StatusCode, string(respBody))
	}

	var rpcResp Response
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return a2a.WrapError(a2a.ErrValidation, err, "decoding response envelope")
	}
	if rpcResp.Error != nil {
		return a2a.ErrorFromCode(rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return a2a.WrapError(a2a.ErrValidation, err, "decoding result")
	}
	return nil
}

// httpStatusError tags an error as having come from an HTTP 5xx/429
// response, the one class of "transport-error" retry eligibility that
// isn't already implied by the wrapped a2a.ErrorKind.
type httpStatusError struct {
	status int
	err    error
}

func (e *httpStatusError) Error() string { return fmt.Sprintf("%v (status %d)", e.err, e.status) }
func (e *httpStatusError) Unwrap() error { return e.err }

func shouldRetry(err error) bool {
	if _, ok := err.(*httpStatusError); ok {
		return true
	}
	var aerr *a2a.Error
	if ok := asError(err, &aerr); ok {
		return aerr.Kind == a2a.ErrNetwork || aerr.Kind == a2a.ErrTimeout
	}
	return false
}

func asError(err error, target **a2a.Error) bool {
	for err != nil {
		if e, ok := err.(*a2a.Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
