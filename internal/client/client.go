// Package client handles communication with the classtime account API.
//
// All outcomes are normalized: a request either returns the parsed response
// payload or a *Error whose Kind distinguishes server rejections from
// transport failures (see errors.go). Session continuity is cookie based -
// the client carries a cookie jar and sends credentials on every request.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"reflect"
	"strings"
	"time"
)

// DefaultTimeout bounds a request that carries no explicit override.
const DefaultTimeout = 8 * time.Second

// Client handles communication with the classtime account API
type Client struct {
	baseURL    *url.URL
	timeout    time.Duration
	httpClient *http.Client
}

type Option func(*Client)

// WithTimeout overrides the default per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHTTPClient substitutes the underlying transport. The supplied client's
// jar is replaced so cookie-session handling keeps working.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	c := &Client{
		baseURL: parsed,
		timeout: DefaultTimeout,
		httpClient: &http.Client{
			Jar: jar,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient.Jar == nil {
		c.httpClient.Jar = jar
	}

	return c, nil
}

// BaseURL returns the configured API origin.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// SessionCookies returns the cookies currently held for the API origin,
// so a caller can persist the session between process runs.
func (c *Client) SessionCookies() []*http.Cookie {
	return c.httpClient.Jar.Cookies(c.baseURL)
}

// SetSessionCookies restores previously persisted session cookies.
func (c *Client) SetSessionCookies(cookies []*http.Cookie) {
	c.httpClient.Jar.SetCookies(c.baseURL, cookies)
}

// RequestOptions carries the optional parts of a request.
type RequestOptions struct {
	// Params is serialized into the query string. Nil values are omitted and
	// slice values become repeated keys.
	Params map[string]any

	// Body is JSON-serialized and attached for non-GET methods only.
	Body any

	// Timeout overrides the client default for this request.
	Timeout time.Duration
}

// Response is a normalized successful API response.
type Response struct {
	Status int

	// Raw is the unparsed response body.
	Raw []byte

	// Payload is nil for an empty body, the decoded value for valid JSON,
	// and the raw text otherwise.
	Payload any
}

// Decode unmarshals the raw body into v. An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if len(r.Raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Raw, v); err != nil {
		return newInternalError(err, "decoding response body")
	}
	return nil
}

// Do performs one HTTP request against the API and normalizes the outcome.
//
// A 2xx response resolves with the parsed payload. Any other status yields a
// *Error with Kind KindAPI; the message is taken from the server "error"
// field when present, then the raw text body, then a synthesized
// "HTTP <status>" string. A request that outlives its timeout yields
// KindTimeout and other transport failures yield KindConnection.
func (c *Client) Do(ctx context.Context, method, path string, opts *RequestOptions) (*Response, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}

	timeout := c.timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	// per-request deadline: cancelling this request never affects others
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reqURL := strings.TrimSuffix(c.baseURL.String(), "/") + path
	if qs := encodeParams(opts.Params); qs != "" {
		if strings.Contains(reqURL, "?") {
			reqURL += "&" + qs
		} else {
			reqURL += "?" + qs
		}
	}

	var body io.Reader
	if opts.Body != nil && method != http.MethodGet {
		data, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, newInternalError(err, "marshaling request body")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, newInternalError(err, "creating request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, newTimeoutError()
		}
		return nil, newConnectionError(err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, newTimeoutError()
		}
		return nil, newConnectionError(err)
	}

	payload := parsePayload(raw)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, newAPIError(res.StatusCode, payload, raw)
	}

	return &Response{
		Status:  res.StatusCode,
		Raw:     raw,
		Payload: payload,
	}, nil
}

func (c *Client) get(ctx context.Context, path string, params map[string]any) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, &RequestOptions{Params: params})
}

func (c *Client) post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, &RequestOptions{Body: body})
}

func (c *Client) put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPut, path, &RequestOptions{Body: body})
}

func (c *Client) delete(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, &RequestOptions{Body: body})
}

// parsePayload normalizes a response body: empty bodies become nil, valid
// JSON is decoded, anything else is returned as the raw text. Callers get one
// code path whether the server answers with JSON, plain text or nothing.
func parsePayload(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

// encodeParams serializes query parameters. Nil values are omitted; slice and
// array values are serialized as repeated keys.
func encodeParams(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}

	values := url.Values{}
	for key, val := range params {
		if val == nil {
			continue
		}

		rv := reflect.ValueOf(val)
		switch rv.Kind() {
		case reflect.Ptr:
			if rv.IsNil() {
				continue
			}
			values.Add(key, fmt.Sprint(rv.Elem().Interface()))
		case reflect.Slice, reflect.Array:
			for i := 0; i < rv.Len(); i++ {
				values.Add(key, fmt.Sprint(rv.Index(i).Interface()))
			}
		default:
			values.Add(key, fmt.Sprint(val))
		}
	}

	return values.Encode()
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
