// Copyright (c) 2014 PIX System, LLC. and Eric Reinecke
//
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.

package reactor

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

// HTTPRequest describes one HTTP call to be run by an HTTPExecutor.
type HTTPRequest struct {
	// Method defaults to GET.
	Method string

	URL string

	// Header entries override the executor's default headers, per key.
	Header http.Header

	// Params are merged into the URL's query string.
	Params url.Values

	Body io.Reader

	// Priority is a convenience for callers that pass HTTPRequests around
	// before submitting them; Submit still decides the queue.
	Priority Priority
}

// HTTPError encapsulates HTTP-specific error details.
type HTTPError struct {
	TransportError

	// StatusCode is zero when the request never got a response.
	StatusCode int

	// Response is the raw response for status failures, with the body
	// already drained and closed.
	Response *http.Response
}

// HTTPExecutor runs HTTPRequests over a shared, pooled client.
type HTTPExecutor struct {
	client *http.Client

	// decodeJSON makes Execute return the decoded response body instead of
	// the raw *http.Response.
	decodeJSON bool

	// mu guards header, which the worker reads per request while callers
	// may update it at any time.
	mu     sync.Mutex
	header http.Header
}

// HTTPOption configures an HTTPExecutor.
type HTTPOption func(*HTTPExecutor)

// WithHTTPClient replaces the default pooled client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(x *HTTPExecutor) {
		if c != nil {
			x.client = c
		}
	}
}

// WithRetries swaps the client for a retrying one, giving up after max
// retries of a failed request.
func WithRetries(max int) HTTPOption {
	return func(x *HTTPExecutor) {
		rc := retryablehttp.NewClient()
		rc.HTTPClient = cleanhttp.DefaultPooledClient()
		rc.RetryMax = max
		rc.Logger = nil
		x.client = rc.StandardClient()
	}
}

// WithJSON makes the executor decode response bodies as JSON, fulfilling
// task IOUs with the decoded value instead of the raw response.
func WithJSON() HTTPOption {
	return func(x *HTTPExecutor) {
		x.decodeJSON = true
	}
}

// WithDefaultHeader adds a header sent with every request.
func WithDefaultHeader(key, value string) HTTPOption {
	return func(x *HTTPExecutor) {
		x.header.Set(key, value)
	}
}

// NewHTTPExecutor returns an HTTPExecutor backed by a pooled client from
// go-cleanhttp, unless an option says otherwise.
func NewHTTPExecutor(opts ...HTTPOption) *HTTPExecutor {
	x := &HTTPExecutor{
		client: cleanhttp.DefaultPooledClient(),
		header: make(http.Header),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// UpdateDefaultHeaders merges h into the default headers applied to every
// request. A key with an empty value slice removes that key entirely.
func (x *HTTPExecutor) UpdateDefaultHeaders(h http.Header) {
	x.mu.Lock()
	defer x.mu.Unlock()

	for key, values := range h {
		if len(values) == 0 {
			x.header.Del(key)
			continue
		}
		x.header[http.CanonicalHeaderKey(key)] = append([]string(nil), values...)
	}
}

func (x *HTTPExecutor) defaultHeaders() http.Header {
	x.mu.Lock()
	defer x.mu.Unlock()

	return x.header.Clone()
}

// Execute implements Executor for *HTTPRequest values.
func (x *HTTPExecutor) Execute(req any) (any, error) {
	hr, ok := req.(*HTTPRequest)
	if !ok {
		return nil, &TransportError{
			Op:  "execute",
			Err: fmt.Errorf("unsupported request type %T", req),
		}
	}

	method := hr.Method
	if method == "" {
		method = http.MethodGet
	}
	op := method + " " + hr.URL

	target, err := requestURL(hr)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	httpReq, err := http.NewRequest(method, target, hr.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	for key, values := range x.defaultHeaders() {
		httpReq.Header[key] = values
	}
	for key, values := range hr.Header {
		httpReq.Header[http.CanonicalHeaderKey(key)] = append([]string(nil), values...)
	}

	resp, err := x.client.Do(httpReq)
	if err != nil {
		return nil, &HTTPError{
			TransportError: TransportError{Op: op, Err: err},
		}
	}

	if resp.StatusCode >= 400 {
		// drain and close, so the connection goes back to the pool
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		return nil, &HTTPError{
			TransportError: TransportError{
				Op:  op,
				Err: fmt.Errorf("unexpected status %q", resp.Status),
			},
			StatusCode: resp.StatusCode,
			Response:   resp,
		}
	}

	if x.decodeJSON {
		defer resp.Body.Close()
		var decoded any
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return nil, &HTTPError{
				TransportError: TransportError{Op: op, Err: err},
				StatusCode:     resp.StatusCode,
			}
		}
		return decoded, nil
	}

	return resp, nil
}

// requestURL merges the request's Params into its URL's query string.
func requestURL(hr *HTTPRequest) (string, error) {
	if len(hr.Params) == 0 {
		return hr.URL, nil
	}

	u, err := url.Parse(hr.URL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for key, values := range hr.Params {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
