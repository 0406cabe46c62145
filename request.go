package wowsql

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// RequestDescriptor is the terminal rendering of a builder or client call:
// everything needed to issue the HTTP request, and nothing else. Rendering
// is deterministic: the same accumulated state always produces the same
// descriptor, so request shapes can be tested without a live server.
type RequestDescriptor struct {
	Method string
	Path   string // rooted at the API version prefix, e.g. /v1/tables/users/rows
	Query  url.Values
	Body   []byte
}

// Encode returns the canonical query string (sorted keys, as the server
// expects). Empty when the descriptor carries no query parameters.
func (d *RequestDescriptor) Encode() string {
	if len(d.Query) == 0 {
		return ""
	}
	return d.Query.Encode()
}

// URL joins the descriptor onto a base URL.
func (d *RequestDescriptor) URL(baseURL string) string {
	u := baseURL + d.Path
	if q := d.Encode(); q != "" {
		u += "?" + q
	}
	return u
}

// transport performs authenticated HTTP calls for both client facades.
// It owns the base URL and API key; all error classification funnels
// through classifyResponse so the two clients never diverge.
type transport struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *slog.Logger
	limiter *rate.Limiter
}

func newTransport(baseURL, apiKey string, opts clientOptions) (*transport, error) {
	if baseURL == "" {
		return nil, configurationError("base URL is required")
	}
	if apiKey == "" {
		return nil, configurationError("API key is required")
	}
	hc := opts.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.timeout}
	}
	return &transport{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    hc,
		log:     opts.log,
		limiter: opts.limiter,
	}, nil
}

// newRequest builds an authenticated request with a fresh request ID.
func (t *transport) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, configurationError("invalid request: " + err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

// send runs one request through the limiter and the HTTP client, mapping
// anything below HTTP (timeout, DNS, refused connection) to KindTransport.
// The caller owns the response body.
func (t *transport) send(req *http.Request) (*http.Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(req.Context()); err != nil {
			return nil, transportError(err)
		}
	}
	start := time.Now()
	resp, err := t.http.Do(req)
	if err != nil {
		t.log.Debug("request failed",
			"method", req.Method, "url", req.URL.String(), "error", err)
		return nil, transportError(err)
	}
	t.log.Debug("request completed",
		"method", req.Method, "url", req.URL.String(),
		"status", resp.StatusCode,
		"request_id", req.Header.Get("X-Request-ID"),
		"duration", time.Since(start))
	return resp, nil
}

// roundTrip executes a descriptor. JSON bodies only; streaming uploads and
// downloads go through stream instead.
func (t *transport) roundTrip(ctx context.Context, desc *RequestDescriptor) (*http.Response, error) {
	var body io.Reader
	if desc.Body != nil {
		body = bytes.NewReader(desc.Body)
	}
	req, err := t.newRequest(ctx, desc.Method, desc.URL(t.baseURL), body)
	if err != nil {
		return nil, err
	}
	if desc.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return t.send(req)
}

// doJSON executes a descriptor and decodes a JSON success payload into out.
// Non-2xx responses become typed errors; undecodable success payloads
// become KindSchema errors.
func (t *transport) doJSON(ctx context.Context, desc *RequestDescriptor, out any) error {
	resp, err := t.roundTrip(ctx, desc)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(err)
	}
	if resp.StatusCode >= 400 {
		return classifyResponse(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := decodeJSON(raw, out); err != nil {
		return schemaError(err, raw)
	}
	return nil
}

func decodeJSON(raw []byte, out any) error {
	return json.Unmarshal(raw, out)
}

// stream issues a request whose body is streamed rather than buffered.
// contentLength may be -1 when unknown.
func (t *transport) stream(ctx context.Context, method, path string, query url.Values, body io.Reader, contentLength int64, contentType string) (*http.Response, error) {
	desc := &RequestDescriptor{Method: method, Path: path, Query: query}
	req, err := t.newRequest(ctx, method, desc.URL(t.baseURL), body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if contentLength >= 0 {
		req.ContentLength = contentLength
	}
	return t.send(req)
}
