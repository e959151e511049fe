package servicetask

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dshills/bpmnflow/bpmn"
)

// HTTPTool is a Tool that makes an HTTP request: the default backend
// for a BPMN service task that calls an external system.
//
// Its request is assembled from two layers: elem.Properties supplies
// the call's static shape as authored in the process definition
// (method, url, headers, body), and the process variable context
// passed into Call on each invocation overrides any of those keys —
// so a process can fix a service task's target at modeling time while
// still letting upstream data fill in or override parts of the
// request per run.
//
// Recognized keys (in either layer):
//   - method: HTTP method ("GET" or "POST", defaults to "GET")
//   - url: target URL (required, in either layer)
//   - headers: map of HTTP headers
//   - body: request body (for POST requests)
//
// Output, written back into the process variable context by the
// caller:
//   - status_code: HTTP status code (e.g., 200, 404)
//   - headers: response headers as map
//   - body: response body as string
type HTTPTool struct {
	elem   *bpmn.Element
	client *http.Client
}

// NewHTTPTool builds an HTTPTool for elem. elem may be nil (the tool
// then relies entirely on the input passed to Call). Timeouts are
// enforced via the caller's context, not a client-level timeout — the
// service task never imposes one of its own.
func NewHTTPTool(elem *bpmn.Element) *HTTPTool {
	return &HTTPTool{elem: elem, client: &http.Client{}}
}

func (h *HTTPTool) Name() string { return "http_request" }

// requestConfig is elem.Properties with input's keys overlaid on top,
// so process-variable data takes priority over the element's static
// configuration for any key present in both.
func (h *HTTPTool) requestConfig(input map[string]any) map[string]any {
	cfg := make(map[string]any, len(input))
	if h.elem != nil {
		for k, v := range h.elem.Properties {
			cfg[k] = v
		}
	}
	for k, v := range input {
		cfg[k] = v
	}
	return cfg
}

func (h *HTTPTool) Call(ctx context.Context, input map[string]any) (map[string]any, error) {
	cfg := h.requestConfig(input)

	req, err := buildHTTPRequest(ctx, cfg)
	if err != nil {
		return nil, err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("service task http call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	return readHTTPResponse(resp)
}

func buildHTTPRequest(ctx context.Context, cfg map[string]any) (*http.Request, error) {
	target, ok := cfg["url"].(string)
	if !ok || target == "" {
		return nil, fmt.Errorf("service task http call: missing url property")
	}

	method := "GET"
	if m, ok := cfg["method"].(string); ok && m != "" {
		method = strings.ToUpper(m)
	}
	if method != "GET" && method != "POST" {
		return nil, fmt.Errorf("service task http call: unsupported method %q (supported: GET, POST)", method)
	}

	var payload io.Reader
	if b, ok := cfg["body"].(string); ok && b != "" {
		payload = bytes.NewBufferString(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, payload)
	if err != nil {
		return nil, fmt.Errorf("service task http call: build request: %w", err)
	}

	if headers, ok := cfg["headers"].(map[string]any); ok {
		for key, value := range headers {
			if s, ok := value.(string); ok {
				req.Header.Set(key, s)
			}
		}
	}
	return req, nil
}

func readHTTPResponse(resp *http.Response) (map[string]any, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("service task http call: read response body: %w", err)
	}

	headers := make(map[string]any, len(resp.Header))
	for key, values := range resp.Header {
		if len(values) == 1 {
			headers[key] = values[0]
			continue
		}
		headers[key] = values
	}

	return map[string]any{
		"status_code": resp.StatusCode,
		"headers":     headers,
		"body":        string(body),
	}, nil
}
