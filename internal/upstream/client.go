// Package upstream owns the pooled HTTPS client that talks to Google's
// internal Gemini API (cloudcode-pa.googleapis.com/v1internal): the
// project-ID bootstrap, unary/streaming generation, context-cache
// creation, and the connectivity probe.
//
// Grounded on gemini/client.rs for the operation set and error-mapping
// table; the dependency-injected *http.Client constructor and the
// goroutine+channel+select-on-ctx.Done() streaming pattern are carried
// over from the teacher's internal/provider/google.go.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/howard-nolan/geminiproxy/internal/config"
	"github.com/howard-nolan/geminiproxy/internal/geminiapi"
	"github.com/howard-nolan/geminiproxy/internal/health"
	"github.com/howard-nolan/geminiproxy/internal/metrics"
	"github.com/howard-nolan/geminiproxy/internal/retry"
	"github.com/howard-nolan/geminiproxy/internal/sseparser"
	"github.com/howard-nolan/geminiproxy/internal/translate"
)

// TokenSource is the subset of *oauth.Manager the client depends on,
// so tests can substitute a fake without standing up real credentials.
type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
}

// StreamEvent is one item produced by StreamGenerate: either an upstream
// GenerateContentResponse, or a terminal error closing the stream.
type StreamEvent struct {
	Response geminiapi.GenerateContentResponse
	Err      error
}

// Client owns the pooled HTTP client and the resolved project ID used
// on every call to the internal Gemini API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
	health     *health.Tracker
	metrics    *metrics.Registry
	project    string
}

// New builds a Client with the connection-pool tuning SPEC_FULL.md §4.F
// specifies: 10 max idle connections per host, 90s idle timeout, 60s TCP
// keep-alive, 10s connect timeout, and cfg.Gemini.TimeoutSeconds as the
// total per-call timeout.
func New(cfg config.GeminiConfig, tokens TokenSource, ht *health.Tracker, reg *metrics.Registry) *Client {
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 60 * time.Second,
		}).DialContext,
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 300 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Transport: transport, Timeout: timeout},
		baseURL:    strings.TrimSuffix(cfg.APIBaseURL, "/"),
		tokens:     tokens,
		health:     ht,
		metrics:    reg,
	}
}

// Bootstrap resolves the caller's project ID via :loadCodeAssist, retried
// through the Retry Engine. A 403 with no project returned is surfaced
// as a setup error instructing the user to use an eligible account.
func (c *Client) Bootstrap(ctx context.Context) error {
	token, err := c.tokens.GetToken(ctx)
	if err != nil {
		return translate.NewError(translate.KindAuthentication, "resolving project id: %v", err)
	}

	type loadCodeAssistResponse struct {
		CloudaicompanionProject string `json:"cloudaicompanionProject"`
	}

	result, err := retry.Do(ctx, func(ctx context.Context) (loadCodeAssistResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+":loadCodeAssist", bytes.NewReader([]byte("{}")))
		if err != nil {
			return loadCodeAssistResponse{}, err
		}
		c.setHeaders(req, token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return loadCodeAssistResponse{}, fmt.Errorf("loadCodeAssist network error: %w", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode == http.StatusForbidden {
			return loadCodeAssistResponse{}, fmt.Errorf("loadCodeAssist forbidden: use an eligible Google account: %s", string(body))
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return loadCodeAssistResponse{}, &retry.HTTPError{StatusCode: resp.StatusCode, Body: body}
		}

		var parsed loadCodeAssistResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return loadCodeAssistResponse{}, fmt.Errorf("malformed loadCodeAssist response: %w", err)
		}
		return parsed, nil
	})
	if err != nil {
		return translate.NewError(translate.KindProjectResolution, "loadCodeAssist bootstrap failed: %v", err)
	}
	if result.CloudaicompanionProject == "" {
		return translate.NewError(translate.KindProjectResolution, "loadCodeAssist returned no project; use an eligible account")
	}

	c.project = result.CloudaicompanionProject
	return nil
}

func (c *Client) setHeaders(req *http.Request, token string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
}

func newUserPromptID() string {
	return "req_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// Generate performs a unary generateContent call, wrapping req in the
// internal envelope {model, project, user_prompt_id, request}.
func (c *Client) Generate(ctx context.Context, model string, req geminiapi.GenerateContentRequest) (geminiapi.GenerateContentResponse, error) {
	envelope := geminiapi.InternalAPIRequest{
		Model:        model,
		Project:      c.project,
		UserPromptID: newUserPromptID(),
		Request:      req,
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return geminiapi.GenerateContentResponse{}, fmt.Errorf("marshaling upstream request: %w", err)
	}

	token, err := c.tokens.GetToken(ctx)
	if err != nil {
		return geminiapi.GenerateContentResponse{}, translate.NewError(translate.KindAuthentication, "%v", err)
	}

	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+":generateContent", bytes.NewReader(body))
	if err != nil {
		return geminiapi.GenerateContentResponse{}, err
	}
	c.setHeaders(httpReq, token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.recordCall(model, "error", "unary", time.Since(start).Seconds())
		return geminiapi.GenerateContentResponse{}, translate.NewError(translate.KindUpstream, "upstream network error: %v", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	c.recordCall(model, fmt.Sprintf("%d", resp.StatusCode), "unary", time.Since(start).Seconds())
	c.notifyHealth(model, resp.StatusCode, respBody)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return geminiapi.GenerateContentResponse{}, mapStatusError(resp.StatusCode, respBody)
	}

	var out geminiapi.GenerateContentResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return geminiapi.GenerateContentResponse{}, translate.NewError(translate.KindUpstream, "malformed upstream response: %v", err)
	}
	return out, nil
}

// StreamGenerate performs a streamGenerateContent call and returns a
// channel of StreamEvents. The returned channel is closed when the
// stream ends, whether cleanly or on error.
func (c *Client) StreamGenerate(ctx context.Context, model string, req geminiapi.GenerateContentRequest) (<-chan StreamEvent, error) {
	envelope := geminiapi.InternalAPIRequest{
		Model:        model,
		Project:      c.project,
		UserPromptID: newUserPromptID(),
		Request:      req,
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("marshaling upstream request: %w", err)
	}

	token, err := c.tokens.GetToken(ctx)
	if err != nil {
		return nil, translate.NewError(translate.KindAuthentication, "%v", err)
	}

	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+":streamGenerateContent?alt=sse", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setHeaders(httpReq, token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.recordCall(model, "error", "stream", time.Since(start).Seconds())
		return nil, translate.NewError(translate.KindUpstream, "upstream network error: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		c.recordCall(model, fmt.Sprintf("%d", resp.StatusCode), "stream", time.Since(start).Seconds())
		c.notifyHealth(model, resp.StatusCode, respBody)
		return nil, mapStatusError(resp.StatusCode, respBody)
	}
	c.notifyHealth(model, resp.StatusCode, nil)

	ch := make(chan StreamEvent)

	go func() {
		defer close(ch)
		defer resp.Body.Close()
		defer c.recordCall(model, "200", "stream", time.Since(start).Seconds())

		parser := sseparser.New(nil)
		buf := make([]byte, 32*1024)
		for {
			n, readErr := resp.Body.Read(buf)
			if n > 0 {
				events, parseErr := parser.Feed(buf[:n])
				for _, evt := range events {
					select {
					case ch <- StreamEvent{Response: evt}:
					case <-ctx.Done():
						return
					}
				}
				if parseErr != nil {
					select {
					case ch <- StreamEvent{Err: fmt.Errorf("stream parse error: %w", parseErr)}:
					case <-ctx.Done():
					}
					return
				}
			}
			if readErr != nil {
				if readErr != io.EOF {
					select {
					case ch <- StreamEvent{Err: fmt.Errorf("reading upstream stream: %w", readErr)}:
					case <-ctx.Done():
					}
				}
				return
			}
		}
	}()

	return ch, nil
}

// CreateCache creates an upstream cached-content entry with a default
// TTL of 300 seconds, orchestrated as a best-effort path by the Context
// Cache Manager (O); failures are the caller's to swallow.
func (c *Client) CreateCache(ctx context.Context, model string, systemInstruction *geminiapi.SystemInstruction, contents []geminiapi.Content) (string, error) {
	token, err := c.tokens.GetToken(ctx)
	if err != nil {
		return "", err
	}

	payload := struct {
		Model             string                       `json:"model"`
		Contents          []geminiapi.Content          `json:"contents"`
		SystemInstruction *geminiapi.SystemInstruction `json:"systemInstruction,omitempty"`
		TTL               string                       `json:"ttl"`
	}{
		Model:             model,
		Contents:          contents,
		SystemInstruction: systemInstruction,
		TTL:               "300s",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/cachedContents", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	c.setHeaders(httpReq, token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("create_cache network error: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", mapStatusError(resp.StatusCode, respBody)
	}

	var parsed struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("malformed create_cache response: %w", err)
	}
	return parsed.Name, nil
}

// Probe sends a 1-token request to verify connectivity for health
// checks, with a 5s timeout independent of the client's configured
// total timeout.
func (c *Client) Probe(ctx context.Context, model string) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	maxTokens := 1
	req := geminiapi.GenerateContentRequest{
		Contents: []geminiapi.Content{{Role: "user", Parts: []geminiapi.Part{geminiapi.TextPart("ping")}}},
		GenerationConfig: &geminiapi.GenerationConfig{
			MaxOutputTokens: &maxTokens,
		},
	}

	start := time.Now()
	_, err := c.Generate(ctx, model, req)
	return time.Since(start), err
}

func (c *Client) recordCall(model, status, mode string, durationSeconds float64) {
	if c.metrics != nil {
		c.metrics.RecordUpstreamCall(model, status, mode, durationSeconds)
	}
}

// notifyHealth classifies a completed call and updates the Model Health
// Tracker per SPEC_FULL.md §4.E/§4.F: 2xx marks Healthy; 429 classifies
// into Terminal (daily quota exhaustion) vs TransientRetry by substring
// match on "Daily" in the body; other 5xx mark TransientRetry.
func (c *Client) notifyHealth(model string, statusCode int, body []byte) {
	if c.health == nil {
		return
	}
	switch {
	case statusCode >= 200 && statusCode < 300:
		c.health.MarkHealthy(model)
	case statusCode == http.StatusTooManyRequests:
		if strings.Contains(string(body), "Daily") {
			c.health.MarkTerminal(model, "daily quota exhausted")
		} else {
			c.health.MarkTransient(model, "rate limited")
		}
	case statusCode >= 500:
		c.health.MarkTransient(model, fmt.Sprintf("upstream %d", statusCode))
	}
}

// mapStatusError maps a non-2xx upstream HTTP status to the domain error
// taxonomy per SPEC_FULL.md §4.F: 429 -> RateLimited, 529 -> Overloaded,
// 503/504 -> Unavailable, anything else -> UpstreamError.
func mapStatusError(statusCode int, body []byte) error {
	switch statusCode {
	case http.StatusTooManyRequests:
		return translate.NewError(translate.KindRateLimited, "upstream rate limited: %s", string(body))
	case 529:
		return translate.NewError(translate.KindOverloaded, "upstream overloaded: %s", string(body))
	case http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return translate.NewError(translate.KindUnavailable, "upstream unavailable (%d): %s", statusCode, string(body))
	default:
		return translate.NewError(translate.KindUpstream, "upstream error (%d): %s", statusCode, string(body))
	}
}
