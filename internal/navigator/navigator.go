// Package navigator is the client side of the hypermedia surface: fetch
// a resource, execute one of its declared operations, and follow the
// affordances a response carries, the way an agent runtime consumes
// them. It never interprets RDF; resources stay labeled JSON trees.
package navigator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hyprcat/hyprcat/internal/apierr"
	"github.com/hyprcat/hyprcat/internal/ld"
)

// Config tunes retry and cache behavior. Zero values fall back to
// sane defaults in New.
type Config struct {
	HTTPClient  *http.Client
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

const (
	defaultMaxRetries  = 3
	defaultBaseBackoff = 200 * time.Millisecond
	defaultMaxBackoff  = 5 * time.Second
)

// Client fetches and navigates a HyprCAT hypermedia mesh: response
// caching honoring Cache-Control, bounded exponential backoff on
// transient failures, status-to-taxonomy translation, and a recorded
// navigation history used for cycle detection.
type Client struct {
	http        *http.Client
	maxRetries  int
	baseBackoff time.Duration
	maxBackoff  time.Duration

	cacheMu sync.Mutex
	cache   map[string]cacheEntry

	historyMu sync.Mutex
	history   []string
	visited   map[string]int

	bus *eventBus
}

type cacheEntry struct {
	body      map[string]any
	expiresAt time.Time
}

// New returns a Client with cfg's overrides applied over the defaults.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	baseBackoff := cfg.BaseBackoff
	if baseBackoff == 0 {
		baseBackoff = defaultBaseBackoff
	}
	maxBackoff := cfg.MaxBackoff
	if maxBackoff == 0 {
		maxBackoff = defaultMaxBackoff
	}
	return &Client{
		http:        httpClient,
		maxRetries:  maxRetries,
		baseBackoff: baseBackoff,
		maxBackoff:  maxBackoff,
		cache:       make(map[string]cacheEntry),
		visited:     make(map[string]int),
		bus:         newEventBus(),
	}
}

// Subscribe registers a new event listener. The returned channel is
// closed when ctx is done. Publishing never blocks: an event is
// dropped for a subscriber whose 16-event buffer is full.
func (c *Client) Subscribe(ctx context.Context) <-chan Event {
	return c.bus.subscribe(ctx)
}

// History returns every URL fetched so far, in fetch order.
func (c *Client) History() []string {
	c.historyMu.Lock()
	defer c.historyMu.Unlock()
	return append([]string(nil), c.history...)
}

// VisitCount reports how many times url has been fetched, for an
// agent's own cycle-detection policy.
func (c *Client) VisitCount(url string) int {
	c.historyMu.Lock()
	defer c.historyMu.Unlock()
	return c.visited[url]
}

func (c *Client) record(url string) {
	c.historyMu.Lock()
	c.history = append(c.history, url)
	c.visited[url]++
	c.historyMu.Unlock()
}

// Fetch issues a GET with a JSON-LD accept header, consulting the
// response cache first and retrying transient 5xx responses with
// bounded exponential backoff.
func (c *Client) Fetch(ctx context.Context, target string) (map[string]any, error) {
	return c.FetchWithHeaders(ctx, target, nil)
}

// FetchWithHeaders is Fetch with additional request headers, used by
// the agent runtime to attach a payment proof on an auto-pay retry.
func (c *Client) FetchWithHeaders(ctx context.Context, target string, extraHeaders map[string]string) (map[string]any, error) {
	if body, ok := c.cached(target); ok {
		c.record(target)
		c.bus.publish(Event{Kind: EventFetched, URL: target, Cached: true})
		return body, nil
	}

	delay := c.baseBackoff
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		body, status, headers, err := c.doRequestWithHeaders(ctx, http.MethodGet, target, nil, extraHeaders)
		if err == nil && status >= 200 && status < 300 {
			c.cacheIfAllowed(target, body, headers)
			c.record(target)
			c.bus.publish(Event{Kind: EventFetched, URL: target})
			return body, nil
		}
		if err == nil {
			translated := translateStatus(status, body, headers)
			if status < 500 {
				c.bus.publish(Event{Kind: EventFailed, URL: target, Err: translated})
				return nil, translated
			}
			lastErr = translated
		} else {
			lastErr = err
		}
		if attempt == c.maxRetries {
			break
		}
		if !sleepOrDone(ctx, delay) {
			return nil, ctx.Err()
		}
		delay *= 2
		if delay > c.maxBackoff {
			delay = c.maxBackoff
		}
	}
	c.bus.publish(Event{Kind: EventFailed, URL: target, Err: lastErr})
	return nil, lastErr
}

// ExecuteOperation validates input against op's declared property
// shapes, builds the request (serializing input for non-GET methods,
// appending it as query parameters for GET), and issues it. The
// returned status is the upstream HTTP response code, surfaced so
// callers can attribute it to their own activity records.
func (c *Client) ExecuteOperation(ctx context.Context, op map[string]any, input map[string]any) (map[string]any, int, error) {
	method, _ := op["method"].(string)
	if method == "" {
		method = http.MethodGet
	}
	shapes := propertyShapesOf(op)
	if result := ld.ValidateInput(input, shapes); !result.OK() {
		return nil, 0, apierr.New(apierr.ValidationError, "Operation input invalid", "input does not satisfy the operation's declared shapes").
			WithExtra(map[string]any{"errors": result.Errors})
	}

	target, _ := op["target"].(string)
	if target == "" {
		target, _ = op["id"].(string)
	}
	if target == "" {
		return nil, 0, apierr.New(apierr.InvalidRequest, "Operation has no target", "operation carries neither a target nor an id")
	}

	var body io.Reader
	if method != http.MethodGet && len(input) > 0 {
		encoded, err := json.Marshal(input)
		if err != nil {
			return nil, 0, apierr.Wrap(apierr.InternalError, "Encode failed", "marshal operation input", err)
		}
		body = bytes.NewReader(encoded)
	} else if method == http.MethodGet && len(input) > 0 {
		target = appendQuery(target, input)
	}

	decoded, status, headers, err := c.doRequest(ctx, method, target, body)
	if err != nil {
		c.bus.publish(Event{Kind: EventFailed, URL: target, Err: err})
		return nil, status, err
	}
	if status < 200 || status >= 300 {
		translated := translateStatus(status, decoded, headers)
		c.bus.publish(Event{Kind: EventFailed, URL: target, Err: translated})
		return nil, status, translated
	}
	c.record(target)
	c.bus.publish(Event{Kind: EventExecuted, URL: target})
	return decoded, status, nil
}

// Discover fetches baseUrl's service description and follows its
// declared entry point, falling back to baseUrl itself when no
// description or entry point is present.
func (c *Client) Discover(ctx context.Context, baseURL string) (map[string]any, error) {
	description, err := c.Fetch(ctx, strings.TrimRight(baseURL, "/")+"/.well-known/service")
	if err != nil {
		return c.Fetch(ctx, baseURL)
	}
	entry, _ := description["entrypoint"].(string)
	if entry == "" {
		return c.Fetch(ctx, baseURL)
	}
	return c.Fetch(ctx, entry)
}

func (c *Client) doRequest(ctx context.Context, method, target string, body io.Reader) (map[string]any, int, http.Header, error) {
	return c.doRequestWithHeaders(ctx, method, target, body, nil)
}

func (c *Client) doRequestWithHeaders(ctx context.Context, method, target string, body io.Reader, extraHeaders map[string]string) (map[string]any, int, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, 0, nil, apierr.Wrap(apierr.InternalError, "Request build failed", "construct HTTP request", err)
	}
	req.Header.Set("Accept", "application/ld+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, nil, apierr.Wrap(apierr.ServiceUnavailable, "Request failed", "transport error contacting "+target, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, resp.Header, apierr.Wrap(apierr.InternalError, "Read failed", "read response body", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, resp.StatusCode, resp.Header, apierr.Wrap(apierr.InternalError, "Decode failed", "decode response body", err)
		}
	}
	return decoded, resp.StatusCode, resp.Header, nil
}

func (c *Client) cached(target string) (map[string]any, bool) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	entry, ok := c.cache[target]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.body, true
}

func (c *Client) cacheIfAllowed(target string, body map[string]any, headers http.Header) {
	maxAge, ok := parseMaxAge(headers.Get("Cache-Control"))
	if !ok || maxAge <= 0 {
		return
	}
	c.cacheMu.Lock()
	c.cache[target] = cacheEntry{body: body, expiresAt: time.Now().Add(maxAge)}
	c.cacheMu.Unlock()
}

func parseMaxAge(cacheControl string) (time.Duration, bool) {
	for _, directive := range strings.Split(cacheControl, ",") {
		directive = strings.TrimSpace(directive)
		if !strings.HasPrefix(directive, "max-age=") {
			continue
		}
		seconds, err := strconv.Atoi(strings.TrimPrefix(directive, "max-age="))
		if err != nil {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	return 0, false
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// translateStatus maps an HTTP failure onto the fixed error taxonomy,
// carrying the server's error document (invoice, retry-after, ...)
// through as Extra when one was returned.
func translateStatus(status int, body map[string]any, headers http.Header) *apierr.Error {
	title, _ := body["title"].(string)
	detail, _ := body["detail"].(string)
	extra, _ := body["extra"].(map[string]any)

	switch status {
	case http.StatusUnauthorized:
		return apierr.New(apierr.AuthenticationRequired, orDefault(title, "Authentication required"), detail).WithExtra(extra)
	case http.StatusPaymentRequired:
		if extra == nil {
			extra = map[string]any{}
		}
		extra["invoice"] = body["invoice"]
		return apierr.New(apierr.PaymentRequired, orDefault(title, "Payment required"), detail).WithExtra(extra)
	case http.StatusForbidden:
		return apierr.New(apierr.AccessDenied, orDefault(title, "Access denied"), detail).WithExtra(extra)
	case http.StatusNotFound:
		return apierr.New(apierr.NotFound, orDefault(title, "Not found"), detail).WithExtra(extra)
	case http.StatusTooManyRequests:
		if extra == nil {
			extra = map[string]any{}
		}
		if ra := headers.Get("Retry-After"); ra != "" {
			extra["retryAfter"] = ra
		}
		return apierr.New(apierr.RateLimited, orDefault(title, "Rate limited"), detail).WithExtra(extra)
	case http.StatusNotAcceptable:
		return apierr.New(apierr.NotAcceptable, orDefault(title, "Not acceptable"), detail).WithExtra(extra)
	default:
		if status >= 500 {
			return apierr.New(apierr.ServiceUnavailable, orDefault(title, "Upstream error"), fmt.Sprintf("status %d: %s", status, detail)).WithExtra(extra)
		}
		return apierr.New(apierr.InvalidRequest, orDefault(title, "Request failed"), fmt.Sprintf("status %d: %s", status, detail)).WithExtra(extra)
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func propertyShapesOf(op map[string]any) []ld.PropertyShape {
	raw, _ := op["expects"].([]any)
	shapes := make([]ld.PropertyShape, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		shape := ld.PropertyShape{}
		shape.Property, _ = m["property"].(string)
		shape.Required, _ = m["required"].(bool)
		shape.Datatype, _ = m["datatype"].(string)
		shapes = append(shapes, shape)
	}
	return shapes
}

func appendQuery(target string, input map[string]any) string {
	parsed, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := parsed.Query()
	for k, v := range input {
		q.Set(k, fmt.Sprintf("%v", v))
	}
	parsed.RawQuery = q.Encode()
	return parsed.String()
}
