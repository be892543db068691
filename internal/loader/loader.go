package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	appLog "assocal/internal/log"
	"assocal/internal/model"
)

const (
	DefaultColorsPath = "/assoc-colors.json"
	DefaultEventsPath = "/events.json"

	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 16 << 20
)

// ErrStatus is wrapped by fetch errors caused by a non-200 response.
var ErrStatus = errors.New("unexpected status")

// ErrTooLarge is wrapped by fetch errors when a document exceeds MaxBodyBytes.
var ErrTooLarge = errors.New("response body too large")

// Source provides the two documents the widget needs. Implementations must
// not serve cached copies.
type Source interface {
	FetchColors(ctx context.Context) (model.ColorMapping, error)
	FetchEvents(ctx context.Context) ([]model.Event, error)
}

// HTTPClient is the subset of *http.Client used by Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches assoc-colors.json and events.json over HTTP.
type Client struct {
	BaseURL    string
	ColorsPath string
	EventsPath string
	// Location interprets zone-less event timestamps.
	Location *time.Location

	// Username / Password are sent as HTTP Basic credentials when both are
	// set.
	Username string
	Password string

	// MaxBodyBytes caps each document.
	MaxBodyBytes int64

	http HTTPClient
}

// New returns a Client for baseURL. httpClient may be nil.
func New(baseURL string, httpClient HTTPClient, loc *time.Location) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		ColorsPath:   DefaultColorsPath,
		EventsPath:   DefaultEventsPath,
		Location:     loc,
		MaxBodyBytes: maxBodyBytes,
		http:         httpClient,
	}
}

// FetchColors implements Source.
func (c *Client) FetchColors(ctx context.Context) (model.ColorMapping, error) {
	body, err := c.get(ctx, c.ColorsPath)
	if err != nil {
		return nil, fmt.Errorf("loader: fetch colors: %w", err)
	}
	m, err := model.DecodeColors(body)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	return m, nil
}

// FetchEvents implements Source.
func (c *Client) FetchEvents(ctx context.Context) ([]model.Event, error) {
	body, err := c.get(ctx, c.EventsPath)
	if err != nil {
		return nil, fmt.Errorf("loader: fetch events: %w", err)
	}
	events, err := model.DecodeEvents(body, c.Location)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	return events, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	u, err := c.resolve(path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-cache, no-store")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Accept", "application/json")
	if c.Username != "" && c.Password != "" {
		req.SetBasicAuth(c.Username, c.Password)
	}

	appLog.Debug("loader fetch start", "url", u)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrStatus, resp.Status)
	}

	limit := c.MaxBodyBytes
	if limit <= 0 {
		limit = maxBodyBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}

	appLog.Debug("loader fetch success", "url", u, "bytes", len(body))
	return body, nil
}

func (c *Client) resolve(path string) (string, error) {
	if c.BaseURL == "" {
		return "", errors.New("base URL is empty")
	}
	base, err := url.Parse(c.BaseURL + "/")
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(strings.TrimLeft(path, "/"))
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

// Result is the outcome of a successful load.
type Result struct {
	Colors model.ColorMapping
	Events []model.Event
}

// Load fetches the colour mapping and then, only if that succeeded, the
// events. Any failure aborts the whole load; nothing is retried.
func Load(ctx context.Context, src Source) (Result, error) {
	colors, err := src.FetchColors(ctx)
	if err != nil {
		appLog.Error("loading error", err, "step", "colors")
		return Result{}, err
	}

	events, err := src.FetchEvents(ctx)
	if err != nil {
		appLog.Error("loading error", err, "step", "events")
		return Result{}, err
	}

	appLog.Info("widget data loaded", "events", len(events), "colors", len(colors))
	return Result{Colors: colors, Events: events}, nil
}
