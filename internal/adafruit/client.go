package adafruit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"iotdash/internal/models"
	"iotdash/internal/providers"
	"iotdash/internal/structures"
)

// ClientInterface wraps the remote telemetry REST API. One outbound call per
// operation, no retries: transient failures surface immediately as a typed
// *Error.
type ClientInterface interface {
	TestConnection(ctx context.Context) error
	GetAllFeeds(ctx context.Context) ([]models.Feed, error)
	GetFeed(ctx context.Context, feedKey string) (*models.Feed, error)
	CreateFeed(ctx context.Context, payload models.FeedPayload) (*models.Feed, error)
	UpdateFeed(ctx context.Context, feedKey string, update models.FeedUpdate) (*models.Feed, error)
	DeleteFeed(ctx context.Context, feedKey string) error
	GetLastValue(ctx context.Context, feedKey string) (*models.DataPoint, error)
	GetFeedData(ctx context.Context, feedKey string, limit int, start, end time.Time) ([]models.DataPoint, error)
	CreateData(ctx context.Context, feedKey string, payload models.DataPayload) (*models.DataPoint, error)
	UpdateData(ctx context.Context, feedKey, dataID string, value models.FlexValue) (*models.DataPoint, error)
	DeleteData(ctx context.Context, feedKey, dataID string) error
}

type Client struct {
	http     *http.Client
	baseURL  string
	username string
	key      string
	logger   providers.Logger
	metrics  providers.MetricsProviderInterface
}

// NewClient reads credentials once from the loaded config. The per-call
// deadline comes from adafruit.timeout.
func NewClient(conf *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface) (ClientInterface, error) {
	if conf.Adafruit.Username == "" || conf.Adafruit.Key == "" {
		return nil, fmt.Errorf("adafruit credentials not configured")
	}
	return &Client{
		http:     &http.Client{Timeout: conf.Adafruit.Timeout},
		baseURL:  conf.Adafruit.BaseURL,
		username: conf.Adafruit.Username,
		key:      conf.Adafruit.Key,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// feedCreateBody is the upstream create-feed wire format.
type feedCreateBody struct {
	Name        string `json:"name"`
	Key         string `json:"key"`
	Description string `json:"description"`
	UnitType    string `json:"unit_type,omitempty"`
	Visibility  string `json:"visibility"`
	History     bool   `json:"history"`
	Enabled     bool   `json:"enabled"`
}

type feedUpdateBody struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	UnitType    *string `json:"unit_type,omitempty"`
	Enabled     *bool   `json:"enabled,omitempty"`
}

type upstreamError struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindRemote, Op: op, Message: err.Error()}
		}
		reader = bytes.NewReader(buf)
	}

	u := c.baseURL + "/" + c.username + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return &Error{Kind: KindRemote, Op: op, Message: err.Error()}
	}
	req.Header.Set("X-AIO-Key", c.key)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(op, "transport_error", time.Since(start))
		return &Error{Kind: KindRemote, Op: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		aerr := c.translate(op, resp)
		c.observe(op, aerr.Kind.String(), time.Since(start))
		c.logger.Debugf(providers.TypeApp, "upstream %s failed: %s", op, aerr)
		return aerr
	}
	c.observe(op, "ok", time.Since(start))

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: KindRemote, Op: op, Message: "decoding upstream response: " + err.Error()}
	}
	return nil
}

// translate maps an upstream failure status onto the closed error set.
func (c *Client) translate(op string, resp *http.Response) *Error {
	var ue upstreamError
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(raw, &ue); err != nil || ue.Error == "" {
		ue.Error = http.StatusText(resp.StatusCode)
	}

	kind := KindRemote
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = KindUnauthorized
	case http.StatusTooManyRequests:
		kind = KindRateLimited
	case http.StatusNotFound:
		kind = KindNotFound
	}
	return &Error{Kind: kind, Op: op, Status: resp.StatusCode, Message: ue.Error}
}

func (c *Client) observe(op, outcome string, d time.Duration) {
	c.metrics.IncUpstreamRequests(op, outcome)
	c.metrics.ObserveUpstreamDuration(op, d)
}

func (c *Client) TestConnection(ctx context.Context) error {
	var feeds []models.Feed
	return c.do(ctx, "test_connection", http.MethodGet, "/feeds", nil, nil, &feeds)
}

func (c *Client) GetAllFeeds(ctx context.Context) ([]models.Feed, error) {
	var feeds []models.Feed
	if err := c.do(ctx, "get_all_feeds", http.MethodGet, "/feeds", nil, nil, &feeds); err != nil {
		return nil, err
	}
	return feeds, nil
}

func (c *Client) GetFeed(ctx context.Context, feedKey string) (*models.Feed, error) {
	var feed models.Feed
	if err := c.do(ctx, "get_feed", http.MethodGet, "/feeds/"+feedKey, nil, nil, &feed); err != nil {
		return nil, err
	}
	return &feed, nil
}

func (c *Client) CreateFeed(ctx context.Context, payload models.FeedPayload) (*models.Feed, error) {
	body := feedCreateBody{
		Name:        payload.Name,
		Key:         payload.Key,
		Description: payload.Description,
		UnitType:    payload.Unit,
		Visibility:  "private",
		History:     true,
		Enabled:     payload.Enabled == nil || *payload.Enabled,
	}
	var feed models.Feed
	if err := c.do(ctx, "create_feed", http.MethodPost, "/feeds", nil, body, &feed); err != nil {
		return nil, err
	}
	return &feed, nil
}

func (c *Client) UpdateFeed(ctx context.Context, feedKey string, update models.FeedUpdate) (*models.Feed, error) {
	body := feedUpdateBody{
		Name:        update.Name,
		Description: update.Description,
		UnitType:    update.Unit,
		Enabled:     update.Enabled,
	}
	var feed models.Feed
	if err := c.do(ctx, "update_feed", http.MethodPut, "/feeds/"+feedKey, nil, body, &feed); err != nil {
		return nil, err
	}
	return &feed, nil
}

func (c *Client) DeleteFeed(ctx context.Context, feedKey string) error {
	return c.do(ctx, "delete_feed", http.MethodDelete, "/feeds/"+feedKey, nil, nil, nil)
}

// GetLastValue returns (nil, nil) when the feed exists but holds no readings
// yet. A 404 on the data endpoint is ambiguous upstream, so the feed itself is
// probed to tell "no data yet" apart from "feed absent".
func (c *Client) GetLastValue(ctx context.Context, feedKey string) (*models.DataPoint, error) {
	var point models.DataPoint
	err := c.do(ctx, "get_last_value", http.MethodGet, "/feeds/"+feedKey+"/data/last", nil, nil, &point)
	if err == nil {
		return &point, nil
	}
	if !IsKind(err, KindNotFound) {
		return nil, err
	}
	if _, ferr := c.GetFeed(ctx, feedKey); ferr != nil {
		return nil, ferr
	}
	return nil, nil
}

func (c *Client) GetFeedData(ctx context.Context, feedKey string, limit int, start, end time.Time) ([]models.DataPoint, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if !start.IsZero() {
		query.Set("start_time", start.UTC().Format(time.RFC3339))
	}
	if !end.IsZero() {
		query.Set("end_time", end.UTC().Format(time.RFC3339))
	}
	var points []models.DataPoint
	if err := c.do(ctx, "get_feed_data", http.MethodGet, "/feeds/"+feedKey+"/data", query, nil, &points); err != nil {
		return nil, err
	}
	return points, nil
}

func (c *Client) CreateData(ctx context.Context, feedKey string, payload models.DataPayload) (*models.DataPoint, error) {
	var point models.DataPoint
	if err := c.do(ctx, "create_data", http.MethodPost, "/feeds/"+feedKey+"/data", nil, payload, &point); err != nil {
		return nil, err
	}
	return &point, nil
}

func (c *Client) UpdateData(ctx context.Context, feedKey, dataID string, value models.FlexValue) (*models.DataPoint, error) {
	body := map[string]models.FlexValue{"value": value}
	var point models.DataPoint
	if err := c.do(ctx, "update_data", http.MethodPut, "/feeds/"+feedKey+"/data/"+dataID, nil, body, &point); err != nil {
		return nil, err
	}
	return &point, nil
}

func (c *Client) DeleteData(ctx context.Context, feedKey, dataID string) error {
	return c.do(ctx, "delete_data", http.MethodDelete, "/feeds/"+feedKey+"/data/"+dataID, nil, nil, nil)
}
