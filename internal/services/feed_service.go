package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"iotdash/internal/adafruit"
	"iotdash/internal/models"
	"iotdash/internal/providers"
	"iotdash/internal/structures"
)

// chartPointCap bounds how many raw points a chart request pulls upstream.
const chartPointCap = 1000

type FeedServiceInterface interface {
	ListFeeds(ctx context.Context) ([]models.Feed, error)
	GetFeed(ctx context.Context, feedKey string) (*models.Feed, error)
	CreateFeed(ctx context.Context, payload models.FeedPayload) (*models.Feed, error)
	UpdateFeed(ctx context.Context, feedKey string, update models.FeedUpdate) (*models.Feed, error)
	DeleteFeed(ctx context.Context, feedKey string) error
	GetLatest(ctx context.Context, feedKey string) (*models.DataPoint, error)
	ListFeedsWithLatest(ctx context.Context) ([]models.FeedLatest, error)
	BootstrapDefaultFeeds(ctx context.Context) (*models.BootstrapReport, error)
	GetChartSeries(ctx context.Context, feedKey string, hours int) (*models.ChartData, error)
	GetFeedData(ctx context.Context, feedKey string, limit int, start, end time.Time) ([]models.DataPoint, error)
	CreateData(ctx context.Context, feedKey string, payload models.DataPayload) (*models.DataPoint, error)
	UpdateData(ctx context.Context, feedKey, dataID string, value models.FlexValue) (*models.DataPoint, error)
	DeleteData(ctx context.Context, feedKey, dataID string) error
	CheckConnection(ctx context.Context) *models.ConnectionStatus
}

// FeedService is the orchestration layer over the injected gateway. It owns
// the multi-call operations (bulk latest, bootstrap, chart aggregation) and
// the two domain conditions the gateway cannot express: conflict and no-data.
type FeedService struct {
	client   adafruit.ClientInterface
	logger   providers.Logger
	username string
}

func NewFeedService(conf *structures.Config, logger providers.Logger, client adafruit.ClientInterface) FeedServiceInterface {
	return &FeedService{
		client:   client,
		logger:   logger,
		username: conf.Adafruit.Username,
	}
}

func (s *FeedService) ListFeeds(ctx context.Context) ([]models.Feed, error) {
	return s.client.GetAllFeeds(ctx)
}

func (s *FeedService) GetFeed(ctx context.Context, feedKey string) (*models.Feed, error) {
	return s.client.GetFeed(ctx, feedKey)
}

// CreateFeed probes by key first. Only a not-found probe outcome means the
// key is free; any success, and any other failure, blocks the create.
func (s *FeedService) CreateFeed(ctx context.Context, payload models.FeedPayload) (*models.Feed, error) {
	_, err := s.client.GetFeed(ctx, payload.Key)
	if err == nil {
		return nil, &ConflictError{Key: payload.Key}
	}
	if !adafruit.IsKind(err, adafruit.KindNotFound) {
		return nil, err
	}

	if defaults, ok := models.DefaultsFor(payload.Key); ok {
		if payload.Name == "" {
			payload.Name = defaults.Name
		}
		if payload.Description == "" {
			payload.Description = defaults.Description
		}
		if payload.Unit == "" {
			payload.Unit = defaults.Unit
		}
	}

	return s.client.CreateFeed(ctx, payload)
}

func (s *FeedService) UpdateFeed(ctx context.Context, feedKey string, update models.FeedUpdate) (*models.Feed, error) {
	return s.client.UpdateFeed(ctx, feedKey, update)
}

func (s *FeedService) DeleteFeed(ctx context.Context, feedKey string) error {
	return s.client.DeleteFeed(ctx, feedKey)
}

// GetLatest maps the gateway's "feed exists, no readings" result onto
// NoDataError so callers get one uniform condition.
func (s *FeedService) GetLatest(ctx context.Context, feedKey string) (*models.DataPoint, error) {
	point, err := s.client.GetLastValue(ctx, feedKey)
	if err != nil {
		return nil, err
	}
	if point == nil {
		return nil, &NoDataError{Key: feedKey}
	}
	return point, nil
}

// ListFeedsWithLatest fans out one latest-value fetch per feed and gathers
// the results. A per-feed failure is captured in that entry; the result
// always has one entry per feed, in feed-list order.
func (s *FeedService) ListFeedsWithLatest(ctx context.Context) ([]models.FeedLatest, error) {
	feeds, err := s.client.GetAllFeeds(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]models.FeedLatest, len(feeds))
	var wg sync.WaitGroup
	for i, feed := range feeds {
		wg.Add(1)
		go func(i int, feed models.Feed) {
			defer wg.Done()

			entry := models.FeedLatest{FeedKey: feed.Key, FeedName: feed.Name}
			if defaults, ok := models.DefaultsFor(feed.Key); ok {
				entry.Config = &defaults
			}

			point, err := s.client.GetLastValue(ctx, feed.Key)
			switch {
			case err != nil:
				s.logger.Warnf(providers.TypeGet, "latest value for feed %s: %s", feed.Key, err)
				entry.Error = "no data available"
			case point == nil:
				entry.Error = "no data available"
			default:
				entry.LastValue = point
			}
			results[i] = entry
		}(i, feed)
	}
	wg.Wait()

	return results, nil
}

// BootstrapDefaultFeeds creates the default feeds that do not exist yet.
// Idempotent: a re-run only creates feeds still missing. A single failed
// create is logged and skipped.
func (s *FeedService) BootstrapDefaultFeeds(ctx context.Context) (*models.BootstrapReport, error) {
	existing, err := s.client.GetAllFeeds(ctx)
	if err != nil {
		return nil, err
	}

	existingKeys := make(map[string]struct{}, len(existing))
	for _, feed := range existing {
		existingKeys[feed.Key] = struct{}{}
	}

	report := &models.BootstrapReport{Existing: len(existing), CreatedFeeds: []models.Feed{}}
	for _, defaults := range models.DefaultFeeds {
		if _, ok := existingKeys[defaults.Key]; ok {
			continue
		}
		feed, err := s.CreateFeed(ctx, models.FeedPayload{
			Key:         defaults.Key,
			Name:        defaults.Name,
			Description: defaults.Description,
			Unit:        defaults.Unit,
		})
		if err != nil {
			s.logger.Warnf(providers.TypeApp, "bootstrap: creating feed %s: %s", defaults.Key, err)
			continue
		}
		s.logger.Infof(providers.TypeApp, "bootstrap: created feed %s", defaults.Key)
		report.CreatedFeeds = append(report.CreatedFeeds, *feed)
	}
	report.Created = len(report.CreatedFeeds)
	report.Total = report.Existing + report.Created
	return report, nil
}

// GetChartSeries aggregates the trailing window into a chart-ready series.
// Non-numeric and non-finite values are dropped; the series is sorted
// chronologically ascending.
func (s *FeedService) GetChartSeries(ctx context.Context, feedKey string, hours int) (*models.ChartData, error) {
	end := time.Now()
	start := end.Add(-time.Duration(hours) * time.Hour)

	points, err := s.client.GetFeedData(ctx, feedKey, chartPointCap, start, end)
	if err != nil {
		return nil, err
	}

	series := make([]models.ChartPoint, 0, len(points))
	for _, p := range points {
		value, err := p.Value.Float()
		if err != nil || math.IsInf(value, 0) || math.IsNaN(value) {
			continue
		}
		series = append(series, models.ChartPoint{
			Timestamp:     p.CreatedAt,
			Value:         value,
			FormattedTime: p.CreatedAt.Local().Format("15:04:05"),
		})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Timestamp.Before(series[j].Timestamp) })

	chart := &models.ChartData{
		FeedKey:     feedKey,
		FeedName:    feedKey,
		Data:        series,
		TimeRange:   fmt.Sprintf("%d hours", hours),
		TotalPoints: len(series),
	}
	if defaults, ok := models.DefaultsFor(feedKey); ok {
		chart.FeedName = defaults.Name
		chart.Unit = defaults.Unit
	}
	return chart, nil
}

func (s *FeedService) GetFeedData(ctx context.Context, feedKey string, limit int, start, end time.Time) ([]models.DataPoint, error) {
	return s.client.GetFeedData(ctx, feedKey, limit, start, end)
}

func (s *FeedService) CreateData(ctx context.Context, feedKey string, payload models.DataPayload) (*models.DataPoint, error) {
	return s.client.CreateData(ctx, feedKey, payload)
}

func (s *FeedService) UpdateData(ctx context.Context, feedKey, dataID string, value models.FlexValue) (*models.DataPoint, error) {
	return s.client.UpdateData(ctx, feedKey, dataID, value)
}

func (s *FeedService) DeleteData(ctx context.Context, feedKey, dataID string) error {
	return s.client.DeleteData(ctx, feedKey, dataID)
}

// CheckConnection reports upstream reachability; it never fails, only
// reports.
func (s *FeedService) CheckConnection(ctx context.Context) *models.ConnectionStatus {
	if err := s.client.TestConnection(ctx); err != nil {
		s.logger.Errorf(providers.TypeApp, "connection check failed: %s", err)
		return &models.ConnectionStatus{
			Connected: false,
			Message:   "unable to reach the telemetry service",
			Error:     err.Error(),
		}
	}

	status := &models.ConnectionStatus{
		Connected: true,
		Username:  s.username,
		Message:   "connection established",
	}
	if feeds, err := s.client.GetAllFeeds(ctx); err == nil {
		status.FeedCount = len(feeds)
	}
	return status
}
