package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iotdash/internal/adafruit"
	"iotdash/internal/models"
	"iotdash/internal/services"
	"iotdash/internal/testutil"
)

// mockFeedService implements services.FeedServiceInterface with overridable
// behavior per test.
type mockFeedService struct {
	listFeeds           func(ctx context.Context) ([]models.Feed, error)
	getFeed             func(ctx context.Context, feedKey string) (*models.Feed, error)
	createFeed          func(ctx context.Context, payload models.FeedPayload) (*models.Feed, error)
	updateFeed          func(ctx context.Context, feedKey string, update models.FeedUpdate) (*models.Feed, error)
	deleteFeed          func(ctx context.Context, feedKey string) error
	getLatest           func(ctx context.Context, feedKey string) (*models.DataPoint, error)
	listFeedsWithLatest func(ctx context.Context) ([]models.FeedLatest, error)
	bootstrap           func(ctx context.Context) (*models.BootstrapReport, error)
	getChartSeries      func(ctx context.Context, feedKey string, hours int) (*models.ChartData, error)
	getFeedData         func(ctx context.Context, feedKey string, limit int, start, end time.Time) ([]models.DataPoint, error)
	createData          func(ctx context.Context, feedKey string, payload models.DataPayload) (*models.DataPoint, error)
	updateData          func(ctx context.Context, feedKey, dataID string, value models.FlexValue) (*models.DataPoint, error)
	deleteData          func(ctx context.Context, feedKey, dataID string) error
	checkConnection     func(ctx context.Context) *models.ConnectionStatus

	calls int
}

func (m *mockFeedService) ListFeeds(ctx context.Context) ([]models.Feed, error) {
	m.calls++
	if m.listFeeds != nil {
		return m.listFeeds(ctx)
	}
	return []models.Feed{}, nil
}

func (m *mockFeedService) GetFeed(ctx context.Context, feedKey string) (*models.Feed, error) {
	m.calls++
	if m.getFeed != nil {
		return m.getFeed(ctx, feedKey)
	}
	return &models.Feed{Key: feedKey}, nil
}

func (m *mockFeedService) CreateFeed(ctx context.Context, payload models.FeedPayload) (*models.Feed, error) {
	m.calls++
	if m.createFeed != nil {
		return m.createFeed(ctx, payload)
	}
	return &models.Feed{Key: payload.Key, Name: payload.Name}, nil
}

func (m *mockFeedService) UpdateFeed(ctx context.Context, feedKey string, update models.FeedUpdate) (*models.Feed, error) {
	m.calls++
	if m.updateFeed != nil {
		return m.updateFeed(ctx, feedKey, update)
	}
	return &models.Feed{Key: feedKey}, nil
}

func (m *mockFeedService) DeleteFeed(ctx context.Context, feedKey string) error {
	m.calls++
	if m.deleteFeed != nil {
		return m.deleteFeed(ctx, feedKey)
	}
	return nil
}

func (m *mockFeedService) GetLatest(ctx context.Context, feedKey string) (*models.DataPoint, error) {
	m.calls++
	if m.getLatest != nil {
		return m.getLatest(ctx, feedKey)
	}
	return &models.DataPoint{Value: "1"}, nil
}

func (m *mockFeedService) ListFeedsWithLatest(ctx context.Context) ([]models.FeedLatest, error) {
	m.calls++
	if m.listFeedsWithLatest != nil {
		return m.listFeedsWithLatest(ctx)
	}
	return []models.FeedLatest{}, nil
}

func (m *mockFeedService) BootstrapDefaultFeeds(ctx context.Context) (*models.BootstrapReport, error) {
	m.calls++
	if m.bootstrap != nil {
		return m.bootstrap(ctx)
	}
	return &models.BootstrapReport{}, nil
}

func (m *mockFeedService) GetChartSeries(ctx context.Context, feedKey string, hours int) (*models.ChartData, error) {
	m.calls++
	if m.getChartSeries != nil {
		return m.getChartSeries(ctx, feedKey, hours)
	}
	return &models.ChartData{FeedKey: feedKey}, nil
}

func (m *mockFeedService) GetFeedData(ctx context.Context, feedKey string, limit int, start, end time.Time) ([]models.DataPoint, error) {
	m.calls++
	if m.getFeedData != nil {
		return m.getFeedData(ctx, feedKey, limit, start, end)
	}
	return []models.DataPoint{}, nil
}

func (m *mockFeedService) CreateData(ctx context.Context, feedKey string, payload models.DataPayload) (*models.DataPoint, error) {
	m.calls++
	if m.createData != nil {
		return m.createData(ctx, feedKey, payload)
	}
	return &models.DataPoint{Value: payload.Value}, nil
}

func (m *mockFeedService) UpdateData(ctx context.Context, feedKey, dataID string, value models.FlexValue) (*models.DataPoint, error) {
	m.calls++
	if m.updateData != nil {
		return m.updateData(ctx, feedKey, dataID, value)
	}
	return &models.DataPoint{ID: dataID, Value: value}, nil
}

func (m *mockFeedService) DeleteData(ctx context.Context, feedKey, dataID string) error {
	m.calls++
	if m.deleteData != nil {
		return m.deleteData(ctx, feedKey, dataID)
	}
	return nil
}

func (m *mockFeedService) CheckConnection(ctx context.Context) *models.ConnectionStatus {
	m.calls++
	if m.checkConnection != nil {
		return m.checkConnection(ctx)
	}
	return &models.ConnectionStatus{Connected: true}
}

// mockMonitor implements monitor.MonitorInterface.
type mockMonitor struct {
	readings []models.SensorReading
	lastRun  time.Time
}

func (m *mockMonitor) Init()                       {}
func (m *mockMonitor) Stop()                       {}
func (m *mockMonitor) Refresh(_ context.Context)   {}
func (m *mockMonitor) Snapshot() []models.SensorReading { return m.readings }
func (m *mockMonitor) LastRun() time.Time          { return m.lastRun }

type fixture struct {
	controller *FeedsController
	service    *mockFeedService
	cache      *testutil.MockCache
	router     *chi.Mux
}

func newFixture(service *mockFeedService) *fixture {
	cache := testutil.NewMockCache()
	controller := NewFeedsController(&testutil.MockLogger{}, service, cache, &mockMonitor{})

	router := chi.NewRouter()
	router.Get("/api/feeds", controller.GetAllFeeds)
	router.Post("/api/feeds", controller.CreateFeed)
	router.Get("/api/feeds/data/last-all", controller.GetAllLastData)
	router.Get("/api/feeds/{feedKey}", controller.GetFeed)
	router.Put("/api/feeds/{feedKey}", controller.UpdateFeed)
	router.Delete("/api/feeds/{feedKey}", controller.DeleteFeed)
	router.Get("/api/feeds/{feedKey}/data", controller.GetFeedData)
	router.Post("/api/feeds/{feedKey}/data", controller.CreateData)
	router.Get("/api/feeds/{feedKey}/data/last", controller.GetLastData)
	router.Get("/api/feeds/{feedKey}/chart", controller.GetChart)
	router.Put("/api/feeds/{feedKey}/data/{dataID}", controller.UpdateData)
	router.Delete("/api/feeds/{feedKey}/data/{dataID}", controller.DeleteData)
	router.Get("/api/feeds/connection", controller.CheckConnection)
	router.Post("/api/feeds/initialize", controller.InitializeFeeds)
	router.Get("/api/feeds/status", controller.GetStatus)

	return &fixture{controller: controller, service: service, cache: cache, router: router}
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestGetFeed_UnknownKeyRejectedBeforeServiceCall(t *testing.T) {
	f := newFixture(&mockFeedService{})

	rec := f.do(http.MethodGet, "/api/feeds/unknown-sensor", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec), "feed key must be one of")
	assert.Equal(t, 0, f.service.calls)
}

func TestGetFeed_CachesResponse(t *testing.T) {
	f := newFixture(&mockFeedService{})

	first := f.do(http.MethodGet, "/api/feeds/temperature", "")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, 1, f.service.calls)

	second := f.do(http.MethodGet, "/api/feeds/temperature", "")
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, 1, f.service.calls)
	assert.Equal(t, first.Body.String(), second.Body.String())
}

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"conflict", &services.ConflictError{Key: "temperature"}, http.StatusConflict, "feed temperature already exists"},
		{"no data", &services.NoDataError{Key: "temperature"}, http.StatusNotFound, "no data available for feed temperature"},
		{"unauthorized", &adafruit.Error{Kind: adafruit.KindUnauthorized, Status: 401, Message: "bad key"}, http.StatusUnauthorized, "upstream authorization failed"},
		{"rate limited", &adafruit.Error{Kind: adafruit.KindRateLimited, Status: 429, Message: "slow down"}, http.StatusTooManyRequests, "upstream rate limit exceeded"},
		{"not found", &adafruit.Error{Kind: adafruit.KindNotFound, Status: 404, Message: "missing"}, http.StatusNotFound, "resource not found"},
		{"remote", &adafruit.Error{Kind: adafruit.KindRemote, Status: 502, Message: "boom"}, http.StatusInternalServerError, "telemetry service error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(&mockFeedService{
				getLatest: func(ctx context.Context, feedKey string) (*models.DataPoint, error) {
					return nil, tt.err
				},
			})

			rec := f.do(http.MethodGet, "/api/feeds/temperature/data/last", "")
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, decodeError(t, rec))
		})
	}
}

func TestWriteError_DoesNotLeakUpstreamDetail(t *testing.T) {
	f := newFixture(&mockFeedService{
		getLatest: func(ctx context.Context, feedKey string) (*models.DataPoint, error) {
			return nil, &adafruit.Error{Kind: adafruit.KindRemote, Status: 500, Message: "secret internal hostname"}
		},
	})

	rec := f.do(http.MethodGet, "/api/feeds/temperature/data/last", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret internal hostname")
}

func TestCreateFeed_Created(t *testing.T) {
	f := newFixture(&mockFeedService{})

	rec := f.do(http.MethodPost, "/api/feeds", `{"key":"gas-sensor","name":"Gas"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var feed models.Feed
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &feed))
	assert.Equal(t, "gas-sensor", feed.Key)
}

func TestCreateFeed_UnknownKey(t *testing.T) {
	f := newFixture(&mockFeedService{})

	rec := f.do(http.MethodPost, "/api/feeds", `{"key":"made-up"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, f.service.calls)
}

func TestCreateFeed_InvalidBody(t *testing.T) {
	f := newFixture(&mockFeedService{})

	rec := f.do(http.MethodPost, "/api/feeds", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid request body", decodeError(t, rec))
}

func TestCreateFeed_NameTooLong(t *testing.T) {
	f := newFixture(&mockFeedService{})

	body := `{"key":"temperature","name":"` + strings.Repeat("x", 101) + `"}`
	rec := f.do(http.MethodPost, "/api/feeds", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, f.service.calls)
}

func TestCreateFeed_Conflict(t *testing.T) {
	f := newFixture(&mockFeedService{
		createFeed: func(ctx context.Context, payload models.FeedPayload) (*models.Feed, error) {
			return nil, &services.ConflictError{Key: payload.Key}
		},
	})

	rec := f.do(http.MethodPost, "/api/feeds", `{"key":"temperature"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateFeed_InvalidatesListCache(t *testing.T) {
	f := newFixture(&mockFeedService{})

	f.do(http.MethodGet, "/api/feeds", "")
	_, cached := f.cache.Get("feeds")
	require.True(t, cached)

	f.do(http.MethodPost, "/api/feeds", `{"key":"temperature"}`)
	_, cached = f.cache.Get("feeds")
	assert.False(t, cached)
}

func TestUpdateFeed_Validation(t *testing.T) {
	f := newFixture(&mockFeedService{})

	rec := f.do(http.MethodPut, "/api/feeds/temperature", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "name must be between 1 and 100 characters", decodeError(t, rec))
	assert.Equal(t, 0, f.service.calls)
}

func TestUpdateFeed_Updated(t *testing.T) {
	var got models.FeedUpdate
	f := newFixture(&mockFeedService{
		updateFeed: func(ctx context.Context, feedKey string, update models.FeedUpdate) (*models.Feed, error) {
			got = update
			return &models.Feed{Key: feedKey, Name: *update.Name}, nil
		},
	})

	rec := f.do(http.MethodPut, "/api/feeds/temperature", `{"name":"Renamed"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got.Name)
	assert.Equal(t, "Renamed", *got.Name)
	assert.Nil(t, got.Description)
}

func TestDeleteFeed_Success(t *testing.T) {
	f := newFixture(&mockFeedService{})

	rec := f.do(http.MethodDelete, "/api/feeds/temperature", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "feed temperature deleted")
}

func TestGetFeedData_LimitValidation(t *testing.T) {
	f := newFixture(&mockFeedService{})

	for _, raw := range []string{"0", "1001", "-5", "abc"} {
		rec := f.do(http.MethodGet, "/api/feeds/temperature/data?limit="+raw, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", raw)
	}
	assert.Equal(t, 0, f.service.calls)
}

func TestGetFeedData_DefaultsAndWindow(t *testing.T) {
	var gotLimit int
	var gotStart, gotEnd time.Time
	f := newFixture(&mockFeedService{
		getFeedData: func(ctx context.Context, feedKey string, limit int, start, end time.Time) ([]models.DataPoint, error) {
			gotLimit, gotStart, gotEnd = limit, start, end
			return []models.DataPoint{}, nil
		},
	})

	rec := f.do(http.MethodGet, "/api/feeds/temperature/data?start_time=2025-06-01T00:00:00Z", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100, gotLimit)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), gotStart.UTC())
	assert.True(t, gotEnd.IsZero())
}

func TestGetFeedData_BadTimestamp(t *testing.T) {
	f := newFixture(&mockFeedService{})

	rec := f.do(http.MethodGet, "/api/feeds/temperature/data?start_time=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec), "RFC3339")
}

func TestGetChart_HoursValidation(t *testing.T) {
	f := newFixture(&mockFeedService{})

	rec := f.do(http.MethodGet, "/api/feeds/temperature/chart?hours=721", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetChart_DefaultWindowAndCacheKey(t *testing.T) {
	var gotHours int
	f := newFixture(&mockFeedService{
		getChartSeries: func(ctx context.Context, feedKey string, hours int) (*models.ChartData, error) {
			gotHours = hours
			return &models.ChartData{FeedKey: feedKey}, nil
		},
	})

	rec := f.do(http.MethodGet, "/api/feeds/temperature/chart", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 24, gotHours)

	_, cached := f.cache.Get("chart:temperature:24")
	assert.True(t, cached)
}

func TestCreateData_Created(t *testing.T) {
	f := newFixture(&mockFeedService{})

	rec := f.do(http.MethodPost, "/api/feeds/temperature/data", `{"value":21.5}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var point models.DataPoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &point))
	assert.Equal(t, "21.5", point.Value.String())
}

func TestCreateData_MissingValue(t *testing.T) {
	f := newFixture(&mockFeedService{})

	rec := f.do(http.MethodPost, "/api/feeds/temperature/data", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, f.service.calls)
}

func TestCreateData_CoordinateRange(t *testing.T) {
	f := newFixture(&mockFeedService{})

	rec := f.do(http.MethodPost, "/api/feeds/temperature/data", `{"value":"1","lat":95}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec), "latitude")

	rec = f.do(http.MethodPost, "/api/feeds/temperature/data", `{"value":"1","lon":-200}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec), "longitude")
	assert.Equal(t, 0, f.service.calls)
}

func TestCreateData_InvalidatesLatestCache(t *testing.T) {
	f := newFixture(&mockFeedService{})

	f.do(http.MethodGet, "/api/feeds/data/last-all", "")
	_, cached := f.cache.Get("lastall")
	require.True(t, cached)

	f.do(http.MethodPost, "/api/feeds/temperature/data", `{"value":"5"}`)
	_, cached = f.cache.Get("lastall")
	assert.False(t, cached)
}

func TestUpdateData_RequiresValue(t *testing.T) {
	f := newFixture(&mockFeedService{})

	rec := f.do(http.MethodPut, "/api/feeds/temperature/data/abc123", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "value is required", decodeError(t, rec))
}

func TestUpdateData_PassesIDAndValue(t *testing.T) {
	var gotID string
	var gotValue models.FlexValue
	f := newFixture(&mockFeedService{
		updateData: func(ctx context.Context, feedKey, dataID string, value models.FlexValue) (*models.DataPoint, error) {
			gotID, gotValue = dataID, value
			return &models.DataPoint{ID: dataID, Value: value}, nil
		},
	})

	rec := f.do(http.MethodPut, "/api/feeds/temperature/data/abc123", `{"value":"42"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc123", gotID)
	assert.Equal(t, models.FlexValue("42"), gotValue)
}

func TestDeleteData_NotFound(t *testing.T) {
	f := newFixture(&mockFeedService{
		deleteData: func(ctx context.Context, feedKey, dataID string) error {
			return &adafruit.Error{Kind: adafruit.KindNotFound, Status: 404, Message: "missing"}
		},
	})

	rec := f.do(http.MethodDelete, "/api/feeds/temperature/data/gone", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "resource not found", decodeError(t, rec))
}

func TestCheckConnection(t *testing.T) {
	f := newFixture(&mockFeedService{
		checkConnection: func(ctx context.Context) *models.ConnectionStatus {
			return &models.ConnectionStatus{Connected: false, Message: "unable to reach the telemetry service"}
		},
	})

	rec := f.do(http.MethodGet, "/api/feeds/connection", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var status models.ConnectionStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.Connected)
}

func TestInitializeFeeds_ReturnsReport(t *testing.T) {
	f := newFixture(&mockFeedService{
		bootstrap: func(ctx context.Context) (*models.BootstrapReport, error) {
			return &models.BootstrapReport{Existing: 2, Created: 7, Total: 9}, nil
		},
	})

	rec := f.do(http.MethodPost, "/api/feeds/initialize", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var report models.BootstrapReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 9, report.Total)
}

func TestGetStatus_ServesMonitorSnapshot(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	f := newFixture(&mockFeedService{})
	f.controller.monitor = &mockMonitor{
		readings: []models.SensorReading{
			{FeedKey: models.KeyTemperature, Value: 21.5, Available: true, Status: models.Status{Tier: models.TierSuccess, Label: "normal"}},
		},
		lastRun: now,
	}

	rec := f.do(http.MethodGet, "/api/feeds/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Readings    []models.SensorReading `json:"readings"`
		LastRefresh time.Time              `json:"lastRefresh"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Readings, 1)
	assert.Equal(t, models.KeyTemperature, resp.Readings[0].FeedKey)
	assert.True(t, resp.LastRefresh.Equal(now))
}
