package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/gookit/validate"

	"iotdash/internal/adafruit"
	"iotdash/internal/models"
	"iotdash/internal/monitor"
	"iotdash/internal/providers"
	"iotdash/internal/services"
)

const maxRequestBodySize = 1 << 20 // 1 MB

const (
	cacheKeyFeeds   = "feeds"
	cacheKeyLastAll = "lastall"
)

type FeedsController struct {
	logger  providers.Logger
	service services.FeedServiceInterface
	cache   providers.CacheProviderInterface
	monitor monitor.MonitorInterface
}

func NewFeedsController(logger providers.Logger, service services.FeedServiceInterface, cache providers.CacheProviderInterface, monitor monitor.MonitorInterface) *FeedsController {
	return &FeedsController{
		logger:  logger,
		service: service,
		cache:   cache,
		monitor: monitor,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// feedKeyParam extracts and validates the {feedKey} path segment. Unknown
// keys are rejected here, before any remote call.
func (fc *FeedsController) feedKeyParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := chi.URLParam(r, "feedKey")
	if !models.ValidFeedKey(key) {
		fc.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "feed key must be one of: " + strings.Join(models.FeedKeys(), ", "),
		})
		return "", false
	}
	return key, true
}

func (fc *FeedsController) writeJSON(w http.ResponseWriter, status int, v any) {
	gson, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

// writeError maps a service/gateway failure onto the facade's status codes.
// The upstream wording is logged; callers get a user-safe message.
func (fc *FeedsController) writeError(w http.ResponseWriter, r *http.Request, err error) {
	logType := providers.GetLogTypeByRequestType(r.Method)
	switch {
	case services.IsConflict(err):
		fc.writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case services.IsNoData(err):
		fc.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		kind, ok := adafruit.KindOf(err)
		if !ok {
			fc.logger.Errorf(logType, "unclassified error: %s", err)
			fc.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
			return
		}
		fc.logger.Errorf(logType, "upstream failure: %s", err)
		switch kind {
		case adafruit.KindUnauthorized:
			fc.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "upstream authorization failed"})
		case adafruit.KindRateLimited:
			fc.writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "upstream rate limit exceeded"})
		case adafruit.KindNotFound:
			fc.writeJSON(w, http.StatusNotFound, errorResponse{Error: "resource not found"})
		default:
			fc.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "telemetry service error"})
		}
	}
}

func (fc *FeedsController) serveFromCacheOrCompute(w http.ResponseWriter, r *http.Request, cacheKey string, compute func() (any, error)) {
	if data, ok := fc.cache.Get(cacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	result, err := compute()
	if err != nil {
		fc.writeError(w, r, err)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	fc.cache.Set(cacheKey, gson)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func (fc *FeedsController) invalidateFeedCaches(feedKey string) {
	fc.cache.Del(cacheKeyFeeds)
	fc.cache.Del(cacheKeyLastAll)
	if feedKey != "" {
		fc.cache.Del("feed:" + feedKey)
	}
}

// ===== FEED HANDLERS =====

func (fc *FeedsController) GetAllFeeds(w http.ResponseWriter, r *http.Request) {
	fc.serveFromCacheOrCompute(w, r, cacheKeyFeeds, func() (any, error) {
		return fc.service.ListFeeds(r.Context())
	})
}

func (fc *FeedsController) GetFeed(w http.ResponseWriter, r *http.Request) {
	key, ok := fc.feedKeyParam(w, r)
	if !ok {
		return
	}
	fc.serveFromCacheOrCompute(w, r, "feed:"+key, func() (any, error) {
		return fc.service.GetFeed(r.Context(), key)
	})
}

func (fc *FeedsController) CreateFeed(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload models.FeedPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		fc.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if !models.ValidFeedKey(payload.Key) {
		fc.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "feed key must be one of: " + strings.Join(models.FeedKeys(), ", "),
		})
		return
	}
	if v := validate.Struct(payload); !v.Validate() {
		fc.writeJSON(w, http.StatusBadRequest, errorResponse{Error: v.Errors.One()})
		return
	}

	feed, err := fc.service.CreateFeed(r.Context(), payload)
	if err != nil {
		fc.writeError(w, r, err)
		return
	}
	fc.invalidateFeedCaches(payload.Key)
	fc.writeJSON(w, http.StatusCreated, feed)
}

func (fc *FeedsController) UpdateFeed(w http.ResponseWriter, r *http.Request) {
	key, ok := fc.feedKeyParam(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var update models.FeedUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		fc.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if msg, ok := validateFeedUpdate(&update); !ok {
		fc.writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
		return
	}

	feed, err := fc.service.UpdateFeed(r.Context(), key, update)
	if err != nil {
		fc.writeError(w, r, err)
		return
	}
	fc.invalidateFeedCaches(key)
	fc.writeJSON(w, http.StatusOK, feed)
}

func (fc *FeedsController) DeleteFeed(w http.ResponseWriter, r *http.Request) {
	key, ok := fc.feedKeyParam(w, r)
	if !ok {
		return
	}
	if err := fc.service.DeleteFeed(r.Context(), key); err != nil {
		fc.writeError(w, r, err)
		return
	}
	fc.invalidateFeedCaches(key)
	fc.writeJSON(w, http.StatusOK, successResponse{
		Success: true,
		Message: fmt.Sprintf("feed %s deleted", key),
	})
}

// ===== DATA HANDLERS =====

func (fc *FeedsController) GetLastData(w http.ResponseWriter, r *http.Request) {
	key, ok := fc.feedKeyParam(w, r)
	if !ok {
		return
	}
	point, err := fc.service.GetLatest(r.Context(), key)
	if err != nil {
		fc.writeError(w, r, err)
		return
	}
	fc.writeJSON(w, http.StatusOK, point)
}

func (fc *FeedsController) GetAllLastData(w http.ResponseWriter, r *http.Request) {
	fc.serveFromCacheOrCompute(w, r, cacheKeyLastAll, func() (any, error) {
		return fc.service.ListFeedsWithLatest(r.Context())
	})
}

func (fc *FeedsController) GetFeedData(w http.ResponseWriter, r *http.Request) {
	key, ok := fc.feedKeyParam(w, r)
	if !ok {
		return
	}
	limit, ok := fc.queryInt(w, r, "limit", 100, 1, 1000)
	if !ok {
		return
	}
	start, ok := fc.queryTime(w, r, "start_time")
	if !ok {
		return
	}
	end, ok := fc.queryTime(w, r, "end_time")
	if !ok {
		return
	}

	points, err := fc.service.GetFeedData(r.Context(), key, limit, start, end)
	if err != nil {
		fc.writeError(w, r, err)
		return
	}
	fc.writeJSON(w, http.StatusOK, points)
}

func (fc *FeedsController) GetChart(w http.ResponseWriter, r *http.Request) {
	key, ok := fc.feedKeyParam(w, r)
	if !ok {
		return
	}
	hours, ok := fc.queryInt(w, r, "hours", 24, 1, 720)
	if !ok {
		return
	}
	fc.serveFromCacheOrCompute(w, r, fmt.Sprintf("chart:%s:%d", key, hours), func() (any, error) {
		return fc.service.GetChartSeries(r.Context(), key, hours)
	})
}

func (fc *FeedsController) CreateData(w http.ResponseWriter, r *http.Request) {
	key, ok := fc.feedKeyParam(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload models.DataPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		fc.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if v := validate.Struct(payload); !v.Validate() {
		fc.writeJSON(w, http.StatusBadRequest, errorResponse{Error: v.Errors.One()})
		return
	}
	if payload.Lat != nil && (*payload.Lat < -90 || *payload.Lat > 90) {
		fc.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "latitude must be between -90 and 90"})
		return
	}
	if payload.Lon != nil && (*payload.Lon < -180 || *payload.Lon > 180) {
		fc.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "longitude must be between -180 and 180"})
		return
	}

	point, err := fc.service.CreateData(r.Context(), key, payload)
	if err != nil {
		fc.writeError(w, r, err)
		return
	}
	fc.cache.Del(cacheKeyLastAll)
	fc.writeJSON(w, http.StatusCreated, point)
}

func (fc *FeedsController) UpdateData(w http.ResponseWriter, r *http.Request) {
	key, ok := fc.feedKeyParam(w, r)
	if !ok {
		return
	}
	dataID := chi.URLParam(r, "dataID")

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var body struct {
		Value *models.FlexValue `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		fc.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if body.Value == nil || *body.Value == "" {
		fc.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "value is required"})
		return
	}

	point, err := fc.service.UpdateData(r.Context(), key, dataID, *body.Value)
	if err != nil {
		fc.writeError(w, r, err)
		return
	}
	fc.cache.Del(cacheKeyLastAll)
	fc.writeJSON(w, http.StatusOK, point)
}

func (fc *FeedsController) DeleteData(w http.ResponseWriter, r *http.Request) {
	key, ok := fc.feedKeyParam(w, r)
	if !ok {
		return
	}
	dataID := chi.URLParam(r, "dataID")

	if err := fc.service.DeleteData(r.Context(), key, dataID); err != nil {
		fc.writeError(w, r, err)
		return
	}
	fc.cache.Del(cacheKeyLastAll)
	fc.writeJSON(w, http.StatusOK, successResponse{
		Success: true,
		Message: fmt.Sprintf("data point %s deleted", dataID),
	})
}

// ===== UTILITY HANDLERS =====

func (fc *FeedsController) CheckConnection(w http.ResponseWriter, r *http.Request) {
	fc.writeJSON(w, http.StatusOK, fc.service.CheckConnection(r.Context()))
}

func (fc *FeedsController) InitializeFeeds(w http.ResponseWriter, r *http.Request) {
	report, err := fc.service.BootstrapDefaultFeeds(r.Context())
	if err != nil {
		fc.writeError(w, r, err)
		return
	}
	fc.invalidateFeedCaches("")
	fc.writeJSON(w, http.StatusOK, report)
}

func (fc *FeedsController) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Readings    []models.SensorReading `json:"readings"`
		LastRefresh time.Time              `json:"lastRefresh"`
	}{
		Readings:    fc.monitor.Snapshot(),
		LastRefresh: fc.monitor.LastRun(),
	}
	fc.writeJSON(w, http.StatusOK, resp)
}

// ===== QUERY HELPERS =====

func (fc *FeedsController) queryInt(w http.ResponseWriter, r *http.Request, name string, def, min, max int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < min || val > max {
		fc.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: fmt.Sprintf("%s must be a number between %d and %d", name, min, max),
		})
		return 0, false
	}
	return val, true
}

func (fc *FeedsController) queryTime(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, true
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		fc.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: fmt.Sprintf("%s must be an RFC3339 timestamp", name),
		})
		return time.Time{}, false
	}
	return ts, true
}

func validateFeedUpdate(update *models.FeedUpdate) (string, bool) {
	if update.Name != nil && (*update.Name == "" || len(*update.Name) > 100) {
		return "name must be between 1 and 100 characters", false
	}
	if update.Description != nil && len(*update.Description) > 500 {
		return "description cannot be longer than 500 characters", false
	}
	if update.Unit != nil && len(*update.Unit) > 20 {
		return "unit cannot be longer than 20 characters", false
	}
	return "", true
}
