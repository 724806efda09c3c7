package models

import (
	"fmt"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
)

// FlexValue is a reading value that arrives as either a JSON number or a
// JSON string. It is normalized to its string form; Float converts when the
// value is numeric.
type FlexValue string

func (v *FlexValue) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = FlexValue(s)
		return nil
	}
	if string(b) == "null" {
		*v = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("value must be a number or string: %w", err)
	}
	*v = FlexValue(n.String())
	return nil
}

func (v FlexValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(v))
}

// Float parses the value as a finite float64.
func (v FlexValue) Float() (float64, error) {
	return strconv.ParseFloat(string(v), 64)
}

func (v FlexValue) String() string {
	return string(v)
}

// Feed is the upstream representation of a sensor channel.
type Feed struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Key         string    `json:"key"`
	Description string    `json:"description"`
	UnitType    string    `json:"unit_type"`
	UnitSymbol  string    `json:"unit_symbol,omitempty"`
	History     bool      `json:"history"`
	Visibility  string    `json:"visibility"`
	Enabled     bool      `json:"enabled"`
	LastValue   FlexValue `json:"last_value"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DataPoint is one reading belonging to a feed.
type DataPoint struct {
	ID        string    `json:"id"`
	Value     FlexValue `json:"value"`
	FeedID    int64     `json:"feed_id"`
	FeedKey   string    `json:"feed_key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Lat       *float64  `json:"lat,omitempty"`
	Lon       *float64  `json:"lon,omitempty"`
	Ele       *float64  `json:"ele,omitempty"`
}

// FeedPayload is the create-feed request body.
type FeedPayload struct {
	Key         string `json:"key" validate:"required"`
	Name        string `json:"name" validate:"maxLen:100"`
	Description string `json:"description" validate:"maxLen:500"`
	Unit        string `json:"unit" validate:"maxLen:20"`
	Enabled     *bool  `json:"enabled"`
}

// FeedUpdate is the partial update-feed request body. Nil fields are left
// untouched upstream.
type FeedUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Unit        *string `json:"unit"`
	Enabled     *bool   `json:"enabled"`
}

// DataPayload is the create-data request body.
type DataPayload struct {
	Value FlexValue `json:"value" validate:"required|maxLen:255"`
	Lat   *float64  `json:"lat"`
	Lon   *float64  `json:"lon"`
	Ele   *float64  `json:"ele"`
}

// ChartPoint is one bucketed, numeric chart sample.
type ChartPoint struct {
	Timestamp     time.Time `json:"timestamp"`
	Value         float64   `json:"value"`
	FormattedTime string    `json:"formatted_time"`
}

// ChartData is the time-windowed series served to chart views.
type ChartData struct {
	FeedKey     string       `json:"feedKey"`
	FeedName    string       `json:"feedName"`
	Unit        string       `json:"unit"`
	Data        []ChartPoint `json:"data"`
	TimeRange   string       `json:"timeRange"`
	TotalPoints int          `json:"totalPoints"`
}

// FeedLatest pairs a feed with its most recent reading. LastValue is nil and
// Error non-empty when the per-feed fetch failed or no data exists yet.
type FeedLatest struct {
	FeedKey   string        `json:"feedKey"`
	FeedName  string        `json:"feedName"`
	LastValue *DataPoint    `json:"lastValue"`
	Config    *FeedDefaults `json:"config"`
	Error     string        `json:"error,omitempty"`
}

// BootstrapReport summarizes a default-feed initialization run.
type BootstrapReport struct {
	Existing     int    `json:"existing"`
	Created      int    `json:"created"`
	Total        int    `json:"total"`
	CreatedFeeds []Feed `json:"createdFeeds"`
}

// ConnectionStatus is the upstream connectivity report.
type ConnectionStatus struct {
	Connected bool   `json:"connected"`
	Username  string `json:"username,omitempty"`
	FeedCount int    `json:"feedCount,omitempty"`
	Message   string `json:"message"`
	Error     string `json:"error,omitempty"`
}

// SensorReading is one entry of the monitor snapshot. When a poll fails the
// entry is replaced with an unavailable marker rather than keeping the stale
// value.
type SensorReading struct {
	FeedKey   string    `json:"feedKey"`
	Name      string    `json:"name"`
	Unit      string    `json:"unit"`
	Value     float64   `json:"value"`
	Raw       string    `json:"raw"`
	Status    Status    `json:"status"`
	Available bool      `json:"available"`
	UpdatedAt time.Time `json:"lastUpdated"`
	Error     string    `json:"error,omitempty"`
}
