package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/roylee0704/gron"

	"iotdash/internal/models"
	"iotdash/internal/providers"
	"iotdash/internal/services"
	"iotdash/internal/structures"
)

// monitoredKeys are the sensor channels the dashboard tracks continuously.
// The NFC and servo feeds are command/event channels, not periodic readings.
var monitoredKeys = []string{
	models.KeyGasSensor,
	models.KeyTemperature,
	models.KeyHumidity,
	models.KeySoundSensor,
	models.KeyMotionDetector,
	models.KeyUltrasonicDistance,
	models.KeyUltrasonicDistance2,
}

type MonitorInterface interface {
	Init()
	Stop()
	Refresh(ctx context.Context)
	Snapshot() []models.SensorReading
	LastRun() time.Time
}

// Monitor polls the latest value of every monitored feed on a fixed interval,
// derives the status classification and replaces the snapshot wholesale. A
// tick that fires while the previous refresh is still in flight is skipped,
// so overlapping polls for the same feed cannot race.
type Monitor struct {
	config  *structures.Config
	logger  providers.Logger
	service services.FeedServiceInterface
	metrics providers.MetricsProviderInterface

	cron  *gron.Cron
	runMu sync.Mutex

	mu       sync.RWMutex
	snapshot []models.SensorReading
	lastRun  time.Time
}

func NewMonitor(config *structures.Config, logger providers.Logger, service services.FeedServiceInterface, metrics providers.MetricsProviderInterface) MonitorInterface {
	return &Monitor{
		config:  config,
		logger:  logger,
		service: service,
		metrics: metrics,
	}
}

func (m *Monitor) Init() {
	if m.config.Monitor.BootstrapOnStart {
		report, err := m.service.BootstrapDefaultFeeds(context.Background())
		if err != nil {
			m.logger.Errorf(providers.TypeApp, "startup bootstrap failed: %s", err)
		} else {
			m.logger.Infof(providers.TypeApp, "startup bootstrap: %d existing, %d created", report.Existing, report.Created)
		}
	}

	m.cron = gron.New()
	m.cron.AddFunc(gron.Every(m.config.Monitor.Interval), m.tick)
	m.cron.Start()

	// First snapshot without waiting a full interval.
	go m.tick()
}

func (m *Monitor) Stop() {
	if m.cron != nil {
		m.cron.Stop()
	}
	// Wait for an in-flight refresh to finish.
	m.runMu.Lock()
	m.runMu.Unlock()
}

func (m *Monitor) tick() {
	if !m.runMu.TryLock() {
		m.metrics.IncMonitorSkips()
		m.logger.Warnf(providers.TypeApp, "monitor refresh still running, skipping tick")
		return
	}
	defer m.runMu.Unlock()
	m.Refresh(context.Background())
}

// Refresh fetches every monitored feed's latest value concurrently and
// replaces the snapshot. A failed fetch yields an explicit unavailable entry
// instead of keeping the stale value.
func (m *Monitor) Refresh(ctx context.Context) {
	readings := make([]models.SensorReading, len(monitoredKeys))

	var wg sync.WaitGroup
	for i, key := range monitoredKeys {
		wg.Add(1)
		go func(i int, key string) {
			defer wg.Done()
			readings[i] = m.read(ctx, key)
		}(i, key)
	}
	wg.Wait()

	m.mu.Lock()
	m.snapshot = readings
	m.lastRun = time.Now()
	m.mu.Unlock()

	m.metrics.IncMonitorRuns()
	m.logger.Debugf(providers.TypeApp, "monitor refreshed %d feeds", len(readings))
}

func (m *Monitor) read(ctx context.Context, key string) models.SensorReading {
	reading := models.SensorReading{FeedKey: key, UpdatedAt: time.Now()}
	if defaults, ok := models.DefaultsFor(key); ok {
		reading.Name = defaults.Name
		reading.Unit = defaults.Unit
	}

	point, err := m.service.GetLatest(ctx, key)
	if err != nil {
		m.logger.Warnf(providers.TypeGet, "monitor: feed %s: %s", key, err)
		reading.Available = false
		reading.Error = "no data available"
		reading.Status = models.Status{Tier: models.TierSecondary, Label: "unavailable"}
		m.metrics.DeleteSensorValue(key)
		return reading
	}

	reading.Available = true
	reading.Raw = point.Value.String()
	reading.UpdatedAt = point.CreatedAt

	value, perr := point.Value.Float()
	if perr != nil {
		reading.Status = models.Status{Tier: models.TierDefault, Label: reading.Raw}
		return reading
	}

	reading.Value = value
	reading.Status = models.Classify(key, value)
	m.metrics.SetSensorValue(key, value)
	return reading
}

func (m *Monitor) Snapshot() []models.SensorReading {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.SensorReading, len(m.snapshot))
	copy(out, m.snapshot)
	return out
}

func (m *Monitor) LastRun() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRun
}
