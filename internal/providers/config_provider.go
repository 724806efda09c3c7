package providers

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"iotdash/internal/structures"
)

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	filename := filepath.Base(flags.ConfigPath)
	viper.AddConfigPath(filepath.Dir(flags.ConfigPath))
	viper.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	viper.SetConfigType("yaml")

	viper.BindEnv("adafruit.username", "ADAFRUIT_IO_USERNAME")
	viper.BindEnv("adafruit.key", "ADAFRUIT_IO_KEY")
	viper.BindEnv("logger.level", "IOTDASH_LOG_LEVEL")
	viper.BindEnv("monitor.interval", "IOTDASH_POLL_INTERVAL")
	viper.BindEnv("cache.enabled", "IOTDASH_CACHE_ENABLED")
	viper.BindEnv("cache.size", "IOTDASH_CACHE_SIZE")

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = viper.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "IotSensorDashboard"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
