package structures

import "time"

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type AdafruitConfig struct {
	BaseURL  string        `yaml:"baseUrl" validate:"required"`
	Username string        `yaml:"username" validate:"required"`
	Key      string        `yaml:"key" validate:"required"`
	Timeout  time.Duration `yaml:"timeout" validate:"required|min:1"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type MonitorConfig struct {
	Interval         time.Duration `yaml:"interval" validate:"required|min:1"`
	BootstrapOnStart bool          `yaml:"bootstrapOnStart"`
}

type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	Size    int  `yaml:"size"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName   string
	Debug     bool
	Path      string
	Adafruit  AdafruitConfig `yaml:"adafruit"`
	Monitor   MonitorConfig  `yaml:"monitor"`
	WebServer Server         `yaml:"webServer"`
	Logger    LoggerConfig   `yaml:"logger"`
	Cache     CacheConfig    `yaml:"cache"`
	Metrics   MetricsConfig  `yaml:"metrics"`
}
