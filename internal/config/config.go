package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации симуляции.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Storage    StorageConfig    `yaml:"storage"`
	EventBus   EventBusConfig   `yaml:"eventbus"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type SimulationConfig struct {
	TickRate  int   `yaml:"tick_rate"` // шагов в секунду
	Workers   int   `yaml:"workers"`   // 0 - по числу логических CPU
	Seed      int64 `yaml:"seed"`
	Colliders int   `yaml:"colliders"` // сущностей в демо-мире
	Radius    int   `yaml:"radius_chunks"`
}

type StorageConfig struct {
	Path         string `yaml:"path"` // пусто - без сохранения
	SaveInterval int    `yaml:"save_interval_seconds"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"` // пусто - in-memory шина
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
	Endpoint    string `yaml:"endpoint"` // host:port OTLP/HTTP коллектора
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			TickRate:  30,
			Seed:      12345,
			Colliders: 500,
			Radius:    2,
		},
		Storage: StorageConfig{SaveInterval: 60},
		EventBus: EventBusConfig{
			Stream:    "TILES",
			Retention: 24,
		},
		Metrics:   MetricsConfig{Addr: ":2112"},
		Telemetry: TelemetryConfig{ServiceName: "tilesim"},
		Logging:   LoggingConfig{Level: "INFO"},
	}
}

// StepDuration возвращает длительность фиксированного шага
func (s *SimulationConfig) StepDuration() time.Duration {
	return time.Second / time.Duration(s.GetTickRate())
}

// GetTickRate возвращает частоту шагов с поддержкой fallback значений
func (s *SimulationConfig) GetTickRate() int {
	return getIntWithEnvFallback(s.TickRate, "SIM_TICK_RATE", 30)
}

// GetWorkers возвращает число воркеров: config -> env -> число логических CPU
func (s *SimulationConfig) GetWorkers() int {
	return getIntWithEnvFallback(s.Workers, "SIM_WORKERS", logicalCPUs())
}

// GetMetricsAddr возвращает адрес Prometheus-эндпоинта
func (m *MetricsConfig) GetMetricsAddr() string {
	if m.Addr != "" {
		return m.Addr
	}
	if env := os.Getenv("SIM_METRICS_ADDR"); env != "" {
		return env
	}
	return ":2112"
}

// GetRetention возвращает срок хранения событий
func (e *EventBusConfig) GetRetention() time.Duration {
	return time.Duration(getIntWithEnvFallback(e.Retention, "SIM_EVENTS_RETENTION_HOURS", 24)) * time.Hour
}

func logicalCPUs() int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// getIntWithEnvFallback возвращает значение с приоритетом: config -> env -> default
func getIntWithEnvFallback(configValue int, envVar string, defaultValue int) int {
	if configValue > 0 {
		return configValue
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if v, err := strconv.Atoi(envVal); err == nil && v > 0 {
			return v
		}
	}

	return defaultValue
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать из ENV SIM_CONFIG; без файла возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("SIM_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}
