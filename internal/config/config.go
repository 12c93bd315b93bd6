// Package config defines service configuration structures and loading hooks.
//
// All binaries share one Config; each reads only the keys it needs.
package config

import (
	"context"
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is json or console.
	LogFormat string `koanf:"log_format"`
	// LogFile, when set, sends logs to a rotating file instead of stdout.
	LogFile string `koanf:"log_file"`

	// Addr configures the API listen address, e.g. ":8000".
	Addr string `koanf:"addr"`
	// IngestionAddr configures the ingestion service listen address.
	IngestionAddr string `koanf:"ingestion_addr"`

	// OfflineOnly serves the CSV datasets and skips the database.
	OfflineOnly bool `koanf:"offline_only"`
	// OfflineOutputsDir holds the batch scoring outputs.
	OfflineOutputsDir string `koanf:"offline_outputs_dir"`
	// OfflineDatasets lists the file names loaded from OfflineOutputsDir.
	OfflineDatasets []string `koanf:"offline_datasets"`
	// WebDir is served at / when it exists.
	WebDir string `koanf:"web_dir"`

	DatabaseURL string `koanf:"database_url"`
	DBMaxConns  int    `koanf:"db_max_conns"`
	DBMaxIdle   int    `koanf:"db_max_idle"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// AccessTokenExpireMinutes is the session TTL.
	AccessTokenExpireMinutes int `koanf:"access_token_expire_minutes"`

	// APIBase is where the ingestion service forwards readings.
	APIBase          string `koanf:"api_base"`
	ForwardTimeoutMS int    `koanf:"forward_timeout_ms"`
	ForwardRetries   int    `koanf:"forward_retries"`

	// QueueSize bounds the in-memory ingestion queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of forwarding workers.
	WorkerCount int `koanf:"worker_count"`
	// DeviceCacheSize bounds the device UID lookup cache.
	DeviceCacheSize int `koanf:"device_cache_size"`

	DetectionIntervalMS  int     `koanf:"detection_interval_ms"`
	DetectionProbability float64 `koanf:"detection_probability"`
	NotifierIntervalMS   int     `koanf:"notifier_interval_ms"`
	AlertStream          string  `koanf:"alert_stream"`

	// ScoreIndexWeight and ScoreFeatureWeights configure risk score import.
	ScoreIndexWeight    float64            `koanf:"score_index_weight"`
	ScoreFeatureWeights map[string]float64 `koanf:"score_feature_weights"`

	MQTTBroker   string `koanf:"mqtt_broker"`
	MQTTClientID string `koanf:"mqtt_client_id"`
	MQTTTopic    string `koanf:"mqtt_topic"`
}

// New creates a Config with defaults. Context is accepted first to
// satisfy the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:                 "info",
		LogFormat:                "json",
		Addr:                     ":8000",
		IngestionAddr:            ":8010",
		OfflineOnly:              true,
		OfflineOutputsDir:        "outputs",
		OfflineDatasets:          []string{"merged_scored.csv", "qc_sensor_counts.csv"},
		WebDir:                   "web",
		DBMaxConns:               10,
		DBMaxIdle:                5,
		AccessTokenExpireMinutes: 60,
		APIBase:                  "http://localhost:8000",
		ForwardTimeoutMS:         5000,
		ForwardRetries:           2,
		QueueSize:                10_000,
		WorkerCount:              runtime.NumCPU() * 2,
		DeviceCacheSize:          4096,
		DetectionIntervalMS:      5000,
		DetectionProbability:     0.05,
		NotifierIntervalMS:       5000,
		AlertStream:              "eldercare:alerts",
		ScoreIndexWeight:         25,
		MQTTClientID:             "eldercare-notifier",
		MQTTTopic:                "eldercare/alerts",
	}
}

// ForwardTimeout returns ForwardTimeoutMS as a duration.
func (c *Config) ForwardTimeout() time.Duration {
	return time.Duration(c.ForwardTimeoutMS) * time.Millisecond
}

// DetectionInterval returns DetectionIntervalMS as a duration.
func (c *Config) DetectionInterval() time.Duration {
	return time.Duration(c.DetectionIntervalMS) * time.Millisecond
}

// NotifierInterval returns NotifierIntervalMS as a duration.
func (c *Config) NotifierInterval() time.Duration {
	return time.Duration(c.NotifierIntervalMS) * time.Millisecond
}

// TokenTTL returns the session lifetime.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}
