// Package loadgen drives synthetic sensor readings against the ingestion service.
package loadgen

import "time"

// Config holds the load test settings.
type Config struct {
	BaseURL      string        // ingestion service base URL
	Readings     int           // number of readings to send
	Workers      int           // concurrent senders
	Devices      int           // distinct device UIDs to spread readings over
	DevicePrefix string        // device UIDs are <prefix>-<n>
	Timeout      time.Duration // per-request timeout
	Retries      int           // retries on transport errors and 5xx
	OutputFile   string        // optional JSON dump of the generated readings
	SkipHealth   bool          // skip the /health check
	Rate         float64       // readings per second across all senders; 0 is unlimited
}

// Reading is the body posted to /ingest.
type Reading struct {
	ReadingID  string  `json:"reading_id"`
	DeviceUID  string  `json:"device_uid"`
	SensorType string  `json:"sensor_type"`
	Value      float64 `json:"value"`
}

// Stats summarizes one run.
type Stats struct {
	Generated int
	Submitted int
	Accepted  int
	Duplicate int
	Throttled int
	Rejected  int
	Failed    int
	Start     time.Time
	End       time.Time
	Duration  time.Duration
}

// SuccessRate is the share of submitted readings that were accepted, in percent.
func (s Stats) SuccessRate() float64 {
	if s.Submitted == 0 {
		return 0
	}
	return float64(s.Accepted) / float64(s.Submitted) * 100
}

// PerSecond is the submission throughput.
func (s Stats) PerSecond() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Submitted) / s.Duration.Seconds()
}

func (c Config) withDefaults() Config {
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.Devices < 1 {
		c.Devices = 1
	}
	if c.DevicePrefix == "" {
		c.DevicePrefix = "loadgen-dev"
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	return c
}
