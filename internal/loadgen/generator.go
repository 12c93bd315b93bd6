package loadgen

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
)

// sensorProfile bounds the values a sensor type produces.
type sensorProfile struct {
	name     string
	min, max float64
	binary   bool
}

var profiles = []sensorProfile{
	{name: "heart_rate", min: 50, max: 120},
	{name: "steps", min: 0, max: 200},
	{name: "temperature", min: 35.5, max: 38.5},
	{name: "motion", binary: true},
	{name: "door", binary: true},
}

// Generate returns n readings spread round-robin over the configured devices.
func Generate(cfg Config, n int, rng *rand.Rand) []Reading {
	cfg = cfg.withDefaults()
	out := make([]Reading, n)
	for i := range out {
		p := profiles[rng.IntN(len(profiles))]
		out[i] = Reading{
			ReadingID:  uuid.NewString(),
			DeviceUID:  fmt.Sprintf("%s-%03d", cfg.DevicePrefix, i%cfg.Devices),
			SensorType: p.name,
			Value:      p.sample(rng),
		}
	}
	return out
}

func (p sensorProfile) sample(rng *rand.Rand) float64 {
	if p.binary {
		return float64(rng.IntN(2))
	}
	return p.min + rng.Float64()*(p.max-p.min)
}
