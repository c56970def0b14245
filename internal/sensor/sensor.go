package sensor

import (
	"time"

	"gauntlet-sim/internal/actor"
	"gauntlet-sim/internal/geo"
)

// Kind identifies the sensing modality.
type Kind string

const (
	KindCamera   Kind = "camera"
	KindAcoustic Kind = "acoustic"
)

// Weather is the ambient condition a run is played under.
type Weather string

const (
	WeatherClear Weather = "clear"
	WeatherRain  Weather = "rain"
	WeatherFog   Weather = "fog"
	WeatherNight Weather = "night"
)

// Sensor is a fixed detector. Immutable for the duration of a run.
type Sensor struct {
	ID       string    `json:"id" yaml:"id"`
	Kind     Kind      `json:"type" yaml:"type"`
	Pos      geo.Point `json:"pos" yaml:"pos"`
	RangeM   float64   `json:"range_m" yaml:"range_m"`
	BaseProb float64   `json:"base_p" yaml:"base_p"`
	// WeatherPenalty attenuates BaseProb under a matching condition,
	// e.g. fog hits cameras harder than acoustic pickups.
	WeatherPenalty map[Weather]float64 `json:"weather_penalty,omitempty" yaml:"weather_penalty,omitempty"`
}

// Event records one detection. Confidence is the computed detection
// probability, not the draw outcome; rules reuse it as-is.
type Event struct {
	SensorID   string     `json:"sensor_id"`
	ActorID    string     `json:"actor_id"`
	ActorType  actor.Type `json:"actor_type"`
	Confidence float64    `json:"confidence"`
	Pos        geo.Point  `json:"pos"`
	Timestamp  time.Time  `json:"ts"`
}
