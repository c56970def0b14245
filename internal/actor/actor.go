package actor

import "gauntlet-sim/internal/geo"

// Type classifies a simulated entity.
type Type string

const (
	TypeAdversary Type = "adversary"
	TypeCivilian  Type = "civilian"
)

// GPSMode reports whether an actor carries a live GPS track.
type GPSMode string

const (
	GPSOn  GPSMode = "on"
	GPSOff GPSMode = "off"
)

// Actor is one simulated entity following a waypoint path. Pos always
// equals Path[PathIndex] after an advance; PathIndex is always a valid
// index into Path.
type Actor struct {
	ID        string
	Type      Type
	Pos       geo.Point
	Path      []geo.Point
	PathIndex int
	SpeedMPS  float64
	GPS       GPSMode
}

// AtEnd reports whether the actor has reached the last waypoint of its path.
func (a *Actor) AtEnd() bool {
	return a.PathIndex >= len(a.Path)-1
}
