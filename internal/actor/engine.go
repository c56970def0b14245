package actor

import (
	"fmt"

	"gauntlet-sim/internal/geo"
	"gauntlet-sim/internal/rng"
)

const (
	adversarySpeedMPS = 1.4
	civilianSpeedMPS  = 1.2
)

// Engine owns the actor population of a run and advances it one waypoint
// per tick. Actors enumerate in a fixed order (adversary first, then
// civilians in creation order) so random draws stay reproducible.
type Engine struct {
	pois   []geo.Point
	rand   *rng.Source
	actors []*Actor
}

// NewEngine builds the population: the single adversary walking the given
// path, and count civilians wandering between points of interest.
func NewEngine(adversaryPath []geo.Point, gps GPSMode, count int, pois []geo.Point, src *rng.Source) *Engine {
	e := &Engine{pois: pois, rand: src}
	adv := &Actor{
		ID:       "adversary-1",
		Type:     TypeAdversary,
		Pos:      adversaryPath[0],
		Path:     adversaryPath,
		SpeedMPS: adversarySpeedMPS,
		GPS:      gps,
	}
	e.actors = append(e.actors, adv)
	for i := 0; i < count && len(pois) > 0; i++ {
		start := pois[src.Intn(len(pois))]
		dest := pois[src.Intn(len(pois))]
		e.actors = append(e.actors, &Actor{
			ID:       fmt.Sprintf("civilian-%d", i+1),
			Type:     TypeCivilian,
			Pos:      start,
			Path:     []geo.Point{start, dest},
			SpeedMPS: civilianSpeedMPS,
			GPS:      GPSOn,
		})
	}
	return e
}

// Actors returns the population in enumeration order.
func (e *Engine) Actors() []*Actor {
	return e.actors
}

// Adversary returns the single adversary actor.
func (e *Engine) Adversary() *Actor {
	return e.actors[0]
}

// Advance moves every actor one waypoint. A civilian that exhausted its
// path is handed a fresh two-point path to a random point of interest and
// resumes next tick; the adversary simply stops at its final waypoint.
func (e *Engine) Advance() {
	for _, a := range e.actors {
		if a.PathIndex < len(a.Path)-1 {
			a.PathIndex++
			a.Pos = a.Path[a.PathIndex]
			continue
		}
		if a.Type == TypeCivilian && len(e.pois) > 0 {
			dest := e.pois[e.rand.Intn(len(e.pois))]
			a.Path = []geo.Point{a.Pos, dest}
			a.PathIndex = 0
		}
	}
}
