// Package worldstate holds the plain record MessageParser mutates every
// cycle. Grounded on original_source/src/Environment/Environment.hpp's
// public data members; the PlayMode table itself lives in
// internal/playmode (Design Note 1: singletons become independently
// constructed, explicitly threaded values, not class-scoped statics).
package worldstate

import "github.com/roboime/soccer-agent-runtime/internal/playmode"

// WorldState is the structured record the spec's §3 data model describes.
// It is owned by one agent and mutated exclusively by MessageParser; it
// holds only owned primitive values, so no lifetime leaks back into the
// (reused) receive buffer MessageParser reads from.
type WorldState struct {
	// TimeServer is the server wall-clock, used for inter-agent sync.
	TimeServer float64
	// TimeMatch is the game clock.
	TimeMatch float64

	// GoalsScored/GoalsConceded are 0..255.
	GoalsScored   uint8
	GoalsConceded uint8

	// Unum is this agent's uniform number, 1..11.
	Unum uint8

	// IsLeft is true iff this agent's team plays the left half. Set
	// before the first pm subtag is resolved in any cycle.
	IsLeft bool

	// CurrentMode is the last resolved play mode, from our perspective.
	CurrentMode playmode.PlayMode
}

// New returns a zero-valued WorldState. CurrentMode defaults to
// BeforeKickoff until the first GameState message sets it.
func New() *WorldState {
	return &WorldState{CurrentMode: playmode.BeforeKickoff}
}
