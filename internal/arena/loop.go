package arena

import "time"

// DefaultFixedStep is the physics step used by the binaries
const DefaultFixedStep = 20 * time.Millisecond

// Loop drives a Game from wall-clock frames: inbound traffic first, then
// real-clock timers, then as many fixed steps as the scaled game time
// allows, then the frame step.
type Loop struct {
	g     *Game
	fixed time.Duration
	acc   time.Duration
}

// NewLoop creates a loop with the given fixed step
func NewLoop(g *Game, fixed time.Duration) *Loop {
	if fixed <= 0 {
		fixed = DefaultFixedStep
	}
	return &Loop{g: g, fixed: fixed}
}

// Advance runs one frame covering real elapsed time dt
func (l *Loop) Advance(dt time.Duration, in Controls) {
	l.g.Pump()
	l.g.sched.Advance(RealClock, dt)
	l.acc += time.Duration(float64(dt) * l.g.timeScale)
	for l.acc >= l.fixed {
		l.acc -= l.fixed
		l.g.FixedUpdate(l.fixed)
	}
	l.g.FrameUpdate(dt, in)
}
