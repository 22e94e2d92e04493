package arena

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoopFixedSteps(t *testing.T) {
	g := newTestGame(nil, 1)
	l := NewLoop(g, 20*time.Millisecond)

	l.Advance(50*time.Millisecond, Controls{})
	assert.Equal(t, 40*time.Millisecond, g.Scheduler().Now(GameClock))
	l.Advance(10*time.Millisecond, Controls{})
	assert.Equal(t, 60*time.Millisecond, g.Scheduler().Now(GameClock))
	assert.Equal(t, 60*time.Millisecond, g.Scheduler().Now(RealClock))
}

func TestLoopPauseStopsGameClockOnly(t *testing.T) {
	g := newTestGame(nil, 1)
	g.Lobby().PlayOffline()
	l := NewLoop(g, 20*time.Millisecond)

	g.Match().SetPaused(true)
	l.Advance(time.Second, Controls{Fire: true})
	assert.Zero(t, g.Scheduler().Now(GameClock))
	assert.Equal(t, time.Second, g.Scheduler().Now(RealClock))
	assert.Zero(t, g.World().Count(KindBullet), "no input while paused")

	g.Match().SetPaused(false)
	l.Advance(100*time.Millisecond, Controls{})
	assert.Equal(t, 100*time.Millisecond, g.Scheduler().Now(GameClock))
}

func TestPauseOnlyInWorld(t *testing.T) {
	g := newTestGame(nil, 1)
	g.Match().SetPaused(true)
	assert.False(t, g.Match().Paused())
}
