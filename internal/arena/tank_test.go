package arena

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func offlineTank(t *testing.T) (*Game, *Tank) {
	t.Helper()
	g := newTestGame(nil, 7)
	g.Lobby().PlayOffline()
	tanks := g.World().Tanks()
	require.Len(t, tanks, 1)
	return g, tanks[0]
}

func step(g *Game, d time.Duration) {
	for d > 0 {
		g.FixedUpdate(DefaultFixedStep)
		d -= DefaultFixedStep
	}
}

func TestOfflinePlaySpawnsOneTank(t *testing.T) {
	g, tk := offlineTank(t)
	assert.Equal(t, PhasePlaying, g.Match().Phase())
	assert.Equal(t, SceneWorld, g.Match().Scene())
	assert.Equal(t, 50.0, tk.Health())
	assert.True(t, g.Ownership().Controllable(tk))
	assert.Equal(t, DefaultLayout().sceneCount()+1, g.World().Len())
}

func TestTankTurnLeft(t *testing.T) {
	g, tk := offlineTank(t)
	tk.Body().Heading = 0
	tk.target = DirUp
	tk.Body().Velocity = Vec3{Z: 1}

	tk.HandleInput(Controls{Left: true})
	assert.Equal(t, RotateLeft, tk.Rotation())
	assert.Equal(t, DirLeft, tk.TargetDirection())
	assert.Equal(t, Vec3{}, tk.Body().Velocity)

	// 90 degrees at 45 deg/s
	step(g, 1900*time.Millisecond)
	assert.Equal(t, RotateLeft, tk.Rotation())
	step(g, 300*time.Millisecond)

	assert.Equal(t, RotateNone, tk.Rotation())
	assert.Equal(t, 270.0, tk.Body().Heading)
	assert.Zero(t, tk.Body().AngularVelocity)
}

func TestTankTurnRightWrapsTarget(t *testing.T) {
	g, tk := offlineTank(t)
	tk.Body().Heading = 270
	tk.target = DirLeft

	tk.HandleInput(Controls{Right: true})
	assert.Equal(t, DirUp, tk.TargetDirection())
	step(g, 2200*time.Millisecond)
	assert.Equal(t, 0.0, tk.Body().Heading)
	assert.Equal(t, RotateNone, tk.Rotation())
}

func TestTankHoldingTurnDoesNotRetarget(t *testing.T) {
	g, tk := offlineTank(t)
	tk.Body().Heading = 0
	tk.target = DirUp

	tk.HandleInput(Controls{Left: true})
	step(g, 500*time.Millisecond)
	tk.HandleInput(Controls{Left: true})
	assert.Equal(t, DirLeft, tk.TargetDirection())
}

func TestTankSettlesOnCardinalHeading(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 17))
	for trial := 0; trial < 200; trial++ {
		g, tk := offlineTank(t)
		for i := 0; i < 1+rng.IntN(8); i++ {
			in := Controls{}
			switch rng.IntN(3) {
			case 0:
				in.Left = true
			case 1:
				in.Right = true
			}
			tk.HandleInput(in)
			for n := rng.IntN(150); n > 0; n-- {
				g.FixedUpdate(DefaultFixedStep)
				if tk.Rotation() == RotateNone {
					require.Zero(t, tk.Body().AngularVelocity, "trial %d: idle tank still turning", trial)
				}
			}
		}
		step(g, 5*time.Second)

		require.Equal(t, RotateNone, tk.Rotation(), "trial %d", trial)
		require.Zero(t, tk.Body().AngularVelocity, "trial %d", trial)
		h := tk.Body().Heading
		require.Zero(t, math.Mod(h, 90), "trial %d: heading %v", trial, h)
		require.Equal(t, float64(tk.TargetDirection()), h, "trial %d", trial)
	}
}

func TestTankBothTurnKeysIgnored(t *testing.T) {
	_, tk := offlineTank(t)
	tk.HandleInput(Controls{Left: true, Right: true, Vertical: 1})
	assert.Equal(t, RotateNone, tk.Rotation())
	assert.Equal(t, Vec3{}, tk.Body().Velocity)
}

func TestTankDrivesAlongHeading(t *testing.T) {
	_, tk := offlineTank(t)
	tk.Body().Heading = 90
	tk.HandleInput(Controls{Vertical: -1})
	v := tk.Body().Velocity
	assert.InDelta(t, -1, v.X, 1e-9)
	assert.InDelta(t, 0, v.Z, 1e-9)

	tk.HandleInput(Controls{Vertical: 4})
	assert.InDelta(t, 1, tk.Body().Velocity.Len(), 1e-9)
}

func TestFireOnPressOnly(t *testing.T) {
	g, tk := offlineTank(t)
	tk.HandleInput(Controls{Fire: true})
	tk.HandleInput(Controls{Fire: true})
	assert.Equal(t, 1, g.World().Count(KindBullet))

	tk.HandleInput(Controls{})
	tk.HandleInput(Controls{Fire: true})
	assert.Equal(t, 2, g.World().Count(KindBullet))
}

func TestPowerupGrantsTripleFireForSevenSeconds(t *testing.T) {
	g, tk := offlineTank(t)
	var p *Powerup
	for _, e := range g.World().sorted() {
		if pu, ok := e.(*Powerup); ok {
			p = pu
		}
	}
	require.NotNil(t, p)

	tk.OnTrigger(p)
	assert.True(t, tk.Powered())
	assert.True(t, p.Removed())
	assert.Zero(t, g.World().Count(KindPowerup))
	assert.Equal(t, 3, tk.Fire())

	g.Scheduler().Advance(GameClock, PowerupDuration-time.Millisecond)
	assert.True(t, tk.Powered())
	g.Scheduler().Advance(GameClock, time.Millisecond)
	assert.False(t, tk.Powered())
	assert.Equal(t, 1, tk.Fire())
}

func TestPowerupRepickupRestartsWindow(t *testing.T) {
	g, tk := offlineTank(t)
	tk.grantPowerup()
	g.Scheduler().Advance(GameClock, 5*time.Second)
	tk.grantPowerup()

	g.Scheduler().Advance(GameClock, 6*time.Second)
	assert.True(t, tk.Powered(), "second pickup gets a full window")
	g.Scheduler().Advance(GameClock, time.Second)
	assert.False(t, tk.Powered())
}

func TestTankTakesTenHits(t *testing.T) {
	g, tk := offlineTank(t)
	for i := 1; i <= 9; i++ {
		tk.ApplyDamage(5, EntityID(100+i))
	}
	assert.Equal(t, 5.0, tk.Health())
	assert.False(t, tk.Destroyed())

	tk.ApplyDamage(5, 101)
	assert.Equal(t, 5.0, tk.Health(), "same bullet twice")

	tk.ApplyDamage(5, 110)
	assert.Zero(t, tk.Health())
	assert.True(t, tk.Destroyed())
	assert.Nil(t, g.World().Get(tk.ID()))
	assert.Equal(t, 1, g.World().Count(KindExplosion))
	assert.True(t, g.Match().GameOver())

	// a dead tank takes nothing more
	tk.ApplyDamage(5, 111)
	assert.Zero(t, tk.Health())

	step(g, ExplosionDuration)
	assert.Zero(t, g.World().Count(KindExplosion))
}

func TestBulletDestroysObstacle(t *testing.T) {
	g, tk := offlineTank(t)
	var crate *Destructible
	for _, e := range g.World().sorted() {
		if d, ok := e.(*Destructible); ok && d.Body().Position == (Vec3{X: 0, Z: -5}) {
			crate = d
		}
	}
	require.NotNil(t, crate)

	tk.Body().Position = Vec3{X: 0, Z: -9}
	tk.Body().Heading = 0
	require.Equal(t, 1, tk.Fire())

	step(g, time.Second)
	assert.True(t, crate.Removed())
	assert.Zero(t, g.World().Count(KindBullet))
	assert.Equal(t, 1, g.World().Count(KindExplosion))
}

func TestBulletExpires(t *testing.T) {
	g, tk := offlineTank(t)
	// along the corridor between the crate rows; the far wall is out of range
	tk.Body().Position = Vec3{X: -12, Z: 0}
	tk.Body().Heading = 90
	tk.Fire()
	require.Equal(t, 1, g.World().Count(KindBullet))

	step(g, 2*time.Second)
	assert.Equal(t, 1, g.World().Count(KindBullet))
	step(g, 3*time.Second)
	assert.Zero(t, g.World().Count(KindBullet))
	assert.Zero(t, g.World().Count(KindExplosion), "expiry is silent")
}

func TestBulletIgnoresOwnLayer(t *testing.T) {
	g, tk := offlineTank(t)
	tk.Fire()
	var b *Bullet
	for _, e := range g.World().sorted() {
		if bl, ok := e.(*Bullet); ok {
			b = bl
		}
	}
	require.NotNil(t, b)
	b.OnTrigger(tk)
	assert.False(t, b.Resolved())
	assert.Equal(t, 50.0, tk.Health())
}
