package arena

// SpawnPoint is a tank start transform
type SpawnPoint struct {
	Position Vec3
	Facing   Direction
}

// Layout describes the static content of the world scene. Scene entities
// get IDs in the order walls, destructibles, powerups, starting at 1.
type Layout struct {
	Size          float64
	SpawnPoints   []SpawnPoint
	Walls         []Vec3
	Destructibles []Vec3
	Powerups      []Vec3
}

// DefaultLayout is the arena used by the binaries
func DefaultLayout() Layout {
	l := Layout{
		Size: 40,
		SpawnPoints: []SpawnPoint{
			{Position: Vec3{X: -15, Z: -15}, Facing: DirUp},
			{Position: Vec3{X: 15, Z: -15}, Facing: DirUp},
			{Position: Vec3{X: -15, Z: 15}, Facing: DirDown},
			{Position: Vec3{X: 15, Z: 15}, Facing: DirDown},
		},
		Powerups: []Vec3{{X: 0, Z: 0}},
	}
	// outer wall ring
	for v := -19.0; v <= 19; v += 2 {
		l.Walls = append(l.Walls,
			Vec3{X: v, Z: -19}, Vec3{X: v, Z: 19},
			Vec3{X: -19, Z: v}, Vec3{X: 19, Z: v})
	}
	// crate rows between the bases
	for x := -8.0; x <= 8; x += 2 {
		l.Destructibles = append(l.Destructibles, Vec3{X: x, Z: -5}, Vec3{X: x, Z: 5})
	}
	return l
}

// sceneCount is the number of scene entities the layout creates
func (l Layout) sceneCount() int {
	return len(l.Walls) + len(l.Destructibles) + len(l.Powerups)
}
