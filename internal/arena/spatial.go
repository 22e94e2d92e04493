package arena

import "math"

// SpatialCellSize is about twice the largest trigger radius (tank = 1.2)
const SpatialCellSize = 2.5

// SpatialGrid is a fixed-size grid for broad-phase trigger queries over
// the arena floor. Coordinates are shifted so the arena is centred on 0.
type SpatialGrid struct {
	cols, rows int
	half       float64
	cells      [][]EntityID
}

// NewSpatialGrid covers a square arena of the given side length
func NewSpatialGrid(size float64) *SpatialGrid {
	n := int(math.Ceil(size/SpatialCellSize)) + 1
	return &SpatialGrid{
		cols:  n,
		rows:  n,
		half:  size / 2,
		cells: make([][]EntityID, n*n),
	}
}

// Clear resets all cells (keeps allocated capacity)
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

func (g *SpatialGrid) clampCell(v float64, max int) int {
	c := int((v + g.half) / SpatialCellSize)
	if c < 0 {
		return 0
	}
	if c >= max {
		return max - 1
	}
	return c
}

// InsertCircle adds an entity to all cells overlapping its bounding box
func (g *SpatialGrid) InsertCircle(p Vec3, radius float64, id EntityID) {
	minCX, maxCX := g.clampCell(p.X-radius, g.cols), g.clampCell(p.X+radius, g.cols)
	minCZ, maxCZ := g.clampCell(p.Z-radius, g.rows), g.clampCell(p.Z+radius, g.rows)
	for cz := minCZ; cz <= maxCZ; cz++ {
		for cx := minCX; cx <= maxCX; cx++ {
			idx := cz*g.cols + cx
			g.cells[idx] = append(g.cells[idx], id)
		}
	}
}

// QueryBuf appends the IDs in cells overlapping the circle's bounding box
// to buf. An ID may appear more than once.
func (g *SpatialGrid) QueryBuf(p Vec3, radius float64, buf []EntityID) []EntityID {
	minCX, maxCX := g.clampCell(p.X-radius, g.cols), g.clampCell(p.X+radius, g.cols)
	minCZ, maxCZ := g.clampCell(p.Z-radius, g.rows), g.clampCell(p.Z+radius, g.rows)
	for cz := minCZ; cz <= maxCZ; cz++ {
		for cx := minCX; cx <= maxCX; cx++ {
			buf = append(buf, g.cells[cz*g.cols+cx]...)
		}
	}
	return buf
}
