// Package gridmath converts between continuous world coordinates on the x/z
// ground plane and integer grid cells. The grid is centred on the world
// origin: world (0,0) lands on the middle cell of the map.
package gridmath

import "math"

const halfCellOffset = 0.5

// minTileSize keeps the world/grid divide well defined.
const minTileSize = 0.0001

// Cell is an integer grid coordinate.
type Cell struct {
	X, Z int
}

// Manhattan returns |dx| + |dz| between two cells.
func (c Cell) Manhattan(o Cell) int {
	return abs(c.X-o.X) + abs(c.Z-o.Z)
}

// Grid describes a width x height cell grid centred on the world origin.
// The zero value is usable and behaves like a 1x1 grid with unit tiles.
type Grid struct {
	width      int
	height     int
	tileSize   float64
	halfWidth  float64
	halfHeight float64
}

// New builds a grid. Width and height are clamped to at least 1 and the
// tile size to a small positive value.
func New(width, height int, tileSize float64) Grid {
	width = max(1, width)
	height = max(1, height)
	tileSize = math.Max(minTileSize, tileSize)
	return Grid{
		width:      width,
		height:     height,
		tileSize:   tileSize,
		halfWidth:  float64(width)*halfCellOffset - halfCellOffset,
		halfHeight: float64(height)*halfCellOffset - halfCellOffset,
	}
}

func (g Grid) Width() int  { return max(1, g.width) }
func (g Grid) Height() int { return max(1, g.height) }

// TileSize returns the world-space size of one cell.
func (g Grid) TileSize() float64 {
	if g.tileSize <= 0 {
		return 1
	}
	return g.tileSize
}

// CellCount returns width*height.
func (g Grid) CellCount() int { return g.Width() * g.Height() }

// WorldToGrid maps a world position to the cell containing it:
// floor(world/tile + half + 0.5) on each axis.
func (g Grid) WorldToGrid(worldX, worldZ float64) Cell {
	return Cell{
		X: worldToAxis(worldX, g.halfWidth, g.TileSize()),
		Z: worldToAxis(worldZ, g.halfHeight, g.TileSize()),
	}
}

// GridToWorld returns the world-space centre of a cell.
func (g Grid) GridToWorld(c Cell) (float64, float64) {
	ts := g.TileSize()
	return (float64(c.X) - g.halfWidth) * ts, (float64(c.Z) - g.halfHeight) * ts
}

// InBounds reports whether the cell lies inside the grid.
func (g Grid) InBounds(c Cell) bool {
	return c.X >= 0 && c.X < g.Width() && c.Z >= 0 && c.Z < g.Height()
}

// Index returns the row-major slice index of an in-bounds cell.
func (g Grid) Index(c Cell) int {
	return c.Z*g.Width() + c.X
}

// CellAt is the inverse of Index.
func (g Grid) CellAt(idx int) Cell {
	w := g.Width()
	return Cell{X: idx % w, Z: idx / w}
}

// Offset returns the world position of cell (0,0). Pathfinding code that
// thinks in "grid offset" terms uses this.
func (g Grid) Offset() (float64, float64) {
	return g.GridToWorld(Cell{})
}

func worldToAxis(world, half, tileSize float64) int {
	return int(math.Floor(world/tileSize + half + halfCellOffset))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
