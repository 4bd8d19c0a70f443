// Package pathfind provides the walkability grid, A* search and the
// asynchronous request queue the command service submits paths to.
package pathfind

import (
	"container/heap"
	"math"

	"github.com/Garsondee/skirmish-core/internal/gridmath"
)

// NavGrid is a walkability grid over a gridmath.Grid; true = blocked.
type NavGrid struct {
	grid    gridmath.Grid
	blocked []bool
}

// NewNavGrid returns an all-walkable nav grid.
func NewNavGrid(g gridmath.Grid) *NavGrid {
	return &NavGrid{grid: g, blocked: make([]bool, g.CellCount())}
}

// Grid returns the underlying grid geometry.
func (ng *NavGrid) Grid() gridmath.Grid { return ng.grid }

// SetBlocked marks one cell. Out-of-bounds cells are ignored.
func (ng *NavGrid) SetBlocked(c gridmath.Cell, blocked bool) {
	if !ng.grid.InBounds(c) {
		return
	}
	ng.blocked[ng.grid.Index(c)] = blocked
}

// BlockRect blocks a w×h block of cells with its corner at (x,z), clipped
// to the grid.
func (ng *NavGrid) BlockRect(x, z, w, h int) {
	x0, z0 := max(0, x), max(0, z)
	x1 := min(ng.grid.Width()-1, x+w-1)
	z1 := min(ng.grid.Height()-1, z+h-1)
	for cz := z0; cz <= z1; cz++ {
		for cx := x0; cx <= x1; cx++ {
			ng.blocked[cz*ng.grid.Width()+cx] = true
		}
	}
}

// BlockedCount returns how many cells are blocked.
func (ng *NavGrid) BlockedCount() int {
	n := 0
	for _, b := range ng.blocked {
		if b {
			n++
		}
	}
	return n
}

// IsWalkable reports whether c is inside the grid and not blocked.
func (ng *NavGrid) IsWalkable(c gridmath.Cell) bool {
	if !ng.grid.InBounds(c) {
		return false
	}
	return !ng.blocked[ng.grid.Index(c)]
}

type pathNode struct {
	cell   gridmath.Cell
	g, h   float64
	parent *pathNode
	index  int
}

type openList []*pathNode

func (ol openList) Len() int { return len(ol) }

// Ties on f break toward the larger g (closer to the goal), then by cell
// index, so identical inputs always yield identical paths.
func (ol openList) Less(i, j int) bool {
	fi, fj := ol[i].g+ol[i].h, ol[j].g+ol[j].h
	if fi != fj {
		return fi < fj
	}
	if ol[i].g != ol[j].g {
		return ol[i].g > ol[j].g
	}
	if ol[i].cell.Z != ol[j].cell.Z {
		return ol[i].cell.Z < ol[j].cell.Z
	}
	return ol[i].cell.X < ol[j].cell.X
}

func (ol openList) Swap(i, j int) {
	ol[i], ol[j] = ol[j], ol[i]
	ol[i].index = i
	ol[j].index = j
}

func (ol *openList) Push(x any) {
	n := x.(*pathNode)
	n.index = len(*ol)
	*ol = append(*ol, n)
}

func (ol *openList) Pop() any {
	old := *ol
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*ol = old[:len(old)-1]
	return n
}

var dirs = [8][2]int{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
}

func octile(a, b gridmath.Cell) float64 {
	dx := math.Abs(float64(a.X - b.X))
	dz := math.Abs(float64(a.Z - b.Z))
	return dx + dz + (math.Sqrt2-2)*math.Min(dx, dz)
}

// FindPath returns the cells from start to goal inclusive. When either end
// is unwalkable or the goal is unreachable it returns just the start cell.
func (ng *NavGrid) FindPath(start, goal gridmath.Cell) []gridmath.Cell {
	if start == goal {
		return []gridmath.Cell{start}
	}
	if !ng.IsWalkable(start) || !ng.IsWalkable(goal) {
		return []gridmath.Cell{start}
	}

	first := &pathNode{cell: start, h: octile(start, goal)}
	ol := &openList{first}
	heap.Init(ol)

	closed := make(map[gridmath.Cell]bool)
	best := map[gridmath.Cell]*pathNode{start: first}

	for ol.Len() > 0 {
		cur := heap.Pop(ol).(*pathNode)
		if cur.cell == goal {
			return buildPath(cur)
		}
		if closed[cur.cell] {
			continue
		}
		closed[cur.cell] = true

		for _, d := range dirs {
			next := gridmath.Cell{X: cur.cell.X + d[0], Z: cur.cell.Z + d[1]}
			if !ng.IsWalkable(next) || closed[next] {
				continue
			}
			diagonal := d[0] != 0 && d[1] != 0
			// No corner cutting past blocked cells.
			if diagonal {
				if !ng.IsWalkable(gridmath.Cell{X: cur.cell.X + d[0], Z: cur.cell.Z}) ||
					!ng.IsWalkable(gridmath.Cell{X: cur.cell.X, Z: cur.cell.Z + d[1]}) {
					continue
				}
			}
			cost := 1.0
			if diagonal {
				cost = math.Sqrt2
			}
			g := cur.g + cost
			if prev, ok := best[next]; ok && g >= prev.g {
				continue
			}
			node := &pathNode{cell: next, g: g, h: octile(next, goal), parent: cur}
			best[next] = node
			heap.Push(ol, node)
		}
	}
	return []gridmath.Cell{start}
}

func buildPath(end *pathNode) []gridmath.Cell {
	var cells []gridmath.Cell
	for n := end; n != nil; n = n.parent {
		cells = append(cells, n.cell)
	}
	for i, j := 0, len(cells)-1; i < j; i, j = i+1, j-1 {
		cells[i], cells[j] = cells[j], cells[i]
	}
	return cells
}
