package viewer

import (
	"math"

	"github.com/Garsondee/skirmish-core/internal/ecs"
	"github.com/Garsondee/skirmish-core/internal/gridmath"
)

// fieldMapper converts between world x/z and screen pixels for a grid drawn
// at cellPx pixels per cell with its top-left corner at (offX, offY).
type fieldMapper struct {
	grid   gridmath.Grid
	offX   float64
	offY   float64
	cellPx float64
}

func newFieldMapper(g gridmath.Grid, offX, offY int, maxW, maxH int) fieldMapper {
	px := math.Floor(math.Min(float64(maxW)/float64(g.Width()), float64(maxH)/float64(g.Height())))
	return fieldMapper{grid: g, offX: float64(offX), offY: float64(offY), cellPx: math.Max(1, px)}
}

func (fm fieldMapper) pixelSize() (int, int) {
	return int(fm.cellPx) * fm.grid.Width(), int(fm.cellPx) * fm.grid.Height()
}

// toScreen maps a world point to pixels. Cell centres land on pixel-cell
// centres.
func (fm fieldMapper) toScreen(x, z float64) (float32, float32) {
	ts := fm.grid.TileSize()
	sx := fm.offX + (x/ts+float64(fm.grid.Width())*0.5)*fm.cellPx
	sy := fm.offY + (z/ts+float64(fm.grid.Height())*0.5)*fm.cellPx
	return float32(sx), float32(sy)
}

func (fm fieldMapper) toWorld(px, py int) ecs.Vec3 {
	ts := fm.grid.TileSize()
	x := ((float64(px)-fm.offX)/fm.cellPx - float64(fm.grid.Width())*0.5) * ts
	z := ((float64(py)-fm.offY)/fm.cellPx - float64(fm.grid.Height())*0.5) * ts
	return ecs.Vec3{X: x, Z: z}
}

func (fm fieldMapper) contains(px, py int) bool {
	w, h := fm.pixelSize()
	return float64(px) >= fm.offX && float64(py) >= fm.offY &&
		float64(px) < fm.offX+float64(w) && float64(py) < fm.offY+float64(h)
}

// pickUnit returns the unit in candidates nearest p within radius.
func pickUnit(world *ecs.World, candidates []ecs.EntityID, p ecs.Vec3, radius float64) (ecs.EntityID, bool) {
	var best ecs.EntityID
	bestD := radius * radius
	found := false
	for _, id := range candidates {
		e := world.Entity(id)
		if e == nil || e.Transform() == nil {
			continue
		}
		q := e.Transform().Position
		if d := (q.X-p.X)*(q.X-p.X) + (q.Z-p.Z)*(q.Z-p.Z); d <= bestD {
			best, bestD, found = id, d, true
		}
	}
	return best, found
}

// unitsInBox returns candidates whose position lies inside the box spanned
// by a and b.
func unitsInBox(world *ecs.World, candidates []ecs.EntityID, a, b ecs.Vec3) []ecs.EntityID {
	minX, maxX := math.Min(a.X, b.X), math.Max(a.X, b.X)
	minZ, maxZ := math.Min(a.Z, b.Z), math.Max(a.Z, b.Z)
	var out []ecs.EntityID
	for _, id := range candidates {
		e := world.Entity(id)
		if e == nil || e.Transform() == nil {
			continue
		}
		q := e.Transform().Position
		if q.X >= minX && q.X <= maxX && q.Z >= minZ && q.Z <= maxZ {
			out = append(out, id)
		}
	}
	return out
}
