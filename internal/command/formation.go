package command

import (
	"math"

	"github.com/Garsondee/skirmish-core/internal/ecs"
)

// FormationType identifies the shape FormationTargets lays out.
type FormationType int

const (
	FormationBox    FormationType = iota // rows of ceil(sqrt(n)), centred
	FormationLine                        // side by side across the heading
	FormationWedge                       // V with the point at the centre
	FormationColumn                      // single file behind the centre
)

// ParseFormation maps a name to a FormationType; unknown names give a box.
func ParseFormation(s string) FormationType {
	switch s {
	case "line":
		return FormationLine
	case "wedge":
		return FormationWedge
	case "column":
		return FormationColumn
	default:
		return FormationBox
	}
}

// slotOffsets returns local (forward, right) offsets, one per member.
func slotOffsets(ft FormationType, count int, spacing float64) [][2]float64 {
	offsets := make([][2]float64, count)
	switch ft {
	case FormationLine:
		for i := 1; i < count; i++ {
			side := float64((i+1)/2) * spacing
			if i%2 == 1 {
				side = -side
			}
			offsets[i] = [2]float64{0, side}
		}
	case FormationWedge:
		for i := 1; i < count; i++ {
			step := float64((i+1)/2) * spacing
			side := step
			if i%2 == 1 {
				side = -side
			}
			offsets[i] = [2]float64{-step, side}
		}
	case FormationColumn:
		for i := 1; i < count; i++ {
			offsets[i] = [2]float64{-float64(i) * spacing, 0}
		}
	default:
		cols := int(math.Ceil(math.Sqrt(float64(count))))
		rows := (count + cols - 1) / max(1, cols)
		for i := 0; i < count; i++ {
			r, c := i/cols, i%cols
			fwd := (float64(rows-1)*0.5 - float64(r)) * spacing
			right := (float64(c) - float64(cols-1)*0.5) * spacing
			offsets[i] = [2]float64{fwd, right}
		}
	}
	return offsets
}

// FormationTargets spreads count targets around center facing heading
// (radians, 0 = +X). The result feeds MoveUnits with GroupMove set.
func FormationTargets(center ecs.Vec3, heading float64, count int, spacing float64, ft FormationType) []ecs.Vec3 {
	if count <= 0 {
		return nil
	}
	fx, fz := math.Cos(heading), math.Sin(heading)
	rx, rz := -fz, fx
	out := make([]ecs.Vec3, count)
	for i, o := range slotOffsets(ft, count, spacing) {
		out[i] = ecs.Vec3{
			X: center.X + fx*o[0] + rx*o[1],
			Z: center.Z + fz*o[0] + rz*o[1],
		}
	}
	return out
}

// HeadingTo returns the heading from the centroid of positions to target.
func HeadingTo(positions []ecs.Vec3, target ecs.Vec3) float64 {
	if len(positions) == 0 {
		return 0
	}
	var cx, cz float64
	for _, p := range positions {
		cx += p.X
		cz += p.Z
	}
	n := float64(len(positions))
	return math.Atan2(target.Z-cz/n, target.X-cx/n)
}
