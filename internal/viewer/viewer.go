// Package viewer is an ebiten debug window over a running simulation: fog
// of war, units, paths and the event log, with mouse orders for the local
// player.
package viewer

import (
	"fmt"
	"image/color"

	"github.com/atotto/clipboard"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/sirupsen/logrus"

	"github.com/Garsondee/skirmish-core/internal/command"
	"github.com/Garsondee/skirmish-core/internal/ecs"
	"github.com/Garsondee/skirmish-core/internal/gridmath"
	"github.com/Garsondee/skirmish-core/internal/logger"
	"github.com/Garsondee/skirmish-core/internal/sim"
)

const (
	borderWidth = 24
	pickRadius  = 1.5 // world units
)

// Viewer implements ebiten.Game.
type Viewer struct {
	sim    *sim.Sim
	width  int
	height int
	field  fieldMapper

	terrainImg *ebiten.Image
	fogImg     *ebiten.Image
	fogPix     []byte
	fogVersion uint64

	paused    bool
	showFog   bool
	showHUD   bool
	formation command.FormationType
	selected  map[ecs.EntityID]bool
	status    string

	prevKeys       map[ebiten.Key]bool
	prevMouseLeft  bool
	prevMouseRight bool
	dragging       bool
	dragX, dragY   int

	log *logrus.Entry
}

// New builds a viewer for s sized width x height pixels.
func New(s *sim.Sim, width, height int) *Viewer {
	g := s.Nav.Grid()
	v := &Viewer{
		sim:      s,
		width:    width,
		height:   height,
		field:    newFieldMapper(g, borderWidth, borderWidth, width-panelWidth-2*borderWidth, height-2*borderWidth),
		fogImg:   ebiten.NewImage(g.Width(), g.Height()),
		fogPix:   make([]byte, g.CellCount()*4),
		showFog:  true,
		showHUD:  true,
		selected: make(map[ecs.EntityID]bool),
		prevKeys: make(map[ebiten.Key]bool),
		log:      logger.For("viewer"),
	}
	v.buildTerrain()
	return v
}

func (v *Viewer) buildTerrain() {
	g := v.sim.Nav.Grid()
	pix := make([]byte, g.CellCount()*4)
	for z := 0; z < g.Height(); z++ {
		for x := 0; x < g.Width(); x++ {
			c := colGround
			if !v.sim.Nav.IsWalkable(gridmath.Cell{X: x, Z: z}) {
				c = colBlocked
			}
			i := (z*g.Width() + x) * 4
			pix[i], pix[i+1], pix[i+2], pix[i+3] = c.R, c.G, c.B, c.A
		}
	}
	v.terrainImg = ebiten.NewImage(g.Width(), g.Height())
	v.terrainImg.WritePixels(pix)
}

func (v *Viewer) refreshFog() {
	ver := v.sim.Vis.Version()
	if ver == v.fogVersion {
		return
	}
	v.fogVersion = ver
	for i, st := range v.sim.Vis.SnapshotCells() {
		c := fogRGBA(st)
		// WritePixels expects premultiplied alpha.
		a := uint16(c.A)
		v.fogPix[i*4] = uint8(uint16(c.R) * a / 255)
		v.fogPix[i*4+1] = uint8(uint16(c.G) * a / 255)
		v.fogPix[i*4+2] = uint8(uint16(c.B) * a / 255)
		v.fogPix[i*4+3] = c.A
	}
	v.fogImg.WritePixels(v.fogPix)
}

func (v *Viewer) Update() error {
	v.handleInput()
	if !v.paused {
		v.sim.Tick()
	}
	return nil
}

func (v *Viewer) pressed(cur map[ebiten.Key]bool, k ebiten.Key) bool {
	cur[k] = ebiten.IsKeyPressed(k)
	return cur[k] && !v.prevKeys[k]
}

func (v *Viewer) handleInput() {
	currentKeys := map[ebiten.Key]bool{}
	player := v.sim.PlayerID()

	// A: select every unit the local player owns.
	if v.pressed(currentKeys, ebiten.KeyA) {
		v.selected = make(map[ecs.EntityID]bool)
		for _, id := range v.sim.MobileUnits(player) {
			v.selected[id] = true
		}
	}
	if v.pressed(currentKeys, ebiten.KeyF) {
		v.showFog = !v.showFog
	}
	if v.pressed(currentKeys, ebiten.KeyP) {
		v.paused = !v.paused
	}
	if v.pressed(currentKeys, ebiten.KeyH) {
		v.showHUD = !v.showHUD
	}
	if v.pressed(currentKeys, ebiten.KeyC) {
		v.copyReport()
	}
	if v.pressed(currentKeys, ebiten.KeySpace) && v.paused {
		v.sim.Tick()
	}

	// 1-4: formation for group orders.
	for i, k := range []ebiten.Key{ebiten.Key1, ebiten.Key2, ebiten.Key3, ebiten.Key4} {
		if v.pressed(currentKeys, k) {
			v.formation = command.FormationType(i)
		}
	}
	v.prevKeys = currentKeys

	mx, my := ebiten.CursorPosition()
	left := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	switch {
	case left && !v.prevMouseLeft && v.field.contains(mx, my):
		v.dragging, v.dragX, v.dragY = true, mx, my
	case !left && v.prevMouseLeft && v.dragging:
		v.dragging = false
		v.finishSelection(mx, my)
	}
	v.prevMouseLeft = left

	right := ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight)
	if right && !v.prevMouseRight && v.field.contains(mx, my) && len(v.selected) > 0 {
		v.orderSelected(v.field.toWorld(mx, my))
	}
	v.prevMouseRight = right
}

func (v *Viewer) finishSelection(mx, my int) {
	own := v.sim.MobileUnits(v.sim.PlayerID())
	additive := ebiten.IsKeyPressed(ebiten.KeyShift)
	if !additive {
		v.selected = make(map[ecs.EntityID]bool)
	}
	a, b := v.field.toWorld(v.dragX, v.dragY), v.field.toWorld(mx, my)
	if abs(mx-v.dragX) < 4 && abs(my-v.dragY) < 4 {
		if id, ok := pickUnit(v.sim.World, own, b, pickRadius); ok {
			v.selected[id] = true
		}
		return
	}
	for _, id := range unitsInBox(v.sim.World, own, a, b) {
		v.selected[id] = true
	}
}

func (v *Viewer) orderSelected(target ecs.Vec3) {
	units := make([]ecs.EntityID, 0, len(v.selected))
	for _, id := range v.sim.MobileUnits(v.sim.PlayerID()) {
		if v.selected[id] {
			units = append(units, id)
		}
	}
	v.sim.OrderMove(v.sim.PlayerID(), units, target, len(units) > 1, v.formation)
	v.log.WithFields(logrus.Fields{"units": len(units), "x": target.X, "z": target.Z}).Debug("move order")
}

func (v *Viewer) copyReport() {
	text := v.sim.Report().Format() + "\n" + v.sim.Log.FormatRange(v.sim.CurrentTick()-300, v.sim.CurrentTick())
	if err := clipboard.WriteAll(text); err != nil {
		v.status = "copy failed: " + err.Error()
		v.log.WithError(err).Warn("clipboard write failed")
		return
	}
	v.status = fmt.Sprintf("report copied at T=%d", v.sim.CurrentTick())
}

func (v *Viewer) Draw(screen *ebiten.Image) {
	screen.Fill(colBackground)

	var geo ebiten.GeoM
	geo.Scale(v.field.cellPx, v.field.cellPx)
	geo.Translate(v.field.offX, v.field.offY)
	screen.DrawImage(v.terrainImg, &ebiten.DrawImageOptions{GeoM: geo})

	v.drawUnits(screen)

	if v.showFog {
		v.refreshFog()
		screen.DrawImage(v.fogImg, &ebiten.DrawImageOptions{GeoM: geo})
	}

	if v.dragging {
		mx, my := ebiten.CursorPosition()
		x0, y0 := float32(min(mx, v.dragX)), float32(min(my, v.dragY))
		vector.StrokeRect(screen, x0, y0, float32(abs(mx-v.dragX)), float32(abs(my-v.dragY)), 1, colDragBox, false)
	}

	fw, fh := v.field.pixelSize()
	ox, oy := float32(v.field.offX), float32(v.field.offY)
	vector.StrokeRect(screen, ox-1, oy-1, float32(fw)+2, float32(fh)+2, 2.0, colBorder, false)

	drawEventPanel(screen, v.sim.Log, v.width-panelWidth, v.height)
	if v.showHUD {
		v.drawHUD(screen)
	}
}

func (v *Viewer) drawUnits(screen *ebiten.Image) {
	w := v.sim.World
	r := float32(v.field.cellPx * 0.45)
	for _, e := range w.EntitiesWith(ecs.KindTransform, ecs.KindUnit) {
		u, tr := e.Unit(), e.Transform()
		if u.Health <= 0 {
			continue
		}
		sx, sy := v.field.toScreen(tr.Position.X, tr.Position.Z)
		col := ownerRGBA(v.sim.Owners.Color(u.OwnerID))

		if e.Has(ecs.KindBuilding) {
			half := float32(tr.Scale.X/v.sim.Nav.Grid().TileSize()*v.field.cellPx) * 0.5
			vector.FillRect(screen, sx-half, sy-half, half*2, half*2, colBuilding, false)
			vector.StrokeRect(screen, sx-half, sy-half, half*2, half*2, 1.5, col, false)
			continue
		}

		if mv := e.Movement(); mv != nil && v.selected[e.ID()] {
			v.drawPath(screen, sx, sy, mv)
		}
		vector.FillCircle(screen, sx, sy, max(r, 2), col, true)
		if v.selected[e.ID()] {
			vector.StrokeCircle(screen, sx, sy, max(r, 2)+2, 1.5, colSelected, true)
		}
		if at := e.AttackTarget(); at != nil {
			if t := w.Entity(at.TargetID); t != nil && t.Transform() != nil {
				tx, ty := v.field.toScreen(t.Transform().Position.X, t.Transform().Position.Z)
				vector.StrokeLine(screen, sx, sy, tx, ty, 1, color.RGBA{R: 255, G: 80, B: 60, A: 90}, false)
			}
		}
	}
}

func (v *Viewer) drawPath(screen *ebiten.Image, sx, sy float32, mv *ecs.Movement) {
	px, py := sx, sy
	if mv.HasTarget && len(mv.Path) == 0 {
		tx, ty := v.field.toScreen(mv.TargetX, mv.TargetZ)
		vector.StrokeLine(screen, px, py, tx, ty, 1, colPath, false)
		return
	}
	for _, wp := range mv.Path {
		wx, wy := v.field.toScreen(wp.X, wp.Z)
		vector.StrokeLine(screen, px, py, wx, wy, 1, colPath, false)
		px, py = wx, wy
	}
}

func (v *Viewer) drawHUD(screen *ebiten.Image) {
	r := v.sim.Report()
	state := "RUNNING"
	if v.paused {
		state = "PAUSED"
	}
	lines := []string{
		fmt.Sprintf("T=%d %.1fs  %s  fog v%d", r.Tick, r.Seconds, state, r.FogVersion),
		fmt.Sprintf("visible=%d explored=%d unseen=%d", r.Visible, r.Explored, r.Unseen),
		fmt.Sprintf("paths: submitted=%d applied=%d pending=%d", r.PathsSubmitted, r.PathsApplied, r.PendingNow),
		fmt.Sprintf("selected=%d  formation=%s", len(v.selected), formationName(v.formation)),
		"A=all  drag=select  right-click=move  1-4=formation",
		"F=fog  P=pause  space=step  C=copy report  H=hud",
	}
	if v.status != "" {
		lines = append(lines, v.status)
	}
	y := v.height - borderWidth - len(lines)*12 - 8
	vector.FillRect(screen, float32(borderWidth+4), float32(y-4), 330, float32(len(lines)*12+8), color.RGBA{R: 6, G: 10, B: 6, A: 210}, false)
	for i, l := range lines {
		ebitenutil.DebugPrintAt(screen, l, borderWidth+8, y+i*12)
	}
}

func (v *Viewer) Layout(_, _ int) (int, int) {
	return v.width, v.height
}

func formationName(ft command.FormationType) string {
	switch ft {
	case command.FormationLine:
		return "line"
	case command.FormationWedge:
		return "wedge"
	case command.FormationColumn:
		return "column"
	default:
		return "box"
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
