package viewer

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/Garsondee/skirmish-core/internal/sim"
)

const (
	panelWidth    = 340
	panelLineH    = 11
	panelHighlite = 3 // newest rows drawn bright
)

// drawEventPanel renders the newest SimLog entries in a column at panelX,
// newest at the bottom.
func drawEventPanel(screen *ebiten.Image, events *sim.SimLog, panelX, panelH int) {
	vector.FillRect(screen, float32(panelX), 0, panelWidth, float32(panelH), color.RGBA{R: 10, G: 12, B: 10, A: 248}, false)
	vector.StrokeLine(screen, float32(panelX), 0, float32(panelX), float32(panelH), 1.0, color.RGBA{R: 50, G: 70, B: 50, A: 255}, false)

	vector.FillRect(screen, float32(panelX), 0, panelWidth, 16, color.RGBA{R: 20, G: 30, B: 20, A: 255}, false)
	ebitenutil.DebugPrintAt(screen, "EVENTS", panelX+8, 2)
	vector.StrokeLine(screen, float32(panelX), 16, float32(panelX+panelWidth), 16, 1.0, color.RGBA{R: 50, G: 80, B: 50, A: 200}, false)

	maxVisible := (panelH - 24) / panelLineH
	entries := events.Tail(maxVisible)

	y := 20
	for i, e := range entries {
		recent := i >= len(entries)-panelHighlite
		if recent {
			vector.FillRect(screen, float32(panelX+2), float32(y), panelWidth-4, panelLineH, color.RGBA{R: 30, G: 40, B: 30, A: 160}, false)
		}
		vector.FillRect(screen, float32(panelX+5), float32(y+3), 3, 5, categoryRGBA(e.Category), false)

		line := fmt.Sprintf("%04d %-4s %-5s %s", e.Tick, e.Category, e.Entity, e.Value)
		if len(line) > 52 {
			line = line[:52]
		}
		ebitenutil.DebugPrintAt(screen, line, panelX+12, y-2)
		y += panelLineH
	}
}
