package viewer

import (
	"image/color"

	"golang.org/x/image/colornames"

	"github.com/Garsondee/skirmish-core/internal/owner"
	"github.com/Garsondee/skirmish-core/internal/visibility"
)

var (
	colBackground = color.RGBA{R: 12, G: 14, B: 12, A: 255}
	colGround     = color.RGBA{R: 28, G: 42, B: 28, A: 255}
	colBlocked    = colornames.Darkslategray
	colBorder     = color.RGBA{R: 65, G: 90, B: 65, A: 255}
	colSelected   = colornames.Yellow
	colPath       = color.RGBA{R: 255, G: 255, B: 255, A: 70}
	colBuilding   = colornames.Dimgray
	colDragBox    = color.RGBA{R: 255, G: 230, B: 120, A: 200}
)

// fogRGBA is the overlay colour for a visibility state. Visible cells are
// left clear.
func fogRGBA(s visibility.State) color.RGBA {
	switch s {
	case visibility.Unseen:
		return color.RGBA{A: 235}
	case visibility.Explored:
		return color.RGBA{R: 6, G: 8, B: 14, A: 150}
	default:
		return color.RGBA{}
	}
}

// ownerRGBA converts a registry colour (0..1 channels).
func ownerRGBA(c owner.Color) color.RGBA {
	ch := func(v float64) uint8 {
		switch {
		case v <= 0:
			return 0
		case v >= 1:
			return 255
		}
		return uint8(v*255 + 0.5)
	}
	return color.RGBA{R: ch(c[0]), G: ch(c[1]), B: ch(c[2]), A: 255}
}

// categoryRGBA tints event panel rows.
func categoryRGBA(category string) color.RGBA {
	switch category {
	case "order":
		return colornames.Gold
	case "path":
		return colornames.Lightskyblue
	case "move":
		return colornames.Palegreen
	case "fog":
		return colornames.Lightgray
	case "ai":
		return colornames.Salmon
	default:
		return colornames.White
	}
}
