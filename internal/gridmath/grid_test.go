package gridmath

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"
)

func TestGrid_OriginMapsToCentre(t *testing.T) {
	g := New(50, 50, 1)
	c := g.WorldToGrid(0, 0)
	// half = 24.5, floor(0 + 24.5 + 0.5) = 25
	if c.X != 25 || c.Z != 25 {
		t.Fatalf("expected (25,25) got (%d,%d)", c.X, c.Z)
	}
}

func TestGrid_OddDimensionCentre(t *testing.T) {
	g := New(5, 5, 2)
	c := g.WorldToGrid(0, 0)
	if c.X != 2 || c.Z != 2 {
		t.Fatalf("expected (2,2) got (%d,%d)", c.X, c.Z)
	}
	wx, wz := g.GridToWorld(Cell{X: 2, Z: 2})
	if wx != 0 || wz != 0 {
		t.Fatalf("centre cell should be world origin, got (%.2f,%.2f)", wx, wz)
	}
}

func TestGrid_TileSizeScales(t *testing.T) {
	g := New(10, 10, 2)
	wx, _ := g.GridToWorld(Cell{X: 0, Z: 0})
	// half = 4.5 → (0-4.5)*2 = -9
	if math.Abs(wx+9) > 1e-9 {
		t.Fatalf("expected -9 got %.3f", wx)
	}
}

func TestGrid_RoundTrip_AllCells(t *testing.T) {
	for _, g := range []Grid{New(1, 1, 1), New(7, 3, 1), New(64, 48, 0.5), New(33, 65, 2.5)} {
		for idx := 0; idx < g.CellCount(); idx++ {
			c := g.CellAt(idx)
			wx, wz := g.GridToWorld(c)
			if got := g.WorldToGrid(wx, wz); got != c {
				t.Fatalf("grid %dx%d: round trip of %+v gave %+v", g.Width(), g.Height(), c, got)
			}
		}
	}
}

func TestGrid_RoundTrip_Randomized(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		g := New(1+rng.Intn(200), 1+rng.Intn(200), 0.25+rng.Float64()*4)
		c := Cell{X: rng.Intn(g.Width()), Z: rng.Intn(g.Height())}
		wx, wz := g.GridToWorld(c)
		if got := g.WorldToGrid(wx, wz); got != c {
			t.Fatalf("iteration %d: %+v -> (%.4f,%.4f) -> %+v", i, c, wx, wz, got)
		}
	}
}

func TestGrid_InBounds(t *testing.T) {
	g := New(4, 3, 1)
	if !g.InBounds(Cell{X: 3, Z: 2}) {
		t.Fatal("corner cell should be in bounds")
	}
	for _, c := range []Cell{{-1, 0}, {0, -1}, {4, 0}, {0, 3}} {
		if g.InBounds(c) {
			t.Fatalf("cell %+v should be out of bounds", c)
		}
	}
}

func TestGrid_ClampsDegenerateInput(t *testing.T) {
	g := New(0, -3, 0)
	if g.Width() != 1 || g.Height() != 1 {
		t.Fatalf("expected 1x1 grid, got %dx%d", g.Width(), g.Height())
	}
	if g.TileSize() <= 0 {
		t.Fatal("tile size should stay positive")
	}
}

func TestCell_Manhattan(t *testing.T) {
	if d := (Cell{1, 2}).Manhattan(Cell{4, -2}); d != 7 {
		t.Fatalf("expected 7 got %d", d)
	}
}
