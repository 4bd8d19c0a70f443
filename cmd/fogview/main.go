package main

import (
	"flag"
	"log"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/Garsondee/skirmish-core/internal/config"
	"github.com/Garsondee/skirmish-core/internal/logger"
	"github.com/Garsondee/skirmish-core/internal/scenario"
	"github.com/Garsondee/skirmish-core/internal/sim"
	"github.com/Garsondee/skirmish-core/internal/viewer"
)

func main() {
	scenarioPath := flag.String("scenario", "", "scenario YAML (empty: built-in ford scenario)")
	configPath := flag.String("config", "", "TOML config overlay")
	width := flag.Int("width", 1600, "window width")
	height := flag.Int("height", 900, "window height")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatal(err)
		}
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	sc, err := scenario.Load(*scenarioPath)
	if err != nil {
		log.Fatal(err)
	}
	s := sim.FromScenario(cfg, sc)
	defer s.Close()

	ebiten.SetWindowTitle("Skirmish Core: " + sc.Name)
	ebiten.SetWindowSize(*width, *height)
	ebiten.SetTPS(int(1/cfg.Sim.TickDT + 0.5))
	if err := ebiten.RunGame(viewer.New(s, *width, *height)); err != nil {
		log.Fatal(err)
	}
}
