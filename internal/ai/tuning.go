package ai

// Tuning holds the AI timing and threshold knobs, loaded from the [ai]
// config section.
type Tuning struct {
	ThinkInterval      float64 `toml:"think_interval"`       // seconds between thinks
	RetreatHealthRatio float64 `toml:"retreat_health_ratio"` // retreat below this
	RetreatCooldown    float64 `toml:"retreat_cooldown"`     // seconds between retreat orders
	TargetLockDuration float64 `toml:"target_lock_duration"` // seconds a chosen target is kept
	VisionFloor        float64 `toml:"vision_floor"`         // minimum sight radius for enemy spotting
}

// DefaultTuning returns the stock AI tuning.
func DefaultTuning() Tuning {
	return Tuning{
		ThinkInterval:      0.5,
		RetreatHealthRatio: 0.25,
		RetreatCooldown:    3.0,
		TargetLockDuration: 4.0,
		VisionFloor:        12.0,
	}
}
