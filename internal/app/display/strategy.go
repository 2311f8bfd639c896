package display

import "time"

// Deployment-level knobs, deliberately not exposed in the on-screen menu or
// the config file. FREEZE has proven the most deterministic way to keep an
// OpenGL renderer from waking DPMS.
const (
	// SleepStrategy selects how the engine is neutralized during
	// hardware power-down.
	SleepStrategy = StrategyFreeze

	// ReassertInterval is the re-issue cadence for PERIODIC_REASSERT.
	ReassertInterval = 700 * time.Millisecond

	// ReassertMaxRuntime bounds how long PERIODIC_REASSERT keeps
	// re-issuing power-off; zero means until wake.
	ReassertMaxRuntime = time.Duration(0)
)
