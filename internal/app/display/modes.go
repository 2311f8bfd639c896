// Package display owns the blank/unblank procedure for the physical monitor:
// a reversible soft-black phase, true hardware power-down, and the strategy
// for neutralizing the render engine while the monitor is off.
package display

import "strings"

// BlankMode represents how the monitor is blanked when the kiosk sleeps.
type BlankMode int

const (
	BlankNone     BlankMode = iota // Never blank
	BlankBlack                     // Software-only fake black, instant wake
	BlankXset                      // X11 DPMS via xset, ~2s wake delay
	BlankVcgencmd                  // Legacy display_power via vcgencmd
	BlankWayland                   // Placeholder, degrades to BlankBlack
)

// String returns the string representation of the blank mode.
func (m BlankMode) String() string {
	switch m {
	case BlankNone:
		return "NONE"
	case BlankBlack:
		return "BLACK"
	case BlankXset:
		return "XSET"
	case BlankVcgencmd:
		return "VCGENCMD"
	case BlankWayland:
		return "WAYLAND"
	default:
		return "unknown"
	}
}

var blankModes = []BlankMode{BlankNone, BlankBlack, BlankXset, BlankVcgencmd, BlankWayland}

// Next returns the blank mode after m in menu cycle order.
func (m BlankMode) Next() BlankMode {
	for i, v := range blankModes {
		if v == m {
			return blankModes[(i+1)%len(blankModes)]
		}
	}
	return BlankNone
}

// Hardware reports whether the mode physically powers the monitor down.
func (m BlankMode) Hardware() bool {
	return m == BlankXset || m == BlankVcgencmd
}

// ParseBlankMode parses a blank mode label, case-insensitively.
// Unknown labels map to BlankBlack, the safest mode.
func ParseBlankMode(s string) BlankMode {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NONE":
		return BlankNone
	case "BLACK":
		return BlankBlack
	case "XSET":
		return BlankXset
	case "VCGENCMD":
		return BlankVcgencmd
	case "WAYLAND":
		return BlankWayland
	default:
		return BlankBlack
	}
}

// Phase is the display power phase.
type Phase int

const (
	Awake       Phase = iota // Monitor powered, normal rendering
	SoftBlack                // Monitor powered, engine showing black
	HardwareOff              // Monitor physically powered down
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case Awake:
		return "awake"
	case SoftBlack:
		return "soft_black"
	case HardwareOff:
		return "hardware_off"
	default:
		return "unknown"
	}
}

// Strategy is how the render engine is treated while the monitor is
// hardware-powered-down, so it cannot wake the display by redrawing.
type Strategy int

const (
	StrategyIgnore              Strategy = iota // Just power off; accept possible wake-ups
	StrategyFreeze                              // SIGSTOP the engine; SIGCONT on wake
	StrategyTerminateAndRestart                 // Quit the engine; relaunch on wake
	StrategySoftCommand                         // Ask the engine over IPC to stop redrawing
	StrategyPeriodicReassert                    // Keep re-issuing power-off to fight wake-ups
)

// String returns the string representation of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyIgnore:
		return "IGNORE"
	case StrategyFreeze:
		return "FREEZE"
	case StrategyTerminateAndRestart:
		return "TERMINATE_AND_RESTART"
	case StrategySoftCommand:
		return "SOFT_COMMAND"
	case StrategyPeriodicReassert:
		return "PERIODIC_REASSERT"
	default:
		return "unknown"
	}
}
