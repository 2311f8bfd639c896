// Package controller implements the kiosk's finite-state playback
// controller: a single-threaded polling loop that drains button and engine
// event queues, evaluates wall-clock timers, and drives the render engine
// and the display power manager.
package controller

// State is the controller's playback state.
type State int

const (
	StateSleep   State = iota // Display blanked, waiting for a wake press
	StateIdle                 // Idle screen, waiting for input or timeout
	StatePasskey              // Capturing the hidden-menu passkey
	StateMenu                 // On-screen menu open
	StatePlaying              // Media or slideshow playing
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateSleep:
		return "SLEEP"
	case StateIdle:
		return "IDLE"
	case StatePasskey:
		return "PASSKEY"
	case StateMenu:
		return "MENU"
	case StatePlaying:
		return "PLAYING"
	default:
		return "unknown"
	}
}
