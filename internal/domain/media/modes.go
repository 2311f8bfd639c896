// Package media provides media discovery and playback mode types.
package media

import "strings"

// LoopMode represents how playback advances when an item finishes.
type LoopMode int

const (
	LoopOff    LoopMode = iota // Settle back to idle after the item
	LoopSingle                 // Repeat the current item forever
	LoopAll                    // Advance through the list in order
	LoopRandom                 // Jump to a different random item
)

var loopModes = []LoopMode{LoopOff, LoopSingle, LoopAll, LoopRandom}

// String returns the string representation of the loop mode.
func (m LoopMode) String() string {
	switch m {
	case LoopOff:
		return "OFF"
	case LoopSingle:
		return "SINGLE"
	case LoopAll:
		return "ALL"
	case LoopRandom:
		return "RANDOM"
	default:
		return "unknown"
	}
}

// Next returns the loop mode after m in cycle order.
func (m LoopMode) Next() LoopMode {
	for i, v := range loopModes {
		if v == m {
			return loopModes[(i+1)%len(loopModes)]
		}
	}
	return LoopOff
}

// ParseLoopMode parses a loop mode label, case-insensitively.
// Unknown labels map to LoopOff.
func ParseLoopMode(s string) LoopMode {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SINGLE":
		return LoopSingle
	case "ALL":
		return LoopAll
	case "RANDOM":
		return LoopRandom
	default:
		return LoopOff
	}
}

// PlayMode represents what kind of content a play action starts.
type PlayMode int

const (
	PlayVideo     PlayMode = iota // Play the active video
	PlaySlideshow                 // Cycle through the image list
)

// String returns the string representation of the play mode.
func (m PlayMode) String() string {
	switch m {
	case PlayVideo:
		return "VIDEO"
	case PlaySlideshow:
		return "SLIDESHOW"
	default:
		return "unknown"
	}
}

// ParsePlayMode parses a play mode label, case-insensitively.
// Unknown labels map to PlayVideo.
func ParsePlayMode(s string) PlayMode {
	if strings.ToUpper(strings.TrimSpace(s)) == "SLIDESHOW" {
		return PlaySlideshow
	}
	return PlayVideo
}
