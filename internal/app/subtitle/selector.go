package subtitle

import (
	"strings"
	"time"

	zlog "github.com/rs/zerolog/log"
)

const (
	trackQueryTimeout = time.Second
	sidQueryTimeout   = 500 * time.Millisecond
	feedbackMs        = 1200
)

// Off is the preference cursor entry meaning "subtitles disabled".
const Off = "off"

// Engine is the slice of the render engine the selector needs.
type Engine interface {
	GetProperty(name string, timeout time.Duration) (any, bool)
	SetProperty(name string, value any)
	ShowText(text string, durationMs int)
}

// Selector tracks the viewer's cycled language preference and applies it to
// the engine's active subtitle track list.
type Selector struct {
	engine   Engine
	prefs    []string // preference order, lowercase
	remember time.Duration

	cursor int       // index into ["off", prefs...]
	setAt  time.Time // zero means no preference was ever set
}

// NewSelector creates a selector over the merged preference list.
func NewSelector(engine Engine, prefs []string, remember time.Duration) *Selector {
	return &Selector{engine: engine, prefs: prefs, remember: remember}
}

// Reconfigure replaces the preference list and remember duration, keeping
// the cursor position when it still fits.
func (s *Selector) Reconfigure(prefs []string, remember time.Duration) {
	s.prefs = prefs
	s.remember = remember
	if s.cursor > len(prefs) {
		s.cursor = 0
	}
}

// SetDefault initializes the preference before any button press: either the
// first preferred language, or off.
func (s *Selector) SetDefault(on bool, t time.Time) {
	if on && len(s.prefs) > 0 {
		s.cursor = 1
		s.setAt = t
		return
	}
	s.cursor = 0
	s.setAt = time.Time{}
}

// Cycle advances the preference cursor through ["off", lang1, lang2, ...]
// (wrapping), records the press timestamp, and returns the display label.
func (s *Selector) Cycle(t time.Time) string {
	options := 1 + len(s.prefs)
	if s.setAt.IsZero() {
		s.cursor = 0
	}
	s.cursor = (s.cursor + 1) % options
	s.setAt = t

	if s.cursor == 0 {
		return "OFF"
	}
	return strings.ToUpper(s.prefs[s.cursor-1])
}

// Active returns the current preference ("off" or a language tag) if one was
// set within the remember window; past the window there is no preference and
// the engine's default track stands.
func (s *Selector) Active(now time.Time) (string, bool) {
	if s.setAt.IsZero() {
		return "", false
	}
	if now.Sub(s.setAt) > s.remember {
		return "", false
	}
	if s.cursor == 0 {
		return Off, true
	}
	return s.prefs[s.cursor-1], true
}

// track is one subtitle entry from the engine's track list.
type track struct {
	id   int
	lang string
}

// subtitleTracks extracts the subtitle entries from the engine's track-list
// property value.
func subtitleTracks(v any) []track {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var subs []track
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok || m["type"] != "sub" {
			continue
		}
		idf, ok := m["id"].(float64)
		if !ok {
			continue
		}
		lang, _ := m["lang"].(string)
		subs = append(subs, track{id: int(idf), lang: strings.ToLower(lang)})
	}
	return subs
}

// ApplyPreferred applies the active preference against the engine's current
// track list: "off" hides subtitles; a language picks the first track with an
// exact case-insensitive tag match; a preference with no matching track
// leaves the current selection untouched. Returns whether anything changed.
func (s *Selector) ApplyPreferred(now time.Time) bool {
	pref, ok := s.Active(now)
	if !ok {
		return false
	}

	v, ok := s.engine.GetProperty("track-list", trackQueryTimeout)
	if !ok {
		return false
	}
	subs := subtitleTracks(v)
	if len(subs) == 0 {
		return false
	}

	if pref == Off {
		s.engine.SetProperty("sid", "no")
		s.engine.SetProperty("sub-visibility", false)
		return true
	}

	for _, tr := range subs {
		if tr.lang == pref {
			s.engine.SetProperty("sid", tr.id)
			s.engine.SetProperty("sub-visibility", true)
			return true
		}
	}
	// Preferred language missing: keep whatever the engine selected.
	return false
}

// SelectNextTrack cycles the engine's subtitle track manually: preferred
// languages in preference order first, then remaining tracks, then off.
// Returns false when the current item has no subtitle tracks at all.
func (s *Selector) SelectNextTrack() bool {
	v, ok := s.engine.GetProperty("track-list", trackQueryTimeout)
	if !ok {
		return false
	}
	subs := subtitleTracks(v)
	if len(subs) == 0 {
		s.engine.ShowText("No subtitles found", feedbackMs)
		return false
	}

	curID := -1
	if cur, ok := s.engine.GetProperty("sid", sidQueryTimeout); ok {
		if f, isNum := cur.(float64); isNum {
			curID = int(f)
		}
	}

	candidates := orderCandidates(subs, s.prefs)
	candidates = append(candidates, 0) // off last

	next := candidates[0]
	for i, id := range candidates {
		if id == curID {
			next = candidates[(i+1)%len(candidates)]
			break
		}
	}

	if next == 0 {
		s.engine.SetProperty("sid", "no")
		s.engine.ShowText("Subtitles: OFF", feedbackMs)
		return true
	}

	s.engine.SetProperty("sid", next)
	s.engine.SetProperty("sub-visibility", true)
	label := "ON"
	for _, tr := range subs {
		if tr.id == next && tr.lang != "" {
			label = strings.ToUpper(tr.lang)
			break
		}
	}
	s.engine.ShowText("Subtitles: "+label, feedbackMs)
	return true
}

// orderCandidates sorts subtitle track ids: preferred languages by
// preference rank, then the rest by id.
func orderCandidates(subs []track, prefs []string) []int {
	rank := func(lang string) int {
		for i, p := range prefs {
			if p == lang {
				return i
			}
		}
		return len(prefs)
	}

	ordered := make([]track, len(subs))
	copy(ordered, subs)
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			ri, rj := rank(ordered[i].lang), rank(ordered[j].lang)
			if rj < ri || (rj == ri && ordered[j].id < ordered[i].id) {
				ordered[i], ordered[j] = ordered[j], ordered[i]
			}
		}
	}

	ids := make([]int, len(ordered))
	for i, tr := range ordered {
		ids[i] = tr.id
	}
	zlog.Debug().Msgf("subtitle: candidate order %v", ids)
	return ids
}
