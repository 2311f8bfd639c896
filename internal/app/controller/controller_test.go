package controller

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/museumtech/kioskd/internal/engine"
	"github.com/museumtech/kioskd/internal/infra/config"
	"github.com/museumtech/kioskd/internal/input"
)

type fakeRenderer struct {
	mu     sync.Mutex
	ops    []string
	texts  []string
	alive  bool
	seekOK bool
	events []engine.Event
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{alive: true, seekOK: true}
}

func (f *fakeRenderer) record(op string) {
	f.mu.Lock()
	f.ops = append(f.ops, op)
	f.mu.Unlock()
}

func (f *fakeRenderer) has(op string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.ops {
		if o == op || strings.HasPrefix(o, op+":") {
			return true
		}
	}
	return false
}

func (f *fakeRenderer) lastPlayed() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.ops) - 1; i >= 0; i-- {
		if strings.HasPrefix(f.ops[i], "play:") {
			return strings.TrimPrefix(f.ops[i], "play:")
		}
	}
	return ""
}

func (f *fakeRenderer) Start() error                     { f.record("start"); return nil }
func (f *fakeRenderer) Stop()                            { f.record("stop") }
func (f *fakeRenderer) Alive() bool                      { return f.alive }
func (f *fakeRenderer) Reconfigure(cfg *config.Config)   { f.record("reconfigure") }
func (f *fakeRenderer) ApplyColor()                      { f.record("apply_color") }
func (f *fakeRenderer) LoadIdle(path string, force bool) { f.record("load_idle") }
func (f *fakeRenderer) PlayFile(path string, loopInf bool) {
	f.record("play:" + filepath.Base(path))
}
func (f *fakeRenderer) StopMedia() { f.record("stop_media") }
func (f *fakeRenderer) Seek(seconds float64) error {
	f.record("seek")
	if !f.seekOK {
		return assert.AnError
	}
	return nil
}
func (f *fakeRenderer) OSD(lines []string, ms int) {}
func (f *fakeRenderer) ShowText(text string, ms int) {
	if text == "" {
		return
	}
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
}
func (f *fakeRenderer) SetFooter(text string, ms int) {}
func (f *fakeRenderer) ClearFooter()                  { f.record("clear_footer") }
func (f *fakeRenderer) DrainEvents() []engine.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	evs := f.events
	f.events = nil
	return evs
}

func (f *fakeRenderer) queueEvent(ev engine.Event) {
	f.mu.Lock()
	f.events = append(f.events, ev)
	f.mu.Unlock()
}

type fakePower struct {
	ops    []string
	frozen bool
}

func (f *fakePower) Sleep()                         { f.ops = append(f.ops, "sleep") }
func (f *fakePower) Wake()                          { f.ops = append(f.ops, "wake") }
func (f *fakePower) MaybePowersave(now time.Time)   {}
func (f *fakePower) Frozen() bool                   { return f.frozen }
func (f *fakePower) Reconfigure(cfg *config.Config) { f.ops = append(f.ops, "reconfigure") }
func (f *fakePower) CleanupOnExit()                 { f.ops = append(f.ops, "cleanup") }

type fakeSubs struct {
	cycled    int
	applied   int
	apply     bool
	prefs     []string
	defaulted int
	defaultOn bool
}

func (f *fakeSubs) Cycle(t time.Time) string { f.cycled++; return "NL" }
func (f *fakeSubs) ApplyPreferred(now time.Time) bool {
	f.applied++
	return f.apply
}
func (f *fakeSubs) SetDefault(on bool, t time.Time) {
	f.defaulted++
	f.defaultOn = on
}
func (f *fakeSubs) Reconfigure(prefs []string, remember time.Duration) {
	f.prefs = prefs
}

type fakeStore struct {
	saves int
	next  *config.Config
}

func (f *fakeStore) Load() (*config.Config, error) {
	if f.next == nil {
		return nil, assert.AnError
	}
	return f.next, nil
}
func (f *fakeStore) Save(cfg *config.Config) error { f.saves++; return nil }

type harness struct {
	c   *Controller
	r   *fakeRenderer
	p   *fakePower
	s   *fakeSubs
	st  *fakeStore
	now time.Time
}

func testConfig(t *testing.T, videoCount int) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg, err := config.Load(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)

	vdir := filepath.Join(dir, "videos")
	idir := filepath.Join(dir, "images")
	require.NoError(t, os.MkdirAll(vdir, 0755))
	require.NoError(t, os.MkdirAll(idir, 0755))
	names := []string{"a.mp4", "b.mp4", "c.mp4"}
	for i := 0; i < videoCount && i < len(names); i++ {
		require.NoError(t, os.WriteFile(filepath.Join(vdir, names[i]), nil, 0644))
	}

	cfg.Media.VideoDir = vdir
	cfg.Media.ImageDir = idir
	cfg.Schedule.WindowEnable = false
	return cfg
}

func newHarness(t *testing.T, videoCount int) *harness {
	t.Helper()
	h := &harness{
		r:   newFakeRenderer(),
		p:   &fakePower{},
		s:   &fakeSubs{apply: true},
		st:  &fakeStore{},
		now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local),
	}
	cfg := testConfig(t, videoCount)
	h.c = New(cfg, h.st, h.r, h.p, h.s, input.NewQueue(), input.NewQueue())
	h.c.now = func() time.Time { return h.now }
	h.c.rescanMedia()
	h.c.enterIdle()
	return h
}

func (h *harness) advance(t *testing.T, d time.Duration) {
	t.Helper()
	h.now = h.now.Add(d)
	require.NoError(t, h.c.tick(h.now))
}

func (h *harness) press(t *testing.T, hold time.Duration) {
	t.Helper()
	h.c.primary.PushPress(h.now, hold)
	h.now = h.now.Add(hold + 10*time.Millisecond)
	require.NoError(t, h.c.tick(h.now))
}

const (
	shortHold = 200 * time.Millisecond
	longHold  = 1500 * time.Millisecond
)

func TestShortPressIdleStartsPlayback(t *testing.T) {
	h := newHarness(t, 2)

	h.press(t, shortHold)

	assert.Equal(t, StatePlaying, h.c.state)
	assert.Equal(t, "a.mp4", h.r.lastPlayed())
	assert.True(t, h.r.has("clear_footer"))
}

func TestLongPressIdleEntersPasskey(t *testing.T) {
	h := newHarness(t, 2)

	h.press(t, longHold)

	assert.Equal(t, StatePasskey, h.c.state)
}

func TestLongPressStopsPlayback(t *testing.T) {
	h := newHarness(t, 2)
	h.press(t, shortHold)
	require.Equal(t, StatePlaying, h.c.state)

	h.advance(t, time.Second)
	h.press(t, longHold)

	assert.Equal(t, StateIdle, h.c.state)
	assert.True(t, h.r.has("stop_media"))
}

func TestPasskeySequenceOpensMenu(t *testing.T) {
	h := newHarness(t, 2)
	h.press(t, longHold)
	require.Equal(t, StatePasskey, h.c.state)

	// Default secret is ".--..-".
	for _, hold := range []time.Duration{shortHold, longHold, longHold, shortHold, shortHold, longHold} {
		h.advance(t, 500*time.Millisecond)
		h.press(t, hold)
	}

	assert.Equal(t, StateMenu, h.c.state)
}

func TestPasskeyTimeoutStartsPlayback(t *testing.T) {
	h := newHarness(t, 2)
	h.press(t, longHold)
	require.Equal(t, StatePasskey, h.c.state)

	h.advance(t, 3100*time.Millisecond)

	assert.Equal(t, StatePlaying, h.c.state)
}

func TestMenuShortAdvancesCursor(t *testing.T) {
	h := newHarness(t, 2)
	h.c.enterMenu()

	h.press(t, shortHold)
	assert.Equal(t, 1, h.c.menuIndex)

	// Wraps at the end.
	for i := 0; i < menuItemCount-1; i++ {
		h.advance(t, time.Second)
		h.press(t, shortHold)
	}
	assert.Equal(t, 0, h.c.menuIndex)
}

func TestMenuSelectLoopPersists(t *testing.T) {
	h := newHarness(t, 2)
	h.c.enterMenu()

	h.press(t, longHold)

	assert.Equal(t, "SINGLE", h.c.cfg.Playback.LoopMode)
	assert.Equal(t, 1, h.st.saves)
}

func TestMenuTimeoutReturnsIdle(t *testing.T) {
	h := newHarness(t, 2)
	h.c.enterMenu()

	h.advance(t, 61*time.Second)

	assert.Equal(t, StateIdle, h.c.state)
}

func TestMenuExitReturnsIdle(t *testing.T) {
	h := newHarness(t, 2)
	h.c.enterMenu()
	h.c.menuIndex = menuExit

	h.press(t, longHold)

	assert.Equal(t, StateIdle, h.c.state)
}

func TestMenuBlankNowSleeps(t *testing.T) {
	h := newHarness(t, 2)
	h.c.enterMenu()
	h.c.menuIndex = menuBlankNow

	h.press(t, longHold)

	assert.Equal(t, StateSleep, h.c.state)
	assert.Contains(t, h.p.ops, "sleep")
}

func TestEOFLoopAllAdvances(t *testing.T) {
	h := newHarness(t, 2)
	h.c.cfg.Playback.LoopMode = "ALL"
	h.press(t, shortHold)
	require.Equal(t, "a.mp4", h.r.lastPlayed())

	h.r.queueEvent(engine.Event{Name: engine.EventEndFile, Reason: engine.ReasonEOF})
	h.advance(t, time.Second)

	assert.Equal(t, StatePlaying, h.c.state)
	assert.Equal(t, 1, h.c.activeVideo)
	assert.Equal(t, "b.mp4", h.r.lastPlayed())
}

func TestEOFLoopOffReturnsIdle(t *testing.T) {
	h := newHarness(t, 2)
	h.press(t, shortHold)

	h.r.queueEvent(engine.Event{Name: engine.EventEndFile, Reason: engine.ReasonEOF})
	h.advance(t, time.Second)

	assert.Equal(t, StateIdle, h.c.state)
}

func TestEOFExpoModeKeepsPlaying(t *testing.T) {
	h := newHarness(t, 2)
	h.c.cfg.Playback.ExpoMode = true
	h.press(t, shortHold)

	h.r.queueEvent(engine.Event{Name: engine.EventEndFile, Reason: engine.ReasonEOF})
	h.advance(t, time.Second)

	assert.Equal(t, StatePlaying, h.c.state)
	assert.Equal(t, 1, h.c.activeVideo)
}

func TestEOFRandomSingleVideoReplays(t *testing.T) {
	h := newHarness(t, 1)
	h.c.cfg.Playback.LoopMode = "RANDOM"
	h.press(t, shortHold)

	h.r.queueEvent(engine.Event{Name: engine.EventEndFile, Reason: engine.ReasonEOF})
	h.advance(t, time.Second)

	assert.Equal(t, StatePlaying, h.c.state)
	assert.Equal(t, 0, h.c.activeVideo)
	assert.Equal(t, "a.mp4", h.r.lastPlayed())
}

func TestEOFNonEOFReasonIgnored(t *testing.T) {
	h := newHarness(t, 2)
	h.press(t, shortHold)

	h.r.queueEvent(engine.Event{Name: engine.EventEndFile, Reason: "stop"})
	h.advance(t, time.Second)

	assert.Equal(t, StatePlaying, h.c.state)
	assert.Equal(t, 0, h.c.activeVideo)
}

func TestFrozenEngineEventsStayQueued(t *testing.T) {
	h := newHarness(t, 2)
	h.press(t, shortHold)
	h.p.frozen = true

	h.r.queueEvent(engine.Event{Name: engine.EventEndFile, Reason: engine.ReasonEOF})
	h.advance(t, time.Second)

	assert.Equal(t, StatePlaying, h.c.state)
	assert.Len(t, h.r.events, 1, "event must remain queued while frozen")
}

func TestIdleTimeoutSleepsWhenAllowed(t *testing.T) {
	h := newHarness(t, 2)

	h.advance(t, 61*time.Second)

	assert.Equal(t, StateSleep, h.c.state)
	assert.Contains(t, h.p.ops, "sleep")
}

func TestIdleTimeoutOutsideWindowStaysIdle(t *testing.T) {
	h := newHarness(t, 2)
	// Harness clock sits at 12:00; blanking only allowed 17:00 -> 09:00.
	h.c.window = newScheduleWindow(true, "17:00", "09:00")

	h.advance(t, 61*time.Second)

	assert.Equal(t, StateIdle, h.c.state)
	assert.NotContains(t, h.p.ops, "sleep")

	// The timer rearms instead of firing every tick.
	assert.Equal(t, h.now, h.c.idleSince)
}

func TestIdleTimeoutAutoplaysWhenLooping(t *testing.T) {
	h := newHarness(t, 2)
	h.c.cfg.Playback.LoopMode = "ALL"

	h.advance(t, 61*time.Second)

	assert.Equal(t, StatePlaying, h.c.state)
}

func TestWakeShortPressStartsPlayback(t *testing.T) {
	h := newHarness(t, 2)
	h.c.sleepDisplay()
	h.r.ops = nil

	h.press(t, shortHold)

	assert.Contains(t, h.p.ops, "wake")
	// Waking passes through the idle screen before playback starts.
	assert.True(t, h.r.has("load_idle"))
	assert.Equal(t, StatePlaying, h.c.state)
}

func TestWakeLongPressEntersPasskey(t *testing.T) {
	h := newHarness(t, 2)
	h.c.sleepDisplay()
	h.r.ops = nil

	h.press(t, longHold)

	assert.Contains(t, h.p.ops, "wake")
	// The idle background replaces the blanked surface before the
	// passkey prompt goes up.
	assert.True(t, h.r.has("load_idle"))
	assert.Equal(t, StatePasskey, h.c.state)
}

func TestSubtitlePressAppliesDuringPlayback(t *testing.T) {
	h := newHarness(t, 2)
	h.press(t, shortHold)

	h.c.sub.PushPress(h.now, 100*time.Millisecond)
	h.advance(t, time.Second)

	assert.Equal(t, 1, h.s.cycled)
	assert.Equal(t, 1, h.s.applied)
	assert.Contains(t, h.r.texts, "Language: NL")
	assert.False(t, h.c.subtitleChangedAt.IsZero())
}

func TestSubtitlePressCyclesFromIdleWithoutApply(t *testing.T) {
	h := newHarness(t, 2)

	h.c.sub.PushPress(h.now, 100*time.Millisecond)
	h.advance(t, time.Second)

	assert.Equal(t, 1, h.s.cycled)
	assert.Equal(t, 0, h.s.applied)
}

func TestShortPressRestartsWithinWindow(t *testing.T) {
	h := newHarness(t, 2)
	h.press(t, shortHold)

	h.c.sub.PushPress(h.now, 100*time.Millisecond)
	h.advance(t, time.Second)
	require.False(t, h.c.subtitleChangedAt.IsZero())

	h.press(t, shortHold)

	assert.True(t, h.r.has("seek"))
	assert.Contains(t, h.r.texts, "Restart")
	assert.True(t, h.c.subtitleChangedAt.IsZero())
}

func TestShortPressIgnoredAfterRestartWindow(t *testing.T) {
	h := newHarness(t, 2)
	h.press(t, shortHold)

	h.c.sub.PushPress(h.now, 100*time.Millisecond)
	h.advance(t, time.Second)

	h.advance(t, 5*time.Second)
	h.press(t, shortHold)

	assert.False(t, h.r.has("seek"))
	assert.Equal(t, StatePlaying, h.c.state)
}

func TestRestartFallsBackToReloadOnSeekError(t *testing.T) {
	h := newHarness(t, 2)
	h.r.seekOK = false
	h.press(t, shortHold)

	h.c.sub.PushPress(h.now, 100*time.Millisecond)
	h.advance(t, time.Second)

	h.press(t, shortHold)

	assert.True(t, h.r.has("seek"))
	assert.Equal(t, "a.mp4", h.r.lastPlayed())
	assert.NotContains(t, h.r.texts, "Restart")
}

func TestConfigChangedReloadsAndReconfigures(t *testing.T) {
	h := newHarness(t, 2)
	next := testConfig(t, 2)
	next.Passkey.Code = "..."
	next.Subtitles.DefaultOn = true
	h.st.next = next

	h.c.primary.Push(input.Event{Kind: input.Config, At: h.now})
	h.advance(t, time.Second)

	assert.Same(t, next, h.c.cfg)
	assert.Equal(t, "...", h.c.pass.secret)
	assert.True(t, h.r.has("reconfigure"))
	assert.Contains(t, h.p.ops, "reconfigure")
	// The reloaded subtitle default takes effect immediately.
	assert.Equal(t, 1, h.s.defaulted)
	assert.True(t, h.s.defaultOn)
}

func TestConfigChangedLoadFailureKeepsConfig(t *testing.T) {
	h := newHarness(t, 2)
	old := h.c.cfg

	h.c.primary.Push(input.Event{Kind: input.Config, At: h.now})
	h.advance(t, time.Second)

	assert.Same(t, old, h.c.cfg)
}

func TestEngineDeathReturnsError(t *testing.T) {
	h := newHarness(t, 2)
	h.r.alive = false

	h.now = h.now.Add(time.Second)
	err := h.c.tick(h.now)

	assert.ErrorIs(t, err, ErrEngineDied)
}

func TestEngineDeathIgnoredWhileSleeping(t *testing.T) {
	h := newHarness(t, 2)
	h.c.sleepDisplay()
	h.r.alive = false

	h.advance(t, time.Second)

	assert.Equal(t, StateSleep, h.c.state)
}

func TestFileLoadedAppliesPreference(t *testing.T) {
	h := newHarness(t, 2)
	h.press(t, shortHold)

	h.r.queueEvent(engine.Event{Name: engine.EventFileLoaded})
	h.advance(t, time.Second)

	assert.Equal(t, 1, h.s.applied)
}

func TestEnterPlayingNoVideosStaysIdle(t *testing.T) {
	h := newHarness(t, 0)

	h.press(t, shortHold)

	assert.Equal(t, StateIdle, h.c.state)
}

func TestSlideshowAdvancesOnTimer(t *testing.T) {
	h := newHarness(t, 0)
	h.c.cfg.Playback.PlayMode = "SLIDESHOW"
	for _, name := range []string{"one.png", "two.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(h.c.cfg.Media.ImageDir, name), nil, 0644))
	}

	h.press(t, shortHold)
	require.Equal(t, StatePlaying, h.c.state)
	assert.Equal(t, "one.png", h.r.lastPlayed())

	h.advance(t, 11*time.Second)
	assert.Equal(t, "two.png", h.r.lastPlayed())

	// Wraps around.
	h.advance(t, 11*time.Second)
	assert.Equal(t, "one.png", h.r.lastPlayed())
}
