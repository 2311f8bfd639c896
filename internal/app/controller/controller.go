package controller

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/museumtech/kioskd/internal/app/subtitle"
	"github.com/museumtech/kioskd/internal/domain/media"
	"github.com/museumtech/kioskd/internal/engine"
	"github.com/museumtech/kioskd/internal/infra/config"
	"github.com/museumtech/kioskd/internal/input"
)

// ErrEngineDied is returned from Run when the render engine process
// disappears outside of deliberate sleep. The daemon maps it to a dedicated
// exit code so the supervisor restarts the whole unit.
var ErrEngineDied = errors.New("render engine process died")

const (
	tickInterval = 50 * time.Millisecond

	showPassHint    = true
	restartShowMs   = 800
	languageShowMs  = 1200
	minSlideDwell   = 500 * time.Millisecond
	randomPickTries = 10
)

// Renderer is the slice of the render engine facade the controller drives.
type Renderer interface {
	Start() error
	Stop()
	Alive() bool
	Reconfigure(cfg *config.Config)
	ApplyColor()
	LoadIdle(path string, force bool)
	PlayFile(path string, loopInf bool)
	StopMedia()
	Seek(seconds float64) error
	OSD(lines []string, durationMs int)
	ShowText(text string, durationMs int)
	SetFooter(text string, durationMs int)
	ClearFooter()
	DrainEvents() []engine.Event
}

// Power is the display power manager surface the controller uses.
type Power interface {
	Sleep()
	Wake()
	MaybePowersave(now time.Time)
	Frozen() bool
	Reconfigure(cfg *config.Config)
	CleanupOnExit()
}

// Subtitles is the language preference selector surface.
type Subtitles interface {
	Cycle(t time.Time) string
	ApplyPreferred(now time.Time) bool
	SetDefault(on bool, t time.Time)
	Reconfigure(prefs []string, remember time.Duration)
}

// Store loads and persists the configuration file.
type Store interface {
	Load() (*config.Config, error)
	Save(cfg *config.Config) error
}

// Controller owns the playback state machine. It is single-threaded: Run
// polls the event queues and timers on a fixed tick, so no field needs a
// lock and every transition happens in one place.
type Controller struct {
	cfg     *config.Config
	store   Store
	presets *media.PresetTable

	renderer Renderer
	power    Power
	subs     Subtitles

	primary *input.Queue
	sub     *input.Queue
	gate    *input.Gate

	state  State
	window scheduleWindow
	pass   passkeyBuffer

	videos         []string
	images         []string
	activeVideo    int
	slideshowIndex int
	nextSlide      time.Time

	menuIndex int

	downAt            time.Time
	lastActivity      time.Time
	idleSince         time.Time
	passkeyLastInput  time.Time
	subtitleChangedAt time.Time

	now func() time.Time
}

// New creates a controller over the given collaborators. The configuration
// pointer is shared with the renderer and power manager until the first
// reload, at which point everyone is reconfigured with the fresh copy.
func New(cfg *config.Config, store Store, renderer Renderer, power Power, subs Subtitles, primary, sub *input.Queue) *Controller {
	return &Controller{
		cfg:      cfg,
		store:    store,
		presets:  media.NewPresetTable(cfg.Color.Presets),
		renderer: renderer,
		power:    power,
		subs:     subs,
		primary:  primary,
		sub:      sub,
		gate:     input.NewGate(cfg.Button.Bounce()),
		pass:     passkeyBuffer{secret: cfg.Passkey.Code},
		window:   newScheduleWindow(cfg.Schedule.WindowEnable, cfg.Schedule.StartHHMM, cfg.Schedule.EndHHMM),
		state:    StateIdle,
		now:      time.Now,
	}
}

// Run starts the engine and drives the state machine until the context is
// cancelled or the engine dies. The display and engine are always restored
// on the way out.
func (c *Controller) Run(ctx context.Context) error {
	zlog.Info().
		Str("video_dir", c.cfg.Media.VideoDir).
		Str("image_dir", c.cfg.Media.ImageDir).
		Msg("controller starting")

	c.rescanMedia()
	c.subs.Reconfigure(c.mergedPrefs(), c.cfg.Subtitles.Remember())
	c.subs.SetDefault(c.cfg.Subtitles.DefaultOn, c.now())

	if err := c.renderer.Start(); err != nil {
		return errors.Wrap(err, "failed to start render engine")
	}
	defer func() {
		c.power.CleanupOnExit()
		c.renderer.Stop()
	}()

	c.renderer.LoadIdle(c.cfg.UI.BackgroundImage, true)
	c.enterIdle()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.tick(c.now()); err != nil {
				return err
			}
		}
	}
}

// tick runs one iteration of the state machine: liveness check, queued
// events, engine events, timers, and overlay refresh.
func (c *Controller) tick(now time.Time) error {
	if c.state != StateSleep && !c.renderer.Alive() {
		zlog.Error().Msg("render engine process is not alive")
		return ErrEngineDied
	}

	for _, ev := range c.primary.Drain() {
		c.handlePrimary(ev)
	}
	for _, ev := range c.sub.Drain() {
		// Act on release only; down events keep queue symmetry with GPIO.
		switch ev.Kind {
		case input.Up:
			c.handleSubtitlePress(ev.At)
		case input.Config:
			c.handleConfigChanged()
		}
	}

	// A frozen engine cannot answer IPC; leave its events queued.
	if !c.power.Frozen() {
		for _, ev := range c.renderer.DrainEvents() {
			c.handleEngineEvent(ev, now)
		}
	}

	if c.state == StateIdle && now.Sub(c.idleSince) >= c.cfg.Timeouts.Idle() {
		if c.loopMode() != media.LoopOff || c.cfg.Playback.ExpoMode {
			zlog.Info().Msg("idle timeout, auto-starting playback")
			c.enterPlaying()
		} else if c.window.AllowedAt(now) {
			c.sleepDisplay()
		} else {
			// Outside the blanking window: stay idle, rearm the timer.
			c.idleSince = now
		}
	}

	if c.state == StatePlaying && c.slideshowMode() &&
		!c.nextSlide.IsZero() && !now.Before(c.nextSlide) {
		c.startSlideshow()
	}

	if c.state == StateSleep {
		c.power.MaybePowersave(now)
	}

	if c.state == StatePasskey && now.Sub(c.passkeyLastInput) >= c.cfg.Passkey.Timeout() {
		c.enterPlaying()
	}

	if c.state == StateMenu && now.Sub(c.lastActivity) >= c.cfg.Timeouts.Menu() {
		c.enterIdle()
	}

	// Keep transient overlays refreshed; never draw while sleeping.
	switch c.state {
	case StateMenu:
		c.renderMenu()
	case StatePasskey:
		c.renderPasskey()
	}

	return nil
}

func (c *Controller) handlePrimary(ev input.Event) {
	switch ev.Kind {
	case input.Config:
		c.handleConfigChanged()
	case input.Down:
		if c.gate.Accept(input.Down, ev.At) {
			c.downAt = ev.At
			c.lastActivity = ev.At
		}
	case input.Up:
		if c.gate.Accept(input.Up, ev.At) {
			c.handlePress(ev.At)
		}
	}
}

// handlePress classifies the completed press and dispatches per state.
func (c *Controller) handlePress(t time.Time) {
	if c.downAt.IsZero() {
		return
	}
	dur := t.Sub(c.downAt)
	c.downAt = time.Time{}
	c.lastActivity = t

	long := input.IsLong(dur, c.cfg.Button.LongPress())
	zlog.Debug().Str("state", c.state.String()).Bool("long", long).Msg("button press")

	switch c.state {
	case StateSleep:
		// The wake sequence always lands on the idle screen first so the
		// blanked surface is replaced, then the press dispatches from there.
		c.power.Wake()
		c.enterIdle()
		if long {
			c.enterPasskey()
		} else {
			c.enterPlaying()
		}

	case StateIdle:
		if long {
			c.enterPasskey()
		} else {
			c.enterPlaying()
		}

	case StatePlaying:
		if long {
			c.renderer.StopMedia()
			c.enterIdle()
			return
		}
		// Short press restarts the item, but only shortly after a subtitle
		// change; otherwise it is ignored so visitors cannot skip around.
		if c.subtitleChangedAt.IsZero() {
			return
		}
		if t.Sub(c.subtitleChangedAt) <= c.cfg.Subtitles.RestartWindow() {
			if err := c.renderer.Seek(0); err != nil {
				if path, ok := c.currentVideo(); ok {
					c.renderer.PlayFile(path, c.loopMode() == media.LoopSingle)
				}
			} else {
				c.renderer.ShowText("Restart", restartShowMs)
			}
			c.subtitleChangedAt = time.Time{}
		}

	case StatePasskey:
		sym := SymbolShort
		if long {
			sym = SymbolLong
		}
		if c.pass.Feed(sym) {
			c.enterMenu()
			return
		}
		c.passkeyLastInput = t
		c.renderPasskey()

	case StateMenu:
		if long {
			c.menuSelect()
		} else {
			c.menuIndex = (c.menuIndex + 1) % menuItemCount
			c.renderMenu()
		}
	}
}

// handleSubtitlePress cycles the language preference from any state and
// applies it immediately when a video is playing.
func (c *Controller) handleSubtitlePress(t time.Time) {
	label := c.subs.Cycle(t)
	c.renderer.ShowText("Language: "+label, languageShowMs)

	if c.state == StatePlaying && !c.slideshowMode() {
		if c.subs.ApplyPreferred(t) {
			c.subtitleChangedAt = t
		}
	}
}

func (c *Controller) handleEngineEvent(ev engine.Event, now time.Time) {
	switch ev.Name {
	case engine.EventFileLoaded:
		// Tracks exist only once the file is loaded; apply the remembered
		// language now rather than at loadfile time.
		if c.state == StatePlaying && !c.slideshowMode() {
			c.subs.ApplyPreferred(now)
		}

	case engine.EventEndFile:
		if c.state != StatePlaying || ev.Reason != engine.ReasonEOF {
			return
		}
		if c.slideshowMode() {
			c.startSlideshow()
			return
		}
		c.advanceAfterEOF()
	}
}

// advanceAfterEOF implements the end-of-item policy: ALL advances in order,
// RANDOM jumps to a different item, expo mode makes OFF behave like ALL,
// and plain OFF falls back to the idle screen.
func (c *Controller) advanceAfterEOF() {
	loop := c.loopMode()
	if c.cfg.Playback.ExpoMode && loop == media.LoopOff {
		loop = media.LoopAll
	}

	switch loop {
	case media.LoopAll:
		if len(c.videos) > 0 {
			c.activeVideo = (c.activeVideo + 1) % len(c.videos)
			c.persist()
		}
		c.enterPlaying()

	case media.LoopRandom:
		if n := len(c.videos); n > 0 {
			next := c.activeVideo
			if n > 1 {
				for i := 0; i < randomPickTries; i++ {
					next = rand.Intn(n)
					if next != c.activeVideo {
						break
					}
				}
			} else {
				next = 0
			}
			c.activeVideo = next
			c.persist()
		}
		c.enterPlaying()

	default:
		c.enterIdle()
	}
}

// handleConfigChanged reloads the configuration file and pushes the fresh
// copy to every collaborator. The current state is kept; nothing auto-plays.
func (c *Controller) handleConfigChanged() {
	zlog.Info().Msg("config change signal, reloading")

	cfg, err := c.store.Load()
	if err != nil {
		zlog.Warn().Err(err).Msg("config reload failed, keeping current config")
		return
	}
	c.cfg = cfg
	c.presets = media.NewPresetTable(cfg.Color.Presets)
	c.gate = input.NewGate(cfg.Button.Bounce())
	c.pass.secret = cfg.Passkey.Code
	c.window = newScheduleWindow(cfg.Schedule.WindowEnable, cfg.Schedule.StartHHMM, cfg.Schedule.EndHHMM)

	c.rescanMedia()
	c.activeVideo = cfg.Playback.ActiveIndex
	c.clampActiveVideo()

	c.renderer.Reconfigure(cfg)
	c.power.Reconfigure(cfg)
	c.subs.Reconfigure(c.mergedPrefs(), cfg.Subtitles.Remember())
	c.subs.SetDefault(cfg.Subtitles.DefaultOn, c.now())

	c.renderer.LoadIdle(cfg.UI.BackgroundImage, true)
}

// State transitions.

func (c *Controller) setState(s State) {
	zlog.Info().Str("from", c.state.String()).Str("to", s.String()).Msg("state change")
	c.state = s
	now := c.now()
	c.lastActivity = now
	if s == StateIdle || s == StateSleep {
		c.idleSince = now
	}
}

func (c *Controller) enterIdle() {
	c.setState(StateIdle)
	c.pass.Reset()
	c.renderer.ApplyColor()
	c.renderer.LoadIdle(c.cfg.UI.BackgroundImage, true)
	c.renderIdle()
}

func (c *Controller) enterPasskey() {
	c.setState(StatePasskey)
	c.pass.Reset()
	c.passkeyLastInput = c.now()
	c.renderPasskey()
}

func (c *Controller) enterMenu() {
	c.setState(StateMenu)
	c.menuIndex = 0
	c.rescanMedia()
	c.clampActiveVideo()
	c.renderMenu()
}

// enterPlaying starts playback per the configured play mode. There is no
// automatic fallback between video and slideshow; an empty library lands
// back on the idle screen.
func (c *Controller) enterPlaying() {
	c.renderer.ClearFooter()
	c.rescanMedia()

	if c.slideshowMode() {
		c.videos = nil
		c.startSlideshow()
		return
	}

	path, ok := c.currentVideo()
	if !ok {
		c.enterIdle()
		return
	}

	c.setState(StatePlaying)
	c.renderer.ShowText("", 1)
	c.subtitleChangedAt = time.Time{}
	c.renderer.PlayFile(path, c.loopMode() == media.LoopSingle)
}

// startSlideshow shows the next image and arms the advance timer. The
// engine loads still images like any media file.
func (c *Controller) startSlideshow() {
	if len(c.images) == 0 {
		c.enterIdle()
		return
	}
	if c.state != StatePlaying {
		c.setState(StatePlaying)
	}

	c.slideshowIndex %= len(c.images)
	path := c.images[c.slideshowIndex]
	c.slideshowIndex = (c.slideshowIndex + 1) % len(c.images)

	c.renderer.ShowText("", 1)
	c.renderer.PlayFile(path, false)

	dwell := c.cfg.Playback.SlideshowInterval()
	if dwell < minSlideDwell {
		dwell = minSlideDwell
	}
	c.nextSlide = c.now().Add(dwell)
}

func (c *Controller) sleepDisplay() {
	c.setState(StateSleep)
	c.power.Sleep()
}

// Rendering.

func (c *Controller) renderIdle() {
	c.renderer.OSD([]string{c.cfg.UI.Title, "", c.cfg.UI.Subtitle}, c.cfg.Engine.OSDIdleMs)
	c.renderer.SetFooter(c.idleFooter(), c.cfg.Engine.OSDIdleMs)
}

func (c *Controller) renderPasskey() {
	lines := []string{c.cfg.UI.Title, "", c.cfg.UI.Loading}
	if showPassHint {
		lines = append(lines, "", c.cfg.Passkey.Code+c.pass.Entered())
	}
	c.renderer.OSD(lines, c.cfg.Engine.OSDPassMs)
}

// idleFooter renders the compact service line shown bottom-left on the idle
// screen: hex-encoded primary IP, admin port in hex, hostname.
func (c *Controller) idleFooter() string {
	host, _ := os.Hostname()
	return fmt.Sprintf("%s %04x %s", hexIP(primaryIP()), c.cfg.Web.Port, host)
}

// Helpers.

func (c *Controller) loopMode() media.LoopMode {
	return media.ParseLoopMode(c.cfg.Playback.LoopMode)
}

func (c *Controller) slideshowMode() bool {
	return media.ParsePlayMode(c.cfg.Playback.PlayMode) == media.PlaySlideshow
}

func (c *Controller) rescanMedia() {
	c.videos = media.ScanVideos(c.cfg.Media.VideoDir)
	c.images = media.ScanImages(c.cfg.Media.ImageDir)
	c.clampActiveVideo()
}

func (c *Controller) clampActiveVideo() {
	if len(c.videos) == 0 {
		c.activeVideo = 0
		return
	}
	c.activeVideo = ((c.activeVideo % len(c.videos)) + len(c.videos)) % len(c.videos)
}

func (c *Controller) currentVideo() (string, bool) {
	if len(c.videos) == 0 {
		return "", false
	}
	c.clampActiveVideo()
	return c.videos[c.activeVideo], true
}

// mergedPrefs widens the configured language preference with every sidecar
// subtitle language found next to the videos.
func (c *Controller) mergedPrefs() []string {
	discovered := subtitle.DiscoverLanguages(media.ScanSubtitles(c.cfg.Media.VideoDir))
	return subtitle.MergePreferences(c.cfg.Subtitles.Prefer, discovered)
}

func (c *Controller) persist() {
	c.cfg.Playback.ActiveIndex = c.activeVideo
	if err := c.store.Save(c.cfg); err != nil {
		zlog.Warn().Err(err).Msg("config save failed")
	}
}

// primaryIP returns the address of the interface that would route to the
// public internet. No packet is sent; the dial only resolves a source.
func primaryIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return "127.0.0.1"
}

func hexIP(ip string) string {
	v4 := net.ParseIP(ip).To4()
	if v4 == nil {
		return "00000000"
	}
	return fmt.Sprintf("%02x%02x%02x%02x", v4[0], v4[1], v4[2], v4[3])
}
