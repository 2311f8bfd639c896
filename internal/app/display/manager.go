package display

import (
	"os"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/museumtech/kioskd/internal/infra/config"
)

// Renderer is the slice of the render engine the power manager needs to
// neutralize and restore it around hardware power-down.
type Renderer interface {
	Freeze() error
	Thaw() error
	Stop()
	Restart() error
	SoftSleep()
	SoftWake()
	ForceBlack(on bool)
	LoadIdle(path string, force bool)
	OSD(lines []string, durationMs int)
}

// Manager drives the display power phase machine. The strategy-specific
// renderer treatment is applied exactly once per entry into HardwareOff and
// undone exactly once per exit; CleanupOnExit unconditionally reverses any
// outstanding freeze or power-down so the process never exits leaving a dark
// or frozen kiosk.
type Manager struct {
	renderer Renderer
	hw       Hardware
	strategy Strategy

	mode           BlankMode
	blackImage     string
	idleImage      string
	powersaveAfter time.Duration
	monitorWake    time.Duration

	phase     Phase
	softSince time.Time
	frozen    bool
	killed    bool

	reassertMu   sync.Mutex
	reassertStop chan struct{}

	// Injected for tests.
	now   func() time.Time
	sleep func(time.Duration)
}

// NewManager creates a power manager with the compiled-in sleep strategy.
func NewManager(renderer Renderer, hw Hardware, cfg *config.Config) *Manager {
	m := &Manager{
		renderer: renderer,
		hw:       hw,
		strategy: SleepStrategy,
		phase:    Awake,
		now:      time.Now,
		sleep:    time.Sleep,
	}
	m.Reconfigure(cfg)
	return m
}

// Reconfigure replaces the manager's configuration-derived settings.
func (m *Manager) Reconfigure(cfg *config.Config) {
	m.mode = ParseBlankMode(cfg.Blanking.Mode)
	m.blackImage = cfg.Blanking.SleepBlackImage
	m.idleImage = cfg.UI.BackgroundImage
	m.powersaveAfter = cfg.Timeouts.PowersaveAfter()
	m.monitorWake = cfg.Timeouts.MonitorWake()
}

// Phase returns the current display power phase.
func (m *Manager) Phase() Phase { return m.phase }

// Sleep begins blanking per the configured mode. Hardware modes with a
// nonzero powersave delay stage through soft black first; the phase machine
// advances to hardware off later via MaybePowersave.
func (m *Manager) Sleep() {
	m.stopReassert()
	m.softSince = time.Time{}

	mode := m.mode
	switch mode {
	case BlankNone:
		return
	case BlankWayland:
		m.renderer.OSD([]string{"BLANK: WAYLAND", "Not implemented yet, using BLACK"}, 1500)
		mode = BlankBlack
	}

	if mode.Hardware() {
		if m.powersaveAfter > 0 {
			m.enterSoftBlack()
			return
		}
		m.enterHardwareOff()
		return
	}

	m.enterSoftBlack()
}

// MaybePowersave advances from soft black into hardware power-down once the
// configured delay has elapsed. Called by the controller each tick while
// asleep.
func (m *Manager) MaybePowersave(now time.Time) {
	if m.phase != SoftBlack || !m.mode.Hardware() || m.powersaveAfter <= 0 {
		return
	}
	if m.softSince.IsZero() || now.Sub(m.softSince) < m.powersaveAfter {
		return
	}
	m.enterHardwareOff()
}

// Wake reverses whatever blanking is active and restores normal rendering.
// Waking when already awake is a no-op.
func (m *Manager) Wake() {
	m.stopReassert()

	if m.phase == Awake {
		return
	}
	zlog.Info().Msgf("display: wake from %s", m.phase)

	if m.phase == HardwareOff {
		m.hw.PowerOn(m.mode)
		m.sleep(m.monitorWake)
	}

	if m.frozen {
		if err := m.renderer.Thaw(); err != nil {
			zlog.Warn().Msgf("display: thaw failed: %v", err)
		}
		m.frozen = false
	}
	if m.killed {
		if err := m.renderer.Restart(); err != nil {
			zlog.Warn().Msgf("display: engine restart failed: %v", err)
		} else {
			m.renderer.LoadIdle(m.idleImage, true)
		}
		m.killed = false
	}
	if m.strategy == StrategySoftCommand {
		m.renderer.SoftWake()
	}

	m.renderer.ForceBlack(false)
	m.softSince = time.Time{}
	m.phase = Awake
}

// CleanupOnExit unconditionally undoes any outstanding freeze and hardware
// power-down, regardless of which strategy was active.
func (m *Manager) CleanupOnExit() {
	m.stopReassert()
	if m.frozen {
		_ = m.renderer.Thaw()
		m.frozen = false
	}
	if m.phase == HardwareOff {
		m.hw.PowerOn(m.mode)
	}
	m.killed = false
	m.phase = Awake
}

// enterSoftBlack presents a black frame while keeping the monitor powered.
// Re-entry without an intervening wake is a no-op.
func (m *Manager) enterSoftBlack() {
	if m.phase == SoftBlack {
		return
	}

	if m.blackImage != "" && fileExists(m.blackImage) {
		m.renderer.LoadIdle(m.blackImage, true)
	} else {
		m.renderer.ForceBlack(true)
	}

	m.phase = SoftBlack
	m.softSince = m.now()
	zlog.Info().Msg("display: entered soft-black phase")
}

// enterHardwareOff neutralizes the renderer per the strategy, then powers
// the monitor down. Ordering matters: the renderer must be unable to redraw
// before the power-off is issued.
func (m *Manager) enterHardwareOff() {
	if m.phase == HardwareOff || !m.mode.Hardware() {
		return
	}

	switch m.strategy {
	case StrategyFreeze:
		if err := m.renderer.Freeze(); err != nil {
			zlog.Warn().Msgf("display: freeze failed: %v", err)
		} else {
			m.frozen = true
		}
	case StrategyTerminateAndRestart:
		m.renderer.Stop()
		m.killed = true
	case StrategySoftCommand:
		m.renderer.SoftSleep()
	case StrategyIgnore, StrategyPeriodicReassert:
		// Nothing to neutralize up front.
	}

	m.phase = HardwareOff
	m.softSince = time.Time{}
	m.hw.PowerOff(m.mode)

	if m.strategy == StrategyPeriodicReassert {
		m.startReassert()
	}

	zlog.Info().Msgf("display: hardware powersave (strategy=%s)", m.strategy)
}

// Frozen reports whether the renderer is currently frozen by this manager.
func (m *Manager) Frozen() bool { return m.frozen }

func (m *Manager) startReassert() {
	m.reassertMu.Lock()
	defer m.reassertMu.Unlock()
	if m.reassertStop != nil {
		return
	}
	stop := make(chan struct{})
	m.reassertStop = stop

	mode := m.mode
	go func() {
		zlog.Debug().Msgf("display: reassert loop start interval=%s", ReassertInterval)
		started := time.Now()
		ticker := time.NewTicker(ReassertInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				zlog.Debug().Msg("display: reassert loop stop")
				return
			case <-ticker.C:
				if ReassertMaxRuntime > 0 && time.Since(started) > ReassertMaxRuntime {
					return
				}
				m.hw.PowerOff(mode)
			}
		}
	}()
}

func (m *Manager) stopReassert() {
	m.reassertMu.Lock()
	defer m.reassertMu.Unlock()
	if m.reassertStop != nil {
		close(m.reassertStop)
		m.reassertStop = nil
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
