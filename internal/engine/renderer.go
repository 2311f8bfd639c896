package engine

import (
	"fmt"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/museumtech/kioskd/internal/domain/media"
	"github.com/museumtech/kioskd/internal/infra/config"
)

// Engine event names and end-file reasons the controller cares about.
const (
	EventEndFile    = "end-file"
	EventFileLoaded = "file-loaded"
	ReasonEOF       = "eof"
)

const (
	connectTimeout        = 5 * time.Second
	defaultCommandTimeout = time.Second
)

// Renderer is the high-level facade over the engine process and its IPC
// channel. All calls are best-effort: IPC failures are logged and swallowed
// so the kiosk keeps cycling through states even when a command is lost.
type Renderer struct {
	proc *Process
	ipc  *Client

	mu      sync.Mutex
	cfg     *config.Config
	presets *media.PresetTable

	idlePath    string
	showingIdle bool
}

// NewRenderer creates a renderer facade from the given configuration.
func NewRenderer(cfg *config.Config) *Renderer {
	return &Renderer{
		proc: NewProcess(ProcessConfig{
			Binary:     cfg.Engine.Binary,
			SocketPath: cfg.Engine.SocketPath,
			Hwdec:      cfg.Engine.Hwdec,
			LogFile:    cfg.Engine.LogFile,
		}),
		ipc:     NewClient(cfg.Engine.SocketPath),
		cfg:     cfg,
		presets: media.NewPresetTable(cfg.Color.Presets),
	}
}

// Reconfigure replaces the renderer's configuration wholesale and reapplies
// the color filter. Called by the controller on a reload signal.
func (r *Renderer) Reconfigure(cfg *config.Config) {
	r.mu.Lock()
	r.cfg = cfg
	r.presets = media.NewPresetTable(cfg.Color.Presets)
	r.mu.Unlock()
	r.ApplyColor()
}

// Start launches the engine process, connects the control channel, and
// subscribes to the events the controller consumes.
func (r *Renderer) Start() error {
	if err := r.proc.Start(); err != nil {
		return err
	}
	if err := r.ipc.Connect(connectTimeout); err != nil {
		r.proc.Terminate()
		return err
	}

	r.command("enable_event", EventEndFile)
	r.command("enable_event", EventFileLoaded)
	r.setProperty("osd-fractions", false)
	r.ApplyColor()
	return nil
}

// Stop quits the engine politely, then terminates the process.
func (r *Renderer) Stop() {
	r.command("quit")
	r.ipc.Close()
	r.proc.Terminate()
}

// Restart brings up a fresh engine process after a Stop. Used by the
// TERMINATE_AND_RESTART blanking strategy on wake.
func (r *Renderer) Restart() error {
	r.ipc = NewClient(r.proc.cfg.SocketPath)
	return r.Start()
}

// Alive reports whether the engine process is running.
func (r *Renderer) Alive() bool { return r.proc.Alive() }

// Frozen reports whether the engine process is SIGSTOPped.
func (r *Renderer) Frozen() bool { return r.proc.Suspended() }

// Freeze SIGSTOPs the engine so it cannot repaint.
func (r *Renderer) Freeze() error { return r.proc.Suspend() }

// Thaw SIGCONTs a frozen engine.
func (r *Renderer) Thaw() error { return r.proc.Resume() }

// SoftSleep asks the engine over IPC to stop producing frames: OSD off,
// paused, nothing loaded. Weakest neutralization, but fully reversible.
func (r *Renderer) SoftSleep() {
	r.setProperty("osd-level", 0)
	r.setProperty("pause", true)
	r.command("stop")
}

// SoftWake reverses SoftSleep. The idle screen is reloaded separately.
func (r *Renderer) SoftWake() {
	r.setProperty("osd-level", 1)
	r.setProperty("pause", false)
}

// ApplyColor applies the configured color preset as a video filter.
func (r *Renderer) ApplyColor() {
	r.mu.Lock()
	cfg := r.cfg
	p := r.presets.Resolve(cfg.Color.Preset, media.ColorPreset{
		Saturation: cfg.Color.Saturation,
		Brightness: cfg.Color.Brightness,
		Contrast:   cfg.Color.Contrast,
		Gamma:      cfg.Color.Gamma,
	})
	r.mu.Unlock()
	r.SetColor(p)
}

// SetColor applies the given filter components with three-decimal precision.
func (r *Renderer) SetColor(p media.ColorPreset) {
	vf := fmt.Sprintf("eq=saturation=%.3f:brightness=%.3f:contrast=%.3f:gamma=%.3f",
		p.Saturation, p.Brightness, p.Contrast, p.Gamma)
	zlog.Debug().Msgf("engine: apply vf %s", vf)
	r.setProperty("vf", vf)
}

// ForceBlack drives the output fully dark via a zero-brightness filter, or
// restores the configured colors.
func (r *Renderer) ForceBlack(on bool) {
	if on {
		r.setProperty("vf", "eq=brightness=-1.000")
		return
	}
	r.ApplyColor()
}

// LoadIdle shows the idle background image, or a blank screen when none is
// configured. Repeat calls with the same image are elided unless forced.
func (r *Renderer) LoadIdle(img string, force bool) {
	r.mu.Lock()
	if !force && r.showingIdle && img == r.idlePath {
		r.mu.Unlock()
		return
	}
	r.idlePath = img
	r.showingIdle = true
	r.mu.Unlock()

	r.ShowText("", 1)
	if img != "" {
		zlog.Debug().Msgf("engine: idle loadfile %s", img)
		r.command("loadfile", img, "replace")
		r.setProperty("loop-file", "no")
		return
	}
	r.command("stop")
}

// PlayFile starts playback of a media file, optionally looping it forever.
func (r *Renderer) PlayFile(path string, loopInf bool) {
	r.mu.Lock()
	r.showingIdle = false
	r.mu.Unlock()

	loop := "no"
	if loopInf {
		loop = "inf"
	}
	zlog.Debug().Msgf("engine: loadfile %s loop=%s", path, loop)
	r.command("loadfile", path, "replace")
	r.setProperty("loop-file", loop)
}

// StopMedia stops playback and restores the idle background.
func (r *Renderer) StopMedia() {
	r.command("stop")
	r.mu.Lock()
	idle := r.idlePath
	r.mu.Unlock()
	r.LoadIdle(idle, true)
}

// Seek seeks to an absolute position in seconds within the current item.
func (r *Renderer) Seek(seconds float64) error {
	_, err := r.ipc.Command("seek", seconds, "absolute")
	return err
}

// OSD renders the given lines as a single on-screen text block.
func (r *Renderer) OSD(lines []string, durationMs int) {
	txt := ""
	for i, l := range lines {
		if i > 0 {
			txt += "\n"
		}
		txt += l
	}
	r.ShowText(txt, durationMs)
}

// ShowText displays a transient on-screen message.
func (r *Renderer) ShowText(text string, durationMs int) {
	if err := r.ipc.ShowText(text, durationMs); err != nil {
		zlog.Debug().Msgf("engine: show-text: %v", err)
	}
}

// SetFooter draws the small idle-screen footer as an ASS overlay.
func (r *Renderer) SetFooter(text string, durationMs int) {
	r.command("osd-overlay", 99, "ass-events", "{\\an1\\fs8}"+text, durationMs)
}

// ClearFooter removes the footer overlay.
func (r *Renderer) ClearFooter() {
	r.command("osd-overlay", 99, "ass-events", "", 1)
}

// GetProperty queries an engine property; (nil, false) on error or timeout.
func (r *Renderer) GetProperty(name string, timeout time.Duration) (any, bool) {
	return r.ipc.GetProperty(name, timeout)
}

// SetProperty assigns an engine property, best-effort.
func (r *Renderer) SetProperty(name string, value any) {
	r.setProperty(name, value)
}

// DrainEvents returns all engine events queued since the last drain.
func (r *Renderer) DrainEvents() []Event {
	return r.ipc.DrainEvents()
}

func (r *Renderer) command(args ...any) {
	if _, err := r.ipc.Command(args...); err != nil {
		zlog.Debug().Msgf("engine: command %v: %v", args, err)
	}
}

func (r *Renderer) setProperty(name string, value any) {
	if err := r.ipc.SetProperty(name, value); err != nil {
		zlog.Debug().Msgf("engine: set %s: %v", name, err)
	}
}
