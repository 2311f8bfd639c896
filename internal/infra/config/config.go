// Package config provides configuration loading and atomic persistence.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	zlog "github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config represents the full kiosk configuration. It is loaded once at
// startup and replaced wholesale when a reload signal arrives; components
// never mutate it field by field.
type Config struct {
	Media     MediaConfig    `yaml:"media"`
	Button    ButtonConfig   `yaml:"button"`
	Passkey   PasskeyConfig  `yaml:"passkey"`
	Timeouts  TimeoutsConfig `yaml:"timeouts"`
	Blanking  BlankingConfig `yaml:"blanking"`
	Color     ColorConfig    `yaml:"color"`
	UI        UIConfig       `yaml:"ui"`
	Engine    EngineConfig   `yaml:"engine"`
	Playback  PlaybackConfig `yaml:"playback"`
	Schedule  ScheduleConfig `yaml:"schedule"`
	Subtitles SubtitleConfig `yaml:"subtitles"`
	Control   ControlConfig  `yaml:"control"`
	Web       WebConfig      `yaml:"web"`
}

// MediaConfig represents the media directories scanned for playable content.
type MediaConfig struct {
	VideoDir string `yaml:"video_dir" default:"./videos"`
	ImageDir string `yaml:"image_dir" default:"./images"`
}

// ButtonConfig represents the physical button wiring and press timing.
type ButtonConfig struct {
	Pin          int     `yaml:"pin" default:"17"`
	SubtitlePin  int     `yaml:"subtitle_pin" default:"27"`
	LEDPin       *int    `yaml:"led_pin"`
	BounceSec    float64 `yaml:"bounce_s" default:"0.05" validate:"gte=0"`
	LongPressSec float64 `yaml:"long_press_s" default:"1.0" validate:"gt=0"`
}

// PasskeyConfig represents the hidden menu passkey.
type PasskeyConfig struct {
	Code       string  `yaml:"code" default:".--..-" validate:"required"`
	TimeoutSec float64 `yaml:"timeout_s" default:"3.0" validate:"gt=0"`
}

// TimeoutsConfig represents the controller's wall-clock timeouts.
type TimeoutsConfig struct {
	IdleSec           float64 `yaml:"idle_s" default:"60.0" validate:"gt=0"`
	MenuSec           float64 `yaml:"menu_s" default:"60.0" validate:"gt=0"`
	MonitorWakeSec    float64 `yaml:"monitor_wake_s" default:"2.0" validate:"gte=0"`
	PowersaveAfterSec float64 `yaml:"powersave_after_s" default:"300.0" validate:"gte=0"`
}

// BlankingConfig represents how the physical display is blanked.
type BlankingConfig struct {
	Mode            string `yaml:"mode" default:"XSET" validate:"oneof=NONE BLACK XSET VCGENCMD WAYLAND"`
	SleepBlackImage string `yaml:"sleep_black_image" default:"./images/black.png"`
}

// ColorConfig represents the video color filter settings.
// Presets may be overridden or extended from the config file; the values are
// decoded into typed preset structs by the media package.
type ColorConfig struct {
	Preset     string                    `yaml:"preset" default:"VIVID"`
	Saturation float64                   `yaml:"saturation" default:"1.35"`
	Brightness float64                   `yaml:"brightness" default:"0.0"`
	Contrast   float64                   `yaml:"contrast" default:"1.0"`
	Gamma      float64                   `yaml:"gamma" default:"1.0"`
	Presets    map[string]map[string]any `yaml:"presets,omitempty"`
}

// UIConfig represents the on-screen text shown by the idle screen.
type UIConfig struct {
	Title           string `yaml:"title" default:"Kiosk"`
	Subtitle        string `yaml:"subtitle" default:"Press the button to start"`
	Loading         string `yaml:"loading" default:"Playing..."`
	BackgroundImage string `yaml:"background_image"`
}

// EngineConfig represents the external render engine process.
type EngineConfig struct {
	Binary     string `yaml:"binary" default:"mpv"`
	SocketPath string `yaml:"socket_path" default:"/tmp/kioskd-mpv.sock" validate:"required"`
	Hwdec      string `yaml:"hwdec" default:"no"`
	LogFile    string `yaml:"log_file" default:"/tmp/kioskd-mpv.log"`
	OSDIdleMs  int    `yaml:"osd_idle_ms" default:"120000" validate:"gt=0"`
	OSDMenuMs  int    `yaml:"osd_menu_ms" default:"1500" validate:"gt=0"`
	OSDPassMs  int    `yaml:"osd_pass_ms" default:"1500" validate:"gt=0"`
}

// PlaybackConfig represents playback behaviour.
type PlaybackConfig struct {
	LoopMode             string  `yaml:"loop_mode" default:"OFF" validate:"oneof=OFF SINGLE ALL RANDOM"`
	PlayMode             string  `yaml:"play_mode" default:"VIDEO" validate:"oneof=VIDEO SLIDESHOW"`
	ActiveIndex          int     `yaml:"active_index" default:"0" validate:"gte=0"`
	ExpoMode             bool    `yaml:"expo_mode"`
	SlideshowIntervalSec float64 `yaml:"slideshow_interval_s" default:"10.0" validate:"gt=0"`
}

// ScheduleConfig represents the daily window during which idle blanking is
// permitted. The window may wrap past midnight (e.g. 17:00 -> 09:00).
type ScheduleConfig struct {
	WindowEnable bool   `yaml:"window_enable" default:"true"`
	StartHHMM    string `yaml:"start_hhmm" default:"17:00"`
	EndHHMM      string `yaml:"end_hhmm" default:"09:00"`
}

// SubtitleConfig represents subtitle language selection behaviour.
type SubtitleConfig struct {
	Prefer           []string `yaml:"prefer" default:"[\"nl\",\"en\",\"de\",\"fr\",\"es\"]"`
	RestartWindowSec float64  `yaml:"restart_window_s" default:"3.0" validate:"gte=0"`
	RememberSec      float64  `yaml:"remember_s" default:"120.0" validate:"gt=0"`
	DefaultOn        bool     `yaml:"default_on"`
}

// ControlConfig represents the local datagram control channel.
// Same-host cooperative transport; the reload magic and button emulation
// share it deliberately and carry no authentication.
type ControlConfig struct {
	UDPAddr string `yaml:"udp_addr" default:"127.0.0.1:9999" validate:"required"`
}

// WebConfig represents the external admin web interface. Only the port is
// needed here: it is rendered into the idle-screen footer.
type WebConfig struct {
	Port int `yaml:"port" default:"8080" validate:"gte=0,lte=65535"`
}

// Load loads configuration from a YAML file, merging with defaults.
// A missing or unparsable file is not fatal: the built-in defaults are used
// and the repaired config is persisted back so the admin interface always
// finds a complete file.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	repair := false

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// File values land on top of the defaults, so persisted zero
		// values (powersave off, window disabled, zero saturation)
		// survive a reload instead of snapping back to their defaults.
		if uerr := yaml.Unmarshal(data, &cfg); uerr != nil {
			zlog.Warn().Msgf("config: parse failed, falling back to defaults: %v", uerr)
			cfg = Config{}
			if derr := defaults.Set(&cfg); derr != nil {
				return nil, errors.Wrap(derr, "failed to set defaults")
			}
			repair = true
		}
	case os.IsNotExist(err):
		zlog.Info().Msgf("config: %s not found, creating with defaults", path)
		repair = true
	default:
		return nil, errors.Wrap(err, "failed to read config file")
	}

	cfg.overrideFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	if repair {
		if err := cfg.Save(path); err != nil {
			zlog.Warn().Msgf("config: repair save failed: %v", err)
		}
	}

	return &cfg, nil
}

// Save persists the configuration atomically (temp file + rename) so the
// external admin interface never observes a half-written file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "failed to create config dir")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write temp config")
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrap(err, "failed to replace config")
	}
	return nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("KIOSKD_VIDEO_DIR"); v != "" {
		c.Media.VideoDir = v
	}
	if v := os.Getenv("KIOSKD_IMAGE_DIR"); v != "" {
		c.Media.ImageDir = v
	}
	if v := os.Getenv("KIOSKD_PASSKEY"); v != "" {
		c.Passkey.Code = v
	}
	if v := os.Getenv("KIOSKD_CONTROL_ADDR"); v != "" {
		c.Control.UDPAddr = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// Duration helpers. The YAML surface keeps seconds as plain numbers so the
// admin web form can edit them; the rest of the code works in time.Duration.

func secs(v float64) time.Duration { return time.Duration(v * float64(time.Second)) }

// Bounce returns the button debounce interval.
func (b ButtonConfig) Bounce() time.Duration { return secs(b.BounceSec) }

// LongPress returns the long-press classification threshold.
func (b ButtonConfig) LongPress() time.Duration { return secs(b.LongPressSec) }

// Timeout returns the passkey inter-symbol timeout.
func (p PasskeyConfig) Timeout() time.Duration { return secs(p.TimeoutSec) }

// Idle returns the idle timeout before auto-play or sleep.
func (t TimeoutsConfig) Idle() time.Duration { return secs(t.IdleSec) }

// Menu returns the menu inactivity timeout.
func (t TimeoutsConfig) Menu() time.Duration { return secs(t.MenuSec) }

// MonitorWake returns the settle delay after hardware power-on.
func (t TimeoutsConfig) MonitorWake() time.Duration { return secs(t.MonitorWakeSec) }

// PowersaveAfter returns the soft-black phase duration before hardware off.
func (t TimeoutsConfig) PowersaveAfter() time.Duration { return secs(t.PowersaveAfterSec) }

// SlideshowInterval returns the per-image slideshow duration.
func (p PlaybackConfig) SlideshowInterval() time.Duration { return secs(p.SlideshowIntervalSec) }

// RestartWindow returns the window after a subtitle change during which a
// short press restarts the current item.
func (s SubtitleConfig) RestartWindow() time.Duration { return secs(s.RestartWindowSec) }

// Remember returns how long a cycled subtitle preference stays active.
func (s SubtitleConfig) Remember() time.Duration { return secs(s.RememberSec) }
