package media

import (
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
)

// ColorPreset holds the four components of the render engine's eq filter.
type ColorPreset struct {
	Saturation float64 `mapstructure:"saturation"`
	Brightness float64 `mapstructure:"brightness"`
	Contrast   float64 `mapstructure:"contrast"`
	Gamma      float64 `mapstructure:"gamma"`
}

// CustomPreset is the label under which the four numeric config components
// are used directly instead of a named preset.
const CustomPreset = "CUSTOM"

// builtinPresets are the factory color presets. Names are uppercase.
var builtinPresets = map[string]ColorPreset{
	"NEUTRAL":      {Saturation: 1.00, Brightness: 0.00, Contrast: 1.00, Gamma: 1.00},
	"VIVID":        {Saturation: 1.35, Brightness: 0.00, Contrast: 1.05, Gamma: 1.00},
	"PUNCHY":       {Saturation: 1.25, Brightness: 0.03, Contrast: 1.15, Gamma: 0.95},
	"CRAZY":        {Saturation: 1.70, Brightness: 0.05, Contrast: 1.20, Gamma: 0.90},
	"BLACK&WHITE":  {Saturation: 0.00, Brightness: -0.15, Contrast: 1.10, Gamma: 1.00},
	"B&W FLAT":     {Saturation: 0.00, Brightness: 0.00, Contrast: 1.00, Gamma: 1.00},
	"B&W CINEMA":   {Saturation: 0.00, Brightness: 0.02, Contrast: 1.12, Gamma: 0.95},
	"SEPIA":        {Saturation: 0.35, Brightness: 0.05, Contrast: 1.05, Gamma: 0.90},
	"SEPIA SUBTLE": {Saturation: 0.50, Brightness: 0.03, Contrast: 1.03, Gamma: 0.95},
}

// PresetTable resolves preset names to filter components, optionally extended
// or overridden by config-supplied preset definitions.
type PresetTable struct {
	presets map[string]ColorPreset
}

// NewPresetTable builds a preset table from the built-ins plus the given
// overrides (raw settings maps from the config file). Malformed override
// entries are logged and skipped.
func NewPresetTable(overrides map[string]map[string]any) *PresetTable {
	presets := make(map[string]ColorPreset, len(builtinPresets)+len(overrides))
	for name, p := range builtinPresets {
		presets[name] = p
	}
	for name, raw := range overrides {
		var p ColorPreset
		if err := mapstructure.Decode(raw, &p); err != nil {
			zlog.Warn().Msgf("media: bad color preset %q: %v", name, err)
			continue
		}
		presets[strings.ToUpper(name)] = p
	}
	return &PresetTable{presets: presets}
}

// Resolve returns the preset for name. For CUSTOM or an unknown name the
// fallback components are returned unchanged.
func (t *PresetTable) Resolve(name string, custom ColorPreset) ColorPreset {
	name = strings.ToUpper(name)
	if name == CustomPreset {
		return custom
	}
	if p, ok := t.presets[name]; ok {
		return p
	}
	return custom
}

// Has reports whether name is a known preset.
func (t *PresetTable) Has(name string) bool {
	_, ok := t.presets[strings.ToUpper(name)]
	return ok
}

// Names returns the preset names in sorted order, with CUSTOM appended last
// so menu cycling always ends on the free-form entry.
func (t *PresetTable) Names() []string {
	names := make([]string, 0, len(t.presets)+1)
	for name := range t.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return append(names, CustomPreset)
}
