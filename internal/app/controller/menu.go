package controller

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/museumtech/kioskd/internal/app/display"
	"github.com/museumtech/kioskd/internal/domain/media"
)

// Menu entry positions. The cursor index maps directly into the slice
// returned by menuItems.
const (
	menuLoop = iota
	menuVideo
	menuBackground
	menuColor
	menuSaturation
	menuBrightness
	menuContrast
	menuGamma
	menuBlank
	menuPowersave
	menuTimeout
	menuBlankNow
	menuExit
	menuItemCount
)

var (
	timeoutChoices   = []float64{5, 10, 30, 60, 90, 180, 300, 600}
	powersaveChoices = []float64{0, 300, 600, 1800}

	saturationSteps = []float64{0.0, 0.35, 0.50, 0.75, 0.90, 1.00, 1.10, 1.25, 1.35, 1.50, 1.70}
	brightnessSteps = []float64{-0.25, -0.10, -0.05, 0.00, 0.03, 0.06, 0.10, 0.25}
	contrastSteps   = []float64{0.85, 0.90, 0.95, 1.00, 1.05, 1.10, 1.15, 1.20, 1.30}
	gammaSteps      = []float64{0.85, 0.90, 0.95, 1.00, 1.05, 1.10, 1.20, 1.5}
)

// nextStep snaps the current value to the nearest entry in steps and
// returns the following entry, wrapping at the end.
func nextStep(steps []float64, cur float64) float64 {
	best := 0
	for i, s := range steps {
		if math.Abs(s-cur) < math.Abs(steps[best]-cur) {
			best = i
		}
	}
	return steps[(best+1)%len(steps)]
}

// menuItems renders one label per menu entry reflecting the live settings.
func (c *Controller) menuItems() []string {
	items := make([]string, menuItemCount)

	items[menuLoop] = "LOOP: " + c.cfg.Playback.LoopMode

	if len(c.videos) > 0 {
		name := filepath.Base(c.videos[c.activeVideo%len(c.videos)])
		items[menuVideo] = fmt.Sprintf("VIDEO: %d/%d  %s", c.activeVideo+1, len(c.videos), name)
	} else {
		items[menuVideo] = "VIDEO: (none)"
	}

	if bg := c.cfg.UI.BackgroundImage; bg != "" {
		items[menuBackground] = "BG: " + filepath.Base(bg)
	} else {
		items[menuBackground] = "BG: (none)"
	}

	items[menuColor] = "COLOR: " + c.cfg.Color.Preset
	if c.cfg.Color.Preset == media.CustomPreset {
		items[menuSaturation] = fmt.Sprintf("SAT: %.2f", c.cfg.Color.Saturation)
		items[menuBrightness] = fmt.Sprintf("BRI: %+.2f", c.cfg.Color.Brightness)
		items[menuContrast] = fmt.Sprintf("CON: %.2f", c.cfg.Color.Contrast)
		items[menuGamma] = fmt.Sprintf("GAM: %.2f", c.cfg.Color.Gamma)
	} else {
		items[menuSaturation] = "SAT: (preset)"
		items[menuBrightness] = "BRI: (preset)"
		items[menuContrast] = "CON: (preset)"
		items[menuGamma] = "GAM: (preset)"
	}

	items[menuBlank] = "BLANK: " + c.cfg.Blanking.Mode

	ps := int(math.Round(c.cfg.Timeouts.PowersaveAfterSec))
	if ps <= 0 {
		items[menuPowersave] = "POWERSAVE AFTER: OFF"
	} else {
		items[menuPowersave] = fmt.Sprintf("POWERSAVE AFTER: %ds", ps)
	}

	items[menuTimeout] = fmt.Sprintf("TIMEOUT: %ds", int(c.cfg.Timeouts.IdleSec))
	items[menuBlankNow] = "BLANK NOW"
	items[menuExit] = "EXIT"

	return items
}

func (c *Controller) renderMenu() {
	items := c.menuItems()
	shown := make([]string, 0, len(items)+4)
	shown = append(shown, "MENU", "")
	for i, s := range items {
		marker := "  "
		if i == c.menuIndex {
			marker = "> "
		}
		shown = append(shown, marker+s)
	}
	shown = append(shown, "", "Short=next   Long=select")
	c.renderer.OSD(shown, c.cfg.Engine.OSDMenuMs)
}

// menuSelect executes the long-press action for the entry under the cursor.
func (c *Controller) menuSelect() {
	switch c.menuIndex {
	case menuLoop:
		c.cfg.Playback.LoopMode = media.ParseLoopMode(c.cfg.Playback.LoopMode).Next().String()
		c.persist()

	case menuVideo:
		if len(c.videos) > 0 {
			c.activeVideo = (c.activeVideo + 1) % len(c.videos)
			c.persist()
		}

	case menuBackground:
		c.cycleBackground()

	case menuColor:
		c.cfg.Color.Preset = c.nextPreset(c.cfg.Color.Preset)
		c.persist()
		c.renderer.ApplyColor()

	case menuSaturation:
		if c.cfg.Color.Preset == media.CustomPreset {
			c.cfg.Color.Saturation = nextStep(saturationSteps, c.cfg.Color.Saturation)
			c.persist()
			c.renderer.ApplyColor()
		}

	case menuBrightness:
		if c.cfg.Color.Preset == media.CustomPreset {
			c.cfg.Color.Brightness = nextStep(brightnessSteps, c.cfg.Color.Brightness)
			c.persist()
			c.renderer.ApplyColor()
		}

	case menuContrast:
		if c.cfg.Color.Preset == media.CustomPreset {
			c.cfg.Color.Contrast = nextStep(contrastSteps, c.cfg.Color.Contrast)
			c.persist()
			c.renderer.ApplyColor()
		}

	case menuGamma:
		if c.cfg.Color.Preset == media.CustomPreset {
			c.cfg.Color.Gamma = nextStep(gammaSteps, c.cfg.Color.Gamma)
			c.persist()
			c.renderer.ApplyColor()
		}

	case menuBlank:
		c.cfg.Blanking.Mode = display.ParseBlankMode(c.cfg.Blanking.Mode).Next().String()
		c.persist()
		c.power.Reconfigure(c.cfg)

	case menuPowersave:
		c.cfg.Timeouts.PowersaveAfterSec = nextStep(powersaveChoices, c.cfg.Timeouts.PowersaveAfterSec)
		c.persist()
		c.power.Reconfigure(c.cfg)

	case menuTimeout:
		c.cfg.Timeouts.IdleSec = nextStep(timeoutChoices, c.cfg.Timeouts.IdleSec)
		c.persist()

	case menuBlankNow:
		c.sleepDisplay()
		return

	case menuExit:
		c.enterIdle()
		return
	}

	c.renderMenu()
}

// nextPreset advances through the preset table names (CUSTOM last).
func (c *Controller) nextPreset(cur string) string {
	names := c.presets.Names()
	for i, n := range names {
		if n == cur {
			return names[(i+1)%len(names)]
		}
	}
	return names[0]
}

// cycleBackground steps the idle background through none plus every image in
// the image directory, persisting and redrawing immediately.
func (c *Controller) cycleBackground() {
	c.images = media.ScanImages(c.cfg.Media.ImageDir)
	options := append([]string{""}, c.images...)

	pos := 0
	for i, o := range options {
		if o == c.cfg.UI.BackgroundImage {
			pos = i
			break
		}
	}
	c.cfg.UI.BackgroundImage = options[(pos+1)%len(options)]
	c.persist()
	c.power.Reconfigure(c.cfg)
	c.renderer.LoadIdle(c.cfg.UI.BackgroundImage, true)
}
