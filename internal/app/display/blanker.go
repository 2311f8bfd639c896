package display

import (
	"os/exec"

	zlog "github.com/rs/zerolog/log"
)

// Hardware issues the monitor power commands for a blank mode.
type Hardware interface {
	PowerOff(mode BlankMode)
	PowerOn(mode BlankMode)
}

// CommandHardware shells out to the platform blanking tools. All calls are
// best-effort: a failed command is logged and the kiosk keeps going.
type CommandHardware struct{}

// PowerOff physically powers the monitor down.
func (CommandHardware) PowerOff(mode BlankMode) {
	switch mode {
	case BlankXset:
		run("xset", "dpms", "force", "off")
	case BlankVcgencmd:
		run("vcgencmd", "display_power", "0")
	}
}

// PowerOn physically powers the monitor up.
func (CommandHardware) PowerOn(mode BlankMode) {
	switch mode {
	case BlankXset:
		run("xset", "dpms", "force", "on")
	case BlankVcgencmd:
		run("vcgencmd", "display_power", "1")
	}
}

func run(argv ...string) {
	out, err := exec.Command(argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		zlog.Warn().Msgf("display: %v failed: %v (%s)", argv, err, trimOutput(out))
		return
	}
	zlog.Debug().Msgf("display: ran %v", argv)
}

func trimOutput(b []byte) string {
	const max = 200
	if len(b) > max {
		b = b[len(b)-max:]
	}
	return string(b)
}
