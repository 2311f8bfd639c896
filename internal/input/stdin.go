package input

import (
	"bufio"
	"context"
	"io"
	"strings"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// RunConsoleEmulation reads button emulation lines from r (normally stdin)
// for development machines without GPIO: "s" injects a short press, "l" a
// long press. It returns when r is exhausted or ctx is canceled.
func RunConsoleEmulation(ctx context.Context, r io.Reader, primary *Queue) {
	zlog.Info().Msg("input: console emulation enabled (type 's' or 'l' + enter)")

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "s":
			primary.PushPress(time.Now(), shortPressHold)
		case "l":
			primary.PushPress(time.Now(), 2*time.Second)
		}
	}
}
