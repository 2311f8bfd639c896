package input

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// ConfigChangedMagic is the datagram payload the admin interface sends after
// saving the configuration file.
const ConfigChangedMagic = "CONFIG_CHANGED\n"

// Synthetic press hold durations used for emulated button presses. The long
// hold must exceed any sane long-press threshold.
const (
	shortPressHold    = 100 * time.Millisecond
	longPressHold     = 1200 * time.Millisecond
	subtitlePressHold = 100 * time.Millisecond
)

// ControlListener receives plaintext control datagrams on the loopback
// interface and translates them into synthetic button events. This is a
// cooperative same-host channel shared with the admin web interface; it
// deliberately carries no authentication.
type ControlListener struct {
	addr    string
	primary *Queue
	sub     *Queue
}

// NewControlListener creates a listener feeding the given queues.
func NewControlListener(addr string, primary, sub *Queue) *ControlListener {
	return &ControlListener{addr: addr, primary: primary, sub: sub}
}

// Run binds the datagram socket and processes commands until ctx is
// canceled. Individual bad datagrams are ignored; only bind failures are
// returned.
func (l *ControlListener) Run(ctx context.Context) error {
	conn, err := net.ListenPacket("udp", l.addr)
	if err != nil {
		return errors.Wrapf(err, "bind control socket %s", l.addr)
	}
	defer conn.Close()

	zlog.Info().Msgf("input: control listening on %s", l.addr)

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	buf := make([]byte, 1024)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			zlog.Debug().Msgf("input: control read: %v", err)
			continue
		}
		l.dispatch(string(buf[:n]))
	}
}

func (l *ControlListener) dispatch(payload string) {
	if payload == ConfigChangedMagic {
		l.primary.Push(Event{Kind: Config, At: time.Now()})
		return
	}

	now := time.Now()
	switch strings.ToLower(strings.TrimSpace(payload)) {
	case "short":
		l.primary.PushPress(now, shortPressHold)
	case "long":
		l.primary.PushPress(now, longPressHold)
	case "sub", "subtitle":
		l.sub.PushPress(now, subtitlePressHold)
	case "subdown", "subtitle_down":
		l.sub.Push(Event{Kind: Down, At: now})
	case "subup", "subtitle_up":
		l.sub.Push(Event{Kind: Up, At: now})
	default:
		zlog.Debug().Msgf("input: unknown control command %q", payload)
	}
}
