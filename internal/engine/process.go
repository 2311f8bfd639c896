package engine

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

const (
	socketWaitTimeout = 5 * time.Second
	socketWaitPoll    = 50 * time.Millisecond
)

// ProcessConfig describes how the render engine binary is launched.
type ProcessConfig struct {
	Binary     string
	SocketPath string
	Hwdec      string
	LogFile    string
}

// Process supervises the external render engine process. Suspend and Resume
// wrap SIGSTOP/SIGCONT and must occur in strictly alternating pairs; the
// display power manager enforces that ordering.
type Process struct {
	cfg ProcessConfig

	mu        sync.Mutex
	cmd       *exec.Cmd
	exited    chan struct{}
	suspended bool
}

// NewProcess creates a supervisor for the engine binary.
func NewProcess(cfg ProcessConfig) *Process {
	return &Process{cfg: cfg}
}

// Start launches the engine with the fixed kiosk argument set and waits for
// its IPC socket to appear. An engine that exits before creating the socket
// is a startup failure.
func (p *Process) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.Remove(p.cfg.SocketPath); err != nil && !os.IsNotExist(err) {
		zlog.Warn().Msgf("engine: stale socket remove failed: %v", err)
	}

	args := []string{
		"--fs",
		"--no-border",
		"--no-terminal",
		"--force-window=yes",
		"--vo=gpu",
		"--gpu-api=opengl",
		fmt.Sprintf("--hwdec=%s", p.cfg.Hwdec),
		"--osd-align-x=center",
		"--osd-align-y=top",
		"--osd-level=1",
		"--osd-font-size=36",
		"--no-osc",
		"--video-sync=audio",
		"--cursor-autohide=always",
		"--input-default-bindings=no",
		"--input-vo-keyboard=no",
		fmt.Sprintf("--input-ipc-server=%s", p.cfg.SocketPath),
		"--idle=yes",
		"--image-display-duration=inf",
		"--loop-file=no",
		fmt.Sprintf("--log-file=%s", p.cfg.LogFile),
	}

	zlog.Info().Msgf("engine: starting %s", p.cfg.Binary)
	cmd := exec.Command(p.cfg.Binary, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil
	// Own process group so the engine does not receive the daemon's signals.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "start engine")
	}

	exited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(exited)
	}()

	deadline := time.Now().Add(socketWaitTimeout)
	for {
		if _, err := os.Stat(p.cfg.SocketPath); err == nil {
			break
		}
		select {
		case <-exited:
			return errors.Newf("engine exited before creating ipc socket; see %s", p.cfg.LogFile)
		default:
		}
		if time.Now().After(deadline) {
			_ = cmd.Process.Kill()
			return errors.Newf("engine ipc socket did not appear at %s", p.cfg.SocketPath)
		}
		time.Sleep(socketWaitPoll)
	}

	p.cmd = cmd
	p.exited = exited
	p.suspended = false
	return nil
}

// Alive reports whether the engine process is still running.
func (p *Process) Alive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil {
		return false
	}
	select {
	case <-p.exited:
		return false
	default:
		return true
	}
}

// Terminate asks the engine process to exit. Best-effort.
func (p *Process) Terminate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || p.cmd.Process == nil {
		return
	}
	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		zlog.Debug().Msgf("engine: terminate: %v", err)
	}
	p.cmd = nil
	p.suspended = false
}

// Suspend freezes the engine with SIGSTOP so it cannot repaint and wake the
// display. A no-op when already suspended or not running.
func (p *Process) Suspend() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || p.cmd.Process == nil || p.suspended {
		return nil
	}
	if err := unix.Kill(p.cmd.Process.Pid, unix.SIGSTOP); err != nil {
		return errors.Wrap(err, "sigstop engine")
	}
	zlog.Info().Msgf("engine: suspended pid=%d", p.cmd.Process.Pid)
	p.suspended = true
	return nil
}

// Resume thaws a suspended engine with SIGCONT.
func (p *Process) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || p.cmd.Process == nil || !p.suspended {
		return nil
	}
	if err := unix.Kill(p.cmd.Process.Pid, unix.SIGCONT); err != nil {
		return errors.Wrap(err, "sigcont engine")
	}
	zlog.Info().Msgf("engine: resumed pid=%d", p.cmd.Process.Pid)
	p.suspended = false
	return nil
}

// Suspended reports whether the process is currently frozen.
func (p *Process) Suspended() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.suspended
}
