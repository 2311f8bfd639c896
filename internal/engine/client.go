// Package engine owns the external render engine: its process lifecycle and
// the newline-delimited JSON control channel over its unix socket.
package engine

import (
	"bufio"
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Errors
var (
	ErrNotConnected   = errors.New("engine: ipc not connected")
	ErrConnectTimeout = errors.New("engine: ipc connect timeout")
	ErrReplyTimeout   = errors.New("engine: reply timeout")
)

const connectRetryInterval = 50 * time.Millisecond

// Event is an asynchronous out-of-band message from the render engine.
type Event struct {
	Name   string // e.g. "end-file", "file-loaded"
	Reason string // e.g. "eof" for end-file
}

// Reply is the engine's answer to a correlated command.
type Reply struct {
	RequestID int
	Err       string
	Data      any
}

// Ok reports whether the engine accepted the command.
func (r Reply) Ok() bool { return r.Err == "success" }

type wireMsg struct {
	Event     string `json:"event,omitempty"`
	Reason    string `json:"reason,omitempty"`
	RequestID int    `json:"request_id,omitempty"`
	Error     string `json:"error,omitempty"`
	Data      any    `json:"data,omitempty"`
}

type wireReq struct {
	Command   []any `json:"command"`
	RequestID int   `json:"request_id"`
}

// Client maintains the single long-lived control connection to the render
// engine. Commands carry monotonically increasing correlation ids; a reader
// goroutine demultiplexes replies to their waiters and queues events for the
// controller to drain each tick. Producers never block: the event queue is an
// append-only slice emptied wholesale by DrainEvents.
type Client struct {
	socketPath string

	mu      sync.Mutex
	conn    net.Conn
	nextID  int
	pending map[int]chan Reply

	evMu   sync.Mutex
	events []Event
}

// NewClient creates a client for the engine socket at path.
func NewClient(path string) *Client {
	return &Client{
		socketPath: path,
		nextID:     1,
		pending:    make(map[int]chan Reply),
	}
}

// Connect dials the engine socket, retrying at a short fixed interval until
// the socket accepts or the timeout elapses, then starts the reader.
func (c *Client) Connect(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		conn, err := net.Dial("unix", c.socketPath)
		if err == nil {
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
			zlog.Info().Msgf("engine: ipc connected %s", c.socketPath)
			go c.readLoop(conn)
			return nil
		}
		if time.Now().After(deadline) {
			return errors.Wrapf(ErrConnectTimeout, "dial %s: %v", c.socketPath, err)
		}
		time.Sleep(connectRetryInterval)
	}
}

// Close tears down the connection. Outstanding waiters receive a timeout.
func (c *Client) Close() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// Command sends a fire-and-forget command and returns its correlation id.
func (c *Client) Command(args ...any) (int, error) {
	id, _, err := c.send(args, false)
	return id, err
}

// CommandReply sends a command and blocks until the matching reply arrives or
// the timeout elapses. Concurrent callers may be outstanding simultaneously.
func (c *Client) CommandReply(timeout time.Duration, args ...any) (Reply, error) {
	id, ch, err := c.send(args, true)
	if err != nil {
		return Reply{}, err
	}

	select {
	case rep := <-ch:
		return rep, nil
	case <-time.After(timeout):
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return Reply{}, errors.Wrapf(ErrReplyTimeout, "request %d", id)
	}
}

// GetProperty queries a property value. Any error or timeout yields
// (nil, false) so callers can treat "unknown" uniformly.
func (c *Client) GetProperty(name string, timeout time.Duration) (any, bool) {
	rep, err := c.CommandReply(timeout, "get_property", name)
	if err != nil {
		zlog.Debug().Msgf("engine: get_property %s: %v", name, err)
		return nil, false
	}
	if !rep.Ok() {
		return nil, false
	}
	return rep.Data, true
}

// SetProperty issues a fire-and-forget property assignment.
func (c *Client) SetProperty(name string, value any) error {
	_, err := c.Command("set_property", name, value)
	return err
}

// ShowText displays an on-screen message for the given duration.
func (c *Client) ShowText(text string, durationMs int) error {
	_, err := c.Command("show-text", text, durationMs)
	return err
}

// DrainEvents returns and clears all queued engine events.
func (c *Client) DrainEvents() []Event {
	c.evMu.Lock()
	defer c.evMu.Unlock()
	evs := c.events
	c.events = nil
	return evs
}

func (c *Client) send(args []any, wantReply bool) (int, chan Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return 0, nil, ErrNotConnected
	}

	id := c.nextID
	c.nextID++

	data, err := json.Marshal(wireReq{Command: args, RequestID: id})
	if err != nil {
		return 0, nil, errors.Wrap(err, "marshal command")
	}

	var ch chan Reply
	if wantReply {
		ch = make(chan Reply, 1)
		c.pending[id] = ch
	}

	if _, err := c.conn.Write(append(data, '\n')); err != nil {
		delete(c.pending, id)
		return 0, nil, errors.Wrap(err, "write command")
	}
	return id, ch, nil
}

func (c *Client) readLoop(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var msg wireMsg
		if err := json.Unmarshal(line, &msg); err != nil {
			zlog.Debug().Msgf("engine: bad ipc line: %v", err)
			continue
		}

		if msg.Event != "" {
			c.evMu.Lock()
			c.events = append(c.events, Event{Name: msg.Event, Reason: msg.Reason})
			c.evMu.Unlock()
			continue
		}

		if msg.RequestID != 0 {
			c.mu.Lock()
			ch, ok := c.pending[msg.RequestID]
			if ok {
				delete(c.pending, msg.RequestID)
			}
			c.mu.Unlock()
			if ok {
				ch <- Reply{RequestID: msg.RequestID, Err: msg.Error, Data: msg.Data}
			}
		}
	}

	zlog.Debug().Msgf("engine: ipc reader stopped: %v", scanner.Err())
}
