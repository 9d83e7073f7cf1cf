package ioctl

import (
	"fmt"
	"sync"

	"github.com/thinkparq/devctl/common/devmsg"
)

// State is the server side state of a device control request.
type State int

const (
	// The request has been decoded and is waiting for the handler.
	StateUnpacked State = iota + 1
	// The handler is running.
	StateExecuting
	// The response has been built. Terminal.
	StateResponded
)

func (s State) String() string {
	switch s {
	case StateUnpacked:
		return "unpacked"
	case StateExecuting:
		return "executing"
	case StateResponded:
		return "responded"
	default:
		return "unknown"
	}
}

// Handler runs a decoded request. Data returned together with a nil error is copied into the response,
// a non-nil error is mapped to a status with StatusOf and any data is dropped.
type Handler func(req *Request) ([]byte, error)

// Call tracks a single request from decoding to its response and makes sure it is responded to exactly
// once.
type Call struct {
	mu    sync.Mutex
	msg   *devmsg.Msg
	req   Request
	state State
}

// Begin decodes m. If decoding fails, the error response is written right away and the returned Call
// is already in StateResponded, so the handler is never invoked for malformed requests.
func Begin(m *devmsg.Msg) (*Call, error) {
	c := &Call{msg: m}

	req, err := UnpackEx(m)
	if err != nil {
		var cmd Cmd
		if in, ok := m.DevCtlIn(); ok {
			cmd = Cmd(in.Request)
		}
		c.req = Request{Cmd: cmd, Sender: SenderPID(m)}
		SetResponseErr(m, cmd, StatusOf(err))
		c.state = StateResponded
		return c, err
	}

	c.req = req
	c.state = StateUnpacked
	return c, nil
}

// State returns the current state.
func (c *Call) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Request returns the decoded request. After the response has been built, Output is released and
// Input must no longer be used.
func (c *Call) Request() *Request {
	return &c.req
}

// Msg returns the message the call responds to.
func (c *Call) Msg() *devmsg.Msg {
	return c.msg
}

// Execute runs h and responds with its result. It returns the error of the handler, so callers can log
// it, or ErrAlreadyResponded if the call was not waiting for a handler. If the handler responds on its
// own through Respond or Fail, that response is kept.
func (c *Call) Execute(h Handler) error {
	c.mu.Lock()
	switch c.state {
	case StateUnpacked:
	case StateResponded:
		c.mu.Unlock()
		return ErrAlreadyResponded
	default:
		c.mu.Unlock()
		return fmt.Errorf("cannot execute request in state %s", c.state)
	}
	c.state = StateExecuting
	c.mu.Unlock()

	data, err := h(&c.req)
	if err != nil {
		data = nil
	}

	// A response sent by the handler itself wins.
	_ = c.Respond(StatusOf(err), data)
	return err
}

// Respond builds the response. Returns ErrAlreadyResponded on any later invocation, the first response
// is kept.
func (c *Call) Respond(status Status, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateResponded {
		return ErrAlreadyResponded
	}

	SetResponse(c.msg, c.req.Cmd, status, data)
	c.req.Output.release()
	c.state = StateResponded
	return nil
}

// Fail responds with the status err maps to.
func (c *Call) Fail(err error) error {
	return c.Respond(StatusOf(err), nil)
}
