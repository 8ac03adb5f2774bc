package domain

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ConnState is the lifecycle state of a duplex connection.
//
//	Pending → Active → Closed
//
// Closed is terminal.
type ConnState int32

const (
	ConnPending ConnState = iota
	ConnActive
	ConnClosed
)

func (s ConnState) String() string {
	switch s {
	case ConnPending:
		return "pending"
	case ConnActive:
		return "active"
	case ConnClosed:
		return "closed"
	default:
		return fmt.Sprintf("ConnState(%d)", int32(s))
	}
}

// Transport is the outbound half of a duplex channel. Send must be safe to
// call concurrently with Close and must not block for long.
type Transport interface {
	Send(text string) error
	Close() error
}

// Connection is one live client session. ClientID is supplied by the caller
// and is not guaranteed to be unique; Handle is.
type Connection struct {
	ClientID    string
	Handle      string
	ConnectedAt time.Time

	transport Transport
	state     atomic.Int32
}

// NewConnection wraps t in a Pending connection.
func NewConnection(clientID string, t Transport) *Connection {
	return &Connection{
		ClientID:  clientID,
		Handle:    uuid.NewString(),
		transport: t,
	}
}

func (c *Connection) State() ConnState {
	return ConnState(c.state.Load())
}

func (c *Connection) Transport() Transport {
	return c.transport
}

// Activate moves a Pending connection to Active. It reports false for any
// other starting state.
func (c *Connection) Activate() bool {
	if !c.state.CompareAndSwap(int32(ConnPending), int32(ConnActive)) {
		return false
	}
	c.ConnectedAt = time.Now().UTC()
	return true
}

// MarkClosed moves the connection to Closed. Only the first caller gets true.
func (c *Connection) MarkClosed() bool {
	for {
		cur := c.state.Load()
		if ConnState(cur) == ConnClosed {
			return false
		}
		if c.state.CompareAndSwap(cur, int32(ConnClosed)) {
			return true
		}
	}
}
