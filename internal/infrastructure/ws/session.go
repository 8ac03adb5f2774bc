// Package ws adapts gorilla/websocket connections to the chat service: one
// Session per socket, with a read pump feeding inbound frames to the service
// and a write pump draining the registry's outbound queue.
package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/relaychat/relay-api/internal/core/domain"
	"github.com/relaychat/relay-api/internal/core/ports"
	"github.com/relaychat/relay-api/internal/pkg/metrics"
)

const (
	defaultMaxMessageBytes = 4096
	defaultSendBuffer      = 256
	defaultWriteWait       = 10 * time.Second
	defaultPongWait        = 60 * time.Second
)

// ErrSlowConsumer is returned by Send when the outbound queue is full. The
// session closes itself when this happens.
var ErrSlowConsumer = errors.New("ws: outbound queue full")

// Options tunes a Session. Zero values fall back to defaults.
type Options struct {
	MaxMessageBytes int64
	SendBuffer      int
	// RateBurst inbound frames are allowed per RateInterval; zero disables.
	RateBurst    int
	RateInterval time.Duration
	WriteWait    time.Duration
	PongWait     time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = defaultMaxMessageBytes
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = defaultSendBuffer
	}
	if o.RateInterval <= 0 {
		o.RateInterval = time.Second
	}
	if o.WriteWait <= 0 {
		o.WriteWait = defaultWriteWait
	}
	if o.PongWait <= 0 {
		o.PongWait = defaultPongWait
	}
	return o
}

// pingPeriod must stay below PongWait so the peer's pong lands in time.
func (o Options) pingPeriod() time.Duration {
	return o.PongWait * 9 / 10
}

// Session is the transport for one websocket. It implements domain.Transport.
type Session struct {
	conn    *websocket.Conn
	opts    Options
	limiter *rate.Limiter
	log     zerolog.Logger

	mu     sync.Mutex
	closed bool
	send   chan string
}

func NewSession(conn *websocket.Conn, opts Options, log zerolog.Logger) *Session {
	opts = opts.withDefaults()

	var limiter *rate.Limiter
	if opts.RateBurst > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.RateInterval/time.Duration(opts.RateBurst)), opts.RateBurst)
	}

	return &Session{
		conn:    conn,
		opts:    opts,
		limiter: limiter,
		log:     log,
		send:    make(chan string, opts.SendBuffer),
	}
}

// Send queues text for the write pump without blocking.
func (s *Session) Send(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrConnectionClosed
	}
	select {
	case s.send <- text:
		return nil
	default:
		s.closeLocked()
		return ErrSlowConsumer
	}
}

// Close stops accepting outbound messages. The write pump then sends a close
// frame and shuts the socket, which ends the read pump.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
	return nil
}

func (s *Session) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

// Serve admits the socket under clientID and blocks until it is gone. The
// connection always leaves the chat before Serve returns.
func (s *Session) Serve(chat ports.ChatService, clientID string) {
	conn := chat.Join(clientID, s)
	s.log = s.log.With().Str("client_id", clientID).Str("handle", conn.Handle).Logger()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writePump()
	}()

	s.readPump(chat, conn)

	chat.Leave(conn)
	_ = s.Close()
	<-writerDone
}

func (s *Session) readPump(chat ports.ChatService, conn *domain.Connection) {
	defer func() {
		if err := s.conn.Close(); err != nil && !isExpectedCloseError(err) {
			s.log.Debug().Err(err).Msg("socket close failed")
		}
	}()

	s.conn.SetReadLimit(s.opts.MaxMessageBytes)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.opts.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.opts.PongWait))
	})

	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			s.logReadError(err)
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		if s.limiter != nil && !s.limiter.Allow() {
			metrics.InboundDropped.WithLabelValues("rate_limited").Inc()
			s.log.Warn().Int("burst", s.opts.RateBurst).Dur("interval", s.opts.RateInterval).Msg("rate limit exceeded, frame dropped")
			continue
		}
		chat.Relay(conn, string(data))
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(s.opts.pingPeriod())
	defer func() {
		ticker.Stop()
		if err := s.conn.Close(); err != nil && !isExpectedCloseError(err) {
			s.log.Debug().Err(err).Msg("socket close failed")
		}
	}()

	for {
		select {
		case text, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
				if !isExpectedCloseError(err) {
					s.log.Warn().Err(err).Msg("write failed")
				}
				_ = s.Close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.log.Debug().Err(err).Msg("ping failed")
				_ = s.Close()
				return
			}
		}
	}
}

func (s *Session) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		s.log.Warn().Int64("limit", s.opts.MaxMessageBytes).Msg("frame exceeded size limit")
	case websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		s.log.Warn().Err(err).Msg("unexpected close")
	default:
		s.log.Debug().Err(err).Msg("peer disconnected")
	}
}
