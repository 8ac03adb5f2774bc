// Package hub holds the registry of live duplex connections and delivers
// text messages to one or all of them.
package hub

import (
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/relaychat/relay-api/internal/core/domain"
	"github.com/relaychat/relay-api/internal/pkg/metrics"
)

// Registry is the active set. Members are kept in connect order. The mutex
// guards the member slice only; transports are written outside it.
type Registry struct {
	mu      sync.Mutex
	members []*domain.Connection
	log     zerolog.Logger
}

func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{log: log.With().Str("component", "registry").Logger()}
}

// Connect admits t under clientID. It always succeeds.
func (r *Registry) Connect(clientID string, t domain.Transport) *domain.Connection {
	conn := domain.NewConnection(clientID, t)

	r.mu.Lock()
	conn.Activate()
	r.members = append(r.members, conn)
	active := len(r.members)
	r.mu.Unlock()

	metrics.ConnectionsTotal.Inc()
	metrics.ConnectionsActive.Set(float64(active))
	r.log.Info().
		Str("client_id", clientID).
		Str("handle", conn.Handle).
		Int("active", active).
		Msg("connection admitted")
	return conn
}

// Disconnect removes conn and closes its transport. It reports false, and does
// nothing else, when conn is not a member.
func (r *Registry) Disconnect(conn *domain.Connection) bool {
	if conn == nil {
		return false
	}

	r.mu.Lock()
	idx := slices.Index(r.members, conn)
	if idx < 0 {
		r.mu.Unlock()
		return false
	}
	r.members = slices.Delete(r.members, idx, idx+1)
	active := len(r.members)
	r.mu.Unlock()

	conn.MarkClosed()
	if err := conn.Transport().Close(); err != nil {
		r.log.Debug().Err(err).Str("handle", conn.Handle).Msg("transport close failed")
	}

	metrics.ConnectionsActive.Set(float64(active))
	r.log.Info().
		Str("client_id", conn.ClientID).
		Str("handle", conn.Handle).
		Int("active", active).
		Msg("connection removed")
	return true
}

// SendPersonal delivers message to conn only. Failures are logged and
// returned; the registry itself is unaffected.
func (r *Registry) SendPersonal(conn *domain.Connection, message string) error {
	if conn == nil || conn.State() != domain.ConnActive {
		return domain.ErrConnectionClosed
	}
	if err := conn.Transport().Send(message); err != nil {
		metrics.SendFailures.WithLabelValues("personal").Inc()
		r.log.Warn().Err(err).Str("client_id", conn.ClientID).Str("handle", conn.Handle).Msg("personal send failed")
		return fmt.Errorf("send to %s: %w", conn.Handle, err)
	}
	metrics.MessagesDelivered.WithLabelValues("personal").Inc()
	return nil
}

// Broadcast delivers message to every member present at the time of the call,
// in connect order, and returns how many transports accepted it. A failing
// member does not stop delivery to the rest.
func (r *Registry) Broadcast(message string) int {
	members := r.Members()

	delivered := 0
	for _, conn := range members {
		if conn.State() != domain.ConnActive {
			continue
		}
		if err := conn.Transport().Send(message); err != nil {
			metrics.SendFailures.WithLabelValues("broadcast").Inc()
			r.log.Warn().Err(err).Str("client_id", conn.ClientID).Str("handle", conn.Handle).Msg("broadcast send failed")
			continue
		}
		delivered++
	}

	metrics.MessagesDelivered.WithLabelValues("broadcast").Add(float64(delivered))
	r.log.Debug().Int("members", len(members)).Int("delivered", delivered).Msg("broadcast")
	return delivered
}

// Members returns a snapshot of the active set in connect order.
func (r *Registry) Members() []*domain.Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.members)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// CloseAll empties the registry and closes every transport. Used at shutdown.
func (r *Registry) CloseAll() int {
	r.mu.Lock()
	members := r.members
	r.members = nil
	r.mu.Unlock()

	for _, conn := range members {
		conn.MarkClosed()
		if err := conn.Transport().Close(); err != nil {
			r.log.Debug().Err(err).Str("handle", conn.Handle).Msg("transport close failed")
		}
	}

	metrics.ConnectionsActive.Set(0)
	r.log.Info().Int("closed", len(members)).Msg("registry closed")
	return len(members)
}
