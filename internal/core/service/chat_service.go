package service

import (
	"github.com/rs/zerolog"

	"github.com/relaychat/relay-api/internal/core/domain"
	"github.com/relaychat/relay-api/internal/core/ports"
)

// ChatService relays every inbound message back to its sender and to the
// whole room, and announces departures.
type ChatService struct {
	registry ports.ConnectionRegistry
	log      zerolog.Logger
}

func NewChatService(registry ports.ConnectionRegistry, log zerolog.Logger) *ChatService {
	return &ChatService{
		registry: registry,
		log:      log.With().Str("component", "chat").Logger(),
	}
}

func (s *ChatService) Join(clientID string, t domain.Transport) *domain.Connection {
	return s.registry.Connect(clientID, t)
}

// Relay echoes message to its sender, then broadcasts it. A failed echo does
// not stop the broadcast.
func (s *ChatService) Relay(conn *domain.Connection, message string) {
	if err := s.registry.SendPersonal(conn, domain.EchoText(message)); err != nil {
		s.log.Debug().Err(err).Str("client_id", conn.ClientID).Msg("echo not delivered")
	}
	s.registry.Broadcast(domain.ChatText(conn.ClientID, message))
}

// Leave removes conn and tells the remaining members. Calling it twice for
// the same connection announces the departure once.
func (s *ChatService) Leave(conn *domain.Connection) {
	if !s.registry.Disconnect(conn) {
		return
	}
	s.registry.Broadcast(domain.DepartureText(conn.ClientID))
}
