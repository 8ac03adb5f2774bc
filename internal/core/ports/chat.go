package ports

import "github.com/relaychat/relay-api/internal/core/domain"

// ConnectionRegistry tracks live duplex connections and delivers to them.
type ConnectionRegistry interface {
	Connect(clientID string, t domain.Transport) *domain.Connection
	Disconnect(conn *domain.Connection) bool
	SendPersonal(conn *domain.Connection, message string) error
	Broadcast(message string) int
	Len() int
}

// ChatService applies the chat protocol on top of a ConnectionRegistry.
type ChatService interface {
	Join(clientID string, t domain.Transport) *domain.Connection
	Relay(conn *domain.Connection, message string)
	Leave(conn *domain.Connection)
}
