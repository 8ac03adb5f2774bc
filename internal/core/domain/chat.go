package domain

import "fmt"

// EchoText is what the sender gets back for its own message.
func EchoText(message string) string {
	return "You wrote: " + message
}

// ChatText is the copy of a message broadcast to every member.
func ChatText(clientID, message string) string {
	return fmt.Sprintf("Client #%s says: %s", clientID, message)
}

// DepartureText announces that a client has gone.
func DepartureText(clientID string) string {
	return fmt.Sprintf("Client #%s left chat", clientID)
}
