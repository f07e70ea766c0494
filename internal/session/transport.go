// Package session owns the teacher and student sides of a live exam room.
// Sessions are explicitly constructed and explicitly torn down; all network
// interaction happens through the small transport interfaces below.
package session

import (
	"context"

	"exam-arena/internal/domain"
	"exam-arena/internal/protocol"
)

// Conn is one point-to-point data channel between a teacher and a student.
// Inbound is closed when the connection closes, whichever side initiated it.
type Conn interface {
	Send(msg protocol.Message) error
	Inbound() <-chan protocol.Message
	Meta() domain.PeerMeta
	IsOpen() bool
	Close() error
}

// NetworkStatus reports the teacher's link to the rendezvous broker, not
// the state of any individual student connection.
type NetworkStatus string

const (
	NetworkOnline  NetworkStatus = "online"
	NetworkOffline NetworkStatus = "offline"
	NetworkError   NetworkStatus = "error"
)

// Listener is the teacher's inbound rendezvous identity.
type Listener interface {
	// Accept yields student connections; the channel is closed by Close.
	Accept() <-chan Conn
	// Code is the human-presentable join code for this identity.
	Code() string
	Status() NetworkStatus
	Close() error
}

// Dialer opens an outbound connection to a teacher's rendezvous address.
type Dialer interface {
	Dial(ctx context.Context, address string, meta domain.PeerMeta) (Conn, error)
}
