package ws

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"exam-arena/internal/domain"
	"exam-arena/internal/protocol"
)

const sendBuffer = 16

// conn adapts one gorilla websocket into a session.Conn. A single writer
// goroutine owns all writes; readers push decoded messages onto Inbound.
type conn struct {
	ws   *websocket.Conn
	meta domain.PeerMeta
	log  zerolog.Logger

	in   chan protocol.Message
	send chan protocol.Message

	once   sync.Once
	closed chan struct{}
}

func newConn(ws *websocket.Conn, meta domain.PeerMeta, log zerolog.Logger) *conn {
	c := &conn{
		ws:     ws,
		meta:   meta,
		log:    log,
		in:     make(chan protocol.Message, sendBuffer),
		send:   make(chan protocol.Message, sendBuffer),
		closed: make(chan struct{}),
	}
	go c.writeLoop()
	go c.readLoop()
	return c
}

func (c *conn) writeLoop() {
	for {
		select {
		case <-c.closed:
			return
		case msg := <-c.send:
			data, err := protocol.Encode(msg)
			if err != nil {
				c.log.Error().Err(err).Msg("encoding outbound message")
				continue
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Debug().Err(err).Msg("write failed, closing connection")
				c.close()
				return
			}
		}
	}
}

func (c *conn) readLoop() {
	defer close(c.in)
	defer c.close()
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			c.log.Warn().Err(err).Msg("dropping undecodable frame")
			continue
		}
		select {
		case c.in <- msg:
		case <-c.closed:
			return
		}
	}
}

func (c *conn) Send(msg protocol.Message) error {
	select {
	case <-c.closed:
		return fmt.Errorf("connection closed")
	case c.send <- msg:
		return nil
	default:
		return fmt.Errorf("connection buffer full")
	}
}

func (c *conn) Inbound() <-chan protocol.Message { return c.in }

func (c *conn) Meta() domain.PeerMeta { return c.meta }

func (c *conn) IsOpen() bool {
	select {
	case <-c.closed:
		return false
	default:
		return true
	}
}

func (c *conn) Close() error {
	c.close()
	return nil
}

func (c *conn) close() {
	c.once.Do(func() {
		close(c.closed)
		_ = c.ws.Close()
	})
}
