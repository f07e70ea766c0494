// Package inproc is a channel-backed twin of the websocket transport. It
// keeps the whole rendezvous fabric in one process, which is exactly what
// session and state-machine tests want.
package inproc

import (
	"context"
	"fmt"
	"sync"

	"exam-arena/internal/domain"
	"exam-arena/internal/protocol"
	"exam-arena/internal/session"
)

const connBuffer = 64

// Network is an in-process rendezvous fabric mapping addresses to
// listeners.
type Network struct {
	mu        sync.Mutex
	listeners map[string]*Listener
}

func NewNetwork() *Network {
	return &Network{listeners: make(map[string]*Listener)}
}

// Listen registers a listening identity for the given room code at the
// given address.
func (n *Network) Listen(code, address string) (*Listener, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, taken := n.listeners[address]; taken {
		return nil, fmt.Errorf("address %q already registered", address)
	}
	l := &Listener{
		network: n,
		code:    code,
		address: address,
		accept:  make(chan session.Conn, connBuffer),
	}
	n.listeners[address] = l
	return l, nil
}

// Dialer returns the student-side dialer for this network.
func (n *Network) Dialer() session.Dialer {
	return &dialer{network: n}
}

func (n *Network) unregister(l *Listener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.listeners[l.address] == l {
		delete(n.listeners, l.address)
	}
}

func (n *Network) lookup(address string) (*Listener, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	l, ok := n.listeners[address]
	return l, ok
}

// Listener implements session.Listener over in-process channels.
type Listener struct {
	network *Network
	code    string
	address string

	mu     sync.Mutex
	closed bool
	accept chan session.Conn
}

func (l *Listener) Accept() <-chan session.Conn { return l.accept }

func (l *Listener) Code() string { return l.code }

func (l *Listener) Status() session.NetworkStatus { return session.NetworkOnline }

func (l *Listener) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	l.network.unregister(l)
	close(l.accept)
	return nil
}

func (l *Listener) deliver(conn session.Conn) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return domain.ErrRoomNotFound
	}
	select {
	case l.accept <- conn:
		return nil
	default:
		return fmt.Errorf("listener backlog full")
	}
}

type dialer struct {
	network *Network
}

func (d *dialer) Dial(_ context.Context, address string, meta domain.PeerMeta) (session.Conn, error) {
	listener, ok := d.network.lookup(address)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}

	link := &pipe{
		toHost:    make(chan protocol.Message, connBuffer),
		toStudent: make(chan protocol.Message, connBuffer),
	}
	hostEnd := &conn{pipe: link, meta: meta, in: link.toHost, out: link.toStudent}
	studentEnd := &conn{pipe: link, meta: meta, in: link.toStudent, out: link.toHost}

	if err := listener.deliver(hostEnd); err != nil {
		link.close()
		return nil, err
	}
	return studentEnd, nil
}

// pipe is the shared state of one bidirectional connection.
type pipe struct {
	mu        sync.Mutex
	closed    bool
	once      sync.Once
	toHost    chan protocol.Message
	toStudent chan protocol.Message
}

func (p *pipe) close() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		close(p.toHost)
		close(p.toStudent)
	})
}

// conn is one endpoint of a pipe.
type conn struct {
	pipe *pipe
	meta domain.PeerMeta
	in   <-chan protocol.Message
	out  chan<- protocol.Message
}

func (c *conn) Send(msg protocol.Message) error {
	c.pipe.mu.Lock()
	defer c.pipe.mu.Unlock()
	if c.pipe.closed {
		return fmt.Errorf("connection closed")
	}
	select {
	case c.out <- msg:
		return nil
	default:
		return fmt.Errorf("connection buffer full")
	}
}

func (c *conn) Inbound() <-chan protocol.Message { return c.in }
func (c *conn) Meta() domain.PeerMeta            { return c.meta }

func (c *conn) IsOpen() bool {
	c.pipe.mu.Lock()
	defer c.pipe.mu.Unlock()
	return !c.pipe.closed
}

func (c *conn) Close() error {
	c.pipe.close()
	return nil
}
