package ws

import (
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"exam-arena/internal/domain"
	"exam-arena/internal/room"
	"exam-arena/internal/session"
)

const reconnectDelay = 2 * time.Second

// HostConfig configures a teacher-side listener.
type HostConfig struct {
	// BrokerURL is the broker's base websocket URL, e.g. ws://broker:8080.
	BrokerURL string
	// ListenAddr is the local bind address; ":0" picks a free port.
	ListenAddr string
	// PublicURL overrides the advertised URL when the host sits behind a
	// different reachable name than ListenAddr. Optional.
	PublicURL string
}

// Host is the teacher's inbound rendezvous identity: its own websocket
// listener plus a registration kept alive at the broker. Losing the broker
// link only pauses new joins; established student connections are direct
// and stay up while the host re-registers.
type Host struct {
	code    string
	address string
	public  string
	log     zerolog.Logger

	server   *http.Server
	upgrader websocket.Upgrader

	accept chan session.Conn

	mu     sync.Mutex
	status session.NetworkStatus
	regWS  *websocket.Conn
	closed bool
	done   chan struct{}
}

// StartHost acquires a fresh room code, starts the listener, and begins
// registering with the broker.
func StartHost(cfg HostConfig, rnd *rand.Rand, log zerolog.Logger) (*Host, error) {
	listenAddr := cfg.ListenAddr
	if listenAddr == "" {
		listenAddr = ":0"
	}
	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", listenAddr, err)
	}

	code := room.NewCode(rnd)
	public := cfg.PublicURL
	if public == "" {
		public = "ws://" + ln.Addr().String()
	}

	h := &Host{
		code:    code,
		address: room.Address(code),
		public:  public,
		log:     log.With().Str("component", "ws-host").Str("room", code).Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		accept: make(chan session.Conn, 16),
		status: session.NetworkOffline,
		done:   make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/session", h.handleSession)
	h.server = &http.Server{Handler: mux}

	go func() {
		if err := h.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			h.log.Error().Err(err).Msg("host listener stopped")
		}
	}()
	go h.keepRegistered(cfg.BrokerURL)

	return h, nil
}

func (h *Host) handleSession(w http.ResponseWriter, r *http.Request) {
	meta := domain.PeerMeta{
		Name: r.URL.Query().Get("name"),
		Team: r.URL.Query().Get("team"),
	}
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("session upgrade failed")
		return
	}

	c := newConn(ws, meta, h.log)

	// The closed check, the accept send, and Close's channel close all run
	// under h.mu, so a student dialing during teardown is turned away
	// instead of hitting a closed channel.
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = c.Close()
		return
	}
	select {
	case h.accept <- c:
		h.mu.Unlock()
	default:
		h.mu.Unlock()
		h.log.Warn().Msg("accept backlog full, rejecting student")
		_ = c.Close()
	}
}

// keepRegistered holds one registration socket open and re-dials whenever
// it drops. A 409 from the broker means the code is taken and the session
// cannot recover without a restart.
func (h *Host) keepRegistered(brokerURL string) {
	registerURL := brokerURL + "/register?" + url.Values{
		"address": {h.address},
		"url":     {h.public},
	}.Encode()

	for {
		select {
		case <-h.done:
			return
		default:
		}

		ws, resp, err := websocket.DefaultDialer.Dial(registerURL, nil)
		if err != nil {
			if resp != nil && resp.StatusCode == http.StatusConflict {
				h.setStatus(session.NetworkError)
				h.log.Error().Msg("room code already registered at broker")
				return
			}
			h.setStatus(session.NetworkOffline)
			h.log.Warn().Err(err).Msg("broker unreachable, retrying")
			select {
			case <-h.done:
				return
			case <-time.After(reconnectDelay):
			}
			continue
		}

		h.mu.Lock()
		h.regWS = ws
		h.status = session.NetworkOnline
		h.mu.Unlock()
		h.log.Info().Msg("registered with broker")

		// Block until the registration socket drops, then loop to re-dial.
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}
		_ = ws.Close()

		select {
		case <-h.done:
			return
		default:
			h.setStatus(session.NetworkOffline)
			h.log.Warn().Msg("broker link lost, reconnecting")
		}
	}
}

func (h *Host) setStatus(status session.NetworkStatus) {
	h.mu.Lock()
	h.status = status
	h.mu.Unlock()
}

func (h *Host) Accept() <-chan session.Conn { return h.accept }

func (h *Host) Code() string { return h.code }

func (h *Host) Status() session.NetworkStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Close tears down the listener and the broker registration. Idempotent.
// The accept channel closes in the same critical section that flips
// closed, so in-flight session handlers cannot send into it afterwards.
func (h *Host) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.status = session.NetworkOffline
	close(h.accept)
	regWS := h.regWS
	h.regWS = nil
	h.mu.Unlock()

	close(h.done)
	if regWS != nil {
		_ = regWS.Close()
	}
	return h.server.Close()
}
