// Package ws is the gorilla/websocket transport. The broker is a pure
// rendezvous service: teachers register their address while a registration
// socket stays open, students resolve an address to the teacher's own
// listener URL and then talk to the teacher directly. Exam data never
// crosses the broker.
package ws

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Broker maps rendezvous addresses to host URLs for as long as the
// registering host keeps its socket open.
type Broker struct {
	log      zerolog.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	hosts map[string]*registration
}

type registration struct {
	url string
	ws  *websocket.Conn
}

func NewBroker(log zerolog.Logger) *Broker {
	return &Broker{
		log: log.With().Str("component", "broker").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		hosts: make(map[string]*registration),
	}
}

// Handler exposes the broker endpoints.
func (b *Broker) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/register", b.handleRegister)
	mux.HandleFunc("/resolve", b.handleResolve)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	return mux
}

func (b *Broker) handleRegister(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	hostURL := r.URL.Query().Get("url")
	if address == "" || hostURL == "" {
		http.Error(w, "missing address or url", http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	if _, taken := b.hosts[address]; taken {
		b.mu.Unlock()
		http.Error(w, "address already registered", http.StatusConflict)
		return
	}
	b.mu.Unlock()

	ws, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Warn().Err(err).Msg("register upgrade failed")
		return
	}

	reg := &registration{url: hostURL, ws: ws}
	b.mu.Lock()
	if _, taken := b.hosts[address]; taken {
		b.mu.Unlock()
		_ = ws.Close()
		return
	}
	b.hosts[address] = reg
	b.mu.Unlock()
	b.log.Info().Str("address", address).Str("url", hostURL).Msg("host registered")

	// The registration lives while this socket does. Hosts send nothing of
	// interest; reading just detects the drop.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	b.mu.Lock()
	if b.hosts[address] == reg {
		delete(b.hosts, address)
	}
	b.mu.Unlock()
	_ = ws.Close()
	b.log.Info().Str("address", address).Msg("host unregistered")
}

func (b *Broker) handleResolve(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		http.Error(w, "missing address", http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	reg, ok := b.hosts[address]
	b.mu.Unlock()
	if !ok {
		http.Error(w, "address not registered", http.StatusNotFound)
		return
	}
	w.Write([]byte(reg.url))
}
