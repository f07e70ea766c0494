package ws_test

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"exam-arena/internal/domain"
	"exam-arena/internal/protocol"
	"exam-arena/internal/room"
	"exam-arena/internal/session"
	"exam-arena/internal/transport/ws"
)

func newBrokerServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(ws.NewBroker(zerolog.Nop()).Handler())
	t.Cleanup(server.Close)
	return server
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func startHost(t *testing.T, broker *httptest.Server) *ws.Host {
	t.Helper()
	host, err := ws.StartHost(ws.HostConfig{BrokerURL: wsURL(broker.URL)}, rand.New(rand.NewSource(5)), zerolog.Nop())
	if err != nil {
		t.Fatalf("start host: %v", err)
	}
	t.Cleanup(func() { _ = host.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for host.Status() != session.NetworkOnline {
		if time.Now().After(deadline) {
			t.Fatal("host never registered with broker")
		}
		time.Sleep(10 * time.Millisecond)
	}
	return host
}

func TestResolveUnknownRoom(t *testing.T) {
	broker := newBrokerServer(t)
	dialer := &ws.Dialer{BrokerURL: broker.URL, Log: zerolog.Nop()}

	_, err := dialer.Dial(context.Background(), room.Address("000000"), domain.PeerMeta{Name: "An"})
	if !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestBrokerUnreachable(t *testing.T) {
	dialer := &ws.Dialer{BrokerURL: "http://127.0.0.1:1", Log: zerolog.Nop()}

	_, err := dialer.Dial(context.Background(), room.Address("000000"), domain.PeerMeta{Name: "An"})
	if !errors.Is(err, domain.ErrNetworkUnreachable) {
		t.Fatalf("expected ErrNetworkUnreachable, got %v", err)
	}
}

func TestHostRoundTrip(t *testing.T) {
	broker := newBrokerServer(t)
	host := startHost(t, broker)

	dialer := &ws.Dialer{BrokerURL: broker.URL, Log: zerolog.Nop()}
	studentConn, err := dialer.Dial(context.Background(), room.Address(host.Code()), domain.PeerMeta{Name: "An", Team: "Đội Đỏ"})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer studentConn.Close()

	var teacherConn session.Conn
	select {
	case teacherConn = <-host.Accept():
	case <-time.After(2 * time.Second):
		t.Fatal("host never accepted the connection")
	}
	if meta := teacherConn.Meta(); meta.Name != "An" || meta.Team != "Đội Đỏ" {
		t.Fatalf("metadata lost in transit: %+v", meta)
	}

	exam := domain.Exam{ID: "e1", Status: domain.StatusRunning}
	if err := teacherConn.Send(protocol.SyncExam{Exam: exam}); err != nil {
		t.Fatalf("teacher send: %v", err)
	}
	select {
	case msg := <-studentConn.Inbound():
		sync, ok := msg.(protocol.SyncExam)
		if !ok || sync.Exam.ID != "e1" {
			t.Fatalf("unexpected inbound message: %#v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("student never received the snapshot")
	}

	if err := studentConn.Send(protocol.LiveScoreUpdate{Team: "Đội Đỏ", Points: 10}); err != nil {
		t.Fatalf("student send: %v", err)
	}
	select {
	case msg := <-teacherConn.Inbound():
		update, ok := msg.(protocol.LiveScoreUpdate)
		if !ok || update.Points != 10 {
			t.Fatalf("unexpected inbound message: %#v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("teacher never received the delta")
	}
}

func TestConnCloseIsVisibleToPeer(t *testing.T) {
	broker := newBrokerServer(t)
	host := startHost(t, broker)

	dialer := &ws.Dialer{BrokerURL: broker.URL, Log: zerolog.Nop()}
	studentConn, err := dialer.Dial(context.Background(), room.Address(host.Code()), domain.PeerMeta{Name: "An"})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	var teacherConn session.Conn
	select {
	case teacherConn = <-host.Accept():
	case <-time.After(2 * time.Second):
		t.Fatal("host never accepted the connection")
	}

	_ = studentConn.Close()

	select {
	case _, open := <-teacherConn.Inbound():
		if open {
			t.Fatal("expected inbound channel to close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("teacher never observed the close")
	}
}

func TestDuplicateRegistrationRejected(t *testing.T) {
	broker := newBrokerServer(t)

	register := func() (*websocket.Conn, *http.Response, error) {
		target := wsURL(broker.URL) + "/register?" + url.Values{
			"address": {room.Address("111111")},
			"url":     {"ws://127.0.0.1:9"},
		}.Encode()
		return websocket.DefaultDialer.Dial(target, nil)
	}

	first, _, err := register()
	if err != nil {
		t.Fatalf("first registration: %v", err)
	}
	defer first.Close()

	if _, resp, err := register(); err == nil || resp == nil || resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate address, got err=%v resp=%v", err, resp)
	}
}

func TestJoinDuringHostCloseIsRejectedCleanly(t *testing.T) {
	broker := newBrokerServer(t)
	host := startHost(t, broker)

	// Resolve the direct session URL up front; students racing the
	// teardown dial the host, not the broker.
	resp, err := http.Get(broker.URL + "/resolve?" + url.Values{"address": {room.Address(host.Code())}}.Encode())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read resolve response: %v", err)
	}
	sessionURL := strings.TrimSpace(string(body)) + "/session?name=An"

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, _, err := websocket.DefaultDialer.Dial(sessionURL, nil)
			if err == nil {
				_ = conn.Close()
			}
		}()
	}
	_ = host.Close()
	_ = host.Close()
	wg.Wait()

	// The listener is down; a late joiner gets an error, never a hang or
	// a crashed host.
	if conn, _, err := websocket.DefaultDialer.Dial(sessionURL, nil); err == nil {
		_ = conn.Close()
		t.Fatal("expected dial after close to fail")
	}
}

func TestRegistrationFreedOnDisconnect(t *testing.T) {
	broker := newBrokerServer(t)
	host := startHost(t, broker)

	resolve := func() int {
		resp, err := http.Get(broker.URL + "/resolve?" + url.Values{"address": {room.Address(host.Code())}}.Encode())
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		defer resp.Body.Close()
		return resp.StatusCode
	}

	if code := resolve(); code != http.StatusOK {
		t.Fatalf("expected 200 while registered, got %d", code)
	}

	_ = host.Close()

	deadline := time.Now().Add(2 * time.Second)
	for resolve() != http.StatusNotFound {
		if time.Now().After(deadline) {
			t.Fatal("registration never released after host close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
