package ws

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"exam-arena/internal/domain"
	"exam-arena/internal/session"
)

// Dialer resolves rendezvous addresses through the broker and opens a
// direct websocket to the teacher's own listener.
type Dialer struct {
	// BrokerURL is the broker's base HTTP URL, e.g. http://broker:8080.
	BrokerURL string
	// Client is used for resolution; http.DefaultClient when nil.
	Client *http.Client
	Log    zerolog.Logger
}

func (d *Dialer) Dial(ctx context.Context, address string, meta domain.PeerMeta) (session.Conn, error) {
	hostURL, err := d.resolve(ctx, address)
	if err != nil {
		return nil, err
	}

	sessionURL := hostURL + "/session?" + url.Values{
		"name": {meta.Name},
		"team": {meta.Team},
	}.Encode()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, sessionURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing teacher at %s: %w: %v", hostURL, domain.ErrNetworkUnreachable, err)
	}
	return newConn(ws, meta, d.Log), nil
}

func (d *Dialer) resolve(ctx context.Context, address string) (string, error) {
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}

	resolveURL := d.BrokerURL + "/resolve?" + url.Values{"address": {address}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resolveURL, nil)
	if err != nil {
		return "", fmt.Errorf("building resolve request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w: %v", address, domain.ErrNetworkUnreachable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("reading resolve response: %w", err)
		}
		return strings.TrimSpace(string(body)), nil
	case http.StatusNotFound:
		return "", domain.ErrRoomNotFound
	default:
		return "", fmt.Errorf("broker returned %s: %w", resp.Status, domain.ErrNetworkUnreachable)
	}
}
