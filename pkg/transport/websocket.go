// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Thermoquad/spiloop/pkg/spibridge"
	"github.com/gorilla/websocket"
)

// ErrConnectionClosed is returned when transferring over a closed WebSocket
var ErrConnectionClosed = fmt.Errorf("websocket connection closed")

// DefaultWebSocketTimeout bounds a single remote transfer
const DefaultWebSocketTimeout = 2 * time.Second

// WebSocket forwards transfers to a remote bridge speaking the CBOR
// transfer protocol over binary WebSocket messages
type WebSocket struct {
	conn    *websocket.Conn
	url     string
	seq     uint64
	timeout time.Duration
	closed  bool
}

// OpenWebSocket dials a remote bridge with optional HTTP Basic auth
func OpenWebSocket(wsURL, username, password string, skipSSLVerify bool) (*WebSocket, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %v", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %v", err)
	}

	return &WebSocket{conn: conn, url: wsURL, timeout: DefaultWebSocketTimeout}, nil
}

// Transfer sends tx as a transfer request and copies the bridge's response
// into rx. The returned count is the length the bridge reported, which may
// differ from len(tx).
func (w *WebSocket) Transfer(tx, rx []byte) (int, error) {
	if w.closed {
		return 0, ErrConnectionClosed
	}

	w.seq++
	req, err := spibridge.EncodeTransferRequest(w.seq, tx)
	if err != nil {
		return 0, err
	}

	w.conn.SetWriteDeadline(time.Now().Add(w.timeout))
	if err := w.conn.WriteMessage(websocket.BinaryMessage, req); err != nil {
		w.closed = true
		return 0, err
	}

	w.conn.SetReadDeadline(time.Now().Add(w.timeout))
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.closed = true
			return 0, err
		}

		// Text frames carry bridge diagnostics, not transfer data
		if messageType != websocket.BinaryMessage {
			continue
		}

		msg, err := spibridge.DecodeBridgeMessage(data)
		if err != nil {
			return 0, err
		}
		if msg.Seq != w.seq {
			// Late answer to an earlier, abandoned request
			if msg.Seq < w.seq {
				continue
			}
			return 0, fmt.Errorf("response sequence %d does not match request %d", msg.Seq, w.seq)
		}

		switch msg.Type {
		case spibridge.MsgTransferResponse:
			copy(rx, msg.Data)
			return len(msg.Data), nil
		case spibridge.MsgTransferError:
			return 0, fmt.Errorf("bridge error: %s", msg.Message)
		default:
			return 0, fmt.Errorf("unexpected bridge message type 0x%02X", msg.Type)
		}
	}
}

// SetTimeout changes the per-transfer deadline. Non-positive values restore
// the default.
func (w *WebSocket) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultWebSocketTimeout
	}
	w.timeout = d
}

// String describes the connection
func (w *WebSocket) String() string {
	return fmt.Sprintf("WebSocket: %s", w.url)
}

// Close closes the connection
func (w *WebSocket) Close() error {
	w.closed = true
	return w.conn.Close()
}
