package chat

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"CollabProject/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	readLimit  = 1 << 20 // 1MB
)

var errClientGone = errors.New("client closed")
var errSendBufferFull = errors.New("send buffer full")

// Client adapts a gorilla websocket connection to the Conn contract.
// Transmit enqueues onto a buffered channel consumed by a single writer
// goroutine, so delivery never blocks on one slow socket. A full buffer is
// reported as a transmit failure and the manager treats the client as dead.
type Client struct {
	connID string
	ws     *websocket.Conn
	send   chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func NewClient(connID string, ws *websocket.Conn, sendBuf int) *Client {
	if sendBuf <= 0 {
		sendBuf = 64
	}
	return &Client{
		connID: connID,
		ws:     ws,
		send:   make(chan []byte, sendBuf),
		done:   make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.connID }

func (c *Client) Transmit(payload []byte) error {
	select {
	case <-c.done:
		return errClientGone
	default:
	}
	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return errClientGone
	default:
		return errors.Wrapf(errSendBufferFull, "conn=%s", c.connID)
	}
}

// Close is idempotent; the underlying socket close error is swallowed on
// repeated calls because the writer pump may already have torn it down.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.SetWriteDeadline(time.Now().Add(time.Second))
		_ = c.ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		if err := c.ws.Close(); err != nil {
			logger.Debug("close ws: " + err.Error())
		}
	})
	return nil
}

// WritePump drains the send queue onto the socket and keeps the connection
// alive with pings. Runs as one goroutine per client; exits when the client
// closes or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Infof("[ws] write err conn=%s err=%v", c.connID, err)
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
				logger.Infof("[ws] ping err conn=%s err=%v", c.connID, err)
				return
			}
		}
	}
}
