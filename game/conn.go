package game

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Conn is the transport seam between the hub and the network: raw frames in
// both directions, keepalive, close. Tests substitute their own.
type Conn interface {
	Read() ([]byte, error)
	Write(data []byte) error
	Ping() error
	Close(reason string)
}

type wsConn struct {
	socket *websocket.Conn
}

// NewWSConn wraps a gorilla connection. Each pong pushes the read deadline
// out, so a silent peer times out after pongWait.
func NewWSConn(socket *websocket.Conn) Conn {
	socket.SetReadDeadline(time.Now().Add(pongWait))
	socket.SetPongHandler(func(string) error {
		return socket.SetReadDeadline(time.Now().Add(pongWait))
	})
	return &wsConn{socket: socket}
}

func (wc *wsConn) Read() ([]byte, error) {
	_, data, err := wc.socket.ReadMessage()
	return data, err
}

func (wc *wsConn) Write(data []byte) error {
	wc.socket.SetWriteDeadline(time.Now().Add(writeWait))
	return wc.socket.WriteMessage(websocket.TextMessage, data)
}

func (wc *wsConn) Ping() error {
	wc.socket.SetWriteDeadline(time.Now().Add(writeWait))
	return wc.socket.WriteMessage(websocket.PingMessage, nil)
}

func (wc *wsConn) Close(reason string) {
	wc.socket.SetWriteDeadline(time.Now().Add(writeWait))
	wc.socket.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason))
	wc.socket.Close()
}
