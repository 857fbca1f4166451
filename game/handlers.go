package game

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/s0930s44/BINGO/logger"
)

// WSHandler upgrades websocket requests and hands each connection to the
// hub under a fresh id.
type WSHandler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *Hub) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origins are vetted by the server middleware.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (wh *WSHandler) Serve(ctx *gin.Context) {
	socket, err := wh.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		logger.Warningf("websocket upgrade failed: %v", err)
		return
	}
	client := newClient(uuid.NewString(), NewWSConn(socket), wh.hub)
	wh.hub.Register(client)
	go client.WritePump()
	go client.ReadPump()
}
