package game

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/s0930s44/BINGO/logger"
)

const sendQueueSize = 64

// Client is one live connection. The hub owns its registry entry and its
// send queue; the two pumps are the only goroutines touching the socket.
type Client struct {
	id   string
	conn Conn
	hub  *Hub

	send      chan []byte
	limiter   *rate.Limiter
	pingEvery time.Duration
}

func newClient(id string, conn Conn, hub *Hub) *Client {
	return &Client{
		id:        id,
		conn:      conn,
		hub:       hub,
		send:      make(chan []byte, sendQueueSize),
		limiter:   rate.NewLimiter(rate.Limit(10), 20),
		pingEvery: pingPeriod,
	}
}

// ReadPump feeds inbound frames into the hub until the socket errors, then
// reports the disconnect. Peers pushing events faster than the limiter
// allows get frames dropped, not their connection killed.
func (c *Client) ReadPump() {
	defer c.hub.Disconnect(c)
	for {
		data, err := c.conn.Read()
		if err != nil {
			return
		}
		if !c.limiter.Allow() {
			logger.Warningf("conn %s: rate limit exceeded, frame dropped", c.id)
			continue
		}
		env, err := decodeEnvelope(data)
		if err != nil {
			logger.Warningf("conn %s: undecodable frame: %v", c.id, err)
			continue
		}
		c.hub.Deliver(inboundEvent{from: c, env: env})
	}
}

// WritePump drains the send queue onto the socket and keeps the connection
// alive with periodic pings. It exits once the hub closes the queue or a
// write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.pingEvery)
	defer func() {
		ticker.Stop()
		c.conn.Close("")
	}()
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(data); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(); err != nil {
				return
			}
		}
	}
}

// enqueue hands a frame to the write pump without ever blocking the hub.
func (c *Client) enqueue(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}
