package services

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"chat_back_end_go/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	sendBufferSize = 256
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSlowConsumer     = errors.New("subscriber send buffer full")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is a websocket subscriber. Frames are queued on a buffered channel
// and written by writePump; readPump detects the disconnect.
type Client struct {
	id   string
	conn *websocket.Conn
	hub  *Hub
	log  *slog.Logger

	send chan []byte
	done chan struct{}
	once sync.Once
}

func NewClient(conn *websocket.Conn, hub *Hub, log *slog.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:   id,
		conn: conn,
		hub:  hub,
		log:  log.With(slog.String("client_id", id)),
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
}

// ServeWs upgrades the request and registers the connection on the hub.
func ServeWs(hub *Hub, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade has already answered the client.
			log.Warn("websocket upgrade failed", logger.Err(err))
			return
		}

		client := NewClient(conn, hub, log)
		hub.Subscribe(client)
		client.log.Info("client connected", slog.Int("subscribers", hub.Count()))

		go client.writePump()
		go client.readPump()
	}
}

func (c *Client) Open() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Send never blocks: a subscriber that cannot keep up loses the frame.
func (c *Client) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	default:
		return ErrSlowConsumer
	}
}

func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		c.hub.Unsubscribe(c)
		_ = c.conn.Close()
		c.log.Info("client disconnected", slog.Int("subscribers", c.hub.Count()))
	})
}

func (c *Client) readPump() {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("unexpected websocket close", logger.Err(err))
			}
			return
		}
		c.log.Debug("received", slog.String("frame", string(message)))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Warn("failed to write frame", logger.Err(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
