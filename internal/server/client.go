package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tboucheau/taskhive/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 1024
)

type Client struct {
	// id is a per-connection session id; one user may hold several.
	id   string
	conn *websocket.Conn
	ts   *TaskServer
	log  *log.Logger
	user types.User
	send chan *ServerMessage
	// rooms is owned by the TaskServer run loop; the client never
	// touches it outside that goroutine.
	rooms        map[string]struct{}
	connectedAt  time.Time
	lastActivity time.Time
	stop         chan struct{}
	stopOnce     sync.Once
}

func NewClient(id string, user types.User, conn *websocket.Conn, ts *TaskServer, l *log.Logger) *Client {
	now := Now()
	return &Client{
		id:           id,
		conn:         conn,
		ts:           ts,
		log:          l,
		user:         user,
		send:         make(chan *ServerMessage, 256),
		rooms:        make(map[string]struct{}),
		connectedAt:  now,
		lastActivity: now,
		stop:         make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(time.Duration(pingInterval))
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Println("write exiting")
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := c.serializeMessage(msg)
			if err != nil {
				c.log.Println("failed to serialize message:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
		c.log.Println("read exiting")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Println("error parsing message:", err)
			c.queueMessage(ErrInvalidMessage(-1))
			continue
		}

		msg.client = c
		msg.UserId = c.user.Id
		msg.Timestamp = Now()

		switch {
		case msg.Join != nil:
			c.forward(c.ts.joinChan, &msg)
		case msg.Leave != nil:
			c.forward(c.ts.leaveChan, &msg)
		case msg.Typing != nil, msg.OnlineUsers != nil, msg.Ping != nil:
			c.forward(c.ts.clientMsgChan, &msg)
		default:
			// unknown message shapes are dropped, not answered
			c.log.Printf("unhandled message from %q: %s", c.user.Username, string(raw))
		}
	}
}

func (c *Client) forward(ch chan *ClientMessage, msg *ClientMessage) {
	select {
	case ch <- msg:
	default:
		c.log.Printf("server channel full, dropping message from %q", c.user.Username)
		c.queueMessage(ErrServiceUnavailable(msg.Id))
	}
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Println("failed to send message to client, channel is full")
		return false
	}

	return true
}

func (c *Client) serializeMessage(msg *ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

func (c *Client) cleanup() {
	c.ts.deregisterChan <- c
	c.stopClient()
}
