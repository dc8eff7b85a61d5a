package hub

import (
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"

	"diagramd/internal/action"
)

// conn is one WebSocket connection. It may carry several client ids.
type conn struct {
	hub  *Hub
	ws   *websocket.Conn
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once

	// defaultID is used for messages without a client id
	defaultID string
}

func newConn(h *Hub, ws *websocket.Conn) *conn {
	return &conn{
		hub:  h,
		ws:   ws,
		send: make(chan []byte, h.cfg.SendBuffer),
		done: make(chan struct{}),
	}
}

// endpoint is the RemoteEndpoint of servers attached to c. It encodes
// synchronously so the model is read while the server still holds its lock.
func (c *conn) endpoint(msg action.Message) {
	data, err := c.hub.codec.Encode(msg)
	if err != nil {
		glog.Errorf("[hub]%s encoding %s: %v", msg.ClientID, msg.Action.Kind(), err)
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	default:
		glog.Warningf("[hub]%s send queue full, closing connection", msg.ClientID)
		c.close()
	}
}

// close stops the write pump, which says goodbye and closes the socket
func (c *conn) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *conn) readLoop() {
	defer func() {
		c.close()
		c.hub.detach(c)
	}()

	c.ws.SetReadLimit(c.hub.cfg.MaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait))
	})

	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				glog.Warningf("[hub] read failed: %v", err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		c.ws.SetReadDeadline(time.Now().Add(c.hub.cfg.PongWait))

		msg, err := c.hub.codec.Decode(data)
		if err != nil {
			glog.Warningf("[hub] dropping malformed message: %v", err)
			continue
		}
		if msg.ClientID == "" {
			if c.defaultID == "" {
				c.defaultID = ulid.Make().String()
				glog.V(1).Infof("[hub] assigned client id %s", c.defaultID)
			}
			msg.ClientID = c.defaultID
		} else if c.defaultID == "" {
			c.defaultID = msg.ClientID
		}

		s, err := c.hub.attach(msg.ClientID, c)
		if err != nil {
			glog.Errorf("[hub]%s creating server: %v", msg.ClientID, err)
			if id := action.RequestIDOf(msg.Action); id != "" {
				c.endpoint(action.Message{ClientID: msg.ClientID, Action: action.NewReject(id, "no diagram server", err.Error())})
			}
			continue
		}
		s.Accept(msg)
	}
}

func (c *conn) writePump() {
	ticker := time.NewTicker(c.hub.cfg.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				glog.Warningf("[hub] write failed: %v", err)
				c.close()
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait))
			c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
