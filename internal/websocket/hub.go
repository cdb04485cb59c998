package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"onlyz-dating-server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced at the HTTP layer
	},
}

// MessageSender is the slice of the messaging service the socket layer
// needs for inbound send_message events.
type MessageSender interface {
	Send(ctx context.Context, senderID, receiverID uint, content string) (*models.Message, error)
}

type membership struct {
	client *Client
	room   string
}

type publication struct {
	room    string
	payload []byte
}

// Hub routes events to room members. Rooms are the per-pair chat channels;
// joining, leaving and broadcasting all go through the single Run goroutine,
// so no locks are needed. It implements the Broadcaster interface consumed
// by the messaging and match services.
type Hub struct {
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	join       chan membership
	leave      chan membership
	broadcast  chan publication
	log        *logrus.Logger
}

func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan membership),
		leave:      make(chan membership),
		broadcast:  make(chan publication, 64),
		log:        log,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.log.WithField("user_id", client.userID).Debug("websocket client connected")

		case client := <-h.unregister:
			for room := range client.rooms {
				h.removeFromRoom(client, room)
			}
			close(client.send)
			h.log.WithField("user_id", client.userID).Debug("websocket client disconnected")

		case m := <-h.join:
			if h.rooms[m.room] == nil {
				h.rooms[m.room] = make(map[*Client]bool)
			}
			h.rooms[m.room][m.client] = true
			m.client.rooms[m.room] = true

		case m := <-h.leave:
			h.removeFromRoom(m.client, m.room)

		case p := <-h.broadcast:
			for client := range h.rooms[p.room] {
				select {
				case client.send <- p.payload:
				default:
					h.removeFromRoom(client, p.room)
				}
			}
		}
	}
}

// Publish broadcasts an event to everyone currently joined to the room.
// Best-effort: offline parties catch up from persisted history.
func (h *Hub) Publish(room string, event interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.WithError(err).Error("failed to marshal broadcast event")
		return
	}
	h.broadcast <- publication{room: room, payload: payload}
}

func (h *Hub) removeFromRoom(client *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(client.rooms, room)
}

type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	userID   uint
	username string
	rooms    map[string]bool
	sender   MessageSender
}

type inboundEvent struct {
	Type       string `json:"type"`
	Room       string `json:"room,omitempty"`
	ReceiverID uint   `json:"receiver_id,omitempty"`
	Content    string `json:"content,omitempty"`
}

type statusEvent struct {
	Type string `json:"type"`
	Msg  string `json:"msg"`
}

// HandleWebSocket upgrades the connection for an authenticated user and
// starts the read/write pumps.
func HandleWebSocket(hub *Hub, sender MessageSender, c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	username, _ := c.Get("username")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		userID:   userID.(uint),
		rooms:    make(map[string]bool),
		sender:   sender,
	}
	if name, ok := username.(string); ok {
		client.username = name
	}

	hub.register <- client

	go client.writePump()
	go client.readPump()
}

// memberOfRoom checks that the room id names this user as one of the pair.
func (c *Client) memberOfRoom(room string) bool {
	var a, b uint
	if n, err := fmt.Sscanf(room, "chat_%d_%d", &a, &b); err != nil || n != 2 {
		return false
	}
	return a < b && (a == c.userID || b == c.userID)
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.WithError(err).Debug("websocket read error")
			}
			break
		}

		var event inboundEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			c.sendError("invalid event payload")
			continue
		}

		switch event.Type {
		case "join":
			if !c.memberOfRoom(event.Room) {
				c.sendError("you are not part of this conversation")
				continue
			}
			c.hub.join <- membership{client: c, room: event.Room}
			c.hub.Publish(event.Room, statusEvent{
				Type: "status",
				Msg:  fmt.Sprintf("%s joined the conversation", c.username),
			})

		case "leave":
			if !c.memberOfRoom(event.Room) {
				c.sendError("you are not part of this conversation")
				continue
			}
			c.hub.leave <- membership{client: c, room: event.Room}
			c.hub.Publish(event.Room, statusEvent{
				Type: "status",
				Msg:  fmt.Sprintf("%s left the conversation", c.username),
			})

		case "send_message":
			// Persistence and the room broadcast both happen inside the
			// messaging service; match state is re-checked there on every send.
			if _, err := c.sender.Send(context.Background(), c.userID, event.ReceiverID, event.Content); err != nil {
				c.sendError("message rejected: " + err.Error())
			}

		default:
			c.sendError("unknown event type")
		}
	}
}

func (c *Client) sendError(msg string) {
	payload, err := json.Marshal(statusEvent{Type: "error", Msg: msg})
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			c.hub.log.WithError(err).Debug("websocket write error")
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
