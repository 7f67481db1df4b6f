package chat

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"CollabProject/logger"
	"CollabProject/tools/errs"
	"CollabProject/tools/ids"
	security "CollabProject/tools/security"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// SavedMessage is what the persistence collaborator hands back after
// storing a chat message, enough to build the broadcast payload.
type SavedMessage struct {
	ID             int64
	Timestamp      time.Time
	SenderUsername string
}

// ChatBackend is the persistence collaborator for group chat. The realtime
// layer never touches the database directly.
type ChatBackend interface {
	IsMember(ctx context.Context, userID, groupID int64) (bool, error)
	SaveMessage(ctx context.Context, groupID, senderID int64, content, messageType string) (SavedMessage, error)
}

// FileBackend is the persistence collaborator for file-sync sessions.
type FileBackend interface {
	// FileForUser returns the current content, errs.ErrNotFound or
	// errs.ErrForbidden when the file isn't the user's to edit.
	FileForUser(ctx context.Context, userID, fileID int64) (string, error)
	UpdateContent(ctx context.Context, fileID int64, content string) error
}

// inboundFrame is the client-to-server message shape, shared by both
// endpoints; unknown types are ignored.
type inboundFrame struct {
	Type        string `json:"type"`
	Content     string `json:"content"`
	MessageType string `json:"message_type,omitempty"`
}

// Server binds the connection manager to the HTTP/websocket edge.
type Server struct {
	mgr     *Manager
	jwt     security.Options
	chats   ChatBackend
	files   FileBackend
	sendBuf int
}

func NewServer(mgr *Manager, jwt security.Options, chats ChatBackend, files FileBackend, sendBuf int) *Server {
	return &Server{mgr: mgr, jwt: jwt, chats: chats, files: files, sendBuf: sendBuf}
}

func (s *Server) Manager() *Manager { return s.mgr }

// authenticate resolves the ?token= query parameter to a user ID.
// Runs before the upgrade so failures are plain HTTP 401s.
func (s *Server) authenticate(c *gin.Context) (int64, bool) {
	sub, err := security.Verify(s.jwt, c.Query("token"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenExpired)
		return 0, false
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrUnauthorized)
		return 0, false
	}
	return userID, true
}

// HandleChatWS serves GET /api/chat/ws/:groupID. Membership is checked
// before the upgrade; after Connect the loop reads chat frames, persists
// them, fans them out to the room minus the sender, and acks the sender.
func (s *Server) HandleChatWS(c *gin.Context) {
	userID, ok := s.authenticate(c)
	if !ok {
		return
	}
	groupID, err := strconv.ParseInt(c.Param("groupID"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errs.ErrBadRequest)
		return
	}

	member, err := s.chats.IsMember(c.Request.Context(), userID, groupID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, errs.ErrInternal)
		return
	}
	if !member {
		c.AbortWithStatusJSON(http.StatusForbidden, errs.ErrNotMember)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade error: %v", err)
		return
	}

	room := GroupRoom(groupID)
	user := strconv.FormatInt(userID, 10)
	client := NewClient(ids.GenerateString(), ws, s.sendBuf)
	go client.WritePump()

	s.mgr.Connect(client, user, room)
	defer s.mgr.Disconnect(client)

	s.readLoop(ws, client, func(frame *inboundFrame) {
		if frame.Type != KindChatMessage || frame.Content == "" {
			return
		}
		msgType := frame.MessageType
		if msgType == "" {
			msgType = "text"
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		saved, err := s.chats.SaveMessage(ctx, groupID, userID, frame.Content, msgType)
		cancel()
		if err != nil {
			logger.Errorf("[ws] save message group=%d user=%s err=%v", groupID, user, err)
			return
		}

		env, err := NewEnvelope(KindChatMessage, room, user, gin.H{
			"id":              saved.ID,
			"content":         frame.Content,
			"message_type":    msgType,
			"sender_username": saved.SenderUsername,
			"timestamp":       saved.Timestamp.UnixMilli(),
		})
		if err != nil {
			return
		}
		s.mgr.Broadcast(room, env, user)

		if ack, err := NewEnvelope(KindAck, room, "", gin.H{
			"status":     "delivered",
			"message_id": saved.ID,
		}); err == nil {
			s.mgr.Send(user, room, ack)
		}
	})
}

// HandleFileWS serves GET /ws/file/:fileID. Every editor of the file joins
// the same room; updates are persisted and rebroadcast to the whole room,
// sender included, which is how clients confirm their own edits landed.
func (s *Server) HandleFileWS(c *gin.Context) {
	userID, ok := s.authenticate(c)
	if !ok {
		return
	}
	fileID, err := strconv.ParseInt(c.Param("fileID"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errs.ErrBadRequest)
		return
	}

	content, err := s.files.FileForUser(c.Request.Context(), userID, fileID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, errs.ErrNotFound)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade error: %v", err)
		return
	}

	room := FileRoom(fileID)
	user := strconv.FormatInt(userID, 10)
	client := NewClient(ids.GenerateString(), ws, s.sendBuf)
	go client.WritePump()

	s.mgr.Connect(client, user, room)
	defer s.mgr.Disconnect(client)

	if init, err := NewEnvelope(KindInit, room, "", gin.H{"content": content}); err == nil {
		s.mgr.Send(user, room, init)
	}

	s.readLoop(ws, client, func(frame *inboundFrame) {
		if frame.Type != "update" {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := s.files.UpdateContent(ctx, fileID, frame.Content)
		cancel()
		if err != nil {
			logger.Errorf("[ws] update file=%d user=%s err=%v", fileID, user, err)
			return
		}
		if env, err := NewEnvelope(KindFileUpdate, room, user, gin.H{"content": frame.Content}); err == nil {
			s.mgr.Broadcast(room, env, "")
		}
	})
}

// readLoop pulls frames off the socket until the peer goes away. Pongs
// extend the read deadline; the write pump produces the pings.
func (s *Server) readLoop(ws *websocket.Conn, client *Client, handle func(*inboundFrame)) {
	ws.SetReadLimit(readLimit)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed conn=%s", client.ID())
			} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
				logger.Infof("[ws] read timeout conn=%s", client.ID())
			} else {
				logger.Infof("[ws] read err conn=%s err=%v", client.ID(), err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[ws] bad frame conn=%s err=%v sample=%q", client.ID(), err, sample)
			continue
		}
		handle(&frame)
	}
}
