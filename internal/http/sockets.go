package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"zenith-backend/internal/realtime"
	"zenith-backend/internal/services"
	"zenith-backend/pkg/logger"
)

const (
	frameJoinChat   = "joinChat"
	frameLeaveChat  = "leaveChat"
	frameJoinedChat = "joinedChat"
	frameLeftChat   = "leftChat"
	frameError      = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// socketActor authenticates a socket handshake from the token query
// parameter, falling back to the Authorization header.
func (s *Server) socketActor(w http.ResponseWriter, r *http.Request) (services.Actor, bool) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = bearerToken(r)
	}
	if token == "" {
		writeUnauthorized(w)
		return services.Actor{}, false
	}
	claims, err := s.Tokens.Verify(token, services.TokenAccess)
	if err != nil {
		writeUnauthorized(w)
		return services.Actor{}, false
	}
	return actorFromClaims(claims), true
}

// socketContext ends when either the request or the server base context ends.
func socketContext(base context.Context, r *http.Request) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(r.Context())
	stop := context.AfterFunc(base, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (s *Server) ChatSocket(base context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := s.socketActor(w, r)
		if !ok {
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ctx, cancel := socketContext(base, r)
		defer cancel()
		s.Hub.Serve(ctx, conn, actor.UserID, s.chatFrames(actor))
	}
}

func (s *Server) chatFrames(actor services.Actor) realtime.FrameHandler {
	return func(ctx context.Context, c *realtime.Client, frame realtime.Frame) {
		switch frame.Event {
		case frameJoinChat, frameLeaveChat:
		default:
			_ = c.Send(frameError, map[string]string{"message": "Unknown event"})
			return
		}
		chatID, err := frameChatID(frame.Data)
		if err != nil {
			_ = c.Send(frameError, map[string]string{"message": "Invalid chat id"})
			return
		}
		if frame.Event == frameLeaveChat {
			s.Hub.Leave(c, services.ChatRoom(chatID))
			_ = c.Send(frameLeftChat, chatID)
			return
		}
		if _, err := s.Chats.Participant(ctx, actor, chatID); err != nil {
			message := "Chat not available"
			if serr, ok := services.AsServiceError(err); ok {
				message = serr.Message
			} else {
				s.Log.Error("join chat failed",
					zap.Int64(logger.FieldChatID, chatID),
					zap.Int64(logger.FieldUserID, actor.UserID),
					zap.Error(err),
				)
			}
			_ = c.Send(frameError, map[string]string{"message": message})
			return
		}
		s.Hub.Join(c, services.ChatRoom(chatID))
		_ = c.Send(frameJoinedChat, chatID)
	}
}

// frameChatID accepts the chat id as a JSON number or a numeric string.
func frameChatID(raw []byte) (int64, error) {
	value := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, strconv.ErrRange
	}
	return id, nil
}

func (s *Server) MetricsSocket(base context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := s.socketActor(w, r)
		if !ok {
			return
		}
		if !actor.IsAdmin() {
			writeForbidden(w)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ctx, cancel := socketContext(base, r)
		defer cancel()
		s.Hub.Serve(ctx, conn, actor.UserID, nil, services.MetricsRoom)
	}
}
