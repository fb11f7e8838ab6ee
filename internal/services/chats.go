package services

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"zenith-backend/internal/models"
	"zenith-backend/internal/store"
	"zenith-backend/pkg/logger"
)

const (
	EventNewMessage = "newMessage"
	maxMessageRunes = 4000
)

// Notifier pushes an event to every connection joined to room.
type Notifier interface {
	Notify(ctx context.Context, room, event string, payload any) error
}

// ChatRoom is the realtime room a chat's events are emitted to.
func ChatRoom(chatID int64) string {
	return "chat_" + strconv.FormatInt(chatID, 10)
}

type ChatService struct {
	store    store.Store
	notifier Notifier
	log      *zap.Logger
}

func NewChatService(s store.Store, notifier Notifier, log *zap.Logger) *ChatService {
	return &ChatService{store: s, notifier: notifier, log: nopIfNil(log)}
}

func (s *ChatService) List(ctx context.Context, actor Actor) ([]models.ChatSummary, error) {
	items, err := s.store.ChatsByUser(ctx, actor.UserID)
	if err != nil {
		return nil, WrapError(err, "list chats")
	}
	return items, nil
}

// Create returns the existing chat of the pair or opens one.
func (s *ChatService) Create(ctx context.Context, actor Actor, otherUserID int64) (*models.Chat, error) {
	if otherUserID == actor.UserID {
		return nil, ErrValidation("You cannot chat with yourself")
	}
	if _, err := s.store.UserByID(ctx, otherUserID); err != nil {
		return nil, translate(err, "load user", "User not found")
	}
	chat, err := s.store.FindOrCreateChat(ctx, actor.UserID, otherUserID)
	if err != nil {
		return nil, translate(err, "create chat", "User not found")
	}
	return chat, nil
}

// Participant loads the chat and checks the actor belongs to it.
func (s *ChatService) Participant(ctx context.Context, actor Actor, chatID int64) (*models.Chat, error) {
	chat, err := s.store.ChatByID(ctx, chatID)
	if err != nil {
		return nil, translate(err, "load chat", "Chat not found")
	}
	if !chat.HasParticipant(actor.UserID) {
		return nil, ErrForbidden("You are not part of this chat")
	}
	return chat, nil
}

func (s *ChatService) Messages(ctx context.Context, actor Actor, chatID int64) ([]models.Message, error) {
	if _, err := s.Participant(ctx, actor, chatID); err != nil {
		return nil, err
	}
	messages, err := s.store.Messages(ctx, chatID)
	if err != nil {
		return nil, WrapError(err, "list messages")
	}
	return messages, nil
}

// Send persists the message, then pushes it to the chat room. A failed push
// does not fail the send; clients catch up on their next fetch.
func (s *ChatService) Send(ctx context.Context, actor Actor, chatID int64, content string) (*models.Message, error) {
	if _, err := s.Participant(ctx, actor, chatID); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrValidation("Message content is required")
	}
	if len([]rune(content)) > maxMessageRunes {
		return nil, ErrValidation("Message is too long")
	}
	message := &models.Message{ChatID: chatID, SenderID: actor.UserID, Content: content}
	if err := s.store.CreateMessage(ctx, message); err != nil {
		return nil, translate(err, "create message", "Chat not found")
	}
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, ChatRoom(chatID), EventNewMessage, MessagePayload(*message)); err != nil {
			s.log.Warn("new message notification failed",
				zap.Int64(logger.FieldChatID, chatID),
				zap.Error(err),
			)
		}
	}
	return message, nil
}

// MessageView is the wire form of a message.
type MessageView struct {
	ID        int64  `json:"id"`
	ChatID    int64  `json:"chatId"`
	SenderID  int64  `json:"senderId"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

func MessagePayload(m models.Message) MessageView {
	return MessageView{
		ID:        m.ID,
		ChatID:    m.ChatID,
		SenderID:  m.SenderID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}
