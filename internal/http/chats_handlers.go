package httpapi

import (
	"net/http"

	"zenith-backend/internal/services"
)

type CreateChatRequest struct {
	OtherUserID int64 `json:"otherUserId"`
}

type SendMessageRequest struct {
	Content string `json:"content"`
}

func (s *Server) ListChats(w http.ResponseWriter, r *http.Request) {
	actor, _ := CurrentActor(r)
	chats, err := s.Chats.List(r.Context(), actor)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, ItemsResponse[ChatDTO]{Items: chatSummaryDTOs(chats)})
}

func (s *Server) CreateChat(w http.ResponseWriter, r *http.Request) {
	var req CreateChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidPayload(w)
		return
	}
	if req.OtherUserID <= 0 {
		WriteError(w, http.StatusBadRequest, services.CodeValidation, "otherUserId is required")
		return
	}
	actor, _ := CurrentActor(r)
	chat, err := s.Chats.Create(r.Context(), actor, req.OtherUserID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, ChatDTO{ID: chat.ID, OtherUserID: chat.Other(actor.UserID), CreatedAt: chat.CreatedAt})
}

func (s *Server) ListMessages(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(w, r, "chatId")
	if !ok {
		return
	}
	actor, _ := CurrentActor(r)
	messages, err := s.Chats.Messages(r.Context(), actor, chatID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	items := make([]services.MessageView, 0, len(messages))
	for _, m := range messages {
		items = append(items, services.MessagePayload(m))
	}
	WriteJSON(w, http.StatusOK, ItemsResponse[services.MessageView]{Items: items})
}

func (s *Server) SendMessage(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(w, r, "chatId")
	if !ok {
		return
	}
	var req SendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidPayload(w)
		return
	}
	actor, _ := CurrentActor(r)
	message, err := s.Chats.Send(r.Context(), actor, chatID, req.Content)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, services.MessagePayload(*message))
}
