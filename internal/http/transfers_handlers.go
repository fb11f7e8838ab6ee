package httpapi

import (
	"net/http"
	"strconv"

	"zenith-backend/internal/services"
)

type TransferRequest struct {
	SkillID   int64 `json:"skillId"`
	TeacherID int64 `json:"teacherId"`
}

type SessionItem struct {
	SessionTitle string `json:"sessionTitle"`
	Points       int    `json:"points"`
}

type AcceptRequest struct {
	Sessions []SessionItem `json:"sessions"`
}

func (s *Server) RequestTransfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidPayload(w)
		return
	}
	if req.SkillID <= 0 || req.TeacherID <= 0 {
		WriteError(w, http.StatusBadRequest, services.CodeValidation, "skillId and teacherId are required")
		return
	}
	transfer, err := s.Transfers.Request(r.Context(), CurrentStudent(r), req.SkillID, req.TeacherID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	details, err := s.Transfers.Details(r.Context(), CurrentStudent(r), transfer.ID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, transferDetailsResponse(details))
}

func (s *Server) TeachersSearch(w http.ResponseWriter, r *http.Request) {
	skillID, err := strconv.ParseInt(r.URL.Query().Get("skillId"), 10, 64)
	if err != nil || skillID <= 0 {
		WriteError(w, http.StatusBadRequest, services.CodeValidation, "skillId is required")
		return
	}
	items, err := s.Transfers.TeachersSearch(r.Context(), CurrentStudent(r), skillID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, ItemsResponse[TeacherDTO]{Items: teacherDTOs(items)})
}

func (s *Server) MyRequests(w http.ResponseWriter, r *http.Request) {
	items, err := s.Transfers.MyRequests(r.Context(), CurrentStudent(r), r.URL.Query().Get("direction"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, ItemsResponse[TransferDTO]{Items: transferDTOs(items)})
}

func (s *Server) MySkillTransfers(w http.ResponseWriter, r *http.Request) {
	items, err := s.Transfers.MySkillTransfers(r.Context(), CurrentStudent(r), r.URL.Query().Get("type"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, ItemsResponse[TransferDTO]{Items: transferDTOs(items)})
}

func (s *Server) TransferDetails(w http.ResponseWriter, r *http.Request) {
	transferID, ok := pathID(w, r, "transferId")
	if !ok {
		return
	}
	details, err := s.Transfers.Details(r.Context(), CurrentStudent(r), transferID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, transferDetailsResponse(details))
}

func (s *Server) AcceptTransfer(w http.ResponseWriter, r *http.Request) {
	transferID, ok := pathID(w, r, "transferId")
	if !ok {
		return
	}
	var req AcceptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidPayload(w)
		return
	}
	sessions := make([]services.SessionInput, 0, len(req.Sessions))
	for _, item := range req.Sessions {
		sessions = append(sessions, services.SessionInput{Title: item.SessionTitle, Points: item.Points})
	}
	details, err := s.Transfers.Accept(r.Context(), CurrentStudent(r), transferID, sessions)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, transferDetailsResponse(details))
}

func (s *Server) RejectTransfer(w http.ResponseWriter, r *http.Request) {
	transferID, ok := pathID(w, r, "transferId")
	if !ok {
		return
	}
	if err := s.Transfers.Reject(r.Context(), CurrentStudent(r), transferID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) AddSession(w http.ResponseWriter, r *http.Request) {
	transferID, ok := pathID(w, r, "transferId")
	if !ok {
		return
	}
	var req SessionItem
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidPayload(w)
		return
	}
	res, err := s.Transfers.AddSession(r.Context(), CurrentStudent(r), transferID, services.SessionInput{Title: req.SessionTitle, Points: req.Points})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, sessionResultResponse(res))
}

func (s *Server) CompleteSession(w http.ResponseWriter, r *http.Request) {
	transferID, ok := pathID(w, r, "transferId")
	if !ok {
		return
	}
	sessionID, ok := pathID(w, r, "sessionId")
	if !ok {
		return
	}
	res, err := s.Transfers.CompleteSession(r.Context(), CurrentStudent(r), transferID, sessionID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, sessionResultResponse(res))
}

func (s *Server) PaySession(w http.ResponseWriter, r *http.Request) {
	transferID, ok := pathID(w, r, "transferId")
	if !ok {
		return
	}
	sessionID, ok := pathID(w, r, "sessionId")
	if !ok {
		return
	}
	res, err := s.Transfers.PaySession(r.Context(), CurrentStudent(r), transferID, sessionID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, sessionResultResponse(res))
}
