package httpapi

import (
	"net/http"

	"zenith-backend/internal/models"
	"zenith-backend/internal/services"
)

type CreateSkillRequest struct {
	Name string `json:"name"`
}

type StudentSkillItem struct {
	SkillID     int64  `json:"skillId"`
	Type        string `json:"type"`
	Points      int    `json:"points"`
	Description string `json:"description"`
}

type ReplaceStudentSkillsRequest struct {
	Skills []StudentSkillItem `json:"skills"`
}

func (s *Server) ListSkills(w http.ResponseWriter, r *http.Request) {
	skills, err := s.Skills.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, ItemsResponse[SkillDTO]{Items: skillDTOs(skills)})
}

func (s *Server) CreateSkill(w http.ResponseWriter, r *http.Request) {
	var req CreateSkillRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidPayload(w)
		return
	}
	skill, err := s.Skills.Create(r.Context(), req.Name)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, SkillDTO{ID: skill.ID, Name: skill.Name})
}

func (s *Server) StudentSkills(w http.ResponseWriter, r *http.Request) {
	studentID, ok := pathID(w, r, "studentId")
	if !ok {
		return
	}
	items, err := s.Skills.StudentSkills(r.Context(), studentID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, ItemsResponse[StudentSkillDTO]{Items: studentSkillDTOs(items)})
}

func (s *Server) ReplaceStudentSkills(w http.ResponseWriter, r *http.Request) {
	studentID, ok := pathID(w, r, "studentId")
	if !ok {
		return
	}
	var req ReplaceStudentSkillsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidPayload(w)
		return
	}
	inputs := make([]services.StudentSkillInput, 0, len(req.Skills))
	for _, item := range req.Skills {
		inputs = append(inputs, services.StudentSkillInput{
			SkillID:     item.SkillID,
			Type:        models.SkillType(item.Type),
			Points:      item.Points,
			Description: item.Description,
		})
	}
	items, err := s.Skills.Replace(r.Context(), CurrentStudent(r), studentID, inputs)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, ItemsResponse[StudentSkillDTO]{Items: studentSkillDTOs(items)})
}
