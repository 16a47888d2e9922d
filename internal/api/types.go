package api

import (
	"github.com/hackgods/clinic-scheduling-assistant/internal/llm"
)

type ChatRequest struct {
	History []llm.Message `json:"history"`
	Message string        `json:"message" validate:"required"`
}

type ChatResponse struct {
	Reply   string        `json:"reply"`
	History []llm.Message `json:"history"`
}

type DoctorResponse struct {
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
}

type SpecialtiesResponse struct {
	Specialties []string `json:"specialties"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
