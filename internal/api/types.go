package api

import "github.com/guc1/domain-agent/internal/core"

type startSessionRequest struct {
	InitialBrief string `json:"initial_brief" validate:"required"`
}

type startSessionResponse struct {
	SessionID string          `json:"session_id"`
	Questions []core.Question `json:"questions"`
}

type submitAnswersRequest struct {
	Answers map[string]string `json:"answers" validate:"required,min=1"`
}

type promptResponse struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Available []string            `json:"available"`
	Taken     []string            `json:"taken"`
	History   []core.HistoryEntry `json:"history"`
}

type feedbackRequest struct {
	Liked         map[string]string `json:"liked,omitempty"`
	Disliked      map[string]string `json:"disliked,omitempty"`
	DislikeReason string            `json:"dislike_reason,omitempty"`
}

type feedbackResponse struct {
	Prompt    string          `json:"prompt"`
	Questions []core.Question `json:"questions"`
}

type settingsResponse struct {
	Settings core.Settings `json:"settings"`
}

type clarifyRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

type clarifyResponse struct {
	Questions []core.Question `json:"questions"`
}

type combineRequest struct {
	PreviousPrompt  string            `json:"previous_prompt" validate:"required"`
	Answers         map[string]string `json:"answers,omitempty"`
	QuestionMap     map[string]string `json:"question_map,omitempty"`
	LikedDomains    map[string]string `json:"liked_domains,omitempty"`
	DislikedDomains map[string]string `json:"disliked_domains,omitempty"`
	TakenDomains    []string          `json:"taken_domains,omitempty"`
}

type errorResponse struct {
	Error errorInfo `json:"error"`
}

type errorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
