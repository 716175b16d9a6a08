// Package api provides the JSON/HTTP surface over the session orchestrator.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/guc1/domain-agent/internal/core"
	"github.com/guc1/domain-agent/internal/metrics"
)

// Handler serves the session API.
type Handler struct {
	orc      *core.Orchestrator
	validate *validator.Validate
	log      core.Logger
}

// NewHandler creates a Handler around the orchestrator.
func NewHandler(orc *core.Orchestrator, log core.Logger) *Handler {
	return &Handler{
		orc:      orc,
		validate: validator.New(),
		log:      log,
	}
}

// Router assembles the chi router with middleware and all routes.
func (h *Handler) Router(apiKey string) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)

	r.Get("/healthz", h.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(RequireAPIKey(apiKey))

		r.Post("/sessions", h.startSession)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Post("/answers", h.submitAnswers)
			r.Post("/generate", h.generate)
			r.Post("/feedback", h.feedback)
			r.Get("/state", h.getState)
			r.Get("/settings", h.getSettings)
			r.Post("/settings", h.setSettings)
		})
		r.Post("/clarify", h.clarify)
		r.Post("/combine", h.combine)
	})

	return r
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.orc.Start(r.Context(), req.InitialBrief)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, startSessionResponse{
		SessionID: result.SessionID,
		Questions: result.Questions,
	})
}

func (h *Handler) submitAnswers(w http.ResponseWriter, r *http.Request) {
	var req submitAnswersRequest
	if !h.decode(w, r, &req) {
		return
	}
	prompt, err := h.orc.SubmitAnswers(r.Context(), chi.URLParam(r, "sessionID"), req.Answers)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, promptResponse{Prompt: prompt})
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	result, err := h.orc.Generate(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, generateResponse{
		Available: result.Available,
		Taken:     result.Taken,
		History:   result.History,
	})
}

func (h *Handler) feedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.orc.Feedback(r.Context(), chi.URLParam(r, "sessionID"), core.FeedbackInput{
		Liked:         req.Liked,
		Disliked:      req.Disliked,
		DislikeReason: req.DislikeReason,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, feedbackResponse{
		Prompt:    result.Prompt,
		Questions: result.Questions,
	})
}

func (h *Handler) getState(w http.ResponseWriter, r *http.Request) {
	sess, err := h.orc.GetState(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.orc.GetSettings(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{Settings: settings})
}

func (h *Handler) setSettings(w http.ResponseWriter, r *http.Request) {
	var overrides map[string]any
	if err := json.NewDecoder(r.Body).Decode(&overrides); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "MALFORMED_BODY", "request body is not valid JSON")
		return
	}
	settings, err := h.orc.SetSettings(r.Context(), chi.URLParam(r, "sessionID"), overrides)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse{Settings: settings})
}

func (h *Handler) clarify(w http.ResponseWriter, r *http.Request) {
	var req clarifyRequest
	if !h.decode(w, r, &req) {
		return
	}
	questions, err := h.orc.Clarify(r.Context(), req.Prompt)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clarifyResponse{Questions: questions})
}

func (h *Handler) combine(w http.ResponseWriter, r *http.Request) {
	var req combineRequest
	if !h.decode(w, r, &req) {
		return
	}
	prompt, err := h.orc.Combine(r.Context(), core.CombineInput{
		PreviousPrompt: req.PreviousPrompt,
		Answers:        req.Answers,
		QuestionMap:    req.QuestionMap,
		Liked:          req.LikedDomains,
		Disliked:       req.DislikedDomains,
		Taken:          req.TakenDomains,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, promptResponse{Prompt: prompt})
}

// decode unmarshals and validates a request body, replying 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "MALFORMED_BODY", "request body is not valid JSON")
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "MALFORMED_BODY", err.Error())
		return false
	}
	return true
}

// writeError maps orchestrator error kinds onto HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	kind := core.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case core.KindInvalidInput, core.KindInvalidAnswers, core.KindInvalidFeedback, core.KindSequence:
		status = http.StatusBadRequest
	case core.KindNotFound:
		status = http.StatusNotFound
	case core.KindUpstream:
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		h.log.Error("internal error", "error", err)
		writeErrorCode(w, status, "INTERNAL", "internal error")
		return
	}
	writeErrorCode(w, status, string(kind), err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":{"code":"INTERNAL","message":"failed to encode response"}}`, http.StatusInternalServerError)
	}
}

func writeErrorCode(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorInfo{Code: code, Message: message}})
}
