package http

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"weld-academy-service/internal/app"
	"weld-academy-service/internal/domain"
)

// Handler serves the placement REST API.
type Handler struct {
	service *app.PlacementService
	limiter *UserLimiter
	log     *zap.Logger
}

func NewHandler(service *app.PlacementService, limiter *UserLimiter, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{service: service, limiter: limiter, log: log}
}

// Register mounts the REST routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /api/topics", h.topics)
	mux.HandleFunc("GET /api/questions", h.questions)
	mux.HandleFunc("POST /api/placement/grade", h.grade)
	mux.HandleFunc("POST /api/sessions", h.startSession)
	mux.HandleFunc("GET /api/sessions/{id}", h.session)
	mux.HandleFunc("POST /api/sessions/{id}/topic", h.selectTopic)
	mux.HandleFunc("PUT /api/sessions/{id}/answers", h.recordAnswer)
	mux.HandleFunc("POST /api/sessions/{id}/next", h.nextQuestion)
	mux.HandleFunc("POST /api/sessions/{id}/reset", h.resetSession)
	mux.HandleFunc("POST /api/sessions/{id}/submit", h.submit)
	mux.HandleFunc("GET /api/users/{id}", h.user)
	mux.HandleFunc("GET /api/users/{id}/results", h.results)
	mux.HandleFunc("POST /api/users/{id}/onboard", h.onboard)
}

func (h *Handler) topics(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.service.Topics(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, catalog)
}

func (h *Handler) questions(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("topic")
	topic := domain.TopicAll
	if raw != "" {
		parsed, err := domain.ParseTopic(raw)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		topic = parsed
	}
	questions, err := h.service.Questions(r.Context(), topic)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.Views(questions))
}

type gradeBody struct {
	UserID      string           `json:"user_id"`
	Answers     domain.AnswerSet `json:"answers"`
	QuestionIDs []string         `json:"question_ids,omitempty"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
}

func (h *Handler) grade(w http.ResponseWriter, r *http.Request) {
	var body gradeBody
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	// unknown users are rejected before they get a limiter bucket
	if _, err := h.service.User(r.Context(), body.UserID); err != nil {
		h.fail(w, r, err)
		return
	}
	if !h.limiter.Allow(body.UserID) {
		writeError(w, http.StatusTooManyRequests, "too many grading requests")
		return
	}

	req := app.GradeRequest{UserID: body.UserID, Answers: body.Answers, QuestionIDs: body.QuestionIDs}
	if body.StartedAt != nil {
		req.StartedAt = *body.StartedAt
	}
	outcome, err := h.service.Grade(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

type sessionBody struct {
	SessionID string           `json:"session_id"`
	UserID    string           `json:"user_id"`
	State     app.SessionState `json:"state"`
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"user_id"`
	}
	if err := decode(r, &body); err != nil || body.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	session, err := h.service.StartSession(r.Context(), body.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionBody{SessionID: session.ID(), UserID: session.UserID(), State: session.State()})
}

func (h *Handler) selectTopic(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Topic string `json:"topic"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	topic, err := domain.ParseTopic(body.Topic)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	questions, err := h.service.SelectTopic(r.Context(), r.PathValue("id"), topic)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.Views(questions))
}

func (h *Handler) recordAnswer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		QuestionID string `json:"question_id"`
		OptionID   string `json:"option_id"`
	}
	if err := decode(r, &body); err != nil || body.QuestionID == "" {
		writeError(w, http.StatusBadRequest, "question_id is required")
		return
	}
	progress, err := h.service.RecordAnswer(r.Context(), r.PathValue("id"), body.QuestionID, body.OptionID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

type questionBody struct {
	Question domain.QuestionView `json:"question"`
	Progress app.Progress        `json:"progress"`
}

func (h *Handler) nextQuestion(w http.ResponseWriter, r *http.Request) {
	question, progress, err := h.service.NextQuestion(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, questionBody{Question: question.View(), Progress: progress})
}

func (h *Handler) resetSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ResetSession(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type sessionStatus struct {
	sessionBody
	Topic    domain.Topic         `json:"topic,omitempty"`
	Progress app.Progress         `json:"progress"`
	Current  *domain.QuestionView `json:"current,omitempty"`
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	snap := session.Snapshot()
	status := sessionStatus{
		sessionBody: sessionBody{SessionID: snap.ID, UserID: snap.UserID, State: snap.State},
		Topic:       snap.Topic,
		Progress:    session.Progress(),
	}
	if q, ok := session.Current(); ok {
		view := q.View()
		status.Current = &view
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	session, err := h.service.Session(r.Context(), sessionID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !h.limiter.Allow(session.UserID()) {
		writeError(w, http.StatusTooManyRequests, "too many grading requests")
		return
	}
	outcome, err := h.service.Submit(r.Context(), sessionID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *Handler) user(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.User(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) results(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.Results(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) onboard(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Role     domain.Role `json:"role"`
		Headline string      `json:"headline"`
		Bio      string      `json:"bio"`
		Skills   []string    `json:"skills"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user, err := h.service.Onboard(r.Context(), app.OnboardRequest{
		UserID:   r.PathValue("id"),
		Role:     body.Role,
		Headline: body.Headline,
		Bio:      body.Bio,
		Skills:   body.Skills,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
