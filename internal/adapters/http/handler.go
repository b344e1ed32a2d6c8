package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PabloGalante/aiva-chat/internal/adapters/notify"
	"github.com/PabloGalante/aiva-chat/internal/app/conversation"
	"github.com/PabloGalante/aiva-chat/internal/app/identity"
	"github.com/PabloGalante/aiva-chat/internal/domain"
	"github.com/PabloGalante/aiva-chat/internal/observability"
)

// NoticeBoard is the toast list shown next to the chat.
type NoticeBoard interface {
	Active() []notify.Toast
	Dismiss(id string) bool
}

type Server struct {
	svc     *conversation.Service
	notices NoticeBoard
}

func NewServer(svc *conversation.Service, notices NoticeBoard) http.Handler {
	s := &Server{svc: svc, notices: notices}
	r := chi.NewRouter()

	r.Use(withMetrics)
	r.Use(middleware.RequestID)
	r.Use(withLogging)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.requireConfigured)

		r.Get("/state", s.handleState)

		r.Post("/chats", s.handleNewChat)
		r.Post("/chats/{id}/select", s.handleSelectChat)
		r.Delete("/chats/{id}", s.handleDeleteChat)

		r.Post("/messages", s.handleSendMessage)

		r.Post("/auth/request", s.handleRequestLogin)
		r.Post("/auth/cancel", s.handleCancelLogin)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/signup", s.handleSignup)
		r.Post("/auth/logout", s.handleLogout)

		r.Get("/notifications", s.handleNotifications)
		r.Delete("/notifications/{id}", s.handleDismissNotification)
	})

	return r
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type sendMessageRequest struct {
	Text string `json:"text"`
}

type sendMessageResponse struct {
	conversation.SendResult
	Error string `json:"error,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type newChatResponse struct {
	ChatID domain.ChatID     `json:"chat_id"`
	State  conversation.View `json:"state"`
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.State())
}

func (s *Server) handleNewChat(w http.ResponseWriter, r *http.Request) {
	id, err := s.svc.NewChat(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newChatResponse{ChatID: id, State: s.svc.State()})
}

func (s *Server) handleSelectChat(w http.ResponseWriter, r *http.Request) {
	id := domain.ChatID(chi.URLParam(r, "id"))
	s.respondState(w, r, s.svc.SelectChat(r.Context(), id))
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	id := domain.ChatID(chi.URLParam(r, "id"))
	s.respondState(w, r, s.svc.DeleteChat(r.Context(), id))
}

func (s *Server) handleRequestLogin(w http.ResponseWriter, r *http.Request) {
	s.respondState(w, r, s.svc.RequestLogin(r.Context()))
}

func (s *Server) handleCancelLogin(w http.ResponseWriter, r *http.Request) {
	s.respondState(w, r, s.svc.CancelLogin(r.Context()))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.respondState(w, r, s.svc.Logout(r.Context()))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	_, err := s.svc.Login(r.Context(), req.Email, req.Password)
	s.respondState(w, r, err)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	_, err := s.svc.Signup(r.Context(), req.Email, req.Password, req.ConfirmPassword)
	s.respondState(w, r, err)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.notices.Active())
}

func (s *Server) handleDismissNotification(w http.ResponseWriter, r *http.Request) {
	if !s.notices.Dismiss(chi.URLParam(r, "id")) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "notification not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSendMessage answers with one JSON result, or with a stream of
// server-sent events when the client accepts text/event-stream.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	// The reply must be finished and saved even if the client goes away.
	ctx := context.WithoutCancel(r.Context())

	if !strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		res, err := s.svc.SendMessage(ctx, req.Text, nil)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toSendResponse(res))
		return
	}

	sse := newEventWriter(w)
	res, err := s.svc.SendMessage(ctx, req.Text, func(msg domain.Message) {
		sse.send("chunk", msg)
	})
	if err != nil {
		if !sse.started {
			writeError(w, r, err)
			return
		}
		sse.send("error", map[string]string{"error": err.Error()})
		return
	}
	sse.send("done", toSendResponse(res))
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func toSendResponse(res *conversation.SendResult) sendMessageResponse {
	out := sendMessageResponse{SendResult: *res}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

// respondState writes err, or the state snapshot when err is nil.
func (s *Server) respondState(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.State())
}

// eventWriter writes server-sent events. Headers go out with the first event
// so a rejected send can still answer with a plain JSON error.
type eventWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func newEventWriter(w http.ResponseWriter) *eventWriter {
	f, _ := w.(http.Flusher)
	return &eventWriter{w: w, flusher: f}
}

func (e *eventWriter) send(event string, v any) {
	if !e.started {
		e.w.Header().Set("Content-Type", "text/event-stream")
		e.w.Header().Set("Cache-Control", "no-cache")
		e.w.Header().Set("Connection", "keep-alive")
		e.w.WriteHeader(http.StatusOK)
		e.started = true
	}

	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if _, err := fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrConfiguration), errors.Is(err, conversation.ErrNotStarted):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrChatNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrLoginRequired), errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrBusy), errors.Is(err, domain.ErrAuthPending), errors.Is(err, identity.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInitialization):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		observability.LoggerFromContext(r.Context()).Error("request failed", "error", err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}
