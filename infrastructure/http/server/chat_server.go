package server

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"presence-chat/auth"
	"presence-chat/domain"
	"presence-chat/errors"
	"presence-chat/runtime"
	"presence-chat/services"
	"presence-chat/validation"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/lo"
)

type ChatServer struct {
	log          *slog.Logger
	chatService  services.IChatService
	tokens       auth.TokenIssuer
	requireToken bool
	feed         *runtime.Feed
}

// NewChatServer builds the HTTP surface. A nil feed disables GET /feed.
func NewChatServer(log *slog.Logger, chatService services.IChatService,
	tokens auth.TokenIssuer, requireToken bool, feed *runtime.Feed) *ChatServer {
	return &ChatServer{log: log, chatService: chatService,
		tokens: tokens, requireToken: requireToken, feed: feed,
	}
}

// CreateServer wraps handler with the transport timeouts.
func CreateServer(address string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         address,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Routes builds the chat router. Joining and listing participants are open,
// every other route runs under the caller identity.
func (s *ChatServer) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Post("/participants", s.join)
	r.Get("/participants", s.listParticipants)

	r.Group(func(r chi.Router) {
		r.Use(auth.IdentityMiddleware(s.tokens, s.chatService, s.requireToken, s.writeError))
		r.Post("/messages", s.sendMessage)
		r.Get("/messages", s.listMessages)
		r.Post("/status", s.heartbeat)
		r.Delete("/messages/{id}", s.deleteMessage)
		r.Put("/messages/{id}", s.editMessage)
		if s.feed != nil {
			r.Get("/feed", s.streamFeed)
		}
	})
	return r
}

type joinRequest struct {
	Name string `json:"name"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type participantResponse struct {
	Name       string `json:"name"`
	LastStatus int64  `json:"lastStatus"`
}

type sendMessageRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
	Type string `json:"type"`
}

type editMessageRequest struct {
	To   *string `json:"to"`
	Text *string `json:"text"`
	Type *string `json:"type"`
}

type idResponse struct {
	ID string `json:"id"`
}

type messageResponse struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
	Type string `json:"type"`
	Time string `json:"time"`
}

type errorResponse struct {
	Error      string                `json:"error"`
	Violations validation.Violations `json:"violations,omitempty"`
}

func (s *ChatServer) join(w http.ResponseWriter, r *http.Request) {
	var body joinRequest
	if !s.decode(w, r, &body) {
		return
	}
	session, err := s.chatService.Join(body.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, tokenResponse{Token: session.Token})
}

func (s *ChatServer) listParticipants(w http.ResponseWriter, _ *http.Request) {
	participants, err := s.chatService.ListParticipants()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, lo.Map(participants, func(p domain.Participant, _ int) participantResponse {
		return participantResponse{Name: p.Name, LastStatus: p.LastActiveAt.UnixMilli()}
	}))
}

func (s *ChatServer) sendMessage(w http.ResponseWriter, r *http.Request) {
	var body sendMessageRequest
	if !s.decode(w, r, &body) {
		return
	}
	message, err := s.chatService.SendMessage(auth.IdentityFromContext(r.Context()), services.SendMessageCommand{
		To:   body.To,
		Text: body.Text,
		Kind: body.Type,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, idResponse{ID: message.ID.String()})
}

func (s *ChatServer) listMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := s.chatService.ListMessages(auth.IdentityFromContext(r.Context()), r.URL.Query().Get("limit"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toMessageResponse(messages))
}

func (s *ChatServer) heartbeat(w http.ResponseWriter, r *http.Request) {
	if err := s.chatService.Heartbeat(auth.IdentityFromContext(r.Context())); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *ChatServer) deleteMessage(w http.ResponseWriter, r *http.Request) {
	err := s.chatService.DeleteMessage(chi.URLParam(r, "id"), auth.IdentityFromContext(r.Context()))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *ChatServer) editMessage(w http.ResponseWriter, r *http.Request) {
	var body editMessageRequest
	if !s.decode(w, r, &body) {
		return
	}
	message, err := s.chatService.EditMessage(chi.URLParam(r, "id"), auth.IdentityFromContext(r.Context()),
		services.EditMessageCommand{To: body.To, Text: body.Text, Kind: body.Type})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toMessageResponse([]domain.Message{message})[0])
}

func toMessageResponse(messages []domain.Message) []messageResponse {
	return lo.Map(messages, func(item domain.Message, _ int) messageResponse {
		return messageResponse{
			ID:   item.ID.String(),
			From: item.From,
			To:   item.To,
			Text: item.Text,
			Type: string(item.Kind),
			Time: item.Time,
		}
	})
}

// decode reads a JSON body into dst. A malformed body is Unprocessable.
func (s *ChatServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, fmt.Errorf("%w: invalid JSON body: %v", errors.ErrUnprocessable, err))
		return false
	}
	return true
}

func (s *ChatServer) writeError(w http.ResponseWriter, err error) {
	code := errors.MapToHTTPStatus(err)
	body := errorResponse{Error: err.Error()}
	var violations validation.Violations
	if stderrors.As(err, &violations) {
		body.Violations = violations
	}
	if code >= http.StatusInternalServerError {
		s.log.Error("Request failed", "error", err)
	}
	s.writeJSON(w, code, body)
}

func (s *ChatServer) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Warn("Response encoding failed", "error", err)
	}
}

func (s *ChatServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("Request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
