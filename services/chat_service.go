package services

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"presence-chat/contract"
	"presence-chat/domain"
	"presence-chat/errors"
	"presence-chat/moderation"
	"presence-chat/repositories"
	"presence-chat/validation"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IChatService interface {
	Join(name string) (Session, error)
	CheckSession(name string, session string) error
	ListParticipants() ([]domain.Participant, error)
	Heartbeat(name string) error
	Evict(snapshot domain.Participant) error
	SendMessage(sender string, cmd SendMessageCommand) (domain.Message, error)
	ListMessages(viewer string, rawLimit string) ([]domain.Message, error)
	EditMessage(rawID string, requester string, cmd EditMessageCommand) (domain.Message, error)
	DeleteMessage(rawID string, requester string) error
}

// SessionIssuer signs the token handed out for one join.
type SessionIssuer interface {
	GenerateToken(name string, session string) (string, error)
}

// Session is the outcome of a join. Token is empty when no issuer is wired.
type Session struct {
	Participant domain.Participant
	Token       string
}

// SendMessageCommand is the caller-controlled part of a new message.
// Sender and time are supplied by the service.
type SendMessageCommand struct {
	To   string
	Text string
	Kind string
}

// EditMessageCommand is a partial update; nil fields are left untouched.
type EditMessageCommand struct {
	To   *string
	Text *string
	Kind *string
}

type ChatService struct {
	log          *slog.Logger
	participants repositories.IParticipantRepository
	messages     repositories.IMessageRepository
	moderator    *moderation.Moderator
	publisher    contract.MessagePublisher
	sessions     SessionIssuer
	now          func() time.Time
}

// NewChatService wires the registry and the message store. A nil moderator
// disables censoring and a nil clock defaults to time.Now.
func NewChatService(
	log *slog.Logger,
	participants repositories.IParticipantRepository,
	messages repositories.IMessageRepository,
	moderator *moderation.Moderator,
	clock func() time.Time,
) *ChatService {
	if clock == nil {
		clock = time.Now
	}
	return &ChatService{
		log:          log,
		participants: participants,
		messages:     messages,
		moderator:    moderator,
		now:          clock,
	}
}

// WithPublisher makes the service push every stored message to publisher.
func (s *ChatService) WithPublisher(publisher contract.MessagePublisher) *ChatService {
	s.publisher = publisher
	return s
}

// WithSessions makes Join hand out a token signed by issuer.
func (s *ChatService) WithSessions(issuer SessionIssuer) *ChatService {
	s.sessions = issuer
	return s
}

func (s *ChatService) publish(eventType domain.FeedEventType, message domain.Message) {
	if s.publisher != nil {
		s.publisher.Publish(domain.FeedEvent{Type: eventType, Message: message})
	}
}

// Join registers name and announces the arrival to everyone.
// The token is signed before the registration commits, so a signing failure
// leaves nothing behind and the same name can be retried.
func (s *ChatService) Join(name string) (Session, error) {
	req := validation.JoinRequest{Name: name}
	if err := validation.ValidateJoin(req); err != nil {
		return Session{}, unprocessable(err)
	}
	req.Name = moderation.Sanitize(req.Name)
	if err := validation.ValidateJoin(req); err != nil {
		return Session{}, unprocessable(err)
	}

	now := s.now()
	participant := domain.Participant{Name: req.Name, SessionID: uuid.New(), LastActiveAt: now}
	var token string
	if s.sessions != nil {
		var err error
		token, err = s.sessions.GenerateToken(participant.Name, participant.SessionID.String())
		if err != nil {
			s.log.Error("Token generation failed", "name", participant.Name, "error", err)
			return Session{}, fmt.Errorf("%w: %w: %v", errors.ErrInternal, errors.ErrTokenGeneration, err)
		}
	}

	arrival := domain.NewStatusMessage(req.Name, domain.ArrivalText, now)
	if err := s.participants.CreateParticipant(participant, arrival); err != nil {
		return Session{}, s.storeError("join", err)
	}
	s.log.Info("Participant joined", "name", req.Name)
	s.publish(domain.FeedCreated, arrival)
	return Session{Participant: participant, Token: token}, nil
}

// CheckSession accepts session only while it is the current join of name.
// A token from before an eviction yields errors.ErrUnauthorized, even after
// the name is taken again.
func (s *ChatService) CheckSession(name string, session string) error {
	participant, err := s.participants.GetParticipant(name)
	if stderrors.Is(err, errors.ErrNotFound) {
		return fmt.Errorf("%w: %q has left", errors.ErrUnauthorized, name)
	}
	if err != nil {
		return s.storeError("check session", err)
	}
	if participant.SessionID.String() != session {
		return fmt.Errorf("%w: session of %q has ended", errors.ErrUnauthorized, name)
	}
	return nil
}

func (s *ChatService) ListParticipants() ([]domain.Participant, error) {
	participants, err := s.participants.ListParticipants()
	if err != nil {
		return nil, s.storeError("list participants", err)
	}
	return participants, nil
}

// Heartbeat refreshes the participant's last activity.
// A missing or unknown name yields errors.ErrNotFound.
func (s *ChatService) Heartbeat(name string) error {
	name = moderation.Sanitize(name)
	if name == "" {
		return fmt.Errorf("%w: no participant given", errors.ErrNotFound)
	}
	if err := s.participants.TouchParticipant(name, s.now()); err != nil {
		return s.storeError("heartbeat", err)
	}
	return nil
}

// Evict removes a participant observed as stale and announces the departure.
// It returns errors.ErrParticipantRefreshed when a heartbeat landed after the
// snapshot was taken; the participant is then kept.
func (s *ChatService) Evict(snapshot domain.Participant) error {
	departure := domain.NewStatusMessage(snapshot.Name, domain.DepartureText, s.now())
	err := s.participants.EvictParticipant(snapshot, departure)
	if stderrors.Is(err, errors.ErrParticipantRefreshed) {
		return err
	}
	if err != nil {
		return s.storeError("evict", err)
	}
	s.log.Info("Participant evicted", "name", snapshot.Name)
	s.publish(domain.FeedCreated, departure)
	return nil
}

// SendMessage validates, sanitizes and stores a message from sender.
// An unknown sender is reported as errors.ErrUnprocessable.
func (s *ChatService) SendMessage(sender string, cmd SendMessageCommand) (domain.Message, error) {
	req := validation.SendMessageRequest{
		From: sender,
		To:   cmd.To,
		Text: cmd.Text,
		Kind: cmd.Kind,
		Time: s.now().Format(domain.TimeLayout),
	}
	if err := validation.ValidateSendMessage(req); err != nil {
		return domain.Message{}, unprocessable(err)
	}
	req.From = moderation.Sanitize(req.From)
	req.To = moderation.Sanitize(req.To)
	req.Text = moderation.Sanitize(req.Text)
	req.Kind = moderation.Sanitize(req.Kind)
	if err := validation.ValidateSendMessage(req); err != nil {
		return domain.Message{}, unprocessable(err)
	}
	if err := checkAddressing(domain.Kind(req.Kind), req.To); err != nil {
		return domain.Message{}, err
	}
	if err := s.requireParticipant(req.From); err != nil {
		return domain.Message{}, err
	}

	message := domain.Message{
		ID:   uuid.New(),
		From: req.From,
		To:   req.To,
		Text: s.moderator.Censor(req.Text),
		Kind: domain.Kind(req.Kind),
		Time: req.Time,
	}
	if err := s.messages.StoreMessage(message); err != nil {
		return domain.Message{}, s.storeError("send message", err)
	}
	s.publish(domain.FeedCreated, message)
	return message, nil
}

// ListMessages returns what viewer may read in store order, keeping only the
// last rawLimit entries when a limit is given.
func (s *ChatService) ListMessages(viewer string, rawLimit string) ([]domain.Message, error) {
	limit, err := validation.ValidateLimit(rawLimit)
	if err != nil {
		return nil, unprocessable(err)
	}
	messages, err := s.messages.GetVisibleTo(moderation.Sanitize(viewer))
	if err != nil {
		return nil, s.storeError("list messages", err)
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	if limit == nil {
		return messages, nil
	}
	return lo.Subset(messages, -*limit, uint(*limit)), nil
}

// EditMessage applies the provided fields when requester authored the message.
// Checks run in order: payload shape, requester registration (Unprocessable),
// existence (NotFound), ownership (Forbidden).
func (s *ChatService) EditMessage(rawID string, requester string, cmd EditMessageCommand) (domain.Message, error) {
	req := validation.EditMessageRequest{To: cmd.To, Text: cmd.Text, Kind: cmd.Kind}
	if err := validation.ValidateEditMessage(req); err != nil {
		return domain.Message{}, unprocessable(err)
	}
	req.To = sanitizePtr(req.To)
	req.Text = sanitizePtr(req.Text)
	req.Kind = sanitizePtr(req.Kind)
	if err := validation.ValidateEditMessage(req); err != nil {
		return domain.Message{}, unprocessable(err)
	}

	requester = moderation.Sanitize(requester)
	if err := s.requireParticipant(requester); err != nil {
		return domain.Message{}, err
	}
	id, err := parseID(rawID)
	if err != nil {
		return domain.Message{}, err
	}

	patch := domain.MessagePatch{To: req.To}
	if req.Text != nil {
		patch.Text = lo.ToPtr(s.moderator.Censor(*req.Text))
	}
	if req.Kind != nil {
		patch.Kind = lo.ToPtr(domain.Kind(*req.Kind))
	}

	edited, err := s.messages.UpdateMessage(id, requester, func(current domain.Message) (domain.Message, error) {
		next := patch.Apply(current, s.now())
		if err := checkAddressing(next.Kind, next.To); err != nil {
			return domain.Message{}, err
		}
		return next, nil
	})
	if err != nil {
		return domain.Message{}, s.storeError("edit message", err)
	}
	s.publish(domain.FeedEdited, edited)
	return edited, nil
}

// DeleteMessage removes the message when requester authored it.
func (s *ChatService) DeleteMessage(rawID string, requester string) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}
	if err = s.messages.DeleteMessage(id, moderation.Sanitize(requester)); err != nil {
		return s.storeError("delete message", err)
	}
	return nil
}

func (s *ChatService) requireParticipant(name string) error {
	_, err := s.participants.GetParticipant(name)
	if stderrors.Is(err, errors.ErrNotFound) {
		return fmt.Errorf("%w: unknown participant %q", errors.ErrUnprocessable, name)
	}
	if err != nil {
		return s.storeError("get participant", err)
	}
	return nil
}

// storeError passes domain outcomes through and turns anything else into
// errors.ErrInternal, keeping the fault text for the caller.
func (s *ChatService) storeError(operation string, err error) error {
	for _, known := range []error{errors.ErrConflict, errors.ErrNotFound, errors.ErrForbidden, errors.ErrUnprocessable} {
		if stderrors.Is(err, known) {
			return err
		}
	}
	s.log.Error("Store operation failed", "operation", operation, "error", err)
	return fmt.Errorf("%w: %v", errors.ErrInternal, err)
}

// checkAddressing rejects private messages sent to the broadcast address.
func checkAddressing(kind domain.Kind, to string) error {
	if kind == domain.KindPrivateMessage && to == domain.Broadcast {
		return unprocessable(validation.Violations{{Field: "to", Rule: "private_message_needs_recipient"}})
	}
	return nil
}

func unprocessable(err error) error {
	return fmt.Errorf("%w: %w", errors.ErrUnprocessable, err)
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: message %q", errors.ErrNotFound, raw)
	}
	return id, nil
}

func sanitizePtr(value *string) *string {
	if value == nil {
		return nil
	}
	return lo.ToPtr(moderation.Sanitize(*value))
}
