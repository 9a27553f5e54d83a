package services

import (
	"context"
	"dm-lab/domain"
	"dm-lab/errors"
	"dm-lab/repositories"
	stderrors "errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type IConversationService interface {
	FetchUnread(ctx context.Context, senderID, receiverID domain.UserID) ([]domain.Message, error)
	Send(ctx context.Context, req SendMessageRequest) (domain.Message, error)
	ListConversation(ctx context.Context, userA, userB domain.UserID) ([]domain.Message, error)
}

// SendMessageRequest is the payload of a new message. Field names in validation errors follow the json tags.
type SendMessageRequest struct {
	SenderID   domain.UserID `json:"senderId" validate:"required,gt=0"`
	ReceiverID domain.UserID `json:"receiverId" validate:"required,gt=0,nefield=SenderID"`
	Body       string        `json:"body" validate:"required,notblank"`
}

// UserDirectory answers whether an account exists.
type UserDirectory interface {
	Exists(ctx context.Context, id domain.UserID) (bool, error)
}

// Censor rewrites a body before it is stored.
type Censor interface {
	Censor(body string) string
}

// MessageRecorder receives conversation counters.
type MessageRecorder interface {
	MessageSent()
	MessagesRead(n int)
}

type ConversationService struct {
	log              *slog.Logger
	repository       repositories.IMessageRepository
	validate         *validator.Validate
	maxContentLength int
	directory        UserDirectory
	censor           Censor
	recorder         MessageRecorder
	now              func() time.Time
}

type Option func(*ConversationService)

// WithDirectory rejects messages whose sender or receiver has no account.
func WithDirectory(directory UserDirectory) Option {
	return func(s *ConversationService) { s.directory = directory }
}

func WithCensor(censor Censor) Option {
	return func(s *ConversationService) { s.censor = censor }
}

func WithRecorder(recorder MessageRecorder) Option {
	return func(s *ConversationService) { s.recorder = recorder }
}

func WithClock(now func() time.Time) Option {
	return func(s *ConversationService) { s.now = now }
}

// NewConversationService builds the service. maxContentLength bounds a body in runes, 0 disables the bound.
func NewConversationService(log *slog.Logger, repository repositories.IMessageRepository,
	maxContentLength int, opts ...Option) *ConversationService {
	s := &ConversationService{
		log:              log,
		repository:       repository,
		validate:         newValidator(),
		maxContentLength: maxContentLength,
		recorder:         noopRecorder{},
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchUnread returns the unread messages sent by senderID to receiverID and marks them read in the same
// store operation. Returning them is the acknowledgement: if the response never reaches the client the
// messages stay read and will not be served again.
func (s *ConversationService) FetchUnread(ctx context.Context, senderID, receiverID domain.UserID) ([]domain.Message, error) {
	if err := validatePair(senderID, receiverID); err != nil {
		return nil, err
	}
	messages, err := s.repository.ClaimUnread(ctx, senderID, receiverID)
	if err != nil {
		return nil, storeError(err)
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	sortConversation(messages)
	if len(messages) > 0 {
		s.recorder.MessagesRead(len(messages))
		s.log.Debug("Unread messages delivered", "sender", senderID, "receiver", receiverID, "count", len(messages))
	}
	return messages, nil
}

// Send validates and persists a new unread message.
func (s *ConversationService) Send(ctx context.Context, req SendMessageRequest) (domain.Message, error) {
	if err := s.validateSend(ctx, req); err != nil {
		return domain.Message{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return domain.Message{}, fmt.Errorf("message id: %w", err)
	}
	body := req.Body
	if s.censor != nil {
		body = s.censor.Censor(body)
	}
	message := domain.Message{
		ID:         id,
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Body:       body,
		CreatedAt:  s.now().UTC(),
		IsRead:     false,
	}
	if err = s.repository.Create(ctx, message); err != nil {
		return domain.Message{}, storeError(err)
	}
	s.recorder.MessageSent()
	s.log.Debug("Message stored", "id", message.ID, "sender", message.SenderID, "receiver", message.ReceiverID)
	return message, nil
}

// ListConversation returns both directions between userA and userB, oldest first. Read flags are untouched.
func (s *ConversationService) ListConversation(ctx context.Context, userA, userB domain.UserID) ([]domain.Message, error) {
	if !userA.Valid() || !userB.Valid() {
		return nil, &errors.ValidationError{Fields: invalidIDs(userA, userB, "userA", "userB")}
	}
	messages, err := s.repository.Find(ctx, repositories.MessageFilter{SenderID: userA, ReceiverID: userB})
	if err != nil {
		return nil, storeError(err)
	}
	if userA != userB {
		replies, err := s.repository.Find(ctx, repositories.MessageFilter{SenderID: userB, ReceiverID: userA})
		if err != nil {
			return nil, storeError(err)
		}
		messages = append(messages, replies...)
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	sortConversation(messages)
	return messages, nil
}

func (s *ConversationService) validateSend(ctx context.Context, req SendMessageRequest) error {
	if err := s.validate.Struct(req); err != nil {
		var fieldErrors validator.ValidationErrors
		if !stderrors.As(err, &fieldErrors) {
			return err
		}
		verr := &errors.ValidationError{Fields: make(map[string]string, len(fieldErrors))}
		for _, fe := range fieldErrors {
			verr.Fields[fe.Field()] = fe.Tag()
			if fe.Tag() == "nefield" {
				verr.Cause = errors.ErrSameParticipants
			}
		}
		return verr
	}
	if s.maxContentLength > 0 && utf8.RuneCountInString(req.Body) > s.maxContentLength {
		return errors.NewValidationError("body", fmt.Sprintf("max=%d", s.maxContentLength), nil)
	}
	if s.directory == nil {
		return nil
	}
	participants := []struct {
		field string
		id    domain.UserID
	}{{"senderId", req.SenderID}, {"receiverId", req.ReceiverID}}
	for _, p := range participants {
		exists, err := s.directory.Exists(ctx, p.id)
		if err != nil {
			return storeError(err)
		}
		if !exists {
			return errors.NewValidationError(p.field, "unknown", errors.ErrUnknownParticipant)
		}
	}
	return nil
}

func validatePair(senderID, receiverID domain.UserID) error {
	if fields := invalidIDs(senderID, receiverID, "senderId", "receiverId"); len(fields) > 0 {
		return &errors.ValidationError{Fields: fields}
	}
	return nil
}

func invalidIDs(a, b domain.UserID, nameA, nameB string) map[string]string {
	fields := make(map[string]string)
	if !a.Valid() {
		fields[nameA] = "gt"
	}
	if !b.Valid() {
		fields[nameB] = "gt"
	}
	return fields
}

func sortConversation(messages []domain.Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Before(messages[j])
	})
}

// storeError tags infrastructure failures so the transport can answer 5xx without leaking details.
// Cancellation is returned untouched.
func storeError(err error) error {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", errors.ErrStore, err)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

type noopRecorder struct{}

func (noopRecorder) MessageSent()     {}
func (noopRecorder) MessagesRead(int) {}
