package api

import (
	"dm-lab/auth"
	"dm-lab/domain"
	apperrors "dm-lab/errors"
	"dm-lab/observability"
	"dm-lab/services"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type recommendationsResponse struct {
	User               *domain.InterestProfile `json:"user"`
	RecommendedFriends []domain.Recommendation `json:"recommended_friends"`
}

// fetchUnread serves the receiver's poll: unread messages from senderId, marked read as they are returned.
func (h *handler) fetchUnread(w http.ResponseWriter, r *http.Request) {
	senderID, receiverID, err := pathPair(r, "senderId", "receiverId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	caller, _ := auth.CallerFrom(r.Context())
	if caller != receiverID {
		h.writeError(w, r, apperrors.ErrNotParticipant)
		return
	}
	messages, err := h.Conversations.FetchUnread(r.Context(), senderID, receiverID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *handler) send(w http.ResponseWriter, r *http.Request) {
	var req services.SendMessageRequest
	if !h.decode(w, r, &req) {
		return
	}
	// A missing sender is left to validation.
	caller, _ := auth.CallerFrom(r.Context())
	if req.SenderID.Valid() && req.SenderID != caller {
		h.writeError(w, r, apperrors.ErrNotParticipant)
		return
	}
	message, err := h.Conversations.Send(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, message)
}

// listConversation sends callers outside the conversation back to the home page.
func (h *handler) listConversation(w http.ResponseWriter, r *http.Request) {
	userA, userB, err := pathPair(r, "userA", "userB")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	caller, _ := auth.CallerFrom(r.Context())
	if caller != userA && caller != userB {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	messages, err := h.Conversations.ListConversation(r.Context(), userA, userB)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *handler) recommendations(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r.Context())
	response := recommendationsResponse{
		RecommendedFriends: h.Recommender.Recommend(caller, h.RecommendationLimit),
	}
	if profile, ok := h.Recommender.Profile(caller); ok {
		response.User = &profile
	}
	if h.Metrics != nil {
		h.Metrics.RecommendationServed()
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if !h.decode(w, r, &creds) {
		return
	}
	session, err := h.Accounts.Register(r.Context(), creds.Username, creds.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.Log.Info("Account registered", "user_id", session.UserID)
	writeJSON(w, http.StatusCreated, session)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if !h.decode(w, r, &creds) {
		return
	}
	session, err := h.Accounts.Login(r.Context(), creds.Username, creds.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *handler) users(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r.Context())
	accounts, err := h.Accounts.ListOthers(r.Context(), caller)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) debugStats(w http.ResponseWriter, _ *http.Request) {
	startedAt := time.Now()
	if h.Metrics != nil {
		startedAt = h.Metrics.StartTime
	}
	stats, err := observability.CollectProcessStats(startedAt)
	if err != nil {
		h.Log.Warn("Partial process stats", "error", err)
	}
	writeJSON(w, http.StatusOK, stats)
}

// decode reads a JSON body, answering 400 itself on failure.
func (h *handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		h.writeError(w, r, apperrors.NewValidationError("request", "json", err))
		return false
	}
	return true
}

func pathPair(r *http.Request, nameA, nameB string) (domain.UserID, domain.UserID, error) {
	fields := make(map[string]string)
	a, err := domain.ParseUserID(chi.URLParam(r, nameA))
	if err != nil {
		fields[nameA] = "gt"
	}
	b, err := domain.ParseUserID(chi.URLParam(r, nameB))
	if err != nil {
		fields[nameB] = "gt"
	}
	if len(fields) > 0 {
		return 0, 0, &apperrors.ValidationError{Fields: fields}
	}
	return a, b, nil
}
