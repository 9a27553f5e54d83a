package main

import (
	"context"
	"dm-lab/domain"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestChatClient(t *testing.T) {
	var posted map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/messages/9/5":
			_ = json.NewEncoder(w).Encode([]domain.Message{{ID: uuid.Must(uuid.NewV7()), SenderID: 9, ReceiverID: 5, Body: "yo", IsRead: true}})
		case r.Method == http.MethodGet && r.URL.Path == "/api/conversations/5/9":
			_, _ = w.Write([]byte("[]"))
		case r.Method == http.MethodPost && r.URL.Path == "/api/messages":
			_ = json.NewDecoder(r.Body).Decode(&posted)
			if posted["body"] == "" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":{"message":"validation failed","code":"validation_failed"},"fields":{"body":"required"}}`))
				return
			}
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(domain.Message{ID: uuid.Must(uuid.NewV7()), SenderID: 5, ReceiverID: 9, Body: "hi", CreatedAt: time.Now().UTC()})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := &chatClient{http: server.Client(), baseURL: server.URL + "/", token: "token", self: 5, peer: 9}
	ctx := context.Background()

	t.Run("poll reads what the peer sent", func(t *testing.T) {
		req := require.New(t)
		messages, err := client.poll(ctx)
		req.NoError(err)
		req.Len(messages, 1)
		req.Equal("yo", messages[0].Body)
	})

	t.Run("history", func(t *testing.T) {
		messages, err := client.history(ctx)
		require.NoError(t, err)
		require.Empty(t, messages)
	})

	t.Run("send", func(t *testing.T) {
		req := require.New(t)
		message, err := client.send(ctx, "hi")
		req.NoError(err)
		req.Equal("hi", message.Body)
		req.Equal(float64(5), posted["senderId"])
		req.Equal(float64(9), posted["receiverId"])
	})

	t.Run("server errors are surfaced", func(t *testing.T) {
		req := require.New(t)
		_, err := client.send(ctx, "")
		req.ErrorContains(err, "validation failed")
		req.ErrorContains(err, "body")

		other := *client
		other.token = "wrong"
		_, err = other.poll(ctx)
		req.ErrorContains(err, "401")
	})
}
