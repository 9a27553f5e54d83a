package main

import (
	"bytes"
	"context"
	"dm-lab/api"
	"dm-lab/domain"
	"dm-lab/services"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// chatClient talks to the messaging server for one conversation, seen from self.
type chatClient struct {
	http    *http.Client
	baseURL string
	token   string
	self    domain.UserID
	peer    domain.UserID
}

// poll fetches what peer sent since the last poll. The server marks it read on the way out.
func (c *chatClient) poll(ctx context.Context) ([]domain.Message, error) {
	var messages []domain.Message
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/messages/%d/%d", c.peer, c.self), nil, &messages)
	return messages, err
}

func (c *chatClient) history(ctx context.Context) ([]domain.Message, error) {
	var messages []domain.Message
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/conversations/%d/%d", c.self, c.peer), nil, &messages)
	return messages, err
}

func (c *chatClient) send(ctx context.Context, body string) (domain.Message, error) {
	var message domain.Message
	req := services.SendMessageRequest{SenderID: c.self, ReceiverID: c.peer, Body: body}
	err := c.do(ctx, http.MethodPost, "/api/messages", req, &message)
	return message, err
}

func (c *chatClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimSuffix(c.baseURL, "/")+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var envelope api.ErrorEnvelope
		if err = json.NewDecoder(resp.Body).Decode(&envelope); err != nil || envelope.Error.Message == "" {
			return fmt.Errorf("%s %s: %s", method, path, resp.Status)
		}
		if len(envelope.Fields) > 0 {
			return fmt.Errorf("%s (%v)", envelope.Error.Message, envelope.Fields)
		}
		return fmt.Errorf("%s", envelope.Error.Message)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
