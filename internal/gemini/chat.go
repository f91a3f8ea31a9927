// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"context"
	"encoding/json"

	"github.com/jeranaias/genstudio-tui/internal/model"
)

// ChatMessage is a single role/content turn on the wire.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the chat completions request body.
type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []ChatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

// chatResponse is the chat completions response body.
type chatResponse struct {
	Choices []struct {
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// MessagesFromConversation flattens a transcript into wire messages,
// preserving order.
func MessagesFromConversation(conv *model.Conversation) []ChatMessage {
	out := make([]ChatMessage, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		out = append(out, ChatMessage{Role: string(msg.Role), Content: msg.Content})
	}
	return out
}

// Chat sends the full ordered transcript and returns the assistant reply.
// A 2xx response without a choice is a *ShapeError.
func (c *Client) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNoAPIKey
	}

	req := chatRequest{
		Model:    c.chatModel,
		Messages: messages,
	}

	var resp chatResponse
	if err := c.postJSON(ctx, c.baseURL+"/chat/completions", c.bearerHeaders(), req, &resp); err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		raw, _ := json.Marshal(resp)
		return "", &ShapeError{Field: "choices[0].message.content", Body: string(raw)}
	}

	c.logger.Info().
		Int("turns", len(messages)).
		Int("total_tokens", resp.Usage.TotalTokens).
		Msg("chat exchange completed")

	return resp.Choices[0].Message.Content, nil
}
