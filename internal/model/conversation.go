// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Conversation holds an ordered chat transcript with metadata.
//
// The transcript is append-only: a system seed may be set at creation,
// then user and assistant turns alternate as exchanges complete.
type Conversation struct {
	ID        string    `json:"id"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []*Message `json:"messages"`
}

// NewConversation creates an empty conversation with a generated ID.
func NewConversation(modelName string) *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        generateConversationID(),
		Model:     modelName,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  make([]*Message, 0),
	}
}

// NewConversationWithSystem creates a conversation seeded with a system turn.
func NewConversationWithSystem(modelName, systemPrompt string) *Conversation {
	conv := NewConversation(modelName)
	if systemPrompt != "" {
		conv.append(NewSystemMessage(systemPrompt))
	}
	return conv
}

// AddUserMessage appends a user turn and returns it.
func (c *Conversation) AddUserMessage(content string) *Message {
	msg := NewUserMessage(content)
	c.append(msg)
	return msg
}

// AddAssistantMessage appends an assistant turn and returns it.
func (c *Conversation) AddAssistantMessage(content string) *Message {
	msg := NewAssistantMessage(content)
	c.append(msg)
	return msg
}

func (c *Conversation) append(msg *Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
}

// Len returns the number of turns in the transcript.
func (c *Conversation) Len() int {
	return len(c.Messages)
}

// LastMessage returns the most recent turn, or nil for an empty transcript.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// generateConversationID creates a unique conversation ID.
func generateConversationID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "conv_" + hex.EncodeToString(bytes)
}
