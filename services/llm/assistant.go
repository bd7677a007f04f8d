// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm is the page-aware assistant behind the chatbot endpoints.
// Each dashboard ships its current data as context; the assistant
// answers questions, analyzes, and summarizes against that snapshot.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// Config carries the OpenAI settings.
type Config struct {
	APIKey      string  `env:"API_KEY"`
	Model       string  `env:"MODEL" envDefault:"gpt-3.5-turbo"`
	MaxTokens   int     `env:"MAX_TOKENS" envDefault:"1000"`
	Temperature float32 `env:"TEMPERATURE" envDefault:"0.7"`
}

// ChatMessage is one turn of a conversation relayed by the frontend.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// completer is the slice of the OpenAI client the assistant uses.
type completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Assistant relays page-scoped conversations to OpenAI. A small rate
// limiter smooths bursts from the dashboards sharing one API key.
type Assistant struct {
	cfg     Config
	client  completer
	limiter *rate.Limiter
}

// NewAssistant builds the assistant. A missing key in the environment
// falls back to the container secret, matching how the key is mounted
// in deployments.
func NewAssistant(cfg Config) *Assistant {
	if cfg.APIKey == "" {
		secretPath := "/run/secrets/openai_api_key"
		if data, err := os.ReadFile(secretPath); err == nil {
			cfg.APIKey = strings.TrimSpace(string(data))
			slog.Info("Read the OpenAI API key from container secrets")
		}
	}
	a := &Assistant{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
	}
	if cfg.APIKey != "" {
		a.client = openai.NewClient(cfg.APIKey)
		slog.Info("Initializing OpenAI client", "model", cfg.Model)
	}
	return a
}

// Configured reports whether an API key is present.
func (a *Assistant) Configured() bool {
	return a.cfg.APIKey != ""
}

// AnalyzePage answers a query against the page's current data.
func (a *Assistant) AnalyzePage(ctx context.Context, pageType string, pageData map[string]any, userQuery string) (string, error) {
	return a.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(pageType)},
		{Role: openai.ChatMessageRoleUser, Content: analysisPrompt(pageType, pageData, userQuery)},
	})
}

// SummarizePage produces a concise summary of the page's current data.
func (a *Assistant) SummarizePage(ctx context.Context, pageType string, pageData map[string]any) (string, error) {
	return a.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(pageType)},
		{Role: openai.ChatMessageRoleUser, Content: summaryPrompt(pageType, pageData)},
	})
}

// ChatWithContext continues a conversation with the page data folded
// into the system message.
func (a *Assistant) ChatWithContext(ctx context.Context, pageType string, pageData map[string]any, history []ChatMessage, userMessage string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt(pageType) + "\n\n" + contextPrompt(pageType, pageData),
	})
	for _, msg := range history {
		messages = append(messages, openai.ChatCompletionMessage{Role: msg.Role, Content: msg.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser, Content: userMessage,
	})
	return a.complete(ctx, messages)
}

func (a *Assistant) complete(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	if !a.Configured() {
		return "", fmt.Errorf("OpenAI API key is not configured, set WMSOPS_OPENAI_API_KEY")
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return "", err
	}

	slog.Debug("Calling OpenAI", "model", a.cfg.Model, "messages", len(messages))
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.cfg.Model,
		Messages:    messages,
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
	})
	if err != nil {
		slog.Error("OpenAI API call failed", "error", err)
		return "", fmt.Errorf("failed to call OpenAI API: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
