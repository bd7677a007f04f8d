// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type fakeCompleter struct {
	lastReq openai.ChatCompletionRequest
	reply   string
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.lastReq = req
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.reply}},
		},
	}, nil
}

func newTestAssistant(reply string) (*Assistant, *fakeCompleter) {
	fake := &fakeCompleter{reply: reply}
	return &Assistant{
		cfg:     Config{APIKey: "test", Model: "gpt-3.5-turbo", MaxTokens: 1000, Temperature: 0.7},
		client:  fake,
		limiter: rate.NewLimiter(rate.Every(time.Millisecond), 10),
	}, fake
}

func TestAnalyzePage(t *testing.T) {
	a, fake := newTestAssistant("the rate queue is backed up")

	got, err := a.AnalyzePage(context.Background(), "cls-management",
		map[string]any{"totalStuck": 42}, "why are orders stuck?")
	require.NoError(t, err)
	assert.Equal(t, "the rate queue is backed up", got)

	require.Len(t, fake.lastReq.Messages, 2)
	assert.Contains(t, fake.lastReq.Messages[0].Content, "Carrier Load Selection")
	assert.Contains(t, fake.lastReq.Messages[1].Content, `"totalStuck": 42`)
	assert.Contains(t, fake.lastReq.Messages[1].Content, "why are orders stuck?")
	assert.Equal(t, "gpt-3.5-turbo", fake.lastReq.Model)
	assert.Equal(t, 1000, fake.lastReq.MaxTokens)
}

func TestChatWithContextCarriesHistory(t *testing.T) {
	a, fake := newTestAssistant("yes")

	history := []ChatMessage{
		{Role: "user", Content: "how many errors?"},
		{Role: "assistant", Content: "There are 3 errors."},
	}
	_, err := a.ChatWithContext(context.Background(), "database-errors",
		map[string]any{"totalErrors": 3}, history, "any on WMSSQL-TEST?")
	require.NoError(t, err)

	require.Len(t, fake.lastReq.Messages, 4)
	assert.Equal(t, openai.ChatMessageRoleSystem, fake.lastReq.Messages[0].Role)
	assert.Contains(t, fake.lastReq.Messages[0].Content, "SQL Server error analysis")
	assert.Equal(t, "There are 3 errors.", fake.lastReq.Messages[2].Content)
	assert.Equal(t, "any on WMSSQL-TEST?", fake.lastReq.Messages[3].Content)
}

func TestNotConfigured(t *testing.T) {
	a := &Assistant{cfg: Config{}, limiter: rate.NewLimiter(rate.Inf, 1)}
	_, err := a.SummarizePage(context.Background(), "default", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestSystemPromptSelection(t *testing.T) {
	assert.Contains(t, systemPrompt("srm-download"), "Supply Route Management")
	assert.Contains(t, systemPrompt("release-manager"), "deployment planning")
	assert.Contains(t, systemPrompt("unknown-page"), "helpful assistant")
}

func TestContextPromptTruncation(t *testing.T) {
	big := map[string]any{"blob": strings.Repeat("x", 20000)}
	got := contextPrompt("cls-management", big)
	assert.Contains(t, got, "... (data truncated due to size limits)")
	assert.Less(t, len(got), 9000)
}
