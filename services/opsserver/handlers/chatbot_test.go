// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/roadrats/wmsops/services/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatbotRouter() *gin.Engine {
	assistant := llm.NewAssistant(llm.Config{})
	router := gin.New()
	router.POST("/analyze", Analyze(assistant))
	router.POST("/summarize", Summarize(assistant))
	router.POST("/chat", Chat(assistant))
	return router
}

func TestAnalyzeValidation(t *testing.T) {
	router := chatbotRouter()

	t.Run("missing fields", func(t *testing.T) {
		w := perform(t, router, http.MethodPost, "/analyze", `{"pageType":"database-errors"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, false, body["success"])
		assert.Contains(t, body["error"], "Missing required fields")
	})

	t.Run("unconfigured key", func(t *testing.T) {
		w := perform(t, router, http.MethodPost, "/analyze",
			`{"pageType":"database-errors","pageData":{"totalErrors":3},"query":"what is failing?"}`)
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		body := decodeBody(t, w)
		assert.Contains(t, body["error"], "not configured")
	})
}

func TestSummarizeValidation(t *testing.T) {
	router := chatbotRouter()
	w := perform(t, router, http.MethodPost, "/summarize", `{"pageData":{"x":1}}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatValidation(t *testing.T) {
	router := chatbotRouter()
	w := perform(t, router, http.MethodPost, "/chat",
		`{"pageType":"cls-management","pageData":{"x":1}}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Contains(t, body["error"], "message")
}
