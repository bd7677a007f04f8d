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
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/roadrats/wmsops/services/llm"
)

// ChatRequest is the payload shared by the three chatbot endpoints.
// PageData is the JSON currently rendered by the page; the assistant
// sees a truncated copy of it.
type ChatRequest struct {
	PageType            string            `json:"pageType"`
	PageData            map[string]any    `json:"pageData"`
	Query               string            `json:"query"`
	Message             string            `json:"message"`
	ConversationHistory []llm.ChatMessage `json:"conversationHistory"`
}

func chatError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}

// Analyze answers a question about the data on one page.
func Analyze(assistant *llm.Assistant) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ChatRequest
		if err := c.BindJSON(&req); err != nil {
			chatError(c, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.PageType == "" || req.PageData == nil || req.Query == "" {
			chatError(c, http.StatusBadRequest, "Missing required fields: pageType, pageData, or query")
			return
		}
		if !assistant.Configured() {
			chatError(c, http.StatusServiceUnavailable, "OpenAI API is not configured")
			return
		}
		slog.Info("Analyze request", "pageType", req.PageType)

		analysis, err := assistant.AnalyzePage(c.Request.Context(), req.PageType, req.PageData, req.Query)
		if err != nil {
			slog.Error("Error analyzing page data", "error", err)
			chatError(c, http.StatusInternalServerError, "Failed to analyze data: "+err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "analysis": analysis})
	}
}

// Summarize produces a short overview of the data on one page.
func Summarize(assistant *llm.Assistant) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ChatRequest
		if err := c.BindJSON(&req); err != nil {
			chatError(c, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.PageType == "" || req.PageData == nil {
			chatError(c, http.StatusBadRequest, "Missing required fields: pageType or pageData")
			return
		}
		if !assistant.Configured() {
			chatError(c, http.StatusServiceUnavailable, "OpenAI API is not configured")
			return
		}
		slog.Info("Summarize request", "pageType", req.PageType)

		summary, err := assistant.SummarizePage(c.Request.Context(), req.PageType, req.PageData)
		if err != nil {
			slog.Error("Error summarizing page data", "error", err)
			chatError(c, http.StatusInternalServerError, "Failed to summarize data: "+err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "summary": summary})
	}
}

// Chat continues a page-scoped conversation.
func Chat(assistant *llm.Assistant) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ChatRequest
		if err := c.BindJSON(&req); err != nil {
			chatError(c, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.PageType == "" || req.PageData == nil || req.Message == "" {
			chatError(c, http.StatusBadRequest, "Missing required fields: pageType, pageData, or message")
			return
		}
		if !assistant.Configured() {
			chatError(c, http.StatusServiceUnavailable, "OpenAI API is not configured")
			return
		}
		slog.Info("Chat request", "pageType", req.PageType)

		response, err := assistant.ChatWithContext(
			c.Request.Context(), req.PageType, req.PageData, req.ConversationHistory, req.Message)
		if err != nil {
			slog.Error("Error processing chat message", "error", err)
			chatError(c, http.StatusInternalServerError, "Failed to process chat message: "+err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "response": response})
	}
}
