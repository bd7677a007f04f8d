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
	"github.com/roadrats/wmsops/services/dberrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseErrorsByServerRejectsBadName(t *testing.T) {
	svc := dberrors.NewService(dberrors.DefaultConfig(), nil)
	router := gin.New()
	router.GET("/server/:server", DatabaseErrorsByServer(svc))

	w := perform(t, router, http.MethodGet, "/server/host%3Bdatabase%3Dmaster", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Contains(t, body["message"], "invalid server name")
}
