// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dbconn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsIntegratedAuth(t *testing.T) {
	t.Run("integratedSecurity flag", func(t *testing.T) {
		assert.True(t, IsIntegratedAuth("server=x;integratedSecurity=true"))
	})

	t.Run("kerberos scheme", func(t *testing.T) {
		assert.True(t, IsIntegratedAuth("server=x;authenticationScheme=JavaKerberos"))
	})

	t.Run("plain credentials url", func(t *testing.T) {
		assert.False(t, IsIntegratedAuth("server=x;database=ADV"))
	})
}

func TestBuildDSN(t *testing.T) {
	t.Run("credentials applied when not integrated", func(t *testing.T) {
		dsn := BuildDSN(PoolConfig{
			URL:      "server=x;database=ADV",
			User:     "svc_roadrats",
			Password: "hunter2",
		})
		assert.Equal(t, "server=x;database=ADV;user id=svc_roadrats;password=hunter2", dsn)
	})

	t.Run("credentials omitted under integrated auth", func(t *testing.T) {
		dsn := BuildDSN(PoolConfig{
			URL:      "server=x;database=ADV;integratedSecurity=true",
			User:     "svc_roadrats",
			Password: "hunter2",
		})
		assert.NotContains(t, dsn, "svc_roadrats")
		assert.NotContains(t, dsn, "hunter2")
	})

	t.Run("empty credentials add nothing", func(t *testing.T) {
		dsn := BuildDSN(PoolConfig{URL: "server=x;database=ADV"})
		assert.Equal(t, "server=x;database=ADV", dsn)
	})
}

func TestHostDSN(t *testing.T) {
	dsn := HostDSN("WMSSQL-TEST", "ADV")
	assert.Contains(t, dsn, "server=WMSSQL-TEST")
	assert.Contains(t, dsn, "database=ADV")
	assert.True(t, IsIntegratedAuth(dsn))
}

func TestFactoryPoolLookup(t *testing.T) {
	f := NewFactory(DefaultConfig())
	defer f.Close()

	t.Run("known pools resolve", func(t *testing.T) {
		for _, name := range []string{PoolCLS, PoolIO} {
			db, err := f.Pool(name)
			assert.NoError(t, err)
			assert.NotNil(t, db)
		}
	})

	t.Run("unknown pool is an error", func(t *testing.T) {
		_, err := f.Pool("warehouse-42")
		assert.Error(t, err)
	})
}
