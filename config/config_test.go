/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mirror.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

const validYaml = `
fix:
  enabled: true
  primary_session: "FIX.4.2:MIRROR->DROPCOPY"
  primary_account: "PRIM-001"
  shadow_sessions:
    - "FIX.4.2:MIRROR1->BROKER"
  shadow_accounts:
    "FIX.4.2:MIRROR1->BROKER": "SHDW-001"
  settings_path: "configs/dropcopy.cfg"
  initiator_settings_path: "configs/shadow.cfg"
database:
  path: "data/mirror.db"
console:
  enabled: true
metrics:
  addr: ":9090"
`

// TestLoad verifies file values and defaults land in the struct.
func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYaml))
	require.NoError(t, err)

	assert.True(t, cfg.Fix.Enabled)
	assert.Equal(t, "FIX.4.2:MIRROR->DROPCOPY", cfg.Fix.PrimarySession)
	assert.Equal(t, "PRIM-001", cfg.Fix.PrimaryAccount)
	assert.Equal(t, []string{"FIX.4.2:MIRROR1->BROKER"}, cfg.Fix.ShadowSessions)
	assert.Equal(t, "SHDW-001", cfg.Fix.ShadowAccounts["FIX.4.2:MIRROR1->BROKER"])
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
	assert.True(t, cfg.Console.Enabled)

	// Defaults not present in the file.
	assert.Equal(t, "COPY", cfg.Fix.ClOrdIdPrefix)
	assert.Equal(t, 30*time.Second, cfg.Fix.LocateTimeout())
	assert.Equal(t, 10*time.Second, cfg.Fix.SessionWait())
	assert.Equal(t, 256, cfg.Fix.SendQueueSize)

	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

// TestValidate_DisabledFixSkipsSessionChecks verifies only the database
// path is required when the session layer is off.
func TestValidate_DisabledFixSkipsSessionChecks(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{Path: "data/mirror.db"}}
	assert.NoError(t, cfg.Validate())

	cfg.Database.Path = ""
	assert.Error(t, cfg.Validate())
}

// TestValidate_EnabledFix walks the required fields one at a time.
func TestValidate_EnabledFix(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(writeConfig(t, validYaml))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing primary session", func(c *Config) { c.Fix.PrimarySession = "" }},
		{"missing primary account", func(c *Config) { c.Fix.PrimaryAccount = "" }},
		{"missing settings path", func(c *Config) { c.Fix.SettingsPath = "" }},
		{"missing initiator settings path", func(c *Config) { c.Fix.InitiatorSettingsPath = "" }},
		{"no shadow sessions", func(c *Config) { c.Fix.ShadowSessions = nil }},
		{"session without account", func(c *Config) { delete(c.Fix.ShadowAccounts, "FIX.4.2:MIRROR1->BROKER") }},
		{"zero locate timeout", func(c *Config) { c.Fix.LocateTimeoutMs = 0 }},
		{"zero session wait", func(c *Config) { c.Fix.SessionWaitMs = 0 }},
		{"zero queue size", func(c *Config) { c.Fix.SendQueueSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// TestAccountSessionLookups verifies the two-way session/account map.
func TestAccountSessionLookups(t *testing.T) {
	f := &FixConfig{ShadowAccounts: map[string]string{
		"S1": "SHDW-001",
		"S2": "SHDW-002",
	}}

	assert.Equal(t, "SHDW-001", f.AccountForSession("S1"))
	assert.Equal(t, "", f.AccountForSession("S9"))
	assert.Equal(t, "S2", f.SessionForAccount("SHDW-002"))
	assert.Equal(t, "", f.SessionForAccount("SHDW-009"))
}
