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

// Package config defines all configuration for the mirror engine.
// Config is loaded from a YAML file (default: configs/mirror.yaml) with
// overrides via MIRROR_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file
// structure.
type Config struct {
	Fix      FixConfig      `mapstructure:"fix"`
	Database DatabaseConfig `mapstructure:"database"`
	Console  ConsoleConfig  `mapstructure:"console"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// FixConfig drives the session layer and the mirror engine.
//
//   - PrimarySession: session id (BeginString:Sender->Target) of the
//     drop-copy acceptor session; only reports on this session drive
//     mirror decisions.
//   - PrimaryAccount: account-number string carried on primary reports.
//   - ShadowSessions: ordered list of initiator session ids that receive
//     mirrored orders.
//   - ShadowAccounts: per-session account-number override, keyed by
//     session id.
//   - ClOrdIdPrefix: prefix for mirrored client order ids.
//   - LocateTimeoutMs: deadline for one locate round trip.
//   - SessionWaitMs: how long a send waits for a session logon before a
//     not-available failure is recorded.
//   - SendQueueSize: per-session outbound queue capacity; overflow fails
//     the mirror decision instead of blocking the acceptor.
//   - SettingsPath: quickfix settings file for the drop-copy acceptor
//     session (ports, comp ids, heartbeat, store/log dirs).
//   - InitiatorSettingsPath: quickfix settings file for the shadow
//     initiator sessions.
type FixConfig struct {
	Enabled               bool              `mapstructure:"enabled"`
	PrimarySession        string            `mapstructure:"primary_session"`
	PrimaryAccount        string            `mapstructure:"primary_account"`
	ShadowSessions        []string          `mapstructure:"shadow_sessions"`
	ShadowAccounts        map[string]string `mapstructure:"shadow_accounts"`
	ClOrdIdPrefix         string            `mapstructure:"cl_ord_id_prefix"`
	LocateTimeoutMs       int               `mapstructure:"locate_timeout_ms"`
	SessionWaitMs         int               `mapstructure:"session_wait_ms"`
	SendQueueSize         int               `mapstructure:"send_queue_size"`
	SettingsPath          string            `mapstructure:"settings_path"`
	InitiatorSettingsPath string            `mapstructure:"initiator_settings_path"`
}

// LocateTimeout returns the locate round-trip deadline.
func (f *FixConfig) LocateTimeout() time.Duration {
	return time.Duration(f.LocateTimeoutMs) * time.Millisecond
}

// SessionWait returns the send-side logon deadline.
func (f *FixConfig) SessionWait() time.Duration {
	return time.Duration(f.SessionWaitMs) * time.Millisecond
}

// AccountForSession resolves the account number used on a shadow session.
func (f *FixConfig) AccountForSession(sessionId string) string {
	if acct, ok := f.ShadowAccounts[sessionId]; ok && acct != "" {
		return acct
	}
	return ""
}

// SessionForAccount resolves the shadow session that carries an account.
func (f *FixConfig) SessionForAccount(account string) string {
	for sess, acct := range f.ShadowAccounts {
		if acct == account {
			return sess
		}
	}
	return ""
}

// DatabaseConfig sets where the event/order database lives.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ConsoleConfig controls the readline operator console.
type ConsoleConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// MetricsConfig controls the Prometheus endpoint. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load reads config from a YAML file with env var overrides
// (MIRROR_FIX_PRIMARY_SESSION, MIRROR_DATABASE_PATH, ...).
//
// The key delimiter is "::" instead of viper's default "." because
// shadow_accounts is keyed by FIX session ids ("FIX.4.2:MIRROR1->..."),
// which the default delimiter would split into nested maps.
func Load(path string) (*Config, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetConfigFile(path)
	v.SetEnvPrefix("MIRROR")
	v.SetEnvKeyReplacer(strings.NewReplacer("::", "_"))
	v.AutomaticEnv()

	v.SetDefault("fix::cl_ord_id_prefix", "COPY")
	v.SetDefault("fix::locate_timeout_ms", 30000)
	v.SetDefault("fix::session_wait_ms", 10000)
	v.SetDefault("fix::send_queue_size", 256)
	v.SetDefault("database::path", "data/mirror.db")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks all required fields and value ranges. An enabled
// session layer must name its primary session, settings file and at
// least one shadow session; failures here are fatal at startup.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if !c.Fix.Enabled {
		return nil
	}
	if c.Fix.PrimarySession == "" {
		return fmt.Errorf("fix.primary_session is required when fix.enabled")
	}
	if c.Fix.PrimaryAccount == "" {
		return fmt.Errorf("fix.primary_account is required when fix.enabled")
	}
	if c.Fix.SettingsPath == "" {
		return fmt.Errorf("fix.settings_path is required when fix.enabled")
	}
	if c.Fix.InitiatorSettingsPath == "" {
		return fmt.Errorf("fix.initiator_settings_path is required when fix.enabled")
	}
	if len(c.Fix.ShadowSessions) == 0 {
		return fmt.Errorf("fix.shadow_sessions must list at least one session")
	}
	for _, sess := range c.Fix.ShadowSessions {
		if c.Fix.AccountForSession(sess) == "" {
			return fmt.Errorf("fix.shadow_accounts missing entry for session %q", sess)
		}
	}
	if c.Fix.LocateTimeoutMs <= 0 {
		return fmt.Errorf("fix.locate_timeout_ms must be > 0")
	}
	if c.Fix.SessionWaitMs <= 0 {
		return fmt.Errorf("fix.session_wait_ms must be > 0")
	}
	if c.Fix.SendQueueSize <= 0 {
		return fmt.Errorf("fix.send_queue_size must be > 0")
	}
	return nil
}
