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

package fixengine

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/quickfixgo/quickfix"

	"mirror-fix-go/config"
	"mirror-fix-go/constants"
)

// App is the quickfix.Application shared by the drop-copy acceptor and
// the shadow initiator sessions. It keeps a registry of known sessions
// and their logon state, and routes application messages to the engine.
//
// quickfix invokes FromApp serially per session, so per-session message
// order is preserved into the engine; cross-session calls run
// concurrently and downstream layers synchronize themselves.
type App struct {
	cfg      *config.FixConfig
	activity *ActivityLog

	mu       sync.Mutex
	sessions map[string]*sessionState

	// engine is set after construction; the engine needs the sender,
	// which needs the app.
	engine *Engine
}

type sessionState struct {
	sid      quickfix.SessionID
	loggedOn bool
	waiters  []chan struct{}
}

// NewApp creates the application for the configured sessions.
func NewApp(cfg *config.FixConfig, activity *ActivityLog) *App {
	return &App{
		cfg:      cfg,
		activity: activity,
		sessions: make(map[string]*sessionState),
	}
}

// SetEngine wires the engine in after construction.
func (a *App) SetEngine(e *Engine) {
	a.engine = e
}

func (a *App) OnCreate(sid quickfix.SessionID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessions[sid.String()] = &sessionState{sid: sid}
}

func (a *App) OnLogon(sid quickfix.SessionID) {
	log.Println("✓ FIX logon", sid)

	a.mu.Lock()
	defer a.mu.Unlock()
	st, ok := a.sessions[sid.String()]
	if !ok {
		st = &sessionState{sid: sid}
		a.sessions[sid.String()] = st
	}
	st.loggedOn = true
	for _, w := range st.waiters {
		close(w)
	}
	st.waiters = nil
}

func (a *App) OnLogout(sid quickfix.SessionID) {
	log.Println("FIX logout", sid)

	a.mu.Lock()
	defer a.mu.Unlock()
	if st, ok := a.sessions[sid.String()]; ok {
		st.loggedOn = false
	}
}

func (a *App) ToAdmin(_ *quickfix.Message, _ quickfix.SessionID) {}

func (a *App) FromAdmin(_ *quickfix.Message, _ quickfix.SessionID) quickfix.MessageRejectError {
	return nil
}

func (a *App) ToApp(_ *quickfix.Message, _ quickfix.SessionID) error {
	return nil
}

// FromApp is the entry point for all application-level FIX messages.
// Execution reports drive the mirror engine; locate quotes and cancel
// rejects are routed to their handlers; everything else is logged.
func (a *App) FromApp(msg *quickfix.Message, sid quickfix.SessionID) quickfix.MessageRejectError {
	msgType, _ := msg.Header.GetString(constants.TagMsgType)

	switch msgType {
	case constants.MsgTypeExecutionReport:
		return a.engine.HandleExecutionReport(ParseExecutionReport(msg, sid.String()))
	case constants.MsgTypeLocateQuote:
		a.engine.HandleLocateQuote(ParseLocateQuote(msg, sid.String()))
	case constants.MsgTypeOrderCancelReject:
		a.engine.HandleCancelReject(ParseCancelReject(msg, sid.String()))
	case constants.MsgTypeBusinessReject:
		log.Printf("business reject on %s: %s", sid, msg.String())
	default:
		log.Printf("unhandled application message type %s on %s", msgType, sid)
	}
	return nil
}

// IsLoggedOn reports whether the session is currently logged on.
func (a *App) IsLoggedOn(sessionId string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	st, ok := a.sessions[sessionId]
	return ok && st.loggedOn
}

// SessionID returns the quickfix session id registered under the
// configured session string.
func (a *App) SessionID(sessionId string) (quickfix.SessionID, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st, ok := a.sessions[sessionId]
	if !ok {
		return quickfix.SessionID{}, false
	}
	return st.sid, true
}

// AwaitLogon blocks until the session is logged on or the timeout
// elapses. Returns ErrSessionNotAvailable on timeout or if the session
// was never created.
func (a *App) AwaitLogon(sessionId string, timeout time.Duration) error {
	a.mu.Lock()
	st, ok := a.sessions[sessionId]
	if ok && st.loggedOn {
		a.mu.Unlock()
		return nil
	}
	if !ok {
		a.mu.Unlock()
		return fmt.Errorf("%w: session %s not created", ErrSessionNotAvailable, sessionId)
	}
	w := make(chan struct{})
	st.waiters = append(st.waiters, w)
	a.mu.Unlock()

	select {
	case <-w:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("%w: session %s not logged on after %s", ErrSessionNotAvailable, sessionId, timeout)
	}
}
