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
	"context"
	"sync"
	"testing"
	"time"

	"github.com/quickfixgo/quickfix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mirror-fix-go/config"
)

// failureRecorder collects onError callbacks from sender goroutines.
type failureRecorder struct {
	mu       sync.Mutex
	clOrdIds []string
	errs     []error
}

func (f *failureRecorder) record(_, _, clOrdId string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clOrdIds = append(f.clOrdIds, clOrdId)
	f.errs = append(f.errs, err)
}

func (f *failureRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clOrdIds)
}

func (f *failureRecorder) snapshot() ([]string, []error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, len(f.clOrdIds))
	copy(ids, f.clOrdIds)
	errs := make([]error, len(f.errs))
	copy(errs, f.errs)
	return ids, errs
}

func newSenderApp(sessionWaitMs int) *App {
	return NewApp(&config.FixConfig{SessionWaitMs: sessionWaitMs}, NewActivityLog(16))
}

// TestQueuedSender_UnknownSessionFailsFast verifies a send to a session
// with no queue fails immediately with ErrSessionNotAvailable.
func TestQueuedSender_UnknownSessionFailsFast(t *testing.T) {
	s := NewQueuedSender(newSenderApp(10), []string{"S1"}, 4, nil)

	err := s.Send("NOPE", quickfix.NewMessage(), "SHDW-001", "COPY-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionNotAvailable)
}

// TestQueuedSender_OverflowFailsFast verifies a full queue returns
// ErrQueueFull instead of blocking the caller.
func TestQueuedSender_OverflowFailsFast(t *testing.T) {
	s := NewQueuedSender(newSenderApp(10), []string{"S1"}, 2, nil)

	// Not started: nothing drains the queue.
	require.NoError(t, s.Send("S1", quickfix.NewMessage(), "SHDW-001", "COPY-1"))
	require.NoError(t, s.Send("S1", quickfix.NewMessage(), "SHDW-001", "COPY-2"))

	err := s.Send("S1", quickfix.NewMessage(), "SHDW-001", "COPY-3")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQueueFull)
}

// TestQueuedSender_DispatchFailuresPreserveOrder verifies queued
// messages are dispatched per-session FIFO and that each delivery
// failure reaches onError with ErrSessionNotAvailable when the session
// was never created.
func TestQueuedSender_DispatchFailuresPreserveOrder(t *testing.T) {
	rec := &failureRecorder{}
	s := NewQueuedSender(newSenderApp(10), []string{"S1"}, 8, rec.record)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	require.NoError(t, s.Send("S1", quickfix.NewMessage(), "SHDW-001", "COPY-1"))
	require.NoError(t, s.Send("S1", quickfix.NewMessage(), "SHDW-001", "COPY-2"))
	require.NoError(t, s.Send("S1", quickfix.NewMessage(), "SHDW-001", "COPY-3"))

	require.Eventually(t, func() bool { return rec.count() == 3 },
		2*time.Second, 5*time.Millisecond)

	ids, errs := rec.snapshot()
	assert.Equal(t, []string{"COPY-1", "COPY-2", "COPY-3"}, ids)
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrSessionNotAvailable)
	}
}

// TestQueuedSender_LogonWaitExpires verifies a created session that
// never logs on fails the dispatch after the configured wait.
func TestQueuedSender_LogonWaitExpires(t *testing.T) {
	const session = "FIX.4.2:MIRROR1->BROKER"
	app := newSenderApp(20)
	app.OnCreate(quickfix.SessionID{BeginString: "FIX.4.2", SenderCompID: "MIRROR1", TargetCompID: "BROKER"})

	rec := &failureRecorder{}
	s := NewQueuedSender(app, []string{session}, 4, rec.record)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	require.NoError(t, s.Send(session, quickfix.NewMessage(), "SHDW-001", "COPY-1"))

	require.Eventually(t, func() bool { return rec.count() == 1 },
		2*time.Second, 5*time.Millisecond)
	_, errs := rec.snapshot()
	assert.ErrorIs(t, errs[0], ErrSessionNotAvailable)
}

// TestQueuedSender_StopFailsQueuedMessages verifies Stop surfaces every
// still-queued message through onError instead of dropping it.
func TestQueuedSender_StopFailsQueuedMessages(t *testing.T) {
	rec := &failureRecorder{}
	s := NewQueuedSender(newSenderApp(10), []string{"S1"}, 8, rec.record)

	// Never started: both messages are still queued at Stop.
	require.NoError(t, s.Send("S1", quickfix.NewMessage(), "SHDW-001", "COPY-1"))
	require.NoError(t, s.Send("S1", quickfix.NewMessage(), "SHDW-001", "COPY-2"))

	s.Stop()

	ids, errs := rec.snapshot()
	require.Equal(t, []string{"COPY-1", "COPY-2"}, ids)
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrSessionNotAvailable)
	}
}
