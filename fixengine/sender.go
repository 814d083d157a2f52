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
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/quickfixgo/quickfix"
)

var (
	// ErrSessionNotAvailable means the target session is unknown or did
	// not log on within the configured wait.
	ErrSessionNotAvailable = errors.New("fix session not available")

	// ErrQueueFull means the session's outbound queue is at capacity.
	// The caller records a failure instead of blocking the acceptor.
	ErrQueueFull = errors.New("outbound queue full")
)

// OrderSender dispatches an outbound message to a shadow session.
// account and clOrdId identify the order for failure reporting.
type OrderSender interface {
	Send(sessionId string, msg *quickfix.Message, account, clOrdId string) error
}

// SendErrorFunc is invoked from a sender goroutine when a queued
// message could not be delivered.
type SendErrorFunc func(sessionId, account, clOrdId string, err error)

type outbound struct {
	msg     *quickfix.Message
	account string
	clOrdId string
}

// QueuedSender runs one bounded FIFO queue and one dispatch goroutine
// per shadow session. Per-session ordering is preserved: a message is
// handed to quickfix only after its predecessors on the same session.
// Enqueueing never blocks; a full queue returns ErrQueueFull.
type QueuedSender struct {
	app     *App
	queues  map[string]chan outbound
	onError SendErrorFunc

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewQueuedSender creates queues for the given sessions. size bounds
// each queue; onError may be nil.
func NewQueuedSender(app *App, sessions []string, size int, onError SendErrorFunc) *QueuedSender {
	if size <= 0 {
		size = 256
	}
	queues := make(map[string]chan outbound, len(sessions))
	for _, s := range sessions {
		queues[s] = make(chan outbound, size)
	}
	return &QueuedSender{
		app:     app,
		queues:  queues,
		onError: onError,
	}
}

// Start launches the per-session dispatch goroutines.
func (s *QueuedSender) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	for sessionId, q := range s.queues {
		s.wg.Add(1)
		go s.run(ctx, sessionId, q)
	}
}

// Stop cancels dispatch and waits for the goroutines to exit, then
// fails every message still queued through onError. Undelivered mirror
// intent must surface as recorded failures, not vanish with the
// process.
func (s *QueuedSender) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	for sessionId, q := range s.queues {
	drain:
		for {
			select {
			case out := <-q:
				err := fmt.Errorf("%w: session %s shut down before dispatch", ErrSessionNotAvailable, sessionId)
				log.Printf("send on %s failed for %s: %v", sessionId, out.clOrdId, err)
				if s.onError != nil {
					s.onError(sessionId, out.account, out.clOrdId, err)
				}
			default:
				break drain
			}
		}
	}
}

// Send enqueues a message for the session. Fails fast with
// ErrSessionNotAvailable for unknown sessions and ErrQueueFull when the
// queue is at capacity.
func (s *QueuedSender) Send(sessionId string, msg *quickfix.Message, account, clOrdId string) error {
	q, ok := s.queues[sessionId]
	if !ok {
		return fmt.Errorf("%w: no queue for session %s", ErrSessionNotAvailable, sessionId)
	}
	select {
	case q <- outbound{msg: msg, account: account, clOrdId: clOrdId}:
		return nil
	default:
		return fmt.Errorf("%w: session %s", ErrQueueFull, sessionId)
	}
}

func (s *QueuedSender) run(ctx context.Context, sessionId string, q chan outbound) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case out := <-q:
			if err := s.dispatch(sessionId, out); err != nil {
				log.Printf("send on %s failed for %s: %v", sessionId, out.clOrdId, err)
				if s.onError != nil {
					s.onError(sessionId, out.account, out.clOrdId, err)
				}
			}
		}
	}
}

func (s *QueuedSender) dispatch(sessionId string, out outbound) error {
	if err := s.app.AwaitLogon(sessionId, s.app.cfg.SessionWait()); err != nil {
		return err
	}
	sid, ok := s.app.SessionID(sessionId)
	if !ok {
		return fmt.Errorf("%w: session %s not created", ErrSessionNotAvailable, sessionId)
	}
	return quickfix.SendToTarget(out.msg, sid)
}
