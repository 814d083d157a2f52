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
	"sync"
	"time"
)

// Activity is one line of recent engine history shown on the operator
// console: an ingested report, a mirror decision, a locate step.
type Activity struct {
	Timestamp time.Time
	Kind      string
	SessionId string
	Account   string
	ClOrdId   string
	Symbol    string
	Text      string
}

// ActivityLog is a fixed-capacity ring buffer of recent activity.
// The buffer is pre-allocated once; insertion is O(1) and overwrites
// the oldest entry when full.
//
// Concurrency: single dominant writer (the engine), concurrent readers
// (console), guarded by an RWMutex.
type ActivityLog struct {
	mu      sync.RWMutex
	entries []Activity
	head    int
	count   int
	maxSize int
	total   int64
}

// NewActivityLog creates a log holding the last maxSize entries.
func NewActivityLog(maxSize int) *ActivityLog {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &ActivityLog{
		entries: make([]Activity, maxSize),
		maxSize: maxSize,
	}
}

// Add appends an entry, stamping its timestamp.
func (l *ActivityLog) Add(a Activity) {
	a.Timestamp = time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	writeIdx := (l.head + l.count) % l.maxSize
	l.entries[writeIdx] = a
	if l.count < l.maxSize {
		l.count++
	} else {
		l.head = (l.head + 1) % l.maxSize
	}
	l.total++
}

// Recent returns up to limit entries in chronological order, oldest
// first. A single allocation with exact capacity.
func (l *ActivityLog) Recent(limit int) []Activity {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.count == 0 || limit <= 0 {
		return nil
	}
	n := l.count
	if limit < n {
		n = limit
	}

	out := make([]Activity, n)
	for i := 0; i < n; i++ {
		// Oldest of the returned window sits n-1 entries before the tail.
		idx := (l.head + l.count - n + i) % l.maxSize
		out[i] = l.entries[idx]
	}
	return out
}

// Total reports how many entries were ever added.
func (l *ActivityLog) Total() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}
