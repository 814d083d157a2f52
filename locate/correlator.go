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

// Package locate correlates short-locate quote traffic with the mirror
// intent that produced it. The venue caps QuoteReqID at 39 bytes, far
// too short to embed the shadow account and primary order context, so
// the correlator issues compact identifiers and keeps the context in a
// process-local TTL map. Entries survive neither restarts nor the TTL
// window; a locate response that arrives for an unknown identifier is
// treated as unmatched and dropped by the caller.
package locate

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"

	"mirror-fix-go/constants"
)

// DefaultTTL bounds how long an abandoned locate context is held.
const DefaultTTL = 5 * time.Minute

// Stage of the locate protocol a context is waiting on.
const (
	StageQuote   = "QUOTE"   // quote request sent, awaiting Quote (S)
	StageConfirm = "CONFIRM" // accept sent, awaiting OrdStatus 'B'
)

// Context is the mirror intent behind one locate quote request.
type Context struct {
	ShadowSession  string
	ShadowAccount  string
	PrimaryClOrdId string
	LocateRoute    string
	LocateType     string
	Symbol         string
	RequestedQty   string
	Stage          string
	// Timer fires the locate timeout for the current stage. Whoever
	// takes the context stops it; a stage transition replaces it.
	Timer *time.Timer
	// Deferred shadow-order parameters, submitted once the locate
	// completes. Stored opaquely so this package stays below builder.
	Pending any
}

// Correlator is a concurrent TTL map from short quote-request ids to
// locate contexts.
//
// mu serializes Take's get-and-delete: a quote handler and the timeout
// timer may race for the same id, and exactly one of them may win the
// context.
type Correlator struct {
	mu      sync.Mutex
	entries *cache.Cache
}

// New creates a correlator whose entries expire after ttl.
func New(ttl time.Duration) *Correlator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Correlator{entries: cache.New(ttl, ttl/2)}
}

// Register stores ctx and returns the generated quote-request id of the
// form QL_<base36 millis>_<4 alnum>, truncated to the venue's 39-byte
// cap. Uniqueness within the session window comes from the millisecond
// timestamp plus the random suffix.
func (c *Correlator) Register(ctx *Context) string {
	id := NewQuoteReqId()
	c.entries.SetDefault(id, ctx)
	return id
}

// Reregister stores ctx under an id issued earlier, used when the
// offer/accept variant moves a context from StageQuote to StageConfirm.
func (c *Correlator) Reregister(id string, ctx *Context) {
	c.entries.SetDefault(id, ctx)
}

// Take returns and removes the context for id. Unknown or expired ids
// return (nil, false); callers treat the response as unmatched.
func (c *Correlator) Take(id string) (*Context, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries.Get(id)
	if !ok {
		return nil, false
	}
	c.entries.Delete(id)
	return v.(*Context), true
}

// Len reports the number of live entries, for the operator console.
func (c *Correlator) Len() int {
	return c.entries.ItemCount()
}

// NewQuoteReqId generates a compact quote-request identifier within the
// venue's length cap.
func NewQuoteReqId() string {
	id := "QL_" + strconv.FormatInt(time.Now().UnixMilli(), 36) + "_" + randomSuffix(4)
	if len(id) > constants.MaxQuoteReqIDLen {
		id = id[:constants.MaxQuoteReqIDLen]
	}
	return id
}

// randomSuffix returns n alphanumeric characters derived from a UUID.
func randomSuffix(n int) string {
	s := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n > len(s) {
		n = len(s)
	}
	return s[:n]
}
