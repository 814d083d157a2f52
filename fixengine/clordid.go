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
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// IdGenerator issues client order ids of the form
// <prefix>-<counter>-<4 alnum>. The counter gives in-process ordering;
// the random suffix keeps ids unique across restarts, since the venue
// rejects a ClOrdID it has already seen on the session.
type IdGenerator struct {
	prefix  string
	counter atomic.Int64
}

// NewIdGenerator creates a generator with the configured prefix.
func NewIdGenerator(prefix string) *IdGenerator {
	if prefix == "" {
		prefix = "COPY"
	}
	return &IdGenerator{prefix: prefix}
}

// Next returns the next client order id.
func (g *IdGenerator) Next() string {
	n := g.counter.Add(1)
	return g.prefix + "-" + strconv.FormatInt(n, 10) + "-" + randomSuffix(4)
}

// syntheticExecId returns a unique exec id for engine-generated events
// recorded in the order event log.
func syntheticExecId() string {
	return "ENG-" + randomSuffix(12)
}

// randomSuffix returns n alphanumeric characters derived from a UUID.
func randomSuffix(n int) string {
	s := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n > len(s) {
		n = len(s)
	}
	return s[:n]
}
