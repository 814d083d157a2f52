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
	"testing"
)

// TestActivityLog_Recent verifies chronological order and the limit.
func TestActivityLog_Recent(t *testing.T) {
	l := NewActivityLog(10)

	for i := 0; i < 5; i++ {
		l.Add(Activity{ClOrdId: "ORD-" + strconv.Itoa(i)})
	}

	got := l.Recent(3)
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	// The newest 3, oldest first.
	for i, a := range got {
		want := "ORD-" + strconv.Itoa(i+2)
		if a.ClOrdId != want {
			t.Errorf("entry %d: got %q, want %q", i, a.ClOrdId, want)
		}
	}
	if got[0].Timestamp.IsZero() {
		t.Error("Add must stamp the timestamp")
	}
}

// TestActivityLog_Wraps verifies the ring overwrites the oldest entries
// once full and keeps the running total.
func TestActivityLog_Wraps(t *testing.T) {
	l := NewActivityLog(3)

	for i := 0; i < 7; i++ {
		l.Add(Activity{ClOrdId: "ORD-" + strconv.Itoa(i)})
	}

	got := l.Recent(10)
	if len(got) != 3 {
		t.Fatalf("expected 3 entries after wrap, got %d", len(got))
	}
	for i, want := range []string{"ORD-4", "ORD-5", "ORD-6"} {
		if got[i].ClOrdId != want {
			t.Errorf("entry %d: got %q, want %q", i, got[i].ClOrdId, want)
		}
	}
	if l.Total() != 7 {
		t.Errorf("total: got %d, want 7", l.Total())
	}
}

func TestActivityLog_Empty(t *testing.T) {
	l := NewActivityLog(3)
	if got := l.Recent(5); got != nil {
		t.Errorf("expected nil from empty log, got %d entries", len(got))
	}
	if l.Total() != 0 {
		t.Errorf("total: got %d", l.Total())
	}
}
