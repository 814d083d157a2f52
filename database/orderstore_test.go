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

package database

import (
	"path/filepath"
	"testing"

	"mirror-fix-go/constants"
)

func newTestStore(t *testing.T) *OrderStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "orders.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newEvent(execId, clOrdId string) *OrderEvent {
	return &OrderEvent{
		SessionId: "PRIMARY",
		ExecId:    execId,
		ExecType:  constants.ExecTypeNew,
		OrdStatus: constants.OrdStatusNew,
		ClOrdId:   clOrdId,
		OrderId:   "V-" + execId,
		Symbol:    "AAPL",
		Side:      constants.SideBuy,
		OrdType:   constants.OrdTypeLimit,
		OrderQty:  "100",
		LeavesQty: "100",
		CumQty:    "0",
		Price:     "150.00",
		Account:   "PRIM-001",
	}
}

// TestApplyEvent_CreatesOrder verifies that a NEW execution report
// creates the projection row with the reported state.
func TestApplyEvent_CreatesOrder(t *testing.T) {
	store := newTestStore(t)

	applied, err := store.ApplyEvent(newEvent("E-1", "ORD-1"))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !applied {
		t.Fatal("expected first event to be applied")
	}

	o, err := store.GetOrder("PRIM-001", "ORD-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if o == nil {
		t.Fatal("expected projection row")
	}
	if o.OrdStatus != constants.OrdStatusNew {
		t.Errorf("status: got %q, want %q", o.OrdStatus, constants.OrdStatusNew)
	}
	if o.OrderQty != "100" || o.CumQty != "0" || o.LeavesQty != "100" {
		t.Errorf("quantities: got qty=%s cum=%s leaves=%s", o.OrderQty, o.CumQty, o.LeavesQty)
	}
}

// TestApplyEvent_DuplicateIsNoOp verifies the idempotency key: a
// redelivered (session_id, exec_id) writes nothing and reports applied
// = false so the caller skips outbound actions.
func TestApplyEvent_DuplicateIsNoOp(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.ApplyEvent(newEvent("E-1", "ORD-1")); err != nil {
		t.Fatalf("apply: %v", err)
	}

	fill := newEvent("E-2", "ORD-1")
	fill.ExecType = constants.ExecTypePartialFill
	fill.OrdStatus = constants.OrdStatusPartiallyFilled
	fill.LastQty = "40"
	fill.CumQty = "40"
	fill.LeavesQty = "60"
	if _, err := store.ApplyEvent(fill); err != nil {
		t.Fatalf("apply fill: %v", err)
	}

	// Redeliver the original NEW; the projection must not regress.
	applied, err := store.ApplyEvent(newEvent("E-1", "ORD-1"))
	if err != nil {
		t.Fatalf("redeliver: %v", err)
	}
	if applied {
		t.Fatal("expected duplicate to be dropped")
	}

	o, _ := store.GetOrder("PRIM-001", "ORD-1")
	if o.CumQty != "40" || o.OrdStatus != constants.OrdStatusPartiallyFilled {
		t.Errorf("projection regressed: cum=%s status=%s", o.CumQty, o.OrdStatus)
	}
}

// TestApplyEvent_DerivesQuantities verifies cum and leaves are derived
// from last_qty and order_qty when the report omits them, keeping
// cum + leaves = order_qty.
func TestApplyEvent_DerivesQuantities(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.ApplyEvent(newEvent("E-1", "ORD-1")); err != nil {
		t.Fatalf("apply: %v", err)
	}

	fill := newEvent("E-2", "ORD-1")
	fill.ExecType = constants.ExecTypePartialFill
	fill.OrdStatus = constants.OrdStatusPartiallyFilled
	fill.LastQty = "30"
	fill.CumQty = ""
	fill.LeavesQty = ""
	if _, err := store.ApplyEvent(fill); err != nil {
		t.Fatalf("apply fill: %v", err)
	}

	o, _ := store.GetOrder("PRIM-001", "ORD-1")
	if o.CumQty != "30" {
		t.Errorf("cum: got %s, want 30", o.CumQty)
	}
	if o.LeavesQty != "70" {
		t.Errorf("leaves: got %s, want 70", o.LeavesQty)
	}
}

// TestApplyEvent_ReplaceChains verifies that a REPLACED report closes
// the original row and creates a successor that inherits the primary
// back-link and rule id.
func TestApplyEvent_ReplaceChains(t *testing.T) {
	store := newTestStore(t)

	shadow := &Order{
		Account:        "SHDW-001",
		ClOrdId:        "COPY-1-abcd",
		Symbol:         "AAPL",
		Side:           constants.SideBuy,
		OrdType:        constants.OrdTypeLimit,
		OrdStatus:      constants.OrdStatusPendingNew,
		OrderQty:       "50",
		CumQty:         "0",
		LeavesQty:      "50",
		PrimaryClOrdId: "ORD-1",
		RuleId:         7,
		SessionId:      "S1",
	}
	if err := store.InsertShadowOrder(shadow); err != nil {
		t.Fatalf("insert shadow: %v", err)
	}

	rep := &OrderEvent{
		SessionId:   "S1",
		ExecId:      "E-R1",
		ExecType:    constants.ExecTypeReplaced,
		OrdStatus:   constants.OrdStatusReplaced,
		ClOrdId:     "COPY-2-efgh",
		OrigClOrdId: "COPY-1-abcd",
		Symbol:      "AAPL",
		Side:        constants.SideBuy,
		OrdType:     constants.OrdTypeLimit,
		OrderQty:    "80",
		Account:     "SHDW-001",
	}
	if _, err := store.ApplyEvent(rep); err != nil {
		t.Fatalf("apply replace: %v", err)
	}

	orig, _ := store.GetOrder("SHDW-001", "COPY-1-abcd")
	if orig.OrdStatus != constants.OrdStatusReplaced {
		t.Errorf("original status: got %q, want %q", orig.OrdStatus, constants.OrdStatusReplaced)
	}
	if orig.IsOpen() {
		t.Error("replaced order should be closed")
	}

	succ, _ := store.GetOrder("SHDW-001", "COPY-2-efgh")
	if succ == nil {
		t.Fatal("expected successor row")
	}
	if succ.PrimaryClOrdId != "ORD-1" {
		t.Errorf("successor primary link: got %q, want ORD-1", succ.PrimaryClOrdId)
	}
	if succ.RuleId != 7 {
		t.Errorf("successor rule id: got %d, want 7", succ.RuleId)
	}
	if succ.OrigClOrdId != "COPY-1-abcd" {
		t.Errorf("successor orig: got %q", succ.OrigClOrdId)
	}
	if succ.OrdStatus != constants.OrdStatusNew {
		t.Errorf("successor status: got %q", succ.OrdStatus)
	}

	live, _ := store.LiveShadowOrders("ORD-1")
	if len(live) != 1 || live[0].ClOrdId != "COPY-2-efgh" {
		t.Errorf("live shadows: got %d, want only the successor", len(live))
	}
}

// TestApplyEvent_EventOnlyRows verifies events without a client order
// id (locate confirmations, synthetic engine events) are logged but
// never projected.
func TestApplyEvent_EventOnlyRows(t *testing.T) {
	store := newTestStore(t)

	ev := &OrderEvent{
		SessionId: "S1",
		ExecId:    "E-B1",
		OrdStatus: constants.OrdStatusCalculated,
		Account:   "SHDW-001",
	}
	applied, err := store.ApplyEvent(ev)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !applied {
		t.Fatal("expected event to be appended")
	}

	orders, _ := store.OrdersByAccount("SHDW-001")
	if len(orders) != 0 {
		t.Errorf("expected no projection rows, got %d", len(orders))
	}
}

// TestRecordEngineEvent verifies synthetic events land in the shared
// event log and stream back in order via ForEachEvent.
func TestRecordEngineEvent(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.ApplyEvent(newEvent("E-1", "ORD-1")); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := store.RecordEngineEvent("S1", "ENG-1", EventKindMirrorSkip, "SHDW-001", "ORD-1", "scaled quantity is zero"); err != nil {
		t.Fatalf("record: %v", err)
	}

	var kinds []string
	err := store.ForEachEvent("ORD-1", func(ev *OrderEvent) error {
		kinds = append(kinds, ev.ExecType)
		return nil
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(kinds) != 2 {
		t.Fatalf("expected 2 events, got %d", len(kinds))
	}
	if kinds[1] != EventKindMirrorSkip {
		t.Errorf("second event: got %q, want %q", kinds[1], EventKindMirrorSkip)
	}
}

// TestMarkCancelRequested verifies the PendingCancel flag lands on the
// projection row while the order stays in the live set until the venue
// confirms the cancel.
func TestMarkCancelRequested(t *testing.T) {
	store := newTestStore(t)

	o := &Order{
		Account:        "SHDW-001",
		ClOrdId:        "COPY-1-aaaa",
		Symbol:         "AAPL",
		Side:           constants.SideBuy,
		OrdStatus:      constants.OrdStatusNew,
		OrderQty:       "50",
		CumQty:         "0",
		LeavesQty:      "50",
		PrimaryClOrdId: "ORD-1",
		RuleId:         1,
		SessionId:      "S1",
	}
	if err := store.InsertShadowOrder(o); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := store.MarkCancelRequested("SHDW-001", "COPY-1-aaaa"); err != nil {
		t.Fatalf("mark: %v", err)
	}

	got, _ := store.GetOrder("SHDW-001", "COPY-1-aaaa")
	if got.OrdStatus != constants.OrdStatusPendingCancel {
		t.Errorf("status: got %q, want %q", got.OrdStatus, constants.OrdStatusPendingCancel)
	}
	if !got.IsOpen() {
		t.Error("pending-cancel order must stay in the live set")
	}
}

// TestLiveShadowOrders_FiltersClosed verifies canceled shadows drop out
// of the set a replace or cancel must propagate to.
func TestLiveShadowOrders_FiltersClosed(t *testing.T) {
	store := newTestStore(t)

	for i, clOrdId := range []string{"COPY-1-aaaa", "COPY-2-bbbb"} {
		o := &Order{
			Account:        "SHDW-001",
			ClOrdId:        clOrdId,
			Symbol:         "AAPL",
			Side:           constants.SideBuy,
			OrdStatus:      constants.OrdStatusNew,
			OrderQty:       "50",
			CumQty:         "0",
			LeavesQty:      "50",
			PrimaryClOrdId: "ORD-1",
			RuleId:         int64(i + 1),
			SessionId:      "S1",
		}
		if err := store.InsertShadowOrder(o); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	cancel := &OrderEvent{
		SessionId: "S1",
		ExecId:    "E-C1",
		ExecType:  constants.ExecTypeCanceled,
		OrdStatus: constants.OrdStatusCanceled,
		ClOrdId:   "COPY-1-aaaa",
		Account:   "SHDW-001",
	}
	if _, err := store.ApplyEvent(cancel); err != nil {
		t.Fatalf("apply cancel: %v", err)
	}

	live, err := store.LiveShadowOrders("ORD-1")
	if err != nil {
		t.Fatalf("live: %v", err)
	}
	if len(live) != 1 || live[0].ClOrdId != "COPY-2-bbbb" {
		t.Errorf("expected only COPY-2-bbbb live, got %d rows", len(live))
	}
}
