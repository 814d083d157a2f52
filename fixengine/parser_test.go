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
	"testing"

	"github.com/quickfixgo/quickfix"

	"mirror-fix-go/constants"
)

// Tests for inbound FIX message parsing. Messages are built through
// quickfix so the raw wire form (with body length and checksum) is what
// the single-pass scanner actually sees.

func buildMessage(t *testing.T, msgType string, body map[quickfix.Tag]string) *quickfix.Message {
	t.Helper()
	m := quickfix.NewMessage()
	m.Header.SetField(constants.TagBeginString, quickfix.FIXString("FIX.4.2"))
	m.Header.SetField(constants.TagMsgType, quickfix.FIXString(msgType))
	for tag, val := range body {
		m.Body.SetField(tag, quickfix.FIXString(val))
	}
	return m
}

// TestParseExecutionReport_Fill verifies a partial-fill report parses
// with all quantity and price fields as decimal strings.
func TestParseExecutionReport_Fill(t *testing.T) {
	msg := buildMessage(t, constants.MsgTypeExecutionReport, map[quickfix.Tag]string{
		constants.TagAccount:     "PRIM-001",
		constants.TagClOrdID:     "ORD-1",
		constants.TagExecID:      "E-42",
		constants.TagOrderID:     "V-99",
		constants.TagSymbol:      "AAPL",
		constants.TagSide:        "1",
		constants.TagOrdType:     "2",
		constants.TagOrderQty:    "100",
		constants.TagLastShares:  "40",
		constants.TagLastPx:      "150.25",
		constants.TagCumQty:      "40",
		constants.TagLeavesQty:   "60",
		constants.TagAvgPx:       "150.25",
		constants.TagOrdStatus:   "1",
		constants.TagExecType:    "1",
		constants.TagPrice:       "150.50",
		constants.TagTimeInForce: "0",
	})

	rep := ParseExecutionReport(msg, "PRIMARY")

	if rep.SessionId != "PRIMARY" {
		t.Errorf("session: got %q", rep.SessionId)
	}
	if rep.ExecId != "E-42" || rep.ClOrdId != "ORD-1" || rep.OrderId != "V-99" {
		t.Errorf("identifiers: exec=%q clordid=%q orderid=%q", rep.ExecId, rep.ClOrdId, rep.OrderId)
	}
	if rep.OrderQty != "100" || rep.LastQty != "40" || rep.CumQty != "40" || rep.LeavesQty != "60" {
		t.Errorf("quantities: qty=%q last=%q cum=%q leaves=%q", rep.OrderQty, rep.LastQty, rep.CumQty, rep.LeavesQty)
	}
	if rep.Price != "150.50" || rep.LastPx != "150.25" || rep.AvgPx != "150.25" {
		t.Errorf("prices: price=%q lastpx=%q avgpx=%q", rep.Price, rep.LastPx, rep.AvgPx)
	}
	if rep.ExecType != "1" || rep.OrdStatus != "1" {
		t.Errorf("state: exectype=%q ordstatus=%q", rep.ExecType, rep.OrdStatus)
	}
	if rep.Raw == "" {
		t.Error("raw message must be preserved")
	}
}

// TestParseExecutionReport_AbsentTags verifies absent optional tags
// come back as empty strings, not defaults.
func TestParseExecutionReport_AbsentTags(t *testing.T) {
	msg := buildMessage(t, constants.MsgTypeExecutionReport, map[quickfix.Tag]string{
		constants.TagClOrdID:   "ORD-2",
		constants.TagExecID:    "E-1",
		constants.TagOrdStatus: "0",
	})

	rep := ParseExecutionReport(msg, "PRIMARY")

	if rep.OrigClOrdId != "" || rep.StopPx != "" || rep.QuoteReqId != "" || rep.QuoteId != "" {
		t.Errorf("expected empty optionals, got orig=%q stop=%q qreq=%q qid=%q",
			rep.OrigClOrdId, rep.StopPx, rep.QuoteReqId, rep.QuoteId)
	}
}

// TestParseExecutionReport_LocateConfirm verifies the vendor's locate
// confirmation (OrdStatus Calculated with QuoteReqID) parses.
func TestParseExecutionReport_LocateConfirm(t *testing.T) {
	msg := buildMessage(t, constants.MsgTypeExecutionReport, map[quickfix.Tag]string{
		constants.TagAccount:    "SHDW-001",
		constants.TagExecID:     "E-B1",
		constants.TagOrdStatus:  constants.OrdStatusCalculated,
		constants.TagQuoteReqID: "QL_abc_1234",
		constants.TagQuoteID:    "Q-7",
	})

	rep := ParseExecutionReport(msg, "S1")

	if rep.OrdStatus != constants.OrdStatusCalculated {
		t.Errorf("ordstatus: got %q", rep.OrdStatus)
	}
	if rep.QuoteReqId != "QL_abc_1234" || rep.QuoteId != "Q-7" {
		t.Errorf("quote ids: qreq=%q qid=%q", rep.QuoteReqId, rep.QuoteId)
	}
}

// TestParseLocateQuote verifies the short-locate Quote (S) parse: offer
// size, borrow rate, and the ids the correlator matches on.
func TestParseLocateQuote(t *testing.T) {
	msg := buildMessage(t, constants.MsgTypeLocateQuote, map[quickfix.Tag]string{
		constants.TagAccount:    "SHDW-001",
		constants.TagSymbol:     "GME",
		constants.TagQuoteReqID: "QL_xyz_9f3a",
		constants.TagQuoteID:    "Q-55",
		constants.TagOfferPx:    "0.0425",
		constants.TagOfferSize:  "100",
	})

	q := ParseLocateQuote(msg, "S1")

	if q.QuoteReqId != "QL_xyz_9f3a" || q.QuoteId != "Q-55" {
		t.Errorf("ids: qreq=%q qid=%q", q.QuoteReqId, q.QuoteId)
	}
	if q.OfferPx != "0.0425" || q.OfferSize != "100" {
		t.Errorf("offer: px=%q size=%q", q.OfferPx, q.OfferSize)
	}
	if q.Symbol != "GME" || q.Account != "SHDW-001" {
		t.Errorf("symbol=%q account=%q", q.Symbol, q.Account)
	}
}

// TestParseCancelReject verifies the Order Cancel Reject (9) parse.
func TestParseCancelReject(t *testing.T) {
	msg := buildMessage(t, constants.MsgTypeOrderCancelReject, map[quickfix.Tag]string{
		constants.TagAccount:          "SHDW-001",
		constants.TagClOrdID:          "COPY-9-aaaa",
		constants.TagOrigClOrdID:      "COPY-8-bbbb",
		constants.TagCxlRejReason:     "1",
		constants.TagCxlRejResponseTo: "2",
		constants.TagText:             "too late to cancel",
	})

	rej := ParseCancelReject(msg, "S1")

	if rej.ClOrdId != "COPY-9-aaaa" || rej.OrigClOrdId != "COPY-8-bbbb" {
		t.Errorf("ids: clordid=%q orig=%q", rej.ClOrdId, rej.OrigClOrdId)
	}
	if rej.CxlRejReason != "1" || rej.ResponseTo != "2" {
		t.Errorf("reason=%q responseto=%q", rej.CxlRejReason, rej.ResponseTo)
	}
	if rej.Text != "too late to cancel" {
		t.Errorf("text: got %q", rej.Text)
	}
}

// TestScanFields verifies the raw scanner against hand-built segments,
// including the final field without a trailing delimiter.
func TestScanFields(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]string
	}{
		{
			name: "delimited fields",
			raw:  "35=8\x0111=ORD-1\x0138=100\x01",
			want: map[string]string{"35": "8", "11": "ORD-1", "38": "100"},
		},
		{
			name: "last field without SOH",
			raw:  "35=8\x0158=trailing text",
			want: map[string]string{"35": "8", "58": "trailing text"},
		},
		{
			name: "empty value",
			raw:  "58=\x0111=X\x01",
			want: map[string]string{"58": "", "11": "X"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := make(map[string]string)
			scanFields(tt.raw, func(tag, value string) {
				got[tag] = value
			})
			if len(got) != len(tt.want) {
				t.Fatalf("field count: got %d, want %d", len(got), len(tt.want))
			}
			for tag, want := range tt.want {
				if got[tag] != want {
					t.Errorf("tag %s: got %q, want %q", tag, got[tag], want)
				}
			}
		})
	}
}
