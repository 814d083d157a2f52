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

// Package fixengine contains the drop-copy mirror engine: the quickfix
// application that observes primary-account execution reports, the
// parser that turns them into events, and the engine that reproduces
// orders on shadow sessions.
//
// Parsing Strategy:
// Inbound messages are parsed from the raw FIX string in a single pass
// instead of per-field quickfix lookups. Every execution report needs
// the same ~20 flat tags; one scan over "TAG=VALUE\x01" pairs extracts
// all of them with substrings that share the message's backing array.
package fixengine

import (
	"strings"

	"github.com/quickfixgo/quickfix"

	"mirror-fix-go/database"
)

// ExecReport is a parsed Execution Report (8). All quantities and
// prices are decimal strings exactly as received; absent tags are "".
type ExecReport struct {
	SessionId    string
	ExecId       string
	ExecType     string
	OrdStatus    string
	ClOrdId      string
	OrigClOrdId  string
	OrderId      string
	Symbol       string
	Side         string
	OrdType      string
	TimeInForce  string
	OrderQty     string
	LastQty      string
	CumQty       string
	LeavesQty    string
	Price        string
	StopPx       string
	LastPx       string
	AvgPx        string
	Account      string
	TransactTime string
	Text         string
	LastMkt      string
	ExDest       string
	OrdRejReason string
	QuoteReqId   string
	QuoteId      string
	Raw          string
}

// ParseExecutionReport extracts an ExecReport from a FIX message using
// the single-pass raw scanner.
func ParseExecutionReport(msg *quickfix.Message, sessionId string) *ExecReport {
	raw := msg.String()
	rep := &ExecReport{SessionId: sessionId, Raw: raw}

	scanFields(raw, func(tag, value string) {
		switch tag {
		case "1":
			rep.Account = value
		case "6":
			rep.AvgPx = value
		case "11":
			rep.ClOrdId = value
		case "14":
			rep.CumQty = value
		case "17":
			rep.ExecId = value
		case "30":
			rep.LastMkt = value
		case "31":
			rep.LastPx = value
		case "32":
			rep.LastQty = value
		case "37":
			rep.OrderId = value
		case "38":
			rep.OrderQty = value
		case "39":
			rep.OrdStatus = value
		case "40":
			rep.OrdType = value
		case "41":
			rep.OrigClOrdId = value
		case "44":
			rep.Price = value
		case "54":
			rep.Side = value
		case "55":
			rep.Symbol = value
		case "58":
			rep.Text = value
		case "59":
			rep.TimeInForce = value
		case "60":
			rep.TransactTime = value
		case "99":
			rep.StopPx = value
		case "100":
			rep.ExDest = value
		case "103":
			rep.OrdRejReason = value
		case "117":
			rep.QuoteId = value
		case "131":
			rep.QuoteReqId = value
		case "150":
			rep.ExecType = value
		case "151":
			rep.LeavesQty = value
		}
	})
	return rep
}

// PrimaryRoute returns the execution destination observed on the
// primary report: ExDestination when echoed, else the last market.
func (r *ExecReport) PrimaryRoute() string {
	if r.ExDest != "" {
		return r.ExDest
	}
	return r.LastMkt
}

// Event converts the report to an order-event row for the store.
func (r *ExecReport) Event() *database.OrderEvent {
	return &database.OrderEvent{
		SessionId:    r.SessionId,
		ExecId:       r.ExecId,
		ExecType:     r.ExecType,
		OrdStatus:    r.OrdStatus,
		ClOrdId:      r.ClOrdId,
		OrigClOrdId:  r.OrigClOrdId,
		OrderId:      r.OrderId,
		Symbol:       r.Symbol,
		Side:         r.Side,
		OrdType:      r.OrdType,
		TimeInForce:  r.TimeInForce,
		OrderQty:     r.OrderQty,
		LastQty:      r.LastQty,
		CumQty:       r.CumQty,
		LeavesQty:    r.LeavesQty,
		Price:        r.Price,
		StopPx:       r.StopPx,
		LastPx:       r.LastPx,
		AvgPx:        r.AvgPx,
		Account:      r.Account,
		TransactTime: r.TransactTime,
		Text:         r.Text,
		Raw:          []byte(r.Raw),
	}
}

// LocateQuote is a parsed short-locate Quote (S). OfferPx carries the
// borrow rate and OfferSize the locatable share count.
type LocateQuote struct {
	SessionId  string
	QuoteReqId string
	QuoteId    string
	Symbol     string
	Account    string
	OfferPx    string
	OfferSize  string
	Text       string
	Raw        string
}

// ParseLocateQuote extracts a LocateQuote from a FIX message.
func ParseLocateQuote(msg *quickfix.Message, sessionId string) *LocateQuote {
	raw := msg.String()
	q := &LocateQuote{SessionId: sessionId, Raw: raw}

	scanFields(raw, func(tag, value string) {
		switch tag {
		case "1":
			q.Account = value
		case "55":
			q.Symbol = value
		case "58":
			q.Text = value
		case "117":
			q.QuoteId = value
		case "131":
			q.QuoteReqId = value
		case "133":
			q.OfferPx = value
		case "135":
			q.OfferSize = value
		}
	})
	return q
}

// CancelReject is a parsed Order Cancel Reject (9).
type CancelReject struct {
	SessionId    string
	ClOrdId      string
	OrigClOrdId  string
	OrderId      string
	Account      string
	CxlRejReason string
	ResponseTo   string
	Text         string
}

// ParseCancelReject extracts a CancelReject from a FIX message.
func ParseCancelReject(msg *quickfix.Message, sessionId string) *CancelReject {
	rej := &CancelReject{SessionId: sessionId}

	scanFields(msg.String(), func(tag, value string) {
		switch tag {
		case "1":
			rej.Account = value
		case "11":
			rej.ClOrdId = value
		case "37":
			rej.OrderId = value
		case "41":
			rej.OrigClOrdId = value
		case "58":
			rej.Text = value
		case "102":
			rej.CxlRejReason = value
		case "434":
			rej.ResponseTo = value
		}
	})
	return rej
}

// scanFields walks a raw FIX message once, invoking fn for every
// TAG=VALUE pair. Values are substrings of raw; no copies are made.
// Unknown tags are the callback's problem to ignore.
func scanFields(raw string, fn func(tag, value string)) {
	pos := 0
	rawLen := len(raw)

	for pos < rawLen {
		eqPos := strings.IndexByte(raw[pos:], '=')
		if eqPos == -1 {
			break
		}
		eqPos += pos
		tag := raw[pos:eqPos]

		valueStart := eqPos + 1
		sohPos := strings.IndexByte(raw[valueStart:], '\x01')
		var value string
		if sohPos == -1 {
			// Last field in the message
			value = raw[valueStart:]
			pos = rawLen
		} else {
			value = raw[valueStart : valueStart+sohPos]
			pos = valueStart + sohPos + 1
		}

		fn(tag, value)
	}
}
