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

// Package builder constructs outbound FIX order-entry messages for the
// mirror engine: New Order Single (D), Order Cancel Request (F), Order
// Cancel/Replace Request (G), and the vendor short-locate messages
// Quote Request (R) and Locate Response (p).
//
// Comp IDs and sequence numbers are stamped by the session layer when a
// message is routed to a shadow session; builders only populate MsgType
// and the application body. Quantities and prices are carried as decimal
// strings end to end, never as floats.
package builder

import (
	"time"

	"mirror-fix-go/constants"

	"github.com/quickfixgo/quickfix"
)

// FieldSetter abstracts setting fields on FIX message components.
type FieldSetter interface {
	SetField(tag quickfix.Tag, field quickfix.FieldValueWriter) *quickfix.FieldMap
}

func setString(fs FieldSetter, tag quickfix.Tag, value string) {
	fs.SetField(tag, quickfix.FIXString(value))
}

// setStringIfNotEmpty sets a field only if the value is non-empty.
func setStringIfNotEmpty(fs FieldSetter, tag quickfix.Tag, value string) {
	if value != "" {
		fs.SetField(tag, quickfix.FIXString(value))
	}
}

// buildHeader sets the message type and sending time. SenderCompID,
// TargetCompID and MsgSeqNum are filled in by quickfix when the message
// is dispatched to a concrete session.
func buildHeader(header *quickfix.Header, msgType string) {
	setString(header, constants.TagMsgType, msgType)
	setString(header, constants.TagSendingTime, time.Now().UTC().Format(constants.FixTimeFormat))
}

// --- New Order Single (D) ---

// NewOrderParams contains parameters for creating a shadow order.
type NewOrderParams struct {
	Account       string // Shadow account number (required)
	ClOrdID       string // Mirrored client order ID (required)
	Symbol        string // Equity symbol (required)
	Side          string // "1" buy, "2" sell, "5" sell short (required)
	OrdType       string // Order type (required)
	TimeInForce   string // Time in force (required)
	OrderQty      string // Scaled quantity in whole shares (required)
	Price         string // Limit price (conditional)
	StopPx        string // Stop price for stop orders (conditional)
	ExDestination string // Execution route, e.g. NYSE (conditional)
	QuoteID       string // Confirmed locate quote ID (conditional, short sales)
}

// BuildNewOrderSingle creates a New Order Single (D) message.
//
// Example:
//
//	params := NewOrderParams{
//	    Account: "SHDW-001", ClOrdID: "COPY-1-a9f3", Symbol: "AAPL",
//	    Side: constants.SideBuy, OrdType: constants.OrdTypeLimit,
//	    TimeInForce: constants.TimeInForceDay, OrderQty: "100",
//	    Price: "150.00", ExDestination: "NYSE",
//	}
//	msg := BuildNewOrderSingle(params)
func BuildNewOrderSingle(params NewOrderParams) *quickfix.Message {
	m := quickfix.NewMessage()
	buildHeader(&m.Header, constants.MsgTypeNewOrderSingle)

	// Required fields
	setString(&m.Body, constants.TagAccount, params.Account)
	setString(&m.Body, constants.TagClOrdID, params.ClOrdID)
	setString(&m.Body, constants.TagSymbol, params.Symbol)
	setString(&m.Body, constants.TagSide, params.Side)
	setString(&m.Body, constants.TagOrdType, params.OrdType)
	setString(&m.Body, constants.TagTimeInForce, params.TimeInForce)
	setString(&m.Body, constants.TagOrderQty, params.OrderQty)
	setString(&m.Body, constants.TagHandlInst, constants.HandlInstAutomatedNoIntervention)
	setString(&m.Body, constants.TagTransactTime, time.Now().UTC().Format(constants.FixTimeFormat))

	// Conditional fields
	setStringIfNotEmpty(&m.Body, constants.TagPrice, params.Price)
	setStringIfNotEmpty(&m.Body, constants.TagStopPx, params.StopPx)
	setStringIfNotEmpty(&m.Body, constants.TagExDestination, params.ExDestination)
	setStringIfNotEmpty(&m.Body, constants.TagQuoteID, params.QuoteID)

	return m
}

// --- Order Cancel Request (F) ---

// CancelOrderParams contains parameters for canceling a shadow order.
type CancelOrderParams struct {
	Account     string // Shadow account number (required)
	ClOrdID     string // Cancel request ID (required)
	OrigClOrdID string // Shadow order's ClOrdID (required)
	OrderID     string // Venue-assigned order ID (conditional)
	Symbol      string // Equity symbol (required)
	Side        string // Must match original (required)
	OrderQty    string // Original order quantity (conditional)
}

// BuildOrderCancelRequest creates an Order Cancel Request (F) message.
func BuildOrderCancelRequest(params CancelOrderParams) *quickfix.Message {
	m := quickfix.NewMessage()
	buildHeader(&m.Header, constants.MsgTypeOrderCancelRequest)

	setString(&m.Body, constants.TagAccount, params.Account)
	setString(&m.Body, constants.TagClOrdID, params.ClOrdID)
	setString(&m.Body, constants.TagOrigClOrdID, params.OrigClOrdID)
	setString(&m.Body, constants.TagSymbol, params.Symbol)
	setString(&m.Body, constants.TagSide, params.Side)
	setString(&m.Body, constants.TagTransactTime, time.Now().UTC().Format(constants.FixTimeFormat))

	setStringIfNotEmpty(&m.Body, constants.TagOrderID, params.OrderID)
	setStringIfNotEmpty(&m.Body, constants.TagOrderQty, params.OrderQty)

	return m
}

// --- Order Cancel/Replace Request (G) ---

// ReplaceOrderParams contains parameters for modifying a shadow order.
type ReplaceOrderParams struct {
	Account     string // Shadow account number (required)
	ClOrdID     string // New request ID (required, must differ from OrigClOrdID)
	OrigClOrdID string // Shadow order's ClOrdID (required)
	OrderID     string // Venue-assigned order ID (conditional)
	Symbol      string // Equity symbol (required)
	Side        string // Must match original (required)
	OrdType     string // Must match original (required)
	TimeInForce string // New time in force (conditional)
	OrderQty    string // New total quantity including filled (required)
	Price       string // New limit price (conditional)
	StopPx      string // New stop price for stop orders (conditional)
}

// BuildOrderCancelReplaceRequest creates an Order Cancel/Replace Request (G) message.
func BuildOrderCancelReplaceRequest(params ReplaceOrderParams) *quickfix.Message {
	m := quickfix.NewMessage()
	buildHeader(&m.Header, constants.MsgTypeOrderCancelReplace)

	setString(&m.Body, constants.TagAccount, params.Account)
	setString(&m.Body, constants.TagClOrdID, params.ClOrdID)
	setString(&m.Body, constants.TagOrigClOrdID, params.OrigClOrdID)
	setString(&m.Body, constants.TagSymbol, params.Symbol)
	setString(&m.Body, constants.TagSide, params.Side)
	setString(&m.Body, constants.TagOrdType, params.OrdType)
	setString(&m.Body, constants.TagOrderQty, params.OrderQty)
	setString(&m.Body, constants.TagHandlInst, constants.HandlInstAutomatedNoIntervention)
	setString(&m.Body, constants.TagTransactTime, time.Now().UTC().Format(constants.FixTimeFormat))

	setStringIfNotEmpty(&m.Body, constants.TagOrderID, params.OrderID)
	setStringIfNotEmpty(&m.Body, constants.TagTimeInForce, params.TimeInForce)
	setStringIfNotEmpty(&m.Body, constants.TagPrice, params.Price)
	setStringIfNotEmpty(&m.Body, constants.TagStopPx, params.StopPx)

	return m
}

// --- Short-Locate Quote Request (R) ---

// LocateQuoteParams contains parameters for requesting a short-locate quote.
type LocateQuoteParams struct {
	QuoteReqID string // Correlator-issued identifier, max 39 bytes (required)
	Account    string // Shadow account number (required)
	Symbol     string // Equity symbol (required)
	OrderQty   string // Shares to locate (required)
	Route      string // Locate destination (required)
}

// BuildLocateQuoteRequest creates a short-locate Quote Request (R) message.
// The venue answers with a Quote (S) carrying the offered size and borrow rate.
func BuildLocateQuoteRequest(params LocateQuoteParams) *quickfix.Message {
	m := quickfix.NewMessage()
	buildHeader(&m.Header, constants.MsgTypeLocateQuoteRequest)

	setString(&m.Body, constants.TagQuoteReqID, params.QuoteReqID)
	setString(&m.Body, constants.TagAccount, params.Account)
	setString(&m.Body, constants.TagSymbol, params.Symbol)
	setString(&m.Body, constants.TagSide, constants.SideSellShort)
	setString(&m.Body, constants.TagOrderQty, params.OrderQty)
	setString(&m.Body, constants.TagExDestination, params.Route)
	setString(&m.Body, constants.TagLocateReqd, "Y")
	setString(&m.Body, constants.TagTransactTime, time.Now().UTC().Format(constants.FixTimeFormat))

	return m
}

// --- Locate Response (p) ---

// BuildLocateResponse creates the vendor locate accept/reject (p) message.
// flag is LocateResponseAccept or LocateResponseReject; the venue expects
// the quote ID and flag joined as "QuoteID,flag" in the text field.
func BuildLocateResponse(account, quoteID, flag string) *quickfix.Message {
	m := quickfix.NewMessage()
	buildHeader(&m.Header, constants.MsgTypeLocateResponse)

	setString(&m.Body, constants.TagAccount, account)
	setString(&m.Body, constants.TagQuoteID, quoteID)
	setString(&m.Body, constants.TagText, quoteID+","+flag)
	setString(&m.Body, constants.TagTransactTime, time.Now().UTC().Format(constants.FixTimeFormat))

	return m
}
