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

package constants

import "github.com/quickfixgo/quickfix"

// --- Message Types ---
const (
	// Admin Messages
	MsgTypeLogon          = "A" // Logon
	MsgTypeLogout         = "5" // Logout
	MsgTypeReject         = "3" // Session-level Reject
	MsgTypeBusinessReject = "j" // Business Message Reject

	// Order Entry Messages
	MsgTypeNewOrderSingle     = "D" // New Order Single
	MsgTypeOrderCancelRequest = "F" // Order Cancel Request
	MsgTypeOrderCancelReplace = "G" // Order Cancel/Replace Request
	MsgTypeOrderStatusRequest = "H" // Order Status Request
	MsgTypeExecutionReport    = "8" // Execution Report
	MsgTypeOrderCancelReject  = "9" // Order Cancel Reject

	// Short-Locate Messages (vendor dialect)
	MsgTypeLocateQuoteRequest = "R" // Short-locate quote request
	MsgTypeLocateQuote        = "S" // Short-locate quote response
	MsgTypeLocateResponse     = "p" // Locate accept/reject
)

// --- Protocol Constants ---
const (
	FixTimeFormat     = "20060102-15:04:05.000"
	EncryptMethodNone = "0"
	HeartBtInterval   = "30"
)

// --- Side (Tag 54) ---
const (
	SideBuy       = "1" // Buy
	SideSell      = "2" // Sell
	SideSellShort = "5" // Sell Short (requires locate)
)

// --- Order Types (Tag 40) ---
const (
	OrdTypeMarket    = "1" // Market
	OrdTypeLimit     = "2" // Limit
	OrdTypeStop      = "3" // Stop
	OrdTypeStopLimit = "4" // Stop Limit
)

// --- Time In Force (Tag 59) ---
const (
	TimeInForceDay = "0" // Day
	TimeInForceGTC = "1" // Good Till Cancel
	TimeInForceIOC = "3" // Immediate or Cancel
	TimeInForceFOK = "4" // Fill or Kill
	TimeInForceGTD = "6" // Good Till Date
)

// --- Order Status (Tag 39) ---
const (
	OrdStatusNew             = "0" // New
	OrdStatusPartiallyFilled = "1" // Partially Filled
	OrdStatusFilled          = "2" // Filled
	OrdStatusDoneForDay      = "3" // Done for Day
	OrdStatusCanceled        = "4" // Canceled
	OrdStatusReplaced        = "5" // Replaced
	OrdStatusPendingCancel   = "6" // Pending Cancel
	OrdStatusStopped         = "7" // Stopped
	OrdStatusRejected        = "8" // Rejected
	OrdStatusSuspended       = "9" // Suspended
	OrdStatusPendingNew      = "A" // Pending New
	OrdStatusCalculated      = "B" // Calculated (vendor: locate confirmed)
	OrdStatusExpired         = "C" // Expired
	OrdStatusPendingReplace  = "E" // Pending Replace
)

// --- Execution Type (Tag 150) ---
const (
	ExecTypeNew            = "0" // New Order
	ExecTypePartialFill    = "1" // Partial Fill
	ExecTypeFilled         = "2" // Filled
	ExecTypeDone           = "3" // Done
	ExecTypeCanceled       = "4" // Canceled
	ExecTypeReplaced       = "5" // Replaced
	ExecTypePendingCancel  = "6" // Pending Cancel
	ExecTypeStopped        = "7" // Stopped
	ExecTypeRejected       = "8" // Rejected
	ExecTypePendingNew     = "A" // Pending New
	ExecTypeCalculated     = "B" // Calculated (vendor: locate confirmed)
	ExecTypeExpired        = "C" // Expired
	ExecTypeRestated       = "D" // Restated
	ExecTypePendingReplace = "E" // Pending Replace
	ExecTypeOrderStatus    = "I" // Order Status
)

// --- Locate Response Flag (body of vendor 'p' message) ---
const (
	LocateResponseAccept = "1" // Accept the quoted locate
	LocateResponseReject = "2" // Reject the quoted locate
)

// --- Handling Instruction (Tag 21) ---
const (
	HandlInstAutomatedNoIntervention = "1"
)

// --- Cancel Reject Response To (Tag 434) ---
const (
	CxlRejResponseToCancel  = "1" // Order Cancel Request (F)
	CxlRejResponseToReplace = "2" // Order Cancel/Replace Request (G)
)

// MaxQuoteReqIDLen is the venue's hard cap on QuoteReqID (Tag 131).
// Longer identifiers are rejected at the session edge.
const MaxQuoteReqIDLen = 39

// --- Standard FIX Tags ---
var (
	TagAccount       = quickfix.Tag(1)
	TagAvgPx         = quickfix.Tag(6)
	TagBeginString   = quickfix.Tag(8)
	TagClOrdID       = quickfix.Tag(11)
	TagCumQty        = quickfix.Tag(14)
	TagExecID        = quickfix.Tag(17)
	TagExecInst      = quickfix.Tag(18)
	TagHandlInst     = quickfix.Tag(21)
	TagLastMkt       = quickfix.Tag(30)
	TagLastPx        = quickfix.Tag(31)
	TagLastShares    = quickfix.Tag(32)
	TagMsgSeqNum     = quickfix.Tag(34)
	TagMsgType       = quickfix.Tag(35)
	TagOrderID       = quickfix.Tag(37)
	TagOrderQty      = quickfix.Tag(38)
	TagOrdStatus     = quickfix.Tag(39)
	TagOrdType       = quickfix.Tag(40)
	TagOrigClOrdID   = quickfix.Tag(41)
	TagPrice         = quickfix.Tag(44)
	TagRefSeqNum     = quickfix.Tag(45)
	TagSenderCompId  = quickfix.Tag(49)
	TagSendingTime   = quickfix.Tag(52)
	TagSide          = quickfix.Tag(54)
	TagSymbol        = quickfix.Tag(55)
	TagTargetCompId  = quickfix.Tag(56)
	TagText          = quickfix.Tag(58)
	TagTimeInForce   = quickfix.Tag(59)
	TagTransactTime  = quickfix.Tag(60)
	TagEncryptMethod = quickfix.Tag(98)
	TagStopPx        = quickfix.Tag(99)
	TagExDestination = quickfix.Tag(100)
	TagCxlRejReason  = quickfix.Tag(102)
	TagOrdRejReason  = quickfix.Tag(103)
	TagHeartBtInt    = quickfix.Tag(108)
	TagLocateReqd    = quickfix.Tag(114)
	TagQuoteID       = quickfix.Tag(117)
	TagQuoteReqID    = quickfix.Tag(131)
	TagBidPx         = quickfix.Tag(132)
	TagOfferPx       = quickfix.Tag(133)
	TagBidSize       = quickfix.Tag(134)
	TagOfferSize     = quickfix.Tag(135)
	TagExecType      = quickfix.Tag(150)
	TagLeavesQty     = quickfix.Tag(151)

	// Reject Tags
	TagRefMsgType           = quickfix.Tag(372)
	TagSessionRejectReason  = quickfix.Tag(373)
	TagBusinessRejectReason = quickfix.Tag(380)
	TagCxlRejResponseTo     = quickfix.Tag(434)
)
