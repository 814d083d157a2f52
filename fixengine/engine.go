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
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/quickfixgo/quickfix"
	"github.com/shopspring/decimal"

	"mirror-fix-go/builder"
	"mirror-fix-go/catalog"
	"mirror-fix-go/config"
	"mirror-fix-go/constants"
	"mirror-fix-go/database"
	"mirror-fix-go/locate"
	"mirror-fix-go/metrics"
)

// Engine reproduces primary-account order flow on shadow accounts.
//
// Every inbound execution report is appended to the event log first;
// outbound actions happen only after the event is durably recorded, and
// never for a redelivered event. Reports on the primary drop-copy
// session drive mirror decisions; reports on shadow sessions update the
// projection and complete pending locates.
type Engine struct {
	cfg      *config.FixConfig
	store    *database.OrderStore
	rules    *catalog.Catalog
	locates  *locate.Correlator
	sender   OrderSender
	ids      *IdGenerator
	activity *ActivityLog
}

// pendingOrder is the deferred shadow order carried through a locate
// round trip in the correlator context.
type pendingOrder struct {
	ruleId         int64
	primaryClOrdId string
	params         builder.NewOrderParams
}

// NewEngine wires the engine over its collaborators.
func NewEngine(cfg *config.FixConfig, store *database.OrderStore, rules *catalog.Catalog,
	locates *locate.Correlator, sender OrderSender, ids *IdGenerator, activity *ActivityLog) *Engine {
	return &Engine{
		cfg:      cfg,
		store:    store,
		rules:    rules,
		locates:  locates,
		sender:   sender,
		ids:      ids,
		activity: activity,
	}
}

// HandleExecutionReport persists the report and, for primary-account
// reports, runs the mirror decision. A storage failure rejects the
// message so the venue re-presents it; nothing is mirrored without a
// durably recorded event.
func (e *Engine) HandleExecutionReport(rep *ExecReport) quickfix.MessageRejectError {
	applied, err := e.store.ApplyEvent(rep.Event())
	if err != nil {
		log.Printf("failed to persist exec report %s on %s: %v", rep.ExecId, rep.SessionId, err)
		return quickfix.NewBusinessMessageRejectError("failed to persist execution report", 0, nil)
	}
	if !applied {
		metrics.DuplicateEvents.Inc()
		return nil
	}
	metrics.EventsIngested.Inc()
	e.activity.Add(Activity{
		Kind:      "EXEC " + rep.OrdStatus,
		SessionId: rep.SessionId,
		Account:   rep.Account,
		ClOrdId:   rep.ClOrdId,
		Symbol:    rep.Symbol,
		Text:      rep.Text,
	})

	if rep.SessionId == e.cfg.PrimarySession && rep.Account == e.cfg.PrimaryAccount {
		e.handlePrimary(rep)
	} else {
		e.handleShadow(rep)
	}
	return nil
}

// handlePrimary maps one primary-account state transition to shadow
// actions. Fills and partial fills are recorded but not propagated:
// shadow orders fill on their own. Rejected primaries are recorded
// only; there is nothing mirrored yet to take down.
func (e *Engine) handlePrimary(rep *ExecReport) {
	switch {
	case rep.ExecType == constants.ExecTypeNew || rep.ExecType == constants.ExecTypePendingNew ||
		(rep.ExecType == "" && (rep.OrdStatus == constants.OrdStatusNew || rep.OrdStatus == constants.OrdStatusPendingNew)):
		e.mirrorNew(rep)
	case rep.ExecType == constants.ExecTypeReplaced || rep.OrdStatus == constants.OrdStatusReplaced:
		e.mirrorReplace(rep)
	case rep.ExecType == constants.ExecTypeCanceled || rep.ExecType == constants.ExecTypePendingCancel ||
		rep.OrdStatus == constants.OrdStatusCanceled:
		e.propagateCancel(rep)
	case rep.ExecType == constants.ExecTypeExpired:
		// An expired primary leaves no intent behind its mirrors.
		e.propagateCancel(rep)
	}
}

// handleShadow processes reports arriving on shadow sessions. The
// projection was already updated by ApplyEvent; the only flow decision
// left is completing an offer/accept locate when the venue confirms it
// with OrdStatus Calculated.
func (e *Engine) handleShadow(rep *ExecReport) {
	if rep.OrdStatus == constants.OrdStatusCalculated && rep.QuoteReqId != "" {
		e.completeLocate(rep.QuoteReqId)
	}
}

// --- New order mirroring ---

func (e *Engine) mirrorNew(rep *ExecReport) {
	// The venue may report both PendingNew and New for the same order;
	// mirror on whichever creation report arrives first.
	prior, err := e.store.HasPriorCreation(rep.Account, rep.ClOrdId, rep.ExecId)
	if err != nil {
		log.Printf("failed to check prior creation for %s: %v", rep.ClOrdId, err)
		return
	}
	if prior {
		return
	}

	qty, err := decimal.NewFromString(rep.OrderQty)
	if err != nil {
		log.Printf("primary order %s has unparseable quantity %q", rep.ClOrdId, rep.OrderQty)
		return
	}

	snap := e.rules.Snapshot()
	rules := snap.SelectRules(rep.Account, rep.OrdType)
	if len(rules) == 0 {
		log.Printf("no copy rules for primary order %s (%s %s)", rep.ClOrdId, rep.Symbol, rep.OrdType)
		return
	}
	for _, rule := range rules {
		e.mirrorOne(snap, rule, rep, qty)
	}
}

func (e *Engine) mirrorOne(snap *catalog.Snapshot, rule *catalog.Rule, rep *ExecReport, primaryQty decimal.Decimal) {
	shadowQty := rule.CopyQuantity(primaryQty)
	if shadowQty.Sign() <= 0 {
		e.recordSkip(rule, rep, "scaled quantity is zero")
		return
	}
	if rule.QtyOutOfBounds(shadowQty) {
		e.recordSkip(rule, rep, "scaled quantity "+shadowQty.String()+" outside rule bounds")
		return
	}

	session := e.cfg.SessionForAccount(rule.ShadowAccount)
	if session == "" {
		e.recordFail(rule.ShadowAccount, rep, "no session configured for shadow account")
		return
	}

	tif := rep.TimeInForce
	if tif == "" {
		tif = constants.TimeInForceDay
	}
	params := builder.NewOrderParams{
		Account:       rule.ShadowAccount,
		ClOrdID:       e.ids.Next(),
		Symbol:        rep.Symbol,
		Side:          rep.Side,
		OrdType:       rep.OrdType,
		TimeInForce:   tif,
		OrderQty:      shadowQty.String(),
		Price:         rep.Price,
		StopPx:        rep.StopPx,
		ExDestination: rule.TargetRoute(rep.PrimaryRoute(), false),
	}

	if rep.Side == constants.SideSellShort {
		route := snap.Route(rule.TargetRoute(rep.PrimaryRoute(), true))
		if route.IsLocate() {
			e.beginLocate(rule, rep, session, route, params, shadowQty)
			return
		}
		// No locate route configured: submit and let the venue apply
		// its own locate policy.
	}

	e.submitShadow(session, rule.Id, rep.ClOrdId, params)
}

// submitShadow records the shadow order row, then enqueues the New
// Order Single. The row is written first so reports arriving on the
// shadow session find the primary back-link.
func (e *Engine) submitShadow(session string, ruleId int64, primaryClOrdId string, params builder.NewOrderParams) {
	o := &database.Order{
		Account:        params.Account,
		ClOrdId:        params.ClOrdID,
		Symbol:         params.Symbol,
		Side:           params.Side,
		OrdType:        params.OrdType,
		TimeInForce:    params.TimeInForce,
		OrdStatus:      constants.OrdStatusPendingNew,
		ExecType:       constants.ExecTypePendingNew,
		OrderQty:       params.OrderQty,
		CumQty:         "0",
		LeavesQty:      params.OrderQty,
		Price:          params.Price,
		StopPx:         params.StopPx,
		PrimaryClOrdId: primaryClOrdId,
		RuleId:         ruleId,
		SessionId:      session,
	}
	if err := e.store.InsertShadowOrder(o); err != nil {
		log.Printf("failed to record shadow order %s: %v", params.ClOrdID, err)
		metrics.MirrorFailures.Inc()
		return
	}

	if err := e.sender.Send(session, builder.BuildNewOrderSingle(params), params.Account, params.ClOrdID); err != nil {
		e.recordSendFailure(session, params.Account, params.ClOrdID, err)
		return
	}
	metrics.MirroredOrders.Inc()
	e.activity.Add(Activity{
		Kind:      "MIRROR NEW",
		SessionId: session,
		Account:   params.Account,
		ClOrdId:   params.ClOrdID,
		Symbol:    params.Symbol,
		Text:      "qty " + params.OrderQty + " for primary " + primaryClOrdId,
	})
	log.Printf("mirrored %s: %s x %s on %s (primary %s)",
		params.Symbol, params.Side, params.OrderQty, params.Account, primaryClOrdId)
}

// --- Short-locate protocol ---

// beginLocate starts the locate round trip. The shadow order is parked
// in the correlator and submitted only once the locate completes.
func (e *Engine) beginLocate(rule *catalog.Rule, rep *ExecReport, session string,
	route *catalog.Route, params builder.NewOrderParams, shadowQty decimal.Decimal) {
	ctx := &locate.Context{
		ShadowSession:  session,
		ShadowAccount:  rule.ShadowAccount,
		PrimaryClOrdId: rep.ClOrdId,
		LocateRoute:    route.Name,
		LocateType:     route.LocateType,
		Symbol:         rep.Symbol,
		RequestedQty:   shadowQty.String(),
		Stage:          locate.StageQuote,
		Pending:        pendingOrder{ruleId: rule.Id, primaryClOrdId: rep.ClOrdId, params: params},
	}
	reqId := e.locates.Register(ctx)
	ctx.Timer = e.armLocateTimeout(reqId)

	msg := builder.BuildLocateQuoteRequest(builder.LocateQuoteParams{
		QuoteReqID: reqId,
		Account:    rule.ShadowAccount,
		Symbol:     rep.Symbol,
		OrderQty:   shadowQty.String(),
		Route:      route.Name,
	})
	if err := e.sender.Send(session, msg, rule.ShadowAccount, params.ClOrdID); err != nil {
		if taken, ok := e.locates.Take(reqId); ok {
			stopLocateTimer(taken)
		}
		e.recordLocate(ctx, database.EventKindLocateFail, "locate request not sent: "+err.Error())
		return
	}
	metrics.LocateRequests.Inc()

	log.Printf("locate %s: %s x %s via %s (%s)", reqId, rep.Symbol, shadowQty.String(), route.Name, route.LocateType)
}

// HandleLocateQuote completes or advances a locate on receipt of the
// venue's Quote (S). Quotes with no live context are dropped; the
// correlator entry expired or the locate already failed.
func (e *Engine) HandleLocateQuote(q *LocateQuote) {
	ctx, ok := e.locates.Take(q.QuoteReqId)
	if !ok {
		log.Printf("unmatched locate quote %s (quote id %s)", q.QuoteReqId, q.QuoteId)
		return
	}
	stopLocateTimer(ctx)
	pend, ok := ctx.Pending.(pendingOrder)
	if !ok {
		log.Printf("locate %s carries no pending order", q.QuoteReqId)
		return
	}

	if short := e.offeredShort(ctx, q); short {
		if ctx.LocateType == catalog.LocateOfferAcceptReject && q.QuoteId != "" {
			msg := builder.BuildLocateResponse(ctx.ShadowAccount, q.QuoteId, constants.LocateResponseReject)
			if err := e.sender.Send(ctx.ShadowSession, msg, ctx.ShadowAccount, pend.params.ClOrdID); err != nil {
				log.Printf("locate reject for %s not sent: %v", q.QuoteId, err)
			}
		}
		e.recordLocate(ctx, database.EventKindLocateFail,
			"offered size "+q.OfferSize+" below requested "+ctx.RequestedQty)
		return
	}

	pend.params.QuoteID = q.QuoteId

	switch ctx.LocateType {
	case catalog.LocateOfferAcceptReject:
		// Accept the offer and wait for the venue's Calculated report
		// before submitting the order. The timeout is re-armed for the
		// confirm stage.
		ctx.Stage = locate.StageConfirm
		ctx.Pending = pend
		ctx.Timer = e.armLocateTimeout(q.QuoteReqId)
		e.locates.Reregister(q.QuoteReqId, ctx)

		msg := builder.BuildLocateResponse(ctx.ShadowAccount, q.QuoteId, constants.LocateResponseAccept)
		if err := e.sender.Send(ctx.ShadowSession, msg, ctx.ShadowAccount, pend.params.ClOrdID); err != nil {
			if taken, ok := e.locates.Take(q.QuoteReqId); ok {
				stopLocateTimer(taken)
			}
			e.recordLocate(ctx, database.EventKindLocateFail, "locate accept not sent: "+err.Error())
			return
		}
	default:
		// PRICE_INQUIRY_DIRECT: the quote itself is the confirmation.
		e.submitShadow(ctx.ShadowSession, pend.ruleId, pend.primaryClOrdId, pend.params)
	}
}

// completeLocate submits the parked order once the venue confirms an
// accepted locate with OrdStatus Calculated.
func (e *Engine) completeLocate(quoteReqId string) {
	ctx, ok := e.locates.Take(quoteReqId)
	if !ok {
		log.Printf("unmatched locate confirmation %s", quoteReqId)
		return
	}
	stopLocateTimer(ctx)
	pend, ok := ctx.Pending.(pendingOrder)
	if !ok {
		log.Printf("locate %s carries no pending order", quoteReqId)
		return
	}
	e.submitShadow(ctx.ShadowSession, pend.ruleId, pend.primaryClOrdId, pend.params)
}

// offeredShort reports whether the quoted size is below the requested
// quantity. A quote with no size is taken at face value.
func (e *Engine) offeredShort(ctx *locate.Context, q *LocateQuote) bool {
	if q.OfferSize == "" {
		return false
	}
	offered, err := decimal.NewFromString(q.OfferSize)
	if err != nil {
		return false
	}
	requested, err := decimal.NewFromString(ctx.RequestedQty)
	if err != nil {
		return false
	}
	return offered.LessThan(requested)
}

func (e *Engine) armLocateTimeout(reqId string) *time.Timer {
	return time.AfterFunc(e.cfg.LocateTimeout(), func() {
		if ctx, ok := e.locates.Take(reqId); ok {
			metrics.LocateTimeouts.Inc()
			e.recordLocate(ctx, database.EventKindLocateTimeout,
				"locate "+reqId+" timed out at stage "+ctx.Stage)
		}
	})
}

func stopLocateTimer(ctx *locate.Context) {
	if ctx.Timer != nil {
		ctx.Timer.Stop()
	}
}

// --- Replace and cancel propagation ---

func (e *Engine) mirrorReplace(rep *ExecReport) {
	newQty, err := decimal.NewFromString(rep.OrderQty)
	if err != nil {
		log.Printf("primary replace %s has unparseable quantity %q", rep.ClOrdId, rep.OrderQty)
		return
	}

	root := e.primaryRoot(rep.OrigClOrdId)
	shadows, err := e.store.LiveShadowOrders(root)
	if err != nil {
		log.Printf("failed to load shadow orders for %s: %v", root, err)
		return
	}

	snap := e.rules.Snapshot()
	for _, shadow := range shadows {
		rule := snap.RuleById(shadow.RuleId)
		if rule == nil {
			e.recordShadowSkip(shadow, "copy rule "+strconv.FormatInt(shadow.RuleId, 10)+" no longer active")
			continue
		}

		shadowQty := rule.CopyQuantity(newQty)
		if shadowQty.Sign() <= 0 || rule.QtyOutOfBounds(shadowQty) {
			// The new size no longer maps to a valid mirror; take the
			// shadow order down instead of leaving a stale one working.
			e.recordShadowSkip(shadow, "replaced quantity "+shadowQty.String()+" outside rule bounds, canceling")
			e.cancelShadow(shadow)
			continue
		}

		cum, _ := decimal.NewFromString(nonEmptyQty(shadow.CumQty))
		if cum.Sign() > 0 && !shadowQty.GreaterThan(cum) {
			// Cannot shrink below what already filled. Cancel the
			// remainder and record the saturation.
			metrics.Saturations.Inc()
			if err := e.store.RecordEngineEvent(shadow.SessionId, syntheticExecId(),
				database.EventKindSaturation, shadow.Account, shadow.ClOrdId,
				"target qty "+shadowQty.String()+" at or below filled "+cum.String()); err != nil {
				log.Printf("failed to record saturation for %s: %v", shadow.ClOrdId, err)
			}
			e.cancelShadow(shadow)
			continue
		}

		ordType := rep.OrdType
		if ordType == "" {
			ordType = shadow.OrdType
		}
		msg := builder.BuildOrderCancelReplaceRequest(builder.ReplaceOrderParams{
			Account:     shadow.Account,
			ClOrdID:     e.ids.Next(),
			OrigClOrdID: shadow.ClOrdId,
			OrderID:     shadow.OrderId,
			Symbol:      shadow.Symbol,
			Side:        shadow.Side,
			OrdType:     ordType,
			TimeInForce: rep.TimeInForce,
			OrderQty:    shadowQty.String(),
			Price:       rep.Price,
			StopPx:      rep.StopPx,
		})
		if err := e.sender.Send(shadow.SessionId, msg, shadow.Account, shadow.ClOrdId); err != nil {
			e.recordSendFailure(shadow.SessionId, shadow.Account, shadow.ClOrdId, err)
			continue
		}
		metrics.ReplacesPropagated.Inc()
		e.activity.Add(Activity{
			Kind:      "MIRROR REPLACE",
			SessionId: shadow.SessionId,
			Account:   shadow.Account,
			ClOrdId:   shadow.ClOrdId,
			Symbol:    shadow.Symbol,
			Text:      "new qty " + shadowQty.String(),
		})
	}
}

func (e *Engine) propagateCancel(rep *ExecReport) {
	id := rep.OrigClOrdId
	if id == "" {
		id = rep.ClOrdId
	}
	root := e.primaryRoot(id)
	shadows, err := e.store.LiveShadowOrders(root)
	if err != nil {
		log.Printf("failed to load shadow orders for %s: %v", root, err)
		return
	}
	for _, shadow := range shadows {
		e.cancelShadow(shadow)
	}
}

// cancelShadow enqueues one OrderCancelRequest and flags the shadow
// order PendingCancel. Shadows already flagged are skipped: the venue
// reports both PendingCancel and Canceled for a primary cancel, and
// only the first may produce a cancel request.
func (e *Engine) cancelShadow(shadow *database.Order) {
	if shadow.OrdStatus == constants.OrdStatusPendingCancel {
		return
	}
	msg := builder.BuildOrderCancelRequest(builder.CancelOrderParams{
		Account:     shadow.Account,
		ClOrdID:     e.ids.Next(),
		OrigClOrdID: shadow.ClOrdId,
		OrderID:     shadow.OrderId,
		Symbol:      shadow.Symbol,
		Side:        shadow.Side,
		OrderQty:    shadow.OrderQty,
	})
	if err := e.sender.Send(shadow.SessionId, msg, shadow.Account, shadow.ClOrdId); err != nil {
		e.recordSendFailure(shadow.SessionId, shadow.Account, shadow.ClOrdId, err)
		return
	}
	if err := e.store.MarkCancelRequested(shadow.Account, shadow.ClOrdId); err != nil {
		log.Printf("failed to flag cancel for %s: %v", shadow.ClOrdId, err)
	}
	metrics.CancelsPropagated.Inc()
	e.activity.Add(Activity{
		Kind:      "MIRROR CANCEL",
		SessionId: shadow.SessionId,
		Account:   shadow.Account,
		ClOrdId:   shadow.ClOrdId,
		Symbol:    shadow.Symbol,
	})
}

// primaryRoot follows the replace chain back to the client order id the
// shadow orders were linked to at creation. The chain is bounded by the
// number of replaces on the order; the hop cap only guards against a
// cyclic projection.
func (e *Engine) primaryRoot(clOrdId string) string {
	id := clOrdId
	for hops := 0; hops < 64; hops++ {
		o, err := e.store.GetOrder(e.cfg.PrimaryAccount, id)
		if err != nil || o == nil || o.OrigClOrdId == "" {
			return id
		}
		id = o.OrigClOrdId
	}
	return id
}

// HandleCancelReject records a venue refusal of a propagated cancel or
// replace. The shadow order keeps working; the operator sees it in the
// event log and activity feed.
func (e *Engine) HandleCancelReject(rej *CancelReject) {
	metrics.MirrorFailures.Inc()
	text := "cancel reject (reason " + rej.CxlRejReason + "): " + rej.Text
	if err := e.store.RecordEngineEvent(rej.SessionId, syntheticExecId(),
		database.EventKindMirrorFail, rej.Account, rej.OrigClOrdId, text); err != nil {
		log.Printf("failed to record cancel reject for %s: %v", rej.OrigClOrdId, err)
	}
	e.activity.Add(Activity{
		Kind:      "CANCEL REJECT",
		SessionId: rej.SessionId,
		Account:   rej.Account,
		ClOrdId:   rej.OrigClOrdId,
		Text:      text,
	})
	log.Printf("cancel reject on %s for %s: %s", rej.SessionId, rej.OrigClOrdId, rej.Text)
}

// OnSendError is invoked by the sender when a queued message could not
// be delivered after the logon wait.
func (e *Engine) OnSendError(sessionId, account, clOrdId string, err error) {
	e.recordSendFailure(sessionId, account, clOrdId, err)
}

// --- Recording helpers ---

func (e *Engine) recordSkip(rule *catalog.Rule, rep *ExecReport, reason string) {
	metrics.MirrorSkips.Inc()
	if err := e.store.RecordEngineEvent(rep.SessionId, syntheticExecId(),
		database.EventKindMirrorSkip, rule.ShadowAccount, rep.ClOrdId, reason); err != nil {
		log.Printf("failed to record skip for %s: %v", rep.ClOrdId, err)
	}
	e.activity.Add(Activity{
		Kind:    "SKIP",
		Account: rule.ShadowAccount,
		ClOrdId: rep.ClOrdId,
		Symbol:  rep.Symbol,
		Text:    reason,
	})
	log.Printf("skip %s for %s: %s", rep.ClOrdId, rule.ShadowAccount, reason)
}

func (e *Engine) recordShadowSkip(shadow *database.Order, reason string) {
	metrics.MirrorSkips.Inc()
	if err := e.store.RecordEngineEvent(shadow.SessionId, syntheticExecId(),
		database.EventKindMirrorSkip, shadow.Account, shadow.ClOrdId, reason); err != nil {
		log.Printf("failed to record skip for %s: %v", shadow.ClOrdId, err)
	}
	log.Printf("skip %s on %s: %s", shadow.ClOrdId, shadow.Account, reason)
}

func (e *Engine) recordFail(account string, rep *ExecReport, reason string) {
	metrics.MirrorFailures.Inc()
	if err := e.store.RecordEngineEvent(rep.SessionId, syntheticExecId(),
		database.EventKindMirrorFail, account, rep.ClOrdId, reason); err != nil {
		log.Printf("failed to record failure for %s: %v", rep.ClOrdId, err)
	}
	log.Printf("mirror failure for %s on %s: %s", rep.ClOrdId, account, reason)
}

func (e *Engine) recordSendFailure(sessionId, account, clOrdId string, sendErr error) {
	kind := database.EventKindMirrorFail
	if errors.Is(sendErr, ErrQueueFull) {
		// Outbound saturation: the queue is at capacity and the mirror
		// decision fails rather than blocking the acceptor.
		kind = database.EventKindSaturation
		metrics.Saturations.Inc()
	} else {
		metrics.MirrorFailures.Inc()
	}
	if err := e.store.RecordEngineEvent(sessionId, syntheticExecId(),
		kind, account, clOrdId, sendErr.Error()); err != nil {
		log.Printf("failed to record send failure for %s: %v", clOrdId, err)
	}
	e.activity.Add(Activity{
		Kind:      "SEND FAIL",
		SessionId: sessionId,
		Account:   account,
		ClOrdId:   clOrdId,
		Text:      sendErr.Error(),
	})
}

func (e *Engine) recordLocate(ctx *locate.Context, kind, reason string) {
	if kind == database.EventKindLocateFail {
		metrics.LocateFailures.Inc()
	}
	if err := e.store.RecordEngineEvent(ctx.ShadowSession, syntheticExecId(),
		kind, ctx.ShadowAccount, ctx.PrimaryClOrdId, reason); err != nil {
		log.Printf("failed to record locate event for %s: %v", ctx.PrimaryClOrdId, err)
	}
	e.activity.Add(Activity{
		Kind:      kind,
		SessionId: ctx.ShadowSession,
		Account:   ctx.ShadowAccount,
		ClOrdId:   ctx.PrimaryClOrdId,
		Symbol:    ctx.Symbol,
		Text:      reason,
	})
	log.Printf("%s for %s on %s: %s", kind, ctx.Symbol, ctx.ShadowAccount, reason)
}

func nonEmptyQty(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
