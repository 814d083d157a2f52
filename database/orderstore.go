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

// Package database provides SQLite storage for the mirror engine: the
// append-only order_events log and the derived orders projection, plus
// the copy-rule catalog tables read by the catalog package.
//
// Every parsed execution report becomes one order_events row, keyed by
// (session_id, exec_id). Redelivered reports (gap-fill, at-least-once
// vendor behavior) hit the unique index and are dropped without
// re-applying the projection, which makes the append path idempotent.
package database

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"mirror-fix-go/constants"
)

// OrderEvent is one row of the append-only order_events log. All
// quantities and prices are decimal strings exactly as received.
type OrderEvent struct {
	Id          int64
	SessionId   string
	ExecId      string
	ExecType    string
	OrdStatus   string
	ClOrdId     string
	OrigClOrdId string
	OrderId     string
	Symbol      string
	Side        string
	OrdType     string
	TimeInForce string
	OrderQty    string
	LastQty     string
	CumQty      string
	LeavesQty   string
	Price       string
	StopPx      string
	LastPx      string
	AvgPx       string
	Account     string
	TransactTime string
	Text        string
	Raw         []byte
	IngestedAt  time.Time
}

// Order is one row of the derived orders projection: the current state
// of a distinct (account, cl_ord_id). Shadow orders carry the primary
// order's ClOrdID in PrimaryClOrdId and the copy rule that produced
// them in RuleId; both are set at creation and never change.
type Order struct {
	Id             int64
	Account        string
	ClOrdId        string
	OrigClOrdId    string
	OrderId        string
	Symbol         string
	Side           string
	OrdType        string
	TimeInForce    string
	OrdStatus      string
	ExecType       string
	OrderQty       string
	CumQty         string
	LeavesQty      string
	Price          string
	StopPx         string
	AvgPx          string
	PrimaryClOrdId string
	RuleId         int64
	SessionId      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsOpen reports whether the order can still receive replaces/cancels.
func (o *Order) IsOpen() bool {
	switch o.OrdStatus {
	case constants.OrdStatusNew, constants.OrdStatusPartiallyFilled,
		constants.OrdStatusPendingNew, constants.OrdStatusPendingCancel,
		constants.OrdStatusPendingReplace, constants.OrdStatusCalculated,
		constants.OrdStatusSuspended:
		return true
	default:
		return false
	}
}

// Engine event kinds persisted as synthetic order_events rows. These
// share the log with venue execution reports so an order's full history
// is a single ordered scan.
const (
	EventKindMirrorSkip    = "MIRROR_SKIP"
	EventKindMirrorFail    = "MIRROR_FAIL"
	EventKindLocateFail    = "LOCATE_FAIL"
	EventKindLocateTimeout = "LOCATE_TIMEOUT"
	EventKindSaturation    = "SATURATION"
)

// OrderStore provides SQLite storage with prepared statements for the
// append path. Prepared statements are initialized once and reused,
// avoiding SQL parsing overhead on each inbound report.
type OrderStore struct {
	db *sql.DB

	stmtEvent *sql.Stmt
	stmtOrder *sql.Stmt

	// locks serializes projection writers per (account, cl_ord_id).
	locks keyedMutex
}

// Open opens (or creates) the database at dbPath and initializes the schema.
func Open(dbPath string) (*OrderStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	s := &OrderStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %v", err)
	}

	if s.stmtEvent, err = db.Prepare(insertEventQuery); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to prepare event statement: %v", err)
	}
	if s.stmtOrder, err = db.Prepare(insertOrderQuery); err != nil {
		_ = s.stmtEvent.Close()
		_ = db.Close()
		return nil, fmt.Errorf("failed to prepare order statement: %v", err)
	}

	log.Printf("SQLite order store initialized at %s", dbPath)
	return s, nil
}

// DB exposes the underlying handle for the catalog package, which reads
// the accounts/routes/copy_rules tables from the same file.
func (s *OrderStore) DB() *sql.DB {
	return s.db
}

func (s *OrderStore) Close() error {
	if s.stmtEvent != nil {
		_ = s.stmtEvent.Close()
	}
	if s.stmtOrder != nil {
		_ = s.stmtOrder.Close()
	}
	return s.db.Close()
}

// --- Append path ---

// ApplyEvent appends an execution-report event and applies it to the
// orders projection in one transaction. Returns false when the event's
// idempotency key (session_id, exec_id) already exists; in that case
// nothing is written and the caller must not emit outbound actions.
func (s *OrderStore) ApplyEvent(ev *OrderEvent) (bool, error) {
	unlock := s.locks.lock(ev.Account + "|" + ev.ClOrdId)
	defer unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Stmt(s.stmtEvent).Exec(
		ev.SessionId, ev.ExecId, ev.ExecType, ev.OrdStatus,
		ev.ClOrdId, ev.OrigClOrdId, ev.OrderId, ev.Symbol, ev.Side,
		ev.OrdType, ev.TimeInForce, ev.OrderQty, ev.LastQty, ev.CumQty,
		ev.LeavesQty, ev.Price, ev.StopPx, ev.LastPx, ev.AvgPx,
		ev.Account, ev.TransactTime, ev.Text, ev.Raw,
	)
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		// Duplicate delivery: projection already reflects this event.
		return false, nil
	}

	if err := s.project(tx, ev); err != nil {
		return false, fmt.Errorf("project: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// project applies one event's state transition to the orders row.
//
// Precedence rules:
//   - ord_status and exec_type always come from the newest event.
//   - cum/leaves/avg come from the event when present, otherwise
//     cum := prior_cum + last_qty and leaves := order_qty - cum.
//   - REPLACED closes the row keyed by orig_cl_ord_id and creates the
//     successor row keyed by the new cl_ord_id, inheriting the
//     primary_cl_ord_id back-link and rule id.
func (s *OrderStore) project(tx *sql.Tx, ev *OrderEvent) error {
	// Event-only rows: synthetic engine events and locate confirmations
	// carry no client order id and have no projection.
	if ev.ClOrdId == "" {
		return nil
	}
	if ev.ExecType == constants.ExecTypeReplaced || ev.OrdStatus == constants.OrdStatusReplaced {
		return s.projectReplace(tx, ev)
	}

	cur, err := getOrderTx(tx, ev.Account, ev.ClOrdId)
	if err != nil && err != sql.ErrNoRows {
		return err
	}

	if err == sql.ErrNoRows {
		o := orderFromEvent(ev)
		return insertOrderTx(tx, s.stmtOrder, o)
	}

	merged := mergeEvent(cur, ev)
	return updateOrderTx(tx, merged)
}

func (s *OrderStore) projectReplace(tx *sql.Tx, ev *OrderEvent) error {
	orig, err := getOrderTx(tx, ev.Account, ev.OrigClOrdId)
	if err != nil && err != sql.ErrNoRows {
		return err
	}

	var primary string
	var ruleId int64
	if err == nil {
		primary = orig.PrimaryClOrdId
		ruleId = orig.RuleId
		orig.OrdStatus = constants.OrdStatusReplaced
		orig.ExecType = constants.ExecTypeReplaced
		if err := updateOrderTx(tx, orig); err != nil {
			return err
		}
	}

	// Successor row under the new ClOrdID. The replace may itself be a
	// redelivery of an already-projected event; the unique index on
	// (account, cl_ord_id) is guarded by the event dedup upstream.
	succ := orderFromEvent(ev)
	succ.OrdStatus = constants.OrdStatusNew
	succ.ExecType = ev.ExecType
	succ.OrigClOrdId = ev.OrigClOrdId
	succ.PrimaryClOrdId = primary
	succ.RuleId = ruleId
	if orig != nil {
		if succ.CumQty == "" {
			succ.CumQty = orig.CumQty
		}
		if succ.AvgPx == "" {
			succ.AvgPx = orig.AvgPx
		}
	}
	fillDerivedQuantities(succ, ev)
	return insertOrderTx(tx, s.stmtOrder, succ)
}

func orderFromEvent(ev *OrderEvent) *Order {
	o := &Order{
		Account:     ev.Account,
		ClOrdId:     ev.ClOrdId,
		OrigClOrdId: ev.OrigClOrdId,
		OrderId:     ev.OrderId,
		Symbol:      ev.Symbol,
		Side:        ev.Side,
		OrdType:     ev.OrdType,
		TimeInForce: ev.TimeInForce,
		OrdStatus:   ev.OrdStatus,
		ExecType:    ev.ExecType,
		OrderQty:    ev.OrderQty,
		CumQty:      ev.CumQty,
		LeavesQty:   ev.LeavesQty,
		Price:       ev.Price,
		StopPx:      ev.StopPx,
		AvgPx:       ev.AvgPx,
		SessionId:   ev.SessionId,
	}
	fillDerivedQuantities(o, ev)
	return o
}

// mergeEvent folds an event into the current projection row.
func mergeEvent(cur *Order, ev *OrderEvent) *Order {
	cur.OrdStatus = ev.OrdStatus
	cur.ExecType = ev.ExecType
	if ev.OrderId != "" {
		cur.OrderId = ev.OrderId
	}
	if ev.Symbol != "" {
		cur.Symbol = ev.Symbol
	}
	if ev.Side != "" {
		cur.Side = ev.Side
	}
	if ev.OrdType != "" {
		cur.OrdType = ev.OrdType
	}
	if ev.TimeInForce != "" {
		cur.TimeInForce = ev.TimeInForce
	}
	if ev.OrderQty != "" {
		cur.OrderQty = ev.OrderQty
	}
	if ev.Price != "" {
		cur.Price = ev.Price
	}
	if ev.StopPx != "" {
		cur.StopPx = ev.StopPx
	}
	if ev.AvgPx != "" {
		cur.AvgPx = ev.AvgPx
	}

	if ev.CumQty != "" {
		cur.CumQty = ev.CumQty
	} else if ev.LastQty != "" {
		cur.CumQty = addDecimalStrings(cur.CumQty, ev.LastQty)
	}
	if ev.LeavesQty != "" {
		cur.LeavesQty = ev.LeavesQty
	} else {
		cur.LeavesQty = subDecimalStrings(cur.OrderQty, cur.CumQty)
	}
	return cur
}

// fillDerivedQuantities backfills cum/leaves when the vendor omits them,
// keeping cum + leaves = order_qty.
func fillDerivedQuantities(o *Order, ev *OrderEvent) {
	if o.CumQty == "" {
		if ev.LastQty != "" {
			o.CumQty = ev.LastQty
		} else {
			o.CumQty = "0"
		}
	}
	if o.LeavesQty == "" {
		o.LeavesQty = subDecimalStrings(o.OrderQty, o.CumQty)
	}
}

func addDecimalStrings(a, b string) string {
	da, err := decimal.NewFromString(nonEmpty(a, "0"))
	if err != nil {
		da = decimal.Zero
	}
	db, err := decimal.NewFromString(nonEmpty(b, "0"))
	if err != nil {
		db = decimal.Zero
	}
	return da.Add(db).String()
}

func subDecimalStrings(a, b string) string {
	da, err := decimal.NewFromString(nonEmpty(a, "0"))
	if err != nil {
		da = decimal.Zero
	}
	db, err := decimal.NewFromString(nonEmpty(b, "0"))
	if err != nil {
		db = decimal.Zero
	}
	d := da.Sub(db)
	if d.IsNegative() {
		d = decimal.Zero
	}
	return d.String()
}

func nonEmpty(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// --- Shadow order creation ---

// InsertShadowOrder records a shadow order row before its NewOrderSingle
// is enqueued, so the event persists ahead of the outbound dispatch and
// later execution reports on the shadow session find the back-link.
func (s *OrderStore) InsertShadowOrder(o *Order) error {
	unlock := s.locks.lock(o.Account + "|" + o.ClOrdId)
	defer unlock()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := insertOrderTx(tx, s.stmtOrder, o); err != nil {
		return err
	}
	return tx.Commit()
}

// MarkCancelRequested moves a shadow order to PendingCancel once its
// OrderCancelRequest has been enqueued. The venue confirms the cancel
// later on the shadow session; until then the flag keeps a second
// primary report for the same chain (PendingCancel then Canceled) from
// producing a second cancel request.
func (s *OrderStore) MarkCancelRequested(account, clOrdId string) error {
	unlock := s.locks.lock(account + "|" + clOrdId)
	defer unlock()
	_, err := s.db.Exec(`
		UPDATE orders SET ord_status = ?, exec_type = ?, updated_at = CURRENT_TIMESTAMP
		WHERE account = ? AND cl_ord_id = ?`,
		constants.OrdStatusPendingCancel, constants.ExecTypePendingCancel,
		account, clOrdId)
	return err
}

// RecordEngineEvent appends a synthetic event (skip, failure, timeout,
// saturation) to the log. ExecId must be unique; callers use the
// engine's synthetic id generator.
func (s *OrderStore) RecordEngineEvent(sessionId, execId, kind, account, clOrdId, text string) error {
	_, err := s.stmtEvent.Exec(
		sessionId, execId, kind, "",
		clOrdId, "", "", "", "", "", "", "", "", "", "", "", "", "", "",
		account, "", text, nil,
	)
	return err
}

// --- Read path ---

// GetOrder returns the projection row for (account, clOrdId), or nil.
func (s *OrderStore) GetOrder(account, clOrdId string) (*Order, error) {
	row := s.db.QueryRow(selectOrderQuery+" WHERE account = ? AND cl_ord_id = ?", account, clOrdId)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return o, err
}

// GetOrderByOrderId returns the projection row for a venue order id, or nil.
func (s *OrderStore) GetOrderByOrderId(orderId string) (*Order, error) {
	row := s.db.QueryRow(selectOrderQuery+" WHERE order_id = ?", orderId)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return o, err
}

// OrdersByAccount returns all projection rows for an account.
func (s *OrderStore) OrdersByAccount(account string) ([]*Order, error) {
	return s.queryOrders(selectOrderQuery+" WHERE account = ? ORDER BY id", account)
}

// OrdersBySymbol returns all projection rows for a symbol.
func (s *OrderStore) OrdersBySymbol(symbol string) ([]*Order, error) {
	return s.queryOrders(selectOrderQuery+" WHERE symbol = ? ORDER BY id", symbol)
}

// ShadowOrders returns the shadow orders linked to a primary ClOrdID.
func (s *OrderStore) ShadowOrders(primaryClOrdId string) ([]*Order, error) {
	return s.queryOrders(selectOrderQuery+" WHERE primary_cl_ord_id = ? ORDER BY id", primaryClOrdId)
}

// LiveShadowOrders returns the still-open shadow orders linked to a
// primary ClOrdID, the set a replace or cancel must propagate to.
func (s *OrderStore) LiveShadowOrders(primaryClOrdId string) ([]*Order, error) {
	all, err := s.ShadowOrders(primaryClOrdId)
	if err != nil {
		return nil, err
	}
	live := all[:0]
	for _, o := range all {
		if o.IsOpen() {
			live = append(live, o)
		}
	}
	return live, nil
}

// HasPriorCreation reports whether a creation event (PendingNew or New)
// for (account, clOrdId) other than execId is already in the log. The
// engine mirrors on the first creation report only; the venue may send
// both PendingNew and New for the same order.
func (s *OrderStore) HasPriorCreation(account, clOrdId, execId string) (bool, error) {
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(1) FROM order_events
		WHERE account = ? AND cl_ord_id = ? AND exec_id != ?
			AND (exec_type IN (?, ?)
				OR (exec_type = '' AND ord_status IN (?, ?)))`,
		account, clOrdId, execId,
		constants.ExecTypePendingNew, constants.ExecTypeNew,
		constants.OrdStatusPendingNew, constants.OrdStatusNew,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ForEachEvent streams the events for a client order id in ingestion
// order. The callback may return an error to stop the scan.
func (s *OrderStore) ForEachEvent(clOrdId string, fn func(*OrderEvent) error) error {
	rows, err := s.db.Query(selectEventQuery+" WHERE cl_ord_id = ? ORDER BY ingested_at, id", clOrdId)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return err
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *OrderStore) queryOrders(query string, args ...any) ([]*Order, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// --- keyed mutex ---

// keyedMutex serializes writers per projection key. Entries are not
// reaped; the key space is bounded by distinct orders per trading day.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()
	m.Lock()
	return m.Unlock
}
