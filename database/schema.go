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

import "database/sql"

const schema = `
CREATE TABLE IF NOT EXISTS order_events (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id    TEXT NOT NULL,
	exec_id       TEXT NOT NULL,
	exec_type     TEXT,
	ord_status    TEXT,
	cl_ord_id     TEXT,
	orig_cl_ord_id TEXT,
	order_id      TEXT,
	symbol        TEXT,
	side          TEXT,
	ord_type      TEXT,
	time_in_force TEXT,
	order_qty     TEXT,
	last_qty      TEXT,
	cum_qty       TEXT,
	leaves_qty    TEXT,
	price         TEXT,
	stop_px       TEXT,
	last_px       TEXT,
	avg_px        TEXT,
	account       TEXT,
	transact_time TEXT,
	text          TEXT,
	raw           BLOB,
	ingested_at   TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_events_dedup ON order_events(session_id, exec_id);
CREATE INDEX IF NOT EXISTS idx_events_clordid ON order_events(cl_ord_id);
CREATE INDEX IF NOT EXISTS idx_events_account ON order_events(account);

CREATE TABLE IF NOT EXISTS orders (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	account        TEXT NOT NULL,
	cl_ord_id      TEXT NOT NULL,
	orig_cl_ord_id TEXT,
	order_id       TEXT,
	symbol         TEXT,
	side           TEXT,
	ord_type       TEXT,
	time_in_force  TEXT,
	ord_status     TEXT,
	exec_type      TEXT,
	order_qty      TEXT,
	cum_qty        TEXT,
	leaves_qty     TEXT,
	price          TEXT,
	stop_px        TEXT,
	avg_px         TEXT,
	primary_cl_ord_id TEXT,
	rule_id        INTEGER,
	session_id     TEXT,
	created_at     TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at     TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_key ON orders(account, cl_ord_id);
CREATE INDEX IF NOT EXISTS idx_orders_orderid ON orders(order_id);
CREATE INDEX IF NOT EXISTS idx_orders_symbol ON orders(symbol);
CREATE INDEX IF NOT EXISTS idx_orders_primary ON orders(primary_cl_ord_id);

CREATE TABLE IF NOT EXISTS accounts (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	account_number TEXT NOT NULL UNIQUE,
	broker         TEXT,
	account_type   TEXT NOT NULL,
	active         INTEGER NOT NULL DEFAULT 1,
	strategy_key   TEXT
);

CREATE TABLE IF NOT EXISTS routes (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL UNIQUE,
	broker      TEXT,
	priority    INTEGER NOT NULL DEFAULT 0,
	active      INTEGER NOT NULL DEFAULT 1,
	locate_type TEXT
);

CREATE TABLE IF NOT EXISTS copy_rules (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	primary_account TEXT NOT NULL,
	shadow_account  TEXT NOT NULL,
	ratio_type      TEXT NOT NULL,
	ratio_value     TEXT NOT NULL,
	order_types     TEXT,
	copy_route      TEXT,
	locate_route    TEXT,
	min_qty         TEXT,
	max_qty         TEXT,
	priority        INTEGER NOT NULL DEFAULT 0,
	active          INTEGER NOT NULL DEFAULT 1,
	config          TEXT
);
CREATE INDEX IF NOT EXISTS idx_rules_primary ON copy_rules(primary_account);
`

func (s *OrderStore) initSchema() error {
	_, err := s.db.Exec(schema)
	return err
}

// INSERT OR IGNORE leaves RowsAffected at zero on a dedup hit, which is
// how ApplyEvent detects redelivery.
const insertEventQuery = `
INSERT OR IGNORE INTO order_events (
	session_id, exec_id, exec_type, ord_status, cl_ord_id, orig_cl_ord_id,
	order_id, symbol, side, ord_type, time_in_force, order_qty, last_qty,
	cum_qty, leaves_qty, price, stop_px, last_px, avg_px, account,
	transact_time, text, raw
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const insertOrderQuery = `
INSERT INTO orders (
	account, cl_ord_id, orig_cl_ord_id, order_id, symbol, side, ord_type,
	time_in_force, ord_status, exec_type, order_qty, cum_qty, leaves_qty,
	price, stop_px, avg_px, primary_cl_ord_id, rule_id, session_id
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const updateOrderQuery = `
UPDATE orders SET
	orig_cl_ord_id = ?, order_id = ?, symbol = ?, side = ?, ord_type = ?,
	time_in_force = ?, ord_status = ?, exec_type = ?, order_qty = ?,
	cum_qty = ?, leaves_qty = ?, price = ?, stop_px = ?, avg_px = ?,
	updated_at = CURRENT_TIMESTAMP
WHERE id = ?`

const selectOrderQuery = `
SELECT id, account, cl_ord_id, orig_cl_ord_id, order_id, symbol, side,
	ord_type, time_in_force, ord_status, exec_type, order_qty, cum_qty,
	leaves_qty, price, stop_px, avg_px, primary_cl_ord_id, rule_id,
	session_id, created_at, updated_at
FROM orders`

const selectEventQuery = `
SELECT id, session_id, exec_id, exec_type, ord_status, cl_ord_id,
	orig_cl_ord_id, order_id, symbol, side, ord_type, time_in_force,
	order_qty, last_qty, cum_qty, leaves_qty, price, stop_px, last_px,
	avg_px, account, transact_time, text, raw, ingested_at
FROM order_events`

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(r rowScanner) (*Order, error) {
	o := &Order{}
	var origClOrdId, orderId, symbol, side, ordType, tif, ordStatus, execType sql.NullString
	var orderQty, cumQty, leavesQty, price, stopPx, avgPx, primary, sessionId sql.NullString
	var ruleId sql.NullInt64
	err := r.Scan(
		&o.Id, &o.Account, &o.ClOrdId, &origClOrdId, &orderId, &symbol,
		&side, &ordType, &tif, &ordStatus, &execType, &orderQty, &cumQty,
		&leavesQty, &price, &stopPx, &avgPx, &primary, &ruleId,
		&sessionId, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.OrigClOrdId = origClOrdId.String
	o.OrderId = orderId.String
	o.Symbol = symbol.String
	o.Side = side.String
	o.OrdType = ordType.String
	o.TimeInForce = tif.String
	o.OrdStatus = ordStatus.String
	o.ExecType = execType.String
	o.OrderQty = orderQty.String
	o.CumQty = cumQty.String
	o.LeavesQty = leavesQty.String
	o.Price = price.String
	o.StopPx = stopPx.String
	o.AvgPx = avgPx.String
	o.PrimaryClOrdId = primary.String
	o.RuleId = ruleId.Int64
	o.SessionId = sessionId.String
	return o, nil
}

func scanEvent(r rowScanner) (*OrderEvent, error) {
	ev := &OrderEvent{}
	var execType, ordStatus, clOrdId, origClOrdId, orderId, symbol, side sql.NullString
	var ordType, tif, orderQty, lastQty, cumQty, leavesQty sql.NullString
	var price, stopPx, lastPx, avgPx, account, transactTime, text sql.NullString
	err := r.Scan(
		&ev.Id, &ev.SessionId, &ev.ExecId, &execType, &ordStatus,
		&clOrdId, &origClOrdId, &orderId, &symbol, &side, &ordType, &tif,
		&orderQty, &lastQty, &cumQty, &leavesQty, &price, &stopPx,
		&lastPx, &avgPx, &account, &transactTime, &text, &ev.Raw,
		&ev.IngestedAt,
	)
	if err != nil {
		return nil, err
	}
	ev.ExecType = execType.String
	ev.OrdStatus = ordStatus.String
	ev.ClOrdId = clOrdId.String
	ev.OrigClOrdId = origClOrdId.String
	ev.OrderId = orderId.String
	ev.Symbol = symbol.String
	ev.Side = side.String
	ev.OrdType = ordType.String
	ev.TimeInForce = tif.String
	ev.OrderQty = orderQty.String
	ev.LastQty = lastQty.String
	ev.CumQty = cumQty.String
	ev.LeavesQty = leavesQty.String
	ev.Price = price.String
	ev.StopPx = stopPx.String
	ev.LastPx = lastPx.String
	ev.AvgPx = avgPx.String
	ev.Account = account.String
	ev.TransactTime = transactTime.String
	ev.Text = text.String
	return ev, nil
}

func getOrderTx(tx *sql.Tx, account, clOrdId string) (*Order, error) {
	row := tx.QueryRow(selectOrderQuery+" WHERE account = ? AND cl_ord_id = ?", account, clOrdId)
	return scanOrder(row)
}

func insertOrderTx(tx *sql.Tx, stmt *sql.Stmt, o *Order) error {
	_, err := tx.Stmt(stmt).Exec(
		o.Account, o.ClOrdId, o.OrigClOrdId, o.OrderId, o.Symbol, o.Side,
		o.OrdType, o.TimeInForce, o.OrdStatus, o.ExecType, o.OrderQty,
		o.CumQty, o.LeavesQty, o.Price, o.StopPx, o.AvgPx,
		o.PrimaryClOrdId, o.RuleId, o.SessionId,
	)
	return err
}

func updateOrderTx(tx *sql.Tx, o *Order) error {
	_, err := tx.Exec(updateOrderQuery,
		o.OrigClOrdId, o.OrderId, o.Symbol, o.Side, o.OrdType,
		o.TimeInForce, o.OrdStatus, o.ExecType, o.OrderQty, o.CumQty,
		o.LeavesQty, o.Price, o.StopPx, o.AvgPx, o.Id,
	)
	return err
}
