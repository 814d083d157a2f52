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

// Package catalog holds the read-mostly copy-rule set: which shadow
// accounts mirror which primary account, at what ratio, over which
// routes. Rules live in SQLite next to the order store; the engine reads
// an immutable Snapshot that is swapped atomically on Reload, so an
// in-flight mirror decision sees either the old or the new rule set,
// never a mix.
package catalog

import (
	"database/sql"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/shopspring/decimal"
)

// Ratio types.
const (
	RatioPercentage    = "PERCENTAGE"
	RatioMultiplier    = "MULTIPLIER"
	RatioFixedQuantity = "FIXED_QUANTITY"
)

// Locate sub-protocol variants, set on locate routes.
const (
	LocatePriceInquiryDirect = "PRICE_INQUIRY_DIRECT" // quote then submit, no accept step
	LocateOfferAcceptReject  = "OFFER_ACCEPT_REJECT"  // quote, accept, await 'B', submit
)

// Account types.
const (
	AccountPrimary = "PRIMARY"
	AccountShadow  = "SHADOW"
)

// Account is a brokerage account known to the engine.
type Account struct {
	Id            int64
	AccountNumber string
	Broker        string
	AccountType   string
	Active        bool
	StrategyKey   string
}

// Route is a named execution destination. LocateType is non-empty only
// for locate destinations and selects the locate sub-protocol.
type Route struct {
	Id         int64
	Name       string
	Broker     string
	Priority   int
	Active     bool
	LocateType string
}

// IsLocate reports whether the route runs the short-locate protocol.
func (r *Route) IsLocate() bool {
	return r != nil && r.LocateType != ""
}

// Rule binds one primary account to one shadow account.
type Rule struct {
	Id             int64
	PrimaryAccount string
	ShadowAccount  string
	RatioType      string
	RatioValue     decimal.Decimal
	OrderTypes     []string // accepted order types; empty = all
	CopyRoute      string
	LocateRoute    string
	MinQty         decimal.Decimal
	MaxQty         decimal.Decimal
	HasMinQty      bool
	HasMaxQty      bool
	Priority       int
	Active         bool
	Config         string // opaque policy JSON, preserved, never consulted
}

// CopyQuantity maps a primary order quantity to the shadow quantity.
// Rounding is half-up to the nearest whole share. Non-positive input
// yields zero.
func (r *Rule) CopyQuantity(q decimal.Decimal) decimal.Decimal {
	if q.Sign() <= 0 {
		return decimal.Zero
	}
	var out decimal.Decimal
	switch r.RatioType {
	case RatioPercentage:
		out = q.Mul(r.RatioValue).Div(decimal.NewFromInt(100))
	case RatioMultiplier:
		out = q.Mul(r.RatioValue)
	case RatioFixedQuantity:
		out = r.RatioValue
	default:
		return decimal.Zero
	}
	return out.Round(0)
}

// QtyOutOfBounds reports whether a computed shadow quantity violates the
// rule's optional min/max bounds; such rules are skipped.
func (r *Rule) QtyOutOfBounds(out decimal.Decimal) bool {
	if r.HasMinQty && out.LessThan(r.MinQty) {
		return true
	}
	if r.HasMaxQty && out.GreaterThan(r.MaxQty) {
		return true
	}
	return false
}

// AcceptsOrdType reports whether the rule's type filter admits the
// primary order's type. An empty filter, or an order with no type set,
// admits everything.
func (r *Rule) AcceptsOrdType(ordType string) bool {
	if ordType == "" || len(r.OrderTypes) == 0 {
		return true
	}
	for _, t := range r.OrderTypes {
		if t == ordType {
			return true
		}
	}
	return false
}

// TargetRoute resolves the execution destination for a mirrored order.
// Locate orders prefer the locate route, then the copy route, then the
// primary order's route; others prefer copy route then primary.
func (r *Rule) TargetRoute(primaryRoute string, isLocate bool) string {
	if isLocate {
		if r.LocateRoute != "" {
			return r.LocateRoute
		}
	}
	if r.CopyRoute != "" {
		return r.CopyRoute
	}
	return primaryRoute
}

// Snapshot is an immutable view of the catalog.
type Snapshot struct {
	accounts map[string]*Account
	routes   map[string]*Route
	rules    map[string][]*Rule // primary account -> rules, pre-sorted
}

// Account looks up an account by number, or nil.
func (s *Snapshot) Account(number string) *Account {
	return s.accounts[number]
}

// Route looks up a route by name, or nil.
func (s *Snapshot) Route(name string) *Route {
	return s.routes[name]
}

// SelectRules returns the active rules for a primary account whose type
// filter admits ordType, in deterministic order: ascending priority,
// then ascending id.
func (s *Snapshot) SelectRules(primaryAccount, ordType string) []*Rule {
	var out []*Rule
	for _, r := range s.rules[primaryAccount] {
		if r.AcceptsOrdType(ordType) {
			out = append(out, r)
		}
	}
	return out
}

// RuleById returns the rule with the given id, or nil. Used when a
// primary replace must re-scale with the rule that created the shadow.
func (s *Snapshot) RuleById(id int64) *Rule {
	for _, rs := range s.rules {
		for _, r := range rs {
			if r.Id == id {
				return r
			}
		}
	}
	return nil
}

// Rules returns every rule in the snapshot, for the operator console.
func (s *Snapshot) Rules() []*Rule {
	var out []*Rule
	for _, rs := range s.rules {
		out = append(out, rs...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Id < out[j].Id
	})
	return out
}

// Catalog loads rule snapshots from the database and publishes them
// atomically.
type Catalog struct {
	db   *sql.DB
	snap atomic.Pointer[Snapshot]
}

// New creates a catalog over an open database and loads the first
// snapshot. An empty rule set is valid; a load failure is not.
func New(db *sql.DB) (*Catalog, error) {
	c := &Catalog{db: db}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Snapshot returns the current immutable rule set.
func (c *Catalog) Snapshot() *Snapshot {
	return c.snap.Load()
}

// Reload reads accounts, routes and rules and swaps the snapshot in one
// atomic store. Invalid rules (ratio_value <= 0) are dropped with a log
// line rather than failing the load.
func (c *Catalog) Reload() error {
	snap := &Snapshot{
		accounts: make(map[string]*Account),
		routes:   make(map[string]*Route),
		rules:    make(map[string][]*Rule),
	}

	if err := c.loadAccounts(snap); err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}
	if err := c.loadRoutes(snap); err != nil {
		return fmt.Errorf("load routes: %w", err)
	}
	if err := c.loadRules(snap); err != nil {
		return fmt.Errorf("load rules: %w", err)
	}

	for _, rs := range snap.rules {
		sort.Slice(rs, func(i, j int) bool {
			if rs[i].Priority != rs[j].Priority {
				return rs[i].Priority < rs[j].Priority
			}
			return rs[i].Id < rs[j].Id
		})
	}

	c.snap.Store(snap)
	return nil
}

func (c *Catalog) loadAccounts(snap *Snapshot) error {
	rows, err := c.db.Query(`SELECT id, account_number, broker, account_type, active, strategy_key FROM accounts`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		a := &Account{}
		var broker, strategyKey sql.NullString
		if err := rows.Scan(&a.Id, &a.AccountNumber, &broker, &a.AccountType, &a.Active, &strategyKey); err != nil {
			return err
		}
		a.Broker = broker.String
		a.StrategyKey = strategyKey.String
		snap.accounts[a.AccountNumber] = a
	}
	return rows.Err()
}

func (c *Catalog) loadRoutes(snap *Snapshot) error {
	rows, err := c.db.Query(`SELECT id, name, broker, priority, active, locate_type FROM routes`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		r := &Route{}
		var broker, locateType sql.NullString
		if err := rows.Scan(&r.Id, &r.Name, &broker, &r.Priority, &r.Active, &locateType); err != nil {
			return err
		}
		r.Broker = broker.String
		r.LocateType = locateType.String
		snap.routes[r.Name] = r
	}
	return rows.Err()
}

func (c *Catalog) loadRules(snap *Snapshot) error {
	rows, err := c.db.Query(`
		SELECT id, primary_account, shadow_account, ratio_type, ratio_value,
			order_types, copy_route, locate_route, min_qty, max_qty,
			priority, active, config
		FROM copy_rules WHERE active = 1`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		r := &Rule{Active: true}
		var ratioValue string
		var orderTypes, copyRoute, locateRoute, minQty, maxQty, config sql.NullString
		if err := rows.Scan(&r.Id, &r.PrimaryAccount, &r.ShadowAccount, &r.RatioType,
			&ratioValue, &orderTypes, &copyRoute, &locateRoute, &minQty, &maxQty,
			&r.Priority, &r.Active, &config); err != nil {
			return err
		}

		rv, err := decimal.NewFromString(ratioValue)
		if err != nil || rv.Sign() <= 0 {
			log.Printf("catalog: dropping rule %d with invalid ratio_value %q", r.Id, ratioValue)
			continue
		}
		r.RatioValue = rv
		r.CopyRoute = copyRoute.String
		r.LocateRoute = locateRoute.String
		r.Config = config.String
		if orderTypes.String != "" {
			r.OrderTypes = strings.Split(orderTypes.String, ",")
		}
		if minQty.String != "" {
			if d, err := decimal.NewFromString(minQty.String); err == nil {
				r.MinQty = d
				r.HasMinQty = true
			}
		}
		if maxQty.String != "" {
			if d, err := decimal.NewFromString(maxQty.String); err == nil {
				r.MaxQty = d
				r.HasMaxQty = true
			}
		}
		snap.rules[r.PrimaryAccount] = append(snap.rules[r.PrimaryAccount], r)
	}
	return rows.Err()
}
