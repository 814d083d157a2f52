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

// Package console is the readline operator console: session status,
// order and event inspection, rule reload.
package console

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"mirror-fix-go/catalog"
	"mirror-fix-go/config"
	"mirror-fix-go/database"
	"mirror-fix-go/fixengine"
	"mirror-fix-go/locate"
)

// SessionStatus reports logon state for a configured session.
type SessionStatus interface {
	IsLoggedOn(sessionId string) bool
}

// Console wires the REPL over the engine's collaborators.
type Console struct {
	Cfg      *config.FixConfig
	Store    *database.OrderStore
	Catalog  *catalog.Catalog
	Locates  *locate.Correlator
	Activity *fixengine.ActivityLog
	Sessions SessionStatus
}

// Run blocks on the REPL until exit, EOF, or ctx cancellation. A
// SIGINT/SIGTERM cancels ctx while Readline blocks on the terminal;
// closing the readline instance unblocks it so shutdown proceeds.
func (c *Console) Run(ctx context.Context) {
	completer := readline.NewPrefixCompleter(
		readline.PcItem("status"),
		readline.PcItem("orders"),
		readline.PcItem("shadows"),
		readline.PcItem("events"),
		readline.PcItem("rules"),
		readline.PcItem("recent"),
		readline.PcItem("reload"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "MIRROR> ",
		HistoryFile:     "/tmp/mirror_history",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		log.Printf("Failed to create readline: %v", err)
		return
	}
	defer rl.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			rl.Close()
		case <-done:
		}
	}()

	for {
		line, err := rl.Readline()
		if err != nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		parts := strings.Fields(strings.TrimSpace(line))
		if len(parts) == 0 {
			continue
		}

		switch strings.ToLower(parts[0]) {
		case "status":
			c.handleStatus()
		case "orders":
			c.handleOrders(parts)
		case "shadows":
			c.handleShadows(parts)
		case "events":
			c.handleEvents(parts)
		case "rules":
			c.handleRules()
		case "recent":
			c.handleRecent(parts)
		case "reload":
			c.handleReload()
		case "help":
			c.displayHelp()
		case "exit":
			return
		default:
			fmt.Println("Unknown command. Type 'help' for available commands.")
		}
	}
}

func (c *Console) displayHelp() {
	fmt.Print(`Commands:
  status              - Session logon state and pending locates
  orders <account>    - Orders for an account
  shadows <clOrdId>   - Shadow orders mirrored from a primary order
  events <clOrdId>    - Event history for a client order id
  rules               - Active copy rules
  recent [n]          - Recent engine activity (default 20)
  reload              - Reload copy rules from the database
  help                - Show this help
  exit                - Quit
`)
}

func (c *Console) handleStatus() {
	printSession := func(name, id string) {
		state := "DOWN"
		if c.Sessions != nil && c.Sessions.IsLoggedOn(id) {
			state = "UP"
		}
		fmt.Printf("  %-8s %-40s %s\n", name, id, state)
	}

	fmt.Println("Sessions:")
	printSession("primary", c.Cfg.PrimarySession)
	for _, s := range c.Cfg.ShadowSessions {
		printSession("shadow", s)
	}
	fmt.Printf("Pending locates: %d\n", c.Locates.Len())
	fmt.Printf("Activity entries: %d\n", c.Activity.Total())
}

func (c *Console) handleOrders(parts []string) {
	if len(parts) < 2 {
		fmt.Println("Usage: orders <account>")
		return
	}
	orders, err := c.Store.OrdersByAccount(parts[1])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	printOrders(orders)
}

func (c *Console) handleShadows(parts []string) {
	if len(parts) < 2 {
		fmt.Println("Usage: shadows <primaryClOrdId>")
		return
	}
	orders, err := c.Store.ShadowOrders(parts[1])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	printOrders(orders)
}

func printOrders(orders []*database.Order) {
	if len(orders) == 0 {
		fmt.Println("No orders")
		return
	}
	fmt.Printf("%-22s %-12s %-10s %-4s %-10s %-10s %-10s %-6s\n",
		"ClOrdID", "Account", "Symbol", "Side", "Qty", "Filled", "Leaves", "Status")
	for _, o := range orders {
		fmt.Printf("%-22s %-12s %-10s %-4s %-10s %-10s %-10s %-6s\n",
			truncate(o.ClOrdId, 22), o.Account, o.Symbol, o.Side,
			o.OrderQty, o.CumQty, o.LeavesQty, o.OrdStatus)
	}
}

func (c *Console) handleEvents(parts []string) {
	if len(parts) < 2 {
		fmt.Println("Usage: events <clOrdId>")
		return
	}
	n := 0
	err := c.Store.ForEachEvent(parts[1], func(ev *database.OrderEvent) error {
		n++
		fmt.Printf("%-20s %-14s st=%-2s cum=%-8s leaves=%-8s %s\n",
			ev.IngestedAt.Format("2006-01-02 15:04:05"), ev.ExecType,
			ev.OrdStatus, ev.CumQty, ev.LeavesQty, ev.Text)
		return nil
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if n == 0 {
		fmt.Println("No events")
	}
}

func (c *Console) handleRules() {
	rules := c.Catalog.Snapshot().Rules()
	if len(rules) == 0 {
		fmt.Println("No active copy rules")
		return
	}
	fmt.Printf("%-4s %-12s %-12s %-16s %-10s %-12s %-12s %-4s\n",
		"ID", "Primary", "Shadow", "Ratio", "Value", "CopyRoute", "LocateRoute", "Prio")
	for _, r := range rules {
		fmt.Printf("%-4d %-12s %-12s %-16s %-10s %-12s %-12s %-4d\n",
			r.Id, r.PrimaryAccount, r.ShadowAccount, r.RatioType,
			r.RatioValue.String(), r.CopyRoute, r.LocateRoute, r.Priority)
	}
}

func (c *Console) handleRecent(parts []string) {
	limit := 20
	if len(parts) > 1 {
		if n, err := strconv.Atoi(parts[1]); err == nil && n > 0 {
			limit = n
		}
	}
	entries := c.Activity.Recent(limit)
	if len(entries) == 0 {
		fmt.Println("No activity")
		return
	}
	for _, a := range entries {
		fmt.Printf("%s %-14s %-12s %-22s %-8s %s\n",
			a.Timestamp.Format("15:04:05"), a.Kind, a.Account,
			truncate(a.ClOrdId, 22), a.Symbol, a.Text)
	}
}

func (c *Console) handleReload() {
	if err := c.Catalog.Reload(); err != nil {
		fmt.Printf("Reload failed: %v\n", err)
		return
	}
	fmt.Printf("Reloaded: %d active rules\n", len(c.Catalog.Snapshot().Rules()))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
