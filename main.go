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

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/quickfixgo/quickfix"
	filestore "github.com/quickfixgo/quickfix/store/file"

	"mirror-fix-go/catalog"
	"mirror-fix-go/config"
	"mirror-fix-go/console"
	"mirror-fix-go/database"
	"mirror-fix-go/fixengine"
	"mirror-fix-go/locate"
	"mirror-fix-go/metrics"
)

func main() {
	configPath := flag.String("config", "configs/mirror.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("database: %v", err)
		}
	}
	store, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer store.Close()

	rules, err := catalog.New(store.DB())
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}
	log.Printf("loaded %d active copy rules", len(rules.Snapshot().Rules()))

	activity := fixengine.NewActivityLog(1000)
	locates := locate.New(2 * cfg.Fix.LocateTimeout())
	app := fixengine.NewApp(&cfg.Fix, activity)

	var engine *fixengine.Engine
	sender := fixengine.NewQueuedSender(app, cfg.Fix.ShadowSessions, cfg.Fix.SendQueueSize,
		func(sessionId, account, clOrdId string, err error) {
			engine.OnSendError(sessionId, account, clOrdId, err)
		})
	ids := fixengine.NewIdGenerator(cfg.Fix.ClOrdIdPrefix)
	engine = fixengine.NewEngine(&cfg.Fix, store, rules, locates, sender, ids, activity)
	app.SetEngine(engine)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sender.Start(ctx)
	defer sender.Stop()

	if cfg.Fix.Enabled {
		acceptor, initiator, err := startSessions(cfg, app)
		if err != nil {
			log.Fatalf("fix: %v", err)
		}
		defer acceptor.Stop()
		defer initiator.Stop()
	} else {
		log.Println("FIX sessions disabled; running store and console only")
	}

	var metricsSrv interface{ Shutdown(context.Context) error }
	if cfg.Metrics.Addr != "" {
		metricsSrv = metrics.Serve(cfg.Metrics.Addr)
		log.Printf("metrics listening on %s", cfg.Metrics.Addr)
	}

	if cfg.Console.Enabled {
		c := &console.Console{
			Cfg:      &cfg.Fix,
			Store:    store,
			Catalog:  rules,
			Locates:  locates,
			Activity: activity,
			Sessions: app,
		}
		c.Run(ctx)
	} else {
		<-ctx.Done()
	}

	log.Println("shutting down")
	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}

// startSessions brings up the drop-copy acceptor and the shadow
// initiator sessions from their quickfix settings files.
func startSessions(cfg *config.Config, app *fixengine.App) (*quickfix.Acceptor, *quickfix.Initiator, error) {
	acceptorSettings, err := loadSettings(cfg.Fix.SettingsPath)
	if err != nil {
		return nil, nil, err
	}
	initiatorSettings, err := loadSettings(cfg.Fix.InitiatorSettingsPath)
	if err != nil {
		return nil, nil, err
	}

	logFactory := quickfix.NewScreenLogFactory()

	acceptor, err := quickfix.NewAcceptor(app, filestore.NewStoreFactory(acceptorSettings), acceptorSettings, logFactory)
	if err != nil {
		return nil, nil, err
	}
	initiator, err := quickfix.NewInitiator(app, filestore.NewStoreFactory(initiatorSettings), initiatorSettings, logFactory)
	if err != nil {
		return nil, nil, err
	}

	if err := acceptor.Start(); err != nil {
		return nil, nil, err
	}
	if err := initiator.Start(); err != nil {
		acceptor.Stop()
		return nil, nil, err
	}
	return acceptor, initiator, nil
}

func loadSettings(path string) (*quickfix.Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return quickfix.ParseSettings(f)
}
