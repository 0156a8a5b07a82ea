/*******************************************************************************
* Copyright (C) 2026 the Eclipse BaSyx Authors and Fraunhofer IESE
*
* Permission is hereby granted, free of charge, to any person obtaining
* a copy of this software and associated documentation files (the
* "Software"), to deal in the Software without restriction, including
* without limitation the rights to use, copy, modify, merge, publish,
* distribute, sublicense, and/or sell copies of the Software, and to
* permit persons to whom the Software is furnished to do so, subject to
* the following conditions:
*
* The above copyright notice and this permission notice shall be
* included in all copies or substantial portions of the Software.
*
* THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
* EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
* MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
* NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
* LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
* OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
* WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*
* SPDX-License-Identifier: MIT
******************************************************************************/

// Package wiring turns a common.Config into the components the CLI and the
// mirror service share: one transport pool with the bearer token cache, the
// fetch orchestrator, the sync engine and the rename/delete assistant.
package wiring

import (
	"context"
	"net/http"
	"time"

	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/auth"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common/logger"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/endpoints"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/fetch"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/renamedelete"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/snapshot"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/syncback"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/transport"
)

// Components is everything built from one configuration.
type Components struct {
	Config       *common.Config
	BaseURIs     endpoints.BaseURIDict
	Tokens       *auth.TokenCache
	Pool         *transport.Pool
	Orchestrator *fetch.Orchestrator
	Engine       *syncback.Engine
	Log          *logger.Logger
}

// Options are the per-process additions to the configuration.
type Options struct {
	// Client replaces the default *http.Client, e.g. with a transport.FakeClient in tests.
	Client     transport.Client
	Progress   chan<- fetch.ProgressEvent
	OnTransfer func(transport.Progress)
	Logger     *logger.Logger
}

// Build wires the components. An unparsable source.baseUris is reported as
// InvalidBaseURI; an empty one is allowed.
func Build(cfg *common.Config, opts Options) (*Components, error) {
	log := opts.Logger
	if log == nil {
		log = logger.New("AASFETCH")
	}

	var base endpoints.BaseURIDict
	if cfg.Source.BaseURIs != "" {
		base = endpoints.ParseBaseURIDict(cfg.Source.BaseURIs)
		if !base.IsValid() {
			return nil, common.NewErrInvalidBaseURI("source.baseUris: " + cfg.Source.BaseURIs)
		}
	}

	tokens := auth.NewTokenCacheFromConfig(cfg.Auth, log)
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Fetch.RequestTimeout}
	}
	pool := transport.NewPool(client, tokens, transport.Options{
		RequestTimeout:    cfg.Fetch.RequestTimeout,
		ReadTimeout:       cfg.Fetch.ReadTimeout,
		RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
		OnProgress:        opts.OnTransfer,
	}, log)

	return &Components{
		Config:   cfg,
		BaseURIs: base,
		Tokens:   tokens,
		Pool:     pool,
		Orchestrator: fetch.NewOrchestrator(pool, fetch.Options{
			ParallelReads: cfg.Fetch.ParallelReads,
			BaseURIs:      base,
			EncryptIDs:    cfg.Fetch.EncryptIDs,
			Progress:      opts.Progress,
			Logger:        log,
		}),
		Engine: syncback.NewEngine(pool, syncback.Options{
			ParallelWrites: cfg.Fetch.ParallelWrites,
			BaseURIs:       base,
			EncryptIDs:     cfg.Fetch.EncryptIDs,
			Logger:         log,
		}),
		Log: log,
	}, nil
}

// Assistant returns a rename/delete assistant that mirrors its changes into env.
func (c *Components) Assistant(env *fetch.Environment) *renamedelete.Assistant {
	return renamedelete.New(c.Pool, renamedelete.Options{
		ParallelReads:  c.Config.Fetch.ParallelReads,
		ParallelWrites: c.Config.Fetch.ParallelWrites,
		EncryptIDs:     c.Config.Fetch.EncryptIDs,
		Mirror:         env,
		Logger:         c.Log,
	})
}

// Record builds the default ConnectionRecord of the configuration.
func Record(cfg *common.Config) (*fetch.ConnectionRecord, error) {
	bt, err := fetch.ParseBaseType(cfg.Source.BaseType)
	if err != nil {
		return nil, err
	}
	rec := fetch.NewConnectionRecord(bt)
	rec.PageLimit = cfg.Fetch.PageLimit
	rec.EncryptIDs = cfg.Fetch.EncryptIDs
	rec.AutoLoadSubmodels = cfg.Fetch.AutoLoadSubmodels
	rec.AutoLoadCDs = cfg.Fetch.AutoLoadCDs
	rec.AutoLoadThumbnails = cfg.Fetch.AutoLoadThumbnails
	rec.AutoLoadOnDemand = cfg.Fetch.AutoLoadOnDemand
	rec.HealAasListViaLookup = cfg.Fetch.HealAasListViaLookup
	return rec, nil
}

// OpenSnapshotStore connects to PostgreSQL when it is enabled; otherwise it
// returns nil and no error.
func OpenSnapshotStore(ctx context.Context, cfg *common.Config, log *logger.Logger) (*snapshot.Store, error) {
	if !cfg.Postgres.Enabled {
		return nil, nil
	}
	pg := cfg.Postgres
	log.Infof("🗄️  Connecting to Postgres: postgres://%s:****@%s:%d/%s?sslmode=disable", pg.User, pg.Host, pg.Port, pg.DBName)
	return snapshot.OpenPostgres(ctx, pg.DSN(), pg.MaxOpenConnections, pg.MaxIdleConnections,
		time.Duration(pg.ConnMaxLifetimeMinutes)*time.Minute, log)
}
