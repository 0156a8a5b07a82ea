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

// Package main starts the AAS mirror service.
// It loads configuration, wires the fetch and sync components, and serves the
// working copy over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common/logger"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/mirror/api"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/wiring"
)

func runServer(ctx context.Context, configPath string) error {
	log.Default().Println("Loading AAS Mirror Service...")
	log.Default().Println("Config Path:", configPath)

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	common.AddCors(r, config)
	common.AddHealthEndpoint(r, config.Server.ContextPath)

	lg := logger.New("MIRROR")
	components, err := wiring.Build(config, wiring.Options{Logger: lg})
	if err != nil {
		return err
	}
	rec, err := wiring.Record(config)
	if err != nil {
		return err
	}

	// ==== Snapshot store ====
	var store api.SnapshotStore
	pgStore, err := wiring.OpenSnapshotStore(ctx, config, lg)
	if err != nil {
		return err
	}
	if pgStore != nil {
		store = pgStore
		defer func() { _ = pgStore.Close() }()
	} else {
		log.Println("ℹ️  Postgres disabled, snapshots are not available")
	}

	// ==== Mirror API ====
	svc := api.NewMirrorAPIService(components.Orchestrator, components.Engine, store, rec, config.Source.Location, lg)
	ctrl := api.NewMirrorAPIController(svc)
	base := common.NormalizeBasePath(config.Server.ContextPath)
	if base == "/" || base == "" {
		api.NewRouter(r, ctrl)
	} else {
		r.Route(base, func(sub chi.Router) { api.NewRouter(sub, ctrl) })
	}

	addr := "0.0.0.0:" + fmt.Sprintf("%d", config.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	log.Printf("▶️  AAS Mirror listening on %s\n", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	configPath := ""
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.Parse()

	if err := runServer(ctx, configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
