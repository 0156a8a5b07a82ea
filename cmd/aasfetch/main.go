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

// Package main is the aasfetch command line tool. It loads Asset
// Administration Shells, submodels and concept descriptions from
// repositories and registries, writes local changes back, and renames or
// deletes identifiables on a server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common/logger"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/transport"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/wiring"
)

type rootFlags struct {
	configPath    string
	location      string
	baseType      string
	baseURIs      string
	parallelReads int
	pageLimit     int
	plainIDs      bool
	verbose       bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "aasfetch",
		Short: "Fetch and sync Asset Administration Shells",
		Long: `aasfetch loads Asset Administration Shells, submodels and concept
descriptions from AAS repositories, registries and registries of registries.
Submodels can be loaded as stubs and hydrated later; modified entities are
written back with "aasfetch sync".`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "path to config file")
	pf.StringVar(&flags.location, "location", "", "start URI (overrides source.location)")
	pf.StringVar(&flags.baseType, "base-type", "", "repository | registry | registryOfRegistries")
	pf.StringVar(&flags.baseURIs, "base-uris", "", `base URI or {{ "KEY":"value" }} dictionary`)
	pf.IntVar(&flags.parallelReads, "parallel", 0, "parallel reads")
	pf.IntVar(&flags.pageLimit, "limit", -1, "page limit (0 for no limit)")
	pf.BoolVar(&flags.plainIDs, "plain-ids", false, "do not base64url-encode identifiers in URIs")
	pf.BoolVar(&flags.verbose, "verbose", false, "log every transfer")

	root.AddCommand(
		newFetchCmd(flags),
		newSyncCmd(flags),
		newRenameCmd(flags),
		newDeleteCmd(flags),
		newSnapshotCmd(flags),
	)
	return root
}

// loadConfig reads the config file and applies the command line overrides.
func (f *rootFlags) loadConfig() (*common.Config, error) {
	cfg, err := common.LoadConfig(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.location != "" {
		cfg.Source.Location = f.location
	}
	if f.baseType != "" {
		cfg.Source.BaseType = f.baseType
	}
	if f.baseURIs != "" {
		cfg.Source.BaseURIs = f.baseURIs
	}
	if f.parallelReads > 0 {
		cfg.Fetch.ParallelReads = f.parallelReads
	}
	if f.pageLimit >= 0 {
		cfg.Fetch.PageLimit = f.pageLimit
	}
	if f.plainIDs {
		cfg.Fetch.EncryptIDs = false
	}
	return cfg, nil
}

func (f *rootFlags) build(cfg *common.Config, opts wiring.Options) (*wiring.Components, error) {
	if opts.Logger == nil {
		opts.Logger = logger.New("AASFETCH")
	}
	if f.verbose {
		lg := opts.Logger
		opts.OnTransfer = func(p transport.Progress) {
			if p.Done {
				lg.Debugf("%s %s: %d bytes", p.Method, p.URI, p.BytesRead)
			}
		}
	}
	return wiring.Build(cfg, opts)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Printf("❌ %v", err)
		os.Exit(1)
	}
}
