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

// Package fetch implements the fetch orchestrator: starting from a location
// and a ConnectionRecord it talks to repositories, registries and registries
// of registries, deserializes what they return and merges it into an
// Environment of lazily hydrated lists.
package fetch

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/FriedJannik/aas-go-sdk/types"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common/document"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/common/logger"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/endpoints"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/sideinfo"
	"github.com/eclipse-basyx/basyx-go-aasfetch/internal/transport"
)

// DefaultParallelReads is used when neither Options nor the record set a degree.
const DefaultParallelReads = 4

// Options configures an Orchestrator. Nothing is read from global state.
type Options struct {
	// ParallelReads bounds every fan-out; 1 runs units sequentially.
	ParallelReads int
	// BaseURIs, if set, tells auto-load phases where submodels, concept
	// descriptions and thumbnails live. Without it they are fetched from the
	// server the primary operation used.
	BaseURIs endpoints.BaseURIDict
	// EncryptIDs encodes ids as base64url in URIs built for on-demand loads.
	// The record of the environment's last fetch takes precedence.
	EncryptIDs bool
	// Progress receives progress events. The caller must drain it.
	Progress chan<- ProgressEvent
	Logger   *logger.Logger
}

// Result summarizes one LoadFromSource call.
type Result struct {
	Operation endpoints.OperationKind
	// Total is the number of result entries the server returned.
	Total    int
	Skipped  int
	Filtered int
	Errors   int
	// Page is the number of entries placed on this page (new or known).
	Page int
	// Added counts entities new to the environment, stubs not included.
	Added int
	// EmptyAfterSkip signals that skip or offset moved past the last entry;
	// the caller should go back a page rather than report "no results".
	EmptyAfterSkip  bool
	HealedViaLookup bool
	Cursor          string
	ResultType      string
}

// Orchestrator drives fetches through a transport pool.
type Orchestrator struct {
	pool *transport.Pool
	opts Options
	log  *logger.Logger
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(pool *transport.Pool, opts Options) *Orchestrator {
	if opts.ParallelReads <= 0 {
		opts.ParallelReads = DefaultParallelReads
	}
	log := opts.Logger
	if log == nil {
		log = logger.New("AASFETCH")
	}
	return &Orchestrator{pool: pool, opts: opts, log: log}
}

// run is the state of one LoadFromSource call.
type run struct {
	o        *Orchestrator
	env      *Environment
	rec      *ConnectionRecord
	prog     *progress
	opID     string
	parallel int
	log      *logger.Logger

	// primaryBase is the API base of the primary operation; repoHint the
	// repository base learned from registry endpoints.
	primaryBase *url.URL
	repoHint    *url.URL

	mu           sync.Mutex
	result       Result
	newShells    []types.IAssetAdministrationShell
	newSubmodels []types.ISubmodel
}

// LoadFromSource fetches from location as described by record and merges
// the result into env, which is created if nil. Failures of the primary
// operation are returned; failures of single auto-load units are logged and
// counted in the Result of the environment's FetchContext.
func (o *Orchestrator) LoadFromSource(ctx context.Context, location string, env *Environment, record *ConnectionRecord) (*Environment, error) {
	if record == nil {
		return nil, common.NewErrInvalidRecord("FETCH-LOAD-NORECORD")
	}
	rec := record.Clone()
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if env == nil {
		env = NewEnvironment()
	}

	opID := uuid.NewString()
	r := &run{
		o:        o,
		env:      env,
		rec:      rec,
		prog:     newProgress(opID, o.opts.Progress),
		opID:     opID,
		parallel: common.ClampParallel(rec.ParallelReads, o.opts.ParallelReads),
		log:      o.log,
	}

	r.prog.started(ctx, location)
	o.log.Infof("%s: loading %s from %s (%s, parallel %d)", opID, rec.Operation(), location, rec.BaseType, r.parallel)

	err := r.execute(ctx, location)
	r.prog.finished(ctx, err)
	if err != nil {
		o.log.LogError(opID+": "+location, err)
		return nil, err
	}

	res := r.snapshotResult()
	env.setFetchContext(FetchContext{Record: rec, Location: location, Cursor: res.Cursor, Result: res})
	o.log.Infof("%s: finished, %d new, %d on page, %d errors, counts %+v", opID, res.Added, res.Page, res.Errors, r.prog.snapshot())
	return env, nil
}

func (r *run) execute(ctx context.Context, location string) error {
	var err error
	switch r.rec.BaseType {
	case BaseRegistryOfRegistries:
		err = r.fromRegistryOfRegistries(ctx, location)
	case BaseRegistry:
		err = r.fromRegistry(ctx, location)
	default:
		err = r.fromRepository(ctx, location)
	}
	if err != nil {
		return err
	}

	if r.rec.AutoLoadSubmodels && r.rec.BaseType == BaseRepository {
		if err := checkCanceled(ctx, "auto-load submodels"); err != nil {
			return err
		}
		if err := r.autoLoadSubmodels(ctx); err != nil {
			return err
		}
	}
	if r.rec.AutoLoadCDs {
		if err := checkCanceled(ctx, "auto-load concept descriptions"); err != nil {
			return err
		}
		if err := r.autoLoadConceptDescriptions(ctx); err != nil {
			return err
		}
	}
	if r.rec.AutoLoadThumbnails {
		if err := checkCanceled(ctx, "auto-load thumbnails"); err != nil {
			return err
		}
		if err := r.autoLoadThumbnails(ctx); err != nil {
			return err
		}
	}
	return checkCanceled(ctx, "finalize")
}

func checkCanceled(ctx context.Context, phase string) error {
	if err := ctx.Err(); err != nil {
		return common.NewErrCanceled(phase, err)
	}
	return nil
}

func (r *run) snapshotResult() Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

func (r *run) countError() {
	r.mu.Lock()
	r.result.Errors++
	r.mu.Unlock()
}

// repoBase returns where entities of kind live: the configured role, the
// repository learned from registry endpoints, or the primary server.
func (r *run) repoBase(kind *ElementKind) *url.URL {
	if d := r.o.opts.BaseURIs; d != nil {
		if u := d.Resolve(kind.Role); u != nil {
			return u
		}
	}
	if r.repoHint != nil {
		return r.repoHint
	}
	return r.primaryBase
}

// getJSON performs a primary GET and parses the body.
func (r *run) getJSON(ctx context.Context, u *url.URL, code string) (document.Node, error) {
	resp, err := r.o.pool.Get(ctx, u)
	if err != nil {
		return document.Node{}, err
	}
	if !resp.OK() {
		r.log.Errorf("%s: GET %s returned status %d", code, u, resp.StatusCode)
		return document.Node{}, common.NewErrProtocol(u.String(), resp.StatusCode)
	}
	doc, err := document.Parse(resp.Body)
	if err != nil {
		return document.Node{}, common.NewErrDeserialize(u.String(), err)
	}
	return doc, nil
}

// getEntity GETs and deserializes one entity.
func (o *Orchestrator) getEntity(ctx context.Context, kind *ElementKind, u *url.URL) (types.IIdentifiable, error) {
	resp, err := o.pool.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, common.NewErrProtocol(u.String(), resp.StatusCode)
	}
	jsonable, err := common.UnmarshalJsonable(resp.Body)
	if err != nil {
		return nil, common.NewErrDeserialize(u.String(), err)
	}
	entity, err := kind.Deserialize(jsonable)
	if err != nil {
		return nil, common.NewErrDeserialize(kind.Name+" from "+u.String(), err)
	}
	return entity, nil
}

// storeLoaded merges a fetched entity into its list: new entities are added
// clean, stubs are hydrated in place, loaded entities win over the fetch.
func (r *run) storeLoaded(ctx context.Context, kind *ElementKind, entity types.IIdentifiable, side *sideinfo.SideInfo) (int, error) {
	st := kind.Store(r.env)
	idx, added, err := st.AddIfNew(entity, side, sideinfo.TaintCleared)
	if err != nil {
		return -1, err
	}
	if added {
		r.env.track(entity, true)
		r.noteNew(entity)
		r.mu.Lock()
		r.result.Added++
		r.mu.Unlock()
		r.prog.add(ctx, kind.Channel, 1)
		return idx, nil
	}

	data, existing, _, ok := st.Get(idx)
	if !ok {
		return -1, fmt.Errorf("FETCH-STORE-VANISHED: %s %q", kind.Name, entity.ID())
	}
	if data != nil {
		r.env.track(data, false)
		return idx, nil
	}

	if err := st.Update(idx, entity); err != nil {
		return -1, err
	}
	if existing != nil && !existing.HasEndpoint() && side != nil {
		existing.QueriedEndpoint = side.QueriedEndpoint
		existing.DesignatedEndpoint = side.DesignatedEndpoint
		st.SetSide(idx, existing)
	}
	st.MarkHydrated(idx)
	r.env.track(entity, false)
	r.noteNew(entity)
	r.prog.add(ctx, kind.Channel, 1)
	return idx, nil
}

// noteNew remembers shells and submodels for the auto-load phases.
func (r *run) noteNew(entity types.IIdentifiable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch e := entity.(type) {
	case types.IAssetAdministrationShell:
		r.newShells = append(r.newShells, e)
	case types.ISubmodel:
		r.newSubmodels = append(r.newSubmodels, e)
	}
}

// NewLoadedSide builds the side information of a fetched entity.
func NewLoadedSide(entity types.IIdentifiable, queried, designated *url.URL) *sideinfo.SideInfo {
	side := sideinfo.NewLoaded(entity.ID(), cloneURL(queried), cloneURL(designated))
	side.IDShort, side.Version, side.Revision = sideFields(entity)
	return side
}

// fanOut runs unit for 0..n-1 with at most r.parallel units in flight. Unit
// errors are logged and counted, panics are recovered; only cancellation is
// returned.
func (r *run) fanOut(ctx context.Context, phase string, n int, unit func(ctx context.Context, i int) error) error {
	if n == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallel)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					r.log.Errorf("FETCH-FANOUT-PANIC: %s unit %d: %v", phase, i, rec)
					r.countError()
					err = nil
				}
			}()
			if gctx.Err() != nil {
				return nil
			}
			if uerr := unit(gctx, i); uerr != nil {
				r.log.Warnf("%s: %v", phase, uerr)
				r.countError()
			}
			return nil
		})
	}
	_ = g.Wait()
	return checkCanceled(ctx, phase)
}

// envelope returns the result entries and the cursor of a paged response.
// A bare array is accepted as well.
func envelope(doc document.Node) ([]document.Node, string) {
	if doc.Kind() == document.KindArray {
		return doc.Items(), ""
	}
	items := doc.Field("result").Items()
	cursor := ""
	if pm, ok := doc.TryGetFieldFold("paging_metadata"); ok {
		if c, ok := pm.TryGetFieldFold("cursor"); ok {
			cursor = c.StringOr("")
		}
	}
	return items, cursor
}
